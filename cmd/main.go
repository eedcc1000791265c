package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"asset-tracker/internal/config"
	"asset-tracker/internal/infrastructure/database/postgres"
	"asset-tracker/internal/ingest"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/routes"
	pkgmqtt "asset-tracker/pkg/mqtt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting ingest service",
		zap.String("environment", env),
	)

	if cfg.Database.Host == "" || cfg.Database.DBName == "" {
		logger.Fatal("Database configuration is missing. Please set DB_HOST and DB_NAME environment variables.")
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	repo := postgres.NewIngestRepository(db)

	var (
		mqttClient *ingest.MQTTIngestClient
		publisher  ingest.AlertPublisher
	)

	retention := time.Duration(cfg.Retention.TelemetryDays) * 24 * time.Hour
	writer := ingest.NewTelemetryWriter(repo, retention)
	projector := ingest.NewDeviceStateProjector(repo)
	journeys := ingest.NewJourneyReconstructor(repo)
	metrics := ingest.NewMetricsTracker()

	if cfg.MQTT.Enabled {
		mqttCfg := &ingest.MQTTIngestConfig{
			ClientConfig: &pkgmqtt.Config{
				Broker:               cfg.MQTT.Broker,
				ClientID:             cfg.MQTT.ClientID,
				Username:             cfg.MQTT.Username,
				Password:             cfg.MQTT.Password,
				CleanSession:         true,
				KeepAlive:            cfg.MQTT.KeepAlive,
				ConnectTimeout:       cfg.MQTT.ConnectTimeout,
				AutoReconnect:        true,
				MaxReconnectInterval: time.Minute,
			},
			EventsTopic: cfg.MQTT.EventsTopic,
			AlertsTopic: cfg.MQTT.AlertsTopic,
			QoS:         byte(cfg.MQTT.QoS),
		}

		// The pipeline below needs the publisher, and the MQTT client needs
		// the pipeline for inbound events; the publisher side only holds the
		// connection, so it is safe to build first.
		client, err := ingest.NewMQTTIngestClient(mqttCfg, nil)
		if err != nil {
			logger.Fatal("Failed to build MQTT client", zap.Error(err))
		}
		mqttClient = client
		publisher = client.Publisher()
	}

	alerter := ingest.NewAlerter(repo, publisher)
	pipeline := ingest.NewPipeline(writer, projector, journeys, alerter, repo, metrics)

	if mqttClient != nil {
		mqttClient.BindPipeline(pipeline)
		if err := mqttClient.Start(); err != nil {
			logger.Fatal("Failed to start MQTT ingest", zap.Error(err))
		}
		defer mqttClient.Stop()
	}

	retentionCtx, retentionCancel := context.WithCancel(context.Background())
	defer retentionCancel()
	go ingest.StartRetentionJob(retentionCtx, repo, cfg.Retention.SweepInterval)

	router := routes.SetupRoutes(cfg, db, pipeline)

	host := cfg.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	addr := net.JoinHostPort(host, port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Failed to shutdown server", zap.Error(err))
	}

	logger.Info("Server exited properly")
}
