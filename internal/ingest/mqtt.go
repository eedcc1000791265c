package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"asset-tracker/internal/logger"
	pkgmqtt "asset-tracker/pkg/mqtt"
)

// MQTTIngestConfig describes the inbound event topic and connection
// parameters for devices that report over MQTT instead of HTTP.
type MQTTIngestConfig struct {
	ClientConfig *pkgmqtt.Config
	EventsTopic  string
	AlertsTopic  string
	QoS          byte
}

// MQTTIngestClient feeds envelopes published on the events topic into the
// same pipeline the HTTP handler uses.
type MQTTIngestClient struct {
	cfg      *MQTTIngestConfig
	client   *pkgmqtt.Client
	pipeline *Pipeline

	mu      sync.Mutex
	started bool
}

func NewMQTTIngestClient(cfg *MQTTIngestConfig, pipeline *Pipeline) (*MQTTIngestClient, error) {
	if cfg == nil || cfg.ClientConfig == nil {
		return nil, errors.New("mqtt ingest config is not configured")
	}

	return &MQTTIngestClient{
		cfg:      cfg,
		client:   pkgmqtt.NewClient(cfg.ClientConfig),
		pipeline: pipeline,
	}, nil
}

// BindPipeline attaches the pipeline that inbound events are processed
// through. The alert publisher side of the client does not need it, so the
// client can be built before the pipeline and bound here.
func (c *MQTTIngestClient) BindPipeline(p *Pipeline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipeline = p
}

// Start connects and subscribes to the events topic.
func (c *MQTTIngestClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}
	if c.cfg.EventsTopic == "" {
		return errors.New("no MQTT events topic configured")
	}
	if c.pipeline == nil {
		return errors.New("no pipeline bound")
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	if err := c.client.Subscribe(c.cfg.EventsTopic, c.cfg.QoS, c.handleEvent); err != nil {
		c.client.Disconnect()
		return err
	}

	c.started = true
	return nil
}

// Stop unsubscribes and disconnects.
func (c *MQTTIngestClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}

	if err := c.client.Unsubscribe(c.cfg.EventsTopic); err != nil {
		logger.Warn("failed to unsubscribe from events topic", zap.Error(err))
	}
	c.client.Disconnect()
	c.started = false
}

// Publisher returns an alert publisher bound to this client's connection,
// or nil when no alerts topic is configured.
func (c *MQTTIngestClient) Publisher() AlertPublisher {
	if c.cfg.AlertsTopic == "" {
		return nil
	}
	return &MQTTAlertPublisher{
		client: c.client,
		topic:  c.cfg.AlertsTopic,
		qos:    c.cfg.QoS,
	}
}

// handleEvent decodes an envelope and runs it through the pipeline.
// Malformed payloads and processing failures are logged and dropped; MQTT
// has no reply channel to surface a 4xx/5xx through.
func (c *MQTTIngestClient) handleEvent(topic string, payload []byte) {
	var raw RawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		logger.Warn("invalid event payload",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}
	if raw.Device == "" {
		logger.Warn("event payload missing device id", zap.String("topic", topic))
		return
	}

	if _, err := c.pipeline.Process(context.Background(), &raw); err != nil {
		logger.Error("event processing failed",
			zap.String("topic", topic),
			zap.String("device", raw.Device),
			zap.Error(err),
		)
	}
}

// alertNotification is the wire shape published for downstream consumers
// (mailers, pagers). The routing fields are a stable contract.
type alertNotification struct {
	AlertID   string   `json:"alert_id"`
	AlertType string   `json:"alert_type"`
	DeviceID  string   `json:"device_id"`
	Fleet     string   `json:"fleet"`
	Timestamp int64    `json:"timestamp"`
	Value     *float64 `json:"value,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Message   string   `json:"message,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
}

// MQTTAlertPublisher fans stored alerts out on the alerts topic.
type MQTTAlertPublisher struct {
	client *pkgmqtt.Client
	topic  string
	qos    byte
}

func NewMQTTAlertPublisher(client *pkgmqtt.Client, topic string, qos byte) *MQTTAlertPublisher {
	return &MQTTAlertPublisher{client: client, topic: topic, qos: qos}
}

// PublishAlert publishes the notification on <topic>/<device_id> so
// subscribers can filter per device or per fleet-wide wildcard.
func (p *MQTTAlertPublisher) PublishAlert(_ context.Context, alert *Alert) error {
	msg := alertNotification{
		AlertID:   alert.ID,
		AlertType: alert.AlertType,
		DeviceID:  alert.DeviceID,
		Fleet:     alert.Fleet,
		Timestamp: alert.Timestamp,
		Value:     alert.Value,
		Threshold: alert.Threshold,
		Message:   alert.Message,
		Lat:       alert.Lat,
		Lon:       alert.Lon,
	}
	return p.client.PublishJSON(p.topic+"/"+alert.DeviceID, p.qos, msg)
}
