package query

import (
	"context"
	"time"

	"asset-tracker/internal/ingest"
)

// offlineAfter is how stale last_seen may be before a reader reports the
// device offline. The stored status only records liveness and forced
// alerts; offline is always derived.
const offlineAfter = 30 * time.Minute

// TelemetryFilter narrows a telemetry history query.
type TelemetryFilter struct {
	DeviceID string
	DataType string
	Since    int64
	Limit    int
}

// Repository is the read-side storage contract.
type Repository interface {
	ListDeviceStates(ctx context.Context, mode string, limit, offset int) ([]*ingest.DeviceState, error)
	GetDeviceState(ctx context.Context, deviceID string) (*ingest.DeviceState, error)
	ListTelemetry(ctx context.Context, f *TelemetryFilter) ([]*ingest.TelemetryRecord, error)
	ListJourneys(ctx context.Context, deviceID, status string) ([]*ingest.Journey, error)
	ListAlerts(ctx context.Context, acknowledged string, limit int) ([]*ingest.Alert, error)
	AcknowledgeAlert(ctx context.Context, alertID string) error
}

// Service exposes the durable ingest records to the dashboard API.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListDevices(ctx context.Context, mode string, limit, offset int) ([]*ingest.DeviceState, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	states, err := s.repo.ListDeviceStates(ctx, mode, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, state := range states {
		deriveStatus(state, time.Now())
	}
	return states, nil
}

func (s *Service) GetDevice(ctx context.Context, deviceID string) (*ingest.DeviceState, error) {
	state, err := s.repo.GetDeviceState(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	deriveStatus(state, time.Now())
	return state, nil
}

func (s *Service) ListTelemetry(ctx context.Context, f *TelemetryFilter) ([]*ingest.TelemetryRecord, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 200
	}
	return s.repo.ListTelemetry(ctx, f)
}

func (s *Service) ListJourneys(ctx context.Context, deviceID, status string) ([]*ingest.Journey, error) {
	return s.repo.ListJourneys(ctx, deviceID, status)
}

func (s *Service) ListAlerts(ctx context.Context, acknowledged string, limit int) ([]*ingest.Alert, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAlerts(ctx, acknowledged, limit)
}

func (s *Service) AcknowledgeAlert(ctx context.Context, alertID string) error {
	return s.repo.AcknowledgeAlert(ctx, alertID)
}

// deriveStatus downgrades a stale "online" to "offline". A forced "alert"
// status sticks until cleared elsewhere.
func deriveStatus(state *ingest.DeviceState, now time.Time) {
	if state.Status != "online" {
		return
	}
	if now.Unix()-state.LastSeen > int64(offlineAfter/time.Second) {
		state.Status = "offline"
	}
}
