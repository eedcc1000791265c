package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"asset-tracker/internal/ingest"
	"asset-tracker/internal/query"
	apperrors "asset-tracker/pkg/errors"
)

// QueryRepository serves the read-side API from the same tables the
// pipeline writes.
type QueryRepository struct {
	db *gorm.DB
}

func NewQueryRepository(db *DB) *QueryRepository {
	return &QueryRepository{db: db.DB}
}

func (r *QueryRepository) ListDeviceStates(ctx context.Context, mode string, limit, offset int) ([]*ingest.DeviceState, error) {
	q := r.db.WithContext(ctx)
	if mode != "" {
		q = q.Where("mode = ?", mode)
	}

	var models []deviceStateModel
	err := q.
		Order("last_seen DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list device states: %w", err)
	}

	states := make([]*ingest.DeviceState, len(models))
	for i := range models {
		states[i] = stateFromModel(&models[i])
	}
	return states, nil
}

func (r *QueryRepository) GetDeviceState(ctx context.Context, deviceID string) (*ingest.DeviceState, error) {
	return NewIngestRepositoryFrom(r.db).GetState(ctx, deviceID)
}

func (r *QueryRepository) ListTelemetry(ctx context.Context, f *query.TelemetryFilter) ([]*ingest.TelemetryRecord, error) {
	q := r.db.WithContext(ctx).Where("device_id = ?", f.DeviceID)
	if f.DataType != "" {
		q = q.Where("data_type = ?", f.DataType)
	}
	if f.Since > 0 {
		q = q.Where("ts >= ?", f.Since)
	}

	var models []telemetryModel
	if err := q.Order("ts DESC").Limit(f.Limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list telemetry: %w", err)
	}

	records := make([]*ingest.TelemetryRecord, len(models))
	for i := range models {
		records[i] = telemetryFromModel(&models[i])
	}
	return records, nil
}

func (r *QueryRepository) ListJourneys(ctx context.Context, deviceID, status string) ([]*ingest.Journey, error) {
	q := r.db.WithContext(ctx).Where("device_id = ?", deviceID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var models []journeyModel
	if err := q.Order("journey_id DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list journeys: %w", err)
	}

	journeys := make([]*ingest.Journey, len(models))
	for i, m := range models {
		journeys[i] = &ingest.Journey{
			DeviceID:      m.DeviceID,
			JourneyID:     m.JourneyID,
			Status:        m.Status,
			StartTime:     m.StartTime,
			EndTime:       m.EndTime,
			PointCount:    m.PointCount,
			TotalDistance: m.TotalDistance,
		}
	}
	return journeys, nil
}

func (r *QueryRepository) ListAlerts(ctx context.Context, acknowledged string, limit int) ([]*ingest.Alert, error) {
	q := r.db.WithContext(ctx)
	if acknowledged != "" {
		q = q.Where("acknowledged = ?", acknowledged)
	}

	var models []alertModel
	if err := q.Order("ts DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	alerts := make([]*ingest.Alert, len(models))
	for i, m := range models {
		alerts[i] = &ingest.Alert{
			ID:           m.ID,
			DeviceID:     m.DeviceID,
			Fleet:        m.Fleet,
			Timestamp:    m.Timestamp,
			AlertType:    m.AlertType,
			Value:        m.Value,
			Threshold:    m.Threshold,
			Message:      m.Message,
			Lat:          m.Lat,
			Lon:          m.Lon,
			Acknowledged: m.Acknowledged,
		}
	}
	return alerts, nil
}

func (r *QueryRepository) AcknowledgeAlert(ctx context.Context, alertID string) error {
	result := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("id = ?", alertID).
		Update("acknowledged", "true")
	if result.Error != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAlertNotFound
	}
	return nil
}

// NewIngestRepositoryFrom wraps an existing gorm handle; used where the
// read side reuses ingest-side lookups.
func NewIngestRepositoryFrom(db *gorm.DB) *IngestRepository {
	return &IngestRepository{db: db}
}

func telemetryFromModel(m *telemetryModel) *ingest.TelemetryRecord {
	rec := &ingest.TelemetryRecord{
		DeviceID:      m.DeviceID,
		Timestamp:     m.Timestamp,
		DataType:      m.DataType,
		ExpiresAt:     m.ExpiresAt,
		Temperature:   m.Temperature,
		Humidity:      m.Humidity,
		Pressure:      m.Pressure,
		Motion:        m.Motion,
		Voltage:       m.Voltage,
		MilliampHours: m.MilliampHours,
		VoltageMode:   m.VoltageMode,
		Method:        m.Method,
		Text:          m.Text,
		Velocity:      m.Velocity,
		Bearing:       m.Bearing,
		Distance:      m.Distance,
		Seconds:       m.Seconds,
		DOP:           m.DOP,
		Journey:       m.Journey,
		JCount:        m.JCount,
		PreviousMode:  m.PreviousMode,
		NewMode:       m.NewMode,
	}
	if m.Lat != nil && m.Lon != nil {
		rec.Location = &ingest.Location{
			Latitude:  *m.Lat,
			Longitude: *m.Lon,
			Source:    m.LocationSource,
			Name:      m.LocationName,
			FixTime:   m.LocationAt,
		}
	}
	return rec
}
