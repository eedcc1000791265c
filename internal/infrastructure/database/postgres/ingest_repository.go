package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"asset-tracker/internal/ingest"
	apperrors "asset-tracker/pkg/errors"
)

// IngestRepository implements the ingest store interfaces on Postgres.
type IngestRepository struct {
	db *gorm.DB
}

func NewIngestRepository(db *DB) *IngestRepository {
	return &IngestRepository{db: db.DB}
}

// WriteTelemetry upserts one telemetry row. The composite key makes
// redelivery overwrite instead of duplicate.
func (r *IngestRepository) WriteTelemetry(ctx context.Context, rec *ingest.TelemetryRecord) error {
	model := telemetryModel{
		DeviceID:      rec.DeviceID,
		Timestamp:     rec.Timestamp,
		DataType:      rec.DataType,
		ExpiresAt:     rec.ExpiresAt,
		Temperature:   rec.Temperature,
		Humidity:      rec.Humidity,
		Pressure:      rec.Pressure,
		Motion:        rec.Motion,
		Voltage:       rec.Voltage,
		MilliampHours: rec.MilliampHours,
		VoltageMode:   rec.VoltageMode,
		Method:        rec.Method,
		Text:          rec.Text,
		Velocity:      rec.Velocity,
		Bearing:       rec.Bearing,
		Distance:      rec.Distance,
		Seconds:       rec.Seconds,
		DOP:           rec.DOP,
		Journey:       rec.Journey,
		JCount:        rec.JCount,
		PreviousMode:  rec.PreviousMode,
		NewMode:       rec.NewMode,
	}
	if rec.Location != nil {
		lat, lon := rec.Location.Latitude, rec.Location.Longitude
		model.Lat = &lat
		model.Lon = &lon
		model.LocationSource = rec.Location.Source
		model.LocationName = rec.Location.Name
		model.LocationAt = rec.Location.FixTime
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "ts"}, {Name: "data_type"}},
			UpdateAll: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to write telemetry row: %w", err)
	}
	return nil
}

// DeleteExpiredTelemetry removes rows past their expiry stamp.
func (r *IngestRepository) DeleteExpiredTelemetry(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at > 0 AND expires_at < ?", now.Unix()).
		Delete(&telemetryModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired telemetry: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GetState loads the current snapshot for a device.
func (r *IngestRepository) GetState(ctx context.Context, deviceID string) (*ingest.DeviceState, error) {
	var model deviceStateModel
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDeviceStateNotFound
		}
		return nil, fmt.Errorf("failed to load device state: %w", err)
	}
	return stateFromModel(&model), nil
}

// ApplyUpdate performs the partial upsert the projector describes through
// field update intents. Set intents land as plain conflict assignments,
// if-absent intents keep the stored value via COALESCE and add intents
// accumulate inside the statement, so the whole merge is a single atomic
// round trip.
func (r *IngestRepository) ApplyUpdate(ctx context.Context, deviceID string, updates []ingest.FieldUpdate) error {
	row := map[string]interface{}{"device_id": deviceID}
	assignments := make(map[string]interface{}, len(updates))

	for _, u := range ingest.Collapse(updates) {
		row[u.Column] = u.Value
		switch u.Op {
		case ingest.OpSetIfAbsent:
			assignments[u.Column] = gorm.Expr(
				fmt.Sprintf("COALESCE(device_states.%s, excluded.%s)", u.Column, u.Column))
		case ingest.OpAdd:
			assignments[u.Column] = gorm.Expr(
				fmt.Sprintf("COALESCE(device_states.%s, 0) + excluded.%s", u.Column, u.Column))
		default:
			assignments[u.Column] = gorm.Expr(fmt.Sprintf("excluded.%s", u.Column))
		}
	}

	err := r.db.WithContext(ctx).
		Model(&deviceStateModel{}).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert device state: %w", err)
	}
	return nil
}

// StartJourney upserts the first point of a journey. start_time is only
// written on insert (first-write-wins) and the distance accumulates on
// top of whatever redeliveries already added.
func (r *IngestRepository) StartJourney(ctx context.Context, deviceID string, journeyID, endTime int64, distance float64) error {
	model := journeyModel{
		DeviceID:      deviceID,
		JourneyID:     journeyID,
		Status:        ingest.JourneyActive,
		StartTime:     journeyID * 1000,
		EndTime:       endTime,
		PointCount:    1,
		TotalDistance: distance,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "device_id"}, {Name: "journey_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":         ingest.JourneyActive,
				"end_time":       endTime,
				"point_count":    1,
				"total_distance": gorm.Expr("journeys.total_distance + ?", distance),
			}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to start journey: %w", err)
	}
	return nil
}

// AdvanceJourney upserts a continuing point. The insert path covers a
// journey whose first point was lost in transit; on conflict the status is
// left alone so a completed journey never flips back to active.
func (r *IngestRepository) AdvanceJourney(ctx context.Context, deviceID string, journeyID, endTime int64, pointCount int, distance float64) error {
	model := journeyModel{
		DeviceID:      deviceID,
		JourneyID:     journeyID,
		Status:        ingest.JourneyActive,
		StartTime:     journeyID * 1000,
		EndTime:       endTime,
		PointCount:    pointCount,
		TotalDistance: distance,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "device_id"}, {Name: "journey_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"end_time":       endTime,
				"point_count":    pointCount,
				"total_distance": gorm.Expr("journeys.total_distance + ?", distance),
			}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to advance journey: %w", err)
	}
	return nil
}

// CompleteOlderActive closes any still-active journey that started before
// the given one.
func (r *IngestRepository) CompleteOlderActive(ctx context.Context, deviceID string, journeyID int64) error {
	err := r.db.WithContext(ctx).
		Model(&journeyModel{}).
		Where("device_id = ? AND status = ? AND journey_id < ?",
			deviceID, ingest.JourneyActive, journeyID).
		Update("status", ingest.JourneyCompleted).Error
	if err != nil {
		return fmt.Errorf("failed to complete older journeys: %w", err)
	}
	return nil
}

// CompleteAllActive closes every active journey for the device.
func (r *IngestRepository) CompleteAllActive(ctx context.Context, deviceID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&journeyModel{}).
		Where("device_id = ? AND status = ?", deviceID, ingest.JourneyActive).
		Update("status", ingest.JourneyCompleted)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to complete active journeys: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// InsertAlert stores one immutable alert row.
func (r *IngestRepository) InsertAlert(ctx context.Context, alert *ingest.Alert) error {
	model := alertModel{
		ID:           alert.ID,
		DeviceID:     alert.DeviceID,
		Fleet:        alert.Fleet,
		Timestamp:    alert.Timestamp,
		AlertType:    alert.AlertType,
		Value:        alert.Value,
		Threshold:    alert.Threshold,
		Message:      alert.Message,
		Lat:          alert.Lat,
		Lon:          alert.Lon,
		Acknowledged: alert.Acknowledged,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func stateFromModel(m *deviceStateModel) *ingest.DeviceState {
	state := &ingest.DeviceState{
		DeviceID:        m.DeviceID,
		SerialNumber:    m.SerialNumber,
		Fleet:           m.Fleet,
		LastSeen:        m.LastSeen,
		Status:          m.Status,
		Mode:            m.Mode,
		Locked:          m.Locked,
		LockPending:     m.LockPending,
		LocationLat:     m.LocationLat,
		LocationLon:     m.LocationLon,
		LocationSource:  m.LocationSource,
		LocationName:    m.LocationName,
		LocationAt:      m.LocationAt,
		Temperature:     m.Temperature,
		Humidity:        m.Humidity,
		Pressure:        m.Pressure,
		Motion:          m.Motion,
		TelemetryAt:     m.TelemetryAt,
		Voltage:         m.Voltage,
		MilliampHours:   m.MilliampHours,
		PowerAt:         m.PowerAt,
		FirmwareVersion: m.FirmwareVersion,
		NotecardVersion: m.NotecardVersion,
		SKU:             m.SKU,
		USBPowered:      m.USBPowered,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.CreatedAt != nil {
		state.CreatedAt = *m.CreatedAt
	}
	return state
}
