package ingest

import "context"

// TelemetryStore persists append-only telemetry rows. Writes are
// idempotent per (device_id, ts, data_type): redelivery overwrites.
type TelemetryStore interface {
	WriteTelemetry(ctx context.Context, rec *TelemetryRecord) error
}

// DeviceStateStore reads and partially updates the per-device snapshot.
// ApplyUpdate is an upsert: the row is created on the first event for a
// never-before-seen device.
type DeviceStateStore interface {
	GetState(ctx context.Context, deviceID string) (*DeviceState, error)
	ApplyUpdate(ctx context.Context, deviceID string, updates []FieldUpdate) error
}

// JourneyStore persists journey aggregates. StartJourney and
// AdvanceJourney are upserts; start_time and the distance base use
// if-not-exists semantics and the distance accumulation must be atomic at
// the field level.
type JourneyStore interface {
	// StartJourney records the first point of a journey and (re)marks it
	// active.
	StartJourney(ctx context.Context, deviceID string, journeyID, endTime int64, distance float64) error
	// AdvanceJourney records a continuing point. The point count is SET to
	// the device-supplied value, never incremented server-side.
	AdvanceJourney(ctx context.Context, deviceID string, journeyID, endTime int64, pointCount int, distance float64) error
	// CompleteOlderActive marks any active journey with a smaller journey
	// id as completed.
	CompleteOlderActive(ctx context.Context, deviceID string, journeyID int64) error
	// CompleteAllActive marks every active journey for the device as
	// completed, returning how many were closed.
	CompleteAllActive(ctx context.Context, deviceID string) (int64, error)
}

// AlertStore persists immutable alert records.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert *Alert) error
}

// AlertPublisher fans a stored alert out to downstream subscribers.
// Publish failures never roll back the persisted alert.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *Alert) error
}
