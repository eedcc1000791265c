package ingest

import (
	"context"
	"fmt"
	"time"
)

// DefaultRetention is how long telemetry rows live before the retention
// sweeper removes them.
const DefaultRetention = 90 * 24 * time.Hour

// TelemetryWriter turns normalized events into zero or more append-only
// telemetry rows, branching by event type.
type TelemetryWriter struct {
	store     TelemetryStore
	retention time.Duration
}

func NewTelemetryWriter(store TelemetryStore, retention time.Duration) *TelemetryWriter {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &TelemetryWriter{store: store, retention: retention}
}

// Write persists the record(s) the event maps to. Event types with nothing
// worth recording (command acks, session reports, power reports from
// USB-powered devices) write nothing and return nil.
func (w *TelemetryWriter) Write(ctx context.Context, ev *NormalizedEvent) error {
	rec := w.newRecord(ev, "")

	switch ev.File {
	case FileTrack:
		rec.DataType = DataTypeTelemetry
		rec.Temperature = ev.Body.Temperature
		rec.Humidity = ev.Body.Humidity
		rec.Pressure = ev.Body.Pressure
		rec.Motion = ev.Body.Motion
		rec.Location = ev.Location

	case FilePower:
		if ev.Body.VoltageMode == "usb" {
			return nil
		}
		if ev.Body.Voltage == nil && ev.Body.MilliampHours == nil {
			return nil
		}
		rec.DataType = DataTypePower
		rec.Voltage = ev.Body.Voltage
		rec.MilliampHours = ev.Body.MilliampHours
		rec.VoltageMode = ev.Body.VoltageMode

	case FileHealth:
		rec.DataType = DataTypeHealth
		rec.Method = ev.Body.Method
		rec.Text = ev.Body.Text
		rec.Voltage = ev.Body.Voltage
		rec.VoltageMode = ev.Body.VoltageMode
		rec.MilliampHours = ev.Body.MilliampHours
		if ev.Location != nil {
			loc := *ev.Location
			// Health pings usually arrive over cell without a proper fix.
			if loc.Source == "" {
				loc.Source = SourceTower
			}
			rec.Location = &loc
		}

	case FileGeolocation:
		// A bare location update participates in location-history queries
		// uniformly with GPS fixes, so it lands as a telemetry row.
		if ev.Location == nil {
			return nil
		}
		rec.DataType = DataTypeTelemetry
		rec.Location = ev.Location

	case FileTracking:
		if ev.Location == nil {
			return nil
		}
		rec.DataType = DataTypeTracking
		rec.Velocity = ev.Body.Velocity
		rec.Bearing = ev.Body.Bearing
		rec.Distance = ev.Body.Distance
		rec.Seconds = ev.Body.Seconds
		rec.DOP = ev.Body.DOP
		rec.Journey = ev.Body.Journey
		rec.JCount = ev.Body.JCount
		rec.Location = ev.Location

	default:
		return nil
	}

	if err := w.store.WriteTelemetry(ctx, rec); err != nil {
		return fmt.Errorf("failed to write %s record for %s: %w", rec.DataType, ev.DeviceID, err)
	}
	return nil
}

// WriteModeChange records a synthetic timeline row for the activity feed
// when the reported mode differs from the stored one.
func (w *TelemetryWriter) WriteModeChange(ctx context.Context, ev *NormalizedEvent, previousMode string) error {
	rec := w.newRecord(ev, DataTypeModeChange)
	rec.PreviousMode = previousMode
	rec.NewMode = ev.Body.Mode

	if err := w.store.WriteTelemetry(ctx, rec); err != nil {
		return fmt.Errorf("failed to write mode change record for %s: %w", ev.DeviceID, err)
	}
	return nil
}

func (w *TelemetryWriter) newRecord(ev *NormalizedEvent, dataType string) *TelemetryRecord {
	return &TelemetryRecord{
		DeviceID:  ev.DeviceID,
		Timestamp: ev.Timestamp,
		DataType:  dataType,
		ExpiresAt: ev.Timestamp + int64(w.retention/time.Second),
	}
}
