package ingest

import (
	"context"
	"fmt"
	"time"
)

// DeviceStateProjector maintains the single current-state row per device
// by applying a partial update derived from each inbound event. Fields the
// event does not carry are left untouched.
type DeviceStateProjector struct {
	states DeviceStateStore
}

func NewDeviceStateProjector(states DeviceStateStore) *DeviceStateProjector {
	return &DeviceStateProjector{states: states}
}

// Project applies the event's state update. It runs last among the
// state-mutating pipeline steps so the mode change detector can observe
// the pre-update mode.
func (p *DeviceStateProjector) Project(ctx context.Context, ev *NormalizedEvent) error {
	updates := BuildStateUpdate(ev, time.Now())
	if err := p.states.ApplyUpdate(ctx, ev.DeviceID, updates); err != nil {
		return fmt.Errorf("failed to project device state for %s: %w", ev.DeviceID, err)
	}
	return nil
}

// BuildStateUpdate translates an event into an ordered list of field
// update intents. Ordering matters: for columns written twice the later
// intent wins (see the usb_powered handling below).
func BuildStateUpdate(ev *NormalizedEvent, now time.Time) []FieldUpdate {
	updates := []FieldUpdate{
		// Liveness always refreshes. Readers derive "offline" from
		// last_seen staleness; "alert" is forced elsewhere.
		Set("last_seen", ev.Timestamp),
		Set("updated_at", now.Unix()),
		Set("status", "online"),
		SetIfAbsent("created_at", now.Unix()),
	}

	if ev.SerialNumber != "" {
		updates = append(updates, Set("serial_number", ev.SerialNumber))
	}
	if ev.Fleet != "" {
		updates = append(updates, Set("fleet", ev.Fleet))
	}
	if ev.Body.Mode != "" {
		updates = append(updates, Set("mode", ev.Body.Mode))
	}

	if ev.Location != nil {
		updates = append(updates,
			Set("location_lat", ev.Location.Latitude),
			Set("location_lon", ev.Location.Longitude),
			Set("location_source", ev.Location.Source),
			Set("location_name", ev.Location.Name),
			Set("location_at", ev.Location.FixTime),
		)
	}

	switch ev.File {
	case FileTrack:
		// Lock flags exist only on sensor reports, and absence means "not
		// locked", never "unchanged".
		updates = append(updates,
			Set("locked", ev.Body.Locked != nil && *ev.Body.Locked),
			Set("lock_pending", ev.Body.LockPending != nil && *ev.Body.LockPending),
		)
		if ev.Body.Temperature != nil {
			updates = append(updates, Set("temperature", *ev.Body.Temperature))
		}
		if ev.Body.Humidity != nil {
			updates = append(updates, Set("humidity", *ev.Body.Humidity))
		}
		if ev.Body.Pressure != nil {
			updates = append(updates, Set("pressure", *ev.Body.Pressure))
		}
		if ev.Body.Motion != nil {
			updates = append(updates, Set("motion", *ev.Body.Motion))
		}
		if ev.Body.Temperature != nil || ev.Body.Humidity != nil ||
			ev.Body.Pressure != nil || ev.Body.Motion != nil {
			updates = append(updates, Set("telemetry_at", ev.Timestamp))
		}

	case FilePower:
		// USB-powered devices have no battery worth snapshotting; liveness
		// above still refreshed.
		if ev.Body.VoltageMode == "usb" {
			break
		}
		if ev.Body.Voltage != nil {
			updates = append(updates,
				Set("voltage", *ev.Body.Voltage),
			)
		}
		if ev.Body.MilliampHours != nil {
			updates = append(updates, Set("milliamp_hours", *ev.Body.MilliampHours))
		}
		if ev.Body.Voltage != nil || ev.Body.MilliampHours != nil {
			updates = append(updates, Set("power_at", ev.Timestamp))
		}

	case FileHealth:
		// Power reports are the authoritative battery source; health only
		// contributes voltage when no power report already queued one in
		// this pass.
		if ev.Body.Voltage != nil && !hasColumn(updates, "voltage") {
			updates = append(updates, Set("voltage", *ev.Body.Voltage))
		}
	}

	if ev.Session.FirmwareVersion != "" {
		updates = append(updates, Set("firmware_version", ev.Session.FirmwareVersion))
	}
	if ev.Session.NotecardVersion != "" {
		updates = append(updates, Set("notecard_version", ev.Session.NotecardVersion))
	}
	if ev.Session.SKU != "" {
		updates = append(updates, Set("sku", ev.Session.SKU))
	}

	// usb_powered can come from session metadata and, on health reports,
	// from voltage_mode. voltage_mode is the fresher signal, so its intent
	// is appended after the session-derived one and wins the collapse.
	if ev.Session.USBPowered != nil {
		updates = append(updates, Set("usb_powered", *ev.Session.USBPowered))
	}
	if ev.File == FileHealth && ev.Body.VoltageMode != "" {
		updates = append(updates, Set("usb_powered", ev.Body.VoltageMode == "usb"))
	}

	return Collapse(updates)
}
