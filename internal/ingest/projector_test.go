package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findUpdate(t *testing.T, updates []FieldUpdate, column string) FieldUpdate {
	t.Helper()
	for _, u := range updates {
		if u.Column == column {
			return u
		}
	}
	t.Fatalf("no update for column %q", column)
	return FieldUpdate{}
}

func columns(updates []FieldUpdate) []string {
	out := make([]string, 0, len(updates))
	for _, u := range updates {
		out = append(out, u.Column)
	}
	return out
}

func TestBuildStateUpdateLiveness(t *testing.T) {
	now := time.Unix(1700000500, 0)
	ev := &NormalizedEvent{
		DeviceID:  "dev:1",
		File:      FileHealth,
		Timestamp: 1700000000,
	}

	updates := BuildStateUpdate(ev, now)

	assert.Equal(t, int64(1700000000), findUpdate(t, updates, "last_seen").Value)
	assert.Equal(t, "online", findUpdate(t, updates, "status").Value)
	assert.Equal(t, int64(1700000500), findUpdate(t, updates, "updated_at").Value)

	created := findUpdate(t, updates, "created_at")
	assert.Equal(t, OpSetIfAbsent, created.Op)

	// Fields the event does not carry must not appear at all.
	assert.NotContains(t, columns(updates), "mode")
	assert.NotContains(t, columns(updates), "temperature")
	assert.NotContains(t, columns(updates), "location_lat")
}

func TestBuildStateUpdateSensorReport(t *testing.T) {
	ev := &NormalizedEvent{
		DeviceID:  "dev:1",
		File:      FileTrack,
		Timestamp: 1700000000,
		Body: RawBody{
			Temperature: f64(22.5),
			Humidity:    f64(40),
			Motion:      intp(3),
			Locked:      boolp(true),
			Mode:        ModeDemo,
		},
		Location: &Location{Latitude: 37.7, Longitude: -122.4, Source: SourceGPS, FixTime: 1700000001},
	}

	updates := BuildStateUpdate(ev, time.Unix(1700000500, 0))

	assert.Equal(t, 22.5, findUpdate(t, updates, "temperature").Value)
	assert.Equal(t, float64(40), findUpdate(t, updates, "humidity").Value)
	assert.Equal(t, 3, findUpdate(t, updates, "motion").Value)
	assert.Equal(t, int64(1700000000), findUpdate(t, updates, "telemetry_at").Value)
	assert.Equal(t, ModeDemo, findUpdate(t, updates, "mode").Value)
	assert.Equal(t, 37.7, findUpdate(t, updates, "location_lat").Value)
	assert.Equal(t, SourceGPS, findUpdate(t, updates, "location_source").Value)

	// Locked was reported, lock_pending was absent: absence means false.
	assert.Equal(t, true, findUpdate(t, updates, "locked").Value)
	assert.Equal(t, false, findUpdate(t, updates, "lock_pending").Value)

	// Pressure was not reported; no intent for it.
	assert.NotContains(t, columns(updates), "pressure")
}

func TestBuildStateUpdatePowerReport(t *testing.T) {
	ev := &NormalizedEvent{
		DeviceID:  "dev:1",
		File:      FilePower,
		Timestamp: 1700000000,
		Body:      RawBody{Voltage: f64(3.87), MilliampHours: f64(120.5)},
	}

	updates := BuildStateUpdate(ev, time.Unix(1700000500, 0))
	assert.Equal(t, 3.87, findUpdate(t, updates, "voltage").Value)
	assert.Equal(t, 120.5, findUpdate(t, updates, "milliamp_hours").Value)
	assert.Equal(t, int64(1700000000), findUpdate(t, updates, "power_at").Value)
}

func TestBuildStateUpdatePowerReportOnUSBSkipsBattery(t *testing.T) {
	ev := &NormalizedEvent{
		DeviceID:  "dev:1",
		File:      FilePower,
		Timestamp: 1700000000,
		Body:      RawBody{Voltage: f64(5.02), VoltageMode: "usb"},
	}

	updates := BuildStateUpdate(ev, time.Unix(1700000500, 0))

	// Liveness still refreshes but the battery snapshot is untouched.
	assert.Equal(t, int64(1700000000), findUpdate(t, updates, "last_seen").Value)
	assert.NotContains(t, columns(updates), "voltage")
	assert.NotContains(t, columns(updates), "milliamp_hours")
	assert.NotContains(t, columns(updates), "power_at")
}

func TestBuildStateUpdateHealthVoltage(t *testing.T) {
	ev := &NormalizedEvent{
		DeviceID:  "dev:1",
		File:      FileHealth,
		Timestamp: 1700000000,
		Body:      RawBody{Voltage: f64(3.71), VoltageMode: "lipo", Method: "heartbeat"},
	}

	updates := BuildStateUpdate(ev, time.Unix(1700000500, 0))
	assert.Equal(t, 3.71, findUpdate(t, updates, "voltage").Value)

	// A battery voltage_mode on a health report marks the device as off USB.
	usb := findUpdate(t, updates, "usb_powered")
	assert.Equal(t, false, usb.Value)
}

func TestBuildStateUpdateUSBPoweredPrecedence(t *testing.T) {
	// Session metadata says USB, but the health body's voltage_mode is the
	// fresher signal and must win.
	ev := &NormalizedEvent{
		DeviceID:  "dev:1",
		File:      FileHealth,
		Timestamp: 1700000000,
		Body:      RawBody{VoltageMode: "lipo"},
		Session:   SessionInfo{USBPowered: boolp(true)},
	}

	updates := BuildStateUpdate(ev, time.Unix(1700000500, 0))
	assert.Equal(t, false, findUpdate(t, updates, "usb_powered").Value)

	// On a non-health event only the session flag contributes.
	ev.File = FileSession
	ev.Body = RawBody{}
	updates = BuildStateUpdate(ev, time.Unix(1700000500, 0))
	assert.Equal(t, true, findUpdate(t, updates, "usb_powered").Value)
}

func TestBuildStateUpdateSessionMetadata(t *testing.T) {
	ev := &NormalizedEvent{
		DeviceID:  "dev:1",
		File:      FileSession,
		Timestamp: 1700000000,
		Session: SessionInfo{
			FirmwareVersion: "3.2.1",
			NotecardVersion: "7.2.2",
			SKU:             "NOTE-WBNA",
		},
	}

	updates := BuildStateUpdate(ev, time.Unix(1700000500, 0))
	assert.Equal(t, "3.2.1", findUpdate(t, updates, "firmware_version").Value)
	assert.Equal(t, "7.2.2", findUpdate(t, updates, "notecard_version").Value)
	assert.Equal(t, "NOTE-WBNA", findUpdate(t, updates, "sku").Value)
}

func TestBuildStateUpdateCollapsed(t *testing.T) {
	// The returned list must already be collapsed: one intent per column.
	ev := &NormalizedEvent{
		DeviceID:  "dev:1",
		File:      FileHealth,
		Timestamp: 1700000000,
		Body:      RawBody{VoltageMode: "usb"},
		Session:   SessionInfo{USBPowered: boolp(false)},
	}

	updates := BuildStateUpdate(ev, time.Unix(1700000500, 0))
	seen := map[string]bool{}
	for _, u := range updates {
		require.False(t, seen[u.Column], "duplicate column %q", u.Column)
		seen[u.Column] = true
	}
	assert.Equal(t, true, findUpdate(t, updates, "usb_powered").Value)
}
