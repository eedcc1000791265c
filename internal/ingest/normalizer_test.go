package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func boolp(v bool) *bool     { return &v }
func intp(v int) *int        { return &v }

func TestNormalizeTimestampResolution(t *testing.T) {
	tests := []struct {
		name string
		raw  RawEvent
		want int64
	}{
		{
			name: "tracking note prefers gps capture time",
			raw:  RawEvent{File: FileTracking, WhereWhen: 1700000100, When: 1700000200, Received: 1700000300.5},
			want: 1700000100,
		},
		{
			name: "tracking note without capture time falls back to when",
			raw:  RawEvent{File: FileTracking, When: 1700000200, Received: 1700000300.5},
			want: 1700000200,
		},
		{
			name: "sensor report uses when",
			raw:  RawEvent{File: FileTrack, WhereWhen: 1700000100, When: 1700000200, Received: 1700000300.5},
			want: 1700000200,
		},
		{
			name: "missing when falls back to floored receive time",
			raw:  RawEvent{File: FileTrack, Received: 1700000300.987},
			want: 1700000300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Normalize(&tt.raw)
			assert.Equal(t, tt.want, ev.Timestamp)
		})
	}
}

func TestNormalizeLocationPriority(t *testing.T) {
	raw := RawEvent{
		Device:           "dev:1",
		File:             FileTrack,
		When:             1700000000,
		BestLat:          f64(37.77),
		BestLon:          f64(-122.41),
		BestLocationType: "gps",
		BestLocationWhen: 1700000001,
		BestLocation:     "San Francisco CA",
		TriLat:           f64(37.70),
		TriLon:           f64(-122.40),
		TowerLat:         f64(37.60),
		TowerLon:         f64(-122.30),
	}

	ev := Normalize(&raw)
	require.NotNil(t, ev.Location)
	assert.Equal(t, 37.77, ev.Location.Latitude)
	assert.Equal(t, -122.41, ev.Location.Longitude)
	assert.Equal(t, SourceGPS, ev.Location.Source)
	assert.Equal(t, "San Francisco CA", ev.Location.Name)
	assert.Equal(t, int64(1700000001), ev.Location.FixTime)

	// Drop the best fix; triangulation takes over.
	raw.BestLat, raw.BestLon = nil, nil
	raw.TriWhen = 1700000002
	ev = Normalize(&raw)
	require.NotNil(t, ev.Location)
	assert.Equal(t, 37.70, ev.Location.Latitude)
	assert.Equal(t, SourceTriangulation, ev.Location.Source)
	assert.Equal(t, int64(1700000002), ev.Location.FixTime)

	// Drop triangulation too; the tower fix is the last resort.
	raw.TriLat, raw.TriLon = nil, nil
	raw.TowerLocation = "Oakland CA"
	ev = Normalize(&raw)
	require.NotNil(t, ev.Location)
	assert.Equal(t, 37.60, ev.Location.Latitude)
	assert.Equal(t, SourceTower, ev.Location.Source)
	assert.Equal(t, "Oakland CA", ev.Location.Name)

	// No coordinates at all means no location, not an error.
	raw.TowerLat, raw.TowerLon = nil, nil
	ev = Normalize(&raw)
	assert.Nil(t, ev.Location)
}

func TestNormalizeSourceSynonyms(t *testing.T) {
	assert.Equal(t, SourceGPS, normalizeSource(""))
	assert.Equal(t, SourceGPS, normalizeSource("gps"))
	assert.Equal(t, SourceTriangulation, normalizeSource("triangulated"))
	assert.Equal(t, SourceTriangulation, normalizeSource("Triangulated"))
	assert.Equal(t, SourceTriangulation, normalizeSource("triangulation"))
	assert.Equal(t, SourceTower, normalizeSource("tower"))
	assert.Equal(t, "balloon", normalizeSource("Balloon"))
}

func TestNormalizeFirmwareParsing(t *testing.T) {
	raw := RawEvent{
		Device:           "dev:1",
		File:             FileSession,
		When:             1700000000,
		FirmwareHost:     `{"version":"3.2.1","org":"Example"}`,
		FirmwareNotecard: `{"version":"7.2.2"}`,
		SKU:              "NOTE-WBNA",
	}

	ev := Normalize(&raw)
	assert.Equal(t, "3.2.1", ev.Session.FirmwareVersion)
	assert.Equal(t, "7.2.2", ev.Session.NotecardVersion)
	assert.Equal(t, "NOTE-WBNA", ev.Session.SKU)

	// Garbage firmware strings are skipped, never fatal.
	raw.FirmwareHost = `not json at all`
	ev = Normalize(&raw)
	assert.Empty(t, ev.Session.FirmwareVersion)
	assert.Equal(t, "7.2.2", ev.Session.NotecardVersion)
}

func TestNormalizeUSBPowerPrecedence(t *testing.T) {
	// Top-level power_usb wins over the body flag.
	raw := RawEvent{
		Device:   "dev:1",
		File:     FileSession,
		When:     1700000000,
		PowerUSB: boolp(true),
		Body:     &RawBody{USB: boolp(false)},
	}
	ev := Normalize(&raw)
	require.NotNil(t, ev.Session.USBPowered)
	assert.True(t, *ev.Session.USBPowered)

	raw.PowerUSB = nil
	ev = Normalize(&raw)
	require.NotNil(t, ev.Session.USBPowered)
	assert.False(t, *ev.Session.USBPowered)

	raw.Body = nil
	ev = Normalize(&raw)
	assert.Nil(t, ev.Session.USBPowered)
}

func TestNormalizeEnvelopeFields(t *testing.T) {
	raw := RawEvent{
		Device:       "dev:1",
		SerialNumber: "SB-042",
		Fleets:       []string{"fleet:production", "fleet:beta"},
		File:         FileTrack,
		When:         1700000000,
		Body:         &RawBody{Temperature: f64(21.5), Mode: ModeTransit},
	}

	ev := Normalize(&raw)
	assert.Equal(t, "dev:1", ev.DeviceID)
	assert.Equal(t, "SB-042", ev.SerialNumber)
	assert.Equal(t, "fleet:production", ev.Fleet)
	assert.Equal(t, ModeTransit, ev.Body.Mode)
	require.NotNil(t, ev.Body.Temperature)
	assert.Equal(t, 21.5, *ev.Body.Temperature)

	// Nil body produces a zero body, not a panic.
	raw.Body = nil
	raw.Fleets = nil
	ev = Normalize(&raw)
	assert.Empty(t, ev.Fleet)
	assert.Nil(t, ev.Body.Temperature)
}
