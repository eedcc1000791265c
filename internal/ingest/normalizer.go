package ingest

import (
	"encoding/json"
	"math"
	"strings"

	"go.uber.org/zap"

	"asset-tracker/internal/logger"
)

// firmwareInfo is the shape of the JSON-encoded firmware description
// strings on the envelope. Only the version is kept.
type firmwareInfo struct {
	Version string `json:"version"`
}

// Normalize turns a raw envelope into the canonical internal event. It is
// pure, performs no I/O and never fails: missing optional fields simply
// produce an event without them.
func Normalize(raw *RawEvent) *NormalizedEvent {
	ev := &NormalizedEvent{
		DeviceID:     raw.Device,
		SerialNumber: raw.SerialNumber,
		File:         raw.File,
		ReceivedAt:   raw.Received,
		Timestamp:    resolveTimestamp(raw),
		Location:     resolveLocation(raw),
		Session:      resolveSession(raw),
	}

	if len(raw.Fleets) > 0 {
		ev.Fleet = raw.Fleets[0]
	}
	if raw.Body != nil {
		ev.Body = *raw.Body
	}

	return ev
}

// resolveTimestamp picks the event time. Tracking notes prefer the GPS fix
// capture time because they can be queued on the device and delivered
// minutes later; everything else uses the reported time, falling back to
// the routing layer's receive time.
func resolveTimestamp(raw *RawEvent) int64 {
	if raw.File == FileTracking && raw.WhereWhen > 0 {
		return raw.WhereWhen
	}
	if raw.When > 0 {
		return raw.When
	}
	return int64(math.Floor(raw.Received))
}

// resolveLocation applies the source fallback chain: GPS ("best") fix,
// then triangulation, then cell tower. Absence of all three is not an
// error; the event simply carries no location.
func resolveLocation(raw *RawEvent) *Location {
	switch {
	case raw.BestLat != nil && raw.BestLon != nil:
		return &Location{
			Latitude:  *raw.BestLat,
			Longitude: *raw.BestLon,
			FixTime:   raw.BestLocationWhen,
			Source:    normalizeSource(raw.BestLocationType),
			Name:      raw.BestLocation,
		}
	case raw.TriLat != nil && raw.TriLon != nil:
		return &Location{
			Latitude:  *raw.TriLat,
			Longitude: *raw.TriLon,
			FixTime:   raw.TriWhen,
			Source:    SourceTriangulation,
		}
	case raw.TowerLat != nil && raw.TowerLon != nil:
		return &Location{
			Latitude:  *raw.TowerLat,
			Longitude: *raw.TowerLon,
			FixTime:   raw.TowerWhen,
			Source:    SourceTower,
			Name:      raw.TowerLocation,
		}
	}
	return nil
}

// normalizeSource maps the upstream location type string to a canonical
// source label. The Notehub reports triangulated fixes as "triangulated".
func normalizeSource(locationType string) string {
	switch strings.ToLower(locationType) {
	case "", SourceGPS:
		return SourceGPS
	case "triangulated", SourceTriangulation:
		return SourceTriangulation
	case SourceTower:
		return SourceTower
	}
	return strings.ToLower(locationType)
}

// resolveSession extracts firmware and power metadata. The firmware fields
// are JSON-encoded strings; a parse failure is logged and the field
// omitted, never fatal for the event.
func resolveSession(raw *RawEvent) SessionInfo {
	info := SessionInfo{SKU: raw.SKU}

	if raw.FirmwareHost != "" {
		var fw firmwareInfo
		if err := json.Unmarshal([]byte(raw.FirmwareHost), &fw); err != nil {
			logger.Warn("unparseable firmware_host field, skipping",
				zap.String("device", raw.Device),
				zap.Error(err),
			)
		} else {
			info.FirmwareVersion = fw.Version
		}
	}

	if raw.FirmwareNotecard != "" {
		var fw firmwareInfo
		if err := json.Unmarshal([]byte(raw.FirmwareNotecard), &fw); err != nil {
			logger.Warn("unparseable firmware_notecard field, skipping",
				zap.String("device", raw.Device),
				zap.Error(err),
			)
		} else {
			info.NotecardVersion = fw.Version
		}
	}

	// Top-level power_usb wins over the body-level flag when both appear.
	switch {
	case raw.PowerUSB != nil:
		info.USBPowered = raw.PowerUSB
	case raw.Body != nil && raw.Body.USB != nil:
		info.USBPowered = raw.Body.USB
	}

	return info
}
