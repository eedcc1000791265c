package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"asset-tracker/internal/logger"
)

// JourneyReconstructor rebuilds contiguous movement sessions from the
// discontinuous _track.qo stream. Each point carries a journey id (the
// unix second of the journey's first point) and a device-side 1-based
// sequence counter; the device's counter is authoritative over any
// server-side counting.
type JourneyReconstructor struct {
	store JourneyStore
}

func NewJourneyReconstructor(store JourneyStore) *JourneyReconstructor {
	return &JourneyReconstructor{store: store}
}

// HandleTrackingPoint folds one GPS point into its journey aggregate.
// A first point (jcount == 1) completes any older active journey for the
// device before opening the new one; continuing points advance the end
// time, SET the point count to the device-supplied value and accumulate
// the incremental distance.
//
// Redelivery of the exact same point is not idempotent for the distance
// total: it adds the increment again. That mirrors the upstream contract
// of at-most-once delivery per point and is asserted in tests rather than
// silently papered over.
func (r *JourneyReconstructor) HandleTrackingPoint(ctx context.Context, ev *NormalizedEvent) error {
	if ev.Location == nil || ev.Body.Journey == 0 || ev.Body.JCount == 0 {
		return nil
	}

	deviceID := ev.DeviceID
	journeyID := ev.Body.Journey
	endTime := ev.Timestamp * 1000

	var distance float64
	if ev.Body.Distance != nil {
		distance = *ev.Body.Distance
	}

	if ev.Body.JCount == 1 {
		if err := r.store.CompleteOlderActive(ctx, deviceID, journeyID); err != nil {
			return fmt.Errorf("failed to complete previous journey for %s: %w", deviceID, err)
		}
		if err := r.store.StartJourney(ctx, deviceID, journeyID, endTime, distance); err != nil {
			return fmt.Errorf("failed to start journey %d for %s: %w", journeyID, deviceID, err)
		}
		return nil
	}

	if err := r.store.AdvanceJourney(ctx, deviceID, journeyID, endTime, ev.Body.JCount, distance); err != nil {
		return fmt.Errorf("failed to advance journey %d for %s: %w", journeyID, deviceID, err)
	}
	return nil
}

// CloseAllForModeExit force-completes every active journey once the device
// leaves transit mode. Returns how many journeys were closed. Callers
// treat a failure here as best-effort: closing late is recoverable, losing
// the whole ingest request is not.
func (r *JourneyReconstructor) CloseAllForModeExit(ctx context.Context, deviceID, newMode string) (int64, error) {
	closed, err := r.store.CompleteAllActive(ctx, deviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to close active journeys for %s: %w", deviceID, err)
	}
	if closed > 0 {
		logger.Info("closed active journeys on mode exit",
			zap.String("device", deviceID),
			zap.String("mode", newMode),
			zap.Int64("journeys", closed),
		)
	}
	return closed, nil
}
