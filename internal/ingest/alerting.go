package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"asset-tracker/internal/logger"
)

// Alerter persists threshold-breach alerts and fans them out to the
// notification topic. Storage is the required step; the publish is
// at-least-stored, best-effort-notified.
type Alerter struct {
	store     AlertStore
	publisher AlertPublisher
}

func NewAlerter(store AlertStore, publisher AlertPublisher) *Alerter {
	return &Alerter{store: store, publisher: publisher}
}

// HandleAlert builds the alert record from an alert.qo event, stores it
// and publishes the notification. A publish failure is logged and
// swallowed; the stored alert is never rolled back.
func (a *Alerter) HandleAlert(ctx context.Context, ev *NormalizedEvent) error {
	alert := &Alert{
		ID:           newAlertID(ev.DeviceID, ev.Timestamp),
		DeviceID:     ev.DeviceID,
		Fleet:        ev.Fleet,
		Timestamp:    ev.Timestamp,
		AlertType:    ev.Body.AlertType,
		Value:        ev.Body.Value,
		Threshold:    ev.Body.Threshold,
		Message:      ev.Body.Message,
		Acknowledged: "false",
	}
	if ev.Location != nil {
		lat, lon := ev.Location.Latitude, ev.Location.Longitude
		alert.Lat = &lat
		alert.Lon = &lon
	}

	if err := a.store.InsertAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to store alert for %s: %w", ev.DeviceID, err)
	}

	if a.publisher == nil {
		return nil
	}
	if err := a.publisher.PublishAlert(ctx, alert); err != nil {
		logger.Error("alert notification publish failed",
			zap.String("device", ev.DeviceID),
			zap.String("alert_id", alert.ID),
			zap.Error(err),
		)
	}
	return nil
}

// newAlertID builds a globally unique alert id from the device, the event
// time and a random suffix.
func newAlertID(deviceID string, ts int64) string {
	return fmt.Sprintf("%s-%d-%s", deviceID, ts, uuid.NewString()[:8])
}
