package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"asset-tracker/internal/logger"
	apperrors "asset-tracker/pkg/errors"
)

// Pipeline runs every inbound event through the ingest steps in a fixed
// order: telemetry write, mode change detection, journey reconstruction,
// alerting, and finally the device state projection. The projector runs
// last so the mode change detector observes the pre-update mode.
//
// Steps split into required ones, whose failure fails the whole request so
// the event router can redeliver, and best-effort ones (mode change
// record, mode-exit journey closure, alert publish) that log and continue.
type Pipeline struct {
	writer    *TelemetryWriter
	projector *DeviceStateProjector
	journeys  *JourneyReconstructor
	alerter   *Alerter
	states    DeviceStateStore
	metrics   *MetricsTracker
}

func NewPipeline(
	writer *TelemetryWriter,
	projector *DeviceStateProjector,
	journeys *JourneyReconstructor,
	alerter *Alerter,
	states DeviceStateStore,
	metrics *MetricsTracker,
) *Pipeline {
	if metrics == nil {
		metrics = NewMetricsTracker()
	}
	return &Pipeline{
		writer:    writer,
		projector: projector,
		journeys:  journeys,
		alerter:   alerter,
		states:    states,
		metrics:   metrics,
	}
}

// Metrics returns the pipeline's metrics tracker.
func (p *Pipeline) Metrics() *MetricsTracker {
	return p.metrics
}

// Process normalizes and ingests one raw event. The returned event is the
// normalized form; the error, if any, maps to a 500 for the caller.
func (p *Pipeline) Process(ctx context.Context, raw *RawEvent) (*NormalizedEvent, error) {
	ev := Normalize(raw)

	p.metrics.Update(func(m *PipelineMetrics) {
		m.EventsReceived++
		m.ByEventType[ev.File]++
	})

	if err := p.process(ctx, ev); err != nil {
		p.metrics.Update(func(m *PipelineMetrics) { m.EventsFailed++ })
		return ev, err
	}

	p.metrics.Update(func(m *PipelineMetrics) {
		m.EventsProcessed++
		m.LastEventAt = time.Now()
	})
	return ev, nil
}

func (p *Pipeline) process(ctx context.Context, ev *NormalizedEvent) error {
	// Previous mode has to be read before the projector commits the new
	// one; the lookup doubles as input for the mode-exit journey closure.
	previousMode, hadState := p.previousMode(ctx, ev)

	if err := p.writer.Write(ctx, ev); err != nil {
		return err
	}

	if ev.Body.Mode != "" && hadState && previousMode != "" && previousMode != ev.Body.Mode {
		if err := p.writer.WriteModeChange(ctx, ev, previousMode); err != nil {
			logger.Error("mode change record skipped",
				zap.String("device", ev.DeviceID),
				zap.String("previous_mode", previousMode),
				zap.String("new_mode", ev.Body.Mode),
				zap.Error(err),
			)
		} else {
			p.metrics.Update(func(m *PipelineMetrics) { m.ModeChanges++ })
		}
	}

	if ev.File == FileTracking {
		if err := p.journeys.HandleTrackingPoint(ctx, ev); err != nil {
			return err
		}
	}

	if ev.Body.Mode != "" && ev.Body.Mode != ModeTransit {
		closed, err := p.journeys.CloseAllForModeExit(ctx, ev.DeviceID, ev.Body.Mode)
		if err != nil {
			logger.Error("mode-exit journey closure skipped",
				zap.String("device", ev.DeviceID),
				zap.String("mode", ev.Body.Mode),
				zap.Error(err),
			)
		} else if closed > 0 {
			p.metrics.Update(func(m *PipelineMetrics) { m.JourneysClosed += closed })
		}
	}

	if ev.File == FileAlert {
		if err := p.alerter.HandleAlert(ctx, ev); err != nil {
			return err
		}
		p.metrics.Update(func(m *PipelineMetrics) { m.AlertsStored++ })
	}

	if err := p.projector.Project(ctx, ev); err != nil {
		return err
	}

	p.metrics.Update(func(m *PipelineMetrics) { m.RecordsWritten++ })
	return nil
}

// previousMode reads the stored mode before the projector overwrites it.
// A missing state row means the device was never seen; any other read
// failure is logged and treated the same, since mode change detection is
// purely for the activity feed.
func (p *Pipeline) previousMode(ctx context.Context, ev *NormalizedEvent) (string, bool) {
	if ev.Body.Mode == "" {
		return "", false
	}

	state, err := p.states.GetState(ctx, ev.DeviceID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrDeviceStateNotFound) {
			logger.Warn("previous mode lookup failed, skipping mode change detection",
				zap.String("device", ev.DeviceID),
				zap.Error(err),
			)
		}
		return "", false
	}
	return state.Mode, true
}
