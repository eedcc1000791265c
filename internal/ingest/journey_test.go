package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memJourneyStore mirrors the upsert semantics of the Postgres store:
// start_time is first-write-wins, the distance accumulates atomically and
// AdvanceJourney never touches the status column.
type memJourneyStore struct {
	journeys map[int64]*Journey
	err      error
}

func newMemJourneyStore() *memJourneyStore {
	return &memJourneyStore{journeys: map[int64]*Journey{}}
}

func (s *memJourneyStore) StartJourney(_ context.Context, deviceID string, journeyID, endTime int64, distance float64) error {
	if s.err != nil {
		return s.err
	}
	if j, ok := s.journeys[journeyID]; ok {
		j.Status = JourneyActive
		j.EndTime = endTime
		j.PointCount = 1
		j.TotalDistance += distance
		return nil
	}
	s.journeys[journeyID] = &Journey{
		DeviceID:      deviceID,
		JourneyID:     journeyID,
		Status:        JourneyActive,
		StartTime:     journeyID * 1000,
		EndTime:       endTime,
		PointCount:    1,
		TotalDistance: distance,
	}
	return nil
}

func (s *memJourneyStore) AdvanceJourney(_ context.Context, deviceID string, journeyID, endTime int64, pointCount int, distance float64) error {
	if s.err != nil {
		return s.err
	}
	if j, ok := s.journeys[journeyID]; ok {
		j.EndTime = endTime
		j.PointCount = pointCount
		j.TotalDistance += distance
		return nil
	}
	s.journeys[journeyID] = &Journey{
		DeviceID:      deviceID,
		JourneyID:     journeyID,
		Status:        JourneyActive,
		StartTime:     journeyID * 1000,
		EndTime:       endTime,
		PointCount:    pointCount,
		TotalDistance: distance,
	}
	return nil
}

func (s *memJourneyStore) CompleteOlderActive(_ context.Context, _ string, journeyID int64) error {
	if s.err != nil {
		return s.err
	}
	for id, j := range s.journeys {
		if j.Status == JourneyActive && id < journeyID {
			j.Status = JourneyCompleted
		}
	}
	return nil
}

func (s *memJourneyStore) CompleteAllActive(_ context.Context, _ string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for _, j := range s.journeys {
		if j.Status == JourneyActive {
			j.Status = JourneyCompleted
			n++
		}
	}
	return n, nil
}

func trackingPoint(journeyID int64, jcount int, ts int64, distance float64) *NormalizedEvent {
	return &NormalizedEvent{
		DeviceID:  "dev:1",
		File:      FileTracking,
		Timestamp: ts,
		Body: RawBody{
			Journey:  journeyID,
			JCount:   jcount,
			Distance: f64(distance),
		},
		Location: &Location{Latitude: 37.7, Longitude: -122.4, Source: SourceGPS},
	}
}

func TestJourneyLifecycle(t *testing.T) {
	store := newMemJourneyStore()
	r := NewJourneyReconstructor(store)
	ctx := context.Background()

	require.NoError(t, r.HandleTrackingPoint(ctx, trackingPoint(1000, 1, 1000, 0)))
	require.NoError(t, r.HandleTrackingPoint(ctx, trackingPoint(1000, 2, 1060, 30)))
	require.NoError(t, r.HandleTrackingPoint(ctx, trackingPoint(1000, 3, 1120, 50)))

	j := store.journeys[1000]
	require.NotNil(t, j)
	assert.Equal(t, JourneyActive, j.Status)
	assert.Equal(t, int64(1000000), j.StartTime)
	assert.Equal(t, int64(1120000), j.EndTime)
	assert.Equal(t, 3, j.PointCount)
	assert.Equal(t, 80.0, j.TotalDistance)

	// A new journey's first point closes the old one.
	require.NoError(t, r.HandleTrackingPoint(ctx, trackingPoint(2000, 1, 2000, 0)))
	assert.Equal(t, JourneyCompleted, store.journeys[1000].Status)
	assert.Equal(t, JourneyActive, store.journeys[2000].Status)
	assert.Equal(t, 1, store.journeys[2000].PointCount)
}

func TestJourneyOutOfOrderFirstPoint(t *testing.T) {
	store := newMemJourneyStore()
	r := NewJourneyReconstructor(store)
	ctx := context.Background()

	// The continuing point lands before the first: the journey row is still
	// created, with the device-side counter taken verbatim.
	require.NoError(t, r.HandleTrackingPoint(ctx, trackingPoint(1000, 5, 1240, 20)))

	j := store.journeys[1000]
	require.NotNil(t, j)
	assert.Equal(t, 5, j.PointCount)
	assert.Equal(t, int64(1000000), j.StartTime)
	assert.Equal(t, 20.0, j.TotalDistance)
}

func TestJourneyDistanceRedeliveryAccumulates(t *testing.T) {
	store := newMemJourneyStore()
	r := NewJourneyReconstructor(store)
	ctx := context.Background()

	require.NoError(t, r.HandleTrackingPoint(ctx, trackingPoint(1000, 1, 1000, 0)))
	require.NoError(t, r.HandleTrackingPoint(ctx, trackingPoint(1000, 2, 1060, 50)))

	// Redelivering the same point adds its increment again; the point count
	// stays correct because it is SET, not incremented.
	require.NoError(t, r.HandleTrackingPoint(ctx, trackingPoint(1000, 2, 1060, 50)))

	j := store.journeys[1000]
	assert.Equal(t, 2, j.PointCount)
	assert.Equal(t, 100.0, j.TotalDistance)
}

func TestJourneySkipsUnusablePoints(t *testing.T) {
	store := newMemJourneyStore()
	r := NewJourneyReconstructor(store)
	ctx := context.Background()

	// No location.
	ev := trackingPoint(1000, 1, 1000, 0)
	ev.Location = nil
	require.NoError(t, r.HandleTrackingPoint(ctx, ev))

	// No journey id.
	ev = trackingPoint(0, 1, 1000, 0)
	require.NoError(t, r.HandleTrackingPoint(ctx, ev))

	// No sequence counter.
	ev = trackingPoint(1000, 0, 1000, 0)
	require.NoError(t, r.HandleTrackingPoint(ctx, ev))

	assert.Empty(t, store.journeys)
}

func TestCloseAllForModeExit(t *testing.T) {
	store := newMemJourneyStore()
	r := NewJourneyReconstructor(store)
	ctx := context.Background()

	require.NoError(t, r.HandleTrackingPoint(ctx, trackingPoint(1000, 1, 1000, 0)))

	closed, err := r.CloseAllForModeExit(ctx, "dev:1", ModeStorage)
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)
	assert.Equal(t, JourneyCompleted, store.journeys[1000].Status)

	// Nothing left to close.
	closed, err = r.CloseAllForModeExit(ctx, "dev:1", ModeStorage)
	require.NoError(t, err)
	assert.Zero(t, closed)
}
