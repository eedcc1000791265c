package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAlertStore struct {
	alerts []*Alert
	err    error
}

func (s *fakeAlertStore) InsertAlert(_ context.Context, alert *Alert) error {
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

type fakeAlertPublisher struct {
	published []*Alert
	err       error
}

func (p *fakeAlertPublisher) PublishAlert(_ context.Context, alert *Alert) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, alert)
	return nil
}

func alertEvent() *NormalizedEvent {
	return &NormalizedEvent{
		DeviceID:  "dev:1",
		Fleet:     "fleet:production",
		File:      FileAlert,
		Timestamp: 1700000000,
		Body: RawBody{
			AlertType: "temperature_high",
			Value:     f64(41.2),
			Threshold: f64(35),
			Message:   "temperature above threshold",
		},
		Location: &Location{Latitude: 37.7, Longitude: -122.4, Source: SourceGPS},
	}
}

func TestHandleAlertStoresAndPublishes(t *testing.T) {
	store := &fakeAlertStore{}
	pub := &fakeAlertPublisher{}
	a := NewAlerter(store, pub)

	require.NoError(t, a.HandleAlert(context.Background(), alertEvent()))
	require.Len(t, store.alerts, 1)
	require.Len(t, pub.published, 1)

	alert := store.alerts[0]
	assert.True(t, strings.HasPrefix(alert.ID, "dev:1-1700000000-"))
	assert.Equal(t, "temperature_high", alert.AlertType)
	assert.Equal(t, "fleet:production", alert.Fleet)
	assert.Equal(t, 41.2, *alert.Value)
	assert.Equal(t, "false", alert.Acknowledged)
	require.NotNil(t, alert.Lat)
	assert.Equal(t, 37.7, *alert.Lat)
	assert.Same(t, alert, pub.published[0])
}

func TestHandleAlertIDsAreUnique(t *testing.T) {
	store := &fakeAlertStore{}
	a := NewAlerter(store, nil)

	require.NoError(t, a.HandleAlert(context.Background(), alertEvent()))
	require.NoError(t, a.HandleAlert(context.Background(), alertEvent()))
	require.Len(t, store.alerts, 2)
	assert.NotEqual(t, store.alerts[0].ID, store.alerts[1].ID)
}

func TestHandleAlertPublishFailureIsSwallowed(t *testing.T) {
	store := &fakeAlertStore{}
	pub := &fakeAlertPublisher{err: errors.New("broker down")}
	a := NewAlerter(store, pub)

	require.NoError(t, a.HandleAlert(context.Background(), alertEvent()))
	assert.Len(t, store.alerts, 1)
}

func TestHandleAlertStoreFailureFails(t *testing.T) {
	store := &fakeAlertStore{err: errors.New("connection refused")}
	pub := &fakeAlertPublisher{}
	a := NewAlerter(store, pub)

	err := a.HandleAlert(context.Background(), alertEvent())
	require.Error(t, err)
	assert.Empty(t, pub.published)
}

func TestHandleAlertWithoutPublisher(t *testing.T) {
	store := &fakeAlertStore{}
	a := NewAlerter(store, nil)
	require.NoError(t, a.HandleAlert(context.Background(), alertEvent()))
	assert.Len(t, store.alerts, 1)
}
