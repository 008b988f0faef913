// ============================================================================
// FILE: internal/infrastructure/services/event_bus_test.go
// ============================================================================
package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/events"
)

type testLogger struct{}

func (testLogger) Debug(msg string, fields ...interface{}) {}
func (testLogger) Info(msg string, fields ...interface{})  {}
func (testLogger) Warn(msg string, fields ...interface{})  {}
func (testLogger) Error(msg string, fields ...interface{}) {}

func TestWatermillBus_PublishedRoundTrip(t *testing.T) {
	bus := NewWatermillBus(testLogger{})
	defer bus.Close()

	received := make(chan common.Event, 1)
	require.NoError(t, bus.Subscribe(events.TypePublished, func(ctx context.Context, e common.Event) error {
		received <- e
		return nil
	}))

	sent := events.Published{
		QueueItemID:    uuid.New(),
		VariantID:      uuid.New(),
		ContentID:      uuid.New(),
		Platform:       content.PlatformInstagram,
		PlatformPostID: "ig-1",
		PublishedAt:    time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, bus.Publish(context.Background(), sent))

	select {
	case e := <-received:
		got, ok := e.(events.Published)
		require.True(t, ok)
		assert.Equal(t, sent.VariantID, got.VariantID)
		assert.Equal(t, sent.PlatformPostID, got.PlatformPostID)
		assert.Equal(t, sent.PublishedAt, got.PublishedAt)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillBus_SnapshotRecordedRoundTrip(t *testing.T) {
	bus := NewWatermillBus(testLogger{})
	defer bus.Close()

	received := make(chan events.SnapshotRecorded, 1)
	require.NoError(t, bus.Subscribe(events.TypeSnapshotRecorded, func(ctx context.Context, e common.Event) error {
		received <- e.(events.SnapshotRecorded)
		return nil
	}))

	sent := events.SnapshotRecorded{
		VariantID:  uuid.New(),
		ContentID:  uuid.New(),
		SnapshotAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, bus.Publish(context.Background(), sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ContentID, got.ContentID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
