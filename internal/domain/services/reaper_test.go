package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osidra/reclaim/internal/domain/mocks"
)

func newReaperFixture(t *testing.T, store *mocks.Store, retention time.Duration) (*ManifestService, *Reaper) {
	t.Helper()
	registry := newTestRegistry(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewManifestService(store, NewScheduler(registry), NewValidator(registry), &mocks.Locker{}, retention, 0, log)
	return service, NewReaper(service, time.Minute, log)
}

func TestReaper_SweepPurgesExpiredManifests(t *testing.T) {
	store := mocks.NewStore()
	seedThreeLevels(store)
	// Negative retention makes every manifest expire the moment it is
	// created.
	service, reaper := newReaperFixture(t, store, -time.Second)

	key, err := service.Delete(context.Background(), "department", "d1", "", "")
	require.NoError(t, err)
	require.Len(t, store.Manifests, 1)

	reaper.sweep(context.Background())

	assert.Empty(t, store.Manifests, "expired manifest should be purged")
	assert.Empty(t, store.Snapshots)
	_, err = service.Get(context.Background(), key)
	assert.Error(t, err)
}

func TestReaper_SweepLeavesUnexpiredManifests(t *testing.T) {
	store := mocks.NewStore()
	seedThreeLevels(store)
	service, reaper := newReaperFixture(t, store, time.Hour)

	key, err := service.Delete(context.Background(), "department", "d1", "", "")
	require.NoError(t, err)

	reaper.sweep(context.Background())

	manifest, err := service.Get(context.Background(), key)
	require.NoError(t, err)
	assert.NotNil(t, manifest)
	assert.Len(t, store.Snapshots, 4)
}

func TestReaper_SweepToleratesConcurrentPurge(t *testing.T) {
	store := mocks.NewStore()
	store.Seed(rec("employee", "e1", map[string]any{"id": "e1"}))
	service, reaper := newReaperFixture(t, store, -time.Second)

	key, err := service.Delete(context.Background(), "employee", "e1", "", "")
	require.NoError(t, err)

	// A foreground purge wins the race; the sweep must not error out.
	require.NoError(t, service.Purge(context.Background(), key))
	reaper.sweep(context.Background())

	assert.Empty(t, store.Manifests)
}

func TestReaper_RunStopsOnCancel(t *testing.T) {
	store := mocks.NewStore()
	service, _ := newReaperFixture(t, store, time.Hour)
	reaper := NewReaper(service, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reaper.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}
