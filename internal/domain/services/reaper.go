package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/osidra/reclaim/internal/domain/entities"
)

// Reaper periodically purges active manifests whose retention window
// has lapsed. It runs as a single background worker; each manifest is
// purged under its own transaction and advisory lock, single-flight per
// deletion key so an overlapping tick can never double-purge.
type Reaper struct {
	service  *ManifestService
	interval time.Duration
	log      *slog.Logger
	group    singleflight.Group
}

// NewReaper creates a Reaper that scans every interval.
func NewReaper(service *ManifestService, interval time.Duration, log *slog.Logger) *Reaper {
	if log == nil {
		log = slog.Default()
	}
	return &Reaper{service: service, interval: interval, log: log}
}

// Run scans until the context is cancelled. An initial sweep happens
// immediately, then one per tick. Always returns ctx.Err().
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep purges every expired manifest found at this instant. Failures
// are logged and skipped; the next tick retries them.
func (r *Reaper) sweep(ctx context.Context) {
	expired, err := r.service.store.FindExpiredManifests(ctx, timeNow())
	if err != nil {
		r.log.Error("reaper scan failed", "err", err)
		return
	}

	for _, manifest := range expired {
		key := manifest.DeletionKey
		_, err, _ := r.group.Do(key, func() (any, error) {
			return nil, r.service.Purge(ctx, key)
		})
		switch {
		case err == nil:
			r.log.Info("expired manifest reaped", "deletion_key", key, "root", manifest.RootRef().String())
		case errors.Is(err, entities.ErrManifestNotFound),
			errors.Is(err, entities.ErrManifestNotRestorable):
			// Lost the race to a foreground purge or restore.
		default:
			r.log.Error("reaping manifest failed", "deletion_key", key, "err", err)
		}
	}
}
