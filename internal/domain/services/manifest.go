package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/ports"
)

// timeNow returns the current time (can be overridden in tests).
var timeNow = time.Now

// ManifestService orchestrates the full safe-delete lifecycle:
// validate, snapshot and delete as one atomic unit of work, and the
// inverse restore, plus permanent purge. It owns manifest rows and
// their retention.
type ManifestService struct {
	store     ports.Store
	scheduler *Scheduler
	validator *Validator
	restorer  *Restorer
	locker    ports.Locker
	retention time.Duration
	lockWait  time.Duration
	log       *slog.Logger
}

// NewManifestService wires the engine components together. retention is
// how long an active manifest stays restorable before the reaper may
// purge it; lockWait bounds the wait for advisory locks (zero means
// wait until the caller's context expires).
func NewManifestService(
	store ports.Store,
	scheduler *Scheduler,
	validator *Validator,
	locker ports.Locker,
	retention time.Duration,
	lockWait time.Duration,
	log *slog.Logger,
) *ManifestService {
	if log == nil {
		log = slog.Default()
	}
	return &ManifestService{
		store:     store,
		scheduler: scheduler,
		validator: validator,
		restorer:  NewRestorer(store.SupportsIdentityOverride()),
		locker:    locker,
		retention: retention,
		lockWait:  lockWait,
		log:       log,
	}
}

// Delete soft-deletes the subtree rooted at (rootType, rootIdentity):
// every transitively cascade-dependent record is snapshotted and then
// hard-deleted, children first, inside one transaction. On success the
// returned deletion key resolves to an active manifest. If external
// restricting references exist, nothing is written and the returned
// error is a *entities.DeletionBlockedError carrying them.
func (s *ManifestService) Delete(ctx context.Context, rootType, rootIdentity, reason, actor string) (string, error) {
	root := entities.RecordRef{Type: rootType, Identity: rootIdentity}

	// Read-only pre-pass: expand and validate before taking locks or
	// opening the transaction. Both are re-run under the transaction;
	// this pass exists to fail fast and to learn the lock set.
	pre, err := s.scheduler.ExpandSubtree(ctx, s.store, root)
	if err != nil {
		return "", err
	}
	if blockers, err := s.validator.FindBlockers(ctx, s.store, pre.Members); err != nil {
		return "", err
	} else if len(blockers) > 0 {
		return "", &entities.DeletionBlockedError{Root: root, Blockers: blockers}
	}

	release, err := s.lockMembers(ctx, pre.Members)
	if err != nil {
		return "", err
	}
	defer release()

	deletionKey := uuid.New().String()
	err = s.store.WithTx(ctx, func(tx ports.Tx) error {
		// Re-expand and re-validate against the transaction's view to
		// close the race against concurrent writers.
		exp, err := s.scheduler.ExpandSubtree(ctx, tx, root)
		if err != nil {
			return err
		}
		blockers, err := s.validator.FindBlockers(ctx, tx, exp.Members)
		if err != nil {
			return err
		}
		if len(blockers) > 0 {
			return &entities.DeletionBlockedError{Root: root, Blockers: blockers}
		}
		for _, ref := range exp.Members {
			held, err := tx.FindActiveManifestByMember(ctx, ref)
			if err != nil {
				return err
			}
			if held != nil {
				return &entities.ManifestOverlapError{Member: ref, DeletionKey: held.DeletionKey}
			}
		}

		// External set-null references are cleared before any member is
		// removed so no dangling reference is ever visible.
		for _, clear := range exp.FieldClears {
			if err := tx.SetRecordField(ctx, clear.Ref, clear.Field, nil); err != nil {
				return fmt.Errorf("clearing %s.%s: %w", clear.Ref, clear.Field, err)
			}
		}

		now := timeNow()
		keys := make([]string, 0, len(exp.DeletionOrder))
		for _, ref := range exp.DeletionOrder {
			snap := &entities.Snapshot{
				Key:        uuid.New().String(),
				EntityType: ref.Type,
				Identity:   ref.Identity,
				Attributes: exp.Records[ref].Clone().Attributes,
				CapturedAt: now,
			}
			if err := tx.PutSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("snapshotting %s: %w", ref, err)
			}
			if err := tx.DeleteRecord(ctx, ref.Type, ref.Identity); err != nil {
				return fmt.Errorf("deleting %s: %w", ref, err)
			}
			keys = append(keys, snap.Key)
		}

		manifest := &entities.Manifest{
			DeletionKey:  deletionKey,
			RootType:     root.Type,
			RootIdentity: root.Identity,
			SnapshotKeys: keys,
			Reason:       reason,
			Actor:        actor,
			CreatedAt:    now,
			ExpiresAt:    now.Add(s.retention),
			State:        entities.ManifestActive,
		}
		return tx.SaveManifest(ctx, manifest, exp.Members)
	})
	if err != nil {
		return "", err
	}

	s.log.Info("subtree deleted",
		"deletion_key", deletionKey,
		"root", root.String(),
		"actor", actor,
	)
	return deletionKey, nil
}

// Restore re-creates every record of an active manifest with its
// original identity, dependees first, then discards the manifest and
// its snapshots. Returns the root ref of the restored subtree.
func (s *ManifestService) Restore(ctx context.Context, deletionKey string) (entities.RecordRef, error) {
	var zero entities.RecordRef

	manifest, snaps, err := s.loadRestorable(ctx, deletionKey)
	if err != nil {
		return zero, err
	}

	members := make([]entities.RecordRef, len(snaps))
	for i, snap := range snaps {
		members[i] = snap.Ref()
	}
	release, err := s.lockMembers(ctx, members)
	if err != nil {
		return zero, err
	}
	defer release()

	err = s.store.WithTx(ctx, func(tx ports.Tx) error {
		// The manifest row is re-read inside the transaction; no cached
		// state gates correctness.
		fresh, err := tx.GetManifest(ctx, deletionKey)
		if err != nil {
			return err
		}
		if fresh == nil {
			return fmt.Errorf("%s: %w", deletionKey, entities.ErrManifestNotFound)
		}
		if fresh.State != entities.ManifestActive {
			return fmt.Errorf("%s is %s: %w", deletionKey, fresh.State, entities.ErrManifestNotRestorable)
		}

		// Reverse of deletion order: a record is re-created only after
		// everything it references exists again.
		for i := len(fresh.SnapshotKeys) - 1; i >= 0; i-- {
			snap, err := tx.GetSnapshot(ctx, fresh.SnapshotKeys[i])
			if err != nil {
				return err
			}
			if err := s.restorer.Recreate(ctx, tx, snap); err != nil {
				return err
			}
		}

		if err := tx.SetManifestState(ctx, deletionKey, entities.ManifestRestored); err != nil {
			return err
		}
		for _, key := range fresh.SnapshotKeys {
			if err := tx.DeleteSnapshot(ctx, key); err != nil {
				return err
			}
		}
		return tx.DeleteManifest(ctx, deletionKey)
	})
	if err != nil {
		return zero, err
	}

	root := manifest.RootRef()
	s.log.Info("subtree restored", "deletion_key", deletionKey, "root", root.String())
	return root, nil
}

// Purge permanently discards an active manifest and its snapshots
// without re-creating any record. Irreversible. A second purge of the
// same key fails with entities.ErrManifestNotFound.
func (s *ManifestService) Purge(ctx context.Context, deletionKey string) error {
	manifest, err := s.store.GetManifest(ctx, deletionKey)
	if err != nil {
		return err
	}
	if manifest == nil {
		return fmt.Errorf("%s: %w", deletionKey, entities.ErrManifestNotFound)
	}

	release, err := s.acquire(ctx, manifest.RootRef().String())
	if err != nil {
		return err
	}
	defer release()

	err = s.store.WithTx(ctx, func(tx ports.Tx) error {
		fresh, err := tx.GetManifest(ctx, deletionKey)
		if err != nil {
			return err
		}
		if fresh == nil {
			return fmt.Errorf("%s: %w", deletionKey, entities.ErrManifestNotFound)
		}
		if fresh.State != entities.ManifestActive {
			return fmt.Errorf("%s is %s: %w", deletionKey, fresh.State, entities.ErrManifestNotRestorable)
		}

		if err := tx.SetManifestState(ctx, deletionKey, entities.ManifestPurged); err != nil {
			return err
		}
		for _, key := range fresh.SnapshotKeys {
			if err := tx.DeleteSnapshot(ctx, key); err != nil {
				return err
			}
		}
		return tx.DeleteManifest(ctx, deletionKey)
	})
	if err != nil {
		return err
	}

	s.log.Info("manifest purged", "deletion_key", deletionKey)
	return nil
}

// Get returns one manifest by deletion key.
func (s *ManifestService) Get(ctx context.Context, deletionKey string) (*entities.Manifest, error) {
	manifest, err := s.store.GetManifest(ctx, deletionKey)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, fmt.Errorf("%s: %w", deletionKey, entities.ErrManifestNotFound)
	}
	return manifest, nil
}

// List returns manifests for the recycle-bin view.
func (s *ManifestService) List(ctx context.Context, filter entities.ManifestFilter) ([]entities.Manifest, error) {
	return s.store.ListManifests(ctx, filter)
}

// loadRestorable fetches an active manifest and all of its snapshots
// outside the transaction, for lock-set discovery. State and snapshots
// are re-read inside the transaction before any write.
func (s *ManifestService) loadRestorable(ctx context.Context, deletionKey string) (*entities.Manifest, []*entities.Snapshot, error) {
	manifest, err := s.store.GetManifest(ctx, deletionKey)
	if err != nil {
		return nil, nil, err
	}
	if manifest == nil {
		return nil, nil, fmt.Errorf("%s: %w", deletionKey, entities.ErrManifestNotFound)
	}
	if manifest.State != entities.ManifestActive {
		return nil, nil, fmt.Errorf("%s is %s: %w", deletionKey, manifest.State, entities.ErrManifestNotRestorable)
	}

	snaps := make([]*entities.Snapshot, 0, len(manifest.SnapshotKeys))
	for _, key := range manifest.SnapshotKeys {
		snap, err := s.store.GetSnapshot(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		snaps = append(snaps, snap)
	}
	return manifest, snaps, nil
}

// lockMembers acquires the advisory locks for every subtree member.
// Keys are sorted by the locker, so overlapping subtrees always lock in
// the same global order.
func (s *ManifestService) lockMembers(ctx context.Context, members []entities.RecordRef) (func(), error) {
	keys := make([]string, len(members))
	for i, ref := range members {
		keys[i] = ref.String()
	}
	return s.acquire(ctx, keys...)
}

// acquire takes locks under the configured wait bound.
func (s *ManifestService) acquire(ctx context.Context, keys ...string) (func(), error) {
	if s.lockWait > 0 {
		lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
		defer cancel()
		return s.locker.Acquire(lockCtx, keys...)
	}
	return s.locker.Acquire(ctx, keys...)
}
