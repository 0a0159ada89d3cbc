package ports

import (
	"context"

	"github.com/osidra/reclaim/internal/domain/entities"
)

// SnapshotReader reads immutable record snapshots.
type SnapshotReader interface {
	// GetSnapshot fetches a snapshot by key. Returns
	// entities.ErrSnapshotNotFound if absent or already purged.
	GetSnapshot(ctx context.Context, key string) (*entities.Snapshot, error)
}

// SnapshotWriter appends and discards snapshots. The store is
// append-only: there is no update operation, a snapshot is written once
// at capture time and deleted only after its manifest leaves the active
// state.
type SnapshotWriter interface {
	// PutSnapshot stores a new snapshot under its key.
	PutSnapshot(ctx context.Context, snap *entities.Snapshot) error

	// DeleteSnapshot removes a snapshot. Idempotent: deleting an absent
	// key is not an error.
	DeleteSnapshot(ctx context.Context, key string) error
}
