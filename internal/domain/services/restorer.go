package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/ports"
)

// ErrIdentityOverrideUnsupported is returned when the storage backend
// cannot force-insert records under a caller-chosen identity.
var ErrIdentityOverrideUnsupported = errors.New("storage does not support identity override")

// Restorer re-creates records from snapshots while preserving their
// original identities. Collision policy is reject-and-surface: if the
// identity was reused by an unrelated insert since deletion, the
// restore fails and the caller decides how to resolve it.
type Restorer struct {
	supportsOverride bool
}

// NewRestorer creates a Restorer for a backend with the given identity
// override capability.
func NewRestorer(supportsOverride bool) *Restorer {
	return &Restorer{supportsOverride: supportsOverride}
}

// Recreate inserts the snapshotted record verbatim, original identity
// included. Must run inside the restore transaction.
func (r *Restorer) Recreate(ctx context.Context, tx ports.Tx, snap *entities.Snapshot) error {
	if !r.supportsOverride {
		return fmt.Errorf("recreating %s: %w", snap.Ref(), ErrIdentityOverrideUnsupported)
	}

	existing, err := tx.GetRecord(ctx, snap.EntityType, snap.Identity)
	if err != nil {
		return fmt.Errorf("checking identity %s: %w", snap.Ref(), err)
	}
	if existing != nil {
		return &entities.IdentityCollisionError{Ref: snap.Ref()}
	}

	if err := tx.InsertRecordWithIdentity(ctx, snap.ToRecord()); err != nil {
		return fmt.Errorf("recreating %s: %w", snap.Ref(), err)
	}
	return nil
}
