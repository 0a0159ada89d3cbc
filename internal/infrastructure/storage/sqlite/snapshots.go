package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/osidra/reclaim/internal/domain/entities"
)

// PutSnapshot stores a new snapshot. Snapshots are write-once: callers
// never update them, only delete them after the manifest settles.
func (q *queries) PutSnapshot(ctx context.Context, snap *entities.Snapshot) error {
	attrs, err := json.Marshal(snap.Attributes)
	if err != nil {
		return fmt.Errorf("marshaling snapshot attributes: %w", err)
	}

	query := `
		INSERT INTO snapshots (key, entity_type, identity, attributes, captured_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = q.db.ExecContext(ctx, query,
		snap.Key,
		snap.EntityType,
		snap.Identity,
		string(attrs),
		snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// GetSnapshot fetches a snapshot by key.
func (q *queries) GetSnapshot(ctx context.Context, key string) (*entities.Snapshot, error) {
	query := `
		SELECT key, entity_type, identity, attributes, captured_at
		FROM snapshots
		WHERE key = ?
	`
	row := q.db.QueryRowContext(ctx, query, key)

	var snap entities.Snapshot
	var attrsJSON string
	err := row.Scan(
		&snap.Key,
		&snap.EntityType,
		&snap.Identity,
		&attrsJSON,
		&snap.CapturedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", key, entities.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(attrsJSON), &snap.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot attributes: %w", err)
	}
	return &snap, nil
}

// DeleteSnapshot removes a snapshot. Idempotent.
func (q *queries) DeleteSnapshot(ctx context.Context, key string) error {
	query := `DELETE FROM snapshots WHERE key = ?`
	if _, err := q.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}
