package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/osidra/reclaim/internal/domain/entities"
)

const defaultManifestLimit = 50

// SaveManifest persists a new manifest and its member refs.
func (q *queries) SaveManifest(ctx context.Context, m *entities.Manifest, members []entities.RecordRef) error {
	keys, err := json.Marshal(m.SnapshotKeys)
	if err != nil {
		return fmt.Errorf("marshaling snapshot keys: %w", err)
	}

	query := `
		INSERT INTO manifests (deletion_key, root_type, root_identity, snapshot_keys, reason, actor, created_at, expires_at, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.db.ExecContext(ctx, query,
		m.DeletionKey,
		m.RootType,
		m.RootIdentity,
		string(keys),
		m.Reason,
		m.Actor,
		m.CreatedAt,
		m.ExpiresAt,
		string(m.State),
	)
	if err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}

	memberQuery := `INSERT INTO manifest_members (deletion_key, entity_type, identity) VALUES (?, ?, ?)`
	for _, ref := range members {
		if _, err := q.db.ExecContext(ctx, memberQuery, m.DeletionKey, ref.Type, ref.Identity); err != nil {
			return fmt.Errorf("saving manifest member %s: %w", ref, err)
		}
	}
	return nil
}

// GetManifest fetches a manifest by deletion key.
func (q *queries) GetManifest(ctx context.Context, deletionKey string) (*entities.Manifest, error) {
	query := `
		SELECT deletion_key, root_type, root_identity, snapshot_keys, reason, actor, created_at, expires_at, state
		FROM manifests
		WHERE deletion_key = ?
	`
	row := q.db.QueryRowContext(ctx, query, deletionKey)

	m, err := scanManifestRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListManifests returns manifests matching the filter, newest first.
func (q *queries) ListManifests(ctx context.Context, filter entities.ManifestFilter) ([]entities.Manifest, error) {
	var conditions []string
	var args []any
	if filter.RootType != "" {
		conditions = append(conditions, "root_type = ?")
		args = append(args, filter.RootType)
	}
	if filter.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, string(filter.State))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultManifestLimit
	}
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT deletion_key, root_type, root_identity, snapshot_keys, reason, actor, created_at, expires_at, state
		FROM manifests
		%s
		ORDER BY created_at DESC, deletion_key
		LIMIT ? OFFSET ?
	`, where)

	return q.queryManifests(ctx, query, args...)
}

// FindExpiredManifests returns active manifests whose retention window
// lapsed before now.
func (q *queries) FindExpiredManifests(ctx context.Context, now time.Time) ([]entities.Manifest, error) {
	query := `
		SELECT deletion_key, root_type, root_identity, snapshot_keys, reason, actor, created_at, expires_at, state
		FROM manifests
		WHERE state = ? AND expires_at < ?
		ORDER BY expires_at ASC
	`
	return q.queryManifests(ctx, query, string(entities.ManifestActive), now)
}

// FindActiveManifestByMember returns the active manifest holding the
// given record as a member, if any.
func (q *queries) FindActiveManifestByMember(ctx context.Context, ref entities.RecordRef) (*entities.Manifest, error) {
	query := `
		SELECT m.deletion_key, m.root_type, m.root_identity, m.snapshot_keys, m.reason, m.actor, m.created_at, m.expires_at, m.state
		FROM manifests m
		JOIN manifest_members mm ON mm.deletion_key = m.deletion_key
		WHERE mm.entity_type = ? AND mm.identity = ? AND m.state = ?
		LIMIT 1
	`
	row := q.db.QueryRowContext(ctx, query, ref.Type, ref.Identity, string(entities.ManifestActive))

	m, err := scanManifestRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SetManifestState transitions a manifest's state.
func (q *queries) SetManifestState(ctx context.Context, deletionKey string, state entities.ManifestState) error {
	query := `UPDATE manifests SET state = ? WHERE deletion_key = ?`
	result, err := q.db.ExecContext(ctx, query, string(state), deletionKey)
	if err != nil {
		return fmt.Errorf("updating manifest state: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%s: %w", deletionKey, entities.ErrManifestNotFound)
	}
	return nil
}

// DeleteManifest removes a manifest row and its membership.
func (q *queries) DeleteManifest(ctx context.Context, deletionKey string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM manifest_members WHERE deletion_key = ?`, deletionKey); err != nil {
		return fmt.Errorf("deleting manifest members: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM manifests WHERE deletion_key = ?`, deletionKey); err != nil {
		return fmt.Errorf("deleting manifest: %w", err)
	}
	return nil
}

// queryManifests is a helper to execute manifest queries.
func (q *queries) queryManifests(ctx context.Context, query string, args ...any) ([]entities.Manifest, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying manifests: %w", err)
	}
	defer rows.Close()

	manifests := make([]entities.Manifest, 0, 16)
	for rows.Next() {
		m, err := scanManifestRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, *m)
	}
	return manifests, rows.Err()
}

// scanManifestRow scans one manifest row through the given scan
// function, shared between single-row and multi-row queries.
func scanManifestRow(scan func(dest ...any) error) (*entities.Manifest, error) {
	var m entities.Manifest
	var keysJSON, state string
	var reason, actor sql.NullString

	err := scan(
		&m.DeletionKey,
		&m.RootType,
		&m.RootIdentity,
		&keysJSON,
		&reason,
		&actor,
		&m.CreatedAt,
		&m.ExpiresAt,
		&state,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning manifest: %w", err)
	}

	m.Reason = reason.String
	m.Actor = actor.String
	m.State = entities.ManifestState(state)

	if err := json.Unmarshal([]byte(keysJSON), &m.SnapshotKeys); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot keys: %w", err)
	}
	return &m, nil
}
