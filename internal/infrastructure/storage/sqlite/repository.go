// Package sqlite provides a SQLite implementation of the engine's
// storage contract: primary record storage, the snapshot store and the
// manifest store on one database, so a single transaction spans all
// three.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/osidra/reclaim/internal/domain/ports"
	"github.com/osidra/reclaim/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Repository implements ports.Store using SQLite.
type Repository struct {
	queries
	db   *sql.DB
	path string
}

var (
	_ ports.Store = (*Repository)(nil)
	_ ports.Tx    = (*Tx)(nil)
)

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		queries: queries{db: db},
		db:      db,
		path:    cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// SupportsIdentityOverride reports that this backend can force-insert
// records under their original identity. The per-type sequence is
// bumped past any overridden identity so later auto-assignments cannot
// collide.
func (r *Repository) SupportsIdentityOverride() bool {
	return true
}

// WithTx runs fn inside one transaction. Any error from fn rolls every
// write back.
func (r *Repository) WithTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&Tx{queries{db: sqlTx}}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back after %w: %v", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Tx is the in-transaction view of the repository.
type Tx struct {
	queries
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Generic record storage: one row per instance, attributes as JSON
	CREATE TABLE IF NOT EXISTS records (
		entity_type TEXT NOT NULL,
		identity TEXT NOT NULL,
		attributes TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (entity_type, identity)
	);

	-- Auto-assignment sequences, one per entity type
	CREATE TABLE IF NOT EXISTS identity_seq (
		entity_type TEXT PRIMARY KEY,
		next_id INTEGER NOT NULL
	);

	-- Snapshots (append-only; no update statement exists for this table)
	CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		identity TEXT NOT NULL,
		attributes TEXT NOT NULL,
		captured_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_record ON snapshots(entity_type, identity);

	-- Deletion manifests
	CREATE TABLE IF NOT EXISTS manifests (
		deletion_key TEXT PRIMARY KEY,
		root_type TEXT NOT NULL,
		root_identity TEXT NOT NULL,
		snapshot_keys TEXT NOT NULL,
		reason TEXT,
		actor TEXT,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		state TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_manifests_state ON manifests(state, expires_at);
	CREATE INDEX IF NOT EXISTS idx_manifests_root ON manifests(root_type, state);

	-- Subtree membership per manifest, backing the overlap check
	CREATE TABLE IF NOT EXISTS manifest_members (
		deletion_key TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		identity TEXT NOT NULL,
		PRIMARY KEY (deletion_key, entity_type, identity)
	);
	CREATE INDEX IF NOT EXISTS idx_manifest_members_record ON manifest_members(entity_type, identity);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
