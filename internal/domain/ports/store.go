package ports

import "context"

// Tx is the full read/write surface available inside one storage
// transaction. Everything done through a Tx is atomic: either the whole
// operation commits or none of it is visible.
type Tx interface {
	RecordReader
	RecordWriter
	SnapshotReader
	SnapshotWriter
	ManifestReader
	ManifestWriter
}

// Store is the storage contract the engine requires from its host. One
// backend implements record storage, the snapshot store and the
// manifest store so that a single transaction can span all three.
type Store interface {
	RecordReader
	SnapshotReader
	ManifestReader

	// WithTx runs fn inside a transaction. A non-nil error from fn rolls
	// every write back; otherwise the transaction commits.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// SupportsIdentityOverride reports whether the backend can insert
	// records with a caller-chosen identity instead of auto-assigning.
	SupportsIdentityOverride() bool

	// EnsureSchema creates backend structures if they don't exist.
	EnsureSchema(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}
