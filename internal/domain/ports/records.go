package ports

import (
	"context"

	"github.com/osidra/reclaim/internal/domain/entities"
)

// RecordReader is the read-only view of primary record storage. It is
// safe to use outside a transaction; the same methods are available
// inside one through Tx so checks can be re-run under isolation.
type RecordReader interface {
	// GetRecord fetches one record by type and identity.
	// Returns (nil, nil) when the record does not exist.
	GetRecord(ctx context.Context, entityType, identity string) (*entities.Record, error)

	// FindReferencing returns refs of all records of entityType whose
	// given field holds the identity value. Used to discover dependents
	// and to detect external restricting references.
	FindReferencing(ctx context.Context, entityType, field, identity string) ([]entities.RecordRef, error)
}

// RecordWriter mutates primary record storage. Only available inside a
// transaction.
type RecordWriter interface {
	// InsertRecord inserts a record, auto-assigning its identity.
	// Returns the assigned identity.
	InsertRecord(ctx context.Context, rec *entities.Record) (string, error)

	// InsertRecordWithIdentity inserts a record verbatim, forcing the
	// identity carried in rec.Ref. Fails if the identity is taken.
	InsertRecordWithIdentity(ctx context.Context, rec *entities.Record) error

	// SetRecordField overwrites a single attribute value. A nil value
	// clears the field (set-null edge handling).
	SetRecordField(ctx context.Context, ref entities.RecordRef, field string, value any) error

	// DeleteRecord hard-deletes a record from primary storage.
	DeleteRecord(ctx context.Context, entityType, identity string) error
}
