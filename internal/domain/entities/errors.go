package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine. Callers match with errors.Is.
var (
	// ErrRecordNotFound is returned when a record identity does not exist
	// in primary storage.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUnknownType is returned for an entity type the registry has
	// never seen.
	ErrUnknownType = errors.New("unknown entity type")

	// ErrSnapshotNotFound is returned when a snapshot key is absent or
	// already purged.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrManifestNotFound is returned when a deletion key does not
	// resolve to any manifest row.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrManifestNotRestorable is returned when a manifest exists but is
	// no longer in the active state.
	ErrManifestNotRestorable = errors.New("manifest is not restorable")

	// ErrLockTimeout is returned when an advisory lock could not be
	// acquired within the caller's deadline. Safe to retry with backoff.
	ErrLockTimeout = errors.New("advisory lock timeout")
)

// DeletionBlockedError is returned when external restricting references
// were found; no writes have happened. The caller fixes or reassigns the
// referencing records and retries.
type DeletionBlockedError struct {
	Root     RecordRef
	Blockers []Blocker
}

func (e *DeletionBlockedError) Error() string {
	return fmt.Sprintf("deletion of %s blocked by %d external reference(s)", e.Root, len(e.Blockers))
}

// UnresolvableCycleError is returned when two distinct instances cascade
// into each other. This is a configuration or data-integrity fault, not
// a normal case; it is never retried.
type UnresolvableCycleError struct {
	A RecordRef
	B RecordRef
}

func (e *UnresolvableCycleError) Error() string {
	return fmt.Sprintf("unresolvable cascade cycle between %s and %s", e.A, e.B)
}

// IdentityCollisionError is returned at restore time when the original
// identity has since been reused by an unrelated record. The engine
// surfaces it rather than overwriting; resolution is a caller policy.
type IdentityCollisionError struct {
	Ref RecordRef
}

func (e *IdentityCollisionError) Error() string {
	return fmt.Sprintf("identity already in use: %s", e.Ref)
}

// ManifestOverlapError is returned when a subtree member is already held
// by another active manifest.
type ManifestOverlapError struct {
	Member      RecordRef
	DeletionKey string
}

func (e *ManifestOverlapError) Error() string {
	return fmt.Sprintf("%s is already held by active manifest %s", e.Member, e.DeletionKey)
}
