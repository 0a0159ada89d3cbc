package entities

import "time"

// ManifestState tracks where a deletion manifest is in its lifecycle.
type ManifestState string

const (
	// ManifestActive means the subtree is soft-deleted and restorable.
	ManifestActive ManifestState = "active"
	// ManifestRestored means the subtree was re-created; terminal.
	ManifestRestored ManifestState = "restored"
	// ManifestPurged means the snapshots were discarded for good; terminal.
	ManifestPurged ManifestState = "purged"
)

// Manifest links one root deletion event to its ordered snapshots. While
// a manifest is active it is the sole source of truth for "this subtree
// is currently soft-deleted".
type Manifest struct {
	DeletionKey  string `json:"deletion_key"`
	RootType     string `json:"root_type"`
	RootIdentity string `json:"root_identity"`
	// SnapshotKeys is in deletion order: children strictly before the
	// records that depend on them. Restoration walks it in reverse.
	SnapshotKeys []string      `json:"snapshot_keys"`
	Reason       string        `json:"reason"`
	Actor        string        `json:"actor"`
	CreatedAt    time.Time     `json:"created_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
	State        ManifestState `json:"state"`
}

// RootRef returns the ref of the subtree root.
func (m *Manifest) RootRef() RecordRef {
	return RecordRef{Type: m.RootType, Identity: m.RootIdentity}
}

// Expired reports whether the retention window has lapsed at now.
func (m *Manifest) Expired(now time.Time) bool {
	return m.State == ManifestActive && now.After(m.ExpiresAt)
}

// ManifestFilter narrows manifest listings for the recycle-bin view.
// Zero values mean "no filter"; Limit <= 0 means a store-chosen default.
type ManifestFilter struct {
	RootType string
	State    ManifestState
	Limit    int
	Offset   int
}
