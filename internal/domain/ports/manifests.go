package ports

import (
	"context"
	"time"

	"github.com/osidra/reclaim/internal/domain/entities"
)

// ManifestReader reads deletion manifests and their membership.
type ManifestReader interface {
	// GetManifest fetches a manifest by deletion key.
	// Returns (nil, nil) when no such manifest exists.
	GetManifest(ctx context.Context, deletionKey string) (*entities.Manifest, error)

	// ListManifests returns manifests matching the filter, newest first.
	ListManifests(ctx context.Context, filter entities.ManifestFilter) ([]entities.Manifest, error)

	// FindExpiredManifests returns active manifests whose retention
	// window lapsed before now. Consumed by the reaper.
	FindExpiredManifests(ctx context.Context, now time.Time) ([]entities.Manifest, error)

	// FindActiveManifestByMember returns the active manifest holding the
	// given record as a subtree member, or (nil, nil) if none does.
	// Enforces the one-active-manifest-per-instance invariant.
	FindActiveManifestByMember(ctx context.Context, ref entities.RecordRef) (*entities.Manifest, error)
}

// ManifestWriter mutates manifest rows. Only available inside a
// transaction.
type ManifestWriter interface {
	// SaveManifest persists a new manifest together with its member
	// refs, which back the overlap check.
	SaveManifest(ctx context.Context, m *entities.Manifest, members []entities.RecordRef) error

	// SetManifestState transitions a manifest's lifecycle state.
	SetManifestState(ctx context.Context, deletionKey string, state entities.ManifestState) error

	// DeleteManifest removes a manifest row and its membership.
	DeleteManifest(ctx context.Context, deletionKey string) error
}
