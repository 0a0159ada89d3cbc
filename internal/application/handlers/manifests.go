package handlers

import (
	"context"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/services"
)

// ManifestHandler handles the recycle-bin view over manifests.
type ManifestHandler struct {
	service *services.ManifestService
}

// NewManifestHandler creates a new ManifestHandler.
func NewManifestHandler(service *services.ManifestService) *ManifestHandler {
	return &ManifestHandler{
		service: service,
	}
}

// HandleList returns manifests matching the filter.
func (h *ManifestHandler) HandleList(ctx context.Context, filter entities.ManifestFilter) ([]entities.Manifest, error) {
	return h.service.List(ctx, filter)
}

// HandleGet returns one manifest by deletion key.
func (h *ManifestHandler) HandleGet(ctx context.Context, deletionKey string) (*entities.Manifest, error) {
	return h.service.Get(ctx, deletionKey)
}
