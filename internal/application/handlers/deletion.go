package handlers

import (
	"context"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/services"
)

// DeletionHandler handles safe-delete, restore and purge operations.
type DeletionHandler struct {
	service *services.ManifestService
}

// NewDeletionHandler creates a new DeletionHandler.
func NewDeletionHandler(service *services.ManifestService) *DeletionHandler {
	return &DeletionHandler{
		service: service,
	}
}

// HandleDelete soft-deletes the subtree rooted at the given record and
// returns the deletion key of the created manifest.
func (h *DeletionHandler) HandleDelete(ctx context.Context, rootType, rootID, reason, actor string) (string, error) {
	return h.service.Delete(ctx, rootType, rootID, reason, actor)
}

// HandleRestore re-creates a soft-deleted subtree and returns its root.
func (h *DeletionHandler) HandleRestore(ctx context.Context, deletionKey string) (entities.RecordRef, error) {
	return h.service.Restore(ctx, deletionKey)
}

// HandlePurge permanently discards a soft-deleted subtree.
func (h *DeletionHandler) HandlePurge(ctx context.Context, deletionKey string) error {
	return h.service.Purge(ctx, deletionKey)
}
