package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/mocks"
)

func TestFindBlockers_ExternalRestrictReference(t *testing.T) {
	store := mocks.NewStore()
	store.Seed(
		rec("employee", "e1", map[string]any{"id": "e1"}),
		rec("grant", "g1", map[string]any{"id": "g1", "employee_id": "e1", "amount": 1200}),
	)
	validator := NewValidator(newTestRegistry(t))

	blockers, err := validator.FindBlockers(context.Background(), store, []entities.RecordRef{ref("employee", "e1")})
	require.NoError(t, err)

	require.Len(t, blockers, 1)
	b := blockers[0]
	assert.Equal(t, ref("grant", "g1"), b.Referencing())
	assert.Equal(t, ref("employee", "e1"), b.Referenced())
	assert.Equal(t, entities.CascadeRestrict, b.Edge.OnDelete)
	assert.Equal(t, "employee_id", b.Edge.Field)
}

func TestFindBlockers_SubtreeMemberDoesNotBlock(t *testing.T) {
	store := mocks.NewStore()
	store.Seed(
		rec("employee", "e1", map[string]any{"id": "e1"}),
		rec("grant", "g1", map[string]any{"id": "g1", "employee_id": "e1"}),
	)
	validator := NewValidator(newTestRegistry(t))

	// The grant itself is part of the candidate subtree.
	blockers, err := validator.FindBlockers(context.Background(), store, []entities.RecordRef{
		ref("employee", "e1"),
		ref("grant", "g1"),
	})
	require.NoError(t, err)
	assert.Empty(t, blockers)
}

func TestFindBlockers_SetNullNeverBlocks(t *testing.T) {
	store := mocks.NewStore()
	store.Seed(
		rec("employee", "e1", map[string]any{"id": "e1"}),
		rec("notice", "n1", map[string]any{"id": "n1", "employee_id": "e1"}),
	)
	validator := NewValidator(newTestRegistry(t))

	blockers, err := validator.FindBlockers(context.Background(), store, []entities.RecordRef{ref("employee", "e1")})
	require.NoError(t, err)
	assert.Empty(t, blockers)
}

func TestFindBlockers_MultipleSorted(t *testing.T) {
	store := mocks.NewStore()
	store.Seed(
		rec("employee", "e1", map[string]any{"id": "e1"}),
		rec("grant", "g2", map[string]any{"id": "g2", "employee_id": "e1"}),
		rec("grant", "g1", map[string]any{"id": "g1", "employee_id": "e1"}),
	)
	validator := NewValidator(newTestRegistry(t))

	blockers, err := validator.FindBlockers(context.Background(), store, []entities.RecordRef{ref("employee", "e1")})
	require.NoError(t, err)

	require.Len(t, blockers, 2)
	assert.Equal(t, "g1", blockers[0].ReferencingIdentity)
	assert.Equal(t, "g2", blockers[1].ReferencingIdentity)
}

func TestFindBlockers_ReadOnly(t *testing.T) {
	store := mocks.NewStore()
	store.Seed(
		rec("employee", "e1", map[string]any{"id": "e1"}),
		rec("grant", "g1", map[string]any{"id": "g1", "employee_id": "e1"}),
	)
	validator := NewValidator(newTestRegistry(t))

	_, err := validator.FindBlockers(context.Background(), store, []entities.RecordRef{ref("employee", "e1")})
	require.NoError(t, err)

	assert.Len(t, store.Records, 2)
	assert.Empty(t, store.Snapshots)
	assert.Empty(t, store.Manifests)
}
