package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/mocks"
)

// testTypes is a small HR-flavored graph exercising every cascade
// behavior: employee cascades from department and from its own manager
// (self-reference), grant restricts employee, notice set-nulls employee.
func testTypes() []entities.EntityType {
	return []entities.EntityType{
		{
			Name:          "department",
			IdentityField: "id",
			Attributes: []entities.AttributeDef{
				{Name: "id", Type: "string"},
				{Name: "name", Type: "string"},
			},
		},
		{
			Name:          "employee",
			IdentityField: "id",
			Attributes: []entities.AttributeDef{
				{Name: "id", Type: "string"},
				{Name: "name", Type: "string"},
				{Name: "department_id", Type: "string"},
				{Name: "manager_id", Type: "string"},
			},
			Relations: []entities.RelationEdge{
				{SourceType: "employee", TargetType: "department", Field: "department_id", Cardinality: entities.CardinalityMany, OnDelete: entities.CascadeDelete},
				{SourceType: "employee", TargetType: "employee", Field: "manager_id", Cardinality: entities.CardinalityMany, OnDelete: entities.CascadeDelete},
			},
		},
		{
			Name:          "grant",
			IdentityField: "id",
			Attributes: []entities.AttributeDef{
				{Name: "id", Type: "string"},
				{Name: "employee_id", Type: "string"},
				{Name: "amount", Type: "number"},
			},
			Relations: []entities.RelationEdge{
				{SourceType: "grant", TargetType: "employee", Field: "employee_id", Cardinality: entities.CardinalityMany, OnDelete: entities.CascadeRestrict},
			},
		},
		{
			Name:          "notice",
			IdentityField: "id",
			Attributes: []entities.AttributeDef{
				{Name: "id", Type: "string"},
				{Name: "text", Type: "string"},
				{Name: "employee_id", Type: "string"},
			},
			Relations: []entities.RelationEdge{
				{SourceType: "notice", TargetType: "employee", Field: "employee_id", Cardinality: entities.CardinalityMany, OnDelete: entities.CascadeSetNull},
			},
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(testTypes())
	require.NoError(t, err)
	return registry
}

func ref(entityType, identity string) entities.RecordRef {
	return entities.RecordRef{Type: entityType, Identity: identity}
}

func rec(entityType, identity string, attrs map[string]any) *entities.Record {
	return &entities.Record{
		Ref:        ref(entityType, identity),
		Attributes: attrs,
	}
}

// seedThreeLevels stores a department with two direct employees and one
// grandchild report: d1 <- e1 <- e3, d1 <- e2.
func seedThreeLevels(store *mocks.Store) {
	store.Seed(
		rec("department", "d1", map[string]any{"id": "d1", "name": "Research"}),
		rec("employee", "e1", map[string]any{"id": "e1", "name": "Ada", "department_id": "d1"}),
		rec("employee", "e2", map[string]any{"id": "e2", "name": "Grace", "department_id": "d1"}),
		rec("employee", "e3", map[string]any{"id": "e3", "name": "Edsger", "department_id": "d1", "manager_id": "e1"}),
	)
}

// orderIndex maps each ref to its position in the given order.
func orderIndex(order []entities.RecordRef) map[entities.RecordRef]int {
	idx := make(map[entities.RecordRef]int, len(order))
	for i, r := range order {
		idx[r] = i
	}
	return idx
}
