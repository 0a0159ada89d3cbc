package services

import (
	"fmt"
	"sort"

	"github.com/osidra/reclaim/internal/domain/entities"
)

// Registry holds the static entity-type graph: every known type and the
// relation edges between them. It is built once at startup from
// configuration and is read-only afterwards, so it is safe for
// concurrent use without locking.
type Registry struct {
	types map[string]*entities.EntityType
	// incoming indexes edges by their target type, the lookup the
	// scheduler and validator both need.
	incoming map[string][]entities.RelationEdge
}

// NewRegistry validates and indexes the given entity types. Edges are
// declared on their source type (the side holding the referencing
// field). Registration fails on duplicate type names, edges to unknown
// types, edges whose field is not an attribute of the source type,
// unknown cascade behaviors, and restricting edges whose target type
// has no identity field.
func NewRegistry(types []entities.EntityType) (*Registry, error) {
	r := &Registry{
		types:    make(map[string]*entities.EntityType, len(types)),
		incoming: make(map[string][]entities.RelationEdge),
	}

	for i := range types {
		t := types[i]
		if t.Name == "" {
			return nil, fmt.Errorf("entity type at index %d has no name", i)
		}
		if _, dup := r.types[t.Name]; dup {
			return nil, fmt.Errorf("duplicate entity type: %s", t.Name)
		}
		r.types[t.Name] = &t
	}

	for _, t := range r.types {
		attrs := make(map[string]bool, len(t.Attributes))
		for _, a := range t.Attributes {
			attrs[a.Name] = true
		}
		for _, edge := range t.Relations {
			if edge.SourceType == "" {
				edge.SourceType = t.Name
			}
			if edge.SourceType != t.Name {
				return nil, fmt.Errorf("type %s declares edge with source %s", t.Name, edge.SourceType)
			}
			target, ok := r.types[edge.TargetType]
			if !ok {
				return nil, fmt.Errorf("type %s: edge %q targets unknown type %s", t.Name, edge.Field, edge.TargetType)
			}
			if edge.Field == "" {
				return nil, fmt.Errorf("type %s: edge to %s has no field", t.Name, edge.TargetType)
			}
			if !attrs[edge.Field] {
				return nil, fmt.Errorf("type %s: edge field %q is not an attribute", t.Name, edge.Field)
			}
			if !edge.OnDelete.Valid() {
				return nil, fmt.Errorf("type %s: edge %q has unknown on_delete %q", t.Name, edge.Field, edge.OnDelete)
			}
			if edge.OnDelete.Blocking() && target.IdentityField == "" {
				return nil, fmt.Errorf("type %s: restricting edge %q targets %s, which has no identity field", t.Name, edge.Field, edge.TargetType)
			}
			r.incoming[edge.TargetType] = append(r.incoming[edge.TargetType], edge)
		}
	}

	return r, nil
}

// Type returns the entity type by name.
func (r *Registry) Type(name string) (*entities.EntityType, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnknownType, name)
	}
	return t, nil
}

// Relations returns the outgoing edges declared by the given type.
func (r *Registry) Relations(name string) []entities.RelationEdge {
	t, ok := r.types[name]
	if !ok {
		return nil
	}
	return t.Relations
}

// ReferencingEdges returns every edge whose target is the given type,
// regardless of cascade behavior.
func (r *Registry) ReferencingEdges(targetType string) []entities.RelationEdge {
	return r.incoming[targetType]
}

// AllTypes returns all registered types sorted by name.
func (r *Registry) AllTypes() []entities.EntityType {
	result := make([]entities.EntityType, 0, len(r.types))
	for _, t := range r.types {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
