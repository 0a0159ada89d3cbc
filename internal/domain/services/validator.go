package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/ports"
)

// Validator checks a candidate deletion subtree against restricting
// references held by records outside it. The check is strictly
// read-only, so the manifest service runs it once before opening its
// transaction and once more inside it to close the check/use race.
type Validator struct {
	registry *Registry
}

// NewValidator creates a Validator over the given registry.
func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// FindBlockers returns one blocker per external record that references
// a subtree member through a restrict or no-action edge. Referencers
// that are themselves subtree members do not block: they are deleted
// with the subtree. An empty result means the deletion may proceed.
func (v *Validator) FindBlockers(ctx context.Context, q ports.RecordReader, members []entities.RecordRef) ([]entities.Blocker, error) {
	inSubtree := make(map[entities.RecordRef]bool, len(members))
	for _, ref := range members {
		inSubtree[ref] = true
	}

	var blockers []entities.Blocker
	for _, ref := range members {
		for _, edge := range v.registry.ReferencingEdges(ref.Type) {
			if !edge.OnDelete.Blocking() {
				continue
			}
			referencing, err := q.FindReferencing(ctx, edge.SourceType, edge.Field, ref.Identity)
			if err != nil {
				return nil, fmt.Errorf("finding restricting referencers of %s: %w", ref, err)
			}
			for _, r := range referencing {
				if inSubtree[r] {
					continue
				}
				blockers = append(blockers, entities.Blocker{
					Edge:                edge,
					ReferencingType:     r.Type,
					ReferencingIdentity: r.Identity,
					ReferencedType:      ref.Type,
					ReferencedIdentity:  ref.Identity,
				})
			}
		}
	}

	sort.Slice(blockers, func(i, j int) bool {
		return blockers[i].Referencing().Less(blockers[j].Referencing())
	})
	return blockers, nil
}
