package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/ports"
)

// FieldClear marks one referencing field of an external record that
// must be nulled when the subtree is deleted (set-null edge handling).
type FieldClear struct {
	Ref   entities.RecordRef `json:"ref"`
	Field string             `json:"field"`
}

// Expansion is the materialized instance subtree for one root: the full
// member set, the records as read at expansion time, the computed
// deletion order and the external fields to clear.
type Expansion struct {
	Root    entities.RecordRef
	Members []entities.RecordRef
	Records map[entities.RecordRef]*entities.Record

	// DeletionOrder is reverse-topological over the instance dependency
	// graph: a record is always listed before every record it
	// references, so children go first.
	DeletionOrder []entities.RecordRef

	// FieldClears lists set-null references held by records outside the
	// subtree. Applied in the delete transaction, never reversed on
	// restore.
	FieldClears []FieldClear
}

// RestorationOrder is the exact reverse of the deletion order:
// dependees are re-created before their dependents.
func (e *Expansion) RestorationOrder() []entities.RecordRef {
	out := make([]entities.RecordRef, len(e.DeletionOrder))
	for i, ref := range e.DeletionOrder {
		out[len(out)-1-i] = ref
	}
	return out
}

// Scheduler expands a root into its concrete deletion subtree and
// computes a safe deletion order. Expansion works at the instance
// level: the type graph may contain cycles (self-references included),
// a visited set keyed by (type, identity) guarantees termination.
type Scheduler struct {
	registry *Registry
}

// NewScheduler creates a Scheduler over the given registry.
func NewScheduler(registry *Registry) *Scheduler {
	return &Scheduler{registry: registry}
}

// ExpandSubtree discovers every record transitively dependent on root
// through cascade edges and orders them for deletion. It is read-only;
// the manifest service runs it once outside its transaction and once
// inside, immediately before mutating.
func (s *Scheduler) ExpandSubtree(ctx context.Context, q ports.RecordReader, root entities.RecordRef) (*Expansion, error) {
	if _, err := s.registry.Type(root.Type); err != nil {
		return nil, err
	}

	rootRec, err := q.GetRecord(ctx, root.Type, root.Identity)
	if err != nil {
		return nil, fmt.Errorf("reading root %s: %w", root, err)
	}
	if rootRec == nil {
		return nil, fmt.Errorf("%s: %w", root, entities.ErrRecordNotFound)
	}

	exp := &Expansion{
		Root:    root,
		Records: make(map[entities.RecordRef]*entities.Record),
	}

	// Breadth-first discovery over incoming cascade edges. A dependent
	// already visited is a back-edge: recorded for ordering below, not
	// re-traversed.
	visited := map[entities.RecordRef]bool{root: true}
	exp.Members = append(exp.Members, root)
	exp.Records[root] = rootRec

	queue := []entities.RecordRef{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range s.registry.ReferencingEdges(current.Type) {
			if edge.OnDelete != entities.CascadeDelete {
				continue
			}
			deps, err := q.FindReferencing(ctx, edge.SourceType, edge.Field, current.Identity)
			if err != nil {
				return nil, fmt.Errorf("finding %s records referencing %s via %q: %w", edge.SourceType, current, edge.Field, err)
			}
			for _, dep := range deps {
				if visited[dep] {
					continue
				}
				rec, err := q.GetRecord(ctx, dep.Type, dep.Identity)
				if err != nil {
					return nil, fmt.Errorf("reading %s: %w", dep, err)
				}
				if rec == nil {
					// Raced with a concurrent delete; the in-transaction
					// re-expansion settles it.
					continue
				}
				visited[dep] = true
				exp.Members = append(exp.Members, dep)
				exp.Records[dep] = rec
				queue = append(queue, dep)
			}
		}
	}

	if err := s.orderMembers(exp, visited); err != nil {
		return nil, err
	}
	if err := s.collectFieldClears(ctx, q, exp, visited); err != nil {
		return nil, err
	}
	return exp, nil
}

// orderMembers runs Kahn's algorithm over the instance dependency
// graph. Every reference edge between two members constrains the order
// (the referencing side deletes first) regardless of cascade behavior,
// matching foreign-key deletion safety. Instance self-references
// collapse into no-ops.
func (s *Scheduler) orderMembers(exp *Expansion, member map[entities.RecordRef]bool) error {
	indegree := make(map[entities.RecordRef]int, len(exp.Members))
	successors := make(map[entities.RecordRef][]entities.RecordRef)
	for _, ref := range exp.Members {
		indegree[ref] = 0
	}

	for _, ref := range exp.Members {
		rec := exp.Records[ref]
		for _, edge := range s.registry.Relations(ref.Type) {
			targetID := rec.FieldString(edge.Field)
			if targetID == "" {
				continue
			}
			target := entities.RecordRef{Type: edge.TargetType, Identity: targetID}
			if !member[target] || target == ref {
				continue
			}
			successors[ref] = append(successors[ref], target)
			indegree[target]++
		}
	}

	ready := make([]entities.RecordRef, 0, len(exp.Members))
	for _, ref := range exp.Members {
		if indegree[ref] == 0 {
			ready = append(ready, ref)
		}
	}

	order := make([]entities.RecordRef, 0, len(exp.Members))
	for len(ready) > 0 {
		// Deterministic tie-break: smallest (type, identity) first.
		sort.Slice(ready, func(i, j int) bool { return ready[i].Less(ready[j]) })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, succ := range successors[next] {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) != len(exp.Members) {
		a, b := findCyclePair(exp.Members, indegree, successors)
		return &entities.UnresolvableCycleError{A: a, B: b}
	}

	exp.DeletionOrder = order
	return nil
}

// findCyclePair names two members of the unresolved cycle region for
// the error message.
func findCyclePair(members []entities.RecordRef, indegree map[entities.RecordRef]int, successors map[entities.RecordRef][]entities.RecordRef) (entities.RecordRef, entities.RecordRef) {
	remaining := make(map[entities.RecordRef]bool)
	for _, ref := range members {
		if indegree[ref] > 0 {
			remaining[ref] = true
		}
	}
	for ref := range remaining {
		for _, succ := range successors[ref] {
			if remaining[succ] {
				return ref, succ
			}
		}
	}
	// Unreachable when called with an actual cycle; keep a sane fallback.
	for _, ref := range members {
		return ref, ref
	}
	return entities.RecordRef{}, entities.RecordRef{}
}

// collectFieldClears finds external records referencing a subtree
// member over a set-null edge. Their referencing field is cleared in
// the delete transaction; they are never deleted and never block.
func (s *Scheduler) collectFieldClears(ctx context.Context, q ports.RecordReader, exp *Expansion, member map[entities.RecordRef]bool) error {
	seen := make(map[string]bool)
	for _, ref := range exp.Members {
		for _, edge := range s.registry.ReferencingEdges(ref.Type) {
			if edge.OnDelete != entities.CascadeSetNull {
				continue
			}
			referencing, err := q.FindReferencing(ctx, edge.SourceType, edge.Field, ref.Identity)
			if err != nil {
				return fmt.Errorf("finding set-null referencers of %s: %w", ref, err)
			}
			for _, r := range referencing {
				if member[r] {
					continue
				}
				key := r.String() + "#" + edge.Field
				if seen[key] {
					continue
				}
				seen[key] = true
				exp.FieldClears = append(exp.FieldClears, FieldClear{Ref: r, Field: edge.Field})
			}
		}
	}
	return nil
}
