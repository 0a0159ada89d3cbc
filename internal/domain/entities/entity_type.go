package entities

// CascadeBehavior defines what happens to a relation edge when the
// referenced (target) record is deleted.
type CascadeBehavior string

const (
	// CascadeDelete pulls the referencing record into the deletion subtree.
	CascadeDelete CascadeBehavior = "cascade"
	// CascadeRestrict blocks the deletion while an external referencer exists.
	CascadeRestrict CascadeBehavior = "restrict"
	// CascadeSetNull clears the referencing field instead of deleting.
	CascadeSetNull CascadeBehavior = "set_null"
	// CascadeNoAction behaves like restrict for validation purposes.
	CascadeNoAction CascadeBehavior = "no_action"
)

// Blocking reports whether an external reference over this behavior
// prevents deletion of the referenced record.
func (b CascadeBehavior) Blocking() bool {
	return b == CascadeRestrict || b == CascadeNoAction
}

// Valid reports whether the behavior is one of the known values.
func (b CascadeBehavior) Valid() bool {
	switch b {
	case CascadeDelete, CascadeRestrict, CascadeSetNull, CascadeNoAction:
		return true
	}
	return false
}

// Cardinality describes how many source records may reference one target.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// AttributeDef describes one typed attribute of an entity type.
type AttributeDef struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// RelationEdge is a directed dependency between two entity types. The
// source type holds the referencing field; the target type is the one
// being depended on. OnDelete decides how the edge behaves when the
// target is deleted.
type RelationEdge struct {
	SourceType  string          `json:"source_type" yaml:"source_type"`
	TargetType  string          `json:"target_type" yaml:"target_type"`
	Field       string          `json:"field" yaml:"field"`
	Cardinality Cardinality     `json:"cardinality" yaml:"cardinality"`
	OnDelete    CascadeBehavior `json:"on_delete" yaml:"on_delete"`
}

// EntityType is a named record schema: an identity field, typed
// attributes, and the outgoing relation edges to other types. Entity
// types are configuration - immutable once the registry is built.
type EntityType struct {
	Name          string         `json:"name" yaml:"name"`
	IdentityField string         `json:"identity_field" yaml:"identity_field"`
	Attributes    []AttributeDef `json:"attributes" yaml:"attributes"`
	Relations     []RelationEdge `json:"relations" yaml:"relations"`
}
