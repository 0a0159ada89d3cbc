package entities

// Blocker describes one external record that prevents a deletion: it
// references a subtree member through a restricting edge but is not
// itself part of the subtree.
type Blocker struct {
	Edge                RelationEdge `json:"edge"`
	ReferencingType     string       `json:"referencing_type"`
	ReferencingIdentity string       `json:"referencing_identity"`
	ReferencedType      string       `json:"referenced_type"`
	ReferencedIdentity  string       `json:"referenced_identity"`
}

// Referencing returns the ref of the blocking external record.
func (b Blocker) Referencing() RecordRef {
	return RecordRef{Type: b.ReferencingType, Identity: b.ReferencingIdentity}
}

// Referenced returns the subtree member the blocker points at.
func (b Blocker) Referenced() RecordRef {
	return RecordRef{Type: b.ReferencedType, Identity: b.ReferencedIdentity}
}
