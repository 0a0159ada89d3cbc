package entities

import "time"

// Snapshot is the write-once serialization of one record's attributes at
// deletion time. A manifest owns exactly one snapshot per subtree member;
// snapshots are never mutated, only created and eventually discarded.
type Snapshot struct {
	Key        string         `json:"key"`
	EntityType string         `json:"entity_type"`
	Identity   string         `json:"identity"`
	Attributes map[string]any `json:"attributes"`
	CapturedAt time.Time      `json:"captured_at"`
}

// Ref returns the record ref the snapshot was captured from.
func (s *Snapshot) Ref() RecordRef {
	return RecordRef{Type: s.EntityType, Identity: s.Identity}
}

// ToRecord rebuilds the record exactly as it was captured.
func (s *Snapshot) ToRecord() *Record {
	return &Record{Ref: s.Ref(), Attributes: s.Attributes}
}
