package entities

import "fmt"

// RecordRef identifies one record instance by entity type and identity.
type RecordRef struct {
	Type     string `json:"type"`
	Identity string `json:"identity"`
}

// String returns the canonical "type/identity" form, used for lock keys
// and deterministic ordering.
func (r RecordRef) String() string {
	return r.Type + "/" + r.Identity
}

// Less orders refs by (type, identity). Used to break topological ties
// deterministically and to acquire locks in a globally consistent order.
func (r RecordRef) Less(other RecordRef) bool {
	if r.Type != other.Type {
		return r.Type < other.Type
	}
	return r.Identity < other.Identity
}

// Record is one concrete instance: a ref plus its opaque attribute map.
// The engine never interprets attribute values beyond relation fields.
type Record struct {
	Ref        RecordRef      `json:"ref"`
	Attributes map[string]any `json:"attributes"`
}

// Field returns the attribute value for name, or nil if absent.
func (r *Record) Field(name string) any {
	if r.Attributes == nil {
		return nil
	}
	return r.Attributes[name]
}

// FieldString returns the attribute value for name coerced to a string.
// Relation fields carry identities, which are stored as strings; numeric
// JSON values are formatted without a fractional part when whole.
func (r *Record) FieldString(name string) string {
	v := r.Field(name)
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Clone returns a deep-enough copy for snapshot capture: the attribute
// map is copied, values are shared (they are treated as immutable).
func (r *Record) Clone() *Record {
	attrs := make(map[string]any, len(r.Attributes))
	for k, v := range r.Attributes {
		attrs[k] = v
	}
	return &Record{Ref: r.Ref, Attributes: attrs}
}
