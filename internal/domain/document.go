package domain

import (
	"maps"
	"strings"
)

// Well-known document fields managed by the versioned record store.
// Everything else in a document is opaque to the store.
const (
	FieldVersion  = "version"
	FieldCode     = "code"
	FieldIsActive = "isActive"
)

// Document is an object-rooted Value: the schemaless body of a versioned
// record. The zero Document is an empty object.
type Document struct {
	root Value
}

// NewDocument returns an empty document.
func NewDocument() Document {
	return Document{root: Object(nil)}
}

// DocumentFromValue wraps an object value as a document.
// Returns ErrNotObject for any other kind.
func DocumentFromValue(v Value) (Document, error) {
	if v.Kind() != KindObject {
		return Document{}, ErrNotObject
	}
	return Document{root: v}, nil
}

// DocumentFromMap builds a document from a Go map literal.
func DocumentFromMap(fields map[string]any) (Document, error) {
	v, err := FromAny(fields)
	if err != nil {
		return Document{}, err
	}
	if fields == nil {
		v = Object(nil)
	}
	return DocumentFromValue(v)
}

// ParseDocument decodes a JSON object into a document.
func ParseDocument(data []byte) (Document, error) {
	v, err := ParseValue(data)
	if err != nil {
		return Document{}, err
	}
	return DocumentFromValue(v)
}

// Value returns the document as a Value.
func (d Document) Value() Value {
	if d.root.Kind() != KindObject {
		return Object(nil)
	}
	return d.root
}

// Get returns the value at path.
func (d Document) Get(path ...string) (Value, bool) {
	return d.root.Get(path...)
}

// Has reports whether a top-level field is present.
func (d Document) Has(name string) bool {
	_, ok := d.root.Field(name)
	return ok
}

// Set returns a copy of the document with path set to v.
func (d Document) Set(path []string, v Value) (Document, error) {
	root, err := d.Value().Set(path, v)
	if err != nil {
		return Document{}, err
	}
	return Document{root: root}, nil
}

// With returns a copy of the document with a top-level field set.
// Setting a single key on an object can not conflict, so it never fails.
func (d Document) With(name string, v Value) Document {
	root, _ := d.Value().Set([]string{name}, v)
	return Document{root: root}
}

// Without returns a copy of the document with a top-level field removed.
func (d Document) Without(name string) Document {
	root := d.Value()
	if _, ok := root.obj[name]; !ok {
		return Document{root: root}
	}
	fields := maps.Clone(root.obj)
	delete(fields, name)
	return Document{root: Value{kind: KindObject, obj: fields}}
}

// StringField returns a top-level string field when it is present and not
// blank.
func (d Document) StringField(name string) (string, bool) {
	v, ok := d.root.Field(name)
	if !ok {
		return "", false
	}
	s, ok := v.AsString()
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// IsActive reports whether the isActive field holds JSON true.
func (d Document) IsActive() bool {
	v, ok := d.root.Field(FieldIsActive)
	if !ok {
		return false
	}
	b, ok := v.AsBool()
	return ok && b
}

// Equal reports whether two documents hold the same tree.
func (d Document) Equal(other Document) bool {
	return d.Value().Equal(other.Value())
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	return d.Value().MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
