// Package schema maps a monitor type tag to its settings shape and
// default values. The registry is forward-compatible: a type the
// console has never heard of resolves to an empty schema, and callers
// fall back to a raw key/value view instead of failing.
package schema

import "sync"

type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldInt    FieldKind = "int"
	FieldEnum   FieldKind = "enum"
)

// Field describes one settings entry for form rendering.
type Field struct {
	Name    string
	Kind    FieldKind
	Options []string
}

// Schema is the shape registered for one monitor type.
type Schema struct {
	Fields   []Field
	Defaults map[string]any
}

type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewRegistry returns a registry preloaded with the built-in monitor
// types.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]Schema)}

	r.Register("http", Schema{
		Fields: []Field{
			{Name: "method", Kind: FieldEnum, Options: []string{"GET", "POST", "PUT", "DELETE"}},
			{Name: "timeout", Kind: FieldInt},
			{Name: "expected_status", Kind: FieldInt},
		},
		Defaults: map[string]any{
			"method":          "GET",
			"timeout":         5,
			"expected_status": 200,
		},
	})

	r.Register("ping", Schema{
		Fields: []Field{
			{Name: "count", Kind: FieldInt},
			{Name: "timeout", Kind: FieldInt},
		},
		Defaults: map[string]any{
			"count":   4,
			"timeout": 3,
		},
	})

	return r
}

func (r *Registry) Register(typeTag string, s Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[typeTag] = s
}

// SchemaFor returns the schema for a type tag. Unknown tags resolve to
// an empty schema.
func (r *Registry) SchemaFor(typeTag string) Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.schemas[typeTag]; ok {
		return cloneSchema(s)
	}
	return Schema{Defaults: map[string]any{}}
}

// ApplyDefaults seeds missing keys from the type's defaults. Keys the
// caller already set, including ones the schema does not know about,
// are left untouched.
func (r *Registry) ApplyDefaults(typeTag string, settings map[string]any) map[string]any {
	schema := r.SchemaFor(typeTag)

	out := make(map[string]any, len(schema.Defaults)+len(settings))
	for k, v := range schema.Defaults {
		out[k] = v
	}
	for k, v := range settings {
		out[k] = v
	}
	return out
}

func cloneSchema(s Schema) Schema {
	out := Schema{
		Fields:   append([]Field(nil), s.Fields...),
		Defaults: make(map[string]any, len(s.Defaults)),
	}
	for k, v := range s.Defaults {
		out.Defaults[k] = v
	}
	return out
}
