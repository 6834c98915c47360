// Package attrs holds the ordered attribute maps that make up the payload of
// a single output event. A Map is built mutably and then frozen; the frozen
// form is exposed as ReadOnly, which has no mutating methods at all.
package attrs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// ReportNamespace is the namespace of every attribute the engine itself emits.
const ReportNamespace = "urn:reportflow:engine"

// Attribute names of the engine vocabulary. Output backends must recognize them.
const (
	Namespace       = "namespace"
	Type            = "type"
	Name            = "name"
	Href            = "href"
	ClassID         = "class-id"
	MasterColumns   = "master-columns"
	MasterValues    = "master-values"
	DetailColumns   = "detail-columns"
	RepeatedSection = "repeated-section"
	Value           = "value"
)

// ErrReadOnly is returned when a frozen map is asked to change.
var ErrReadOnly = errors.New("attribute map is read-only")

// Key identifies an attribute by namespace and local name.
type Key struct {
	Namespace string
	Name      string
}

func (k Key) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "#" + k.Name
}

// Map is an insertion-ordered attribute map.
type Map struct {
	keys     []Key
	values   map[Key]any
	readOnly bool
}

// New creates an empty, mutable map.
func New() *Map {
	return &Map{values: make(map[Key]any)}
}

// Set stores value under (namespace, name). Re-setting an existing key keeps
// its original position.
func (m *Map) Set(namespace, name string, value any) error {
	if m.readOnly {
		return fmt.Errorf("set %s: %w", Key{namespace, name}, ErrReadOnly)
	}
	k := Key{Namespace: namespace, Name: name}
	if _, exists := m.values[k]; !exists {
		m.keys = append(m.keys, k)
	}
	m.values[k] = cloneValue(value)
	return nil
}

// Remove deletes (namespace, name) from the map.
func (m *Map) Remove(namespace, name string) error {
	if m.readOnly {
		return fmt.Errorf("remove %s: %w", Key{namespace, name}, ErrReadOnly)
	}
	k := Key{Namespace: namespace, Name: name}
	if _, exists := m.values[k]; !exists {
		return nil
	}
	delete(m.values, k)
	m.keys = slices.DeleteFunc(m.keys, func(other Key) bool { return other == k })
	return nil
}

// Get returns the value stored under (namespace, name).
func (m *Map) Get(namespace, name string) (any, bool) {
	v, ok := m.values[Key{Namespace: namespace, Name: name}]
	return v, ok
}

// Len reports the number of attributes.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the attribute keys in insertion order.
func (m *Map) Keys() []Key { return slices.Clone(m.keys) }

// IsReadOnly reports whether Freeze has been called.
func (m *Map) IsReadOnly() bool { return m.readOnly }

// Freeze marks the map read-only and returns its read-only view. Any later
// Set or Remove on m fails with ErrReadOnly.
func (m *Map) Freeze() ReadOnly {
	m.readOnly = true
	return ReadOnly{m: m}
}

// Copy returns a mutable copy of m, regardless of whether m is frozen.
func (m *Map) Copy() *Map {
	cp := &Map{
		keys:   slices.Clone(m.keys),
		values: make(map[Key]any, len(m.values)),
	}
	for k, v := range m.values {
		cp.values[k] = cloneValue(v)
	}
	return cp
}

// ReadOnly is a frozen attribute map. The zero value is an empty map.
type ReadOnly struct {
	m *Map
}

// Get returns a copy of the value stored under (namespace, name).
func (r ReadOnly) Get(namespace, name string) (any, bool) {
	if r.m == nil {
		return nil, false
	}
	v, ok := r.m.Get(namespace, name)
	return cloneValue(v), ok
}

// Len reports the number of attributes.
func (r ReadOnly) Len() int {
	if r.m == nil {
		return 0
	}
	return r.m.Len()
}

// Keys returns the attribute keys in insertion order.
func (r ReadOnly) Keys() []Key {
	if r.m == nil {
		return nil
	}
	return r.m.Keys()
}

// Copy returns a mutable copy; it is the only way to derive an edited map.
func (r ReadOnly) Copy() *Map {
	if r.m == nil {
		return New()
	}
	return r.m.Copy()
}

// Type returns the engine "type" attribute, or "" when absent.
func (r ReadOnly) Type() string {
	v, _ := r.Get(ReportNamespace, Type)
	s, _ := v.(string)
	return s
}

// Each calls fn with a copy of every attribute in insertion order.
func (r ReadOnly) Each(fn func(k Key, v any)) {
	if r.m == nil {
		return
	}
	for _, k := range r.m.keys {
		fn(k, cloneValue(r.m.values[k]))
	}
}

// cloneValue copies the slice kinds the engine stores so that callers cannot
// reach into a frozen map through a retained slice header.
func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return slices.Clone(t)
	case []any:
		return slices.Clone(t)
	case []cty.Value:
		return slices.Clone(t)
	default:
		return v
	}
}
