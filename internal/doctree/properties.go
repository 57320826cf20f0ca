package doctree

import "strings"

// Value is a page property: either a single string or a list of strings.
type Value struct {
	Str    string
	List   []string
	IsList bool
}

// String builds a scalar Value.
func String(s string) Value { return Value{Str: s} }

// List builds a list Value.
func List(items ...string) Value {
	return Value{List: append([]string{}, items...), IsList: true}
}

// Empty reports whether the value carries nothing worth emitting.
func (v Value) Empty() bool {
	if v.IsList {
		return len(v.List) == 0
	}
	return v.Str == ""
}

// Format renders the value for a front-matter line. Lists use a flow
// sequence of single-quoted items, e.g. ['go', 'hugo'].
func (v Value) Format() string {
	if !v.IsList {
		return v.Str
	}
	quoted := make([]string, len(v.List))
	for i, item := range v.List {
		quoted[i] = "'" + item + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Properties is an insertion-ordered string to Value mapping.
type Properties struct {
	keys   []string
	values map[string]Value
}

func NewProperties() *Properties {
	return &Properties{values: make(map[string]Value)}
}

// Set inserts or replaces key. Replacing keeps the original position.
func (p *Properties) Set(key string, v Value) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

func (p *Properties) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

func (p *Properties) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns keys in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}
