// Copyright 2024 The Docstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package document defines the tagged document value model the rest of the
// store operates on: an ordered, schemaless tree of fields, plus the
// comparison and equality rules the selector and update engines share.
package document

import (
	"strings"

	"gopkg.in/src-d/go-errors.v1"
)

// ErrReservedFieldName is raised when a stored field name begins with '$'
// or contains '.'.
var ErrReservedFieldName = errors.NewKind("field names must not start with '$' or contain '.': %q")

// Field is a single named slot in a Doc. Order of Fields in a Doc is
// insertion order and is preserved across copies and traversal.
type Field struct {
	Key   string
	Value interface{}
}

// Doc is an ordered document: a sequence of named fields. It is the
// in-memory analogue of a BSON document, represented as an ordered slice
// (bson.D-style) rather than a Go map so that field order survives
// round-trips the way spec.md's "ordered field traversal" invariant
// requires.
type Doc struct {
	fields []Field
}

// New creates an empty ordered document.
func New() *Doc {
	return &Doc{}
}

// FromPairs builds a Doc from alternating key/value arguments, mainly for
// tests and example code.
func FromPairs(pairs ...interface{}) *Doc {
	d := New()
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1])
	}
	return d
}

// Len returns the number of top-level fields.
func (d *Doc) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}

// Keys returns the field names in insertion order.
func (d *Doc) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns the underlying fields in insertion order. Callers must
// not mutate the returned slice.
func (d *Doc) Fields() []Field {
	if d == nil {
		return nil
	}
	return d.fields
}

// Get returns the value stored at key and whether it was present.
func (d *Doc) Get(key string) (interface{}, bool) {
	if d == nil {
		return nil, false
	}
	for _, f := range d.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set assigns value to key, preserving the position of an existing key or
// appending a new field at the end.
func (d *Doc) Set(key string, value interface{}) {
	for i, f := range d.fields {
		if f.Key == key {
			d.fields[i].Value = value
			return
		}
	}
	d.fields = append(d.fields, Field{Key: key, Value: value})
}

// Delete removes key if present. It is a no-op otherwise, matching
// spec.md's "$unset on absent path is a silent no-op" rule.
func (d *Doc) Delete(key string) {
	if d == nil {
		return
	}
	for i, f := range d.fields {
		if f.Key == key {
			d.fields = append(d.fields[:i], d.fields[i+1:]...)
			return
		}
	}
}

// Has reports whether key is present.
func (d *Doc) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Clone performs a deep copy of the document, including nested documents
// and arrays.
func (d *Doc) Clone() *Doc {
	if d == nil {
		return nil
	}
	out := &Doc{fields: make([]Field, len(d.fields))}
	for i, f := range d.fields {
		out.fields[i] = Field{Key: f.Key, Value: CloneValue(f.Value)}
	}
	return out
}

// CloneValue deep-copies any document value (scalar, Array, or *Doc).
func CloneValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case *Doc:
		return vv.Clone()
	case Array:
		out := make(Array, len(vv))
		for i, e := range vv {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// ValidateFieldName enforces spec.md's reserved-character rule for stored
// field names.
func ValidateFieldName(name string) error {
	if name == "" || strings.HasPrefix(name, "$") || strings.Contains(name, ".") {
		return ErrReservedFieldName.New(name)
	}
	return nil
}

// Array is an ordered sequence of document values.
type Array []interface{}
