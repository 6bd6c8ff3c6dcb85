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

// Package projection compiles the field-spec documents spec.md §4.3
// describes into Projector closures that shape a matched document down to
// the fields a caller asked for, mirroring the way selector compiles
// predicate documents into Matcher closures.
package projection

import (
	"strings"

	"gopkg.in/src-d/go-errors.v1"

	"github.com/ardenlabs/docstore/document"
)

// Projector reshapes doc per a compiled field-spec.
type Projector func(doc *document.Doc) *document.Doc

// ErrMixedProjection is raised when a field-spec mixes inclusion and
// exclusion on fields other than _id, which has no well-defined meaning.
var ErrMixedProjection = errors.NewKind("projection cannot mix inclusion and exclusion: %s")

// identity is returned when spec is nil or empty: every field passes
// through unshaped.
func identity(doc *document.Doc) *document.Doc { return doc }

// Compile turns spec into a Projector. A nil or empty spec is the
// identity projection. Otherwise spec's fields are each either truthy
// (1, true) for inclusion or falsy (0, false) for exclusion; _id is
// included by default unless explicitly excluded, per spec.md §4.3.
func Compile(spec *document.Doc) (Projector, error) {
	if spec == nil || spec.Len() == 0 {
		return identity, nil
	}

	mode, err := projectionMode(spec)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, spec.Len())
	for _, f := range spec.Fields() {
		paths = append(paths, f.Key)
	}

	idExcluded := false
	if v, ok := spec.Get("_id"); ok && !truthy(v) {
		idExcluded = true
	}

	switch mode {
	case modeInclusion:
		return func(doc *document.Doc) *document.Doc {
			out := document.New()
			if !idExcluded {
				if v, ok := doc.Get("_id"); ok {
					out.Set("_id", document.CloneValue(v))
				}
			}
			for _, p := range paths {
				if p == "_id" {
					continue
				}
				copyIncludedPath(doc, out, p)
			}
			return out
		}, nil
	default: // modeExclusion
		excluded := map[string]bool{}
		for _, p := range paths {
			if p != "_id" {
				excluded[p] = true
			}
		}
		return func(doc *document.Doc) *document.Doc {
			out := doc.Clone()
			if idExcluded {
				out.Delete("_id")
			}
			for p := range excluded {
				deletePath(out, p)
			}
			return out
		}, nil
	}
}

type mode int

const (
	modeInclusion mode = iota
	modeExclusion
)

// projectionMode inspects spec's non-_id fields to decide whether this is
// an inclusion or exclusion projection; _id alone doesn't determine mode.
func projectionMode(spec *document.Doc) (mode, error) {
	sawInclude, sawExclude := false, false
	for _, f := range spec.Fields() {
		if f.Key == "_id" {
			continue
		}
		if truthy(f.Value) {
			sawInclude = true
		} else {
			sawExclude = true
		}
	}
	switch {
	case sawInclude && sawExclude:
		return 0, ErrMixedProjection.New("cannot combine included and excluded fields")
	case sawExclude:
		return modeExclusion, nil
	case !sawInclude:
		// Only _id present: {_id: 0} drops _id from an otherwise full
		// document, {_id: 1} keeps only _id.
		if v, _ := spec.Get("_id"); !truthy(v) {
			return modeExclusion, nil
		}
		return modeInclusion, nil
	default:
		return modeInclusion, nil
	}
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

// copyIncludedPath copies the value at dotted path p from src into dst,
// materializing intermediate objects in dst as needed. Arrays of
// sub-documents are projected element-wise.
func copyIncludedPath(src, dst *document.Doc, p string) {
	segments := strings.Split(p, ".")
	v, ok := lookup(src, segments)
	if !ok {
		return
	}
	assign(dst, segments, v)
}

func lookup(d *document.Doc, segments []string) (interface{}, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.Get(segments[0])
	if !ok {
		return nil, false
	}
	if len(segments) == 1 {
		return document.CloneValue(v), true
	}
	switch vv := v.(type) {
	case *document.Doc:
		return lookup(vv, segments[1:])
	case document.Array:
		out := make(document.Array, 0, len(vv))
		any := false
		for _, e := range vv {
			if ed, ok := e.(*document.Doc); ok {
				if sub, ok := lookup(ed, segments[1:]); ok {
					out = append(out, sub)
					any = true
					continue
				}
			}
			out = append(out, nil)
		}
		if !any {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

func assign(d *document.Doc, segments []string, v interface{}) {
	if len(segments) == 1 {
		d.Set(segments[0], v)
		return
	}
	var child *document.Doc
	existing, ok := d.Get(segments[0])
	if ok {
		child, ok = existing.(*document.Doc)
	}
	if !ok || child == nil {
		child = document.New()
		d.Set(segments[0], child)
	}
	assign(child, segments[1:], v)
}

func deletePath(d *document.Doc, p string) {
	segments := strings.Split(p, ".")
	deleteAt(d, segments)
}

func deleteAt(d *document.Doc, segments []string) {
	if d == nil {
		return
	}
	if len(segments) == 1 {
		d.Delete(segments[0])
		return
	}
	v, ok := d.Get(segments[0])
	if !ok {
		return
	}
	switch vv := v.(type) {
	case *document.Doc:
		deleteAt(vv, segments[1:])
	case document.Array:
		for _, e := range vv {
			if ed, ok := e.(*document.Doc); ok {
				deleteAt(ed, segments[1:])
			}
		}
	}
}
