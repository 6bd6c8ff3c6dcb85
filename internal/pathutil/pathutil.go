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

// Package pathutil resolves dot-joined key-paths (e.g. "a.b.2.c") into a
// mutable target across documents whose interior nodes mix *document.Doc
// and document.Array, per spec.md §4.1.
//
// Grounded on the getParentMap/getAtFieldPath/setAtFieldPath helpers of
// gocloud's in-memory docstore (memdocstore), generalized from map-only
// traversal to mixed map/array traversal and to the NoCreate/ForbidArray
// policy bits spec.md requires. Because document.Array is a Go slice
// (value semantics), growing an array mid-path needs to write the grown
// slice back into whatever owns it; Target captures that write-back as a
// closure rather than handing back a raw pointer, per spec.md Design
// Notes §9's "perform the final read/write at apply-time" guidance.
package pathutil

import (
	"strconv"
	"strings"

	"gopkg.in/src-d/go-errors.v1"

	"github.com/ardenlabs/docstore/document"
)

var (
	// ErrCannotAppendWithName is raised when a path step addresses an
	// array with a non-numeric field name.
	ErrCannotAppendWithName = errors.NewKind("cannot append to array using string field name %q")
	// ErrNullTarget is raised when ForbidArray is set and resolution
	// would otherwise descend into an array.
	ErrNullTarget = errors.NewKind("null target: path %q crosses an array")
	// ErrEmptyPath is raised for a zero-length key-path.
	ErrEmptyPath = errors.NewKind("empty key-path")
	// ErrMaxDepthExceeded is raised when a key-path has more segments than
	// Policy.MaxDepth allows.
	ErrMaxDepthExceeded = errors.NewKind("key-path %q exceeds maximum depth %d")
)

// Policy bundles the independent resolution behaviors spec.md §4.1 names.
type Policy struct {
	// NoCreate: don't materialize missing intermediate containers; stop
	// and report the target as not Found instead.
	NoCreate bool
	// ForbidArray: treat any array encountered along the path as a hard
	// failure instead of indexing into it.
	ForbidArray bool
	// MaxDepth bounds the number of dot-separated segments Resolve will
	// walk before failing with ErrMaxDepthExceeded. Zero means unlimited;
	// this is how config.Defaults.MaxDocumentDepth stops a pathological
	// key-path from recursing without bound.
	MaxDepth int
}

func numericSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Split breaks a dotted key-path into its segments.
func Split(keyPath string) []string {
	return strings.Split(keyPath, ".")
}

type targetKind int

const (
	targetDoc targetKind = iota
	targetArray
)

// writeBack propagates a (possibly identity-changed, e.g. grown) array up
// through whatever container owns it. It is a no-op for doc-owned slots,
// since *document.Doc mutates in place.
type writeBack func(newArray document.Array)

// Target is the result of a successful resolution: either a slot in a
// *document.Doc (by key) or a slot in a document.Array (by index),
// captured so Get/Set/Delete can be performed without holding a raw
// pointer into a slice that might be reallocated.
type Target struct {
	kind    targetKind
	doc     *document.Doc
	arr     document.Array
	idx     int
	back    writeBack
	segment string
	found   bool
}

// Found reports whether the final slot itself was present when resolved
// (or has since been Set); it is false both when the slot is missing from
// its container and when an intermediate step was absent under NoCreate.
// Under NoCreate, a false Found means the caller's operator should treat
// this as the documented no-op (spec.md §4.4's "$unset on absent path").
func (t Target) Found() bool { return t.found }

// Segment returns the final path segment, possibly rewritten to its
// canonical numeric form when the owning container is an array.
func (t Target) Segment() string { return t.segment }

// IsArray reports whether the target's slot lives in an array rather than
// a document.
func (t Target) IsArray() bool { return t.kind == targetArray }

// Get reads the current value at the target, and whether it is present.
func (t Target) Get() (interface{}, bool) {
	switch t.kind {
	case targetDoc:
		return t.doc.Get(t.segment)
	default:
		if t.idx >= 0 && t.idx < len(t.arr) {
			return t.arr[t.idx], true
		}
		return nil, false
	}
}

// Set writes v at the target, padding an owning array with nulls if
// necessary per spec.md §4.1.
func (t *Target) Set(v interface{}) {
	switch t.kind {
	case targetDoc:
		t.doc.Set(t.segment, v)
	default:
		if t.idx >= len(t.arr) {
			t.arr = padArray(t.arr, t.idx+1)
		}
		t.arr[t.idx] = v
		t.back(t.arr)
	}
	t.found = true
}

// Delete removes the target: deletes the key for a document slot, or
// nulls out the element for an array slot, per spec.md §4.4's $unset
// semantics. A no-op if the slot was never Found.
func (t *Target) Delete() {
	if !t.found {
		return
	}
	switch t.kind {
	case targetDoc:
		t.doc.Delete(t.segment)
	default:
		if t.idx < len(t.arr) {
			t.arr[t.idx] = nil
			t.back(t.arr)
		}
	}
}

func padArray(arr document.Array, n int) document.Array {
	if len(arr) >= n {
		return arr
	}
	out := make(document.Array, n)
	copy(out, arr)
	return out
}

// Resolve walks every prefix of keyPath except the last segment, starting
// at root, and returns a Target for the final segment.
func Resolve(root *document.Doc, keyPath string, pol Policy) (Target, error) {
	segments := Split(keyPath)
	if len(segments) == 0 || segments[0] == "" {
		return Target{}, ErrEmptyPath.New()
	}
	if pol.MaxDepth > 0 && len(segments) > pol.MaxDepth {
		return Target{}, ErrMaxDepthExceeded.New(keyPath, pol.MaxDepth)
	}

	var container interface{} = root
	var back writeBack = func(document.Array) {}

	for i := 0; i < len(segments)-1; i++ {
		next, nextBack, err := descend(container, back, segments[i], pol)
		if err != nil {
			return Target{}, err
		}
		if next == nil {
			return Target{}, nil // absent under NoCreate; zero Target has Found() == false
		}
		container, back = next, nextBack
	}

	last := segments[len(segments)-1]
	switch node := container.(type) {
	case document.Array:
		if !numericSegment(last) {
			return Target{}, ErrCannotAppendWithName.New(last)
		}
		if pol.ForbidArray {
			return Target{}, ErrNullTarget.New(keyPath)
		}
		idx, _ := strconv.Atoi(last)
		return Target{kind: targetArray, arr: node, idx: idx, back: back, segment: last, found: idx < len(node)}, nil
	case *document.Doc:
		_, ok := node.Get(last)
		return Target{kind: targetDoc, doc: node, segment: last, found: ok}, nil
	default:
		return Target{}, ErrCannotAppendWithName.New(last)
	}
}

// descend resolves seg within container, materializing an intermediate
// object when allowed, and returns the container reached plus a writeBack
// closure that propagates further mutation up to whatever owns that
// container.
func descend(container interface{}, parentBack writeBack, seg string, pol Policy) (interface{}, writeBack, error) {
	switch node := container.(type) {
	case *document.Doc:
		v, ok := node.Get(seg)
		if !ok {
			if pol.NoCreate {
				return nil, nil, nil
			}
			child := document.New()
			node.Set(seg, child)
			return child, func(document.Array) {}, nil
		}
		switch vv := v.(type) {
		case *document.Doc:
			return vv, func(document.Array) {}, nil
		case document.Array:
			return vv, func(newArr document.Array) { node.Set(seg, newArr) }, nil
		default:
			if pol.NoCreate {
				return nil, nil, nil
			}
			child := document.New()
			node.Set(seg, child)
			return child, func(document.Array) {}, nil
		}

	case document.Array:
		if !numericSegment(seg) {
			return nil, nil, ErrCannotAppendWithName.New(seg)
		}
		if pol.ForbidArray {
			return nil, nil, ErrNullTarget.New(seg)
		}
		idx, _ := strconv.Atoi(seg)
		arr := node
		if idx >= len(arr) {
			if pol.NoCreate {
				return nil, nil, nil
			}
			arr = padArray(arr, idx+1)
			parentBack(arr)
		}
		v := arr[idx]
		switch vv := v.(type) {
		case *document.Doc:
			return vv, func(document.Array) {}, nil
		case document.Array:
			arrCopy, idxCopy := arr, idx
			return vv, func(newArr document.Array) {
				arrCopy[idxCopy] = newArr
				parentBack(arrCopy)
			}, nil
		default:
			if pol.NoCreate {
				return nil, nil, nil
			}
			child := document.New()
			arr[idx] = child
			parentBack(arr)
			return child, func(document.Array) {}, nil
		}

	default:
		return nil, nil, ErrCannotAppendWithName.New(seg)
	}
}
