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

package docstore

import (
	"io"
	"sort"

	"github.com/ardenlabs/docstore/document"
	"github.com/ardenlabs/docstore/projection"
	"github.com/ardenlabs/docstore/selector"
)

// Cursor is a lazy, single-pass iterator binding a compiled matcher,
// projection, skip/limit, and sort to a logical snapshot of a
// collection, per spec.md §4.5. A consumed cursor does not rewind; a
// fresh Find is needed to iterate again.
//
// Grounded on driver/rows.go's Rows.Next(dest) error / io.EOF-terminated
// iteration idiom from database/sql/driver, adapted to return
// (*document.Doc, error) directly rather than writing into a
// caller-supplied destination slice, since results here are schemaless
// documents rather than fixed-width SQL rows. Design Notes §9's "copy
// positions, not documents" guidance is realized here by capturing
// document pointers rather than slice indices: since update/remove never
// mutate a stored document in place (they install a new pointer or
// splice it out), a captured pointer already IS the as-of-materialization
// snapshot, with no need to re-resolve through an id index at yield time.
type Cursor struct {
	coll      *Collection
	matcher   selector.Matcher
	projector projection.Projector

	skip  int
	limit int
	sort  *document.Doc

	materialized bool
	items        []*document.Doc
	matchCount   int
	pos          int
}

// ErrCursorMaterialized is raised by Sort/Skip/Limit once iteration has
// begun, per spec.md §4.5: "valid only before iteration begins."
var ErrCursorMaterialized = newValidationError("cursor is already materialized; configure skip/limit/sort before iterating")

func newCursor(coll *Collection, matcher selector.Matcher, projector projection.Projector) *Cursor {
	return &Cursor{coll: coll, matcher: matcher, projector: projector}
}

// Sort configures a stable sort by spec's fields before any `next`/
// `fetch` call. spec maps a top-level field name to 1 (ascending) or -1
// (descending); dotted paths are not resolved into nested documents.
func (c *Cursor) Sort(spec *document.Doc) error {
	if c.materialized {
		return ErrCursorMaterialized
	}
	c.sort = spec
	return nil
}

// Skip configures the number of leading matches to drop.
func (c *Cursor) Skip(n int) error {
	if c.materialized {
		return ErrCursorMaterialized
	}
	c.skip = n
	return nil
}

// Limit configures the maximum number of matches to yield; n <= 0 means
// unlimited.
func (c *Cursor) Limit(n int) error {
	if c.materialized {
		return ErrCursorMaterialized
	}
	c.limit = n
	return nil
}

func (c *Cursor) materialize() {
	if c.materialized {
		return
	}
	c.materialized = true

	snapshot := c.coll.snapshotDocs()
	matched := make([]*document.Doc, 0, len(snapshot))
	for _, d := range snapshot {
		if c.matcher(d) {
			matched = append(matched, d)
		}
	}
	c.matchCount = len(matched)

	if c.sort != nil && c.sort.Len() > 0 {
		sortDocs(matched, c.sort)
	}

	start := c.skip
	if start > len(matched) {
		start = len(matched)
	}
	windowed := matched[start:]
	if c.limit > 0 && c.limit < len(windowed) {
		windowed = windowed[:c.limit]
	}
	c.items = windowed
}

func sortDocs(docs []*document.Doc, spec *document.Doc) {
	fields := spec.Fields()
	sort.SliceStable(docs, func(i, j int) bool {
		for _, f := range fields {
			dir := 1
			if n, ok := f.Value.(float64); ok && n < 0 {
				dir = -1
			}
			vi, _ := docs[i].Get(f.Key)
			vj, _ := docs[j].Get(f.Key)
			c := document.Compare(vi, vj) * dir
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// HasNext advances lazily and reports whether a further call to Next
// would succeed.
func (c *Cursor) HasNext() bool {
	c.materialize()
	return c.pos < len(c.items)
}

// Next consumes and returns the next projected document, or io.EOF once
// exhausted.
func (c *Cursor) Next() (*document.Doc, error) {
	c.materialize()
	if c.pos >= len(c.items) {
		return nil, io.EOF
	}
	doc := c.items[c.pos]
	c.pos++
	return c.projector(doc), nil
}

// Fetch materializes and returns every remaining document.
func (c *Cursor) Fetch() ([]*document.Doc, error) {
	c.materialize()
	out := make([]*document.Doc, 0, len(c.items)-c.pos)
	for c.pos < len(c.items) {
		out = append(out, c.projector(c.items[c.pos]))
		c.pos++
	}
	return out, nil
}

// ForEach applies fn, in iteration order, to every remaining document,
// stopping at the first error fn returns.
func (c *Cursor) ForEach(fn func(*document.Doc) error) error {
	for {
		doc, err := c.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}

// Count returns the number of matches ignoring skip/limit.
func (c *Cursor) Count() int {
	c.materialize()
	return c.matchCount
}

// Size returns the number of matches this cursor will yield, honoring
// skip/limit.
func (c *Cursor) Size() int {
	c.materialize()
	return len(c.items)
}
