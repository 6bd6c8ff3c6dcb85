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
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ardenlabs/docstore/document"
	"github.com/ardenlabs/docstore/document/objectid"
	"github.com/ardenlabs/docstore/projection"
	"github.com/ardenlabs/docstore/selector"
	"github.com/ardenlabs/docstore/store"
	"github.com/ardenlabs/docstore/tracing"
	"github.com/ardenlabs/docstore/updateop"
)

// Collection owns an ordered sequence of documents and mediates every
// insert/find/update/remove against it, per spec.md §3's "collection
// state" and §4.6's operation semantics.
type Collection struct {
	name     string
	fullName string
	db       *Database

	mu        sync.Mutex
	docs      []*document.Doc
	indexByID map[string]int
	snapshots map[string][]*document.Doc
}

// Name returns the collection's unqualified name.
func (c *Collection) Name() string { return c.name }

// FullName returns "<database>.<collection>".
func (c *Collection) FullName() string { return c.fullName }

func (c *Collection) renameTo(dbName, newName string) {
	c.mu.Lock()
	c.name = newName
	c.fullName = dbName + "." + newName
	c.mu.Unlock()
}

// snapshotDocs returns a copy of the collection's current document slice
// header, safe for a cursor to iterate without observing later inserts.
func (c *Collection) snapshotDocs() []*document.Doc {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*document.Doc, len(c.docs))
	copy(out, c.docs)
	return out
}

// UpdateResult is the {updated, inserted} shape spec.md §4.6 documents
// for Update.
type UpdateResult struct {
	UpdatedDocuments  []*document.Doc
	UpdatedCount      int
	InsertedDocuments []*document.Doc
	InsertedCount     int
}

// Insert deep-copies doc, normalizes its _id, stamps its generation
// timestamp, and appends it to the collection, per spec.md §4.6.
// Top-level field names are checked with document.ValidateFieldName;
// names inside nested documents are not checked.
func (c *Collection) Insert(ctx context.Context, doc *document.Doc) (_ *document.Doc, err error) {
	spanCtx, finish := tracing.StartSpan(ctx, "insert", c.fullName)
	defer func() { tracing.SetError(spanCtx, err); finish() }()

	if doc == nil {
		return nil, newValidationError("insert: document must not be nil")
	}
	for _, f := range doc.Fields() {
		if err := document.ValidateFieldName(f.Key); err != nil {
			return nil, newValidationError("insert: " + err.Error())
		}
	}

	stored := doc.Clone()
	idValue, idString, genTime := normalizeID(stored)
	stored.Set("_id", idValue)
	stored.Set("timestamp", genTime)

	c.mu.Lock()
	if _, exists := c.indexByID[idString]; exists {
		c.mu.Unlock()
		return nil, newValidationError("insert: duplicate _id " + idString)
	}
	c.docs = append(c.docs, stored)
	c.indexByID[idString] = len(c.docs) - 1
	c.mu.Unlock()

	c.db.emit(store.Event{Kind: store.EventInsert, Database: c.db.name, Collection: c.name, Doc: stored})
	c.db.logger.WithField("collection", c.fullName).Trace("insert")
	return stored, nil
}

// normalizeID implements spec.md §3's identifier lifecycle rule: a
// present objectid.ObjectID is kept; any other provided value is
// stringified and stripped to its digits; an absent or now-empty value
// is replaced with a fresh identifier. genTime is the identifier's
// embedded creation instant when one exists, else the current time.
func normalizeID(doc *document.Doc) (value interface{}, idString string, genTime time.Time) {
	raw, has := doc.Get("_id")
	if !has {
		id := objectid.New()
		return id, id.Hex(), id.GenerationTime()
	}
	if oid, ok := raw.(objectid.ObjectID); ok {
		return oid, oid.Hex(), oid.GenerationTime()
	}

	stripped := stripNonDigits(stringifyID(raw))
	if stripped == "" {
		id := objectid.New()
		return id, id.Hex(), id.GenerationTime()
	}
	return stripped, stripped, time.Now().UTC()
}

func stringifyID(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Find compiles sel and fields into a matcher/projector pair and returns
// a cursor over the collection's current snapshot, per spec.md §4.6.
// When opts.ForceFetch is set, docs is populated and cur is nil.
func (c *Collection) Find(ctx context.Context, sel interface{}, fields *document.Doc, opts Options) (cur *Cursor, docs []*document.Doc, err error) {
	spanCtx, finish := tracing.StartSpan(ctx, "find", c.fullName)
	defer func() { tracing.SetError(spanCtx, err); finish() }()

	matcher, err := selector.CompileWithOptions(sel, selector.Options{MaxDepth: c.db.cfg.MaxDocumentDepth})
	if err != nil {
		return nil, nil, err
	}

	fieldSpec := fields
	if opts.Fields != nil {
		fieldSpec = opts.Fields
	}
	projector, err := projection.Compile(fieldSpec)
	if err != nil {
		return nil, nil, err
	}

	cursor := newCursor(c, matcher, projector)
	cursor.skip = opts.Skip
	cursor.limit = c.db.cfg.Limit
	if opts.Limit != nil {
		cursor.limit = *opts.Limit
	}

	c.db.emit(store.Event{Kind: store.EventFind, Database: c.db.name, Collection: c.name, Selector: sel, Fields: fieldSpec})

	if opts.ForceFetch {
		fetched, err := cursor.Fetch()
		if err != nil {
			return nil, nil, err
		}
		return nil, fetched, nil
	}
	return cursor, nil, nil
}

// FindOne is Find followed by consuming a single element, per spec.md
// §4.6.
func (c *Collection) FindOne(ctx context.Context, sel interface{}, fields *document.Doc, opts Options) (*document.Doc, error) {
	opts.Limit = intPtr(1)
	opts.ForceFetch = false
	cursor, _, err := c.Find(ctx, sel, fields, opts)
	if err != nil {
		return nil, err
	}
	doc, err := cursor.Next()
	if err == io.EOF {
		c.db.emit(store.Event{Kind: store.EventFindOne, Database: c.db.name, Collection: c.name, Selector: sel})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.db.emit(store.Event{Kind: store.EventFindOne, Database: c.db.name, Collection: c.name, Selector: sel, Doc: doc})
	return doc, nil
}

// Update applies update to the documents sel matches, per spec.md §4.4
// and §4.6. The two-phase build-then-commit discipline in updateop.Apply
// means a validation failure on document k of a multi-document update
// leaves every document, including documents 0..k-1, untouched.
func (c *Collection) Update(ctx context.Context, sel interface{}, update *document.Doc, opts Options) (_ UpdateResult, err error) {
	spanCtx, finish := tracing.StartSpan(ctx, "update", c.fullName)
	defer func() { tracing.SetError(spanCtx, err); finish() }()

	matcher, err := selector.CompileWithOptions(sel, selector.Options{MaxDepth: c.db.cfg.MaxDocumentDepth})
	if err != nil {
		return UpdateResult{}, err
	}
	isModifier, err := updateop.IsModifierDocument(update)
	if err != nil {
		return UpdateResult{}, err
	}

	c.mu.Lock()
	var targets []int
	for i, d := range c.docs {
		if matcher(d) {
			targets = append(targets, i)
			if !opts.Multi {
				break
			}
		}
	}

	if len(targets) == 0 {
		c.mu.Unlock()
		if !opts.Upsert {
			return UpdateResult{}, nil
		}
		inserted, err := c.Insert(ctx, update)
		if err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{InsertedDocuments: []*document.Doc{inserted}, InsertedCount: 1}, nil
	}

	if !isModifier && len(targets) > 1 {
		c.mu.Unlock()
		return UpdateResult{}, newValidationError("cannot update several documents when no update operators are included")
	}

	mode := updateop.ModeStrict
	if opts.UpdateAsMongo != nil {
		if !*opts.UpdateAsMongo {
			mode = updateop.ModeLenient
		}
	} else if !c.db.cfg.UpdateAsMongo {
		mode = updateop.ModeLenient
	}

	uopts := updateop.Options{
		Mode:     mode,
		Override: opts.Override,
		Warn:     func(msg string) { c.db.logger.WithField("collection", c.fullName).Warn(msg) },
		MaxDepth: c.db.cfg.MaxDocumentDepth,
	}

	newDocs := make([]*document.Doc, len(targets))
	for k, idx := range targets {
		nd, err := updateop.Apply(c.docs[idx], update, uopts)
		if err != nil {
			c.mu.Unlock()
			return UpdateResult{}, err
		}
		newDocs[k] = nd
	}
	for k, idx := range targets {
		c.docs[idx] = newDocs[k]
	}
	c.mu.Unlock()

	c.db.emit(store.Event{Kind: store.EventUpdate, Database: c.db.name, Collection: c.name, Docs: newDocs, Selector: sel, Modifier: update})
	return UpdateResult{UpdatedDocuments: newDocs, UpdatedCount: len(newDocs)}, nil
}

// Remove deletes every document sel matches (or just the first, with
// opts.JustOne), per spec.md §4.6.
func (c *Collection) Remove(ctx context.Context, sel interface{}, opts Options) (_ []*document.Doc, err error) {
	spanCtx, finish := tracing.StartSpan(ctx, "remove", c.fullName)
	defer func() { tracing.SetError(spanCtx, err); finish() }()

	matcher, err := selector.CompileWithOptions(sel, selector.Options{MaxDepth: c.db.cfg.MaxDocumentDepth})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	removed := make([]*document.Doc, 0)
	kept := make([]*document.Doc, 0, len(c.docs))
	for _, d := range c.docs {
		if (len(removed) == 0 || !opts.JustOne) && matcher(d) {
			removed = append(removed, d)
			continue
		}
		kept = append(kept, d)
	}
	c.docs = kept
	c.rebuildIndexLocked()
	c.mu.Unlock()

	if len(removed) > 0 {
		c.db.emit(store.Event{Kind: store.EventRemove, Database: c.db.name, Collection: c.name, Docs: removed, Selector: sel})
	}
	return removed, nil
}

func (c *Collection) rebuildIndexLocked() {
	c.indexByID = make(map[string]int, len(c.docs))
	for i, d := range c.docs {
		if id, ok := d.Get("_id"); ok {
			c.indexByID[stringifyID(id)] = i
		}
	}
}

// Snapshot deep-copies the collection's current document sequence and
// stores it under id, per spec.md §3's "snapshots" utility and
// SPEC_FULL.md §10's fix for the original's by-reference backup bug.
func (c *Collection) Snapshot(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make([]*document.Doc, len(c.docs))
	for i, d := range c.docs {
		copied[i] = d.Clone()
	}
	c.snapshots[id] = copied
	c.db.emit(store.Event{Kind: store.EventSnapshot, Database: c.db.name, Collection: c.name})
}

// Restore replaces the collection's live documents with a deep copy of
// the snapshot saved under id.
func (c *Collection) Restore(id string) error {
	c.mu.Lock()
	snap, ok := c.snapshots[id]
	if !ok {
		c.mu.Unlock()
		return newNotFoundError("no snapshot " + id)
	}
	restored := make([]*document.Doc, len(snap))
	for i, d := range snap {
		restored[i] = d.Clone()
	}
	c.docs = restored
	c.rebuildIndexLocked()
	c.mu.Unlock()

	c.db.emit(store.Event{Kind: store.EventRestore, Database: c.db.name, Collection: c.name})
	return nil
}
