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

package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardenlabs/docstore"
	"github.com/ardenlabs/docstore/document"
)

func newCollection(t *testing.T) *docstore.Collection {
	t.Helper()
	db, err := docstore.NewRegistry().Open("shop")
	require.NoError(t, err)
	c, err := db.Collection("orders")
	require.NoError(t, err)
	return c
}

func TestInsertNormalizesNumericID(t *testing.T) {
	c := newCollection(t)
	stored, err := c.Insert(context.Background(), document.FromPairs("_id", 7.0, "name", "a"))
	require.NoError(t, err)

	id, _ := stored.Get("_id")
	require.Equal(t, "7", id)
	require.True(t, stored.Has("timestamp"))
}

func TestInsertAssignsDistinctHexIDsWhenAbsent(t *testing.T) {
	c := newCollection(t)
	a, err := c.Insert(context.Background(), document.FromPairs("name", "x"))
	require.NoError(t, err)
	b, err := c.Insert(context.Background(), document.FromPairs("name", "x"))
	require.NoError(t, err)

	idA, _ := a.Get("_id")
	idB, _ := b.Get("_id")
	require.NotEqual(t, idA, idB)
	require.Len(t, idA.(interface{ Hex() string }).Hex(), 24)
}

func TestFindInsertionOrderPreserved(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	_, _ = c.Insert(ctx, document.FromPairs("a", 1.0))
	_, _ = c.Insert(ctx, document.FromPairs("a", 2.0))
	_, _ = c.Insert(ctx, document.FromPairs("a", 3.0))

	cur, _, err := c.Find(ctx, document.FromPairs("a", document.FromPairs("$gt", 1.0)), nil, docstore.Options{})
	require.NoError(t, err)
	docs, err := cur.Fetch()
	require.NoError(t, err)

	require.Len(t, docs, 2)
	a0, _ := docs[0].Get("a")
	a1, _ := docs[1].Get("a")
	require.Equal(t, 2.0, a0)
	require.Equal(t, 3.0, a1)
}

func TestFindByIDAfterInsert(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	stored, err := c.Insert(ctx, document.FromPairs("name", "x"))
	require.NoError(t, err)
	id, _ := stored.Get("_id")

	doc, err := c.FindOne(ctx, document.FromPairs("_id", id), nil, docstore.Options{})
	require.NoError(t, err)
	require.NotNil(t, doc)
	gotID, _ := doc.Get("_id")
	require.Equal(t, id, gotID)
}

func TestRemoveByIDThenFindYieldsNone(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	stored, err := c.Insert(ctx, document.FromPairs("name", "x"))
	require.NoError(t, err)
	id, _ := stored.Get("_id")

	_, err = c.Remove(ctx, document.FromPairs("_id", id), docstore.Options{})
	require.NoError(t, err)

	doc, err := c.FindOne(ctx, document.FromPairs("_id", id), nil, docstore.Options{})
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestArrayQueries(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	_, err := c.Insert(ctx, document.FromPairs("a", document.Array{1.0, 2.0, 3.0}))
	require.NoError(t, err)

	cur, _, err := c.Find(ctx, document.FromPairs("a", 2.0), nil, docstore.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, cur.Count())

	cur, _, err = c.Find(ctx, document.FromPairs("a", document.FromPairs("$all", document.Array{2.0, 3.0})), nil, docstore.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, cur.Count())

	cur, _, err = c.Find(ctx, document.FromPairs("a", document.FromPairs("$size", 3.0)), nil, docstore.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, cur.Count())
}

func TestUpdateIncRoundTrip(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	stored, err := c.Insert(ctx, document.FromPairs("a", 1.0))
	require.NoError(t, err)
	id, _ := stored.Get("_id")

	sel := document.FromPairs("_id", id)
	_, err = c.Update(ctx, sel, document.FromPairs("$inc", document.FromPairs("a", 5.0)), docstore.Options{})
	require.NoError(t, err)
	_, err = c.Update(ctx, sel, document.FromPairs("$inc", document.FromPairs("a", 5.0)), docstore.Options{})
	require.NoError(t, err)

	doc, err := c.FindOne(ctx, sel, nil, docstore.Options{})
	require.NoError(t, err)
	a, _ := doc.Get("a")
	require.Equal(t, 11.0, a)
}

func TestUpdateReplacementRejectsMultipleMatches(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	_, _ = c.Insert(ctx, document.FromPairs("a", 1.0))
	_, _ = c.Insert(ctx, document.FromPairs("a", 1.0))

	_, err := c.Update(ctx, document.FromPairs("a", 1.0), document.FromPairs("b", 2.0), docstore.Options{Multi: true})
	require.Error(t, err)
}

func TestUpdateMultiSetAppliesToEveryMatch(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	_, _ = c.Insert(ctx, document.FromPairs("a", 1.0))
	_, _ = c.Insert(ctx, document.FromPairs("a", 1.0))
	_, _ = c.Insert(ctx, document.FromPairs("a", 2.0))

	result, err := c.Update(ctx, document.New(), document.FromPairs("$set", document.FromPairs("x", 1.0)), docstore.Options{Multi: true})
	require.NoError(t, err)
	require.Equal(t, 3, result.UpdatedCount)
}

func TestRemoveWithLtLeavesRemainingInOrder(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	_, _ = c.Insert(ctx, document.FromPairs("a", 1.0))
	_, _ = c.Insert(ctx, document.FromPairs("a", 2.0))
	_, _ = c.Insert(ctx, document.FromPairs("a", 3.0))

	removed, err := c.Remove(ctx, document.FromPairs("a", document.FromPairs("$lt", 3.0)), docstore.Options{})
	require.NoError(t, err)
	require.Len(t, removed, 2)

	cur, _, err := c.Find(ctx, nil, nil, docstore.Options{})
	require.NoError(t, err)
	remaining, err := cur.Fetch()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	a, _ := remaining[0].Get("a")
	require.Equal(t, 3.0, a)
}

func TestUpsertInsertsWhenNoMatch(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()

	result, err := c.Update(ctx, document.FromPairs("missing", true), document.FromPairs("a", 1.0), docstore.Options{Upsert: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.InsertedCount)
}

func TestSnapshotRestoreDeepCopies(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	stored, err := c.Insert(ctx, document.FromPairs("a", 1.0))
	require.NoError(t, err)
	id, _ := stored.Get("_id")

	c.Snapshot("snap1")
	_, err = c.Update(ctx, document.FromPairs("_id", id), document.FromPairs("$set", document.FromPairs("a", 99.0)), docstore.Options{})
	require.NoError(t, err)

	require.NoError(t, c.Restore("snap1"))
	doc, err := c.FindOne(ctx, document.FromPairs("_id", id), nil, docstore.Options{})
	require.NoError(t, err)
	a, _ := doc.Get("a")
	require.Equal(t, 1.0, a)
}

func TestRestoreUnknownSnapshotErrors(t *testing.T) {
	c := newCollection(t)
	err := c.Restore("nope")
	require.Error(t, err)
}

func TestPullThenMembershipTestYieldsNone(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	stored, err := c.Insert(ctx, document.FromPairs("tags", document.Array{"a", "b", "c"}))
	require.NoError(t, err)
	id, _ := stored.Get("_id")

	_, err = c.Update(ctx, document.FromPairs("_id", id), document.FromPairs("$pull", document.FromPairs("tags", "b")), docstore.Options{})
	require.NoError(t, err)

	cur, _, err := c.Find(ctx, document.FromPairs("tags", "b"), nil, docstore.Options{})
	require.NoError(t, err)
	require.Equal(t, 0, cur.Count())
}
