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
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardenlabs/docstore"
	"github.com/ardenlabs/docstore/document"
)

func seededCursor(t *testing.T, values ...float64) *docstore.Cursor {
	t.Helper()
	c := newCollection(t)
	ctx := context.Background()
	for _, v := range values {
		_, err := c.Insert(ctx, document.FromPairs("a", v))
		require.NoError(t, err)
	}
	cur, _, err := c.Find(ctx, document.New(), nil, docstore.Options{})
	require.NoError(t, err)
	return cur
}

func TestCursorHasNextNextExhaustion(t *testing.T) {
	cur := seededCursor(t, 1, 2)

	require.True(t, cur.HasNext())
	first, err := cur.Next()
	require.NoError(t, err)
	a, _ := first.Get("a")
	require.Equal(t, 1.0, a)

	require.True(t, cur.HasNext())
	_, err = cur.Next()
	require.NoError(t, err)

	require.False(t, cur.HasNext())
	_, err = cur.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestCursorConfigurationRejectedAfterMaterialize(t *testing.T) {
	cur := seededCursor(t, 1, 2)
	require.True(t, cur.HasNext())

	require.ErrorIs(t, cur.Skip(1), docstore.ErrCursorMaterialized)
	require.ErrorIs(t, cur.Limit(1), docstore.ErrCursorMaterialized)
	require.ErrorIs(t, cur.Sort(document.FromPairs("a", 1.0)), docstore.ErrCursorMaterialized)
}

func TestCursorSortStableTieBreakIsInsertionOrder(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	_, _ = c.Insert(ctx, document.FromPairs("a", 1.0, "seq", 1.0))
	_, _ = c.Insert(ctx, document.FromPairs("a", 1.0, "seq", 2.0))
	_, _ = c.Insert(ctx, document.FromPairs("a", 0.0, "seq", 3.0))

	cur, _, err := c.Find(ctx, document.New(), nil, docstore.Options{})
	require.NoError(t, err)
	require.NoError(t, cur.Sort(document.FromPairs("a", 1.0)))

	docs, err := cur.Fetch()
	require.NoError(t, err)
	require.Len(t, docs, 3)
	seq0, _ := docs[0].Get("seq")
	seq1, _ := docs[1].Get("seq")
	seq2, _ := docs[2].Get("seq")
	require.Equal(t, 3.0, seq0)
	require.Equal(t, 1.0, seq1)
	require.Equal(t, 2.0, seq2)
}

func TestCursorSortDescending(t *testing.T) {
	cur := seededCursor(t, 1, 3, 2)
	require.NoError(t, cur.Sort(document.FromPairs("a", -1.0)))

	docs, err := cur.Fetch()
	require.NoError(t, err)
	a0, _ := docs[0].Get("a")
	a1, _ := docs[1].Get("a")
	a2, _ := docs[2].Get("a")
	require.Equal(t, 3.0, a0)
	require.Equal(t, 2.0, a1)
	require.Equal(t, 1.0, a2)
}

func TestCursorSkipLimitWindow(t *testing.T) {
	cur := seededCursor(t, 1, 2, 3, 4, 5)
	require.NoError(t, cur.Skip(1))
	require.NoError(t, cur.Limit(2))

	docs, err := cur.Fetch()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	a0, _ := docs[0].Get("a")
	a1, _ := docs[1].Get("a")
	require.Equal(t, 2.0, a0)
	require.Equal(t, 3.0, a1)
}

func TestCursorCountIgnoresSkipLimitButSizeHonorsIt(t *testing.T) {
	cur := seededCursor(t, 1, 2, 3, 4, 5)
	require.NoError(t, cur.Skip(1))
	require.NoError(t, cur.Limit(2))

	require.Equal(t, 5, cur.Count())
	require.Equal(t, 2, cur.Size())
}

func TestCursorForEachStopsOnError(t *testing.T) {
	cur := seededCursor(t, 1, 2, 3)

	var seen int
	sentinel := require.Error
	err := cur.ForEach(func(doc *document.Doc) error {
		seen++
		if seen == 2 {
			return io.ErrUnexpectedEOF
		}
		return nil
	})
	sentinel(t, err)
	require.Equal(t, 2, seen)
}

func TestCursorSkipBeyondLengthYieldsEmpty(t *testing.T) {
	cur := seededCursor(t, 1, 2)
	require.NoError(t, cur.Skip(10))

	docs, err := cur.Fetch()
	require.NoError(t, err)
	require.Len(t, docs, 0)
}
