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

package updateop

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardenlabs/docstore/document"
)

func TestApplyReplacementKeepsID(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", 1.0)
	update := document.FromPairs("b", 2.0)
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	id, _ := out.Get("_id")
	require.Equal(t, "x1", id)
	require.False(t, out.Has("a"))
	b, _ := out.Get("b")
	require.Equal(t, 2.0, b)
}

func TestApplyMixedKeysRejected(t *testing.T) {
	stored := document.FromPairs("_id", "x1")
	update := document.FromPairs("$set", document.FromPairs("a", 1.0), "b", 2.0)
	_, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.Error(t, err)
	require.True(t, ErrMixedUpdateKeys.Is(err))
}

func TestApplySet(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", 1.0)
	update := document.FromPairs("$set", document.FromPairs("a", 9.0))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	a, _ := out.Get("a")
	require.Equal(t, 9.0, a)
	orig, _ := stored.Get("a")
	require.Equal(t, 1.0, orig)
}

func TestApplyIncCreatesOnAbsent(t *testing.T) {
	stored := document.FromPairs("_id", "x1")
	update := document.FromPairs("$inc", document.FromPairs("count", 5.0))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	c, _ := out.Get("count")
	require.Equal(t, 5.0, c)
}

func TestApplyIncTwiceAccumulates(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", 1.0)
	update := document.FromPairs("$inc", document.FromPairs("a", 5.0))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	out2, err := Apply(out, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	a, _ := out2.Get("a")
	require.Equal(t, 11.0, a)
}

func TestApplyIncFailsOnNonNumeric(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", "not-a-number")
	update := document.FromPairs("$inc", document.FromPairs("a", 5.0))
	_, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.Error(t, err)
	require.True(t, ErrModifierTypeMismatch.Is(err))
}

func TestApplyUnsetAbsentIsNoop(t *testing.T) {
	stored := document.FromPairs("_id", "x1")
	update := document.FromPairs("$unset", document.FromPairs("missing", ""))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	require.False(t, out.Has("missing"))
}

func TestApplyPushCreatesSingleton(t *testing.T) {
	stored := document.FromPairs("_id", "x1")
	update := document.FromPairs("$push", document.FromPairs("tags", "go"))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	tags, _ := out.Get("tags")
	require.Equal(t, document.Array{"go"}, tags)
}

func TestApplyAddToSetDedupes(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "tags", document.Array{"go"})
	update := document.FromPairs("$addToSet", document.FromPairs("tags", "go"))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	tags, _ := out.Get("tags")
	require.Equal(t, document.Array{"go"}, tags)
}

func TestApplyAddToSetEach(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "tags", document.Array{"go"})
	update := document.FromPairs("$addToSet", document.FromPairs("tags",
		document.FromPairs("$each", document.Array{"go", "rust"})))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	tags, _ := out.Get("tags")
	require.Equal(t, document.Array{"go", "rust"}, tags)
}

func TestApplyPopLastAndFirst(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", document.Array{1.0, 2.0, 3.0})
	out, err := Apply(stored, document.FromPairs("$pop", document.FromPairs("a", 1.0)), Options{Mode: ModeStrict})
	require.NoError(t, err)
	a, _ := out.Get("a")
	require.Equal(t, document.Array{1.0, 2.0}, a)

	out2, err := Apply(stored, document.FromPairs("$pop", document.FromPairs("a", -1.0)), Options{Mode: ModeStrict})
	require.NoError(t, err)
	a2, _ := out2.Get("a")
	require.Equal(t, document.Array{2.0, 3.0}, a2)
}

func TestApplyPullScalar(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", document.Array{1.0, 2.0, 3.0, 2.0})
	out, err := Apply(stored, document.FromPairs("$pull", document.FromPairs("a", 2.0)), Options{Mode: ModeStrict})
	require.NoError(t, err)
	a, _ := out.Get("a")
	require.Equal(t, document.Array{1.0, 3.0}, a)
}

func TestApplyPullSubSelector(t *testing.T) {
	items := document.Array{
		document.FromPairs("qty", 1.0),
		document.FromPairs("qty", 10.0),
	}
	stored := document.FromPairs("_id", "x1", "items", items)
	update := document.FromPairs("$pull", document.FromPairs("items",
		document.FromPairs("qty", document.FromPairs("$gt", 5.0))))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	got, _ := out.Get("items")
	require.Len(t, got.(document.Array), 1)
}

func TestApplyPullAll(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", document.Array{1.0, 2.0, 3.0})
	update := document.FromPairs("$pullAll", document.FromPairs("a", document.Array{1.0, 3.0}))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	a, _ := out.Get("a")
	require.Equal(t, document.Array{2.0}, a)
}

func TestApplyRename(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "old", 1.0)
	update := document.FromPairs("$rename", document.FromPairs("old", "new"))
	out, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.NoError(t, err)
	require.False(t, out.Has("old"))
	v, _ := out.Get("new")
	require.Equal(t, 1.0, v)
}

func TestApplyRenameSameFieldErrors(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", 1.0)
	update := document.FromPairs("$rename", document.FromPairs("a", "a"))
	_, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.Error(t, err)
	require.True(t, ErrRenameSameField.Is(err))
}

func TestApplyBitUnsupported(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", 1.0)
	update := document.FromPairs("$bit", document.FromPairs("a", document.FromPairs("and", 1.0)))
	_, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.Error(t, err)
	require.True(t, ErrUnsupportedModifier.Is(err))
}

func TestApplyLenientOverrideReplacesWholeDoc(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", 1.0, "b", 2.0)
	update := document.FromPairs("c", 3.0)
	out, err := Apply(stored, update, Options{Mode: ModeLenient, Override: true})
	require.NoError(t, err)
	require.False(t, out.Has("a"))
	c, _ := out.Get("c")
	require.Equal(t, 3.0, c)
}

func TestApplyLenientShallowOnlyExistingFields(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", 1.0, "b", 2.0)
	update := document.FromPairs("a", 9.0, "c", 3.0)
	var warned string
	out, err := Apply(stored, update, Options{Mode: ModeLenient, Warn: func(msg string) { warned = msg }})
	require.NoError(t, err)
	a, _ := out.Get("a")
	require.Equal(t, 9.0, a)
	require.False(t, out.Has("c"))
	b, _ := out.Get("b")
	require.Equal(t, 2.0, b)
	require.NotEmpty(t, warned)
}

func TestApplyFailureLeavesStoredUntouched(t *testing.T) {
	stored := document.FromPairs("_id", "x1", "a", "nope")
	update := document.FromPairs("$inc", document.FromPairs("a", 1.0))
	_, err := Apply(stored, update, Options{Mode: ModeStrict})
	require.Error(t, err)
	a, _ := stored.Get("a")
	require.Equal(t, "nope", a)
}
