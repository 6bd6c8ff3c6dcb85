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

package projection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardenlabs/docstore/document"
)

func TestCompileNilIsIdentity(t *testing.T) {
	p, err := Compile(nil)
	require.NoError(t, err)
	d := document.FromPairs("a", 1.0)
	require.Same(t, d, p(d))
}

func TestCompileInclusionKeepsIDByDefault(t *testing.T) {
	p, err := Compile(document.FromPairs("name", 1.0))
	require.NoError(t, err)
	d := document.FromPairs("_id", "x1", "name", "ada", "age", 30.0)
	out := p(d)
	require.Equal(t, []string{"_id", "name"}, out.Keys())
}

func TestCompileInclusionExcludeID(t *testing.T) {
	p, err := Compile(document.FromPairs("_id", 0.0, "name", 1.0))
	require.NoError(t, err)
	d := document.FromPairs("_id", "x1", "name", "ada")
	out := p(d)
	require.Equal(t, []string{"name"}, out.Keys())
}

func TestCompileExclusionDropsNamedFields(t *testing.T) {
	p, err := Compile(document.FromPairs("age", 0.0))
	require.NoError(t, err)
	d := document.FromPairs("_id", "x1", "name", "ada", "age", 30.0)
	out := p(d)
	require.Equal(t, []string{"_id", "name"}, out.Keys())
}

func TestCompileMixedRejected(t *testing.T) {
	_, err := Compile(document.FromPairs("name", 1.0, "age", 0.0))
	require.Error(t, err)
	require.True(t, ErrMixedProjection.Is(err))
}

func TestCompileNestedInclusion(t *testing.T) {
	addr := document.FromPairs("city", "nyc", "zip", "10001")
	p, err := Compile(document.FromPairs("address.city", 1.0))
	require.NoError(t, err)
	d := document.FromPairs("_id", "x1", "address", addr)
	out := p(d)

	got, _ := out.Get("address")
	sub := got.(*document.Doc)
	require.Equal(t, []string{"city"}, sub.Keys())
}

func TestCompileNestedExclusion(t *testing.T) {
	addr := document.FromPairs("city", "nyc", "zip", "10001")
	p, err := Compile(document.FromPairs("address.zip", 0.0))
	require.NoError(t, err)
	d := document.FromPairs("_id", "x1", "address", addr)
	out := p(d)

	got, _ := out.Get("address")
	sub := got.(*document.Doc)
	require.Equal(t, []string{"city"}, sub.Keys())
}

func TestCompileArrayOfSubdocsProjected(t *testing.T) {
	items := document.Array{
		document.FromPairs("sku", "a1", "qty", 2.0),
		document.FromPairs("sku", "a2", "qty", 3.0),
	}
	p, err := Compile(document.FromPairs("items.sku", 1.0))
	require.NoError(t, err)
	d := document.FromPairs("_id", "o1", "items", items)
	out := p(d)

	got, _ := out.Get("items")
	arr := got.(document.Array)
	require.Len(t, arr, 2)
	require.Equal(t, []string{"sku"}, arr[0].(*document.Doc).Keys())
}
