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

package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventKindString(t *testing.T) {
	require.Equal(t, "insert", EventInsert.String())
	require.Equal(t, "dropDatabase", EventDropDatabase.String())
}

func TestFuncsDispatchesByKind(t *testing.T) {
	var gotInsert, gotAll int
	f := Funcs{
		OnInsert: func(Event) { gotInsert++ },
		All:      func(Event) { gotAll++ },
	}
	f.Handle(Event{Kind: EventInsert})
	f.Handle(Event{Kind: EventRemove})

	require.Equal(t, 1, gotInsert)
	require.Equal(t, 2, gotAll)
}

func TestFuncsNilFieldsAreSafe(t *testing.T) {
	var f Funcs
	require.NotPanics(t, func() { f.Handle(Event{Kind: EventUpdate}) })
}
