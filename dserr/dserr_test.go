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

package dserr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindsAreDistinguishable(t *testing.T) {
	err := ValidationError.New("bad name")
	require.True(t, ValidationError.Is(err))
	require.False(t, NotFoundError.Is(err))
	require.False(t, UnsupportedError.Is(err))
	require.False(t, ConflictError.Is(err))
}
