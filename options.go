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

import "github.com/ardenlabs/docstore/document"

// Options bundles the recognized per-call option keys spec.md §6 lists.
// Unknown keys have no Go analogue to ignore — callers simply don't set
// a field they don't need. Pointer fields distinguish "not set, use the
// collection/database default" from an explicit zero value.
type Options struct {
	// Skip drops the first N matches. Zero means no skip.
	Skip int
	// Limit caps cursor yield; nil means "use the operation's default"
	// (15 for find, unlimited for update/remove); a negative value
	// disables the cap explicitly.
	Limit *int
	// Fields overrides the positional projection argument when set.
	Fields *document.Doc
	// Chain requests the fluent form: return the collection instead of
	// the operation's result. Collection methods that honor it document
	// so explicitly; most callers leave this false.
	Chain bool
	// ForceFetch makes Find return a materialized slice instead of a
	// *Cursor.
	ForceFetch bool
	// UpdateAsMongo selects strict (true) vs lenient (false) update
	// mode for this call; nil defers to the database's configured
	// default.
	UpdateAsMongo *bool
	// Override, in lenient mode, does a whole-document replacement
	// instead of the shallow existing-fields-only merge.
	Override bool
	// Upsert inserts the update document when the selector matches
	// nothing.
	Upsert bool
	// Multi applies an update to every match instead of just the first.
	// Remove ignores it: remove already takes every match unless JustOne
	// is set.
	Multi bool
	// JustOne stops remove after the first match, overriding its
	// default of removing every match.
	JustOne bool
}

func intPtr(n int) *int { return &n }
