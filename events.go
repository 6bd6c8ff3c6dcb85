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

import "github.com/ardenlabs/docstore/store"

// Event and EventKind are re-exported so callers implementing Store don't
// need a second import for the types their Handle method receives.
type Event = store.Event

// EventKind re-exports store.EventKind for the same reason.
type EventKind = store.EventKind

const (
	EventInsert           = store.EventInsert
	EventFind             = store.EventFind
	EventFindOne          = store.EventFindOne
	EventUpdate           = store.EventUpdate
	EventRemove           = store.EventRemove
	EventCreateCollection = store.EventCreateCollection
	EventDropCollection   = store.EventDropCollection
	EventRenameCollection = store.EventRenameCollection
	EventDropDatabase     = store.EventDropDatabase
	EventSnapshot         = store.EventSnapshot
	EventRestore          = store.EventRestore
)

// Store re-exports store.Store as the interface AddStore accepts.
type Store = store.Store

// Funcs re-exports store.Funcs.
type Funcs = store.Funcs
