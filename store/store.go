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

// Package store defines the observer-store plug-in surface spec.md §6
// describes as the database's "event channel": collection and database
// operations (find and findOne included) publish one Event to every
// registered Store; an update or remove that touches no document
// publishes none.
//
// Replacing the original's "call this method by name" dispatch, Event
// carries a typed EventKind, and Store exposes a single Handle method —
// the same single-method, switch-inside shape driver.Provider gives the
// teacher's external-system resolver. Funcs adapts that single method
// into one optional callback per kind, for callers who want the
// original's per-event-handler ergonomics without writing the switch
// themselves, grounded on auth/none.go's minimal-adapter-over-a-bigger-
// interface idiom.
package store

import "github.com/ardenlabs/docstore/document"

// EventKind discriminates the event names spec.md §6 lists.
type EventKind int

const (
	EventInsert EventKind = iota
	EventFind
	EventFindOne
	EventUpdate
	EventRemove
	EventCreateCollection
	EventDropCollection
	EventRenameCollection
	EventDropDatabase
	EventSnapshot
	EventRestore
)

// String names the kind for logging, matching spec.md §6's event names.
func (k EventKind) String() string {
	switch k {
	case EventInsert:
		return "insert"
	case EventFind:
		return "find"
	case EventFindOne:
		return "findOne"
	case EventUpdate:
		return "update"
	case EventRemove:
		return "remove"
	case EventCreateCollection:
		return "createCollection"
	case EventDropCollection:
		return "dropCollection"
	case EventRenameCollection:
		return "renameCollection"
	case EventDropDatabase:
		return "dropDatabase"
	case EventSnapshot:
		return "snapshot"
	case EventRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// Event is the payload published to every registered Store after a
// mutation commits. Only the fields relevant to Kind are populated; the
// rest are left at their zero value.
type Event struct {
	Kind       EventKind
	Database   string
	Collection string

	Doc      *document.Doc
	Docs     []*document.Doc
	Selector interface{}
	Fields   interface{}
	Modifier *document.Doc
	Options  map[string]interface{}
	From, To string
}

// Store receives mutation events from every collection of the database(s)
// it is registered with. Implementations must treat Doc/Docs as
// read-only: the database may reuse the backing document after Handle
// returns.
type Store interface {
	Handle(ev Event)
}

// Funcs adapts Store into one optional callback per EventKind, the same
// ergonomics as a catch-all handler plus per-event overrides. A nil field
// means "ignore this kind."
type Funcs struct {
	OnInsert           func(Event)
	OnFind             func(Event)
	OnFindOne          func(Event)
	OnUpdate           func(Event)
	OnRemove           func(Event)
	OnCreateCollection func(Event)
	OnDropCollection   func(Event)
	OnRenameCollection func(Event)
	OnDropDatabase     func(Event)
	OnSnapshot         func(Event)
	OnRestore          func(Event)
	// All, if set, runs after the per-kind handler for every event.
	All func(Event)
}

// Handle implements Store by dispatching to the matching optional field.
func (f Funcs) Handle(ev Event) {
	switch ev.Kind {
	case EventInsert:
		call(f.OnInsert, ev)
	case EventFind:
		call(f.OnFind, ev)
	case EventFindOne:
		call(f.OnFindOne, ev)
	case EventUpdate:
		call(f.OnUpdate, ev)
	case EventRemove:
		call(f.OnRemove, ev)
	case EventCreateCollection:
		call(f.OnCreateCollection, ev)
	case EventDropCollection:
		call(f.OnDropCollection, ev)
	case EventRenameCollection:
		call(f.OnRenameCollection, ev)
	case EventDropDatabase:
		call(f.OnDropDatabase, ev)
	case EventSnapshot:
		call(f.OnSnapshot, ev)
	case EventRestore:
		call(f.OnRestore, ev)
	}
	call(f.All, ev)
}

func call(fn func(Event), ev Event) {
	if fn != nil {
		fn(ev)
	}
}

var _ Store = Funcs{}
