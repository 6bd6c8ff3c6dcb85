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
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ardenlabs/docstore/config"
	"github.com/ardenlabs/docstore/document"
	"github.com/ardenlabs/docstore/store"
)

// Database is a named registry of collections plus a fan-out list of
// observer stores, spec.md §3's "database state." Grounded on engine.go's
// Config/New/Engine shape: a struct built through an explicit
// constructor (Registry.Open), holding its collections behind a mutex
// rather than relying on a goroutine or global map.
type Database struct {
	name     string
	registry *Registry

	mu          sync.RWMutex
	collections map[string]*Collection
	stores      []store.Store

	cfg    config.Defaults
	logger *logrus.Logger
}

// Name returns the database's name.
func (db *Database) Name() string { return db.name }

// Collection returns the named collection, creating it (and emitting
// EventCreateCollection) on first reference.
func (db *Database) Collection(name string) (*Collection, error) {
	if err := validateCollectionName(name); err != nil {
		return nil, err
	}

	db.mu.Lock()
	c, exists := db.collections[name]
	if !exists {
		c = &Collection{
			name:      name,
			fullName:  db.name + "." + name,
			db:        db,
			indexByID: map[string]int{},
			snapshots: map[string][]*document.Doc{},
		}
		db.collections[name] = c
	}
	db.mu.Unlock()

	if !exists {
		db.emit(store.Event{Kind: store.EventCreateCollection, Database: db.name, Collection: name})
	}
	return c, nil
}

// DropCollection removes the named collection, reporting whether it
// existed.
func (db *Database) DropCollection(name string) (bool, error) {
	db.mu.Lock()
	_, exists := db.collections[name]
	if exists {
		delete(db.collections, name)
	}
	db.mu.Unlock()

	if exists {
		db.emit(store.Event{Kind: store.EventDropCollection, Database: db.name, Collection: name})
	}
	return exists, nil
}

// RenameCollection moves a collection from one name to another within
// the same database, failing with NotFoundError if from doesn't exist or
// ConflictError if to already does.
func (db *Database) RenameCollection(from, to string) (*Collection, error) {
	if err := validateCollectionName(to); err != nil {
		return nil, err
	}

	db.mu.Lock()
	c, exists := db.collections[from]
	if !exists {
		db.mu.Unlock()
		return nil, newNotFoundError("collection " + from + " not found")
	}
	if _, taken := db.collections[to]; taken {
		db.mu.Unlock()
		return nil, newConflictError("collection " + to + " already exists")
	}
	delete(db.collections, from)
	c.renameTo(db.name, to)
	db.collections[to] = c
	db.mu.Unlock()

	db.emit(store.Event{Kind: store.EventRenameCollection, Database: db.name, From: from, To: to})
	return c, nil
}

// Collections returns every open collection, in no particular order.
func (db *Database) Collections() []*Collection {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*Collection, 0, len(db.collections))
	for _, c := range db.collections {
		out = append(out, c)
	}
	return out
}

// CollectionNames returns the names of every open collection.
func (db *Database) CollectionNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, 0, len(db.collections))
	for name := range db.collections {
		out = append(out, name)
	}
	return out
}

// DropDatabase discards every collection and releases the database's
// name back to its registry.
func (db *Database) DropDatabase() (bool, error) {
	db.mu.Lock()
	db.collections = map[string]*Collection{}
	db.mu.Unlock()

	db.registry.forget(db.name)
	db.emit(store.Event{Kind: store.EventDropDatabase, Database: db.name})
	return true, nil
}

// AddStore registers an observer store to receive every mutation event
// from every collection of db, and returns db for chaining.
func (db *Database) AddStore(s store.Store) *Database {
	db.mu.Lock()
	db.stores = append(db.stores, s)
	db.mu.Unlock()
	return db
}

func (db *Database) emit(ev store.Event) {
	db.mu.RLock()
	stores := make([]store.Store, len(db.stores))
	copy(stores, db.stores)
	db.mu.RUnlock()

	for _, s := range stores {
		s.Handle(ev)
	}
}
