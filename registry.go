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

// Package docstore implements the in-memory, schemaless document store:
// named databases hosting named collections of documents identified by
// an opaque _id, queried and mutated through the selector/projection/
// updateop compilers.
package docstore

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ardenlabs/docstore/config"
)

// Registry tracks database names that are currently open, so a second
// attempt to open the same name fails — spec.md §3's "process-wide
// registry of database names," turned into an explicit object per
// SPEC_FULL.md §11 rather than package-level mutable state, the same way
// the teacher's engine.New takes an explicit *analyzer.Analyzer instead
// of reaching for a global.
type Registry struct {
	mu        sync.Mutex
	databases map[string]*Database
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{databases: map[string]*Database{}}
}

// Open opens a new database named name under r, failing with a
// ConflictError if name is already open in this registry. An optional
// config.Defaults overrides the documented defaults (config.Default())
// for this database.
func (r *Registry) Open(name string, cfg ...config.Defaults) (*Database, error) {
	if err := validateDatabaseName(name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.databases[name]; exists {
		return nil, newConflictError("database " + name + " is already open")
	}

	defaults := config.Default()
	if len(cfg) > 0 {
		defaults = cfg[0]
	}

	db := &Database{
		name:        name,
		registry:    r,
		collections: map[string]*Collection{},
		cfg:         defaults,
		logger:      logrus.StandardLogger(),
	}
	r.databases[name] = db
	return db, nil
}

func (r *Registry) forget(name string) {
	r.mu.Lock()
	delete(r.databases, name)
	r.mu.Unlock()
}

var defaultRegistry = NewRegistry()

// Open is a convenience that opens name against a package-level default
// Registry, for callers who don't need multiple independent registries
// in one process.
func Open(name string, cfg ...config.Defaults) (*Database, error) {
	return defaultRegistry.Open(name, cfg...)
}

func validateDatabaseName(name string) error {
	if name == "" {
		return newValidationError("database name must not be empty")
	}
	if strings.ContainsAny(name, " .$/\\") {
		return newValidationError("database name must not contain space, '.', '$', '/', or '\\': " + name)
	}
	return nil
}

func validateCollectionName(name string) error {
	if name == "" {
		return newValidationError("collection name must not be empty")
	}
	if name != "$cmd" && name != "oplog.$main" {
		if strings.Contains(name, "..") {
			return newValidationError("collection name must not contain '..': " + name)
		}
		if strings.Contains(name, "$") {
			return newValidationError("collection name must not contain '$': " + name)
		}
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return newValidationError("collection name must not start or end with '.': " + name)
	}
	return nil
}
