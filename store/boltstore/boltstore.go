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

// Package boltstore is a concrete store.Store backed by BoltDB: an
// append-only audit log, one bucket per collection full name, keyed by
// Bolt's monotonic NextSequence so entries stay in commit order on disk.
//
// This is the concrete plug-in example spec.md §6 gestures at with
// "observer store," built the way the teacher wires an external resolver
// behind a narrow interface (driver.Provider) rather than embedding
// storage concerns into the core engine.
package boltstore

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/sirupsen/logrus"

	"github.com/ardenlabs/docstore/store"
)

// Store is a store.Store that append-writes every event it receives into
// a BoltDB file, one bucket per "<database>.<collection>" full name.
type Store struct {
	db     *bolt.DB
	logger *logrus.Logger
}

// record is the on-disk shape of one logged event, stored as JSON. The
// payload is a summary of the event (a document count, and from/to for a
// rename); document contents themselves are not written.
type record struct {
	Kind      string      `json:"kind"`
	Database  string      `json:"database"`
	Collection string     `json:"collection"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Open opens (creating if absent) a BoltDB file at path for use as an
// audit log.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying BoltDB file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Handle implements store.Store by appending ev to its collection's
// bucket. A write failure is logged, not returned, since the store
// interface's Handle is fire-and-forget by contract (spec.md §6:
// observers "may retain references... but must treat them as read-only,"
// never block the mutation that produced the event).
func (s *Store) Handle(ev store.Event) {
	bucketName := []byte(ev.Database + "." + ev.Collection)
	rec := record{
		Kind:       ev.Kind.String(),
		Database:   ev.Database,
		Collection: ev.Collection,
		Timestamp:  time.Now().UTC(),
		Payload:    summarize(ev),
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
	if err != nil {
		s.logger.WithError(err).WithField("bucket", string(bucketName)).Warn("boltstore: failed to append event")
	}
}

// Tail returns up to limit of the most recently appended records for the
// given database/collection, oldest first, mainly for inspection and
// tests.
func (s *Store) Tail(database, collection string, limit int) ([]string, error) {
	bucketName := []byte(database + "." + collection)
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		var all [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			cp := make([]byte, len(v))
			copy(cp, v)
			all = append(all, cp)
		}
		if limit > 0 && len(all) > limit {
			all = all[len(all)-limit:]
		}
		for _, v := range all {
			out = append(out, string(v))
		}
		return nil
	})
	return out, err
}

func summarize(ev store.Event) map[string]interface{} {
	m := map[string]interface{}{}
	if ev.Doc != nil {
		m["docCount"] = 1
	}
	if ev.Docs != nil {
		m["docCount"] = len(ev.Docs)
	}
	if ev.From != "" || ev.To != "" {
		m["from"], m["to"] = ev.From, ev.To
	}
	return m
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

var _ store.Store = (*Store)(nil)
