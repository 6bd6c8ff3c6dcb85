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

// Package objectid implements the 12-byte opaque identifier spec.md §3
// defines as the default `_id` value: a big-endian timestamp prefix, a
// per-process random salt, and a per-process atomic counter.
package objectid

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	uuid "github.com/satori/go.uuid"
)

// ObjectID is a 12-byte identifier: bytes 0-3 are the big-endian unix
// second the value was generated, bytes 4-8 are a process-wide random
// salt, and bytes 9-11 are a per-process counter. This is the standard
// ObjectID layout used across the document-database ecosystem.
type ObjectID [12]byte

// processSalt is drawn once per process from a random UUID, standing in
// for the machine+PID salt real ObjectID implementations derive from
// durable host identity — there is none to read in an in-memory store.
var processSalt = func() [5]byte {
	var salt [5]byte
	copy(salt[:], uuid.NewV4().Bytes())
	return salt
}()

var counter uint32

// New generates a fresh, process-unique ObjectID stamped with the current
// time.
func New() ObjectID {
	return newAt(time.Now())
}

func newAt(t time.Time) ObjectID {
	var id ObjectID
	binary.BigEndian.PutUint32(id[0:4], uint32(t.Unix()))
	copy(id[4:9], processSalt[:])
	n := atomic.AddUint32(&counter, 1)
	id[9] = byte(n >> 16)
	id[10] = byte(n >> 8)
	id[11] = byte(n)
	return id
}

// GenerationTime extracts the creation instant embedded in the id.
func (id ObjectID) GenerationTime() time.Time {
	sec := binary.BigEndian.Uint32(id[0:4])
	return time.Unix(int64(sec), 0).UTC()
}

// Hex renders the identifier as the 24-character lowercase hex string
// used as the string form of `_id` throughout the store.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String satisfies fmt.Stringer.
func (id ObjectID) String() string {
	return id.Hex()
}

// IsZero reports whether id is the zero value.
func (id ObjectID) IsZero() bool {
	return id == ObjectID{}
}

// FromHex parses a 24-character hex string into an ObjectID.
func FromHex(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != 24 {
		return id, fmt.Errorf("objectid: invalid hex length %d, want 24", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("objectid: %w", err)
	}
	copy(id[:], b)
	return id, nil
}

// IsValidHex reports whether s could be parsed by FromHex.
func IsValidHex(s string) bool {
	_, err := FromHex(s)
	return err == nil
}
