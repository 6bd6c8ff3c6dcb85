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

package document

import (
	"bytes"
	"time"

	"github.com/mitchellh/hashstructure"

	"github.com/ardenlabs/docstore/document/objectid"
)

// Kind discriminates the tagged variants a document value may hold.
type Kind int

// The recognized value kinds, in the type-class order spec.md §4.2 defines
// for cross-type comparison: numbers < strings < objects < arrays <
// booleans < null.
const (
	KindNumber Kind = iota
	KindString
	KindObject
	KindArray
	KindBoolean
	KindNull
	// KindObjectID and KindTimestamp don't appear in the spec's ordering
	// table; they sort alongside strings, since both are represented as
	// opaque tokens rather than numbers in the original store.
	KindObjectID
	KindTimestamp
)

// KindOf returns the tagged variant of v.
func KindOf(v interface{}) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBoolean
	case float64, float32, int, int64, int32:
		return KindNumber
	case string:
		return KindString
	case objectid.ObjectID:
		return KindObjectID
	case time.Time:
		return KindTimestamp
	case Array:
		return KindArray
	case *Doc:
		return KindObject
	default:
		return KindNull
	}
}

// classRank orders the Kinds per spec.md's comparison table. ObjectID and
// Timestamp are ranked with strings, the nearest class for an opaque
// comparable token.
func classRank(k Kind) int {
	switch k {
	case KindNumber:
		return 0
	case KindString, KindObjectID, KindTimestamp:
		return 1
	case KindObject:
		return 2
	case KindArray:
		return 3
	case KindBoolean:
		return 4
	default: // KindNull
		return 5
	}
}

// toFloat normalizes the numeric Go representations we accept into
// float64, matching the "all numbers are float64" rule in SPEC_FULL.md §3.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Compare implements the type-aware total order spec.md §4.2 requires for
// $lt/$lte/$gt/$gte and for cursor sort. Values of different type classes
// never compare equal; within a class, ties are broken per the rules
// below.
func Compare(a, b interface{}) int {
	ka, kb := KindOf(a), KindOf(b)
	ra, rb := classRank(ka), classRank(kb)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ka {
	case KindNumber:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case KindString, KindObjectID, KindTimestamp:
		sa, sb := stringOf(a), stringOf(b)
		return bytes.Compare([]byte(sa), []byte(sb))
	case KindBoolean:
		ba, bb := a.(bool), b.(bool)
		if ba == bb {
			return 0
		}
		if !ba {
			return -1
		}
		return 1
	case KindArray:
		return compareArrays(a.(Array), b.(Array))
	case KindObject:
		return compareDocs(a.(*Doc), b.(*Doc))
	default: // KindNull
		return 0
	}
}

func stringOf(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case objectid.ObjectID:
		return t.Hex()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

func compareArrays(a, b Array) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func compareDocs(a, b *Doc) int {
	af, bf := a.Fields(), b.Fields()
	for i := 0; i < len(af) && i < len(bf); i++ {
		if c := bytes.Compare([]byte(af[i].Key), []byte(bf[i].Key)); c != 0 {
			return c
		}
		if c := Compare(af[i].Value, bf[i].Value); c != 0 {
			return c
		}
	}
	switch {
	case len(af) < len(bf):
		return -1
	case len(af) > len(bf):
		return 1
	default:
		return 0
	}
}

// Equal performs the structural deep-equality spec.md's selector and
// update operators rely on (literal matches, $addToSet/$pull dedup,
// idempotence). Numbers compare by value regardless of their concrete Go
// numeric type.
func Equal(a, b interface{}) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case KindNull:
		return true
	case KindNumber:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return fa == fb
	case KindBoolean:
		return a.(bool) == b.(bool)
	case KindString:
		return a.(string) == b.(string)
	case KindObjectID:
		return a.(objectid.ObjectID) == b.(objectid.ObjectID)
	case KindTimestamp:
		return a.(time.Time).Equal(b.(time.Time))
	case KindArray:
		aa, bb := a.(Array), b.(Array)
		if len(aa) != len(bb) {
			return false
		}
		for i := range aa {
			if !Equal(aa[i], bb[i]) {
				return false
			}
		}
		return true
	case KindObject:
		ad, bd := a.(*Doc), b.(*Doc)
		if ad.Len() != bd.Len() {
			return false
		}
		for _, f := range ad.Fields() {
			v, ok := bd.Get(f.Key)
			if !ok || !Equal(f.Value, v) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// HashOf computes a structural hash of v, used by the selector engine to
// build hash-assisted membership sets for $in/$nin/$all instead of
// repeated O(n) deep-equal scans. Collisions are
// possible (hashstructure is not cryptographic), so callers that need
// exactness must still confirm a hash hit with Equal.
func HashOf(v interface{}) (uint64, error) {
	return hashstructure.Hash(canonicalize(v), nil)
}

// canonicalize converts document values into plain Go types hashstructure
// can walk (it does not know about *Doc/Array).
func canonicalize(v interface{}) interface{} {
	switch vv := v.(type) {
	case *Doc:
		if vv == nil {
			return nil
		}
		out := make(map[string]interface{}, vv.Len())
		for _, f := range vv.Fields() {
			out[f.Key] = canonicalize(f.Value)
		}
		return out
	case Array:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return vv
	}
}
