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

// Package selector compiles the declarative predicate documents spec.md
// §4.2 describes into pure Matcher closures, the way sql/expression in a
// SQL engine compiles a WHERE clause into an evaluable tree — except a
// selector document is itself the tree, compiled once into a closure
// instead of an AST walked by an interpreter, following the dispatch
// table shape of FerretDB's aggregation operators package.
package selector

import (
	"regexp"

	"github.com/spf13/cast"
	"gopkg.in/src-d/go-errors.v1"

	"github.com/ardenlabs/docstore/document"
	"github.com/ardenlabs/docstore/document/objectid"
	"github.com/ardenlabs/docstore/internal/pathutil"
)

// Matcher is a pure, side-effect-free predicate over a document, the
// output of Compile.
type Matcher func(doc *document.Doc) bool

var (
	// ErrUnsupportedOperator covers $where and any geospatial/text
	// operator spec.md's Non-goals exclude.
	ErrUnsupportedOperator = errors.NewKind("unsupported operator: %s")
	// ErrInvalidSelector covers structurally malformed predicate
	// documents (e.g. $and given a non-array).
	ErrInvalidSelector = errors.NewKind("invalid selector: %s")
)

var unsupportedOperators = map[string]bool{
	"$where":         true,
	"$text":          true,
	"$near":          true,
	"$nearSphere":    true,
	"$geoWithin":     true,
	"$geoIntersects": true,
}

// Options configures a Compile pass. The zero Options is what Compile
// itself uses.
type Options struct {
	// MaxDepth bounds the number of segments a dotted field path may
	// resolve through, mirroring config.Defaults.MaxDocumentDepth. Zero
	// means unlimited.
	MaxDepth int
}

// compiler carries the resolution policy shared by every clause compiled
// out of a single Compile/CompileWithOptions call.
type compiler struct {
	maxDepth int
}

// Compile turns spec into a Matcher. spec may be an ObjectID or scalar
// (shorthand for {_id: spec}), a *document.Doc predicate, a compiled
// *regexp.Regexp (matched against the whole document's string form is not
// meaningful, so a bare regexp is only valid as a field-level operand —
// Compile rejects a top-level regexp), or an already-compiled Matcher
// (returned unchanged).
func Compile(spec interface{}) (Matcher, error) {
	return CompileWithOptions(spec, Options{})
}

// CompileWithOptions is Compile with an explicit Options, letting a caller
// that knows its collection's configured document-depth guard enforce the
// same bound on the field paths the resulting Matcher resolves.
func CompileWithOptions(spec interface{}, opts Options) (Matcher, error) {
	c := &compiler{maxDepth: opts.MaxDepth}
	switch s := spec.(type) {
	case nil:
		return func(*document.Doc) bool { return true }, nil
	case Matcher:
		return s, nil
	case objectid.ObjectID, string, float64, int, int64:
		return c.compileLiteralID(s)
	case *document.Doc:
		return c.compileDoc(s)
	case *regexp.Regexp:
		return nil, ErrInvalidSelector.New("a bare regular expression is not a valid top-level selector")
	default:
		return nil, ErrInvalidSelector.New("unrecognized selector type")
	}
}

func (c *compiler) compileLiteralID(id interface{}) (Matcher, error) {
	d := document.New()
	d.Set("_id", id)
	return c.compileDoc(d)
}

func (c *compiler) compileDoc(spec *document.Doc) (Matcher, error) {
	var clauses []Matcher
	for _, f := range spec.Fields() {
		switch f.Key {
		case "$and":
			m, err := c.compileLogical(f.Value, allOf)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, m)
		case "$or":
			m, err := c.compileLogical(f.Value, anyOf)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, m)
		case "$nor":
			m, err := c.compileLogical(f.Value, noneOf)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, m)
		case "$where":
			return nil, ErrUnsupportedOperator.New("$where")
		default:
			if unsupportedOperators[f.Key] {
				return nil, ErrUnsupportedOperator.New(f.Key)
			}
			m, err := c.compileFieldClause(f.Key, f.Value)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, m)
		}
	}
	return allOf(clauses), nil
}

func (c *compiler) compileLogical(v interface{}, combine func([]Matcher) Matcher) (Matcher, error) {
	arr, ok := v.(document.Array)
	if !ok {
		return nil, ErrInvalidSelector.New("logical operator expects an array of predicate documents")
	}
	subs := make([]Matcher, 0, len(arr))
	for _, e := range arr {
		sub, ok := e.(*document.Doc)
		if !ok {
			return nil, ErrInvalidSelector.New("logical operator array elements must be documents")
		}
		m, err := c.compileDoc(sub)
		if err != nil {
			return nil, err
		}
		subs = append(subs, m)
	}
	return combine(subs), nil
}

func allOf(ms []Matcher) Matcher {
	return func(d *document.Doc) bool {
		for _, m := range ms {
			if !m(d) {
				return false
			}
		}
		return true
	}
}

func anyOf(ms []Matcher) Matcher {
	return func(d *document.Doc) bool {
		if len(ms) == 0 {
			return false
		}
		for _, m := range ms {
			if m(d) {
				return true
			}
		}
		return false
	}
}

func noneOf(ms []Matcher) Matcher {
	any := anyOf(ms)
	return func(d *document.Doc) bool { return !any(d) }
}

// compileFieldClause compiles the clause for a single field-path key:
// either a literal (deep-equal, with array-contains semantics), a
// sub-document of field-level operators, or a regexp.
func (c *compiler) compileFieldClause(fieldPath string, value interface{}) (Matcher, error) {
	switch v := value.(type) {
	case *document.Doc:
		if isOperatorDoc(v) {
			return c.compileOperatorDoc(fieldPath, v)
		}
		return c.compileLiteralMatch(fieldPath, v), nil
	case *regexp.Regexp:
		return c.compileRegexMatch(fieldPath, v, ""), nil
	default:
		return c.compileLiteralMatch(fieldPath, v), nil
	}
}

func isOperatorDoc(d *document.Doc) bool {
	if d.Len() == 0 {
		return false
	}
	for _, f := range d.Fields() {
		if len(f.Key) == 0 || f.Key[0] != '$' {
			return false
		}
	}
	return true
}

// resolveField reads fieldPath out of d. A simple (undotted) key is read
// directly; a dotted path goes through pathutil.Resolve with NoCreate set
// (a query never materializes structure) and c.maxDepth enforced so a
// pathological field path fails fast instead of walking without bound.
func (c *compiler) resolveField(d *document.Doc, fieldPath string) (interface{}, bool) {
	if fieldPath == "_id" || (len(fieldPath) > 0 && pathIsSimple(fieldPath)) {
		if v, ok := d.Get(fieldPath); ok {
			return v, true
		}
	}
	tgt, err := pathutil.Resolve(d, fieldPath, pathutil.Policy{NoCreate: true, MaxDepth: c.maxDepth})
	if err != nil || !tgt.Found() {
		return nil, false
	}
	return tgt.Get()
}

func pathIsSimple(fieldPath string) bool {
	for _, r := range fieldPath {
		if r == '.' {
			return false
		}
	}
	return true
}

// compileLiteralMatch implements spec.md §4.2's array-contains rule: the
// clause matches when the field equals the literal, or (when the field is
// an array) any element deep-equals the literal.
func (c *compiler) compileLiteralMatch(fieldPath string, literal interface{}) Matcher {
	return func(d *document.Doc) bool {
		v, ok := c.resolveField(d, fieldPath)
		if !ok {
			return document.KindOf(literal) == document.KindNull
		}
		if document.Equal(v, literal) {
			return true
		}
		if arr, ok := v.(document.Array); ok {
			for _, e := range arr {
				if document.Equal(e, literal) {
					return true
				}
			}
		}
		return false
	}
}

func (c *compiler) compileRegexMatch(fieldPath string, re *regexp.Regexp, options string) Matcher {
	return func(d *document.Doc) bool {
		v, ok := c.resolveField(d, fieldPath)
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok {
			return false
		}
		return re.MatchString(s)
	}
}

// compileOperatorDoc compiles a sub-document of field-level operators that
// must all hold (conjunction), per spec.md §4.2.
func (c *compiler) compileOperatorDoc(fieldPath string, ops *document.Doc) (Matcher, error) {
	var checks []func(d *document.Doc) bool
	var regexPattern string
	var regexOptions string
	hasRegex := false

	for _, f := range ops.Fields() {
		switch f.Key {
		case "$eq":
			arg := f.Value
			checks = append(checks, func(d *document.Doc) bool { return c.compileLiteralMatch(fieldPath, arg)(d) })
		case "$ne":
			arg := f.Value
			checks = append(checks, func(d *document.Doc) bool { return !c.compileLiteralMatch(fieldPath, arg)(d) })
		case "$lt":
			checks = append(checks, c.compareCheck(fieldPath, f.Value, func(cmp int) bool { return cmp < 0 }))
		case "$lte":
			checks = append(checks, c.compareCheck(fieldPath, f.Value, func(cmp int) bool { return cmp <= 0 }))
		case "$gt":
			checks = append(checks, c.compareCheck(fieldPath, f.Value, func(cmp int) bool { return cmp > 0 }))
		case "$gte":
			checks = append(checks, c.compareCheck(fieldPath, f.Value, func(cmp int) bool { return cmp >= 0 }))
		case "$in":
			arr, ok := f.Value.(document.Array)
			if !ok {
				return nil, ErrInvalidSelector.New("$in expects an array")
			}
			checks = append(checks, c.inCheck(fieldPath, arr, false))
		case "$nin":
			arr, ok := f.Value.(document.Array)
			if !ok {
				return nil, ErrInvalidSelector.New("$nin expects an array")
			}
			checks = append(checks, c.inCheck(fieldPath, arr, true))
		case "$all":
			arr, ok := f.Value.(document.Array)
			if !ok {
				return nil, ErrInvalidSelector.New("$all expects an array")
			}
			checks = append(checks, c.allCheck(fieldPath, arr))
		case "$exists":
			want := truthy(f.Value)
			checks = append(checks, func(d *document.Doc) bool {
				_, ok := c.resolveField(d, fieldPath)
				return ok == want
			})
		case "$type":
			wantType := f.Value
			checks = append(checks, c.typeCheck(fieldPath, wantType))
		case "$mod":
			arr, ok := f.Value.(document.Array)
			if !ok || len(arr) != 2 {
				return nil, ErrInvalidSelector.New("$mod expects [divisor, remainder]")
			}
			divisor, err1 := cast.ToFloat64E(arr[0])
			remainder, err2 := cast.ToFloat64E(arr[1])
			if err1 != nil || err2 != nil {
				return nil, ErrInvalidSelector.New("$mod arguments must be numeric")
			}
			checks = append(checks, c.modCheck(fieldPath, divisor, remainder))
		case "$size":
			wantSize, err := cast.ToIntE(f.Value)
			if err != nil {
				return nil, ErrInvalidSelector.New("$size expects an integer")
			}
			checks = append(checks, c.sizeCheck(fieldPath, wantSize))
		case "$regex":
			hasRegex = true
			switch rv := f.Value.(type) {
			case *regexp.Regexp:
				regexPattern = rv.String()
			case string:
				regexPattern = rv
			default:
				return nil, ErrInvalidSelector.New("$regex expects a string or regexp")
			}
		case "$options":
			s, ok := f.Value.(string)
			if !ok {
				return nil, ErrInvalidSelector.New("$options expects a string")
			}
			regexOptions = s
		case "$elemMatch":
			sub, ok := f.Value.(*document.Doc)
			if !ok {
				return nil, ErrInvalidSelector.New("$elemMatch expects a document")
			}
			subMatcher, err := c.compileDoc(sub)
			if err != nil {
				return nil, err
			}
			checks = append(checks, c.elemMatchCheck(fieldPath, subMatcher))
		case "$not":
			sub, ok := f.Value.(*document.Doc)
			if !ok {
				return nil, ErrInvalidSelector.New("$not expects a document")
			}
			subMatcher, err := c.compileOperatorDoc(fieldPath, sub)
			if err != nil {
				return nil, err
			}
			checks = append(checks, func(d *document.Doc) bool { return !subMatcher(d) })
		default:
			if unsupportedOperators[f.Key] {
				return nil, ErrUnsupportedOperator.New(f.Key)
			}
			return nil, ErrInvalidSelector.New("unknown operator " + f.Key)
		}
	}

	if hasRegex {
		re, err := compileRegex(regexPattern, regexOptions)
		if err != nil {
			return nil, err
		}
		checks = append(checks, c.compileRegexMatch(fieldPath, re, regexOptions))
	}

	return func(d *document.Doc) bool {
		for _, check := range checks {
			if !check(d) {
				return false
			}
		}
		return true
	}, nil
}

func compileRegex(pattern, options string) (*regexp.Regexp, error) {
	prefix := ""
	for _, o := range options {
		switch o {
		case 'i':
			prefix += "i"
		case 's':
			prefix += "s"
		case 'm':
			prefix += "m"
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, ErrInvalidSelector.New("bad $regex pattern: " + err.Error())
	}
	return re, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	default:
		return true
	}
}

func (c *compiler) compareCheck(fieldPath string, arg interface{}, ok func(int) bool) func(*document.Doc) bool {
	return func(d *document.Doc) bool {
		v, found := c.resolveField(d, fieldPath)
		if !found {
			return false
		}
		return ok(document.Compare(v, arg))
	}
}

// memberSet builds a hash-assisted membership set over arr, falling back
// to Equal on every hash hit to guard against hashstructure collisions.
func memberSet(arr document.Array) func(v interface{}) bool {
	type bucket struct {
		values []interface{}
	}
	buckets := map[uint64]*bucket{}
	for _, e := range arr {
		h, err := document.HashOf(e)
		if err != nil {
			continue
		}
		b := buckets[h]
		if b == nil {
			b = &bucket{}
			buckets[h] = b
		}
		b.values = append(b.values, e)
	}
	return func(v interface{}) bool {
		h, err := document.HashOf(v)
		if err != nil {
			for _, e := range arr {
				if document.Equal(e, v) {
					return true
				}
			}
			return false
		}
		b, ok := buckets[h]
		if !ok {
			return false
		}
		for _, e := range b.values {
			if document.Equal(e, v) {
				return true
			}
		}
		return false
	}
}

func (c *compiler) inCheck(fieldPath string, arr document.Array, negate bool) func(*document.Doc) bool {
	member := memberSet(arr)
	return func(d *document.Doc) bool {
		v, found := c.resolveField(d, fieldPath)
		hit := false
		if found {
			hit = member(v)
			if !hit {
				if elems, ok := v.(document.Array); ok {
					for _, e := range elems {
						if member(e) {
							hit = true
							break
						}
					}
				}
			}
		}
		if negate {
			return !hit
		}
		return hit
	}
}

func (c *compiler) allCheck(fieldPath string, want document.Array) func(*document.Doc) bool {
	return func(d *document.Doc) bool {
		v, found := c.resolveField(d, fieldPath)
		if !found {
			return len(want) == 0
		}
		arr, ok := v.(document.Array)
		if !ok {
			return false
		}
		member := memberSet(arr)
		for _, w := range want {
			if !member(w) {
				return false
			}
		}
		return true
	}
}

func (c *compiler) typeCheck(fieldPath string, want interface{}) func(*document.Doc) bool {
	return func(d *document.Doc) bool {
		v, found := c.resolveField(d, fieldPath)
		if !found {
			return false
		}
		return typeNameMatches(document.KindOf(v), want)
	}
}

func typeNameMatches(k document.Kind, want interface{}) bool {
	names := map[document.Kind][]string{
		document.KindNumber:    {"number", "double"},
		document.KindString:    {"string"},
		document.KindObject:    {"object"},
		document.KindArray:     {"array"},
		document.KindBoolean:   {"bool", "boolean"},
		document.KindNull:      {"null"},
		document.KindObjectID:  {"objectId"},
		document.KindTimestamp: {"timestamp", "date"},
	}
	wantStr, isStr := want.(string)
	if isStr {
		for _, n := range names[k] {
			if n == wantStr {
				return true
			}
		}
		return false
	}
	// numeric type codes aren't meaningful without a wire protocol; treat
	// any non-string $type argument as a request for the number class.
	return k == document.KindNumber
}

func (c *compiler) modCheck(fieldPath string, divisor, remainder float64) func(*document.Doc) bool {
	return func(d *document.Doc) bool {
		v, found := c.resolveField(d, fieldPath)
		if !found {
			return false
		}
		n, err := cast.ToFloat64E(v)
		if err != nil || divisor == 0 {
			return false
		}
		return float64(int64(n)%int64(divisor)) == remainder
	}
}

func (c *compiler) sizeCheck(fieldPath string, want int) func(*document.Doc) bool {
	return func(d *document.Doc) bool {
		v, found := c.resolveField(d, fieldPath)
		if !found {
			return false
		}
		arr, ok := v.(document.Array)
		if !ok {
			return false
		}
		return len(arr) == want
	}
}

func (c *compiler) elemMatchCheck(fieldPath string, sub Matcher) func(*document.Doc) bool {
	return func(d *document.Doc) bool {
		v, found := c.resolveField(d, fieldPath)
		if !found {
			return false
		}
		arr, ok := v.(document.Array)
		if !ok {
			return false
		}
		for _, e := range arr {
			ed, ok := e.(*document.Doc)
			if !ok {
				continue
			}
			if sub(ed) {
				return true
			}
		}
		return false
	}
}
