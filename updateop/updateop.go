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

// Package updateop applies the update-document language spec.md §4.4
// describes — either whole-document replacement or an ordered sequence of
// $-prefixed modifier clauses — to a single stored document.
//
// Apply works on a clone of the stored document and only swaps it in for
// the original once every clause has succeeded, the same "guaranteed
// mods" two-phase validate-then-apply discipline spec.md §4.4/§7 requires
// ("failures inside update abort before any in-place write"), grounded on
// the same build-then-commit shape as gocloud memdocstore's update
// application.
package updateop

import (
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/src-d/go-errors.v1"

	"github.com/ardenlabs/docstore/document"
	"github.com/ardenlabs/docstore/internal/pathutil"
	"github.com/ardenlabs/docstore/selector"
)

var (
	// ErrMixedUpdateKeys is raised when an update document mixes
	// $-prefixed modifier keys with plain replacement keys.
	ErrMixedUpdateKeys = errors.NewKind("update document mixes modifier and replacement keys")
	// ErrUnknownModifier is raised for a $-prefixed key this engine does
	// not recognize.
	ErrUnknownModifier = errors.NewKind("unknown update modifier %q")
	// ErrUnsupportedModifier covers $bit, explicitly out of scope.
	ErrUnsupportedModifier = errors.NewKind("unsupported update modifier %q")
	// ErrModifierTypeMismatch is raised when a modifier's target field
	// holds a value the modifier cannot operate on (e.g. $inc on a
	// string, $push on a non-array).
	ErrModifierTypeMismatch = errors.NewKind("modifier %q cannot apply to field %q: %s")
	// ErrInvalidModifierArgument is raised for a structurally malformed
	// modifier argument (e.g. $pullAll given a non-array).
	ErrInvalidModifierArgument = errors.NewKind("invalid argument to %q: %s")
	// ErrRenameSameField is raised when $rename's source and target
	// paths are identical.
	ErrRenameSameField = errors.NewKind("$rename source and target must differ: %q")
)

// Mode selects how a non-modifier update document is interpreted.
type Mode int

const (
	// ModeStrict is spec.md §4.4's default: a non-modifier update
	// document always replaces the stored document wholesale.
	ModeStrict Mode = iota
	// ModeLenient interprets a non-modifier update as either a full
	// override or a shallow existing-fields-only assignment.
	ModeLenient
)

// Options configures a single Apply call.
type Options struct {
	Mode Mode
	// Override, meaningful only in ModeLenient, does a whole-document
	// replacement instead of the shallow existing-fields-only merge.
	Override bool
	// Warn receives a message for non-fatal conditions the spec
	// documents as "logs a warning" (lenient-mode assignment to an
	// unknown field).
	Warn func(msg string)
	// MaxDepth bounds the number of segments a modifier's field path may
	// resolve through, mirroring config.Defaults.MaxDocumentDepth. Zero
	// means unlimited.
	MaxDepth int
}

// IsModifierDocument reports whether update's top-level keys are all
// $-prefixed (a modifier document) or none are (a replacement document),
// and raises ErrMixedUpdateKeys for anything in between.
func IsModifierDocument(update *document.Doc) (bool, error) {
	if update.Len() == 0 {
		return false, nil
	}
	sawModifier, sawPlain := false, false
	for _, f := range update.Fields() {
		if strings.HasPrefix(f.Key, "$") {
			sawModifier = true
		} else {
			sawPlain = true
		}
	}
	if sawModifier && sawPlain {
		return false, ErrMixedUpdateKeys.New()
	}
	return sawModifier, nil
}

// Apply produces the document that replaces stored, given update and
// opts. stored is never mutated in place; on error the returned document
// is nil and stored remains valid for the caller to keep using.
func Apply(stored *document.Doc, update *document.Doc, opts Options) (*document.Doc, error) {
	isModifier, err := IsModifierDocument(update)
	if err != nil {
		return nil, err
	}

	if isModifier {
		clone := stored.Clone()
		if err := applyModifiers(clone, update, opts.MaxDepth); err != nil {
			return nil, err
		}
		return clone, nil
	}

	return applyReplacement(stored, update, opts)
}

func applyReplacement(stored, update *document.Doc, opts Options) (*document.Doc, error) {
	id, hasID := stored.Get("_id")

	if opts.Mode == ModeStrict || opts.Override {
		out := update.Clone()
		if hasID {
			out.Set("_id", id)
		}
		return out, nil
	}

	// Lenient, non-override: shallow assignment of pre-existing fields
	// only; _id is never reassigned; unknown fields warn instead of
	// failing, per spec.md §4.4 and §7.
	out := stored.Clone()
	for _, f := range update.Fields() {
		if f.Key == "_id" {
			continue
		}
		if !out.Has(f.Key) {
			if opts.Warn != nil {
				opts.Warn("lenient update: ignoring unknown field " + f.Key)
			}
			continue
		}
		out.Set(f.Key, document.CloneValue(f.Value))
	}
	return out, nil
}

type modifierFunc func(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error

var modifiers = map[string]modifierFunc{
	"$inc":      applyInc,
	"$set":      applySet,
	"$unset":    applyUnset,
	"$push":     applyPush,
	"$pushAll":  applyPushAll,
	"$addToSet": applyAddToSet,
	"$pop":      applyPop,
	"$pull":     applyPull,
	"$pullAll":  applyPullAll,
	"$rename":   applyRename,
}

var unsupportedModifiers = map[string]bool{
	"$bit": true,
}

func applyModifiers(doc *document.Doc, update *document.Doc, maxDepth int) error {
	for _, clause := range update.Fields() {
		if unsupportedModifiers[clause.Key] {
			return ErrUnsupportedModifier.New(clause.Key)
		}
		fn, ok := modifiers[clause.Key]
		if !ok {
			return ErrUnknownModifier.New(clause.Key)
		}
		args, ok := clause.Value.(*document.Doc)
		if !ok {
			return ErrInvalidModifierArgument.New(clause.Key, "expects a document of field-path: value pairs")
		}
		for _, f := range args.Fields() {
			if err := fn(doc, f.Key, f.Value, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyInc(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error {
	delta, err := cast.ToFloat64E(arg)
	if err != nil {
		return ErrInvalidModifierArgument.New("$inc", "argument must be numeric")
	}
	tgt, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	if !tgt.Found() {
		tgt.Set(delta)
		return nil
	}
	cur, _ := tgt.Get()
	if document.KindOf(cur) != document.KindNumber {
		return ErrModifierTypeMismatch.New("$inc", fieldPath, "existing value is not numeric")
	}
	curN, ok := cast.ToFloat64E(cur)
	if ok != nil {
		return ErrModifierTypeMismatch.New("$inc", fieldPath, "existing value is not numeric")
	}
	tgt.Set(curN + delta)
	return nil
}

func applySet(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error {
	tgt, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	tgt.Set(document.CloneValue(arg))
	return nil
}

func applyUnset(doc *document.Doc, fieldPath string, _ interface{}, maxDepth int) error {
	tgt, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{NoCreate: true, MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	tgt.Delete()
	return nil
}

func applyPush(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error {
	tgt, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	if !tgt.Found() {
		tgt.Set(document.Array{document.CloneValue(arg)})
		return nil
	}
	cur, _ := tgt.Get()
	arr, ok := cur.(document.Array)
	if !ok {
		return ErrModifierTypeMismatch.New("$push", fieldPath, "existing value is not an array")
	}
	tgt.Set(append(append(document.Array{}, arr...), document.CloneValue(arg)))
	return nil
}

func applyPushAll(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error {
	elems, ok := arg.(document.Array)
	if !ok {
		return ErrInvalidModifierArgument.New("$pushAll", "argument must be an array")
	}
	tgt, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	if !tgt.Found() {
		tgt.Set(document.CloneValue(elems))
		return nil
	}
	cur, _ := tgt.Get()
	arr, ok := cur.(document.Array)
	if !ok {
		return ErrModifierTypeMismatch.New("$pushAll", fieldPath, "existing value is not an array")
	}
	out := append(document.Array{}, arr...)
	for _, e := range elems {
		out = append(out, document.CloneValue(e))
	}
	tgt.Set(out)
	return nil
}

func applyAddToSet(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error {
	var candidates []interface{}
	if wrapper, ok := arg.(*document.Doc); ok {
		if each, ok := wrapper.Get("$each"); ok && wrapper.Len() == 1 {
			arr, ok := each.(document.Array)
			if !ok {
				return ErrInvalidModifierArgument.New("$addToSet", "$each expects an array")
			}
			for _, e := range arr {
				candidates = append(candidates, e)
			}
		} else {
			candidates = []interface{}{arg}
		}
	} else {
		candidates = []interface{}{arg}
	}

	tgt, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	var arr document.Array
	if tgt.Found() {
		cur, _ := tgt.Get()
		existing, ok := cur.(document.Array)
		if !ok {
			return ErrModifierTypeMismatch.New("$addToSet", fieldPath, "existing value is not an array")
		}
		arr = append(document.Array{}, existing...)
	}
	for _, c := range candidates {
		present := false
		for _, e := range arr {
			if document.Equal(e, c) {
				present = true
				break
			}
		}
		if !present {
			arr = append(arr, document.CloneValue(c))
		}
	}
	tgt.Set(arr)
	return nil
}

func applyPop(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error {
	tgt, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{NoCreate: true, MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	if !tgt.Found() {
		return nil
	}
	cur, _ := tgt.Get()
	arr, ok := cur.(document.Array)
	if !ok {
		return ErrModifierTypeMismatch.New("$pop", fieldPath, "existing value is not an array")
	}
	if len(arr) == 0 {
		return nil
	}
	fromFront := false
	if n, err := cast.ToFloat64E(arg); err == nil && n < 0 {
		fromFront = true
	}
	out := make(document.Array, 0, len(arr)-1)
	if fromFront {
		out = append(out, arr[1:]...)
	} else {
		out = append(out, arr[:len(arr)-1]...)
	}
	tgt.Set(out)
	return nil
}

func applyPull(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error {
	tgt, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{NoCreate: true, MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	if !tgt.Found() {
		return nil
	}
	cur, _ := tgt.Get()
	arr, ok := cur.(document.Array)
	if !ok {
		return ErrModifierTypeMismatch.New("$pull", fieldPath, "existing value is not an array")
	}

	var shouldRemove func(e interface{}) bool
	if sub, ok := arg.(*document.Doc); ok {
		matcher, err := selector.CompileWithOptions(sub, selector.Options{MaxDepth: maxDepth})
		if err != nil {
			return err
		}
		shouldRemove = func(e interface{}) bool {
			ed, ok := e.(*document.Doc)
			return ok && matcher(ed)
		}
	} else {
		shouldRemove = func(e interface{}) bool { return document.Equal(e, arg) }
	}

	out := make(document.Array, 0, len(arr))
	for _, e := range arr {
		if !shouldRemove(e) {
			out = append(out, e)
		}
	}
	tgt.Set(out)
	return nil
}

func applyPullAll(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error {
	victims, ok := arg.(document.Array)
	if !ok {
		return ErrInvalidModifierArgument.New("$pullAll", "argument must be an array")
	}
	tgt, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{NoCreate: true, MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	if !tgt.Found() {
		return nil
	}
	cur, _ := tgt.Get()
	arr, ok := cur.(document.Array)
	if !ok {
		return ErrModifierTypeMismatch.New("$pullAll", fieldPath, "existing value is not an array")
	}
	out := make(document.Array, 0, len(arr))
	for _, e := range arr {
		drop := false
		for _, v := range victims {
			if document.Equal(e, v) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, e)
		}
	}
	tgt.Set(out)
	return nil
}

func applyRename(doc *document.Doc, fieldPath string, arg interface{}, maxDepth int) error {
	target, ok := arg.(string)
	if !ok {
		return ErrInvalidModifierArgument.New("$rename", "target must be a string")
	}
	if target == fieldPath {
		return ErrRenameSameField.New(fieldPath)
	}
	src, err := pathutil.Resolve(doc, fieldPath, pathutil.Policy{NoCreate: true, ForbidArray: true, MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	if !src.Found() {
		return nil
	}
	v, _ := src.Get()
	src.Delete()

	dst, err := pathutil.Resolve(doc, target, pathutil.Policy{ForbidArray: true, MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	dst.Set(v)
	return nil
}
