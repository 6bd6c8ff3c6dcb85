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

// Package dserr defines the structured error taxonomy spec.md §7 requires
// of every store-level operation, following the same errors.NewKind
// pattern the teacher's auth package uses for its own small error set.
package dserr

import "gopkg.in/src-d/go-errors.v1"

var (
	// ValidationError covers bad database/collection names, a nil or
	// badly named insert document, a duplicate _id, a replacement update
	// matching several documents, and cursor configuration after
	// iteration began. Mixed update keys and modifiers applied to the
	// wrong target type are reported by updateop's own error kinds.
	ValidationError = errors.NewKind("validation error: %s")
	// NotFoundError covers restore-with-no-snapshot, unknown snapshot
	// id, and rename-source-missing.
	NotFoundError = errors.NewKind("not found: %s")
	// UnsupportedError is not raised by any operation in this module:
	// $bit is reported as updateop.ErrUnsupportedModifier and $where as
	// selector.ErrUnsupportedOperator.
	UnsupportedError = errors.NewKind("unsupported: %s")
	// ConflictError covers opening a database name that already exists
	// in a registry, and renaming a collection onto an existing name.
	ConflictError = errors.NewKind("conflict: %s")
)
