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

// Package tracing wraps opentracing-go span creation for collection
// operations, mirroring the instrumentation point engine.go's
// Query/QueryWithBindings occupies in the teacher: one span per
// public operation, tagged with the operation's identifying arguments.
package tracing

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
)

// StartSpan starts a span named op under ctx, tagging it with the given
// collection full name. Callers must call the returned finish function
// when the operation completes, typically via defer.
func StartSpan(ctx context.Context, op, collectionFullName string) (context.Context, func()) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, op)
	span.SetTag("docstore.collection", collectionFullName)
	return spanCtx, span.Finish
}

// SetError marks the active span (if any) as failed and records err as a
// tag, the same way a failed query is annotated before QueryWithBindings
// returns in the teacher.
func SetError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.SetTag("error", true)
	span.LogKV("error.message", err.Error())
}
