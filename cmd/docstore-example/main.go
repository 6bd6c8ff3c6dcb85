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

// This is an example of how to use docstore as an embedded, in-process
// document store.
//
// After running the example you should see the field names of each
// inserted order, the number of "ada" orders, the counts from a $inc
// update and a Remove, then the audit log boltstore recorded for the
// "orders" collection.
package main

import (
	"context"
	"fmt"

	"github.com/ardenlabs/docstore"
	"github.com/ardenlabs/docstore/document"
	"github.com/ardenlabs/docstore/store/boltstore"
)

func main() {
	ctx := context.Background()

	db, err := docstore.Open("shop")
	if err != nil {
		panic(err)
	}

	audit, err := boltstore.Open("/tmp/docstore-example-audit.db", nil)
	if err != nil {
		panic(err)
	}
	defer audit.Close()
	db.AddStore(audit)

	orders, err := db.Collection("orders")
	if err != nil {
		panic(err)
	}

	for _, o := range []*document.Doc{
		document.FromPairs("customer", "ada", "total", 42.0, "tags", document.Array{"rush"}),
		document.FromPairs("customer", "grace", "total", 99.0, "tags", document.Array{}),
		document.FromPairs("customer", "ada", "total", 17.0, "tags", document.Array{"gift"}),
	} {
		stored, err := orders.Insert(ctx, o)
		if err != nil {
			panic(err)
		}
		fmt.Printf("inserted %v\n", stored.Keys())
	}

	cursor, _, err := orders.Find(ctx, document.FromPairs("customer", "ada"), nil, docstore.Options{})
	if err != nil {
		panic(err)
	}
	matches, err := cursor.Fetch()
	if err != nil {
		panic(err)
	}
	fmt.Printf("ada has %d orders\n", len(matches))

	result, err := orders.Update(ctx,
		document.FromPairs("customer", "ada"),
		document.FromPairs("$inc", document.FromPairs("total", 5.0)),
		docstore.Options{Multi: true},
	)
	if err != nil {
		panic(err)
	}
	fmt.Printf("updated %d documents\n", result.UpdatedCount)

	removed, err := orders.Remove(ctx, document.FromPairs("customer", "grace"), docstore.Options{})
	if err != nil {
		panic(err)
	}
	fmt.Printf("removed %d documents\n", len(removed))

	entries, err := audit.Tail("shop", "orders", 10)
	if err != nil {
		panic(err)
	}
	fmt.Println("audit log:")
	for _, e := range entries {
		fmt.Println(" ", e)
	}
}
