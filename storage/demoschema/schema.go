// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package demoschema is a hand-written storage declaration: three fields
// (an ordered Dictionary, an ordered OneToOne, and an unordered
// ManyToMany), exercising three of the four container families
// storage/container provides; OneToMany is not declared here. It is what cmd/storagegen would emit from a schema-DSL file
// declaring the same three fields; the two forms are meant to be
// indistinguishable at the call site.
package demoschema

import (
	"github.com/erigontech/txstorage/storage/container"
	"github.com/erigontech/txstorage/storage/fields"
	"github.com/erigontech/txstorage/storage/journal"
	"github.com/erigontech/txstorage/storage/schema"
)

// Field indices, in declaration order. Exported so storage/wire.Registry
// construction (see Codecs in this package) and tests can name a field
// without re-deriving it from FieldByName.
const (
	FieldUsers = 0
	FieldPair  = 1
	FieldEdges = 2
)

// User is the entry type for the users field: a Dictionary keyed by a
// string user id.
type User struct {
	UserKey string
	Name    string
}

func (u User) Key() string { return u.UserKey }

// Pair is the entry type for the pair field: a bijective OneToOne between
// an int row and a string column.
type Pair struct {
	PairRow int
	PairCol string
	Payload int
}

func (p Pair) Row() int    { return p.PairRow }
func (p Pair) Col() string { return p.PairCol }

// Edge is the entry type for the edges field: a many-to-many relation
// between int rows and int columns.
type Edge struct {
	EdgeRow int
	EdgeCol int
	Weight  float64
}

func (e Edge) Row() int { return e.EdgeRow }
func (e Edge) Col() int { return e.EdgeCol }

// Fields is the fields aggregate for this declaration. Embedding
// *fields.Base gives it Journal, Dispatch, the meta-field setters, and
// introspection for free; the three typed container fields below are this
// schema's own contribution.
type Fields struct {
	*fields.Base

	Users *container.Dictionary[string, User]
	Pair  *container.OneToOne[int, string, Pair]
	Edges *container.ManyToMany[int, int, Edge]
}

// New constructs an empty fields aggregate with all three containers
// registered, in declaration order: users, pair, edges.
func New() *Fields {
	base := fields.NewBase()
	f := &Fields{Base: base}

	usersIdx := base.NextFieldIndex()
	f.Users = container.NewDictionary[string, User](usersIdx, true, func(a, b string) bool { return a < b })
	base.RegisterField(
		schema.FieldInfoFor("users", "User"),
		func(m schema.Mutation) error { return f.Users.Apply(m) },
		func(m schema.Mutation) error { return f.Users.Apply(m) },
	)

	pairIdx := base.NextFieldIndex()
	f.Pair = container.NewOneToOne[int, string, Pair](pairIdx, true, true,
		func(a, b int) bool { return a < b },
		func(a, b string) bool { return a < b },
	)
	base.RegisterField(
		schema.FieldInfoForRowCol("pair", "Pair"),
		func(m schema.Mutation) error { return f.Pair.Apply(m) },
		func(m schema.Mutation) error { return f.Pair.Apply(m) },
	)

	edgesIdx := base.NextFieldIndex()
	f.Edges = container.NewManyToMany[int, int, Edge](edgesIdx, false, false, nil, nil)
	base.RegisterField(
		schema.FieldInfoForRowCol("edges", "Edge"),
		func(m schema.Mutation) error { return f.Edges.Apply(m) },
		func(m schema.Mutation) error { return f.Edges.Apply(m) },
	)

	return f
}

// AddUser inserts or overwrites a user by key.
func (f *Fields) AddUser(j *journal.Journal, u User) { f.Users.Add(j, u) }

// EraseUser removes a user by key, if present.
func (f *Fields) EraseUser(j *journal.Journal, key string) { f.Users.Erase(j, key) }
