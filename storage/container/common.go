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

// Package container implements the four typed container families:
// Dictionary, ManyToMany, OneToOne and OneToMany, each in ordered and
// unordered variants. None of the containers synchronize their own access;
// per the concurrency model, that is the transaction policy's job (a single
// lock serializes every transaction, read-write or read-only).
package container

import "github.com/erigontech/txstorage/storage/schema"

// Updated is the event recorded whenever Add inserts or overwrites an
// entry, regardless of which container family logged it.
type Updated[E any] struct {
	fieldIndex int
	us         int64
	Data       E
}

func (e Updated[E]) FieldIndex() int   { return e.fieldIndex }
func (e Updated[E]) Kind() schema.Kind { return schema.KindUpdated }
func (e Updated[E]) Timestamp() int64  { return e.us }

// NewUpdated builds an Updated event directly, for a wire.FieldCodec
// decoding one back off the stream during replay -- the only place outside
// this package allowed to construct one.
func NewUpdated[E any](fieldIndex int, us int64, data E) Updated[E] {
	return Updated[E]{fieldIndex: fieldIndex, us: us, Data: data}
}

// Deleted is the event recorded by single-key containers (Dictionary)
// whenever Erase removes an entry.
type Deleted[K any] struct {
	fieldIndex int
	us         int64
	Key        K
}

func (e Deleted[K]) FieldIndex() int   { return e.fieldIndex }
func (e Deleted[K]) Kind() schema.Kind { return schema.KindDeleted }
func (e Deleted[K]) Timestamp() int64  { return e.us }

// NewDeleted builds a Deleted event directly, for wire decode during replay.
func NewDeleted[K any](fieldIndex int, us int64, key K) Deleted[K] {
	return Deleted[K]{fieldIndex: fieldIndex, us: us, Key: key}
}

// DeletedRC is the event recorded by matrix-family containers (ManyToMany,
// OneToOne, OneToMany), whose primary key is a (row, col) pair.
type DeletedRC[R any, C any] struct {
	fieldIndex int
	us         int64
	Row        R
	Col        C
}

func (e DeletedRC[R, C]) FieldIndex() int   { return e.fieldIndex }
func (e DeletedRC[R, C]) Kind() schema.Kind { return schema.KindDeleted }
func (e DeletedRC[R, C]) Timestamp() int64  { return e.us }

// NewDeletedRC builds a DeletedRC event directly, for wire decode during
// replay.
func NewDeletedRC[R any, C any](fieldIndex int, us int64, row R, col C) DeletedRC[R, C] {
	return DeletedRC[R, C]{fieldIndex: fieldIndex, us: us, Row: row, Col: col}
}

// rcKey is the internal primary-map key for every matrix-family container.
type rcKey[R comparable, C comparable] struct {
	Row R
	Col C
}
