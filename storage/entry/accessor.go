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

// Package entry defines the uniform key/row/column extraction contract
// that every container entry type must satisfy.
//
// The source this engine is modeled on accepts two entry conventions: a bare
// field named key/row/col, or a getter/setter method pair, selected at
// compile time via template trait detection. Go has no equivalent trait
// detection, so this package standardizes on a single convention — method
// pairs — and storagegen (see cmd/storagegen) is the place a bare-field
// struct gets bridged into it: the generator emits the entry struct
// together with its Key() (or Row()/Col()) getter methods, so callers may
// still author entries with ordinary fields. Both the hand-written and the
// generated path converge on these interfaces, which is what makes their
// runtime behavior identical.
package entry

// Keyed is implemented by entries stored in a single-key container
// (Dictionary).
type Keyed[K comparable] interface {
	Key() K
}

// KeySetter is implemented by mutable entries whose key can be rewritten in
// place. No container in storage/container calls it: containers treat keys
// as immutable for the lifetime of an entry.
type KeySetter[K comparable] interface {
	SetKey(K)
}

// RowColed is implemented by entries stored in a matrix-family container
// (ManyToMany, OneToOne, OneToMany).
type RowColed[R comparable, C comparable] interface {
	Row() R
	Col() C
}
