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

// Package schema defines the runtime contract a storage declaration must
// satisfy: the mutation variant, the per-field event kinds, and the
// introspection surface. cmd/storagegen is one way to produce code that
// satisfies this contract from a declarative field list; hand-writing it
// (see storage/demoschema) is the other. Both forms are ordinary Go and
// import nothing generator-specific — the contract lives entirely in the
// types below.
package schema

// Kind discriminates an event within one field's two-case union.
//
// Kind is the dense integer tag the mutation journal and the dispatcher key
// on; combined with a field index it gives O(1) dispatch instead of a type
// switch over every event type in the schema.
type Kind uint8

const (
	KindUpdated Kind = iota
	KindDeleted

	// TagReservedPatch is not an implemented event kind. It is reserved so a
	// future Patched<field> event can be added to the Kind enum without
	// renumbering Updated/Deleted, keeping the persisted tag stable across
	// that extension.
	TagReservedPatch
)

func (k Kind) String() string {
	switch k {
	case KindUpdated:
		return "Updated"
	case KindDeleted:
		return "Deleted"
	case TagReservedPatch:
		return "ReservedPatch"
	default:
		return "Unknown"
	}
}

// Mutation is one event in the mutation variant: an Updated or Deleted event
// for exactly one declared field. Every generated (or hand-written) event
// type implements this.
type Mutation interface {
	FieldIndex() int
	Kind() Kind
	// Timestamp returns the event's microsecond timestamp.
	Timestamp() int64
}

// FieldInfo is the introspection record for one declared field: its index,
// its name, and display names for its two event kinds, which
// FieldInfoFor/FieldInfoForRowCol build from the entry type name.
type FieldInfo struct {
	Index            int
	Name             string
	UpdatedEventName string
	DeletedEventName string
}
