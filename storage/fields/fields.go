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

// Package fields implements the fields aggregate: the shared journal, the
// mutation dispatcher, and the field-index reflection surface that a
// user-declared storage schema embeds. A generated (or hand-written)
// schema, such as storage/demoschema, embeds *Base to get Journal,
// Dispatch, SetTransactionMetaField/EraseTransactionMetaField and
// introspection for free, and adds its own typed container fields and
// per-field registration on top.
package fields

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/journal"
	"github.com/erigontech/txstorage/storage/schema"
)

// Handler applies one already-decoded mutation to the container that owns
// it. Registered once per (field, kind) pair at construction time.
type Handler func(m schema.Mutation) error

// Fields is the contract the transaction policy and the persister depend
// on. Every generated fields aggregate satisfies it by embedding *Base.
type Fields interface {
	Journal() *journal.Journal
	Dispatch(m schema.Mutation) error
	SetTransactionMetaField(key, value string)
	EraseTransactionMetaField(key string)
	FieldCount() int
	FieldNames() []string
	FieldByName(name string) (schema.FieldInfo, bool)
	FieldsTouched() *roaring.Bitmap
}

// Base is embedded by every declared storage's fields aggregate.
type Base struct {
	journal  *journal.Journal
	infos    []schema.FieldInfo
	handlers map[int][2]Handler // index 0 = Updated handler, index 1 = Deleted handler
	touched  *roaring.Bitmap
}

// NewBase constructs an empty fields aggregate base. Call RegisterField once
// per declared field, in field-index order, before using it.
func NewBase() *Base {
	return &Base{
		journal:  journal.New(),
		handlers: make(map[int][2]Handler),
		touched:  roaring.New(),
	}
}

// NextFieldIndex returns the index RegisterField will assign the next time
// it is called. A schema's constructor calls this to learn a field's index
// before building the container that will own it (the container itself
// needs to know its own field index to stamp onto the events it logs),
// then calls RegisterField immediately after with no other field declared
// in between.
func (b *Base) NextFieldIndex() int { return len(b.infos) }

// RegisterField binds a declared field's name and replay handlers to its
// index. Called by the schema's constructor once per field, in the order
// the schema declares them.
func (b *Base) RegisterField(info schema.FieldInfo, onUpdated, onDeleted Handler) {
	info.Index = len(b.infos)
	b.infos = append(b.infos, info)
	b.handlers[info.Index] = [2]Handler{onUpdated, onDeleted}
}

// Journal returns the shared mutation journal every declared container logs
// into.
func (b *Base) Journal() *journal.Journal { return b.journal }

// Dispatch routes one mutation-variant value to the container that owns
// it, by field index then kind — an O(1) lookup, not a type switch over
// every event type in the schema. This is the sole replay mechanism: the
// persister calls it both for batch replay at construction and for each
// record a follower's subscription receives live, so there is exactly one
// code path for state reconstruction.
func (b *Base) Dispatch(m schema.Mutation) error {
	pair, ok := b.handlers[m.FieldIndex()]
	if !ok {
		return errors.Errorf("fields: integrity violation: mutation for unknown field index %d", m.FieldIndex())
	}
	var h Handler
	switch m.Kind() {
	case schema.KindUpdated:
		h = pair[0]
	case schema.KindDeleted:
		h = pair[1]
	default:
		return errors.Errorf("fields: integrity violation: unsupported mutation kind %d for field %d", m.Kind(), m.FieldIndex())
	}
	if err := h(m); err != nil {
		return errors.Wrapf(err, "fields: dispatch field %d kind %s", m.FieldIndex(), m.Kind())
	}
	b.touched.Add(uint32(m.FieldIndex()))
	return nil
}

func (b *Base) SetTransactionMetaField(key, value string) { b.journal.SetTransactionMetaField(key, value) }
func (b *Base) EraseTransactionMetaField(key string)       { b.journal.EraseTransactionMetaField(key) }

// FieldCount returns the number of declared fields.
func (b *Base) FieldCount() int { return len(b.infos) }

// FieldNames returns every declared field's name, in declaration order.
func (b *Base) FieldNames() []string {
	out := make([]string, len(b.infos))
	for i, info := range b.infos {
		out[i] = info.Name
	}
	return out
}

// FieldByName looks up a field's introspection record by name.
func (b *Base) FieldByName(name string) (schema.FieldInfo, bool) {
	for _, info := range b.infos {
		if info.Name == name {
			return info, true
		}
	}
	return schema.FieldInfo{}, false
}

// FieldInfoByIndex returns the introspection record for a field, by index.
func (b *Base) FieldInfoByIndex(index int) (schema.FieldInfo, bool) {
	if index < 0 || index >= len(b.infos) {
		return schema.FieldInfo{}, false
	}
	return b.infos[index], true
}

// FieldsTouched returns a snapshot of the field indices that Dispatch has
// applied a mutation to since the last ResetTouched — a diagnostic surface.
// Container calls made inside a transaction log to the journal directly and
// are not recorded here.
func (b *Base) FieldsTouched() *roaring.Bitmap {
	return b.touched.Clone()
}

// ResetTouched clears the touched-fields bitmap. Called by the transaction
// policy alongside journal.Clear()/journal.Rollback().
func (b *Base) ResetTouched() {
	b.touched.Clear()
}
