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

// Package journal implements the per-transaction mutation journal: the
// paired commit/rollback log every container appends to, and that the
// transaction policy persists or unwinds at the end of a transaction.
package journal

import (
	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/schema"
)

// Undo reverses exactly one in-memory change a container made. It closes
// over the minimum state needed to do that (the prior value and timestamp,
// or their absence) and must never fail.
type Undo func()

type entry struct {
	event schema.Mutation
	undo  Undo
}

// Journal is instance-local to one fields aggregate: created empty at
// storage construction, asserted empty at the start of every transaction,
// and cleared at the end of every transaction, whether it committed or
// rolled back.
type Journal struct {
	entries []entry
	// Meta is the transaction's meta-field map, populated by
	// SetTransactionMetaField/EraseTransactionMetaField during the
	// transaction and attached to the transaction record on persist.
	Meta map[string]string
}

// New returns an empty journal.
func New() *Journal {
	return &Journal{Meta: make(map[string]string)}
}

// Log appends one (event, undo) pair. Called by a container on every Add or
// Erase that actually changes state.
func (j *Journal) Log(event schema.Mutation, undo Undo) {
	j.entries = append(j.entries, entry{event: event, undo: undo})
}

// Rollback invokes every undo thunk in exact reverse of logging order, then
// clears the journal. Total and LIFO, per spec.
func (j *Journal) Rollback() {
	for i := len(j.entries) - 1; i >= 0; i-- {
		j.entries[i].undo()
	}
	j.Clear()
}

// Clear drops the journal's contents without invoking any undo thunk. Used
// after a successful persist.
func (j *Journal) Clear() {
	j.entries = nil
	j.Meta = make(map[string]string)
}

// Empty reports whether the journal currently holds no events and no
// meta-fields.
func (j *Journal) Empty() bool {
	return len(j.entries) == 0 && len(j.Meta) == 0
}

// AssertEmpty enforces the invariant that every transaction begins with an
// empty journal. A non-empty journal at this point means a prior
// transaction failed to clear or roll back, a programming error in the
// policy rather than anything a caller can provoke.
func (j *Journal) AssertEmpty() error {
	if !j.Empty() {
		return errors.Errorf("journal: AssertEmpty violated: %d pending entries, %d meta-fields", len(j.entries), len(j.Meta))
	}
	return nil
}

// CommitLog returns the journaled events in logging order, the order a
// persister must append them in.
func (j *Journal) CommitLog() []schema.Mutation {
	if len(j.entries) == 0 {
		return nil
	}
	out := make([]schema.Mutation, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.event
	}
	return out
}

// SetTransactionMetaField records a meta-field on the in-flight transaction.
func (j *Journal) SetTransactionMetaField(key, value string) {
	j.Meta[key] = value
}

// EraseTransactionMetaField removes a previously set meta-field, if any.
func (j *Journal) EraseTransactionMetaField(key string) {
	delete(j.Meta, key)
}
