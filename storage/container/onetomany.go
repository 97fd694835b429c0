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

package container

import (
	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/entry"
	"github.com/erigontech/txstorage/storage/internal/clock"
	"github.com/erigontech/txstorage/storage/journal"
	"github.com/erigontech/txstorage/storage/schema"
)

// OneToMany is a (row, col) -> entry container with at most one live entry
// per row and an unbounded number of entries per column.
//
// Add resolves a row conflict by deleting the entry currently occupying
// that row (a separate journaled event) before inserting the new one.
// Column occupancy is never a conflict.
type OneToMany[R comparable, C comparable, E entry.RowColed[R, C]] struct {
	fieldIndex   int
	data         map[rcKey[R, C]]E
	lastModified map[rcKey[R, C]]int64
	rowIndex     map[R]rcKey[R, C]
	colIndex     map[C]map[R]rcKey[R, C]
	rowOrdered   bool
	colOrdered   bool
	rowOrder     *btree.BTreeG[R]
	colOrder     *btree.BTreeG[C]
}

func NewOneToMany[R comparable, C comparable, E entry.RowColed[R, C]](fieldIndex int, rowOrdered, colOrdered bool, rowLess func(a, b R) bool, colLess func(a, b C) bool) *OneToMany[R, C, E] {
	m := &OneToMany[R, C, E]{
		fieldIndex:   fieldIndex,
		data:         make(map[rcKey[R, C]]E),
		lastModified: make(map[rcKey[R, C]]int64),
		rowIndex:     make(map[R]rcKey[R, C]),
		colIndex:     make(map[C]map[R]rcKey[R, C]),
		rowOrdered:   rowOrdered,
		colOrdered:   colOrdered,
	}
	if rowOrdered {
		m.rowOrder = btree.NewG[R](32, rowLess)
	}
	if colOrdered {
		m.colOrder = btree.NewG[C](32, colLess)
	}
	return m
}

func (m *OneToMany[R, C, E]) Empty() bool { return len(m.data) == 0 }
func (m *OneToMany[R, C, E]) Size() int   { return len(m.data) }

func (m *OneToMany[R, C, E]) Get(r R, c C) (E, bool) {
	v, ok := m.data[rcKey[R, C]{Row: r, Col: c}]
	return v, ok
}

func (m *OneToMany[R, C, E]) LastModified(r R, c C) (int64, bool) {
	us, ok := m.lastModified[rcKey[R, C]{Row: r, Col: c}]
	return us, ok
}

// Row returns the unique entry occupying row r, if any.
func (m *OneToMany[R, C, E]) Row(r R) (E, bool) {
	key, ok := m.rowIndex[r]
	if !ok {
		var zero E
		return zero, false
	}
	return m.data[key], true
}

// Col returns every live entry sharing column c, ascending by row if the
// row axis is ordered.
func (m *OneToMany[R, C, E]) Col(c C) []E {
	rows, ok := m.colIndex[c]
	if !ok {
		return nil
	}
	out := make([]E, 0, len(rows))
	if m.rowOrdered {
		m.rowOrder.Ascend(func(r R) bool {
			if key, in := rows[r]; in {
				out = append(out, m.data[key])
			}
			return true
		})
		return out
	}
	for _, key := range rows {
		out = append(out, m.data[key])
	}
	return out
}

func (m *OneToMany[R, C, E]) Add(j *journal.Journal, e E) {
	key := rcKey[R, C]{Row: e.Row(), Col: e.Col()}

	if _, ok := m.data[key]; ok {
		m.overwrite(j, key, e)
		return
	}
	if rowKey, ok := m.rowIndex[key.Row]; ok {
		m.eraseKey(j, rowKey)
	}
	m.insert(j, key, e)
}

// Erase removes the entry at (r, c), if present.
func (m *OneToMany[R, C, E]) Erase(j *journal.Journal, r R, c C) {
	key := rcKey[R, C]{Row: r, Col: c}
	if _, ok := m.data[key]; !ok {
		return
	}
	m.eraseKey(j, key)
}

// EraseRow removes the entry occupying row r, if any.
func (m *OneToMany[R, C, E]) EraseRow(j *journal.Journal, r R) {
	if key, ok := m.rowIndex[r]; ok {
		m.eraseKey(j, key)
	}
}

func (m *OneToMany[R, C, E]) insert(j *journal.Journal, key rcKey[R, C], e E) {
	now := clock.Now()
	undo := func() {
		delete(m.data, key)
		m.removeIndexes(key)
		delete(m.lastModified, key)
	}
	m.data[key] = e
	m.addIndexes(key)
	m.lastModified[key] = now
	j.Log(Updated[E]{fieldIndex: m.fieldIndex, us: now, Data: e}, undo)
}

func (m *OneToMany[R, C, E]) overwrite(j *journal.Journal, key rcKey[R, C], e E) {
	prevVal := m.data[key]
	prevUs := m.lastModified[key]
	now := clock.Now()
	undo := func() {
		m.data[key] = prevVal
		m.lastModified[key] = prevUs
	}
	m.data[key] = e
	m.lastModified[key] = now
	j.Log(Updated[E]{fieldIndex: m.fieldIndex, us: now, Data: e}, undo)
}

func (m *OneToMany[R, C, E]) eraseKey(j *journal.Journal, key rcKey[R, C]) {
	prevVal := m.data[key]
	prevUs := m.lastModified[key]
	now := clock.Now()
	undo := func() {
		m.data[key] = prevVal
		m.addIndexes(key)
		m.lastModified[key] = prevUs
	}
	delete(m.data, key)
	m.removeIndexes(key)
	m.lastModified[key] = now
	j.Log(DeletedRC[R, C]{fieldIndex: m.fieldIndex, us: now, Row: key.Row, Col: key.Col}, undo)
}

func (m *OneToMany[R, C, E]) addIndexes(key rcKey[R, C]) {
	m.rowIndex[key.Row] = key
	if m.rowOrdered {
		m.rowOrder.ReplaceOrInsert(key.Row)
	}
	if m.colIndex[key.Col] == nil {
		m.colIndex[key.Col] = make(map[R]rcKey[R, C])
		if m.colOrdered {
			m.colOrder.ReplaceOrInsert(key.Col)
		}
	}
	m.colIndex[key.Col][key.Row] = key
}

func (m *OneToMany[R, C, E]) removeIndexes(key rcKey[R, C]) {
	delete(m.rowIndex, key.Row)
	if m.rowOrdered {
		m.rowOrder.Delete(key.Row)
	}
	delete(m.colIndex[key.Col], key.Row)
	if len(m.colIndex[key.Col]) == 0 {
		delete(m.colIndex, key.Col)
		if m.colOrdered {
			m.colOrder.Delete(key.Col)
		}
	}
}

// Iterate visits every live entry in unspecified order.
func (m *OneToMany[R, C, E]) Iterate(fn func(E) bool) {
	for _, v := range m.data {
		if !fn(v) {
			return
		}
	}
}

func (m *OneToMany[R, C, E]) Apply(mu schema.Mutation) error {
	switch ev := mu.(type) {
	case Updated[E]:
		key := rcKey[R, C]{Row: ev.Data.Row(), Col: ev.Data.Col()}
		_, had := m.data[key]
		m.data[key] = ev.Data
		m.lastModified[key] = ev.Timestamp()
		if !had {
			m.addIndexes(key)
		}
		return nil
	case DeletedRC[R, C]:
		key := rcKey[R, C]{Row: ev.Row, Col: ev.Col}
		if _, ok := m.data[key]; !ok {
			return errors.Errorf("onetomany: integrity violation: delete of unknown (%v,%v)", ev.Row, ev.Col)
		}
		m.removeIndexes(key)
		delete(m.data, key)
		m.lastModified[key] = ev.Timestamp()
		return nil
	default:
		return errors.Errorf("onetomany: unexpected mutation type %T", mu)
	}
}
