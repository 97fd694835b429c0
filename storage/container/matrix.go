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

// ManyToMany is a (row, col) -> entry container with row-partitioned and
// column-partitioned secondary views. Any number of entries may share a row
// or a column.
type ManyToMany[R comparable, C comparable, E entry.RowColed[R, C]] struct {
	fieldIndex   int
	data         map[rcKey[R, C]]E
	lastModified map[rcKey[R, C]]int64
	rows         map[R]map[C]struct{}
	cols         map[C]map[R]struct{}
	rowOrdered   bool
	colOrdered   bool
	rowOrder     *btree.BTreeG[R]
	colOrder     *btree.BTreeG[C]
}

func NewManyToMany[R comparable, C comparable, E entry.RowColed[R, C]](fieldIndex int, rowOrdered, colOrdered bool, rowLess func(a, b R) bool, colLess func(a, b C) bool) *ManyToMany[R, C, E] {
	m := &ManyToMany[R, C, E]{
		fieldIndex:   fieldIndex,
		data:         make(map[rcKey[R, C]]E),
		lastModified: make(map[rcKey[R, C]]int64),
		rows:         make(map[R]map[C]struct{}),
		cols:         make(map[C]map[R]struct{}),
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

func (m *ManyToMany[R, C, E]) Empty() bool { return len(m.data) == 0 }
func (m *ManyToMany[R, C, E]) Size() int   { return len(m.data) }

func (m *ManyToMany[R, C, E]) Get(r R, c C) (E, bool) {
	v, ok := m.data[rcKey[R, C]{Row: r, Col: c}]
	return v, ok
}

func (m *ManyToMany[R, C, E]) LastModified(r R, c C) (int64, bool) {
	us, ok := m.lastModified[rcKey[R, C]{Row: r, Col: c}]
	return us, ok
}

// Add inserts or overwrites the entry at (e.Row(), e.Col()).
func (m *ManyToMany[R, C, E]) Add(j *journal.Journal, e E) {
	key := rcKey[R, C]{Row: e.Row(), Col: e.Col()}
	now := clock.Now()
	prevVal, hadVal := m.data[key]
	prevUs, hadUs := m.lastModified[key]

	undo := func() {
		if hadVal {
			m.data[key] = prevVal
		} else {
			m.removeIndexes(key)
			delete(m.data, key)
		}
		if hadUs {
			m.lastModified[key] = prevUs
		} else {
			delete(m.lastModified, key)
		}
	}

	m.data[key] = e
	m.lastModified[key] = now
	if !hadVal {
		m.addIndexes(key)
	}
	j.Log(Updated[E]{fieldIndex: m.fieldIndex, us: now, Data: e}, undo)
}

// Erase removes the entry at (r, c), if present.
func (m *ManyToMany[R, C, E]) Erase(j *journal.Journal, r R, c C) {
	key := rcKey[R, C]{Row: r, Col: c}
	prevVal, hadVal := m.data[key]
	if !hadVal {
		return
	}
	prevUs := m.lastModified[key]
	now := clock.Now()

	undo := func() {
		m.data[key] = prevVal
		m.addIndexes(key)
		m.lastModified[key] = prevUs
	}

	m.removeIndexes(key)
	delete(m.data, key)
	m.lastModified[key] = now
	j.Log(DeletedRC[R, C]{fieldIndex: m.fieldIndex, us: now, Row: r, Col: c}, undo)
}

func (m *ManyToMany[R, C, E]) addIndexes(key rcKey[R, C]) {
	if m.rows[key.Row] == nil {
		m.rows[key.Row] = make(map[C]struct{})
		if m.rowOrdered {
			m.rowOrder.ReplaceOrInsert(key.Row)
		}
	}
	m.rows[key.Row][key.Col] = struct{}{}

	if m.cols[key.Col] == nil {
		m.cols[key.Col] = make(map[R]struct{})
		if m.colOrdered {
			m.colOrder.ReplaceOrInsert(key.Col)
		}
	}
	m.cols[key.Col][key.Row] = struct{}{}
}

func (m *ManyToMany[R, C, E]) removeIndexes(key rcKey[R, C]) {
	delete(m.rows[key.Row], key.Col)
	if len(m.rows[key.Row]) == 0 {
		delete(m.rows, key.Row)
		if m.rowOrdered {
			m.rowOrder.Delete(key.Row)
		}
	}
	delete(m.cols[key.Col], key.Row)
	if len(m.cols[key.Col]) == 0 {
		delete(m.cols, key.Col)
		if m.colOrdered {
			m.colOrder.Delete(key.Col)
		}
	}
}

// Rows returns every row with at least one live entry; ascending if the row
// axis is ordered.
func (m *ManyToMany[R, C, E]) Rows() []R {
	out := make([]R, 0, len(m.rows))
	if m.rowOrdered {
		m.rowOrder.Ascend(func(r R) bool { out = append(out, r); return true })
		return out
	}
	for r := range m.rows {
		out = append(out, r)
	}
	return out
}

// Cols returns every column with at least one live entry; ascending if the
// column axis is ordered.
func (m *ManyToMany[R, C, E]) Cols() []C {
	out := make([]C, 0, len(m.cols))
	if m.colOrdered {
		m.colOrder.Ascend(func(c C) bool { out = append(out, c); return true })
		return out
	}
	for c := range m.cols {
		out = append(out, c)
	}
	return out
}

// Row returns every live entry sharing row r; ascending by column if the
// column axis is ordered.
func (m *ManyToMany[R, C, E]) Row(r R) []E {
	cols, ok := m.rows[r]
	if !ok {
		return nil
	}
	out := make([]E, 0, len(cols))
	if m.colOrdered {
		m.colOrder.Ascend(func(c C) bool {
			if _, in := cols[c]; in {
				out = append(out, m.data[rcKey[R, C]{Row: r, Col: c}])
			}
			return true
		})
		return out
	}
	for c := range cols {
		out = append(out, m.data[rcKey[R, C]{Row: r, Col: c}])
	}
	return out
}

// Col returns every live entry sharing column c; ascending by row if the
// row axis is ordered.
func (m *ManyToMany[R, C, E]) Col(c C) []E {
	rows, ok := m.cols[c]
	if !ok {
		return nil
	}
	out := make([]E, 0, len(rows))
	if m.rowOrdered {
		m.rowOrder.Ascend(func(r R) bool {
			if _, in := rows[r]; in {
				out = append(out, m.data[rcKey[R, C]{Row: r, Col: c}])
			}
			return true
		})
		return out
	}
	for r := range rows {
		out = append(out, m.data[rcKey[R, C]{Row: r, Col: c}])
	}
	return out
}

// Iterate visits every live entry in the whole matrix, in unspecified
// order, stopping early if fn returns false.
func (m *ManyToMany[R, C, E]) Iterate(fn func(E) bool) {
	for _, v := range m.data {
		if !fn(v) {
			return
		}
	}
}

func (m *ManyToMany[R, C, E]) Apply(mu schema.Mutation) error {
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
			return errors.Errorf("manytomany: integrity violation: delete of unknown (%v,%v)", ev.Row, ev.Col)
		}
		m.removeIndexes(key)
		delete(m.data, key)
		m.lastModified[key] = ev.Timestamp()
		return nil
	default:
		return errors.Errorf("manytomany: unexpected mutation type %T", mu)
	}
}
