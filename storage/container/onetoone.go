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

// OneToOne is a bijective (row, col) -> entry container: no two live
// entries share a row, and no two share a column.
//
// Add resolves conflicts by deleting the offending entries before inserting
// the new one. When both the row and the column are already taken by two
// *different* existing entries, the row conflict is deleted first, then the
// column conflict — each deletion sampling its own timestamp from clock.Now,
// so the two deletions and the final insertion carry three strictly
// increasing timestamps, in that order.
type OneToOne[R comparable, C comparable, E entry.RowColed[R, C]] struct {
	fieldIndex   int
	data         map[rcKey[R, C]]E
	lastModified map[rcKey[R, C]]int64
	rowIndex     map[R]rcKey[R, C]
	colIndex     map[C]rcKey[R, C]
	rowOrdered   bool
	colOrdered   bool
	rowOrder     *btree.BTreeG[R]
	colOrder     *btree.BTreeG[C]
}

func NewOneToOne[R comparable, C comparable, E entry.RowColed[R, C]](fieldIndex int, rowOrdered, colOrdered bool, rowLess func(a, b R) bool, colLess func(a, b C) bool) *OneToOne[R, C, E] {
	o := &OneToOne[R, C, E]{
		fieldIndex:   fieldIndex,
		data:         make(map[rcKey[R, C]]E),
		lastModified: make(map[rcKey[R, C]]int64),
		rowIndex:     make(map[R]rcKey[R, C]),
		colIndex:     make(map[C]rcKey[R, C]),
		rowOrdered:   rowOrdered,
		colOrdered:   colOrdered,
	}
	if rowOrdered {
		o.rowOrder = btree.NewG[R](32, rowLess)
	}
	if colOrdered {
		o.colOrder = btree.NewG[C](32, colLess)
	}
	return o
}

func (o *OneToOne[R, C, E]) Empty() bool { return len(o.data) == 0 }
func (o *OneToOne[R, C, E]) Size() int   { return len(o.data) }

func (o *OneToOne[R, C, E]) Get(r R, c C) (E, bool) {
	v, ok := o.data[rcKey[R, C]{Row: r, Col: c}]
	return v, ok
}

func (o *OneToOne[R, C, E]) LastModified(r R, c C) (int64, bool) {
	us, ok := o.lastModified[rcKey[R, C]{Row: r, Col: c}]
	return us, ok
}

// GetByRow returns the unique entry occupying row r, if any.
func (o *OneToOne[R, C, E]) GetByRow(r R) (E, bool) {
	key, ok := o.rowIndex[r]
	if !ok {
		var zero E
		return zero, false
	}
	return o.data[key], true
}

// GetByCol returns the unique entry occupying column c, if any.
func (o *OneToOne[R, C, E]) GetByCol(c C) (E, bool) {
	key, ok := o.colIndex[c]
	if !ok {
		var zero E
		return zero, false
	}
	return o.data[key], true
}

// DoesNotConflict reports whether adding an entry at (r, c) would leave the
// bijection intact without deleting anything: true only when neither the
// row nor the column is currently occupied, or both are occupied by the
// same existing entry.
func (o *OneToOne[R, C, E]) DoesNotConflict(r R, c C) bool {
	key := rcKey[R, C]{Row: r, Col: c}
	rowKey, rowTaken := o.rowIndex[r]
	colKey, colTaken := o.colIndex[c]
	if !rowTaken && !colTaken {
		return true
	}
	return rowKey == key && colKey == key
}

func (o *OneToOne[R, C, E]) Add(j *journal.Journal, e E) {
	key := rcKey[R, C]{Row: e.Row(), Col: e.Col()}

	if _, ok := o.data[key]; ok {
		o.overwrite(j, key, e)
		return
	}

	if rowKey, ok := o.rowIndex[key.Row]; ok {
		o.eraseKey(j, rowKey)
	}
	if colKey, ok := o.colIndex[key.Col]; ok {
		o.eraseKey(j, colKey)
	}
	o.insert(j, key, e)
}

// Erase removes the entry at (r, c), if present.
func (o *OneToOne[R, C, E]) Erase(j *journal.Journal, r R, c C) {
	key := rcKey[R, C]{Row: r, Col: c}
	if _, ok := o.data[key]; !ok {
		return
	}
	o.eraseKey(j, key)
}

// EraseRow removes the entry occupying row r, if any.
func (o *OneToOne[R, C, E]) EraseRow(j *journal.Journal, r R) {
	if key, ok := o.rowIndex[r]; ok {
		o.eraseKey(j, key)
	}
}

// EraseCol removes the entry occupying column c, if any.
func (o *OneToOne[R, C, E]) EraseCol(j *journal.Journal, c C) {
	if key, ok := o.colIndex[c]; ok {
		o.eraseKey(j, key)
	}
}

func (o *OneToOne[R, C, E]) insert(j *journal.Journal, key rcKey[R, C], e E) {
	now := clock.Now()
	undo := func() {
		delete(o.data, key)
		delete(o.rowIndex, key.Row)
		delete(o.colIndex, key.Col)
		if o.rowOrdered {
			o.rowOrder.Delete(key.Row)
		}
		if o.colOrdered {
			o.colOrder.Delete(key.Col)
		}
		delete(o.lastModified, key)
	}
	o.data[key] = e
	o.rowIndex[key.Row] = key
	o.colIndex[key.Col] = key
	o.lastModified[key] = now
	if o.rowOrdered {
		o.rowOrder.ReplaceOrInsert(key.Row)
	}
	if o.colOrdered {
		o.colOrder.ReplaceOrInsert(key.Col)
	}
	j.Log(Updated[E]{fieldIndex: o.fieldIndex, us: now, Data: e}, undo)
}

func (o *OneToOne[R, C, E]) overwrite(j *journal.Journal, key rcKey[R, C], e E) {
	prevVal := o.data[key]
	prevUs := o.lastModified[key]
	now := clock.Now()
	undo := func() {
		o.data[key] = prevVal
		o.lastModified[key] = prevUs
	}
	o.data[key] = e
	o.lastModified[key] = now
	j.Log(Updated[E]{fieldIndex: o.fieldIndex, us: now, Data: e}, undo)
}

func (o *OneToOne[R, C, E]) eraseKey(j *journal.Journal, key rcKey[R, C]) {
	prevVal := o.data[key]
	prevUs := o.lastModified[key]
	now := clock.Now()
	undo := func() {
		o.data[key] = prevVal
		o.rowIndex[key.Row] = key
		o.colIndex[key.Col] = key
		if o.rowOrdered {
			o.rowOrder.ReplaceOrInsert(key.Row)
		}
		if o.colOrdered {
			o.colOrder.ReplaceOrInsert(key.Col)
		}
		o.lastModified[key] = prevUs
	}
	delete(o.data, key)
	delete(o.rowIndex, key.Row)
	delete(o.colIndex, key.Col)
	if o.rowOrdered {
		o.rowOrder.Delete(key.Row)
	}
	if o.colOrdered {
		o.colOrder.Delete(key.Col)
	}
	o.lastModified[key] = now
	j.Log(DeletedRC[R, C]{fieldIndex: o.fieldIndex, us: now, Row: key.Row, Col: key.Col}, undo)
}

// Rows returns every occupied row, ascending if the row axis is ordered.
func (o *OneToOne[R, C, E]) Rows() []R {
	out := make([]R, 0, len(o.rowIndex))
	if o.rowOrdered {
		o.rowOrder.Ascend(func(r R) bool { out = append(out, r); return true })
		return out
	}
	for r := range o.rowIndex {
		out = append(out, r)
	}
	return out
}

// Cols returns every occupied column, ascending if the column axis is
// ordered.
func (o *OneToOne[R, C, E]) Cols() []C {
	out := make([]C, 0, len(o.colIndex))
	if o.colOrdered {
		o.colOrder.Ascend(func(c C) bool { out = append(out, c); return true })
		return out
	}
	for c := range o.colIndex {
		out = append(out, c)
	}
	return out
}

// Iterate visits every live entry in unspecified order.
func (o *OneToOne[R, C, E]) Iterate(fn func(E) bool) {
	for _, v := range o.data {
		if !fn(v) {
			return
		}
	}
}

func (o *OneToOne[R, C, E]) Apply(mu schema.Mutation) error {
	switch ev := mu.(type) {
	case Updated[E]:
		key := rcKey[R, C]{Row: ev.Data.Row(), Col: ev.Data.Col()}
		o.data[key] = ev.Data
		o.rowIndex[key.Row] = key
		o.colIndex[key.Col] = key
		o.lastModified[key] = ev.Timestamp()
		if o.rowOrdered {
			o.rowOrder.ReplaceOrInsert(key.Row)
		}
		if o.colOrdered {
			o.colOrder.ReplaceOrInsert(key.Col)
		}
		return nil
	case DeletedRC[R, C]:
		key := rcKey[R, C]{Row: ev.Row, Col: ev.Col}
		if _, ok := o.data[key]; !ok {
			return errors.Errorf("onetoone: integrity violation: delete of unknown (%v,%v)", ev.Row, ev.Col)
		}
		delete(o.data, key)
		delete(o.rowIndex, key.Row)
		delete(o.colIndex, key.Col)
		o.lastModified[key] = ev.Timestamp()
		if o.rowOrdered {
			o.rowOrder.Delete(key.Row)
		}
		if o.colOrdered {
			o.colOrder.Delete(key.Col)
		}
		return nil
	default:
		return errors.Errorf("onetoone: unexpected mutation type %T", mu)
	}
}
