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

// Dictionary is a key -> entry container with no secondary indexes. The
// ordered variant additionally maintains a btree of live keys so Iterate
// yields entries by ascending key; the unordered variant ranges the backing
// map directly, in Go's unspecified map order.
type Dictionary[K comparable, E entry.Keyed[K]] struct {
	fieldIndex   int
	data         map[K]E
	lastModified map[K]int64
	ordered      bool
	order        *btree.BTreeG[K]
}

// NewDictionary constructs a dictionary container bound to fieldIndex. Pass
// ordered=true with a total order over K to get ascending iteration; less
// is ignored when ordered is false.
func NewDictionary[K comparable, E entry.Keyed[K]](fieldIndex int, ordered bool, less func(a, b K) bool) *Dictionary[K, E] {
	d := &Dictionary[K, E]{
		fieldIndex:   fieldIndex,
		data:         make(map[K]E),
		lastModified: make(map[K]int64),
		ordered:      ordered,
	}
	if ordered {
		d.order = btree.NewG[K](32, less)
	}
	return d
}

func (d *Dictionary[K, E]) Empty() bool { return len(d.data) == 0 }
func (d *Dictionary[K, E]) Size() int   { return len(d.data) }

// Get returns the live entry for k, if any. The boolean distinguishes
// "not found" from a zero-valued entry.
func (d *Dictionary[K, E]) Get(k K) (E, bool) {
	v, ok := d.data[k]
	return v, ok
}

// LastModified returns the timestamp of the most recent Add or Erase that
// touched k, even if k is not currently present.
func (d *Dictionary[K, E]) LastModified(k K) (int64, bool) {
	us, ok := d.lastModified[k]
	return us, ok
}

// Add inserts or overwrites the entry keyed by e.Key(), journaling an
// Updated event and an undo thunk that restores the prior value and
// timestamp (or their absence).
func (d *Dictionary[K, E]) Add(j *journal.Journal, e E) {
	k := e.Key()
	now := clock.Now()
	prevVal, hadVal := d.data[k]
	prevUs, hadUs := d.lastModified[k]

	undo := func() {
		if hadVal {
			d.data[k] = prevVal
		} else {
			delete(d.data, k)
			if d.ordered {
				d.order.Delete(k)
			}
		}
		if hadUs {
			d.lastModified[k] = prevUs
		} else {
			delete(d.lastModified, k)
		}
	}

	d.data[k] = e
	d.lastModified[k] = now
	if d.ordered && !hadVal {
		d.order.ReplaceOrInsert(k)
	}
	j.Log(Updated[E]{fieldIndex: d.fieldIndex, us: now, Data: e}, undo)
}

// Erase removes k if present. Erasing an absent key is a silent no-op: no
// event is journaled and LastModified is untouched.
func (d *Dictionary[K, E]) Erase(j *journal.Journal, k K) {
	prevVal, hadVal := d.data[k]
	if !hadVal {
		return
	}
	prevUs := d.lastModified[k]
	now := clock.Now()

	undo := func() {
		d.data[k] = prevVal
		d.lastModified[k] = prevUs
		if d.ordered {
			d.order.ReplaceOrInsert(k)
		}
	}

	delete(d.data, k)
	d.lastModified[k] = now // timestamps survive deletion
	if d.ordered {
		d.order.Delete(k)
	}
	j.Log(Deleted[K]{fieldIndex: d.fieldIndex, us: now, Key: k}, undo)
}

// Iterate calls fn for every live entry, stopping early if fn returns
// false. Ordered dictionaries iterate by ascending key.
func (d *Dictionary[K, E]) Iterate(fn func(E) bool) {
	if d.ordered {
		d.order.Ascend(func(k K) bool {
			return fn(d.data[k])
		})
		return
	}
	for _, v := range d.data {
		if !fn(v) {
			return
		}
	}
}

// Apply is the replay hook invoked by the persister (and by the follower's
// live subscription) for every Updated/Deleted event dispatched to this
// field. It never touches the journal.
func (d *Dictionary[K, E]) Apply(m schema.Mutation) error {
	switch ev := m.(type) {
	case Updated[E]:
		k := ev.Data.Key()
		d.data[k] = ev.Data
		d.lastModified[k] = ev.Timestamp()
		if d.ordered {
			d.order.ReplaceOrInsert(k)
		}
		return nil
	case Deleted[K]:
		if _, ok := d.data[ev.Key]; !ok {
			return errors.Errorf("dictionary: integrity violation: delete of unknown key %v", ev.Key)
		}
		delete(d.data, ev.Key)
		d.lastModified[ev.Key] = ev.Timestamp()
		if d.ordered {
			d.order.Delete(ev.Key)
		}
		return nil
	default:
		return errors.Errorf("dictionary: unexpected mutation type %T", m)
	}
}
