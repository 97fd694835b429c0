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

package journal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/txstorage/storage/schema"
)

type fakeMutation struct {
	field int
	kind  schema.Kind
	us    int64
}

func (m fakeMutation) FieldIndex() int   { return m.field }
func (m fakeMutation) Kind() schema.Kind { return m.kind }
func (m fakeMutation) Timestamp() int64  { return m.us }

func TestJournalAssertEmptyOnFreshJournal(t *testing.T) {
	j := New()
	require.NoError(t, j.AssertEmpty())
}

func TestJournalAssertEmptyFailsWhenPending(t *testing.T) {
	j := New()
	j.Log(fakeMutation{field: 0, kind: schema.KindUpdated, us: 1}, func() {})
	require.Error(t, j.AssertEmpty())
}

func TestJournalRollbackIsLIFOAndTotal(t *testing.T) {
	require := require.New(t)
	j := New()

	var order []int
	j.Log(fakeMutation{field: 0, us: 1}, func() { order = append(order, 1) })
	j.Log(fakeMutation{field: 0, us: 2}, func() { order = append(order, 2) })
	j.Log(fakeMutation{field: 0, us: 3}, func() { order = append(order, 3) })

	j.Rollback()

	require.Equal([]int{3, 2, 1}, order)
	require.True(j.Empty())
	require.NoError(j.AssertEmpty())
}

func TestJournalClearDoesNotInvokeUndo(t *testing.T) {
	require := require.New(t)
	j := New()
	invoked := false
	j.Log(fakeMutation{}, func() { invoked = true })

	j.Clear()

	require.False(invoked)
	require.True(j.Empty())
}

func TestJournalEmptyConsidersMetaFields(t *testing.T) {
	require := require.New(t)
	j := New()
	require.True(j.Empty())

	j.SetTransactionMetaField("actor", "alice")
	require.False(j.Empty(), "a journal with only meta-fields set is not empty")

	j.EraseTransactionMetaField("actor")
	require.True(j.Empty())
}

func TestJournalCommitLogPreservesLoggingOrder(t *testing.T) {
	require := require.New(t)
	j := New()
	j.Log(fakeMutation{field: 1, us: 10}, func() {})
	j.Log(fakeMutation{field: 2, us: 20}, func() {})

	log := j.CommitLog()
	require.Len(log, 2)
	require.Equal(1, log[0].FieldIndex())
	require.Equal(2, log[1].FieldIndex())
}

func TestJournalCommitLogOfEmptyJournalIsNil(t *testing.T) {
	j := New()
	require.Nil(t, j.CommitLog())
}
