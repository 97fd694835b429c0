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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/txstorage/storage/journal"
)

// TestOneToManyRowConflictDisplacesPriorOccupant covers invariant 6: after
// any committed transaction, no two live entries in a OneToMany share a row,
// while columns may be freely shared.
func TestOneToManyRowConflictDisplacesPriorOccupant(t *testing.T) {
	require := require.New(t)
	m := NewOneToMany[int, int, edge](0, false, false, nil, nil)

	m.Add(journal.New(), edge{1, 10, 1})
	j2 := journal.New()
	m.Add(j2, edge{1, 20, 2})

	events := j2.CommitLog()
	require.Len(events, 2, "row conflict must emit a delete before the update")
	del, ok := events[0].(DeletedRC[int, int])
	require.True(ok)
	require.Equal(1, del.Row)
	require.Equal(10, del.Col)
	_, ok = events[1].(Updated[edge])
	require.True(ok)

	require.Equal(1, m.Size())
	got, ok := m.Row(1)
	require.True(ok)
	require.Equal(20, got.EdgeCol)
}

func TestOneToManyColumnSharedFreely(t *testing.T) {
	require := require.New(t)
	m := NewOneToMany[int, int, edge](0, false, false, nil, nil)
	m.Add(journal.New(), edge{1, 10, 1})
	m.Add(journal.New(), edge{2, 10, 2})

	col := m.Col(10)
	require.Len(col, 2)
	require.Equal(2, m.Size())
}
