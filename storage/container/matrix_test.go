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

type edge struct {
	EdgeRow int
	EdgeCol int
	Weight  float64
}

func (e edge) Row() int { return e.EdgeRow }
func (e edge) Col() int { return e.EdgeCol }

// TestManyToManyPartitions exercises spec Scenario F.
func TestManyToManyPartitions(t *testing.T) {
	require := require.New(t)
	m := NewManyToMany[int, int, edge](0, false, false, nil, nil)

	m.Add(journal.New(), edge{1, 10, 0.1})
	m.Add(journal.New(), edge{1, 20, 0.2})
	m.Add(journal.New(), edge{2, 10, 0.3})

	row1 := m.Row(1)
	require.Len(row1, 2)
	gotCols := map[int]bool{}
	for _, e := range row1 {
		gotCols[e.EdgeCol] = true
	}
	require.Equal(map[int]bool{10: true, 20: true}, gotCols)

	col10 := m.Col(10)
	require.Len(col10, 2)
	gotRows := map[int]bool{}
	for _, e := range col10 {
		gotRows[e.EdgeRow] = true
	}
	require.Equal(map[int]bool{1: true, 2: true}, gotRows)

	require.Equal(3, m.Size())

	m.Erase(journal.New(), 1, 10)

	row1 = m.Row(1)
	require.Len(row1, 1)
	require.Equal(20, row1[0].EdgeCol)

	col10 = m.Col(10)
	require.Len(col10, 1)
	require.Equal(2, col10[0].EdgeRow)

	require.Equal(2, m.Size())
}

// TestManyToManyRowColConsistentWithWholeMatrix covers invariant 7: Row/Col
// iteration never yields a key absent from whole-matrix iteration or vice
// versa.
func TestManyToManyRowColConsistentWithWholeMatrix(t *testing.T) {
	require := require.New(t)
	m := NewManyToMany[int, int, edge](0, true, true,
		func(a, b int) bool { return a < b },
		func(a, b int) bool { return a < b },
	)
	m.Add(journal.New(), edge{1, 10, 1})
	m.Add(journal.New(), edge{1, 20, 2})
	m.Add(journal.New(), edge{2, 10, 3})

	whole := map[[2]int]bool{}
	m.Iterate(func(e edge) bool {
		whole[[2]int{e.EdgeRow, e.EdgeCol}] = true
		return true
	})

	for _, r := range m.Rows() {
		for _, e := range m.Row(r) {
			require.True(whole[[2]int{e.EdgeRow, e.EdgeCol}])
		}
	}
	for _, c := range m.Cols() {
		for _, e := range m.Col(c) {
			require.True(whole[[2]int{e.EdgeRow, e.EdgeCol}])
		}
	}
	for rc := range whole {
		found := false
		for _, e := range m.Row(rc[0]) {
			if e.EdgeCol == rc[1] {
				found = true
			}
		}
		require.True(found, "whole-matrix entry %v missing from its Row() partition", rc)
	}
}
