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

package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeAddNoOverflow(t *testing.T) {
	sum, overflow := SafeAdd(2, 3)
	require.Equal(t, uint64(5), sum)
	require.False(t, overflow)
}

func TestSafeAddOverflow(t *testing.T) {
	_, overflow := SafeAdd(math.MaxUint64, 1)
	require.True(t, overflow)
}

func TestCeilDiv(t *testing.T) {
	require := require.New(t)
	require.Equal(1, CeilDiv(1, 64))
	require.Equal(1, CeilDiv(64, 64))
	require.Equal(2, CeilDiv(65, 64))
	require.Equal(0, CeilDiv(10, 0))
}
