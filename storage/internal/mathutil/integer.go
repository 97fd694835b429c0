// Copyright 2017 The go-ethereum Authors
// (original work)
// Copyright 2024 The Erigon Authors
// (modifications)
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

// Package mathutil holds the small overflow-safe integer helpers the
// storage engine needs for offset and buffer-size arithmetic. Trimmed down
// from the teacher's math package: no hex/decimal JSON marshaling here,
// that belongs to the serialization surface this engine deliberately
// leaves to its caller.
package mathutil

import (
	"math/bits"
)

// SafeAdd returns x+y and whether the addition overflowed. File.Publish
// uses this to guard the running file offset against wraparound before
// trusting it as the next record's seek position.
func SafeAdd(x, y uint64) (uint64, bool) {
	sum, carryOut := bits.Add64(x, y, 0)
	return sum, carryOut != 0
}

// CeilDiv divides x by y, rounding up. storageconfig.Config.Validate uses
// it to sanity-check a configured buffer threshold against a minimum
// record-size estimate.
func CeilDiv(x, y int) int {
	if y == 0 {
		return 0
	}
	return (x + y - 1) / y
}
