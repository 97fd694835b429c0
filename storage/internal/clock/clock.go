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

// Package clock hands out strictly increasing microsecond timestamps.
//
// Containers and the stream both need "now" in microseconds, and several
// spec scenarios (OneToOne conflict resolution, last-modified timestamps)
// require that two timestamps sampled in quick succession never compare
// equal. wall-clock time.Now() alone does not guarantee that on platforms
// with coarse clock resolution, so Now ratchets forward off the last value
// it handed out.
package clock

import (
	"sync/atomic"
	"time"
)

var last int64

// Now returns the current time in microseconds since the Unix epoch,
// guaranteed strictly greater than every value Now has previously returned
// in this process.
func Now() int64 {
	for {
		prev := atomic.LoadInt64(&last)
		cur := time.Now().UnixMicro()
		if cur <= prev {
			cur = prev + 1
		}
		if atomic.CompareAndSwapInt64(&last, prev, cur) {
			return cur
		}
	}
}
