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

// Package stream is the append-only record log the persister binds a fields
// aggregate to. The real deployment's stream is a remote, subscribable
// transport — explicitly out of scope here — but the persister and the
// transaction policy both need *a* concrete stream to be exercised end to
// end, so this package provides two: Memory, for tests and single-process
// use, and File, a line-delimited on-disk log for anything that needs to
// survive a restart.
package stream

// Locker is the publish-side lock every Stream exposes. The transaction
// policy borrows this exact mutex (see storage/txn.Policy) so that a
// transaction's commit and the stream append it produces can never
// interleave with another transaction's.
type Locker interface {
	Lock()
	Unlock()
}

// Subscription delivers records published after the point it was created,
// starting either from the beginning of the stream (for a follower doing
// initial replay) or from the current tail (live-only). Close stops
// delivery; the channel is closed once no more records will arrive.
type Subscription struct {
	Records <-chan []byte
	Errors  <-chan error
	cancel  func()
}

// Close stops this subscription. Safe to call more than once.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Stream is an append-only log of opaque records (each one a
// wire.Marshal-ed Record). ID is the stream instance's identity, a UUID
// assigned when the Memory or File is created; a flip-to-master keeps the
// same stream and therefore the same ID.
type Stream interface {
	Locker

	ID() string

	// Publish appends data as the next record and returns its 0-based
	// sequence index. Must be called with the stream's lock held -- it does
	// not lock internally, so the transaction policy's single critical
	// section covers both the in-memory commit and this append.
	Publish(data []byte) (uint64, error)

	// Iterate replays every record from index 0 in publish order, stopping
	// early if fn returns false or an error.
	Iterate(fn func(index uint64, data []byte) (bool, error)) error

	// Subscribe starts delivering records from fromIndex onward (use Size()
	// for live-only). The returned Subscription must be Closed by the
	// caller.
	Subscribe(fromIndex uint64) *Subscription

	// Size returns the number of records published so far.
	Size() (uint64, error)

	// LastPublishedTimestamp returns the microsecond timestamp embedded in
	// the most recently published record's envelope, or 0 if the stream is
	// empty. Streams are opaque to record contents, so implementations
	// parse just enough of the JSON to extract it; see envelopeTimestamp.
	LastPublishedTimestamp() (int64, error)

	// Close releases any resources (open file handles, subscriber
	// goroutines) held by the stream. Does not delete persisted data.
	Close() error
}
