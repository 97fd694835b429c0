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

// Package persist binds a fields aggregate to an append-only stream: a
// Master persister appends each committed journal as a new stream record; a
// Following persister instead subscribes to someone else's stream and
// replays every record it receives through the same Dispatch path used for
// startup replay, so there is exactly one state-reconstruction code path
// for both cases.
package persist

import (
	"github.com/erigontech/txstorage/storage/journal"
)

// Persister is what storage/txn.Policy and the storage shell depend on.
type Persister interface {
	// PersistJournal appends j's commit log and meta fields as the next
	// stream record. Called with the transaction's lock already held.
	// Returns an error if the stream append itself fails; the caller
	// (txn.Policy) does not roll back in-memory state on this error, per
	// the documented failure model.
	PersistJournal(j *journal.Journal) error

	// IsMaster reports whether this persister owns its stream (true) or
	// only replays another's (false).
	IsMaster() bool

	// LastAppliedTimestamp returns the microsecond timestamp of the most
	// recently applied record, or 0 if none has been applied yet.
	LastAppliedTimestamp() int64

	// Close releases the persister's resources (subscriptions, file
	// handles) without closing the underlying stream it was handed.
	Close() error
}

