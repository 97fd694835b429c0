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

// Package txn implements the transaction policy: serialized read-write and
// read-only transactions, rollback on explicit signal or error, journal
// flush to the persister on commit, and graceful shutdown.
package txn

import "github.com/pkg/errors"

// ErrReadWriteInFollower is returned when ReadWriteTransaction is invoked
// against a follower storage.
var ErrReadWriteInFollower = errors.New("txn: read-write transaction attempted on a follower storage")

// ErrStorageIsDestructing is returned when any transaction is invoked after
// GracefulShutdown has been called.
var ErrStorageIsDestructing = errors.New("txn: storage is shutting down")

// ErrCannotAppendToLog wraps a persister failure to append a transaction
// record. Per the documented failure model, in-memory state is left as-is;
// recovery is by process restart and replay, not by the core.
var ErrCannotAppendToLog = errors.New("txn: persister failed to append transaction record")

// rollbackSignal is the error value a transaction closure returns to
// request an explicit rollback, optionally carrying a result value. It is
// never a "real" error: the policy recognizes it via asRollback and never
// propagates it through a Future's error channel.
type rollbackSignal struct {
	value    any
	hasValue bool
}

func (r *rollbackSignal) Error() string {
	if r.hasValue {
		return "txn: rollback requested with value"
	}
	return "txn: rollback requested without value"
}

// RollbackWithValue requests that the enclosing transaction roll back,
// fulfilling the result future with Rolledback(value).
func RollbackWithValue(value any) error {
	return &rollbackSignal{value: value, hasValue: true}
}

// RollbackNoValue requests that the enclosing transaction roll back,
// fulfilling the result future with Rolledback(absent).
func RollbackNoValue() error {
	return &rollbackSignal{hasValue: false}
}

// asRollback reports whether err is a rollback signal, and returns it.
func asRollback(err error) (*rollbackSignal, bool) {
	sig, ok := err.(*rollbackSignal)
	return sig, ok
}
