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

package txn

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/fields"
	"github.com/erigontech/txstorage/storage/journal"
	"github.com/erigontech/txstorage/storage/storagelog"
)

// Role distinguishes a storage that owns its stream (Master, free to run
// read-write transactions) from one that only replays another's stream
// (Follower, read-only until flipped).
type Role int32

const (
	RoleMaster Role = iota
	RoleFollower
)

// RoleFlag is an atomically-swapped Role, read on every ReadWriteTransaction
// call and written once by FlipToMaster.
type RoleFlag struct {
	v int32
}

func NewRoleFlag(initial Role) *RoleFlag {
	return &RoleFlag{v: int32(initial)}
}

func (f *RoleFlag) Get() Role        { return Role(atomic.LoadInt32(&f.v)) }
func (f *RoleFlag) Set(r Role)       { atomic.StoreInt32(&f.v, int32(r)) }
func (f *RoleFlag) IsFollower() bool { return f.Get() == RoleFollower }

// Policy serializes all transactions against a single fields aggregate
// behind one mutex, shared with the backing stream's own publish lock so
// that a transaction's commit and its corresponding stream publish can
// never interleave with another transaction. This is the entire
// concurrency story: no reader/writer split, no optimistic retry, one
// writer at a time, by design.
type Policy[F fields.Fields] struct {
	mu             sync.Locker
	target         F
	persist        func(j *journal.Journal) error
	role           *RoleFlag
	destructing    int32
	log            *storagelog.Logger
	ownerGoroutine int64 // 0 when unheld; debug-only reentrancy check via goid
}

// NewPolicy builds a transaction policy over target, guarded by mu (normally
// the backing stream's own publish lock) and persisting committed journals
// through persist, which is handed the not-yet-cleared journal so it can
// read both its commit log and its transaction meta fields. log may be nil.
func NewPolicy[F fields.Fields](mu sync.Locker, target F, role *RoleFlag, persist func(j *journal.Journal) error, log *storagelog.Logger) *Policy[F] {
	if log == nil {
		log = storagelog.Nop()
	}
	return &Policy[F]{mu: mu, target: target, persist: persist, role: role, log: log}
}

// checkReentrant logs (but does not prevent) a same-goroutine re-entry into
// a held read-write transaction -- the single most common way to deadlock a
// single-writer storage, since p.mu is not recursive.
func (p *Policy[F]) checkReentrant() {
	if holder := atomic.LoadInt64(&p.ownerGoroutine); holder != 0 && holder == goid.Get() {
		p.log.ReentrantTransactionDetected(holder)
	}
}

// CheckNotHeldByCurrentGoroutine logs (but does not prevent) a call made
// while the current goroutine holds this policy's lock via an in-flight
// ReadWriteTransaction -- the lock-ordering hazard FlipToMaster/BecomeMaster
// warn about in their own doc comments.
func (p *Policy[F]) CheckNotHeldByCurrentGoroutine() {
	if holder := atomic.LoadInt64(&p.ownerGoroutine); holder != 0 && holder == goid.Get() {
		p.log.ReentrantTransactionDetected(holder)
	}
}

// GracefulShutdown latches the policy closed: every transaction started
// after this call returns observes ErrStorageIsDestructing without ever
// taking the lock. In-flight transactions already holding the lock run to
// completion.
func (p *Policy[F]) GracefulShutdown() {
	atomic.StoreInt32(&p.destructing, 1)
}

func (p *Policy[F]) isDestructing() bool {
	return atomic.LoadInt32(&p.destructing) != 0
}

// ReadWriteTransaction runs f against the fields aggregate under the
// exclusive lock, commits f's mutations to the persister and resolves the
// future with Committed(value) on success. If f returns a rollback signal
// (RollbackWithValue/RollbackNoValue) the journal is unwound via
// journal.Rollback and the future resolves with Rolledback instead. Any
// other error also rolls back and fails the future with that error. Called
// against a follower, or after GracefulShutdown, fails immediately without
// taking the lock.
func ReadWriteTransaction[F fields.Fields, T any](p *Policy[F], f func(F) (T, error)) *Future[T] {
	if p.isDestructing() {
		return failed[T](ErrStorageIsDestructing)
	}
	if p.role != nil && p.role.IsFollower() {
		return failed[T](ErrReadWriteInFollower)
	}

	p.checkReentrant()
	p.mu.Lock()
	atomic.StoreInt64(&p.ownerGoroutine, goid.Get())
	defer func() {
		atomic.StoreInt64(&p.ownerGoroutine, 0)
		p.mu.Unlock()
	}()

	if p.isDestructing() {
		return failed[T](ErrStorageIsDestructing)
	}
	if err := p.target.Journal().AssertEmpty(); err != nil {
		return failed[T](err)
	}

	value, err := f(p.target)
	return concludeReadWrite(p, value, err)
}

// ReadWriteTransaction2 is the two-stage variant: f1 runs first and may
// mutate the aggregate and return an intermediate value; f2 then runs
// against the same (possibly further mutated) aggregate and the result of
// f1, producing the transaction's final value. Both stages execute under
// the same lock acquisition as a single atomic transaction: a rollback
// requested by either stage unwinds everything logged by both.
func ReadWriteTransaction2[F fields.Fields, T1 any, T2 any](p *Policy[F], f1 func(F) (T1, error), f2 func(F, T1) (T2, error)) *Future[T2] {
	if p.isDestructing() {
		return failed[T2](ErrStorageIsDestructing)
	}
	if p.role != nil && p.role.IsFollower() {
		return failed[T2](ErrReadWriteInFollower)
	}

	p.checkReentrant()
	p.mu.Lock()
	atomic.StoreInt64(&p.ownerGoroutine, goid.Get())
	defer func() {
		atomic.StoreInt64(&p.ownerGoroutine, 0)
		p.mu.Unlock()
	}()

	if p.isDestructing() {
		return failed[T2](ErrStorageIsDestructing)
	}
	if err := p.target.Journal().AssertEmpty(); err != nil {
		return failed[T2](err)
	}

	v1, err := f1(p.target)
	if err != nil {
		return concludeReadWrite[F, T2](p, zeroOf[T2](), err)
	}
	v2, err := f2(p.target, v1)
	return concludeReadWrite(p, v2, err)
}

// ReadOnlyTransaction runs f against the fields aggregate under the same
// exclusive lock as a read-write transaction (the policy shares one mutex
// for all transactions, per the serialization model) but never touches the
// persister: f must not mutate anything. If a mutation slips past the type
// system anyway, the journal entries it logged are rolled back and the
// future fails with an error, so nothing is persisted or left in the
// journal. Permitted against a follower.
func ReadOnlyTransaction[F fields.Fields, T any](p *Policy[F], f func(F) (T, error)) *Future[T] {
	if p.isDestructing() {
		return failed[T](ErrStorageIsDestructing)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isDestructing() {
		return failed[T](ErrStorageIsDestructing)
	}

	value, err := f(p.target)
	if j := p.target.Journal(); !j.Empty() {
		j.Rollback()
		p.resetTouchedIfSupported()
		return failed[T](errors.New("txn: read-only transaction mutated the fields aggregate"))
	}
	if err != nil {
		if _, isRollback := asRollback(err); isRollback {
			return resolved(Result[T]{Outcome: OutcomeRolledback})
		}
		return failed[T](err)
	}
	return resolved(Result[T]{Outcome: OutcomeCommitted, Value: value})
}

// concludeReadWrite implements the shared commit/rollback/persist tail for
// both ReadWriteTransaction and ReadWriteTransaction2, invoked while the
// lock from the caller is still held.
func concludeReadWrite[F fields.Fields, T any](p *Policy[F], value T, err error) *Future[T] {
	j := p.target.Journal()

	if err != nil {
		j.Rollback()
		p.resetTouchedIfSupported()
		if sig, isRollback := asRollback(err); isRollback {
			if sig.hasValue {
				if v, ok := sig.value.(T); ok {
					return resolved(Result[T]{Outcome: OutcomeRolledback, Value: v, HasValue: true})
				}
			}
			return resolved(Result[T]{Outcome: OutcomeRolledback})
		}
		return failed[T](err)
	}

	if j.Empty() {
		return resolved(Result[T]{Outcome: OutcomeCommitted, Value: value})
	}

	// In-memory state is already mutated by this point. A persist failure is
	// deliberately not rolled back here: the closure already observed its
	// own writes, other code in the same process may have observed them via
	// a nested read, and unwinding now would just disagree with what the
	// caller already saw. Recovery from a dangling un-persisted mutation is
	// by process restart and replay of the log, not by the core.
	if err := p.persist(j); err != nil {
		return failed[T](errors.Wrap(ErrCannotAppendToLog, err.Error()))
	}

	j.Clear()
	p.resetTouchedIfSupported()
	return resolved(Result[T]{Outcome: OutcomeCommitted, Value: value})
}

// resetTouchedIfSupported clears the fields-touched diagnostic bitmap when
// the aggregate exposes one. Every *fields.Base-embedding schema does; this
// indirection only exists so Policy doesn't need a second type constraint.
func (p *Policy[F]) resetTouchedIfSupported() {
	if resetter, ok := any(p.target).(interface{ ResetTouched() }); ok {
		resetter.ResetTouched()
	}
}

func zeroOf[T any]() T {
	var z T
	return z
}
