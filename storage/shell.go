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

// Package storage is the top-level object composing a fields aggregate, a
// persister and a transaction policy into one usable storage instance. It
// is the package application code imports; storage/container,
// storage/journal, storage/fields, storage/txn and storage/persist are its
// building blocks.
package storage

import (
	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/fields"
	"github.com/erigontech/txstorage/storage/journal"
	"github.com/erigontech/txstorage/storage/persist"
	"github.com/erigontech/txstorage/storage/storagelog"
	"github.com/erigontech/txstorage/storage/stream"
	"github.com/erigontech/txstorage/storage/txn"
	"github.com/erigontech/txstorage/storage/wire"
)

// Storage composes a declared fields aggregate F with the stream it is
// bound to, through a persister and a transaction policy that share the
// stream's own publishing lock. Non-copyable by convention: callers pass
// *Storage[F] around, never a value copy.
type Storage[F fields.Fields] struct {
	target    F
	s         stream.Stream
	persister persist.Persister
	policy    *txn.Policy[F]
	role      *txn.RoleFlag
	log       *storagelog.Logger
}

// CreateMaster opens (creating if necessary) the stream at streamPath --
// empty for an in-process stream.Memory -- replays it into target, and
// returns a master storage ready to accept writes.
func CreateMaster[F fields.Fields](target F, streamPath string, reg wire.Registry, log *storagelog.Logger) (*Storage[F], error) {
	s, err := openStream(streamPath)
	if err != nil {
		return nil, err
	}
	return CreateMasterAtopExistingStream(target, s, reg, log)
}

// CreateMasterAtopExistingStream binds target to a caller-supplied,
// already-open stream as its owner.
func CreateMasterAtopExistingStream[F fields.Fields](target F, s stream.Stream, reg wire.Registry, log *storagelog.Logger) (*Storage[F], error) {
	if log == nil {
		log = storagelog.Nop()
	}
	p, err := persist.NewMaster(target, s, reg, log)
	if err != nil {
		return nil, err
	}
	role := txn.NewRoleFlag(txn.RoleMaster)
	st := &Storage[F]{target: target, s: s, persister: p, role: role, log: log}
	st.policy = txn.NewPolicy(s, target, role, st.persistJournal, log)
	return st, nil
}

// CreateFollowing opens (creating if necessary) the stream at streamPath,
// replays it into target, and returns a follower storage that keeps
// applying new records as they are published elsewhere.
func CreateFollowing[F fields.Fields](target F, streamPath string, reg wire.Registry, log *storagelog.Logger) (*Storage[F], error) {
	s, err := openStream(streamPath)
	if err != nil {
		return nil, err
	}
	return CreateFollowingAtopExistingStream(target, s, reg, log)
}

// CreateFollowingAtopExistingStream binds target to a caller-supplied,
// already-open stream in a read-only, replaying capacity.
func CreateFollowingAtopExistingStream[F fields.Fields](target F, s stream.Stream, reg wire.Registry, log *storagelog.Logger) (*Storage[F], error) {
	if log == nil {
		log = storagelog.Nop()
	}
	p, err := persist.NewFollowing(target, s, reg, log)
	if err != nil {
		return nil, err
	}
	role := txn.NewRoleFlag(txn.RoleFollower)
	st := &Storage[F]{target: target, s: s, persister: p, role: role, log: log}
	st.policy = txn.NewPolicy(s, target, role, st.persistJournal, log)
	return st, nil
}

func openStream(path string) (stream.Stream, error) {
	if path == "" {
		return stream.NewMemory(), nil
	}
	return stream.OpenFile(path)
}

func (st *Storage[F]) persistJournal(j *journal.Journal) error {
	return st.persister.PersistJournal(j)
}

// ReadWriteTransaction runs f under the exclusive lock; see
// storage/txn.ReadWriteTransaction for the full commit/rollback contract.
func ReadWriteTransaction[F fields.Fields, T any](st *Storage[F], f func(F) (T, error)) *txn.Future[T] {
	return txn.ReadWriteTransaction(st.policy, f)
}

// ReadWriteTransaction2 is the two-stage variant; see
// storage/txn.ReadWriteTransaction2.
func ReadWriteTransaction2[F fields.Fields, T1 any, T2 any](st *Storage[F], f1 func(F) (T1, error), f2 func(F, T1) (T2, error)) *txn.Future[T2] {
	return txn.ReadWriteTransaction2(st.policy, f1, f2)
}

// ReadOnlyTransaction runs f under the same lock without touching the
// journal; see storage/txn.ReadOnlyTransaction.
func ReadOnlyTransaction[F fields.Fields, T any](st *Storage[F], f func(F) (T, error)) *txn.Future[T] {
	return txn.ReadOnlyTransaction(st.policy, f)
}

// IsMaster reports this storage's current role.
func (st *Storage[F]) IsMaster() bool { return st.persister.IsMaster() }

// LastAppliedTimestamp is the microsecond timestamp of the most recently
// applied record, or 0 if none.
func (st *Storage[F]) LastAppliedTimestamp() int64 { return st.persister.LastAppliedTimestamp() }

// BorrowStream exposes the raw stream so callers may subscribe to it
// directly, without going through the transaction policy.
func (st *Storage[F]) BorrowStream() stream.Stream { return st.s }

// FlipToMaster promotes a following storage to master, terminating its
// subscription and taking the publisher. Must not be called while this
// storage's own transaction lock is held by the calling goroutine -- the
// underlying persister's BecomeMaster stops a subscription goroutine that
// may itself need the lock to apply one last in-flight record, the
// documented lock-ordering constraint from the persister's flip-to-master
// contract.
func (st *Storage[F]) FlipToMaster() error {
	replicated, ok := st.persister.(interface{ BecomeMaster() })
	if !ok {
		return errors.New("storage: persister does not support flip-to-master")
	}
	st.policy.CheckNotHeldByCurrentGoroutine()
	replicated.BecomeMaster()
	st.role.Set(txn.RoleMaster)
	return nil
}

// GracefulShutdown latches the transaction policy closed; see
// storage/txn.Policy.GracefulShutdown.
func (st *Storage[F]) GracefulShutdown() {
	st.policy.GracefulShutdown()
}

// Close releases the persister's and stream's resources.
func (st *Storage[F]) Close() error {
	if err := st.persister.Close(); err != nil {
		return err
	}
	return st.s.Close()
}
