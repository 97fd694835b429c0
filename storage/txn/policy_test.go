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
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/txstorage/storage/demoschema"
	"github.com/erigontech/txstorage/storage/journal"
)

func TestReadWriteTransactionCommitsAndPersists(t *testing.T) {
	require := require.New(t)
	target := demoschema.New()
	var persistedCount int
	persist := func(j *journal.Journal) error {
		persistedCount = len(j.CommitLog())
		return nil
	}
	p := NewPolicy(&sync.Mutex{}, target, NewRoleFlag(RoleMaster), persist, nil)

	future := ReadWriteTransaction(p, func(f *demoschema.Fields) (string, error) {
		f.AddUser(f.Journal(), demoschema.User{UserKey: "u1", Name: "Alice"})
		return "ok", nil
	})

	result, err := future.Await()
	require.NoError(err)
	require.Equal(OutcomeCommitted, result.Outcome)
	require.Equal("ok", result.Value)
	require.Equal(1, persistedCount)

	u, ok := target.Users.Get("u1")
	require.True(ok)
	require.Equal("Alice", u.Name)
}

func TestReadWriteTransactionRollbackNoValue(t *testing.T) {
	require := require.New(t)
	target := demoschema.New()
	persistCalled := false
	persist := func(j *journal.Journal) error { persistCalled = true; return nil }
	p := NewPolicy(&sync.Mutex{}, target, NewRoleFlag(RoleMaster), persist, nil)

	future := ReadWriteTransaction(p, func(f *demoschema.Fields) (string, error) {
		f.AddUser(f.Journal(), demoschema.User{UserKey: "u1", Name: "Alice"})
		return "", RollbackNoValue()
	})

	result, err := future.Await()
	require.NoError(err)
	require.Equal(OutcomeRolledback, result.Outcome)
	require.False(persistCalled, "a rolled-back transaction must never reach the persister")

	require.Equal(0, target.Users.Size())
	_, ok := target.Users.LastModified("u1")
	require.False(ok, "rollback must undo the timestamp ratchet as well as the value")
}

func TestReadWriteTransactionRollbackWithValue(t *testing.T) {
	require := require.New(t)
	target := demoschema.New()
	p := NewPolicy(&sync.Mutex{}, target, NewRoleFlag(RoleMaster), func(j *journal.Journal) error { return nil }, nil)

	future := ReadWriteTransaction(p, func(f *demoschema.Fields) (int, error) {
		return 0, RollbackWithValue(42)
	})

	result, err := future.Await()
	require.NoError(err)
	require.Equal(OutcomeRolledback, result.Outcome)
	require.True(result.HasValue)
	require.Equal(42, result.Value)
}

func TestReadWriteTransactionInFollowerFails(t *testing.T) {
	require := require.New(t)
	target := demoschema.New()
	p := NewPolicy(&sync.Mutex{}, target, NewRoleFlag(RoleFollower), func(j *journal.Journal) error { return nil }, nil)

	future := ReadWriteTransaction(p, func(f *demoschema.Fields) (int, error) { return 0, nil })
	_, err := future.Await()
	require.ErrorIs(err, ErrReadWriteInFollower)
}

func TestPersistFailureDoesNotRollbackInMemoryState(t *testing.T) {
	require := require.New(t)
	target := demoschema.New()
	p := NewPolicy(&sync.Mutex{}, target, NewRoleFlag(RoleMaster), func(j *journal.Journal) error {
		return errors.New("disk full")
	}, nil)

	future := ReadWriteTransaction(p, func(f *demoschema.Fields) (string, error) {
		f.AddUser(f.Journal(), demoschema.User{UserKey: "u1", Name: "Alice"})
		return "ok", nil
	})

	_, err := future.Await()
	require.Error(err)
	require.ErrorIs(err, ErrCannotAppendToLog)

	u, ok := target.Users.Get("u1")
	require.True(ok, "in-memory mutation must survive a persist failure, per the documented ordering decision")
	require.Equal("Alice", u.Name)
}

func TestReadOnlyTransactionNeverTouchesJournal(t *testing.T) {
	require := require.New(t)
	target := demoschema.New()
	ReadWriteTransaction(p(target), func(f *demoschema.Fields) (int, error) {
		f.AddUser(f.Journal(), demoschema.User{UserKey: "u1", Name: "Alice"})
		return 0, nil
	}).Await()

	roP := NewPolicy(&sync.Mutex{}, target, NewRoleFlag(RoleFollower), func(j *journal.Journal) error {
		t.Fatal("read-only transaction must never call persist")
		return nil
	}, nil)

	future := ReadOnlyTransaction(roP, func(f *demoschema.Fields) (int, error) {
		return f.Users.Size(), nil
	})
	result, err := future.Await()
	require.NoError(err)
	require.Equal(1, result.Value)
	require.True(target.Journal().Empty())
}

func p(target *demoschema.Fields) *Policy[*demoschema.Fields] {
	return NewPolicy(&sync.Mutex{}, target, NewRoleFlag(RoleMaster), func(j *journal.Journal) error { return nil }, nil)
}

func TestGracefulShutdownRejectsNewTransactions(t *testing.T) {
	require := require.New(t)
	target := demoschema.New()
	pol := NewPolicy(&sync.Mutex{}, target, NewRoleFlag(RoleMaster), func(j *journal.Journal) error { return nil }, nil)
	pol.GracefulShutdown()

	future := ReadWriteTransaction(pol, func(f *demoschema.Fields) (int, error) { return 0, nil })
	_, err := future.Await()
	require.ErrorIs(err, ErrStorageIsDestructing)
}

func TestFutureGetOnAlreadyResolvedFuture(t *testing.T) {
	require := require.New(t)
	target := demoschema.New()
	pol := NewPolicy(&sync.Mutex{}, target, NewRoleFlag(RoleMaster), func(j *journal.Journal) error { return nil }, nil)

	future := ReadWriteTransaction(pol, func(f *demoschema.Fields) (int, error) { return 7, nil })

	result, err := future.Get(context.Background())
	require.NoError(err)
	require.Equal(7, result.Value)
}
