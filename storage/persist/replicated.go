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

package persist

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/fields"
	"github.com/erigontech/txstorage/storage/journal"
	"github.com/erigontech/txstorage/storage/storagelog"
	"github.com/erigontech/txstorage/storage/stream"
	"github.com/erigontech/txstorage/storage/wire"
)

// Replicated is the Persister every non-trivial storage uses: it binds a
// fields aggregate to a stream.Stream, replays the stream's full history
// through Dispatch at construction time, and then either appends new
// records (Master) or keeps subscribing and applying them (Following).
type Replicated struct {
	target fields.Fields
	s      stream.Stream
	reg    wire.Registry
	log    *storagelog.Logger

	master       int32 // atomic bool
	lastAppliedUs int64 // atomic
	nextIndex     uint64 // stream index of the next record a follower applies

	// stopFollowing signals the follower goroutine to exit; closeFollowing
	// guards against closing it more than once, since both Close and
	// BecomeMaster may race to stop the same follower loop.
	stopFollowing  chan struct{}
	followerDone   chan struct{}
	closeFollowing sync.Once
}

// NewMaster binds target to a fresh or existing stream as its owner,
// replaying any records already on the stream before returning so a
// restarted master resumes from exactly where it left off.
func NewMaster(target fields.Fields, s stream.Stream, reg wire.Registry, log *storagelog.Logger) (*Replicated, error) {
	if log == nil {
		log = storagelog.Nop()
	}
	r := &Replicated{target: target, s: s, reg: reg, log: log, master: 1}
	if err := r.replayExisting(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewFollowing binds target to someone else's stream in a read-only
// capacity: it replays existing records, then subscribes from the first
// record it has not applied and keeps applying every record the stream
// delivers until Close or BecomeMaster is called. Resubscription after
// consecutive stream read errors backs off exponentially rather than
// busy-looping, per the "recovery is by process restart, not the core"
// failure model -- a follower, unlike a transaction, is allowed to retry
// because applying an already-committed record is idempotent replay, not a
// fresh write.
func NewFollowing(target fields.Fields, s stream.Stream, reg wire.Registry, log *storagelog.Logger) (*Replicated, error) {
	if log == nil {
		log = storagelog.Nop()
	}
	r := &Replicated{
		target:        target,
		s:             s,
		reg:           reg,
		log:           log,
		master:        0,
		stopFollowing: make(chan struct{}),
		followerDone:  make(chan struct{}),
	}
	if err := r.replayExisting(); err != nil {
		return nil, err
	}
	go r.followLoop()
	return r, nil
}

func (r *Replicated) replayExisting() error {
	r.log.ReplayStarted(0)
	applied := 0
	err := r.s.Iterate(func(index uint64, data []byte) (bool, error) {
		if err := r.applyRecord(data); err != nil {
			return false, err
		}
		applied++
		r.nextIndex = index + 1
		return true, nil
	})
	if err != nil {
		return errors.Wrap(err, "persist: replay")
	}
	r.log.ReplayApplied(applied, r.LastAppliedTimestamp())
	return nil
}

func (r *Replicated) applyRecord(data []byte) error {
	rec, err := wire.Unmarshal(data)
	if err != nil {
		return err
	}
	mutations, err := wire.DecodeMutations(rec, r.reg)
	if err != nil {
		return err
	}
	for _, m := range mutations {
		if err := r.target.Dispatch(m); err != nil {
			r.log.ReplayIntegrityViolation(m.FieldIndex(), err)
			return errors.Wrap(err, "persist: replay dispatch")
		}
		if m.Timestamp() > atomic.LoadInt64(&r.lastAppliedUs) {
			atomic.StoreInt64(&r.lastAppliedUs, m.Timestamp())
		}
	}
	return nil
}

func (r *Replicated) followLoop() {
	defer close(r.followerDone)

	attempt := 0
outer:
	for {
		select {
		case <-r.stopFollowing:
			return
		default:
		}

		sub := r.s.Subscribe(r.nextIndex)
		for {
			select {
			case <-r.stopFollowing:
				sub.Close()
				return
			case err, ok := <-sub.Errors:
				if ok && err != nil {
					r.log.SubscriptionError(err)
				}
				sub.Close()
				r.backoffWait(&attempt)
				continue outer
			case data, ok := <-sub.Records:
				if !ok {
					sub.Close()
					continue outer
				}
				// The containers are not internally synchronized; a
				// ReadOnlyTransaction serializes on this same stream lock
				// (storage/txn.Policy), so the live apply path must take
				// it too, unlike the single-threaded construction-time
				// replay above.
				r.s.Lock()
				err := r.applyRecord(data)
				r.s.Unlock()
				r.nextIndex++
				attempt = 0
				if err != nil {
					r.log.SubscriptionError(err)
				}
			}
		}
	}
}

func (r *Replicated) backoffWait(attempt *int) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.Reset()
	*attempt++
	var wait time.Duration
	for i := 0; i < *attempt; i++ {
		wait = b.NextBackOff()
	}
	r.log.SubscriptionRetry(*attempt, wait.String())
	select {
	case <-time.After(wait):
	case <-r.stopFollowing:
	}
}

// PersistJournal appends the journal as a new stream record. Valid only on
// a master persister; a follower's journal is never expected to carry
// mutations since read-write transactions are rejected before reaching the
// persister on a follower.
func (r *Replicated) PersistJournal(j *journal.Journal) error {
	rec, err := wire.EncodeRecord(j, r.reg)
	if err != nil {
		return err
	}
	data, err := wire.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "persist: marshal record")
	}
	if _, err := r.s.Publish(data); err != nil {
		return errors.Wrap(err, "persist: publish record")
	}
	for _, m := range rec.Mutations {
		if m.US > atomic.LoadInt64(&r.lastAppliedUs) {
			atomic.StoreInt64(&r.lastAppliedUs, m.US)
		}
	}
	return nil
}

func (r *Replicated) IsMaster() bool { return atomic.LoadInt32(&r.master) != 0 }

func (r *Replicated) LastAppliedTimestamp() int64 { return atomic.LoadInt64(&r.lastAppliedUs) }

// BecomeMaster stops following and flips this persister into a master
// bound to the same stream, picking up appends from exactly where replay
// left off. Must not be called while the caller holds the transaction
// policy's lock (storage/txn.Policy, the same mutex as the stream's own
// Lock/Unlock): stopFollowerLoop waits for the follower goroutine to exit,
// and that goroutine may itself be blocked acquiring the stream lock to
// apply one last in-flight record, so holding it here would deadlock.
func (r *Replicated) BecomeMaster() {
	r.stopFollowerLoop()
	atomic.StoreInt32(&r.master, 1)
	r.log.FlipToMaster(r.LastAppliedTimestamp())
}

func (r *Replicated) stopFollowerLoop() {
	if r.stopFollowing == nil {
		return
	}
	r.closeFollowing.Do(func() { close(r.stopFollowing) })
	<-r.followerDone
}

func (r *Replicated) Close() error {
	r.stopFollowerLoop()
	return nil
}
