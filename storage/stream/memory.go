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

package stream

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
)

// envelopeTimestamp is the minimal shape every wire.Record marshals to,
// used only to pull the "us" field back out without importing storage/wire
// (which would make wire depend on stream transitively through tests).
type envelopeTimestamp struct {
	Mutations []struct {
		US int64 `json:"us"`
	} `json:"mutations"`
}

// Memory is an in-process, never-persisted Stream: every record lives in a
// slice guarded by the same lock the transaction policy borrows. It is the
// default for tests and for a storage that does not need to survive a
// process restart.
type Memory struct {
	mu      deadlock.Mutex
	id      string
	records [][]byte
	subs    map[int]chan []byte
	nextSub int
	subMu   sync.Mutex
}

// NewMemory constructs an empty in-process stream with a fresh identity.
func NewMemory() *Memory {
	return &Memory{
		id:   uuid.NewString(),
		subs: make(map[int]chan []byte),
	}
}

func (m *Memory) ID() string { return m.id }

func (m *Memory) Lock()   { m.mu.Lock() }
func (m *Memory) Unlock() { m.mu.Unlock() }

// Publish assumes the caller already holds m's lock (per the Stream
// contract); it does not lock itself.
func (m *Memory) Publish(data []byte) (uint64, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.records = append(m.records, cp)
	index := uint64(len(m.records) - 1)

	m.subMu.Lock()
	for _, ch := range m.subs {
		select {
		case ch <- cp:
		default:
			// A slow subscriber does not block publish; a record that
			// does not fit in its buffer is dropped for that subscriber and
			// is not re-delivered. Memory is a test and single-process
			// stream, not a durable broker.
		}
	}
	m.subMu.Unlock()

	return index, nil
}

func (m *Memory) Iterate(fn func(index uint64, data []byte) (bool, error)) error {
	m.mu.Lock()
	snapshot := make([][]byte, len(m.records))
	copy(snapshot, m.records)
	m.mu.Unlock()

	for i, rec := range snapshot {
		cont, err := fn(uint64(i), rec)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (m *Memory) Subscribe(fromIndex uint64) *Subscription {
	records := make(chan []byte, 64)
	errs := make(chan error, 1)

	m.mu.Lock()
	backlog := make([][]byte, 0)
	if fromIndex < uint64(len(m.records)) {
		backlog = append(backlog, m.records[fromIndex:]...)
	}
	m.mu.Unlock()

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = records
	m.subMu.Unlock()

	go func() {
		for _, rec := range backlog {
			records <- rec
		}
	}()

	cancel := func() {
		m.subMu.Lock()
		if ch, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
		m.subMu.Unlock()
	}

	return &Subscription{Records: records, Errors: errs, cancel: cancel}
}

func (m *Memory) Size() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.records)), nil
}

func (m *Memory) LastPublishedTimestamp() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return 0, nil
	}
	var env envelopeTimestamp
	if err := json.Unmarshal(m.records[len(m.records)-1], &env); err != nil {
		return 0, errors.Wrap(err, "stream: decode last record timestamp")
	}
	var max int64
	for _, mu := range env.Mutations {
		if mu.US > max {
			max = mu.US
		}
	}
	return max, nil
}

func (m *Memory) Close() error {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	return nil
}
