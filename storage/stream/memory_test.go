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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryPublishAndIterate(t *testing.T) {
	require := require.New(t)
	m := NewMemory()

	m.Lock()
	idx0, err := m.Publish([]byte(`{"mutations":[{"us":1}]}`))
	m.Unlock()
	require.NoError(err)
	require.Equal(uint64(0), idx0)

	m.Lock()
	idx1, err := m.Publish([]byte(`{"mutations":[{"us":2}]}`))
	m.Unlock()
	require.NoError(err)
	require.Equal(uint64(1), idx1)

	var seen [][]byte
	require.NoError(m.Iterate(func(index uint64, data []byte) (bool, error) {
		seen = append(seen, data)
		return true, nil
	}))
	require.Len(seen, 2)

	size, err := m.Size()
	require.NoError(err)
	require.Equal(uint64(2), size)

	us, err := m.LastPublishedTimestamp()
	require.NoError(err)
	require.Equal(int64(2), us)
}

func TestMemorySubscribeReceivesBacklogThenLive(t *testing.T) {
	require := require.New(t)
	m := NewMemory()

	m.Lock()
	m.Publish([]byte(`{"mutations":[{"us":1}]}`))
	m.Unlock()

	sub := m.Subscribe(0)
	defer sub.Close()

	select {
	case rec := <-sub.Records:
		require.Contains(string(rec), `"us":1`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for backlog record")
	}

	m.Lock()
	m.Publish([]byte(`{"mutations":[{"us":2}]}`))
	m.Unlock()

	select {
	case rec := <-sub.Records:
		require.Contains(string(rec), `"us":2`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live record")
	}
}

func TestMemorySubscribeFromIndexSkipsBacklog(t *testing.T) {
	require := require.New(t)
	m := NewMemory()
	m.Lock()
	m.Publish([]byte(`{"mutations":[{"us":1}]}`))
	m.Publish([]byte(`{"mutations":[{"us":2}]}`))
	m.Unlock()

	sub := m.Subscribe(1)
	defer sub.Close()

	select {
	case rec := <-sub.Records:
		require.Contains(string(rec), `"us":2`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for record")
	}

	select {
	case rec := <-sub.Records:
		t.Fatalf("unexpected extra record: %s", rec)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryCloseClosesAllSubscriptions(t *testing.T) {
	require := require.New(t)
	m := NewMemory()
	sub := m.Subscribe(0)
	require.NoError(m.Close())

	_, ok := <-sub.Records
	require.False(ok, "closing the stream must close every outstanding subscription channel")
}
