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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilePublishAndIterate(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "journal.log")

	f, err := OpenFile(path)
	require.NoError(err)
	defer f.Close()

	f.Lock()
	idx0, err := f.Publish([]byte(`{"mutations":[{"us":1}]}`))
	f.Unlock()
	require.NoError(err)
	require.Equal(uint64(0), idx0)

	f.Lock()
	idx1, err := f.Publish([]byte(`{"mutations":[{"us":2}]}`))
	f.Unlock()
	require.NoError(err)
	require.Equal(uint64(1), idx1)

	var seen [][]byte
	require.NoError(f.Iterate(func(index uint64, data []byte) (bool, error) {
		seen = append(seen, data)
		return true, nil
	}))
	require.Len(seen, 2)
	require.Contains(string(seen[0]), `"us":1`)
	require.Contains(string(seen[1]), `"us":2`)

	size, err := f.Size()
	require.NoError(err)
	require.Equal(uint64(2), size)

	us, err := f.LastPublishedTimestamp()
	require.NoError(err)
	require.Equal(int64(2), us)
}

func TestFileReindexOnReopenRecoversOffsets(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "journal.log")

	f, err := OpenFile(path)
	require.NoError(err)
	f.Lock()
	f.Publish([]byte(`{"mutations":[{"us":1}]}`))
	f.Publish([]byte(`{"mutations":[{"us":2}]}`))
	f.Unlock()
	require.NoError(f.Close())

	reopened, err := OpenFile(path)
	require.NoError(err)
	defer reopened.Close()

	size, err := reopened.Size()
	require.NoError(err)
	require.Equal(uint64(2), size)

	var seen [][]byte
	require.NoError(reopened.Iterate(func(index uint64, data []byte) (bool, error) {
		seen = append(seen, data)
		return true, nil
	}))
	require.Len(seen, 2)
	require.Contains(string(seen[0]), `"us":1`)
	require.Contains(string(seen[1]), `"us":2`)

	reopened.Lock()
	idx2, err := reopened.Publish([]byte(`{"mutations":[{"us":3}]}`))
	reopened.Unlock()
	require.NoError(err)
	require.Equal(uint64(2), idx2, "offset index must pick up after the records written before reopen")
}

func TestFileRejectsRecordContainingNewline(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "journal.log")
	f, err := OpenFile(path)
	require.NoError(err)
	defer f.Close()

	f.Lock()
	_, err = f.Publish([]byte("line1\nline2"))
	f.Unlock()
	require.Error(err)
}

func TestFileSubscribeReceivesBacklogThenLive(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "journal.log")
	f, err := OpenFile(path)
	require.NoError(err)
	defer f.Close()

	f.Lock()
	f.Publish([]byte(`{"mutations":[{"us":1}]}`))
	f.Unlock()

	sub := f.Subscribe(0)
	defer sub.Close()

	select {
	case rec := <-sub.Records:
		require.Contains(string(rec), `"us":1`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for backlog record")
	}

	f.Lock()
	f.Publish([]byte(`{"mutations":[{"us":2}]}`))
	f.Unlock()

	select {
	case rec := <-sub.Records:
		require.Contains(string(rec), `"us":2`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live record")
	}
}

func TestFileCloseClosesAllSubscriptions(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "journal.log")
	f, err := OpenFile(path)
	require.NoError(err)

	sub := f.Subscribe(0)
	require.NoError(f.Close())

	_, ok := <-sub.Records
	require.False(ok)
}
