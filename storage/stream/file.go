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
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/c2h5oh/datasize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"

	"github.com/erigontech/txstorage/storage/internal/mathutil"
)

// File is a line-delimited, append-only on-disk Stream: one JSON record per
// line, fsync'd on Publish so a committed transaction survives a crash
// immediately after. BufferThreshold sets the size of the write buffer, not
// how often the file itself is flushed -- every Publish flushes.
type File struct {
	mu deadlock.Mutex

	id   string
	path string
	f    *os.File
	w    *bufio.Writer

	// BufferThreshold is the size of the bufio.Writer that OpenFile creates;
	// changing it after OpenFile has no effect. Iterate does not use it.
	BufferThreshold datasize.ByteSize

	offsets []int64 // byte offset of the start of each record
	size    int64   // current file size in bytes

	subMu   sync.Mutex
	subs    map[int]chan []byte
	nextSub int
}

const defaultBufferThreshold = 1 * datasize.MB

// OpenFile opens (creating if necessary) a line-delimited record log at
// path, replaying its existing offsets so Size/Iterate/Subscribe are
// immediately accurate. The stream identity is derived fresh each process
// start; callers that need a stable identity across restarts persist it
// alongside path themselves. Nothing in this module does so.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "stream: open %s", path)
	}

	s := &File{
		id:              uuid.NewString(),
		path:            path,
		f:               f,
		BufferThreshold: defaultBufferThreshold,
		subs:            make(map[int]chan []byte),
	}

	if err := s.reindex(); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stream: seek to end")
	}
	s.w = bufio.NewWriterSize(f, int(s.BufferThreshold))

	return s, nil
}

func (s *File) reindex() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "stream: seek to start")
	}
	scanner := bufio.NewScanner(s.f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var offset uint64
	for scanner.Scan() {
		s.offsets = append(s.offsets, int64(offset))
		next, overflow := mathutil.SafeAdd(offset, uint64(len(scanner.Bytes()))+1)
		if overflow {
			return errors.New("stream: reindex: file size overflow")
		}
		offset = next
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "stream: reindex")
	}
	s.size = int64(offset)
	return nil
}

func (s *File) ID() string { return s.id }

func (s *File) Lock()   { s.mu.Lock() }
func (s *File) Unlock() { s.mu.Unlock() }

// Publish assumes the caller holds s's lock.
func (s *File) Publish(data []byte) (uint64, error) {
	if bytes.ContainsRune(data, '\n') {
		return 0, errors.New("stream: record must not contain a newline")
	}

	offset := s.size
	if _, err := s.w.Write(data); err != nil {
		return 0, errors.Wrap(err, "stream: write record")
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return 0, errors.Wrap(err, "stream: write newline")
	}
	if err := s.w.Flush(); err != nil {
		return 0, errors.Wrap(err, "stream: flush")
	}
	if err := s.f.Sync(); err != nil {
		return 0, errors.Wrap(err, "stream: fsync")
	}

	newSize, overflow := mathutil.SafeAdd(uint64(s.size), uint64(len(data))+1)
	if overflow {
		return 0, errors.New("stream: file size overflow")
	}

	s.offsets = append(s.offsets, offset)
	s.size = int64(newSize)
	index := uint64(len(s.offsets) - 1)

	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- data:
		default:
		}
	}
	s.subMu.Unlock()

	return index, nil
}

func (s *File) readRecord(index uint64) ([]byte, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "stream: reopen for read")
	}
	defer f.Close()

	if _, err := f.Seek(s.offsets[index], io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "stream: seek to record")
	}
	reader := bufio.NewReader(f)
	line, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "stream: read record")
	}
	return bytes.TrimRight(line, "\n"), nil
}

func (s *File) Iterate(fn func(index uint64, data []byte) (bool, error)) error {
	s.mu.Lock()
	n := len(s.offsets)
	s.mu.Unlock()

	for i := 0; i < n; i++ {
		s.mu.Lock()
		rec, err := s.readRecord(uint64(i))
		s.mu.Unlock()
		if err != nil {
			return err
		}
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

func (s *File) Subscribe(fromIndex uint64) *Subscription {
	records := make(chan []byte, 64)
	errs := make(chan error, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = records
	s.subMu.Unlock()

	go func() {
		if err := s.Iterate(func(index uint64, data []byte) (bool, error) {
			if index < fromIndex {
				return true, nil
			}
			records <- data
			return true, nil
		}); err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	}()

	cancel := func() {
		s.subMu.Lock()
		if ch, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.subMu.Unlock()
	}

	return &Subscription{Records: records, Errors: errs, cancel: cancel}
}

func (s *File) Size() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.offsets)), nil
}

func (s *File) LastPublishedTimestamp() (int64, error) {
	s.mu.Lock()
	n := len(s.offsets)
	s.mu.Unlock()
	if n == 0 {
		return 0, nil
	}
	s.mu.Lock()
	rec, err := s.readRecord(uint64(n - 1))
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var env envelopeTimestamp
	if err := json.Unmarshal(rec, &env); err != nil {
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

func (s *File) Close() error {
	s.subMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return errors.Wrap(err, "stream: flush on close")
	}
	return s.f.Close()
}
