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

import "github.com/erigontech/txstorage/storage/journal"

// Null discards every journal it is handed and never replays anything. It
// exists to unit-test containers and the transaction policy in isolation
// from any stream, the way a mock persister would in the original.
type Null struct{}

func (Null) PersistJournal(*journal.Journal) error { return nil }
func (Null) IsMaster() bool                        { return true }
func (Null) LastAppliedTimestamp() int64           { return 0 }
func (Null) Close() error                          { return nil }
