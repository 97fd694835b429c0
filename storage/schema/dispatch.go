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

package schema

import "fmt"

// FieldInfoFor builds the introspection record for a declared field given
// its name and its container's entry type name. Code emitted by
// cmd/storagegen calls this with the names parsed out of a field declaration; a
// hand-written schema (storage/demoschema) calls it directly with literal
// strings, so both paths produce identical FieldInfo shapes.
func FieldInfoFor(name, entryTypeName string) FieldInfo {
	return FieldInfo{
		Name:             name,
		UpdatedEventName: fmt.Sprintf("Updated[%s]", entryTypeName),
		DeletedEventName: fmt.Sprintf("Deleted[%s]", entryTypeName),
	}
}

// FieldInfoForRowCol is FieldInfoFor's variant for the two-key containers
// (ManyToMany, OneToOne, OneToMany), whose delete event carries a row and a
// column rather than a single key.
func FieldInfoForRowCol(name, entryTypeName string) FieldInfo {
	return FieldInfo{
		Name:             name,
		UpdatedEventName: fmt.Sprintf("Updated[%s]", entryTypeName),
		DeletedEventName: fmt.Sprintf("DeletedRC[%s]", entryTypeName),
	}
}
