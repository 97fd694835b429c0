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

package main

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Family names a container family this generator knows how to emit. The
// values match storage/container's four family names.
type Family string

const (
	FamilyDictionary Family = "dictionary"
	FamilyOneToOne   Family = "one_to_one"
	FamilyOneToMany  Family = "one_to_many"
	FamilyManyToMany Family = "many_to_many"
)

// EntryField is one member of a declared entry type.
type EntryField struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// FieldDecl declares one field of a storage: its container family, the
// shape of the value it stores, and which entry member supplies the
// container's key (Dictionary) or row/col (the three matrix families).
type FieldDecl struct {
	Name        string       `toml:"name"`
	Family      Family       `toml:"family"`
	EntryType   string       `toml:"entry_type"`
	EntryFields []EntryField `toml:"entry_field"`

	KeyType  string `toml:"key_type"`  // dictionary
	KeyField string `toml:"key_field"` // dictionary

	RowType  string `toml:"row_type"`  // matrix families
	ColType  string `toml:"col_type"`  // matrix families
	RowField string `toml:"row_field"` // matrix families
	ColField string `toml:"col_field"` // matrix families

	Ordered    bool `toml:"ordered"`     // dictionary
	RowOrdered bool `toml:"row_ordered"` // matrix families
	ColOrdered bool `toml:"col_ordered"` // matrix families
}

// Declaration is the top-level schema source: one storage declaration, one
// or more fields, in the order their field indices are assigned.
type Declaration struct {
	Package string      `toml:"package"`
	Fields  []FieldDecl `toml:"field"`
}

// LoadDeclaration reads and validates a TOML schema source at path.
func LoadDeclaration(path string) (Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Declaration{}, errors.Wrapf(err, "storagegen: read %s", path)
	}
	var decl Declaration
	if err := toml.Unmarshal(data, &decl); err != nil {
		return Declaration{}, errors.Wrapf(err, "storagegen: decode %s", path)
	}
	if err := decl.Validate(); err != nil {
		return Declaration{}, err
	}
	return decl, nil
}

func (d Declaration) Validate() error {
	if d.Package == "" {
		return errors.New("storagegen: package is required")
	}
	if len(d.Fields) == 0 {
		return errors.New("storagegen: at least one field is required")
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if seen[f.Name] {
			return errors.Errorf("storagegen: duplicate field name %q", f.Name)
		}
		seen[f.Name] = true
		if err := f.validate(); err != nil {
			return errors.Wrapf(err, "storagegen: field %q", f.Name)
		}
	}
	return nil
}

func (f FieldDecl) validate() error {
	if f.EntryType == "" {
		return errors.New("entry_type is required")
	}
	switch f.Family {
	case FamilyDictionary:
		if f.KeyType == "" || f.KeyField == "" {
			return errors.New("dictionary field requires key_type and key_field")
		}
	case FamilyOneToOne, FamilyOneToMany, FamilyManyToMany:
		if f.RowType == "" || f.ColType == "" || f.RowField == "" || f.ColField == "" {
			return errors.New("matrix family field requires row_type, col_type, row_field and col_field")
		}
	default:
		return errors.Errorf("unknown family %q", f.Family)
	}
	return nil
}
