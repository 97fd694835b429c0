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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSchema = `
package = "demoschema2"

[[field]]
name = "users"
family = "dictionary"
ordered = true
key_type = "string"
key_field = "user_key"
entry_type = "User"
[[field.entry_field]]
name = "user_key"
type = "string"
[[field.entry_field]]
name = "name"
type = "string"

[[field]]
name = "edges"
family = "many_to_many"
row_type = "int"
col_type = "int"
row_field = "edge_row"
col_field = "edge_col"
entry_type = "Edge"
[[field.entry_field]]
name = "edge_row"
type = "int"
[[field.entry_field]]
name = "edge_col"
type = "int"
`

func writeSampleSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSchema), 0o644))
	return path
}

func TestLoadDeclarationParsesFieldsInOrder(t *testing.T) {
	require := require.New(t)
	decl, err := LoadDeclaration(writeSampleSchema(t))
	require.NoError(err)
	require.Equal("demoschema2", decl.Package)
	require.Len(decl.Fields, 2)
	require.Equal("users", decl.Fields[0].Name)
	require.Equal(FamilyDictionary, decl.Fields[0].Family)
	require.Equal("edges", decl.Fields[1].Name)
	require.Equal(FamilyManyToMany, decl.Fields[1].Family)
}

func TestLoadDeclarationRejectsMissingPackage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[field]]
name = "x"
family = "dictionary"
entry_type = "X"
key_type = "string"
key_field = "k"
`), 0o644))
	_, err := LoadDeclaration(path)
	require.Error(t, err)
}

func TestLoadDeclarationRejectsDuplicateFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
package = "p"
[[field]]
name = "x"
family = "dictionary"
entry_type = "X"
key_type = "string"
key_field = "k"
[[field]]
name = "x"
family = "dictionary"
entry_type = "X"
key_type = "string"
key_field = "k"
`), 0o644))
	_, err := LoadDeclaration(path)
	require.Error(t, err)
}

func TestLoadDeclarationRejectsMatrixFieldMissingRowCol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
package = "p"
[[field]]
name = "x"
family = "many_to_many"
entry_type = "X"
`), 0o644))
	_, err := LoadDeclaration(path)
	require.Error(t, err)
}

func TestLoadDeclarationRejectsUnknownFamily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
package = "p"
[[field]]
name = "x"
family = "bogus"
entry_type = "X"
`), 0o644))
	_, err := LoadDeclaration(path)
	require.Error(t, err)
}
