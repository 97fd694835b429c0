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

package storageconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDefaultMemoryStreamSkipsBufferThresholdFloor(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.StreamPathEmpty())
	require.False(t, cfg.IsFollower())
	cfg.StreamBufferThreshold = 0
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	cfg := Default()
	cfg.InitialRole = "bogus"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveMaxMetaFieldBytes(t *testing.T) {
	cfg := Default()
	cfg.MaxMetaFieldBytes = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsTinyBufferThresholdForFileStream(t *testing.T) {
	cfg := Default()
	cfg.StreamPath = "/tmp/somewhere.log"
	cfg.StreamBufferThreshold = 1 * datasize.B
	require.Error(t, cfg.Validate(), "a one-byte buffer threshold cannot hold even one record")
}

func TestValidateAcceptsReasonableBufferThresholdForFileStream(t *testing.T) {
	cfg := Default()
	cfg.StreamPath = "/tmp/somewhere.log"
	cfg.StreamBufferThreshold = 4 * datasize.KB
	require.NoError(t, cfg.Validate())
}

func TestLoadAppliesFileOnTopOfDefaults(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(os.WriteFile(path, []byte(`
initial_role = "follower"
stream_path = "/var/lib/storage/stream.log"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(err)
	require.True(cfg.IsFollower())
	require.Equal("/var/lib/storage/stream.log", cfg.StreamPath)
	require.Equal(Default().MaxMetaFieldBytes, cfg.MaxMetaFieldBytes, "fields omitted from the file keep their Default() value")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidRoleFromFile(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(os.WriteFile(path, []byte(`initial_role = "primary"`), 0o644))

	_, err := Load(path)
	require.Error(err)
}
