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

// Package storageconfig declares the TOML-decoded configuration for a
// running storage instance: where its stream lives on disk, its starting
// role, a stream buffer size and a meta-field size limit.
package storageconfig

import (
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/internal/mathutil"
)

// minRecordSizeEstimate is a conservative lower bound for one encoded
// transaction record, used only to flag a StreamBufferThreshold too small
// to hold even one record.
const minRecordSizeEstimate = 64

// Config is unmarshaled from a TOML file. Zero-value defaults are applied
// by Default before decode, the way the teacher's own config structs seed
// their zero values before toml.Unmarshal overwrites what the file sets.
type Config struct {
	// StreamPath is the on-disk path for a stream.File-backed storage.
	// Empty means stream.Memory, a never-persisted in-process stream.
	StreamPath string `toml:"stream_path"`

	// InitialRole is "master" or "follower". Checked by Validate;
	// IsFollower reports which one it is.
	InitialRole string `toml:"initial_role"`

	// StreamBufferThreshold is a write-buffer size in the sense of
	// stream.File's BufferThreshold. Validate checks it for a file-backed
	// stream; nothing in this module copies it onto a stream.File.
	StreamBufferThreshold datasize.ByteSize `toml:"stream_buffer_threshold"`

	// MaxMetaFieldBytes is a size limit for a single transaction's meta
	// fields. Validate checks that it is positive; SetTransactionMetaField
	// does not consult it, so no component in this module enforces it.
	MaxMetaFieldBytes int `toml:"max_meta_field_bytes"`
}

// Default returns a Config with the engine's built-in defaults, before any
// TOML file is applied on top.
func Default() Config {
	return Config{
		InitialRole:           "master",
		StreamBufferThreshold: 1 * datasize.MB,
		MaxMetaFieldBytes:     64 * 1024,
	}
}

// Load reads and decodes a TOML config file at path, starting from
// Default() so any field the file omits keeps its built-in value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "storageconfig: read %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "storageconfig: decode %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether the config's InitialRole is recognized and its
// size limits are sane.
func (c Config) Validate() error {
	switch c.InitialRole {
	case "master", "follower":
	default:
		return errors.Errorf("storageconfig: initial_role must be \"master\" or \"follower\", got %q", c.InitialRole)
	}
	if c.MaxMetaFieldBytes <= 0 {
		return errors.New("storageconfig: max_meta_field_bytes must be positive")
	}
	if !c.StreamPathEmpty() && c.StreamBufferThreshold <= 0 {
		return errors.New("storageconfig: stream_buffer_threshold must be positive for a file-backed stream")
	}
	if !c.StreamPathEmpty() {
		buffersPerRecord := mathutil.CeilDiv(minRecordSizeEstimate, int(c.StreamBufferThreshold.Bytes()))
		if buffersPerRecord > 1 {
			return errors.Errorf("storageconfig: stream_buffer_threshold %s too small to hold even one record", c.StreamBufferThreshold)
		}
	}
	return nil
}

// StreamPathEmpty reports whether StreamPath is unset, meaning the config
// asks for an in-process stream.Memory rather than a stream.File.
func (c Config) StreamPathEmpty() bool { return c.StreamPath == "" }

// IsFollower reports whether InitialRole decodes to a follower start.
func (c Config) IsFollower() bool { return c.InitialRole == "follower" }
