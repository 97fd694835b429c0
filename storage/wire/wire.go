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

// Package wire is the minimal serialization this module needs to make the
// persister and stream testable end to end. The wire format a production
// deployment would use (schema evolution, compact binary encoding) is an
// explicit non-goal here; this package only carries a journal's commit log
// and transaction meta fields across a stream record, tagging each mutation
// by field index and kind so a per-field FieldCodec can recover its concrete
// Go type on the decode side.
package wire

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/journal"
	"github.com/erigontech/txstorage/storage/schema"
)

// Envelope is one mutation, tagged for decode. Payload holds whatever
// FieldCodec.EncodeMutation produced for the concrete event type; wire never
// inspects it.
type Envelope struct {
	Field   int             `json:"field"`
	Kind    schema.Kind     `json:"kind"`
	US      int64           `json:"us"`
	Payload json.RawMessage `json:"payload"`
}

// Record is one committed transaction as it crosses the stream: the
// journal's meta fields and its commit log, in commit order.
type Record struct {
	Meta      map[string]string `json:"meta,omitempty"`
	Mutations []Envelope        `json:"mutations"`
}

// FieldCodec knows how to encode and decode the concrete mutation types
// (container.Updated[E], container.Deleted[K], container.DeletedRC[R,C])
// declared for one field. A generated or hand-written schema supplies one
// FieldCodec per field index; see storage/demoschema for a worked example.
type FieldCodec interface {
	EncodeMutation(m schema.Mutation) (json.RawMessage, error)
	DecodeMutation(kind schema.Kind, us int64, payload json.RawMessage) (schema.Mutation, error)
}

// Registry maps a field index to the codec that owns it. Every declared
// field must be registered before Encode/Decode touches it.
type Registry map[int]FieldCodec

func (r Registry) codecFor(field int) (FieldCodec, error) {
	c, ok := r[field]
	if !ok {
		return nil, errors.Errorf("wire: no codec registered for field %d", field)
	}
	return c, nil
}

// EncodeRecord serializes a not-yet-cleared journal's commit log and meta
// fields into a Record, ready for json.Marshal onto the stream.
func EncodeRecord(j *journal.Journal, reg Registry) (Record, error) {
	commitLog := j.CommitLog()
	rec := Record{Meta: j.Meta, Mutations: make([]Envelope, 0, len(commitLog))}
	for _, m := range commitLog {
		codec, err := reg.codecFor(m.FieldIndex())
		if err != nil {
			return Record{}, err
		}
		payload, err := codec.EncodeMutation(m)
		if err != nil {
			return Record{}, errors.Wrapf(err, "wire: encode field %d", m.FieldIndex())
		}
		rec.Mutations = append(rec.Mutations, Envelope{
			Field:   m.FieldIndex(),
			Kind:    m.Kind(),
			US:      m.Timestamp(),
			Payload: payload,
		})
	}
	return rec, nil
}

// Marshal encodes a Record as a single JSON line, suitable for a
// line-delimited stream.
func Marshal(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

// Unmarshal decodes one JSON-line record's envelope, leaving each
// mutation's payload undecoded until DecodeMutations is called with a
// Registry.
func Unmarshal(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.Wrap(err, "wire: unmarshal record")
	}
	return rec, nil
}

// DecodeMutations resolves every envelope in rec into a concrete
// schema.Mutation, in commit order, ready for fields.Fields.Dispatch.
func DecodeMutations(rec Record, reg Registry) ([]schema.Mutation, error) {
	out := make([]schema.Mutation, 0, len(rec.Mutations))
	for _, env := range rec.Mutations {
		codec, err := reg.codecFor(env.Field)
		if err != nil {
			return nil, err
		}
		m, err := codec.DecodeMutation(env.Kind, env.US, env.Payload)
		if err != nil {
			return nil, errors.Wrapf(err, "wire: decode field %d", env.Field)
		}
		out = append(out, m)
	}
	return out, nil
}
