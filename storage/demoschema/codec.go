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

package demoschema

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/container"
	"github.com/erigontech/txstorage/storage/schema"
	"github.com/erigontech/txstorage/storage/wire"
)

type usersCodec struct{ fieldIndex int }

func (c usersCodec) EncodeMutation(m schema.Mutation) (json.RawMessage, error) {
	switch ev := m.(type) {
	case container.Updated[User]:
		return json.Marshal(ev.Data)
	case container.Deleted[string]:
		return json.Marshal(ev.Key)
	default:
		return nil, errors.Errorf("demoschema: unexpected users mutation type %T", m)
	}
}

func (c usersCodec) DecodeMutation(kind schema.Kind, us int64, payload json.RawMessage) (schema.Mutation, error) {
	switch kind {
	case schema.KindUpdated:
		var u User
		if err := json.Unmarshal(payload, &u); err != nil {
			return nil, err
		}
		return container.NewUpdated(c.fieldIndex, us, u), nil
	case schema.KindDeleted:
		var key string
		if err := json.Unmarshal(payload, &key); err != nil {
			return nil, err
		}
		return container.NewDeleted[string](c.fieldIndex, us, key), nil
	default:
		return nil, errors.Errorf("demoschema: unsupported users mutation kind %s", kind)
	}
}

type pairCodec struct{ fieldIndex int }

func (c pairCodec) EncodeMutation(m schema.Mutation) (json.RawMessage, error) {
	switch ev := m.(type) {
	case container.Updated[Pair]:
		return json.Marshal(ev.Data)
	case container.DeletedRC[int, string]:
		return json.Marshal([2]any{ev.Row, ev.Col})
	default:
		return nil, errors.Errorf("demoschema: unexpected pair mutation type %T", m)
	}
}

func (c pairCodec) DecodeMutation(kind schema.Kind, us int64, payload json.RawMessage) (schema.Mutation, error) {
	switch kind {
	case schema.KindUpdated:
		var p Pair
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return container.NewUpdated(c.fieldIndex, us, p), nil
	case schema.KindDeleted:
		var rc [2]json.RawMessage
		if err := json.Unmarshal(payload, &rc); err != nil {
			return nil, err
		}
		var row int
		var col string
		if err := json.Unmarshal(rc[0], &row); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rc[1], &col); err != nil {
			return nil, err
		}
		return container.NewDeletedRC[int, string](c.fieldIndex, us, row, col), nil
	default:
		return nil, errors.Errorf("demoschema: unsupported pair mutation kind %s", kind)
	}
}

type edgesCodec struct{ fieldIndex int }

func (c edgesCodec) EncodeMutation(m schema.Mutation) (json.RawMessage, error) {
	switch ev := m.(type) {
	case container.Updated[Edge]:
		return json.Marshal(ev.Data)
	case container.DeletedRC[int, int]:
		return json.Marshal([2]int{ev.Row, ev.Col})
	default:
		return nil, errors.Errorf("demoschema: unexpected edges mutation type %T", m)
	}
}

func (c edgesCodec) DecodeMutation(kind schema.Kind, us int64, payload json.RawMessage) (schema.Mutation, error) {
	switch kind {
	case schema.KindUpdated:
		var e Edge
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return container.NewUpdated(c.fieldIndex, us, e), nil
	case schema.KindDeleted:
		var rc [2]int
		if err := json.Unmarshal(payload, &rc); err != nil {
			return nil, err
		}
		return container.NewDeletedRC[int, int](c.fieldIndex, us, rc[0], rc[1]), nil
	default:
		return nil, errors.Errorf("demoschema: unsupported edges mutation kind %s", kind)
	}
}

// Codecs builds the wire.Registry for this schema, one FieldCodec per
// declared field, keyed by the same field indices New assigns.
func Codecs() wire.Registry {
	return wire.Registry{
		FieldUsers: usersCodec{fieldIndex: FieldUsers},
		FieldPair:  pairCodec{fieldIndex: FieldPair},
		FieldEdges: edgesCodec{fieldIndex: FieldEdges},
	}
}
