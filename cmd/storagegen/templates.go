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
	"bytes"
	"go/format"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"
)

// templateData is the view the declarationTemplate and codecTemplate
// templates render against; FieldDecl's exported members are used directly,
// these add the derived, Go-identifier-cased names the templates need.
type templateData struct {
	Package string
	Fields  []fieldView
}

type fieldView struct {
	FieldDecl
	Const      string // FieldUsers
	ExportName string // Users, the struct member and container variable name
}

func buildTemplateData(decl Declaration) templateData {
	fn := funcMap["camelcase"].(func(string) string)
	td := templateData{Package: decl.Package}
	for _, f := range decl.Fields {
		name := fn(f.Name)
		td.Fields = append(td.Fields, fieldView{
			FieldDecl:  f,
			Const:      "Field" + name,
			ExportName: name,
		})
	}
	return td
}

var funcMap = buildFuncMap()

func buildFuncMap() template.FuncMap {
	m := sprig.TxtFuncMap()
	m["uncamelcase"] = func(s string) string {
		if s == "" {
			return s
		}
		b := []byte(s)
		if b[0] >= 'A' && b[0] <= 'Z' {
			b[0] += 'a' - 'A'
		}
		return string(b)
	}
	return m
}

var declarationTemplate = template.Must(template.New("declaration").Funcs(funcMap).Parse(`// Code generated by storagegen. DO NOT EDIT.

package {{ .Package }}

import (
	"github.com/erigontech/txstorage/storage/container"
	"github.com/erigontech/txstorage/storage/fields"
	"github.com/erigontech/txstorage/storage/schema"
)

const (
{{- range $i, $f := .Fields }}
	{{ $f.Const }} = {{ $i }}
{{- end }}
)

{{ range .Fields }}
type {{ .EntryType }} struct {
{{- range .EntryFields }}
	{{ .Name | camelcase }} {{ .Type }}
{{- end }}
}
{{ if eq .Family "dictionary" }}
func (e {{ .EntryType }}) Key() {{ .KeyType }} { return e.{{ .KeyField | camelcase }} }
{{- else }}
func (e {{ .EntryType }}) Row() {{ .RowType }} { return e.{{ .RowField | camelcase }} }
func (e {{ .EntryType }}) Col() {{ .ColType }} { return e.{{ .ColField | camelcase }} }
{{- end }}
{{ end }}

// Fields is the generated fields aggregate for this declaration.
type Fields struct {
	*fields.Base

{{- range .Fields }}
{{- if eq .Family "dictionary" }}
	{{ .ExportName }} *container.Dictionary[{{ .KeyType }}, {{ .EntryType }}]
{{- else if eq .Family "one_to_one" }}
	{{ .ExportName }} *container.OneToOne[{{ .RowType }}, {{ .ColType }}, {{ .EntryType }}]
{{- else if eq .Family "one_to_many" }}
	{{ .ExportName }} *container.OneToMany[{{ .RowType }}, {{ .ColType }}, {{ .EntryType }}]
{{- else if eq .Family "many_to_many" }}
	{{ .ExportName }} *container.ManyToMany[{{ .RowType }}, {{ .ColType }}, {{ .EntryType }}]
{{- end }}
{{- end }}
}

// New constructs an empty fields aggregate with every declared field
// registered, in declaration order.
func New() *Fields {
	base := fields.NewBase()
	f := &Fields{Base: base}

{{ range .Fields }}
	{{ .ExportName | uncamelcase }}Idx := base.NextFieldIndex()
{{- if eq .Family "dictionary" }}
	f.{{ .ExportName }} = container.NewDictionary[{{ .KeyType }}, {{ .EntryType }}]({{ .ExportName | uncamelcase }}Idx, {{ .Ordered }}, func(a, b {{ .KeyType }}) bool { return a < b })
	base.RegisterField(
		schema.FieldInfoFor("{{ .Name }}", "{{ .EntryType }}"),
		func(m schema.Mutation) error { return f.{{ .ExportName }}.Apply(m) },
		func(m schema.Mutation) error { return f.{{ .ExportName }}.Apply(m) },
	)
{{- else if eq .Family "one_to_one" }}
	f.{{ .ExportName }} = container.NewOneToOne[{{ .RowType }}, {{ .ColType }}, {{ .EntryType }}]({{ .ExportName | uncamelcase }}Idx, {{ .RowOrdered }}, {{ .ColOrdered }}, func(a, b {{ .RowType }}) bool { return a < b }, func(a, b {{ .ColType }}) bool { return a < b })
	base.RegisterField(
		schema.FieldInfoForRowCol("{{ .Name }}", "{{ .EntryType }}"),
		func(m schema.Mutation) error { return f.{{ .ExportName }}.Apply(m) },
		func(m schema.Mutation) error { return f.{{ .ExportName }}.Apply(m) },
	)
{{- else if eq .Family "one_to_many" }}
	f.{{ .ExportName }} = container.NewOneToMany[{{ .RowType }}, {{ .ColType }}, {{ .EntryType }}]({{ .ExportName | uncamelcase }}Idx, {{ .RowOrdered }}, {{ .ColOrdered }}, func(a, b {{ .RowType }}) bool { return a < b }, func(a, b {{ .ColType }}) bool { return a < b })
	base.RegisterField(
		schema.FieldInfoForRowCol("{{ .Name }}", "{{ .EntryType }}"),
		func(m schema.Mutation) error { return f.{{ .ExportName }}.Apply(m) },
		func(m schema.Mutation) error { return f.{{ .ExportName }}.Apply(m) },
	)
{{- else if eq .Family "many_to_many" }}
	f.{{ .ExportName }} = container.NewManyToMany[{{ .RowType }}, {{ .ColType }}, {{ .EntryType }}]({{ .ExportName | uncamelcase }}Idx, {{ .RowOrdered }}, {{ .ColOrdered }}, func(a, b {{ .RowType }}) bool { return a < b }, func(a, b {{ .ColType }}) bool { return a < b })
	base.RegisterField(
		schema.FieldInfoForRowCol("{{ .Name }}", "{{ .EntryType }}"),
		func(m schema.Mutation) error { return f.{{ .ExportName }}.Apply(m) },
		func(m schema.Mutation) error { return f.{{ .ExportName }}.Apply(m) },
	)
{{- end }}
{{ end }}
	return f
}
`))

var codecTemplate = template.Must(template.New("codec").Funcs(funcMap).Parse(`// Code generated by storagegen. DO NOT EDIT.

package {{ .Package }}

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/erigontech/txstorage/storage/container"
	"github.com/erigontech/txstorage/storage/schema"
	"github.com/erigontech/txstorage/storage/wire"
)
{{ range .Fields }}
type {{ .ExportName | uncamelcase }}Codec struct{ fieldIndex int }

func (c {{ .ExportName | uncamelcase }}Codec) EncodeMutation(m schema.Mutation) (json.RawMessage, error) {
	switch ev := m.(type) {
	case container.Updated[{{ .EntryType }}]:
		return json.Marshal(ev.Data)
{{- if eq .Family "dictionary" }}
	case container.Deleted[{{ .KeyType }}]:
		return json.Marshal(ev.Key)
{{- else }}
	case container.DeletedRC[{{ .RowType }}, {{ .ColType }}]:
		return json.Marshal([2]any{ev.Row, ev.Col})
{{- end }}
	default:
		return nil, errors.Errorf("{{ $.Package }}: unexpected {{ .Name }} mutation type %T", m)
	}
}

func (c {{ .ExportName | uncamelcase }}Codec) DecodeMutation(kind schema.Kind, us int64, payload json.RawMessage) (schema.Mutation, error) {
	switch kind {
	case schema.KindUpdated:
		var v {{ .EntryType }}
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		return container.NewUpdated(c.fieldIndex, us, v), nil
	case schema.KindDeleted:
{{- if eq .Family "dictionary" }}
		var key {{ .KeyType }}
		if err := json.Unmarshal(payload, &key); err != nil {
			return nil, err
		}
		return container.NewDeleted[{{ .KeyType }}](c.fieldIndex, us, key), nil
{{- else }}
		var rc [2]json.RawMessage
		if err := json.Unmarshal(payload, &rc); err != nil {
			return nil, err
		}
		var row {{ .RowType }}
		var col {{ .ColType }}
		if err := json.Unmarshal(rc[0], &row); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rc[1], &col); err != nil {
			return nil, err
		}
		return container.NewDeletedRC[{{ .RowType }}, {{ .ColType }}](c.fieldIndex, us, row, col), nil
{{- end }}
	default:
		return nil, errors.Errorf("{{ $.Package }}: unsupported {{ .Name }} mutation kind %s", kind)
	}
}
{{ end }}
// Codecs builds the wire.Registry for this declaration, one FieldCodec per
// declared field, keyed by the same field indices New assigns.
func Codecs() wire.Registry {
	return wire.Registry{
{{- range .Fields }}
		{{ .Const }}: {{ .ExportName | uncamelcase }}Codec{fieldIndex: {{ .Const }}},
{{- end }}
	}
}
`))

// render executes tmpl against data and gofmt's the result.
func render(tmpl *template.Template, data templateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(err, "storagegen: execute template")
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "storagegen: gofmt generated source:\n%s", buf.String())
	}
	return out, nil
}
