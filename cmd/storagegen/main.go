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

// Command storagegen is the code generator for the storage-declaration
// contract: given a TOML schema source naming a storage's fields, their
// container families and their entry shapes, it emits a Go package in the
// same form storage/demoschema was hand-written in -- field constants,
// entry types, a Fields aggregate, a New constructor wiring
// NextFieldIndex/RegisterField for every field, and a wire.Registry
// builder. A hand-written declaration and a generated one are meant to be
// indistinguishable at the call site.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "storagegen:", err)
		os.Exit(1)
	}
}

func run() error {
	schemaPath := flag.String("schema", "", "path to the TOML schema source (required)")
	outDir := flag.String("out", ".", "output directory for the generated package")
	flag.Parse()

	if *schemaPath == "" {
		return errors.New("-schema is required")
	}

	decl, err := LoadDeclaration(*schemaPath)
	if err != nil {
		return err
	}
	data := buildTemplateData(decl)

	declSrc, err := render(declarationTemplate, data)
	if err != nil {
		return err
	}
	codecSrc, err := render(codecTemplate, data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return errors.Wrapf(err, "storagegen: mkdir %s", *outDir)
	}
	if err := os.WriteFile(filepath.Join(*outDir, "declaration_gen.go"), declSrc, 0o644); err != nil {
		return errors.Wrap(err, "storagegen: write declaration_gen.go")
	}
	if err := os.WriteFile(filepath.Join(*outDir, "declaration_gen_codec.go"), codecSrc, 0o644); err != nil {
		return errors.Wrap(err, "storagegen: write declaration_gen_codec.go")
	}
	return nil
}
