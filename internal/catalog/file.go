/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"licensexml/internal/domain"
	applog "licensexml/internal/log"
)

//go:embed schema/catalog.schema.json
var catalogSchema []byte

// SchemaError lists the schema violations of a catalog document.
type SchemaError struct {
	Path     string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("catalog %s does not conform to schema: %s", e.Path, strings.Join(e.Problems, "; "))
}

type fileDoc struct {
	Licenses   []domain.LicenseRecord `yaml:"licenses"`
	Exceptions []domain.LicenseRecord `yaml:"exceptions"`
}

// File is a catalog loaded from a YAML or JSON document.
type File struct {
	Path string
	doc  fileDoc
}

// LoadFile reads and schema-checks a catalog file. JSON documents are read as YAML.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseFile(path, data)
}

// ParseFile is LoadFile for in-memory data; path is used in messages only.
func ParseFile(path string, data []byte) (*File, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if generic == nil {
		generic = map[string]any{}
	}
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(catalogSchema), gojsonschema.NewGoLoader(generic))
	if err != nil {
		return nil, fmt.Errorf("validate catalog %s: %w", path, err)
	}
	if !res.Valid() {
		se := &SchemaError{Path: path}
		for _, e := range res.Errors() {
			se.Problems = append(se.Problems, e.String())
		}
		return nil, se
	}
	f := &File{Path: path}
	if err := yaml.Unmarshal(data, &f.doc); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return f, nil
}

// Records returns the records of typ that name a template, in file order.
func (f *File) Records(_ context.Context, typ domain.RecordType) ([]domain.LicenseRecord, error) {
	l := applog.WithOperation(applog.WithComponent("catalog"), "records")
	src := f.doc.Licenses
	if typ == domain.TypeException {
		src = f.doc.Exceptions
	}
	out := make([]domain.LicenseRecord, 0, len(src))
	for _, r := range src {
		if strings.TrimSpace(r.TemplateName) == "" {
			l.Debug("record without template skipped", "identifier", r.Identifier)
			continue
		}
		r.Type = typ
		r.Name = cleanName(r.Name)
		if typ == domain.TypeException {
			r.OSIApproved = nil
		}
		out = append(out, r)
	}
	return out, nil
}
