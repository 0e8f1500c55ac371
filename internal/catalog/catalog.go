/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package catalog supplies license records and their template bodies.
//
// Records come from a Source: a YAML/JSON catalog file (File) or a
// PostgreSQL table (Postgres). Template bodies come from a Templates store:
// a directory (Dir), an S3 bucket (S3), optionally behind an LRU (Cached).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"licensexml/internal/domain"
)

var (
	// ErrTemplateNotFound is returned by a Templates store for unknown names.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrEmptyTemplate is returned when a template resolves to blank text.
	ErrEmptyTemplate = errors.New("template is empty")
)

// TemplateExt is tried when a template name does not resolve as is.
const TemplateExt = ".txt"

// Source lists catalog records of one type in catalog order.
type Source interface {
	Records(ctx context.Context, typ domain.RecordType) ([]domain.LicenseRecord, error)
}

// Templates fetches raw template bodies by name.
type Templates interface {
	Template(ctx context.Context, name string) (string, error)
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize converts CRLF and CR line endings to LF.
func Normalize(s string) string { return newlines.Replace(s) }

// Resolve loads the template of rec into rec.Template. A name that does not
// resolve, or resolves to blank text, is retried with TemplateExt appended.
func Resolve(ctx context.Context, store Templates, rec domain.LicenseRecord) (domain.LicenseRecord, error) {
	name := strings.TrimSpace(rec.TemplateName)
	if name == "" {
		return rec, fmt.Errorf("%s: %w", rec.Identifier, ErrTemplateNotFound)
	}
	body, err := store.Template(ctx, name)
	if (err == nil && strings.TrimSpace(body) == "") || errors.Is(err, ErrTemplateNotFound) {
		if alt, aerr := store.Template(ctx, name+TemplateExt); aerr == nil || !errors.Is(aerr, ErrTemplateNotFound) {
			body, err = alt, aerr
		}
	}
	if err != nil {
		return rec, fmt.Errorf("template %s: %w", name, err)
	}
	body = Normalize(body)
	if strings.TrimSpace(body) == "" {
		return rec, fmt.Errorf("template %s: %w", name, ErrEmptyTemplate)
	}
	rec.Template = body
	return rec, nil
}

var identifierRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.+-]*$`)

// Validate checks the fields a conversion depends on. URLs are copied to
// the output verbatim and are not checked here; see CheckURLs.
func Validate(rec domain.LicenseRecord) error {
	return validation.ValidateStruct(&rec,
		validation.Field(&rec.Name, validation.Required),
		validation.Field(&rec.Identifier, validation.Required, validation.Match(identifierRE)),
		validation.Field(&rec.Type, validation.In(domain.TypeLicense, domain.TypeException)),
		validation.Field(&rec.TemplateName, validation.Required),
	)
}

// CheckURLs reports URL cells that are not plain URLs, such as a link
// followed by a remark. Only the validate command treats these as problems.
func CheckURLs(rec domain.LicenseRecord) error {
	return validation.ValidateStruct(&rec,
		validation.Field(&rec.URLs, validation.Each(is.URL)),
	)
}

// Problem is one validation finding.
type Problem struct {
	Type       domain.RecordType
	Identifier string
	Err        error
}

func (p Problem) String() string {
	id := p.Identifier
	if id == "" {
		id = "(no identifier)"
	}
	return fmt.Sprintf("%s %s: %v", p.Type, id, p.Err)
}

// Check validates every record of both types, including its URLs, and
// reports duplicate identifiers.
func Check(ctx context.Context, src Source) ([]Problem, error) {
	var out []Problem
	for _, typ := range []domain.RecordType{domain.TypeLicense, domain.TypeException} {
		recs, err := src.Records(ctx, typ)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(recs))
		for _, r := range recs {
			if err := Validate(r); err != nil {
				out = append(out, Problem{Type: typ, Identifier: r.Identifier, Err: err})
			}
			if err := CheckURLs(r); err != nil {
				out = append(out, Problem{Type: typ, Identifier: r.Identifier, Err: err})
			}
			if r.Identifier == "" {
				continue
			}
			if seen[r.Identifier] {
				out = append(out, Problem{Type: typ, Identifier: r.Identifier, Err: errors.New("duplicate identifier")})
			}
			seen[r.Identifier] = true
		}
	}
	return out, nil
}

// cleanName collapses the line breaks and runs of spaces found in spreadsheet exports.
func cleanName(s string) string { return strings.Join(strings.Fields(s), " ") }

var urlSplit = regexp.MustCompile(`\r\n|\r|\n`)

// splitURLs splits a newline separated URL cell, dropping blank entries.
func splitURLs(s string) []string {
	var out []string
	for _, u := range urlSplit.Split(s, -1) {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
