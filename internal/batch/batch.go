/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package batch drives the conversion of a catalog, one record at a time.
//
// For every record without an output document the driver resolves its
// template, hands the grouped lines to the interactive classifier, condenses
// and serializes the committed decision and writes the document. Records
// never overlap: record N+1 is not started before the document of record N
// is on disk.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"licensexml/internal/catalog"
	"licensexml/internal/classify"
	"licensexml/internal/condense"
	"licensexml/internal/domain"
	"licensexml/internal/lines"
	applog "licensexml/internal/log"
	"licensexml/internal/serialize"
	"licensexml/internal/storage"
	"licensexml/internal/ui"
)

// Classifier obtains the operator's decision for one record. It blocks
// until the operator commits.
type Classifier interface {
	Classify(ctx context.Context, rec domain.LicenseRecord, recs []domain.LineRecord) (domain.Decision, error)
}

// Proofs renders a printable proof of a converted record.
type Proofs interface {
	Proof(rec domain.LicenseRecord, sections []domain.Section, review bool) (string, error)
}

// Events receives anonymous usage events.
type Events interface {
	Event(name string, props map[string]any)
}

// ResolveError marks a record that could not be prepared for conversion.
// Such records are skipped; they never stop the batch.
type ResolveError struct {
	Identifier string
	Err        error
}

func (e *ResolveError) Error() string { return fmt.Sprintf("resolve %s: %v", e.Identifier, e.Err) }

func (e *ResolveError) Unwrap() error { return e.Err }

// Fatal reports whether err is an internal fault that must stop the process
// with a failure status.
func Fatal(err error) bool {
	var ce *classify.ConsistencyError
	return errors.As(err, &ce) ||
		errors.Is(err, condense.ErrEmptySections) ||
		errors.Is(err, serialize.ErrUnknownCategory)
}

// Summary counts what a run did.
type Summary struct {
	Total      int
	Converted  int
	Skipped    int
	Unresolved []*ResolveError
	// Aborted is set when the operator stopped the batch.
	Aborted bool
}

// Driver converts the records of one type.
type Driver struct {
	Type       domain.RecordType
	Catalog    catalog.Source
	Templates  catalog.Templates
	Classifier Classifier
	Output     storage.Output
	// Index, Proofs and Events are optional.
	Index  *storage.Index
	Proofs Proofs
	Events Events
	// Column is the wrap budget of the output documents.
	Column int
	// Only restricts the run to these identifiers when not empty.
	Only []string
}

// Run converts every pending record in catalog order. Operator abort ends
// the run without error. Errors for which Fatal reports true are returned
// as is; I/O failures writing a document are returned wrapped.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	typ := d.Type
	if typ == "" {
		typ = domain.TypeLicense
	}
	l := applog.WithOperation(applog.WithComponent("batch"), "run").With(slog.String("type", string(typ)))

	recs, err := d.Catalog.Records(ctx, typ)
	if err != nil {
		return sum, fmt.Errorf("load catalog: %w", err)
	}
	if d.Index != nil {
		if _, err := d.Index.BeginSession(ctx); err != nil {
			l.Warn("decision index unavailable", slog.Any("err", err))
		}
		defer func() {
			if err := d.Index.EndSession(context.WithoutCancel(ctx), sum.Converted); err != nil {
				l.Warn("closing index session failed", slog.Any("err", err))
			}
		}()
	}

	l.Info("batch started", slog.Int("records", len(recs)))
	for _, rec := range recs {
		if len(d.Only) > 0 && !slices.Contains(d.Only, rec.Identifier) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Total++
		rl := applog.WithRecord(l, rec.Identifier)

		done, err := d.Output.Exists(rec)
		if err != nil {
			re := &ResolveError{Identifier: rec.Identifier, Err: err}
			rl.Warn("record skipped", slog.Any("err", re))
			sum.Unresolved = append(sum.Unresolved, re)
			continue
		}
		if done {
			rl.Debug("output exists")
			sum.Skipped++
			continue
		}
		rec, err = d.resolve(ctx, rec)
		if err != nil {
			re := &ResolveError{Identifier: rec.Identifier, Err: err}
			rl.Warn("record skipped", slog.Any("err", re))
			sum.Unresolved = append(sum.Unresolved, re)
			continue
		}

		err = d.convert(ctx, rec)
		switch {
		case errors.Is(err, ui.ErrAborted):
			l.Info("batch aborted by operator", slog.Int("converted", sum.Converted))
			sum.Aborted = true
			return sum, nil
		case err != nil:
			rl.Error("conversion failed", slog.Any("err", err))
			return sum, err
		}
		sum.Converted++
	}
	l.Info("batch finished",
		slog.Int("converted", sum.Converted),
		slog.Int("skipped", sum.Skipped),
		slog.Int("unresolved", len(sum.Unresolved)))
	return sum, nil
}

func (d *Driver) resolve(ctx context.Context, rec domain.LicenseRecord) (domain.LicenseRecord, error) {
	if err := catalog.Validate(rec); err != nil {
		return rec, err
	}
	return catalog.Resolve(ctx, d.Templates, rec)
}

// convert runs one record through classification, condensing and output.
func (d *Driver) convert(ctx context.Context, rec domain.LicenseRecord) error {
	l := applog.WithRecord(applog.WithOperation(applog.WithComponent("batch"), "convert"), rec.Identifier)

	dec, err := d.Classifier.Classify(ctx, rec, lines.Group(rec.Template))
	if err != nil {
		return err
	}
	sections, err := condense.Sections(dec.Content())
	if err != nil {
		return fmt.Errorf("%s: %w", rec.Identifier, err)
	}
	doc, err := serialize.Document(rec, sections, dec.Review, serialize.Options{Column: d.Column})
	if err != nil {
		return fmt.Errorf("%s: %w", rec.Identifier, err)
	}
	path, err := d.Output.Write(rec, []byte(doc))
	if err != nil {
		return fmt.Errorf("persist %s: %w", rec.Identifier, err)
	}
	l.Info("document written", slog.String("path", path), slog.Bool("review", dec.Review))

	if d.Index != nil {
		e := storage.Entry{Type: rec.Type, Identifier: rec.Identifier, Review: dec.Review, Sections: len(sections), Path: path}
		if err := d.Index.Record(ctx, e); err != nil {
			l.Warn("recording decision failed", slog.Any("err", err))
		}
	}
	if d.Proofs != nil {
		if p, err := d.Proofs.Proof(rec, sections, dec.Review); err != nil {
			l.Warn("proof failed", slog.Any("err", err))
		} else {
			l.Debug("proof written", slog.String("path", p))
		}
	}
	if d.Events != nil {
		d.Events.Event("record_converted", map[string]any{
			"type":     string(rec.Type),
			"sections": len(sections),
			"review":   dec.Review,
		})
	}
	return nil
}
