/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders printable proofs of converted records.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"licensexml/internal/domain"
	"licensexml/internal/markup"
	"licensexml/internal/serialize"
)

// color is an RGB triple.
type color struct{ R, G, B int }

// Band colors follow the classifier's category colors.
var bandColors = map[domain.Category]color{
	domain.CategoryTitle:     {0, 0, 128},
	domain.CategoryCopyright: {0, 128, 128},
	domain.CategoryBody:      {192, 192, 192},
	domain.CategoryOptional:  {255, 0, 0},
}

// ProofPDF writes one A4 proof per record below Dir.
// Units are points (pt).
type ProofPDF struct {
	Dir string
}

// Path returns where the proof of rec is written.
func (p ProofPDF) Path(rec domain.LicenseRecord) string {
	typ := rec.Type
	if typ == "" {
		typ = domain.TypeLicense
	}
	return filepath.Join(p.Dir, typ.Plural(), rec.Identifier+".pdf")
}

// Proof renders the sections of rec as readable text, one colored band per section.
func (p ProofPDF) Proof(rec domain.LicenseRecord, sections []domain.Section, review bool) (string, error) {
	if strings.TrimSpace(p.Dir) == "" {
		return "", errors.New("proof dir is required")
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: 595, Ht: 842},
	})
	pdf.SetTitle(rec.Title()+" proof", true)
	pdf.SetAuthor("licensexml", false)
	pdf.SetMargins(48, 48, 48)
	pdf.SetAutoPageBreak(true, 48)
	pdf.AddPage()
	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 20, tr(rec.Title()), "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 12, tr(proofMeta(rec, review)), "", "L", false)
	pdf.Ln(8)

	for _, s := range sections {
		name, err := serialize.SectionElement(s.Category)
		if err != nil {
			return "", err
		}
		c := bandColors[s.Category]
		pdf.SetFillColor(c.R, c.G, c.B)
		if s.Category == domain.CategoryBody {
			pdf.SetTextColor(0, 0, 0)
		} else {
			pdf.SetTextColor(255, 255, 255)
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 14, name, "", 1, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 13, tr(PlainText(s.Fragment)), "", "L", false)
		pdf.Ln(6)
	}

	out := p.Path(rec)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(out); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return out, nil
}

// proofMeta is the line printed under the title.
func proofMeta(rec domain.LicenseRecord, review bool) string {
	meta := fmt.Sprintf("Type: %s", rec.Type)
	if rec.Example != "" {
		meta += "   Example: " + rec.Example
	}
	if review {
		meta += "   Review requested"
	}
	return meta
}

var tagRE = regexp.MustCompile(`<[^>]*>`)

// PlainText flattens a section fragment for reading: paragraphs and breaks
// become line breaks and list items are indented by nesting depth.
func PlainText(fragment string) string {
	var b strings.Builder
	bol := true
	write := func(s string) {
		if s == "" {
			return
		}
		b.WriteString(s)
		bol = strings.HasSuffix(s, "\n")
	}
	newline := func() {
		if !bol {
			write("\n")
		}
	}
	depth := 0
	last := 0
	for _, loc := range tagRE.FindAllStringIndex(fragment, -1) {
		write(markup.UnescapeContent(fragment[last:loc[0]]))
		last = loc[1]
		switch tag := fragment[loc[0]:loc[1]]; tag {
		case "<list>":
			depth++
			newline()
		case "</list>":
			if depth > 0 {
				depth--
			}
			newline()
		case "<li>":
			newline()
			write(strings.Repeat("    ", max(depth-1, 0)))
		case "</b>":
			write(" ")
		case "</p>":
			newline()
		case "<br/>":
			write("\n")
		}
	}
	write(markup.UnescapeContent(fragment[last:]))
	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
