/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package serialize assembles the final <spdx> document for one record.
package serialize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-xmlfmt/xmlfmt"

	"licensexml/internal/domain"
	"licensexml/internal/markup"
	"licensexml/internal/textlayout"
)

// ErrUnknownCategory is returned for a section whose category has no element.
var ErrUnknownCategory = errors.New("serialize: unknown section category")

// ReviewComment marks documents committed with the review flag.
const ReviewComment = "<!-- REVIEW -->"

// Indent is one nesting level of the pretty printed output.
const Indent = "  "

// Options tune the output layout.
type Options struct {
	// Column is the wrap budget in cells; zero selects textlayout.DefaultColumn.
	Column int
}

// SectionElement returns the element name for a section category.
func SectionElement(c domain.Category) (string, error) {
	switch c {
	case domain.CategoryTitle:
		return "title", nil
	case domain.CategoryCopyright:
		return "copyright", nil
	case domain.CategoryBody:
		return "body", nil
	case domain.CategoryOptional:
		return "optional", nil
	}
	return "", fmt.Errorf("%w: %v", ErrUnknownCategory, c)
}

// Document renders rec and its condensed sections as an indented, wrapped
// XML document terminated by a newline.
func Document(rec domain.LicenseRecord, sections []domain.Section, review bool, opts Options) (string, error) {
	raw, err := Raw(rec, sections, review)
	if err != nil {
		return "", err
	}
	return Pretty(raw, opts.Column) + "\n", nil
}

// Raw renders the document on a single line without layout.
func Raw(rec domain.LicenseRecord, sections []domain.Section, review bool) (string, error) {
	var b strings.Builder
	if review {
		b.WriteString(ReviewComment)
	}

	b.WriteString(`<spdx name="` + markup.EscapeAttribute(rec.Name) + `" identifier="` + markup.EscapeAttribute(rec.Identifier) + `"`)
	if rec.OSIApproved != nil && rec.Type != domain.TypeException {
		b.WriteString(` osi-approved="` + strconv.FormatBool(*rec.OSIApproved) + `"`)
	}
	b.WriteString(">")

	var urls []string
	for _, u := range rec.URLs {
		if strings.TrimSpace(u) != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) > 0 {
		b.WriteString("<urls>")
		for _, u := range urls {
			b.WriteString("<url>" + markup.EscapeContent(u) + "</url>")
		}
		b.WriteString("</urls>")
	}

	if rec.Notes != "" {
		b.WriteString("<notes>" + markup.EscapeContent(rec.Notes) + "</notes>")
	}

	if h := Header(rec.Header); h != "" {
		b.WriteString(h)
	}

	body := bodyElement(rec.Type)
	b.WriteString("<" + body + ">")
	for _, s := range sections {
		tag, err := SectionElement(s.Category)
		if err != nil {
			return "", err
		}
		b.WriteString("<" + tag + ">" + s.Fragment + "</" + tag + ">")
	}
	b.WriteString("</" + body + "></spdx>")
	return b.String(), nil
}

// Header renders the <header> element. Headers without placeholder markup
// are omitted; multi-line headers keep their line structure.
func Header(header string) string {
	h := strings.TrimSpace(header)
	if !markup.HasPlaceholder(h) {
		return ""
	}
	h = markup.HighlightBullets(markup.Translate(h), markup.Bold)
	if strings.ContainsAny(h, "\r\n") {
		return "<header>\n" + h + "\n</header>"
	}
	return "<header>" + h + "</header>"
}

// Pretty indents raw markup one element per line and wraps long lines.
func Pretty(raw string, column int) string {
	out := xmlfmt.FormatXML(raw, "", Indent)
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.TrimLeft(out, "\n")
	return textlayout.WrapMarkup(out, column)
}

func bodyElement(t domain.RecordType) string {
	if t == "" {
		return string(domain.TypeLicense)
	}
	return string(t)
}
