/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "fmt"

// This file defines the core data model shared by the conversion pipeline:
// the license records coming from the catalog, the typed line records the
// grouper produces and the classifier annotates, and the condensed sections
// the serializer turns into XML.

// RecordType selects which catalog sheet a record comes from and which body
// element wraps its sections in the output document.
type RecordType string

const (
	TypeLicense   RecordType = "license"
	TypeException RecordType = "exception"
)

// ParseRecordType accepts singular and plural spellings ("licenses", "exception").
func ParseRecordType(s string) (RecordType, error) {
	switch s {
	case "license", "licenses", "":
		return TypeLicense, nil
	case "exception", "exceptions":
		return TypeException, nil
	}
	return "", fmt.Errorf("unknown record type %q", s)
}

// Plural is used for output sub-directories ("licenses", "exceptions").
func (t RecordType) Plural() string { return string(t) + "s" }

// LicenseRecord is one catalog entry. It is immutable while it is processed.
type LicenseRecord struct {
	Type         RecordType `json:"type,omitempty" yaml:"type,omitempty"`
	Name         string     `json:"name" yaml:"name"`
	Identifier   string     `json:"identifier" yaml:"identifier"`
	URLs         []string   `json:"urls,omitempty" yaml:"urls,omitempty"`
	Notes        string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Header       string     `json:"header,omitempty" yaml:"header,omitempty"`
	TemplateName string     `json:"template" yaml:"template"`
	// Template holds the resolved template body; it is filled by a template store.
	Template string `json:"-" yaml:"-"`
	// OSIApproved is nil when the source has no such column (exceptions).
	OSIApproved *bool `json:"osiApproved,omitempty" yaml:"osiApproved,omitempty"`
	// Example is the usage expression of an exception; it is shown on proofs.
	Example string `json:"example,omitempty" yaml:"example,omitempty"`
}

// Title is the human label used in the classifier status bar and logs.
func (r LicenseRecord) Title() string { return fmt.Sprintf("%s (%s)", r.Name, r.Identifier) }

// Kind is the structural type of a line record.
type Kind int

const (
	KindParagraph Kind = iota
	KindListItem
	KindLineBreak
	// KindSpacer is a zero-width separator between records so that the
	// operator can mark between two content lines.
	KindSpacer
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindListItem:
		return "list-item"
	case KindLineBreak:
		return "line-break"
	case KindSpacer:
		return "spacer"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Category is the operator-assigned semantic class of a line.
// The zero value means unassigned.
type Category int

const (
	CategoryNone Category = iota
	CategoryTitle
	CategoryCopyright
	CategoryBody
	CategoryOptional
)

// Categories lists the assignable categories in key order (1-4 in the classifier).
var Categories = []Category{CategoryTitle, CategoryCopyright, CategoryBody, CategoryOptional}

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryTitle:
		return "title"
	case CategoryCopyright:
		return "copyright"
	case CategoryBody:
		return "license"
	case CategoryOptional:
		return "optional"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Valid reports whether c is one of the four assignable categories.
func (c Category) Valid() bool { return c >= CategoryTitle && c <= CategoryOptional }

// AllowsLists reports whether list structure is kept for lines of this category.
func (c Category) AllowsLists() bool { return c == CategoryBody || c == CategoryOptional }

// LineRecord is one physical or logical line of template text.
// Depth is only meaningful for list items.
type LineRecord struct {
	Text     string
	Kind     Kind
	Depth    int
	Category Category
}

// Section is a maximal run of condensed content sharing one category.
type Section struct {
	Category Category
	Fragment string
}

// Decision is what an operator commits for one record.
type Decision struct {
	Lines  []LineRecord
	Review bool
}

// Content returns the decision's lines without spacer records.
func (d Decision) Content() []LineRecord {
	out := make([]LineRecord, 0, len(d.Lines))
	for _, l := range d.Lines {
		if l.Kind == KindSpacer {
			continue
		}
		out = append(out, l)
	}
	return out
}
