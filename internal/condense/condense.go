/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package condense merges classified line records into per-category
// fragments of <p> and nested <list> markup.
package condense

import (
	"errors"
	"strings"

	"licensexml/internal/domain"
	"licensexml/internal/markup"
)

// ErrEmptySections is returned when no record carries a category.
var ErrEmptySections = errors.New("condense: no categorized content")

type elemKind int

const (
	elemParagraph elemKind = iota
	elemBreak
	elemItem
	elemList
)

type elem struct {
	kind  elemKind
	depth int
	text  string // raw template text; rendered markup for elemList
}

// Sections groups consecutive records of the same category and condenses
// each group into one fragment. Spacers are ignored. Unassigned records
// are dropped but still separate groups.
func Sections(records []domain.LineRecord) ([]domain.Section, error) {
	var out []domain.Section
	for _, run := range runs(records) {
		frag, err := condenseRun(run.cat, run.elems)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Section{Category: run.cat, Fragment: frag})
	}
	if len(out) == 0 {
		return nil, ErrEmptySections
	}
	return out, nil
}

type run struct {
	cat   domain.Category
	elems []elem
}

func runs(records []domain.LineRecord) []run {
	var out []run
	open := false
	for _, r := range records {
		if r.Kind == domain.KindSpacer {
			continue
		}
		if r.Category == domain.CategoryNone {
			open = false
			continue
		}
		if !open || out[len(out)-1].cat != r.Category {
			out = append(out, run{cat: r.Category})
			open = true
		}
		e := elem{text: r.Text, depth: r.Depth}
		switch r.Kind {
		case domain.KindListItem:
			e.kind = elemItem
			if !r.Category.AllowsLists() {
				e.kind, e.depth = elemParagraph, 0
			}
		case domain.KindLineBreak:
			e.kind = elemBreak
		default:
			e.kind = elemParagraph
		}
		cur := &out[len(out)-1]
		cur.elems = append(cur.elems, e)
	}
	return out
}

func condenseRun(cat domain.Category, elems []elem) (string, error) {
	bullets := cat.AllowsLists()
	elems, err := condenseItems(elems, bullets)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, e := range condenseBreaks(elems, bullets) {
		if e.kind == elemList {
			b.WriteString(e.text)
			continue
		}
		b.WriteString("<p>" + e.text + "</p>")
	}
	return b.String(), nil
}

// condenseItems replaces the span from the first to the last list item
// with one list element. Every item absorbs the records that follow it up
// to the next item; records after the last item stay outside the list.
func condenseItems(elems []elem, bullets bool) ([]elem, error) {
	first, last := -1, -1
	for i, e := range elems {
		if e.kind == elemItem {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return elems, nil
	}

	var depths []int
	var contents []string
	for i := first; i <= last; {
		head := elems[i]
		i++
		var b strings.Builder
		bullet, rest := markup.SplitBullet(markup.Content(head.text, bullets))
		b.WriteString(bullet + "<p>" + strings.TrimSpace(rest))
		for i < last && elems[i].kind != elemItem {
			data := markup.Content(elems[i].text, bullets)
			if elems[i].kind == elemBreak {
				b.WriteString("<br/>" + data)
			} else {
				b.WriteString("</p><p>" + data)
			}
			i++
		}
		b.WriteString("</p>")
		depths = append(depths, head.depth)
		contents = append(contents, b.String())
	}

	list, err := Nest(depths, contents)
	if err != nil {
		return nil, err
	}
	out := make([]elem, 0, first+1+len(elems)-last-1)
	out = append(out, elems[:first]...)
	out = append(out, elem{kind: elemList, text: list})
	out = append(out, elems[last+1:]...)
	return out, nil
}

// condenseBreaks renders paragraph text and folds line breaks into the
// preceding paragraph. A break with no paragraph before it opens one.
func condenseBreaks(elems []elem, bullets bool) []elem {
	var out []elem
	for _, e := range elems {
		if e.kind == elemList {
			out = append(out, e)
			continue
		}
		data := markup.Content(e.text, bullets)
		if e.kind == elemBreak && len(out) > 0 && out[len(out)-1].kind == elemParagraph {
			out[len(out)-1].text += "<br/>" + data
			continue
		}
		out = append(out, elem{kind: elemParagraph, text: data})
	}
	return out
}
