/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package lines turns raw template text into typed line records.
package lines

import (
	"strings"

	"licensexml/internal/domain"
)

// SpacerText is the content of spacer records; it renders as one blank cell.
const SpacerText = " "

// TabWidth is the number of spaces a tab counts for when computing depth.
const TabWidth = 4

// Group splits text into blocks separated by blank lines and classifies
// every line as paragraph, list item or line break.
// Rules:
//   - a single-line block is a list item when it starts with a bullet, else a paragraph
//   - a block without bullets is one paragraph followed by line breaks
//   - a block made only of bullets yields one list item per line
//   - a mixed block is cut into homogeneous runs: bullet runs become list items,
//     other runs line breaks; a leading non-bullet line is a paragraph only when
//     nothing has been emitted before it
//
// Every emitted record is followed by a spacer. List item depth is the
// leading indentation (tabs count as four spaces) divided by four.
func Group(text string) []domain.LineRecord {
	var out []domain.LineRecord
	emit := func(kind domain.Kind, line string) {
		rec := domain.LineRecord{Text: line, Kind: kind}
		if kind == domain.KindListItem {
			rec.Depth = Depth(line)
		}
		out = append(out, rec, domain.LineRecord{Text: SpacerText, Kind: domain.KindSpacer})
	}

	for _, block := range blocks(text) {
		if len(block) == 1 {
			if IsBullet(block[0]) {
				emit(domain.KindListItem, block[0])
			} else {
				emit(domain.KindParagraph, block[0])
			}
			continue
		}

		bullets := make([]bool, len(block))
		some, every := false, true
		for i, l := range block {
			bullets[i] = IsBullet(l)
			some = some || bullets[i]
			every = every && bullets[i]
		}

		switch {
		case !some:
			emit(domain.KindParagraph, block[0])
			for _, l := range block[1:] {
				emit(domain.KindLineBreak, l)
			}
		case every:
			for _, l := range block {
				emit(domain.KindListItem, l)
			}
		default:
			first := len(out) == 0
			for i, l := range block {
				switch {
				case bullets[i]:
					emit(domain.KindListItem, l)
				case i == 0 && first:
					emit(domain.KindParagraph, l)
				default:
					emit(domain.KindLineBreak, l)
				}
			}
		}
	}
	return out
}

// Depth returns the list nesting depth implied by the indentation of line.
func Depth(line string) int {
	expanded := strings.ReplaceAll(line, "\t", strings.Repeat(" ", TabWidth))
	n := len(expanded) - len(strings.TrimLeft(expanded, " "))
	return n / TabWidth
}

// Text joins the non-spacer records back into template text, one record per line.
func Text(records []domain.LineRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		if r.Kind == domain.KindSpacer {
			continue
		}
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n")
}

// blocks returns maximal runs of non-blank lines.
func blocks(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out [][]string
	var cur []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, l)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
