/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Cell based text measurement and line breaking for the terminal viewer.
// Widths are rendered terminal cells (East Asian wide runes count two),
// never bytes. The only escape sequences understood are the SGR reverse
// video pair used to highlight bullets and placeholders.

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	// InverseOn starts reverse video.
	InverseOn = "\x1b[7m"
	// InverseOff ends reverse video.
	InverseOff = "\x1b[27m"
	// TabWidth is the number of cells a tab expands to.
	TabWidth = 4
)

// Span is a run of text drawn with the same attributes.
type Span struct {
	Text    string
	Inverse bool
}

// Cell is one drawn rune. Width is 1 or 2 terminal columns.
type Cell struct {
	Rune    rune
	Width   int
	Inverse bool
}

// Parse splits s at reverse video markers. Adjacent runs with the same
// attribute are merged; markers themselves are dropped.
func Parse(s string) []Span {
	var spans []Span
	inverse := false
	flush := func(text string) {
		if text == "" {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].Inverse == inverse {
			spans[n-1].Text += text
			return
		}
		spans = append(spans, Span{Text: text, Inverse: inverse})
	}
	for s != "" {
		on := strings.Index(s, InverseOn)
		off := strings.Index(s, InverseOff)
		next, marker, state := -1, "", false
		switch {
		case on >= 0 && (off < 0 || on < off):
			next, marker, state = on, InverseOn, true
		case off >= 0:
			next, marker, state = off, InverseOff, false
		}
		if next < 0 {
			flush(s)
			break
		}
		flush(s[:next])
		inverse = state
		s = s[next+len(marker):]
	}
	return spans
}

// Width returns the number of cells s occupies on a single row.
func Width(s string) int {
	w := 0
	for _, sp := range Parse(expandTabs(s)) {
		w += runewidth.StringWidth(sp.Text)
	}
	return w
}

// Rows breaks s into rows of at most width cells. Breaking happens at any
// rune; a newline always starts a new row. A wide rune never straddles two
// rows. The result has at least one (possibly empty) row.
func Rows(s string, width int) [][]Cell {
	if width < 1 {
		width = 1
	}
	var rows [][]Cell
	var cur []Cell
	used := 0
	for _, sp := range Parse(expandTabs(s)) {
		for _, r := range sp.Text {
			if r == '\n' {
				rows = append(rows, cur)
				cur, used = nil, 0
				continue
			}
			w := runewidth.RuneWidth(r)
			if w == 0 {
				continue
			}
			if used > 0 && used+w > width {
				rows = append(rows, cur)
				cur, used = nil, 0
			}
			cur = append(cur, Cell{Rune: r, Width: w, Inverse: sp.Inverse})
			used += w
		}
	}
	if len(cur) > 0 || len(rows) == 0 {
		rows = append(rows, cur)
	}
	return rows
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", TabWidth))
}
