/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package classify

import (
	"github.com/gdamore/tcell/v2"

	"licensexml/internal/domain"
	"licensexml/internal/textlayout"
)

// Row is one visible terminal row.
type Row struct {
	Line  int
	Cells []textlayout.Cell
	Style tcell.Style
}

// Style returns the base style of a line in category c.
func Style(c domain.Category) tcell.Style {
	st := tcell.StyleDefault
	switch c {
	case domain.CategoryTitle:
		return st.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	case domain.CategoryCopyright:
		return st.Foreground(tcell.ColorBlack).Background(tcell.ColorTeal)
	case domain.CategoryBody:
		return st.Foreground(tcell.ColorGray).Background(tcell.ColorSilver)
	case domain.CategoryOptional:
		return st.Foreground(tcell.ColorWhite).Background(tcell.ColorRed)
	}
	return st
}

// CellStyle is the style a cell is drawn with on a row of base style st.
func CellStyle(st tcell.Style, c textlayout.Cell) tcell.Style {
	if c.Inverse {
		return st.Reverse(true)
	}
	return st
}

// View returns the rows visible at the current offset.
func View(s Session) []Row {
	var out []Row
	w := s.Width
	if w < 1 {
		w = 1
	}
	last := s.ScrollHeight()
	for pos := s.Offset; pos < s.Offset+s.Height && pos < last; pos++ {
		i := s.rowLine[pos]
		l := s.Lines[i]
		rows := s.layout.Rows(Display(l), w)
		k := pos - s.starts[i]
		if k < 0 || k >= len(rows) {
			continue
		}
		out = append(out, Row{Line: i, Cells: rows[k], Style: Style(l.Category)})
	}
	return out
}
