/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"licensexml/internal/classify"
	"licensexml/internal/domain"
)

// ReviewBadge is shown on the status bar while the review flag is set.
const ReviewBadge = "REVIEW"

var (
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorGray)
	reviewStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorMaroon)
)

// StatusText is the status bar text without the review badge.
func StatusText(rec domain.LicenseRecord, s classify.Session) string {
	return rec.Title() + " - Marking: " + s.Mode.String()
}

func (t *Terminal) draw(rec domain.LicenseRecord, s classify.Session) {
	t.screen.Clear()
	w, _ := t.screen.Size()

	x := t.put(0, 0, w, rec.Title()+" - ", statusStyle)
	x = t.put(x, 0, w, "Marking: "+s.Mode.String(), classify.Style(s.Mode))
	if s.Review {
		x = t.put(x, 0, w, "               ", statusStyle)
		x = t.put(x, 0, w, ReviewBadge, reviewStyle)
	}
	for ; x < w; x++ {
		t.screen.SetContent(x, 0, ' ', nil, statusStyle)
	}

	for y, row := range classify.View(s) {
		x := 0
		for _, c := range row.Cells {
			if x+c.Width > w {
				break
			}
			t.screen.SetContent(x, y+1, c.Rune, nil, classify.CellStyle(row.Style, c))
			x += c.Width
		}
		for ; x < w; x++ {
			t.screen.SetContent(x, y+1, ' ', nil, row.Style)
		}
	}
	t.screen.Show()
}

// put draws text at (x, y) clipped to w and returns the next column.
func (t *Terminal) put(x, y, w int, text string, st tcell.Style) int {
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > w {
			return w
		}
		t.screen.SetContent(x, y, r, nil, st)
		x += rw
	}
	return x
}
