/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package classify holds the state of one interactive classification
// session: the operator scrolls through the wrapped template and every line
// scrolled past is assigned the current marking mode.
//
// Session is a value. Every operation returns the updated session and never
// mutates the lines of the receiver, so callers can keep earlier states.
package classify

import (
	"encoding/binary"
	"fmt"
	"strings"

	"licensexml/internal/domain"
	"licensexml/internal/markup"
	"licensexml/internal/textlayout"
)

// Direction of a scroll step.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// Unit of a scroll step.
type Unit int

const (
	// ByLine moves by the wrapped height of the line at the top of the view.
	ByLine Unit = iota
	// ByPage moves by 80% of the view height.
	ByPage
)

// Layout breaks display text into rows of cells. *textlayout.Cache implements it.
type Layout interface {
	Rows(s string, width int) [][]textlayout.Cell
}

// Session is the classification state of one record.
type Session struct {
	Mode   domain.Category
	Review bool
	Lines  []domain.LineRecord
	Width  int
	Height int
	// Offset is the scroll position in rows, in [0, ScrollHeight()].
	Offset int

	layout  Layout
	heights []int
	starts  []int
	rowLine []int
}

// New starts a session in title mode with the review flag cleared.
// A nil layout uses a private cache.
func New(lines []domain.LineRecord, width, height int, layout Layout) Session {
	if layout == nil {
		layout = textlayout.NewCache(0)
	}
	s := Session{
		Mode:   domain.CategoryTitle,
		Lines:  lines,
		Width:  width,
		Height: height,
		layout: layout,
	}
	s.recompute()
	return s
}

// Display returns the text drawn for a line: bullets are highlighted in
// list-bearing categories, placeholders everywhere.
func Display(l domain.LineRecord) string {
	text := l.Text
	if l.Category.AllowsLists() {
		text = markup.HighlightBullets(text, markup.Inverse)
	}
	return markup.HighlightPlaceholders(text, markup.Inverse)
}

// recompute rebuilds the scroll position to line map. Every wrapped row of
// a line maps to that line; the one extra position past the last row maps
// to the last line.
func (s *Session) recompute() {
	w := s.Width
	if w < 1 {
		w = 1
	}
	s.heights = make([]int, len(s.Lines))
	s.starts = make([]int, len(s.Lines))
	total := 0
	for i, l := range s.Lines {
		h := len(s.layout.Rows(Display(l), w))
		if h < 1 {
			h = 1
		}
		s.heights[i] = h
		s.starts[i] = total
		total += h
	}
	s.rowLine = make([]int, total+1)
	pos := 0
	for i, h := range s.heights {
		for j := 0; j < h; j++ {
			s.rowLine[pos] = i
			pos++
		}
	}
	for pos < len(s.rowLine) {
		s.rowLine[pos] = len(s.Lines) - 1
		pos++
	}
	if s.Offset > s.ScrollHeight() {
		s.Offset = s.ScrollHeight()
	}
}

// ScrollHeight is the largest valid scroll position.
func (s Session) ScrollHeight() int { return len(s.rowLine) - 1 }

// LineHeight is the number of wrapped rows of line i.
func (s Session) LineHeight(i int) int { return s.heights[i] }

// LineAt returns the line shown at scroll position pos.
func (s Session) LineAt(pos int) (int, error) {
	if pos < 0 || pos >= len(s.rowLine) {
		return 0, s.inconsistent(pos)
	}
	i := s.rowLine[pos]
	if i < 0 || i >= len(s.Lines) {
		return 0, s.inconsistent(pos)
	}
	return i, nil
}

// SetMode selects the category assigned by forward scrolling.
// Categories outside the four markable ones are ignored.
func (s Session) SetMode(c domain.Category) Session {
	if c.Valid() {
		s.Mode = c
	}
	return s
}

// ToggleReview flips the review flag.
func (s Session) ToggleReview() Session {
	s.Review = !s.Review
	return s
}

// Resize changes the viewport and rebuilds the scroll map.
func (s Session) Resize(width, height int) Session {
	s.Width, s.Height = width, height
	s.recompute()
	return s
}

// Scroll moves the view and marks the lines crossed. Lines crossed moving
// forward get the current mode; lines crossed moving backward are cleared.
func (s Session) Scroll(dir Direction, unit Unit) (Session, error) {
	if len(s.Lines) == 0 {
		return s, nil
	}
	start := s.Offset
	if start > s.ScrollHeight() {
		start = s.ScrollHeight()
	}
	top, err := s.LineAt(start)
	if err != nil {
		return s, err
	}
	dist := s.heights[top]
	if unit == ByPage {
		dist = s.Height * 8 / 10
		if dist < 1 {
			dist = 1
		}
	}
	target := start + int(dir)*dist
	if target < 0 {
		target = 0
	}
	if target > s.ScrollHeight() {
		target = s.ScrollHeight()
	}
	s.Offset = target
	return s.mark(start, target)
}

func (s Session) mark(startPos, endPos int) (Session, error) {
	start, err := s.LineAt(startPos)
	if err != nil {
		return s, err
	}
	end, err := s.LineAt(endPos)
	if err != nil {
		return s, err
	}
	if start == end {
		return s, nil
	}
	lines := make([]domain.LineRecord, len(s.Lines))
	copy(lines, s.Lines)
	if start < end {
		for i := start; i < end; i++ {
			lines[i].Category = s.Mode
		}
	} else {
		for i := start - 1; i >= end; i-- {
			lines[i].Category = domain.CategoryNone
		}
	}
	s.Lines = lines
	s.recompute()
	return s, nil
}

// Commit returns the operator's decision.
func (s Session) Commit() domain.Decision {
	lines := make([]domain.LineRecord, len(s.Lines))
	copy(lines, s.Lines)
	return domain.Decision{Lines: lines, Review: s.Review}
}

// Snapshot encodes the scroll offset (uvarint) followed by the line
// categories, one byte per line.
func (s Session) Snapshot() []byte {
	out := binary.AppendUvarint(make([]byte, 0, len(s.Lines)+binary.MaxVarintLen64), uint64(s.Offset))
	for _, l := range s.Lines {
		out = append(out, byte(l.Category))
	}
	return out
}

// Restore applies the offset and categories captured by Snapshot.
func (s Session) Restore(blob []byte) (Session, error) {
	off, n := binary.Uvarint(blob)
	if n <= 0 {
		return s, fmt.Errorf("classify: malformed snapshot")
	}
	cats := blob[n:]
	if len(cats) != len(s.Lines) {
		return s, fmt.Errorf("classify: snapshot covers %d lines, session has %d", len(cats), len(s.Lines))
	}
	lines := make([]domain.LineRecord, len(s.Lines))
	copy(lines, s.Lines)
	for i, b := range cats {
		lines[i].Category = domain.Category(b)
	}
	s.Lines = lines
	s.Offset = int(off)
	s.recompute()
	return s, nil
}

// Dump renders the session state for crash reports.
func (s Session) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode=%s review=%v width=%d height=%d offset=%d scrollHeight=%d lines=%d\n",
		s.Mode, s.Review, s.Width, s.Height, s.Offset, s.ScrollHeight(), len(s.Lines))
	for i, l := range s.Lines {
		h := 0
		if i < len(s.heights) {
			h = s.heights[i]
		}
		fmt.Fprintf(&b, "%4d %-10s %-9s depth=%d rows=%d %q\n", i, l.Kind, l.Category, l.Depth, h, l.Text)
	}
	fmt.Fprintf(&b, "map=%v\n", s.rowLine)
	return b.String()
}

func (s Session) inconsistent(pos int) error {
	return &ConsistencyError{Pos: pos, Dump: s.Dump()}
}

// ConsistencyError reports a scroll position the map cannot resolve.
type ConsistencyError struct {
	Pos  int
	Dump string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("classify: scroll position %d does not map to a line", e.Pos)
}
