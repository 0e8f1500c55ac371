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
	"errors"
	"reflect"
	"strings"
	"testing"

	"licensexml/internal/domain"
	"licensexml/internal/lines"
)

func mustScroll(t *testing.T, s Session, dir Direction, unit Unit) Session {
	t.Helper()
	out, err := s.Scroll(dir, unit)
	if err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	return out
}

func categories(s Session) []domain.Category {
	out := make([]domain.Category, len(s.Lines))
	for i, l := range s.Lines {
		out[i] = l.Category
	}
	return out
}

func TestNewDefaults(t *testing.T) {
	s := New(lines.Group("Title\n\nBody"), 80, 10, nil)
	if s.Mode != domain.CategoryTitle || s.Review || s.Offset != 0 {
		t.Fatalf("unexpected initial state: mode=%v review=%v offset=%d", s.Mode, s.Review, s.Offset)
	}
	// two records, two spacers, plus the extra trailing position
	if s.ScrollHeight() != 4 {
		t.Fatalf("ScrollHeight = %d, want 4", s.ScrollHeight())
	}
}

func TestScrollMarksForwardAndClearsBackward(t *testing.T) {
	s := New(lines.Group("Title\n\nCopyright 2024\n\nBody text"), 80, 10, nil)

	s = mustScroll(t, s, Forward, ByLine)
	s = s.SetMode(domain.CategoryCopyright)
	s = mustScroll(t, s, Forward, ByLine)
	s = mustScroll(t, s, Forward, ByLine)
	s = s.SetMode(domain.CategoryBody)
	s = mustScroll(t, s, Forward, ByPage)

	want := []domain.Category{
		domain.CategoryTitle,
		domain.CategoryCopyright, domain.CategoryCopyright,
		domain.CategoryBody, domain.CategoryBody,
		domain.CategoryNone,
	}
	if got := categories(s); !reflect.DeepEqual(got, want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	if s.Offset != s.ScrollHeight() {
		t.Fatalf("page scroll must clamp at %d, got %d", s.ScrollHeight(), s.Offset)
	}

	// the extra position maps to the last line, so the first step back marks nothing
	s = mustScroll(t, s, Backward, ByLine)
	s = mustScroll(t, s, Backward, ByLine)
	if got := s.Lines[4].Category; got != domain.CategoryNone {
		t.Fatalf("backward scroll must clear line 4, got %v", got)
	}
	if got := s.Lines[3].Category; got != domain.CategoryBody {
		t.Fatalf("line 3 must keep its category, got %v", got)
	}
}

func TestScrollClampsAtTop(t *testing.T) {
	s := New(lines.Group("one\n\ntwo"), 80, 10, nil)
	s = mustScroll(t, s, Backward, ByPage)
	if s.Offset != 0 {
		t.Fatalf("offset = %d, want 0", s.Offset)
	}
	for _, c := range categories(s) {
		if c != domain.CategoryNone {
			t.Fatalf("scrolling up at the top must not mark anything")
		}
	}
}

func TestWrappedLinesOccupySeveralPositions(t *testing.T) {
	recs := lines.Group("short\n\n" + strings.Repeat("a", 25))
	s := New(recs, 10, 5, nil)
	if h := s.LineHeight(2); h != 3 {
		t.Fatalf("LineHeight = %d, want 3", h)
	}
	for pos, want := range []int{0, 1, 2, 2, 2, 3, 3} {
		got, err := s.LineAt(pos)
		if err != nil || got != want {
			t.Fatalf("LineAt(%d) = %d, %v; want %d", pos, got, err, want)
		}
	}
	s.Offset = 2
	s = mustScroll(t, s, Forward, ByLine)
	if s.Offset != 5 {
		t.Fatalf("line step must move by the wrapped height, offset = %d", s.Offset)
	}
	if s.Lines[2].Category != domain.CategoryTitle || s.Lines[3].Category != domain.CategoryNone {
		t.Fatalf("unexpected categories: %v", categories(s))
	}
}

func TestResizeRecomputesMap(t *testing.T) {
	s := New(lines.Group(strings.Repeat("b", 30)), 10, 5, nil)
	if s.ScrollHeight() != 4 {
		t.Fatalf("ScrollHeight at width 10 = %d, want 4", s.ScrollHeight())
	}
	s.Offset = 4
	s = s.Resize(40, 5)
	if s.ScrollHeight() != 2 {
		t.Fatalf("ScrollHeight at width 40 = %d, want 2", s.ScrollHeight())
	}
	if s.Offset != 2 {
		t.Fatalf("offset must be clamped after resize, got %d", s.Offset)
	}
}

func TestSessionIsAValue(t *testing.T) {
	s := New(lines.Group("one\n\ntwo"), 80, 10, nil)
	next := mustScroll(t, s, Forward, ByLine)
	if s.Lines[0].Category != domain.CategoryNone {
		t.Fatalf("scrolling must not mutate the previous session")
	}
	if next.Lines[0].Category != domain.CategoryTitle {
		t.Fatalf("expected line 0 marked in the new session")
	}
}

func TestCommitCarriesReviewFlag(t *testing.T) {
	s := New(lines.Group("one"), 80, 10, nil)
	s = mustScroll(t, s, Forward, ByLine).ToggleReview()
	d := s.Commit()
	if !d.Review || len(d.Lines) != 2 || d.Lines[0].Category != domain.CategoryTitle {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if s.ToggleReview().Review {
		t.Fatalf("toggle must flip the flag back")
	}
}

func TestSetModeIgnoresInvalidCategory(t *testing.T) {
	s := New(nil, 80, 10, nil).SetMode(domain.CategoryOptional)
	if s.SetMode(domain.CategoryNone).Mode != domain.CategoryOptional {
		t.Fatalf("none is not a marking mode")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := New(lines.Group("one\n\ntwo"), 80, 10, nil)
	before := s.Snapshot()
	s = mustScroll(t, s, Forward, ByPage)
	if s.Offset == 0 {
		t.Fatalf("page scroll must move the view")
	}
	restored, err := s.Restore(before)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Offset != 0 {
		t.Fatalf("restore must bring back the offset, got %d", restored.Offset)
	}
	for _, c := range categories(restored) {
		if c != domain.CategoryNone {
			t.Fatalf("restore must bring back the unmarked state")
		}
	}
	if _, err := s.Restore([]byte{1}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if _, err := s.Restore(nil); err == nil {
		t.Fatalf("expected malformed snapshot error")
	}
}

func TestLineAtOutOfRangeIsConsistencyError(t *testing.T) {
	s := New(lines.Group("one"), 80, 10, nil)
	_, err := s.LineAt(99)
	var ce *ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConsistencyError, got %v", err)
	}
	if ce.Pos != 99 || !strings.Contains(ce.Dump, "map=") {
		t.Fatalf("unexpected error payload: %+v", ce)
	}
}

func TestEmptySessionScrollIsNoop(t *testing.T) {
	s := New(nil, 80, 10, nil)
	out, err := s.Scroll(Forward, ByPage)
	if err != nil || out.Offset != 0 {
		t.Fatalf("expected no-op, got offset=%d err=%v", out.Offset, err)
	}
}

func TestViewStylesAndHighlights(t *testing.T) {
	recs := lines.Group("Title <<var;name=t;original=x>>\n\na) one")
	s := New(recs, 80, 10, nil)
	s.Lines[0].Category = domain.CategoryTitle
	s.Lines[2].Category = domain.CategoryBody
	rows := View(s)
	if len(rows) != 4 {
		t.Fatalf("expected 4 visible rows, got %d", len(rows))
	}
	if rows[0].Style != Style(domain.CategoryTitle) || rows[2].Style != Style(domain.CategoryBody) {
		t.Fatalf("unexpected row styles")
	}
	if rows[0].Cells[0].Inverse || !rows[0].Cells[len("Title ")].Inverse {
		t.Fatalf("placeholder must be inverse, plain text not")
	}
	if !rows[2].Cells[0].Inverse || !rows[2].Cells[1].Inverse || rows[2].Cells[2].Inverse {
		t.Fatalf("bullet glyph must be inverse in body lines: %+v", rows[2].Cells)
	}

	s.Lines[2].Category = domain.CategoryTitle
	if View(s)[2].Cells[0].Inverse {
		t.Fatalf("bullets are only highlighted in body and optional lines")
	}
}

func TestViewRespectsHeightAndOffset(t *testing.T) {
	s := New(lines.Group("a\n\nb\n\nc"), 80, 2, nil)
	s.Offset = 2
	rows := View(s)
	if len(rows) != 2 || rows[0].Line != 2 || rows[1].Line != 3 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}
