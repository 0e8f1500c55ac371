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
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"licensexml/internal/domain"
	"licensexml/internal/lines"
)

var mitRecord = domain.LicenseRecord{Name: "MIT License", Identifier: "MIT"}

func openSim(t *testing.T, w, h int) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	term, err := Open(Options{Screen: sim})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sim.SetSize(w, h)
	t.Cleanup(term.Close)
	return term, sim
}

func key(sim tcell.SimulationScreen, k tcell.Key) { sim.InjectKey(k, 0, tcell.ModNone) }

func char(sim tcell.SimulationScreen, r rune) { sim.InjectKey(tcell.KeyRune, r, tcell.ModNone) }

func row(sim tcell.SimulationScreen, y int) string {
	cells, w, _ := sim.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		b.WriteString(string(cells[y*w+x].Runes))
	}
	return b.String()
}

func withTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClassifyMarksAndCommits(t *testing.T) {
	term, sim := openSim(t, 80, 10)
	recs := lines.Group("MIT License\n\nCopyright (c) <year>\n\nPermission is hereby granted.")

	key(sim, tcell.KeyDown)
	char(sim, '2')
	key(sim, tcell.KeyDown)
	key(sim, tcell.KeyDown)
	char(sim, '3')
	key(sim, tcell.KeyPgDn)
	char(sim, '`')
	key(sim, tcell.KeyEnter)

	d, err := term.Classify(withTimeout(t), mitRecord, recs)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	var got []domain.Category
	for _, l := range d.Lines {
		got = append(got, l.Category)
	}
	want := []domain.Category{
		domain.CategoryTitle,
		domain.CategoryCopyright, domain.CategoryCopyright,
		domain.CategoryBody, domain.CategoryBody,
		domain.CategoryNone,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	if !d.Review {
		t.Fatalf("expected review flag")
	}

	status := row(sim, 0)
	if !strings.HasPrefix(status, "MIT License (MIT) - Marking: license") || !strings.Contains(status, ReviewBadge) {
		t.Fatalf("unexpected status bar: %q", status)
	}
	if !strings.HasPrefix(row(sim, 1), "MIT License") {
		t.Fatalf("expected template text below the status bar, got %q", row(sim, 1))
	}
}

func TestClassifyAbortKeys(t *testing.T) {
	for _, press := range []func(tcell.SimulationScreen){
		func(s tcell.SimulationScreen) { char(s, 'q') },
		func(s tcell.SimulationScreen) { key(s, tcell.KeyEscape) },
		func(s tcell.SimulationScreen) { key(s, tcell.KeyCtrlC) },
	} {
		term, sim := openSim(t, 40, 10)
		press(sim)
		_, err := term.Classify(withTimeout(t), mitRecord, lines.Group("text"))
		if !errors.Is(err, ErrAborted) {
			t.Fatalf("expected ErrAborted, got %v", err)
		}
	}
}

func TestClassifyUndoRestoresLastMark(t *testing.T) {
	term, sim := openSim(t, 40, 10)
	key(sim, tcell.KeyDown)
	char(sim, 'u')
	char(sim, 'u') // nothing left to undo
	key(sim, tcell.KeyTab)

	d, err := term.Classify(withTimeout(t), mitRecord, lines.Group("one\n\ntwo"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for _, l := range d.Lines {
		if l.Category != domain.CategoryNone {
			t.Fatalf("undo must clear the mark, got %+v", d.Lines)
		}
	}
}

func TestClassifyRedoReappliesMark(t *testing.T) {
	term, sim := openSim(t, 40, 10)
	key(sim, tcell.KeyDown)
	char(sim, 'u')
	char(sim, 'r')
	char(sim, 'r') // nothing left to redo
	key(sim, tcell.KeyTab)

	d, err := term.Classify(withTimeout(t), mitRecord, lines.Group("one\n\ntwo"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if d.Lines[0].Category != domain.CategoryTitle {
		t.Fatalf("redo must restore the mark, got %+v", d.Lines)
	}
}

func TestClassifyHonoursResize(t *testing.T) {
	term, sim := openSim(t, 40, 10)
	sim.SetSize(10, 4)
	if err := sim.PostEvent(tcell.NewEventResize(10, 4)); err != nil {
		t.Fatalf("PostEvent: %v", err)
	}
	key(sim, tcell.KeyDown)
	key(sim, tcell.KeyEnter)

	d, err := term.Classify(withTimeout(t), mitRecord, lines.Group(strings.Repeat("x", 25)))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if d.Lines[0].Category != domain.CategoryTitle {
		t.Fatalf("expected the wrapped line to be marked, got %+v", d.Lines)
	}
}

func TestClassifyContextCancel(t *testing.T) {
	term, _ := openSim(t, 40, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := term.Classify(ctx, mitRecord, lines.Group("text")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	term, _ := openSim(t, 40, 10)
	term.Close()
	term.Close()
}
