/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ui is the terminal front end of the classifier. One full-screen
// view shows the wrapped template below a one-row status bar.
//
// Keys:
//
//	1 2 3 4          mark as title, copyright, license body, optional
//	`                toggle the review flag
//	Up Down          scroll one line (marks or clears what was crossed)
//	PgUp PgDn        scroll 80% of the view
//	u r              undo the last mark, redo it
//	Tab Enter        commit the record
//	q Esc Ctrl-C     stop the batch
package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"licensexml/internal/classify"
	"licensexml/internal/domain"
	applog "licensexml/internal/log"
	"licensexml/internal/textlayout"
	"licensexml/internal/undo"
)

// ErrAborted is returned when the operator quits the classifier.
var ErrAborted = errors.New("ui: aborted by operator")

// Options configure a Terminal.
type Options struct {
	// Screen overrides the terminal, e.g. with tcell.NewSimulationScreen in tests.
	Screen tcell.Screen
	// CacheSize bounds the layout cache (see textlayout.NewCache).
	CacheSize int
	// Undo configures the per-record undo stacks.
	Undo undo.Config
}

// Terminal implements the interactive classifier on a tcell screen.
type Terminal struct {
	screen tcell.Screen
	layout *textlayout.Cache
	undo   *undo.Manager
	now    func() time.Time

	events chan tcell.Event
	quit   chan struct{}
	once   sync.Once
}

// Open initializes the screen and starts reading events.
func Open(opts Options) (*Terminal, error) {
	scr := opts.Screen
	if scr == nil {
		var err error
		if scr, err = tcell.NewScreen(); err != nil {
			return nil, fmt.Errorf("open terminal: %w", err)
		}
	}
	if err := scr.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	if opts.Undo.MaxPerRecord == 0 {
		opts.Undo.MaxPerRecord = 100
	}
	t := &Terminal{
		screen: scr,
		layout: textlayout.NewCache(opts.CacheSize),
		undo:   undo.NewManager(opts.Undo),
		now:    time.Now,
		events: make(chan tcell.Event, 64),
		quit:   make(chan struct{}),
	}
	go scr.ChannelEvents(t.events, t.quit)
	return t, nil
}

// Close restores the terminal. It is safe to call more than once.
func (t *Terminal) Close() {
	t.once.Do(func() {
		close(t.quit)
		t.screen.Fini()
	})
}

// Classify shows one record and blocks until the operator commits it.
func (t *Terminal) Classify(ctx context.Context, rec domain.LicenseRecord, recs []domain.LineRecord) (domain.Decision, error) {
	l := applog.WithRecord(applog.WithOperation(applog.WithComponent("ui"), "classify"), rec.Identifier)
	w, h := t.screen.Size()
	s := classify.New(recs, w, bodyHeight(h), t.layout)
	defer t.undo.Clear(rec.Identifier)

	t.draw(rec, s)
	for {
		select {
		case <-ctx.Done():
			return domain.Decision{}, ctx.Err()
		case ev, ok := <-t.events:
			if !ok {
				return domain.Decision{}, ErrAborted
			}
			next, done, err := t.handle(rec.Identifier, s, ev)
			if errors.Is(err, ErrAborted) {
				l.Info("aborted by operator")
				return domain.Decision{}, err
			}
			if err != nil {
				l.Error("classifier state inconsistent", "err", err)
				return domain.Decision{}, err
			}
			if done {
				d := next.Commit()
				undoBytes, _, snaps := t.undo.Stats()
				l.Info("record committed", "review", d.Review)
				l.Debug("classifier state", "undo_snapshots", snaps, "undo_bytes", undoBytes, "layouts", t.layout.Len())
				return d, nil
			}
			s = next
			t.draw(rec, s)
		}
	}
}

var modeKeys = map[rune]domain.Category{
	'1': domain.CategoryTitle,
	'2': domain.CategoryCopyright,
	'3': domain.CategoryBody,
	'4': domain.CategoryOptional,
}

// handle applies one event. done reports a commit.
func (t *Terminal) handle(record string, s classify.Session, ev tcell.Event) (classify.Session, bool, error) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, h := ev.Size()
		t.screen.Sync()
		if w != s.Width {
			// layouts are keyed by width; the old ones are dead
			t.layout.Purge()
		}
		return s.Resize(w, bodyHeight(h)), false, nil
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return s, false, ErrAborted
		case tcell.KeyTab, tcell.KeyEnter:
			return s, true, nil
		case tcell.KeyUp:
			return t.scroll(record, s, classify.Backward, classify.ByLine)
		case tcell.KeyDown:
			return t.scroll(record, s, classify.Forward, classify.ByLine)
		case tcell.KeyPgUp:
			return t.scroll(record, s, classify.Backward, classify.ByPage)
		case tcell.KeyPgDn:
			return t.scroll(record, s, classify.Forward, classify.ByPage)
		case tcell.KeyRune:
			r := ev.Rune()
			if c, ok := modeKeys[r]; ok {
				return s.SetMode(c), false, nil
			}
			switch r {
			case '`':
				return s.ToggleReview(), false, nil
			case 'u':
				if snap, ok := t.undo.Undo(t.current(record, s)); ok {
					next, err := s.Restore(snap.Blob)
					return next, false, err
				}
			case 'r':
				if snap, ok := t.undo.Redo(t.current(record, s)); ok {
					next, err := s.Restore(snap.Blob)
					return next, false, err
				}
			case 'q':
				return s, false, ErrAborted
			}
		}
	}
	return s, false, nil
}

// current captures the session for the undo manager.
func (t *Terminal) current(record string, s classify.Session) undo.Snapshot {
	return undo.Snapshot{Record: record, Blob: s.Snapshot(), TS: t.now()}
}

func (t *Terminal) scroll(record string, s classify.Session, dir classify.Direction, unit classify.Unit) (classify.Session, bool, error) {
	before := s.Snapshot()
	next, err := s.Scroll(dir, unit)
	if err != nil {
		return s, false, err
	}
	if !bytes.Equal(before, next.Snapshot()) {
		t.undo.PushSnapshot(undo.Snapshot{Record: record, Blob: before, TS: t.now()})
	}
	return next, false, nil
}

func bodyHeight(h int) int {
	if h <= 1 {
		return 1
	}
	return h - 1
}
