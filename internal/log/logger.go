/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log configures the slog logger shared by every licensexml package.
//
// Two sinks exist: a console sink on stderr (one readable line per record,
// or JSON) and an optional rotating JSON file. While the classifier owns the
// terminal the console sink is switched off and the file is the only sink.
// Loggers carry the component, the operation and the record identifier
// being converted as attributes.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"licensexml/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "LXML_LOG_LEVEL"  // debug, info, warn, error
	EnvFormat = "LXML_LOG_FORMAT" // console or json
	EnvFile   = "LXML_LOG_FILE"
	EnvSource = "LXML_LOG_SOURCE" // true adds file:line
)

// Options controls Init. The zero value logs INFO lines to stderr.
type Options struct {
	Level     string
	Format    string // console sink only: "console" or "json"
	AddSource bool
	// File enables the rotating JSON file sink.
	File string
	// NoConsole drops the stderr sink.
	NoConsole bool
}

// rotation limits of the file sink
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

var (
	mu      sync.RWMutex
	current *slog.Logger
	sink    *lj.Logger

	// consoleOut is swapped in tests.
	consoleOut io.Writer = os.Stderr
)

// L returns the process logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l == nil {
		Init(FromEnv())
		mu.RLock()
		l = current
		mu.RUnlock()
	}
	return l
}

// Init replaces the process logger and slog.Default. A file sink opened by
// an earlier Init is closed.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	var hs []slog.Handler
	if !opts.NoConsole {
		if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
			hs = append(hs, slog.NewJSONHandler(consoleOut, hopts))
		} else {
			hs = append(hs, newLineHandler(consoleOut, lvl, opts.AddSource))
		}
	}
	var file *lj.Logger
	if path := strings.TrimSpace(opts.File); path != "" {
		file = &lj.Logger{Filename: path, MaxSize: fileMaxSizeMB, MaxBackups: fileMaxBackups, MaxAge: fileMaxAgeDays, Compress: true}
		hs = append(hs, slog.NewJSONHandler(file, hopts))
	}

	var h slog.Handler
	switch len(hs) {
	case 0:
		h = slog.NewJSONHandler(io.Discard, hopts)
	case 1:
		h = hs[0]
	default:
		h = fanout(hs)
	}
	l := slog.New(h).With(slog.String("app", "licensexml"), slog.String("ver", version.Version))

	mu.Lock()
	prev := sink
	current, sink = l, file
	mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	slog.SetDefault(l)
}

// Close releases the log file, if any. The rotating writer reopens it on
// the next record.
func Close() error {
	mu.Lock()
	f := sink
	sink = nil
	mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

// FromEnv reads Options from the LXML_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     os.Getenv(EnvLevel),
		Format:    os.Getenv(EnvFormat),
		AddSource: parseBool(os.Getenv(EnvSource)),
		File:      strings.TrimSpace(os.Getenv(EnvFile)),
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// WithComponent returns a logger tagged with the package that logs.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with the operation in progress.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// WithRecord tags l with the identifier of the record being converted.
func WithRecord(l *slog.Logger, id string) *slog.Logger { return l.With(slog.String("record", id)) }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// fanout sends every record to all handlers that accept its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// lineHandler writes "15:04:05 INF msg key=value ..." lines. Values with
// spaces are quoted so a line stays splittable on blanks.
type lineHandler struct {
	mu     *sync.Mutex // shared by all derived handlers
	w      io.Writer
	level  slog.Level
	source bool
	prefix string // group path of later attributes, "a.b."
	attrs  string // preformatted " key=value" pairs
}

func newLineHandler(w io.Writer, level slog.Level, source bool) *lineHandler {
	return &lineHandler{mu: &sync.Mutex{}, w: w, level: level, source: source}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		b.WriteString(" src=")
		b.WriteString(f.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.Line))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	c := h.clone()
	c.attrs = b.String()
	return c
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix = h.prefix + name + "."
	return c
}

func (h *lineHandler) clone() *lineHandler {
	c := *h
	return &c
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(valueString(a.Value))
}

func levelTag(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DBG"
	case l < slog.LevelWarn:
		return "INF"
	case l < slog.LevelError:
		return "WRN"
	}
	return "ERR"
}

func valueString(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindFloat64:
		s = strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
