/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry posts opt-in usage events of a conversion run and
// uploads crash reports on the same opt-in.
//
// An event names what happened to one record (its type, the number of
// sections and the review flag) and carries a random run id, so events of
// one batch can be grouped. Template text and catalog content are never sent.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "licensexml/internal/log"
	"licensexml/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = "LXML_TELEMETRY_OPT_IN"
	EnvEventsURL = "LXML_TELEMETRY_URL"
	EnvCrashURL  = "LXML_CRASH_UPLOAD_URL"
	EnvTimeoutMS = "LXML_TELEMETRY_TIMEOUT_MS"
)

const (
	defaultTimeout = 1500 * time.Millisecond
	queueSize      = 64
)

// Config selects the endpoints. Nothing is sent unless OptIn is set and the
// matching URL is configured.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

// FromEnv reads Config from the LXML_TELEMETRY_* variables. The config
// file's general.telemetryOptIn is merged by the caller.
func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv(EnvOptIn)),
		EventsURL: strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:  strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:   defaultTimeout,
	}
	if ms := strings.TrimSpace(os.Getenv(EnvTimeoutMS)); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client posts events from one background goroutine. Event never blocks
// the classifier: when the queue is full the event is dropped.
type Client struct {
	cfg  Config
	run  string
	log  *slog.Logger
	http *http.Client

	queue   chan map[string]any
	pending sync.WaitGroup
	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64

	stop sync.Once
	done chan struct{}
}

// New starts a client. The loop runs until Close.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		cfg:   cfg,
		run:   uuid.NewString(),
		log:   applog.WithComponent("telemetry"),
		http:  &http.Client{Timeout: cfg.Timeout},
		queue: make(chan map[string]any, queueSize),
		done:  make(chan struct{}),
	}
	go c.loop()
	return c
}

// Run returns the id attached to every event of this client.
func (c *Client) Run() string { return c.run }

// Enabled reports whether events are sent at all.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues one event. Props cannot replace the envelope fields
// (name, run, ts, version, os, arch).
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"run":     c.run,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	c.pending.Add(1)
	select {
	case c.queue <- payload:
	default:
		c.pending.Done()
		c.dropped.Add(1)
	}
}

// Flush blocks until every queued event was posted or ctx ends.
func (c *Client) Flush(ctx context.Context) {
	drained := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		c.log.Debug("telemetry flush timed out", slog.Int("queued", len(c.queue)))
	}
}

// Close stops the loop. Events still queued are discarded.
func (c *Client) Close() {
	c.stop.Do(func() {
		close(c.done)
		if c.Enabled() {
			c.log.Debug("telemetry closed",
				slog.String("run", c.run),
				slog.Int64("sent", c.sent.Load()),
				slog.Int64("failed", c.failed.Load()),
				slog.Int64("dropped", c.dropped.Load()))
		}
	})
}

func (c *Client) loop() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.queue:
			if err := c.post(c.cfg.EventsURL, "application/json", payload); err != nil {
				c.failed.Add(1)
				c.log.Debug("telemetry event not sent", slog.Any("name", payload["name"]), slog.Any("err", err))
			} else {
				c.sent.Add(1)
			}
			c.pending.Done()
		}
	}
}

func (c *Client) post(url, contentType string, body any) error {
	var buf []byte
	switch b := body.(type) {
	case []byte:
		buf = b
	default:
		var err error
		if buf, err = json.Marshal(b); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %s", resp.Status)
	}
	return nil
}

// UploadCrash posts a crash report and waits for the answer, bounded by
// the client timeout; the process exits right after a crash.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	if err := c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		c.log.Debug("crash upload failed", slog.Any("err", err))
	}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// NewDefault installs a client built from cfg as the package default and
// returns it. A previous default is closed.
func NewDefault(cfg Config) *Client {
	c := New(cfg)
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return c
}

// Default returns the package default, building it from the environment
// when NewDefault was not called.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// UploadCrash uploads report with the default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
