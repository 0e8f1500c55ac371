/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// collector records the bodies posted to it.
type collector struct {
	mu     sync.Mutex
	bodies [][]byte
	types  []string
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, b)
	c.types = append(c.types, r.Header.Get("Content-Type"))
	c.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func (c *collector) at(i int) ([]byte, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bodies[i], c.types[i]
}

func flush(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Flush(ctx)
}

func TestRecordConvertedPayload(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	c.Event("record_converted", map[string]any{
		"type":     "exception",
		"sections": 3,
		"review":   true,
		"run":      "spoofed",
		"name":     "spoofed",
	})
	flush(t, c)

	if col.len() != 1 {
		t.Fatalf("expected one event after Flush, got %d", col.len())
	}
	body, typ := col.at(0)
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "record_converted" || m["run"] != c.Run() || c.Run() == "" {
		t.Fatalf("envelope overwritten: %v", m)
	}
	if m["type"] != "exception" || m["sections"] != float64(3) || m["review"] != true {
		t.Fatalf("record fields missing: %v", m)
	}
	for _, k := range []string{"ts", "version", "os", "arch"} {
		if _, ok := m[k].(string); !ok {
			t.Fatalf("missing %s: %v", k, m)
		}
	}
	if typ != "application/json" {
		t.Fatalf("content type %q", typ)
	}
	if c.sent.Load() != 1 {
		t.Fatalf("sent = %d", c.sent.Load())
	}
}

func TestEventsShareRunID(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL})
	defer c.Close()
	c.Event("record_converted", map[string]any{"type": "license"})
	c.Event("record_converted", map[string]any{"type": "license"})
	flush(t, c)

	other := New(Config{OptIn: true, EventsURL: srv.URL})
	defer other.Close()
	if other.Run() == c.Run() {
		t.Fatalf("each client must draw its own run id")
	}
	if col.len() != 2 {
		t.Fatalf("expected two events, got %d", col.len())
	}
	for i := 0; i < 2; i++ {
		b, _ := col.at(i)
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatal(err)
		}
		if m["run"] != c.Run() {
			t.Fatalf("run id differs: %v", m["run"])
		}
	}
}

func TestNothingSentWithoutOptInOrName(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	off := New(Config{EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash"})
	defer off.Close()
	if off.Enabled() {
		t.Fatalf("client without opt-in must be disabled")
	}
	off.Event("record_converted", nil)
	off.UploadCrash([]byte("stack"))
	flush(t, off)

	noURL := New(Config{OptIn: true})
	defer noURL.Close()
	if noURL.Enabled() {
		t.Fatalf("client without endpoint must be disabled")
	}

	on := New(Config{OptIn: true, EventsURL: srv.URL + "/events"})
	defer on.Close()
	on.Event("", map[string]any{"type": "license"})
	flush(t, on)

	if hits.Load() != 0 {
		t.Fatalf("expected no requests, got %d", hits.Load())
	}
}

func TestFailedSendIsCounted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	c.Event("record_converted", map[string]any{"sections": 1})
	flush(t, c)
	if c.failed.Load() != 1 || c.sent.Load() != 0 {
		t.Fatalf("failed=%d sent=%d", c.failed.Load(), c.sent.Load())
	}
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: 5 * time.Second})
	defer c.Close()
	const n = queueSize + 8
	for i := 0; i < n; i++ {
		c.Event("record_converted", map[string]any{"sections": i})
	}
	if c.dropped.Load() == 0 {
		t.Fatalf("expected drops once the queue is full")
	}
	close(release)
	flush(t, c)
	if got := c.sent.Load() + c.dropped.Load(); got != n {
		t.Fatalf("sent+dropped = %d, want %d", got, n)
	}
}

func TestUploadCrashWaitsForDelivery(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col)
	defer srv.Close()

	c := New(Config{OptIn: true, CrashURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	c.UploadCrash([]byte("Panic: boom"))
	if col.len() != 1 {
		t.Fatalf("crash report must be posted before UploadCrash returns")
	}
	body, typ := col.at(0)
	if string(body) != "Panic: boom" || typ != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected upload %q (%s)", body, typ)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvOptIn, "yes")
	t.Setenv(EnvEventsURL, " http://127.0.0.1:9/events ")
	t.Setenv(EnvCrashURL, "")
	t.Setenv(EnvTimeoutMS, "100")
	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL != "http://127.0.0.1:9/events" || cfg.CrashURL != "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv(EnvOptIn, "0")
	t.Setenv(EnvTimeoutMS, "soon")
	cfg = FromEnv()
	if cfg.OptIn || cfg.Timeout != defaultTimeout {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestNewDefaultReplacesDefault(t *testing.T) {
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultClient = nil
		defaultMu.Unlock()
	})
	first := NewDefault(Config{})
	if Default() != first {
		t.Fatalf("Default must return the installed client")
	}
	second := NewDefault(Config{OptIn: true, EventsURL: "http://127.0.0.1:9"})
	if Default() != second || !Default().Enabled() {
		t.Fatalf("NewDefault must replace the previous client")
	}
	select {
	case <-first.done:
	default:
		t.Fatalf("replaced client must be closed")
	}
	second.Close()
}
