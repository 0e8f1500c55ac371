/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot is the classification state of one record before a mark.
// Blob content is opaque to the manager; size is estimated as len(Blob).
// TS is when the snapshot was captured.
type Snapshot struct {
	Record string
	Blob   []byte
	TS     time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerRecord limits number of snapshots per record kept in memory (0 means unlimited).
	MaxPerRecord int
	// MinInterval coalesces snapshots captured within the interval for the same record.
	// The first snapshot of a burst is kept so a held scroll key undoes in one step.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per record with memory caps.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-record stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	// Set conservative defaults if not provided
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// PushSnapshot records a snapshot for a record. Within MinInterval of the last
// snapshot on the same record only the timestamp of the last one advances.
// Clears the redo stack for that record.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.Record]
	if n := len(stack); n > 0 {
		if s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
			stack[n-1].TS = s.TS
			m.redo[s.Record] = nil
			return
		}
	}
	stack = append(stack, s)
	m.undo[s.Record] = stack
	m.totalBytes += len(s.Blob)
	// Any new change invalidates redo for the record
	m.redo[s.Record] = nil
	m.enforceCapsLocked(s.Record)
}

// Undo pops the newest snapshot of current.Record and keeps current on the
// redo stack, so a following Redo returns to it.
func (m *Manager) Undo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[current.Record]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[current.Record] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[current.Record] = append(m.redo[current.Record], current)
	return s, true
}

// Redo pops the newest redo snapshot of current.Record and pushes current
// back onto the undo stack without coalescing.
func (m *Manager) Redo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[current.Record]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[current.Record] = r[:len(r)-1]
	m.undo[current.Record] = append(m.undo[current.Record], current)
	m.totalBytes += len(current.Blob)
	m.enforceCapsLocked(current.Record)
	return s, true
}

// Clear drops the undo/redo stacks of a record once it is committed.
func (m *Manager) Clear(record string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[record] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, record)
	delete(m.redo, record)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes; the classifier logs them when a record is committed.
func (m *Manager) Stats() (totalBytes int, records int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, records, totalSnapshots
}

func (m *Manager) enforceCapsLocked(record string) {
	// Per-record depth cap
	if m.cfg.MaxPerRecord > 0 {
		stack := m.undo[record]
		if len(stack) > m.cfg.MaxPerRecord {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerRecord
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[record] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all records
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var oldestTS time.Time
		for rec, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest = rec
				found = true
				oldestTS = stack[0].TS
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}
