/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"licensexml/internal/domain"
	applog "licensexml/internal/log"
	"licensexml/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName holds the decision index below the output root.
	IndexDirName  = ".licensexml"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the decision index of an output root.
func IndexPath(outputRoot string) string {
	return filepath.Join(outputRoot, IndexDirName, IndexFileName)
}

// Entry is one committed decision.
type Entry struct {
	Type        domain.RecordType
	Identifier  string
	Session     string
	Review      bool
	Sections    int
	Path        string
	CommittedAt time.Time
}

// Index records which records were converted in which session.
type Index struct {
	db      *sql.DB
	root    string
	session string
	now     func() time.Time
}

// OpenIndex opens the decision index below outputRoot, rebuilding it when it is corrupt.
func OpenIndex(ctx context.Context, outputRoot string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(
		slog.String("root", outputRoot),
	)
	db, err := initOrOpenIndex(ctx, outputRoot)
	if err == nil && !healthy(ctx, db) {
		_ = db.Close()
		err = errors.New("index failed integrity check")
	}
	if err != nil {
		l.Warn("rebuilding decision index", slog.Any("err", err))
		path := IndexPath(outputRoot)
		backupIndexFile(path)
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			_ = os.Remove(p)
		}
		if db, err = initOrOpenIndex(ctx, outputRoot); err != nil {
			return nil, fmt.Errorf("rebuild index: %w", err)
		}
	}
	return &Index{db: db, root: outputRoot, now: time.Now}, nil
}

// initOrOpenIndex ensures the index exists, opens it, enables WAL mode and brings the schema up to date.
func initOrOpenIndex(ctx context.Context, outputRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", outputRoot),
	)
	if strings.TrimSpace(outputRoot) == "" {
		return nil, errors.New("output root is required")
	}
	if err := os.MkdirAll(filepath.Join(outputRoot, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	path := IndexPath(outputRoot)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh databases start at the baseline and migrate forward
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the stored schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id          TEXT PRIMARY KEY,
			started_at  TEXT NOT NULL,
			finished_at TEXT,
			converted   INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			type         TEXT    NOT NULL,
			identifier   TEXT    NOT NULL,
			session_id   TEXT    NOT NULL,
			review       INTEGER NOT NULL,
			sections     INTEGER NOT NULL,
			path         TEXT    NOT NULL,
			committed_at TEXT    NOT NULL,
			PRIMARY KEY(type, identifier)
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_decisions_review ON decisions(review, committed_at);`,
				`CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		}
		cur = next
	}
	return nil
}

func healthy(ctx context.Context, db *sql.DB) bool {
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		return false
	}
	_, err := db.ExecContext(ctx, `SELECT 1 FROM decisions LIMIT 1;`)
	return err == nil
}

// backupIndexFile copies the current index file into a timestamped backup next to it.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// Close releases the database.
func (ix *Index) Close() error { return ix.db.Close() }

// Session returns the id of the running session, if any.
func (ix *Index) Session() string { return ix.session }

// BeginSession starts a new batch session and returns its id.
func (ix *Index) BeginSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if _, err := ix.db.ExecContext(ctx, `INSERT INTO sessions(id, started_at) VALUES(?, ?)`, id, ix.stamp()); err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}
	ix.session = id
	return id, nil
}

// EndSession closes the running session.
func (ix *Index) EndSession(ctx context.Context, converted int) error {
	if ix.session == "" {
		return nil
	}
	_, err := ix.db.ExecContext(ctx, `UPDATE sessions SET finished_at=?, converted=? WHERE id=?`, ix.stamp(), converted, ix.session)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	ix.session = ""
	return nil
}

// Record stores a committed decision, replacing an earlier one for the same record.
func (ix *Index) Record(ctx context.Context, e Entry) error {
	if e.Session == "" {
		e.Session = ix.session
	}
	if e.CommittedAt.IsZero() {
		e.CommittedAt = ix.now()
	}
	_, err := ix.db.ExecContext(ctx, `INSERT INTO decisions(type, identifier, session_id, review, sections, path, committed_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(type, identifier) DO UPDATE SET
			session_id=excluded.session_id, review=excluded.review, sections=excluded.sections,
			path=excluded.path, committed_at=excluded.committed_at`,
		string(e.Type), e.Identifier, e.Session, boolInt(e.Review), e.Sections, e.Path, e.CommittedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record decision %s: %w", e.Identifier, err)
	}
	return nil
}

// Reviews lists decisions committed with the review flag, oldest first.
func (ix *Index) Reviews(ctx context.Context) ([]Entry, error) {
	return ix.query(ctx, `WHERE review=1 ORDER BY committed_at, identifier`)
}

// Lookup returns the decision for one record.
func (ix *Index) Lookup(ctx context.Context, typ domain.RecordType, identifier string) (Entry, bool, error) {
	es, err := ix.query(ctx, `WHERE type=? AND identifier=?`, string(typ), identifier)
	if err != nil || len(es) == 0 {
		return Entry{}, false, err
	}
	return es[0], true, nil
}

func (ix *Index) query(ctx context.Context, where string, args ...any) ([]Entry, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT type, identifier, session_id, review, sections, path, committed_at FROM decisions `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			typ    string
			review int
			ts     string
		)
		if err := rows.Scan(&typ, &e.Identifier, &e.Session, &review, &e.Sections, &e.Path, &ts); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.Type = domain.RecordType(typ)
		e.Review = review != 0
		e.CommittedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (ix *Index) stamp() string { return ix.now().UTC().Format(time.RFC3339Nano) }
