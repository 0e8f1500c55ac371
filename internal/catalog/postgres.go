/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"licensexml/internal/domain"
)

// Postgres reads records from the licenses and exceptions tables of a
// catalog database. URLs are stored newline separated, as in the
// spreadsheet the tables are imported from.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the catalog database at dsn.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

func recordsQuery(typ domain.RecordType) string {
	if typ == domain.TypeException {
		return `SELECT name, identifier, COALESCE(urls, ''), COALESCE(notes, ''), '' AS header,
			template, NULL::boolean AS osi_approved, COALESCE(example, '')
			FROM exceptions WHERE COALESCE(template, '') <> '' ORDER BY position, identifier`
	}
	return `SELECT name, identifier, COALESCE(urls, ''), COALESCE(notes, ''), COALESCE(header, ''),
		template, osi_approved, '' AS example
		FROM licenses WHERE COALESCE(template, '') <> '' ORDER BY position, identifier`
}

// Records returns the records of typ in catalog order.
func (p *Postgres) Records(ctx context.Context, typ domain.RecordType) ([]domain.LicenseRecord, error) {
	rows, err := p.db.QueryContext(ctx, recordsQuery(typ))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", typ.Plural(), err)
	}
	defer rows.Close()
	var out []domain.LicenseRecord
	for rows.Next() {
		var (
			r    domain.LicenseRecord
			urls string
			osi  sql.NullBool
		)
		if err := rows.Scan(&r.Name, &r.Identifier, &urls, &r.Notes, &r.Header,
			&r.TemplateName, &osi, &r.Example); err != nil {
			return nil, fmt.Errorf("scan %s: %w", typ, err)
		}
		out = append(out, fromRow(typ, r, urls, osi))
	}
	return out, rows.Err()
}

func fromRow(typ domain.RecordType, r domain.LicenseRecord, urls string, osi sql.NullBool) domain.LicenseRecord {
	r.Type = typ
	r.Name = cleanName(r.Name)
	r.URLs = splitURLs(urls)
	if osi.Valid && typ == domain.TypeLicense {
		v := osi.Bool
		r.OSIApproved = &v
	}
	return r
}
