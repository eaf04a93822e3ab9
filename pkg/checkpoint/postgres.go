// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the watermark table used when none is configured.
const DefaultTable = "objpoller_watermarks"

const (
	schemaTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
  entity    TEXT        NOT NULL PRIMARY KEY,
  watermark TEXT COLLATE "C" NOT NULL
)`
	getTemplate    = `SELECT watermark FROM %[1]s WHERE entity = $1`
	upsertTemplate = `
INSERT INTO %[1]s (entity, watermark) VALUES ($1, $2)
ON CONFLICT (entity) DO UPDATE SET watermark = GREATEST(%[1]s.watermark, EXCLUDED.watermark)`
)

// Querier is the subset of pgx used by Postgres. Both *pgx.Conn and
// *pgxpool.Pool satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores one row per entity. Watermarks are fixed-width RFC 3339
// text at full nanosecond precision; the upsert keeps the lexically, and so
// chronologically, greater value, so concurrent writers cannot regress it.
type Postgres struct {
	db    Querier
	close func()
	sql   struct {
		get    string
		upsert string
	}
}

var _ Store = (*Postgres)(nil)

// NewPostgres prepares the statements for table and creates it if needed.
func NewPostgres(ctx context.Context, db Querier, table string) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("postgres querier is nil")
	}
	if table == "" {
		table = DefaultTable
	}
	name := pgx.Identifier{table}.Sanitize()

	p := &Postgres{db: db}
	p.sql.get = fmt.Sprintf(getTemplate, name)
	p.sql.upsert = fmt.Sprintf(upsertTemplate, name)

	if _, err := db.Exec(ctx, fmt.Sprintf(schemaTemplate, name)); err != nil {
		return nil, fmt.Errorf("create watermark table %s: %w", name, err)
	}
	return p, nil
}

// OpenPostgres connects a pool to dsn and prepares the store. Close releases
// the pool.
func OpenPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p, err := NewPostgres(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	p.close = pool.Close
	return p, nil
}

// TryLoad implements Loader.
func (p *Postgres) TryLoad(ctx context.Context, entity string) (time.Time, bool, error) {
	var raw string
	err := p.db.QueryRow(ctx, p.sql.get, entity).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load watermark for %s: %w", entity, err)
	}
	t, err := parseTime(entity, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// Save implements Saver.
func (p *Postgres) Save(ctx context.Context, entity string, t time.Time) error {
	if _, err := p.db.Exec(ctx, p.sql.upsert, entity, formatTime(t)); err != nil {
		return fmt.Errorf("save watermark for %s: %w", entity, err)
	}
	return nil
}

// Close releases the connection pool opened by OpenPostgres.
func (p *Postgres) Close() {
	if p.close != nil {
		p.close()
	}
}
