// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store persists factor tables through database/sql with a dialect
// chosen at connection time. Schema management is inference-driven and
// add-only: columns are created or appended from sampled row values, never
// dropped or retyped. Writes are chunked upserts keyed on a caller-supplied
// unique column set.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/equity-screener/esdata/data"
)

const (
	// DefaultChunkSize bounds how many rows travel in one batched statement.
	DefaultChunkSize = 5000

	lockRetryAttempts = 5
	lockRetryDelay    = 100 * time.Millisecond
	lockRetryCap      = 2 * time.Second
)

// ErrUnknownColumn rejects order-by targets outside the factor column set.
var ErrUnknownColumn = errors.New("unknown factor column")

// Store wraps a SQL connection with its dialect. MySQL and exotic databases
// are reached through NewFromDB with a caller-opened handle; Open covers the
// postgres and sqlite schemes directly.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// Open connects to the database named by dbURL and verifies the connection.
// postgres:// style URLs go through the pgx stdlib driver, sqlite:// and
// file: URLs through modernc's pure-Go driver.
func Open(ctx context.Context, dbURL string) (*Store, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse database url: %w", err)
	}

	dialect := ParseDialect(u.Scheme)

	var db *sql.DB
	switch dialect {
	case DialectPostgres:
		db, err = sql.Open("pgx", dbURL)
	case DialectSQLite:
		dsn := strings.TrimPrefix(dbURL, "sqlite://")
		dsn = strings.TrimPrefix(dsn, "sqlite3://")
		db, err = sql.Open("sqlite", dsn)
	default:
		return nil, fmt.Errorf("no driver registered for scheme %q, open the handle yourself and use NewFromDB", u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.Error().Err(err).Msg("could not connect to database")
		return nil, err
	}

	return &Store{DB: db, Dialect: dialect}, nil
}

// NewFromDB wraps an already-open handle. The caller keeps ownership of the
// driver choice; the dialect only controls generated SQL.
func NewFromDB(db *sql.DB, dialect Dialect) *Store {
	return &Store{DB: db, Dialect: dialect}
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// tableColumns probes the table with an empty select. It doubles as the
// existence check: every supported database fails the probe when the table
// is missing.
func (s *Store) tableColumns(ctx context.Context, table string) ([]string, bool) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE 1=0", s.Dialect.QuoteIdent(table))
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, false
	}
	return cols, true
}

// HasTable reports whether the table currently exists.
func (s *Store) HasTable(ctx context.Context, table string) bool {
	_, ok := s.tableColumns(ctx, table)
	return ok
}

// EnsureSchema creates the table from the sampled rows if it does not exist,
// or adds any missing columns if it does. Existing columns are never dropped
// or retyped. When keys are given a unique index named uq_<table>_<keys> is
// created to back the upsert conflict target.
func (s *Store) EnsureSchema(ctx context.Context, table string, cols []string, rows [][]any, keys []string) error {
	if len(cols) == 0 {
		return nil
	}

	specs := inferColumns(cols, rows)

	existing, exists := s.tableColumns(ctx, table)
	if !exists {
		defs := make([]string, 0, len(cols)+1)
		for i, col := range cols {
			defs = append(defs, fmt.Sprintf("%s %s",
				s.Dialect.QuoteIdent(col), s.Dialect.ColumnType(col, specs[i].Kind, specs[i].BigInt)))
		}
		if len(keys) > 0 {
			quoted := make([]string, len(keys))
			for i, k := range keys {
				quoted[i] = s.Dialect.QuoteIdent(k)
			}
			defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
		}

		createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", s.Dialect.QuoteIdent(table), strings.Join(defs, ", "))
		if _, err := s.DB.ExecContext(ctx, createSQL); err != nil {
			log.Error().Err(err).Str("SQL", createSQL).Msg("create table failed")
			return fmt.Errorf("create table %s: %w", table, err)
		}
		log.Info().Str("Table", table).Int("NumColumns", len(cols)).Msg("created table")
	} else {
		have := make(map[string]bool, len(existing))
		for _, col := range existing {
			have[col] = true
		}

		for i, col := range cols {
			if have[col] {
				continue
			}
			alterSQL := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
				s.Dialect.QuoteIdent(table), s.Dialect.QuoteIdent(col),
				s.Dialect.ColumnType(col, specs[i].Kind, specs[i].BigInt))
			if _, err := s.DB.ExecContext(ctx, alterSQL); err != nil {
				log.Error().Err(err).Str("SQL", alterSQL).Msg("add column failed")
				return fmt.Errorf("add column %s to %s: %w", col, table, err)
			}
			log.Info().Str("Table", table).Str("Column", col).Msg("added missing column")
		}
	}

	if len(keys) > 0 {
		if err := s.ensureUniqueIndex(ctx, table, keys); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureUniqueIndex(ctx context.Context, table string, keys []string) error {
	idxName := fmt.Sprintf("uq_%s_%s", table, strings.Join(keys, "_"))
	quotedKeys := make([]string, len(keys))
	for i, k := range keys {
		quotedKeys[i] = s.Dialect.QuoteIdent(k)
	}
	columnList := strings.Join(quotedKeys, ", ")

	switch s.Dialect {
	case DialectPostgres, DialectSQLite:
		indexSQL := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			s.Dialect.QuoteIdent(idxName), s.Dialect.QuoteIdent(table), columnList)
		if _, err := s.DB.ExecContext(ctx, indexSQL); err != nil {
			log.Error().Err(err).Str("SQL", indexSQL).Msg("create unique index failed")
			return fmt.Errorf("create unique index on %s: %w", table, err)
		}
	case DialectMySQL:
		var count int
		checkSQL := "SELECT COUNT(*) FROM information_schema.statistics WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?"
		if err := s.DB.QueryRowContext(ctx, checkSQL, table, idxName).Scan(&count); err != nil {
			return fmt.Errorf("check unique index on %s: %w", table, err)
		}
		if count > 0 {
			return nil
		}
		indexSQL := fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)",
			s.Dialect.QuoteIdent(idxName), s.Dialect.QuoteIdent(table), columnList)
		if _, err := s.DB.ExecContext(ctx, indexSQL); err != nil {
			log.Error().Err(err).Str("SQL", indexSQL).Msg("create unique index failed")
			return fmt.Errorf("create unique index on %s: %w", table, err)
		}
	default:
		// No portable IF NOT EXISTS; an already-present index is fine.
		indexSQL := fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)",
			s.Dialect.QuoteIdent(idxName), s.Dialect.QuoteIdent(table), columnList)
		if _, err := s.DB.ExecContext(ctx, indexSQL); err != nil {
			log.Debug().Err(err).Str("SQL", indexSQL).Msg("create unique index skipped")
		}
	}
	return nil
}

// Upsert writes rows in chunks keyed on keyCols. Conflicting rows are
// overwritten whole (last write wins), never merged column by column. A
// chunk that trips a lock is retried with capped exponential backoff; any
// other failure aborts the call and reports how many rows had committed.
func (s *Store) Upsert(ctx context.Context, table string, cols []string, rows [][]any, keyCols []string, chunkSize int) (int, error) {
	if len(rows) == 0 {
		log.Info().Str("Table", table).Msg("no rows to upsert")
		return 0, nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	keyIdx := make([]int, 0, len(keyCols))
	for _, key := range keyCols {
		found := -1
		for i, col := range cols {
			if col == key {
				found = i
				break
			}
		}
		if found < 0 {
			return 0, fmt.Errorf("key column %q not present in column list", key)
		}
		keyIdx = append(keyIdx, found)
	}

	upsertSQL, native := s.Dialect.UpsertSQL(table, cols, keyCols)
	deleteSQL := ""
	if !native {
		deleteSQL = s.Dialect.DeleteByKeySQL(table, keyCols)
	}

	total := 0
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		if err := s.writeChunk(ctx, upsertSQL, deleteSQL, cols, keyIdx, rows[start:end]); err != nil {
			log.Error().Err(err).Str("Table", table).Int("RowsWritten", total).Msg("upsert aborted")
			return total, fmt.Errorf("upsert into %s: %w", table, err)
		}
		total += end - start
	}

	log.Info().Str("Table", table).Int("NumRows", total).Msg("upsert complete")
	return total, nil
}

func (s *Store) writeChunk(ctx context.Context, upsertSQL, deleteSQL string, cols []string, keyIdx []int, chunk [][]any) error {
	delay := lockRetryDelay
	var err error

	for attempt := 0; attempt < lockRetryAttempts; attempt++ {
		if attempt > 0 {
			log.Warn().Err(err).Dur("Delay", delay).Int("Attempt", attempt).Msg("chunk hit a lock, retrying")
			time.Sleep(delay)
			delay *= 2
			if delay > lockRetryCap {
				delay = lockRetryCap
			}
		}

		err = s.execChunk(ctx, upsertSQL, deleteSQL, cols, keyIdx, chunk)
		if err == nil {
			return nil
		}
		if !isLockError(err) {
			return err
		}
	}

	return err
}

func (s *Store) execChunk(ctx context.Context, upsertSQL, deleteSQL string, cols []string, keyIdx []int, chunk [][]any) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var delStmt *sql.Stmt
	if deleteSQL != "" {
		delStmt, err = tx.PrepareContext(ctx, deleteSQL)
		if err != nil {
			return err
		}
		defer delStmt.Close()
	}

	for _, row := range chunk {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = bindValue(cols[i], v)
		}

		if delStmt != nil {
			keyArgs := make([]any, len(keyIdx))
			for i, idx := range keyIdx {
				keyArgs[i] = args[idx]
			}
			if _, err := delStmt.ExecContext(ctx, keyArgs...); err != nil {
				return err
			}
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// bindValue converts in-memory sentinels to database values: NaN and ±Inf
// become NULL, dates and timestamps become portable strings every dialect
// coerces on its own.
func bindValue(col string, v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case float32:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case time.Time:
		if col == "Date" {
			return t.Format("2006-01-02")
		}
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	return v
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"locked", "busy", "deadlock", "lock wait timeout", "could not serialize"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// FactorQuery narrows and orders a SelectFactors read. OrderBy must name a
// known factor column; an empty query returns the whole table ordered by
// (Date, Ticker).
type FactorQuery struct {
	Ticker     string
	Date       string
	OrderBy    string
	Descending bool
	Limit      int
}

// SelectFactors reads screening rows back out of the factor table. The Date
// column is cast to text in the select list so results scan identically
// across dialects.
func (s *Store) SelectFactors(ctx context.Context, table string, query FactorQuery) ([]*data.FactorRecord, error) {
	selects := make([]string, len(data.FactorColumns))
	for i, col := range data.FactorColumns {
		quoted := s.Dialect.QuoteIdent(col)
		if col == "Date" {
			selects[i] = fmt.Sprintf("%s AS %s", s.Dialect.CastText(quoted), quoted)
		} else {
			selects[i] = quoted
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(selects, ", "), s.Dialect.QuoteIdent(table))

	args := []any{}
	conds := []string{}
	if query.Ticker != "" {
		args = append(args, query.Ticker)
		conds = append(conds, fmt.Sprintf("%s = %s", s.Dialect.QuoteIdent("Ticker"), s.Dialect.Placeholder(len(args))))
	}
	if query.Date != "" {
		args = append(args, query.Date)
		conds = append(conds, fmt.Sprintf("%s = %s", s.Dialect.QuoteIdent("Date"), s.Dialect.Placeholder(len(args))))
	}
	if len(conds) > 0 {
		fmt.Fprintf(&sb, " WHERE %s", strings.Join(conds, " AND "))
	}

	if query.OrderBy != "" {
		if !knownFactorColumn(query.OrderBy) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, query.OrderBy)
		}
		direction := "ASC"
		if query.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", s.Dialect.QuoteIdent(query.OrderBy), direction)
	} else {
		fmt.Fprintf(&sb, " ORDER BY %s, %s", s.Dialect.QuoteIdent("Date"), s.Dialect.QuoteIdent("Ticker"))
	}

	if query.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", query.Limit)
	}

	records := []*data.FactorRecord{}
	if err := sqlscan.Select(ctx, s.DB, &records, sb.String(), args...); err != nil {
		log.Error().Err(err).Str("SQL", sb.String()).Msg("select factors failed")
		return nil, err
	}
	return records, nil
}

func knownFactorColumn(name string) bool {
	for _, col := range data.FactorColumns {
		if col == name {
			return true
		}
	}
	return false
}
