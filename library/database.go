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
package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/equity-screener/esdata/store"
	"github.com/rs/zerolog/log"
)

// Library identifies one screening database: who owns it, where it lives,
// and which table carries the factor rows. The toml tags match the keys of
// the config file written by init.
type Library struct {
	DBUrl string `toml:"db_url"`
	Name  string `toml:"name"`
	Owner string `toml:"owner"`
	Table string `toml:"table"`

	Store *store.Store `toml:"-"`
}

// Connect opens the configured database if no handle is attached yet and
// makes sure the bookkeeping tables exist.
func (myLibrary *Library) Connect(ctx context.Context) error {
	if myLibrary.Store == nil {
		s, err := store.Open(ctx, myLibrary.DBUrl)
		if err != nil {
			return err
		}
		myLibrary.Store = s
	}

	return myLibrary.EnsureTables(ctx)
}

// Close the database handle
func (myLibrary *Library) Close() {
	if myLibrary.Store != nil {
		myLibrary.Store.Close()
	}
}

// NewFromDB creates a new library object with values from the database
func NewFromDB(ctx context.Context, dbURL string, table string) (*Library, error) {
	s, err := store.Open(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	myLibrary := &Library{
		DBUrl: dbURL,
		Table: table,
		Store: s,
	}

	if err := myLibrary.EnsureTables(ctx); err != nil {
		return nil, err
	}

	querySQL := fmt.Sprintf("SELECT %s, %s FROM %s LIMIT 1",
		s.Dialect.QuoteIdent("name"), s.Dialect.QuoteIdent("owner"), s.Dialect.QuoteIdent("library"))
	if err := s.DB.QueryRowContext(ctx, querySQL).Scan(&myLibrary.Name, &myLibrary.Owner); err != nil {
		return nil, fmt.Errorf("read library metadata: %w", err)
	}

	return myLibrary, nil
}

// SaveDB creates a new record in the library table for this library
func (myLibrary *Library) SaveDB(ctx context.Context) error {
	d := myLibrary.Store.Dialect
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
		d.QuoteIdent("library"), d.QuoteIdent("name"), d.QuoteIdent("owner"),
		d.Placeholder(1), d.Placeholder(2))

	_, err := myLibrary.Store.DB.ExecContext(ctx, insertSQL, myLibrary.Name, myLibrary.Owner)
	return err
}

// EnsureTables creates the bookkeeping tables when they are missing. The
// factor table itself is schema-inferred at write time by the store.
func (myLibrary *Library) EnsureTables(ctx context.Context) error {
	d := myLibrary.Store.Dialect
	text := d.ColumnType("", store.KindString, false)
	integer := d.ColumnType("", store.KindInt, false)

	libraryDDL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s %s, %s %s)",
		d.QuoteIdent("library"), d.QuoteIdent("name"), text, d.QuoteIdent("owner"), text)

	defs := []string{
		fmt.Sprintf("%s %s PRIMARY KEY", d.QuoteIdent("run_id"), text),
		fmt.Sprintf("%s %s", d.QuoteIdent("start_time"), text),
		fmt.Sprintf("%s %s", d.QuoteIdent("end_time"), text),
		fmt.Sprintf("%s %s", d.QuoteIdent("num_tickers"), integer),
		fmt.Sprintf("%s %s", d.QuoteIdent("num_price_rows"), integer),
		fmt.Sprintf("%s %s", d.QuoteIdent("num_fundamentals"), integer),
		fmt.Sprintf("%s %s", d.QuoteIdent("cache_hits"), integer),
		fmt.Sprintf("%s %s", d.QuoteIdent("rows_upserted"), integer),
		fmt.Sprintf("%s %s", d.QuoteIdent("status"), text),
		fmt.Sprintf("%s %s", d.QuoteIdent("message"), text),
	}
	runsDDL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		d.QuoteIdent("pipeline_runs"), strings.Join(defs, ", "))

	for _, ddl := range []string{libraryDDL, runsDDL} {
		if _, err := myLibrary.Store.DB.ExecContext(ctx, ddl); err != nil {
			log.Error().Err(err).Str("SQL", ddl).Msg("create bookkeeping table failed")
			return err
		}
	}

	return nil
}
