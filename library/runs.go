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
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/equity-screener/esdata/data"
)

// runTimeLayout sorts lexicographically in date order, so ORDER BY on the
// stored strings is chronological in every dialect.
const runTimeLayout = "2006-01-02 15:04:05"

var runColumns = []string{
	"run_id", "start_time", "end_time",
	"num_tickers", "num_price_rows", "num_fundamentals",
	"cache_hits", "rows_upserted", "status", "message",
}

// runRow is the persisted shape of one pipeline run. Identifiers and times
// travel as text so the row scans identically across drivers.
type runRow struct {
	RunID           string `db:"run_id"`
	StartTime       string `db:"start_time"`
	EndTime         string `db:"end_time"`
	NumTickers      int    `db:"num_tickers"`
	NumPriceRows    int    `db:"num_price_rows"`
	NumFundamentals int    `db:"num_fundamentals"`
	CacheHits       int    `db:"cache_hits"`
	RowsUpserted    int    `db:"rows_upserted"`
	Status          string `db:"status"`
	Message         string `db:"message"`
}

func (row *runRow) toSummary() (*data.RunSummary, error) {
	runID, err := uuid.Parse(row.RunID)
	if err != nil {
		return nil, fmt.Errorf("bad run id %q: %w", row.RunID, err)
	}

	start, err := time.Parse(runTimeLayout, row.StartTime)
	if err != nil {
		return nil, fmt.Errorf("bad start time %q: %w", row.StartTime, err)
	}
	end, err := time.Parse(runTimeLayout, row.EndTime)
	if err != nil {
		return nil, fmt.Errorf("bad end time %q: %w", row.EndTime, err)
	}

	return &data.RunSummary{
		RunID:           runID,
		StartTime:       start,
		EndTime:         end,
		NumTickers:      row.NumTickers,
		NumPriceRows:    row.NumPriceRows,
		NumFundamentals: row.NumFundamentals,
		CacheHits:       row.CacheHits,
		RowsUpserted:    row.RowsUpserted,
		Status:          data.RunStatus(row.Status),
		Message:         row.Message,
	}, nil
}

// RecordRun appends one pipeline execution to the run history.
func (myLibrary *Library) RecordRun(ctx context.Context, summary *data.RunSummary) error {
	insertSQL := myLibrary.Store.Dialect.InsertSQL("pipeline_runs", runColumns)

	_, err := myLibrary.Store.DB.ExecContext(ctx, insertSQL,
		summary.RunID.String(),
		summary.StartTime.UTC().Format(runTimeLayout),
		summary.EndTime.UTC().Format(runTimeLayout),
		summary.NumTickers,
		summary.NumPriceRows,
		summary.NumFundamentals,
		summary.CacheHits,
		summary.RowsUpserted,
		string(summary.Status),
		summary.Message)
	if err != nil {
		log.Error().Err(err).Str("RunID", summary.RunID.String()).Msg("could not record pipeline run")
	}
	return err
}

// LastRun returns the most recent pipeline run, or nil when none exist.
func (myLibrary *Library) LastRun(ctx context.Context) (*data.RunSummary, error) {
	runs, err := myLibrary.RunHistory(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// RunHistory returns pipeline runs newest first. A limit of zero or less
// returns the full history. Malformed rows are skipped with a warning rather
// than failing the whole read.
func (myLibrary *Library) RunHistory(ctx context.Context, limit int) ([]*data.RunSummary, error) {
	d := myLibrary.Store.Dialect
	cols := make([]string, len(runColumns))
	for i, col := range runColumns {
		cols[i] = d.QuoteIdent(col)
	}

	querySQL := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC",
		strings.Join(cols, ", "), d.QuoteIdent("pipeline_runs"), d.QuoteIdent("start_time"))
	if limit > 0 {
		querySQL = fmt.Sprintf("%s LIMIT %d", querySQL, limit)
	}

	var rows []*runRow
	if err := sqlscan.Select(ctx, myLibrary.Store.DB, &rows, querySQL); err != nil {
		log.Error().Err(err).Str("SQL", querySQL).Msg("could not read run history")
		return nil, err
	}

	runs := make([]*data.RunSummary, 0, len(rows))
	for _, row := range rows {
		summary, err := row.toSummary()
		if err != nil {
			log.Warn().Err(err).Str("RunID", row.RunID).Msg("skipping malformed run row")
			continue
		}
		runs = append(runs, summary)
	}
	return runs, nil
}
