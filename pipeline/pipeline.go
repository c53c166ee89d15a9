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

// Package pipeline runs the fetch-compute-persist sequence end to end: load
// the universe, download prices and fundamentals, derive factors, and upsert
// the result into the screening table. One Runner is shared between the cli
// and the daemon scheduler; overlapping runs on the same Runner are refused
// rather than queued.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/factors"
	"github.com/equity-screener/esdata/healthcheck"
	"github.com/equity-screener/esdata/library"
	"github.com/equity-screener/esdata/notify"
	"github.com/equity-screener/esdata/provider"
)

var (
	ErrAlreadyRunning = errors.New("a pipeline run is already in progress")
	ErrNotConfigured  = errors.New("pipeline runner is missing its universe, provider, or library")
)

// defaultLookbackDays is the calendar window fetched when no explicit start
// date is given; it comfortably covers the 252 trading days the longest
// factor window needs.
const defaultLookbackDays = 400

// Config wires a Runner. Universe, Provider, and Library are required; the
// zero values of the remaining fields select the listed defaults.
type Config struct {
	Universe *data.Universe
	Provider *provider.Client
	Library  *library.Library

	// Table is the destination factor table (default the library's table).
	Table string
	// ChunkSize caps rows per upsert statement (default store.DefaultChunkSize).
	ChunkSize int
	// LookbackDays sizes the default fetch window (default 400).
	LookbackDays int
	// ZScoreFill replaces degenerate cross-sectional z-scores (default 0).
	ZScoreFill float64
}

// Runner executes pipeline runs one at a time.
type Runner struct {
	mu  sync.Mutex
	cfg Config
}

func NewRunner(cfg Config) *Runner {
	if cfg.Table == "" && cfg.Library != nil {
		cfg.Table = cfg.Library.Table
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaultLookbackDays
	}
	return &Runner{cfg: cfg}
}

// RunOptions adjusts a single run.
type RunOptions struct {
	// Start and End bound the price history fetch; zero values derive the
	// window from LookbackDays ending today.
	Start time.Time
	End   time.Time
	// NoCache bypasses the fundamentals cache for this run.
	NoCache bool
}

// Run executes one full pipeline pass and returns its summary. Fetch
// failures degrade to partial or empty data; persistence failures fail the
// run. The summary is recorded in the run history and reported through the
// healthcheck and mail side-channels regardless of outcome.
func (runner *Runner) Run(ctx context.Context, opts RunOptions) (*data.RunSummary, error) {
	if runner.cfg.Universe == nil || runner.cfg.Provider == nil || runner.cfg.Library == nil {
		return nil, ErrNotConfigured
	}

	if !runner.mu.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer runner.mu.Unlock()

	end := opts.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	}
	start := opts.Start
	if start.IsZero() {
		start = end.AddDate(0, 0, -runner.cfg.LookbackDays)
	}

	tickers := runner.cfg.Universe.Tickers()
	summary := &data.RunSummary{
		RunID:      uuid.New(),
		StartTime:  time.Now(),
		NumTickers: len(tickers),
	}

	subLog := log.With().Str("RunID", summary.RunID.String()[:6]).Logger()
	subLog.Info().Int("NumTickers", len(tickers)).Time("StartDate", start).
		Time("EndDate", end).Msg("starting pipeline run")

	if err := healthcheck.Start(); err != nil {
		subLog.Warn().Err(err).Msg("healthcheck start ping failed")
	}

	prices := runner.cfg.Provider.FetchDailyPrices(ctx, tickers, start, end)
	summary.NumPriceRows = len(prices)
	subLog.Info().Int("NumRows", len(prices)).Msg("downloaded price history")

	fundamentals, cacheHits := runner.cfg.Provider.FetchFundamentals(ctx, tickers, !opts.NoCache)
	summary.NumFundamentals = len(fundamentals)
	summary.CacheHits = cacheHits
	subLog.Info().Int("NumSnapshots", len(fundamentals)).Int("CacheHits", cacheHits).
		Msg("downloaded fundamentals")

	rows := data.Combine(prices, fundamentals)
	if len(rows) == 0 {
		summary.Status = data.RunSkipped
		summary.Message = "no rows fetched for any ticker"
		subLog.Warn().Msg(summary.Message)
		runner.finish(ctx, summary)
		return summary, nil
	}

	factors.Compute(rows, factors.Options{ZScoreFill: runner.cfg.ZScoreFill})
	factors.Round(rows)
	subLog.Info().Int("NumRows", len(rows)).Msg("computed factors")

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.Values())
	}

	store := runner.cfg.Library.Store
	if err := store.EnsureSchema(ctx, runner.cfg.Table, data.FactorColumns, values, data.FactorKeyColumns); err != nil {
		return summary, runner.fail(ctx, summary, fmt.Errorf("ensure schema: %w", err))
	}

	upserted, err := store.Upsert(ctx, runner.cfg.Table, data.FactorColumns, values, data.FactorKeyColumns, runner.cfg.ChunkSize)
	summary.RowsUpserted = upserted
	if err != nil {
		return summary, runner.fail(ctx, summary, fmt.Errorf("upsert factor rows: %w", err))
	}

	subLog.Info().Int("NumRows", upserted).Str("Table", runner.cfg.Table).
		Msg("upserted factor rows")

	summary.Status = data.RunSucceeded
	runner.finish(ctx, summary)
	return summary, nil
}

func (runner *Runner) fail(ctx context.Context, summary *data.RunSummary, err error) error {
	summary.Status = data.RunFailed
	summary.Message = err.Error()
	log.Error().Err(err).Msg("pipeline run failed")
	runner.finish(ctx, summary)
	return err
}

// finish closes out the run: record it, settle the healthcheck, and mail the
// report. None of these may fail the run itself.
func (runner *Runner) finish(ctx context.Context, summary *data.RunSummary) {
	summary.EndTime = time.Now()

	if err := runner.cfg.Library.RecordRun(ctx, summary); err != nil {
		log.Error().Err(err).Msg("could not record pipeline run")
	}

	var err error
	if summary.Status == data.RunSucceeded {
		err = healthcheck.Ping()
	} else {
		err = healthcheck.Fail(summary.Message)
	}
	if err != nil {
		log.Warn().Err(err).Msg("healthcheck ping failed")
	}

	subject := fmt.Sprintf("pipeline finished: %s", summary.Status)
	if err := notify.Send(subject, runReport(summary)); err != nil {
		log.Warn().Err(err).Msg("could not mail run report")
	}
}

func runReport(summary *data.RunSummary) string {
	p := message.NewPrinter(language.English)
	report := p.Sprintf("Status: %s\n", summary.Status)
	report += p.Sprintf("Run ID: %s\n", summary.RunID.String())
	report += p.Sprintf("Started: %s\n", summary.StartTime.Local().Format("01/02/2006 15:04:05"))
	report += p.Sprintf("Duration: %s\n", summary.Duration().Round(time.Second))
	report += p.Sprintf("Tickers: %d\n", summary.NumTickers)
	report += p.Sprintf("Price rows: %d\n", summary.NumPriceRows)
	report += p.Sprintf("Fundamentals: %d (%d from cache)\n", summary.NumFundamentals, summary.CacheHits)
	report += p.Sprintf("Rows upserted: %d\n", summary.RowsUpserted)
	if summary.Message != "" {
		report += p.Sprintf("Message: %s\n", summary.Message)
	}
	return report
}
