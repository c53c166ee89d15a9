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
package data

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal state of one pipeline run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// RunSummary describes one pipeline execution end to end. It is recorded in
// the pipeline_runs table and reported through the notification side-channel.
type RunSummary struct {
	RunID     uuid.UUID `db:"run_id"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`

	NumTickers      int `db:"num_tickers"`
	NumPriceRows    int `db:"num_price_rows"`
	NumFundamentals int `db:"num_fundamentals"`
	CacheHits       int `db:"cache_hits"`
	RowsUpserted    int `db:"rows_upserted"`

	Status  RunStatus `db:"status"`
	Message string    `db:"message"`
}

// Duration returns the wall-clock runtime of the run.
func (summary *RunSummary) Duration() time.Duration {
	return summary.EndTime.Sub(summary.StartTime)
}
