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
	"time"
)

// TotalRows returns the number of rows in the factor table. A library whose
// first run has not happened yet reports zero rather than an error.
func (myLibrary *Library) TotalRows(ctx context.Context) (int64, error) {
	if !myLibrary.Store.HasTable(ctx, myLibrary.Table) {
		return 0, nil
	}

	d := myLibrary.Store.Dialect
	querySQL := fmt.Sprintf("SELECT count(*) FROM %s", d.QuoteIdent(myLibrary.Table))

	var count int64
	if err := myLibrary.Store.DB.QueryRowContext(ctx, querySQL).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// TotalTickers returns the number of distinct tickers in the factor table.
func (myLibrary *Library) TotalTickers(ctx context.Context) (int64, error) {
	if !myLibrary.Store.HasTable(ctx, myLibrary.Table) {
		return 0, nil
	}

	d := myLibrary.Store.Dialect
	querySQL := fmt.Sprintf("SELECT count(DISTINCT %s) FROM %s",
		d.QuoteIdent("Ticker"), d.QuoteIdent(myLibrary.Table))

	var count int64
	if err := myLibrary.Store.DB.QueryRowContext(ctx, querySQL).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// LastUpdated returns the newest date in the factor table, or the zero time
// when the table is missing or empty.
func (myLibrary *Library) LastUpdated(ctx context.Context) (time.Time, error) {
	if !myLibrary.Store.HasTable(ctx, myLibrary.Table) {
		return time.Time{}, nil
	}

	d := myLibrary.Store.Dialect
	querySQL := fmt.Sprintf("SELECT coalesce(max(%s), '') FROM %s",
		d.CastText(d.QuoteIdent("Date")), d.QuoteIdent(myLibrary.Table))

	var raw string
	if err := myLibrary.Store.DB.QueryRowContext(ctx, querySQL).Scan(&raw); err != nil {
		return time.Time{}, err
	}
	if raw == "" {
		return time.Time{}, nil
	}

	return time.Parse("2006-01-02", raw)
}
