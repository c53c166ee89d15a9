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

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary returns a description of the library in markdown
func (myLibrary *Library) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	if _, err := builder.WriteString(fmt.Sprintf("# %s\n", myLibrary.Name)); err != nil {
		return "", err
	}

	if _, err := builder.WriteString("## Details\n\n"); err != nil {
		return "", err
	}

	// Database connection string
	if _, err := builder.WriteString(fmt.Sprintf("Database: %s\n\n", myLibrary.DBUrl)); err != nil {
		return "", err
	}

	if _, err := builder.WriteString(fmt.Sprintf("  * Owner: %s\n", myLibrary.Owner)); err != nil {
		return "", err
	}

	if _, err := builder.WriteString(fmt.Sprintf("  * Factor Table: %s\n", myLibrary.Table)); err != nil {
		return "", err
	}

	// Tracked ticker count
	totalTickers, err := myLibrary.TotalTickers(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Tickers Tracked: %d\n", totalTickers)); err != nil {
		return "", err
	}

	// Total row count
	totalRows, err := myLibrary.TotalRows(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Total Rows: %d\n\n", totalRows)); err != nil {
		return "", err
	}

	// Last updated time
	lastUpdated, err := myLibrary.LastUpdated(ctx)
	if err != nil {
		return "", err
	}

	age := timeago.English.Format(lastUpdated)

	if lastUpdated.Equal(time.Time{}) {
		if _, err := builder.WriteString("Last Updated: Never\n\n"); err != nil {
			return "", err
		}
	} else {
		if _, err := builder.WriteString(fmt.Sprintf("Last Updated: %s (%s)\n\n", age, lastUpdated.Local().Format("01/02/2006"))); err != nil {
			return "", err
		}
	}

	// Recent runs
	if _, err := builder.WriteString("## Recent runs\n\n"); err != nil {
		return "", err
	}

	runs, err := myLibrary.RunHistory(ctx, 10)
	if err != nil {
		return "", err
	}

	if len(runs) == 0 {
		if _, err := builder.WriteString("  * none recorded\n"); err != nil {
			return "", err
		}
	}

	for _, run := range runs {
		if _, err := builder.WriteString(p.Sprintf("  * %s %s: %d tickers, %d rows in %s [%s]\n",
			run.Status, run.StartTime.Local().Format("01/02/2006 15:04"), run.NumTickers,
			run.RowsUpserted, run.Duration().Round(time.Second), run.RunID.String()[:6])); err != nil {
			return "", err
		}

		if run.Message != "" {
			if _, err := builder.WriteString(p.Sprintf("    * %s\n", run.Message)); err != nil {
				return "", err
			}
		}
	}

	return builder.String(), nil
}
