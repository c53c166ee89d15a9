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
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/pipeline"
)

var (
	updateNoCache bool
	updateStart   string
	updateEnd     string
)

// updateCmd runs the data pipeline once and exits
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download prices and fundamentals, compute factors, and upsert them into the library",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myLibrary, err := openLibrary(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open library")
		}
		defer myLibrary.Close()

		cacheStore, err := openCache()
		if err != nil {
			log.Fatal().Err(err).Msg("could not open fundamentals cache")
		}
		defer cacheStore.Close()

		runner, err := newRunner(myLibrary, cacheStore)
		if err != nil {
			log.Fatal().Err(err).Msg("could not build pipeline runner")
		}

		opts := pipeline.RunOptions{
			NoCache: updateNoCache,
		}
		if updateStart != "" {
			opts.Start, err = time.Parse("2006-01-02", updateStart)
			if err != nil {
				log.Fatal().Err(err).Str("Start", updateStart).Msg("invalid start date, expected YYYY-MM-DD")
			}
		}
		if updateEnd != "" {
			opts.End, err = time.Parse("2006-01-02", updateEnd)
			if err != nil {
				log.Fatal().Err(err).Str("End", updateEnd).Msg("invalid end date, expected YYYY-MM-DD")
			}
		}

		summary, err := runner.Run(ctx, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("pipeline run failed")
		}

		printRunSummary(summary)
	},
}

// printRunSummary renders the run result as a framed block on stdout.
func printRunSummary(summary *data.RunSummary) {
	var sb strings.Builder
	keyword := func(s string) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
	}

	p := message.NewPrinter(language.English)

	fmt.Fprintf(&sb,
		"%s\n\nStatus: %s\nRun ID: %s\nTickers: %s\nPrice rows: %s\nFundamentals: %s\nCache hits: %s\nRows upserted: %s\nDuration: %s\n",
		lipgloss.NewStyle().Bold(true).Render("PIPELINE RUN"),
		keyword(string(summary.Status)),
		keyword(summary.RunID.String()),
		keyword(p.Sprintf("%d", summary.NumTickers)),
		keyword(p.Sprintf("%d", summary.NumPriceRows)),
		keyword(p.Sprintf("%d", summary.NumFundamentals)),
		keyword(p.Sprintf("%d", summary.CacheHits)),
		keyword(p.Sprintf("%d", summary.RowsUpserted)),
		keyword(summary.Duration().Round(time.Second).String()),
	)

	if summary.Message != "" {
		fmt.Fprintf(&sb, "\nMessage: %s\n", keyword(summary.Message))
	}

	fmt.Println(
		lipgloss.NewStyle().
			Width(60).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2).
			Render(sb.String()),
	)
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVar(&updateNoCache, "no-cache", false, "bypass the fundamentals cache and fetch fresh snapshots")
	updateCmd.Flags().StringVar(&updateStart, "start", "", "start of the price window (YYYY-MM-DD)")
	updateCmd.Flags().StringVar(&updateEnd, "end", "", "end of the price window (YYYY-MM-DD)")
}
