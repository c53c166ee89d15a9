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
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/equity-screener/esdata/pipeline"
)

const defaultSchedule = "30 21 * * MON-FRI"

var daemonImmediate bool

// daemonCmd runs the pipeline on a cron schedule until interrupted
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the pipeline on a schedule",
	Long: `daemon keeps the process alive and runs the data pipeline on the cron
schedule set by the 'schedule' configuration key. A firing that arrives while
the previous run is still in progress is skipped.`,
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

		fire := func() {
			summary, err := runner.Run(ctx, pipeline.RunOptions{})
			switch {
			case errors.Is(err, pipeline.ErrAlreadyRunning):
				log.Warn().Msg("previous pipeline run still in progress, skipping this firing")
			case err != nil:
				log.Error().Err(err).Msg("scheduled pipeline run failed")
			default:
				log.Info().
					Str("Status", string(summary.Status)).
					Int("RowsUpserted", summary.RowsUpserted).
					Dur("Duration", summary.Duration()).
					Msg("scheduled pipeline run complete")
			}
		}

		schedule := viper.GetString("schedule")
		if schedule == "" {
			schedule = defaultSchedule
		}

		c := cron.New()
		if _, err := c.AddFunc(schedule, fire); err != nil {
			log.Fatal().Err(err).Str("Schedule", schedule).Msg("invalid cron schedule")
		}

		c.Start()
		log.Info().Str("Schedule", schedule).Msg("pipeline scheduler started")

		if daemonImmediate {
			fire()
		}

		// Wait for interrupt signal
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info().Msg("stopping pipeline scheduler")
		stopCtx := c.Stop()
		<-stopCtx.Done()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().BoolVar(&daemonImmediate, "immediate", false, "run the pipeline once at startup before waiting on the schedule")
}
