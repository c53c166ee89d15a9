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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/equity-screener/esdata/api"
)

// serveCmd exposes the factor library over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the factor library over a read-only HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myLibrary, err := openLibrary(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open library")
		}
		defer myLibrary.Close()

		// the universe endpoint serves an empty list when no universe is configured
		universe, err := loadUniverse()
		if err != nil {
			log.Warn().Err(err).Msg("serving without a universe")
		}

		address := viper.GetString("server.address")
		if address == "" {
			address = ":8000"
		}

		server := api.New(api.Config{
			Address:  address,
			Library:  myLibrary,
			Universe: universe,
		})

		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("http server failed")
			}
		}()

		// Wait for interrupt signal
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info().Msg("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
