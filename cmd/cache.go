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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/equity-screener/esdata/cache"
)

// cacheCmd groups the fundamentals cache maintenance commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fundamentals snapshot cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [ticker]",
	Short: "Remove cached fundamentals, for one ticker or for all",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cacheStore, err := openCache()
		if err != nil {
			log.Fatal().Err(err).Msg("could not open fundamentals cache")
		}
		defer cacheStore.Close()

		if len(args) == 1 {
			if err := cacheStore.Clear(ctx, args[0]); err != nil {
				log.Fatal().Err(err).Str("Ticker", args[0]).Msg("could not clear cache entry")
			}
			log.Info().Str("Ticker", args[0]).Msg("cache entry cleared")
			return
		}

		if err := cacheStore.ClearAll(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not clear cache")
		}
		log.Info().Msg("cache cleared")
	},
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the active cache configuration",
	Run: func(cmd *cobra.Command, args []string) {
		backend := viper.GetString("cache.backend")
		if backend == "" {
			backend = cache.BackendFile
		}

		fmt.Printf("backend:   %s\n", backend)
		fmt.Printf("directory: %s\n", cacheDir())
		fmt.Printf("ttl:       %s\n", cacheTTL())
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
}
