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
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/equity-screener/esdata/cache"
	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/library"
	"github.com/equity-screener/esdata/pipeline"
	"github.com/equity-screener/esdata/provider"
)

const defaultFactorTable = "financial_tbl"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "esdata",
	Short: "esdata maintains the factor database used for equity screening",
	Long: `esdata is a command line utility for building and maintaining a
database of daily prices, fundamental ratios, and derived screening factors
for a configured universe of tickers.

Each pipeline run downloads price history and fundamentals, computes
momentum, volatility, technical, value, quality, and liquidity factors plus
a cross-sectional composite score, and upserts the result into a relational
table keyed on (Date, Ticker). Downstream screeners query that table
directly or through the bundled HTTP API.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.esdata.toml)")
	rootCmd.PersistentFlags().String("dbUrl", "", "database connection string")
	if err := viper.BindPFlag("db_url", rootCmd.PersistentFlags().Lookup("dbUrl")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for dbUrl failed")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".esdata" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".esdata")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}

// openLibrary connects to the configured screening database.
func openLibrary(ctx context.Context) (*library.Library, error) {
	myLibrary := &library.Library{
		DBUrl: viper.GetString("db_url"),
		Name:  viper.GetString("name"),
		Owner: viper.GetString("owner"),
		Table: viper.GetString("table"),
	}
	if myLibrary.DBUrl == "" {
		return nil, errors.New("no database configured, run `esdata init` or set db_url")
	}
	if myLibrary.Table == "" {
		myLibrary.Table = defaultFactorTable
	}

	if err := myLibrary.Connect(ctx); err != nil {
		return nil, err
	}
	return myLibrary, nil
}

// loadUniverse reads the ticker set from the configured CSV file or the
// inline ticker list.
func loadUniverse() (*data.Universe, error) {
	if fn := viper.GetString("universe.file"); fn != "" {
		return data.LoadUniverse(fn)
	}
	if tickers := viper.GetStringSlice("universe.tickers"); len(tickers) > 0 {
		return data.UniverseFromTickers(tickers)
	}
	return nil, errors.New("no universe configured, set universe.file or universe.tickers")
}

// cacheDir resolves the snapshot cache directory.
func cacheDir() string {
	if dir := viper.GetString("cache.dir"); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "esdata")
}

func cacheTTL() time.Duration {
	if ttl := viper.GetDuration("cache.ttl"); ttl > 0 {
		return ttl
	}
	return 24 * time.Hour
}

// openCache builds the configured fundamentals cache backend.
func openCache() (cache.Store, error) {
	return cache.New(viper.GetString("cache.backend"), cacheDir(), cacheTTL())
}

// newRunner wires a pipeline runner from the configuration.
func newRunner(myLibrary *library.Library, cacheStore cache.Store) (*pipeline.Runner, error) {
	universe, err := loadUniverse()
	if err != nil {
		return nil, err
	}

	client := provider.New(provider.Options{
		RateLimit:   viper.GetInt("provider.rate_limit"),
		Workers:     viper.GetInt("provider.workers"),
		CacheExpiry: cacheTTL(),
	}, cacheStore)

	return pipeline.NewRunner(pipeline.Config{
		Universe:     universe,
		Provider:     client,
		Library:      myLibrary,
		LookbackDays: viper.GetInt("lookback_days"),
	}), nil
}
