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
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/equity-screener/esdata/backblaze"
	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/store"
)

var (
	exportFormat string
	exportOut    string
	exportTicker string
	exportUpload bool
)

// exportCmd dumps the factor table to a local file
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the factor table to csv or parquet",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if exportFormat != "csv" && exportFormat != "parquet" {
			log.Fatal().Str("Format", exportFormat).Msg("unknown export format, expected csv or parquet")
		}

		myLibrary, err := openLibrary(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not open library")
		}
		defer myLibrary.Close()

		records, err := myLibrary.Store.SelectFactors(ctx, myLibrary.Table, store.FactorQuery{
			Ticker: exportTicker,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("could not read factor table")
		}

		outFn := exportOut
		if outFn == "" {
			outFn = fmt.Sprintf("%s-%s.%s", slug.Make(myLibrary.Table),
				time.Now().Format("20060102"), exportFormat)
		}

		switch exportFormat {
		case "csv":
			err = exportToCSV(records, outFn)
		case "parquet":
			err = exportToParquet(records, outFn)
		}
		if err != nil {
			log.Fatal().Err(err).Str("FileName", outFn).Msg("export failed")
		}

		log.Info().Int("NumRecords", len(records)).Str("FileName", outFn).Msg("export finished")

		if exportUpload {
			if viper.GetString("backblaze.application_id") == "" {
				log.Warn().Msg("skipping upload to backblaze because backblaze credentials are missing")
				return
			}

			bucketName := viper.GetString("backblaze.bucket")
			dirname := fmt.Sprintf("factors/%s", time.Now().Format("2006"))
			if err := backblaze.Upload(outFn, bucketName, dirname); err != nil {
				log.Fatal().Err(err).Msg("failed uploading export to Backblaze")
			}
		}
	},
}

func exportToCSV(records []*data.FactorRecord, fn string) error {
	fh, err := os.Create(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return err
	}
	defer fh.Close()

	return gocsv.MarshalFile(&records, fh)
}

func exportToParquet(records []*data.FactorRecord, fn string) error {
	var err error

	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(data.FactorRecord), 4)
	if err != nil {
		log.Error().
			Str("OriginalError", err.Error()).
			Msg("Parquet write failed")
		return err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	for _, r := range records {
		if err = pw.Write(r); err != nil {
			log.Error().
				Str("OriginalError", err.Error()).
				Str("Date", r.Date).Str("Ticker", r.Ticker).
				Msg("Parquet write failed for record")
		}
	}

	if err = pw.WriteStop(); err != nil {
		log.Error().Err(err).Msg("Parquet write failed")
		return err
	}

	log.Info().Int("NumRecords", len(records)).Msg("Parquet write finished")
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or parquet")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file name (default <table>-<date>.<format>)")
	exportCmd.Flags().StringVar(&exportTicker, "ticker", "", "limit the export to a single ticker")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "upload the export to the configured backblaze bucket")
}
