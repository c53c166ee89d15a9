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

package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/equity-screener/esdata/api"
	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/library"
)

var _ = Describe("Server", func() {
	var (
		ctx    context.Context
		lib    *library.Library
		server *httptest.Server
	)

	get := func(path string) (int, []byte) {
		resp, err := http.Get(server.URL + path)
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		return resp.StatusCode, body
	}

	BeforeEach(func() {
		ctx = context.Background()

		dbURL := "sqlite://" + filepath.Join(GinkgoT().TempDir(), "esdata.db")
		lib = &library.Library{
			DBUrl: dbURL,
			Name:  "UK Screener",
			Owner: "quant",
			Table: "financial_tbl",
		}
		Expect(lib.Connect(ctx)).To(Succeed())

		day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
		prices := []*data.PriceBar{
			{Date: day, Ticker: "VOD.L", Open: 100, High: 105, Low: 99, Close: 101, AdjClose: 99.5, Volume: 1000},
			{Date: day, Ticker: "BP.L", Open: 102, High: 106, Low: 101, Close: 103, AdjClose: 102.5, Volume: 1200},
		}
		rows := data.Combine(prices, nil)

		values := make([][]any, 0, len(rows))
		for _, row := range rows {
			values = append(values, row.Values())
		}
		Expect(lib.Store.EnsureSchema(ctx, lib.Table, data.FactorColumns, values, data.FactorKeyColumns)).To(Succeed())
		_, err := lib.Store.Upsert(ctx, lib.Table, data.FactorColumns, values, data.FactorKeyColumns, 0)
		Expect(err).ToNot(HaveOccurred())

		start := time.Date(2023, 1, 2, 6, 0, 0, 0, time.UTC)
		Expect(lib.RecordRun(ctx, &data.RunSummary{
			RunID:        uuid.New(),
			StartTime:    start,
			EndTime:      start.Add(time.Minute),
			NumTickers:   2,
			NumPriceRows: 2,
			RowsUpserted: 2,
			Status:       data.RunSucceeded,
		})).To(Succeed())

		universe, err := data.UniverseFromTickers([]string{"VOD.L", "BP.L"})
		Expect(err).ToNot(HaveOccurred())

		server = httptest.NewServer(api.New(api.Config{
			Address:  ":0",
			Library:  lib,
			Universe: universe,
		}).Handler())
	})

	AfterEach(func() {
		server.Close()
		lib.Close()
	})

	Describe("GET /healthz", func() {
		It("reports ok while the database is reachable", func() {
			status, body := get("/healthz")
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring(`"status":"ok"`))
		})

		It("reports degraded when the database is gone", func() {
			Expect(lib.Store.DB.Close()).To(Succeed())
			status, body := get("/healthz")
			Expect(status).To(Equal(http.StatusServiceUnavailable))
			Expect(string(body)).To(ContainSubstring(`"status":"degraded"`))
		})
	})

	Describe("GET /api/v1/factors", func() {
		It("returns every row ordered by date and ticker", func() {
			status, body := get("/api/v1/factors")
			Expect(status).To(Equal(http.StatusOK))

			var records []*data.FactorRecord
			Expect(json.Unmarshal(body, &records)).To(Succeed())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Ticker).To(Equal("BP.L"))
			Expect(records[0].Date).To(Equal("2023-01-02"))
			Expect(*records[0].Close).To(BeNumerically("~", 103, 1e-9))

			// no snapshot was joined, so fundamentals are null
			Expect(records[0].TrailingPE).To(BeNil())
		})

		It("filters by ticker", func() {
			status, body := get("/api/v1/factors?ticker=VOD.L")
			Expect(status).To(Equal(http.StatusOK))

			var records []*data.FactorRecord
			Expect(json.Unmarshal(body, &records)).To(Succeed())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Ticker).To(Equal("VOD.L"))
		})

		It("orders descending with a dash prefix and honors limit", func() {
			status, body := get("/api/v1/factors?order=-close_price&limit=1")
			Expect(status).To(Equal(http.StatusOK))

			var records []*data.FactorRecord
			Expect(json.Unmarshal(body, &records)).To(Succeed())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Ticker).To(Equal("BP.L"))
		})

		It("rejects an unknown order column", func() {
			status, _ := get("/api/v1/factors?order=evil")
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed limit", func() {
			status, _ := get("/api/v1/factors?limit=lots")
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/v1/runs", func() {
		It("returns the recorded history", func() {
			status, body := get("/api/v1/runs")
			Expect(status).To(Equal(http.StatusOK))

			var runs []map[string]any
			Expect(json.Unmarshal(body, &runs)).To(Succeed())
			Expect(runs).To(HaveLen(1))
			Expect(runs[0]).To(HaveKeyWithValue("Status", "succeeded"))
			Expect(runs[0]).To(HaveKeyWithValue("NumTickers", float64(2)))
		})
	})

	Describe("GET /api/v1/universe", func() {
		It("returns the configured tickers", func() {
			status, body := get("/api/v1/universe")
			Expect(status).To(Equal(http.StatusOK))

			var entries []*data.UniverseEntry
			Expect(json.Unmarshal(body, &entries)).To(Succeed())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Ticker).To(Equal("VOD.L"))
		})
	})
})
