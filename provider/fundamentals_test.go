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

package provider_test

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/equity-screener/esdata/cache"
	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/provider"
)

func quotePayload(symbol string) string {
	return fmt.Sprintf(`{
  "quoteResponse": {
    "result": [{
      "symbol": %q,
      "longName": "Vodafone Group Plc",
      "returnOnEquity": 0.15,
      "profitMargins": 0.08,
      "trailingPE": 12.5,
      "priceToBook": 1.2,
      "marketCap": 25000000000,
      "beta": 0.9
    }],
    "error": null
  }
}`, symbol)
}

var _ = Describe("FetchFundamentals", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	fastOpts := func(quoteURL string) provider.Options {
		return provider.Options{
			QuoteURL:            quoteURL,
			RateLimit:           100000,
			FundamentalAttempts: 2,
			FundamentalDelay:    time.Millisecond,
			AttemptTimeout:      5 * time.Second,
			Workers:             4,
			CacheExpiry:         time.Hour,
		}
	}

	It("maps quote fields into a snapshot and leaves the rest NaN", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, quotePayload(r.URL.Query().Get("symbols")))
		}))
		defer server.Close()

		client := provider.New(fastOpts(server.URL), nil)
		snaps, hits := client.FetchFundamentals(ctx, []string{"VOD.L"}, false)

		Expect(hits).To(Equal(0))
		Expect(snaps).To(HaveLen(1))

		snap := snaps[0]
		Expect(snap.Ticker).To(Equal("VOD.L"))
		Expect(snap.CompanyName).To(Equal("Vodafone Group Plc"))
		Expect(snap.ReturnOnEquity).To(BeNumerically("~", 0.15, 1e-9))
		Expect(snap.TrailingPE).To(BeNumerically("~", 12.5, 1e-9))
		Expect(snap.MarketCap).To(BeNumerically("~", 2.5e10, 1e-3))

		// the payload carried no quickRatio
		Expect(math.IsNaN(snap.QuickRatio)).To(BeTrue())
		Expect(math.IsNaN(snap.DividendYield)).To(BeTrue())
	})

	It("keeps sibling tickers when one always fails", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			symbol := r.URL.Query().Get("symbols")
			if symbol == "DOOM.L" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, quotePayload(symbol))
		}))
		defer server.Close()

		client := provider.New(fastOpts(server.URL), nil)
		snaps, _ := client.FetchFundamentals(ctx, []string{"VOD.L", "DOOM.L", "BP.L"}, false)

		Expect(snaps).To(HaveLen(3))
		Expect(snaps[0].Ticker).To(Equal("VOD.L"))
		Expect(snaps[0].Empty()).To(BeFalse())

		// exhausted ticker degrades to an empty snapshot in place
		Expect(snaps[1].Ticker).To(Equal("DOOM.L"))
		Expect(snaps[1].Empty()).To(BeTrue())

		Expect(snaps[2].Ticker).To(Equal("BP.L"))
		Expect(snaps[2].Empty()).To(BeFalse())
	})

	It("serves cached tickers without touching the network", func() {
		var calls int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&calls, 1)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, quotePayload(r.URL.Query().Get("symbols")))
		}))
		defer server.Close()

		store := cache.NewMemory()
		cached := data.NewFundamentalSnapshot("VOD.L")
		cached.TrailingPE = 99
		store.Save(ctx, "VOD.L", cached)

		client := provider.New(fastOpts(server.URL), store)
		snaps, hits := client.FetchFundamentals(ctx, []string{"VOD.L", "BP.L"}, true)

		Expect(hits).To(Equal(1))
		Expect(snaps).To(HaveLen(2))
		Expect(snaps[0].TrailingPE).To(BeNumerically("~", 99, 1e-9))
		Expect(snaps[1].CompanyName).To(Equal("Vodafone Group Plc"))

		// only the miss went out
		Expect(atomic.LoadInt64(&calls)).To(Equal(int64(1)))
	})

	It("writes fetched snapshots back to the cache", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, quotePayload(r.URL.Query().Get("symbols")))
		}))
		defer server.Close()

		store := cache.NewMemory()
		client := provider.New(fastOpts(server.URL), store)

		_, _ = client.FetchFundamentals(ctx, []string{"VOD.L"}, true)

		snap, ok := store.Load(ctx, "VOD.L", time.Hour)
		Expect(ok).To(BeTrue())
		Expect(snap.CompanyName).To(Equal("Vodafone Group Plc"))
	})

	It("skips the cache entirely when useCache is false", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, quotePayload(r.URL.Query().Get("symbols")))
		}))
		defer server.Close()

		store := cache.NewMemory()
		stale := data.NewFundamentalSnapshot("VOD.L")
		stale.TrailingPE = 99
		store.Save(ctx, "VOD.L", stale)

		client := provider.New(fastOpts(server.URL), store)
		snaps, hits := client.FetchFundamentals(ctx, []string{"VOD.L"}, false)

		Expect(hits).To(Equal(0))
		Expect(snaps[0].TrailingPE).To(BeNumerically("~", 12.5, 1e-9))

		// and the bypass does not overwrite the cached entry
		cachedBack, ok := store.Load(ctx, "VOD.L", time.Hour)
		Expect(ok).To(BeTrue())
		Expect(cachedBack.TrailingPE).To(BeNumerically("~", 99, 1e-9))
	})

	It("returns empty input untouched", func() {
		client := provider.New(fastOpts("http://127.0.0.1:1"), nil)
		snaps, hits := client.FetchFundamentals(ctx, nil, true)
		Expect(snaps).To(BeEmpty())
		Expect(hits).To(Equal(0))
	})

	It("yields one empty snapshot per ticker when the context is already cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		client := provider.New(fastOpts("http://127.0.0.1:1"), nil)
		snaps, hits := client.FetchFundamentals(cancelled, []string{"VOD.L", "BP.L"}, false)

		Expect(hits).To(Equal(0))
		Expect(snaps).To(HaveLen(2))
		for i, ticker := range []string{"VOD.L", "BP.L"} {
			Expect(snaps[i]).ToNot(BeNil())
			Expect(snaps[i].Ticker).To(Equal(ticker))
			Expect(snaps[i].Empty()).To(BeTrue())
		}
	})
})
