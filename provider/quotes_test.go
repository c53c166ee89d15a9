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
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/equity-screener/esdata/provider"
)

// chartPayload covers three trading days where the middle row carries no
// prices at all (a holiday artifact) and the final row has no adjusted
// close.
const chartPayload = `{
  "chart": {
    "result": [{
      "timestamp": [1672617600, 1672704000, 1672790400],
      "indicators": {
        "quote": [{
          "open":   [100.0, 0, 102.0],
          "high":   [105.0, 0, 106.0],
          "low":    [99.0,  0, 101.0],
          "close":  [101.0, 0, 103.0],
          "volume": [1000,  0, 1200]
        }],
        "adjclose": [{"adjclose": [99.5, 0, 0]}]
      }
    }],
    "error": null
  }
}`

var _ = Describe("FetchDailyPrices", func() {
	var (
		ctx   context.Context
		start time.Time
		end   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	})

	fastOpts := func(chartURL string) provider.Options {
		return provider.Options{
			ChartURL:     chartURL,
			RateLimit:    100000,
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			LockFloor:    time.Millisecond,
		}
	}

	It("returns an empty slice for an empty universe without calling out", func() {
		var calls int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt64(&calls, 1)
		}))
		defer server.Close()

		client := provider.New(fastOpts(server.URL), nil)
		bars := client.FetchDailyPrices(ctx, nil, start, end)
		Expect(bars).To(BeEmpty())
		Expect(atomic.LoadInt64(&calls)).To(Equal(int64(0)))
	})

	It("normalizes chart rows into full price bars", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Query().Get("interval")).To(Equal("1d"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, chartPayload)
		}))
		defer server.Close()

		client := provider.New(fastOpts(server.URL), nil)
		bars := client.FetchDailyPrices(ctx, []string{"VOD.L"}, start, end)

		// the all-null middle row disappears
		Expect(bars).To(HaveLen(2))

		Expect(bars[0].Date).To(Equal(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)))
		Expect(bars[0].Ticker).To(Equal("VOD.L"))
		Expect(bars[0].Open).To(BeNumerically("~", 100.0, 1e-9))
		Expect(bars[0].Close).To(BeNumerically("~", 101.0, 1e-9))
		Expect(bars[0].AdjClose).To(BeNumerically("~", 99.5, 1e-9))
		Expect(bars[0].Volume).To(Equal(int64(1000)))

		// missing adjusted close falls back to close
		Expect(bars[1].Date).To(Equal(time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC)))
		Expect(bars[1].AdjClose).To(BeNumerically("~", 103.0, 1e-9))
	})

	It("skips tickers the service rejects but keeps the rest", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/BAD.L") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, chartPayload)
		}))
		defer server.Close()

		client := provider.New(fastOpts(server.URL), nil)
		bars := client.FetchDailyPrices(ctx, []string{"BAD.L", "VOD.L"}, start, end)

		Expect(bars).To(HaveLen(2))
		for _, bar := range bars {
			Expect(bar.Ticker).To(Equal("VOD.L"))
		}
	})

	It("retries a pass that yields no data and succeeds on the next", func() {
		var calls int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if atomic.AddInt64(&calls, 1) == 1 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, chartPayload)
		}))
		defer server.Close()

		client := provider.New(fastOpts(server.URL), nil)
		bars := client.FetchDailyPrices(ctx, []string{"VOD.L"}, start, end)

		Expect(bars).To(HaveLen(2))
		Expect(atomic.LoadInt64(&calls)).To(Equal(int64(2)))
	})

	It("degrades to an empty result when every attempt fails", func() {
		var calls int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt64(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := provider.New(fastOpts(server.URL), nil)
		bars := client.FetchDailyPrices(ctx, []string{"VOD.L", "BP.L"}, start, end)

		Expect(bars).To(BeEmpty())
		// two attempts over a two-ticker universe
		Expect(atomic.LoadInt64(&calls)).To(Equal(int64(4)))
	})

	It("degrades to an empty result when the host is unreachable", func() {
		client := provider.New(fastOpts("http://127.0.0.1:1"), nil)
		bars := client.FetchDailyPrices(ctx, []string{"VOD.L"}, start, end)
		Expect(bars).To(BeEmpty())
	})
})
