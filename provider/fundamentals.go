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

package provider

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/taskpool"
)

// quoteFields enumerates what we ask the quote service for; everything else
// in the payload is ignored.
const quoteFields = "symbol,longName,shortName,returnOnEquity,grossMargins,operatingMargins," +
	"profitMargins,priceToBook,trailingPE,forwardPE,priceToSalesTrailing12Months," +
	"debtToEquity,currentRatio,quickRatio,dividendYield,marketCap,beta,averageVolume"

type quoteResponse struct {
	QuoteResponse struct {
		Result []map[string]any `json:"result"`
		Error  any              `json:"error"`
	} `json:"quoteResponse"`
}

// FetchFundamentals resolves one snapshot per ticker, consulting the cache
// first when useCache is set and fanning the remaining tickers out over the
// worker pool. Every ticker yields a snapshot: tickers whose retries
// exhaust come back empty (all ratios NaN) so downstream widening stays
// uniform. The second return value counts cache hits.
func (c *Client) FetchFundamentals(ctx context.Context, tickers []string, useCache bool) ([]*data.FundamentalSnapshot, int) {
	logger := zerolog.Ctx(ctx)

	if len(tickers) == 0 {
		return []*data.FundamentalSnapshot{}, 0
	}

	snapshots := make([]*data.FundamentalSnapshot, len(tickers))

	cacheHits := 0
	pending := make([]int, 0, len(tickers))
	for i, ticker := range tickers {
		if useCache && c.cache != nil {
			if snap, ok := c.cache.Load(ctx, ticker, c.opts.CacheExpiry); ok {
				snapshots[i] = snap
				cacheHits++
				continue
			}
		}
		pending = append(pending, i)
	}

	logger.Info().Int("NumTickers", len(tickers)).Int("CacheHits", cacheHits).
		Int("NumPending", len(pending)).Msg("fetching fundamentals")

	if len(pending) == 0 {
		return snapshots, cacheHits
	}

	tasks := make([]taskpool.Task, len(pending))
	for n, idx := range pending {
		idx := idx
		ticker := tickers[idx]
		tasks[n] = func(taskCtx context.Context) {
			snapshots[idx] = c.fetchSnapshot(taskCtx, ticker, useCache)
		}
	}

	if err := taskpool.Run(ctx, c.opts.Workers, tasks); err != nil {
		// pool orchestration failed; finish the stragglers serially
		logger.Warn().Err(err).Msg("worker pool failed, falling back to serial fetch")
		for _, idx := range pending {
			if snapshots[idx] == nil {
				snapshots[idx] = c.fetchSnapshot(ctx, tickers[idx], useCache)
			}
		}
	}

	return snapshots, cacheHits
}

// fetchSnapshot retries one ticker with its own exponential backoff and
// per-attempt deadline. A stuck or hostile ticker costs at most
// FundamentalAttempts × AttemptTimeout and never disturbs its siblings; on
// exhaustion the ticker degrades to an empty snapshot.
func (c *Client) fetchSnapshot(ctx context.Context, ticker string, useCache bool) *data.FundamentalSnapshot {
	logger := zerolog.Ctx(ctx)

	var lastErr error
	for attempt := 0; attempt < c.opts.FundamentalAttempts; attempt++ {
		if attempt > 0 {
			delay := c.opts.FundamentalDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return data.NewFundamentalSnapshot(ticker)
			}
		}

		snap, err := c.quoteOnce(ctx, ticker)
		if err != nil {
			lastErr = err
			continue
		}

		if useCache && c.cache != nil {
			c.cache.Save(ctx, ticker, snap)
		}
		return snap
	}

	logger.Warn().Err(lastErr).Str("Ticker", ticker).Int("MaxAttempts", c.opts.FundamentalAttempts).
		Msg("fundamentals exhausted all attempts, using empty snapshot")
	return data.NewFundamentalSnapshot(ticker)
}

func (c *Client) quoteOnce(ctx context.Context, ticker string) (*data.FundamentalSnapshot, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	if err := c.limiter.Wait(attemptCtx); err != nil {
		return nil, err
	}

	respContent := quoteResponse{}
	resp, err := c.client.R().
		SetContext(attemptCtx).
		SetQueryParam("symbols", ticker).
		SetQueryParam("fields", quoteFields).
		SetResult(&respContent).
		Get(c.opts.QuoteURL)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("quote service returned status %d for %s", resp.StatusCode(), ticker)
	}

	if len(respContent.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("no quote data returned for %s", ticker)
	}

	return snapshotFromQuote(ticker, respContent.QuoteResponse.Result[0]), nil
}

// snapshotFromQuote maps the ratio fields out of one quote payload. Missing
// or non-numeric fields stay NaN; the company name prefers the long form.
func snapshotFromQuote(ticker string, info map[string]any) *data.FundamentalSnapshot {
	snap := data.NewFundamentalSnapshot(ticker)

	if name := stringField(info, "longName"); name != "" {
		snap.CompanyName = name
	} else {
		snap.CompanyName = stringField(info, "shortName")
	}

	snap.ReturnOnEquity = floatField(info, "returnOnEquity")
	snap.GrossMargins = floatField(info, "grossMargins")
	snap.OperatingMargins = floatField(info, "operatingMargins")
	snap.ProfitMargins = floatField(info, "profitMargins")
	snap.PriceToBook = floatField(info, "priceToBook")
	snap.TrailingPE = floatField(info, "trailingPE")
	snap.ForwardPE = floatField(info, "forwardPE")
	snap.PriceToSalesTTM = floatField(info, "priceToSalesTrailing12Months")
	snap.DebtToEquity = floatField(info, "debtToEquity")
	snap.CurrentRatio = floatField(info, "currentRatio")
	snap.QuickRatio = floatField(info, "quickRatio")
	snap.DividendYield = floatField(info, "dividendYield")
	snap.MarketCap = floatField(info, "marketCap")
	snap.Beta = floatField(info, "beta")
	snap.AverageVolume = floatField(info, "averageVolume")

	return snap
}

// floatField pulls a numeric value out of the loosely typed quote payload;
// anything absent or non-numeric maps to NaN.
func floatField(m map[string]any, key string) float64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return math.NaN()
}

func stringField(m map[string]any, key string) string {
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
