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
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/equity-screener/esdata/data"
)

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// FetchDailyPrices downloads the daily OHLCV history for every ticker in the
// universe. One attempt is a full pass over the universe; a transport error
// or an entirely empty pass fails the attempt, which is retried with
// class-dependent backoff. Individual tickers the service rejects are
// skipped inside a pass without failing it. Exhausted attempts return an
// empty slice, never an error.
func (c *Client) FetchDailyPrices(ctx context.Context, tickers []string, start, end time.Time) []*data.PriceBar {
	logger := zerolog.Ctx(ctx)

	if len(tickers) == 0 {
		return []*data.PriceBar{}
	}

	var lastErr error
	for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			class := classifyFailure(lastErr)
			delay := c.backoffDelay(attempt-1, class)
			logger.Warn().Err(lastErr).Dur("Delay", delay).Int("Attempt", attempt+1).
				Msg("price download failed, retrying")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				logger.Error().Err(ctx.Err()).Msg("price download cancelled")
				return []*data.PriceBar{}
			}
		}

		bars, err := c.pricePass(ctx, tickers, start, end)
		if err != nil {
			lastErr = err
			continue
		}
		if len(bars) == 0 {
			lastErr = errors.New("price download returned no data")
			continue
		}

		logger.Info().Int("NumBars", len(bars)).Int("NumTickers", len(tickers)).
			Msg("downloaded daily prices")
		return bars
	}

	logger.Error().Err(lastErr).Int("MaxAttempts", c.opts.MaxAttempts).
		Msg("price download exhausted all attempts")
	return []*data.PriceBar{}
}

// pricePass requests every ticker's chart once. Transport errors abort the
// pass so the whole universe retries under one backoff; HTTP rejections skip
// only the offending ticker.
func (c *Client) pricePass(ctx context.Context, tickers []string, start, end time.Time) ([]*data.PriceBar, error) {
	logger := zerolog.Ctx(ctx)
	bars := make([]*data.PriceBar, 0, len(tickers)*252)

	for _, ticker := range tickers {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		chartURL := fmt.Sprintf("%s/%s", c.opts.ChartURL, url.PathEscape(ticker))

		respContent := chartResponse{}
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParam("interval", "1d").
			SetQueryParam("period1", strconv.FormatInt(start.Unix(), 10)).
			SetQueryParam("period2", strconv.FormatInt(end.Unix(), 10)).
			SetResult(&respContent).
			Get(chartURL)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode() >= 300 {
			logger.Warn().Int("StatusCode", resp.StatusCode()).Str("Ticker", ticker).
				Str("URL", resp.Request.URL).Msg("quote service rejected ticker, skipping")
			continue
		}

		bars = append(bars, normalizeChart(ticker, &respContent)...)
	}

	return bars, nil
}

// normalizeChart turns one chart payload into price bars with the full
// column set: rows whose OHLC values are all absent are dropped, a missing
// adjusted close falls back to the raw close, and a missing volume becomes
// zero.
func normalizeChart(ticker string, resp *chartResponse) []*data.PriceBar {
	if len(resp.Chart.Result) == 0 {
		return nil
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	quote := result.Indicators.Quote[0]

	var adjClose []float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]*data.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}

		// absent values decode as zero; a row with no prices at all is a
		// market holiday artifact, not a bar
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		adj := quote.Close[i]
		if i < len(adjClose) && adjClose[i] != 0 {
			adj = adjClose[i]
		}

		volume := int64(0)
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}

		day := time.Unix(ts, 0).UTC()

		bars = append(bars, &data.PriceBar{
			Date:     time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Ticker:   ticker,
			Open:     quote.Open[i],
			High:     quote.High[i],
			Low:      quote.Low[i],
			Close:    quote.Close[i],
			AdjClose: adj,
			Volume:   volume,
		})
	}

	return bars
}
