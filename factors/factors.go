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

// Package factors derives the screening factor columns from merged price and
// fundamental rows: momentum and volatility from the price history, trend
// indicators through go-talib, value and quality ratios from the fundamental
// snapshot, and cross-sectional z-scores feeding a composite rank.
package factors

import (
	"math"
	"sort"

	"github.com/equity-screener/esdata/data"
	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog/log"
)

// Return horizons and rolling windows in trading days.
const (
	days1M  = 21
	days3M  = 63
	days6M  = 126
	days12M = 252
)

// Options tunes the numeric policy of Compute.
type Options struct {
	// ZScoreFill is the value every member of a cross-sectional slice
	// receives when the slice deviation is zero or undefined. The zero
	// value keeps degenerate dates neutral.
	ZScoreFill float64
}

type tickerSeries struct {
	ticker string
	rows   []*data.FactorRow
	closes []float64
}

// Compute fills every derived factor column in place and returns the rows
// sorted by (Ticker, Date). Each factor family runs in a guarded block: a
// panic inside one family nulls that family's columns for the affected
// scope and the remaining families still run.
func Compute(rows []*data.FactorRow, opts Options) []*data.FactorRow {
	if len(rows) == 0 {
		return rows
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Ticker != rows[j].Ticker {
			return rows[i].Ticker < rows[j].Ticker
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	series := groupByTicker(rows)
	for _, s := range series {
		s := s
		guard("returns", s.ticker, func() { nullReturns(s.rows) }, func() { computeReturns(s) })
		guard("volatility", s.ticker, func() { nullVolatility(s.rows) }, func() { computeVolatility(s) })
		guard("trend", s.ticker, func() { nullTrend(s.rows) }, func() { computeTrend(s) })
		guard("macd", s.ticker, func() { nullMACD(s.rows) }, func() { computeMACD(s) })
		guard("bollinger", s.ticker, func() { nullBollinger(s.rows) }, func() { computeBollinger(s) })
	}

	guard("value", "", func() { nullValue(rows) }, func() { computeValue(rows) })

	// Division artifacts must not leak into the cross-sectional passes.
	sweepInf(rows)

	guard("quality", "", func() { nullQuality(rows) }, func() { computeQuality(rows, opts) })

	for _, s := range series {
		s := s
		guard("liquidity", s.ticker, func() { nullLiquidity(s.rows) }, func() { computeLiquidity(s) })
	}

	sweepInf(rows)

	guard("composite", "", func() { nullComposite(rows) }, func() { computeComposite(rows, opts) })

	return rows
}

// guard isolates one factor family. A panic nulls the family's columns for
// the rows it was working on; every other family still runs.
func guard(block, ticker string, null func(), fn func()) {
	defer func() {
		if r := recover(); r != nil {
			evt := log.Error().Any("Panic", r).Str("Block", block)
			if ticker != "" {
				evt = evt.Str("Ticker", ticker)
			}
			evt.Msg("factor block panicked, nulling its columns")
			null()
		}
	}()
	fn()
}

func groupByTicker(rows []*data.FactorRow) []*tickerSeries {
	var series []*tickerSeries
	var cur *tickerSeries
	for _, row := range rows {
		if cur == nil || row.Ticker != cur.ticker {
			cur = &tickerSeries{ticker: row.Ticker}
			series = append(series, cur)
		}
		cur.rows = append(cur.rows, row)
		cur.closes = append(cur.closes, row.Close)
	}
	return series
}

func computeReturns(s *tickerSeries) {
	r21 := pctChange(s.closes, days1M)
	r63 := pctChange(s.closes, days3M)
	r126 := pctChange(s.closes, days6M)
	r252 := pctChange(s.closes, days12M)
	for i, row := range s.rows {
		row.Return1M = zeroNaN(r21[i])
		row.Return3M = zeroNaN(r63[i])
		row.Return6M = zeroNaN(r126[i])
		row.Return12M = zeroNaN(r252[i])
		row.Momentum12_1 = zeroNaN(r252[i] - r21[i])
	}
}

func computeVolatility(s *tickerSeries) {
	daily := pctChange(s.closes, 1)
	vol21 := rollingStd(daily, days1M, minPeriods(days1M))
	vol63 := rollingStd(daily, days3M, minPeriods(days3M))
	vol252 := rollingStd(daily, days12M, minPeriods(days12M))
	for i, row := range s.rows {
		row.Vol21d = zeroNaN(vol21[i])
		row.Vol63d = zeroNaN(vol63[i])
		row.Vol252d = zeroNaN(vol252[i])
	}
}

func computeTrend(s *tickerSeries) {
	ma20 := smaOrZeros(s.closes, 20)
	ma50 := smaOrZeros(s.closes, 50)
	ma200 := smaOrZeros(s.closes, 200)
	rsi := rsiOrZeros(s.closes, 14)
	for i, row := range s.rows {
		row.MA20 = ma20[i]
		row.MA50 = ma50[i]
		row.MA200 = ma200[i]
		row.RSI14 = rsi[i]
	}
}

// computeMACD needs at least 26 closes; shorter histories keep the columns
// null. The line is the fast minus slow EMA spread, meaningful from index 25,
// while the histogram also waits out the 9-period signal EMA and starts at
// index 33. Rows inside those warm-ups stay null.
func computeMACD(s *tickerSeries) {
	nan := math.NaN()
	if len(s.closes) < 26 {
		for _, row := range s.rows {
			row.MACD, row.MACDh = nan, nan
		}
		return
	}

	fast := talib.Ema(s.closes, 12)
	slow := talib.Ema(s.closes, 26)
	_, _, hist := talib.Macd(s.closes, 12, 26, 9)
	for i, row := range s.rows {
		row.MACD, row.MACDh = nan, nan
		if i >= 25 {
			row.MACD = fast[i] - slow[i]
		}
		if i >= 33 {
			row.MACDh = hist[i]
		}
	}
}

func computeBollinger(s *tickerSeries) {
	nan := math.NaN()
	if len(s.closes) < 20 {
		for _, row := range s.rows {
			row.BBU20, row.BBL20 = nan, nan
		}
		return
	}

	upper, _, lower := talib.BBands(s.closes, 20, 2, 2, 0)
	for i, row := range s.rows {
		if i >= 19 {
			row.BBU20, row.BBL20 = upper[i], lower[i]
		} else {
			row.BBU20, row.BBL20 = nan, nan
		}
	}
}

func computeValue(rows []*data.FactorRow) {
	for _, row := range rows {
		row.EarningsYield = inverseOf(row.TrailingPE)
		row.BookToPrice = inverseOf(row.PriceToBook)
		row.PriceToSales = row.PriceToSalesTTM
	}
}

func computeQuality(rows []*data.FactorRow, opts Options) {
	for _, row := range rows {
		row.QualityScore = nanMean(row.ReturnOnEquity, row.ProfitMargins)
	}
	zscoreByDate(rows,
		func(row *data.FactorRow) float64 { return row.QualityScore },
		func(row *data.FactorRow, v float64) { row.NormQualityScore = v },
		opts.ZScoreFill)
}

func computeLiquidity(s *tickerSeries) {
	nan := math.NaN()
	daily := pctChange(s.closes, 1)

	volumes := make([]float64, len(s.rows))
	raw := make([]float64, len(s.rows))
	for i, row := range s.rows {
		volumes[i] = float64(row.Volume)
		raw[i] = math.Abs(daily[i]) / (float64(row.Volume) * s.closes[i])
	}

	avg := rollingMean(volumes, days1M, 5)
	illiq := rollingMean(raw, days1M, 5)

	for i, row := range s.rows {
		if row.MarketCap > 0 {
			row.LogMarketCap = math.Log(row.MarketCap)
		} else {
			row.LogMarketCap = nan
		}
		row.AvgVolume21d = zeroNaN(avg[i])
		if row.Volume == 0 {
			row.AmihudIlliq = nan
		} else {
			row.AmihudIlliq = illiq[i]
		}
	}
}

func computeComposite(rows []*data.FactorRow, opts Options) {
	zscoreByDate(rows,
		func(row *data.FactorRow) float64 { return row.Return12M },
		func(row *data.FactorRow, v float64) { row.ZReturn12M = v },
		opts.ZScoreFill)
	zscoreByDate(rows,
		func(row *data.FactorRow) float64 { return row.EarningsYield },
		func(row *data.FactorRow, v float64) { row.ZEarningsYld = v },
		opts.ZScoreFill)
	zscoreByDate(rows,
		func(row *data.FactorRow) float64 { return row.NormQualityScore },
		func(row *data.FactorRow, v float64) { row.ZNormQuality = v },
		opts.ZScoreFill)

	for _, row := range rows {
		row.FactorComposite = nanMean(row.ZReturn12M, row.ZEarningsYld, row.ZNormQuality)
	}
}

// talib panics when the series is shorter than the indicator period, and a
// series that short has no valid output anyway.
func smaOrZeros(closes []float64, period int) []float64 {
	if len(closes) < period {
		return make([]float64, len(closes))
	}
	return talib.Sma(closes, period)
}

func rsiOrZeros(closes []float64, period int) []float64 {
	if len(closes) < period+1 {
		return make([]float64, len(closes))
	}
	return talib.Rsi(closes, period)
}

func minPeriods(window int) int {
	mp := window / 3
	if mp < 2 {
		mp = 2
	}
	return mp
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// inverseOf guards the zero and missing cases of a ratio denominator.
func inverseOf(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return math.NaN()
	}
	return 1 / v
}

// nanMean averages the usable inputs; all missing yields NaN.
func nanMean(values ...float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// sweepInf replaces every ±infinity left behind by upstream division with
// NaN so aggregations and the database layer only see usable numbers.
func sweepInf(rows []*data.FactorRow) {
	for _, row := range rows {
		for _, f := range floatFields(row) {
			if math.IsInf(*f, 0) {
				*f = math.NaN()
			}
		}
	}
}

func floatFields(row *data.FactorRow) []*float64 {
	return []*float64{
		&row.Open, &row.High, &row.Low, &row.Close, &row.AdjClose,
		&row.ReturnOnEquity, &row.GrossMargins, &row.OperatingMargins, &row.ProfitMargins,
		&row.PriceToBook, &row.TrailingPE, &row.ForwardPE, &row.PriceToSalesTTM,
		&row.DebtToEquity, &row.CurrentRatio, &row.QuickRatio, &row.DividendYield,
		&row.MarketCap, &row.Beta, &row.AverageVolume,
		&row.Return1M, &row.Return3M, &row.Return6M, &row.Return12M, &row.Momentum12_1,
		&row.Vol21d, &row.Vol63d, &row.Vol252d,
		&row.MA20, &row.MA50, &row.MA200, &row.RSI14,
		&row.MACD, &row.MACDh, &row.BBU20, &row.BBL20,
		&row.EarningsYield, &row.BookToPrice, &row.PriceToSales,
		&row.QualityScore, &row.NormQualityScore,
		&row.LogMarketCap, &row.AvgVolume21d, &row.AmihudIlliq,
		&row.ZReturn12M, &row.ZEarningsYld, &row.ZNormQuality, &row.FactorComposite,
	}
}

func nullReturns(rows []*data.FactorRow) {
	nan := math.NaN()
	for _, row := range rows {
		row.Return1M, row.Return3M, row.Return6M, row.Return12M, row.Momentum12_1 = nan, nan, nan, nan, nan
	}
}

func nullVolatility(rows []*data.FactorRow) {
	nan := math.NaN()
	for _, row := range rows {
		row.Vol21d, row.Vol63d, row.Vol252d = nan, nan, nan
	}
}

func nullTrend(rows []*data.FactorRow) {
	nan := math.NaN()
	for _, row := range rows {
		row.MA20, row.MA50, row.MA200, row.RSI14 = nan, nan, nan, nan
	}
}

func nullMACD(rows []*data.FactorRow) {
	nan := math.NaN()
	for _, row := range rows {
		row.MACD, row.MACDh = nan, nan
	}
}

func nullBollinger(rows []*data.FactorRow) {
	nan := math.NaN()
	for _, row := range rows {
		row.BBU20, row.BBL20 = nan, nan
	}
}

func nullValue(rows []*data.FactorRow) {
	nan := math.NaN()
	for _, row := range rows {
		row.EarningsYield, row.BookToPrice, row.PriceToSales = nan, nan, nan
	}
}

func nullQuality(rows []*data.FactorRow) {
	nan := math.NaN()
	for _, row := range rows {
		row.QualityScore, row.NormQualityScore = nan, nan
	}
}

func nullLiquidity(rows []*data.FactorRow) {
	nan := math.NaN()
	for _, row := range rows {
		row.LogMarketCap, row.AvgVolume21d, row.AmihudIlliq = nan, nan, nan
	}
}

func nullComposite(rows []*data.FactorRow) {
	nan := math.NaN()
	for _, row := range rows {
		row.ZReturn12M, row.ZEarningsYld, row.ZNormQuality, row.FactorComposite = nan, nan, nan, nan
	}
}
