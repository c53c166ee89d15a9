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
package data

import (
	"math"
	"time"
)

// FactorRow is one (Date, Ticker) row of the screening table: the merged
// price and fundamental inputs plus every derived factor column. Derived
// fields start as NaN and are filled by the factor engine; NaN maps to SQL
// NULL when the row is persisted. The close column persists as close_price.
type FactorRow struct {
	Date     time.Time
	Ticker   string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64

	CompanyName      string
	ReturnOnEquity   float64
	GrossMargins     float64
	OperatingMargins float64
	ProfitMargins    float64
	PriceToBook      float64
	TrailingPE       float64
	ForwardPE        float64
	PriceToSalesTTM  float64
	DebtToEquity     float64
	CurrentRatio     float64
	QuickRatio       float64
	DividendYield    float64
	MarketCap        float64
	Beta             float64
	AverageVolume    float64

	Return1M     float64
	Return3M     float64
	Return6M     float64
	Return12M    float64
	Momentum12_1 float64

	Vol21d  float64
	Vol63d  float64
	Vol252d float64

	MA20  float64
	MA50  float64
	MA200 float64
	RSI14 float64
	MACD  float64
	MACDh float64
	BBU20 float64
	BBL20 float64

	EarningsYield float64
	BookToPrice   float64
	PriceToSales  float64

	QualityScore     float64
	NormQualityScore float64

	LogMarketCap    float64
	AvgVolume21d    float64
	AmihudIlliq     float64
	ZReturn12M      float64
	ZEarningsYld    float64
	ZNormQuality    float64
	FactorComposite float64
}

// FactorColumns is the persisted column order of the screening table. The
// first two entries form the conflict key for upserts.
var FactorColumns = []string{
	"Date", "Ticker",
	"Open", "High", "Low", "close_price", "AdjClose", "Volume",
	"CompanyName",
	"returnOnEquity", "grossMargins", "operatingMargins", "profitMargins",
	"priceToBook", "trailingPE", "forwardPE", "priceToSalesTrailing12Months",
	"debtToEquity", "currentRatio", "quickRatio", "dividendYield",
	"marketCap", "beta", "averageVolume",
	"return_1m", "return_3m", "return_6m", "return_12m", "momentum_12_1",
	"vol_21d", "vol_63d", "vol_252d",
	"ma_20", "ma_50", "ma_200", "RSI_14", "MACD", "MACDh", "BBU_20", "BBL_20",
	"earnings_yield", "book_to_price", "price_to_sales",
	"quality_score", "norm_quality_score",
	"log_marketCap", "avg_volume_21d", "amihud_illiquidity",
	"z_return_12m", "z_earnings_yield", "z_norm_quality_score",
	"factor_composite",
}

// FactorKeyColumns is the unique key identifying one screening row.
var FactorKeyColumns = []string{"Date", "Ticker"}

// Values returns the row's column values aligned with FactorColumns.
func (row *FactorRow) Values() []any {
	return []any{
		row.Date, row.Ticker,
		row.Open, row.High, row.Low, row.Close, row.AdjClose, row.Volume,
		row.CompanyName,
		row.ReturnOnEquity, row.GrossMargins, row.OperatingMargins, row.ProfitMargins,
		row.PriceToBook, row.TrailingPE, row.ForwardPE, row.PriceToSalesTTM,
		row.DebtToEquity, row.CurrentRatio, row.QuickRatio, row.DividendYield,
		row.MarketCap, row.Beta, row.AverageVolume,
		row.Return1M, row.Return3M, row.Return6M, row.Return12M, row.Momentum12_1,
		row.Vol21d, row.Vol63d, row.Vol252d,
		row.MA20, row.MA50, row.MA200, row.RSI14, row.MACD, row.MACDh, row.BBU20, row.BBL20,
		row.EarningsYield, row.BookToPrice, row.PriceToSales,
		row.QualityScore, row.NormQualityScore,
		row.LogMarketCap, row.AvgVolume21d, row.AmihudIlliq,
		row.ZReturn12M, row.ZEarningsYld, row.ZNormQuality,
		row.FactorComposite,
	}
}

// Combine left-joins price bars to fundamental snapshots on Ticker. Every
// price bar survives the join; a ticker without a snapshot (or with a
// snapshot missing fields) still yields a row carrying the full fundamental
// column set with NaN placeholders, keeping the persisted schema stable.
func Combine(prices []*PriceBar, fundamentals []*FundamentalSnapshot) []*FactorRow {
	byTicker := make(map[string]*FundamentalSnapshot, len(fundamentals))
	for _, snap := range fundamentals {
		byTicker[snap.Ticker] = snap
	}

	nan := math.NaN()
	rows := make([]*FactorRow, 0, len(prices))
	for _, bar := range prices {
		snap, ok := byTicker[bar.Ticker]
		if !ok {
			snap = NewFundamentalSnapshot(bar.Ticker)
		}

		rows = append(rows, &FactorRow{
			Date:     bar.Date,
			Ticker:   bar.Ticker,
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			AdjClose: bar.AdjClose,
			Volume:   bar.Volume,

			CompanyName:      snap.CompanyName,
			ReturnOnEquity:   snap.ReturnOnEquity,
			GrossMargins:     snap.GrossMargins,
			OperatingMargins: snap.OperatingMargins,
			ProfitMargins:    snap.ProfitMargins,
			PriceToBook:      snap.PriceToBook,
			TrailingPE:       snap.TrailingPE,
			ForwardPE:        snap.ForwardPE,
			PriceToSalesTTM:  snap.PriceToSalesTTM,
			DebtToEquity:     snap.DebtToEquity,
			CurrentRatio:     snap.CurrentRatio,
			QuickRatio:       snap.QuickRatio,
			DividendYield:    snap.DividendYield,
			MarketCap:        snap.MarketCap,
			Beta:             snap.Beta,
			AverageVolume:    snap.AverageVolume,

			Return1M: nan, Return3M: nan, Return6M: nan, Return12M: nan,
			Momentum12_1: nan,
			Vol21d:       nan, Vol63d: nan, Vol252d: nan,
			MA20: nan, MA50: nan, MA200: nan, RSI14: nan,
			MACD: nan, MACDh: nan, BBU20: nan, BBL20: nan,
			EarningsYield: nan, BookToPrice: nan, PriceToSales: nan,
			QualityScore: nan, NormQualityScore: nan,
			LogMarketCap: nan, AvgVolume21d: nan, AmihudIlliq: nan,
			ZReturn12M: nan, ZEarningsYld: nan, ZNormQuality: nan,
			FactorComposite: nan,
		})
	}

	return rows
}
