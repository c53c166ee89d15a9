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

package factors

import (
	"math"

	"github.com/equity-screener/esdata/data"
)

// Round trims every numeric column to its fixed decimal precision, ties away
// from zero, so repeated runs over the same inputs write byte-identical rows.
// Null markers pass through untouched.
func Round(rows []*data.FactorRow) {
	for _, row := range rows {
		row.Open = roundTo(row.Open, 2)
		row.High = roundTo(row.High, 2)
		row.Low = roundTo(row.Low, 2)
		row.Close = roundTo(row.Close, 2)
		row.AdjClose = roundTo(row.AdjClose, 2)

		row.ReturnOnEquity = roundTo(row.ReturnOnEquity, 4)
		row.GrossMargins = roundTo(row.GrossMargins, 4)
		row.OperatingMargins = roundTo(row.OperatingMargins, 4)
		row.ProfitMargins = roundTo(row.ProfitMargins, 4)
		row.PriceToBook = roundTo(row.PriceToBook, 4)
		row.TrailingPE = roundTo(row.TrailingPE, 4)
		row.ForwardPE = roundTo(row.ForwardPE, 4)
		row.PriceToSalesTTM = roundTo(row.PriceToSalesTTM, 4)
		row.DebtToEquity = roundTo(row.DebtToEquity, 3)
		row.CurrentRatio = roundTo(row.CurrentRatio, 3)
		row.QuickRatio = roundTo(row.QuickRatio, 3)
		row.DividendYield = roundTo(row.DividendYield, 5)
		row.MarketCap = roundTo(row.MarketCap, 0)
		row.Beta = roundTo(row.Beta, 3)
		row.AverageVolume = roundTo(row.AverageVolume, 0)

		row.Return1M = roundTo(row.Return1M, 4)
		row.Return3M = roundTo(row.Return3M, 4)
		row.Return6M = roundTo(row.Return6M, 4)
		row.Return12M = roundTo(row.Return12M, 4)
		row.Momentum12_1 = roundTo(row.Momentum12_1, 4)

		row.Vol21d = roundTo(row.Vol21d, 5)
		row.Vol63d = roundTo(row.Vol63d, 5)
		row.Vol252d = roundTo(row.Vol252d, 5)

		row.MA20 = roundTo(row.MA20, 3)
		row.MA50 = roundTo(row.MA50, 3)
		row.MA200 = roundTo(row.MA200, 3)
		row.RSI14 = roundTo(row.RSI14, 2)
		row.MACD = roundTo(row.MACD, 3)
		row.MACDh = roundTo(row.MACDh, 3)
		row.BBU20 = roundTo(row.BBU20, 2)
		row.BBL20 = roundTo(row.BBL20, 2)

		row.EarningsYield = roundTo(row.EarningsYield, 5)
		row.BookToPrice = roundTo(row.BookToPrice, 5)
		row.PriceToSales = roundTo(row.PriceToSales, 4)

		row.QualityScore = roundTo(row.QualityScore, 4)
		row.NormQualityScore = roundTo(row.NormQualityScore, 4)

		row.LogMarketCap = roundTo(row.LogMarketCap, 3)
		row.AvgVolume21d = roundTo(row.AvgVolume21d, 0)
		row.AmihudIlliq = roundTo(row.AmihudIlliq, 7)

		row.ZReturn12M = roundTo(row.ZReturn12M, 4)
		row.ZEarningsYld = roundTo(row.ZEarningsYld, 4)
		row.ZNormQuality = roundTo(row.ZNormQuality, 4)
		row.FactorComposite = roundTo(row.FactorComposite, 4)
	}
}

func roundTo(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	factor := math.Pow10(places)
	return math.Round(v*factor) / factor
}
