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

package factors_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/factors"
)

var _ = Describe("Round", func() {
	It("applies the per-column precision", func() {
		row := &data.FactorRow{
			Close:         101.4567,
			TrailingPE:    12.34567,
			DebtToEquity:  1.23456,
			DividendYield: 0.0312345678,
			MarketCap:     2.5e10 + 0.4,
			AverageVolume: 12345.6,
			Return1M:      0.123456,
			Vol21d:        0.0123456,
			MA20:          109.8766,
			RSI14:         55.554,
			MACD:          1.23456,
			BBU20:         104.567,
			EarningsYield: 0.1234567,
			QualityScore:  0.152345,
			LogMarketCap:  23.94212,
			AvgVolume21d:  5000.4,
			AmihudIlliq:   0.000012341234,
		}
		factors.Round([]*data.FactorRow{row})

		Expect(row.Close).To(BeNumerically("~", 101.46, 1e-9))
		Expect(row.TrailingPE).To(BeNumerically("~", 12.3457, 1e-9))
		Expect(row.DebtToEquity).To(BeNumerically("~", 1.235, 1e-9))
		Expect(row.DividendYield).To(BeNumerically("~", 0.03123, 1e-9))
		Expect(row.MarketCap).To(BeNumerically("~", 2.5e10, 1e-6))
		Expect(row.AverageVolume).To(BeNumerically("~", 12346, 1e-9))
		Expect(row.Return1M).To(BeNumerically("~", 0.1235, 1e-9))
		Expect(row.Vol21d).To(BeNumerically("~", 0.01235, 1e-9))
		Expect(row.MA20).To(BeNumerically("~", 109.877, 1e-9))
		Expect(row.RSI14).To(BeNumerically("~", 55.55, 1e-9))
		Expect(row.MACD).To(BeNumerically("~", 1.235, 1e-9))
		Expect(row.BBU20).To(BeNumerically("~", 104.57, 1e-9))
		Expect(row.EarningsYield).To(BeNumerically("~", 0.12346, 1e-9))
		Expect(row.QualityScore).To(BeNumerically("~", 0.1523, 1e-9))
		Expect(row.LogMarketCap).To(BeNumerically("~", 23.942, 1e-9))
		Expect(row.AvgVolume21d).To(BeNumerically("~", 5000, 1e-9))
		Expect(row.AmihudIlliq).To(BeNumerically("~", 0.0000123, 1e-12))
	})

	It("rounds ties away from zero", func() {
		row := &data.FactorRow{MarketCap: 2.5, Beta: -1.23456}
		factors.Round([]*data.FactorRow{row})

		Expect(row.MarketCap).To(BeNumerically("==", 3))
		Expect(row.Beta).To(BeNumerically("~", -1.235, 1e-9))
	})

	It("passes null markers through untouched", func() {
		row := &data.FactorRow{
			MACD:            math.NaN(),
			EarningsYield:   math.NaN(),
			FactorComposite: math.NaN(),
		}
		factors.Round([]*data.FactorRow{row})

		Expect(math.IsNaN(row.MACD)).To(BeTrue())
		Expect(math.IsNaN(row.EarningsYield)).To(BeTrue())
		Expect(math.IsNaN(row.FactorComposite)).To(BeTrue())
	})

	It("keeps a computed batch idempotent under repeated rounding", func() {
		bars := priceSeries("VOD.L", 60, sawtoothClose, steadyVolume)
		snap := snapshotWith("VOD.L", func(s *data.FundamentalSnapshot) {
			s.TrailingPE = 12.5
			s.ReturnOnEquity = 0.15
			s.MarketCap = 2.5e10
		})
		rows := factors.Compute(data.Combine(bars, []*data.FundamentalSnapshot{snap}), factors.Options{})
		factors.Round(rows)

		before := make([]data.FactorRow, len(rows))
		for i, row := range rows {
			before[i] = *row
		}

		factors.Round(rows)
		for i, row := range rows {
			Expect(row.Close).To(BeNumerically("==", before[i].Close))
			Expect(row.Return1M).To(BeNumerically("==", before[i].Return1M))
			Expect(row.Vol21d).To(BeNumerically("==", before[i].Vol21d))
			Expect(row.MA20).To(BeNumerically("==", before[i].MA20))
		}
	})
})
