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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/equity-screener/esdata/data"
)

var _ = Describe("guard", func() {
	It("nulls the family columns when the block panics", func() {
		rows := []*data.FactorRow{{Return1M: 0.5, Return12M: 1.2, Momentum12_1: 0.7}}
		guard("returns", "TEST.L", func() { nullReturns(rows) }, func() { panic("indicator blew up") })

		Expect(math.IsNaN(rows[0].Return1M)).To(BeTrue())
		Expect(math.IsNaN(rows[0].Return12M)).To(BeTrue())
		Expect(math.IsNaN(rows[0].Momentum12_1)).To(BeTrue())
	})

	It("keeps the results of a block that completes", func() {
		rows := []*data.FactorRow{{Return1M: 0.5}}
		guard("returns", "TEST.L", func() { nullReturns(rows) }, func() {})

		Expect(rows[0].Return1M).To(BeNumerically("==", 0.5))
	})
})

var _ = Describe("numeric helpers", func() {
	It("derives minimum periods as a third of the window", func() {
		Expect(minPeriods(21)).To(Equal(7))
		Expect(minPeriods(63)).To(Equal(21))
		Expect(minPeriods(252)).To(Equal(84))
		Expect(minPeriods(3)).To(Equal(2))
	})

	It("guards inverse ratios", func() {
		Expect(inverseOf(10)).To(BeNumerically("~", 0.1, 1e-12))
		Expect(math.IsNaN(inverseOf(0))).To(BeTrue())
		Expect(math.IsNaN(inverseOf(math.NaN()))).To(BeTrue())
	})

	It("averages only the usable inputs", func() {
		Expect(nanMean(1, 3)).To(BeNumerically("==", 2))
		Expect(nanMean(2, math.NaN())).To(BeNumerically("==", 2))
		Expect(math.IsNaN(nanMean(math.NaN(), math.NaN()))).To(BeTrue())
	})

	It("sweeps infinities but not finite values", func() {
		row := &data.FactorRow{Return12M: math.Inf(1), AmihudIlliq: math.Inf(-1), Close: 101.5}
		sweepInf([]*data.FactorRow{row})

		Expect(math.IsNaN(row.Return12M)).To(BeTrue())
		Expect(math.IsNaN(row.AmihudIlliq)).To(BeTrue())
		Expect(row.Close).To(BeNumerically("==", 101.5))
	})
})
