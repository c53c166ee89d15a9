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
	"time"

	"github.com/equity-screener/esdata/data"
	"gonum.org/v1/gonum/stat"
)

// zscoreByDate standardizes one column cross-sectionally: rows sharing a
// Date form a slice, and each value maps to (v - mean) / stddev within its
// slice. When the deviation is zero or undefined (a single ticker, or every
// ticker identical) every usable value maps to fill instead, so thin dates
// stay neutral rather than exploding. NaN inputs stay NaN.
func zscoreByDate(rows []*data.FactorRow, value func(*data.FactorRow) float64, assign func(*data.FactorRow, float64), fill float64) {
	groups := make(map[time.Time][]*data.FactorRow)
	for _, row := range rows {
		groups[row.Date] = append(groups[row.Date], row)
	}

	for _, group := range groups {
		usable := make([]float64, 0, len(group))
		for _, row := range group {
			if v := value(row); !math.IsNaN(v) {
				usable = append(usable, v)
			}
		}

		mean := stat.Mean(usable, nil)
		dev := stat.StdDev(usable, nil)
		degenerate := len(usable) < 2 || dev == 0 || math.IsNaN(dev)

		for _, row := range group {
			v := value(row)
			switch {
			case math.IsNaN(v):
			case degenerate:
				assign(row, fill)
			default:
				assign(row, (v-mean)/dev)
			}
		}
	}
}
