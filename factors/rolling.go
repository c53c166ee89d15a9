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

	"gonum.org/v1/gonum/stat"
)

// pctChange returns the fractional change over the given horizon. Positions
// without enough history are NaN; a zero base divides through naturally and
// the resulting infinity is handled by the caller's sweep.
func pctChange(values []float64, periods int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < periods {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-periods] - 1
	}
	return out
}

// window returns the trailing slice of non-NaN values ending at position i.
func window(values []float64, i, size int) []float64 {
	start := i - size + 1
	if start < 0 {
		start = 0
	}

	out := make([]float64, 0, size)
	for _, v := range values[start : i+1] {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// rollingStd is the trailing sample standard deviation. Positions with fewer
// than minPeriods usable values are NaN; the caller chooses the fill.
func rollingStd(values []float64, size, minPeriods int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		win := window(values, i, size)
		if len(win) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(win, nil)
	}
	return out
}

// rollingMean is the trailing mean over non-NaN values with the same
// minPeriods convention as rollingStd.
func rollingMean(values []float64, size, minPeriods int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		win := window(values, i, size)
		if len(win) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Mean(win, nil)
	}
	return out
}
