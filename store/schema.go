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

package store

import (
	"math"
	"time"
)

// ValueKind classifies a column's Go values for schema inference.
type ValueKind int

const (
	KindUnknown ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindTime
	KindString
)

type columnSpec struct {
	Kind   ValueKind
	BigInt bool
}

// inferColumns inspects the sampled rows and classifies every column. A
// column whose values are all nil (or all NaN floats still count as floats)
// stays unknown and later maps to TEXT. Integer columns promote to BIGINT as
// soon as one value leaves the signed 32-bit range.
func inferColumns(cols []string, rows [][]any) []columnSpec {
	specs := make([]columnSpec, len(cols))

	for _, row := range rows {
		for i := range cols {
			if i >= len(row) {
				continue
			}

			switch v := row[i].(type) {
			case nil:
			case bool:
				specs[i].Kind = KindBool
			case int:
				specs[i].Kind = KindInt
				if v > math.MaxInt32 || v < math.MinInt32 {
					specs[i].BigInt = true
				}
			case int32:
				specs[i].Kind = KindInt
			case int64:
				specs[i].Kind = KindInt
				if v > math.MaxInt32 || v < math.MinInt32 {
					specs[i].BigInt = true
				}
			case float32:
				specs[i].Kind = KindFloat
			case float64:
				specs[i].Kind = KindFloat
			case time.Time:
				specs[i].Kind = KindTime
			case string:
				specs[i].Kind = KindString
			default:
				specs[i].Kind = KindString
			}
		}
	}

	return specs
}
