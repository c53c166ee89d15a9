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

	"github.com/goccy/go-json"
)

// FundamentalSnapshot holds the per-ticker ratio fields used by the factor
// engine. Numeric fields use NaN as the missing-value sentinel so that a
// snapshot always carries the full column set no matter which fields the
// upstream source returned; NaN becomes SQL NULL at the persistence boundary.
type FundamentalSnapshot struct {
	Ticker           string  `json:"ticker"`
	CompanyName      string  `json:"companyName"`
	ReturnOnEquity   float64 `json:"returnOnEquity"`
	GrossMargins     float64 `json:"grossMargins"`
	OperatingMargins float64 `json:"operatingMargins"`
	ProfitMargins    float64 `json:"profitMargins"`
	PriceToBook      float64 `json:"priceToBook"`
	TrailingPE       float64 `json:"trailingPE"`
	ForwardPE        float64 `json:"forwardPE"`
	PriceToSalesTTM  float64 `json:"priceToSalesTrailing12Months"`
	DebtToEquity     float64 `json:"debtToEquity"`
	CurrentRatio     float64 `json:"currentRatio"`
	QuickRatio       float64 `json:"quickRatio"`
	DividendYield    float64 `json:"dividendYield"`
	MarketCap        float64 `json:"marketCap"`
	Beta             float64 `json:"beta"`
	AverageVolume    float64 `json:"averageVolume"`
}

// NewFundamentalSnapshot returns a snapshot with every numeric field set to
// NaN so callers that fail to obtain data still produce a schema-complete row.
func NewFundamentalSnapshot(ticker string) *FundamentalSnapshot {
	nan := math.NaN()
	return &FundamentalSnapshot{
		Ticker:           ticker,
		ReturnOnEquity:   nan,
		GrossMargins:     nan,
		OperatingMargins: nan,
		ProfitMargins:    nan,
		PriceToBook:      nan,
		TrailingPE:       nan,
		ForwardPE:        nan,
		PriceToSalesTTM:  nan,
		DebtToEquity:     nan,
		CurrentRatio:     nan,
		QuickRatio:       nan,
		DividendYield:    nan,
		MarketCap:        nan,
		Beta:             nan,
		AverageVolume:    nan,
	}
}

// fundamentalJSON mirrors FundamentalSnapshot with pointer fields so NaN
// round-trips through JSON as null.
type fundamentalJSON struct {
	Ticker           string   `json:"ticker"`
	CompanyName      string   `json:"companyName,omitempty"`
	ReturnOnEquity   *float64 `json:"returnOnEquity"`
	GrossMargins     *float64 `json:"grossMargins"`
	OperatingMargins *float64 `json:"operatingMargins"`
	ProfitMargins    *float64 `json:"profitMargins"`
	PriceToBook      *float64 `json:"priceToBook"`
	TrailingPE       *float64 `json:"trailingPE"`
	ForwardPE        *float64 `json:"forwardPE"`
	PriceToSalesTTM  *float64 `json:"priceToSalesTrailing12Months"`
	DebtToEquity     *float64 `json:"debtToEquity"`
	CurrentRatio     *float64 `json:"currentRatio"`
	QuickRatio       *float64 `json:"quickRatio"`
	DividendYield    *float64 `json:"dividendYield"`
	MarketCap        *float64 `json:"marketCap"`
	Beta             *float64 `json:"beta"`
	AverageVolume    *float64 `json:"averageVolume"`
}

func toPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func fromPtr(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func (snap *FundamentalSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(&fundamentalJSON{
		Ticker:           snap.Ticker,
		CompanyName:      snap.CompanyName,
		ReturnOnEquity:   toPtr(snap.ReturnOnEquity),
		GrossMargins:     toPtr(snap.GrossMargins),
		OperatingMargins: toPtr(snap.OperatingMargins),
		ProfitMargins:    toPtr(snap.ProfitMargins),
		PriceToBook:      toPtr(snap.PriceToBook),
		TrailingPE:       toPtr(snap.TrailingPE),
		ForwardPE:        toPtr(snap.ForwardPE),
		PriceToSalesTTM:  toPtr(snap.PriceToSalesTTM),
		DebtToEquity:     toPtr(snap.DebtToEquity),
		CurrentRatio:     toPtr(snap.CurrentRatio),
		QuickRatio:       toPtr(snap.QuickRatio),
		DividendYield:    toPtr(snap.DividendYield),
		MarketCap:        toPtr(snap.MarketCap),
		Beta:             toPtr(snap.Beta),
		AverageVolume:    toPtr(snap.AverageVolume),
	})
}

func (snap *FundamentalSnapshot) UnmarshalJSON(raw []byte) error {
	var shadow fundamentalJSON
	if err := json.Unmarshal(raw, &shadow); err != nil {
		return err
	}

	snap.Ticker = shadow.Ticker
	snap.CompanyName = shadow.CompanyName
	snap.ReturnOnEquity = fromPtr(shadow.ReturnOnEquity)
	snap.GrossMargins = fromPtr(shadow.GrossMargins)
	snap.OperatingMargins = fromPtr(shadow.OperatingMargins)
	snap.ProfitMargins = fromPtr(shadow.ProfitMargins)
	snap.PriceToBook = fromPtr(shadow.PriceToBook)
	snap.TrailingPE = fromPtr(shadow.TrailingPE)
	snap.ForwardPE = fromPtr(shadow.ForwardPE)
	snap.PriceToSalesTTM = fromPtr(shadow.PriceToSalesTTM)
	snap.DebtToEquity = fromPtr(shadow.DebtToEquity)
	snap.CurrentRatio = fromPtr(shadow.CurrentRatio)
	snap.QuickRatio = fromPtr(shadow.QuickRatio)
	snap.DividendYield = fromPtr(shadow.DividendYield)
	snap.MarketCap = fromPtr(shadow.MarketCap)
	snap.Beta = fromPtr(shadow.Beta)
	snap.AverageVolume = fromPtr(shadow.AverageVolume)
	return nil
}

// Empty reports whether every numeric field is missing. Exhausted retries
// produce an empty snapshot; a single populated field makes it non-empty.
func (snap *FundamentalSnapshot) Empty() bool {
	for _, v := range []float64{
		snap.ReturnOnEquity, snap.GrossMargins, snap.OperatingMargins,
		snap.ProfitMargins, snap.PriceToBook, snap.TrailingPE, snap.ForwardPE,
		snap.PriceToSalesTTM, snap.DebtToEquity, snap.CurrentRatio,
		snap.QuickRatio, snap.DividendYield, snap.MarketCap, snap.Beta,
		snap.AverageVolume,
	} {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
