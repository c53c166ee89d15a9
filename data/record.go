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

// FactorRecord is the read-side view of a screening row. Factor columns are
// pointers so SQL NULL survives a scan and serializes back to JSON null, an
// empty CSV cell, or a parquet null; the write path (FactorRow) uses NaN for
// the same states. Date is a plain YYYY-MM-DD string so the same struct
// scans cleanly from every supported database.
type FactorRecord struct {
	Date     string   `db:"Date" json:"Date" csv:"Date" parquet:"name=Date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Ticker   string   `db:"Ticker" json:"Ticker" csv:"Ticker" parquet:"name=Ticker, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Open     *float64 `db:"Open" json:"Open" csv:"Open" parquet:"name=Open, type=DOUBLE, repetitiontype=OPTIONAL"`
	High     *float64 `db:"High" json:"High" csv:"High" parquet:"name=High, type=DOUBLE, repetitiontype=OPTIONAL"`
	Low      *float64 `db:"Low" json:"Low" csv:"Low" parquet:"name=Low, type=DOUBLE, repetitiontype=OPTIONAL"`
	Close    *float64 `db:"close_price" json:"close_price" csv:"close_price" parquet:"name=close_price, type=DOUBLE, repetitiontype=OPTIONAL"`
	AdjClose *float64 `db:"AdjClose" json:"AdjClose" csv:"AdjClose" parquet:"name=AdjClose, type=DOUBLE, repetitiontype=OPTIONAL"`
	Volume   int64    `db:"Volume" json:"Volume" csv:"Volume" parquet:"name=Volume, type=INT64"`

	CompanyName      string   `db:"CompanyName" json:"CompanyName" csv:"CompanyName" parquet:"name=CompanyName, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ReturnOnEquity   *float64 `db:"returnOnEquity" json:"returnOnEquity" csv:"returnOnEquity" parquet:"name=returnOnEquity, type=DOUBLE, repetitiontype=OPTIONAL"`
	GrossMargins     *float64 `db:"grossMargins" json:"grossMargins" csv:"grossMargins" parquet:"name=grossMargins, type=DOUBLE, repetitiontype=OPTIONAL"`
	OperatingMargins *float64 `db:"operatingMargins" json:"operatingMargins" csv:"operatingMargins" parquet:"name=operatingMargins, type=DOUBLE, repetitiontype=OPTIONAL"`
	ProfitMargins    *float64 `db:"profitMargins" json:"profitMargins" csv:"profitMargins" parquet:"name=profitMargins, type=DOUBLE, repetitiontype=OPTIONAL"`
	PriceToBook      *float64 `db:"priceToBook" json:"priceToBook" csv:"priceToBook" parquet:"name=priceToBook, type=DOUBLE, repetitiontype=OPTIONAL"`
	TrailingPE       *float64 `db:"trailingPE" json:"trailingPE" csv:"trailingPE" parquet:"name=trailingPE, type=DOUBLE, repetitiontype=OPTIONAL"`
	ForwardPE        *float64 `db:"forwardPE" json:"forwardPE" csv:"forwardPE" parquet:"name=forwardPE, type=DOUBLE, repetitiontype=OPTIONAL"`
	PriceToSalesTTM  *float64 `db:"priceToSalesTrailing12Months" json:"priceToSalesTrailing12Months" csv:"priceToSalesTrailing12Months" parquet:"name=priceToSalesTrailing12Months, type=DOUBLE, repetitiontype=OPTIONAL"`
	DebtToEquity     *float64 `db:"debtToEquity" json:"debtToEquity" csv:"debtToEquity" parquet:"name=debtToEquity, type=DOUBLE, repetitiontype=OPTIONAL"`
	CurrentRatio     *float64 `db:"currentRatio" json:"currentRatio" csv:"currentRatio" parquet:"name=currentRatio, type=DOUBLE, repetitiontype=OPTIONAL"`
	QuickRatio       *float64 `db:"quickRatio" json:"quickRatio" csv:"quickRatio" parquet:"name=quickRatio, type=DOUBLE, repetitiontype=OPTIONAL"`
	DividendYield    *float64 `db:"dividendYield" json:"dividendYield" csv:"dividendYield" parquet:"name=dividendYield, type=DOUBLE, repetitiontype=OPTIONAL"`
	MarketCap        *float64 `db:"marketCap" json:"marketCap" csv:"marketCap" parquet:"name=marketCap, type=DOUBLE, repetitiontype=OPTIONAL"`
	Beta             *float64 `db:"beta" json:"beta" csv:"beta" parquet:"name=beta, type=DOUBLE, repetitiontype=OPTIONAL"`
	AverageVolume    *float64 `db:"averageVolume" json:"averageVolume" csv:"averageVolume" parquet:"name=averageVolume, type=DOUBLE, repetitiontype=OPTIONAL"`

	Return1M     *float64 `db:"return_1m" json:"return_1m" csv:"return_1m" parquet:"name=return_1m, type=DOUBLE, repetitiontype=OPTIONAL"`
	Return3M     *float64 `db:"return_3m" json:"return_3m" csv:"return_3m" parquet:"name=return_3m, type=DOUBLE, repetitiontype=OPTIONAL"`
	Return6M     *float64 `db:"return_6m" json:"return_6m" csv:"return_6m" parquet:"name=return_6m, type=DOUBLE, repetitiontype=OPTIONAL"`
	Return12M    *float64 `db:"return_12m" json:"return_12m" csv:"return_12m" parquet:"name=return_12m, type=DOUBLE, repetitiontype=OPTIONAL"`
	Momentum12_1 *float64 `db:"momentum_12_1" json:"momentum_12_1" csv:"momentum_12_1" parquet:"name=momentum_12_1, type=DOUBLE, repetitiontype=OPTIONAL"`

	Vol21d  *float64 `db:"vol_21d" json:"vol_21d" csv:"vol_21d" parquet:"name=vol_21d, type=DOUBLE, repetitiontype=OPTIONAL"`
	Vol63d  *float64 `db:"vol_63d" json:"vol_63d" csv:"vol_63d" parquet:"name=vol_63d, type=DOUBLE, repetitiontype=OPTIONAL"`
	Vol252d *float64 `db:"vol_252d" json:"vol_252d" csv:"vol_252d" parquet:"name=vol_252d, type=DOUBLE, repetitiontype=OPTIONAL"`

	MA20  *float64 `db:"ma_20" json:"ma_20" csv:"ma_20" parquet:"name=ma_20, type=DOUBLE, repetitiontype=OPTIONAL"`
	MA50  *float64 `db:"ma_50" json:"ma_50" csv:"ma_50" parquet:"name=ma_50, type=DOUBLE, repetitiontype=OPTIONAL"`
	MA200 *float64 `db:"ma_200" json:"ma_200" csv:"ma_200" parquet:"name=ma_200, type=DOUBLE, repetitiontype=OPTIONAL"`
	RSI14 *float64 `db:"RSI_14" json:"RSI_14" csv:"RSI_14" parquet:"name=RSI_14, type=DOUBLE, repetitiontype=OPTIONAL"`
	MACD  *float64 `db:"MACD" json:"MACD" csv:"MACD" parquet:"name=MACD, type=DOUBLE, repetitiontype=OPTIONAL"`
	MACDh *float64 `db:"MACDh" json:"MACDh" csv:"MACDh" parquet:"name=MACDh, type=DOUBLE, repetitiontype=OPTIONAL"`
	BBU20 *float64 `db:"BBU_20" json:"BBU_20" csv:"BBU_20" parquet:"name=BBU_20, type=DOUBLE, repetitiontype=OPTIONAL"`
	BBL20 *float64 `db:"BBL_20" json:"BBL_20" csv:"BBL_20" parquet:"name=BBL_20, type=DOUBLE, repetitiontype=OPTIONAL"`

	EarningsYield *float64 `db:"earnings_yield" json:"earnings_yield" csv:"earnings_yield" parquet:"name=earnings_yield, type=DOUBLE, repetitiontype=OPTIONAL"`
	BookToPrice   *float64 `db:"book_to_price" json:"book_to_price" csv:"book_to_price" parquet:"name=book_to_price, type=DOUBLE, repetitiontype=OPTIONAL"`
	PriceToSales  *float64 `db:"price_to_sales" json:"price_to_sales" csv:"price_to_sales" parquet:"name=price_to_sales, type=DOUBLE, repetitiontype=OPTIONAL"`

	QualityScore     *float64 `db:"quality_score" json:"quality_score" csv:"quality_score" parquet:"name=quality_score, type=DOUBLE, repetitiontype=OPTIONAL"`
	NormQualityScore *float64 `db:"norm_quality_score" json:"norm_quality_score" csv:"norm_quality_score" parquet:"name=norm_quality_score, type=DOUBLE, repetitiontype=OPTIONAL"`

	LogMarketCap *float64 `db:"log_marketCap" json:"log_marketCap" csv:"log_marketCap" parquet:"name=log_marketCap, type=DOUBLE, repetitiontype=OPTIONAL"`
	AvgVolume21d *float64 `db:"avg_volume_21d" json:"avg_volume_21d" csv:"avg_volume_21d" parquet:"name=avg_volume_21d, type=DOUBLE, repetitiontype=OPTIONAL"`
	AmihudIlliq  *float64 `db:"amihud_illiquidity" json:"amihud_illiquidity" csv:"amihud_illiquidity" parquet:"name=amihud_illiquidity, type=DOUBLE, repetitiontype=OPTIONAL"`

	ZReturn12M      *float64 `db:"z_return_12m" json:"z_return_12m" csv:"z_return_12m" parquet:"name=z_return_12m, type=DOUBLE, repetitiontype=OPTIONAL"`
	ZEarningsYld    *float64 `db:"z_earnings_yield" json:"z_earnings_yield" csv:"z_earnings_yield" parquet:"name=z_earnings_yield, type=DOUBLE, repetitiontype=OPTIONAL"`
	ZNormQuality    *float64 `db:"z_norm_quality_score" json:"z_norm_quality_score" csv:"z_norm_quality_score" parquet:"name=z_norm_quality_score, type=DOUBLE, repetitiontype=OPTIONAL"`
	FactorComposite *float64 `db:"factor_composite" json:"factor_composite" csv:"factor_composite" parquet:"name=factor_composite, type=DOUBLE, repetitiontype=OPTIONAL"`
}
