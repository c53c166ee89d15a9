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

package store_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/equity-screener/esdata/store"
)

var _ = Describe("Dialect", func() {
	Describe("ParseDialect", func() {
		It("maps DSN schemes onto dialects", func() {
			Expect(store.ParseDialect("postgres")).To(Equal(store.DialectPostgres))
			Expect(store.ParseDialect("postgresql")).To(Equal(store.DialectPostgres))
			Expect(store.ParseDialect("sqlite")).To(Equal(store.DialectSQLite))
			Expect(store.ParseDialect("file")).To(Equal(store.DialectSQLite))
			Expect(store.ParseDialect("mysql")).To(Equal(store.DialectMySQL))
			Expect(store.ParseDialect("oracle")).To(Equal(store.DialectGeneric))
			Expect(store.ParseDialect("")).To(Equal(store.DialectGeneric))
		})
	})

	Describe("QuoteIdent", func() {
		It("doubles embedded quotes so identifiers cannot break out", func() {
			quoted := store.DialectPostgres.QuoteIdent(`tbl"; DROP TABLE other; --`)
			Expect(quoted).To(Equal(`"tbl""; DROP TABLE other; --"`))
		})

		It("uses backticks on mysql", func() {
			quoted := store.DialectMySQL.QuoteIdent("weird`name")
			Expect(quoted).To(Equal("`weird``name`"))
		})
	})

	Describe("Placeholder", func() {
		It("numbers parameters on postgres only", func() {
			Expect(store.DialectPostgres.Placeholder(3)).To(Equal("$3"))
			Expect(store.DialectSQLite.Placeholder(3)).To(Equal("?"))
			Expect(store.DialectMySQL.Placeholder(1)).To(Equal("?"))
		})
	})

	Describe("ColumnType", func() {
		It("maps Date by name regardless of value kind", func() {
			Expect(store.DialectPostgres.ColumnType("Date", store.KindTime, false)).To(Equal("DATE"))
			Expect(store.DialectMySQL.ColumnType("Date", store.KindString, false)).To(Equal("DATE"))
		})

		It("promotes wide integers to BIGINT", func() {
			Expect(store.DialectPostgres.ColumnType("Volume", store.KindInt, false)).To(Equal("INTEGER"))
			Expect(store.DialectPostgres.ColumnType("Volume", store.KindInt, true)).To(Equal("BIGINT"))
		})

		It("keeps string keys indexable on mysql", func() {
			Expect(store.DialectMySQL.ColumnType("Ticker", store.KindString, false)).To(Equal("VARCHAR(255)"))
			Expect(store.DialectPostgres.ColumnType("Ticker", store.KindString, false)).To(Equal("TEXT"))
		})
	})

	Describe("UpsertSQL", func() {
		cols := []string{"Date", "Ticker", "close_price"}
		keys := []string{"Date", "Ticker"}

		It("builds ON CONFLICT DO UPDATE for postgres", func() {
			sql, native := store.DialectPostgres.UpsertSQL("financial_tbl", cols, keys)
			Expect(native).To(BeTrue())
			Expect(sql).To(Equal(`INSERT INTO "financial_tbl" ("Date", "Ticker", "close_price") VALUES ($1, $2, $3) ON CONFLICT ("Date", "Ticker") DO UPDATE SET "close_price"=excluded."close_price"`))
		})

		It("builds ON DUPLICATE KEY UPDATE for mysql", func() {
			sql, native := store.DialectMySQL.UpsertSQL("financial_tbl", cols, keys)
			Expect(native).To(BeTrue())
			Expect(sql).To(Equal("INSERT INTO `financial_tbl` (`Date`, `Ticker`, `close_price`) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE `close_price`=VALUES(`close_price`)"))
		})

		It("falls back to a plain insert for the generic dialect", func() {
			sql, native := store.DialectGeneric.UpsertSQL("financial_tbl", cols, keys)
			Expect(native).To(BeFalse())
			Expect(sql).To(Equal(`INSERT INTO "financial_tbl" ("Date", "Ticker", "close_price") VALUES (?, ?, ?)`))
		})
	})

	Describe("DeleteByKeySQL", func() {
		It("parameterizes every key column", func() {
			sql := store.DialectGeneric.DeleteByKeySQL("financial_tbl", []string{"Date", "Ticker"})
			Expect(sql).To(Equal(`DELETE FROM "financial_tbl" WHERE "Date" = ? AND "Ticker" = ?`))
		})
	})
})
