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

package cache_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/equity-screener/esdata/cache"
	"github.com/equity-screener/esdata/data"
)

func sampleSnapshot(ticker string) *data.FundamentalSnapshot {
	snap := data.NewFundamentalSnapshot(ticker)
	snap.CompanyName = "Sample Corp"
	snap.TrailingPE = 18.5
	snap.ReturnOnEquity = 0.22
	snap.MarketCap = 1.5e9
	return snap
}

// backendCase builds a fresh store per spec so the shared behaviors below run
// against every backend.
type backendCase struct {
	name  string
	build func() cache.Store
}

var _ = Describe("Store", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	cases := []backendCase{
		{
			name: "memory",
			build: func() cache.Store {
				return cache.NewMemory()
			},
		},
		{
			name: "file",
			build: func() cache.Store {
				store, err := cache.NewFile(GinkgoT().TempDir())
				Expect(err).To(BeNil())
				return store
			},
		},
		{
			name: "badger",
			build: func() cache.Store {
				store, err := cache.NewBadger(GinkgoT().TempDir(), time.Hour)
				Expect(err).To(BeNil())
				return store
			},
		},
	}

	for _, tc := range cases {
		tc := tc

		Context("backend: "+tc.name, func() {
			var store cache.Store

			BeforeEach(func() {
				store = tc.build()
			})

			AfterEach(func() {
				Expect(store.Close()).To(Succeed())
			})

			It("misses on tickers it has never seen", func() {
				snap, ok := store.Load(ctx, "MSFT", time.Hour)
				Expect(ok).To(BeFalse())
				Expect(snap).To(BeNil())
			})

			It("round-trips a snapshot inside the freshness horizon", func() {
				store.Save(ctx, "AAPL", sampleSnapshot("AAPL"))

				snap, ok := store.Load(ctx, "AAPL", time.Hour)
				Expect(ok).To(BeTrue())
				Expect(snap.Ticker).To(Equal("AAPL"))
				Expect(snap.CompanyName).To(Equal("Sample Corp"))
				Expect(snap.TrailingPE).To(BeNumerically("~", 18.5, 1e-9))
				Expect(math.IsNaN(snap.PriceToBook)).To(BeTrue())
			})

			It("treats a zero expiry as always stale", func() {
				store.Save(ctx, "AAPL", sampleSnapshot("AAPL"))

				_, ok := store.Load(ctx, "AAPL", 0)
				Expect(ok).To(BeFalse())
			})

			It("forgets a cleared ticker but keeps the rest", func() {
				store.Save(ctx, "AAPL", sampleSnapshot("AAPL"))
				store.Save(ctx, "MSFT", sampleSnapshot("MSFT"))

				Expect(store.Clear(ctx, "AAPL")).To(Succeed())

				_, ok := store.Load(ctx, "AAPL", time.Hour)
				Expect(ok).To(BeFalse())

				snap, ok := store.Load(ctx, "MSFT", time.Hour)
				Expect(ok).To(BeTrue())
				Expect(snap.Ticker).To(Equal("MSFT"))
			})

			It("clearing an absent ticker is not an error", func() {
				Expect(store.Clear(ctx, "NOPE")).To(Succeed())
			})

			It("drops everything on ClearAll", func() {
				store.Save(ctx, "AAPL", sampleSnapshot("AAPL"))
				store.Save(ctx, "MSFT", sampleSnapshot("MSFT"))

				Expect(store.ClearAll(ctx)).To(Succeed())

				_, ok := store.Load(ctx, "AAPL", time.Hour)
				Expect(ok).To(BeFalse())
				_, ok = store.Load(ctx, "MSFT", time.Hour)
				Expect(ok).To(BeFalse())
			})

			It("overwrites with last-write-wins", func() {
				first := sampleSnapshot("AAPL")
				first.TrailingPE = 10

				second := sampleSnapshot("AAPL")
				second.TrailingPE = 30

				store.Save(ctx, "AAPL", first)
				store.Save(ctx, "AAPL", second)

				snap, ok := store.Load(ctx, "AAPL", time.Hour)
				Expect(ok).To(BeTrue())
				Expect(snap.TrailingPE).To(BeNumerically("~", 30, 1e-9))
			})
		})
	}

	Describe("file backend specifics", func() {
		It("treats a corrupt entry as a miss", func() {
			dir := GinkgoT().TempDir()
			store, err := cache.NewFile(dir)
			Expect(err).To(BeNil())

			store.Save(ctx, "AAPL", sampleSnapshot("AAPL"))

			entries, err := os.ReadDir(dir)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(1))

			err = os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("{not json"), 0644)
			Expect(err).To(BeNil())

			_, ok := store.Load(ctx, "AAPL", time.Hour)
			Expect(ok).To(BeFalse())
		})

		It("sanitizes tickers with path-unfriendly characters", func() {
			dir := GinkgoT().TempDir()
			store, err := cache.NewFile(dir)
			Expect(err).To(BeNil())

			store.Save(ctx, "BRK.B", sampleSnapshot("BRK.B"))

			snap, ok := store.Load(ctx, "BRK.B", time.Hour)
			Expect(ok).To(BeTrue())
			Expect(snap.Ticker).To(Equal("BRK.B"))
		})
	})

	Describe("factory", func() {
		It("rejects unknown backends", func() {
			_, err := cache.New("redis", "", time.Hour)
			Expect(err).To(HaveOccurred())
		})

		It("defaults to the file backend", func() {
			store, err := cache.New("", GinkgoT().TempDir(), time.Hour)
			Expect(err).To(BeNil())
			_, isFile := store.(*cache.File)
			Expect(isFile).To(BeTrue())
		})
	})
})
