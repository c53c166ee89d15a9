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
	"errors"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

var ErrEmptyUniverse = errors.New("universe contains no tickers")

// UniverseEntry is one screening candidate as listed in the universe CSV.
type UniverseEntry struct {
	Ticker string `csv:"ticker"`
	Name   string `csv:"name"`
}

// Universe is the ordered set of tickers a pipeline run covers.
type Universe struct {
	Entries []*UniverseEntry
}

// LoadUniverse reads a universe CSV with a ticker,name header. Blank tickers
// are dropped; duplicates keep their first position.
func LoadUniverse(fn string) (*Universe, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var entries []*UniverseEntry
	if err := gocsv.UnmarshalFile(fh, &entries); err != nil {
		return nil, err
	}

	return newUniverse(entries)
}

// UniverseFromTickers builds a universe from a bare symbol list, for
// configurations that inline tickers instead of pointing at a CSV.
func UniverseFromTickers(tickers []string) (*Universe, error) {
	entries := make([]*UniverseEntry, 0, len(tickers))
	for _, ticker := range tickers {
		entries = append(entries, &UniverseEntry{Ticker: ticker})
	}
	return newUniverse(entries)
}

func newUniverse(entries []*UniverseEntry) (*Universe, error) {
	seen := make(map[string]bool, len(entries))
	kept := make([]*UniverseEntry, 0, len(entries))

	for _, entry := range entries {
		ticker := strings.TrimSpace(entry.Ticker)
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		kept = append(kept, &UniverseEntry{Ticker: ticker, Name: strings.TrimSpace(entry.Name)})
	}

	if len(kept) == 0 {
		return nil, ErrEmptyUniverse
	}

	return &Universe{Entries: kept}, nil
}

// Tickers returns the universe's symbols in order.
func (universe *Universe) Tickers() []string {
	tickers := make([]string, 0, len(universe.Entries))
	for _, entry := range universe.Entries {
		tickers = append(tickers, entry.Ticker)
	}
	return tickers
}

func (universe *Universe) Len() int {
	return len(universe.Entries)
}
