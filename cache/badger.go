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

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/equity-screener/esdata/data"
)

// Badger stores envelopes in an embedded badger database. Values carry a
// write-time TTL so stale entries age out of the value log on their own;
// freshness at read time is still judged against the caller's expiry, which
// may be shorter than the retention bound.
type Badger struct {
	db  *badger.DB
	ttl time.Duration
}

func NewBadger(dir string, ttl time.Duration) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db, ttl: ttl}, nil
}

func badgerKey(ticker string) []byte {
	return []byte("fundamentals:" + ticker)
}

func (b *Badger) Load(_ context.Context, ticker string, expiry time.Duration) (*data.FundamentalSnapshot, bool) {
	var entry envelope

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(ticker))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			log.Warn().Err(err).Str("Ticker", ticker).Msg("discarding unreadable cache entry")
		}
		return nil, false
	}

	if !entry.fresh(expiry) || entry.Data == nil {
		return nil, false
	}
	return entry.Data, true
}

func (b *Badger) Save(_ context.Context, ticker string, snap *data.FundamentalSnapshot) {
	if snap == nil {
		return
	}

	entry := envelope{
		Timestamp: time.Now(),
		Data:      snap,
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Str("Ticker", ticker).Msg("could not marshal cache entry")
		return
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(badgerKey(ticker), raw)
		if b.ttl > 0 {
			e = e.WithTTL(b.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		log.Warn().Err(err).Str("Ticker", ticker).Msg("could not write cache entry")
	}
}

func (b *Badger) Clear(_ context.Context, ticker string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(ticker))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *Badger) ClearAll(_ context.Context) error {
	return b.db.DropAll()
}

func (b *Badger) Close() error {
	return b.db.Close()
}
