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

// Package cache stores fundamentals snapshots between pipeline runs so that
// repeated invocations inside the freshness horizon skip the network
// entirely. Backends are interchangeable: an in-process map for tests and
// one-shot runs, a JSON-file-per-ticker directory for simple persistence,
// and badger for daemon deployments.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/equity-screener/esdata/data"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Store is the pluggable snapshot cache. Load treats absent, corrupt and
// expired entries uniformly as misses and never returns an error; Save is
// best-effort and logs failures instead of propagating them. Implementations
// are safe for concurrent use with last-write-wins semantics per ticker.
type Store interface {
	Load(ctx context.Context, ticker string, expiry time.Duration) (*data.FundamentalSnapshot, bool)
	Save(ctx context.Context, ticker string, snap *data.FundamentalSnapshot)
	Clear(ctx context.Context, ticker string) error
	ClearAll(ctx context.Context) error
	Close() error
}

// envelope wraps a snapshot with the instant it was written. Freshness is
// always judged at read time against the caller's expiry so the same cache
// directory can serve runs with different horizons.
type envelope struct {
	Timestamp time.Time                 `json:"timestamp"`
	Data      *data.FundamentalSnapshot `json:"data"`
}

func (e *envelope) fresh(expiry time.Duration) bool {
	if expiry <= 0 {
		return false
	}
	return time.Since(e.Timestamp) < expiry
}

// New builds the cache backend named by the configuration. dir is only used
// by the file and badger backends; ttl bounds on-disk retention for badger,
// read-time freshness always comes from the expiry passed to Load.
func New(backend string, dir string, ttl time.Duration) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile, "":
		return NewFile(dir)
	case BackendBadger:
		return NewBadger(dir, ttl)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
