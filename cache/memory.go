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
	"time"

	"github.com/alphadose/haxmap"

	"github.com/equity-screener/esdata/data"
)

// Memory keeps snapshots in a lock-free concurrent map. Nothing survives the
// process; it exists for tests and for runs where persistence is unwanted.
type Memory struct {
	entries *haxmap.Map[string, envelope]
}

func NewMemory() *Memory {
	return &Memory{
		entries: haxmap.New[string, envelope](),
	}
}

func (m *Memory) Load(_ context.Context, ticker string, expiry time.Duration) (*data.FundamentalSnapshot, bool) {
	entry, ok := m.entries.Get(ticker)
	if !ok || !entry.fresh(expiry) {
		return nil, false
	}
	return entry.Data, true
}

func (m *Memory) Save(_ context.Context, ticker string, snap *data.FundamentalSnapshot) {
	if snap == nil {
		return
	}
	m.entries.Set(ticker, envelope{
		Timestamp: time.Now(),
		Data:      snap,
	})
}

func (m *Memory) Clear(_ context.Context, ticker string) error {
	m.entries.Del(ticker)
	return nil
}

func (m *Memory) ClearAll(_ context.Context) error {
	m.entries.ForEach(func(ticker string, _ envelope) bool {
		m.entries.Del(ticker)
		return true
	})
	return nil
}

func (m *Memory) Close() error {
	return nil
}
