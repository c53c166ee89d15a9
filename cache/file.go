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
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"github.com/equity-screener/esdata/data"
)

// File persists one JSON envelope per ticker under a cache directory. Corrupt
// or unreadable files count as misses so a damaged cache degrades to extra
// network calls rather than a failed run.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &File{dir: dir}, nil
}

func (f *File) path(ticker string) string {
	return filepath.Join(f.dir, slug.Make(ticker)+".json")
}

func (f *File) Load(_ context.Context, ticker string, expiry time.Duration) (*data.FundamentalSnapshot, bool) {
	raw, err := os.ReadFile(f.path(ticker))
	if err != nil {
		return nil, false
	}

	var entry envelope
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.Warn().Err(err).Str("Ticker", ticker).Msg("discarding corrupt cache entry")
		return nil, false
	}

	if !entry.fresh(expiry) || entry.Data == nil {
		return nil, false
	}
	return entry.Data, true
}

func (f *File) Save(_ context.Context, ticker string, snap *data.FundamentalSnapshot) {
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

	if err := os.WriteFile(f.path(ticker), raw, 0644); err != nil {
		log.Warn().Err(err).Str("Ticker", ticker).Msg("could not write cache entry")
	}
}

func (f *File) Clear(_ context.Context, ticker string) error {
	err := os.Remove(f.path(ticker))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *File) ClearAll(_ context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) Close() error {
	return nil
}
