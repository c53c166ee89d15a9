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
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/store"
)

const defaultRunLimit = 20

// handleFactors serves screening rows. Query params: ticker and date filter
// exactly, order names a factor column (prefix "-" for descending), limit
// caps the row count.
func (s *Server) handleFactors(w http.ResponseWriter, r *http.Request) {
	query := store.FactorQuery{
		Ticker: r.URL.Query().Get("ticker"),
		Date:   r.URL.Query().Get("date"),
	}

	if order := r.URL.Query().Get("order"); order != "" {
		if strings.HasPrefix(order, "-") {
			query.Descending = true
			order = order[1:]
		}
		query.OrderBy = order
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		query.Limit = n
	}

	records, err := s.lib.Store.SelectFactors(r.Context(), s.lib.Table, query)
	if err != nil {
		if errors.Is(err, store.ErrUnknownColumn) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("factor query failed")
		http.Error(w, "factor query failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, records)
}

// handleRuns serves the run history, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.lib.RunHistory(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("run history query failed")
		http.Error(w, "run history query failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, runs)
}

// handleUniverse serves the configured ticker set.
func (s *Server) handleUniverse(w http.ResponseWriter, _ *http.Request) {
	entries := []*data.UniverseEntry{}
	if s.universe != nil {
		entries = s.universe.Entries
	}
	writeJSON(w, entries)
}

// handleHealth reports liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.Store.DB.PingContext(r.Context()); err != nil {
		log.Warn().Err(err).Msg("health check cannot reach the database")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	// encode errors after the header is committed can only be logged
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("could not encode response")
	}
}
