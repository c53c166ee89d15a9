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

// Package api serves the screening table over HTTP. The surface is
// read-only: factor rows, run history, and the configured universe.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/library"
)

// Config wires the server to its data sources.
type Config struct {
	// Address is the listen address, e.g. ":8000".
	Address string
	// Library provides the factor table and run history.
	Library *library.Library
	// Universe is the configured ticker set; may be nil, in which case the
	// universe endpoint serves an empty list.
	Universe *data.Universe
}

// Server is the read-only screening API.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	lib      *library.Library
	universe *data.Universe
}

func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		lib:      cfg.Library,
		universe: cfg.Universe,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/factors", s.handleFactors)
		r.Get("/runs", s.handleRuns)
		r.Get("/universe", s.handleUniverse)
	})
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Info().Str("Address", s.server.Addr).Msg("starting api server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down api server")
	return s.server.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Info().
			Str("Method", r.Method).
			Str("Path", r.URL.Path).
			Int("StatusCode", ww.Status()).
			Int("NumBytes", ww.BytesWritten()).
			Dur("Duration", time.Since(start)).
			Str("RequestID", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
