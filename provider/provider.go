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

// Package provider downloads daily price history and fundamentals ratios
// from the quote service. Transient upstream failures are retried with
// backoff and ultimately degrade to empty results; callers never see an
// error from an exhausted fetch, only from their own cancelled context.
package provider

import (
	"runtime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/equity-screener/esdata/cache"
)

const (
	defaultChartURL  = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultQuoteURL  = "https://query1.finance.yahoo.com/v7/finance/quote"
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Options carries every knob of the quote client. Zero values select the
// defaults listed on each field.
type Options struct {
	// ChartURL is the daily price history endpoint; the ticker is appended
	// as a path element.
	ChartURL string
	// QuoteURL is the fundamentals snapshot endpoint.
	QuoteURL string
	// UserAgent is sent on every request; the quote service rejects blank
	// agents.
	UserAgent string
	// RateLimit is the request budget per minute shared by all calls
	// (default 120).
	RateLimit int

	// MaxAttempts bounds full passes over the universe for prices
	// (default 5).
	MaxAttempts int
	// InitialDelay seeds the exponential backoff between price passes
	// (default 2s).
	InitialDelay time.Duration
	// LockFloor is the minimum backoff after a lock-like failure
	// (default 3s).
	LockFloor time.Duration

	// FundamentalAttempts bounds per-ticker fundamentals retries
	// (default 5).
	FundamentalAttempts int
	// FundamentalDelay seeds the per-ticker exponential backoff
	// (default 1s).
	FundamentalDelay time.Duration
	// AttemptTimeout caps one fundamentals request including rate-limiter
	// wait (default 10s).
	AttemptTimeout time.Duration
	// Workers sizes the fundamentals fan-out pool (default host
	// parallelism).
	Workers int
	// CacheExpiry is the freshness horizon consulted on cache reads
	// (default 24h).
	CacheExpiry time.Duration
}

func (opts Options) withDefaults() Options {
	if opts.ChartURL == "" {
		opts.ChartURL = defaultChartURL
	}
	if opts.QuoteURL == "" {
		opts.QuoteURL = defaultQuoteURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 120
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 2 * time.Second
	}
	if opts.LockFloor <= 0 {
		opts.LockFloor = 3 * time.Second
	}
	if opts.FundamentalAttempts <= 0 {
		opts.FundamentalAttempts = 5
	}
	if opts.FundamentalDelay <= 0 {
		opts.FundamentalDelay = time.Second
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.CacheExpiry <= 0 {
		opts.CacheExpiry = 24 * time.Hour
	}
	return opts
}

// Client talks to the quote service. The snapshot cache is injected at
// construction and may be nil to disable caching outright.
type Client struct {
	opts    Options
	client  *resty.Client
	limiter *rate.Limiter
	cache   cache.Store
}

func New(opts Options, cacheStore cache.Store) *Client {
	opts = opts.withDefaults()

	client := resty.New().SetHeader("User-Agent", opts.UserAgent)
	limiter := rate.NewLimiter(rate.Limit(float64(opts.RateLimit)/float64(61)), 1)

	return &Client{
		opts:    opts,
		client:  client,
		limiter: limiter,
		cache:   cacheStore,
	}
}

// failureClass buckets transient upstream failures for backoff selection.
type failureClass int

const (
	failureOther failureClass = iota
	failureNetwork
	failureLock
)

func classifyFailure(err error) failureClass {
	if err == nil {
		return failureOther
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "locked"), strings.Contains(msg, "resource temporarily unavailable"):
		return failureLock
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"),
		strings.Contains(msg, "connection"), strings.Contains(msg, "eof"),
		strings.Contains(msg, "no such host"):
		return failureNetwork
	default:
		return failureOther
	}
}

// backoffDelay doubles the seed per completed attempt; lock-like failures
// never wait less than the lock floor.
func (c *Client) backoffDelay(attempt int, class failureClass) time.Duration {
	delay := c.opts.InitialDelay << attempt
	if class == failureLock && delay < c.opts.LockFloor {
		delay = c.opts.LockFloor
	}
	return delay
}
