// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package engine implements the request-processing core: a
// bounded-concurrency dispatcher that reads a stream of request
// descriptors and, for each, runs a retry-capable HTTP attempt under a
// global rate limiter and per-attempt jitter, extracts response
// metadata, and hands surviving results to the caller in completion
// order.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tombee/reqs/pkg/httpclient"
)

// Engine runs request descriptors under one shared policy. The HTTP
// client, rate limiter, and configuration are shared read-only by all
// in-flight attempts.
type Engine struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New validates the configuration and builds the shared client and
// rate limiter.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:        cfg.Timeout,
		Proxy:          cfg.Proxy,
		VerifyTLS:      cfg.VerifySSL,
		FollowRedirect: cfg.FollowRedirect,
		HTTP2:          cfg.HTTP2,
	})
	if err != nil {
		return nil, fmt.Errorf("building HTTP client: %w", err)
	}

	return &Engine{
		cfg:     cfg,
		client:  client,
		limiter: NewRateLimiter(cfg.RateLimit),
		logger:  logger,
	}, nil
}

// process wraps the attempt executor with the retry policy: on a
// failed attempt, sleep the fixed delay and try again, up to Retry
// additional times. The record of the last attempt is returned.
func (e *Engine) process(ctx context.Context, d Descriptor) *ResponseInfo {
	res := e.attempt(ctx, d)
	for i := 0; i < e.cfg.Retry && res.Failed(); i++ {
		sleepCtx(ctx, e.cfg.RetryDelay)
		if ctx.Err() != nil {
			break
		}
		res = e.attempt(ctx, d)
	}
	return res
}

// Run consumes descriptors until the channel closes, dispatching each
// to its own goroutine under the concurrency bound. Surviving results
// are passed to emit in completion order; emit is never called
// concurrently with itself. Run returns once every accepted
// descriptor's task has terminated.
func (e *Engine) Run(ctx context.Context, in <-chan Descriptor, emit func(*ResponseInfo)) {
	var sem *semaphore.Weighted
	if !e.cfg.Concurrency.Unlimited {
		sem = semaphore.NewWeighted(e.cfg.Concurrency.N)
	}

	var (
		wg     sync.WaitGroup
		emitMu sync.Mutex
	)

	for d := range in {
		if d.Method == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
		}

		wg.Add(1)
		go func(d Descriptor) {
			defer wg.Done()
			if sem != nil {
				defer sem.Release(1)
			}

			res := e.process(ctx, d)
			if ctx.Err() != nil && res.Failed() {
				// Cancelled mid-flight without a completed attempt.
				return
			}
			if !e.cfg.Filter.Match(res) {
				return
			}

			emitMu.Lock()
			emit(res)
			emitMu.Unlock()
		}(d)
	}

	wg.Wait()
}
