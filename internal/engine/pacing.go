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

package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// NewRateLimiter builds the shared token bucket: capacity = rate,
// refill = rate tokens/second, one token per attempt. A rate of zero
// (or less) disables limiting and returns nil.
func NewRateLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Jitter sleeps for a uniformly random duration in [Min, Max] before
// each attempt, retries included.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// ParseJitter parses the "min:max" millisecond range of --random-delay.
func ParseJitter(s string) (*Jitter, error) {
	minStr, maxStr, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("random-delay must be min:max milliseconds, got %q", s)
	}

	minMs, err := strconv.Atoi(strings.TrimSpace(minStr))
	if err != nil {
		return nil, fmt.Errorf("invalid random-delay min %q: %w", minStr, err)
	}
	maxMs, err := strconv.Atoi(strings.TrimSpace(maxStr))
	if err != nil {
		return nil, fmt.Errorf("invalid random-delay max %q: %w", maxStr, err)
	}
	if minMs < 0 || maxMs < 0 {
		return nil, fmt.Errorf("random-delay values must be >= 0, got %q", s)
	}
	if minMs > maxMs {
		return nil, fmt.Errorf("random-delay min (%d) must be <= max (%d)", minMs, maxMs)
	}

	return &Jitter{
		Min: time.Duration(minMs) * time.Millisecond,
		Max: time.Duration(maxMs) * time.Millisecond,
	}, nil
}

// Sleep blocks for a random duration in the jitter range, returning
// early if the context is cancelled.
func (j *Jitter) Sleep(ctx context.Context) {
	if j == nil {
		return
	}

	d := j.Min
	if span := j.Max - j.Min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span) + 1))
	}
	if d <= 0 {
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// sleepCtx sleeps for d or until the context is cancelled. Used for the
// fixed delay between retry attempts.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
