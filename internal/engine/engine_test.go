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
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Timeout:     5 * time.Second,
		Concurrency: Concurrency{Unlimited: true},
	}
}

// collect runs the engine over the descriptors and gathers every
// emitted record.
func collect(t *testing.T, cfg Config, descriptors []Descriptor) []*ResponseInfo {
	t.Helper()

	eng, err := New(cfg, nil)
	require.NoError(t, err)

	in := make(chan Descriptor, len(descriptors))
	for _, d := range descriptors {
		in <- d
	}
	close(in)

	var results []*ResponseInfo
	eng.Run(context.Background(), in, func(r *ResponseInfo) {
		results = append(results, r)
	})
	return results
}

func TestRun_CountPreservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	var descriptors []Descriptor
	for i := 0; i < 20; i++ {
		descriptors = append(descriptors, ParseLine(fmt.Sprintf("%s/%d", srv.URL, i)))
	}
	// Blank lines are skipped, not emitted.
	descriptors = append(descriptors, Descriptor{})

	results := collect(t, testConfig(), descriptors)

	assert.Len(t, results, 20)
}

func TestRun_ConcurrencyBound(t *testing.T) {
	var current, peak int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&current, -1)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Concurrency = Concurrency{N: 3}

	var descriptors []Descriptor
	for i := 0; i < 15; i++ {
		descriptors = append(descriptors, ParseLine(srv.URL))
	}

	collect(t, cfg, descriptors)

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(3))
}

func TestRun_RetrySpacing(t *testing.T) {
	cfg := testConfig()
	cfg.Retry = 2
	cfg.RetryDelay = 100 * time.Millisecond
	cfg.Timeout = time.Second

	// A closed server port gives a connection refused on every attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	start := time.Now()
	results := collect(t, cfg, []Descriptor{ParseLine(url)})
	elapsed := time.Since(start)

	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].StatusCode)
	assert.NotEmpty(t, results[0].Error)
	// Three attempts separated by >= 100ms each.
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
}

func TestRun_NonSuccessStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()

	results := collect(t, testConfig(), []Descriptor{ParseLine(srv.URL)})

	require.Len(t, results, 1)
	assert.Equal(t, 500, results[0].StatusCode)
	assert.Empty(t, results[0].Error)
}

func TestRun_ContentLengthIsBytesRead(t *testing.T) {
	body := "0123456789abcdef"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	results := collect(t, testConfig(), []Descriptor{ParseLine(srv.URL)})

	require.Len(t, results, 1)
	assert.Equal(t, int64(len(body)), results[0].ContentLength)
}

func TestRun_TitleExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head><TITLE> Example Domain </TITLE></head></html>")
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.IncludeTitle = true

	results := collect(t, cfg, []Descriptor{ParseLine(srv.URL)})

	require.Len(t, results, 1)
	assert.Equal(t, "Example Domain", results[0].Title)
}

func TestRun_BodyRetainedForFilterWithoutIncludeRes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "secret marker here")
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Filter.String = "marker"

	results := collect(t, cfg, []Descriptor{ParseLine(srv.URL)})

	require.Len(t, results, 1)
	// The body fed the filter but is not part of the record.
	assert.Empty(t, results[0].ResponseBody)
}

func TestRun_FilterDropsRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Filter.Statuses = map[int]bool{200: true, 404: true}

	results := collect(t, cfg, []Descriptor{ParseLine(srv.URL)})

	assert.Empty(t, results)
}

func TestRun_PostBodyAndHeadersSent(t *testing.T) {
	var gotBody []byte
	var gotHeader string
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Custom")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Headers = []Header{{Name: "X-Custom", Value: "yes"}}

	results := collect(t, cfg, []Descriptor{ParseLine("POST " + srv.URL + " name=x")})

	require.Len(t, results, 1)
	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "yes", gotHeader)
	assert.Equal(t, "name=x", string(gotBody))
}

func TestRun_RedirectSurfacedWhenNotFollowing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/from" {
			http.Redirect(w, r, "/to", http.StatusFound)
			return
		}
		fmt.Fprint(w, "landed")
	}))
	defer srv.Close()

	results := collect(t, testConfig(), []Descriptor{ParseLine(srv.URL + "/from")})
	require.Len(t, results, 1)
	assert.Equal(t, 302, results[0].StatusCode)

	cfg := testConfig()
	cfg.FollowRedirect = true
	results = collect(t, cfg, []Descriptor{ParseLine(srv.URL + "/from")})
	require.Len(t, results, 1)
	assert.Equal(t, 200, results[0].StatusCode)
}

func TestRun_PeerIPCaptured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	results := collect(t, testConfig(), []Descriptor{ParseLine(srv.URL)})

	require.Len(t, results, 1)
	assert.Equal(t, "127.0.0.1", results[0].IPAddress)
}

func TestRun_RawRequestReconstruction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	cfg := testConfig()
	cfg.IncludeReq = true
	cfg.Headers = []Header{{Name: "X-Probe", Value: "1"}}

	results := collect(t, cfg, []Descriptor{ParseLine("POST " + srv.URL + "/p?q=1 a=b")})

	require.Len(t, results, 1)
	raw := results[0].RawRequest
	assert.Contains(t, raw, "POST /p?q=1 HTTP/1.1\n")
	assert.Contains(t, raw, "Host: ")
	assert.Contains(t, raw, "X-Probe: 1\n")
	assert.Contains(t, raw, "\n\na=b")
}

func TestRun_EmitNeverInterleaves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	eng, err := New(testConfig(), nil)
	require.NoError(t, err)

	in := make(chan Descriptor, 50)
	for i := 0; i < 50; i++ {
		in <- ParseLine(srv.URL)
	}
	close(in)

	var inEmit, overlapped int32
	var mu sync.Mutex
	count := 0
	eng.Run(context.Background(), in, func(r *ResponseInfo) {
		if !atomic.CompareAndSwapInt32(&inEmit, 0, 1) {
			atomic.StoreInt32(&overlapped, 1)
		}
		mu.Lock()
		count++
		mu.Unlock()
		atomic.StoreInt32(&inEmit, 0)
	})

	assert.Zero(t, atomic.LoadInt32(&overlapped), "emit called concurrently")
	assert.Equal(t, 50, count)
}

func TestRun_RateLimitPacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RateLimit = 10

	var descriptors []Descriptor
	for i := 0; i < 15; i++ {
		descriptors = append(descriptors, ParseLine(srv.URL))
	}

	start := time.Now()
	results := collect(t, cfg, descriptors)
	elapsed := time.Since(start)

	assert.Len(t, results, 15)
	// 15 requests at 10 rps with a burst of 10: the last five wait.
	assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 0

	_, err := New(cfg, nil)
	assert.Error(t, err)
}
