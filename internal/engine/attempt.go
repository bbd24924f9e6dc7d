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
	"net"
	"net/http"
	"net/http/httptrace"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tombee/reqs/internal/log"
)

// titlePattern finds the first <title> element, case-insensitively and
// across newlines.
var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// attempt performs one HTTP send+receive cycle for a descriptor:
// jitter, rate token, build, send, full body read, metadata extraction.
// Transport failures come back as a synthetic record with status 0.
func (e *Engine) attempt(ctx context.Context, d Descriptor) *ResponseInfo {
	e.cfg.RandomDelay.Sleep(ctx)

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return e.failure(d, err)
		}
	}

	var bodyReader io.Reader
	if d.Body != "" {
		bodyReader = strings.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL, bodyReader)
	if err != nil {
		return e.failure(d, err)
	}

	for _, h := range e.cfg.Headers {
		req.Header.Add(h.Name, h.Value)
	}
	for _, h := range d.Headers {
		req.Header.Add(h.Name, h.Value)
	}
	if req.Header.Get("User-Agent") == "" && e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}

	// Peer IP capture is best-effort: GotConn fires for both fresh and
	// reused connections.
	var peerIP string
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Conn == nil {
				return
			}
			if host, _, err := net.SplitHostPort(info.Conn.RemoteAddr().String()); err == nil {
				peerIP = host
			}
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return e.failure(d, err)
	}
	defer resp.Body.Close()

	// The body is always read in full so content_length reflects bytes
	// actually received, and so the connection can be reused.
	bodyBytes, readErr := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if readErr != nil {
		return e.failure(d, readErr)
	}

	info := &ResponseInfo{
		Method:         d.Method,
		URL:            d.URL,
		StatusCode:     resp.StatusCode,
		ContentLength:  int64(len(bodyBytes)),
		ResponseTimeMs: elapsed.Milliseconds(),
		IPAddress:      peerIP,
		Word:           d.Word,
	}

	if e.cfg.IncludeRes || e.cfg.IncludeTitle || e.cfg.Filter.NeedsBody() {
		body := strings.ToValidUTF8(string(bodyBytes), "�")
		info.body = body
		if e.cfg.IncludeRes {
			info.ResponseBody = body
		}
		if e.cfg.IncludeTitle {
			info.Title = extractTitle(body)
		}
	}

	if e.cfg.IncludeReq {
		info.RawRequest = reconstructRequest(req, d.Body, e.cfg.HTTP2)
	}

	e.logger.Debug("request completed",
		log.MethodKey, d.Method,
		log.URLKey, d.URL,
		log.StatusKey, resp.StatusCode,
		log.DurationKey, elapsed.Milliseconds(),
	)

	return info
}

// failure builds the synthetic record for a failed attempt (timeout,
// DNS, TLS, connection refused).
func (e *Engine) failure(d Descriptor, err error) *ResponseInfo {
	e.logger.Debug("request failed",
		log.MethodKey, d.Method,
		log.URLKey, d.URL,
		log.Error(err),
	)
	return &ResponseInfo{
		Method: d.Method,
		URL:    d.URL,
		Word:   d.Word,
		Error:  err.Error(),
	}
}

// extractTitle returns the text of the first <title> element, or ""
// when the document has none.
func extractTitle(body string) string {
	m := titlePattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// reconstructRequest serializes a pseudo raw request for display:
// request line, Host header, the request headers, blank line, body.
func reconstructRequest(req *http.Request, body string, http2 bool) string {
	proto := "HTTP/1.1"
	if http2 {
		proto = "HTTP/2.0"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", req.Method, req.URL.RequestURI(), proto)
	fmt.Fprintf(&b, "Host: %s\n", req.URL.Host)

	names := make([]string, 0, len(req.Header))
	for name := range req.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range req.Header[name] {
			fmt.Fprintf(&b, "%s: %s\n", name, value)
		}
	}

	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}
