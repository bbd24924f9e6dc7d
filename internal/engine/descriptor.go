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
	"net/url"
	"strings"
)

// Descriptor is one parsed request directive. Descriptors are immutable
// after parse; the zero value (empty Method) marks a blank input line
// and is skipped by the dispatcher.
type Descriptor struct {
	Method string
	URL    string
	Body   string

	// Word is the wordlist entry that produced this descriptor when it
	// was expanded from a fuzz template.
	Word string

	// Headers are per-descriptor headers carried over from a raw
	// request template, applied on top of the global header set.
	Headers []Header
}

// knownMethods are the HTTP method tokens recognized at the start of an
// input line. Matching is case-sensitive: "get" is a URL, "GET" is a method.
var knownMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
}

// ParseLine turns one input line into a Descriptor. Two shapes are
// accepted: "URL" and "METHOD URL [BODY...]". Anything after the URL
// token becomes the body, rejoined by single spaces. ParseLine never
// fails; a blank line yields the zero Descriptor.
func ParseLine(line string) Descriptor {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Descriptor{}
	}

	if knownMethods[fields[0]] && len(fields) > 1 {
		return Descriptor{
			Method: fields[0],
			URL:    NormalizeURL(fields[1]),
			Body:   strings.Join(fields[2:], " "),
		}
	}

	return Descriptor{
		Method: "GET",
		URL:    NormalizeURL(strings.Join(fields, " ")),
	}
}

// NormalizeURL adds a default scheme when missing and strips
// superfluous default ports (:80 for http, :443 for https).
// Unparsable URLs are returned verbatim so the HTTP client surfaces
// the error uniformly. Normalization is idempotent.
func NormalizeURL(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	switch {
	case u.Scheme == "http" && u.Port() == "80":
		u.Host = u.Hostname()
	case u.Scheme == "https" && u.Port() == "443":
		u.Host = u.Hostname()
	}

	return u.String()
}
