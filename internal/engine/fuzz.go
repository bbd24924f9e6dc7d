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
	"fmt"
	"strings"
)

// DefaultFuzzKey is the sentinel substituted in raw request templates
// when no key is supplied.
const DefaultFuzzKey = "FUZZ"

// ExpandFuzz substitutes every occurrence of key in the raw request
// template with each wordlist entry, parses the result as an HTTP
// request, and returns one descriptor per word. Words whose expansion
// does not parse are skipped with an error descriptor omitted; the
// returned error reports the first template-level failure (a template
// that fails for every word).
func ExpandFuzz(rawRequest string, wordlist []string, key string) ([]Descriptor, error) {
	if key == "" {
		key = DefaultFuzzKey
	}

	descriptors := make([]Descriptor, 0, len(wordlist))
	var firstErr error
	for _, word := range wordlist {
		expanded := strings.ReplaceAll(rawRequest, key, word)
		d, err := ParseRawRequest(expanded)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		d.Word = word
		descriptors = append(descriptors, d)
	}

	if len(descriptors) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return descriptors, nil
}

// ParseRawRequest parses a raw HTTP request template into a
// Descriptor: request line "METHOD PATH HTTP/VER", Host header, the
// remaining headers, and the body after the blank line. The URL scheme
// is https when the Host carries :443, http otherwise.
func ParseRawRequest(raw string) (Descriptor, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	head, body, _ := strings.Cut(raw, "\n\n")

	lines := strings.Split(head, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return Descriptor{}, fmt.Errorf("raw request is empty")
	}

	fields := strings.Fields(lines[0])
	if len(fields) < 2 {
		return Descriptor{}, fmt.Errorf("malformed request line %q", lines[0])
	}
	method, path := fields[0], fields[1]

	var host string
	var headers []Header
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if strings.EqualFold(name, "Host") {
			host = value
			continue
		}
		headers = append(headers, Header{Name: name, Value: value})
	}

	if host == "" {
		return Descriptor{}, fmt.Errorf("raw request has no Host header")
	}

	scheme := "http"
	if strings.HasSuffix(host, ":443") {
		scheme = "https"
	}

	return Descriptor{
		Method:  method,
		URL:     NormalizeURL(scheme + "://" + host + path),
		Body:    body,
		Headers: headers,
	}, nil
}
