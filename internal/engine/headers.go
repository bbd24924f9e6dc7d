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

import "strings"

// Header is one name/value pair. Order and duplicates are preserved so
// multi-valued headers survive the trip onto the wire.
type Header struct {
	Name  string
	Value string
}

// ParseHeaderLines parses raw "Name: Value" header lines. Each line is
// split on the first colon with both sides trimmed; lines without a
// colon are silently dropped.
func ParseHeaderLines(lines []string) []Header {
	headers := make([]Header, 0, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers = append(headers, Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return headers
}
