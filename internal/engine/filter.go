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
	"regexp"
	"strconv"
	"strings"
)

// Filter holds the three result predicates. They are AND-composed: a
// record survives iff every configured predicate passes, and an
// unconfigured predicate passes trivially.
type Filter struct {
	// Statuses passes records whose status code is in the set.
	Statuses map[int]bool

	// String passes records whose body contains the literal substring.
	String string

	// Regex passes records whose body matches the pattern.
	Regex *regexp.Regexp
}

// ParseStatusFilter parses the comma-separated status list of
// --filter-status into a set of codes.
func ParseStatusFilter(s string) (map[int]bool, error) {
	set := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid status code %q: %w", part, err)
		}
		set[code] = true
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("filter-status %q contains no status codes", s)
	}
	return set, nil
}

// Empty reports whether no predicate is configured.
func (f Filter) Empty() bool {
	return len(f.Statuses) == 0 && f.String == "" && f.Regex == nil
}

// NeedsBody reports whether evaluating the filter requires the decoded
// response body. The executor retains the body long enough for filter
// evaluation even when include-res is off.
func (f Filter) NeedsBody() bool {
	return f.String != "" || f.Regex != nil
}

// Match evaluates the filter against one result.
func (f Filter) Match(r *ResponseInfo) bool {
	if len(f.Statuses) > 0 && !f.Statuses[r.StatusCode] {
		return false
	}
	if f.String != "" && !strings.Contains(r.body, f.String) {
		return false
	}
	if f.Regex != nil && !f.Regex.MatchString(r.body) {
		return false
	}
	return true
}
