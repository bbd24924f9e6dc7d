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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine_URLOnly(t *testing.T) {
	d := ParseLine("https://example.com")

	assert.Equal(t, "GET", d.Method)
	assert.Equal(t, "https://example.com", d.URL)
	assert.Empty(t, d.Body)
}

func TestParseLine_MethodURLBody(t *testing.T) {
	d := ParseLine("POST https://x.test a=1")

	assert.Equal(t, "POST", d.Method)
	assert.Equal(t, "https://x.test", d.URL)
	assert.Equal(t, "a=1", d.Body)
}

func TestParseLine_BodyRejoinedBySingleSpaces(t *testing.T) {
	d := ParseLine("PUT https://x.test  a=1   b=2 ")

	assert.Equal(t, "PUT", d.Method)
	assert.Equal(t, "a=1 b=2", d.Body)
}

func TestParseLine_LowercaseMethodIsURL(t *testing.T) {
	// Method matching is case-sensitive upper; "get" is part of a URL.
	d := ParseLine("get example.com")

	assert.Equal(t, "GET", d.Method)
}

func TestParseLine_SchemeAdded(t *testing.T) {
	d := ParseLine("example.com")

	assert.Equal(t, "http://example.com", d.URL)
}

func TestParseLine_Blank(t *testing.T) {
	assert.Empty(t, ParseLine("").Method)
	assert.Empty(t, ParseLine("   ").Method)
}

func TestNormalizeURL_StripsDefaultPorts(t *testing.T) {
	assert.Equal(t, "http://example.com/", NormalizeURL("http://example.com:80/"))
	assert.Equal(t, "https://example.com/", NormalizeURL("https://example.com:443/"))
}

func TestNormalizeURL_KeepsNonDefaultPorts(t *testing.T) {
	assert.Equal(t, "http://example.com:8080/", NormalizeURL("http://example.com:8080/"))
	assert.Equal(t, "https://example.com:80/", NormalizeURL("https://example.com:80/"))
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	inputs := []string{
		"example.com",
		"http://example.com:80/",
		"https://example.com:443/path?q=1",
		"https://example.com:8443",
		"not a url",
	}
	for _, in := range inputs {
		once := NormalizeURL(in)
		assert.Equal(t, once, NormalizeURL(once), "input %q", in)
	}
}
