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

package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/reqs/internal/engine"
)

func okRecord() *engine.ResponseInfo {
	return &engine.ResponseInfo{
		Method:         "GET",
		URL:            "https://example.com",
		StatusCode:     200,
		ContentLength:  1256,
		ResponseTimeMs: 42,
	}
}

func emit(t *testing.T, opts Options, records ...*engine.ResponseInfo) string {
	t.Helper()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts)
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, w.Emit(r))
	}
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"plain", "jsonl", "csv"} {
		_, err := ParseFormat(name)
		assert.NoError(t, err)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestPlain_DefaultLine(t *testing.T) {
	got := emit(t, Options{Format: FormatPlain}, okRecord())

	assert.Equal(t, "[200] https://example.com (42ms)\n", got)
}

func TestPlain_ErrorLine(t *testing.T) {
	r := &engine.ResponseInfo{
		Method: "GET",
		URL:    "https://down.test",
		Error:  "connection refused",
	}

	got := emit(t, Options{Format: FormatPlain}, r)

	assert.Equal(t, "[0] https://down.test (ERROR: connection refused)\n", got)
}

func TestPlain_Template(t *testing.T) {
	opts := Options{
		Format:   FormatPlain,
		Template: "%method %url -> %status (%size bytes, %time ms)",
	}

	got := emit(t, opts, okRecord())

	assert.Equal(t, "GET https://example.com -> 200 OK (1256 bytes, 42 ms)\n", got)
}

func TestPlain_TemplateErrorStatus(t *testing.T) {
	opts := Options{Format: FormatPlain, Template: "%code %status"}
	r := &engine.ResponseInfo{URL: "https://down.test", Error: "timeout"}

	got := emit(t, opts, r)

	assert.Equal(t, "0 ERROR: timeout\n", got)
}

func TestPlain_Sections(t *testing.T) {
	opts := Options{
		Format:       FormatPlain,
		IncludeTitle: true,
		IncludeRes:   true,
	}
	r := okRecord()
	r.Title = "Example Domain"
	r.ResponseBody = "line1\nline2"

	got := emit(t, opts, r)

	assert.Contains(t, got, "  title: Example Domain\n")
	assert.Contains(t, got, "  response:\n    line1\n    line2\n")
}

func TestJSONL_StableKeyOrder(t *testing.T) {
	got := emit(t, Options{Format: FormatJSONL}, okRecord())

	assert.Equal(t,
		`{"content_length":1256,"method":"GET","response_time_ms":42,"status_code":200,"url":"https://example.com"}`+"\n",
		got)
}

func TestJSONL_OptionalFields(t *testing.T) {
	r := okRecord()
	r.IPAddress = "93.184.216.34"
	r.Title = "Example"
	r.Word = "v1"

	got := emit(t, Options{Format: FormatJSONL}, r)

	assert.Contains(t, got, `"ip_address":"93.184.216.34"`)
	assert.Contains(t, got, `"title":"Example"`)
	assert.Contains(t, got, `"word":"v1"`)
	assert.NotContains(t, got, "raw_request")
	assert.NotContains(t, got, "response_body")
}

func TestCSV_HeaderAndRow(t *testing.T) {
	got := emit(t, Options{Format: FormatCSV}, okRecord())

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "url,method,status_code,content_length,response_time_ms", lines[0])
	assert.Equal(t, "https://example.com,GET,200,1256,42", lines[1])
}

func TestCSV_Escaping(t *testing.T) {
	opts := Options{Format: FormatCSV, IncludeTitle: true}
	r := okRecord()
	r.Title = `a "quoted", title`

	got := emit(t, opts, r)

	assert.Contains(t, got, `"a ""quoted"", title"`)
}

func TestCSV_HeaderOnlyOnce(t *testing.T) {
	got := emit(t, Options{Format: FormatCSV}, okRecord(), okRecord())

	assert.Equal(t, 1, strings.Count(got, "url,method"))
}
