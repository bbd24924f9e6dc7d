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

// Package output renders response records into the supported output
// formats and serializes concurrent writes to the sink.
package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/tombee/reqs/internal/engine"
)

// Format identifies an output format.
type Format string

const (
	// FormatPlain is the human-readable line format.
	FormatPlain Format = "plain"
	// FormatJSONL emits one compact JSON object per record.
	FormatJSONL Format = "jsonl"
	// FormatCSV emits RFC 4180 rows with a leading header.
	FormatCSV Format = "csv"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPlain, FormatJSONL, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (plain, jsonl, csv)", s)
	}
}

// Options configures rendering.
type Options struct {
	Format Format

	// Template is the optional plain-mode format string with %method,
	// %url, %status, %code, %size, %time, %ip, %title placeholders.
	Template string

	// Color enables ANSI status banding in plain mode.
	Color bool

	IncludeReq   bool
	IncludeRes   bool
	IncludeTitle bool
}

// formatter renders one record to the sink.
type formatter interface {
	render(w io.Writer, r *engine.ResponseInfo) error
}

// Writer serializes record emission to a single sink so interleaved
// concurrent completions never corrupt lines.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
	f   formatter
}

// NewWriter builds the sink writer for the chosen format. The CSV
// header is emitted immediately.
func NewWriter(out io.Writer, opts Options) (*Writer, error) {
	var f formatter
	switch opts.Format {
	case FormatJSONL:
		f = &jsonlFormatter{}
	case FormatCSV:
		cf := newCSVFormatter(opts)
		if err := cf.writeHeader(out); err != nil {
			return nil, fmt.Errorf("writing CSV header: %w", err)
		}
		f = cf
	case FormatPlain, "":
		f = newPlainFormatter(opts)
	default:
		return nil, fmt.Errorf("unknown output format %q", opts.Format)
	}

	return &Writer{out: out, f: f}, nil
}

// Emit renders one record. Safe for concurrent use.
func (w *Writer) Emit(r *engine.ResponseInfo) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.render(w.out, r)
}
