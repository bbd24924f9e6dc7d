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
	"encoding/csv"
	"io"
	"strconv"

	"github.com/tombee/reqs/internal/engine"
)

// csvFormatter emits RFC 4180 rows. The header goes out once at start;
// optional columns are appended when the corresponding capture flag is
// enabled.
type csvFormatter struct {
	opts Options
}

func newCSVFormatter(opts Options) *csvFormatter {
	return &csvFormatter{opts: opts}
}

func (f *csvFormatter) columns() []string {
	cols := []string{"url", "method", "status_code", "content_length", "response_time_ms"}
	if f.opts.IncludeTitle {
		cols = append(cols, "title")
	}
	if f.opts.IncludeReq {
		cols = append(cols, "raw_request")
	}
	if f.opts.IncludeRes {
		cols = append(cols, "response_body")
	}
	return cols
}

func (f *csvFormatter) writeHeader(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.columns()); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (f *csvFormatter) render(w io.Writer, r *engine.ResponseInfo) error {
	row := []string{
		r.URL,
		r.Method,
		strconv.Itoa(r.StatusCode),
		strconv.FormatInt(r.ContentLength, 10),
		strconv.FormatInt(r.ResponseTimeMs, 10),
	}
	if f.opts.IncludeTitle {
		row = append(row, r.Title)
	}
	if f.opts.IncludeReq {
		row = append(row, r.RawRequest)
	}
	if f.opts.IncludeRes {
		row = append(row, r.ResponseBody)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
