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
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tombee/reqs/internal/engine"
)

// Status band styles: 2xx green, 3xx cyan, 4xx yellow, 5xx red,
// transport errors magenta.
var (
	style2xx = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	style3xx = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	style4xx = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	style5xx = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleErr = lipgloss.NewStyle().Foreground(lipgloss.Color("201"))
)

func statusStyle(code int) lipgloss.Style {
	switch {
	case code >= 200 && code < 300:
		return style2xx
	case code >= 300 && code < 400:
		return style3xx
	case code >= 400 && code < 500:
		return style4xx
	case code >= 500 && code < 600:
		return style5xx
	default:
		return styleErr
	}
}

type plainFormatter struct {
	opts Options
}

func newPlainFormatter(opts Options) *plainFormatter {
	return &plainFormatter{opts: opts}
}

func (f *plainFormatter) render(w io.Writer, r *engine.ResponseInfo) error {
	var line string
	if f.opts.Template != "" {
		line = f.expandTemplate(r)
	} else {
		line = f.defaultLine(r)
	}

	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}

	if f.opts.IncludeTitle && r.Title != "" {
		if _, err := fmt.Fprintf(w, "  title: %s\n", r.Title); err != nil {
			return err
		}
	}
	if f.opts.IncludeReq && r.RawRequest != "" {
		if err := writeSection(w, "request", r.RawRequest); err != nil {
			return err
		}
	}
	if f.opts.IncludeRes && r.ResponseBody != "" {
		if err := writeSection(w, "response", r.ResponseBody); err != nil {
			return err
		}
	}

	return nil
}

// defaultLine renders "[<code>] <url> (<time>ms)"; failed attempts
// carry the transport error instead of the timing.
func (f *plainFormatter) defaultLine(r *engine.ResponseInfo) string {
	code := f.colorize(r, "["+strconv.Itoa(r.StatusCode)+"]")
	if r.Failed() {
		return fmt.Sprintf("%s %s (ERROR: %s)", code, r.URL, r.Error)
	}
	return fmt.Sprintf("%s %s (%dms)", code, r.URL, r.ResponseTimeMs)
}

// expandTemplate substitutes the %-placeholders of --strf.
func (f *plainFormatter) expandTemplate(r *engine.ResponseInfo) string {
	pairs := []string{
		"%method", r.Method,
		"%url", r.URL,
		"%status", f.colorize(r, statusProse(r)),
		"%code", strconv.Itoa(r.StatusCode),
		"%size", strconv.FormatInt(r.ContentLength, 10),
		"%time", strconv.FormatInt(r.ResponseTimeMs, 10),
		"%ip", r.IPAddress,
		"%title", r.Title,
	}
	return strings.NewReplacer(pairs...).Replace(f.opts.Template)
}

func (f *plainFormatter) colorize(r *engine.ResponseInfo, s string) string {
	if !f.opts.Color {
		return s
	}
	return statusStyle(r.StatusCode).Render(s)
}

// statusProse renders "200 OK"-style text, or the transport error for
// synthetic records.
func statusProse(r *engine.ResponseInfo) string {
	if r.Failed() {
		return "ERROR: " + r.Error
	}
	text := http.StatusText(r.StatusCode)
	if text == "" {
		return strconv.Itoa(r.StatusCode)
	}
	return fmt.Sprintf("%d %s", r.StatusCode, text)
}

// writeSection emits an indented block under a label.
func writeSection(w io.Writer, label, content string) error {
	if _, err := fmt.Fprintf(w, "  %s:\n", label); err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if _, err := fmt.Fprintf(w, "    %s\n", line); err != nil {
			return err
		}
	}
	return nil
}
