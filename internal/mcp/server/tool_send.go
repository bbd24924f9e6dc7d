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

package server

import (
	"context"
	"fmt"
	"regexp"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/reqs/internal/engine"
)

// handleSendRequests implements the send_requests tool.
func (s *Server) handleSendRequests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lines := stringSliceArg(request, "requests")
	if len(lines) == 0 {
		return errorResponse("Missing or invalid 'requests' argument"), nil
	}

	cfg, errResp := s.callConfig(request)
	if errResp != nil {
		return errResp, nil
	}

	descriptors := make([]engine.Descriptor, 0, len(lines))
	for _, line := range lines {
		descriptors = append(descriptors, engine.ParseLine(line))
	}

	result, err := s.runBatch(ctx, cfg, descriptors)
	if err != nil {
		return errorResponse(fmt.Sprintf("Failed to send requests: %v", err)), nil
	}

	return textResponse(result), nil
}

// callConfig merges per-call overrides over the server-launch engine
// configuration. Unlike the CLI, redirects are followed by default.
func (s *Server) callConfig(request mcp.CallToolRequest) (engine.Config, *mcp.CallToolResult) {
	cfg := s.base

	cfg.FollowRedirect = request.GetBool("follow_redirect", true)
	cfg.HTTP2 = request.GetBool("http2", cfg.HTTP2)
	cfg.IncludeReq = request.GetBool("include_req", cfg.IncludeReq)
	cfg.IncludeRes = request.GetBool("include_res", cfg.IncludeRes)

	if lines := stringSliceArg(request, "headers"); len(lines) > 0 {
		cfg.Headers = append(append([]engine.Header{}, cfg.Headers...), engine.ParseHeaderLines(lines)...)
	}

	if codes := intSliceArg(request, "filter_status"); len(codes) > 0 {
		set := make(map[int]bool, len(codes))
		for _, c := range codes {
			set[c] = true
		}
		cfg.Filter.Statuses = set
	}

	if str := request.GetString("filter_string", ""); str != "" {
		cfg.Filter.String = str
	}

	if pattern := request.GetString("filter_regex", ""); pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return engine.Config{}, errorResponse(fmt.Sprintf("Invalid 'filter_regex': %v", err))
		}
		cfg.Filter.Regex = re
	}

	return cfg, nil
}

// stringSliceArg extracts an optional []string argument.
func stringSliceArg(request mcp.CallToolRequest, key string) []string {
	args := request.GetArguments()
	if args == nil {
		return nil
	}
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// intSliceArg extracts an optional []int argument. JSON numbers arrive
// as float64.
func intSliceArg(request mcp.CallToolRequest, key string) []int {
	args := request.GetArguments()
	if args == nil {
		return nil
	}
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			out = append(out, int(n))
		case int:
			out = append(out, n)
		}
	}
	return out
}
