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

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/reqs/internal/engine"
)

// handleFuzzRequest implements the fuzz_request tool.
func (s *Server) handleFuzzRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawRequest, err := request.RequireString("raw_request")
	if err != nil {
		return errorResponse("Missing or invalid 'raw_request' argument"), nil
	}

	wordlist := stringSliceArg(request, "wordlist")
	if len(wordlist) == 0 {
		return errorResponse("Missing or invalid 'wordlist' argument"), nil
	}

	fuzzKey := request.GetString("fuzz_key", engine.DefaultFuzzKey)

	descriptors, err := engine.ExpandFuzz(rawRequest, wordlist, fuzzKey)
	if err != nil {
		return errorResponse(fmt.Sprintf("Failed to expand fuzz template: %v", err)), nil
	}

	// Fuzz templates carry their own headers in the raw request; the
	// launch configuration applies otherwise, with redirects followed
	// as in MCP mode's send_requests default.
	cfg := s.base
	cfg.FollowRedirect = true

	result, err := s.runBatch(ctx, cfg, descriptors)
	if err != nil {
		return errorResponse(fmt.Sprintf("Failed to send requests: %v", err)), nil
	}

	return textResponse(result), nil
}
