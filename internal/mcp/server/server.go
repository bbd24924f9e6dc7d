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

// Package server implements an MCP server that exposes the request
// engine as tools over stdio.
package server

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tombee/reqs/internal/engine"
	"github.com/tombee/reqs/internal/output"
)

// Server wraps the MCP server and provides the request tools.
type Server struct {
	mcpServer *server.MCPServer
	name      string
	version   string
	base      engine.Config
	logger    *slog.Logger
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Name is the server name (default: "reqs")
	Name string

	// Version is the reqs version
	Version string

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// Base is the engine configuration the server was launched with.
	// Tool calls may override parts of it per call.
	Base engine.Config
}

// createLogger creates a logger with the specified log level.
// Writes to stderr to avoid interfering with MCP stdio protocol.
func createLogger(levelStr string) (*slog.Logger, error) {
	var level slog.Level

	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", levelStr)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler), nil
}

// NewServer creates a new MCP server instance.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Name == "" {
		config.Name = "reqs"
	}
	if config.Version == "" {
		config.Version = "dev"
	}

	logger, err := createLogger(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	mcpServer := server.NewMCPServer(config.Name, config.Version)

	s := &Server{
		mcpServer: mcpServer,
		name:      config.Name,
		version:   config.Version,
		base:      config.Base,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers the request tools with the MCP server.
func (s *Server) registerTools() {
	// Tool: send_requests
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "send_requests",
		Description: "Send a batch of HTTP requests and return one JSONL record per request. Each request is a line: 'URL' or 'METHOD URL [BODY...]'.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"requests": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Request lines, one per request",
				},
				"filter_status": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": "Only return results with these status codes",
				},
				"filter_string": map[string]interface{}{
					"type":        "string",
					"description": "Only return results whose body contains this substring",
				},
				"filter_regex": map[string]interface{}{
					"type":        "string",
					"description": "Only return results whose body matches this regex",
				},
				"follow_redirect": map[string]interface{}{
					"type":        "boolean",
					"description": "Follow HTTP redirects (default: true)",
					"default":     true,
				},
				"http2": map[string]interface{}{
					"type":        "boolean",
					"description": "Prefer HTTP/2",
				},
				"headers": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Additional 'Name: Value' header lines",
				},
				"include_req": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the reconstructed raw request in each record",
				},
				"include_res": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the response body in each record",
				},
			},
			Required: []string{"requests"},
		},
	}, s.handleSendRequests)

	// Tool: fuzz_request
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "fuzz_request",
		Description: "Substitute a keyword in a raw HTTP request template with each wordlist entry and send the resulting requests. Returns one JSONL record per word.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"raw_request": map[string]interface{}{
					"type":        "string",
					"description": "Raw HTTP request template (request line, headers, blank line, body)",
				},
				"wordlist": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Words substituted for the fuzz keyword",
				},
				"fuzz_key": map[string]interface{}{
					"type":        "string",
					"description": "Keyword to replace in the template (default: FUZZ)",
					"default":     "FUZZ",
				},
			},
			Required: []string{"raw_request", "wordlist"},
		},
	}, s.handleFuzzRequest)
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting reqs MCP server", slog.String("version", s.version))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

// runBatch drives the engine over the descriptors and returns the
// aggregated JSONL output.
func (s *Server) runBatch(ctx context.Context, cfg engine.Config, descriptors []engine.Descriptor) (string, error) {
	eng, err := engine.New(cfg, s.logger)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	sink, err := output.NewWriter(&buf, output.Options{
		Format:       output.FormatJSONL,
		IncludeReq:   cfg.IncludeReq,
		IncludeRes:   cfg.IncludeRes,
		IncludeTitle: cfg.IncludeTitle,
	})
	if err != nil {
		return "", err
	}

	in := make(chan engine.Descriptor, len(descriptors))
	for _, d := range descriptors {
		in <- d
	}
	close(in)

	eng.Run(ctx, in, func(r *engine.ResponseInfo) {
		_ = sink.Emit(r)
	})

	return buf.String(), nil
}

// Helper function to create error response
func errorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// Helper function to create success response
func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}
