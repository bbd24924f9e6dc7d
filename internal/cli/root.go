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

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tombee/reqs/internal/commands/shared"
	"github.com/tombee/reqs/internal/config"
	"github.com/tombee/reqs/internal/engine"
	"github.com/tombee/reqs/internal/log"
	mcpserver "github.com/tombee/reqs/internal/mcp/server"
	"github.com/tombee/reqs/internal/output"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}

// options collects every CLI flag before it is turned into an
// engine.Config.
type options struct {
	timeout          int
	retry            int
	delay            int
	concurrency      int
	proxy            string
	verifySSL        bool
	rateLimit        float64
	randomDelay      string
	followRedirect   bool
	noFollowRedirect bool
	http2            bool
	headers          []string
	outputPath       string
	format           string
	template         string
	includeReq       bool
	includeRes       bool
	includeTitle     bool
	noColor          bool
	filterStatus     string
	filterString     string
	filterRegex      string
	mcp              bool
	configPath       string
	logLevel         string
}

// NewRootCommand creates the root Cobra command for reqs
func NewRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "reqs",
		Short: "reqs - batch HTTP request driver",
		Long: `reqs reads request lines from stdin, sends each as an HTTP request
under shared policy (timeouts, retries, concurrency, rate limiting),
and emits one structured result per request.

Input lines are either a bare URL or 'METHOD URL [BODY...]':

  echo 'https://example.com' | reqs
  printf 'POST https://example.com name=x\n' | reqs -f jsonl

Run 'reqs --mcp' to expose the engine as MCP tools over stdio.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.timeout, "timeout", 10, "Request timeout in seconds")
	flags.IntVar(&opts.retry, "retry", 0, "Number of retries after a failed attempt")
	flags.IntVar(&opts.delay, "delay", 0, "Delay between retries in milliseconds")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Maximum concurrent requests (0 = unlimited)")
	flags.StringVar(&opts.proxy, "proxy", "", "Proxy URL (http or https)")
	flags.BoolVar(&opts.verifySSL, "verify-ssl", false, "Verify TLS certificates")
	flags.Float64Var(&opts.rateLimit, "rate-limit", 0, "Maximum requests per second (0 = unlimited)")
	flags.StringVar(&opts.randomDelay, "random-delay", "", "Random delay range per attempt as min:max milliseconds")
	flags.BoolVar(&opts.followRedirect, "follow-redirect", false, "Follow HTTP redirects")
	flags.BoolVar(&opts.noFollowRedirect, "no-follow-redirect", false, "Do not follow HTTP redirects")
	flags.BoolVar(&opts.http2, "http2", false, "Prefer HTTP/2")
	flags.StringArrayVarP(&opts.headers, "headers", "H", nil, "Header line 'Name: Value' (repeatable)")
	flags.StringVarP(&opts.outputPath, "output", "o", "", "Write results to file instead of stdout")
	flags.StringVarP(&opts.format, "format", "f", "plain", "Output format (plain, jsonl, csv)")
	flags.StringVarP(&opts.template, "strf", "S", "", "Plain-mode format template (%method %url %status %code %size %time %ip %title)")
	flags.BoolVar(&opts.includeReq, "include-req", false, "Include the reconstructed raw request per result")
	flags.BoolVar(&opts.includeRes, "include-res", false, "Include the response body per result")
	flags.BoolVar(&opts.includeTitle, "include-title", false, "Extract the HTML title per result")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable ANSI colors")
	flags.StringVar(&opts.filterStatus, "filter-status", "", "Only emit results with these status codes (comma-separated)")
	flags.StringVar(&opts.filterString, "filter-string", "", "Only emit results whose body contains this substring")
	flags.StringVar(&opts.filterRegex, "filter-regex", "", "Only emit results whose body matches this regex")
	flags.BoolVar(&opts.mcp, "mcp", false, "Run as an MCP server over stdio")
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (default: ~/.config/reqs/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Logging verbosity (debug, info, warn, error)")

	return cmd
}

// run merges file defaults under the flags, builds the engine
// configuration, and drives either the stdin batch or the MCP server.
func run(cmd *cobra.Command, opts *options) error {
	settings, err := config.Load(opts.configPath)
	if err != nil {
		return shared.NewUsageError("invalid configuration", err)
	}
	applySettings(cmd, opts, settings)

	cfg, err := buildConfig(opts)
	if err != nil {
		return shared.NewUsageError("invalid arguments", err)
	}

	if opts.mcp {
		version, _, _ := shared.GetVersion()
		srv, err := mcpserver.NewServer(mcpserver.ServerConfig{
			Name:     "reqs",
			Version:  version,
			LogLevel: opts.logLevel,
			Base:     cfg,
		})
		if err != nil {
			return shared.NewUsageError("starting MCP server", err)
		}
		return srv.Run(cmd.Context())
	}

	return runBatch(cmd, opts, cfg)
}

// runBatch streams stdin descriptors through the engine into the sink.
func runBatch(cmd *cobra.Command, opts *options, cfg engine.Config) error {
	var sinkOut io.Writer = cmd.OutOrStdout()
	if opts.outputPath != "" {
		f, err := os.Create(opts.outputPath)
		if err != nil {
			return shared.NewFatalError(fmt.Sprintf("cannot open output file %s", opts.outputPath), err)
		}
		defer f.Close()
		sinkOut = f
	}

	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return shared.NewUsageError("invalid arguments", err)
	}

	sink, err := output.NewWriter(sinkOut, output.Options{
		Format:       format,
		Template:     opts.template,
		Color:        !opts.noColor && opts.outputPath == "",
		IncludeReq:   opts.includeReq,
		IncludeRes:   opts.includeRes,
		IncludeTitle: opts.includeTitle,
	})
	if err != nil {
		return shared.NewUsageError("invalid arguments", err)
	}

	logCfg := log.FromEnv()
	if cmd.Flags().Changed("log-level") {
		logCfg.Level = opts.logLevel
	}
	logger := log.WithRunID(log.New(logCfg), uuid.NewString())

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return shared.NewUsageError("invalid arguments", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := make(chan engine.Descriptor)
	go func() {
		defer close(in)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			d := engine.ParseLine(scanner.Text())
			if d.Method == "" {
				continue
			}
			select {
			case in <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	var writeErr error
	eng.Run(ctx, in, func(r *engine.ResponseInfo) {
		if err := sink.Emit(r); err != nil && writeErr == nil {
			writeErr = err
		}
	})
	if writeErr != nil {
		return shared.NewFatalError("writing output", writeErr)
	}

	return nil
}

// applySettings fills options from the config file for flags the user
// did not set on the command line.
func applySettings(cmd *cobra.Command, opts *options, s *config.Settings) {
	changed := cmd.Flags().Changed

	if s.Timeout != nil && !changed("timeout") {
		opts.timeout = *s.Timeout
	}
	if s.Retry != nil && !changed("retry") {
		opts.retry = *s.Retry
	}
	if s.Delay != nil && !changed("delay") {
		opts.delay = *s.Delay
	}
	if s.Concurrency != nil && !changed("concurrency") {
		opts.concurrency = *s.Concurrency
	}
	if s.Proxy != nil && !changed("proxy") {
		opts.proxy = *s.Proxy
	}
	if s.VerifySSL != nil && !changed("verify-ssl") {
		opts.verifySSL = *s.VerifySSL
	}
	if s.RateLimit != nil && !changed("rate-limit") {
		opts.rateLimit = *s.RateLimit
	}
	if s.RandomDelay != nil && !changed("random-delay") {
		opts.randomDelay = *s.RandomDelay
	}
	if s.FollowRedirect != nil && !changed("follow-redirect") {
		opts.followRedirect = *s.FollowRedirect
	}
	if s.HTTP2 != nil && !changed("http2") {
		opts.http2 = *s.HTTP2
	}
	if len(s.Headers) > 0 && !changed("headers") {
		opts.headers = s.Headers
	}
	if s.Format != nil && !changed("format") {
		opts.format = *s.Format
	}
	if s.Template != nil && !changed("strf") {
		opts.template = *s.Template
	}
	if s.IncludeReq != nil && !changed("include-req") {
		opts.includeReq = *s.IncludeReq
	}
	if s.IncludeRes != nil && !changed("include-res") {
		opts.includeRes = *s.IncludeRes
	}
	if s.IncludeTitle != nil && !changed("include-title") {
		opts.includeTitle = *s.IncludeTitle
	}
	if s.NoColor != nil && !changed("no-color") {
		opts.noColor = *s.NoColor
	}
}

// buildConfig turns flag values into a validated engine.Config.
func buildConfig(opts *options) (engine.Config, error) {
	concurrency, err := engine.ParseConcurrency(opts.concurrency)
	if err != nil {
		return engine.Config{}, err
	}

	cfg := engine.Config{
		Timeout:        time.Duration(opts.timeout) * time.Second,
		Retry:          opts.retry,
		RetryDelay:     time.Duration(opts.delay) * time.Millisecond,
		Concurrency:    concurrency,
		Proxy:          opts.proxy,
		VerifySSL:      opts.verifySSL,
		RateLimit:      opts.rateLimit,
		FollowRedirect: opts.followRedirect && !opts.noFollowRedirect,
		HTTP2:          opts.http2,
		Headers:        engine.ParseHeaderLines(opts.headers),
		IncludeReq:     opts.includeReq,
		IncludeRes:     opts.includeRes,
		IncludeTitle:   opts.includeTitle,
		UserAgent:      defaultUserAgent(),
	}

	if opts.randomDelay != "" {
		jitter, err := engine.ParseJitter(opts.randomDelay)
		if err != nil {
			return engine.Config{}, err
		}
		cfg.RandomDelay = jitter
	}

	if opts.filterStatus != "" {
		statuses, err := engine.ParseStatusFilter(opts.filterStatus)
		if err != nil {
			return engine.Config{}, err
		}
		cfg.Filter.Statuses = statuses
	}
	cfg.Filter.String = opts.filterString
	if opts.filterRegex != "" {
		re, err := regexp.Compile(opts.filterRegex)
		if err != nil {
			return engine.Config{}, fmt.Errorf("invalid filter-regex: %w", err)
		}
		cfg.Filter.Regex = re
	}

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}

	return cfg, nil
}

func defaultUserAgent() string {
	version, _, _ := shared.GetVersion()
	return "reqs/" + version
}
