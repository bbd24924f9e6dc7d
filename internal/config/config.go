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

// Package config loads optional YAML defaults for the CLI. Flags given
// on the command line always win over file values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings mirrors the CLI flags. Pointer fields distinguish "unset"
// from zero values so the file can set only what it needs.
type Settings struct {
	Timeout        *int     `yaml:"timeout"`
	Retry          *int     `yaml:"retry"`
	Delay          *int     `yaml:"delay"`
	Concurrency    *int     `yaml:"concurrency"`
	Proxy          *string  `yaml:"proxy"`
	VerifySSL      *bool    `yaml:"verify_ssl"`
	RateLimit      *float64 `yaml:"rate_limit"`
	RandomDelay    *string  `yaml:"random_delay"`
	FollowRedirect *bool    `yaml:"follow_redirect"`
	HTTP2          *bool    `yaml:"http2"`
	Headers        []string `yaml:"headers"`
	Format         *string  `yaml:"format"`
	Template       *string  `yaml:"strf"`
	IncludeReq     *bool    `yaml:"include_req"`
	IncludeRes     *bool    `yaml:"include_res"`
	IncludeTitle   *bool    `yaml:"include_title"`
	NoColor        *bool    `yaml:"no_color"`
}

// Load reads settings from path. When path is "" the default location
// is used, and a missing file there is not an error.
func Load(path string) (*Settings, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return &Settings{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return &s, nil
}
