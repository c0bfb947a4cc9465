// Copyright 2025 The marksite Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package site assembles rendered Markdown into the pages
// of a static site: full HTML documents with a shared head,
// navigation, stylesheet, and index.
//
// The package works entirely in memory.
// Reading input directories and writing output files
// belong to the caller.
package site

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Error kinds reported by this package.
// Test with [errors.Is].
var (
	// ErrConfigParse reports malformed configuration input.
	ErrConfigParse = errors.New("malformed site configuration")
	// ErrEncoding reports source text that is not valid UTF-8.
	ErrEncoding = errors.New("source text is not valid UTF-8")
)

// Config holds the site generation options.
type Config struct {
	Lexer LexerConfig `yaml:"lexer"`
	HTML  HTMLConfig  `yaml:"html"`
}

// LexerConfig holds tokenization options.
type LexerConfig struct {
	// TabSize is the number of columns between tab stops
	// when measuring indentation.
	TabSize int `yaml:"tab_size"`
}

// HTMLConfig holds page generation options.
type HTMLConfig struct {
	// CSSFile names the stylesheet to link from every page.
	// The value "default" links the embedded default stylesheet
	// as styles.css; any other non-empty value is used as the href.
	CSSFile string `yaml:"css_file"`
	// FaviconFile names a favicon image.
	// When not empty, pages link media/<base name> relative
	// to the site root.
	FaviconFile string `yaml:"favicon_file"`
	// UsePrism enables PrismJS syntax highlighting:
	// pages load the Prism core, autoloader, and theme
	// from a CDN. When false, code blocks are classed
	// for the default stylesheet's plain rendering instead.
	UsePrism bool `yaml:"use_prism"`
	// PrismTheme selects the Prism theme stylesheet.
	PrismTheme string `yaml:"prism_theme"`
	// SanitizeHTML is reserved for a sanitizing post-processing
	// step over raw HTML. The renderer itself always passes
	// raw HTML through.
	SanitizeHTML bool `yaml:"sanitize_html"`
}

// DefaultConfig returns the configuration used
// when no config file is present.
func DefaultConfig() Config {
	return Config{
		Lexer: LexerConfig{TabSize: 4},
		HTML: HTMLConfig{
			CSSFile:      "default",
			FaviconFile:  "",
			UsePrism:     false,
			PrismTheme:   "vsc-dark-plus",
			SanitizeHTML: true,
		},
	}
}

// ReadConfig decodes a YAML configuration,
// filling omitted fields from [DefaultConfig].
// Malformed input yields an error matching [ErrConfigParse].
func ReadConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if cfg.Lexer.TabSize < 1 {
		return DefaultConfig(), fmt.Errorf("%w: tab_size must be at least 1", ErrConfigParse)
	}
	return cfg, nil
}

// CheckEncoding verifies that source is valid UTF-8,
// returning an error matching [ErrEncoding] otherwise.
// The build itself substitutes invalid bytes and never fails;
// callers that prefer to reject such input can check first.
func CheckEncoding(name string, source []byte) error {
	if !utf8.Valid(source) {
		return fmt.Errorf("%w: %s", ErrEncoding, name)
	}
	return nil
}
