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

package md

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// A LinkDefinition is the destination and optional title
// that a link reference definition gives a label.
type LinkDefinition struct {
	Destination string
	Title       string
}

// A ReferenceMap holds the link reference definitions of a document,
// keyed by normalized label.
type ReferenceMap map[string]LinkDefinition

// Lookup finds the definition for a link label, if any.
// The label is normalized before lookup
// and must not include the surrounding brackets.
func (m ReferenceMap) Lookup(label string) (LinkDefinition, bool) {
	def, ok := m[normalizeLabel(label)]
	return def, ok
}

// add records a definition for the given raw label.
// The first definition for a label wins.
func (m ReferenceMap) add(label string, def LinkDefinition) {
	key := normalizeLabel(label)
	if key == "" {
		return
	}
	if _, exists := m[key]; !exists {
		m[key] = def
	}
}

var (
	labelFold       = cases.Fold()
	labelWhitespace = regexp.MustCompile(`[ \t\r\n]+`)
)

// normalizeLabel trims the label, collapses interior whitespace
// to single spaces, and applies Unicode case folding,
// so that labels match case-insensitively.
func normalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = labelWhitespace.ReplaceAllString(label, " ")
	return labelFold.String(label)
}

// parseReferenceDefinition attempts to parse a single link reference
// definition at the start of s, recording it in refs.
// It returns the number of bytes consumed, or zero if s does not
// start with a valid definition.
func parseReferenceDefinition(s string, refs ReferenceMap) int {
	p := &inlineParser{subject: s}

	labelLen := p.parseLinkLabel()
	if labelLen == 0 {
		return 0
	}
	rawLabel := p.subject[1 : labelLen-1]
	if normalizeLabel(rawLabel) == "" {
		return 0
	}
	if p.peek() != ':' {
		return 0
	}
	p.pos++

	p.spnl()
	dest, ok := p.parseLinkDestination()
	if !ok {
		return 0
	}

	beforeTitle := p.pos
	p.spnl()
	title := ""
	haveTitle := false
	if p.pos != beforeTitle {
		title, haveTitle = p.parseLinkTitle()
	}
	if !haveTitle {
		title = ""
		p.pos = beforeTitle
	}

	if !p.atLineEnd() {
		if !haveTitle {
			return 0
		}
		// The title candidate is not followed by a line end.
		// The definition may still be valid without it.
		title = ""
		p.pos = beforeTitle
		if !p.atLineEnd() {
			return 0
		}
	}

	refs.add(rawLabel, LinkDefinition{Destination: dest, Title: title})
	return p.pos
}

// atLineEnd consumes trailing spaces and at most one newline,
// reporting whether only whitespace remained on the line.
func (p *inlineParser) atLineEnd() bool {
	i := p.pos
	for i < len(p.subject) && (p.subject[i] == ' ' || p.subject[i] == '\t') {
		i++
	}
	if i == len(p.subject) {
		p.pos = i
		return true
	}
	if p.subject[i] == '\n' {
		p.pos = i + 1
		return true
	}
	return false
}
