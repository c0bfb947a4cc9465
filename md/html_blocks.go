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
	"bytes"
	"regexp"

	"golang.org/x/net/html/atom"
)

// The seven HTML block kinds and their conditions.
// Kinds 1-5 end on a line matching their end condition
// (possibly the same line they start on);
// kinds 6 and 7 end on a blank line.

// htmlBlockStart reports which HTML block kind, if any,
// starts at the beginning of line. line starts with '<'.
func htmlBlockStart(line []byte) int {
	rest := line[1:]
	switch {
	case hasCaseInsensitivePrefixWord(rest, htmlBlockStarters1):
		return 1
	case bytes.HasPrefix(rest, []byte("!--")):
		return 2
	case bytes.HasPrefix(rest, []byte("?")):
		return 3
	case len(rest) >= 2 && rest[0] == '!' && isASCIILetter(rest[1]):
		return 4
	case bytes.HasPrefix(rest, []byte("![CDATA[")):
		return 5
	}
	name := rest
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	end := 0
	for end < len(name) && (isASCIILetter(name[end]) || isDigit(name[end]) || name[end] == '-') {
		end++
	}
	if end > 0 {
		if _, ok := htmlBlockTags6[string(bytes.ToLower(name[:end]))]; ok {
			switch {
			case end >= len(name), name[end] == ' ', name[end] == '\t', name[end] == '>':
				return 6
			case name[end] == '/' && end+1 < len(name) && name[end+1] == '>':
				return 6
			}
		}
	}
	if m := htmlBlockRegexp7.Find(line); m != nil && isBlankLine(line[len(m):]) {
		return 7
	}
	return 0
}

// htmlBlockEnd reports whether the given line,
// already added to an open HTML block of the given kind,
// ends the block. Kinds 6 and 7 end only on blank lines,
// which the continuation rule handles.
func htmlBlockEnd(kind int, line []byte) bool {
	switch kind {
	case 1:
		lower := bytes.ToLower(line)
		for _, ender := range htmlBlockEnders1 {
			if bytes.Contains(lower, []byte(ender)) {
				return true
			}
		}
		return false
	case 2:
		return bytes.Contains(line, []byte("-->"))
	case 3:
		return bytes.Contains(line, []byte("?>"))
	case 4:
		return bytes.Contains(line, []byte(">"))
	case 5:
		return bytes.Contains(line, []byte("]]>"))
	default:
		return false
	}
}

func hasCaseInsensitivePrefixWord(b []byte, prefixes []string) bool {
	for _, p := range prefixes {
		if len(b) < len(p) || !bytes.EqualFold(b[:len(p)], []byte(p)) {
			continue
		}
		switch {
		case len(b) == len(p):
			return true
		case b[len(p)] == ' ', b[len(p)] == '\t', b[len(p)] == '>':
			return true
		}
	}
	return false
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

var (
	htmlBlockStarters1 = []string{
		atom.Pre.String(),
		atom.Script.String(),
		atom.Style.String(),
		atom.Textarea.String(),
	}
	htmlBlockEnders1 = []string{
		"</" + atom.Pre.String() + ">",
		"</" + atom.Script.String() + ">",
		"</" + atom.Style.String() + ">",
		"</" + atom.Textarea.String() + ">",
	}

	htmlBlockTags6 = make(map[string]struct{})

	// A kind 7 block starts with a complete open or closing tag
	// alone on its line.
	htmlBlockRegexp7 = regexp.MustCompile(
		`^<(?:[a-zA-Z][a-zA-Z0-9-]*` + attributesPattern + `[ \t]*/?>` +
			`|/[a-zA-Z][a-zA-Z0-9-]*[ \t]*>)`)
)

const attributesPattern = `(?:[ \t\n]+[a-zA-Z_:][a-zA-Z0-9_.:-]*` +
	`(?:[ \t\n]*=[ \t\n]*(?:[^ \t\n"'` + "`" + `=<>]+|'[^']*'|"[^"]*"))?)*`

func init() {
	for _, a := range []atom.Atom{
		atom.Address, atom.Article, atom.Aside, atom.Base, atom.Basefont,
		atom.Blockquote, atom.Body, atom.Caption, atom.Center, atom.Col,
		atom.Colgroup, atom.Dd, atom.Details, atom.Dialog, atom.Dir,
		atom.Div, atom.Dl, atom.Dt, atom.Fieldset, atom.Figcaption,
		atom.Figure, atom.Footer, atom.Form, atom.Frame, atom.Frameset,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Head, atom.Header, atom.Hr, atom.Html, atom.Iframe,
		atom.Legend, atom.Li, atom.Link, atom.Main, atom.Menu,
		atom.Menuitem, atom.Nav, atom.Noframes, atom.Ol, atom.Optgroup,
		atom.Option, atom.P, atom.Param, atom.Section, atom.Source,
		atom.Summary, atom.Table, atom.Tbody, atom.Td, atom.Tfoot,
		atom.Th, atom.Thead, atom.Title, atom.Tr, atom.Track, atom.Ul,
	} {
		htmlBlockTags6[a.String()] = struct{}{}
	}
}
