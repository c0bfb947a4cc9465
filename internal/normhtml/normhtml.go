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

// Package normhtml normalizes HTML fragments for comparison in tests,
// ignoring differences that browsers ignore:
// whitespace around block tags, attribute order,
// and self-closing tag syntax.
// It follows the normalization the CommonMark spec test suite uses.
package normhtml

import (
	"bytes"
	"regexp"
	"sort"
	"unicode"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)

	textEscaper = bytereplacer.New(
		"&", "&amp;",
		"'", "&apos;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
)

// Normalize returns a canonical form of an HTML fragment.
// Two fragments that normalize to the same bytes
// render identically in a browser.
func Normalize(fragment []byte) []byte {
	tok := html.NewTokenizerFragment(bytes.NewReader(fragment), "div")
	var out []byte
	prev := html.StartTagToken
	prevTag := ""
	inPre := false
	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			return out
		case html.TextToken:
			out = appendText(out, tok.Text(), prev, prevTag, inPre)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tok.TagName()
			prevTag = string(name)
			if prevTag == "pre" {
				inPre = true
			}
			if isBlockTag(prevTag) {
				out = bytes.TrimRightFunc(out, unicode.IsSpace)
			}
			out = append(out, '<')
			out = append(out, prevTag...)
			if hasAttr {
				out = appendSortedAttrs(out, tok)
			}
			out = append(out, '>')
		case html.EndTagToken:
			name, _ := tok.TagName()
			prevTag = string(name)
			if prevTag == "pre" {
				inPre = false
			} else if isBlockTag(prevTag) {
				out = bytes.TrimRightFunc(out, unicode.IsSpace)
			}
			out = append(out, "</"...)
			out = append(out, prevTag...)
			out = append(out, '>')
		case html.CommentToken:
			out = append(out, tok.Raw()...)
		}
		prev = tt
		if tt == html.SelfClosingTagToken {
			// A self-closing tag acts like its own end tag
			// for the surrounding whitespace rules.
			prev = html.EndTagToken
		}
	}
}

func appendText(out, data []byte, prev html.TokenType, prevTag string, inPre bool) []byte {
	afterTag := prev == html.StartTagToken || prev == html.EndTagToken
	if afterTag && prevTag == "br" {
		data = bytes.TrimLeft(data, "\n")
	}
	if !inPre {
		data = whitespaceRuns.ReplaceAll(data, []byte(" "))
		if afterTag && isBlockTag(prevTag) {
			if prev == html.StartTagToken {
				data = bytes.TrimLeftFunc(data, unicode.IsSpace)
			} else {
				data = bytes.TrimSpace(data)
			}
		}
	}
	return append(out, textEscaper.Replace(bytes.Clone(data))...)
}

func appendSortedAttrs(out []byte, tok *html.Tokenizer) []byte {
	type attribute struct {
		key, value string
	}
	var attrs []attribute
	for {
		k, v, more := tok.TagAttr()
		attrs = append(attrs, attribute{string(k), string(v)})
		if !more {
			break
		}
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].key < attrs[j].key })
	for _, a := range attrs {
		out = append(out, ' ')
		out = append(out, a.key...)
		if a.value != "" {
			out = append(out, `="`...)
			out = append(out, html.EscapeString(a.value)...)
			out = append(out, '"')
		}
	}
	return out
}

var blockTags = make(map[string]struct{})

func init() {
	for _, a := range []atom.Atom{
		atom.Article, atom.Aside, atom.Blockquote, atom.Body, atom.Button,
		atom.Canvas, atom.Caption, atom.Col, atom.Colgroup, atom.Dd,
		atom.Div, atom.Dl, atom.Dt, atom.Embed, atom.Fieldset,
		atom.Figcaption, atom.Figure, atom.Footer, atom.Form,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Header, atom.Hgroup, atom.Hr, atom.Iframe, atom.Li,
		atom.Map, atom.Object, atom.Ol, atom.Output, atom.P, atom.Pre,
		atom.Progress, atom.Script, atom.Section, atom.Style,
		atom.Table, atom.Tbody, atom.Td, atom.Textarea, atom.Tfoot,
		atom.Th, atom.Thead, atom.Tr, atom.Ul, atom.Video,
	} {
		blockTags[a.String()] = struct{}{}
	}
}

func isBlockTag(tag string) bool {
	_, ok := blockTags[tag]
	return ok
}
