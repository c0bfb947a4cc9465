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
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/atom"
)

// HTMLRenderer converts a parsed document into HTML.
//
// Raw HTML blocks and spans pass through unmodified:
// rendering untrusted input without sanitizing the result
// is unsafe for browsers.
type HTMLRenderer struct {
	// ExtraCodeClass, if not empty, is added as a class
	// to the pre and code tags of every code block.
	ExtraCodeClass string
}

// RenderHTML writes the rendered HTML of a document to w
// with the default options.
func RenderHTML(w io.Writer, doc *Document) error {
	return new(HTMLRenderer).Render(w, doc)
}

// Render writes the rendered HTML of a document to w.
func (r *HTMLRenderer) Render(w io.Writer, doc *Document) error {
	if _, err := w.Write(r.AppendDocument(nil, doc)); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

// AppendDocument appends the rendered HTML of a document to dst
// and returns the resulting byte slice.
func (r *HTMLRenderer) AppendDocument(dst []byte, doc *Document) []byte {
	st := &renderState{dst: dst, opts: r}
	st.children(doc.Root, false)
	return st.dst
}

type renderState struct {
	dst  []byte
	opts *HTMLRenderer
}

// cr ensures the output ends with a newline,
// except at the very beginning.
func (r *renderState) cr() {
	if len(r.dst) > 0 && r.dst[len(r.dst)-1] != '\n' {
		r.dst = append(r.dst, '\n')
	}
}

func (r *renderState) openTagAttr(name atom.Atom) {
	r.dst = append(r.dst, '<')
	r.dst = append(r.dst, name.String()...)
}

func (r *renderState) openTag(name atom.Atom) {
	r.openTagAttr(name)
	r.dst = append(r.dst, '>')
}

func (r *renderState) closeTag(name atom.Atom) {
	r.dst = append(r.dst, '<', '/')
	r.dst = append(r.dst, name.String()...)
	r.dst = append(r.dst, '>')
}

func (r *renderState) attr(name, value string) {
	r.dst = append(r.dst, ' ')
	r.dst = append(r.dst, name...)
	r.dst = append(r.dst, '=', '"')
	r.dst = escapeHTML(r.dst, value)
	r.dst = append(r.dst, '"')
}

func (r *renderState) children(parent *Block, tight bool) {
	for _, b := range parent.Children() {
		r.block(b, tight)
	}
}

func (r *renderState) block(b *Block, tight bool) {
	switch b.Kind() {
	case ParagraphKind:
		if tight {
			r.inlines(b.Inlines())
			return
		}
		r.cr()
		r.openTag(atom.P)
		r.inlines(b.Inlines())
		r.closeTag(atom.P)
		r.cr()
	case HeadingKind:
		tagName := headingAtoms[b.HeadingLevel()-1]
		r.cr()
		r.openTag(tagName)
		r.inlines(b.Inlines())
		r.closeTag(tagName)
		r.cr()
	case ThematicBreakKind:
		r.cr()
		r.dst = append(r.dst, "<hr />"...)
		r.cr()
	case IndentedCodeBlockKind, FencedCodeBlockKind:
		r.codeBlock(b)
	case HTMLBlockKind:
		r.cr()
		r.dst = append(r.dst, b.content...)
		r.cr()
	case BlockQuoteKind:
		r.cr()
		r.openTag(atom.Blockquote)
		r.cr()
		r.children(b, false)
		r.cr()
		r.closeTag(atom.Blockquote)
		r.cr()
	case ListKind:
		tagName := atom.Ul
		if b.IsOrderedList() {
			tagName = atom.Ol
		}
		r.cr()
		r.openTagAttr(tagName)
		if start := b.ListStart(); start >= 0 && start != 1 {
			r.attr("start", strconv.Itoa(start))
		}
		r.dst = append(r.dst, '>')
		r.cr()
		r.children(b, b.IsTightList())
		r.cr()
		r.closeTag(tagName)
		r.cr()
	case ListItemKind:
		r.openTag(atom.Li)
		r.children(b, tight)
		r.closeTag(atom.Li)
		r.cr()
	}
}

var headingAtoms = [6]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

func (r *renderState) codeBlock(b *Block) {
	lang := b.Info()
	if i := strings.IndexAny(lang, " \t"); i >= 0 {
		lang = lang[:i]
	}
	var codeClasses []string
	if lang != "" {
		codeClasses = append(codeClasses, "language-"+lang)
	}
	if extra := r.opts.ExtraCodeClass; extra != "" {
		codeClasses = append(codeClasses, extra)
	}

	r.cr()
	r.openTagAttr(atom.Pre)
	if extra := r.opts.ExtraCodeClass; extra != "" {
		r.attr("class", extra)
	}
	r.dst = append(r.dst, '>')
	r.openTagAttr(atom.Code)
	if len(codeClasses) > 0 {
		r.attr("class", strings.Join(codeClasses, " "))
	}
	r.dst = append(r.dst, '>')
	r.dst = escapeHTML(r.dst, string(b.content))
	r.closeTag(atom.Code)
	r.closeTag(atom.Pre)
	r.cr()
}

func (r *renderState) inlines(inlines []*Inline) {
	for _, inline := range inlines {
		r.inline(inline)
	}
}

func (r *renderState) inline(inline *Inline) {
	switch inline.Kind() {
	case TextKind:
		r.dst = escapeHTML(r.dst, inline.Text())
	case SoftBreakKind:
		r.dst = append(r.dst, '\n')
	case HardBreakKind:
		r.dst = append(r.dst, "<br />\n"...)
	case CodeSpanKind:
		r.openTag(atom.Code)
		r.dst = escapeHTML(r.dst, inline.Text())
		r.closeTag(atom.Code)
	case EmphasisKind:
		r.openTag(atom.Em)
		r.inlines(inline.Children())
		r.closeTag(atom.Em)
	case StrongKind:
		r.openTag(atom.Strong)
		r.inlines(inline.Children())
		r.closeTag(atom.Strong)
	case LinkKind:
		r.openTagAttr(atom.A)
		r.attr("href", NormalizeURI(inline.Destination()))
		if title := inline.Title(); title != "" {
			r.attr("title", title)
		}
		r.dst = append(r.dst, '>')
		r.inlines(inline.Children())
		r.closeTag(atom.A)
	case ImageKind:
		r.openTagAttr(atom.Img)
		r.attr("src", NormalizeURI(inline.Destination()))
		r.dst = append(r.dst, ` alt="`...)
		r.dst = appendAltText(r.dst, inline.Children())
		r.dst = append(r.dst, '"')
		if title := inline.Title(); title != "" {
			r.attr("title", title)
		}
		r.dst = append(r.dst, " />"...)
	case AutolinkKind:
		r.openTagAttr(atom.A)
		r.attr("href", NormalizeURI(inline.Destination()))
		r.dst = append(r.dst, '>')
		r.dst = escapeHTML(r.dst, inline.Text())
		r.closeTag(atom.A)
	case RawHTMLKind:
		r.dst = append(r.dst, inline.Text()...)
	}
}

// appendAltText renders inline content as the plain text
// used for an image's alt attribute.
func appendAltText(dst []byte, inlines []*Inline) []byte {
	for _, inline := range inlines {
		switch inline.Kind() {
		case TextKind, CodeSpanKind:
			dst = escapeHTML(dst, inline.Text())
		case SoftBreakKind, HardBreakKind:
			dst = append(dst, ' ')
		default:
			dst = appendAltText(dst, inline.Children())
		}
	}
	return dst
}

// escapeHTML appends s to dst,
// escaping the characters that are unsafe in HTML text
// and double-quoted attribute values.
func escapeHTML(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			dst = append(dst, "&amp;"...)
		case '<':
			dst = append(dst, "&lt;"...)
		case '>':
			dst = append(dst, "&gt;"...)
		case '"':
			dst = append(dst, "&quot;"...)
		default:
			dst = append(dst, s[i])
		}
	}
	return dst
}

// NormalizeURI percent-encodes the characters of a link destination
// that cannot appear raw in an HTML attribute's URI,
// leaving existing percent escapes and RFC 3986 reserved
// and unreserved characters alone.
func NormalizeURI(s string) string {
	const safeSet = `;/?:@&=+$,-_.!~*'()#`

	sb := new(strings.Builder)
	sb.Grow(len(s))
	skip := 0
	var buf [utf8.UTFMax]byte
	for i, c := range s {
		if skip > 0 {
			skip--
			sb.WriteRune(c)
			continue
		}
		switch {
		case c == '%':
			if i+2 < len(s) && isHexDigit(s[i+1]) && isHexDigit(s[i+2]) {
				skip = 2
				sb.WriteByte('%')
			} else {
				sb.WriteString("%25")
			}
		case (c < 0x80 && (isASCIILetter(byte(c)) || isDigit(byte(c)))) || strings.ContainsRune(safeSet, c):
			sb.WriteRune(c)
		default:
			n := utf8.EncodeRune(buf[:], c)
			for _, b := range buf[:n] {
				sb.WriteByte('%')
				sb.WriteByte(upperHexDigit(b >> 4))
				sb.WriteByte(upperHexDigit(b & 0x0f))
			}
		}
	}
	return sb.String()
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func upperHexDigit(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'A' + b - 10
}
