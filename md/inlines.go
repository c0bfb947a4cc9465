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
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// parseDocumentInlines runs the inline phase over every leaf block
// whose content is inline text.
func parseDocumentInlines(b *Block, refs ReferenceMap) {
	switch b.kind {
	case ParagraphKind, HeadingKind:
		b.inlines = parseInlines(string(b.content), refs)
		b.content = nil
	default:
		for _, c := range b.children {
			parseDocumentInlines(c, refs)
		}
	}
}

// inlineParser holds the state for parsing one leaf block's text:
// a cursor into the subject, the sequence built so far,
// the delimiter stack, and the bracket stack.
type inlineParser struct {
	subject    string
	pos        int
	refs       ReferenceMap
	list       []*Inline
	delimiters *delim
	brackets   *bracket
}

// delim is an entry in the doubly linked emphasis delimiter stack.
type delim struct {
	char       byte
	n          int // remaining delimiters
	origN      int // length of the original run, for the rule of 3
	node       *Inline
	prev, next *delim
	canOpen    bool
	canClose   bool
}

// bracket is an entry in the stack of pending link or image openers.
type bracket struct {
	node         *Inline
	prev         *bracket
	prevDelim    *delim
	index        int // subject index of the '['
	image        bool
	active       bool
	bracketAfter bool
}

func parseInlines(s string, refs ReferenceMap) []*Inline {
	p := &inlineParser{
		subject: strings.Trim(s, " \t\r\n"),
		refs:    refs,
	}
	for p.pos < len(p.subject) {
		p.parseInline()
	}
	p.processEmphasis(nil)
	return p.list
}

func (p *inlineParser) parseInline() {
	switch p.subject[p.pos] {
	case '\n':
		p.parseNewline()
	case '\\':
		p.parseBackslash()
	case '`':
		p.parseBackticks()
	case '*', '_':
		p.parseDelimiterRun(p.subject[p.pos])
	case '[':
		p.pos++
		p.addBracket(p.appendText("["), p.pos-1, false)
	case '!':
		p.parseBang()
	case ']':
		p.parseCloseBracket()
	case '<':
		p.parseAngle()
	case '&':
		p.parseEntity()
	default:
		p.parseString()
	}
}

func (p *inlineParser) peek() int {
	if p.pos < len(p.subject) {
		return int(p.subject[p.pos])
	}
	return -1
}

func (p *inlineParser) appendText(s string) *Inline {
	node := &Inline{kind: TextKind, text: s}
	p.list = append(p.list, node)
	return node
}

func (p *inlineParser) lastNode() *Inline {
	if len(p.list) == 0 {
		return nil
	}
	return p.list[len(p.list)-1]
}

// parseString consumes a run of characters
// that cannot start any inline construct.
func (p *inlineParser) parseString() {
	start := p.pos
	for p.pos < len(p.subject) && !isInlineMeta(p.subject[p.pos]) {
		p.pos++
	}
	p.appendText(p.subject[start:p.pos])
}

func isInlineMeta(c byte) bool {
	switch c {
	case '\n', '\\', '`', '*', '_', '[', ']', '!', '<', '&':
		return true
	}
	return false
}

// parseNewline emits a hard break when the preceding text
// ends with two or more spaces, and a soft break otherwise.
func (p *inlineParser) parseNewline() {
	p.pos++
	kind := SoftBreakKind
	if last := p.lastNode(); last.Kind() == TextKind && strings.HasSuffix(last.text, " ") {
		if strings.HasSuffix(last.text, "  ") {
			kind = HardBreakKind
		}
		last.text = strings.TrimRight(last.text, " ")
		if last.text == "" {
			p.list = p.list[:len(p.list)-1]
		}
	}
	p.list = append(p.list, &Inline{kind: kind})
	for p.pos < len(p.subject) && p.subject[p.pos] == ' ' {
		p.pos++
	}
}

func (p *inlineParser) parseBackslash() {
	p.pos++
	switch c := p.peek(); {
	case c == '\n':
		p.pos++
		p.list = append(p.list, &Inline{kind: HardBreakKind})
	case c >= 0 && isEscapable(byte(c)):
		p.pos++
		p.appendText(p.subject[p.pos-1 : p.pos])
	default:
		p.appendText("\\")
	}
}

func isEscapable(c byte) bool {
	return strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", c) >= 0
}

// parseBackticks parses a code span: the opening backtick run must be
// matched by a run of exactly the same length.
func (p *inlineParser) parseBackticks() {
	n := runLength([]byte(p.subject[p.pos:]), '`')
	contentStart := p.pos + n
	for i := contentStart; i < len(p.subject); {
		j := strings.IndexByte(p.subject[i:], '`')
		if j < 0 {
			break
		}
		i += j
		m := runLength([]byte(p.subject[i:]), '`')
		if m == n {
			content := normalizeCodeSpanContent(p.subject[contentStart:i])
			p.list = append(p.list, &Inline{kind: CodeSpanKind, text: content})
			p.pos = i + m
			return
		}
		i += m
	}
	p.appendText(p.subject[p.pos:contentStart])
	p.pos = contentStart
}

// normalizeCodeSpanContent converts line endings to spaces and strips
// one space from both ends when the content is padded and not all spaces.
func normalizeCodeSpanContent(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.Trim(s, " ") != "" {
		s = s[1 : len(s)-1]
	}
	return s
}

// parseDelimiterRun consumes a run of * or _
// and pushes it on the delimiter stack.
func (p *inlineParser) parseDelimiterRun(c byte) {
	n, canOpen, canClose := p.scanDelims(c)
	node := p.appendText(p.subject[p.pos : p.pos+n])
	p.pos += n
	d := &delim{
		char:     c,
		n:        n,
		origN:    n,
		node:     node,
		prev:     p.delimiters,
		canOpen:  canOpen,
		canClose: canClose,
	}
	if d.prev != nil {
		d.prev.next = d
	}
	p.delimiters = d
}

// scanDelims measures the delimiter run at the cursor and computes
// whether it can open or close emphasis from its flanking positions.
func (p *inlineParser) scanDelims(c byte) (n int, canOpen, canClose bool) {
	n = runLength([]byte(p.subject[p.pos:]), c)
	before, _ := utf8.DecodeLastRuneInString(p.subject[:p.pos])
	if p.pos == 0 {
		before = '\n'
	}
	after, _ := utf8.DecodeRuneInString(p.subject[p.pos+n:])
	if p.pos+n >= len(p.subject) {
		after = '\n'
	}
	beforeWS, beforePunct := unicode.IsSpace(before), isPunctuation(before)
	afterWS, afterPunct := unicode.IsSpace(after), isPunctuation(after)
	leftFlanking := !afterWS && (!afterPunct || beforeWS || beforePunct)
	rightFlanking := !beforeWS && (!beforePunct || afterWS || afterPunct)
	if c == '_' {
		canOpen = leftFlanking && (!rightFlanking || beforePunct)
		canClose = rightFlanking && (!leftFlanking || afterPunct)
	} else {
		canOpen = leftFlanking
		canClose = rightFlanking
	}
	return n, canOpen, canClose
}

// isPunctuation reports whether r is punctuation for flanking purposes:
// all ASCII punctuation plus Unicode category P.
func isPunctuation(r rune) bool {
	if r < 0x80 {
		return isEscapable(byte(r))
	}
	return unicode.IsPunct(r)
}

func (p *inlineParser) addBracket(node *Inline, index int, image bool) {
	if p.brackets != nil {
		p.brackets.bracketAfter = true
	}
	p.brackets = &bracket{
		node:      node,
		prev:      p.brackets,
		prevDelim: p.delimiters,
		index:     index,
		image:     image,
		active:    true,
	}
}

func (p *inlineParser) removeBracket() {
	p.brackets = p.brackets.prev
}

func (p *inlineParser) parseBang() {
	p.pos++
	if p.peek() == '[' {
		p.pos++
		p.addBracket(p.appendText("!["), p.pos-1, true)
		return
	}
	p.appendText("!")
}

// parseCloseBracket resolves a pending bracket opener into a link or
// image, trying an inline suffix first and references second,
// and falls back to a literal ] when nothing matches.
func (p *inlineParser) parseCloseBracket() {
	p.pos++
	startPos := p.pos

	opener := p.brackets
	if opener == nil {
		p.appendText("]")
		return
	}
	if !opener.active {
		p.removeBracket()
		p.appendText("]")
		return
	}

	var dest, title string
	matched := false

	if p.peek() == '(' {
		savePos := p.pos
		p.pos++
		p.spnl()
		if d, ok := p.parseLinkDestination(); ok {
			before := p.pos
			p.spnl()
			if p.pos > before {
				if t, ok := p.parseLinkTitle(); ok {
					title = t
				}
			}
			p.spnl()
			if p.peek() == ')' {
				p.pos++
				dest = d
				matched = true
			}
		}
		if !matched {
			p.pos = savePos
		}
	}

	if !matched {
		beforeLabel := p.pos
		n := p.parseLinkLabel()
		var refLabel string
		switch {
		case n > 2:
			refLabel = p.subject[beforeLabel : beforeLabel+n]
		case !opener.bracketAfter:
			refLabel = p.subject[opener.index:startPos]
		}
		if refLabel != "" {
			if def, ok := p.refs.Lookup(refLabel[1 : len(refLabel)-1]); ok {
				dest, title = def.Destination, def.Title
				matched = true
			}
		}
		if !matched {
			p.pos = beforeLabel
		}
	}

	if !matched {
		p.removeBracket()
		p.pos = startPos
		p.appendText("]")
		return
	}

	kind := LinkKind
	if opener.image {
		kind = ImageKind
	}
	p.processEmphasis(opener.prevDelim)
	i := p.indexOf(opener.node)
	node := &Inline{
		kind:        kind,
		destination: dest,
		title:       title,
		children:    append([]*Inline(nil), p.list[i+1:]...),
	}
	p.list = append(p.list[:i], node)
	p.removeBracket()
	if kind == LinkKind {
		// Links cannot nest, so deactivate enclosing link openers.
		for b := p.brackets; b != nil; b = b.prev {
			if !b.image {
				b.active = false
			}
		}
	}
}

// parseAngle parses an autolink or a raw HTML span,
// falling back to a literal <.
func (p *inlineParser) parseAngle() {
	rest := p.subject[p.pos:]
	if m := autolinkRegexp.FindString(rest); m != "" {
		text := m[1 : len(m)-1]
		p.list = append(p.list, &Inline{kind: AutolinkKind, text: text, destination: text})
		p.pos += len(m)
		return
	}
	if m := emailAutolinkRegexp.FindString(rest); m != "" {
		text := m[1 : len(m)-1]
		p.list = append(p.list, &Inline{kind: AutolinkKind, text: text, destination: "mailto:" + text})
		p.pos += len(m)
		return
	}
	if m := rawHTMLRegexp.FindString(rest); m != "" {
		p.list = append(p.list, &Inline{kind: RawHTMLKind, text: m})
		p.pos += len(m)
		return
	}
	p.pos++
	p.appendText("<")
}

func (p *inlineParser) parseEntity() {
	m := entityRegexp.FindString(p.subject[p.pos:])
	if m == "" {
		p.pos++
		p.appendText("&")
		return
	}
	p.pos += len(m)
	decoded, _ := decodeEntity(m)
	p.appendText(decoded)
}

// decodeEntity resolves an entity or character reference matched by
// entityRegexp. Numeric references outside the Unicode scalar range
// and unknown named entities stay literal, reported by ok=false;
// a numeric zero decodes to the replacement character.
func decodeEntity(m string) (s string, ok bool) {
	if m[1] == '#' {
		digits := m[2 : len(m)-1]
		base := 10
		if digits[0] == 'x' || digits[0] == 'X' {
			digits = digits[1:]
			base = 16
		}
		var cp int64
		for _, c := range digits {
			cp = cp*int64(base) + int64(hexValue(byte(c)))
			if cp > 0x10FFFF {
				return m, false
			}
		}
		if cp >= 0xD800 && cp <= 0xDFFF {
			return m, false
		}
		if cp == 0 {
			return string(utf8.RuneError), true
		}
		return string(rune(cp)), true
	}
	if decoded := html.UnescapeString(m); decoded != m {
		return decoded, true
	}
	return m, false
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}

// spnl skips spaces and tabs with at most one line ending,
// the amount of whitespace allowed inside link syntax.
func (p *inlineParser) spnl() {
	seenNewline := false
	for p.pos < len(p.subject) {
		switch p.subject[p.pos] {
		case ' ', '\t':
		case '\n':
			if seenNewline {
				return
			}
			seenNewline = true
		default:
			return
		}
		p.pos++
	}
}

// parseLinkLabel consumes a bracketed link label of at most 999
// characters with no unescaped brackets inside,
// returning its total length including brackets, or zero.
func (p *inlineParser) parseLinkLabel() int {
	m := linkLabelRegexp.FindString(p.subject[p.pos:])
	if m == "" {
		return 0
	}
	p.pos += len(m)
	return len(m)
}

func (p *inlineParser) parseLinkDestination() (string, bool) {
	if p.peek() == '<' {
		m := angleDestRegexp.FindString(p.subject[p.pos:])
		if m == "" {
			return "", false
		}
		p.pos += len(m)
		return unescapeText(m[1 : len(m)-1]), true
	}
	start := p.pos
	parens := 0
scan:
	for p.pos < len(p.subject) {
		switch c := p.subject[p.pos]; {
		case c == '\\' && p.pos+1 < len(p.subject) && isEscapable(p.subject[p.pos+1]):
			p.pos += 2
		case c == '(':
			parens++
			p.pos++
		case c == ')':
			if parens < 1 {
				break scan
			}
			parens--
			p.pos++
		case c <= ' ':
			break scan
		default:
			p.pos++
		}
	}
	if parens != 0 {
		p.pos = start
		return "", false
	}
	if p.pos == start && p.peek() != ')' {
		return "", false
	}
	return unescapeText(p.subject[start:p.pos]), true
}

func (p *inlineParser) parseLinkTitle() (string, bool) {
	m := linkTitleRegexp.FindString(p.subject[p.pos:])
	if m == "" {
		return "", false
	}
	p.pos += len(m)
	return unescapeText(m[1 : len(m)-1]), true
}

// unescapeText resolves backslash escapes and character references
// in link destinations, titles, and info strings.
func unescapeText(s string) string {
	if !strings.ContainsAny(s, "\\&") {
		return s
	}
	sb := new(strings.Builder)
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s) && isEscapable(s[i+1]):
			sb.WriteByte(s[i+1])
			i += 2
		case c == '&':
			m := entityRegexp.FindString(s[i:])
			if m == "" {
				sb.WriteByte(c)
				i++
				continue
			}
			decoded, _ := decodeEntity(m)
			sb.WriteString(decoded)
			i += len(m)
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

// processEmphasis resolves the delimiter stack above stackBottom into
// Emphasis and Strong nodes, applying the rule of 3 for runs that can
// both open and close, with per-length openersBottom acceleration.
func (p *inlineParser) processEmphasis(stackBottom *delim) {
	var openersBottom [3][2]*delim

	closer := p.delimiters
	for closer != nil && closer.prev != stackBottom {
		closer = closer.prev
	}
	for closer != nil {
		if !closer.canClose {
			closer = closer.next
			continue
		}
		ci := 0
		if closer.char == '_' {
			ci = 1
		}

		opener := closer.prev
		openerFound := false
		for opener != nil && opener != stackBottom && opener != openersBottom[closer.origN%3][ci] {
			oddMatch := (closer.canOpen || opener.canClose) &&
				closer.origN%3 != 0 && (opener.origN+closer.origN)%3 == 0
			if opener.char == closer.char && opener.canOpen && !oddMatch {
				openerFound = true
				break
			}
			opener = opener.prev
		}
		oldCloser := closer

		if openerFound {
			use := 1
			kind := EmphasisKind
			if closer.n >= 2 && opener.n >= 2 {
				use = 2
				kind = StrongKind
			}
			opener.n -= use
			closer.n -= use
			opener.node.text = opener.node.text[:len(opener.node.text)-use]
			closer.node.text = closer.node.text[:len(closer.node.text)-use]
			p.wrap(kind, opener.node, closer.node)
			// Delimiters between the pair can never match anything now.
			opener.next = closer
			closer.prev = opener
			if opener.n == 0 {
				p.removeNode(opener.node)
				p.removeDelimiter(opener)
			}
			if closer.n == 0 {
				p.removeNode(closer.node)
				next := closer.next
				p.removeDelimiter(closer)
				closer = next
			}
		} else {
			closer = closer.next
		}

		if !openerFound {
			// No opener can ever match this closer,
			// so don't search below it again.
			openersBottom[oldCloser.origN%3][ci] = oldCloser.prev
			if !oldCloser.canOpen {
				p.removeDelimiter(oldCloser)
			}
		}
	}

	for p.delimiters != nil && p.delimiters != stackBottom {
		p.removeDelimiter(p.delimiters)
	}
}

func (p *inlineParser) removeDelimiter(d *delim) {
	if d.prev != nil {
		d.prev.next = d.next
	}
	if d.next == nil {
		p.delimiters = d.prev
	} else {
		d.next.prev = d.prev
	}
}

func (p *inlineParser) indexOf(node *Inline) int {
	for i, n := range p.list {
		if n == node {
			return i
		}
	}
	return -1
}

func (p *inlineParser) removeNode(node *Inline) {
	if i := p.indexOf(node); i >= 0 {
		p.list = append(p.list[:i], p.list[i+1:]...)
	}
}

// wrap moves the nodes strictly between opener and closer
// into a new container inserted in their place.
func (p *inlineParser) wrap(kind InlineKind, opener, closer *Inline) {
	i := p.indexOf(opener)
	j := p.indexOf(closer)
	node := &Inline{
		kind:     kind,
		children: append([]*Inline(nil), p.list[i+1:j]...),
	}
	p.list = append(p.list[:i+1], append([]*Inline{node}, p.list[j:]...)...)
}

var (
	entityRegexp    = regexp.MustCompile(`^&(?:#[xX][0-9a-fA-F]{1,6}|#[0-9]{1,7}|[a-zA-Z][a-zA-Z0-9]{1,31});`)
	linkLabelRegexp = regexp.MustCompile(`(?s)^\[(?:[^\\\[\]]|\\.){0,999}\]`)
	angleDestRegexp = regexp.MustCompile(`^<(?:[^<>\n\\]|\\.)*>`)
	linkTitleRegexp = regexp.MustCompile(`(?s)^(?:"(?:\\.|[^"])*"|'(?:\\.|[^'])*'|\((?:\\.|[^()])*\))`)

	autolinkRegexp      = regexp.MustCompile(`^<[a-zA-Z][a-zA-Z0-9+.-]{1,31}:[^<>\x00-\x20]*>`)
	emailAutolinkRegexp = regexp.MustCompile(`^<[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*>`)

	rawHTMLRegexp = regexp.MustCompile(`(?s)^(?:` +
		`<[a-zA-Z][a-zA-Z0-9-]*(?:[ \t\n]+[a-zA-Z_:][a-zA-Z0-9_.:-]*(?:[ \t\n]*=[ \t\n]*(?:[^ \t\n"'` + "`" + `=<>]+|'[^']*'|"[^"]*"))?)*[ \t\n]*/?>` + // open tag
		`|</[a-zA-Z][a-zA-Z0-9-]*[ \t\n]*>` + // closing tag
		`|<!---->|<!--(?:-?[^>-])(?:-?[^-])*-->` + // comment
		`|<\?.*?\?>` + // processing instruction
		`|<![a-zA-Z][^>]*>` + // declaration
		`|<!\[CDATA\[.*?\]\]>)`) // CDATA section
)
