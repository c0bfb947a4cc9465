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
	"strconv"
)

// codeIndent is the column threshold for indented code blocks.
// It does not vary with the tab stop.
const codeIndent = 4

// blockParser carries the open-block stack and the cursor
// into the line being incorporated.
// Offsets index bytes; columns count tab-expanded positions.
type blockParser struct {
	doc                  *Block
	tip                  *Block
	oldTip               *Block
	lastMatchedContainer *Block
	refs                 ReferenceMap
	tabSize              int

	line                 []byte
	offset               int
	column               int
	nextNonspace         int
	nextNonspaceColumn   int
	indent               int
	blank                bool
	partiallyConsumedTab bool
	allClosed            bool
}

type continuationResult int

const (
	noMatch continuationResult = iota
	matched
	consumedLine
)

type startResult int

const (
	noStart startResult = iota
	startedContainer
	startedLeaf
)

type blockRule struct {
	match        func(*blockParser, *Block) continuationResult
	canContain   func(BlockKind) bool
	acceptsLines bool
}

var blocks map[BlockKind]blockRule

func init() {
	// Assigned in init to avoid an initialization cycle
	// through the rules that close or finalize blocks.
	blocks = map[BlockKind]blockRule{
		DocumentKind: {
			match:      func(*blockParser, *Block) continuationResult { return matched },
			canContain: func(k BlockKind) bool { return k != ListItemKind },
		},
		ParagraphKind: {
			match: func(bp *blockParser, b *Block) continuationResult {
				if bp.blank {
					return noMatch
				}
				return matched
			},
			acceptsLines: true,
		},
		HeadingKind: {
			match: func(*blockParser, *Block) continuationResult { return noMatch },
		},
		ThematicBreakKind: {
			match: func(*blockParser, *Block) continuationResult { return noMatch },
		},
		IndentedCodeBlockKind: {
			match: func(bp *blockParser, b *Block) continuationResult {
				switch {
				case bp.indent >= codeIndent:
					bp.advanceOffset(codeIndent, true)
				case bp.blank:
					bp.advanceNextNonspace()
				default:
					return noMatch
				}
				return matched
			},
			acceptsLines: true,
		},
		FencedCodeBlockKind: {
			match: func(bp *blockParser, b *Block) continuationResult {
				if bp.indent <= 3 && bp.peek(bp.nextNonspace) == int(b.fence.char) {
					run := runLength(bp.line[bp.nextNonspace:], b.fence.char)
					if run >= b.fence.length && isBlankLine(bp.line[bp.nextNonspace+run:]) {
						bp.finalize(b)
						return consumedLine
					}
				}
				for i := b.fence.offset; i > 0 && isSpaceOrTab(bp.peek(bp.offset)); i-- {
					bp.advanceOffset(1, true)
				}
				return matched
			},
			acceptsLines: true,
		},
		HTMLBlockKind: {
			match: func(bp *blockParser, b *Block) continuationResult {
				if bp.blank && (b.htmlKind == 6 || b.htmlKind == 7) {
					return noMatch
				}
				return matched
			},
			acceptsLines: true,
		},
		BlockQuoteKind: {
			match: func(bp *blockParser, b *Block) continuationResult {
				if bp.indent <= 3 && bp.peek(bp.nextNonspace) == '>' {
					bp.advanceNextNonspace()
					bp.advanceOffset(1, false)
					if isSpaceOrTab(bp.peek(bp.offset)) {
						bp.advanceOffset(1, true)
					}
					return matched
				}
				return noMatch
			},
			canContain: func(k BlockKind) bool { return k != ListItemKind },
		},
		ListKind: {
			match:      func(*blockParser, *Block) continuationResult { return matched },
			canContain: func(k BlockKind) bool { return k == ListItemKind },
		},
		ListItemKind: {
			match: func(bp *blockParser, b *Block) continuationResult {
				if bp.blank {
					if len(b.children) == 0 {
						// Blank line after an empty list item.
						return noMatch
					}
					bp.advanceNextNonspace()
					return matched
				}
				if bp.indent >= b.list.markerOffset+b.list.padding {
					bp.advanceOffset(b.list.markerOffset+b.list.padding, true)
					return matched
				}
				return noMatch
			},
			canContain: func(k BlockKind) bool { return k != ListItemKind },
		},
	}
}

// blockStarts lists the block start checks in precedence order.
var blockStarts = []func(*blockParser, *Block) startResult{
	startBlockQuote,
	startATXHeading,
	startFencedCodeBlock,
	startHTMLBlock,
	startSetextHeading,
	startThematicBreak,
	startListItem,
	startIndentedCodeBlock,
}

func (bp *blockParser) incorporateLine(line []byte) {
	bp.line = line
	bp.offset, bp.column = 0, 0
	bp.blank, bp.partiallyConsumedTab = false, false
	bp.oldTip = bp.tip

	// Walk the chain of open blocks, matching each continuation.
	allMatched := true
	container := bp.doc
	for {
		lastChild := container.lastChild()
		if lastChild == nil || !lastChild.open {
			break
		}
		container = lastChild
		bp.findNextNonspace()
		switch blocks[container.kind].match(bp, container) {
		case matched:
		case noMatch:
			allMatched = false
		case consumedLine:
			return
		}
		if !allMatched {
			container = container.parent
			break
		}
	}
	bp.allClosed = container == bp.oldTip
	bp.lastMatchedContainer = container

	// Look for new block starts unless the matched block is a leaf
	// that takes lines directly.
	matchedLeaf := container.kind != ParagraphKind && blocks[container.kind].acceptsLines
	for !matchedLeaf {
		bp.findNextNonspace()
		if bp.indent < codeIndent && !maybeBlockStart(bp.peek(bp.nextNonspace)) {
			bp.advanceNextNonspace()
			break
		}
		i := 0
		for ; i < len(blockStarts); i++ {
			res := blockStarts[i](bp, container)
			if res != noStart {
				container = bp.tip
				matchedLeaf = res == startedLeaf
				break
			}
		}
		if i == len(blockStarts) {
			bp.advanceNextNonspace()
			break
		}
	}

	if !bp.allClosed && !bp.blank && bp.tip.kind == ParagraphKind {
		// Lazy continuation line.
		bp.addLine()
		return
	}
	bp.closeUnmatchedBlocks()
	container = bp.tip

	// A blank line also marks the block just closed,
	// which the list tightness pass inspects.
	if bp.blank && container.lastChild() != nil {
		container.lastChild().lastLineBlank = true
	}

	lastLineBlank := bp.blank &&
		!(container.kind == BlockQuoteKind ||
			container.kind == FencedCodeBlockKind ||
			(container.kind == ListItemKind && len(container.children) == 0 && len(container.content) == 0))
	for c := container; c != nil; c = c.parent {
		c.lastLineBlank = lastLineBlank
	}

	switch {
	case blocks[container.kind].acceptsLines:
		bp.addLine()
		if container.kind == HTMLBlockKind && htmlBlockEnd(container.htmlKind, bp.line[bp.offset:]) {
			bp.finalize(container)
		}
	case bp.offset < len(bp.line) && !bp.blank:
		container = bp.addChild(ParagraphKind)
		bp.advanceNextNonspace()
		bp.addLine()
	}
}

func (bp *blockParser) peek(i int) int {
	if i >= len(bp.line) {
		return -1
	}
	return int(bp.line[i])
}

func (bp *blockParser) findNextNonspace() {
	i, col := bp.offset, bp.column
	for i < len(bp.line) {
		switch bp.line[i] {
		case ' ':
			i++
			col++
		case '\t':
			i++
			col += bp.tabSize - (col % bp.tabSize)
		default:
			goto done
		}
	}
done:
	bp.blank = i >= len(bp.line)
	bp.nextNonspace = i
	bp.nextNonspaceColumn = col
	bp.indent = col - bp.column
}

func (bp *blockParser) advanceNextNonspace() {
	bp.offset = bp.nextNonspace
	bp.column = bp.nextNonspaceColumn
	bp.partiallyConsumedTab = false
}

// advanceOffset moves the cursor forward by count bytes,
// or by count columns when columns is true.
// Advancing by columns may stop partway through a tab.
func (bp *blockParser) advanceOffset(count int, columns bool) {
	for count > 0 && bp.offset < len(bp.line) {
		if bp.line[bp.offset] == '\t' {
			charsToTab := bp.tabSize - (bp.column % bp.tabSize)
			if !columns {
				bp.partiallyConsumedTab = false
				bp.column += charsToTab
				bp.offset++
				count--
				continue
			}
			bp.partiallyConsumedTab = charsToTab > count
			if charsToTab > count {
				bp.column += count
				count = 0
			} else {
				bp.column += charsToTab
				bp.offset++
				count -= charsToTab
			}
			continue
		}
		bp.partiallyConsumedTab = false
		bp.offset++
		bp.column++
		count--
	}
}

// addLine appends the rest of the current line to the tip's content.
// A partially consumed tab contributes its remaining columns as spaces.
func (bp *blockParser) addLine() {
	if bp.partiallyConsumedTab {
		bp.offset++
		for i := bp.tabSize - (bp.column % bp.tabSize); i > 0; i-- {
			bp.tip.content = append(bp.tip.content, ' ')
		}
	}
	bp.tip.content = append(bp.tip.content, bp.line[bp.offset:]...)
	bp.tip.content = append(bp.tip.content, '\n')
}

// addChild adds a new open block as the last child of the tip,
// first finalizing any open blocks that cannot contain it.
func (bp *blockParser) addChild(kind BlockKind) *Block {
	for {
		canContain := blocks[bp.tip.kind].canContain
		if canContain != nil && canContain(kind) {
			break
		}
		bp.finalize(bp.tip)
	}
	child := &Block{kind: kind, open: true, parent: bp.tip}
	bp.tip.children = append(bp.tip.children, child)
	bp.tip = child
	return child
}

func (bp *blockParser) closeUnmatchedBlocks() {
	if bp.allClosed {
		return
	}
	for bp.oldTip != bp.lastMatchedContainer {
		parent := bp.oldTip.parent
		bp.finalize(bp.oldTip)
		bp.oldTip = parent
	}
	bp.allClosed = true
}

// finalize closes a block, performing its end-of-block processing,
// and moves the tip to its parent.
func (bp *blockParser) finalize(b *Block) {
	b.open = false
	switch b.kind {
	case ParagraphKind:
		for len(b.content) > 0 && b.content[0] == '[' {
			n := parseReferenceDefinition(string(b.content), bp.refs)
			if n == 0 {
				break
			}
			b.content = b.content[n:]
		}
		// Paragraph content can only be blank when definitions were
		// stripped from it, here or by a setext underline check.
		if isBlankLine(b.content) {
			bp.removeChild(b)
		}
	case IndentedCodeBlockKind:
		b.content = trimTrailingBlankLines(b.content)
	case FencedCodeBlockKind:
		// The first accumulated line is the info string.
		if i := bytes.IndexByte(b.content, '\n'); i >= 0 {
			b.info = unescapeText(string(bytes.TrimSpace(b.content[:i])))
			b.content = b.content[i+1:]
		}
	case HTMLBlockKind:
		b.content = trimTrailingBlankLines(b.content)
	case ListKind:
		finalizeList(b)
	}
	bp.tip = b.parent
}

func (bp *blockParser) removeChild(b *Block) {
	siblings := b.parent.children
	for i, c := range siblings {
		if c == b {
			b.parent.children = append(siblings[:i], siblings[i+1:]...)
			return
		}
	}
}

// finalizeList applies the deferred tightness rule:
// a list is loose if any blank line separates item content,
// judged after all items are closed.
func finalizeList(list *Block) {
	loose := false
	for i, item := range list.children {
		if endsWithBlankLine(item) && i < len(list.children)-1 {
			loose = true
			break
		}
		for j, sub := range item.children {
			if endsWithBlankLine(sub) && (i < len(list.children)-1 || j < len(item.children)-1) {
				loose = true
				break
			}
		}
		if loose {
			break
		}
	}
	list.list.tight = !loose
	for _, item := range list.children {
		item.list.tight = !loose
	}
}

func endsWithBlankLine(b *Block) bool {
	for {
		if b.lastLineBlank {
			return true
		}
		if b.kind != ListKind && b.kind != ListItemKind {
			return false
		}
		b = b.lastChild()
		if b == nil {
			return false
		}
	}
}

func startBlockQuote(bp *blockParser, container *Block) startResult {
	if bp.indent > 3 || bp.peek(bp.nextNonspace) != '>' {
		return noStart
	}
	bp.advanceNextNonspace()
	bp.advanceOffset(1, false)
	if isSpaceOrTab(bp.peek(bp.offset)) {
		bp.advanceOffset(1, true)
	}
	bp.closeUnmatchedBlocks()
	bp.addChild(BlockQuoteKind)
	return startedContainer
}

func startATXHeading(bp *blockParser, container *Block) startResult {
	if bp.indent > 3 {
		return noStart
	}
	level, content, ok := parseATXHeading(bp.line[bp.nextNonspace:])
	if !ok {
		return noStart
	}
	bp.advanceNextNonspace()
	bp.closeUnmatchedBlocks()
	h := bp.addChild(HeadingKind)
	h.level = level
	h.content = append([]byte(nil), content...)
	bp.advanceOffset(len(bp.line)-bp.offset, false)
	return startedLeaf
}

// parseATXHeading recognizes an opening hash run of 1-6
// followed by space, tab, or end of line,
// and strips an optional closing hash sequence.
func parseATXHeading(line []byte) (level int, content []byte, ok bool) {
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level < 1 || level > 6 {
		return 0, nil, false
	}
	rest := line[level:]
	if len(rest) > 0 && rest[0] != ' ' && rest[0] != '\t' {
		return 0, nil, false
	}
	rest = bytes.Trim(rest, " \t")
	// A closing sequence of hashes is dropped when preceded by
	// space or tab or when it makes up the whole content.
	i := len(rest)
	for i > 0 && rest[i-1] == '#' {
		i--
	}
	if i == 0 {
		return level, nil, true
	}
	if i < len(rest) && (rest[i-1] == ' ' || rest[i-1] == '\t') {
		rest = bytes.TrimRight(rest[:i], " \t")
	}
	return level, rest, true
}

func startFencedCodeBlock(bp *blockParser, container *Block) startResult {
	if bp.indent > 3 {
		return noStart
	}
	rest := bp.line[bp.nextNonspace:]
	if len(rest) == 0 || (rest[0] != '`' && rest[0] != '~') {
		return noStart
	}
	c := rest[0]
	run := runLength(rest, c)
	if run < 3 {
		return noStart
	}
	if c == '`' && bytes.IndexByte(rest[run:], '`') >= 0 {
		// An info string on a backtick fence may not contain backticks.
		return noStart
	}
	bp.closeUnmatchedBlocks()
	b := bp.addChild(FencedCodeBlockKind)
	b.fence = fenceData{char: c, length: run, offset: bp.indent}
	bp.advanceNextNonspace()
	bp.advanceOffset(run, false)
	return startedLeaf
}

func startHTMLBlock(bp *blockParser, container *Block) startResult {
	if bp.indent > 3 || bp.peek(bp.nextNonspace) != '<' {
		return noStart
	}
	rest := bp.line[bp.nextNonspace:]
	kind := htmlBlockStart(rest)
	if kind == 0 {
		return noStart
	}
	if kind == 7 {
		// Kind 7 never interrupts a paragraph, not even lazily.
		if container.kind == ParagraphKind ||
			(!bp.allClosed && !bp.blank && bp.tip.kind == ParagraphKind) {
			return noStart
		}
	}
	bp.closeUnmatchedBlocks()
	b := bp.addChild(HTMLBlockKind)
	b.htmlKind = kind
	// The line is kept verbatim from the current offset,
	// including up to 3 leading spaces.
	return startedLeaf
}

func startSetextHeading(bp *blockParser, container *Block) startResult {
	if bp.indent > 3 || container.kind != ParagraphKind {
		return noStart
	}
	level := parseSetextUnderline(bp.line[bp.nextNonspace:])
	if level == 0 {
		return noStart
	}
	bp.closeUnmatchedBlocks()
	for len(container.content) > 0 && container.content[0] == '[' {
		n := parseReferenceDefinition(string(container.content), bp.refs)
		if n == 0 {
			break
		}
		container.content = container.content[n:]
	}
	if len(container.content) == 0 {
		// The paragraph held only link reference definitions,
		// so the underline is not a heading.
		return noStart
	}
	container.kind = HeadingKind
	container.level = level
	container.content = bytes.TrimSuffix(container.content, []byte("\n"))
	bp.advanceOffset(len(bp.line)-bp.offset, false)
	return startedLeaf
}

func parseSetextUnderline(line []byte) int {
	if len(line) == 0 {
		return 0
	}
	c := line[0]
	if c != '=' && c != '-' {
		return 0
	}
	run := runLength(line, c)
	if !isBlankLine(line[run:]) {
		return 0
	}
	if c == '=' {
		return 1
	}
	return 2
}

func startThematicBreak(bp *blockParser, container *Block) startResult {
	if bp.indent > 3 || !parseThematicBreak(bp.line[bp.nextNonspace:]) {
		return noStart
	}
	bp.closeUnmatchedBlocks()
	bp.addChild(ThematicBreakKind)
	bp.advanceOffset(len(bp.line)-bp.offset, false)
	return startedLeaf
}

func parseThematicBreak(line []byte) bool {
	var c byte
	n := 0
	for _, b := range line {
		switch b {
		case ' ', '\t':
		case '*', '-', '_':
			if c == 0 {
				c = b
			} else if b != c {
				return false
			}
			n++
		default:
			return false
		}
	}
	return n >= 3
}

func startListItem(bp *blockParser, container *Block) startResult {
	if bp.indent >= codeIndent && container.kind != ListKind {
		return noStart
	}
	data, ok := bp.parseListMarker(container)
	if !ok {
		return noStart
	}
	bp.closeUnmatchedBlocks()
	if bp.tip.kind != ListKind || !listsMatch(container.list, data) {
		list := bp.addChild(ListKind)
		list.list = data
	}
	item := bp.addChild(ListItemKind)
	item.list = data
	return startedContainer
}

func listsMatch(a, b listData) bool {
	return a.ordered == b.ordered && a.delim == b.delim && a.bullet == b.bullet
}

// parseListMarker recognizes a bullet or ordered list marker at the
// next nonspace position and computes the content column (padding).
// On success the cursor has been advanced past the marker.
func (bp *blockParser) parseListMarker(container *Block) (listData, bool) {
	if bp.indent >= codeIndent {
		return listData{}, false
	}
	rest := bp.line[bp.nextNonspace:]
	data := listData{markerOffset: bp.indent, tight: true}
	markerLen := 0
	switch {
	case len(rest) > 0 && (rest[0] == '-' || rest[0] == '+' || rest[0] == '*'):
		data.bullet = rest[0]
		markerLen = 1
	default:
		digits := 0
		for digits < len(rest) && digits < 9 && isDigit(rest[digits]) {
			digits++
		}
		if digits == 0 || digits >= len(rest) || (rest[digits] != '.' && rest[digits] != ')') {
			return listData{}, false
		}
		start, err := strconv.Atoi(string(rest[:digits]))
		if err != nil {
			return listData{}, false
		}
		if container.kind == ParagraphKind && start != 1 {
			// An ordered list can interrupt a paragraph
			// only when it starts at 1.
			return listData{}, false
		}
		data.ordered = true
		data.start = start
		data.delim = rest[digits]
		markerLen = digits + 1
	}
	if next := bp.peek(bp.nextNonspace + markerLen); next != -1 && !isSpaceOrTab(next) {
		return listData{}, false
	}
	if container.kind == ParagraphKind && isBlankLine(rest[markerLen:]) {
		// An empty item cannot interrupt a paragraph.
		return listData{}, false
	}

	bp.advanceNextNonspace()
	bp.advanceOffset(markerLen, true)
	spacesStartCol := bp.column
	spacesStartOffset := bp.offset
	spacesStartTab := bp.partiallyConsumedTab
	for bp.column-spacesStartCol < 5 && isSpaceOrTab(bp.peek(bp.offset)) {
		bp.advanceOffset(1, true)
	}
	blankItem := bp.peek(bp.offset) == -1
	spacesAfterMarker := bp.column - spacesStartCol
	if spacesAfterMarker >= 5 || spacesAfterMarker < 1 || blankItem {
		data.padding = markerLen + 1
		bp.column = spacesStartCol
		bp.offset = spacesStartOffset
		bp.partiallyConsumedTab = spacesStartTab
		if isSpaceOrTab(bp.peek(bp.offset)) {
			bp.advanceOffset(1, true)
		}
	} else {
		data.padding = markerLen + spacesAfterMarker
	}
	return data, true
}

func startIndentedCodeBlock(bp *blockParser, container *Block) startResult {
	if bp.indent < codeIndent || bp.tip.kind == ParagraphKind || bp.blank {
		return noStart
	}
	bp.advanceOffset(codeIndent, true)
	bp.closeUnmatchedBlocks()
	bp.addChild(IndentedCodeBlockKind)
	return startedLeaf
}

// maybeBlockStart reports whether c can begin any block construct
// other than a paragraph. Used to skip the start checks on plain lines.
func maybeBlockStart(c int) bool {
	switch c {
	case '#', '`', '~', '*', '+', '_', '=', '<', '>', '-':
		return true
	}
	return c >= '0' && c <= '9'
}

func isSpaceOrTab(c int) bool {
	return c == ' ' || c == '\t'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isBlankLine(line []byte) bool {
	for _, c := range line {
		if c != ' ' && c != '\t' && c != '\n' {
			return false
		}
	}
	return true
}

func runLength(line []byte, c byte) int {
	n := 0
	for n < len(line) && line[n] == c {
		n++
	}
	return n
}

// trimTrailingBlankLines removes trailing lines that are all spaces,
// leaving a single final newline.
func trimTrailingBlankLines(content []byte) []byte {
	end := len(content)
	for end > 0 {
		i := end
		for i > 0 && content[i-1] == ' ' {
			i--
		}
		if i == 0 || content[i-1] != '\n' {
			break
		}
		end = i - 1
	}
	if end == len(content) {
		return content
	}
	return append(content[:end], '\n')
}
