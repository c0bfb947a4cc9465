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

// Package md provides a CommonMark parser and HTML renderer.
//
// Parsing never fails: malformed constructs degrade to more
// literal interpretations exactly as CommonMark specifies,
// so every input produces a document tree.
package md

// A Parser holds block parsing options.
// The zero value parses with a tab stop of 4 columns.
type Parser struct {
	// TabSize is the number of columns between tab stops.
	// Values less than 1 mean 4.
	// Regardless of TabSize, indented code blocks
	// start at 4 columns of indentation.
	TabSize int
}

// A Document is the result of parsing a single piece of Markdown text.
type Document struct {
	// Root is the document block at the top of the tree.
	Root *Block
	// Refs holds the link reference definitions collected during parsing.
	Refs ReferenceMap
}

// Parse builds the tree for the given source text.
// It is total: there is no error to return.
// The returned document does not alias source.
func (p *Parser) Parse(source []byte) *Document {
	tabSize := p.TabSize
	if tabSize < 1 {
		tabSize = 4
	}
	bp := &blockParser{
		doc:     &Block{kind: DocumentKind, open: true},
		tabSize: tabSize,
		refs:    make(ReferenceMap),
	}
	bp.tip = bp.doc
	lines := lineSplitter{text: sanitizeSource(source)}
	for lines.more() {
		bp.incorporateLine(lines.next())
	}
	for bp.tip != nil {
		bp.finalize(bp.tip)
	}
	parseDocumentInlines(bp.doc, bp.refs)
	clearParseState(bp.doc)
	return &Document{Root: bp.doc, Refs: bp.refs}
}

// clearParseState drops the block-phase bookkeeping
// so that finished trees are plain values.
func clearParseState(b *Block) {
	b.parent = nil
	b.lastLineBlank = false
	for _, c := range b.children {
		clearParseState(c)
	}
}
