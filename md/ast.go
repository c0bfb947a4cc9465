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

// A Block is a structural element in a Markdown document.
// Container blocks own an ordered sequence of child blocks;
// leaf blocks own either raw text (before inline parsing)
// or a sequence of inline nodes (after).
type Block struct {
	kind     BlockKind
	children []*Block
	inlines  []*Inline
	content  []byte // raw inline-source text of a leaf

	level    int    // heading level, 1-6
	info     string // fenced code block info string, escapes resolved
	htmlKind int    // HTML block kind, 1-7

	list  listData
	fence fenceData

	// Transient block-phase state.
	parent        *Block
	open          bool
	lastLineBlank bool
}

type listData struct {
	ordered      bool
	start        int
	tight        bool
	bullet       byte // '-', '+', or '*'
	delim        byte // '.' or ')'
	markerOffset int
	padding      int
}

type fenceData struct {
	char   byte
	length int
	offset int
}

// Kind returns the type of block node
// or zero if the node is nil.
func (b *Block) Kind() BlockKind {
	if b == nil {
		return 0
	}
	return b.kind
}

// Children returns the block's child blocks.
// Leaf blocks have no child blocks.
func (b *Block) Children() []*Block {
	if b == nil {
		return nil
	}
	return b.children
}

// Inlines returns the parsed inline content of a leaf block.
func (b *Block) Inlines() []*Inline {
	if b == nil {
		return nil
	}
	return b.inlines
}

// Text returns the raw text a leaf block accumulated during block parsing.
// For code blocks this is the literal content; for paragraphs and headings
// it is the inline source that the inline phase consumes.
func (b *Block) Text() string {
	if b == nil {
		return ""
	}
	return string(b.content)
}

// HeadingLevel returns the level of a heading block, 1 through 6,
// or zero for any other kind of block.
func (b *Block) HeadingLevel() int {
	if b.Kind() != HeadingKind {
		return 0
	}
	return b.level
}

// Info returns the info string of a fenced code block
// with backslash and entity escapes resolved.
func (b *Block) Info() string {
	if b == nil {
		return ""
	}
	return b.info
}

// IsOrderedList reports whether the block is an ordered list.
func (b *Block) IsOrderedList() bool {
	return b.Kind() == ListKind && b.list.ordered
}

// ListStart returns the first number of an ordered list
// or -1 for any other kind of block.
func (b *Block) ListStart() int {
	if !b.IsOrderedList() {
		return -1
	}
	return b.list.start
}

// IsTightList reports whether a list block is tight,
// that is, whether no blank line separates any of its items' content.
func (b *Block) IsTightList() bool {
	return b.Kind() == ListKind && b.list.tight
}

func (b *Block) lastChild() *Block {
	if b == nil || len(b.children) == 0 {
		return nil
	}
	return b.children[len(b.children)-1]
}

// BlockKind is an enumeration of values returned by [*Block.Kind].
type BlockKind uint16

const (
	DocumentKind BlockKind = 1 + iota
	ParagraphKind
	HeadingKind
	ThematicBreakKind
	IndentedCodeBlockKind
	FencedCodeBlockKind
	HTMLBlockKind
	BlockQuoteKind
	ListKind
	ListItemKind
)

// An Inline is a Markdown content element like text, a link, or emphasis.
type Inline struct {
	kind        InlineKind
	text        string // literal content; escapes already resolved
	destination string
	title       string
	children    []*Inline
}

// Kind returns the type of inline node
// or zero if the node is nil.
func (inline *Inline) Kind() InlineKind {
	if inline == nil {
		return 0
	}
	return inline.kind
}

// Text returns the literal content of a non-container inline node.
func (inline *Inline) Text() string {
	switch inline.Kind() {
	case SoftBreakKind, HardBreakKind:
		return "\n"
	default:
		if inline == nil {
			return ""
		}
		return inline.text
	}
}

// Destination returns the link target of a Link, Image, or Autolink node.
func (inline *Inline) Destination() string {
	if inline == nil {
		return ""
	}
	return inline.destination
}

// Title returns the title of a Link or Image node
// or the empty string if no title was given.
func (inline *Inline) Title() string {
	if inline == nil {
		return ""
	}
	return inline.title
}

// Children returns the child sequence of a container inline node.
func (inline *Inline) Children() []*Inline {
	if inline == nil {
		return nil
	}
	return inline.children
}

// InlineKind is an enumeration of values returned by [*Inline.Kind].
type InlineKind uint16

const (
	TextKind InlineKind = 1 + iota
	SoftBreakKind
	HardBreakKind
	CodeSpanKind
	EmphasisKind
	StrongKind
	LinkKind
	ImageKind
	AutolinkKind
	RawHTMLKind
)

// Node is a pointer to a [Block] or an [Inline].
// Nodes can be compared for equality using the == operator.
type Node struct {
	block  *Block
	inline *Inline
}

// AsNode converts the block node to a [Node] pointer.
func (b *Block) AsNode() Node {
	if b == nil {
		return Node{}
	}
	return Node{block: b}
}

// AsNode converts the inline node to a [Node] pointer.
func (inline *Inline) AsNode() Node {
	if inline == nil {
		return Node{}
	}
	return Node{inline: inline}
}

// Block returns the referenced block
// or nil if the pointer does not reference a block.
func (n Node) Block() *Block {
	return n.block
}

// Inline returns the referenced inline
// or nil if the pointer does not reference an inline.
func (n Node) Inline() *Inline {
	return n.inline
}

// ChildCount returns the number of children the node has.
// Calling ChildCount on the zero value returns 0.
func (n Node) ChildCount() int {
	if b := n.Block(); b != nil {
		if len(b.children) > 0 {
			return len(b.children)
		}
		return len(b.inlines)
	}
	if i := n.Inline(); i != nil {
		return len(i.Children())
	}
	return 0
}

// Child returns the i'th child of the node.
func (n Node) Child(i int) Node {
	if b := n.Block(); b != nil {
		if len(b.children) > 0 {
			return b.children[i].AsNode()
		}
		return b.inlines[i].AsNode()
	}
	if in := n.Inline(); in != nil {
		return in.children[i].AsNode()
	}
	panic("Child on zero Node")
}
