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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var renderTests = []struct {
	name     string
	markdown string
	want     string
}{
	{
		name:     "Paragraph",
		markdown: "hello world\n",
		want:     "<p>hello world</p>\n",
	},
	{
		name:     "ParagraphJoinsLines",
		markdown: "line1\nline2\n",
		want:     "<p>line1\nline2</p>\n",
	},
	{
		name:     "ATXHeading",
		markdown: "# Hi\n",
		want:     "<h1>Hi</h1>\n",
	},
	{
		name:     "ATXHeadingClosingSequence",
		markdown: "## Hi ##\n",
		want:     "<h2>Hi</h2>\n",
	},
	{
		name:     "ATXHeadingRequiresSpace",
		markdown: "#5 bolt\n",
		want:     "<p>#5 bolt</p>\n",
	},
	{
		name:     "SetextHeading",
		markdown: "Foo\n---\n",
		want:     "<h2>Foo</h2>\n",
	},
	{
		name:     "SetextHeadingLevel1",
		markdown: "Foo\nbar\n===\n",
		want:     "<h1>Foo\nbar</h1>\n",
	},
	{
		name:     "ThematicBreak",
		markdown: "***\n",
		want:     "<hr />\n",
	},
	{
		name:     "ThematicBreakSpaced",
		markdown: " - - -\n",
		want:     "<hr />\n",
	},
	{
		name:     "ThematicBreakBeatsListContinuation",
		markdown: "- foo\n***\n- bar\n",
		want:     "<ul>\n<li>foo</li>\n</ul>\n<hr />\n<ul>\n<li>bar</li>\n</ul>\n",
	},
	{
		name:     "SetextBeatsThematicBreak",
		markdown: "Foo\n---\nbar\n",
		want:     "<h2>Foo</h2>\n<p>bar</p>\n",
	},
	{
		name:     "IndentedCode",
		markdown: "    foo\n    bar\n",
		want:     "<pre><code>foo\nbar\n</code></pre>\n",
	},
	{
		name:     "IndentedCodeTab",
		markdown: "\tfoo\n",
		want:     "<pre><code>foo\n</code></pre>\n",
	},
	{
		name:     "IndentedCodeTrailingBlanksDropped",
		markdown: "    foo\n\n\n",
		want:     "<pre><code>foo\n</code></pre>\n",
	},
	{
		name:     "IndentedCodeCannotInterruptParagraph",
		markdown: "foo\n    bar\n",
		want:     "<p>foo\nbar</p>\n",
	},
	{
		name:     "FencedCode",
		markdown: "```\ncode\n```\n",
		want:     "<pre><code>code\n</code></pre>\n",
	},
	{
		name:     "FencedCodeInfo",
		markdown: "```go\nfmt.Println()\n```\n",
		want:     "<pre><code class=\"language-go\">fmt.Println()\n</code></pre>\n",
	},
	{
		name:     "FencedCodeUnterminated",
		markdown: "```\ncode\n",
		want:     "<pre><code>code\n</code></pre>\n",
	},
	{
		name:     "FencedCodePreservesBlankLines",
		markdown: "```\na\n\nb\n```\n",
		want:     "<pre><code>a\n\nb\n</code></pre>\n",
	},
	{
		name:     "FencedCodeIndentStripped",
		markdown: "  ```\n    a\n   b\n  ```\n",
		want:     "<pre><code>  a\n b\n</code></pre>\n",
	},
	{
		name:     "BlockQuote",
		markdown: "> foo\n> bar\n",
		want:     "<blockquote>\n<p>foo\nbar</p>\n</blockquote>\n",
	},
	{
		name:     "BlockQuoteLazyContinuation",
		markdown: "> foo\nbar\n",
		want:     "<blockquote>\n<p>foo\nbar</p>\n</blockquote>\n",
	},
	{
		name:     "BlockQuoteLazyStopsAtHeading",
		markdown: "> foo\n# bar\n",
		want:     "<blockquote>\n<p>foo</p>\n</blockquote>\n<h1>bar</h1>\n",
	},
	{
		name:     "BlockQuoteNested",
		markdown: "> > inner\n",
		want:     "<blockquote>\n<blockquote>\n<p>inner</p>\n</blockquote>\n</blockquote>\n",
	},
	{
		name:     "BlockQuoteContainingList",
		markdown: "> - a\n> - b\n",
		want:     "<blockquote>\n<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n</blockquote>\n",
	},
	{
		name:     "TightList",
		markdown: "- a\n- b\n",
		want:     "<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n",
	},
	{
		name:     "LooseList",
		markdown: "- a\n\n- b\n",
		want:     "<ul>\n<li>\n<p>a</p>\n</li>\n<li>\n<p>b</p>\n</li>\n</ul>\n",
	},
	{
		name:     "ListItemMultipleBlocks",
		markdown: "- a\n\n  b\n",
		want:     "<ul>\n<li>\n<p>a</p>\n<p>b</p>\n</li>\n</ul>\n",
	},
	{
		name:     "NestedTightList",
		markdown: "- a\n  - b\n- c\n",
		want:     "<ul>\n<li>a\n<ul>\n<li>b</li>\n</ul>\n</li>\n<li>c</li>\n</ul>\n",
	},
	{
		name:     "OrderedListStart",
		markdown: "3. a\n4. b\n",
		want:     "<ol start=\"3\">\n<li>a</li>\n<li>b</li>\n</ol>\n",
	},
	{
		name:     "OrderedListStartOne",
		markdown: "1. a\n2. b\n",
		want:     "<ol>\n<li>a</li>\n<li>b</li>\n</ol>\n",
	},
	{
		name:     "OrderedListCannotInterruptParagraphUnlessOne",
		markdown: "foo\n2. bar\n",
		want:     "<p>foo\n2. bar</p>\n",
	},
	{
		name:     "BulletChangeStartsNewList",
		markdown: "- a\n+ b\n",
		want:     "<ul>\n<li>a</li>\n</ul>\n<ul>\n<li>b</li>\n</ul>\n",
	},
	{
		name:     "ListItemIndentedCode",
		markdown: "- a\n\n      code\n",
		want:     "<ul>\n<li>\n<p>a</p>\n<pre><code>code\n</code></pre>\n</li>\n</ul>\n",
	},
	{
		name:     "EmptyListItem",
		markdown: "- foo\n-\n- bar\n",
		want:     "<ul>\n<li>foo</li>\n<li></li>\n<li>bar</li>\n</ul>\n",
	},
	{
		name:     "HTMLBlock",
		markdown: "<div>\n*not emphasized*\n</div>\n",
		want:     "<div>\n*not emphasized*\n</div>\n",
	},
	{
		name:     "HTMLBlockScript",
		markdown: "<script>\nalert(1)\n</script>\n",
		want:     "<script>\nalert(1)\n</script>\n",
	},
	{
		name:     "HTMLBlockComment",
		markdown: "<!-- comment -->\n",
		want:     "<!-- comment -->\n",
	},
	{
		name:     "HTMLBlockKind7NeedsBlankLineBeforeParagraph",
		markdown: "foo\n<custom-tag>\n",
		want:     "<p>foo\n<custom-tag></p>\n",
	},
	{
		name:     "LinkReferenceForward",
		markdown: "[foo]\n\n[foo]: /url \"title\"\n",
		want:     "<p><a href=\"/url\" title=\"title\">foo</a></p>\n",
	},
	{
		name:     "LinkReferenceBackward",
		markdown: "[foo]: /url\n\n[foo]\n",
		want:     "<p><a href=\"/url\">foo</a></p>\n",
	},
	{
		name:     "LinkReferenceCaseInsensitive",
		markdown: "[FOO]\n\n[foo]: /url\n",
		want:     "<p><a href=\"/url\">FOO</a></p>\n",
	},
	{
		name:     "LinkReferenceFirstWins",
		markdown: "[foo]: /first\n[foo]: /second\n\n[foo]\n",
		want:     "<p><a href=\"/first\">foo</a></p>\n",
	},
	{
		name:     "LinkReferenceCollapsed",
		markdown: "[foo][]\n\n[foo]: /url\n",
		want:     "<p><a href=\"/url\">foo</a></p>\n",
	},
	{
		name:     "LinkReferenceFull",
		markdown: "[bar][foo]\n\n[foo]: /url\n",
		want:     "<p><a href=\"/url\">bar</a></p>\n",
	},
	{
		name:     "LinkReferenceUndefined",
		markdown: "[foo][nope]\n",
		want:     "<p>[foo][nope]</p>\n",
	},
	{
		name:     "DefinitionOnlyParagraphRendersNothing",
		markdown: "[foo]: /url \"title\"\n",
		want:     "",
	},
	{
		name:     "DefinitionThenThematicBreak",
		markdown: "[foo]: /url\n---\n[foo]\n",
		want:     "<hr />\n<p><a href=\"/url\">foo</a></p>\n",
	},
	{
		name:     "DefinitionThenListItem",
		markdown: "[foo]: /url\n- item\n",
		want:     "<ul>\n<li>item</li>\n</ul>\n",
	},
	{
		name:     "DefinitionsNotAHeading",
		markdown: "[foo]: /url\n===\n[foo]\n",
		want:     "<p>===\n<a href=\"/url\">foo</a></p>\n",
	},
	{
		name:     "InlineLink",
		markdown: "[foo](/url)\n",
		want:     "<p><a href=\"/url\">foo</a></p>\n",
	},
	{
		name:     "InlineLinkTitle",
		markdown: "[foo](/url \"title\")\n",
		want:     "<p><a href=\"/url\" title=\"title\">foo</a></p>\n",
	},
	{
		name:     "InlineLinkAngleDestination",
		markdown: "[foo](</my url>)\n",
		want:     "<p><a href=\"/my%20url\">foo</a></p>\n",
	},
	{
		name:     "LinksDoNotNest",
		markdown: "[foo [bar](/u1)](/u2)\n",
		want:     "<p>[foo <a href=\"/u1\">bar</a>](/u2)</p>\n",
	},
	{
		name:     "Image",
		markdown: "![alt text](/img.png \"t\")\n",
		want:     "<p><img src=\"/img.png\" alt=\"alt text\" title=\"t\" /></p>\n",
	},
	{
		name:     "ImageAltFlattensInlines",
		markdown: "![*em* text](/img.png)\n",
		want:     "<p><img src=\"/img.png\" alt=\"em text\" /></p>\n",
	},
	{
		name:     "Autolink",
		markdown: "<https://example.com/a?b=c>\n",
		want:     "<p><a href=\"https://example.com/a?b=c\">https://example.com/a?b=c</a></p>\n",
	},
	{
		name:     "EmailAutolink",
		markdown: "<foo@bar.example>\n",
		want:     "<p><a href=\"mailto:foo@bar.example\">foo@bar.example</a></p>\n",
	},
	{
		name:     "NotAnAutolink",
		markdown: "<m:abc>\n",
		want:     "<p>&lt;m:abc&gt;</p>\n",
	},
	{
		name:     "RawHTMLSpan",
		markdown: "foo <b class=\"x\">bar</b>\n",
		want:     "<p>foo <b class=\"x\">bar</b></p>\n",
	},
	{
		name:     "CodeSpan",
		markdown: "`foo`\n",
		want:     "<p><code>foo</code></p>\n",
	},
	{
		name:     "CodeSpanBacktickContent",
		markdown: "`` ` ``\n",
		want:     "<p><code>`</code></p>\n",
	},
	{
		name:     "CodeSpanUninterpreted",
		markdown: "`*not em* [not](/link)`\n",
		want:     "<p><code>*not em* [not](/link)</code></p>\n",
	},
	{
		name:     "CodeSpanUnmatchedRun",
		markdown: "`foo``bar\n",
		want:     "<p>`foo``bar</p>\n",
	},
	{
		name:     "HardBreakSpaces",
		markdown: "foo  \nbar\n",
		want:     "<p>foo<br />\nbar</p>\n",
	},
	{
		name:     "HardBreakBackslash",
		markdown: "foo\\\nbar\n",
		want:     "<p>foo<br />\nbar</p>\n",
	},
	{
		name:     "SoftBreakTrailingSpaceStripped",
		markdown: "foo \nbar\n",
		want:     "<p>foo\nbar</p>\n",
	},
	{
		name:     "BackslashEscape",
		markdown: "\\*not emphasized\\*\n",
		want:     "<p>*not emphasized*</p>\n",
	},
	{
		name:     "BackslashNonPunctuation",
		markdown: "\\A\n",
		want:     "<p>\\A</p>\n",
	},
	{
		name:     "NamedEntity",
		markdown: "&copy; &AElig;\n",
		want:     "<p>\u00a9 \u00c6</p>\n",
	},
	{
		name:     "UnknownEntityStaysLiteral",
		markdown: "&MadeUpEntity;\n",
		want:     "<p>&amp;MadeUpEntity;</p>\n",
	},
	{
		name:     "NumericEntity",
		markdown: "&#35;&#1234;&#x22;\n",
		want:     "<p>#\u04d2&quot;</p>\n",
	},
	{
		name:     "NumericEntityZero",
		markdown: "&#0;\n",
		want:     "<p>\ufffd</p>\n",
	},
	{
		name:     "NumericEntityOutOfRange",
		markdown: "&#x110000;\n",
		want:     "<p>&amp;#x110000;</p>\n",
	},
	{
		name:     "EntityNotInCodeSpan",
		markdown: "`&amp;`\n",
		want:     "<p><code>&amp;amp;</code></p>\n",
	},
	{
		name:     "TextEscaping",
		markdown: "1 < 2 & 4 > 3 \"quoted\"\n",
		want:     "<p>1 &lt; 2 &amp; 4 &gt; 3 &quot;quoted&quot;</p>\n",
	},
	{
		name:     "Emphasis",
		markdown: "*foo bar*\n",
		want:     "<p><em>foo bar</em></p>\n",
	},
	{
		name:     "Strong",
		markdown: "**foo**\n",
		want:     "<p><strong>foo</strong></p>\n",
	},
	{
		name:     "StrongInEmphasis",
		markdown: "foo***bar***baz\n",
		want:     "<p>foo<em><strong>bar</strong></em>baz</p>\n",
	},
	{
		name:     "UnderscoreIntraword",
		markdown: "foo_bar_baz\n",
		want:     "<p>foo_bar_baz</p>\n",
	},
	{
		name:     "AsteriskIntraword",
		markdown: "foo*bar*baz\n",
		want:     "<p>foo<em>bar</em>baz</p>\n",
	},
	{
		name:     "RuleOfThree",
		markdown: "*foo**bar*\n",
		want:     "<p><em>foo**bar</em></p>\n",
	},
	{
		name:     "AlternatingEmphasis",
		markdown: "*a*b*c*\n",
		want:     "<p><em>a</em>b<em>c</em></p>\n",
	},
	{
		name:     "EmphasisAcrossLink",
		markdown: "*foo [bar*](/url)\n",
		want:     "<p>*foo <a href=\"/url\">bar*</a></p>\n",
	},
	{
		name:     "DestinationNormalized",
		markdown: "[foo](/url?a=b&c=\u00e9)\n",
		want:     "<p><a href=\"/url?a=b&amp;c=%C3%A9\">foo</a></p>\n",
	},
	{
		name:     "DestinationKeepsPercentEscapes",
		markdown: "[foo](/url%20ok%2)\n",
		want:     "<p><a href=\"/url%20ok%252\">foo</a></p>\n",
	},
	{
		name:     "NulAndInvalidUTF8Replaced",
		markdown: "ab\x00cd \xff ef\n",
		want:     "<p>ab\ufffdcd \ufffd ef</p>\n",
	},
	{
		name:     "BlankDocument",
		markdown: "\n\n\n",
		want:     "",
	},
	{
		name:     "TabsInListIndentation",
		markdown: "-\tfoo\n",
		want:     "<ul>\n<li>foo</li>\n</ul>\n",
	},
	{
		name:     "BlockQuoteTab",
		markdown: ">\tfoo\n",
		want:     "<blockquote>\n<p>foo</p>\n</blockquote>\n",
	},
}

func TestRender(t *testing.T) {
	for _, test := range renderTests {
		t.Run(test.name, func(t *testing.T) {
			doc := new(Parser).Parse([]byte(test.markdown))
			buf := new(bytes.Buffer)
			if err := RenderHTML(buf, doc); err != nil {
				t.Fatal("RenderHTML:", err)
			}
			if diff := cmp.Diff(test.want, buf.String()); diff != "" {
				t.Errorf("Input:\n%s\nOutput (-want +got):\n%s", test.markdown, diff)
			}
		})
	}
}

// TestParseTotality feeds the parser hostile input shapes.
// Every input must produce a tree without panicking.
func TestParseTotality(t *testing.T) {
	inputs := []string{
		"",
		"\x00\x00\x00",
		"\xff\xfe\xfd",
		strings.Repeat("[", 5000),
		strings.Repeat("*a", 2000),
		strings.Repeat("> ", 500) + "deep",
		strings.Repeat("- ", 300) + "deep",
		"```",
		"[foo](",
		"[foo]: ",
		"&#xFFFFFFFFF;",
		"\\",
		strings.Repeat("`", 999),
		"\t\t\t\t-",
	}
	for _, input := range inputs {
		doc := new(Parser).Parse([]byte(input))
		if doc.Root == nil || doc.Root.Kind() != DocumentKind {
			t.Errorf("Parse(%q) did not produce a document", input)
		}
		if err := RenderHTML(new(bytes.Buffer), doc); err != nil {
			t.Errorf("RenderHTML after Parse(%q): %v", input, err)
		}
	}
}

// TestParseStability checks that parsing is a pure function of its input.
func TestParseStability(t *testing.T) {
	input := []byte("# Title\n\n" +
		"Some *emphasis* and a [link][ref].\n\n" +
		"- item one\n- item two\n\n" +
		"```go\ncode\n```\n\n" +
		"[ref]: /url \"title\"\n")
	first := new(Parser).Parse(input)
	second := new(Parser).Parse(input)
	opts := cmp.AllowUnexported(Block{}, Inline{}, listData{}, fenceData{})
	if diff := cmp.Diff(first.Root, second.Root, opts); diff != "" {
		t.Errorf("trees differ between parses (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Refs, second.Refs); diff != "" {
		t.Errorf("reference maps differ between parses (-first +second):\n%s", diff)
	}
}

func TestParseDoesNotAliasSource(t *testing.T) {
	source := []byte("para *one*\n")
	doc := new(Parser).Parse(source)
	before := renderToString(t, doc)
	for i := range source {
		source[i] = 'x'
	}
	if got := renderToString(t, doc); got != before {
		t.Errorf("output changed after source mutation: %q then %q", before, got)
	}
}

func TestTabSize(t *testing.T) {
	// With a tab stop of 8 a single tab still reaches
	// the 4-column indented code threshold.
	p := &Parser{TabSize: 8}
	doc := p.Parse([]byte("\tfoo\n"))
	if got, want := renderToString(t, doc), "<pre><code>foo\n</code></pre>\n"; got != want {
		t.Errorf("tab size 8 code block: got %q, want %q", got, want)
	}

	// A tab after the list marker indents by its column width.
	doc = p.Parse([]byte("-\tfoo\n"))
	if got, want := renderToString(t, doc), "<ul>\n<li>foo</li>\n</ul>\n"; got != want {
		t.Errorf("tab size 8 list: got %q, want %q", got, want)
	}
}

func renderToString(t *testing.T, doc *Document) string {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := RenderHTML(buf, doc); err != nil {
		t.Fatal("RenderHTML:", err)
	}
	return buf.String()
}
