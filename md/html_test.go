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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtraCodeClass(t *testing.T) {
	const markdown = "```go\ncode\n```\n\n```\nplain\n```\n"
	doc := new(Parser).Parse([]byte(markdown))

	t.Run("Set", func(t *testing.T) {
		r := &HTMLRenderer{ExtraCodeClass: "non_prism"}
		got := string(r.AppendDocument(nil, doc))
		want := "<pre class=\"non_prism\"><code class=\"language-go non_prism\">code\n</code></pre>\n" +
			"<pre class=\"non_prism\"><code class=\"non_prism\">plain\n</code></pre>\n"
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Output (-want +got):\n%s", diff)
		}
	})

	t.Run("Unset", func(t *testing.T) {
		got := string(new(HTMLRenderer).AppendDocument(nil, doc))
		want := "<pre><code class=\"language-go\">code\n</code></pre>\n" +
			"<pre><code>plain\n</code></pre>\n"
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Output (-want +got):\n%s", diff)
		}
	})
}

func TestCodeBlockInfoFirstWord(t *testing.T) {
	doc := new(Parser).Parse([]byte("```go linenums\ncode\n```\n"))
	got := string(new(HTMLRenderer).AppendDocument(nil, doc))
	want := "<pre><code class=\"language-go\">code\n</code></pre>\n"
	if got != want {
		t.Errorf("got %q; want %q", got, want)
	}
}

func TestRenderPropagatesWriteError(t *testing.T) {
	doc := new(Parser).Parse([]byte("hello\n"))
	wantErr := errors.New("broken pipe")
	err := new(HTMLRenderer).Render(failWriter{wantErr}, doc)
	if !errors.Is(err, wantErr) {
		t.Errorf("Render error = %v; want wrapped %v", err, wantErr)
	}
}

type failWriter struct {
	err error
}

func (w failWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

func TestAppendDocumentKeepsPrefix(t *testing.T) {
	doc := new(Parser).Parse([]byte("x\n"))
	got := new(HTMLRenderer).AppendDocument([]byte("prefix:"), doc)
	if want := "prefix:<p>x</p>\n"; string(got) != want {
		t.Errorf("got %q; want %q", got, want)
	}
}

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		s    string
		want string
	}{
		{"plain", "plain"},
		{"a&b", "a&amp;b"},
		{"<tag>", "&lt;tag&gt;"},
		{`say "hi"`, "say &quot;hi&quot;"},
		{"it's", "it's"},
		{"", ""},
	}
	for _, test := range tests {
		if got := string(escapeHTML(nil, test.s)); got != test.want {
			t.Errorf("escapeHTML(%q) = %q; want %q", test.s, got, test.want)
		}
	}
}

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		s    string
		want string
	}{
		{"", ""},
		{"/plain/path", "/plain/path"},
		{"https://example.com/a?b=c&d=e#f", "https://example.com/a?b=c&d=e#f"},
		{"/my url", "/my%20url"},
		{"/föö", "/f%C3%B6%C3%B6"},
		{"/a%20b", "/a%20b"},
		{"/100%", "/100%25"},
		{"/a%2x", "/a%252x"},
		{"javascript:alert('hi')", "javascript:alert('hi')"},
		{"/\"quote\"", "/%22quote%22"},
	}
	for _, test := range tests {
		if got := NormalizeURI(test.s); got != test.want {
			t.Errorf("NormalizeURI(%q) = %q; want %q", test.s, got, test.want)
		}
	}
}

func TestAppendAltText(t *testing.T) {
	doc := new(Parser).Parse([]byte("![a *b* `c`\nd ![e](/f)](/img)\n"))
	buf := new(bytes.Buffer)
	if err := RenderHTML(buf, doc); err != nil {
		t.Fatal("RenderHTML:", err)
	}
	want := "<p><img src=\"/img\" alt=\"a b c d e\" /></p>\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Output (-want +got):\n%s", diff)
	}
}
