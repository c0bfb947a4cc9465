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

package site

import (
	"runtime"
	"strings"
	"sync"

	"marksite/md"
)

// A Builder renders Markdown sources into site pages.
// A Builder is safe for concurrent use:
// every document parse owns all of its transient state.
type Builder struct {
	Config Config
	// Workers bounds the number of documents rendered
	// concurrently by BuildAll. Values less than 1 mean
	// one worker per CPU.
	Workers int
}

// BuildPage renders one Markdown source into a complete page.
// name is the source file name relative to the input root,
// for example "notes/intro.md".
func (b *Builder) BuildPage(name string, source []byte) Page {
	parser := md.Parser{TabSize: b.Config.Lexer.TabSize}
	doc := parser.Parse(source)

	renderer := md.HTMLRenderer{}
	if !b.Config.HTML.UsePrism {
		renderer.ExtraCodeClass = "non_prism"
	}
	fragment := renderer.AppendDocument(nil, doc)

	title := documentTitle(doc)
	if title == "" {
		title = FormatTitle(name)
	}
	relPath := strings.TrimSuffix(name, ".md") + ".html"
	return Page{
		Path:  relPath,
		Title: title,
		HTML:  b.Config.assemblePage(relPath, title, string(fragment)),
	}
}

// BuildAll renders every source document on a bounded worker pool.
// Documents are independent, so the result does not depend
// on scheduling order.
func (b *Builder) BuildAll(sources map[string][]byte) map[string]Page {
	workers := b.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	names := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	pages := make(map[string]Page, len(sources))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range names {
				page := b.BuildPage(name, sources[name])
				mu.Lock()
				pages[name] = page
				mu.Unlock()
			}
		}()
	}
	for name := range sources {
		names <- name
	}
	close(names)
	wg.Wait()
	return pages
}

// documentTitle extracts the text of the document's first heading.
func documentTitle(doc *md.Document) string {
	title := ""
	md.Walk(doc.Root.AsNode(), &md.WalkOptions{
		Pre: func(c *md.Cursor) bool {
			if title != "" {
				return false
			}
			if c.Node().Block().Kind() == md.HeadingKind {
				title = inlineText(c.Node())
				return false
			}
			return true
		},
	})
	return title
}

// inlineText flattens a node's inline content to plain text.
func inlineText(n md.Node) string {
	sb := new(strings.Builder)
	md.Walk(n, &md.WalkOptions{
		Pre: func(c *md.Cursor) bool {
			switch inline := c.Node().Inline(); inline.Kind() {
			case md.TextKind, md.CodeSpanKind, md.AutolinkKind:
				sb.WriteString(inline.Text())
			case md.SoftBreakKind, md.HardBreakKind:
				sb.WriteByte(' ')
			}
			return true
		},
	})
	return sb.String()
}
