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
	"fmt"
	"html"
	"path"
	"strings"
	"unicode"
)

// A Page is one generated HTML document.
type Page struct {
	// Path is the output path relative to the site root,
	// for example "notes/intro.html".
	Path string
	// Title is the text used in the document's title element.
	Title string
	// HTML is the complete document.
	HTML string
}

// Prism assets loaded when highlighting is enabled.
const (
	prismCoreURL       = "https://cdn.jsdelivr.net/npm/prismjs@1.29.0/prism.min.js"
	prismAutoloaderURL = "https://cdn.jsdelivr.net/npm/prismjs@1.29.0/plugins/autoloader/prism-autoloader.min.js"
	prismThemeURLBase  = "https://cdn.jsdelivr.net/npm/prism-themes@1.9.0/themes/"
)

// assemblePage wraps a rendered Markdown fragment
// into a complete HTML document.
func (c Config) assemblePage(relPath, title, fragment string) string {
	sb := new(strings.Builder)
	sb.Grow(len(fragment) + 1024)
	c.writeHead(sb, relPath, title)
	sb.WriteString("<body>\n")
	writeNavbar(sb, relPath)
	sb.WriteString("<div id=\"content\">\n")
	sb.WriteString(fragment)
	sb.WriteString("</div>\n</body>\n</html>\n")
	return sb.String()
}

func (c Config) writeHead(sb *strings.Builder, relPath, title string) {
	prefix := relPrefix(relPath)
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(sb, "<title>%s</title>\n", html.EscapeString(title))

	if c.HTML.FaviconFile != "" {
		href := prefix + "media/" + path.Base(c.HTML.FaviconFile)
		fmt.Fprintf(sb, "<link rel=\"icon\" href=\"%s\">\n", href)
	}

	cssHref := c.HTML.CSSFile
	if cssHref == "default" || cssHref == "" {
		cssHref = prefix + "styles.css"
	}
	fmt.Fprintf(sb, "<link rel=\"stylesheet\" href=\"%s\">\n", cssHref)

	if c.HTML.UsePrism {
		theme := c.HTML.PrismTheme
		if theme == "" {
			theme = DefaultConfig().HTML.PrismTheme
		}
		fmt.Fprintf(sb, "<link rel=\"stylesheet\" href=\"%sprism-%s.min.css\">\n", prismThemeURLBase, theme)
		fmt.Fprintf(sb, "<script src=\"%s\" defer></script>\n", prismCoreURL)
		fmt.Fprintf(sb, "<script src=\"%s\" defer></script>\n", prismAutoloaderURL)
	}

	sb.WriteString("</head>\n")
}

func writeNavbar(sb *strings.Builder, relPath string) {
	sb.WriteString("<header><nav>\n<ul>\n")
	fmt.Fprintf(sb, "<li><a href=\"%sindex.html\">Home</a></li>\n", relPrefix(relPath))
	sb.WriteString("</ul>\n</nav>\n</header>\n")
}

// relPrefix returns the ../ sequence that leads from the
// directory of relPath back to the site root.
func relPrefix(relPath string) string {
	depth := strings.Count(path.Clean(strings.TrimPrefix(relPath, "./")), "/")
	return strings.Repeat("../", depth)
}

// FormatTitle derives a page title from a Markdown file name:
// the extension is dropped, underscores become spaces,
// and each word is capitalized.
// "my_test_page.md" becomes "My Test Page".
func FormatTitle(fileName string) string {
	name := strings.TrimSuffix(fileName, ".md")
	name = strings.ReplaceAll(name, "_", " ")
	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
