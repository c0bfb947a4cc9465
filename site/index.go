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
	"strings"
)

// Index generates the index.html page listing every generated page.
// names are the source file names in the order they should appear.
func (c Config) Index(names []string) Page {
	sb := new(strings.Builder)
	sb.WriteString("<h1>All Pages</h1>\n")
	for _, name := range names {
		href := "./" + strings.TrimSuffix(name, ".md") + ".html"
		fmt.Fprintf(sb, "<a href=\"%s\">%s</a><br>\n", href, html.EscapeString(FormatTitle(name)))
	}
	return Page{
		Path:  "index.html",
		Title: "Index",
		HTML:  c.assemblePage("index.html", "Index", sb.String()),
	}
}
