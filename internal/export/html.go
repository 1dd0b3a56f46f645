/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"cinevision/internal/analysis"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders the Markdown report of res as a standalone HTML document.
func HTML(res *analysis.Result) ([]byte, error) {
	return MarkdownToHTML("Script Analysis", []byte(Markdown(res)))
}

// MarkdownToHTML converts md (GitHub flavored) and wraps it in a page titled title.
func MarkdownToHTML(title string, md []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(md, &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>%s</style>\n</head>\n<body>\n",
		html.EscapeString(title), pageStyle)
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

const pageStyle = `body{font-family:sans-serif;max-width:60em;margin:2em auto;padding:0 1em}` +
	`table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:.3em .6em;text-align:left}`
