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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cinevision/internal/analysis"
	"cinevision/internal/script"
	"cinevision/internal/storage"
)

const screenplay = `INT. DINER - NIGHT

Rain streaks the window. MAYA waits, nervous.

MAYA
(checking her watch)
He's late.

LEO
Sorry. Traffic.

EXT. PARKING LOT - NIGHT

A car chase ends in an explosion.

LEO
Run!
`

func sampleResult(t *testing.T) *analysis.Result {
	t.Helper()
	res, err := analysis.New(analysis.DefaultConfig()).Analyze(context.Background(), screenplay)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return res
}

func TestMarkdownReport(t *testing.T) {
	md := Markdown(sampleResult(t))
	for _, want := range []string{
		"# Script Analysis",
		"| 1 | INT. DINER - NIGHT | DINER | night | tense | MAYA, LEO |",
		"## Characters",
		"| LEO | protagonist | 2 | 1, 2 |",
		"| MAYA | main_character | 1 | 1 |",
		"## Budget",
		"| **Total** |",
		"## Camera and Lighting",
		"Estimated shooting days: 1",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Failures") {
		t.Fatalf("unexpected failures section")
	}
}

func TestMarkdownPartialResult(t *testing.T) {
	m, diags := script.Parse("Just some action.\n")
	res := &analysis.Result{
		Model:       m,
		Diagnostics: diags,
		Failures:    []analysis.Failure{{Stage: analysis.StageBudget, Err: errors.New("boom"), Message: "boom"}},
	}
	md := Markdown(res)
	if strings.Contains(md, "## Budget") {
		t.Fatalf("budget section should be omitted when the classifier did not produce a report")
	}
	if !strings.Contains(md, "## Failures") || !strings.Contains(md, "- budget: boom") {
		t.Fatalf("failures not listed:\n%s", md)
	}
	if !strings.Contains(md, "malformed_input") {
		t.Fatalf("diagnostics not listed:\n%s", md)
	}
	if !strings.Contains(Markdown(nil), "No analysis available") {
		t.Fatalf("nil result should render a placeholder")
	}
}

func TestHelpers(t *testing.T) {
	cases := map[int]string{0: "$0", 100: "$100", 1000: "$1,000", 57300: "$57,300", 1234567: "$1,234,567", -1200: "-$1,200"}
	for in, want := range cases {
		if got := money(in); got != want {
			t.Fatalf("money(%d) = %q, want %q", in, got, want)
		}
	}
	if got := cell("a|b\nc"); got != `a\|b c` {
		t.Fatalf("cell = %q", got)
	}
	if got := title("special_effects"); got != "Special Effects" {
		t.Fatalf("title = %q", got)
	}
}

func TestHTMLRendersTables(t *testing.T) {
	page, err := HTML(sampleResult(t))
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	s := string(page)
	if !strings.HasPrefix(s, "<!DOCTYPE html>") {
		t.Fatalf("missing doctype")
	}
	if !strings.Contains(s, "<table>") || !strings.Contains(s, "<h1>Script Analysis</h1>") {
		t.Fatalf("markdown not rendered:\n%s", s)
	}

	page, err = MarkdownToHTML("<T>", []byte("hello <script>alert(1)</script>"))
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if strings.Contains(string(page), "<script>") || !strings.Contains(string(page), "&lt;T&gt;") {
		t.Fatalf("raw html must not pass through:\n%s", page)
	}
}

func TestWriteBreakdownPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBreakdownPDF(&buf, sampleResult(t), PDFOptions{PageSize: "Letter"}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a pdf")
	}
	if err := WriteBreakdownPDF(&buf, nil, PDFOptions{}); err == nil {
		t.Fatalf("expected error for nil result")
	}
}

func TestBatchExportPresets(t *testing.T) {
	out, err := storage.Init(t.TempDir())
	if err != nil {
		t.Fatalf("init output: %v", err)
	}
	res := sampleResult(t)

	paths, err := BatchExport(out, res, BatchOptions{Preset: PresetWeb})
	if err != nil {
		t.Fatalf("batch export web: %v", err)
	}
	paths2, err := BatchExport(out, res, BatchOptions{Preset: PresetPrint, BaseName: "diner"})
	if err != nil {
		t.Fatalf("batch export print: %v", err)
	}
	checks := []string{
		filepath.Join(out.Root, "exports", "web", "analysis.json"),
		filepath.Join(out.Root, "exports", "web", "analysis.html"),
		filepath.Join(out.Root, "exports", "print", "diner.pdf"),
		filepath.Join(out.Root, "exports", "print", "diner.md"),
	}
	if got := append(paths, paths2...); len(got) != len(checks) {
		t.Fatalf("written paths = %v", got)
	}
	for _, p := range checks {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}

	if _, err := BatchExport(out, res, BatchOptions{Formats: []string{"docx"}}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := BatchExport(nil, res, BatchOptions{}); err == nil {
		t.Fatalf("expected error for nil output dir")
	}
}
