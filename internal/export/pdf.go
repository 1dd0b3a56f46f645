/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"cinevision/internal/analysis"
)

// Color is an RGB color used in PDF output.
type Color struct{ R, G, B uint8 }

// PDFOptions controls the production breakdown sheet.
// Units are points. Built-in Helvetica keeps text vector without embedding.
type PDFOptions struct {
	Title      string
	PageSize   string // "A4" (default) or "Letter"
	HeaderFill Color
	RuleColor  Color
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.Title == "" {
		o.Title = "Production Breakdown"
	}
	if o.PageSize == "" {
		o.PageSize = "A4"
	}
	if o.HeaderFill == (Color{}) {
		o.HeaderFill = Color{R: 220, G: 226, B: 235}
	}
	if o.RuleColor == (Color{}) {
		o.RuleColor = Color{R: 120, G: 120, B: 120}
	}
	return o
}

const (
	margin     = 36.0
	rowHeight  = 16.0
	fontSize   = 9.0
	headerSize = 16.0
)

// column is one table column; width is a fraction of the printable width.
type column struct {
	title string
	width float64
	align string
}

// WriteBreakdownPDF writes a PDF breakdown sheet of res to w: one row per scene
// followed by the budget summary and schedule when those classifiers ran.
func WriteBreakdownPDF(w io.Writer, res *analysis.Result, opt PDFOptions) error {
	if res == nil || res.Model == nil {
		return fmt.Errorf("no analysis result")
	}
	opt = opt.withDefaults()

	pdf := gofpdf.New("P", "pt", opt.PageSize, "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator("cinevision", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	usable := pageW - 2*margin

	pdf.SetFont("Helvetica", "B", headerSize)
	pdf.CellFormat(usable, headerSize+6, tr(opt.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", fontSize)
	summary := fmt.Sprintf("%d scenes, %d dialogue turns", len(res.Model.Scenes), res.Model.TurnCount())
	if res.RunID != "" {
		summary += ", run " + res.RunID
	}
	pdf.CellFormat(usable, rowHeight, tr(summary), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	scenes := []column{
		{"#", 0.05, "R"},
		{"Heading", 0.37, "L"},
		{"Time", 0.09, "L"},
		{"Mood", 0.1, "L"},
		{"Characters", 0.39, "L"},
	}
	rows := make([][]string, 0, len(res.Model.Scenes))
	for _, s := range res.Model.Scenes {
		rows = append(rows, []string{
			strconv.Itoa(s.Index), s.Heading, s.TimeOfDay.String(), s.Mood.String(), strings.Join(s.CharactersPresent, ", "),
		})
	}
	table(pdf, tr, opt, usable, scenes, rows)

	if r := res.Budget; r != nil {
		section(pdf, tr, usable, "Budget")
		cols := []column{{"Category", 0.5, "L"}, {"Items", 0.2, "R"}, {"Total", 0.3, "R"}}
		var brows [][]string
		for _, c := range r.Categories() {
			brows = append(brows, []string{title(c.Name), strconv.Itoa(len(c.Details)), money(c.Total)})
		}
		brows = append(brows, []string{"Total", "", money(r.Total)})
		table(pdf, tr, opt, usable, cols, brows)
	}

	if r := res.Production; r != nil {
		section(pdf, tr, usable, "Schedule")
		pdf.SetFont("Helvetica", "", fontSize)
		pdf.CellFormat(usable, rowHeight, fmt.Sprintf("Estimated shooting days: %d", r.Scheduling.EstimatedDays), "", 1, "L", false, 0, "")
		cols := []column{{"Location", 0.45, "L"}, {"Time", 0.15, "L"}, {"Scenes", 0.4, "L"}}
		var grows [][]string
		for _, g := range r.Scheduling.SceneGroupings {
			grows = append(grows, []string{g.Location, g.Time, joinInts(g.SceneNumbers)})
		}
		table(pdf, tr, opt, usable, cols, grows)
	}

	if len(res.Failures) > 0 {
		section(pdf, tr, usable, "Failures")
		pdf.SetFont("Helvetica", "", fontSize)
		for _, f := range res.Failures {
			pdf.MultiCell(usable, rowHeight, tr(fmt.Sprintf("%s: %s", f.Stage, f.Message)), "", "L", false)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, usable float64, name string) {
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(usable, 18, tr(name), "", 1, "L", false, 0, "")
}

func table(pdf *gofpdf.Fpdf, tr func(string) string, opt PDFOptions, usable float64, cols []column, rows [][]string) {
	setDrawColor(pdf, opt.RuleColor)
	setFillColor(pdf, opt.HeaderFill)
	pdf.SetLineWidth(0.5)

	header := func() {
		pdf.SetFont("Helvetica", "B", fontSize)
		for _, c := range cols {
			pdf.CellFormat(c.width*usable, rowHeight, tr(c.title), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", fontSize)
	}
	header()
	_, pageH := pdf.GetPageSize()
	for _, row := range rows {
		if pdf.GetY()+rowHeight > pageH-margin {
			pdf.AddPage()
			header()
		}
		for i, c := range cols {
			w := c.width * usable
			pdf.CellFormat(w, rowHeight, fit(pdf, tr(row[i]), w-4), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fit truncates s with an ellipsis so it fits in width points at the current font.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func setDrawColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
