/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders analysis results as Markdown, HTML and PDF documents.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"cinevision/internal/analysis"
)

// Markdown renders a human-readable report of res. Sections for classifiers
// that did not run (or failed) are omitted; failures are listed at the end.
func Markdown(res *analysis.Result) string {
	var b strings.Builder
	b.WriteString("# Script Analysis\n\n")
	if res == nil || res.Model == nil {
		b.WriteString("_No analysis available._\n")
		return b.String()
	}
	if res.RunID != "" {
		fmt.Fprintf(&b, "Run `%s`, %d scenes, %d dialogue turns.\n\n", res.RunID, len(res.Model.Scenes), res.Model.TurnCount())
	} else {
		fmt.Fprintf(&b, "%d scenes, %d dialogue turns.\n\n", len(res.Model.Scenes), res.Model.TurnCount())
	}

	b.WriteString("## Scenes\n\n")
	if len(res.Model.Scenes) == 0 {
		b.WriteString("_The script has no scenes._\n\n")
	} else {
		b.WriteString("| # | Heading | Location | Time | Mood | Characters |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, s := range res.Model.Scenes {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
				s.Index, cell(s.Heading), cell(s.LocationName), s.TimeOfDay, s.Mood, cell(strings.Join(s.CharactersPresent, ", ")))
		}
		b.WriteString("\n")
	}

	if len(res.Characters) > 0 {
		b.WriteString("## Characters\n\n")
		b.WriteString("| Name | Role | Lines | Scenes |\n|---|---|---|---|\n")
		for _, c := range res.Characters {
			fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", cell(c.Name), c.RoleTier, c.DialogueCount, joinInts(c.SceneIndices))
		}
		b.WriteString("\n")
	}

	if r := res.Budget; r != nil {
		b.WriteString("## Budget\n\n")
		b.WriteString("| Category | Items | Total |\n|---|---|---|\n")
		for _, c := range r.Categories() {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", title(c.Name), len(c.Details), money(c.Total))
		}
		fmt.Fprintf(&b, "| **Total** | | **%s** |\n\n", money(r.Total))
		for _, c := range r.Categories() {
			if len(c.Details) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n", title(c.Name))
			for _, it := range c.Details {
				line := cell(it.Name)
				if it.Role != "" {
					line += " (" + it.Role + ")"
				}
				if it.Days > 0 {
					fmt.Fprintf(&b, "- %s: %d days at %s = %s\n", line, it.Days, money(it.CostPerDay), money(it.Cost))
				} else {
					fmt.Fprintf(&b, "- %s: %s\n", line, money(it.Cost))
				}
			}
			b.WriteString("\n")
		}
	}

	if r := res.Camera; r != nil {
		b.WriteString("## Camera and Lighting\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- **%s**: %s\n", rec.Category, rec.Suggestion)
		}
		for _, l := range r.LightingSetups {
			fmt.Fprintf(&b, "- Lighting %s/%s: %s\n", l.Type, strings.ToLower(l.Time), strings.Join(l.Primary, ", "))
		}
		b.WriteString("\n")
	}

	if r := res.Production; r != nil {
		b.WriteString("## Production\n\n")
		fmt.Fprintf(&b, "Estimated shooting days: %d\n\n", r.Scheduling.EstimatedDays)
		if len(r.Scheduling.ShootingOrder) > 0 {
			fmt.Fprintf(&b, "Shooting order: %s\n\n", joinInts(r.Scheduling.ShootingOrder))
		}
		for _, g := range r.Scheduling.SceneGroupings {
			fmt.Fprintf(&b, "- %s\n", g.Suggestion)
		}
		if len(r.SafetyConsiderations) > 0 {
			b.WriteString("\n### Safety\n\n")
			for _, s := range r.SafetyConsiderations {
				fmt.Fprintf(&b, "- [%s] %s: %s\n", s.Priority, s.Type, s.Consideration)
			}
		}
		if len(r.OptimizationSuggestions) > 0 {
			b.WriteString("\n### Optimization\n\n")
			for _, o := range r.OptimizationSuggestions {
				fmt.Fprintf(&b, "- %s: %s\n", o.Category, o.Suggestion)
			}
		}
		b.WriteString("\n")
	}

	if len(res.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n")
		for _, d := range res.Diagnostics {
			fmt.Fprintf(&b, "- line %d, %s: %s\n", d.Line, d.Kind, d.Message)
		}
		b.WriteString("\n")
	}
	if len(res.Failures) > 0 {
		b.WriteString("## Failures\n\n")
		for _, f := range res.Failures {
			fmt.Fprintf(&b, "- %s: %s\n", f.Stage, f.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// cell makes s safe inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func title(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// money formats whole dollars with thousands separators.
func money(v int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-$" + string(out)
	}
	return "$" + string(out)
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
