/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
	"unicode"
)

// LineKind is the label the classifier assigns to one raw line.
type LineKind int

const (
	KindBlank LineKind = iota
	KindHeading
	KindCue
	KindParenthetical
	KindDialogue
	KindTransition
	KindAction
)

func (k LineKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindHeading:
		return "heading"
	case KindCue:
		return "cue"
	case KindParenthetical:
		return "parenthetical"
	case KindDialogue:
		return "dialogue"
	case KindTransition:
		return "transition"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// State is the segmenter state the classifier needs to label a line.
type State struct {
	InDialogue      bool
	InParenthetical bool
}

// Line is a classified line. Only the fields relevant to Kind are set.
type Line struct {
	Kind LineKind
	Text string

	// Heading
	LocationKind LocationKind
	LocationName string
	TimeOfDay    TimeOfDay
	TimeText     string

	// Cue
	Character string
	Extension string

	// Parenthetical: ParenOpen is true while the parenthetical continues on the next line.
	ParenOpen bool

	// Unresolved is set when a tentative cue was demoted to action.
	Unresolved bool
}

var (
	reHeading    = regexp.MustCompile(`^(?i)(INT\.?\s*/\s*EXT\.?|EXT\.?\s*/\s*INT\.?|I\s*/\s*E\.?|INT\.|EXT\.)\s*(.*)$`)
	reSeparator  = regexp.MustCompile(`\s+[-–—]+\s+`)
	reTimeWord   = regexp.MustCompile(`(?i)\b(DAWN|DAY|DUSK|NIGHT|MORNING|AFTERNOON|EVENING)\b`)
	reCueWithExt = regexp.MustCompile(`^(.*?)\s*\(([^()]*)\)\s*$`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

var transitionSuffixes = []string{"TO:", "WITH:", "IN:", "OUT:"}

var timeWords = map[string]TimeOfDay{
	"DAWN":      Dawn,
	"MORNING":   Day,
	"DAY":       Day,
	"AFTERNOON": Day,
	"EVENING":   Dusk,
	"DUSK":      Dusk,
	"NIGHT":     Night,
}

// Classify labels raw using the current state. following holds the raw lines after
// raw and is only read to confirm character cues.
func Classify(raw string, following []string, st State) Line {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Line{Kind: KindBlank}
	}
	if h, ok := ParseHeading(text); ok {
		return h
	}
	if st.InParenthetical {
		return parenthetical(text, true)
	}
	if isParenthetical(text) {
		return parenthetical(text, false)
	}
	if isUpper(text) {
		if isTransition(text) {
			return Line{Kind: KindTransition, Text: text}
		}
		if confirmCue(following) {
			name, ext := splitCue(text)
			return Line{Kind: KindCue, Text: text, Character: name, Extension: ext}
		}
		return Line{Kind: KindAction, Text: text, Unresolved: true}
	}
	if st.InDialogue {
		return Line{Kind: KindDialogue, Text: text}
	}
	return Line{Kind: KindAction, Text: text}
}

// ParseHeading recognizes a scene heading and splits it into location and time.
func ParseHeading(text string) (Line, bool) {
	m := reHeading.FindStringSubmatch(text)
	if m == nil {
		return Line{}, false
	}
	h := Line{Kind: KindHeading, Text: text, LocationKind: markerKind(m[1]), TimeOfDay: Day}
	rest := strings.TrimSpace(m[2])
	parts := reSeparator.Split(rest, -1)
	if len(parts) == 1 {
		h.LocationName = normalizeName(rest)
		if tw := reTimeWord.FindString(rest); tw != "" {
			h.TimeOfDay = timeWords[strings.ToUpper(tw)]
		}
		return h, true
	}
	// Location is the first segment; everything after the first separator is time text.
	h.LocationName = normalizeName(parts[0])
	h.TimeText = strings.TrimSpace(strings.Join(parts[1:], " - "))
	if tw := reTimeWord.FindString(h.TimeText); tw != "" {
		h.TimeOfDay = timeWords[strings.ToUpper(tw)]
	}
	return h, true
}

func markerKind(marker string) LocationKind {
	mk := strings.ToUpper(marker)
	switch {
	case strings.Contains(mk, "/"):
		return Both
	case strings.HasPrefix(mk, "INT"):
		return Interior
	default:
		return Exterior
	}
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(reSpaces.ReplaceAllString(s, " ")))
}

// isParenthetical reports whether text is enclosed in parentheses or opens one
// that continues on the next line. "(He turns) and leaves." is neither.
func isParenthetical(text string) bool {
	if !strings.HasPrefix(text, "(") {
		return false
	}
	return strings.HasSuffix(text, ")") || !strings.Contains(text, ")")
}

func parenthetical(text string, continuing bool) Line {
	body := text
	if !continuing {
		body = strings.TrimPrefix(body, "(")
	}
	closed := strings.HasSuffix(body, ")")
	body = strings.TrimSuffix(body, ")")
	return Line{Kind: KindParenthetical, Text: strings.TrimSpace(body), ParenOpen: !closed}
}

// isUpper mirrors the usual "all cased characters are upper case" test:
// at least one upper-case letter and no lower-case ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func isTransition(s string) bool {
	for _, suf := range transitionSuffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// confirmCue accepts a tentative cue when the next non-blank line is spoken text,
// or is a parenthetical that is itself followed by spoken text.
func confirmCue(following []string) bool {
	i := nextNonBlank(following, 0)
	if i < 0 {
		return false
	}
	next := strings.TrimSpace(following[i])
	if isParenthetical(next) {
		// Skip to the end of the parenthetical. A blank line ends it early.
		j := i
		for ; j < len(following); j++ {
			t := strings.TrimSpace(following[j])
			if t == "" || strings.HasSuffix(t, ")") {
				break
			}
		}
		i = nextNonBlank(following, j+1)
		if i < 0 {
			return false
		}
		next = strings.TrimSpace(following[i])
		if isParenthetical(next) {
			return false
		}
	}
	return isSpoken(next)
}

func isSpoken(s string) bool {
	if isUpper(s) {
		return false
	}
	_, heading := ParseHeading(s)
	return !heading
}

func nextNonBlank(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

// splitCue separates "JOHN (V.O.)" into name and extension.
func splitCue(text string) (string, string) {
	name, ext := text, ""
	if m := reCueWithExt.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		name, ext = m[1], strings.TrimSpace(m[2])
	}
	name = strings.TrimSuffix(strings.TrimSpace(name), ":")
	return normalizeName(name), ext
}
