/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"log/slog"
	"strings"

	"cinevision/internal/log"
	"cinevision/internal/mood"
)

// Parse turns screenplay text into a Model. It never fails: problems are returned as
// diagnostics next to a best-effort model.
//
// Rules, in priority order:
//   - INT./EXT./INT/EXT. lines are scene headings ("INT. KITCHEN - NIGHT").
//   - Lines enclosed in parentheses are parentheticals; inside dialogue they attach to
//     the open turn, otherwise they become camera cues. A "(" line without any ")"
//     continues until a line ending in ")". "(He turns) and leaves." is ordinary text.
//   - All-caps lines ending in TO:, WITH:, IN: or OUT: are transitions.
//   - Other all-caps lines are character cues if the next non-blank line is spoken
//     text (optionally after one parenthetical); otherwise they stay description.
//   - Remaining lines are the spoken line of an open turn or description.
//
// Text before the first heading is dropped. A script without any heading becomes one
// scene with unknown location and time.
func Parse(input string) (*Model, []Error) {
	lines := splitLines(input)
	l := log.WithOperation(log.WithComponent("script"), "parse")

	if strings.TrimSpace(input) == "" {
		errs := []Error{{Kind: ErrEmptyScript, Message: "script has no content"}}
		l.Debug("parse diagnostic", slog.String("kind", errs[0].Kind.String()))
		return &Model{Scenes: []Scene{}}, errs
	}

	sg := newSegmenter()
	hasHeading := false
	for _, ln := range lines {
		if _, ok := ParseHeading(strings.TrimSpace(ln)); ok {
			hasHeading = true
			break
		}
	}
	if !hasHeading {
		sg.errs = append(sg.errs, Error{Kind: ErrMalformedInput, Message: "no scene heading found; treating the text as a single scene"})
		sg.open(newScene(0, Line{LocationKind: LocationUnknown, TimeOfDay: TimeUnknown}))
	}

	dropped, firstDropped := 0, 0
	for i, raw := range lines {
		lineNo := i + 1
		c := Classify(raw, lines[i+1:], sg.st)
		if sg.cur == nil && c.Kind != KindHeading {
			if c.Kind != KindBlank {
				if dropped == 0 {
					firstDropped = lineNo
				}
				dropped++
			}
			continue
		}
		sg.feed(c, lineNo)
	}
	sg.closeScene()
	if dropped > 0 {
		sg.errs = append(sg.errs, Error{Kind: ErrPreambleDropped, Line: firstDropped,
			Message: fmt.Sprintf("%d line(s) before the first scene heading were dropped", dropped)})
	}

	m := &Model{Scenes: sg.scenes}
	finalize(m)
	for _, e := range sg.errs {
		l.Debug("parse diagnostic", slog.String("kind", e.Kind.String()), slog.Int("line", e.Line), slog.String("msg", e.Message))
	}
	l.Debug("parsed script", slog.Int("scenes", len(m.Scenes)), slog.Int("turns", m.TurnCount()), slog.Int("diagnostics", len(sg.errs)))
	return m, sg.errs
}

// finalize assigns scene indices and moods once all scenes are known.
func finalize(m *Model) {
	for i := range m.Scenes {
		m.Scenes[i].Index = i + 1
		m.Scenes[i].Mood = mood.Classify(m.Scenes[i].MoodText())
	}
}

func splitLines(input string) []string {
	input = strings.TrimPrefix(input, "\ufeff")
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\r", "\n")
	lines := strings.Split(input, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// segmenter groups classified lines into scenes. States: no scene (cur == nil),
// in scene describing, in scene with an open dialogue turn (st.InDialogue).
type segmenter struct {
	scenes []Scene
	cur    *Scene
	pos    int
	st     State
	// parenOnTurn records where a multi-line parenthetical continues.
	parenOnTurn bool
	errs        []Error
}

func newSegmenter() *segmenter { return &segmenter{scenes: []Scene{}} }

func newScene(lineNo int, h Line) Scene {
	return Scene{
		Heading:           h.Text,
		LocationKind:      h.LocationKind,
		LocationName:      h.LocationName,
		TimeOfDay:         h.TimeOfDay,
		TimeText:          h.TimeText,
		DescriptionLines:  []DescriptionLine{},
		DialogueTurns:     []DialogueTurn{},
		CameraCues:        []Cue{},
		Transitions:       []Cue{},
		CharactersPresent: []string{},
		Line:              lineNo,
	}
}

func (sg *segmenter) open(s Scene) {
	sg.cur = &s
	sg.pos = 0
	sg.st = State{}
	sg.parenOnTurn = false
}

func (sg *segmenter) closeScene() {
	if sg.cur == nil {
		return
	}
	if sg.st.InDialogue {
		sg.abandonTurn()
	}
	sg.scenes = append(sg.scenes, *sg.cur)
	sg.cur = nil
}

func (sg *segmenter) next() int {
	p := sg.pos
	sg.pos++
	return p
}

func (sg *segmenter) openTurn() *DialogueTurn {
	if !sg.st.InDialogue || len(sg.cur.DialogueTurns) == 0 {
		return nil
	}
	return &sg.cur.DialogueTurns[len(sg.cur.DialogueTurns)-1]
}

// abandonTurn closes an open turn that never received spoken text.
func (sg *segmenter) abandonTurn() {
	if t := sg.openTurn(); t != nil {
		sg.errs = append(sg.errs, Error{Kind: ErrUnresolvedLine, Line: t.Line,
			Message: fmt.Sprintf("cue %s has no spoken line", t.Character)})
	}
	sg.st.InDialogue = false
}

func (sg *segmenter) feed(l Line, lineNo int) {
	switch l.Kind {
	case KindBlank:
		sg.st.InParenthetical = false

	case KindHeading:
		sg.closeScene()
		sg.open(newScene(lineNo, l))

	case KindCue:
		if sg.st.InDialogue {
			sg.abandonTurn()
		}
		sg.cur.DialogueTurns = append(sg.cur.DialogueTurns, DialogueTurn{
			Character: l.Character, Extension: l.Extension, Position: sg.next(), Line: lineNo,
		})
		if !sg.cur.HasCharacter(l.Character) {
			sg.cur.CharactersPresent = append(sg.cur.CharactersPresent, l.Character)
		}
		sg.st.InDialogue = true

	case KindParenthetical:
		switch {
		case sg.st.InParenthetical:
			sg.extendParenthetical(l.Text)
		case sg.st.InDialogue && sg.openTurn() != nil:
			t := sg.openTurn()
			t.Parenthetical = joinText(t.Parenthetical, l.Text, "; ")
			sg.parenOnTurn = true
		default:
			sg.cur.CameraCues = append(sg.cur.CameraCues, Cue{Text: l.Text, Position: sg.next(), Line: lineNo})
			sg.parenOnTurn = false
		}
		sg.st.InParenthetical = l.ParenOpen

	case KindDialogue:
		if t := sg.openTurn(); t != nil {
			t.Text = l.Text
			sg.st.InDialogue = false
			return
		}
		sg.addDescription(l.Text, lineNo)

	case KindTransition:
		sg.cur.Transitions = append(sg.cur.Transitions, Cue{Text: l.Text, Position: sg.next(), Line: lineNo})

	case KindAction:
		if sg.st.InDialogue {
			sg.abandonTurn()
		}
		if l.Unresolved {
			sg.errs = append(sg.errs, Error{Kind: ErrUnresolvedLine, Line: lineNo,
				Message: fmt.Sprintf("all-caps line %q is not followed by dialogue; kept as description", l.Text)})
		}
		sg.addDescription(l.Text, lineNo)
	}
}

func (sg *segmenter) addDescription(text string, lineNo int) {
	sg.cur.DescriptionLines = append(sg.cur.DescriptionLines, DescriptionLine{Text: text, Position: sg.next(), Line: lineNo})
}

func (sg *segmenter) extendParenthetical(text string) {
	if sg.parenOnTurn {
		if t := sg.openTurn(); t != nil {
			t.Parenthetical = joinText(t.Parenthetical, text, " ")
			return
		}
	}
	if n := len(sg.cur.CameraCues); n > 0 {
		c := &sg.cur.CameraCues[n-1]
		c.Text = joinText(c.Text, text, " ")
	}
}

func joinText(a, b, sep string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + sep + b
	}
}
