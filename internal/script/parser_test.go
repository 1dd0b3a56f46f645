/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"encoding/json"
	"strings"
	"testing"

	"cinevision/internal/mood"
)

const sample = `FADE IN:

INT. APARTMENT - NIGHT

Rain hammers the window. MARY paces, nervous.

MARY
(into phone)
Where are you?

JOHN (V.O.)
Almost there.

(CLOSE ON the clock)

CUT TO:

EXT. STREET - CONTINUOUS

John runs through the storm.

THE CITY SLEEPS.
A CAR ALARM WAILS.

INT./EXT. CAR - DAWN

JOHN
(breathless,
barely audible)
I made it.
`

func TestParseKitchenScenario(t *testing.T) {
	m, errs := Parse("INT. KITCHEN - DAY\nJOHN\nHello there.\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", errs)
	}
	if len(m.Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(m.Scenes))
	}
	s := m.Scenes[0]
	if s.Index != 1 || s.LocationKind != Interior || s.LocationName != "KITCHEN" || s.TimeOfDay != Day {
		t.Fatalf("unexpected scene: %+v", s)
	}
	if len(s.DialogueTurns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(s.DialogueTurns))
	}
	if d := s.DialogueTurns[0]; d.Character != "JOHN" || d.Text != "Hello there." || d.Line != 2 {
		t.Fatalf("unexpected turn: %+v", d)
	}
	if len(s.DescriptionLines) != 0 {
		t.Fatalf("expected no description, got %+v", s.DescriptionLines)
	}
}

func TestParseWithoutHeadingBuildsSyntheticScene(t *testing.T) {
	m, errs := Parse("Just some action.\n")
	if len(m.Scenes) != 1 {
		t.Fatalf("expected 1 synthetic scene, got %d", len(m.Scenes))
	}
	s := m.Scenes[0]
	if s.LocationKind != LocationUnknown || s.TimeOfDay != TimeUnknown || s.Heading != "" {
		t.Fatalf("synthetic scene should have unknown location/time: %+v", s)
	}
	if len(s.DescriptionLines) != 1 || s.DescriptionLines[0].Text != "Just some action." {
		t.Fatalf("unexpected description: %+v", s.DescriptionLines)
	}
	if len(errs) != 1 || errs[0].Kind != ErrMalformedInput {
		t.Fatalf("expected one malformed_input diagnostic, got %+v", errs)
	}
}

func TestParseEmptyScript(t *testing.T) {
	for _, in := range []string{"", "   \n\n\t\n"} {
		m, errs := Parse(in)
		if m == nil || len(m.Scenes) != 0 {
			t.Fatalf("expected empty model for %q, got %+v", in, m)
		}
		if len(errs) != 1 || errs[0].Kind != ErrEmptyScript {
			t.Fatalf("expected empty_script diagnostic, got %+v", errs)
		}
	}
}

func TestParseSampleStructure(t *testing.T) {
	m, errs := Parse(sample)
	if len(m.Scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(m.Scenes))
	}

	s1 := m.Scenes[0]
	if s1.LocationName != "APARTMENT" || s1.TimeOfDay != Night || s1.Line != 3 {
		t.Fatalf("scene 1 heading mismatch: %+v", s1)
	}
	if got := strings.Join(s1.CharactersPresent, ","); got != "MARY,JOHN" {
		t.Fatalf("characters present: %q", got)
	}
	if len(s1.DialogueTurns) != 2 {
		t.Fatalf("expected 2 turns in scene 1, got %+v", s1.DialogueTurns)
	}
	if d := s1.DialogueTurns[0]; d.Parenthetical != "into phone" || d.Text != "Where are you?" {
		t.Fatalf("parenthetical not attached: %+v", d)
	}
	if d := s1.DialogueTurns[1]; d.Character != "JOHN" || d.Extension != "V.O." || d.Text != "Almost there." {
		t.Fatalf("extension not split: %+v", d)
	}
	if len(s1.CameraCues) != 1 || s1.CameraCues[0].Text != "CLOSE ON the clock" {
		t.Fatalf("camera cue mismatch: %+v", s1.CameraCues)
	}
	if len(s1.Transitions) != 1 || s1.Transitions[0].Text != "CUT TO:" {
		t.Fatalf("transition mismatch: %+v", s1.Transitions)
	}
	if s1.Mood != mood.Tense {
		t.Fatalf("expected tense mood, got %s", s1.Mood)
	}

	s2 := m.Scenes[1]
	if s2.LocationKind != Exterior || s2.LocationName != "STREET" || s2.TimeOfDay != Day || s2.TimeText != "CONTINUOUS" {
		t.Fatalf("scene 2 heading mismatch: %+v", s2)
	}
	if len(s2.DialogueTurns) != 0 || len(s2.DescriptionLines) != 3 {
		t.Fatalf("all-caps action lines should stay description: %+v", s2)
	}

	s3 := m.Scenes[2]
	if s3.LocationKind != Both || s3.TimeOfDay != Dawn {
		t.Fatalf("scene 3 heading mismatch: %+v", s3)
	}
	if d := s3.DialogueTurns[0]; d.Parenthetical != "breathless, barely audible" || d.Text != "I made it." {
		t.Fatalf("multi-line parenthetical mismatch: %+v", d)
	}

	kinds := map[ErrorKind]int{}
	for _, e := range errs {
		kinds[e.Kind]++
	}
	if kinds[ErrUnresolvedLine] != 2 || kinds[ErrPreambleDropped] != 1 || len(errs) != 3 {
		t.Fatalf("unexpected diagnostics: %+v", errs)
	}
	for i, s := range m.Scenes {
		if s.Index != i+1 {
			t.Fatalf("scene %d has index %d", i, s.Index)
		}
	}
}

func TestSceneCountEqualsHeadingCount(t *testing.T) {
	var b strings.Builder
	headings := 0
	for i := 0; i < 12; i++ {
		b.WriteString("INT. ROOM " + strings.Repeat("X", i+1) + " - DAY\n")
		headings++
		b.WriteString("Someone waits.\nANNA\nHi.\n\n")
	}
	m, _ := Parse(b.String())
	if len(m.Scenes) != headings {
		t.Fatalf("expected %d scenes, got %d", headings, len(m.Scenes))
	}
}

func TestTurnsBelongToCharactersPresent(t *testing.T) {
	m, _ := Parse(sample)
	for _, s := range m.Scenes {
		for _, d := range s.DialogueTurns {
			if !s.HasCharacter(d.Character) {
				t.Fatalf("scene %d: %s speaks but is not present", s.Index, d.Character)
			}
		}
	}
}

func TestEntriesPreserveSourceOrder(t *testing.T) {
	m, _ := Parse(sample)
	for _, s := range m.Scenes {
		entries := s.Entries()
		for i := 1; i < len(entries); i++ {
			if entries[i].Position <= entries[i-1].Position {
				t.Fatalf("positions not strictly increasing in scene %d", s.Index)
			}
			if entries[i].Line <= entries[i-1].Line {
				t.Fatalf("scene %d: entry %d (line %d) after line %d", s.Index, i, entries[i].Line, entries[i-1].Line)
			}
		}
	}
}

func TestRenderRoundTrip(t *testing.T) {
	m, _ := Parse(sample)
	again, _ := Parse(m.Scenes[0].Render())
	if len(again.Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(again.Scenes))
	}
	a, b := m.Scenes[0], again.Scenes[0]
	if len(a.Entries()) != len(b.Entries()) {
		t.Fatalf("entry count changed: %d vs %d", len(a.Entries()), len(b.Entries()))
	}
	for i, e := range a.Entries() {
		f := b.Entries()[i]
		if e.Kind != f.Kind || e.Text != f.Text || e.Character != f.Character || e.Parenthetical != f.Parenthetical {
			t.Fatalf("entry %d differs: %+v vs %+v", i, e, f)
		}
	}
}

func TestParseHeadingVariants(t *testing.T) {
	cases := []struct {
		in       string
		kind     LocationKind
		location string
		tod      TimeOfDay
	}{
		{"INT. OFFICE - MORNING", Interior, "OFFICE", Day},
		{"ext. park - evening", Exterior, "PARK", Dusk},
		{"INT/EXT. TRAIN - AFTERNOON", Both, "TRAIN", Day},
		{"I/E VAN - NIGHT", Both, "VAN", Night},
		{"EXT. BEACH - SUNSET", Exterior, "BEACH", Day},
		{"INT. HOUSE - KITCHEN - NIGHT", Interior, "HOUSE", Night},
		{"INT. HOUSE - KITCHEN - CONTINUOUS", Interior, "HOUSE", Day},
		{"INT. BARN NIGHT", Interior, "BARN NIGHT", Night},
		{"INT. DAYCARE CENTER", Interior, "DAYCARE CENTER", Day},
	}
	for _, tc := range cases {
		h, ok := ParseHeading(tc.in)
		if !ok {
			t.Fatalf("%q not recognized as heading", tc.in)
		}
		if h.LocationKind != tc.kind || h.LocationName != tc.location || h.TimeOfDay != tc.tod {
			t.Fatalf("%q: got kind=%s location=%q time=%s", tc.in, h.LocationKind, h.LocationName, h.TimeOfDay)
		}
	}
	for _, in := range []string{"INTERIOR DESIGN", "Exterior walls crumble.", "JOHN"} {
		if _, ok := ParseHeading(in); ok {
			t.Fatalf("%q should not be a heading", in)
		}
	}
}

func TestClassifyRules(t *testing.T) {
	if c := Classify("   ", nil, State{}); c.Kind != KindBlank {
		t.Fatalf("blank: %s", c.Kind)
	}
	if c := Classify("DISSOLVE TO:", nil, State{}); c.Kind != KindTransition {
		t.Fatalf("transition: %s", c.Kind)
	}
	if c := Classify("SMASH CUT TO:", []string{"Hello"}, State{}); c.Kind != KindTransition {
		t.Fatalf("transition wins over cue: %s", c.Kind)
	}
	if c := Classify("BOB", []string{"", "Hi."}, State{}); c.Kind != KindCue || c.Character != "BOB" {
		t.Fatalf("cue across blank line: %+v", c)
	}
	if c := Classify("BOB", []string{"(beat)", "(sigh)", "Hi."}, State{}); c.Kind != KindAction || !c.Unresolved {
		t.Fatalf("two parentheticals should not confirm: %+v", c)
	}
	if c := Classify("BOB", nil, State{}); c.Kind != KindAction || !c.Unresolved {
		t.Fatalf("trailing cue should be demoted: %+v", c)
	}
	if c := Classify("MRS. O'HARA (CONT'D)", []string{"Again?"}, State{}); c.Character != "MRS. O'HARA" || c.Extension != "CONT'D" {
		t.Fatalf("cue extension: %+v", c)
	}
	if c := Classify("He sits.", nil, State{InDialogue: true}); c.Kind != KindDialogue {
		t.Fatalf("line in dialogue: %s", c.Kind)
	}
	if c := Classify("He sits.", nil, State{}); c.Kind != KindAction {
		t.Fatalf("line outside dialogue: %s", c.Kind)
	}
	if c := Classify("still going)", nil, State{InParenthetical: true}); c.Kind != KindParenthetical || c.ParenOpen || c.Text != "still going" {
		t.Fatalf("parenthetical continuation: %+v", c)
	}
	if c := Classify("(to herself", nil, State{}); c.Kind != KindParenthetical || !c.ParenOpen {
		t.Fatalf("open parenthetical: %+v", c)
	}
	if c := Classify("(He turns) and walks out.", nil, State{}); c.Kind != KindAction {
		t.Fatalf("text after a closed parenthetical is action: %+v", c)
	}
	if c := Classify("(whispering) Get down.", nil, State{InDialogue: true}); c.Kind != KindDialogue {
		t.Fatalf("text after a closed parenthetical is dialogue in a turn: %+v", c)
	}
	if c := Classify("BOB", []string{"(quietly) Hi."}, State{}); c.Kind != KindCue {
		t.Fatalf("cue followed by spoken text opening with a parenthetical: %+v", c)
	}
}

func TestHeadingTimeTextKeepsLocation(t *testing.T) {
	night, _ := ParseHeading("INT. HOUSE - KITCHEN - NIGHT")
	cont, _ := ParseHeading("INT. HOUSE - KITCHEN - CONTINUOUS")
	if night.LocationName != cont.LocationName {
		t.Fatalf("same place named differently: %q vs %q", night.LocationName, cont.LocationName)
	}
	if night.TimeText != "KITCHEN - NIGHT" || cont.TimeText != "KITCHEN - CONTINUOUS" {
		t.Fatalf("unexpected time text: %q, %q", night.TimeText, cont.TimeText)
	}
}

func TestParseLineOpeningWithParenthetical(t *testing.T) {
	m, _ := Parse("INT. ROOM - DAY\n(He turns) and walks to the door.\nMARY\nBye.\n")
	s := m.Scenes[0]
	if len(s.CameraCues) != 0 {
		t.Fatalf("no camera cue expected: %+v", s.CameraCues)
	}
	if len(s.DescriptionLines) != 1 || s.DescriptionLines[0].Text != "(He turns) and walks to the door." {
		t.Fatalf("unexpected description: %+v", s.DescriptionLines)
	}
	if len(s.DialogueTurns) != 1 || s.DialogueTurns[0].Character != "MARY" || s.DialogueTurns[0].Text != "Bye." {
		t.Fatalf("unexpected turns: %+v", s.DialogueTurns)
	}

	m, _ = Parse("INT. ROOM - NIGHT\nJOHN\n(whispering) Get down.\nThe lights die.\n")
	s = m.Scenes[0]
	if len(s.CameraCues) != 0 {
		t.Fatalf("no camera cue expected: %+v", s.CameraCues)
	}
	if len(s.DialogueTurns) != 1 || s.DialogueTurns[0].Text != "(whispering) Get down." {
		t.Fatalf("unexpected turns: %+v", s.DialogueTurns)
	}
	if len(s.DescriptionLines) != 1 || s.DescriptionLines[0].Text != "The lights die." {
		t.Fatalf("unexpected description: %+v", s.DescriptionLines)
	}
}

func TestParseMultiLineParentheticalStillJoins(t *testing.T) {
	m, _ := Parse("INT. ROOM - DAY\n(slow push in\ntoward the door)\nNothing moves.\n")
	s := m.Scenes[0]
	if len(s.CameraCues) != 1 || s.CameraCues[0].Text != "slow push in toward the door" {
		t.Fatalf("unexpected cues: %+v", s.CameraCues)
	}
	if len(s.DescriptionLines) != 1 || s.DescriptionLines[0].Text != "Nothing moves." {
		t.Fatalf("unexpected description: %+v", s.DescriptionLines)
	}
}

func TestSegmenterClosesTurnOnAction(t *testing.T) {
	sg := newSegmenter()
	sg.feed(Line{Kind: KindHeading, Text: "INT. HALL - DAY", LocationKind: Interior, LocationName: "HALL", TimeOfDay: Day}, 1)
	sg.feed(Line{Kind: KindCue, Text: "BOB", Character: "BOB"}, 2)
	sg.feed(Line{Kind: KindAction, Text: "The door opens."}, 3)
	sg.feed(Line{Kind: KindDialogue, Text: "stray"}, 4)
	sg.closeScene()

	if len(sg.scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(sg.scenes))
	}
	s := sg.scenes[0]
	if len(s.DialogueTurns) != 1 || s.DialogueTurns[0].Text != "" {
		t.Fatalf("turn should be closed empty: %+v", s.DialogueTurns)
	}
	if len(s.DescriptionLines) != 2 || s.DescriptionLines[0].Position != 1 {
		t.Fatalf("unexpected description: %+v", s.DescriptionLines)
	}
	if len(sg.errs) != 1 || sg.errs[0].Kind != ErrUnresolvedLine || sg.errs[0].Line != 2 {
		t.Fatalf("expected unresolved diagnostic for the cue, got %+v", sg.errs)
	}
}

func TestParseCRLFAndPreamble(t *testing.T) {
	m, errs := Parse("Title Page\r\nby Someone\r\n\r\nEXT. YARD - DUSK\r\nA dog barks.\r\n")
	if len(m.Scenes) != 1 || m.Scenes[0].TimeOfDay != Dusk {
		t.Fatalf("unexpected model: %+v", m)
	}
	if m.Scenes[0].DescriptionLines[0].Text != "A dog barks." || m.Scenes[0].DescriptionLines[0].Line != 5 {
		t.Fatalf("unexpected description: %+v", m.Scenes[0].DescriptionLines)
	}
	if len(errs) != 1 || errs[0].Kind != ErrPreambleDropped || errs[0].Line != 1 {
		t.Fatalf("expected preamble diagnostic, got %+v", errs)
	}
}

func TestModelJSONShape(t *testing.T) {
	m, _ := Parse("INT. KITCHEN - DAY\nJOHN\nHello there.\n")
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)
	for _, want := range []string{`"location_kind":"interior"`, `"time_of_day":"day"`, `"mood":"neutral"`, `"description_lines":[]`} {
		if !strings.Contains(out, want) {
			t.Fatalf("json missing %s: %s", want, out)
		}
	}
	var back Model
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Scenes[0].LocationKind != Interior || back.Scenes[0].DialogueTurns[0].Character != "JOHN" {
		t.Fatalf("round trip mismatch: %+v", back.Scenes[0])
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m, _ := Parse(sample)
	c := m.Clone()
	c.Scenes[0].DialogueTurns[0].Text = "changed"
	c.Scenes[0].CharactersPresent[0] = "NOBODY"
	if m.Scenes[0].DialogueTurns[0].Text == "changed" || m.Scenes[0].CharactersPresent[0] == "NOBODY" {
		t.Fatalf("clone shares backing arrays with the original")
	}
}
