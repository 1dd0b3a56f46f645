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
	"fmt"
	"sort"
	"strings"

	"cinevision/internal/mood"
)

// Model is the parsed screenplay: an ordered list of scenes.
// Consumers treat it as read-only once Parse has returned.
type Model struct {
	Scenes []Scene `json:"scenes"`
}

// Scene is one screenplay scene. Positions on description lines, dialogue turns,
// camera cues and transitions come from a single per-scene counter, so Entries
// can restore the original order.
type Scene struct {
	Index             int               `json:"index"`
	Heading           string            `json:"heading"`
	LocationKind      LocationKind      `json:"location_kind"`
	LocationName      string            `json:"location_name"`
	TimeOfDay         TimeOfDay         `json:"time_of_day"`
	TimeText          string            `json:"time_text,omitempty"`
	DescriptionLines  []DescriptionLine `json:"description_lines"`
	DialogueTurns     []DialogueTurn    `json:"dialogue_turns"`
	CameraCues        []Cue             `json:"camera_cues"`
	Transitions       []Cue             `json:"transitions"`
	CharactersPresent []string          `json:"characters_present"`
	Mood              mood.Mood         `json:"mood"`
	// Line is the 1-based source line of the heading, 0 for the synthetic scene.
	Line int `json:"line"`
}

type DescriptionLine struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
	Line     int    `json:"line"`
}

// DialogueTurn is one cue plus the single line spoken after it. Text stays empty
// when the cue was never followed by spoken text.
type DialogueTurn struct {
	Character     string `json:"character"`
	Extension     string `json:"extension,omitempty"`
	Text          string `json:"text"`
	Parenthetical string `json:"parenthetical,omitempty"`
	Position      int    `json:"position"`
	Line          int    `json:"line"`
}

// Cue is a camera note or a transition label.
type Cue struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
	Line     int    `json:"line"`
}

type LocationKind int

const (
	LocationUnknown LocationKind = iota
	Interior
	Exterior
	Both
)

var locationKindNames = [...]string{"unknown", "interior", "exterior", "both"}

func (k LocationKind) String() string {
	if k < 0 || int(k) >= len(locationKindNames) {
		return fmt.Sprintf("location(%d)", int(k))
	}
	return locationKindNames[k]
}

func (k LocationKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *LocationKind) UnmarshalJSON(b []byte) error {
	i, err := unmarshalEnum(b, locationKindNames[:])
	if err != nil {
		return fmt.Errorf("location kind: %w", err)
	}
	*k = LocationKind(i)
	return nil
}

type TimeOfDay int

const (
	TimeUnknown TimeOfDay = iota
	Dawn
	Day
	Dusk
	Night
)

var timeOfDayNames = [...]string{"unknown", "dawn", "day", "dusk", "night"}

func (t TimeOfDay) String() string {
	if t < 0 || int(t) >= len(timeOfDayNames) {
		return fmt.Sprintf("time(%d)", int(t))
	}
	return timeOfDayNames[t]
}

// Label is the upper-case form used in reports ("NIGHT").
func (t TimeOfDay) Label() string { return strings.ToUpper(t.String()) }

func (t TimeOfDay) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	i, err := unmarshalEnum(b, timeOfDayNames[:])
	if err != nil {
		return fmt.Errorf("time of day: %w", err)
	}
	*t = TimeOfDay(i)
	return nil
}

func unmarshalEnum(b []byte, names []string) (int, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, err
	}
	s = strings.ToLower(s)
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", s)
}

// EntryKind tags an Entry produced by Scene.Entries.
type EntryKind string

const (
	EntryDescription EntryKind = "description"
	EntryDialogue    EntryKind = "dialogue"
	EntryCamera      EntryKind = "camera"
	EntryTransition  EntryKind = "transition"
)

// Entry is a flattened view over a scene's positioned content.
type Entry struct {
	Kind     EntryKind
	Position int
	Line     int
	Text     string
	// Dialogue only.
	Character     string
	Extension     string
	Parenthetical string
}

// Entries returns all positioned content of the scene ordered by position.
func (s Scene) Entries() []Entry {
	out := make([]Entry, 0, len(s.DescriptionLines)+len(s.DialogueTurns)+len(s.CameraCues)+len(s.Transitions))
	for _, d := range s.DescriptionLines {
		out = append(out, Entry{Kind: EntryDescription, Position: d.Position, Line: d.Line, Text: d.Text})
	}
	for _, d := range s.DialogueTurns {
		out = append(out, Entry{Kind: EntryDialogue, Position: d.Position, Line: d.Line, Text: d.Text,
			Character: d.Character, Extension: d.Extension, Parenthetical: d.Parenthetical})
	}
	for _, c := range s.CameraCues {
		out = append(out, Entry{Kind: EntryCamera, Position: c.Position, Line: c.Line, Text: c.Text})
	}
	for _, c := range s.Transitions {
		out = append(out, Entry{Kind: EntryTransition, Position: c.Position, Line: c.Line, Text: c.Text})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Render rebuilds the scene as screenplay text: heading first, then entries in order.
func (s Scene) Render() string {
	if s.Heading == "" {
		return s.Body()
	}
	return s.Heading + "\n" + s.Body()
}

// Body is Render without the heading line.
func (s Scene) Body() string {
	var b strings.Builder
	for _, e := range s.Entries() {
		switch e.Kind {
		case EntryDialogue:
			b.WriteString(e.Character)
			if e.Extension != "" {
				b.WriteString(" (" + e.Extension + ")")
			}
			b.WriteString("\n")
			if e.Parenthetical != "" {
				b.WriteString("(" + e.Parenthetical + ")\n")
			}
			if e.Text != "" {
				b.WriteString(e.Text + "\n")
			}
		case EntryCamera:
			b.WriteString("(" + e.Text + ")\n")
		default:
			b.WriteString(e.Text + "\n")
		}
	}
	return b.String()
}

// Description joins the description lines with single spaces.
func (s Scene) Description() string {
	parts := make([]string, len(s.DescriptionLines))
	for i, d := range s.DescriptionLines {
		parts[i] = d.Text
	}
	return strings.Join(parts, " ")
}

// MoodText is the text the mood scorer reads: description followed by spoken lines.
func (s Scene) MoodText() string {
	parts := make([]string, 0, len(s.DialogueTurns))
	for _, d := range s.DialogueTurns {
		parts = append(parts, d.Text)
	}
	return strings.ToLower(s.Description() + " " + strings.Join(parts, " "))
}

// HasCharacter reports whether name is in CharactersPresent.
func (s Scene) HasCharacter(name string) bool {
	for _, c := range s.CharactersPresent {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	out := &Model{Scenes: cloneSlice(m.Scenes)}
	for i, s := range m.Scenes {
		c := s
		c.DescriptionLines = cloneSlice(s.DescriptionLines)
		c.DialogueTurns = cloneSlice(s.DialogueTurns)
		c.CameraCues = cloneSlice(s.CameraCues)
		c.Transitions = cloneSlice(s.Transitions)
		c.CharactersPresent = cloneSlice(s.CharactersPresent)
		out.Scenes[i] = c
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// TurnCount is the number of dialogue turns across all scenes.
func (m *Model) TurnCount() int {
	n := 0
	for _, s := range m.Scenes {
		n += len(s.DialogueTurns)
	}
	return n
}

// ErrorKind classifies a parse diagnostic. None of them stop parsing.
type ErrorKind int

const (
	// ErrMalformedInput: no scene heading found; the text became one synthetic scene.
	ErrMalformedInput ErrorKind = iota + 1
	// ErrUnresolvedLine: an ambiguous line was kept as description.
	ErrUnresolvedLine
	// ErrEmptyScript: no content at all.
	ErrEmptyScript
	// ErrPreambleDropped: text before the first heading was not kept.
	ErrPreambleDropped
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedInput:
		return "malformed_input"
	case ErrUnresolvedLine:
		return "unresolved_line"
	case ErrEmptyScript:
		return "empty_script"
	case ErrPreambleDropped:
		return "preamble_dropped"
	default:
		return fmt.Sprintf("error(%d)", int(k))
	}
}

func (k ErrorKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *ErrorKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for c := ErrMalformedInput; c <= ErrPreambleDropped; c++ {
		if c.String() == s {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown diagnostic kind %q", s)
}

// Error is a non-fatal parse diagnostic with the 1-based source line (0 when not line specific).
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Line    int       `json:"line"`
	Message string    `json:"message"`
}

func (e Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
