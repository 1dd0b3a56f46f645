/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package characters reduces a parsed script into a cast roster with role tiers.
package characters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"cinevision/internal/script"
)

type Tier int

const (
	Minor Tier = iota
	Supporting
	MainCharacter
	Protagonist
)

var tierNames = [...]string{"minor", "supporting", "main_character", "protagonist"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Principal reports whether the tier is Protagonist or MainCharacter.
func (t Tier) Principal() bool { return t == Protagonist || t == MainCharacter }

func (t Tier) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *Tier) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for i, n := range tierNames {
		if n == s {
			*t = Tier(i)
			return nil
		}
	}
	return fmt.Errorf("tier: unknown value %q", s)
}

// Character is the cross-scene aggregate for one speaking name.
type Character struct {
	Name             string   `json:"name"`
	RoleTier         Tier     `json:"role_tier"`
	DialogueCount    int      `json:"dialogue_count"`
	SampleLines      []string `json:"sample_lines"`
	FirstDescription string   `json:"first_description,omitempty"`
	SceneIndices     []int    `json:"scene_indices"`
	Interactions     []string `json:"interactions"`
}

type Options struct {
	// SampleLines bounds Character.SampleLines.
	SampleLines int
	// SupportingThreshold is the dialogue count a non-principal needs to exceed to be Supporting.
	SupportingThreshold int
}

func DefaultOptions() Options { return Options{SampleLines: 3, SupportingThreshold: 10} }

// Roster is ordered by dialogue count, highest first; equal counts keep first-appearance order.
type Roster []Character

// Find returns the character with the given name.
func (r Roster) Find(name string) (Character, bool) {
	for _, c := range r {
		if c.Name == name {
			return c, true
		}
	}
	return Character{}, false
}

// Principals returns the Protagonist and MainCharacter entries.
func (r Roster) Principals() Roster {
	var out Roster
	for _, c := range r {
		if c.RoleTier.Principal() {
			out = append(out, c)
		}
	}
	return out
}

// TotalDialogue sums dialogue counts over the roster.
func (r Roster) TotalDialogue() int {
	n := 0
	for _, c := range r {
		n += c.DialogueCount
	}
	return n
}

type acc struct {
	c     *Character
	order int
	seen  map[string]bool
	scene map[int]bool
}

// Aggregate builds the roster from m. It only reads the model.
func Aggregate(m *script.Model, opts Options) Roster {
	if opts.SampleLines <= 0 {
		opts.SampleLines = DefaultOptions().SampleLines
	}
	byName := map[string]*acc{}
	var order []*acc
	get := func(name string) *acc {
		a, ok := byName[name]
		if !ok {
			a = &acc{
				c:     &Character{Name: name, SampleLines: []string{}, SceneIndices: []int{}, Interactions: []string{}},
				order: len(order),
				seen:  map[string]bool{},
				scene: map[int]bool{},
			}
			byName[name] = a
			order = append(order, a)
		}
		return a
	}

	for _, s := range m.Scenes {
		for _, name := range s.CharactersPresent {
			a := get(name)
			if !a.scene[s.Index] {
				a.scene[s.Index] = true
				a.c.SceneIndices = append(a.c.SceneIndices, s.Index)
			}
			for _, other := range s.CharactersPresent {
				if other != name && !a.seen[other] {
					a.seen[other] = true
					a.c.Interactions = append(a.c.Interactions, other)
				}
			}
		}
		for _, d := range s.DialogueTurns {
			a := get(d.Character)
			a.c.DialogueCount++
			if d.Text != "" && len(a.c.SampleLines) < opts.SampleLines {
				a.c.SampleLines = append(a.c.SampleLines, d.Text)
			}
		}
	}

	// First description: earliest description line naming the character.
	for _, s := range m.Scenes {
		for _, dl := range s.DescriptionLines {
			upper := strings.ToUpper(dl.Text)
			for _, a := range order {
				if a.c.FirstDescription == "" && containsWord(upper, a.c.Name) {
					a.c.FirstDescription = dl.Text
				}
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].c.DialogueCount != order[j].c.DialogueCount {
			return order[i].c.DialogueCount > order[j].c.DialogueCount
		}
		return order[i].order < order[j].order
	})

	out := make(Roster, len(order))
	for i, a := range order {
		c := *a.c
		switch {
		case i == 0:
			c.RoleTier = Protagonist
		case i <= 2:
			c.RoleTier = MainCharacter
		case c.DialogueCount > opts.SupportingThreshold:
			c.RoleTier = Supporting
		default:
			c.RoleTier = Minor
		}
		out[i] = c
	}
	return out
}

// containsWord reports whether word occurs in s delimited by non-alphanumerics.
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if !alnumBefore(s, start) && !alnumAt(s, end) {
			return true
		}
		from = start + 1
	}
}

func alnumBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r := []rune(s[:i])
	return isAlnum(r[len(r)-1])
}

func alnumAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	for _, r := range s[i:] {
		return isAlnum(r)
	}
	return false
}

func isAlnum(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
