/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package mood scores scene text against fixed keyword sets and picks one mood label.
package mood

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mood is the emotional tone assigned to a scene.
type Mood int

const (
	Neutral Mood = iota
	Tense
	Happy
	Sad
	Angry
	Romantic
)

var names = [...]string{"neutral", "tense", "happy", "sad", "angry", "romantic"}

func (m Mood) String() string {
	if m < 0 || int(m) >= len(names) {
		return fmt.Sprintf("mood(%d)", int(m))
	}
	return names[m]
}

// Parse maps a lowercase label back to a Mood. Unknown labels yield Neutral and false.
func Parse(s string) (Mood, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return Mood(i), true
		}
	}
	return Neutral, false
}

func (m Mood) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

func (m *Mood) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, ok := Parse(s)
	if !ok {
		return fmt.Errorf("mood: unknown label %q", s)
	}
	*m = v
	return nil
}

// keywordSets is ordered by tie-break precedence.
var keywordSets = []struct {
	mood     Mood
	keywords []string
}{
	{Tense, []string{"nervous", "worried", "scared", "fear", "tension", "anxiety"}},
	{Happy, []string{"laugh", "smile", "joy", "happy", "excited", "cheerful"}},
	{Sad, []string{"cry", "tears", "sorrow", "sad", "depressed", "gloomy"}},
	{Angry, []string{"shout", "angry", "fury", "rage", "mad", "furious"}},
	{Romantic, []string{"love", "kiss", "embrace", "romantic", "tender", "intimate"}},
}

// Scores returns the hit count per mood. A keyword counts once however often it occurs,
// and matches anywhere inside a word ("smiles" hits "smile").
func Scores(text string) map[Mood]int {
	text = strings.ToLower(text)
	out := make(map[Mood]int, len(keywordSets))
	for _, set := range keywordSets {
		n := 0
		for _, kw := range set.keywords {
			if strings.Contains(text, kw) {
				n++
			}
		}
		if n > 0 {
			out[set.mood] = n
		}
	}
	return out
}

// Classify returns the highest scoring mood. Ties go to the earlier of
// tense, happy, sad, angry, romantic; no hits yields Neutral.
func Classify(text string) Mood {
	scores := Scores(text)
	best, bestScore := Neutral, 0
	for _, set := range keywordSets {
		if s := scores[set.mood]; s > bestScore {
			best, bestScore = set.mood, s
		}
	}
	return best
}
