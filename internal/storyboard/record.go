/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storyboard turns analyzed scenes into records and prompts for external
// generative services and drives those services with rate limiting, timeouts and
// retries. A failing scene never stops the others.
package storyboard

import (
	"encoding/json"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"cinevision/internal/camera"
	"cinevision/internal/mood"
	"cinevision/internal/script"
)

// SceneRecord is what crosses the boundary to a generative service.
type SceneRecord struct {
	SceneIndex  int      `json:"scene_index"`
	Heading     string   `json:"heading"`
	Location    string   `json:"location"`
	TimeOfDay   string   `json:"time_of_day"`
	Mood        string   `json:"mood"`
	Description string   `json:"description"`
	Lighting    string   `json:"lighting,omitempty"`
	Composition string   `json:"composition,omitempty"`
	Characters  []string `json:"characters"`
}

// BuildRecords creates one record per scene. cam may be nil, in which case
// lighting and composition stay empty.
func BuildRecords(m *script.Model, cam *camera.Report) []SceneRecord {
	byScene := map[int]camera.SceneAnalysis{}
	if cam != nil {
		for _, a := range cam.Scenes {
			byScene[a.SceneIndex] = a
		}
	}
	out := make([]SceneRecord, 0, len(m.Scenes))
	for _, s := range m.Scenes {
		rec := SceneRecord{
			SceneIndex:  s.Index,
			Heading:     s.Heading,
			Location:    s.LocationName,
			TimeOfDay:   s.TimeOfDay.String(),
			Mood:        s.Mood.String(),
			Description: s.Description(),
			Characters:  append([]string{}, s.CharactersPresent...),
		}
		if a, ok := byScene[s.Index]; ok {
			rec.Lighting = lightingText(a)
			rec.Composition = compositionText(a)
		}
		out = append(out, rec)
	}
	return out
}

func lightingText(a camera.SceneAnalysis) string {
	if len(a.LightingRequirements) == 0 {
		return ""
	}
	l := a.LightingRequirements[0]
	return fmt.Sprintf("%s lighting with %s", capitalize(l.Type), strings.ToLower(strings.Join(l.Primary, " and ")))
}

func compositionText(a camera.SceneAnalysis) string {
	var parts []string
	for _, r := range a.CameraRequirements {
		switch r.Type {
		case "prime lens":
			parts = append(parts, "Close-up framing")
		case "wide lens":
			parts = append(parts, "Wide establishing framing")
		case "action":
			parts = append(parts, "Dynamic action framing")
		}
	}
	return strings.Join(parts, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Prompt renders the image prompt for a record.
func Prompt(rec SceneRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s. %s", rec.Location, rec.TimeOfDay, rec.Description)
	if rec.Lighting != "" {
		fmt.Fprintf(&b, " %s.", rec.Lighting)
	}
	if rec.Composition != "" {
		fmt.Fprintf(&b, " %s.", rec.Composition)
	}
	if rec.Mood != "" && rec.Mood != mood.Neutral.String() {
		fmt.Fprintf(&b, " The scene has a %s atmosphere.", rec.Mood)
	}
	b.WriteString(" Cinematic, high quality, detailed, film still")
	return b.String()
}

// recordSchema is the JSON Schema every record must satisfy before it is sent out.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["scene_index", "location", "time_of_day", "mood", "description", "characters"],
  "properties": {
    "scene_index": {"type": "integer", "minimum": 1},
    "heading": {"type": "string"},
    "location": {"type": "string"},
    "time_of_day": {"enum": ["unknown", "dawn", "day", "dusk", "night"]},
    "mood": {"enum": ["neutral", "tense", "happy", "sad", "angry", "romantic"]},
    "description": {"type": "string", "maxLength": 20000},
    "lighting": {"type": "string"},
    "composition": {"type": "string"},
    "characters": {"type": "array", "items": {"type": "string", "minLength": 1}}
  },
  "additionalProperties": false
}`

var schemaLoader = gojsonschema.NewStringLoader(recordSchema)

// Validate checks rec against the record schema.
func Validate(rec SceneRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate record: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid scene record %d: %s", rec.SceneIndex, strings.Join(msgs, "; "))
	}
	return nil
}
