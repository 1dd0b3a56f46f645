/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package camera derives camera, lens, lighting and movement recommendations from a parsed script.
package camera

import (
	"regexp"
	"slices"
	"strings"

	"cinevision/internal/script"
)

// Lighting is a lighting package for one location type and time of day.
type Lighting struct {
	Type       string   `json:"type"`
	Time       string   `json:"time"`
	Primary    []string `json:"primary"`
	Fill       []string `json:"fill"`
	Background []string `json:"background,omitempty"`
	Control    []string `json:"control,omitempty"`
}

type Requirement struct {
	Type       string   `json:"type"`
	Suggestion string   `json:"suggestion,omitempty"`
	Equipment  []string `json:"equipment,omitempty"`
}

type SceneAnalysis struct {
	SceneIndex           int                 `json:"scene_index"`
	LocationKind         script.LocationKind `json:"location_kind"`
	Location             string              `json:"location"`
	Time                 string              `json:"time"`
	CameraRequirements   []Requirement       `json:"camera_requirements"`
	LightingRequirements []Lighting          `json:"lighting_requirements"`
	MovementRequirements []Requirement       `json:"movement_requirements"`
	SpecialRequirements  []Requirement       `json:"special_requirements"`
}

type HighSpeed struct {
	Camera   string   `json:"camera"`
	Features []string `json:"features"`
}

type Setup struct {
	HighSpeed *HighSpeed `json:"high_speed,omitempty"`
	Lenses    []string   `json:"lenses,omitempty"`
	Equipment []string   `json:"equipment,omitempty"`
}

type Setups struct {
	Primary   Setup `json:"primary"`
	Secondary Setup `json:"secondary"`
	Specialty Setup `json:"specialty"`
}

// Recommendation details hold a *HighSpeed, a Lighting or a []string depending on Category.
type Recommendation struct {
	Category   string `json:"category"`
	Suggestion string `json:"suggestion"`
	Details    any    `json:"details"`
}

type Report struct {
	Scenes            []SceneAnalysis  `json:"scenes"`
	CameraSetups      Setups           `json:"camera_setups"`
	LightingSetups    []Lighting       `json:"lighting_setups"`
	MovementEquipment []string         `json:"movement_equipment"`
	Recommendations   []Recommendation `json:"recommendations"`
}

const (
	Indoor  = "indoor"
	Outdoor = "outdoor"
)

var indoorSetups = map[string]Lighting{
	"DAY":   {Primary: []string{"Softboxes", "LED Panels"}, Fill: []string{"Reflectors", "Small LED"}, Background: []string{"Window light supplementation"}},
	"NIGHT": {Primary: []string{"Tungsten lights", "LED Panels"}, Fill: []string{"Small LED spots"}, Background: []string{"Practical lights", "Accent lights"}},
	"DUSK":  {Primary: []string{"Warm LED panels", "Tungsten"}, Fill: []string{"Orange gels", "Reflectors"}, Background: []string{"Practical lights"}},
	"DAWN":  {Primary: []string{"Cool LED panels", "HMI"}, Fill: []string{"Blue gels", "Reflectors"}, Background: []string{"Window light supplementation"}},
}

var outdoorSetups = map[string]Lighting{
	"DAY":   {Primary: []string{"Reflectors", "Diffusion frames"}, Fill: []string{"White bounce", "LED fill"}, Control: []string{"Flags", "Silks"}},
	"NIGHT": {Primary: []string{"HMI lights", "LED panels"}, Fill: []string{"Reflectors", "Small LED"}, Control: []string{"Flags", "Diffusion"}},
	"DUSK":  {Primary: []string{"HMI with CTO", "LED panels"}, Fill: []string{"Reflectors", "LED fill"}, Control: []string{"Flags", "Diffusion"}},
	"DAWN":  {Primary: []string{"HMI with CTB", "LED panels"}, Fill: []string{"Reflectors", "LED fill"}, Control: []string{"Flags", "Diffusion"}},
}

// LightingFor returns a copy of the lighting package for a location type; unknown times fall back to DAY.
func LightingFor(kind string, tod script.TimeOfDay) Lighting {
	table := outdoorSetups
	if kind == Indoor {
		table = indoorSetups
	}
	key := tod.Label()
	l, ok := table[key]
	if !ok {
		key = "DAY"
		l = table[key]
	}
	l.Type, l.Time = kind, key
	l.Primary = slices.Clone(l.Primary)
	l.Fill = slices.Clone(l.Fill)
	l.Background = slices.Clone(l.Background)
	l.Control = slices.Clone(l.Control)
	return l
}

// Keywords match at the start of a word, so "widescreen" counts as wide and "reaction" does not count as action.
var (
	reCloseUp  = regexp.MustCompile(`\b(close up|closeup|close-up)`)
	reWide     = regexp.MustCompile(`\b(wide|establishing|landscape)`)
	reTracking = regexp.MustCompile(`\b(follows|tracking|moving|walks|runs)`)
	reAerial   = regexp.MustCompile(`\b(aerial|bird|overhead)`)
	reAction   = regexp.MustCompile(`\b(fight|chase|action|explosion)`)
)

const (
	primeLens    = "50mm or 85mm prime lens for close-up shots"
	wideLens     = "16-35mm lens for wide shots"
	actionCamera = "High-speed camera capable of 120fps or higher"
)

func highSpeed() *HighSpeed {
	return &HighSpeed{Camera: "RED Komodo or ARRI Alexa Mini", Features: []string{"High frame rates", "4K or higher resolution"}}
}

// AnalyzeScene evaluates one scene.
func AnalyzeScene(s script.Scene) SceneAnalysis {
	a := SceneAnalysis{
		SceneIndex:           s.Index,
		LocationKind:         s.LocationKind,
		Location:             s.LocationName,
		Time:                 s.TimeOfDay.Label(),
		CameraRequirements:   []Requirement{},
		LightingRequirements: []Lighting{},
		MovementRequirements: []Requirement{},
		SpecialRequirements:  []Requirement{},
	}
	switch s.LocationKind {
	case script.Interior:
		a.LightingRequirements = append(a.LightingRequirements, LightingFor(Indoor, s.TimeOfDay))
	case script.Both:
		a.LightingRequirements = append(a.LightingRequirements, LightingFor(Indoor, s.TimeOfDay), LightingFor(Outdoor, s.TimeOfDay))
	default:
		a.LightingRequirements = append(a.LightingRequirements, LightingFor(Outdoor, s.TimeOfDay))
	}

	content := strings.ToLower(s.Body())
	if reCloseUp.MatchString(content) {
		a.CameraRequirements = append(a.CameraRequirements, Requirement{Type: "prime lens", Suggestion: primeLens})
	}
	if reWide.MatchString(content) {
		a.CameraRequirements = append(a.CameraRequirements, Requirement{Type: "wide lens", Suggestion: wideLens})
	}
	if reTracking.MatchString(content) {
		a.MovementRequirements = append(a.MovementRequirements, Requirement{Type: "tracking", Equipment: []string{"Dolly", "Steadicam"}})
	}
	if reAerial.MatchString(content) {
		a.SpecialRequirements = append(a.SpecialRequirements, Requirement{Type: "aerial", Equipment: []string{"Drone", "Crane"}})
	}
	if reAction.MatchString(content) {
		a.CameraRequirements = append(a.CameraRequirements, Requirement{Type: "action", Suggestion: actionCamera})
	}
	return a
}

// Analyze builds the camera report for all scenes. The model is only read.
func Analyze(m *script.Model) Report {
	r := Report{
		Scenes:            make([]SceneAnalysis, 0, len(m.Scenes)),
		LightingSetups:    []Lighting{},
		MovementEquipment: []string{},
		Recommendations:   []Recommendation{},
	}
	seenLighting := map[string]bool{}
	for _, s := range m.Scenes {
		a := AnalyzeScene(s)
		r.Scenes = append(r.Scenes, a)

		for _, req := range a.CameraRequirements {
			switch req.Type {
			case "action":
				r.CameraSetups.Primary.HighSpeed = highSpeed()
			case "prime lens", "wide lens":
				r.CameraSetups.Primary.Lenses = appendUnique(r.CameraSetups.Primary.Lenses, req.Suggestion)
			}
		}
		for _, l := range a.LightingRequirements {
			if key := l.Type + "/" + l.Time; !seenLighting[key] {
				seenLighting[key] = true
				r.LightingSetups = append(r.LightingSetups, l)
			}
		}
		for _, req := range a.MovementRequirements {
			r.MovementEquipment = appendUnique(r.MovementEquipment, req.Equipment...)
		}
		for _, req := range a.SpecialRequirements {
			r.CameraSetups.Specialty.Equipment = appendUnique(r.CameraSetups.Specialty.Equipment, req.Equipment...)
		}
	}
	r.Recommendations = recommend(r)
	return r
}

func recommend(r Report) []Recommendation {
	out := []Recommendation{}
	if hs := r.CameraSetups.Primary.HighSpeed; hs != nil {
		out = append(out, Recommendation{Category: "Camera", Suggestion: "Use a high-speed camera for action sequences", Details: hs})
	}
	if lenses := r.CameraSetups.Primary.Lenses; len(lenses) > 0 {
		out = append(out, Recommendation{Category: "Lenses", Suggestion: "Mixed lens package required", Details: lenses})
	}
	seenType := map[string]bool{}
	for _, l := range r.LightingSetups {
		if seenType[l.Type] {
			continue
		}
		seenType[l.Type] = true
		out = append(out, Recommendation{Category: "Lighting", Suggestion: capitalize(l.Type) + " lighting package required", Details: l})
	}
	if len(r.MovementEquipment) > 0 {
		out = append(out, Recommendation{Category: "Movement", Suggestion: "Camera movement equipment required", Details: r.MovementEquipment})
	}
	if eq := r.CameraSetups.Specialty.Equipment; len(eq) > 0 {
		out = append(out, Recommendation{Category: "Specialty", Suggestion: "Specialty rigs required for aerial shots", Details: eq})
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
