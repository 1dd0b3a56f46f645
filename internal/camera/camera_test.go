/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package camera

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"cinevision/internal/script"
)

const shoot = `INT. WAREHOUSE - NIGHT

A wide establishing view. Two men fight.

(CLOSE-UP on the knife)

EXT. ROOFTOP - DUSK

She runs to the edge. An aerial view of the city.

INT./EXT. CAR - NIGHT

He drives.
`

func TestAnalyze(t *testing.T) {
	m, _ := script.Parse(shoot)
	r := Analyze(m)
	require.Len(t, r.Scenes, 3)

	s1 := r.Scenes[0]
	require.Equal(t, "NIGHT", s1.Time)
	require.Equal(t, "WAREHOUSE", s1.Location)
	types := []string{}
	for _, req := range s1.CameraRequirements {
		types = append(types, req.Type)
	}
	require.Equal(t, []string{"prime lens", "wide lens", "action"}, types)
	require.Len(t, s1.LightingRequirements, 1)
	require.Equal(t, Indoor, s1.LightingRequirements[0].Type)

	s2 := r.Scenes[1]
	require.Len(t, s2.MovementRequirements, 1)
	require.Len(t, s2.SpecialRequirements, 1)
	require.Equal(t, []string{"HMI with CTO", "LED panels"}, s2.LightingRequirements[0].Primary)

	s3 := r.Scenes[2]
	require.Len(t, s3.LightingRequirements, 2)

	require.NotNil(t, r.CameraSetups.Primary.HighSpeed)
	require.Equal(t, []string{primeLens, wideLens}, r.CameraSetups.Primary.Lenses)
	require.Equal(t, []string{"Drone", "Crane"}, r.CameraSetups.Specialty.Equipment)
	require.Equal(t, []string{"Dolly", "Steadicam"}, r.MovementEquipment)

	keys := []string{}
	for _, l := range r.LightingSetups {
		keys = append(keys, l.Type+"/"+l.Time)
	}
	require.Equal(t, []string{"indoor/NIGHT", "outdoor/DUSK", "outdoor/NIGHT"}, keys)

	cats := []string{}
	for _, rec := range r.Recommendations {
		cats = append(cats, rec.Category+":"+rec.Suggestion)
	}
	require.Equal(t, []string{
		"Camera:Use a high-speed camera for action sequences",
		"Lenses:Mixed lens package required",
		"Lighting:Indoor lighting package required",
		"Lighting:Outdoor lighting package required",
		"Movement:Camera movement equipment required",
		"Specialty:Specialty rigs required for aerial shots",
	}, cats)
}

func TestKeywordsMatchWordStarts(t *testing.T) {
	m, _ := script.Parse("INT. BANK - DAY\n\nHer reaction is calm. A birdhouse sits on the desk.\n")
	a := AnalyzeScene(m.Scenes[0])
	require.Empty(t, a.CameraRequirements)
	// "birdhouse" still starts with "bird"
	require.Len(t, a.SpecialRequirements, 1)
}

func TestLightingFallback(t *testing.T) {
	l := LightingFor(Indoor, script.TimeUnknown)
	require.Equal(t, "DAY", l.Time)
	require.Equal(t, []string{"Softboxes", "LED Panels"}, l.Primary)

	o := LightingFor(Outdoor, script.Dawn)
	require.Equal(t, []string{"HMI with CTB", "LED panels"}, o.Primary)
	require.Equal(t, []string{"Flags", "Diffusion"}, o.Control)
	require.Empty(t, o.Background)
}

func TestLightingForReturnsCopies(t *testing.T) {
	l := LightingFor(Indoor, script.Night)
	l.Primary[0] = "changed"
	l.Fill = append(l.Fill[:0], "changed")

	again := LightingFor(Indoor, script.Night)
	require.Equal(t, []string{"Tungsten lights", "LED Panels"}, again.Primary)
	require.Equal(t, []string{"Small LED spots"}, again.Fill)

	r := Analyze(&script.Model{Scenes: []script.Scene{{Index: 1, LocationKind: script.Exterior, TimeOfDay: script.Day}}})
	r.Scenes[0].LightingRequirements[0].Control[0] = "changed"
	require.Equal(t, []string{"Flags", "Silks"}, LightingFor(Outdoor, script.Day).Control)
}

func TestSyntheticSceneGetsOutdoorDayLighting(t *testing.T) {
	m, _ := script.Parse("Someone walks in the rain.\n")
	r := Analyze(m)
	require.Len(t, r.LightingSetups, 1)
	require.Equal(t, Outdoor, r.LightingSetups[0].Type)
	require.Equal(t, "DAY", r.LightingSetups[0].Time)
	require.Equal(t, []string{"Dolly", "Steadicam"}, r.MovementEquipment)
}

func TestEmptyModelReportShape(t *testing.T) {
	r := Analyze(&script.Model{})
	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{"scenes":[],"camera_setups":{"primary":{},"secondary":{},"specialty":{}},"lighting_setups":[],"movement_equipment":[],"recommendations":[]}`, string(b))
}

func TestAnalyzeDoesNotMutateModel(t *testing.T) {
	m, _ := script.Parse(shoot)
	before := m.Clone()
	_ = Analyze(m)
	require.Equal(t, before, m)
}
