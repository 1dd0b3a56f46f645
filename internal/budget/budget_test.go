/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package budget

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cinevision/internal/characters"
	"cinevision/internal/script"
)

const twoScenes = `INT. APARTMENT - NIGHT

Mary holds a phone. Smoke drifts in.

MARY
Where is the car?

EXT. PARK - DAY

An explosion rocks the park. Rain falls.

BOB
Run!
`

func names(items []LineItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestAnalyzeTotals(t *testing.T) {
	m, _ := script.Parse(twoScenes)
	roster := characters.Aggregate(m, characters.DefaultOptions())
	r := Analyze(m, roster, DefaultOptions())

	require.Equal(t, []string{"APARTMENT", "PARK"}, names(r.Locations.Details))
	require.Equal(t, 3000, r.Locations.Total)
	require.Equal(t, []int{2}, r.Locations.Details[1].SceneIndices)

	require.Equal(t, []string{"holds", "phone", "car"}, names(r.Props.Details))
	require.Equal(t, 1400, r.Props.Total)

	require.Equal(t, []string{"smoke", "explosion", "rain"}, names(r.SpecialEffects.Details))
	require.Equal(t, 10000, r.SpecialEffects.Total)

	require.Equal(t, 2000, r.Cast.Total)
	require.Equal(t, MinorRole, r.Cast.Details[0].Role)
	require.Equal(t, 400, r.Costumes.Total)
	require.Equal(t, 27500, r.Equipment.Total)
	require.Equal(t, 13000, r.PostProduction.Total)
	require.Equal(t, 57300, r.Total)

	sum := 0
	for _, c := range r.Categories() {
		sum += c.Total
	}
	require.Equal(t, r.Total, sum)
}

func TestCastImportanceRates(t *testing.T) {
	roster := characters.Roster{
		{Name: "JOHN", DialogueCount: 21},
		{Name: "ZED", DialogueCount: 11},
		{Name: "AMY", DialogueCount: 10},
	}
	r := Analyze(&script.Model{}, roster, Options{CastDays: 2})
	require.Equal(t, Lead, r.Cast.Details[0].Role)
	require.Equal(t, 2000, r.Cast.Details[0].Cost)
	require.Equal(t, Supporting, r.Cast.Details[1].Role)
	require.Equal(t, 1000, r.Cast.Details[1].Cost)
	require.Equal(t, MinorRole, r.Cast.Details[2].Role)
	require.Equal(t, 1700, r.Costumes.Total)
	// unset days fall back to defaults
	require.Equal(t, 5, r.Equipment.Details[0].Days)
	require.Empty(t, r.Locations.Details)
	require.NotNil(t, r.Locations.Details)
}

func TestRateTables(t *testing.T) {
	require.Equal(t, 1000, LocationCost("MARY'S HOUSE"))
	require.Equal(t, 2000, LocationCost("MAIN STREET"))
	require.Equal(t, 3000, LocationCost("CORNER CAFE"))
	require.Equal(t, 4000, LocationCost("OFFICE TOWER"))
	require.Equal(t, 2500, LocationCost("DESERT"))

	require.Equal(t, 1000, PropCost("vehicle"))
	require.Equal(t, 500, PropCost("gun"))
	require.Equal(t, 800, PropCost("laptop"))
	require.Equal(t, 200, PropCost("book"))

	require.Equal(t, 5000, EffectCost("fire"))
	require.Equal(t, 3000, EffectCost("snow"))
	require.Equal(t, 4000, EffectCost("chase scene"))
	require.Equal(t, 2000, EffectCost("fog"))
}

func TestAnalyzeDoesNotMutateModel(t *testing.T) {
	m, _ := script.Parse(twoScenes)
	before := m.Clone()
	_ = Analyze(m, characters.Aggregate(m, characters.DefaultOptions()), DefaultOptions())
	require.Equal(t, before, m)
}

func TestWordBoundaries(t *testing.T) {
	m, _ := script.Parse("INT. LAB - DAY\n\nShe is scared of the firefly and the bookshelf.\n")
	r := Analyze(m, nil, DefaultOptions())
	require.Empty(t, r.Props.Details)
	require.Empty(t, r.SpecialEffects.Details)
}
