/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package budget estimates production costs from a parsed script using fixed rate tables.
package budget

import (
	"regexp"
	"strings"

	"cinevision/internal/characters"
	"cinevision/internal/script"
)

// LineItem is one detail row of a category. Cost is the row total.
type LineItem struct {
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	CostPerDay   int    `json:"cost_per_day,omitempty"`
	Days         int    `json:"days,omitempty"`
	Cost         int    `json:"cost"`
	SceneIndices []int  `json:"scene_indices,omitempty"`
}

type Category struct {
	Details []LineItem `json:"details"`
	Total   int        `json:"total"`
}

func (c *Category) add(it LineItem) {
	c.Details = append(c.Details, it)
	c.Total += it.Cost
}

type Report struct {
	Cast           Category `json:"cast"`
	Locations      Category `json:"locations"`
	Props          Category `json:"props"`
	SpecialEffects Category `json:"special_effects"`
	Costumes       Category `json:"costumes"`
	Equipment      Category `json:"equipment"`
	PostProduction Category `json:"post_production"`
	Total          int      `json:"total"`
}

// Categories returns the categories in report order, keyed by their JSON name.
func (r Report) Categories() []NamedCategory {
	return []NamedCategory{
		{"cast", r.Cast},
		{"locations", r.Locations},
		{"props", r.Props},
		{"special_effects", r.SpecialEffects},
		{"costumes", r.Costumes},
		{"equipment", r.Equipment},
		{"post_production", r.PostProduction},
	}
}

type NamedCategory struct {
	Name string
	Category
}

type Options struct {
	CastDays      int
	EquipmentDays int
	LocationDays  int
}

func DefaultOptions() Options { return Options{CastDays: 5, EquipmentDays: 5, LocationDays: 1} }

// Importance buckets derived from dialogue counts.
const (
	Lead       = "lead"
	Supporting = "supporting"
	MinorRole  = "minor"
)

// Importance maps a dialogue count to a budget importance bucket.
func Importance(dialogueCount int) string {
	switch {
	case dialogueCount > 20:
		return Lead
	case dialogueCount > 10:
		return Supporting
	default:
		return MinorRole
	}
}

var (
	rePropWords   = regexp.MustCompile(`(?i)\b(holds|holding|picks up|carrying|puts down|using|uses|with a|wearing|gun|sword|phone|book|car|vehicle|weapon|computer|laptop)s?\b`)
	reEffectWords = regexp.MustCompile(`(?i)\b(explosion|fire|rain|storm|lightning|smoke|fog|snow|cgi|vfx|special effect|stunt|fight scene|chase scene)s?\b`)
)

type tier struct {
	words []string
	cost  int
}

var locationTiers = []tier{
	{[]string{"house", "apartment", "room"}, 1000},
	{[]string{"street", "park", "road"}, 2000},
	{[]string{"restaurant", "bar", "cafe"}, 3000},
	{[]string{"office", "building"}, 4000},
}

var propTiers = []tier{
	{[]string{"car", "vehicle"}, 1000},
	{[]string{"gun", "weapon"}, 500},
	{[]string{"computer", "laptop"}, 800},
}

var effectTiers = []tier{
	{[]string{"explosion", "fire"}, 5000},
	{[]string{"rain", "storm", "snow"}, 3000},
	{[]string{"fight scene", "chase scene"}, 4000},
}

func lookup(tiers []tier, s string, def int) int {
	s = strings.ToLower(s)
	for _, t := range tiers {
		for _, w := range t.words {
			if strings.Contains(s, w) {
				return t.cost
			}
		}
	}
	return def
}

func LocationCost(name string) int { return lookup(locationTiers, name, 2500) }
func PropCost(name string) int     { return lookup(propTiers, name, 200) }
func EffectCost(name string) int   { return lookup(effectTiers, name, 2000) }

var castRates = map[string]int{Lead: 1000, Supporting: 500, MinorRole: 200}
var costumeRates = map[string]int{Lead: 1000, Supporting: 500, MinorRole: 200}

var equipmentRates = []struct {
	name  string
	daily int
}{
	{"Camera Package", 2000},
	{"Lighting Package", 1500},
	{"Sound Equipment", 1000},
	{"Grip Package", 1000},
}

// Analyze builds the budget report. It reads m and roster and never modifies them.
func Analyze(m *script.Model, roster characters.Roster, opts Options) Report {
	def := DefaultOptions()
	if opts.CastDays <= 0 {
		opts.CastDays = def.CastDays
	}
	if opts.EquipmentDays <= 0 {
		opts.EquipmentDays = def.EquipmentDays
	}
	if opts.LocationDays <= 0 {
		opts.LocationDays = def.LocationDays
	}

	r := Report{}
	for _, c := range []*Category{&r.Cast, &r.Locations, &r.Props, &r.SpecialEffects, &r.Costumes, &r.Equipment, &r.PostProduction} {
		c.Details = []LineItem{}
	}

	locs := newIndex()
	props := newIndex()
	effects := newIndex()
	for _, s := range m.Scenes {
		if s.LocationName != "" {
			locs.add(s.LocationName, s.Index)
		}
		for _, text := range sceneTexts(s) {
			for _, mt := range rePropWords.FindAllStringSubmatch(text, -1) {
				props.add(strings.ToLower(mt[1]), s.Index)
			}
			for _, mt := range reEffectWords.FindAllStringSubmatch(text, -1) {
				effects.add(strings.ToLower(mt[1]), s.Index)
			}
		}
	}

	for _, name := range locs.keys {
		daily := LocationCost(name)
		r.Locations.add(LineItem{Name: name, CostPerDay: daily, Days: opts.LocationDays, Cost: daily * opts.LocationDays, SceneIndices: locs.scenes[name]})
	}
	for _, c := range roster {
		imp := Importance(c.DialogueCount)
		r.Cast.add(LineItem{Name: c.Name, Role: imp, CostPerDay: castRates[imp], Days: opts.CastDays, Cost: castRates[imp] * opts.CastDays})
		r.Costumes.add(LineItem{Name: c.Name, Role: imp, Cost: costumeRates[imp]})
	}
	for _, name := range props.keys {
		r.Props.add(LineItem{Name: name, Cost: PropCost(name), SceneIndices: props.scenes[name]})
	}
	for _, name := range effects.keys {
		r.SpecialEffects.add(LineItem{Name: name, Cost: EffectCost(name), SceneIndices: effects.scenes[name]})
	}
	for _, e := range equipmentRates {
		r.Equipment.add(LineItem{Name: e.name, CostPerDay: e.daily, Days: opts.EquipmentDays, Cost: e.daily * opts.EquipmentDays})
	}
	r.PostProduction.add(LineItem{Name: "Editing", Cost: 5000})
	r.PostProduction.add(LineItem{Name: "Color Grading", Cost: 3000})
	r.PostProduction.add(LineItem{Name: "Sound Mixing", Cost: 2000})
	r.PostProduction.add(LineItem{Name: "Visual Effects", Cost: len(effects.keys) * 1000})

	for _, c := range r.Categories() {
		r.Total += c.Total
	}
	return r
}

// sceneTexts lists the free text of a scene that may mention props or effects.
func sceneTexts(s script.Scene) []string {
	out := make([]string, 0, len(s.DescriptionLines)+len(s.DialogueTurns)+len(s.CameraCues))
	for _, d := range s.DescriptionLines {
		out = append(out, d.Text)
	}
	for _, d := range s.DialogueTurns {
		out = append(out, d.Text)
	}
	for _, c := range s.CameraCues {
		out = append(out, c.Text)
	}
	return out
}

// index is an insertion-ordered set of keys with the scenes each key appeared in.
type index struct {
	keys   []string
	scenes map[string][]int
}

func newIndex() *index { return &index{scenes: map[string][]int{}} }

func (ix *index) add(key string, scene int) {
	sc, ok := ix.scenes[key]
	if !ok {
		ix.keys = append(ix.keys, key)
	}
	if n := len(sc); n == 0 || sc[n-1] != scene {
		sc = append(sc, scene)
	}
	ix.scenes[key] = sc
}
