/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package production suggests a shooting schedule, crew, logistics and safety measures for a parsed script.
package production

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cinevision/internal/characters"
	"cinevision/internal/script"
)

type Options struct {
	ScenesPerDay int
}

func DefaultOptions() Options { return Options{ScenesPerDay: 5} }

type Grouping struct {
	Location     string `json:"location,omitempty"`
	Time         string `json:"time,omitempty"`
	SceneNumbers []int  `json:"scene_numbers"`
	Suggestion   string `json:"suggestion"`
}

type Scheduling struct {
	EstimatedDays      int        `json:"estimated_days"`
	SceneGroupings     []Grouping `json:"scene_groupings"`
	LocationGroupings  []Grouping `json:"location_groupings"`
	TimeOfDayGroupings []Grouping `json:"time_of_day_groupings"`
	ShootingOrder      []int      `json:"shooting_order"`
}

type Department struct {
	Name     string   `json:"name"`
	CoreCrew []string `json:"core_crew"`
	Required bool     `json:"required"`
}

type SpecialCrew struct {
	Role   string `json:"role"`
	Reason string `json:"reason"`
}

type CrewRequirements struct {
	Departments []Department  `json:"departments"`
	SpecialCrew []SpecialCrew `json:"special_crew"`
}

type LocationConsideration struct {
	Location      string `json:"location"`
	SceneIndex    int    `json:"scene_index"`
	Consideration string `json:"consideration"`
	Suggestion    string `json:"suggestion"`
}

type EquipmentLogistic struct {
	Type        string `json:"type"`
	Requirement string `json:"requirement"`
	Suggestion  string `json:"suggestion"`
}

type TalentLogistic struct {
	Character    string          `json:"character"`
	RoleTier     characters.Tier `json:"role_tier"`
	SceneNumbers []int           `json:"scene_numbers"`
	Suggestion   string          `json:"suggestion"`
}

type Logistics struct {
	LocationConsiderations []LocationConsideration `json:"location_considerations"`
	EquipmentLogistics     []EquipmentLogistic     `json:"equipment_logistics"`
	TalentLogistics        []TalentLogistic        `json:"talent_logistics"`
}

type Safety struct {
	Type          string `json:"type"`
	Consideration string `json:"consideration"`
	Priority      string `json:"priority"`
}

type Challenge struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

type Optimization struct {
	Category   string `json:"category"`
	Suggestion string `json:"suggestion"`
	Benefit    string `json:"benefit"`
}

type Report struct {
	Scheduling              Scheduling       `json:"scheduling"`
	CrewRequirements        CrewRequirements `json:"crew_requirements"`
	Logistics               Logistics        `json:"logistics"`
	SafetyConsiderations    []Safety         `json:"safety_considerations"`
	ProductionChallenges    []Challenge      `json:"production_challenges"`
	OptimizationSuggestions []Optimization   `json:"optimization_suggestions"`
}

// EstimateDays returns max(round(scenes/perDay), 1) with halves rounded to even.
func EstimateDays(scenes, perDay int) int {
	if perDay <= 0 {
		perDay = DefaultOptions().ScenesPerDay
	}
	d := int(math.RoundToEven(float64(scenes) / float64(perDay)))
	if d < 1 {
		return 1
	}
	return d
}

var departments = []Department{
	{Name: "Camera", CoreCrew: []string{"DP", "Camera Operator", "1st AC", "2nd AC"}, Required: true},
	{Name: "Lighting", CoreCrew: []string{"Gaffer", "Best Boy", "Electricians"}, Required: true},
	{Name: "Sound", CoreCrew: []string{"Sound Mixer", "Boom Operator"}, Required: true},
	{Name: "Art", CoreCrew: []string{"Production Designer", "Art Director", "Set Decorator"}, Required: true},
}

type rule[T any] struct {
	re  *regexp.Regexp
	out T
}

// Patterns match at word starts.
var specialCrewRules = []rule[SpecialCrew]{
	{regexp.MustCompile(`\b(fight|explosion|chase|stunt|fall)`), SpecialCrew{"Stunt Coordinator", "Action sequences detected"}},
	{regexp.MustCompile(`\b(effect|cgi|vfx|explosion|fire|rain)`), SpecialCrew{"Special Effects Supervisor", "Special effects required"}},
	{regexp.MustCompile(`\b(century|centuries|period|historical|eras?\b|ancient|medieval)`), SpecialCrew{"Historical Consultant", "Period-specific content detected"}},
}

var safetyRules = []rule[Safety]{
	{regexp.MustCompile(`\b(fight|combat)`), Safety{"Safety Personnel", "Combat safety coordinator required", "High"}},
	{regexp.MustCompile(`\b(fire|explosion)`), Safety{"Safety Personnel", "Fire safety officer and permits required", "High"}},
	{regexp.MustCompile(`\b(water|underwater|swimming)`), Safety{"Safety Personnel", "Water safety team required", "High"}},
	{regexp.MustCompile(`\b(height|roof|cliff)`), Safety{"Safety Personnel", "Height safety equipment and coordinator required", "High"}},
	{regexp.MustCompile(`\b(vehicle|car chase)`), Safety{"Safety Personnel", "Vehicle safety coordinator required", "High"}},
}

var challengeRules = []rule[Challenge]{
	{regexp.MustCompile(`\b(crowd|extras|background)`), Challenge{"Crowd Management", "Scenes requiring large number of extras", "Consider hiring crowd coordinator and additional ADs"}},
	{regexp.MustCompile(`\b(rain|snow|storm|sunny|weather)`), Challenge{"Weather Dependency", "Scenes requiring specific weather conditions", "Plan for weather contingencies and consider VFX alternatives"}},
	{regexp.MustCompile(`\b(restaurant|hospital|school|public)`), Challenge{"Location Permissions", "Scenes in complex or public locations", "Start location scouting and permitting process early"}},
}

func matchRules[T any](rules []rule[T], text string) []T {
	out := []T{}
	for _, r := range rules {
		if r.re.MatchString(text) {
			out = append(out, r.out)
		}
	}
	return out
}

// LocationLabel names a scene's location for grouping; the synthetic scene has none.
func LocationLabel(s script.Scene) string {
	if s.LocationName == "" {
		return "UNKNOWN LOCATION"
	}
	return s.LocationName
}

// Analyze builds the production report. It reads m and roster and never modifies them.
func Analyze(m *script.Model, roster characters.Roster, opts Options) Report {
	if opts.ScenesPerDay <= 0 {
		opts.ScenesPerDay = DefaultOptions().ScenesPerDay
	}
	var text strings.Builder
	for _, s := range m.Scenes {
		text.WriteString(strings.ToLower(s.Render()))
		text.WriteString("\n")
	}
	corpus := text.String()

	r := Report{
		Scheduling:       schedule(m, opts),
		CrewRequirements: CrewRequirements{Departments: append([]Department(nil), departments...), SpecialCrew: matchRules(specialCrewRules, corpus)},
		Logistics:        logistics(m, roster),
	}

	r.SafetyConsiderations = matchRules(safetyRules, corpus)
	for _, s := range m.Scenes {
		if s.TimeOfDay == script.Night {
			r.SafetyConsiderations = append(r.SafetyConsiderations, Safety{"Night Shooting", "Additional lighting and safety personnel for night shoots", "Medium"})
			break
		}
	}
	r.ProductionChallenges = matchRules(challengeRules, corpus)
	r.OptimizationSuggestions = optimize(r, m)
	return r
}

type group struct {
	key    string
	loc    string
	time   script.TimeOfDay
	scenes []int
}

// groups buckets scene indices by key in first-appearance order.
func groups(m *script.Model, key func(script.Scene) string) []*group {
	var out []*group
	byKey := map[string]*group{}
	for _, s := range m.Scenes {
		k := key(s)
		g, ok := byKey[k]
		if !ok {
			g = &group{key: k, loc: LocationLabel(s), time: s.TimeOfDay}
			byKey[k] = g
			out = append(out, g)
		}
		g.scenes = append(g.scenes, s.Index)
	}
	return out
}

func schedule(m *script.Model, opts Options) Scheduling {
	sc := Scheduling{
		EstimatedDays:      EstimateDays(len(m.Scenes), opts.ScenesPerDay),
		SceneGroupings:     []Grouping{},
		LocationGroupings:  []Grouping{},
		TimeOfDayGroupings: []Grouping{},
		ShootingOrder:      []int{},
	}

	byLoc := groups(m, LocationLabel)
	locRank := map[string]int{}
	for i, g := range byLoc {
		locRank[g.loc] = i
		sc.LocationGroupings = append(sc.LocationGroupings, Grouping{
			Location: g.loc, SceneNumbers: g.scenes,
			Suggestion: fmt.Sprintf("Shoot scenes %s together at %s", joinInts(g.scenes), g.loc),
		})
	}
	for _, g := range groups(m, func(s script.Scene) string { return s.TimeOfDay.Label() }) {
		sc.TimeOfDayGroupings = append(sc.TimeOfDayGroupings, Grouping{
			Time: g.time.Label(), SceneNumbers: g.scenes,
			Suggestion: fmt.Sprintf("Group scenes %s for %s shoots", joinInts(g.scenes), g.time),
		})
	}

	byBoth := groups(m, func(s script.Scene) string { return LocationLabel(s) + "\x00" + s.TimeOfDay.Label() })
	sort.SliceStable(byBoth, func(i, j int) bool { return locRank[byBoth[i].loc] < locRank[byBoth[j].loc] })
	for _, g := range byBoth {
		sc.SceneGroupings = append(sc.SceneGroupings, Grouping{
			Location: g.loc, Time: g.time.Label(), SceneNumbers: g.scenes,
			Suggestion: fmt.Sprintf("Shoot scenes %s at %s (%s)", joinInts(g.scenes), g.loc, g.time),
		})
		sc.ShootingOrder = append(sc.ShootingOrder, g.scenes...)
	}
	return sc
}

func logistics(m *script.Model, roster characters.Roster) Logistics {
	lg := Logistics{
		LocationConsiderations: []LocationConsideration{},
		EquipmentLogistics:     []EquipmentLogistic{},
		TalentLogistics:        []TalentLogistic{},
	}
	unique := map[string]bool{}
	for _, s := range m.Scenes {
		loc := LocationLabel(s)
		unique[loc] = true
		if s.LocationKind == script.Exterior || s.LocationKind == script.Both {
			lg.LocationConsiderations = append(lg.LocationConsiderations, LocationConsideration{
				Location: loc, SceneIndex: s.Index,
				Consideration: "Weather contingency plan needed for exterior location",
				Suggestion:    "Have backup indoor location or weather coverage insurance",
			})
		}
		if s.TimeOfDay == script.Dawn || s.TimeOfDay == script.Dusk {
			lg.LocationConsiderations = append(lg.LocationConsiderations, LocationConsideration{
				Location: loc, SceneIndex: s.Index,
				Consideration: fmt.Sprintf("Limited shooting time for %s scene", s.TimeOfDay),
				Suggestion:    "Schedule minimal setups during magic hour",
			})
		}
	}
	if len(unique) > 1 {
		lg.EquipmentLogistics = append(lg.EquipmentLogistics, EquipmentLogistic{
			Type:        "Transportation",
			Requirement: "Equipment trucks needed for multiple locations",
			Suggestion:  "Schedule locations to minimize company moves",
		})
	}
	for _, c := range roster.Principals() {
		lg.TalentLogistics = append(lg.TalentLogistics, TalentLogistic{
			Character: c.Name, RoleTier: c.RoleTier, SceneNumbers: c.SceneIndices,
			Suggestion: fmt.Sprintf("Block-schedule %s's %d scene(s) to limit talent days", c.Name, len(c.SceneIndices)),
		})
	}
	return lg
}

func optimize(r Report, m *script.Model) []Optimization {
	out := []Optimization{}
	if len(r.Scheduling.LocationGroupings) > 0 {
		out = append(out, Optimization{"Scheduling", "Group scenes by location to minimize company moves", "Reduces production time and transportation costs"})
	}
	for _, s := range m.Scenes {
		if s.TimeOfDay == script.Dawn || s.TimeOfDay == script.Dusk {
			out = append(out, Optimization{"Timing", "Schedule magic hour scenes on separate days", "Maximizes limited natural light windows"})
			break
		}
	}
	if len(r.CrewRequirements.SpecialCrew) > 0 {
		out = append(out, Optimization{"Crew Planning", "Schedule scenes requiring special crew members together", "Minimizes specialty crew hiring days"})
	}
	return out
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
