/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package analysis parses a screenplay once and runs the independent classifiers
// against the resulting model concurrently. A classifier that panics is reported as
// a Failure and the others still complete.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cinevision/internal/budget"
	"cinevision/internal/camera"
	"cinevision/internal/characters"
	"cinevision/internal/log"
	"cinevision/internal/production"
	"cinevision/internal/script"
)

// Stage names one classifier of the pipeline.
type Stage string

const (
	StageCharacters Stage = "characters"
	StageBudget     Stage = "budget"
	StageCamera     Stage = "camera"
	StageProduction Stage = "production"
)

// AllStages lists the stages in report order.
var AllStages = []Stage{StageCharacters, StageBudget, StageCamera, StageProduction}

// ParseStage parses a stage name.
func ParseStage(s string) (Stage, error) {
	for _, st := range AllStages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown analysis stage %q", s)
}

type Config struct {
	Characters characters.Options
	Budget     budget.Options
	Production production.Options
	// Workers bounds how many classifiers run at once.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		Characters: characters.DefaultOptions(),
		Budget:     budget.DefaultOptions(),
		Production: production.DefaultOptions(),
		Workers:    4,
	}
}

// Failure reports a stage that did not produce its report.
type Failure struct {
	Stage Stage `json:"stage"`
	Err   error `json:"-"`
	// Message mirrors Err for serialization.
	Message string `json:"error"`
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Stage, f.Err) }
func (f Failure) Unwrap() error { return f.Err }

// Result is the outcome of one analysis run. Reports of failed or skipped stages are nil.
type Result struct {
	RunID       string             `json:"run_id"`
	Model       *script.Model      `json:"model"`
	Diagnostics []script.Error     `json:"diagnostics"`
	Characters  characters.Roster  `json:"characters,omitempty"`
	Budget      *budget.Report     `json:"budget,omitempty"`
	Camera      *camera.Report     `json:"camera,omitempty"`
	Production  *production.Report `json:"production,omitempty"`
	Failures    []Failure          `json:"failures,omitempty"`
	ElapsedMS   int64              `json:"elapsed_ms"`
}

// Partial reports whether any stage failed.
func (r *Result) Partial() bool { return len(r.Failures) > 0 }

// Input is what a stage reads. Stages must not modify it.
type Input struct {
	Model  *script.Model
	Roster characters.Roster
}

type stageFunc func(cfg Config, in Input, out *Result)

func defaultStages() map[Stage]stageFunc {
	return map[Stage]stageFunc{
		StageCharacters: func(cfg Config, in Input, out *Result) {
			out.Characters = characters.Aggregate(in.Model, cfg.Characters)
		},
		StageBudget: func(cfg Config, in Input, out *Result) {
			r := budget.Analyze(in.Model, in.Roster, cfg.Budget)
			out.Budget = &r
		},
		StageCamera: func(_ Config, in Input, out *Result) {
			r := camera.Analyze(in.Model)
			out.Camera = &r
		},
		StageProduction: func(cfg Config, in Input, out *Result) {
			r := production.Analyze(in.Model, in.Roster, cfg.Production)
			out.Production = &r
		},
	}
}

type Option func(*Analyzer)

// WithMetrics records pipeline metrics into m.
func WithMetrics(m *Metrics) Option { return func(a *Analyzer) { a.metrics = m } }

// Analyzer runs the pipeline. It is safe for concurrent use.
type Analyzer struct {
	cfg     Config
	metrics *Metrics
	stages  map[Stage]stageFunc
	newID   func() string
}

func New(cfg Config, opts ...Option) *Analyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	a := &Analyzer{cfg: cfg, stages: defaultStages(), newID: func() string { return uuid.NewString() }}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Parse runs only the parser and records parse metrics.
func (a *Analyzer) Parse(text string) (*script.Model, []script.Error) {
	m, diags := script.Parse(text)
	a.metrics.observeScenes(len(m.Scenes))
	for _, d := range diags {
		a.metrics.incDiagnostic(d.Kind.String())
	}
	return m, diags
}

// Analyze parses text and runs the requested stages (all when none are given).
// The returned error is only set when ctx is done before the run completes.
func (a *Analyzer) Analyze(ctx context.Context, text string, only ...Stage) (*Result, error) {
	start := time.Now()
	runID := a.newID()
	ctx = log.ContextWithRunID(ctx, runID)
	l := log.WithOperation(log.WithComponent("analysis"), "analyze")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, diags := a.Parse(text)
	if diags == nil {
		diags = []script.Error{}
	}
	res := &Result{RunID: runID, Model: m, Diagnostics: diags}
	l.InfoContext(ctx, "script parsed", slog.Int("scenes", len(m.Scenes)), slog.Int("diagnostics", len(diags)))

	if err := a.run(ctx, res, only); err != nil {
		return nil, err
	}
	res.ElapsedMS = time.Since(start).Milliseconds()

	status := StatusComplete
	if res.Partial() {
		status = StatusPartial
	}
	a.metrics.incRun(status)
	l.InfoContext(ctx, "analysis finished", slog.String("status", status), slog.Int("failures", len(res.Failures)), slog.Int64("elapsed_ms", res.ElapsedMS))
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, res *Result, only []Stage) error {
	want := map[Stage]bool{}
	for _, s := range only {
		want[s] = true
	}
	selected := func(s Stage) bool { return len(only) == 0 || want[s] }

	var mu sync.Mutex
	fail := func(f Failure) {
		mu.Lock()
		res.Failures = append(res.Failures, f)
		mu.Unlock()
	}

	// The roster feeds budget and production, so it is built before the fan-out.
	needRoster := selected(StageCharacters) || selected(StageBudget) || selected(StageProduction)
	var roster characters.Roster
	if needRoster {
		a.exec(ctx, StageCharacters, Input{Model: res.Model}, res, fail)
		roster = res.Characters
		if !selected(StageCharacters) {
			res.Characters = nil
		}
	}
	in := Input{Model: res.Model, Roster: roster}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	// Each stage writes only its own field of its private Result.
	partials := map[Stage]*Result{}
	for _, st := range []Stage{StageBudget, StageCamera, StageProduction} {
		if !selected(st) {
			continue
		}
		st := st
		out := &Result{}
		partials[st] = out
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.exec(gctx, st, in, out, fail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if p := partials[StageBudget]; p != nil {
		res.Budget = p.Budget
	}
	if p := partials[StageCamera]; p != nil {
		res.Camera = p.Camera
	}
	if p := partials[StageProduction]; p != nil {
		res.Production = p.Production
	}

	rank := map[Stage]int{}
	for i, s := range AllStages {
		rank[s] = i
	}
	sort.SliceStable(res.Failures, func(i, j int) bool { return rank[res.Failures[i].Stage] < rank[res.Failures[j].Stage] })
	return nil
}

// exec runs one stage and turns a panic into a Failure.
func (a *Analyzer) exec(ctx context.Context, st Stage, in Input, out *Result, fail func(Failure)) {
	l := log.WithOperation(log.WithComponent("analysis"), string(st))
	fn, ok := a.stages[st]
	if !ok {
		return
	}
	start := time.Now()
	defer func() {
		a.metrics.observeStage(st, time.Since(start))
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			l.ErrorContext(ctx, "stage failed", slog.Any("err", err), slog.String("stack", string(debug.Stack())))
			a.metrics.incStageFailure(st)
			fail(Failure{Stage: st, Err: err, Message: err.Error()})
		}
	}()
	l.DebugContext(ctx, "stage started")
	fn(a.cfg, in, out)
	l.DebugContext(ctx, "stage finished", slog.Duration("took", time.Since(start)))
}
