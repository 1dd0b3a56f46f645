/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storyboard

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"cinevision/internal/log"
)

// Frame is the outcome for one scene. Err is set when the scene could not be described;
// Prompt is always filled for valid records.
type Frame struct {
	SceneIndex  int    `json:"scene_index"`
	Prompt      string `json:"prompt"`
	Description string `json:"description,omitempty"`
	Attempts    int    `json:"attempts"`
	Err         error  `json:"-"`
	Error       string `json:"error,omitempty"`
}

// Progress is reported after each scene finishes.
type Progress struct {
	Done       int     `json:"done"`
	Total      int     `json:"total"`
	SceneIndex int     `json:"scene_index"`
	Percent    float64 `json:"progress"`
	Failed     bool    `json:"failed"`
}

type RunnerConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	Workers           int
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{Timeout: 30 * time.Second, MaxRetries: 2, RequestsPerSecond: 2, Workers: 2}
}

// Runner calls a Describer for many scenes.
type Runner struct {
	describer Describer
	cfg       RunnerConfig
	limiter   *rate.Limiter
	// backoff returns the wait before retry number attempt (1-based).
	backoff  func(attempt int) time.Duration
	progress func(Progress)
}

type RunnerOption func(*Runner)

// WithProgress registers a callback invoked after every scene, never concurrently.
func WithProgress(fn func(Progress)) RunnerOption { return func(r *Runner) { r.progress = fn } }

// WithBackoff replaces the retry delay schedule.
func WithBackoff(fn func(attempt int) time.Duration) RunnerOption {
	return func(r *Runner) { r.backoff = fn }
}

// NewRunner creates a runner. A nil describer yields prompt-only frames.
func NewRunner(d Describer, cfg RunnerConfig, opts ...RunnerOption) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	r := &Runner{describer: d, cfg: cfg, limiter: lim, backoff: backoffDelay}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run describes every record and returns frames in record order.
func (r *Runner) Run(ctx context.Context, recs []SceneRecord) []Frame {
	l := log.WithOperation(log.WithComponent("storyboard"), "run")
	frames := make([]Frame, len(recs))
	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	report := func(i int) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if r.progress != nil {
			r.progress(Progress{
				Done: done, Total: len(recs), SceneIndex: recs[i].SceneIndex,
				Percent: float64(done) / float64(len(recs)) * 100, Failed: frames[i].Err != nil,
			})
		}
	}

	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				frames[i] = r.describe(ctx, recs[i])
				if frames[i].Err != nil {
					l.WarnContext(ctx, "scene not described", slog.Int("scene", recs[i].SceneIndex), slog.Any("err", frames[i].Err))
				}
				report(i)
			}
		}()
	}
	for i := range recs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return frames
}

func (r *Runner) describe(ctx context.Context, rec SceneRecord) Frame {
	f := Frame{SceneIndex: rec.SceneIndex}
	if err := Validate(rec); err != nil {
		return f.fail(err)
	}
	f.Prompt = Prompt(rec)
	if r.describer == nil {
		return f
	}
	for attempt := 1; ; attempt++ {
		f.Attempts = attempt
		if err := r.limiter.Wait(ctx); err != nil {
			return f.fail(err)
		}
		actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		desc, err := r.describer.Describe(actx, rec, f.Prompt)
		cancel()
		if err == nil {
			f.Description = desc
			return f
		}
		if ctx.Err() != nil || attempt > r.cfg.MaxRetries || !retryable(err) {
			return f.fail(err)
		}
		select {
		case <-ctx.Done():
			return f.fail(ctx.Err())
		case <-time.After(r.backoff(attempt)):
		}
	}
}

func (f Frame) fail(err error) Frame {
	f.Err = err
	f.Error = err.Error()
	return f
}

var statusCodeRe = regexp.MustCompile(`(?:status(?:\s+code)?[:=\s]+)(\d{3})`)

// retryable reports whether err looks transient: timeouts, rate limits and server errors.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	if m := statusCodeRe.FindStringSubmatch(msg); len(m) == 2 {
		return m[1] == "429" || strings.HasPrefix(m[1], "5")
	}
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "server error") || strings.Contains(msg, "overloaded")
}

func backoffDelay(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 1 * time.Second
	case 2:
		return 2 * time.Second
	default:
		return 4 * time.Second
	}
}
