/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package httpapi exposes the analysis pipeline over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cinevision/internal/analysis"
	"cinevision/internal/log"
	"cinevision/internal/storyboard"
)

// DefaultMaxBodyBytes caps request bodies; screenplays are text.
const DefaultMaxBodyBytes = 4 << 20

// Server wires the analyzer, the optional storyboard describer and metrics into a gin engine.
type Server struct {
	analyzer  *analysis.Analyzer
	describer storyboard.Describer
	runnerCfg storyboard.RunnerConfig
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	maxBody   int64
}

type Option func(*Server)

// WithDescriber enables storyboard descriptions; without it storyboard frames carry prompts only.
func WithDescriber(d storyboard.Describer, cfg storyboard.RunnerConfig) Option {
	return func(s *Server) { s.describer, s.runnerCfg = d, cfg }
}

// WithRegistry serves /metrics from reg and registers the HTTP request counter on it.
func WithRegistry(reg *prometheus.Registry) Option { return func(s *Server) { s.registry = reg } }

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option { return func(s *Server) { s.maxBody = n } }

func New(a *analysis.Analyzer, opts ...Option) *Server {
	s := &Server{analyzer: a, runnerCfg: storyboard.DefaultRunnerConfig(), maxBody: DefaultMaxBodyBytes}
	for _, o := range opts {
		o(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinevision_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	if err := s.registry.Register(s.requests); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			s.requests = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return s
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.POST("/parse", s.parse)
		api.POST("/analyze", s.analyzeAll)
		api.POST("/analyze/characters", s.analyzeStage(analysis.StageCharacters))
		api.POST("/analyze/budget", s.analyzeStage(analysis.StageBudget))
		api.POST("/analyze/camera", s.analyzeStage(analysis.StageCamera))
		api.POST("/analyze/suggestions", s.analyzeStage(analysis.StageProduction))
		api.POST("/generate/storyboard", s.storyboard)
	}
	return r
}

// observe logs each request and counts it by route and status.
func (s *Server) observe() gin.HandlerFunc {
	l := log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		if c.Request.Body != nil && s.maxBody > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
		}
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		s.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		l.InfoContext(c.Request.Context(), "request",
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", code),
			slog.Duration("took", time.Since(start)))
	}
}
