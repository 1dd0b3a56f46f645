/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cinevision/internal/analysis"
	"cinevision/internal/script"
	"cinevision/internal/storyboard"
	"cinevision/internal/version"
)

// scriptRequest is the body every analysis endpoint accepts.
type scriptRequest struct {
	ScriptText string `json:"scriptText"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const msgNoScript = "No script text provided"

// bindScript decodes the body and rejects blank scripts.
func bindScript(c *gin.Context) (string, bool) {
	var req scriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "script too large"})
			return "", false
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return "", false
	}
	if strings.TrimSpace(req.ScriptText) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgNoScript})
		return "", false
	}
	return req.ScriptText, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.String()})
}

func (s *Server) parse(c *gin.Context) {
	text, ok := bindScript(c)
	if !ok {
		return
	}
	m, diags := s.analyzer.Parse(text)
	if diags == nil {
		diags = []script.Error{}
	}
	c.JSON(http.StatusOK, gin.H{"model": m, "diagnostics": diags})
}

func (s *Server) analyzeAll(c *gin.Context) {
	text, ok := bindScript(c)
	if !ok {
		return
	}
	res, err := s.analyzer.Analyze(c.Request.Context(), text)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// analyzeStage runs a single classifier and returns only its report.
func (s *Server) analyzeStage(st analysis.Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		text, ok := bindScript(c)
		if !ok {
			return
		}
		res, err := s.analyzer.Analyze(c.Request.Context(), text, st)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
		for _, f := range res.Failures {
			if f.Stage == st {
				c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to analyze " + string(st) + ": " + f.Message})
				return
			}
		}
		switch st {
		case analysis.StageCharacters:
			c.JSON(http.StatusOK, gin.H{"characters": res.Characters})
		case analysis.StageBudget:
			c.JSON(http.StatusOK, res.Budget)
		case analysis.StageCamera:
			c.JSON(http.StatusOK, res.Camera)
		case analysis.StageProduction:
			c.JSON(http.StatusOK, res.Production)
		}
	}
}

// storyboard describes every scene; per-scene failures are reported in their frame.
func (s *Server) storyboard(c *gin.Context) {
	text, ok := bindScript(c)
	if !ok {
		return
	}
	res, err := s.analyzer.Analyze(c.Request.Context(), text, analysis.StageCamera)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	recs := storyboard.BuildRecords(res.Model, res.Camera)
	frames := storyboard.NewRunner(s.describer, s.runnerCfg).Run(c.Request.Context(), recs)
	failed := 0
	for _, f := range frames {
		if f.Err != nil {
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": res.RunID, "records": recs, "frames": frames, "failed": failed})
}
