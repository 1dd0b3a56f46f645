/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"cinevision/internal/analysis"
	"cinevision/internal/config"
	"cinevision/internal/httpapi"
)

const screenplay = `INT. DINER - NIGHT

Rain streaks the window. MAYA waits, nervous.

MAYA
He's late.

EXT. PARKING LOT - NIGHT

LEO
Run!
`

func newCLI(stdin string) (*cli, *bytes.Buffer, *bytes.Buffer) {
	var out, errb bytes.Buffer
	return &cli{cfg: config.Defaults(), stdin: strings.NewReader(stdin), stdout: &out, stderr: &errb}, &out, &errb
}

func TestVersionAndUsage(t *testing.T) {
	c, out, _ := newCLI("")
	require.Equal(t, 0, c.run(context.Background(), []string{"version"}))
	require.NotEmpty(t, strings.TrimSpace(out.String()))

	c, _, errb := newCLI("")
	require.Equal(t, 2, c.run(context.Background(), []string{"frobnicate"}))
	require.Contains(t, errb.String(), "Usage:")

	c, _, _ = newCLI("")
	require.Equal(t, 2, c.run(context.Background(), nil))
}

func TestParseFromStdin(t *testing.T) {
	c, out, _ := newCLI(screenplay)
	require.Equal(t, 0, c.run(context.Background(), []string{"parse", "-"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "INT. DINER - NIGHT")
	require.Contains(t, lines[0], "tense")

	c, out, _ = newCLI(screenplay)
	require.Equal(t, 0, c.run(context.Background(), []string{"parse", "-json", "-"}))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.Contains(t, doc, "model")
}

func TestParseRequiresScript(t *testing.T) {
	c, _, errb := newCLI("")
	require.Equal(t, 2, c.run(context.Background(), []string{"parse"}))
	require.Contains(t, errb.String(), "exactly one <script>")

	c, _, _ = newCLI("")
	require.Equal(t, 1, c.run(context.Background(), []string{"parse", filepath.Join(t.TempDir(), "missing.txt")}))
}

func TestAnalyzeToStdout(t *testing.T) {
	c, out, _ := newCLI(screenplay)
	require.Equal(t, 0, c.run(context.Background(), []string{"analyze", "-stages", "characters,camera", "-"}))
	var res map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Contains(t, res, "characters")
	require.Contains(t, res, "camera")
	require.NotContains(t, res, "budget")

	c, _, errb := newCLI(screenplay)
	require.Equal(t, 2, c.run(context.Background(), []string{"analyze", "-stages", "lighting", "-"}))
	require.Contains(t, errb.String(), "lighting")
}

func TestAnalyzeWritesExports(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "pilot.txt")
	require.NoError(t, os.WriteFile(script, []byte(screenplay), 0o644))
	outDir := filepath.Join(dir, "out")

	c, out, _ := newCLI("")
	code := c.run(context.Background(), []string{"analyze", "-out", outDir, "-preset", "print", "-formats", "json,md", script})
	require.Equal(t, 0, code)
	for _, name := range []string{"pilot.json", "pilot.md"} {
		p := filepath.Join(outDir, "exports", "print", name)
		require.FileExists(t, p)
		require.Contains(t, out.String(), p)
	}
}

func TestStoryboardPromptsOnly(t *testing.T) {
	c, out, errb := newCLI(screenplay)
	require.Equal(t, 0, c.run(context.Background(), []string{"storyboard", "-prompts-only", "-"}))
	var doc struct {
		Frames []struct {
			SceneIndex int    `json:"scene_index"`
			Prompt     string `json:"prompt"`
		} `json:"frames"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.Len(t, doc.Frames, 2)
	require.True(t, strings.HasPrefix(doc.Frames[0].Prompt, "DINER, night."))
	require.Contains(t, errb.String(), "[100%]")
}

func TestStoryboardWithoutKeyFallsBackToPrompts(t *testing.T) {
	dir := t.TempDir()
	c, out, errb := newCLI(screenplay)
	require.Equal(t, 0, c.run(context.Background(), []string{"storyboard", "-out", dir, "-"}))
	require.Contains(t, errb.String(), "no API key")
	p := filepath.Join(dir, "reports", "script.storyboard.json")
	require.FileExists(t, p)
	require.Contains(t, out.String(), p)
}

func TestConfigShow(t *testing.T) {
	t.Setenv(config.EnvServerAddr, ":7070")
	c, out, _ := newCLI("")
	require.Equal(t, 0, c.run(context.Background(), []string{"config", "show"}))
	require.Contains(t, out.String(), "scenes_per_day: 5")
	require.Contains(t, out.String(), "server.addr overridden by CV_SERVER_ADDR")

	c, _, _ = newCLI("")
	require.Equal(t, 2, c.run(context.Background(), []string{"config", "bogus"}))
}

func TestBaseNameAndSplitList(t *testing.T) {
	require.Equal(t, "script", baseName("-"))
	require.Equal(t, "pilot", baseName("/tmp/pilot.fountain"))
	require.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	require.Nil(t, splitList(""))
}

func TestAnalyzeRemote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(httpapi.New(analysis.New(analysis.DefaultConfig())).Router())
	defer srv.Close()

	c, out, _ := newCLI(screenplay)
	require.Equal(t, 0, c.run(context.Background(), []string{"analyze", "-remote", srv.URL, "-"}))
	var res analysis.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Len(t, res.Model.Scenes, 2)
	require.NotEmpty(t, res.RunID)

	c, _, _ = newCLI(screenplay)
	require.Equal(t, 2, c.run(context.Background(), []string{"analyze", "-remote", srv.URL, "-stages", "budget", "-"}))
}
