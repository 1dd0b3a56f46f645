/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/yaml.v3"

	"cinevision/internal/analysis"
	"cinevision/internal/apiclient"
	"cinevision/internal/config"
	"cinevision/internal/crash"
	"cinevision/internal/export"
	"cinevision/internal/httpapi"
	applog "cinevision/internal/log"
	"cinevision/internal/storage"
	"cinevision/internal/storyboard"
	"cinevision/internal/version"
)

type cli struct {
	cfg    config.AppConfig
	apiKey string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, "CineVision: screenplay breakdown and production analysis")
	fmt.Fprintf(c.stderr, "Version: %s\n", version.String())
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "Usage:")
	fmt.Fprintln(c.stderr, "  cinevision version                               Show version")
	fmt.Fprintln(c.stderr, "  cinevision parse [-json] <script|->               Parse a screenplay and list its scenes")
	fmt.Fprintln(c.stderr, "  cinevision analyze [flags] <script|->             Run the analysis pipeline")
	fmt.Fprintln(c.stderr, "      -out <dir>  -stages characters,budget,...  -formats json,md,html,pdf  -preset web|print  -remote <url>")
	fmt.Fprintln(c.stderr, "  cinevision storyboard [-out <dir>] [-prompts-only] <script|->")
	fmt.Fprintln(c.stderr, "  cinevision serve [-addr :8080]                    Start the HTTP API")
	fmt.Fprintln(c.stderr, "  cinevision config show|path|set-key <key>|delete-key")
}

// run dispatches a subcommand and returns the process exit code.
func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		c.usage()
		return 2
	}
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(c.stdout, version.String())
		return 0
	case "parse":
		err = c.parse(args[1:])
	case "analyze":
		err = c.analyze(ctx, args[1:])
	case "storyboard":
		err = c.storyboard(ctx, args[1:])
	case "serve":
		err = c.serve(ctx, args[1:])
	case "config":
		err = c.config(args[1:])
	case "help", "-h", "--help":
		c.usage()
		return 0
	default:
		fmt.Fprintf(c.stderr, "unknown command %q\n", args[0])
		c.usage()
		return 2
	}
	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue):
		fmt.Fprintln(c.stderr, "Error:", err)
		c.usage()
		return 2
	default:
		applog.WithComponent("cli").Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Fprintln(c.stderr, "Error:", err)
		return 1
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func (c *cli) newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// readScript reads the single positional argument, "-" meaning stdin.
func (c *cli) readScript(fs *flag.FlagSet) (string, string, error) {
	if fs.NArg() != 1 {
		return "", "", usageError(fs.Name() + " requires exactly one <script> argument")
	}
	path := fs.Arg(0)
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(c.stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", path, fmt.Errorf("read script: %w", err)
	}
	return string(b), path, nil
}

func (c *cli) analyzer() *analysis.Analyzer {
	return analysis.New(c.cfg.AnalysisOptions())
}

func (c *cli) parse(args []string) error {
	fs := c.newFlags("parse")
	asJSON := fs.Bool("json", false, "print the scene model as JSON")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	text, _, err := c.readScript(fs)
	if err != nil {
		return err
	}
	m, diags := c.analyzer().Parse(text)
	if *asJSON {
		return writeJSON(c.stdout, map[string]any{"model": m, "diagnostics": diags})
	}
	for _, s := range m.Scenes {
		fmt.Fprintf(c.stdout, "%3d  %-40s  %-6s  %-8s  %d turns  %s\n",
			s.Index, s.Heading, s.TimeOfDay, s.Mood, len(s.DialogueTurns), strings.Join(s.CharactersPresent, ", "))
	}
	for _, d := range diags {
		fmt.Fprintf(c.stderr, "line %d: %s: %s\n", d.Line, d.Kind, d.Message)
	}
	return nil
}

func (c *cli) analyze(ctx context.Context, args []string) error {
	fs := c.newFlags("analyze")
	outDir := fs.String("out", "", "output directory (prints JSON to stdout when empty)")
	stages := fs.String("stages", "", "comma-separated stages to run (default all)")
	formats := fs.String("formats", "", "comma-separated export formats: json,md,html,pdf")
	preset := fs.String("preset", "", "export preset: web or print")
	remote := fs.String("remote", "", "base URL of a running cinevision server to analyze on")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	var only []analysis.Stage
	for _, s := range splitList(*stages) {
		st, err := analysis.ParseStage(s)
		if err != nil {
			return usageError(err.Error())
		}
		only = append(only, st)
	}
	text, path, err := c.readScript(fs)
	if err != nil {
		return err
	}

	var out *storage.OutputDir
	if *outDir != "" {
		if out, err = storage.Init(*outDir); err != nil {
			return err
		}
	}
	defer crash.Recover(out, path)

	var res *analysis.Result
	if *remote != "" {
		if len(only) > 0 {
			return usageError("-stages cannot be combined with -remote")
		}
		res, err = apiclient.NewClient(*remote, 0).Analyze(ctx, text)
	} else {
		res, err = c.analyzer().Analyze(ctx, text, only...)
	}
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		fmt.Fprintf(c.stderr, "warning: %s classifier failed: %s\n", f.Stage, f.Message)
	}
	if out == nil {
		return writeJSON(c.stdout, res)
	}

	base := baseName(path)
	written, err := export.BatchExport(out, res, export.BatchOptions{
		Preset:   export.PresetName(*preset),
		Formats:  splitList(*formats),
		BaseName: base,
	})
	for _, p := range written {
		fmt.Fprintln(c.stdout, p)
	}
	return err
}

func (c *cli) storyboard(ctx context.Context, args []string) error {
	fs := c.newFlags("storyboard")
	outDir := fs.String("out", "", "output directory (prints JSON to stdout when empty)")
	promptsOnly := fs.Bool("prompts-only", false, "build prompts without calling the describer")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	text, path, err := c.readScript(fs)
	if err != nil {
		return err
	}
	var out *storage.OutputDir
	if *outDir != "" {
		if out, err = storage.Init(*outDir); err != nil {
			return err
		}
	}
	defer crash.Recover(out, path)

	var d storyboard.Describer
	if !*promptsOnly {
		ad, err := storyboard.NewAnthropicDescriber(c.apiKey, c.cfg.Storyboard.Model)
		switch {
		case errors.Is(err, storyboard.ErrNoAPIKey):
			fmt.Fprintf(c.stderr, "no API key (set %s or run 'cinevision config set-key'); writing prompts only\n", config.EnvAPIKey)
		case err != nil:
			return err
		default:
			d = ad
		}
	}

	res, err := c.analyzer().Analyze(ctx, text, analysis.StageCamera)
	if err != nil {
		return err
	}
	recs := storyboard.BuildRecords(res.Model, res.Camera)
	progress := storyboard.WithProgress(func(p storyboard.Progress) {
		status := "ok"
		if p.Failed {
			status = "failed"
		}
		fmt.Fprintf(c.stderr, "[%3.0f%%] scene %d %s\n", p.Percent, p.SceneIndex, status)
	})
	frames := storyboard.NewRunner(d, c.cfg.RunnerOptions(), progress).Run(ctx, recs)

	doc := map[string]any{"run_id": res.RunID, "records": recs, "frames": frames}
	if out == nil {
		return writeJSON(c.stdout, doc)
	}
	name := filepath.Join(storage.ReportsDirName, baseName(path)+".storyboard.json")
	if err := out.WriteJSON(name, doc); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, out.Path(name))
	return nil
}

func (c *cli) serve(ctx context.Context, args []string) error {
	fs := c.newFlags("serve")
	addr := fs.String("addr", c.cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	l := applog.WithComponent("serve")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := analysis.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	a := analysis.New(c.cfg.AnalysisOptions(), analysis.WithMetrics(metrics))

	opts := []httpapi.Option{httpapi.WithRegistry(reg)}
	if d, err := storyboard.NewAnthropicDescriber(c.apiKey, c.cfg.Storyboard.Model); err == nil {
		opts = append(opts, httpapi.WithDescriber(d, c.cfg.RunnerOptions()))
	} else {
		l.Info("storyboard describer disabled", slog.Any("reason", err))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.New(a, opts...).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		l.Info("listening", slog.String("addr", *addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (c *cli) config(args []string) error {
	if len(args) == 0 {
		return usageError("config requires a subcommand")
	}
	switch args[0] {
	case "show":
		b, err := yaml.Marshal(c.cfg)
		if err != nil {
			return err
		}
		_, err = c.stdout.Write(b)
		for _, key := range []string{"analysis.scenes_per_day", "analysis.workers", "storyboard.model", "server.addr", "logging.level", "logging.format"} {
			if env, ok := config.EnvOverrideFor(key); ok {
				fmt.Fprintf(c.stdout, "# %s overridden by %s\n", key, env)
			}
		}
		return err
	case "path":
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, p)
		return nil
	case "set-key":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			return usageError("set-key requires <key>")
		}
		if err := config.Save(c.cfg, strings.TrimSpace(args[1])); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "API key stored in the OS keyring.")
		return nil
	case "delete-key":
		if err := config.DeleteAPIKey(); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "API key removed.")
		return nil
	default:
		return usageError("unknown config subcommand " + args[0])
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// baseName derives an output file stem from the script path.
func baseName(path string) string {
	if path == "" || path == "-" {
		return "script"
	}
	b := filepath.Base(path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}
