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
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cinevision/internal/config"
	"cinevision/internal/crash"
	applog "cinevision/internal/log"
)

func main() {
	// .env first so it can feed both config overrides and the API key
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring .env", slog.Any("err", err))
	}
	cfg, apiKey, err := config.Load()
	applog.Init(cfg.LogOptions())
	l := applog.WithComponent("cli")
	if err != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	defer crash.Recover(nil, "")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	l.Debug("start", slog.Int("args", len(os.Args)))
	app := &cli{cfg: cfg, apiKey: apiKey, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	code := app.run(ctx, os.Args[1:])
	cancel()
	if code != 0 {
		os.Exit(code)
	}
}
