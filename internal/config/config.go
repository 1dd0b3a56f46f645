/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration from YAML, applies environment
// overrides and keeps the describer API key in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"cinevision/internal/analysis"
	"cinevision/internal/budget"
	"cinevision/internal/characters"
	"cinevision/internal/log"
	"cinevision/internal/production"
	"cinevision/internal/storyboard"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	Analysis      AnalysisConfig   `yaml:"analysis"`
	Storyboard    StoryboardConfig `yaml:"storyboard"`
	Server        ServerConfig     `yaml:"server"`
	Logging       LoggingConfig    `yaml:"logging"`
}

type AnalysisConfig struct {
	ScenesPerDay        int `yaml:"scenes_per_day"`
	SampleLines         int `yaml:"sample_lines"`
	SupportingThreshold int `yaml:"supporting_threshold"`
	CastDays            int `yaml:"cast_days"`
	EquipmentDays       int `yaml:"equipment_days"`
	Workers             int `yaml:"workers"`
}

type StoryboardConfig struct {
	Model             string  `yaml:"model"`
	TimeoutMs         int     `yaml:"timeout_ms"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Workers           int     `yaml:"workers"`
	// The API key is not stored on disk; it lives in the OS keychain.
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Analysis: AnalysisConfig{
			ScenesPerDay: 5, SampleLines: 3, SupportingThreshold: 10,
			CastDays: 5, EquipmentDays: 5, Workers: 4,
		},
		Storyboard: StoryboardConfig{
			Model: storyboard.DefaultModel, TimeoutMs: 30000, MaxRetries: 2,
			RequestsPerSecond: 2, Workers: 2,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile          = "CV_CONFIG"
	EnvScenesPerDay        = "CV_SCENES_PER_DAY"
	EnvAnalysisWorkers     = "CV_ANALYSIS_WORKERS"
	EnvStoryboardModel     = "CV_STORYBOARD_MODEL"
	EnvStoryboardTimeoutMs = "CV_STORYBOARD_TIMEOUT_MS"
	EnvStoryboardRetries   = "CV_STORYBOARD_MAX_RETRIES"
	EnvStoryboardRPS       = "CV_STORYBOARD_RPS"
	EnvServerAddr          = "CV_SERVER_ADDR"
	EnvLogLevel            = "CV_LOG_LEVEL"
	EnvLogFormat           = "CV_LOG_FORMAT"
	EnvLogSource           = "CV_LOG_SOURCE"
	EnvLogFile             = "CV_LOG_FILE"
	// EnvAPIKey wins over the keyring.
	EnvAPIKey = "ANTHROPIC_API_KEY"
)

// Service/keys for OS keyring.
const (
	keyringService = "cinevision"
	keyringAPIKey  = "anthropic_api_key"
)

// TokenStore abstracts the keyring so tests can swap it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the config file path: $CV_CONFIG if set, else the per-user location.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "CineVision")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CineVision")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "cinevision")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "cinevision")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// The API key is returned separately and never kept in the struct.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			log.WithComponent("config").Warn("ignoring unreadable config file", "path", path, "err", err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	key, err := APIKey()
	if err != nil {
		log.WithComponent("config").Debug("api key lookup failed", "err", err)
	}
	return cfg, key, nil
}

// LoadFile reads path strictly: a missing or malformed file is an error.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fileCfg AppConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	mergeInto(&cfg, &fileCfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML and persists apiKey into the OS keyring (if non-empty).
func Save(cfg AppConfig, apiKey string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if apiKey != "" {
		if err := tokenStore.Set(keyringService, keyringAPIKey, apiKey); err != nil {
			return fmt.Errorf("store api key: %w", err)
		}
	}
	return nil
}

// APIKey returns the describer API key: $ANTHROPIC_API_KEY, else the keyring entry.
// A missing keyring entry is not an error.
func APIKey() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		return v, nil
	}
	v, err := tokenStore.Get(keyringService, keyringAPIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// DeleteAPIKey removes the stored key.
func DeleteAPIKey() error {
	err := tokenStore.Delete(keyringService, keyringAPIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	mergeInt(&dst.Analysis.ScenesPerDay, src.Analysis.ScenesPerDay)
	mergeInt(&dst.Analysis.SampleLines, src.Analysis.SampleLines)
	mergeInt(&dst.Analysis.SupportingThreshold, src.Analysis.SupportingThreshold)
	mergeInt(&dst.Analysis.CastDays, src.Analysis.CastDays)
	mergeInt(&dst.Analysis.EquipmentDays, src.Analysis.EquipmentDays)
	mergeInt(&dst.Analysis.Workers, src.Analysis.Workers)

	if strings.TrimSpace(src.Storyboard.Model) != "" {
		dst.Storyboard.Model = strings.TrimSpace(src.Storyboard.Model)
	}
	mergeInt(&dst.Storyboard.TimeoutMs, src.Storyboard.TimeoutMs)
	mergeInt(&dst.Storyboard.MaxRetries, src.Storyboard.MaxRetries)
	mergeInt(&dst.Storyboard.Workers, src.Storyboard.Workers)
	if src.Storyboard.RequestsPerSecond > 0 {
		dst.Storyboard.RequestsPerSecond = src.Storyboard.RequestsPerSecond
	}
	if strings.TrimSpace(src.Server.Addr) != "" {
		dst.Server.Addr = strings.TrimSpace(src.Server.Addr)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	envInt(EnvScenesPerDay, &cfg.Analysis.ScenesPerDay)
	envInt(EnvAnalysisWorkers, &cfg.Analysis.Workers)
	if v := strings.TrimSpace(os.Getenv(EnvStoryboardModel)); v != "" {
		cfg.Storyboard.Model = v
	}
	envInt(EnvStoryboardTimeoutMs, &cfg.Storyboard.TimeoutMs)
	envInt(EnvStoryboardRetries, &cfg.Storyboard.MaxRetries)
	if v := strings.TrimSpace(os.Getenv(EnvStoryboardRPS)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Storyboard.RequestsPerSecond = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envInt(name string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			*dst = n
		}
	}
}

var envKeys = map[string]string{
	"analysis.scenes_per_day":        EnvScenesPerDay,
	"analysis.workers":               EnvAnalysisWorkers,
	"storyboard.model":               EnvStoryboardModel,
	"storyboard.timeout_ms":          EnvStoryboardTimeoutMs,
	"storyboard.max_retries":         EnvStoryboardRetries,
	"storyboard.requests_per_second": EnvStoryboardRPS,
	"server.addr":                    EnvServerAddr,
	"logging.level":                  EnvLogLevel,
	"logging.format":                 EnvLogFormat,
	"logging.source":                 EnvLogSource,
	"logging.file":                   EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// AnalysisOptions converts the analysis section for the pipeline.
func (c AppConfig) AnalysisOptions() analysis.Config {
	a := c.Analysis
	return analysis.Config{
		Characters: characters.Options{SampleLines: a.SampleLines, SupportingThreshold: a.SupportingThreshold},
		Budget:     budget.Options{CastDays: a.CastDays, EquipmentDays: a.EquipmentDays, LocationDays: budget.DefaultOptions().LocationDays},
		Production: production.Options{ScenesPerDay: a.ScenesPerDay},
		Workers:    a.Workers,
	}
}

// RunnerOptions converts the storyboard section for the describer runner.
func (c AppConfig) RunnerOptions() storyboard.RunnerConfig {
	s := c.Storyboard
	return storyboard.RunnerConfig{
		Timeout:           time.Duration(s.TimeoutMs) * time.Millisecond,
		MaxRetries:        s.MaxRetries,
		RequestsPerSecond: s.RequestsPerSecond,
		Workers:           s.Workers,
	}
}

// LogOptions converts the logging section for log.Init.
func (c AppConfig) LogOptions() log.Options {
	return log.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}
