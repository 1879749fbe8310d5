/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// The board always shows Crewe and refreshes on a fixed cadence.
const (
	StationCode     = "CRE"
	StationName     = "Crewe"
	RefreshInterval = 30 * time.Second
)

// DefaultDarwinURL is the OpenLDBWS SOAP endpoint.
const DefaultDarwinURL = "https://lite.realtime.nationalrail.co.uk/OpenLDBWS/ldb11.asmx"

// Config covers process level configuration read from .env, an optional
// YAML file, and environment variables.
type Config struct {
	Environment string
	ConfigFile  string

	// Darwin
	APIKey        string
	DarwinURL     string
	DarwinTimeout time.Duration

	// Fixed board identity, copied from the package constants.
	StationCode     string
	StationName     string
	RefreshInterval time.Duration

	// Column widths
	TimeWidth        int
	DestinationWidth int
	PlatformWidth    int
	StatusWidth      int
	StopsWidth       int

	TickerStartDelay  time.Duration
	TickerSpeed       time.Duration
	ServicesLimit     int
	DetailConcurrency int

	// Presentation
	Terminal        bool
	TitleColor      string
	ClockColor      string
	TextColor       string
	BackgroundColor string

	// HTTP API; port 0 disables it
	HTTPBind      string
	HTTPPort      int
	LogBufferSize int

	// Calling point cache; empty address disables it
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CallingPointsTTL time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads configuration, applies defaults, and validates the result.
// Precedence: environment, then .env, then the YAML file named by
// DEPBOARD_CONFIG_FILE, then defaults.
func Load() (*Config, error) {
	// Keys that only come from .env keep their original names silently.
	preset := processLegacyKeys()
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	e := env{}
	configFile := os.Getenv("DEPBOARD_CONFIG_FILE")
	if configFile != "" {
		file, err := readFile(configFile)
		if err != nil {
			return nil, err
		}
		e.file = file
	}

	cfg := &Config{
		Environment: e.getEnvAny([]string{"DEPBOARD_ENV"}, "production"),
		ConfigFile:  configFile,

		APIKey:        e.getEnvAny([]string{"DEPBOARD_API_KEY", "API_KEY"}, ""),
		DarwinURL:     e.getEnvAny([]string{"DEPBOARD_DARWIN_URL"}, DefaultDarwinURL),
		DarwinTimeout: e.getEnvDurationAny([]string{"DEPBOARD_DARWIN_TIMEOUT"}, 10*time.Second),

		StationCode:     StationCode,
		StationName:     StationName,
		RefreshInterval: RefreshInterval,

		TimeWidth:        e.getEnvIntAny([]string{"DEPBOARD_COLUMN_TIME_WIDTH", "COLUMN_TIME_WIDTH"}, 8),
		DestinationWidth: e.getEnvIntAny([]string{"DEPBOARD_COLUMN_DEST_WIDTH", "COLUMN_DEST_WIDTH"}, 30),
		PlatformWidth:    e.getEnvIntAny([]string{"DEPBOARD_COLUMN_PLATFORM_WIDTH", "COLUMN_PLATFORM_WIDTH"}, 8),
		StatusWidth:      e.getEnvIntAny([]string{"DEPBOARD_COLUMN_STATUS_WIDTH", "COLUMN_STATUS_WIDTH"}, 25),
		StopsWidth:       e.getEnvIntAny([]string{"DEPBOARD_COLUMN_STOPS_WIDTH", "COLUMN_STOPS_WIDTH"}, 40),

		TickerStartDelay:  time.Duration(e.getEnvIntAny([]string{"DEPBOARD_TICKER_START_DELAY", "TICKER_START_DELAY"}, 2000)) * time.Millisecond,
		TickerSpeed:       time.Duration(e.getEnvIntAny([]string{"DEPBOARD_TICKER_SPEED", "TICKER_SPEED"}, 200)) * time.Millisecond,
		ServicesLimit:     e.getEnvIntAny([]string{"DEPBOARD_SERVICES_LIMIT", "SERVICES_LIMIT"}, 10),
		DetailConcurrency: e.getEnvIntAny([]string{"DEPBOARD_DETAIL_CONCURRENCY"}, 4),

		Terminal:        e.getEnvBoolAny([]string{"DEPBOARD_TERMINAL"}, true),
		TitleColor:      e.getEnvAny([]string{"DEPBOARD_TITLE_COLOR", "TITLE_COLOR"}, "orange"),
		ClockColor:      e.getEnvAny([]string{"DEPBOARD_CLOCK_COLOR", "CLOCK_COLOR"}, "orange"),
		TextColor:       e.getEnvAny([]string{"DEPBOARD_TEXT_COLOR", "TEXT_COLOR"}, "orange"),
		BackgroundColor: e.getEnvAny([]string{"DEPBOARD_BACKGROUND_COLOR", "BACKGROUND_COLOR"}, "black"),

		HTTPBind:      e.getEnvAny([]string{"DEPBOARD_HTTP_BIND"}, "127.0.0.1"),
		HTTPPort:      e.getEnvIntAny([]string{"DEPBOARD_HTTP_PORT"}, 8080),
		LogBufferSize: e.getEnvIntAny([]string{"DEPBOARD_LOG_BUFFER_SIZE"}, 1000),

		RedisAddr:        e.getEnvAny([]string{"DEPBOARD_REDIS_ADDR"}, ""),
		RedisPassword:    e.getEnvAny([]string{"DEPBOARD_REDIS_PASSWORD"}, ""),
		RedisDB:          e.getEnvIntAny([]string{"DEPBOARD_REDIS_DB"}, 0),
		CallingPointsTTL: e.getEnvDurationAny([]string{"DEPBOARD_CALLING_POINTS_TTL"}, 2*time.Minute),

		TracingEnabled:    e.getEnvBoolAny([]string{"DEPBOARD_TRACING_ENABLED"}, false),
		OTLPEndpoint:      e.getEnvAny([]string{"DEPBOARD_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: e.getEnvFloatAny([]string{"DEPBOARD_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings(preset)

	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("DEPBOARD_API_KEY or API_KEY must be provided")
	}

	widths := map[string]int{
		"COLUMN_TIME_WIDTH":     c.TimeWidth,
		"COLUMN_DEST_WIDTH":     c.DestinationWidth,
		"COLUMN_PLATFORM_WIDTH": c.PlatformWidth,
		"COLUMN_STATUS_WIDTH":   c.StatusWidth,
		"COLUMN_STOPS_WIDTH":    c.StopsWidth,
		"SERVICES_LIMIT":        c.ServicesLimit,
	}
	for _, key := range sortedKeys(widths) {
		if widths[key] <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, widths[key])
		}
	}

	if c.TickerStartDelay < 0 {
		return fmt.Errorf("TICKER_START_DELAY must not be negative")
	}
	if c.TickerSpeed <= 0 {
		return fmt.Errorf("TICKER_SPEED must be positive")
	}
	if c.DetailConcurrency <= 0 {
		return fmt.Errorf("DEPBOARD_DETAIL_CONCURRENCY must be positive")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("DEPBOARD_HTTP_PORT out of range: %d", c.HTTPPort)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("DEPBOARD_TRACING_SAMPLE_RATE must be between 0 and 1")
	}
	return nil
}

// legacyKeys are the unprefixed names still honoured for compatibility.
var legacyKeys = []string{
	"API_KEY",
	"COLUMN_TIME_WIDTH",
	"COLUMN_DEST_WIDTH",
	"COLUMN_PLATFORM_WIDTH",
	"COLUMN_STATUS_WIDTH",
	"COLUMN_STOPS_WIDTH",
	"TICKER_START_DELAY",
	"TICKER_SPEED",
	"SERVICES_LIMIT",
	"TITLE_COLOR",
	"CLOCK_COLOR",
	"TEXT_COLOR",
	"BACKGROUND_COLOR",
}

// processLegacyKeys lists the unprefixed keys set in the process
// environment itself.
func processLegacyKeys() map[string]bool {
	set := make(map[string]bool)
	for _, key := range legacyKeys {
		if os.Getenv(key) != "" {
			set[key] = true
		}
	}
	return set
}

func detectLegacyEnvWarnings(preset map[string]bool) []string {
	var warnings []string
	for _, key := range legacyKeys {
		if preset[key] && os.Getenv("DEPBOARD_"+key) == "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; use DEPBOARD_%s", key, key))
		}
	}
	return warnings
}

// readFile loads a flat YAML mapping of setting names to values. Names are
// matched case-insensitively against the environment keys.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("config file %s: %s must be a scalar", path, k)
		case nil:
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// env resolves a key from the process environment, falling back to the
// config file.
type env struct {
	file map[string]string
}

func (e env) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return e.file[key]
}

// getEnvAny returns the first non-empty value from keys, or def if none set.
func (e env) getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := e.lookup(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer value from keys, or def.
func (e env) getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := e.lookup(k); v != "" {
			if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean value from keys, or def.
func (e env) getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := e.lookup(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float value from keys, or def.
func (e env) getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := e.lookup(k); v != "" {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny returns the first set duration ("90s", "2m") from keys, or def.
func (e env) getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		if v := e.lookup(k); v != "" {
			if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
				return parsed
			}
		}
	}
	return def
}
