// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable [Load] reads the config path
// from.
const EnvVar = "WARCINDEX_CONFIG"

// Values accepted by Pipeline.OnMalformedHeader.
const (
	MalformedAbort  = "abort"
	MalformedResync = "resync"
)

// Config is the complete warcindex configuration.
type Config struct {
	Index    IndexConfig    `yaml:"index"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Filter   FilterConfig   `yaml:"filter"`
	Worker   WorkerConfig   `yaml:"worker"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// IndexConfig selects the search index.
type IndexConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the sqlite database file. ${VAR} references are expanded.
	Path string `yaml:"path"`

	// PoolSize is the sqlite connection pool size; 0 picks a default.
	PoolSize int `yaml:"pool_size"`
}

// PipelineConfig bounds and paces one archive pass.
type PipelineConfig struct {
	// MaxDictionaryBytes is the ceiling on the embedded dictionary
	// frame and on the decoder's window memory.
	MaxDictionaryBytes int64 `yaml:"max_dictionary_bytes"`

	// MaxBodyBytes is the largest WARC record body accepted.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// MaxBodyText caps the extracted text indexed per document.
	MaxBodyText int `yaml:"max_body_text"`

	// OnMalformedHeader is "abort" (fail the pass) or "resync" (skip
	// to the next record and continue).
	OnMalformedHeader string `yaml:"on_malformed_header"`

	// BatchSize commits every N indexed documents. 0 commits once at
	// the end of the archive.
	BatchSize int `yaml:"batch_size"`

	// ProgressInterval paces progress log lines. 0 disables them.
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

// FilterConfig selects which records are indexed.
type FilterConfig struct {
	// RecordTypes lists the WARC-Type values to index.
	RecordTypes []string `yaml:"record_types"`

	// TargetPrefixes restricts WARC-Target-URI to these prefixes.
	// Empty means any target.
	TargetPrefixes []string `yaml:"target_prefixes"`

	// TargetPattern is an optional regular expression the target URI
	// must match.
	TargetPattern string `yaml:"target_pattern"`

	// HTTPOnly keeps only response records whose payload is an HTTP
	// message (Content-Type application/http).
	HTTPOnly bool `yaml:"http_only"`
}

// WorkerConfig sizes the pipeline worker.
type WorkerConfig struct {
	// MaxStackBytes raises the per-goroutine stack ceiling. 0 leaves
	// the runtime default.
	MaxStackBytes int64 `yaml:"max_stack_bytes"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is "auto" (text on a terminal, JSON otherwise), "text" or
	// "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given, and
// the base every file is merged onto.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Index: IndexConfig{
			Backend: "sqlite",
			Path:    filepath.Join(homeDir, ".cache", "warcindex", "index.db"),
		},
		Pipeline: PipelineConfig{
			MaxDictionaryBytes: 64 << 20,
			MaxBodyBytes:       512 << 20,
			MaxBodyText:        1 << 20,
			OnMalformedHeader:  MalformedAbort,
			BatchSize:          1000,
			ProgressInterval:   10 * time.Second,
		},
		Filter: FilterConfig{
			RecordTypes: []string{"response"},
			HTTPOnly:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads the file named by WARCINDEX_CONFIG. It fails when the
// variable is unset; there is no search path.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your warcindex.yaml, or use --config", EnvVar)
	}
	return LoadFile(configPath)
}

// Resolve picks the configuration source for a command: the explicit
// path when given, then WARCINDEX_CONFIG, then Default.
func Resolve(explicitPath string) (*Config, error) {
	switch {
	case explicitPath != "":
		return LoadFile(explicitPath)
	case os.Getenv(EnvVar) != "":
		return Load()
	default:
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
}

// LoadFile loads path over the defaults. Environment variables never
// override values; they are only substituted into ${VAR} references
// in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Index.Path = expandVars(c.Index.Path, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Index.Backend {
	case "memory":
	case "sqlite":
		if c.Index.Path == "" {
			errs = append(errs, errors.New("index.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("index.backend must be memory or sqlite, got %q", c.Index.Backend))
	}
	if c.Index.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("index.pool_size must not be negative, got %d", c.Index.PoolSize))
	}

	if c.Pipeline.MaxDictionaryBytes <= 0 || c.Pipeline.MaxDictionaryBytes > math.MaxInt32 {
		errs = append(errs, fmt.Errorf("pipeline.max_dictionary_bytes must be between 1 and %d, got %d",
			math.MaxInt32, c.Pipeline.MaxDictionaryBytes))
	}
	if c.Pipeline.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_body_bytes must be positive, got %d", c.Pipeline.MaxBodyBytes))
	}
	if c.Pipeline.MaxBodyText <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_body_text must be positive, got %d", c.Pipeline.MaxBodyText))
	}
	if c.Pipeline.OnMalformedHeader != MalformedAbort && c.Pipeline.OnMalformedHeader != MalformedResync {
		errs = append(errs, fmt.Errorf("pipeline.on_malformed_header must be %s or %s, got %q",
			MalformedAbort, MalformedResync, c.Pipeline.OnMalformedHeader))
	}
	if c.Pipeline.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("pipeline.batch_size must not be negative, got %d", c.Pipeline.BatchSize))
	}
	if c.Pipeline.ProgressInterval < 0 {
		errs = append(errs, fmt.Errorf("pipeline.progress_interval must not be negative, got %s", c.Pipeline.ProgressInterval))
	}

	if len(c.Filter.RecordTypes) == 0 {
		errs = append(errs, errors.New("filter.record_types must name at least one record type"))
	}
	if c.Filter.TargetPattern != "" {
		if _, err := regexp.Compile(c.Filter.TargetPattern); err != nil {
			errs = append(errs, fmt.Errorf("filter.target_pattern: %w", err))
		}
	}

	if c.Worker.MaxStackBytes != 0 && (c.Worker.MaxStackBytes < 1<<20 || c.Worker.MaxStackBytes > math.MaxInt32) {
		errs = append(errs, fmt.Errorf("worker.max_stack_bytes must be 0 or between 1 MiB and 2 GiB, got %d", c.Worker.MaxStackBytes))
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains([]string{"auto", "text", "json"}, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be auto, text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", l.Level)
	}
	return level, nil
}

// EnsureIndexDir creates the directory holding the sqlite index.
func (c *Config) EnsureIndexDir() error {
	if c.Index.Backend != "sqlite" || c.Index.Path == "" {
		return nil
	}
	dir := filepath.Dir(c.Index.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
