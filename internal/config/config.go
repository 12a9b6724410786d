// Package config loads build settings from YAML, .env files and GRAPHIR_* environment variables.
package config

import (
	"bytes"
	"io"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/graphir/internal/builder"
	"github.com/born-ml/graphir/internal/registry"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// EnvPrefix is the prefix of environment overrides, e.g. GRAPHIR_WORKERS.
const EnvPrefix = "GRAPHIR"

// Config holds the build configuration.
type Config struct {
	Build Build `yaml:"build"`
	Ops   Ops   `yaml:"ops"`
}

// Build configures the graph builder.
type Build struct {
	Unmatched string `yaml:"unmatched" envconfig:"UNMATCHED"`   // "fail" or "pass-through"
	ErrorMode string `yaml:"error_mode" envconfig:"ERROR_MODE"` // "fail-fast" or "collect-all"
	Workers   int    `yaml:"workers" envconfig:"WORKERS"`

	// MaxConstantBytes is a size such as "512MiB" or "1GB". "0" disables the limit.
	MaxConstantBytes string `yaml:"max_constant_bytes" envconfig:"MAX_CONSTANT_BYTES"`
}

// Ops toggles registered extractors.
type Ops struct {
	Enabled  []string `yaml:"enabled" envconfig:"ENABLED_OPS"`
	Disabled []string `yaml:"disabled" envconfig:"DISABLED_OPS"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Build: Build{
			Unmatched: builder.UnmatchedFail.String(),
			ErrorMode: builder.FailFast.String(),
			Workers:   1,

			MaxConstantBytes: humanize.IBytes(uint64(tfgraph.DefaultMaxTensorBytes)),
		},
	}
}

// Load reads the configuration.
//
// Sources are applied in order: defaults, the YAML file at path (skipped when path is empty),
// then environment variables. Variables from envFiles, or from ./.env when none are given, are
// loaded first without overriding the real environment; a missing ./.env is ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		f, err := os.Open(path) //nolint:gosec // G304: config path is provided by the user.
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open config %q", path)
		}
		defer f.Close() //nolint:errcheck // read-only file
		if err := cfg.decode(f); err != nil {
			return nil, errors.WithMessagef(err, "config %q", path)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads a YAML configuration over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "failed to decode config")
	}
	return nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(err, "failed to load .env")
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(err, "failed to load env files")
	}
	return nil
}

// ApplyEnv overrides fields from GRAPHIR_* environment variables. Unset variables keep the
// current values.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, &c.Build); err != nil {
		return errors.Wrap(err, "failed to read build environment")
	}
	if err := envconfig.Process(EnvPrefix, &c.Ops); err != nil {
		return errors.Wrap(err, "failed to read ops environment")
	}
	return nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := ParseUnmatched(c.Build.Unmatched); err != nil {
		return err
	}
	if _, err := ParseErrorMode(c.Build.ErrorMode); err != nil {
		return err
	}
	if c.Build.Workers < 0 {
		return errors.Errorf("workers must be >= 0, got %d", c.Build.Workers)
	}
	if _, err := ParseMaxConstantBytes(c.Build.MaxConstantBytes); err != nil {
		return err
	}
	disabled := make(map[string]bool, len(c.Ops.Disabled))
	for _, op := range c.Ops.Disabled {
		disabled[op] = true
	}
	for _, op := range c.Ops.Enabled {
		if disabled[op] {
			return errors.Errorf("op %q is both enabled and disabled", op)
		}
	}
	return nil
}

// BuildOptions converts the configuration to builder options.
func (c *Config) BuildOptions() (builder.Options, error) {
	unmatched, err := ParseUnmatched(c.Build.Unmatched)
	if err != nil {
		return builder.Options{}, err
	}
	mode, err := ParseErrorMode(c.Build.ErrorMode)
	if err != nil {
		return builder.Options{}, err
	}
	limit, err := ParseMaxConstantBytes(c.Build.MaxConstantBytes)
	if err != nil {
		return builder.Options{}, err
	}
	opts := builder.DefaultOptions()
	opts.Unmatched = unmatched
	opts.ErrorMode = mode
	opts.Workers = c.Build.Workers
	opts.MaxConstantBytes = limit
	return opts, nil
}

// ApplyOps enables and disables registrations of an unsealed registry.
func (c *Config) ApplyOps(r *registry.Registry) error {
	for _, op := range c.Ops.Enabled {
		if err := r.SetEnabled(op, true); err != nil {
			return errors.Wrap(err, "failed to enable op")
		}
	}
	for _, op := range c.Ops.Disabled {
		if err := r.SetEnabled(op, false); err != nil {
			return errors.Wrap(err, "failed to disable op")
		}
	}
	return nil
}

// ParseUnmatched parses an unmatched-op policy name. Empty selects the default.
func ParseUnmatched(s string) (builder.Unmatched, error) {
	switch s {
	case "", builder.UnmatchedFail.String():
		return builder.UnmatchedFail, nil
	case builder.UnmatchedPassThrough.String(), "passthrough":
		return builder.UnmatchedPassThrough, nil
	default:
		return 0, errors.Errorf("invalid unmatched policy %q (want fail or pass-through)", s)
	}
}

// ParseErrorMode parses an error mode name. Empty selects the default.
func ParseErrorMode(s string) (builder.ErrorMode, error) {
	switch s {
	case "", builder.FailFast.String():
		return builder.FailFast, nil
	case builder.CollectAll.String():
		return builder.CollectAll, nil
	default:
		return 0, errors.Errorf("invalid error mode %q (want fail-fast or collect-all)", s)
	}
}

// ParseMaxConstantBytes parses a constant size limit. Empty selects tfgraph.DefaultMaxTensorBytes
// and "0" disables the limit.
func ParseMaxConstantBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return tfgraph.DefaultMaxTensorBytes, nil
	}
	if strings.HasPrefix(s, "-") {
		return 0, errors.Errorf("invalid max constant bytes %q: must not be negative", s)
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid max constant bytes %q", s)
	}
	if n > math.MaxInt64 {
		return 0, errors.Errorf("invalid max constant bytes %q: too large", s)
	}
	return int64(n), nil
}
