// Package config loads jacquard.yaml.
//
// Values are resolved as defaults, then the file, then command-line flags
// (applied by the caller). The merged result is checked against an
// embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/jacquard/internal/duplicate"
	"github.com/roach88/jacquard/internal/store"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "jacquard.yaml"

//go:embed schema.cue
var schemaSource string

// Config is the resolved configuration.
type Config struct {
	Database      string `yaml:"database" json:"database"`
	SchemaVersion int    `yaml:"schema_version" json:"schema_version"`
	CopySuffix    string `yaml:"copy_suffix" json:"copy_suffix"`
	Log           Log    `yaml:"log" json:"log"`

	// MetricsFile, when set, receives the store metrics in Prometheus text
	// format after each command.
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`

	// File, when set, receives log lines instead of stderr. Lines are
	// appended.
	File string `yaml:"file" json:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:      "jacquard.db",
		SchemaVersion: store.CurrentSchemaVersion,
		CopySuffix:    duplicate.DefaultSuffix,
		Log:           Log{Level: "info", Format: "console"},
	}
}

// Load reads the file at path over the defaults and validates the result.
//
// A missing file is an error unless path is DefaultPath, in which case the
// defaults are returned.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks c against the schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	schema = schema.FillPath(cue.ParsePath("#maxSchemaVersion"), store.CurrentSchemaVersion)

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
