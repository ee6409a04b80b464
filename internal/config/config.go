// Package config loads rekorder settings from a YAML file.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. The merged result is checked against an embedded CUE
// schema so a bad level or an empty repository path fails at startup
// rather than half way through a recording.
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
)

//go:embed schema.cue
var schemaSrc string

// Config is the full set of settings.
type Config struct {
	Recorder     RecorderConfig     `yaml:"recorder" json:"recorder"`
	Log          LogConfig          `yaml:"log" json:"log"`
	Repositories RepositoriesConfig `yaml:"repositories" json:"repositories"`
}

// RecorderConfig names the recorder and where it writes.
type RecorderConfig struct {
	Name   string `yaml:"name" json:"name"`
	Output string `yaml:"output" json:"output"`
}

// LogConfig selects the log level, the stderr format and an optional
// JSON log file.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// RepositoriesConfig lists the working trees captured in the header. No
// paths means no repository state is recorded.
type RepositoriesConfig struct {
	Paths []string `yaml:"paths" json:"paths"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Recorder: RecorderConfig{Name: "rekorder"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Repositories: RepositoriesConfig{
			Paths: []string{},
		},
	}
}

// Validate checks c against the schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(c)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse merges a YAML document over the defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
