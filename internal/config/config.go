// Package config handles the YAML job file used for batch conversion.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the root of a job file.
type Config struct {
	// Workers is the number of concurrent conversions; 0 means one per CPU.
	Workers int `yaml:"workers,omitempty"`
	// Encoding is the attribute charset for jobs that set none. Callers apply
	// it after their own defaults, so it is not copied into Jobs.
	Encoding string `yaml:"encoding,omitempty"`
	// Strict turns attribute encoding drift into an error for every job.
	Strict bool `yaml:"strict,omitempty"`
	// SkipErrors keeps converting after a job fails.
	SkipErrors bool `yaml:"skip_errors,omitempty"`

	Jobs []Job `yaml:"jobs"`
}

// Job is one dataset to convert.
type Job struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output,omitempty"`
	Encoding string `yaml:"encoding,omitempty"`
	Layer    string `yaml:"layer,omitempty"`
	CRS      string `yaml:"crs,omitempty"` // overrides the .prj
}

// Load reads and parses the YAML job file at path. Relative local inputs
// and outputs are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range cfg.Jobs {
		cfg.Jobs[i].Input = resolve(base, cfg.Jobs[i].Input)
		cfg.Jobs[i].Output = resolve(base, cfg.Jobs[i].Output)
	}
	return cfg, nil
}

// Parse decodes and validates a job file.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every job names an input and that no two jobs write
// the same output.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if len(c.Jobs) == 0 {
		return errors.New("no jobs")
	}
	outputs := make(map[string]int)
	for i, j := range c.Jobs {
		if strings.TrimSpace(j.Input) == "" {
			return fmt.Errorf("job %d: input is required", i+1)
		}
		if j.Output == "" {
			continue
		}
		if prev, dup := outputs[j.Output]; dup {
			return fmt.Errorf("job %d: output %s already written by job %d", i+1, j.Output, prev)
		}
		outputs[j.Output] = i + 1
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(base, p)
}
