// Package config loads carve settings from an optional YAML file.
//
// The file is named by the --config flag or the MEMCARVE_CONFIG environment
// variable. Without either, the built-in defaults are used. Command-line
// flags are applied on top of whatever was loaded.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"memcarve/internal/carver"
	"memcarve/internal/signature"
)

// EnvVar names the environment variable consulted when no path is given.
const EnvVar = "MEMCARVE_CONFIG"

// Config holds the tunables of a carve.
type Config struct {
	// WindowSize is how much of the capture is scanned per read.
	// Default: 10 MiB
	WindowSize Size `yaml:"window_size"`

	// Overlap is how many bytes each window shares with its neighbours.
	// It must cover the longest magic sequence.
	// Default: 2048
	Overlap Size `yaml:"overlap"`

	// MaxPerType caps the number of files recovered per format.
	// Default: 10000
	MaxPerType int `yaml:"max_per_type"`

	// Types restricts the carve to these format identifiers. Empty means all.
	Types []string `yaml:"types"`

	// Workers bounds concurrent oracle evaluation. Zero means one per CPU.
	// Default: 1
	Workers int `yaml:"workers"`

	// Output is the root directory for recovered files.
	// Default: ./output
	Output string `yaml:"output"`
}

// Size is a byte count that may be written in YAML either as a plain
// integer or as a human-readable string such as "10MiB" or "512 KB".
type Size int64

func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*s = Size(n)
		return nil
	}
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("line %d: size must be a number or a string", node.Line)
	}
	v, err := humanize.ParseBytes(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = Size(v)
	return nil
}

func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		WindowSize: carver.DefaultWindowSize,
		Overlap:    carver.DefaultOverlap,
		MaxPerType: carver.DefaultMaxPerType,
		Workers:    1,
		Output:     "./output",
	}
}

// Load reads path, or the file named by MEMCARVE_CONFIG when path is empty.
// With neither set it returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile merges the file at path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no carve can run with.
func (c *Config) Validate() error {
	var errs []error

	if c.WindowSize <= 0 {
		errs = append(errs, errors.New("window_size must be positive"))
	}
	if c.Overlap < 0 {
		errs = append(errs, errors.New("overlap must not be negative"))
	} else if c.WindowSize > 0 && c.Overlap >= c.WindowSize {
		errs = append(errs, fmt.Errorf("overlap (%s) must be smaller than window_size (%s)", c.Overlap, c.WindowSize))
	}
	if c.MaxPerType <= 0 {
		errs = append(errs, errors.New("max_per_type must be positive"))
	}
	if c.Workers < 0 {
		errs = append(errs, errors.New("workers must not be negative"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}
	for _, id := range c.Types {
		if _, ok := signature.Lookup(id); !ok {
			errs = append(errs, fmt.Errorf("unknown type %q", id))
		}
	}

	return errors.Join(errs...)
}

// Options converts the configuration into carver options writing below
// outputDir.
func (c *Config) Options(mode carver.Mode, outputDir string) carver.Options {
	return carver.Options{
		Mode:       mode,
		Types:      c.Types,
		WindowSize: int64(c.WindowSize),
		Overlap:    int64(c.Overlap),
		MaxPerType: c.MaxPerType,
		Workers:    c.Workers,
		OutputDir:  outputDir,
	}
}
