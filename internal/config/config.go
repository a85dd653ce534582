// Package config loads optional scan defaults from a YAML file. Command
// line flags always win over file values.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"edgescan/internal/paths"
)

// DefaultFileName is the config file name under the edgescan config dir.
const DefaultFileName = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File holds scan defaults. Zero values mean "not set".
type File struct {
	Subnets    string        `yaml:"subnets"`     // block list path or URL
	Template   string        `yaml:"template"`    // xray config template path
	Bin        string        `yaml:"bin"`         // xray binary path
	Workers    int           `yaml:"workers"`
	Tries      int           `yaml:"tries"`
	Upload     bool          `yaml:"upload"`
	SampleSize int           `yaml:"sample_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Load reads scan defaults from a YAML file. A missing file returns
// ErrConfigNotFound so callers can decide whether that matters (it does
// when the path was given explicitly).
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Find returns the config file to use: the explicit path when given,
// otherwise the default location. Empty string means no config file.
func Find(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := paths.ConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
