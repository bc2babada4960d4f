package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configFileName is looked up in the repository root when --config is not
// given.
const configFileName = ".treebank.yaml"

// Config holds settings read from .treebank.yaml. Zero values mean "not set";
// command-line flags always take precedence.
type Config struct {
	DB         string   `yaml:"db"`
	Suffixes   []string `yaml:"suffixes"`
	TextSuffix string   `yaml:"text_suffix"`
	Parallel   *bool    `yaml:"parallel"`
	ScriptsDir string   `yaml:"scripts_dir"`
	Verbosity  int      `yaml:"verbosity"`
}

// loadConfig reads a config file. A missing file yields an empty Config
// unless required is set.
func loadConfig(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// configPath returns the --config path, or the default config file in the
// repository root containing the working directory. required reports whether
// the file was named explicitly.
func configPath() (path string, required bool, err error) {
	if flagConfig != "" {
		return flagConfig, true, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("getting cwd: %w", err)
	}
	return filepath.Join(findRepoRoot(cwd), configFileName), false, nil
}
