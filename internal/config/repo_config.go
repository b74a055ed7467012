package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/migration-warden/internal/core"
)

// RepoConfigFile is looked up at the root of the checked out repository.
const RepoConfigFile = ".migrations-check.yml"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParsing  = errors.New("config parsing failed")
)

// LoadRepoConfig loads and parses the .migrations-check.yml file from a repository path.
func LoadRepoConfig(repoPath string) (*core.RepoConfig, error) {
	configPath := filepath.Join(repoPath, RepoConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return core.DefaultRepoConfig(), ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", RepoConfigFile, err)
	}

	config := core.DefaultRepoConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	return config, nil
}

// Merge returns the check settings with non-empty repository overrides applied.
func (c CheckConfig) Merge(rc *core.RepoConfig) CheckConfig {
	if rc == nil {
		return c
	}
	if rc.MigrationsPath != "" {
		c.MigrationsPath = rc.MigrationsPath
	}
	if rc.Extension != "" {
		c.Extension = rc.Extension
	}
	if rc.Context != "" {
		c.Context = rc.Context
	}
	if rc.ExtractCommand != "" {
		c.ExtractCommand = rc.ExtractCommand
	}
	return c
}
