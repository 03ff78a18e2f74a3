// Package config resolves the on-disk scratch space used while planning
// migrations: where downloaded tarballs and registry manifests are cached
// for the lifetime of a single plan.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// NPMRegistryURL is the default npm registry used to resolve package
// metadata and tarballs.
const NPMRegistryURL = "https://registry.npmjs.org/"

// Config holds the directories the Fetcher and registry client use while
// resolving a single migration plan.
type Config struct {
	BaseDir     string
	ManifestDir string
	TarballDir  string
}

// New resolves the base directory (overridable via MIGRATE_HOME, useful for
// tests) and ensures its subdirectories exist.
func New() (*Config, error) {
	baseDir := os.Getenv("MIGRATE_HOME")
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(homeDir, ".config", "migrate")
	}

	cfg := &Config{
		BaseDir:     baseDir,
		ManifestDir: filepath.Join(baseDir, "manifest"),
		TarballDir:  filepath.Join(baseDir, "tarball"),
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureDirectories creates the scratch directories if they do not exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.BaseDir, c.ManifestDir, c.TarballDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ClearCache removes all cached manifests and tarballs.
func (c *Config) ClearCache() error {
	for _, dir := range []string{c.ManifestDir, c.TarballDir} {
		if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	return nil
}
