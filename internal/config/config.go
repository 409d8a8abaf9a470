// Package config resolves the engine's two configuration knobs —
// db_path and claude_home — by layering defaults, an optional TOML
// file, and environment variables, in that priority order (later
// layers win). CLI flags are applied on top by cmd/sessionindex.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the resolved configuration.
type Config struct {
	ClaudeHome string
	DBPath     string

	// dbPathSet tracks whether DBPath was explicitly overridden by
	// a file or environment variable, so ClaudeHome overrides that
	// arrive afterward don't silently relocate an explicit DBPath.
	dbPathSet bool
}

// fileConfig mirrors the optional TOML file's shape.
type fileConfig struct {
	ClaudeHome string `toml:"claude_home"`
	DBPath     string `toml:"db_path"`
}

// Default returns a Config with sensible defaults: claude_home at
// the user's home directory, db_path at
// <claude_home>/data/conversations.db.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("determining home directory: %w", err)
	}
	claudeHome := home
	return Config{
		ClaudeHome: claudeHome,
		DBPath:     filepath.Join(claudeHome, "data", "conversations.db"),
	}, nil
}

// ProjectsDir returns the root directory this configuration indexes.
func (c Config) ProjectsDir() string {
	return filepath.Join(c.ClaudeHome, "projects")
}

// Load builds a Config by layering defaults, an optional TOML file
// at configPath, and environment variables
// (SESSIONINDEX_CLAUDE_HOME, SESSIONINDEX_DB_PATH). configPath may
// be empty, in which case the file layer is skipped.
func Load(configPath string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}

	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return cfg, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadEnv()

	if !cfg.dbPathSet {
		cfg.DBPath = filepath.Join(cfg.ClaudeHome, "data", "conversations.db")
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if fc.ClaudeHome != "" {
		c.ClaudeHome = fc.ClaudeHome
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
		c.dbPathSet = true
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("SESSIONINDEX_CLAUDE_HOME"); v != "" {
		c.ClaudeHome = v
	}
	if v := os.Getenv("SESSIONINDEX_DB_PATH"); v != "" {
		c.DBPath = v
		c.dbPathSet = true
	}
}
