package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sessionindex/sessionindex/internal/config"
	"github.com/sessionindex/sessionindex/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	logLevel   string
	claudeHome string
	dbPath     string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:           "sessionindex",
	Short:         "Incremental full-text indexer for Claude Code session logs",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.SetLevel(logLevel)
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if claudeHome != "" {
			derived := loaded.DBPath == filepath.Join(loaded.ClaudeHome, "data", "conversations.db")
			loaded.ClaudeHome = claudeHome
			if derived {
				loaded.DBPath = filepath.Join(claudeHome, "data", "conversations.db")
			}
		}
		if dbPath != "" {
			loaded.DBPath = dbPath
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&claudeHome, "claude-home", "", "override claude_home (defaults to config/env/$HOME)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override db_path (defaults to config/env/<claude_home>/data/conversations.db)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("sessionindex %s (commit %s)\n", version, commit))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
