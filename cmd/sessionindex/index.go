package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionindex/sessionindex/internal/indexer"
	"github.com/sessionindex/sessionindex/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run one indexing pass over the configured projects directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		ix := indexer.New(st, cfg.ProjectsDir())

		start := time.Now()
		stats, err := ix.Run(context.Background(), printIndexProgress)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("indexing: %w", err)
		}

		fmt.Printf(
			"scanned %d, indexed %d, skipped %d, removed %d, errors %d, projects resolved %d (%s)\n",
			stats.Scanned, stats.Indexed, stats.Skipped, stats.Removed,
			stats.Errors, stats.ProjectNamesResolved,
			time.Since(start).Round(time.Millisecond),
		)
		return nil
	},
}

func printIndexProgress(done, total int) {
	if total > 0 {
		fmt.Printf("\r  %d/%d files (%.0f%%)", done, total, 100*float64(done)/float64(total))
	}
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
