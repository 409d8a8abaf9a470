package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sessionindex/sessionindex/internal/indexer"
	"github.com/sessionindex/sessionindex/internal/store"
	"github.com/sessionindex/sessionindex/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Index once, then watch the projects directory for changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		ix := indexer.New(st, cfg.ProjectsDir())

		fmt.Println("running initial index pass...")
		stats, err := ix.Run(context.Background(), printIndexProgress)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("initial index: %w", err)
		}
		fmt.Printf("indexed %d, skipped %d, removed %d\n", stats.Indexed, stats.Skipped, stats.Removed)

		w, err := watch.New(ix, cfg.ProjectsDir())
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		w.Start()
		defer w.Stop()

		fmt.Println("watching for changes, press ctrl-c to stop")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
