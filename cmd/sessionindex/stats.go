package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessionindex/sessionindex/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store-wide totals and per-tool usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		summary, err := st.Summary()
		if err != nil {
			return fmt.Errorf("summarizing: %w", err)
		}

		fmt.Printf("sessions:        %d\n", summary.Sessions)
		fmt.Printf("messages:        %d\n", summary.Messages)
		fmt.Printf("tokens total:    %d\n", summary.TokensTotal)
		fmt.Printf("bytes on disk:   %d\n", summary.Bytes)
		fmt.Printf("projects:        %d\n", summary.Projects)
		fmt.Printf("active last 24h: %d\n", summary.ActiveLast24h)

		tools, err := st.ToolStats()
		if err != nil {
			return fmt.Errorf("tool stats: %w", err)
		}
		if len(tools) > 0 {
			fmt.Println("\ntool usage:")
			for _, t := range tools {
				fmt.Printf("  %-20s %6d calls across %d sessions\n", t.Name, t.TotalCalls, t.DistinctSessions)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
