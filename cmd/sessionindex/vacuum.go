package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessionindex/sessionindex/internal/store"
)

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Reclaim space from deleted rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		if err := st.Vacuum(); err != nil {
			return fmt.Errorf("vacuuming: %w", err)
		}
		fmt.Println("vacuum complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vacuumCmd)
}
