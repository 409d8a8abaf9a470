package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessionindex/sessionindex/internal/store"
)

var resolveStrictPrefix bool

var resolveProjectsCmd = &cobra.Command{
	Use:   "resolve-projects",
	Short: "Normalize project names across sessions sharing an encoded folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		result, err := st.ResolveProjectNames(cfg.ProjectsDir(), resolveStrictPrefix)
		if err != nil {
			return fmt.Errorf("resolving project names: %w", err)
		}

		fmt.Printf("resolved %d groups, updated %d sessions\n", result.GroupsResolved, result.SessionsUpdated)
		return nil
	},
}

func init() {
	resolveProjectsCmd.Flags().BoolVar(&resolveStrictPrefix, "strict-prefix", false,
		"require the shortest cwd in a group to be a path prefix of every other cwd")
	rootCmd.AddCommand(resolveProjectsCmd)
}
