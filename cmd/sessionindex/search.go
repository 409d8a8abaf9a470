package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sessionindex/sessionindex/internal/query"
	"github.com/sessionindex/sessionindex/internal/store"
)

var (
	searchProject string
	searchLimit   int
	searchOffset  int
	searchSub     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over indexed sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		q := query.New(st)
		results, err := q.SearchWithSnippets(args[0], query.Filter{
			Limit: searchLimit, Offset: searchOffset,
			Project: searchProject, IncludeSubagents: searchSub,
		})
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("no matches")
			return nil
		}

		for _, r := range results {
			snippet := strings.ReplaceAll(r.Snippet, "\n", " ")
			fmt.Printf("%-10s %-20s %s\n", r.Session.ID[:min(10, len(r.Session.ID))], r.Session.Project, snippet)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchProject, "project", "", "restrict to one project")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "result offset")
	searchCmd.Flags().BoolVar(&searchSub, "include-subagents", false, "include subagent sessions")
	rootCmd.AddCommand(searchCmd)
}
