package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionindex/sessionindex/internal/query"
	"github.com/sessionindex/sessionindex/internal/store"
)

var (
	listProject string
	listLimit   int
	listOffset  int
	listSub     bool
	listSortBy  string
	listOrder   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		q := query.New(st)
		sessions, err := q.List(query.Filter{
			Limit: listLimit, Offset: listOffset,
			Project: listProject, IncludeSubagents: listSub,
			SortBy: listSortBy, Order: listOrder,
		})
		if err != nil {
			return fmt.Errorf("listing: %w", err)
		}

		for _, s := range sessions {
			marker := " "
			if s.IsSubagent {
				marker = "-"
			}
			modified := time.UnixMilli(s.LastModified).Format("2006-01-02 15:04")
			fmt.Printf("%s %-20s %-20s %5d msgs  %s\n", marker, s.ID, s.Project, s.MessageCount, modified)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listProject, "project", "", "restrict to one project")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum results")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "result offset")
	listCmd.Flags().BoolVar(&listSub, "include-subagents", false, "include and group subagent sessions")
	listCmd.Flags().StringVar(&listSortBy, "sort-by", "last_modified", "sort column")
	listCmd.Flags().StringVar(&listOrder, "order", "desc", "sort order: asc or desc")
	rootCmd.AddCommand(listCmd)
}
