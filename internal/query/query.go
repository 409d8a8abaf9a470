// Package query implements the two read paths over the store:
// plain listing and ranked full-text search. List groups subagents
// under their parents when subagents are included; SearchWithSnippets
// returns hits in rank order and does not group them.
package query

import (
	"sort"
	"strings"

	"github.com/sessionindex/sessionindex/internal/store"
)

// Query reads session data from a Store.
type Query struct {
	st *store.Store
}

// New builds a Query over st.
func New(st *store.Store) *Query {
	return &Query{st: st}
}

// Filter specifies the common paging/filtering knobs shared by List
// and Search.
type Filter struct {
	Limit            int
	Offset           int
	Project          string
	IncludeSubagents bool
	SortBy           string
	Order            string
}

// List delegates directly to the store's session listing.
func (q *Query) List(f Filter) ([]store.Session, error) {
	sessions, err := q.st.ListSessions(store.ListFilter{
		Limit: f.Limit, Offset: f.Offset,
		SortBy: f.SortBy, Order: f.Order,
		Project: f.Project, IncludeSubagents: f.IncludeSubagents,
	})
	if err != nil {
		return nil, err
	}
	if f.IncludeSubagents {
		return GroupHierarchy(q.st, sessions)
	}
	return sessions, nil
}

// Result is one search hit enriched with relevance/snippet info.
type Result struct {
	Session    store.Session
	Relevance  float64
	Snippet    string
	SearchTerm string
}

// SearchWithSnippets sanitizes query, runs a ranked FTS search, and
// returns each match enriched with a snippet and relevance score. An
// empty or whitespace-only query returns an empty slice, never the
// full listing. Errors during FTS execution fall back to unranked
// results (handled inside Store.Search).
func (q *Query) SearchWithSnippets(query string, f Filter) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	raw, err := q.st.Search(store.SearchFilter{
		Query: query, Project: f.Project,
		Limit: f.Limit, Offset: f.Offset,
		IncludeSubagents: f.IncludeSubagents,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(raw))
	for i, r := range raw {
		out[i] = Result{
			Session: r.Session, Relevance: r.Relevance,
			Snippet: r.Snippet, SearchTerm: query,
		}
	}
	return out, nil
}

// GroupHierarchy arranges a mixed set of parent and subagent
// sessions so that every subagent follows its parent, with orphan
// stub parents fetched from the store for display only. Parents and
// each parent's subagents are sorted by last_modified descending,
// ties keeping their input order; true orphans (no parent record
// available at all) are appended at the end.
func GroupHierarchy(st *store.Store, sessions []store.Session) ([]store.Session, error) {
	var parents []store.Session
	var subagents []store.Session
	parentByID := map[string]store.Session{}

	for _, s := range sessions {
		if s.IsSubagent {
			subagents = append(subagents, s)
		} else {
			parents = append(parents, s)
			parentByID[s.ID] = s
		}
	}

	childrenByParent := map[string][]store.Session{}
	var orphans []store.Session
	for _, sub := range subagents {
		if sub.ParentID == "" {
			orphans = append(orphans, sub)
			continue
		}
		if _, ok := parentByID[sub.ParentID]; !ok {
			stub, err := st.GetSession(sub.ParentID)
			if err != nil {
				return nil, err
			}
			if stub == nil {
				orphans = append(orphans, sub)
				continue
			}
			parentByID[sub.ParentID] = *stub
			parents = append(parents, *stub)
		}
		childrenByParent[sub.ParentID] = append(childrenByParent[sub.ParentID], sub)
	}

	sort.SliceStable(parents, func(i, j int) bool {
		return parents[i].LastModified > parents[j].LastModified
	})

	var out []store.Session
	for _, p := range parents {
		out = append(out, p)
		children := childrenByParent[p.ID]
		sort.SliceStable(children, func(i, j int) bool {
			return children[i].LastModified > children[j].LastModified
		})
		out = append(out, children...)
	}
	out = append(out, orphans...)
	return out, nil
}
