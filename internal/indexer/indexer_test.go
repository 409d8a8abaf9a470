package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sessionindex/sessionindex/internal/store"
	"github.com/sessionindex/sessionindex/internal/testjsonl"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// Scenario 1: simple index.
func TestRun_SimpleIndex(t *testing.T) {
	root := t.TempDir()
	content := testjsonl.JoinJSONL(
		testjsonl.UserJSON("hi", "2024-01-01T00:00:00Z", "/home/u/proj/my-awesome-project"),
		testjsonl.AssistantTextJSON("hello", "2024-01-01T00:00:01Z", "claude-sonnet-4-20250514", 1, 1),
		testjsonl.UserJSON("do a thing", "2024-01-01T00:00:02Z"),
		testjsonl.AssistantTextJSON("doing it", "2024-01-01T00:00:03Z", "claude-sonnet-4-20250514", 1, 1),
		testjsonl.UserJSON("thanks", "2024-01-01T00:00:04Z"),
		testjsonl.AssistantTextJSON("np", "2024-01-01T00:00:05Z", "claude-sonnet-4-20250514", 1, 1),
	)
	writeFile(t, filepath.Join(root, "-home-u-proj-my-awesome-project", "session1.jsonl"), content)

	st := testStore(t)
	ix := New(st, root)
	stats, err := ix.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Indexed != 1 {
		t.Fatalf("expected 1 indexed file, got %d", stats.Indexed)
	}

	sess, err := st.GetSession("session1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session1 to be indexed")
	}
	if sess.Project != "my-awesome-project" {
		t.Errorf("project = %q, want %q", sess.Project, "my-awesome-project")
	}
	if sess.MessageCount != 6 {
		t.Errorf("message_count = %d, want 6", sess.MessageCount)
	}
	if sess.PrimaryModel != "claude-sonnet-4-20250514" {
		t.Errorf("primary_model = %q, want claude-sonnet-4-20250514", sess.PrimaryModel)
	}
}

// Scenario 2: tool extraction.
func TestRun_ToolExtraction(t *testing.T) {
	root := t.TempDir()
	content := testjsonl.JoinJSONL(
		testjsonl.UserJSON("read some files", "2024-01-01T00:00:00Z"),
		testjsonl.AssistantToolUseJSON("Read", "2024-01-01T00:00:01Z"),
		testjsonl.AssistantToolUseJSON("Read", "2024-01-01T00:00:02Z"),
		testjsonl.AssistantToolUseJSON("Write", "2024-01-01T00:00:03Z"),
	)
	writeFile(t, filepath.Join(root, "-proj", "session1.jsonl"), content)

	st := testStore(t)
	ix := New(st, root)
	if _, err := ix.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tools, err := st.ToolStats()
	if err != nil {
		t.Fatalf("ToolStats: %v", err)
	}
	counts := map[string]int{}
	for _, tl := range tools {
		counts[tl.Name] = tl.TotalCalls
	}
	if counts["Read"] != 2 {
		t.Errorf("Read calls = %d, want 2", counts["Read"])
	}
	if counts["Write"] != 1 {
		t.Errorf("Write calls = %d, want 1", counts["Write"])
	}
}

// Scenario 3: malformed lines mixed with valid.
func TestRun_MalformedMixedWithValid(t *testing.T) {
	root := t.TempDir()
	content := "not json\n" + testjsonl.UserJSON("hello", "2024-01-01T00:00:00Z") + "\n"
	writeFile(t, filepath.Join(root, "-proj", "session1.jsonl"), content)

	st := testStore(t)
	ix := New(st, root)
	stats, err := ix.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Errors != 0 {
		t.Errorf("expected 0 pass-level errors, got %d", stats.Errors)
	}

	sess, err := st.GetSession("session1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess == nil || sess.MessageCount == 0 {
		t.Fatalf("expected a session with message_count > 0, got %+v", sess)
	}
}

// Scenario 4: incremental re-index.
func TestRun_IncrementalReindex(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "-proj", "session1.jsonl")
	writeFile(t, path, testjsonl.UserJSON("hello", "2024-01-01T00:00:00Z"))

	st := testStore(t)
	ix := New(st, root)
	stats, err := ix.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Indexed != 1 {
		t.Fatalf("first pass: indexed = %d, want 1", stats.Indexed)
	}

	stats, err = ix.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run (second pass): %v", err)
	}
	if stats.Skipped != 1 || stats.Indexed != 0 {
		t.Fatalf("unchanged re-index: skipped=%d indexed=%d, want skipped=1 indexed=0", stats.Skipped, stats.Indexed)
	}

	// Bump mtime and append a line.
	appended := testjsonl.JoinJSONL(
		testjsonl.UserJSON("hello", "2024-01-01T00:00:00Z"),
		testjsonl.UserJSON("more", "2024-01-01T00:00:01Z"),
	)
	writeFile(t, path, appended)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	stats, err = ix.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run (third pass): %v", err)
	}
	if stats.Indexed != 1 {
		t.Fatalf("modified re-index: indexed = %d, want 1", stats.Indexed)
	}
}

// Scenario 5: deletion.
func TestRun_Deletion(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "-proj", "session1.jsonl")
	writeFile(t, path, testjsonl.UserJSON("hello", "2024-01-01T00:00:00Z"))

	st := testStore(t)
	ix := New(st, root)
	if _, err := ix.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	stats, err := ix.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run (after delete): %v", err)
	}
	if stats.Removed != 1 {
		t.Fatalf("removed = %d, want 1", stats.Removed)
	}

	sess, err := st.GetSession("session1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess != nil {
		t.Error("expected session1 to no longer be listed after deletion")
	}
}

// Scenario 6: subagent collision — two files of identical name under
// two different parents.
func TestRun_SubagentCollision(t *testing.T) {
	root := t.TempDir()
	parentA := "11111111-1111-1111-1111-111111111111"
	parentB := "22222222-2222-2222-2222-222222222222"
	content := testjsonl.UserJSON("hi", "2024-01-01T00:00:00Z")

	writeFile(t, filepath.Join(root, "-proj", parentA, "subagents", "agent-1.jsonl"), content)
	writeFile(t, filepath.Join(root, "-proj", parentB, "subagents", "agent-1.jsonl"), content)

	st := testStore(t)
	ix := New(st, root)
	if _, err := ix.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sessA, err := st.GetSession(parentA + "_agent-1")
	if err != nil {
		t.Fatalf("GetSession(a): %v", err)
	}
	sessB, err := st.GetSession(parentB + "_agent-1")
	if err != nil {
		t.Fatalf("GetSession(b): %v", err)
	}
	if sessA == nil || sessB == nil {
		t.Fatal("expected both colliding subagent sessions to exist under distinct ids")
	}
	if !sessA.IsSubagent || sessA.ParentID != parentA {
		t.Errorf("sessA = %+v, want is_subagent=true parent_id=%s", sessA, parentA)
	}
	if !sessB.IsSubagent || sessB.ParentID != parentB {
		t.Errorf("sessB = %+v, want is_subagent=true parent_id=%s", sessB, parentB)
	}
}

// Scenario 8: identity resolution.
func TestRun_IdentityResolution(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "-u-proj-my-project", "s1.jsonl"),
		testjsonl.UserJSON("hi", "2024-01-01T00:00:00Z", "/u/proj/my-project"))
	writeFile(t, filepath.Join(root, "-u-proj-my-project", "s2.jsonl"),
		testjsonl.UserJSON("hi", "2024-01-01T00:00:00Z", "/u/proj/my-project/src"))

	st := testStore(t)
	ix := New(st, root)
	if _, err := ix.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	s1, err := st.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession(s1): %v", err)
	}
	s2, err := st.GetSession("s2")
	if err != nil {
		t.Fatalf("GetSession(s2): %v", err)
	}
	if s1.Project != "my-project" || s2.Project != "my-project" {
		t.Errorf("expected both sessions to resolve to project %q, got %q and %q", "my-project", s1.Project, s2.Project)
	}
}

func TestDetermineProject_FallsBackToUnknown(t *testing.T) {
	got := determineProject("/root", "/elsewhere/file.jsonl", "")
	if got != "Unknown" {
		t.Errorf("determineProject = %q, want Unknown", got)
	}
}

func TestDetermineProject_StripsLeadingDash(t *testing.T) {
	got := determineProject("/root", "/root/-home-user-app/file.jsonl", "")
	if got != "home-user-app" {
		t.Errorf("determineProject = %q, want home-user-app", got)
	}
}
