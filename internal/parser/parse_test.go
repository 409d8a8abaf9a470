package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionindex/sessionindex/internal/testjsonl"
)

func createTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFile_Basic(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.UserJSON("fix the login bug", "2024-01-01T00:00:00Z", "/home/user/project"),
		testjsonl.AssistantTextJSON("looking into it", "2024-01-01T00:00:01Z", "claude-3", 10, 20),
		testjsonl.AssistantToolUseJSON("Read", "2024-01-01T00:00:02Z"),
	)
	path := createTestFile(t, "test.jsonl", content)

	result, err := ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, result.MessageCount)
	assert.Equal(t, "/home/user/project", result.Cwd)
	assert.Equal(t, int64(10), result.Tokens.Input)
	assert.Equal(t, int64(20), result.Tokens.Output)
	assert.Equal(t, int64(30), result.Tokens.Total)
	assert.Equal(t, "claude-3", result.Model.Primary)
	assert.Equal(t, 1, result.Tools.Total)
	assert.Equal(t, 1, result.Tools.PerName["Read"])
	assert.Equal(t, "fix the login bug", result.FirstUserMessage)
	assert.Contains(t, result.SearchableText, "fix the login bug")
	assert.Contains(t, result.SearchableText, "looking into it")
}

func TestParseFile_Empty(t *testing.T) {
	path := createTestFile(t, "test.jsonl", "")
	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, result.MessageCount)
	assert.Equal(t, "", result.SearchableText)
}

func TestParseFile_SkipsMalformedLines(t *testing.T) {
	content := testjsonl.MalformedLine() + "\n" +
		testjsonl.UserJSON("hello", "2024-01-01T00:00:00Z") + "\n" +
		testjsonl.MalformedLine() + "\n"
	path := createTestFile(t, "test.jsonl", content)

	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MessageCount)
	assert.Equal(t, 2, result.MalformedLines)
}

func TestParseFile_ModelTieBreakIsFirstSeen(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.AssistantTextJSON("a", "2024-01-01T00:00:00Z", "model-b", 1, 1),
		testjsonl.AssistantTextJSON("b", "2024-01-01T00:00:01Z", "model-a", 1, 1),
	)
	path := createTestFile(t, "test.jsonl", content)

	result, err := ParseFile(path)
	require.NoError(t, err)
	// both models appear once each; the first one seen wins the tie.
	assert.Equal(t, "model-b", result.Model.Primary)
}

func TestParseFile_FirstUserMessageTruncated(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	content := testjsonl.UserJSON(string(long), "2024-01-01T00:00:00Z") + "\n"
	path := createTestFile(t, "test.jsonl", content)

	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, result.FirstUserMessage, firstUserMessageMaxChars)
}

func TestParseFile_CwdFromTopLevelOrMessage(t *testing.T) {
	content := testjsonl.UserJSON("hello", "2024-01-01T00:00:00Z") + "\n"
	path := createTestFile(t, "test.jsonl", content)
	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "", result.Cwd)

	// Top-level cwd wins over message.cwd on the same line.
	content = `{"type":"user","cwd":"/top/level","message":{"content":"hi","cwd":"/nested/dir"}}` + "\n"
	path = createTestFile(t, "test.jsonl", content)
	result, err = ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/top/level", result.Cwd)

	// message.cwd is used when no top-level cwd is present, even after
	// a header line without any cwd.
	content = `{"type":"summary"}` + "\n" +
		`{"type":"user","message":{"content":"hi","cwd":"/nested/dir"}}` + "\n"
	path = createTestFile(t, "test.jsonl", content)
	result, err = ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/nested/dir", result.Cwd)
}

func TestParseFile_SearchableTextExcludesToolResults(t *testing.T) {
	content := `{"type":"user","timestamp":"2024-01-01T00:00:00Z","message":{"content":[{"type":"tool_result","content":"should not appear"}]}}` + "\n"
	path := createTestFile(t, "test.jsonl", content)
	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.NotContains(t, result.SearchableText, "should not appear")
}

func TestParseFile_ToolsCountedPastSearchableTextCap(t *testing.T) {
	long := make([]byte, maxMessageChars)
	for i := range long {
		long[i] = 'x'
	}
	var lines []string
	// Each message contributes up to maxMessageChars to the
	// searchable-text buffer; enough of them exhaust maxSearchableChars
	// well before the file ends.
	for i := 0; i < (maxSearchableChars/maxMessageChars)+5; i++ {
		lines = append(lines, testjsonl.AssistantTextJSON(string(long), "2024-01-01T00:00:00Z", "claude-3", 1, 1))
		lines = append(lines, testjsonl.AssistantToolUseJSON("Read", "2024-01-01T00:00:00Z"))
	}
	path := createTestFile(t, "test.jsonl", testjsonl.JoinJSONL(lines...))

	result, err := ParseFile(path)
	require.NoError(t, err)
	wantTools := (maxSearchableChars/maxMessageChars) + 5
	assert.Equal(t, wantTools, result.Tools.Total)
	assert.Equal(t, wantTools, result.Tools.PerName["Read"])
	assert.LessOrEqual(t, len(result.SearchableText), maxSearchableChars)
}

func TestParseFile_ToolUseOnUserLineNotCounted(t *testing.T) {
	content := `{"type":"user","timestamp":"2024-01-01T00:00:00Z","message":{"content":[{"type":"tool_use","name":"Read"}]}}` + "\n"
	path := createTestFile(t, "test.jsonl", content)

	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Tools.Total)
	assert.Empty(t, result.Tools.PerName)
}
