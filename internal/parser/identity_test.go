package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPath_NotSubagent(t *testing.T) {
	id := ClassifyPath("/home/user/.claude/projects/-home-user-app/abc123.jsonl", nil)
	assert.False(t, id.IsSubagent)
	assert.Equal(t, "", id.ParentID)
}

func TestClassifyPath_Subagent(t *testing.T) {
	id := ClassifyPath(
		"/home/user/.claude/projects/-home-user-app/11111111-2222-3333-4444-555555555555/subagents/deadbeef.jsonl",
		nil,
	)
	assert.True(t, id.IsSubagent)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", id.ParentID)
}

func TestClassifyPath_SubagentAsFirstSegment(t *testing.T) {
	// "subagents" appearing as the very first path segment has no
	// preceding segment, so it cannot be a parent boundary.
	id := ClassifyPath("subagents/file.jsonl", nil)
	assert.False(t, id.IsSubagent)
}

func TestClassifyPath_WarnsOnNonUUIDParent(t *testing.T) {
	var warned string
	ClassifyPath("/root/projects/app/not-a-uuid/subagents/file.jsonl", func(msg string) {
		warned = msg
	})
	assert.Contains(t, warned, "not-a-uuid")
}

func TestClassifyPath_NoWarningForUUIDParent(t *testing.T) {
	warnCount := 0
	ClassifyPath(
		"/root/projects/app/11111111-2222-3333-4444-555555555555/subagents/file.jsonl",
		func(msg string) { warnCount++ },
	)
	assert.Equal(t, 0, warnCount)
}
