// Package testjsonl builds Claude Code session JSONL fixtures for
// parser and indexer tests.
package testjsonl

import (
	"encoding/json"
	"strings"
)

// UserJSON returns a Claude user message line.
func UserJSON(content, timestamp string, cwd ...string) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message": map[string]any{
			"content": content,
		},
	}
	if len(cwd) > 0 {
		m["cwd"] = cwd[0]
	}
	return mustMarshal(m)
}

// AssistantTextJSON returns a Claude assistant message line
// containing a single text block, optionally with token usage and a
// model name.
func AssistantTextJSON(text, timestamp, model string, inputTokens, outputTokens int) string {
	message := map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	}
	if model != "" {
		message["model"] = model
	}
	if inputTokens > 0 || outputTokens > 0 {
		message["usage"] = map[string]any{
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
		}
	}
	m := map[string]any{
		"type":      "assistant",
		"timestamp": timestamp,
		"message":   message,
	}
	return mustMarshal(m)
}

// AssistantToolUseJSON returns a Claude assistant message line
// containing a single tool_use block.
func AssistantToolUseJSON(toolName, timestamp string) string {
	m := map[string]any{
		"type":      "assistant",
		"timestamp": timestamp,
		"message": map[string]any{
			"content": []map[string]string{{"type": "tool_use", "name": toolName}},
		},
	}
	return mustMarshal(m)
}

// MalformedLine returns a syntactically invalid JSON line, for
// exercising parse-error tolerance.
func MalformedLine() string {
	return `{"type": "user", "message": {`
}

// JoinJSONL joins JSON lines with newlines and appends a trailing
// newline.
func JoinJSONL(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// SessionBuilder constructs JSONL session content with a fluent API.
type SessionBuilder struct {
	lines []string
}

// NewSessionBuilder returns a new empty SessionBuilder.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{}
}

// AddUser appends a user message line.
func (b *SessionBuilder) AddUser(timestamp, content string, cwd ...string) *SessionBuilder {
	b.lines = append(b.lines, UserJSON(content, timestamp, cwd...))
	return b
}

// AddAssistantText appends an assistant text message line.
func (b *SessionBuilder) AddAssistantText(timestamp, text, model string, inputTokens, outputTokens int) *SessionBuilder {
	b.lines = append(b.lines, AssistantTextJSON(text, timestamp, model, inputTokens, outputTokens))
	return b
}

// AddAssistantToolUse appends an assistant tool_use message line.
func (b *SessionBuilder) AddAssistantToolUse(timestamp, toolName string) *SessionBuilder {
	b.lines = append(b.lines, AssistantToolUseJSON(toolName, timestamp))
	return b
}

// AddRaw appends an arbitrary raw line.
func (b *SessionBuilder) AddRaw(line string) *SessionBuilder {
	b.lines = append(b.lines, line)
	return b
}

// String returns the JSONL content with a trailing newline.
func (b *SessionBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
