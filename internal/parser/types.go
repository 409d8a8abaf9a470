package parser

// TokenUsage holds aggregated token counts for a session.
type TokenUsage struct {
	Input  int64
	Output int64
	Total  int64
}

// ModelInfo holds model usage aggregates for a session.
type ModelInfo struct {
	Primary string
	Counts  map[string]int
}

// ToolUsage holds per-tool call counts for a session.
type ToolUsage struct {
	Total   int
	PerName map[string]int
}

// Identity holds the subagent classification derived from a file's
// path, independent of its content.
type Identity struct {
	IsSubagent bool
	ParentID   string
}

// ParseResult is everything extracted from a single forward pass
// over one session log file.
type ParseResult struct {
	MessageCount   int
	Tokens         TokenUsage
	Model          ModelInfo
	Tools          ToolUsage
	SearchableText string
	Cwd            string

	// FirstUserMessage is the first non-empty user message, truncated
	// to firstUserMessageMaxChars. Empty if the file has no user text.
	FirstUserMessage string

	// MalformedLines counts JSON-parse failures skipped during
	// the pass. OversizedLines counts lines dropped for exceeding
	// the reader's line-length ceiling.
	MalformedLines int
	OversizedLines int
}
