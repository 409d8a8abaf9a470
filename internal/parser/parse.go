package parser

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/sessionindex/sessionindex/internal/logging"
)

// maxLineSize bounds a single JSONL line; longer lines are skipped
// rather than read into memory.
const maxLineSize = 64 * 1024 * 1024

// maxSearchableChars bounds the total searchable text accumulated
// across an entire file.
const maxSearchableChars = 100_000

// maxWarningsPerFile bounds the number of malformed-line warnings
// logged for a single file before suppressing further ones.
const maxWarningsPerFile = 3

// firstUserMessageMaxChars bounds the stored first-user-message
// headline.
const firstUserMessageMaxChars = 300

// ParseFile streams path in a single forward pass, extracting
// message counts, token/model/tool aggregates, and searchable text.
// Only unrecoverable I/O errors (open, read) are returned; malformed
// or missing content is absorbed into the result.
func ParseFile(path string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var (
		result      ParseResult
		modelCounts = map[string]int{}
		modelOrder  []string
		toolCounts  = map[string]int{}
		warnings    int
		textBuf     []byte
	)

	lr := newLineReader(f, maxLineSize)
	for {
		line, oversized, ok, err := lr.next()
		if err != nil {
			return ParseResult{}, fmt.Errorf("reading %s: %w", path, err)
		}
		if !ok {
			break
		}
		if oversized {
			result.OversizedLines++
			continue
		}

		if !gjson.Valid(line) {
			result.MalformedLines++
			if warnings < maxWarningsPerFile {
				logging.Warn("skipping malformed line", "file", path)
				warnings++
			}
			continue
		}

		obj := gjson.Parse(line)

		if result.Cwd == "" {
			if cwd := obj.Get("cwd"); cwd.Type == gjson.String && cwd.Str != "" {
				result.Cwd = cwd.Str
			} else if cwd := obj.Get("message.cwd"); cwd.Type == gjson.String && cwd.Str != "" {
				result.Cwd = cwd.Str
			}
		}

		typ := obj.Get("type").Str
		if (typ != "user" && typ != "assistant") || !obj.Get("message").Exists() {
			continue
		}
		msg := obj.Get("message")
		result.MessageCount++

		text, tools := extractMessageText(msg.Get("content"))
		if text != "" {
			if typ == "user" && result.FirstUserMessage == "" {
				result.FirstUserMessage = truncate(text, firstUserMessageMaxChars)
			}
			if len(textBuf) < maxSearchableChars {
				if len(textBuf) > 0 {
					textBuf = append(textBuf, '\n')
				}
				remaining := maxSearchableChars - len(textBuf)
				if len(text) > remaining {
					text = text[:remaining]
				}
				textBuf = append(textBuf, text...)
			}
		}

		if typ == "assistant" {
			for _, name := range tools {
				result.Tools.Total++
				toolCounts[name]++
			}

			usage := msg.Get("usage")
			result.Tokens.Input += usage.Get("input_tokens").Int()
			result.Tokens.Output += usage.Get("output_tokens").Int()

			if model := msg.Get("model").Str; model != "" {
				if _, seen := modelCounts[model]; !seen {
					modelOrder = append(modelOrder, model)
				}
				modelCounts[model]++
			}
		}
	}

	result.Tokens.Total = result.Tokens.Input + result.Tokens.Output
	result.Model.Counts = modelCounts
	result.Model.Primary = primaryModel(modelOrder, modelCounts)
	result.Tools.PerName = toolCounts
	result.SearchableText = string(textBuf)
	return result, nil
}

// primaryModel returns the most frequently seen model. order lists
// models in first-seen order so ties resolve to whichever appeared
// earliest in the file.
func primaryModel(order []string, counts map[string]int) string {
	best := ""
	bestN := -1
	for _, name := range order {
		if n := counts[name]; n > bestN {
			best, bestN = name, n
		}
	}
	return best
}
