package parser

import (
	"strings"

	"github.com/tidwall/gjson"
)

// maxMessageChars caps the searchable-text contribution of any
// single message.
const maxMessageChars = 2000

// extractMessageText pulls plain text content out of a message's
// content field and the names of any tool_use blocks it contains.
// content may be a string, a single content-block object, or an
// array of blocks. tool_result blocks never contribute to the
// returned text.
func extractMessageText(content gjson.Result) (string, []string) {
	if content.Type == gjson.String {
		return truncate(content.Str, maxMessageChars), nil
	}

	if content.IsArray() {
		var parts []string
		var tools []string
		content.ForEach(func(_, block gjson.Result) bool {
			switch block.Get("type").Str {
			case "text":
				if t := block.Get("text").Str; t != "" {
					parts = append(parts, t)
				}
			case "tool_use":
				if name := block.Get("name").Str; name != "" {
					tools = append(tools, name)
				}
			}
			return true
		})
		return truncate(strings.Join(parts, "\n"), maxMessageChars), tools
	}

	if content.Get("type").Str == "text" {
		return truncate(content.Get("text").Str, maxMessageChars), nil
	}

	return "", nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
