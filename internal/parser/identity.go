package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var uuidish = regexp.MustCompile(`^[a-f0-9-]{8,}$`)

// ClassifyPath determines whether a session file lives under a
// "<parent-id>/subagents/" directory, purely from its path — file
// content is never consulted. logFn, if non-nil, is called with a
// warning when the preceding path segment does not look UUID-ish;
// classification still proceeds in that case.
func ClassifyPath(path string, logFn func(string)) Identity {
	segments := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")

	for i, seg := range segments {
		if seg != "subagents" || i == 0 {
			continue
		}
		parentID := segments[i-1]
		if logFn != nil && !looksLikeUUID(parentID) {
			logFn("subagent parent segment does not look like a UUID: " + parentID)
		}
		return Identity{IsSubagent: true, ParentID: parentID}
	}
	return Identity{}
}

func looksLikeUUID(s string) bool {
	if _, err := uuid.Parse(s); err == nil {
		return true
	}
	return uuidish.MatchString(strings.ToLower(s))
}
