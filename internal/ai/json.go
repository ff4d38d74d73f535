package ai

import "strings"

// ExtractJSON strips markdown code fences from a string that may contain
// JSON wrapped in ```json ... ``` or ``` ... ``` blocks. This handles the
// common case where LLMs return JSON inside code fences.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Try ```json ... ``` first.
	if after, found := strings.CutPrefix(s, "```json"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	// Try plain ``` ... ```.
	if after, found := strings.CutPrefix(s, "```"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	return s
}
