package llm

import (
	"strings"
	"unicode"
)

const fence = "```"

// StripCodeFences removes a markdown code fence around a model response,
// including an info string such as "json". Only a fence that starts a line
// counts, so backticks inside JSON string values are left alone. Text
// without a fence is returned trimmed but otherwise unchanged.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	start := openingFence(s)
	if start < 0 {
		return s
	}

	inner := s[start+len(fence):]
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.ContainsAny(inner[:nl], "{[\"") {
		inner = inner[nl+1:]
	} else {
		inner = strings.TrimLeftFunc(inner, unicode.IsLetter)
	}

	if end := strings.LastIndex(inner, "\n"+fence); end >= 0 {
		inner = inner[:end]
	} else {
		inner = strings.TrimSuffix(strings.TrimRightFunc(inner, unicode.IsSpace), fence)
	}
	return strings.TrimSpace(inner)
}

// openingFence returns the offset of the first fence at the start of a
// line, or -1.
func openingFence(s string) int {
	for off := 0; off < len(s); {
		i := strings.Index(s[off:], fence)
		if i < 0 {
			return -1
		}
		pos := off + i
		if pos == 0 || s[pos-1] == '\n' {
			return pos
		}
		off = pos + len(fence)
	}
	return -1
}
