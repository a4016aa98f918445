package util

import "strings"

// RepairJSON coerces a model reply into something json.Unmarshal can read: markdown
// fences are stripped and the first balanced JSON object or array is extracted.
// It reports whether the input was changed.
func RepairJSON(s string) (string, bool) {
	out := stripFence(strings.TrimSpace(s))
	if start := strings.IndexAny(out, "{["); start >= 0 {
		if end := matchingClose(out, start); end > start {
			out = out[start : end+1]
		}
	}
	return out, out != s
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSpace(s[3 : len(s)-3])
	if strings.HasPrefix(strings.ToLower(s), "json") {
		s = strings.TrimSpace(s[4:])
	}
	return s
}

// matchingClose returns the index closing the bracket at start, or -1.
func matchingClose(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
