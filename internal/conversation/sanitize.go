package conversation

import (
	"fmt"
	"regexp"
	"strings"
)

// Sanitizer defaults.
const (
	DefaultKeepRecent      = 3
	DefaultMaxContentChars = 1000
)

var elisionMarker = regexp.MustCompile(`\.\.\. \[\d+ chars truncated\]$`)

// Sanitize bounds the context sent to the model. The most recent keepRecent
// turns pass through unmodified; older turns have their free text capped at
// maxChars with a marker noting how many characters were elided. Structural
// fields (role, action proposals, correlation ids) are never touched, so the
// model can still re-fetch elided detail through a lookup action.
// Sanitizing twice with the same parameters is a no-op.
func Sanitize(turns []Turn, keepRecent, maxChars int) []Turn {
	if keepRecent <= 0 {
		keepRecent = DefaultKeepRecent
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxContentChars
	}

	out := make([]Turn, len(turns))
	copy(out, turns)

	cutoff := len(out) - keepRecent
	for i := 0; i < cutoff; i++ {
		if len(out[i].Content) <= maxChars {
			continue
		}
		// Already carries a marker from a previous pass.
		if elisionMarker.MatchString(out[i].Content) {
			continue
		}
		// Cut on rune boundaries so multibyte text survives JSON encoding.
		runes := []rune(out[i].Content)
		if len(runes) <= maxChars {
			continue
		}
		elided := len(runes) - maxChars
		out[i].Content = string(runes[:maxChars]) + fmt.Sprintf("... [%d chars truncated]", elided)
	}
	return out
}

// RecoverToken scans tool turns newest-to-oldest for an embedded session
// token and returns the first one found, or "".
func RecoverToken(turns []Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != RoleTool {
			continue
		}
		if tok := extractToken(turns[i].Content); tok != "" {
			return tok
		}
	}
	return ""
}

var tokenPattern = regexp.MustCompile(`"(?:session_)?token"\s*:\s*"([^"]+)"`)

func extractToken(content string) string {
	m := tokenPattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
