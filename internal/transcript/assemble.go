// Package transcript assembles recognized segments into one utterance text.
package transcript

import (
	"regexp"
	"strings"
)

// nonSpeechPattern matches recognizer annotations such as [BLANK_AUDIO], (music) or *laughs*.
var nonSpeechPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)

// Assemble joins segments, drops non-speech annotations and collapses whitespace.
func Assemble(segments []string) string {
	if len(segments) == 0 {
		return ""
	}

	joined := strings.Join(segments, " ")
	joined = nonSpeechPattern.ReplaceAllString(joined, " ")
	return strings.Join(strings.Fields(joined), " ")
}
