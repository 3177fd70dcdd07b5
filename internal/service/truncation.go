package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"mesgbairai/pkg/config"
)

var (
	wordTokenRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	// A single trailing letter/digit transition marks an obviously broken
	// token ("word3", "3word"). Policy, not a hard rule; kept in one place.
	mixedTailRe = regexp.MustCompile(`[A-Za-z][0-9]$|[0-9][A-Za-z]$`)
)

var terminalMarks = []string{".", "!", "?", "…", ";", ":"}

// TruncationDetector decides whether generated text stopped mid-word, which
// happens when the token budget runs out before the sentence does.
type TruncationDetector struct {
	minWordLength  int
	minTotalLength int
}

func NewTruncationDetector(cfg *config.TruncationConfig) *TruncationDetector {
	return &TruncationDetector{
		minWordLength:  cfg.MinWordLength,
		minTotalLength: cfg.MinTotalLength,
	}
}

// IsTruncated reports whether the final word of text looks cut off. Text with
// a sentence-terminal ending, or too short to judge reliably, never counts.
func (d *TruncationDetector) IsTruncated(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}

	if endsWithTerminal(t) {
		return false
	}

	if utf8.RuneCountInString(t) < d.minTotalLength {
		return false
	}

	tokens := wordTokenRe.FindAllString(t, -1)
	if len(tokens) == 0 {
		return false
	}

	last := tokens[len(tokens)-1]
	if utf8.RuneCountInString(last) <= d.minWordLength {
		return true
	}
	return mixedTailRe.MatchString(last)
}

// Splice joins a partial text with the model-supplied remainder of its last
// word. No separator is inserted: the completion continues the broken token.
// The result is re-punctuated with a period when it still ends mid-sentence.
func Splice(partial, completion string) string {
	joined := strings.TrimSpace(partial + completion)
	if !endsWithTerminal(joined) {
		joined += "."
	}
	return joined
}

func endsWithTerminal(s string) bool {
	for _, mark := range terminalMarks {
		if strings.HasSuffix(s, mark) {
			return true
		}
	}
	return false
}
