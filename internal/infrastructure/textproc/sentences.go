package textproc

import (
	"strings"
	"unicode"
)

// SplitSentences cuts text after '.', '!' or '?' when followed by whitespace.
// Pieces are trimmed and empty pieces dropped.
func SplitSentences(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/80+1)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FirstSentences joins the first n sentences with single spaces.
func FirstSentences(text string, n int) string {
	sentences := SplitSentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.Join(sentences, " ")
}

func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Prefix returns at most n runes of text.
func Prefix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// Excerpt collapses whitespace and keeps the first n runes.
func Excerpt(text string, n int) string {
	return strings.TrimSpace(Prefix(CollapseWhitespace(text), n))
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
