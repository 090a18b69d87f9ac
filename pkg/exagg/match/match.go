// Package match scores cell text against search terms and picks row winners.
package match

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ukaji3/exagg-go/pkg/exagg"
)

// Mode represents how a term is matched against cell text.
type Mode string

const (
	// ModeWhole matches the term bounded by non-letters; score is the occurrence count.
	ModeWhole Mode = "whole"
	// ModePartial matches the term as a bare substring; score is the occurrence count.
	ModePartial Mode = "partial"
	// ModeLoose requires every word of the term as a whole word; score is the word count.
	ModeLoose Mode = "loose"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeWhole, ModePartial, ModeLoose:
		return m, nil
	case "":
		return ModeWhole, nil
	}
	return "", fmt.Errorf("%w: match mode %q (must be whole, partial, or loose)", exagg.ErrInvalidConfig, s)
}

// Score returns how strongly term matches text under mode; 0 means no match.
func Score(text, term string, mode Mode) int {
	text = strings.ToLower(text)
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || text == "" {
		return 0
	}

	switch mode {
	case ModePartial:
		return strings.Count(text, term)
	case ModeLoose:
		words := strings.Fields(term)
		for _, w := range words {
			if countWhole(text, w) == 0 {
				return 0
			}
		}
		return len(words)
	default:
		return countWhole(text, term)
	}
}

// countWhole counts non-overlapping occurrences of term in text that are not
// adjacent to a letter on either side. Both arguments must already be lower-cased.
func countWhole(text, term string) int {
	n := 0
	i := 0
	for i <= len(text)-len(term) {
		j := strings.Index(text[i:], term)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(term)
		if letterBoundary(text, start, end) {
			n++
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		i = start + size
	}
	return n
}

func letterBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
