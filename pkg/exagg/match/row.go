package match

import (
	"strings"

	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// Hit is the winning key of a row and what triggered it.
type Hit struct {
	Key    string
	Score  int
	Term   string
	Column int
	Text   string
}

type termEntry struct {
	term string
	key  string
}

// RowMatcher scores rows against every term of a mapping.
type RowMatcher struct {
	terms []termEntry
	mode  Mode
}

// NewRowMatcher prepares a matcher; terms are visited in byte order.
func NewRowMatcher(m models.ValueToKeyMap, mode Mode) *RowMatcher {
	rm := &RowMatcher{mode: mode}
	for _, t := range m.Terms() {
		rm.terms = append(rm.terms, termEntry{term: t, key: m[t]})
	}
	return rm
}

// Match scores the cells of row in cols. Each key keeps its best score over all
// columns and terms; the winner has the highest score, ties going to the
// lexicographically smallest key.
func (rm *RowMatcher) Match(row []any, cols []int) (Hit, bool) {
	best := make(map[string]Hit)
	for _, col := range cols {
		text := grid.Text(grid.At(row, col))
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, te := range rm.terms {
			score := Score(text, te.term, rm.mode)
			if score == 0 {
				continue
			}
			if prev, ok := best[te.key]; ok && prev.Score >= score {
				continue
			}
			best[te.key] = Hit{Key: te.key, Score: score, Term: te.term, Column: col, Text: text}
		}
	}
	return Winner(best)
}

// Winner picks the highest score, breaking ties by ascending key.
func Winner(hits map[string]Hit) (Hit, bool) {
	var win Hit
	found := false
	for key, h := range hits {
		if h.Score <= 0 {
			continue
		}
		if !found || h.Score > win.Score || (h.Score == win.Score && key < win.Key) {
			win = h
			found = true
		}
	}
	return win, found
}
