package models

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ValueToKeyMap maps a normalized search term to its reporting key.
// Terms are trimmed and lower-cased; keys keep their original casing.
type ValueToKeyMap map[string]string

// NormalizeTerm trims and lower-cases a term for lookup.
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Lookup finds the key for text, case-insensitively.
func (m ValueToKeyMap) Lookup(text string) (string, bool) {
	k, ok := m[NormalizeTerm(text)]
	return k, ok
}

// Add maps term to key unless the term is already mapped.
// It reports whether the entry was added.
func (m ValueToKeyMap) Add(term, key string) bool {
	t := NormalizeTerm(term)
	if t == "" {
		return false
	}
	if _, exists := m[t]; exists {
		return false
	}
	m[t] = strings.TrimSpace(key)
	return true
}

// Terms returns all terms in byte order.
func (m ValueToKeyMap) Terms() []string {
	terms := make([]string, 0, len(m))
	for t := range m {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// TermsFor returns every term mapping to key, in byte order.
func (m ValueToKeyMap) TermsFor(key string) []string {
	var terms []string
	for t, k := range m {
		if k == key {
			terms = append(terms, t)
		}
	}
	sort.Strings(terms)
	return terms
}

// Clone returns an independent copy.
func (m ValueToKeyMap) Clone() ValueToKeyMap {
	out := make(ValueToKeyMap, len(m))
	for t, k := range m {
		out[t] = k
	}
	return out
}

// SortKeys sorts keys in place using locale-aware collation with numeric ordering,
// so "Item 2" sorts before "Item 10". Exact ties fall back to byte order.
func SortKeys(keys []string) {
	c := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(keys, func(i, j int) bool {
		if cmp := c.CompareString(keys[i], keys[j]); cmp != 0 {
			return cmp < 0
		}
		return keys[i] < keys[j]
	})
}
