// Package columns resolves user column references to 0-indexed columns.
package columns

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/xuri/excelize/v2"
)

// Resolve maps identifier to a 0-indexed column.
// A case-insensitive header match wins, then a column letter (A=0) up to XFD, then a
// 1-based number. Letters past XFD, such as a mistyped header, do not resolve.
func Resolve(identifier string, headers []string) (int, bool) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return 0, false
	}

	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), id) {
			return i, true
		}
	}

	if isLetters(id) {
		n, err := excelize.ColumnNameToNumber(id)
		if err != nil {
			return 0, false
		}
		return n - 1, true
	}

	if isDigits(id) {
		n, err := strconv.Atoi(id)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n - 1, true
	}

	return 0, false
}

func isLetters(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// token is one element of a column list: a single reference or a start:end span.
type token struct {
	start string
	end   string
}

func (t token) String() string {
	if t.end == "" {
		return t.start
	}
	return t.start + ":" + t.end
}

// Spec is a parsed column list such as "A,C,E:G" or "Name,Email".
type Spec struct {
	raw    string
	tokens []token
}

// Parse checks the syntax of a comma-separated column list.
func Parse(spec string) (Spec, error) {
	s := Spec{raw: spec}
	if strings.TrimSpace(spec) == "" {
		return s, exagg.NewConfigError("", spec, fmt.Errorf("%w: empty column list", exagg.ErrInvalidRange))
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return s, exagg.NewConfigError("", spec, fmt.Errorf("%w: empty column token", exagg.ErrInvalidRange))
		}
		bounds := strings.Split(part, ":")
		switch len(bounds) {
		case 1:
			s.tokens = append(s.tokens, token{start: part})
		case 2:
			start, end := strings.TrimSpace(bounds[0]), strings.TrimSpace(bounds[1])
			if start == "" || end == "" {
				return s, exagg.NewConfigError("", part, fmt.Errorf("%w: incomplete span", exagg.ErrInvalidRange))
			}
			s.tokens = append(s.tokens, token{start: start, end: end})
		default:
			return s, exagg.NewConfigError("", part, fmt.Errorf("%w: too many ':'", exagg.ErrInvalidRange))
		}
	}
	return s, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(spec string) Spec {
	s, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the original list text.
func (s Spec) String() string {
	return s.raw
}

// IsZero reports whether the spec was never parsed.
func (s Spec) IsZero() bool {
	return len(s.tokens) == 0
}

// Resolve expands the list against headers into deduplicated ascending indices.
func (s Spec) Resolve(headers []string) ([]int, error) {
	seen := make(map[int]bool)
	for _, tok := range s.tokens {
		start, ok := Resolve(tok.start, headers)
		if !ok {
			return nil, exagg.NewConfigError("", tok.String(), exagg.ErrColumnNotFound)
		}
		if tok.end == "" {
			seen[start] = true
			continue
		}
		end, ok := Resolve(tok.end, headers)
		if !ok {
			return nil, exagg.NewConfigError("", tok.String(), exagg.ErrColumnNotFound)
		}
		if start > end {
			return nil, exagg.NewConfigError("", tok.String(), fmt.Errorf("%w: start after end", exagg.ErrInvalidRange))
		}
		for i := start; i <= end; i++ {
			seen[i] = true
		}
	}

	cols := make([]int, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols, nil
}

// ResolveOne resolves a spec that must name exactly one column.
func (s Spec) ResolveOne(headers []string) (int, error) {
	cols, err := s.Resolve(headers)
	if err != nil {
		return 0, err
	}
	if len(cols) != 1 {
		return 0, exagg.NewConfigError("", s.raw, fmt.Errorf("%w: expected a single column", exagg.ErrInvalidRange))
	}
	return cols[0], nil
}
