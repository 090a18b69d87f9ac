package match

import (
	"errors"
	"testing"

	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		text     string
		term     string
		mode     Mode
		expected int
	}{
		{"Catering", "cat", ModeWhole, 0},
		{"Catering", "cat", ModePartial, 1},
		{"cat, Cat and CAT", "cat", ModeWhole, 3},
		{"concat cat", "cat", ModePartial, 2},
		{"cat2cat", "cat", ModeWhole, 2}, // digits are not letters
		{"café latte", "café", ModeWhole, 1},
		{"cafés", "café", ModeWhole, 0},
		{"the big, blue whale", "big blue", ModeLoose, 2},
		{"big red whale", "big blue", ModeLoose, 0},
		{"Big Blue", "big  blue", ModeLoose, 2},
		{"anything", "", ModeWhole, 0},
		{"", "cat", ModePartial, 0},
	}

	for _, tt := range tests {
		result := Score(tt.text, tt.term, tt.mode)
		if result != tt.expected {
			t.Errorf("Score(%q, %q, %s) = %d, expected %d", tt.text, tt.term, tt.mode, result, tt.expected)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Loose "); err != nil || m != ModeLoose {
		t.Errorf("ParseMode(Loose) = %q, %v", m, err)
	}
	if m, err := ParseMode(""); err != nil || m != ModeWhole {
		t.Errorf("ParseMode(\"\") = %q, %v", m, err)
	}
	if _, err := ParseMode("fuzzy"); !errors.Is(err, exagg.ErrInvalidConfig) {
		t.Errorf("ParseMode(fuzzy) error = %v", err)
	}
}

func TestParseMapping(t *testing.T) {
	m := ParseMapping(`
# comment
Apple : Fruit-A
  BANANA:Fruit-B
Widget
apple : Other
pear:
`)
	expected := models.ValueToKeyMap{
		"apple":  "Fruit-A",
		"banana": "Fruit-B",
		"widget": "Widget",
		"pear":   "pear",
	}
	if len(m) != len(expected) {
		t.Fatalf("ParseMapping = %v, expected %v", m, expected)
	}
	for term, key := range expected {
		if m[term] != key {
			t.Errorf("m[%q] = %q, expected %q", term, m[term], key)
		}
	}
	if k, ok := m.Lookup("  Banana "); !ok || k != "Fruit-B" {
		t.Errorf("Lookup(Banana) = %q, %v", k, ok)
	}
}

func TestRowMatcherTieBreak(t *testing.T) {
	m := models.ValueToKeyMap{"acme": "Zeta", "corp": "Alpha"}
	rm := NewRowMatcher(m, ModeWhole)

	hit, ok := rm.Match([]any{"Acme Corp"}, []int{0})
	if !ok {
		t.Fatal("expected a match")
	}
	if hit.Key != "Alpha" {
		t.Errorf("winner = %q, expected Alpha", hit.Key)
	}
}

func TestRowMatcherMaxNotAdditive(t *testing.T) {
	m := models.ValueToKeyMap{"red": "Red", "blue": "Blue"}
	rm := NewRowMatcher(m, ModeWhole)

	// Red appears once in each of two columns; Blue twice in one column.
	row := []any{"red", "red", "blue blue"}
	hit, ok := rm.Match(row, []int{0, 1, 2})
	if !ok {
		t.Fatal("expected a match")
	}
	if hit.Key != "Blue" || hit.Score != 2 || hit.Column != 2 {
		t.Errorf("hit = %+v, expected Blue with score 2 in column 2", hit)
	}
}

func TestRowMatcherIgnoresOtherColumns(t *testing.T) {
	rm := NewRowMatcher(models.ValueToKeyMap{"apple": "Fruit"}, ModeWhole)
	if _, ok := rm.Match([]any{"apple", "pie"}, []int{1}); ok {
		t.Error("matched a column outside the search set")
	}
	if _, ok := rm.Match([]any{int64(5)}, []int{0, 3}); ok {
		t.Error("matched a row without terms")
	}
}

func TestInterpolate(t *testing.T) {
	lookup := RowLookup([]string{"Name", "City"}, []string{"Ann", "Oslo"}, "7")

	tests := []struct {
		tmpl     string
		expected string
	}{
		{"Duplicate of row {_row}: {Name}", "Duplicate of row 7: Ann"},
		{"{name} in {CITY}", "Ann in Oslo"},
		{"{Unknown} stays", "{Unknown} stays"},
		{"no tokens", "no tokens"},
		{"open { only", "open { only"},
		{"{Name}{City}", "AnnOslo"},
	}

	for _, tt := range tests {
		if result := Interpolate(tt.tmpl, lookup); result != tt.expected {
			t.Errorf("Interpolate(%q) = %q, expected %q", tt.tmpl, result, tt.expected)
		}
	}
}
