package columns

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ukaji3/exagg-go/pkg/exagg"
)

func TestResolve(t *testing.T) {
	headers := []string{"Name", "Email", "B", "Notes"}

	tests := []struct {
		id       string
		expected int
		ok       bool
	}{
		{"name", 0, true},
		{"EMAIL", 1, true},
		{"B", 2, true}, // header match wins over letter decode
		{"A", 0, true},
		{"D", 3, true},
		{"AA", 26, true},
		{"xfd", 16383, true},
		{"XFE", 0, false},
		{"Note", 0, false}, // header typo, past XFD
		{"Status", 0, false},
		{"ABCDEFGHIJKLMNOPQRST", 0, false},
		{"3", 2, true},
		{"0", 0, false},
		{"Missing Column", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		result, ok := Resolve(tt.id, headers)
		if ok != tt.ok || (ok && result != tt.expected) {
			t.Errorf("Resolve(%q) = %d, %v, expected %d, %v", tt.id, result, ok, tt.expected, tt.ok)
		}
	}
}

func TestResolveWithoutHeaders(t *testing.T) {
	if got, ok := Resolve("z", nil); !ok || got != 25 {
		t.Errorf("Resolve(z) = %d, %v, expected 25, true", got, ok)
	}
}

func TestSpecResolve(t *testing.T) {
	headers := []string{"Name", "Email", "Phone"}

	tests := []struct {
		spec     string
		expected []int
	}{
		{"A,C,E:G", []int{0, 2, 4, 5, 6}},
		{"Name,Email", []int{0, 1}},
		{"C, A, C", []int{0, 2}},
		{"Name:Phone", []int{0, 1, 2}},
		{"2:3", []int{1, 2}},
	}

	for _, tt := range tests {
		s, err := Parse(tt.spec)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.spec, err)
		}
		result, err := s.Resolve(headers)
		if err != nil {
			t.Errorf("Resolve(%q) failed: %v", tt.spec, err)
			continue
		}
		if !reflect.DeepEqual(result, tt.expected) {
			t.Errorf("Resolve(%q) = %v, expected %v", tt.spec, result, tt.expected)
		}
	}
}

func TestSpecErrors(t *testing.T) {
	syntax := []string{"", "A,,B", "A:B:C", ":B"}
	for _, spec := range syntax {
		if _, err := Parse(spec); !errors.Is(err, exagg.ErrInvalidRange) {
			t.Errorf("Parse(%q) error = %v, expected ErrInvalidRange", spec, err)
		}
	}

	headers := []string{"Name"}
	if _, err := MustParse("Nope").Resolve(headers); !errors.Is(err, exagg.ErrColumnNotFound) {
		t.Errorf("Resolve(Nope) error = %v, expected ErrColumnNotFound", err)
	}
	if _, err := MustParse("C:A").Resolve(headers); !errors.Is(err, exagg.ErrInvalidRange) {
		t.Errorf("Resolve(C:A) error = %v, expected ErrInvalidRange", err)
	}
	if _, err := MustParse("A,B").ResolveOne(headers); !errors.Is(err, exagg.ErrInvalidRange) {
		t.Errorf("ResolveOne(A,B) error = %v, expected ErrInvalidRange", err)
	}

	var cfgErr *exagg.ConfigError
	_, err := MustParse("Nope").Resolve(headers)
	if !errors.As(err, &cfgErr) || cfgErr.Identifier != "Nope" {
		t.Errorf("expected ConfigError naming Nope, got %v", err)
	}
}
