package match

import (
	"bufio"
	"strings"

	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// ParseMapping builds a term to key map from lines of "term : key" or a bare "key".
// Blank lines and lines starting with # are ignored. The first definition of a term wins.
func ParseMapping(text string) models.ValueToKeyMap {
	m := make(models.ValueToKeyMap)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		term, key, found := strings.Cut(line, ":")
		term = strings.TrimSpace(term)
		key = strings.TrimSpace(key)
		if !found || key == "" {
			key = term
		}
		if term == "" {
			term = key
		}
		m.Add(term, key)
	}
	return m
}
