package match

import "strings"

// Interpolate replaces each {identifier} in tmpl with lookup(identifier).
// Identifiers are looked up as written; when lookup reports false the token is
// kept verbatim. There is no nesting, escaping, or expression support.
func Interpolate(tmpl string, lookup func(string) (string, bool)) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[open+1:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			break
		}
		end += open + 1

		b.WriteString(tmpl[:open])
		name := strings.TrimSpace(tmpl[open+1 : end])
		if v, ok := lookup(name); ok && name != "" && !strings.ContainsAny(name, "{") {
			b.WriteString(v)
		} else {
			b.WriteString(tmpl[open : end+1])
		}
		tmpl = tmpl[end+1:]
	}
	return b.String()
}

// RowLookup resolves identifiers against a header row (case-insensitive).
// The special identifier _row yields rowNumber.
func RowLookup(headers []string, values []string, rowNumber string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if name == "_row" {
			return rowNumber, true
		}
		for i, h := range headers {
			if strings.EqualFold(h, name) {
				if i < len(values) {
					return values[i], true
				}
				return "", true
			}
		}
		return "", false
	}
}
