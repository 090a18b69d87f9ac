// Package resolve replays reporting key edits onto an aggregation result
// without reading the source workbook again.
package resolve

import (
	"sort"
	"strings"

	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// Audit maps each edited key to the sorted original keys it absorbed.
type Audit map[string][]string

// Merged returns the edited keys that absorbed more than one original key.
func (a Audit) Merged() []string {
	var keys []string
	for k, originals := range a {
		if len(originals) > 1 {
			keys = append(keys, k)
		}
	}
	models.SortKeys(keys)
	return keys
}

// Resolution maps original keys to the keys they are reported under.
type Resolution map[string]string

// Key returns the resolved name of an original key; unknown keys resolve to themselves.
func (r Resolution) Key(original string) string {
	if k, ok := r[original]; ok {
		return k
	}
	return original
}

// NewResolution builds the resolution of every key present in res.
// Missing or blank edits keep the original key.
func NewResolution(res *models.AggregationResult, edits map[string]string) Resolution {
	r := make(Resolution)
	for _, k := range res.ReportKeys() {
		r[k] = k
		if e := strings.TrimSpace(edits[k]); e != "" {
			r[k] = e
		}
	}
	return r
}

// Apply returns a new result with edits applied. res is not modified.
// Counts of original keys that collapse onto the same edited key are summed, and
// totals are rebuilt from the per-sheet counts so they always agree.
func Apply(res *models.AggregationResult, edits map[string]string) (*models.AggregationResult, Audit) {
	resolution := NewResolution(res, edits)

	audit := make(Audit)
	for original, edited := range resolution {
		audit[edited] = append(audit[edited], original)
	}
	for _, originals := range audit {
		models.SortKeys(originals)
	}

	newLabel := resolution.Key(res.BlankLabel)
	out := models.NewAggregationResult(res.Mode, res.HeaderRow, newLabel)

	for sheet, counts := range res.PerSheetCounts {
		blanks := res.BlankCount(sheet)
		bucket := make(map[string]int)
		for k, n := range counts {
			if k == res.BlankLabel {
				n -= blanks
			}
			if n > 0 {
				bucket[resolution.Key(k)] += n
			}
		}
		if blanks > 0 {
			bucket[newLabel] += blanks
		}
		out.PerSheetCounts[sheet] = bucket
	}

	for _, counts := range out.PerSheetCounts {
		for k, n := range counts {
			out.TotalCounts[k] += n
		}
	}

	if res.BlankCounts != nil {
		out.BlankCounts = &models.BlankCounts{PerSheet: make(map[string]int)}
		for sheet := range res.BlankCounts.PerSheet {
			n := out.PerSheetCounts[sheet][newLabel]
			out.BlankCounts.PerSheet[sheet] = n
			out.BlankCounts.Total += n
		}
	}

	seen := make(map[string]bool)
	for _, k := range res.ReportingKeys {
		nk := resolution.Key(k)
		if !seen[nk] && out.TotalCounts[nk] > 0 {
			seen[nk] = true
			out.ReportingKeys = append(out.ReportingKeys, nk)
		}
	}
	models.SortKeys(out.ReportingKeys)

	for term, key := range res.ValueToKeyMap {
		out.ValueToKeyMap[term] = resolution.Key(key)
	}

	copyLayout(out, res)
	return out, audit
}

// copyLayout copies the scan-time fields that edits do not change.
func copyLayout(out, res *models.AggregationResult) {
	out.ProcessedSheetNames = append([]string(nil), res.ProcessedSheetNames...)
	for sheet, rows := range res.MatchingRows {
		out.MatchingRows[sheet] = append([]int(nil), rows...)
	}
	for sheet, title := range res.SheetTitles {
		out.SheetTitles[sheet] = title
	}
	for sheet, ext := range res.SheetExtents {
		out.SheetExtents[sheet] = ext
	}
	if res.SheetKeyColumnIndices != nil {
		out.SheetKeyColumnIndices = make(models.KeyColumnIndex, len(res.SheetKeyColumnIndices))
		for sheet, col := range res.SheetKeyColumnIndices {
			out.SheetKeyColumnIndices[sheet] = col
		}
	}
	out.BlankDetails = append([]models.BlankDetail(nil), res.BlankDetails...)
}

// Mappings lists every term with its scan-time and edited key, for the key mapping audit.
// Rows are grouped by reporting key in models.SortKeys order, terms ascending within a key.
func Mappings(original, edited *models.AggregationResult) []models.KeyMapping {
	terms := original.ValueToKeyMap.Terms()
	out := make([]models.KeyMapping, 0, len(terms))
	for _, term := range terms {
		reporting := edited.ValueToKeyMap[term]
		out = append(out, models.KeyMapping{
			Term:         term,
			OriginalKey:  original.ValueToKeyMap[term],
			ReportingKey: reporting,
			Count:        edited.TotalCounts[reporting],
		})
	}
	rank := keyRank(out)
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].ReportingKey] < rank[out[j].ReportingKey]
	})
	return out
}

// keyRank positions each reporting key in models.SortKeys order.
func keyRank(mappings []models.KeyMapping) map[string]int {
	var keys []string
	rank := make(map[string]int)
	for _, m := range mappings {
		if _, ok := rank[m.ReportingKey]; !ok {
			rank[m.ReportingKey] = 0
			keys = append(keys, m.ReportingKey)
		}
	}
	models.SortKeys(keys)
	for i, k := range keys {
		rank[k] = i
	}
	return rank
}
