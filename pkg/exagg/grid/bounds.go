package grid

// findDataBounds finds the bounding box of non-empty cells.
// All four values are -1 when the grid holds no data.
func findDataBounds(rows [][]any) Range {
	b := Range{FirstRow: -1, FirstCol: -1, LastRow: -1, LastCol: -1}

	for rowIdx, row := range rows {
		for colIdx, cell := range row {
			if IsBlank(cell) {
				continue
			}
			if b.FirstRow < 0 || rowIdx < b.FirstRow {
				b.FirstRow = rowIdx
			}
			if rowIdx > b.LastRow {
				b.LastRow = rowIdx
			}
			if b.FirstCol < 0 || colIdx < b.FirstCol {
				b.FirstCol = colIdx
			}
			if colIdx > b.LastCol {
				b.LastCol = colIdx
			}
		}
	}

	return b
}
