package term

// ScrollView returns height rows of the composed display: offset rows of
// history above the live grid. Offset 0 is the live view; the offset is
// clamped to the history length. History rows narrower or wider than the
// grid are padded or truncated to the current width.
func (t *Terminal) ScrollView(offset int) [][]Cell {
	offset = min(max(offset, 0), t.scrollback.Len())
	rows := make([][]Cell, t.height)
	hist := t.scrollback.Len()
	for y := range t.height {
		// Logical row index in the concatenation history+grid.
		idx := hist - offset + y
		if idx < hist {
			rows[y] = t.padRow(t.scrollback.Row(idx))
			continue
		}
		rows[y] = t.Row(idx - hist)
	}
	return rows
}

func (t *Terminal) padRow(row []Cell) []Cell {
	out := make([]Cell, t.width)
	n := copy(out, row)
	empty := blank(t.palette.FG, t.palette.BG)
	for i := n; i < t.width; i++ {
		out[i] = empty
	}
	return out
}
