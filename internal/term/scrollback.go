package term

// DefaultScrollbackLines is the default history bound.
const DefaultScrollbackLines = 10000

// Scrollback stores rows that have scrolled off the top of the grid, in a
// ring buffer so eviction at capacity is O(1).
type Scrollback struct {
	rows     [][]Cell
	maxLines int
	// head is the index of the oldest row, tail the next insert slot.
	head, tail int
	full       bool
}

// NewScrollback creates a scrollback bounded to maxLines rows. A
// non-positive bound falls back to DefaultScrollbackLines.
func NewScrollback(maxLines int) *Scrollback {
	if maxLines <= 0 {
		maxLines = DefaultScrollbackLines
	}
	return &Scrollback{
		rows:     make([][]Cell, maxLines),
		maxLines: maxLines,
	}
}

// Push appends a row as the newest history entry, dropping the oldest when
// the buffer is at capacity. The row is not copied; callers hand over
// ownership.
func (sb *Scrollback) Push(row []Cell) {
	if len(row) == 0 {
		return
	}
	sb.rows[sb.tail] = row
	sb.tail = (sb.tail + 1) % sb.maxLines
	if sb.full {
		sb.head = (sb.head + 1) % sb.maxLines
	}
	if sb.tail == sb.head {
		sb.full = true
	}
}

// Len returns the number of rows currently stored.
func (sb *Scrollback) Len() int {
	if sb.full {
		return sb.maxLines
	}
	if sb.tail >= sb.head {
		return sb.tail - sb.head
	}
	return sb.maxLines - sb.head + sb.tail
}

// Row returns the row at index, where 0 is the oldest entry and Len()-1 the
// newest. Out-of-range indices return nil.
func (sb *Scrollback) Row(index int) []Cell {
	if index < 0 || index >= sb.Len() {
		return nil
	}
	return sb.rows[(sb.head+index)%sb.maxLines]
}

// Rows returns all stored rows, oldest first. The returned slice is fresh
// but shares the underlying rows.
func (sb *Scrollback) Rows() [][]Cell {
	n := sb.Len()
	if n == 0 {
		return nil
	}
	out := make([][]Cell, n)
	for i := range n {
		out[i] = sb.rows[(sb.head+i)%sb.maxLines]
	}
	return out
}

// Clear drops all history.
func (sb *Scrollback) Clear() {
	sb.head, sb.tail = 0, 0
	sb.full = false
	for i := range sb.rows {
		sb.rows[i] = nil
	}
}

// MaxLines returns the history bound.
func (sb *Scrollback) MaxLines() int { return sb.maxLines }

// SetMaxLines rebounds the buffer, keeping the newest rows when shrinking.
func (sb *Scrollback) SetMaxLines(maxLines int) {
	if maxLines <= 0 {
		maxLines = DefaultScrollbackLines
	}
	if maxLines == sb.maxLines {
		return
	}
	oldLen := sb.Len()
	keep := min(oldLen, maxLines)
	next := make([][]Cell, maxLines)
	for i := range keep {
		next[i] = sb.rows[(sb.head+oldLen-keep+i)%sb.maxLines]
	}
	sb.rows = next
	sb.maxLines = maxLines
	sb.head = 0
	sb.tail = keep % maxLines
	sb.full = keep == maxLines
}
