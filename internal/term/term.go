package term

import (
	"strings"

	"github.com/molt-term/molt/internal/parser"
)

// DefaultTabWidth is the distance between tab stops.
const DefaultTabWidth = 8

// Cursor is the current write position, 0-indexed, always within the grid.
type Cursor struct {
	X, Y int
}

type saved struct {
	cursor Cursor
	attrs  Attributes
}

// Snapshot is a by-value copy of the publishable display state.
type Snapshot struct {
	Width, Height    int
	CursorX, CursorY int
	CursorHidden     bool
	Cells            []Cell
}

// Terminal owns one session's grid, cursor, attributes and scrollback. It is
// not safe for concurrent use; the session worker owns it exclusively.
type Terminal struct {
	width, height int
	cells         []Cell
	cursor        Cursor
	attrs         Attributes
	saved         *saved
	palette       Palette
	scrollback    *Scrollback
	title         string

	autowrap     bool
	cursorHidden bool
	// atPhantom marks the cursor logically past the last column after a
	// print at width-1; the wrap is deferred until the next print so the
	// cursor coordinates always stay in bounds.
	atPhantom bool
}

// New creates a terminal with the given dimensions and the default palette.
// Dimensions are clamped to at least 1x1.
func New(width, height int) *Terminal {
	width = max(width, 1)
	height = max(height, 1)
	t := &Terminal{
		width:      width,
		height:     height,
		palette:    DefaultPalette(),
		scrollback: NewScrollback(DefaultScrollbackLines),
		autowrap:   true,
	}
	t.attrs = t.defaultAttrs()
	t.cells = make([]Cell, width*height)
	t.fill(t.cells, blank(t.palette.FG, t.palette.BG))
	return t
}

// SetPalette replaces the session palette. Existing cells keep the colors
// they were written with; only subsequent prints and defaults change.
func (t *Terminal) SetPalette(p Palette) {
	t.palette = p
	t.attrs = t.defaultAttrs()
}

// SetScrollbackMaxLines bounds the history buffer.
func (t *Terminal) SetScrollbackMaxLines(n int) {
	t.scrollback.SetMaxLines(n)
}

// Width returns the grid width in columns.
func (t *Terminal) Width() int { return t.width }

// Height returns the grid height in rows.
func (t *Terminal) Height() int { return t.height }

// CursorPos returns the cursor position.
func (t *Terminal) CursorPos() (x, y int) { return t.cursor.X, t.cursor.Y }

// CursorHidden reports whether DECTCEM has hidden the cursor.
func (t *Terminal) CursorHidden() bool { return t.cursorHidden }

// Attributes returns the active print attributes.
func (t *Terminal) Attributes() Attributes { return t.attrs }

// Title returns the window title set via OSC 0/2, if any.
func (t *Terminal) Title() string { return t.title }

// Palette returns the session palette.
func (t *Terminal) Palette() Palette { return t.palette }

// Scrollback returns the history buffer.
func (t *Terminal) Scrollback() *Scrollback { return t.scrollback }

// Cell returns the cell at (x, y), or a zero Cell when out of bounds.
func (t *Terminal) Cell(x, y int) Cell {
	if x < 0 || x >= t.width || y < 0 || y >= t.height {
		return Cell{}
	}
	return t.cells[y*t.width+x]
}

// Row returns a copy of row y, or nil when out of bounds.
func (t *Terminal) Row(y int) []Cell {
	if y < 0 || y >= t.height {
		return nil
	}
	row := make([]Cell, t.width)
	copy(row, t.cells[y*t.width:(y+1)*t.width])
	return row
}

// RowString renders row y as plain text, for tests and inspection.
func (t *Terminal) RowString(y int) string {
	var sb strings.Builder
	for _, c := range t.Row(y) {
		if c.Rune == 0 {
			sb.WriteRune(' ')
			continue
		}
		sb.WriteRune(c.Rune)
	}
	return strings.TrimRight(sb.String(), " ")
}

// Snapshot copies the publishable state.
func (t *Terminal) Snapshot() Snapshot {
	cells := make([]Cell, len(t.cells))
	copy(cells, t.cells)
	return Snapshot{
		Width:        t.width,
		Height:       t.height,
		CursorX:      t.cursor.X,
		CursorY:      t.cursor.Y,
		CursorHidden: t.cursorHidden,
		Cells:        cells,
	}
}

func (t *Terminal) defaultAttrs() Attributes {
	return Attributes{FG: t.palette.FG, BG: t.palette.BG}
}

func (t *Terminal) fill(cells []Cell, c Cell) {
	for i := range cells {
		cells[i] = c
	}
}

// Apply dispatches one tokenizer action. Every action is handled or
// deliberately ignored; none may panic or leave the cursor out of bounds.
func (t *Terminal) Apply(a parser.Action) {
	switch act := a.(type) {
	case parser.Print:
		t.print(act.Rune)
	case parser.Ctrl:
		t.control(act.Byte)
	case parser.Csi:
		t.dispatchCsi(act)
	case parser.Esc:
		t.dispatchEsc(act)
	case parser.Osc:
		t.dispatchOsc(act)
	case parser.Apc, parser.Dcs:
		// Graphics APC is routed by the session engine before Apply; anything
		// that reaches here is ignored.
	}
}

func (t *Terminal) print(r rune) {
	if t.atPhantom {
		t.atPhantom = false
		if t.autowrap {
			t.cursor.X = 0
			t.lineFeed()
		}
	}
	t.cells[t.cursor.Y*t.width+t.cursor.X] = Cell{
		Rune:  r,
		FG:    t.attrs.FG,
		BG:    t.attrs.BG,
		Style: t.attrs.Style,
	}
	if t.cursor.X+1 >= t.width {
		// Defer the wrap: the cursor stays on the last column until the next
		// print so it never leaves the grid.
		t.cursor.X = t.width - 1
		t.atPhantom = true
	} else {
		t.cursor.X++
	}
}

func (t *Terminal) control(b byte) {
	switch b {
	case 0x08: // BS
		t.atPhantom = false
		if t.cursor.X > 0 {
			t.cursor.X--
		}
	case 0x09: // HT
		t.atPhantom = false
		next := (t.cursor.X/DefaultTabWidth + 1) * DefaultTabWidth
		t.cursor.X = min(next, t.width-1)
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		t.atPhantom = false
		t.lineFeed()
	case 0x0D: // CR
		t.atPhantom = false
		t.cursor.X = 0
	}
}

// lineFeed moves the cursor down one row, scrolling (and evicting the top
// row into scrollback) at the bottom of the grid.
func (t *Terminal) lineFeed() {
	if t.cursor.Y+1 >= t.height {
		t.scrollUp(1)
		return
	}
	t.cursor.Y++
}

// scrollUp shifts the grid up n rows. Evicted rows are pushed into
// scrollback oldest-first; vacated rows are cleared with the default
// background.
func (t *Terminal) scrollUp(n int) {
	n = min(max(n, 1), t.height)
	for y := 0; y < n; y++ {
		row := make([]Cell, t.width)
		copy(row, t.cells[y*t.width:(y+1)*t.width])
		t.scrollback.Push(row)
	}
	copy(t.cells, t.cells[n*t.width:])
	empty := blank(t.palette.FG, t.palette.BG)
	t.fill(t.cells[(t.height-n)*t.width:], empty)
}

// reverseLineFeed moves the cursor up one row, scrolling the grid down at
// the top. Scrolled-off bottom rows are discarded, not evicted.
func (t *Terminal) reverseLineFeed() {
	if t.cursor.Y > 0 {
		t.cursor.Y--
		return
	}
	copy2 := make([]Cell, len(t.cells))
	copy(copy2[t.width:], t.cells[:len(t.cells)-t.width])
	t.cells = copy2
	t.fill(t.cells[:t.width], blank(t.palette.FG, t.palette.BG))
}

func (t *Terminal) dispatchEsc(e parser.Esc) {
	switch e.Final {
	case '7':
		t.saveCursor()
	case '8':
		t.restoreCursor()
	case 'D':
		t.lineFeed()
	case 'E':
		t.cursor.X = 0
		t.atPhantom = false
		t.lineFeed()
	case 'M':
		t.atPhantom = false
		t.reverseLineFeed()
	case 'c': // RIS
		t.hardReset()
	}
}

func (t *Terminal) dispatchOsc(o parser.Osc) {
	if o.Truncated {
		return
	}
	s := string(o.Payload)
	// OSC 0 and 2 set the window title.
	if rest, ok := strings.CutPrefix(s, "0;"); ok {
		t.title = rest
	} else if rest, ok := strings.CutPrefix(s, "2;"); ok {
		t.title = rest
	}
}

func (t *Terminal) dispatchCsi(c parser.Csi) {
	if c.Private != 0 {
		t.dispatchPrivateCsi(c)
		return
	}
	switch c.Final {
	case 'A': // CUU
		t.moveCursor(0, -max(c.Param(0, 1), 1))
	case 'B', 'e': // CUD, VPR
		t.moveCursor(0, max(c.Param(0, 1), 1))
	case 'C', 'a': // CUF, HPR
		t.moveCursor(max(c.Param(0, 1), 1), 0)
	case 'D': // CUB
		t.moveCursor(-max(c.Param(0, 1), 1), 0)
	case 'E': // CNL
		t.setCursor(0, t.cursor.Y+max(c.Param(0, 1), 1))
	case 'F': // CPL
		t.setCursor(0, t.cursor.Y-max(c.Param(0, 1), 1))
	case 'G', '`': // CHA, HPA
		t.setCursor(max(c.Param(0, 1), 1)-1, t.cursor.Y)
	case 'd': // VPA
		t.setCursor(t.cursor.X, max(c.Param(0, 1), 1)-1)
	case 'H', 'f': // CUP, HVP: 1-indexed on the wire
		row := max(c.Param(0, 1), 1)
		col := max(c.Param(1, 1), 1)
		t.setCursor(col-1, row-1)
	case 'J':
		t.eraseInDisplay(c.Param(0, 0))
	case 'K':
		t.eraseInLine(c.Param(0, 0))
	case 'm':
		t.applySGR(c.Params)
	case 's':
		t.saveCursor()
	case 'u':
		t.restoreCursor()
	}
}

func (t *Terminal) dispatchPrivateCsi(c parser.Csi) {
	if c.Private != '?' {
		return
	}
	set := c.Final == 'h'
	if c.Final != 'h' && c.Final != 'l' {
		return
	}
	for i := range c.Params {
		switch c.Param(i, 0) {
		case 7: // DECAWM
			t.autowrap = set
			t.atPhantom = false
		case 25: // DECTCEM
			t.cursorHidden = !set
		}
	}
}

// moveCursor moves relative to the current position, clamped to the grid.
func (t *Terminal) moveCursor(dx, dy int) {
	t.setCursor(t.cursor.X+dx, t.cursor.Y+dy)
}

// setCursor places the cursor, defensively clamping both axes.
func (t *Terminal) setCursor(x, y int) {
	t.cursor.X = min(max(x, 0), t.width-1)
	t.cursor.Y = min(max(y, 0), t.height-1)
	t.atPhantom = false
}

func (t *Terminal) saveCursor() {
	t.saved = &saved{cursor: t.cursor, attrs: t.attrs}
}

func (t *Terminal) restoreCursor() {
	if t.saved == nil {
		t.setCursor(0, 0)
		t.attrs = t.defaultAttrs()
		return
	}
	t.cursor = t.saved.cursor
	t.attrs = t.saved.attrs
	t.setCursor(t.cursor.X, t.cursor.Y) // re-clamp in case of a resize since save
}

// eraseInDisplay clears part of the grid. Cleared cells take the current
// background, not the default.
func (t *Terminal) eraseInDisplay(mode int) {
	empty := blank(t.palette.FG, t.attrs.BG)
	pos := t.cursor.Y*t.width + t.cursor.X
	switch mode {
	case 0: // cursor to end
		t.fill(t.cells[pos:], empty)
	case 1: // start through cursor
		t.fill(t.cells[:pos+1], empty)
	case 2, 3: // all
		t.fill(t.cells, empty)
	}
}

func (t *Terminal) eraseInLine(mode int) {
	empty := blank(t.palette.FG, t.attrs.BG)
	start := t.cursor.Y * t.width
	end := start + t.width
	pos := start + t.cursor.X
	switch mode {
	case 0:
		t.fill(t.cells[pos:end], empty)
	case 1:
		t.fill(t.cells[start:pos+1], empty)
	case 2:
		t.fill(t.cells[start:end], empty)
	}
}

// hardReset implements RIS: grid, cursor, attributes, modes and scrollback
// all return to their session-start state.
func (t *Terminal) hardReset() {
	t.attrs = t.defaultAttrs()
	t.fill(t.cells, blank(t.palette.FG, t.palette.BG))
	t.cursor = Cursor{}
	t.saved = nil
	t.autowrap = true
	t.cursorHidden = false
	t.atPhantom = false
	t.title = ""
	t.scrollback.Clear()
}

// Resize changes the grid dimensions. Shrinking the height scrolls excess
// top rows into scrollback so the cursor row survives; shrinking the width
// discards cells beyond the new bound; growing pads with blanks.
func (t *Terminal) Resize(width, height int) {
	width = max(width, 1)
	height = max(height, 1)
	if width == t.width && height == t.height {
		return
	}

	if height < t.height && t.cursor.Y >= height {
		t.scrollUp(t.cursor.Y - (height - 1))
		t.cursor.Y = height - 1
	}

	next := make([]Cell, width*height)
	t.fill(next, blank(t.palette.FG, t.palette.BG))
	for y := 0; y < min(height, t.height); y++ {
		copy(next[y*width:y*width+min(width, t.width)], t.cells[y*t.width:y*t.width+min(width, t.width)])
	}
	t.cells = next
	t.width = width
	t.height = height
	t.setCursor(t.cursor.X, t.cursor.Y)
}
