package term

import (
	"testing"

	"github.com/molt-term/molt/internal/parser"
)

// feed runs raw bytes through a fresh tokenizer into the terminal.
func feed(t *Terminal, data string) {
	p := parser.New()
	for _, a := range p.Advance([]byte(data)) {
		t.Apply(a)
	}
}

func TestPrintAdvancesCursor(t *testing.T) {
	term := New(10, 4)
	feed(term, "abc")
	if got := term.RowString(0); got != "abc" {
		t.Errorf("row 0 = %q, want %q", got, "abc")
	}
	if x, y := term.CursorPos(); x != 3 || y != 0 {
		t.Errorf("cursor at (%d,%d), want (3,0)", x, y)
	}
}

func TestRedTextThenReset(t *testing.T) {
	term := New(20, 4)
	feed(term, "\x1b[31mHello\x1b[0m")

	red := term.Palette().ANSI[1]
	for x := 0; x < 5; x++ {
		c := term.Cell(x, 0)
		if c.FG != red {
			t.Errorf("cell %d: fg %#08x, want red %#08x", x, c.FG, red)
		}
	}
	if c := term.Cell(5, 0); c.Rune != ' ' || c.FG != term.Palette().FG {
		t.Errorf("cell 5 should be a default blank, got %+v", c)
	}
	if got := term.RowString(0); got != "Hello" {
		t.Errorf("row 0 = %q, want %q", got, "Hello")
	}
	if attrs := term.Attributes(); attrs != (Attributes{FG: term.Palette().FG, BG: term.Palette().BG}) {
		t.Errorf("attributes not reset: %+v", attrs)
	}
}

func TestAutowrapEvictsToScrollback(t *testing.T) {
	term := New(80, 1)
	line := make([]byte, 0, 200)
	for i := 0; i < 200; i++ {
		line = append(line, byte('a'+i%26))
	}
	feed(term, string(line))

	if got := term.Scrollback().Len(); got != 2 {
		t.Fatalf("scrollback has %d rows, want 2", got)
	}
	first := term.Scrollback().Row(0)
	for x := 0; x < 80; x++ {
		if want := rune('a' + x%26); first[x].Rune != want {
			t.Fatalf("evicted row cell %d = %q, want %q", x, first[x].Rune, want)
		}
	}
	// 200 = 2*80 + 40 printed on the live row.
	if x, _ := term.CursorPos(); x != 40 {
		t.Errorf("cursor x = %d, want 40", x)
	}
}

func TestPhantomCursorStaysInBounds(t *testing.T) {
	term := New(5, 2)
	feed(term, "abcde")
	if x, y := term.CursorPos(); x != 4 || y != 0 {
		t.Errorf("cursor at (%d,%d) after filling row, want (4,0)", x, y)
	}
	feed(term, "f")
	if x, y := term.CursorPos(); x != 1 || y != 1 {
		t.Errorf("cursor at (%d,%d) after wrap, want (1,1)", x, y)
	}
	if got := term.RowString(1); got != "f" {
		t.Errorf("row 1 = %q, want %q", got, "f")
	}
}

func TestAutowrapDisabled(t *testing.T) {
	term := New(5, 2)
	feed(term, "\x1b[?7labcdefg")
	if got := term.RowString(0); got != "abcdg" {
		t.Errorf("row 0 = %q, want last column overwritten %q", got, "abcdg")
	}
	if x, y := term.CursorPos(); x != 4 || y != 0 {
		t.Errorf("cursor at (%d,%d), want pinned at (4,0)", x, y)
	}
}

func TestCursorMovementClamping(t *testing.T) {
	tests := []struct {
		name  string
		input string
		x, y  int
	}{
		{"cup", "\x1b[3;5H", 4, 2},
		{"cup omitted", "\x1b[H", 0, 0},
		{"cup zero treated as one", "\x1b[0;0H", 0, 0},
		{"cup beyond grid", "\x1b[99;99H", 9, 4},
		{"cuu clamps at top", "\x1b[5A", 0, 0},
		{"cud", "\x1b[2B", 0, 2},
		{"cuf", "\x1b[3C", 3, 0},
		{"cub clamps at left", "\x1b[7D", 0, 0},
		{"cha", "\x1b[8G", 7, 0},
		{"vpa", "\x1b[3d", 0, 2},
		{"hvp", "\x1b[2;2f", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := New(10, 5)
			feed(term, tt.input)
			if x, y := term.CursorPos(); x != tt.x || y != tt.y {
				t.Errorf("cursor at (%d,%d), want (%d,%d)", x, y, tt.x, tt.y)
			}
		})
	}
}

func TestClearScreenAndHome(t *testing.T) {
	term := New(10, 3)
	feed(term, "one\r\ntwo\r\nthree")
	feed(term, "\x1b[2J\x1b[H")
	for y := 0; y < 3; y++ {
		if got := term.RowString(y); got != "" {
			t.Errorf("row %d = %q after clear, want empty", y, got)
		}
	}
	if x, y := term.CursorPos(); x != 0 || y != 0 {
		t.Errorf("cursor at (%d,%d), want (0,0)", x, y)
	}
}

func TestEraseUsesCurrentBackground(t *testing.T) {
	term := New(10, 2)
	feed(term, "\x1b[44m\x1b[2J")
	blue := term.Palette().ANSI[4]
	c := term.Cell(5, 1)
	if c.BG != blue {
		t.Errorf("cleared cell bg %#08x, want blue %#08x", c.BG, blue)
	}
	if c.Rune != ' ' {
		t.Errorf("cleared cell rune %q, want space", c.Rune)
	}
}

func TestEraseInDisplayModes(t *testing.T) {
	fill := func() *Terminal {
		term := New(5, 3)
		feed(term, "aaaaabbbbbccccc")
		feed(term, "\x1b[2;3H") // cursor at (2,1)
		return term
	}

	t.Run("to end", func(t *testing.T) {
		term := fill()
		feed(term, "\x1b[J")
		if got := term.RowString(0); got != "aaaaa" {
			t.Errorf("row 0 = %q, want untouched", got)
		}
		if got := term.RowString(1); got != "bb" {
			t.Errorf("row 1 = %q, want %q", got, "bb")
		}
		if got := term.RowString(2); got != "" {
			t.Errorf("row 2 = %q, want empty", got)
		}
	})
	t.Run("to cursor inclusive", func(t *testing.T) {
		term := fill()
		feed(term, "\x1b[1J")
		if got := term.RowString(0); got != "" {
			t.Errorf("row 0 = %q, want empty", got)
		}
		if got := term.RowString(1); got != "   bb" {
			t.Errorf("row 1 = %q, want %q", got, "   bb")
		}
		if got := term.RowString(2); got != "ccccc" {
			t.Errorf("row 2 = %q, want untouched", got)
		}
	})
	t.Run("all leaves cursor", func(t *testing.T) {
		term := fill()
		feed(term, "\x1b[2J")
		if x, y := term.CursorPos(); x != 2 || y != 1 {
			t.Errorf("cursor moved to (%d,%d) during ED2", x, y)
		}
	})
}

func TestEraseInLine(t *testing.T) {
	tests := []struct {
		name, seq, want string
	}{
		{"to end", "\x1b[K", "ab"},
		{"to cursor", "\x1b[1K", "   de"},
		{"whole line", "\x1b[2K", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := New(5, 2)
			feed(term, "abcde\x1b[1;3H"+tt.seq)
			if got := term.RowString(0); got != tt.want {
				t.Errorf("row 0 = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSaveRestoreCursor(t *testing.T) {
	term := New(10, 5)
	feed(term, "\x1b[3;4H\x1b[31m\x1b[s\x1b[H\x1b[0m\x1b[u")
	if x, y := term.CursorPos(); x != 3 || y != 2 {
		t.Errorf("cursor at (%d,%d) after restore, want (3,2)", x, y)
	}
	if fg := term.Attributes().FG; fg != term.Palette().ANSI[1] {
		t.Errorf("restored fg %#08x, want red", fg)
	}
}

func TestRestoreWithoutSave(t *testing.T) {
	term := New(10, 5)
	feed(term, "\x1b[3;4H\x1b[u")
	if x, y := term.CursorPos(); x != 0 || y != 0 {
		t.Errorf("cursor at (%d,%d), want home", x, y)
	}
}

func TestDecscRestore(t *testing.T) {
	term := New(10, 5)
	feed(term, "\x1b[2;2H\x1b7\x1b[5;5H\x1b8")
	if x, y := term.CursorPos(); x != 1 || y != 1 {
		t.Errorf("cursor at (%d,%d) after DECRC, want (1,1)", x, y)
	}
}

func TestTabStops(t *testing.T) {
	term := New(20, 2)
	feed(term, "a\tb")
	if got := term.RowString(0); got != "a       b" {
		t.Errorf("row 0 = %q", got)
	}
	// Tab near the right edge clamps to the last column.
	term2 := New(10, 2)
	feed(term2, "\x1b[1;9H\t")
	if x, _ := term2.CursorPos(); x != 9 {
		t.Errorf("tab at edge: cursor x = %d, want 9", x)
	}
}

func TestCursorVisibility(t *testing.T) {
	term := New(10, 2)
	if term.CursorHidden() {
		t.Fatal("cursor hidden at start")
	}
	feed(term, "\x1b[?25l")
	if !term.CursorHidden() {
		t.Error("cursor still visible after DECTCEM reset")
	}
	feed(term, "\x1b[?25h")
	if term.CursorHidden() {
		t.Error("cursor still hidden after DECTCEM set")
	}
}

func TestWindowTitle(t *testing.T) {
	term := New(10, 2)
	feed(term, "\x1b]2;molt demo\x07")
	if got := term.Title(); got != "molt demo" {
		t.Errorf("title %q, want %q", got, "molt demo")
	}
	feed(term, "\x1b]0;renamed\x1b\\")
	if got := term.Title(); got != "renamed" {
		t.Errorf("title %q, want %q", got, "renamed")
	}
}

func TestHardReset(t *testing.T) {
	term := New(10, 3)
	feed(term, "\x1b[31mtext\x1b[?25l\x1b]2;t\x07")
	for i := 0; i < 5; i++ {
		feed(term, "line\r\n")
	}
	feed(term, "\x1bc")
	if got := term.RowString(0); got != "" {
		t.Errorf("row 0 = %q after RIS", got)
	}
	if x, y := term.CursorPos(); x != 0 || y != 0 {
		t.Errorf("cursor at (%d,%d) after RIS", x, y)
	}
	if term.CursorHidden() {
		t.Error("cursor still hidden after RIS")
	}
	if term.Scrollback().Len() != 0 {
		t.Error("scrollback survived RIS")
	}
	if term.Title() != "" {
		t.Error("title survived RIS")
	}
}

func TestReverseLineFeed(t *testing.T) {
	term := New(5, 3)
	feed(term, "one\r\ntwo\r\n")
	feed(term, "\x1bM\x1bM\x1bM") // third RI scrolls down at the top
	if got := term.RowString(0); got != "" {
		t.Errorf("row 0 = %q, want blank scrolled-in row", got)
	}
	if got := term.RowString(1); got != "one" {
		t.Errorf("row 1 = %q, want %q", got, "one")
	}
}

func TestResizeShrinkHeightKeepsCursorRow(t *testing.T) {
	term := New(10, 4)
	feed(term, "a\r\nb\r\nc\r\nd")
	term.Resize(10, 2)
	if got := term.RowString(1); got != "d" {
		t.Errorf("row 1 = %q, want cursor row %q", got, "d")
	}
	if x, y := term.CursorPos(); y != 1 || x != 1 {
		t.Errorf("cursor at (%d,%d), want (1,1)", x, y)
	}
	// The two rows scrolled off the top land in history.
	if term.Scrollback().Len() != 2 {
		t.Errorf("scrollback %d rows, want 2", term.Scrollback().Len())
	}
}

func TestResizeGrowPads(t *testing.T) {
	term := New(4, 2)
	feed(term, "abcd")
	term.Resize(8, 3)
	if got := term.RowString(0); got != "abcd" {
		t.Errorf("row 0 = %q after grow", got)
	}
	if c := term.Cell(6, 2); c.Rune != ' ' {
		t.Errorf("padded cell %+v, want blank", c)
	}
}

func TestResizeShrinkWidthClampsCursor(t *testing.T) {
	term := New(10, 2)
	feed(term, "\x1b[1;9H")
	term.Resize(4, 2)
	if x, _ := term.CursorPos(); x != 3 {
		t.Errorf("cursor x = %d after shrink, want 3", x)
	}
}

func TestSGRRoundTrip(t *testing.T) {
	term := New(10, 2)
	want := Attributes{FG: RGB(10, 200, 30), BG: RGB(250, 1, 128), Style: StyleBold | StyleUnderline}
	feed(term, want.SGR())
	if got := term.Attributes(); got != want {
		t.Errorf("round trip gave %+v, want %+v", got, want)
	}
}

func TestSGRRoundTripExhaustive(t *testing.T) {
	term := New(10, 2)
	allStyles := StyleBold | StyleItalic | StyleUnderline | StyleInverse | StyleDim | StyleStrike

	// Every style-flag combination.
	for mask := StyleFlags(0); mask <= allStyles; mask++ {
		want := Attributes{FG: RGB(10, 200, 30), BG: RGB(250, 1, 128), Style: mask}
		feed(term, want.SGR())
		if got := term.Attributes(); got != want {
			t.Fatalf("style %06b: round trip gave %+v, want %+v", mask, got, want)
		}
	}

	// Sweep each color channel across its range.
	for r := 0; r < 256; r += 51 {
		for g := 0; g < 256; g += 51 {
			for b := 0; b < 256; b += 51 {
				want := Attributes{
					FG:    RGB(uint8(r), uint8(g), uint8(b)),
					BG:    RGB(uint8(b), uint8(r), uint8(g)),
					Style: StyleItalic,
				}
				feed(term, want.SGR())
				if got := term.Attributes(); got != want {
					t.Fatalf("rgb(%d,%d,%d): round trip gave %+v, want %+v", r, g, b, got, want)
				}
			}
		}
	}
}

func TestSGRZeroIdempotent(t *testing.T) {
	term := New(10, 2)
	feed(term, "\x1b[0m")
	first := term.Attributes()
	feed(term, "\x1b[0m\x1b[0m")
	if got := term.Attributes(); got != first {
		t.Errorf("repeated SGR 0 changed attributes: %+v vs %+v", got, first)
	}
	if first != (Attributes{FG: term.Palette().FG, BG: term.Palette().BG}) {
		t.Errorf("SGR 0 is not the default state: %+v", first)
	}
}

func TestSGRTable(t *testing.T) {
	pal := DefaultPalette()
	tests := []struct {
		name string
		seq  string
		want Attributes
	}{
		{"bold red", "\x1b[1;31m", Attributes{FG: pal.ANSI[1], BG: pal.BG, Style: StyleBold}},
		{"bright green fg", "\x1b[92m", Attributes{FG: pal.ANSI[10], BG: pal.BG}},
		{"bg cyan", "\x1b[46m", Attributes{FG: pal.FG, BG: pal.ANSI[6]}},
		{"bright bg", "\x1b[103m", Attributes{FG: pal.FG, BG: pal.ANSI[11]}},
		{"truecolor fg", "\x1b[38;2;1;2;3m", Attributes{FG: RGB(1, 2, 3), BG: pal.BG}},
		{"indexed fg", "\x1b[38;5;1m", Attributes{FG: pal.ANSI[1], BG: pal.BG}},
		{"default fg after red", "\x1b[31;39m", Attributes{FG: pal.FG, BG: pal.BG}},
		{"default bg after blue", "\x1b[44;49m", Attributes{FG: pal.FG, BG: pal.BG}},
		{"inverse strike", "\x1b[7;9m", Attributes{FG: pal.FG, BG: pal.BG, Style: StyleInverse | StyleStrike}},
		{"clear bold keeps italic", "\x1b[1;3;22m", Attributes{FG: pal.FG, BG: pal.BG, Style: StyleItalic}},
		{"unknown ignored", "\x1b[31;99m", Attributes{FG: pal.ANSI[1], BG: pal.BG}},
		{"empty resets", "\x1b[31m\x1b[m", Attributes{FG: pal.FG, BG: pal.BG}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := New(10, 2)
			feed(term, tt.seq)
			if got := term.Attributes(); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScrollViewComposition(t *testing.T) {
	term := New(5, 2)
	feed(term, "one\r\ntwo\r\nthree\r\nfour")
	// Grid shows three/four; one and two are history.
	if term.Scrollback().Len() != 2 {
		t.Fatalf("scrollback %d rows, want 2", term.Scrollback().Len())
	}

	live := term.ScrollView(0)
	if got := rowText(live[0]); got != "three" {
		t.Errorf("live view row 0 = %q", got)
	}

	back := term.ScrollView(1)
	if got := rowText(back[0]); got != "two" {
		t.Errorf("offset 1 row 0 = %q, want %q", got, "two")
	}
	if got := rowText(back[1]); got != "three" {
		t.Errorf("offset 1 row 1 = %q, want %q", got, "three")
	}

	// Offset beyond history clamps.
	top := term.ScrollView(99)
	if got := rowText(top[0]); got != "one" {
		t.Errorf("clamped view row 0 = %q, want %q", got, "one")
	}
}

func rowText(row []Cell) string {
	runes := make([]rune, 0, len(row))
	for _, c := range row {
		runes = append(runes, c.Rune)
	}
	for len(runes) > 0 && runes[len(runes)-1] == ' ' {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

func TestSnapshotIsACopy(t *testing.T) {
	term := New(5, 2)
	feed(term, "abc")
	snap := term.Snapshot()
	feed(term, "\x1b[2J")
	if snap.Cells[0].Rune != 'a' {
		t.Error("snapshot mutated by later writes")
	}
	if snap.Width != 5 || snap.Height != 2 || snap.CursorX != 3 {
		t.Errorf("snapshot header %+v", snap)
	}
}

func TestScrollbackBound(t *testing.T) {
	term := New(5, 1)
	term.SetScrollbackMaxLines(3)
	for i := 0; i < 10; i++ {
		feed(term, "x\r\n")
	}
	if got := term.Scrollback().Len(); got != 3 {
		t.Errorf("scrollback %d rows, want bound 3", got)
	}
}

func TestScrollbackRing(t *testing.T) {
	sb := NewScrollback(3)
	push := func(r rune) {
		sb.Push([]Cell{{Rune: r}})
	}
	push('a')
	push('b')
	if sb.Len() != 2 {
		t.Fatalf("len %d, want 2", sb.Len())
	}
	push('c')
	push('d') // evicts a
	if sb.Len() != 3 {
		t.Fatalf("len %d, want 3", sb.Len())
	}
	want := []rune{'b', 'c', 'd'}
	for i, r := range want {
		if got := sb.Row(i); got[0].Rune != r {
			t.Errorf("row %d = %q, want %q", i, got[0].Rune, r)
		}
	}
	if sb.Row(3) != nil || sb.Row(-1) != nil {
		t.Error("out-of-range rows should be nil")
	}

	sb.SetMaxLines(2) // keeps newest
	if sb.Len() != 2 {
		t.Fatalf("len %d after rebound, want 2", sb.Len())
	}
	if got := sb.Row(0); got[0].Rune != 'c' {
		t.Errorf("row 0 = %q after rebound, want 'c'", got[0].Rune)
	}

	sb.Clear()
	if sb.Len() != 0 {
		t.Error("clear left rows behind")
	}
}
