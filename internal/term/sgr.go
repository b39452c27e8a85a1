package term

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// applySGR applies a Select Graphic Rendition parameter list to the current
// attributes, left to right. Unknown codes are ignored, never an error.
// An empty list means reset, as does an explicit 0.
func (t *Terminal) applySGR(params []int) {
	if len(params) == 0 {
		t.attrs = t.defaultAttrs()
		return
	}

	for i := 0; i < len(params); i++ {
		p := params[i]
		if p < 0 {
			p = 0 // omitted parameter defaults to reset
		}
		switch {
		case p == 0:
			t.attrs = t.defaultAttrs()
		case p == 1:
			t.attrs.Style |= StyleBold
		case p == 2:
			t.attrs.Style |= StyleDim
		case p == 3:
			t.attrs.Style |= StyleItalic
		case p == 4:
			t.attrs.Style |= StyleUnderline
		case p == 7:
			t.attrs.Style |= StyleInverse
		case p == 9:
			t.attrs.Style |= StyleStrike
		case p == 22:
			t.attrs.Style &^= StyleBold | StyleDim
		case p == 23:
			t.attrs.Style &^= StyleItalic
		case p == 24:
			t.attrs.Style &^= StyleUnderline
		case p == 27:
			t.attrs.Style &^= StyleInverse
		case p == 29:
			t.attrs.Style &^= StyleStrike
		case p >= 30 && p <= 37:
			t.attrs.FG = t.palette.ANSI[p-30]
		case p == 39:
			t.attrs.FG = t.palette.FG
		case p >= 40 && p <= 47:
			t.attrs.BG = t.palette.ANSI[p-40]
		case p == 49:
			t.attrs.BG = t.palette.BG
		case p >= 90 && p <= 97:
			t.attrs.FG = t.palette.ANSI[p-90+8]
		case p >= 100 && p <= 107:
			t.attrs.BG = t.palette.ANSI[p-100+8]
		case p == 38 || p == 48:
			c, consumed, ok := t.extendedColor(params[i+1:])
			i += consumed
			if !ok {
				continue
			}
			if p == 38 {
				t.attrs.FG = c
			} else {
				t.attrs.BG = c
			}
		}
	}
}

// extendedColor parses the tail of a 38/48 sequence: 5;N (indexed) or
// 2;R;G;B (direct). It reports how many parameters it consumed even on
// malformed input so the caller keeps scanning past them.
func (t *Terminal) extendedColor(rest []int) (packed uint32, consumed int, ok bool) {
	if len(rest) == 0 {
		return 0, 0, false
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return 0, len(rest), false
		}
		n := rest[1]
		if n < 0 || n > 255 {
			return 0, 2, false
		}
		return t.indexedColor(n), 2, true
	case 2:
		if len(rest) < 4 {
			return 0, len(rest), false
		}
		r, g, b := rest[1], rest[2], rest[3]
		if r < 0 || r > 255 || g < 0 || g > 255 || b < 0 || b > 255 {
			return 0, 4, false
		}
		return RGB(uint8(r), uint8(g), uint8(b)), 4, true
	}
	return 0, 1, false
}

// indexedColor resolves a 256-palette index. The first 16 entries come from
// the session palette (theme-aware); the cube and grayscale ramp come from
// the standard xterm table.
func (t *Terminal) indexedColor(n int) uint32 {
	if n >= 0 && n < 16 {
		return t.palette.ANSI[n]
	}
	if n < 0 || n > 255 {
		return t.palette.FG
	}
	return PackColor(ansi.IndexedColor(uint8(n))) //nolint:gosec // bounds checked above
}

// SGR encodes the attributes as the escape sequence that reproduces them:
// a reset followed by style flags and direct-RGB colors. Re-parsing the
// result yields an identical Attributes value.
func (a Attributes) SGR() string {
	var sb strings.Builder
	sb.WriteString("\x1b[0")
	for _, f := range []struct {
		bit  StyleFlags
		code int
	}{
		{StyleBold, 1},
		{StyleDim, 2},
		{StyleItalic, 3},
		{StyleUnderline, 4},
		{StyleInverse, 7},
		{StyleStrike, 9},
	} {
		if a.Style&f.bit != 0 {
			fmt.Fprintf(&sb, ";%d", f.code)
		}
	}
	fmt.Fprintf(&sb, ";38;2;%d;%d;%d", a.FG>>16&0xFF, a.FG>>8&0xFF, a.FG&0xFF)
	fmt.Fprintf(&sb, ";48;2;%d;%d;%d", a.BG>>16&0xFF, a.BG>>8&0xFF, a.BG&0xFF)
	sb.WriteString("m")
	return sb.String()
}
