// Package term maintains the authoritative model of a terminal display: the
// cell grid, cursor, active attributes and scrollback history. It applies the
// actions produced by the tokenizer; it performs no I/O of its own.
package term

import "image/color"

// StyleFlags is the per-cell style bitset.
type StyleFlags uint8

// Style bits. The wire encoding in the shared region uses these values
// directly, so their positions are part of the published layout.
const (
	StyleBold StyleFlags = 1 << iota
	StyleItalic
	StyleUnderline
	StyleInverse
	StyleDim
	StyleStrike
)

// Cell is one character cell. Colors are packed 0xAARRGGBB. Cells are plain
// data and freely copyable.
type Cell struct {
	Rune  rune
	FG    uint32
	BG    uint32
	Style StyleFlags
}

// Attributes is the fg/bg/style applied to subsequently printed cells.
type Attributes struct {
	FG    uint32
	BG    uint32
	Style StyleFlags
}

// RGB packs an opaque color.
func RGB(r, g, b uint8) uint32 {
	return 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// PackColor converts a color.Color to the packed 0xAARRGGBB cell format.
func PackColor(c color.Color) uint32 {
	if c == nil {
		return 0
	}
	r, g, b, a := c.RGBA()
	return uint32(a>>8)<<24 | uint32(r>>8)<<16 | uint32(g>>8)<<8 | uint32(b>>8)
}

// Palette supplies the default colors and the 16 base ANSI colors for a
// session. Indexed colors 16-255 are derived, not stored.
type Palette struct {
	FG     uint32
	BG     uint32
	Cursor uint32
	ANSI   [16]uint32
}

// DefaultPalette returns the stock xterm-ish palette used when no theme is
// configured.
func DefaultPalette() Palette {
	return Palette{
		FG:     RGB(0xCC, 0xCC, 0xCC),
		BG:     RGB(0x00, 0x00, 0x00),
		Cursor: RGB(0xCC, 0xCC, 0xCC),
		ANSI: [16]uint32{
			RGB(0x00, 0x00, 0x00), // black
			RGB(0xCD, 0x00, 0x00), // red
			RGB(0x00, 0xCD, 0x00), // green
			RGB(0xCD, 0xCD, 0x00), // yellow
			RGB(0x00, 0x00, 0xEE), // blue
			RGB(0xCD, 0x00, 0xCD), // magenta
			RGB(0x00, 0xCD, 0xCD), // cyan
			RGB(0xE5, 0xE5, 0xE5), // white
			RGB(0x7F, 0x7F, 0x7F), // bright black
			RGB(0xFF, 0x00, 0x00), // bright red
			RGB(0x00, 0xFF, 0x00), // bright green
			RGB(0xFF, 0xFF, 0x00), // bright yellow
			RGB(0x5C, 0x5C, 0xFF), // bright blue
			RGB(0xFF, 0x00, 0xFF), // bright magenta
			RGB(0x00, 0xFF, 0xFF), // bright cyan
			RGB(0xFF, 0xFF, 0xFF), // bright white
		},
	}
}

// blank returns an empty cell drawn with the given colors.
func blank(fg, bg uint32) Cell {
	return Cell{Rune: ' ', FG: fg, BG: bg}
}
