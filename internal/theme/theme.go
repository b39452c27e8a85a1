// Package theme resolves color theme names to a terminal palette.
package theme

import (
	"fmt"

	tint "github.com/lrstanley/bubbletint/v2"

	"github.com/molt-term/molt/internal/term"
)

// Palette resolves a theme name to a session palette. An empty name returns
// the built-in defaults; an unknown name is an error so a typo in the config
// does not silently fall back.
func Palette(name string) (term.Palette, error) {
	defaults := term.DefaultPalette()
	if name == "" {
		return defaults, nil
	}

	tint.NewDefaultRegistry()
	if ok := tint.SetTintID(name); !ok {
		return term.Palette{}, fmt.Errorf("theme: unknown theme %q", name)
	}
	t := tint.Current()

	p := term.Palette{
		FG:     pack(t.Fg, defaults.FG),
		BG:     pack(t.Bg, defaults.BG),
		Cursor: pack(t.Cursor, defaults.Cursor),
	}
	ansi := []*tint.Color{
		t.Black, t.Red, t.Green, t.Yellow,
		t.Blue, t.Purple, t.Cyan, t.White,
		t.BrightBlack, t.BrightRed, t.BrightGreen, t.BrightYellow,
		t.BrightBlue, t.BrightPurple, t.BrightCyan, t.BrightWhite,
	}
	for i, c := range ansi {
		p.ANSI[i] = pack(c, defaults.ANSI[i])
	}
	return p, nil
}

// Names lists the available theme ids.
func Names() []string {
	tint.NewDefaultRegistry()
	return tint.TintIDs()
}

// pack converts a theme color to the packed cell format, falling back when
// a theme leaves a slot nil. The parameter is the concrete pointer type so
// an unset slot is caught before it boxes into a non-nil interface.
func pack(c *tint.Color, fallback uint32) uint32 {
	if c == nil {
		return fallback
	}
	return term.PackColor(c)
}
