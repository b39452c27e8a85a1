//go:build unix

package main

import (
	"fmt"
	"os"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/molt-term/molt/internal/config"
	"github.com/molt-term/molt/internal/shm"
	"github.com/molt-term/molt/internal/term"
)

// inspect attaches read-only to a running session's regions and
// pretty-prints a consistent snapshot.
func inspect(cfg *config.Config, sessionID, dir string, withImages bool) error {
	if dir == "" {
		dir = cfg.Daemon.ShmDir
	}
	if dir == "" {
		dir = shm.DefaultDir()
	}

	reader, err := shm.AttachReader(dir, sessionID, cfg.Daemon.GridWidth, cfg.Daemon.GridHeight)
	if err != nil {
		return err
	}
	defer reader.Close()

	snap, seq, err := reader.Snapshot()
	if err != nil {
		return err
	}

	header := lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("session %s  seq %d  %dx%d  cursor (%d,%d)",
			sessionID, seq, snap.Width, snap.Height, snap.CursorX, snap.CursorY))
	fmt.Println(header)

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7f7f7f"))
	fmt.Println(border.Render(renderGrid(snap)))

	if withImages {
		if err := inspectImages(dir, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// renderGrid rebuilds the snapshot as styled text, one style run per cell
// color change.
func renderGrid(snap term.Snapshot) string {
	var sb strings.Builder
	for y := 0; y < snap.Height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		var (
			run     strings.Builder
			last    term.Cell
			started bool
		)
		flush := func() {
			if run.Len() == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(hexColor(last.FG))).
				Background(lipgloss.Color(hexColor(last.BG)))
			if last.Style&term.StyleBold != 0 {
				style = style.Bold(true)
			}
			if last.Style&term.StyleItalic != 0 {
				style = style.Italic(true)
			}
			if last.Style&term.StyleUnderline != 0 {
				style = style.Underline(true)
			}
			sb.WriteString(style.Render(run.String()))
			run.Reset()
		}
		for x := 0; x < snap.Width; x++ {
			c := snap.Cells[y*snap.Width+x]
			if started && (c.FG != last.FG || c.BG != last.BG || c.Style != last.Style) {
				flush()
			}
			last = c
			started = true
			r := c.Rune
			if r == 0 {
				r = ' '
			}
			run.WriteRune(r)
		}
		flush()
	}
	return sb.String()
}

func hexColor(packed uint32) string {
	return fmt.Sprintf("#%06x", packed&0xFFFFFF)
}

func inspectImages(dir, sessionID string) error {
	reader, err := shm.AttachImageReader(dir, sessionID)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, seq, err := reader.Snapshot()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "images: %d (seq %d)\n", len(records), seq)
	for _, rec := range records {
		fmt.Printf("  id=%d at (%d,%d) %dx%d cells, %dx%d px, %d bytes\n",
			rec.ImageID, rec.X, rec.Y, rec.Columns, rec.Rows,
			rec.PixelW, rec.PixelH, len(rec.Data))
	}
	return nil
}
