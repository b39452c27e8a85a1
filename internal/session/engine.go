// Package session runs terminal sessions: each one owns a PTY, the
// byte-stream pipeline (tokenizer, terminal state, graphics) and the
// shared-memory publishers. The Engine is the PTY-free core of that
// pipeline so it can be driven directly in tests.
package session

import (
	"github.com/charmbracelet/log"

	"github.com/molt-term/molt/internal/graphics"
	"github.com/molt-term/molt/internal/parser"
	"github.com/molt-term/molt/internal/term"
)

// Engine turns raw output bytes into terminal and graphics state. It is not
// safe for concurrent use; the session worker serializes access.
type Engine struct {
	parser   *parser.Parser
	terminal *term.Terminal
	graphics *graphics.Handler
	logger   *log.Logger
}

// NewEngine creates a pipeline for a width x height grid.
func NewEngine(width, height int, palette term.Palette, scrollbackLines int, logger *log.Logger) *Engine {
	t := term.New(width, height)
	t.SetPalette(palette)
	if scrollbackLines > 0 {
		t.SetScrollbackMaxLines(scrollbackLines)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		parser:   parser.New(),
		terminal: t,
		graphics: graphics.NewHandler(logger),
		logger:   logger,
	}
}

// Terminal returns the terminal state.
func (e *Engine) Terminal() *term.Terminal { return e.terminal }

// Graphics returns the graphics handler.
func (e *Engine) Graphics() *graphics.Handler { return e.graphics }

// Consume tokenizes one chunk of output and applies every completed action.
// Bytes are applied strictly in order; a failed graphics command is logged
// and skipped without disturbing anything else.
func (e *Engine) Consume(data []byte) {
	scrollbackBefore := e.terminal.Scrollback().Len()

	for _, action := range e.parser.Advance(data) {
		switch act := action.(type) {
		case parser.Apc:
			if act.Truncated {
				e.logger.Warn("dropping truncated apc payload", "len", len(act.Payload))
				continue
			}
			x, y := e.terminal.CursorPos()
			handled, err := e.graphics.HandleAPC(act.Payload, x, y)
			if err != nil {
				e.logger.Warn("graphics command rejected", "err", err)
			}
			if !handled {
				e.terminal.Apply(act)
			}
		case parser.Esc:
			if act.Final == 'c' {
				e.graphics.Reset()
			}
			e.terminal.Apply(act)
		default:
			e.terminal.Apply(action)
		}
	}

	// Rows that scrolled into history move image placements up with them.
	if scrolled := e.terminal.Scrollback().Len() - scrollbackBefore; scrolled > 0 {
		e.graphics.Scroll(scrolled)
	}
}

// Resize changes the grid size, carrying the usual eviction semantics.
func (e *Engine) Resize(width, height int) {
	before := e.terminal.Scrollback().Len()
	e.terminal.Resize(width, height)
	if scrolled := e.terminal.Scrollback().Len() - before; scrolled > 0 {
		e.graphics.Scroll(scrolled)
	}
}

// Snapshot copies the publishable terminal state.
func (e *Engine) Snapshot() term.Snapshot {
	return e.terminal.Snapshot()
}
