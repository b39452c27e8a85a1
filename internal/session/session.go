//go:build unix

package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/xpty"

	"github.com/molt-term/molt/internal/shm"
	"github.com/molt-term/molt/internal/term"
)

const readBufferSize = 32 * 1024

// Options configure one session.
type Options struct {
	ID     string
	Shell  string
	Width  int
	Height int
	// Region capacity; sessions can resize up to these without remapping.
	CapWidth, CapHeight int
	ShmDir              string
	ScrollbackLines     int
	Palette             term.Palette
	Logger              *log.Logger
}

// Session is one running terminal: a PTY, the pipeline and the publishers.
type Session struct {
	id     string
	pty    xpty.Pty
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	logger *log.Logger

	mu        sync.Mutex
	engine    *Engine
	writer    *shm.Writer
	imgWriter *shm.ImageWriter
}

// start launches the shell on a fresh PTY and begins the worker.
func start(opts Options) (*Session, error) {
	writer, err := shm.CreateWriter(opts.ShmDir, opts.ID, opts.CapWidth, opts.CapHeight)
	if err != nil {
		return nil, err
	}
	imgWriter, err := shm.CreateImageWriter(opts.ShmDir, opts.ID)
	if err != nil {
		writer.Close()
		return nil, err
	}

	pty, err := xpty.NewPty(opts.Width, opts.Height)
	if err != nil {
		writer.Close()
		imgWriter.Close()
		return nil, fmt.Errorf("session: pty: %w", err)
	}

	// #nosec G204 - launching the configured shell is the purpose
	cmd := exec.Command(opts.Shell)
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		"MOLT_SESSION_ID="+opts.ID,
	)
	if err := pty.Start(cmd); err != nil {
		pty.Close()
		writer.Close()
		imgWriter.Close()
		return nil, fmt.Errorf("session: start shell: %w", err)
	}
	if err := pty.Resize(opts.Width, opts.Height); err != nil {
		opts.Logger.Debug("initial pty resize failed", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        opts.ID,
		pty:       pty,
		cmd:       cmd,
		cancel:    cancel,
		done:      make(chan struct{}),
		logger:    opts.Logger.With("session", opts.ID),
		engine:    NewEngine(opts.Width, opts.Height, opts.Palette, opts.ScrollbackLines, opts.Logger),
		writer:    writer,
		imgWriter: imgWriter,
	}
	if err := s.publishLocked(); err != nil {
		_ = pty.Close()
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		s.teardown()
		return nil, err
	}

	go s.worker(ctx)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// RegionPath returns the grid region's backing file.
func (s *Session) RegionPath() string { return s.writer.Path() }

// worker is the single goroutine that owns the pipeline: read the PTY,
// consume, publish, repeat. The PTY read is the only suspension point.
func (s *Session) worker(ctx context.Context) {
	defer close(s.done)

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.engine.Consume(buf[:n])
			if perr := s.publishLocked(); perr != nil {
				s.logger.Error("publish failed", "err", perr)
			}
			s.mu.Unlock()
		}
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Info("pty closed", "err", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// publishLocked pushes the current grid and image state into the regions.
// Callers hold s.mu.
func (s *Session) publishLocked() error {
	if err := s.writer.Publish(s.engine.Snapshot()); err != nil {
		return err
	}

	placements := s.engine.Graphics().Placements()
	records := make([]shm.ImageRecord, 0, len(placements))
	for _, p := range placements {
		img := s.engine.Graphics().Image(p.ImageID)
		if img == nil {
			continue
		}
		records = append(records, shm.ImageRecord{
			ImageID: uint64(p.ImageID),
			X:       clampU16(p.X),
			Y:       clampU16(p.Y),
			Columns: clampU16(p.Columns),
			Rows:    clampU16(p.Rows),
			PixelW:  uint32(img.Width),  // #nosec G115 - decoded PNG dims
			PixelH:  uint32(img.Height), // #nosec G115
			Format:  shm.ImageFormatPNG,
			Data:    img.PNG,
		})
	}
	return s.imgWriter.Publish(records)
}

func clampU16(n int) uint16 {
	if n < 0 {
		return 0
	}
	if n > 0xFFFF {
		return 0xFFFF
	}
	return uint16(n)
}

// Write forwards input bytes to the PTY.
func (s *Session) Write(data []byte) (int, error) {
	return s.pty.Write(data)
}

// Resize changes both the PTY and the grid. Sizes beyond the region
// capacity are refused.
func (s *Session) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pty.Resize(width, height); err != nil {
		return fmt.Errorf("session: resize pty: %w", err)
	}
	s.engine.Resize(width, height)
	return s.publishLocked()
}

// Snapshot returns a copy of the current grid state.
func (s *Session) Snapshot() term.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// Close stops the worker, the shell and tears the regions down.
func (s *Session) Close() error {
	s.cancel()
	err := s.pty.Close()
	<-s.done
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.teardown()
	return err
}

func (s *Session) teardown() {
	if s.writer != nil {
		_ = s.writer.Close()
	}
	if s.imgWriter != nil {
		_ = s.imgWriter.Close()
	}
}
