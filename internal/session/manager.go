//go:build unix

package session

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/molt-term/molt/internal/config"
	"github.com/molt-term/molt/internal/shm"
	"github.com/molt-term/molt/internal/term"
	"github.com/molt-term/molt/internal/theme"
)

// Manager owns every live session. All methods are safe for concurrent use.
type Manager struct {
	cfg     *config.Config
	palette term.Palette
	shmDir  string
	logger  *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager resolves the configured theme and shared-memory directory.
func NewManager(cfg *config.Config, logger *log.Logger) (*Manager, error) {
	palette, err := theme.Palette(cfg.Terminal.Theme)
	if err != nil {
		return nil, err
	}
	dir := cfg.Daemon.ShmDir
	if dir == "" {
		dir = shm.DefaultDir()
	}
	return &Manager{
		cfg:      cfg,
		palette:  palette,
		shmDir:   dir,
		logger:   logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Create starts a new session with the given grid size. Sizes beyond the
// region capacity are refused up front.
func (m *Manager) Create(width, height int) (*Session, error) {
	capW, capH := m.cfg.Daemon.GridWidth, m.cfg.Daemon.GridHeight
	if width <= 0 || height <= 0 || width > capW || height > capH {
		return nil, fmt.Errorf("session: size %dx%d outside 1x1..%dx%d", width, height, capW, capH)
	}

	s, err := start(Options{
		ID:              uuid.NewString(),
		Shell:           m.cfg.Shell(),
		Width:           width,
		Height:          height,
		CapWidth:        capW,
		CapHeight:       capH,
		ShmDir:          m.shmDir,
		ScrollbackLines: m.cfg.Terminal.ScrollbackLines,
		Palette:         m.palette,
		Logger:          m.logger,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Info("session started", "session", s.ID(), "size", fmt.Sprintf("%dx%d", width, height), "region", s.RegionPath())
	return s, nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns the ids of all live sessions.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Resize resizes a session's PTY and grid.
func (m *Manager) Resize(id string, width, height int) error {
	s, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("session: unknown id %s", id)
	}
	if width > m.cfg.Daemon.GridWidth || height > m.cfg.Daemon.GridHeight {
		return fmt.Errorf("session: size %dx%d exceeds region capacity", width, height)
	}
	return s.Resize(width, height)
}

// Destroy closes a session and removes its regions.
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session: unknown id %s", id)
	}
	m.logger.Info("session destroyed", "session", id)
	return s.Close()
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			m.logger.Debug("session close", "session", s.ID(), "err", err)
		}
	}
}
