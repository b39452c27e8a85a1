//go:build unix

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/molt-term/molt/internal/config"
	"github.com/molt-term/molt/internal/session"
)

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "molt",
	})
	switch level {
	case "off":
		logger.SetLevel(log.FatalLevel + 1)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	case "debug":
		logger.SetLevel(log.DebugLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}

// runDaemon starts one session, forwards stdin to it and publishes state
// until the shell exits or a signal arrives.
func runDaemon(cfg *config.Config, width, height int) error {
	logger := newLogger(cfg.Daemon.LogLevel)

	if width <= 0 || height <= 0 {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width, height = w, h
		} else {
			width, height = 80, 24
		}
	}

	manager, err := session.NewManager(cfg, logger)
	if err != nil {
		return err
	}
	defer manager.Shutdown()

	s, err := manager.Create(width, height)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "session %s publishing to %s\n", s.ID(), s.RegionPath())

	// Raw mode so keystrokes reach the shell unmangled; skipped when stdin
	// is not a terminal (piped input still works).
	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		state, err := term.MakeRaw(stdinFd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer term.Restore(stdinFd, state) //nolint:errcheck
	}

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if _, werr := s.Write(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					logger.Debug("stdin read", "err", err)
				}
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGWINCH)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		if sig == syscall.SIGWINCH {
			if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				if rerr := manager.Resize(s.ID(), w, h); rerr != nil {
					logger.Warn("resize refused", "err", rerr)
				}
			}
			continue
		}
		logger.Info("shutting down", "signal", sig)
		return nil
	}
	return nil
}
