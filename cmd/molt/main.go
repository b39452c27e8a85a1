// Package main implements molt, a headless terminal engine daemon. It runs
// shell sessions behind a PTY, maintains full terminal state (grid, colors,
// scrollback, inline images) and publishes every update into a lock-free
// shared-memory region that renderers attach to read-only.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/molt-term/molt/internal/config"
	"github.com/molt-term/molt/internal/theme"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		themeName  string
		shellPath  string
		gridWidth  int
		gridHeight int
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:   "molt",
		Short: "Headless terminal engine with shared-memory output",
		Long: `molt runs shell sessions behind a PTY, maintains full terminal state
(grid, colors, scrollback, inline images) and publishes every update into a
shared-memory region that any renderer can attach to without locks.`,
		Example: `  # Run a session publishing to shared memory
  molt run

  # Run with a theme and explicit shell
  molt run --theme dracula --shell /bin/zsh

  # Pretty-print the live state of a session
  molt inspect --session <id>

  # List available themes
  molt themes`,
		Version:      version,
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start a session and publish its state",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if themeName != "" {
				cfg.Terminal.Theme = themeName
			}
			if shellPath != "" {
				cfg.Terminal.Shell = shellPath
			}
			if logLevel != "" {
				cfg.Daemon.LogLevel = logLevel
			}
			return runDaemon(cfg, gridWidth, gridHeight)
		},
	}
	runCmd.Flags().StringVar(&themeName, "theme", "", "Color theme (e.g., dracula, nord); overrides config")
	runCmd.Flags().StringVar(&shellPath, "shell", "", "Shell to launch; overrides config and $SHELL")
	runCmd.Flags().IntVar(&gridWidth, "width", 0, "Grid width in columns (default: current terminal size or 80)")
	runCmd.Flags().IntVar(&gridHeight, "height", 0, "Grid height in rows (default: current terminal size or 24)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "off, error, info, debug; overrides config")

	var (
		inspectSession string
		inspectDir     string
		inspectImages  bool
	)
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Attach to a session's region and print its state",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if inspectSession == "" {
				return fmt.Errorf("--session is required")
			}
			return inspect(cfg, inspectSession, inspectDir, inspectImages)
		},
	}
	inspectCmd.Flags().StringVar(&inspectSession, "session", "", "Session id to attach to")
	inspectCmd.Flags().StringVar(&inspectDir, "dir", "", "Region directory (default: config or /dev/shm)")
	inspectCmd.Flags().BoolVar(&inspectImages, "images", false, "Also list published image placements")

	themesCmd := &cobra.Command{
		Use:   "themes",
		Short: "List available color themes",
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, name := range theme.Names() {
				fmt.Println(name)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the configuration file path",
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, inspectCmd, themesCmd, configCmd)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(fmt.Sprintf("%s\nCommit: %s\nBuilt: %s", version, commit, date)),
	); err != nil {
		os.Exit(1)
	}
}
