//go:build !unix

package main

import (
	"fmt"

	"github.com/molt-term/molt/internal/config"
)

func runDaemon(*config.Config, int, int) error {
	return fmt.Errorf("molt requires a unix platform (shared-memory regions use mmap)")
}

func inspect(*config.Config, string, string, bool) error {
	return fmt.Errorf("molt requires a unix platform (shared-memory regions use mmap)")
}
