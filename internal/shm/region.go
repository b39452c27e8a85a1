//go:build unix

package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sys/unix"
)

// ErrIncompatibleLayout is returned when an existing region's size does not
// match the expected layout, which means writer and reader disagree on the
// byte format.
var ErrIncompatibleLayout = fmt.Errorf("shm: region size mismatch (incompatible layout version)")

// DefaultDir returns the preferred backing directory for regions.
func DefaultDir() string {
	if runtime.GOOS == "linux" {
		if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
			return "/dev/shm"
		}
	}
	return os.TempDir()
}

// Region is a file-backed shared mapping. The creating side owns the file
// and unlinks it on Close; attached readers leave it in place.
type Region struct {
	path  string
	file  *os.File
	data  []byte
	owner bool
}

// CreateRegion creates and maps a region of exactly size bytes, replacing
// any stale file left by a crashed writer.
func CreateRegion(dir, name string, size int) (*Region, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("shm: size %s: %w", path, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}
	return &Region{path: path, file: f, data: data, owner: true}, nil
}

// AttachRegion maps an existing region read-only. The file size must equal
// expectedSize exactly; anything else is reported as a layout
// incompatibility, before any byte is interpreted.
func AttachRegion(dir, name string, expectedSize int) (*Region, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("shm: attach %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}
	if fi.Size() != int64(expectedSize) {
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrIncompatibleLayout, path, fi.Size(), expectedSize)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, expectedSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}
	return &Region{path: path, file: f, data: data}, nil
}

// Path returns the backing file path.
func (r *Region) Path() string { return r.path }

// Data returns the mapped bytes. The slice is valid until Close.
func (r *Region) Data() []byte { return r.data }

// Close unmaps the region; the owner also unlinks the backing file.
func (r *Region) Close() error {
	var first error
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil && first == nil {
			first = err
		}
		r.data = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && first == nil {
			first = err
		}
		r.file = nil
	}
	if r.owner && r.path != "" {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	return first
}
