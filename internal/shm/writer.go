//go:build unix

package shm

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/molt-term/molt/internal/term"
)

// Writer publishes grid snapshots into a session's region. There is exactly
// one writer per region; Publish is not safe for concurrent use.
type Writer struct {
	region    *Region
	capWidth  int
	capHeight int
	seq       uint64
}

// CreateWriter creates the grid region for a session and returns its writer.
// Capacity values of zero take the defaults.
func CreateWriter(dir, session string, capWidth, capHeight int) (*Writer, error) {
	if capWidth <= 0 {
		capWidth = DefaultGridWidth
	}
	if capHeight <= 0 {
		capHeight = DefaultGridHeight
	}
	region, err := CreateRegion(dir, GridRegionName(session), GridRegionSize(capWidth, capHeight))
	if err != nil {
		return nil, err
	}
	return &Writer{region: region, capWidth: capWidth, capHeight: capHeight}, nil
}

// Path returns the backing file path.
func (w *Writer) Path() string { return w.region.Path() }

// Close tears the region down.
func (w *Writer) Close() error { return w.region.Close() }

// seqWord returns the seqlock word of a mapped region. The mapping is
// page-aligned, so offset 0 satisfies uint64 alignment.
func seqWord(data []byte) *uint64 {
	return (*uint64)(unsafe.Pointer(&data[0]))
}

// Publish copies a snapshot into the region under the seqlock: the sequence
// is bumped to odd, every byte of header and cells is written, then the
// sequence lands on the next even value. A reader that loads an even,
// unchanged sequence around its copy has a consistent snapshot.
func (w *Writer) Publish(snap term.Snapshot) error {
	if snap.Width > w.capWidth || snap.Height > w.capHeight {
		return fmt.Errorf("shm: snapshot %dx%d exceeds region capacity %dx%d",
			snap.Width, snap.Height, w.capWidth, w.capHeight)
	}

	data := w.region.Data()
	atomic.StoreUint64(seqWord(data), w.seq+1)

	binary.LittleEndian.PutUint32(data[8:], uint32(snap.Width))
	binary.LittleEndian.PutUint32(data[12:], uint32(snap.Height))
	binary.LittleEndian.PutUint32(data[16:], uint32(snap.CursorX))
	binary.LittleEndian.PutUint32(data[20:], uint32(snap.CursorY))

	off := HeaderSize
	for _, c := range snap.Cells {
		binary.LittleEndian.PutUint32(data[off:], uint32(c.Rune))
		binary.LittleEndian.PutUint32(data[off+4:], c.FG)
		binary.LittleEndian.PutUint32(data[off+8:], c.BG)
		data[off+12] = byte(c.Style)
		off += CellSize
	}

	w.seq += 2
	atomic.StoreUint64(seqWord(data), w.seq)
	return nil
}
