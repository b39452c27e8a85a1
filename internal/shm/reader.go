//go:build unix

package shm

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/molt-term/molt/internal/term"
)

// readRetries bounds the seqlock retry loop so a stalled writer (killed
// mid-publish, leaving an odd sequence) cannot hang the reader forever.
const readRetries = 1000

// Reader attaches read-only to a session's grid region.
type Reader struct {
	region    *Region
	capWidth  int
	capHeight int
}

// AttachReader attaches to an existing grid region. The region size must
// match the capacity exactly or attach fails with ErrIncompatibleLayout.
func AttachReader(dir, session string, capWidth, capHeight int) (*Reader, error) {
	if capWidth <= 0 {
		capWidth = DefaultGridWidth
	}
	if capHeight <= 0 {
		capHeight = DefaultGridHeight
	}
	region, err := AttachRegion(dir, GridRegionName(session), GridRegionSize(capWidth, capHeight))
	if err != nil {
		return nil, err
	}
	return &Reader{region: region, capWidth: capWidth, capHeight: capHeight}, nil
}

// Close unmaps the region.
func (r *Reader) Close() error { return r.region.Close() }

// Seq returns the current sequence number.
func (r *Reader) Seq() uint64 {
	return atomic.LoadUint64(seqWord(r.region.Data()))
}

// Snapshot copies a consistent snapshot out of the region. It retries while
// a write is in progress and verifies afterwards that the sequence did not
// move, so the returned cells always belong to a single published state.
func (r *Reader) Snapshot() (term.Snapshot, uint64, error) {
	data := r.region.Data()
	for attempt := 0; attempt < readRetries; attempt++ {
		seq := atomic.LoadUint64(seqWord(data))
		if seq%2 != 0 {
			continue
		}

		width := int(binary.LittleEndian.Uint32(data[8:]))
		height := int(binary.LittleEndian.Uint32(data[12:]))
		cursorX := int(binary.LittleEndian.Uint32(data[16:]))
		cursorY := int(binary.LittleEndian.Uint32(data[20:]))
		if width > r.capWidth || height > r.capHeight {
			// Torn header; the re-check below will reject it too, but do not
			// size an allocation from it.
			continue
		}

		cells := make([]term.Cell, width*height)
		off := HeaderSize
		for i := range cells {
			cells[i] = term.Cell{
				Rune:  rune(binary.LittleEndian.Uint32(data[off:])),
				FG:    binary.LittleEndian.Uint32(data[off+4:]),
				BG:    binary.LittleEndian.Uint32(data[off+8:]),
				Style: term.StyleFlags(data[off+12]),
			}
			off += CellSize
		}

		if atomic.LoadUint64(seqWord(data)) != seq {
			continue
		}
		return term.Snapshot{
			Width:   width,
			Height:  height,
			CursorX: cursorX,
			CursorY: cursorY,
			Cells:   cells,
		}, seq, nil
	}
	return term.Snapshot{}, 0, fmt.Errorf("shm: no stable snapshot after %d attempts", readRetries)
}
