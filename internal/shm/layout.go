// Package shm publishes terminal state into a shared-memory region with
// seqlock semantics: one writer, any number of lock-free readers. The layout
// is a fixed little-endian byte format so readers in other languages can
// attach; its version is part of the region name, and attach refuses any
// region whose size does not match exactly.
package shm

import "fmt"

// LayoutVersion is bumped on any incompatible change to the byte format.
const LayoutVersion = 1

// Grid region header, little-endian:
//
//	seq       u64   seqlock sequence, odd while a write is in progress
//	width     u32   active grid width in cells
//	height    u32   active grid height
//	cursor_x  u32
//	cursor_y  u32
//
// followed by capacity-width*capacity-height cell slots. Cells are packed
// row-major by the active width.
const (
	HeaderSize = 24

	// CellSize is codepoint u32 + fg u32 + bg u32 + style u8.
	CellSize = 13

	// Default capacity grid, the largest size a session can resize to
	// without re-creating its region.
	DefaultGridWidth  = 200
	DefaultGridHeight = 100
)

// Image region, little-endian:
//
//	seq        u64
//	count      u32
//	next_blob  u32
//	MaxImages placement records
//	blob bytes
const (
	ImageHeaderSize = 16

	// PlacementSize is image_id u64 + x,y,cols,rows u16 + px_w,px_h u32 +
	// blob_off,blob_len u32 + format u8 + flags u8 + 6 pad bytes.
	PlacementSize = 40

	MaxImages = 64

	// ImageBlobSize is the shared pool for encoded image bytes.
	ImageBlobSize = 16 << 20
)

// Placement record flag bits.
const flagValid = 1 << 0

// Image format codes in placement records.
const (
	ImageFormatPNG = 0
	ImageFormatRaw = 3
)

// GridRegionSize returns the byte size of a grid region with the given
// capacity.
func GridRegionSize(capWidth, capHeight int) int {
	return HeaderSize + capWidth*capHeight*CellSize
}

// ImageRegionSize returns the byte size of the companion image region.
func ImageRegionSize() int {
	return ImageHeaderSize + MaxImages*PlacementSize + ImageBlobSize
}

// GridRegionName returns the versioned region file name for a session.
func GridRegionName(session string) string {
	return fmt.Sprintf("molt-%s-v%d", session, LayoutVersion)
}

// ImageRegionName returns the versioned image region file name.
func ImageRegionName(session string) string {
	return fmt.Sprintf("molt-%s-img-v%d", session, LayoutVersion)
}
