package graphics

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/charmbracelet/log"
)

const (
	// MaxImages bounds how many transmitted images are retained.
	MaxImages = 64
	// MaxPlacements bounds how many placements can be active at once.
	MaxPlacements = 64

	defaultColumns = 10
	defaultRows    = 5
)

// Placement is one image displayed at a grid position.
type Placement struct {
	ID      uint64
	ImageID uint32
	// X, Y are grid coordinates in cells.
	X, Y int
	// Columns, Rows is the display footprint in cells.
	Columns, Rows int
	ZIndex        int
}

// Image is a stored transmission, always held as decodable PNG.
type Image struct {
	ID  uint32
	PNG []byte
	// Pixel dimensions from the decoded payload.
	Width, Height int
}

// Handler owns the graphics state of one session: stored images, active
// placements and in-flight chunked transfers. It is driven by the session
// worker and is not safe for concurrent use.
type Handler struct {
	images    map[uint32]*Image
	imageIDs  []uint32 // insertion order, for eviction
	transfers *TransferState
	// pendingCmd remembers the first chunk's keys; continuation chunks of a
	// chunked transfer carry only m and i.
	pendingCmd map[uint32]*Command

	placements      []Placement
	nextPlacementID uint64

	logger *log.Logger
}

// NewHandler creates an empty graphics handler. A nil logger means the
// package default.
func NewHandler(logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		images:          make(map[uint32]*Image),
		transfers:       NewTransferState(),
		pendingCmd:      make(map[uint32]*Command),
		nextPlacementID: 1,
		logger:          logger,
	}
}

// Placements returns the active placements, oldest first. The slice is
// owned by the handler; callers must not mutate it.
func (h *Handler) Placements() []Placement {
	return h.placements
}

// Image returns the stored image for id, or nil.
func (h *Handler) Image(id uint32) *Image {
	return h.images[id]
}

// PendingTransfers returns the number of open chunked transfers.
func (h *Handler) PendingTransfers() int {
	return h.transfers.PendingCount()
}

// HandleAPC processes one APC payload. It reports whether the payload was a
// graphics command at all (leading 'G'); the error covers only command-level
// failures and never disturbs unrelated state. cursorX, cursorY supply the
// default placement position.
func (h *Handler) HandleAPC(payload []byte, cursorX, cursorY int) (handled bool, err error) {
	if len(payload) == 0 || payload[0] != 'G' {
		return false, nil
	}
	cmd, err := ParseCommand(payload[1:], h.logger)
	if err != nil {
		return true, err
	}
	return true, h.dispatch(cmd, cursorX, cursorY)
}

func (h *Handler) dispatch(cmd *Command, cursorX, cursorY int) error {
	switch cmd.Action {
	case ActionTransmit:
		_, err := h.transmit(cmd)
		return err
	case ActionTransmitAndDisplay:
		img, err := h.transmit(cmd)
		if err != nil || img == nil {
			return err
		}
		return h.place(cmd, img, cursorX, cursorY)
	case ActionPut:
		img := h.images[cmd.ImageID]
		if img == nil {
			return fmt.Errorf("graphics: put: unknown image id %d", cmd.ImageID)
		}
		return h.place(cmd, img, cursorX, cursorY)
	case ActionDelete:
		h.delete(cmd)
		return nil
	}
	return nil
}

// transmit feeds the command's payload into the transfer state and, once a
// transfer completes, converts and stores the image. A nil image with nil
// error means more chunks are expected.
func (h *Handler) transmit(cmd *Command) (*Image, error) {
	if cmd.Medium != MediumDirect {
		return nil, fmt.Errorf("graphics: unsupported transmission medium %q", cmd.Medium)
	}

	// Continuation chunks carry only m and i; the opening chunk's format and
	// dimensions are remembered per image id.
	opening, remembered := h.pendingCmd[cmd.ImageID]
	if !remembered {
		opening = cmd
	}

	data, done, err := h.transfers.AddChunk(cmd.ImageID, cmd.Payload, !cmd.MoreChunks)
	if err != nil {
		delete(h.pendingCmd, cmd.ImageID)
		return nil, err
	}
	if !done {
		if !remembered {
			h.pendingCmd[cmd.ImageID] = cmd
		}
		return nil, nil
	}
	delete(h.pendingCmd, cmd.ImageID)

	pngData, err := toPNG(opening.Format, opening.Width, opening.Height, data)
	if err != nil {
		return nil, err
	}
	// A pre-compressed payload is only accepted if it actually decodes; raw
	// payloads were encoded above so this doubles as the dimension read.
	cfg, err := png.DecodeConfig(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("graphics: payload is not a decodable png: %w", err)
	}
	img := &Image{ID: cmd.ImageID, PNG: pngData, Width: cfg.Width, Height: cfg.Height}
	h.store(img)
	return img, nil
}

func (h *Handler) store(img *Image) {
	if _, exists := h.images[img.ID]; !exists {
		if len(h.imageIDs) >= MaxImages {
			oldest := h.imageIDs[0]
			h.imageIDs = h.imageIDs[1:]
			delete(h.images, oldest)
			h.removePlacementsFor(oldest)
		}
		h.imageIDs = append(h.imageIDs, img.ID)
	}
	h.images[img.ID] = img
}

func (h *Handler) place(cmd *Command, img *Image, cursorX, cursorY int) error {
	x, y := cmd.GridX, cmd.GridY
	if x < 0 {
		x = cursorX
	}
	if y < 0 {
		y = cursorY
	}
	cols, rows := cmd.Columns, cmd.Rows
	if cols <= 0 {
		cols = defaultColumns
	}
	if rows <= 0 {
		rows = defaultRows
	}
	if len(h.placements) >= MaxPlacements {
		h.placements = h.placements[1:]
	}
	h.placements = append(h.placements, Placement{
		ID:      h.nextPlacementID,
		ImageID: img.ID,
		X:       x,
		Y:       y,
		Columns: cols,
		Rows:    rows,
		ZIndex:  cmd.ZIndex,
	})
	h.nextPlacementID++
	return nil
}

// delete removes placements. With an image id it also forgets the stored
// image; without one it clears every placement but keeps transmitted data.
func (h *Handler) delete(cmd *Command) {
	if !cmd.HasImageID {
		h.placements = h.placements[:0]
		return
	}
	h.removePlacementsFor(cmd.ImageID)
	if _, ok := h.images[cmd.ImageID]; ok {
		delete(h.images, cmd.ImageID)
		for i, id := range h.imageIDs {
			if id == cmd.ImageID {
				h.imageIDs = append(h.imageIDs[:i], h.imageIDs[i+1:]...)
				break
			}
		}
	}
}

func (h *Handler) removePlacementsFor(imageID uint32) {
	kept := h.placements[:0]
	for _, p := range h.placements {
		if p.ImageID != imageID {
			kept = append(kept, p)
		}
	}
	h.placements = kept
}

// Scroll shifts placements up by lines (positive scrolls content up) and
// drops any that move above the grid.
func (h *Handler) Scroll(lines int) {
	if lines == 0 {
		return
	}
	kept := h.placements[:0]
	for _, p := range h.placements {
		p.Y -= lines
		if p.Y < 0 {
			continue
		}
		kept = append(kept, p)
	}
	h.placements = kept
}

// Reset drops all graphics state, for RIS.
func (h *Handler) Reset() {
	clear(h.images)
	h.imageIDs = h.imageIDs[:0]
	h.placements = h.placements[:0]
	h.transfers.Clear()
	clear(h.pendingCmd)
}

// toPNG normalizes a payload to PNG. Raw RGB and RGBA payloads must match
// width*height exactly; PNG payloads pass through untouched.
func toPNG(f Format, width, height int, data []byte) ([]byte, error) {
	if f == FormatPNG {
		return data, nil
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("graphics: raw %s payload needs s and v dimensions", f)
	}

	bpp := 3
	if f == FormatRGBA {
		bpp = 4
	}
	if expected := width * height * bpp; len(data) != expected {
		return nil, fmt.Errorf("graphics: raw %s payload is %d bytes, want %dx%dx%d = %d",
			f, len(data), width, height, bpp, expected)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * bpp
			c := color.NRGBA{R: data[i], G: data[i+1], B: data[i+2], A: 0xFF}
			if bpp == 4 {
				c.A = data[i+3]
			}
			img.SetNRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("graphics: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
