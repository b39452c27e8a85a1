// Package graphics implements the inline-image APC sub-protocol: command
// parsing, chunked transfer reassembly and placement tracking. A command is
// carried in an APC string of the form
//
//	G key=value,key=value;base64-payload
//
// Errors reject only the offending command; image state already built stays
// intact.
package graphics

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Action selects what a graphics command does.
type Action byte

// Command actions.
const (
	ActionTransmit           Action = 't' // store image data
	ActionTransmitAndDisplay Action = 'T' // store and place at the cursor
	ActionPut                Action = 'p' // place previously stored data
	ActionDelete             Action = 'd' // remove placements or images
)

// Format identifies the payload pixel encoding.
type Format int

// Payload formats, by protocol code.
const (
	FormatRGB  Format = 24
	FormatRGBA Format = 32
	FormatPNG  Format = 100
)

func (f Format) String() string {
	switch f {
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	case FormatPNG:
		return "png"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Medium identifies how the payload is transported.
type Medium byte

// Transmission media. Only direct transmission is accepted; the file-based
// media would let a client read arbitrary daemon-side paths.
const (
	MediumDirect    Medium = 'd'
	MediumFile      Medium = 'f'
	MediumTempFile  Medium = 't'
	MediumSharedMem Medium = 's'
)

// Command is one parsed graphics command. Numeric keys that were absent are
// -1 so a zero on the wire stays distinguishable.
type Command struct {
	Action Action
	Format Format
	Medium Medium
	// MoreChunks is set by m=1; the payload is a fragment of a chunked
	// transfer and carries no complete image yet.
	MoreChunks  bool
	ImageID     uint32
	HasImageID  bool
	PlacementID uint32
	// Source dimensions in pixels (s, v keys).
	Width, Height int
	// Display size in grid cells (c, r keys).
	Columns, Rows int
	// Grid position (X, Y keys); -1 means "at the cursor".
	GridX, GridY int
	ZIndex       int
	Payload      []byte
}

// ParseCommand parses the APC payload after the leading 'G'. Unknown keys
// are logged at debug and ignored; malformed key=value pairs are skipped.
// Only undecodable base64 rejects the whole command. A nil logger means the
// package default.
func ParseCommand(data []byte, logger *log.Logger) (*Command, error) {
	if logger == nil {
		logger = log.Default()
	}
	cmd := &Command{
		Action: ActionTransmitAndDisplay,
		Format: FormatPNG,
		Medium: MediumDirect,
		Width:  -1, Height: -1,
		Columns: -1, Rows: -1,
		GridX: -1, GridY: -1,
	}

	keys, payload, hasPayload := strings.Cut(string(data), ";")
	for pair := range strings.SplitSeq(keys, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" || v == "" {
			continue
		}
		if !cmd.applyKey(k, v) {
			logger.Debug("ignoring unknown graphics key", "key", k, "value", v)
		}
	}

	if hasPayload && payload != "" {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("graphics: decode payload: %w", err)
		}
		cmd.Payload = decoded
	}
	return cmd, nil
}

// applyKey reports whether the key is part of the protocol.
func (c *Command) applyKey(key, value string) bool {
	switch key {
	case "a":
		switch Action(value[0]) {
		case ActionTransmit, ActionTransmitAndDisplay, ActionPut, ActionDelete:
			c.Action = Action(value[0])
		}
	case "f":
		switch n, _ := strconv.Atoi(value); Format(n) {
		case FormatRGB, FormatRGBA, FormatPNG:
			c.Format = Format(n)
		}
	case "t":
		switch Medium(value[0]) {
		case MediumDirect, MediumFile, MediumTempFile, MediumSharedMem:
			c.Medium = Medium(value[0])
		}
	case "m":
		c.MoreChunks = value == "1"
	case "i":
		if n, err := strconv.ParseUint(value, 10, 32); err == nil {
			c.ImageID = uint32(n)
			c.HasImageID = true
		}
	case "p":
		if n, err := strconv.ParseUint(value, 10, 32); err == nil {
			c.PlacementID = uint32(n)
		}
	case "s":
		c.Width = atoiDefault(value, c.Width)
	case "v":
		c.Height = atoiDefault(value, c.Height)
	case "c":
		c.Columns = atoiDefault(value, c.Columns)
	case "r":
		c.Rows = atoiDefault(value, c.Rows)
	case "X":
		c.GridX = atoiDefault(value, c.GridX)
	case "Y":
		c.GridY = atoiDefault(value, c.GridY)
	case "z":
		c.ZIndex = atoiDefault(value, c.ZIndex)
	default:
		return false
	}
	return true
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
