package parser

// Action is a completed display action produced by the tokenizer. The set of
// implementations is closed; consumers dispatch with a type switch so the
// compiler flags unhandled kinds.
type Action interface {
	isAction()
}

// Print is a single decoded Unicode scalar to write at the cursor.
type Print struct {
	Rune rune
}

// Ctrl is a C0 control byte executed immediately (BEL, BS, HT, LF, CR, ...).
type Ctrl struct {
	Byte byte
}

// Csi is a completed control sequence: ESC [ <private> <params> <intermediate> <final>.
// Params holds the numeric parameters in wire order; an omitted parameter is
// recorded as -1 so dispatch can apply per-sequence defaults.
type Csi struct {
	Private      byte // '?', '<', '=', '>' or 0
	Intermediate byte // 0x20-0x2F or 0
	Params       []int
	Final        byte
}

// Param returns the i-th parameter, or def when it is absent or omitted.
func (c Csi) Param(i, def int) int {
	if i >= len(c.Params) || c.Params[i] < 0 {
		return def
	}
	return c.Params[i]
}

// Osc is a completed operating system command payload (ESC ] ... BEL/ST).
type Osc struct {
	Payload   []byte
	Truncated bool
}

// Apc is a completed application program command payload (ESC _ ... ST).
// The inline-graphics sub-protocol rides in these.
type Apc struct {
	Payload   []byte
	Truncated bool
}

// Dcs is a completed device control string payload (ESC P ... ST). The engine
// ignores these but delivers them so callers can log or extend.
type Dcs struct {
	Payload   []byte
	Truncated bool
}

// Esc is a completed two-byte escape (ESC 7, ESC 8, ESC c, ESC D, ESC E, ESC M).
type Esc struct {
	Final byte
}

func (Print) isAction() {}
func (Ctrl) isAction()  {}
func (Csi) isAction()   {}
func (Osc) isAction()   {}
func (Apc) isAction()   {}
func (Dcs) isAction()   {}
func (Esc) isAction()   {}
