// Package parser implements the escape-sequence tokenizer for the terminal
// engine. It classifies each incoming byte, drives an explicit state machine
// and emits completed actions (print, control, CSI, OSC, APC, DCS). The
// tokenizer never fails: malformed or unterminated sequences abort back to
// Ground and are dropped, so a misbehaving program cannot stop the stream.
package parser

import "unicode/utf8"

// State identifies the tokenizer's current position in the escape grammar.
type State uint8

// Tokenizer states.
const (
	Ground State = iota
	Escape
	CsiEntry
	CsiParam
	CsiIntermediate
	OscString
	ApcString
	DcsPassthrough
)

// String returns the state name, for logs and test failures.
func (s State) String() string {
	switch s {
	case Ground:
		return "ground"
	case Escape:
		return "escape"
	case CsiEntry:
		return "csi-entry"
	case CsiParam:
		return "csi-param"
	case CsiIntermediate:
		return "csi-intermediate"
	case OscString:
		return "osc-string"
	case ApcString:
		return "apc-string"
	case DcsPassthrough:
		return "dcs-passthrough"
	}
	return "unknown"
}

const (
	// MaxParams is the largest number of CSI parameters retained; extras are
	// parsed and discarded.
	MaxParams = 32
	// MaxParamValue is the saturation cap for a single numeric parameter.
	MaxParamValue = 65535
	// MaxPayload caps OSC/APC/DCS payload growth. Bytes past the cap are
	// discarded and the completed action is marked truncated so that one
	// command can be failed without disturbing the surrounding stream.
	MaxPayload = 4 * 1024 * 1024
)

const (
	escByte = 0x1b
	belByte = 0x07
	canByte = 0x18
	subByte = 0x1a
	delByte = 0x7f
)

// Parser is the streaming tokenizer. It is not safe for concurrent use; each
// session owns exactly one.
type Parser struct {
	state State

	// CSI accumulators.
	params       []int
	cur          int
	curSet       bool
	private      byte
	intermediate byte

	// Escape intermediate (for ESC ( B style designators, which are consumed
	// and ignored).
	escInter byte

	// String (OSC/APC/DCS) accumulators.
	payload   []byte
	truncated bool
	strEsc    bool

	// UTF-8 reassembly.
	utf8Buf  [4]byte
	utf8Len  int
	utf8Need int

	out []Action
}

// New returns a tokenizer in the Ground state.
func New() *Parser {
	return &Parser{
		params:  make([]int, 0, MaxParams),
		payload: make([]byte, 0, 256),
	}
}

// State returns the current tokenizer state. Exposed for byte-by-byte tests.
func (p *Parser) State() State {
	return p.state
}

// Advance consumes a chunk of the byte stream and returns the actions it
// completed. The returned slice is reused by the next call; consumers must
// finish dispatching before advancing again.
func (p *Parser) Advance(data []byte) []Action {
	p.out = p.out[:0]
	for _, b := range data {
		p.step(b)
	}
	return p.out
}

// Reset returns the tokenizer to Ground, discarding any partial sequence.
func (p *Parser) Reset() {
	p.state = Ground
	p.clearSeq()
	p.clearString()
	p.utf8Len = 0
	p.utf8Need = 0
}

func (p *Parser) emit(a Action) {
	p.out = append(p.out, a)
}

func (p *Parser) clearSeq() {
	p.params = p.params[:0]
	p.cur = 0
	p.curSet = false
	p.private = 0
	p.intermediate = 0
	p.escInter = 0
}

func (p *Parser) clearString() {
	p.payload = p.payload[:0]
	p.truncated = false
	p.strEsc = false
}

// step feeds one byte through the transition function. It may recurse once
// when a byte both terminates the current sequence and begins a new one.
func (p *Parser) step(b byte) {
	if p.utf8Need > 0 {
		p.stepUtf8(b)
		return
	}

	switch p.state {
	case Ground:
		p.stepGround(b)
	case Escape:
		p.stepEscape(b)
	case CsiEntry, CsiParam:
		p.stepCsi(b)
	case CsiIntermediate:
		p.stepCsiIntermediate(b)
	case OscString:
		p.stepString(b, true)
	case ApcString, DcsPassthrough:
		p.stepString(b, false)
	}
}

func (p *Parser) stepUtf8(b byte) {
	if b&0xC0 == 0x80 {
		p.utf8Buf[p.utf8Len] = b
		p.utf8Len++
		p.utf8Need--
		if p.utf8Need == 0 {
			r, _ := utf8.DecodeRune(p.utf8Buf[:p.utf8Len])
			p.emit(Print{Rune: r}) // RuneError (U+FFFD) on invalid encodings
			p.utf8Len = 0
		}
		return
	}
	// Interrupted multi-byte sequence: the partial scalar becomes U+FFFD and
	// the interrupting byte is processed normally.
	p.utf8Len = 0
	p.utf8Need = 0
	p.emit(Print{Rune: utf8.RuneError})
	p.step(b)
}

func (p *Parser) stepGround(b byte) {
	switch {
	case b == escByte:
		p.state = Escape
		p.clearSeq()
	case b == delByte:
		// ignored
	case b < 0x20:
		p.emit(Ctrl{Byte: b})
	case b < 0x80:
		p.emit(Print{Rune: rune(b)})
	case b&0xE0 == 0xC0:
		p.utf8Buf[0] = b
		p.utf8Len = 1
		p.utf8Need = 1
	case b&0xF0 == 0xE0:
		p.utf8Buf[0] = b
		p.utf8Len = 1
		p.utf8Need = 2
	case b&0xF8 == 0xF0:
		p.utf8Buf[0] = b
		p.utf8Len = 1
		p.utf8Need = 3
	default:
		// Stray continuation or invalid lead byte.
		p.emit(Print{Rune: utf8.RuneError})
	}
}

func (p *Parser) stepEscape(b byte) {
	switch {
	case b == '[' && p.escInter == 0:
		p.state = CsiEntry
	case b == ']' && p.escInter == 0:
		p.state = OscString
		p.clearString()
	case b == '_' && p.escInter == 0:
		p.state = ApcString
		p.clearString()
	case b == 'P' && p.escInter == 0:
		p.state = DcsPassthrough
		p.clearString()
	case b == escByte:
		p.clearSeq() // restart
	case b == canByte || b == subByte:
		p.state = Ground
	case b < 0x20:
		p.emit(Ctrl{Byte: b})
	case b >= 0x20 && b <= 0x2F:
		// Intermediate (charset designators and friends). Only the first is
		// kept; the whole sequence is consumed and ignored at the final byte.
		if p.escInter == 0 {
			p.escInter = b
		}
	case b >= 0x30 && b <= 0x7E:
		if p.escInter == 0 {
			switch b {
			case '7', '8', 'c', 'D', 'E', 'M':
				p.emit(Esc{Final: b})
			}
		}
		p.state = Ground
	default:
		p.state = Ground
	}
}

func (p *Parser) stepCsi(b byte) {
	switch {
	case b >= '0' && b <= '9':
		p.cur = p.cur*10 + int(b-'0')
		if p.cur > MaxParamValue {
			p.cur = MaxParamValue
		}
		p.curSet = true
		p.state = CsiParam
	case b == ';' || b == ':':
		p.pushParam()
		p.state = CsiParam
	case b == '?' || b == '<' || b == '=' || b == '>':
		if p.state != CsiEntry {
			// Private markers are only valid before any parameter.
			p.abortCsi()
			return
		}
		p.private = b
		p.state = CsiParam
	case b >= 0x20 && b <= 0x2F:
		if p.intermediate == 0 {
			p.intermediate = b
		}
		p.state = CsiIntermediate
	case b >= 0x40 && b <= 0x7E:
		p.finishCsi(b)
	default:
		p.csiControl(b)
	}
}

func (p *Parser) stepCsiIntermediate(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2F:
		// additional intermediates ignored
	case b >= 0x40 && b <= 0x7E:
		p.finishCsi(b)
	default:
		p.csiControl(b)
	}
}

// csiControl handles bytes that are not part of the CSI grammar: C0 controls
// execute immediately (as in DEC terminals), CAN/SUB/ESC and anything above
// 0x7E abort the sequence.
func (p *Parser) csiControl(b byte) {
	switch {
	case b == canByte || b == subByte:
		p.state = Ground
	case b == escByte:
		p.state = Escape
		p.clearSeq()
	case b < 0x20:
		p.emit(Ctrl{Byte: b})
	default:
		p.abortCsi()
	}
}

func (p *Parser) abortCsi() {
	p.state = Ground
	p.clearSeq()
}

func (p *Parser) pushParam() {
	if len(p.params) < MaxParams {
		if p.curSet {
			p.params = append(p.params, p.cur)
		} else {
			p.params = append(p.params, -1)
		}
	}
	p.cur = 0
	p.curSet = false
}

func (p *Parser) finishCsi(final byte) {
	if p.curSet || len(p.params) > 0 {
		p.pushParam()
	}
	params := make([]int, len(p.params))
	copy(params, p.params)
	p.emit(Csi{
		Private:      p.private,
		Intermediate: p.intermediate,
		Params:       params,
		Final:        final,
	})
	p.state = Ground
	p.clearSeq()
}

// stepString accumulates OSC/APC/DCS payload bytes. OSC additionally accepts
// BEL as a terminator; the string states otherwise end only at ST (ESC \).
func (p *Parser) stepString(b byte, belTerminates bool) {
	if p.strEsc {
		p.strEsc = false
		if b == '\\' {
			p.finishString()
			return
		}
		// Unterminated string: drop it and reprocess the ESC'd byte as the
		// start of a fresh escape sequence.
		p.clearString()
		p.state = Escape
		p.clearSeq()
		p.step(b)
		return
	}

	switch {
	case b == escByte:
		p.strEsc = true
	case b == belByte && belTerminates:
		p.finishString()
	case b == canByte || b == subByte:
		p.clearString()
		p.state = Ground
	default:
		if len(p.payload) < MaxPayload {
			p.payload = append(p.payload, b)
		} else {
			p.truncated = true
		}
	}
}

func (p *Parser) finishString() {
	payload := make([]byte, len(p.payload))
	copy(payload, p.payload)
	switch p.state {
	case OscString:
		p.emit(Osc{Payload: payload, Truncated: p.truncated})
	case ApcString:
		p.emit(Apc{Payload: payload, Truncated: p.truncated})
	case DcsPassthrough:
		p.emit(Dcs{Payload: payload, Truncated: p.truncated})
	}
	p.clearString()
	p.state = Ground
}
