package graphics

import "fmt"

const (
	// MaxPendingTransfers caps how many chunked transfers may be open at
	// once; the oldest bound is per-id, so this caps distinct image ids.
	MaxPendingTransfers = 32
	// MaxTransferBytes caps the accumulated size of a single transfer.
	MaxTransferBytes = 16 << 20
)

// TransferState reassembles chunked image transfers keyed by image id. A
// transfer stays pending until a chunk with m=0 arrives.
type TransferState struct {
	pending map[uint32][]byte
}

// NewTransferState creates an empty reassembly state.
func NewTransferState() *TransferState {
	return &TransferState{pending: make(map[uint32][]byte)}
}

// AddChunk appends a chunk to the transfer for id. When final is true the
// transfer completes: the concatenation of every chunk is returned and the
// pending entry is dropped. A non-final chunk returns (nil, false, nil).
//
// Exceeding a bound abandons the affected transfer so a misbehaving client
// cannot grow memory without limit.
func (ts *TransferState) AddChunk(id uint32, chunk []byte, final bool) (data []byte, done bool, err error) {
	existing, open := ts.pending[id]

	if final {
		delete(ts.pending, id)
		if len(existing)+len(chunk) > MaxTransferBytes {
			return nil, false, fmt.Errorf("graphics: transfer %d exceeds %d bytes", id, MaxTransferBytes)
		}
		return append(existing, chunk...), true, nil
	}

	if !open && len(ts.pending) >= MaxPendingTransfers {
		return nil, false, fmt.Errorf("graphics: too many pending transfers (max %d)", MaxPendingTransfers)
	}
	if len(existing)+len(chunk) > MaxTransferBytes {
		delete(ts.pending, id)
		return nil, false, fmt.Errorf("graphics: transfer %d exceeds %d bytes", id, MaxTransferBytes)
	}
	ts.pending[id] = append(existing, chunk...)
	return nil, false, nil
}

// PendingCount returns the number of open transfers.
func (ts *TransferState) PendingCount() int {
	return len(ts.pending)
}

// Clear abandons all open transfers.
func (ts *TransferState) Clear() {
	clear(ts.pending)
}
