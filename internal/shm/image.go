//go:build unix

package shm

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// ImageRecord is one published image placement plus its encoded bytes.
type ImageRecord struct {
	ImageID       uint64
	X, Y          uint16
	Columns, Rows uint16
	PixelW        uint32
	PixelH        uint32
	Format        byte
	Data          []byte
}

// ImageWriter publishes image placements into a session's companion region,
// under the same seqlock discipline as the grid writer.
type ImageWriter struct {
	region *Region
	seq    uint64
}

// CreateImageWriter creates the image region for a session.
func CreateImageWriter(dir, session string) (*ImageWriter, error) {
	region, err := CreateRegion(dir, ImageRegionName(session), ImageRegionSize())
	if err != nil {
		return nil, err
	}
	return &ImageWriter{region: region}, nil
}

// Path returns the backing file path.
func (w *ImageWriter) Path() string { return w.region.Path() }

// Close tears the region down.
func (w *ImageWriter) Close() error { return w.region.Close() }

// Publish writes the full placement set. At most MaxImages records are
// published; records whose bytes no longer fit in the blob pool are dropped
// rather than truncated.
func (w *ImageWriter) Publish(records []ImageRecord) error {
	if len(records) > MaxImages {
		records = records[len(records)-MaxImages:]
	}

	data := w.region.Data()
	atomic.StoreUint64(seqWord(data), w.seq+1)

	blobStart := ImageHeaderSize + MaxImages*PlacementSize
	blobOff := 0
	count := 0
	for _, rec := range records {
		if blobOff+len(rec.Data) > ImageBlobSize {
			continue
		}
		off := ImageHeaderSize + count*PlacementSize
		binary.LittleEndian.PutUint64(data[off:], rec.ImageID)
		binary.LittleEndian.PutUint16(data[off+8:], rec.X)
		binary.LittleEndian.PutUint16(data[off+10:], rec.Y)
		binary.LittleEndian.PutUint16(data[off+12:], rec.Columns)
		binary.LittleEndian.PutUint16(data[off+14:], rec.Rows)
		binary.LittleEndian.PutUint32(data[off+16:], rec.PixelW)
		binary.LittleEndian.PutUint32(data[off+20:], rec.PixelH)
		binary.LittleEndian.PutUint32(data[off+24:], uint32(blobOff))
		binary.LittleEndian.PutUint32(data[off+28:], uint32(len(rec.Data)))
		data[off+32] = rec.Format
		data[off+33] = flagValid
		for i := 34; i < PlacementSize; i++ {
			data[off+i] = 0
		}
		copy(data[blobStart+blobOff:], rec.Data)
		blobOff += len(rec.Data)
		count++
	}
	binary.LittleEndian.PutUint32(data[8:], uint32(count))
	binary.LittleEndian.PutUint32(data[12:], uint32(blobOff))

	w.seq += 2
	atomic.StoreUint64(seqWord(data), w.seq)
	return nil
}

// ImageReader attaches read-only to a session's image region.
type ImageReader struct {
	region *Region
}

// AttachImageReader attaches to an existing image region, refusing any size
// mismatch.
func AttachImageReader(dir, session string) (*ImageReader, error) {
	region, err := AttachRegion(dir, ImageRegionName(session), ImageRegionSize())
	if err != nil {
		return nil, err
	}
	return &ImageReader{region: region}, nil
}

// Close unmaps the region.
func (r *ImageReader) Close() error { return r.region.Close() }

// Snapshot copies a consistent placement set out of the region.
func (r *ImageReader) Snapshot() ([]ImageRecord, uint64, error) {
	data := r.region.Data()
	blobStart := ImageHeaderSize + MaxImages*PlacementSize
	for attempt := 0; attempt < readRetries; attempt++ {
		seq := atomic.LoadUint64(seqWord(data))
		if seq%2 != 0 {
			continue
		}

		count := int(binary.LittleEndian.Uint32(data[8:]))
		if count > MaxImages {
			continue
		}
		records := make([]ImageRecord, 0, count)
		ok := true
		for i := 0; i < count; i++ {
			off := ImageHeaderSize + i*PlacementSize
			blobOff := int(binary.LittleEndian.Uint32(data[off+24:]))
			blobLen := int(binary.LittleEndian.Uint32(data[off+28:]))
			if blobOff+blobLen > ImageBlobSize {
				ok = false
				break
			}
			rec := ImageRecord{
				ImageID: binary.LittleEndian.Uint64(data[off:]),
				X:       binary.LittleEndian.Uint16(data[off+8:]),
				Y:       binary.LittleEndian.Uint16(data[off+10:]),
				Columns: binary.LittleEndian.Uint16(data[off+12:]),
				Rows:    binary.LittleEndian.Uint16(data[off+14:]),
				PixelW:  binary.LittleEndian.Uint32(data[off+16:]),
				PixelH:  binary.LittleEndian.Uint32(data[off+20:]),
				Format:  data[off+32],
			}
			rec.Data = make([]byte, blobLen)
			copy(rec.Data, data[blobStart+blobOff:blobStart+blobOff+blobLen])
			records = append(records, rec)
		}
		if !ok {
			continue
		}

		if atomic.LoadUint64(seqWord(data)) != seq {
			continue
		}
		return records, seq, nil
	}
	return nil, 0, fmt.Errorf("shm: no stable image snapshot after %d attempts", readRetries)
}
