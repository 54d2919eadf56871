// Package volume provides aligned raw reads from an NTFS volume, whether
// that volume is a live block device or an image file. It is the lowest
// layer of the indexer: no caching, no retries, no interpretation of the
// bytes beyond sector alignment.
package volume

import (
	"fmt"
	"io"

	"github.com/everidx/everidx/pkg/types"
)

// Reader reads arbitrary byte ranges from a raw volume. Raw device handles
// on Windows require sector-aligned offsets and lengths; Reader rounds
// internally and returns exactly the caller's requested sub-range, so
// callers never deal with alignment.
//
// Retry policy belongs to callers: a failed read surfaces immediately as a
// types.ErrKindIO error.
type Reader struct {
	src io.ReaderAt
	geo types.Geometry
}

// New wraps src with the given geometry.
func New(src io.ReaderAt, geo types.Geometry) (*Reader, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	return &Reader{src: src, geo: geo}, nil
}

// Geometry returns the volume constants the reader was constructed with.
func (r *Reader) Geometry() types.Geometry { return r.geo }

// ReadAt reads length bytes starting at the absolute byte offset off.
// A short read is an error, never a partial result.
func (r *Reader) ReadAt(off int64, length int) ([]byte, error) {
	if off < 0 || length < 0 {
		return nil, &types.Error{Kind: types.ErrKindIO,
			Msg: fmt.Sprintf("invalid read range %d+%d", off, length)}
	}
	if length == 0 {
		return nil, nil
	}
	if r.geo.VolumeSize > 0 && off+int64(length) > r.geo.VolumeSize {
		return nil, &types.Error{Kind: types.ErrKindIO,
			Msg: fmt.Sprintf("read %d+%d beyond volume end %d", off, length, r.geo.VolumeSize)}
	}

	sector := int64(r.geo.BytesPerSector)
	start := off &^ (sector - 1)
	end := (off + int64(length) + sector - 1) &^ (sector - 1)
	if r.geo.VolumeSize > 0 && end > r.geo.VolumeSize {
		// Requested range fit but the alignment padding ran off the end;
		// clamp so tail reads near the last sector still succeed.
		end = r.geo.VolumeSize
	}

	buf := make([]byte, end-start)
	n, err := r.src.ReadAt(buf, start)
	if err != nil && !(err == io.EOF && int64(n) >= off-start+int64(length)) {
		return nil, &types.Error{Kind: types.ErrKindIO,
			Msg: fmt.Sprintf("read %d bytes at %d", len(buf), start), Err: err}
	}
	if int64(n) < off-start+int64(length) {
		return nil, &types.Error{Kind: types.ErrKindIO,
			Msg: fmt.Sprintf("short read: %d of %d at %d", n, len(buf), start)}
	}
	return buf[off-start : off-start+int64(length)], nil
}
