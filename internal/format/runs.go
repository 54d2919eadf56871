package format

import (
	"fmt"
)

// Extent is one contiguous byte range of a non-resident attribute's data on
// the volume, paired with its position in the attribute's logical stream.
type Extent struct {
	LogicalStart int64 // byte offset within the attribute's data
	VolumeStart  int64 // absolute byte offset on the volume
	Length       int64
}

// End returns the exclusive logical end offset of the extent.
func (e Extent) End() int64 { return e.LogicalStart + e.Length }

// DecodeRuns decodes a non-resident attribute's mapping pairs ("data runs")
// into absolute volume extents.
//
// Each run starts with a nibble-packed header byte: the low nibble is the
// byte width of the cluster count, the high nibble the byte width of the
// signed delta from the previous run's LCN. A zero header terminates the
// list. Sparse runs (offset width 0) describe holes and are skipped; the
// MFT itself is never sparse, and hole contents are not interesting to a
// metadata scan.
func DecodeRuns(raw []byte, bytesPerCluster int) ([]Extent, error) {
	if bytesPerCluster <= 0 {
		return nil, fmt.Errorf("runs: invalid cluster size %d", bytesPerCluster)
	}

	var (
		out       []Extent
		off       int
		logical   int64
		prevLCN   int64
	)
	for off < len(raw) && raw[off] != 0 {
		if len(out) >= MaxDataRuns {
			return nil, fmt.Errorf("runs: %w", ErrSanityLimit)
		}
		countWidth := int(raw[off] & 0xF)
		deltaWidth := int(raw[off] >> 4)
		off++
		if countWidth == 0 || countWidth > 8 || deltaWidth > 8 {
			return nil, fmt.Errorf("run header widths %d/%d: %w", countWidth, deltaWidth, ErrSanityLimit)
		}
		if off+countWidth+deltaWidth > len(raw) {
			return nil, fmt.Errorf("run at %d: %w", off-1, ErrTruncated)
		}

		count := int64(readLE(raw[off : off+countWidth]))
		off += countWidth

		if deltaWidth == 0 {
			// Sparse run: advances the logical stream, maps to no clusters.
			logical += count * int64(bytesPerCluster)
			continue
		}

		delta := int64(readLE(raw[off : off+deltaWidth]))
		off += deltaWidth
		// Sign-extend the delta; it is stored in the minimum width and the
		// buffer above zero-fills the high bytes.
		shift := uint(64 - deltaWidth*8)
		delta = delta << shift >> shift

		prevLCN += delta
		if prevLCN < 0 || count <= 0 {
			return nil, fmt.Errorf("run lcn %d count %d: %w", prevLCN, count, ErrSanityLimit)
		}
		out = append(out, Extent{
			LogicalStart: logical,
			VolumeStart:  prevLCN * int64(bytesPerCluster),
			Length:       count * int64(bytesPerCluster),
		})
		logical += count * int64(bytesPerCluster)
	}
	return out, nil
}

func readLE(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
