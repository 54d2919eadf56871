package types

import (
	"fmt"
	"time"
)

// Ref is a file reference number (FRN): a 48-bit MFT segment number in the
// low bits plus a 16-bit sequence number in the high bits, exactly as NTFS
// stores it on disk. The segment number indexes the record slot; the
// sequence number increments each time the slot is reused, invalidating
// stale references. Two Refs are equal only when both fields match.
type Ref uint64

const (
	// SegmentMask extracts the 48-bit segment number from a Ref.
	SegmentMask = Ref(1)<<48 - 1

	// RootSegment is the MFT segment number of the volume root directory.
	// Fixed by the NTFS layout: records 0-15 are reserved metadata files
	// and record 5 is ".".
	RootSegment uint64 = 5
)

// NewRef composes a Ref from a segment and sequence number.
func NewRef(segment uint64, sequence uint16) Ref {
	return Ref(segment&uint64(SegmentMask)) | Ref(sequence)<<48
}

// Segment returns the 48-bit MFT record slot number.
func (r Ref) Segment() uint64 { return uint64(r & SegmentMask) }

// Sequence returns the 16-bit slot reuse generation.
func (r Ref) Sequence() uint16 { return uint16(r >> 48) }

// IsZero reports whether r is the zero reference. The volume root's parent
// is normalized to the zero Ref.
func (r Ref) IsZero() bool { return r == 0 }

func (r Ref) String() string {
	return fmt.Sprintf("%d#%d", r.Segment(), r.Sequence())
}

// FileAttrs is the subset of Windows file attribute flags the index
// preserves. Values match the on-disk FILE_ATTRIBUTE_* constants.
type FileAttrs uint32

const (
	AttrReadOnly     FileAttrs = 0x0001
	AttrHidden       FileAttrs = 0x0002
	AttrSystem       FileAttrs = 0x0004
	AttrDirectory    FileAttrs = 0x0010
	AttrArchive      FileAttrs = 0x0020
	AttrReparsePoint FileAttrs = 0x0400
	AttrCompressed   FileAttrs = 0x0800
)

func (a FileAttrs) String() string {
	var out []byte
	set := func(c byte, f FileAttrs) {
		if a&f != 0 {
			out = append(out, c)
		} else {
			out = append(out, '-')
		}
	}
	set('r', AttrReadOnly)
	set('h', AttrHidden)
	set('s', AttrSystem)
	set('d', AttrDirectory)
	set('a', AttrArchive)
	set('p', AttrReparsePoint)
	set('c', AttrCompressed)
	return string(out)
}

// FileRecord is the normalized unit the index stores: one file or directory
// decoded from its MFT record or synthesized from a journal event.
//
// FileRecord values are treated as immutable once handed to the index.
// Updates construct a new value and replace the old one wholesale, which is
// what lets concurrent readers hold returned copies without torn state.
type FileRecord struct {
	Ref    Ref // identity; immutable for the record's lifetime
	Parent Ref // containing directory; zero for the volume root

	// Name is the long filename. When a record carries both a short 8.3
	// and a long name, the long form is authoritative.
	Name string

	IsDir bool
	Size  int64 // logical size of the unnamed data stream; 0 for directories

	Created  time.Time
	Modified time.Time
	Accessed time.Time

	Attrs FileAttrs
}

// USN is a position in the NTFS change journal. USNs are byte offsets into
// the journal stream and increase monotonically.
type USN int64

// Geometry carries the volume-level constants the core needs to locate and
// size MFT records. It is read from the boot sector (or
// FSCTL_GET_NTFS_VOLUME_DATA) by the volume-opening collaborator, not by
// the core itself.
type Geometry struct {
	BytesPerSector  int
	BytesPerCluster int
	BytesPerRecord  int   // MFT file record segment size, typically 1 KiB
	MFTStartLCN     int64 // first logical cluster of the $MFT data
	VolumeSize      int64 // total bytes; 0 when unknown
}

// MFTOffset returns the byte offset of MFT record 0.
func (g Geometry) MFTOffset() int64 {
	return g.MFTStartLCN * int64(g.BytesPerCluster)
}

// Validate checks the structural sanity of the geometry.
func (g Geometry) Validate() error {
	if g.BytesPerSector <= 0 || g.BytesPerSector&(g.BytesPerSector-1) != 0 {
		return &Error{Kind: ErrKindState, Msg: fmt.Sprintf("invalid sector size %d", g.BytesPerSector)}
	}
	if g.BytesPerCluster < g.BytesPerSector || g.BytesPerCluster&(g.BytesPerCluster-1) != 0 {
		return &Error{Kind: ErrKindState, Msg: fmt.Sprintf("invalid cluster size %d", g.BytesPerCluster)}
	}
	if g.BytesPerRecord < g.BytesPerSector {
		return &Error{Kind: ErrKindState, Msg: fmt.Sprintf("invalid record size %d", g.BytesPerRecord)}
	}
	if g.MFTStartLCN < 0 {
		return &Error{Kind: ErrKindState, Msg: fmt.Sprintf("invalid MFT start LCN %d", g.MFTStartLCN)}
	}
	return nil
}

// MonitorState is the externally visible state of the journal monitor.
type MonitorState int32

const (
	MonitorIdle MonitorState = iota
	MonitorTailing
	MonitorGapRecovery
	MonitorFaulted
)

func (s MonitorState) String() string {
	switch s {
	case MonitorIdle:
		return "idle"
	case MonitorTailing:
		return "tailing"
	case MonitorGapRecovery:
		return "gap-recovery"
	case MonitorFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ScanStats summarizes one full-table scan.
type ScanStats struct {
	Parsed  int // records yielded to the index
	Skipped int // malformed records skipped
	Free    int // slots not in use
}

// IndexStats summarizes the live index for the status interface.
type IndexStats struct {
	Records     int
	Directories int
	Orphans     int // records whose parent does not currently resolve
}
