package format

import (
	"bytes"
	"fmt"

	"github.com/everidx/everidx/internal/buf"
)

// RecordHeader captures the fixed header of an MFT file record segment.
type RecordHeader struct {
	USAOffset       uint16
	USACount        uint16
	Sequence        uint16
	HardLinkCount   uint16
	FirstAttrOffset uint16
	Flags           uint16
	BytesUsed       uint32
	BytesAllocated  uint32
	BaseRef         uint64 // non-zero when this segment extends another record
}

// InUse reports whether the slot currently holds a live file.
func (h RecordHeader) InUse() bool { return h.Flags&RecordFlagInUse != 0 }

// IsDirectory reports the directory flag of the base record.
func (h RecordHeader) IsDirectory() bool { return h.Flags&RecordFlagDirectory != 0 }

// IsExtension reports whether this segment continues another record's
// attribute list rather than describing a file of its own.
func (h RecordHeader) IsExtension() bool { return h.BaseRef != 0 }

// DecodeRecordHeader decodes and sanity-checks a file record segment header.
// A "BAAD" signature decodes to ErrRecordFree: NTFS blanked the segment
// after a failed multi-sector write and nothing in it is trustworthy.
func DecodeRecordHeader(b []byte) (RecordHeader, error) {
	if len(b) < RecordHeaderSize {
		return RecordHeader{}, fmt.Errorf("record header: %w (have %d, need %d)",
			ErrTruncated, len(b), RecordHeaderSize)
	}
	if bytes.Equal(b[:SignatureSize], BadRecordSignature) {
		return RecordHeader{}, fmt.Errorf("record: %w", ErrRecordFree)
	}
	if !bytes.Equal(b[:SignatureSize], RecordSignature) {
		return RecordHeader{}, fmt.Errorf("record: %w", ErrSignatureMismatch)
	}

	h := RecordHeader{
		USAOffset:       ReadU16(b, RecordUSAOffOffset),
		USACount:        ReadU16(b, RecordUSACountOffset),
		Sequence:        ReadU16(b, RecordSeqOffset),
		HardLinkCount:   ReadU16(b, RecordLinkCountOffset),
		FirstAttrOffset: ReadU16(b, RecordFirstAttrOffset),
		Flags:           ReadU16(b, RecordFlagsOffset),
		BytesUsed:       ReadU32(b, RecordBytesUsedOffset),
		BytesAllocated:  ReadU32(b, RecordBytesAllocOffset),
		BaseRef:         ReadU64(b, RecordBaseRefOffset),
	}

	if int(h.BytesUsed) > len(b) || h.BytesUsed > MaxRecordSize {
		return RecordHeader{}, fmt.Errorf("record bytes used %d: %w", h.BytesUsed, ErrSanityLimit)
	}
	if int(h.FirstAttrOffset) < RecordHeaderSize || int(h.FirstAttrOffset) >= len(b) {
		return RecordHeader{}, fmt.Errorf("record first attribute offset %d: %w",
			h.FirstAttrOffset, ErrSanityLimit)
	}
	return h, nil
}

// SignatureSize is the length of the record magic.
const SignatureSize = 4

// ApplyFixup undoes the update sequence array protection in place.
//
// NTFS stamps the last two bytes of every sector of a multi-sector structure
// with the update sequence number and saves the displaced bytes in the USA.
// A mismatched stamp means the record was torn by an interrupted write.
// The buffer must hold the full record segment.
func ApplyFixup(b []byte, bytesPerSector int) error {
	if bytesPerSector <= 0 {
		return fmt.Errorf("fixup: invalid sector size %d", bytesPerSector)
	}
	usaOff := int(ReadU16(b, RecordUSAOffOffset))
	usaCount := int(ReadU16(b, RecordUSACountOffset))
	if usaCount < 2 {
		// Single-sector records on large-sector volumes carry no fixups.
		return nil
	}
	if _, lerr := buf.CheckListBounds(len(b), usaOff, usaCount, 2); lerr != nil {
		return fmt.Errorf("fixup array at %d count %d: %w", usaOff, usaCount, ErrTruncated)
	}
	if (usaCount-1)*bytesPerSector > len(b) {
		return fmt.Errorf("fixup covers %d sectors beyond record: %w", usaCount-1, ErrTruncated)
	}

	usn := ReadU16(b, usaOff)
	for i := 1; i < usaCount; i++ {
		end := i*bytesPerSector - 2
		if ReadU16(b, end) != usn {
			return fmt.Errorf("sector %d: %w", i-1, ErrFixupMismatch)
		}
		PutU16(b, end, ReadU16(b, usaOff+i*2))
	}
	return nil
}
