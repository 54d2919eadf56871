package format

import (
	"fmt"

	"github.com/everidx/everidx/internal/buf"
)

// Attr is one decoded attribute header plus a view of its bytes. Value and
// run data are sub-slices of the record buffer, valid as long as it is.
type Attr struct {
	Type        AttrType
	Length      uint32 // full attribute record length
	NonResident bool
	NameLen     uint8
	Flags       uint16

	// Resident attributes.
	Value []byte

	// Non-resident attributes.
	RealSize  uint64
	AllocSize uint64
	RawRuns   []byte // mapping pairs, undecoded
}

// DecodeAttr decodes the attribute starting at the beginning of b, which
// extends to the end of the record's used area.
func DecodeAttr(b []byte) (Attr, error) {
	if len(b) < AttrHeaderMinSize {
		return Attr{}, fmt.Errorf("attr header: %w (have %d)", ErrTruncated, len(b))
	}

	a := Attr{
		Type:        AttrType(ReadU32(b, AttrTypeOffset)),
		Length:      ReadU32(b, AttrLengthOffset),
		NonResident: b[AttrNonResidentOffset] != 0,
		NameLen:     b[AttrNameLenOffset],
		Flags:       ReadU16(b, AttrFlagsOffset),
	}
	if a.Length < AttrHeaderMinSize || int(a.Length) > len(b) {
		return Attr{}, fmt.Errorf("attr length %d: %w", a.Length, ErrSanityLimit)
	}

	if !a.NonResident {
		valueLen := int(ReadU32(b, AttrResValueLenOffset))
		valueOff := int(ReadU16(b, AttrResValueOffOffset))
		value, ok := buf.Slice(b, valueOff, valueLen)
		if !ok || valueOff+valueLen > int(a.Length) {
			return Attr{}, fmt.Errorf("attr resident value at %d len %d: %w",
				valueOff, valueLen, ErrTruncated)
		}
		a.Value = value
		return a, nil
	}

	if len(b) < AttrNonResHeaderSize {
		return Attr{}, fmt.Errorf("attr non-resident header: %w", ErrTruncated)
	}
	a.AllocSize = ReadU64(b, AttrNonResAllocOffset)
	a.RealSize = ReadU64(b, AttrNonResRealOffset)
	runsOff := int(ReadU16(b, AttrNonResRunsOffOffset))
	runs, ok := buf.Slice(b, runsOff, int(a.Length)-runsOff)
	if !ok {
		return Attr{}, fmt.Errorf("attr runs at %d: %w", runsOff, ErrTruncated)
	}
	a.RawRuns = runs
	return a, nil
}

// WalkAttrs iterates the attribute stream of a fixed-up record segment,
// calling fn for each decoded attribute until the end marker, a decode
// error, or fn returning false.
//
// The walk is resilient by construction: a zero or shrinking length would
// loop forever, so it is reported as corruption instead.
func WalkAttrs(record []byte, h RecordHeader, fn func(Attr) (bool, error)) error {
	used := int(h.BytesUsed)
	if used > len(record) {
		used = len(record)
	}
	off := int(h.FirstAttrOffset)
	for off+4 <= used {
		if AttrType(ReadU32(record, off)) == AttrTypeEnd {
			return nil
		}
		a, err := DecodeAttr(record[off:used])
		if err != nil {
			return fmt.Errorf("attr at %#x: %w", off, err)
		}
		cont, err := fn(a)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		off += int(a.Length)
	}
	return nil
}
