// Package ntfstest builds synthetic NTFS structures for tests: single file
// record segments, packed USN journal buffers, and whole miniature volume
// images with a boot sector and a contiguous MFT. Fixtures are assembled
// byte by byte against the same layout constants the decoders use, so a
// fixture bug and a decoder bug cannot cancel each other out silently.
package ntfstest

import (
	"encoding/binary"
	"time"

	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/pkg/types"
)

// FixtureTime is the timestamp stamped into every fixture record.
var FixtureTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// StdInfoAttr builds a resident $STANDARD_INFORMATION attribute.
func StdInfoAttr(attrs uint32) []byte {
	v := make([]byte, format.StdInfoMinSize)
	ft := format.TimeToFiletime(FixtureTime)
	binary.LittleEndian.PutUint64(v[format.StdInfoCreatedOffset:], ft)
	binary.LittleEndian.PutUint64(v[format.StdInfoModifiedOffset:], ft)
	binary.LittleEndian.PutUint64(v[format.StdInfoAccessedOffset:], ft)
	binary.LittleEndian.PutUint32(v[format.StdInfoAttrsOffset:], attrs)
	return ResidentAttr(format.AttrTypeStandardInformation, v)
}

// FileNameAttr builds a resident $FILE_NAME attribute.
func FileNameAttr(parent types.Ref, name string, namespace byte) []byte {
	enc := format.EncodeUTF16(name)
	v := make([]byte, format.FileNameMinSize+len(enc))
	binary.LittleEndian.PutUint64(v[format.FileNameParentOffset:], uint64(parent))
	v[format.FileNameLenOffset] = byte(len(enc) / 2)
	v[format.FileNameSpaceOffset] = namespace
	copy(v[format.FileNameNameOffset:], enc)
	return ResidentAttr(format.AttrTypeFileName, v)
}

// ResidentDataAttr builds a resident unnamed $DATA attribute holding data.
func ResidentDataAttr(data []byte) []byte {
	return ResidentAttr(format.AttrTypeData, data)
}

// NonResidentDataAttr builds a non-resident unnamed $DATA attribute with the
// given logical size and raw mapping pairs.
func NonResidentDataAttr(realSize uint64, runs []byte) []byte {
	return NonResidentAttr(format.AttrTypeData, realSize, runs)
}

// NonResidentAttr builds a non-resident attribute of the given type with
// the given logical size and raw mapping pairs.
func NonResidentAttr(typ format.AttrType, realSize uint64, runs []byte) []byte {
	length := (format.AttrNonResHeaderSize + len(runs) + 7) &^ 7
	b := make([]byte, length)
	binary.LittleEndian.PutUint32(b[format.AttrTypeOffset:], uint32(typ))
	binary.LittleEndian.PutUint32(b[format.AttrLengthOffset:], uint32(length))
	b[format.AttrNonResidentOffset] = 1
	binary.LittleEndian.PutUint16(b[format.AttrNonResRunsOffOffset:], format.AttrNonResHeaderSize)
	binary.LittleEndian.PutUint64(b[format.AttrNonResAllocOffset:], (realSize+4095)&^4095)
	binary.LittleEndian.PutUint64(b[format.AttrNonResRealOffset:], realSize)
	copy(b[format.AttrNonResHeaderSize:], runs)
	return b
}

// AttrListValue builds the raw $ATTRIBUTE_LIST contents whose entries point
// the given attribute types at the given extension records.
func AttrListValue(entries map[format.AttrType]types.Ref) []byte {
	var v []byte
	for typ, ref := range entries {
		e := make([]byte, format.AttrListEntryMinSize+6) // padded to 8-byte align
		binary.LittleEndian.PutUint32(e[format.AttrListTypeOffset:], uint32(typ))
		binary.LittleEndian.PutUint16(e[format.AttrListLengthOffset:], uint16(len(e)))
		binary.LittleEndian.PutUint64(e[format.AttrListBaseRefOffset:], uint64(ref))
		v = append(v, e...)
	}
	return v
}

// AttrListAttr builds a resident $ATTRIBUTE_LIST attribute whose entries
// point the given attribute types at the given extension records.
func AttrListAttr(entries map[format.AttrType]types.Ref) []byte {
	return ResidentAttr(format.AttrTypeAttributeList, AttrListValue(entries))
}

// ResidentAttr wraps a value in a resident attribute record.
func ResidentAttr(typ format.AttrType, value []byte) []byte {
	length := (format.AttrHeaderMinSize + len(value) + 7) &^ 7
	b := make([]byte, length)
	binary.LittleEndian.PutUint32(b[format.AttrTypeOffset:], uint32(typ))
	binary.LittleEndian.PutUint32(b[format.AttrLengthOffset:], uint32(length))
	binary.LittleEndian.PutUint32(b[format.AttrResValueLenOffset:], uint32(len(value)))
	binary.LittleEndian.PutUint16(b[format.AttrResValueOffOffset:], format.AttrHeaderMinSize)
	copy(b[format.AttrHeaderMinSize:], value)
	return b
}

// RecordOpts controls record segment assembly.
type RecordOpts struct {
	Sequence  uint16
	Flags     uint16 // format.RecordFlagInUse etc.
	BaseRef   types.Ref
	Size      int // record segment size; default 1024
	SectorLen int // default 512
	NoFixup   bool
}

// AssembleRecord builds a complete file record segment from attributes,
// including the end marker and valid update sequence stamps.
func AssembleRecord(opts RecordOpts, attrs ...[]byte) []byte {
	if opts.Size == 0 {
		opts.Size = 1024
	}
	if opts.SectorLen == 0 {
		opts.SectorLen = 512
	}
	const usaOff, firstAttr = 0x30, 0x38

	b := make([]byte, opts.Size)
	copy(b, format.RecordSignature)
	sectors := opts.Size / opts.SectorLen
	binary.LittleEndian.PutUint16(b[format.RecordUSAOffOffset:], usaOff)
	binary.LittleEndian.PutUint16(b[format.RecordUSACountOffset:], uint16(1+sectors))
	binary.LittleEndian.PutUint16(b[format.RecordSeqOffset:], opts.Sequence)
	binary.LittleEndian.PutUint16(b[format.RecordLinkCountOffset:], 1)
	binary.LittleEndian.PutUint16(b[format.RecordFirstAttrOffset:], firstAttr)
	binary.LittleEndian.PutUint16(b[format.RecordFlagsOffset:], opts.Flags)
	binary.LittleEndian.PutUint64(b[format.RecordBaseRefOffset:], uint64(opts.BaseRef))
	binary.LittleEndian.PutUint32(b[format.RecordBytesAllocOffset:], uint32(opts.Size))

	off := firstAttr
	for _, a := range attrs {
		copy(b[off:], a)
		off += len(a)
	}
	binary.LittleEndian.PutUint32(b[off:], uint32(format.AttrTypeEnd))
	off += 8
	binary.LittleEndian.PutUint32(b[format.RecordBytesUsedOffset:], uint32(off))

	if !opts.NoFixup {
		stampFixups(b, opts.SectorLen, usaOff, sectors)
	}
	return b
}

// stampFixups protects the record the way NTFS writes it: displaced sector
// tail bytes go into the USA, the update sequence number replaces them.
func stampFixups(b []byte, sectorLen, usaOff, sectors int) {
	const usn = 0x0101
	binary.LittleEndian.PutUint16(b[usaOff:], usn)
	for i := 1; i <= sectors; i++ {
		tail := i*sectorLen - 2
		binary.LittleEndian.PutUint16(b[usaOff+i*2:], binary.LittleEndian.Uint16(b[tail:]))
		binary.LittleEndian.PutUint16(b[tail:], usn)
	}
}

// USNRecordBytes builds one encoded USN_RECORD_V2.
func USNRecordBytes(usn types.USN, ref, parent types.Ref, reason, fileAttrs uint32, name string) []byte {
	enc := format.EncodeUTF16(name)
	recLen := (format.USNRecordMinSize + len(enc) + 7) &^ 7
	b := make([]byte, recLen)
	binary.LittleEndian.PutUint32(b[format.USNRecordLenOffset:], uint32(recLen))
	binary.LittleEndian.PutUint16(b[format.USNMajorOffset:], 2)
	binary.LittleEndian.PutUint64(b[format.USNFileRefOffset:], uint64(ref))
	binary.LittleEndian.PutUint64(b[format.USNParentRefOffset:], uint64(parent))
	binary.LittleEndian.PutUint64(b[format.USNUsnOffset:], uint64(usn))
	binary.LittleEndian.PutUint64(b[format.USNTimestampOffset:], format.TimeToFiletime(FixtureTime))
	binary.LittleEndian.PutUint32(b[format.USNReasonOffset:], reason)
	binary.LittleEndian.PutUint32(b[format.USNFileAttrsOffset:], fileAttrs)
	binary.LittleEndian.PutUint16(b[format.USNNameLenOffset:], uint16(len(enc)))
	binary.LittleEndian.PutUint16(b[format.USNNameOffOffset:], format.USNRecordMinSize)
	copy(b[format.USNRecordMinSize:], enc)
	return b
}
