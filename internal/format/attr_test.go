package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func buildResidentAttr(t *testing.T, typ AttrType, value []byte) []byte {
	t.Helper()
	length := (AttrHeaderMinSize + len(value) + 7) &^ 7
	b := make([]byte, length)
	binary.LittleEndian.PutUint32(b[AttrTypeOffset:], uint32(typ))
	binary.LittleEndian.PutUint32(b[AttrLengthOffset:], uint32(length))
	binary.LittleEndian.PutUint32(b[AttrResValueLenOffset:], uint32(len(value)))
	binary.LittleEndian.PutUint16(b[AttrResValueOffOffset:], AttrHeaderMinSize)
	copy(b[AttrHeaderMinSize:], value)
	return b
}

func buildNonResidentAttr(t *testing.T, typ AttrType, realSize uint64, runs []byte) []byte {
	t.Helper()
	length := (AttrNonResHeaderSize + len(runs) + 7) &^ 7
	b := make([]byte, length)
	binary.LittleEndian.PutUint32(b[AttrTypeOffset:], uint32(typ))
	binary.LittleEndian.PutUint32(b[AttrLengthOffset:], uint32(length))
	b[AttrNonResidentOffset] = 1
	binary.LittleEndian.PutUint16(b[AttrNonResRunsOffOffset:], AttrNonResHeaderSize)
	binary.LittleEndian.PutUint64(b[AttrNonResAllocOffset:], (realSize+4095)&^4095)
	binary.LittleEndian.PutUint64(b[AttrNonResRealOffset:], realSize)
	copy(b[AttrNonResHeaderSize:], runs)
	return b
}

func endMarker() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, uint32(AttrTypeEnd))
	return b
}

func TestDecodeAttrResident(t *testing.T) {
	value := []byte{1, 2, 3, 4}
	a, err := DecodeAttr(buildResidentAttr(t, AttrTypeStandardInformation, value))
	if err != nil {
		t.Fatalf("DecodeAttr: %v", err)
	}
	if a.NonResident {
		t.Errorf("resident attr decoded non-resident")
	}
	if string(a.Value) != string(value) {
		t.Errorf("value = %v", a.Value)
	}
}

func TestDecodeAttrNonResident(t *testing.T) {
	runs := []byte{0x11, 0x04, 0x02, 0x00}
	a, err := DecodeAttr(buildNonResidentAttr(t, AttrTypeData, 9000, runs))
	if err != nil {
		t.Fatalf("DecodeAttr: %v", err)
	}
	if !a.NonResident || a.RealSize != 9000 {
		t.Errorf("attr = %+v", a)
	}
	if len(a.RawRuns) < len(runs) {
		t.Errorf("runs not captured: %v", a.RawRuns)
	}
}

func TestDecodeAttrValueBeyondLength(t *testing.T) {
	b := buildResidentAttr(t, AttrTypeFileName, []byte{1, 2, 3, 4})
	binary.LittleEndian.PutUint32(b[AttrResValueLenOffset:], 4096)

	if _, err := DecodeAttr(b); !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestWalkAttrs(t *testing.T) {
	record := buildRecordHeader(t, 1024, RecordFlagInUse)
	off := 0x38
	for _, attr := range [][]byte{
		buildResidentAttr(t, AttrTypeStandardInformation, make([]byte, StdInfoMinSize)),
		buildResidentAttr(t, AttrTypeFileName, buildFileNameValue(t, 5, "walk.txt", NamespaceWin32)),
		endMarker(),
	} {
		copy(record[off:], attr)
		off += len(attr)
	}
	binary.LittleEndian.PutUint32(record[RecordBytesUsedOffset:], uint32(off))

	h, err := DecodeRecordHeader(record)
	if err != nil {
		t.Fatalf("DecodeRecordHeader: %v", err)
	}

	var seen []AttrType
	err = WalkAttrs(record, h, func(a Attr) (bool, error) {
		seen = append(seen, a.Type)
		return true, nil
	})
	if err != nil {
		t.Fatalf("WalkAttrs: %v", err)
	}
	if len(seen) != 2 || seen[0] != AttrTypeStandardInformation || seen[1] != AttrTypeFileName {
		t.Errorf("attrs = %v", seen)
	}
}

func TestWalkAttrsZeroLengthIsCorrupt(t *testing.T) {
	record := buildRecordHeader(t, 1024, RecordFlagInUse)
	// An attribute whose length field is zero must not loop forever.
	binary.LittleEndian.PutUint32(record[0x38:], uint32(AttrTypeData))
	binary.LittleEndian.PutUint32(record[0x3C:], 0)

	h, err := DecodeRecordHeader(record)
	if err != nil {
		t.Fatalf("DecodeRecordHeader: %v", err)
	}
	err = WalkAttrs(record, h, func(Attr) (bool, error) { return true, nil })
	if !errors.Is(err, ErrSanityLimit) {
		t.Fatalf("err = %v, want ErrSanityLimit", err)
	}
}
