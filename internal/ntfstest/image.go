package ntfstest

import (
	"encoding/binary"

	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/pkg/types"
)

// Image geometry shared by all fixture volumes: 512-byte sectors, 1 KiB
// clusters, 1 KiB file records, MFT at LCN 8.
const (
	imageSectorLen = 512
	imageCluster   = 1024
	imageRecord    = 1024
	imageMFTLCN    = 8
)

// Entry describes one user-visible file or directory in a fixture image.
type Entry struct {
	Segment  uint64
	Sequence uint16
	Parent   types.Ref
	Name     string
	Dir      bool
	Data     []byte // resident file content; sets the record's logical size
}

// Ref returns the entry's file reference number.
func (e Entry) Ref() types.Ref {
	return types.NewRef(e.Segment, e.Sequence)
}

// RootRef is the fixture volume root's reference (segment 5, sequence 5,
// matching how NTFS numbers the reserved records).
var RootRef = types.NewRef(types.RootSegment, 5)

// BuildImage assembles a miniature NTFS volume image: a boot sector, a
// contiguous single-run MFT holding the $MFT self-record, the root
// directory, and the given entries. Segments 1-4 and 6-15 stay zeroed, as
// preallocated free slots are on a real volume.
func BuildImage(entries []Entry) ([]byte, types.Geometry) {
	recordCount := uint64(16)
	for _, e := range entries {
		if e.Segment >= recordCount {
			recordCount = e.Segment + 1
		}
	}

	mftOffset := int64(imageMFTLCN * imageCluster)
	mftSize := int64(recordCount) * imageRecord
	img := make([]byte, mftOffset+mftSize)

	writeBootSector(img)

	// Record 0: $MFT itself, with a non-resident $DATA attribute describing
	// its own single run. The scanner reads everything else through it.
	runs := encodeSingleRun(recordCount, imageMFTLCN)
	mftRec := AssembleRecord(RecordOpts{Sequence: 1, Flags: format.RecordFlagInUse},
		StdInfoAttr(uint32(types.AttrHidden|types.AttrSystem)),
		FileNameAttr(RootRef, "$MFT", format.NamespaceWin32),
		NonResidentDataAttr(uint64(mftSize), runs),
	)
	copy(img[mftOffset:], mftRec)

	// Record 5: the root directory. Its on-disk parent is itself.
	rootRec := AssembleRecord(RecordOpts{Sequence: 5, Flags: format.RecordFlagInUse | format.RecordFlagDirectory},
		StdInfoAttr(uint32(types.AttrHidden|types.AttrSystem)),
		FileNameAttr(RootRef, ".", format.NamespaceWin32DOS),
	)
	copy(img[mftOffset+int64(types.RootSegment)*imageRecord:], rootRec)

	for _, e := range entries {
		copy(img[mftOffset+int64(e.Segment)*imageRecord:], BuildEntryRecord(e))
	}

	return img, types.Geometry{
		BytesPerSector:  imageSectorLen,
		BytesPerCluster: imageCluster,
		BytesPerRecord:  imageRecord,
		MFTStartLCN:     imageMFTLCN,
		VolumeSize:      int64(len(img)),
	}
}

// BuildEntryRecord assembles the record segment for one fixture entry.
func BuildEntryRecord(e Entry) []byte {
	flags := uint16(format.RecordFlagInUse)
	var attrBits types.FileAttrs
	if e.Dir {
		flags |= format.RecordFlagDirectory
		attrBits |= types.AttrDirectory
	}
	parts := [][]byte{
		StdInfoAttr(uint32(attrBits)),
		FileNameAttr(e.Parent, e.Name, format.NamespaceWin32),
	}
	if !e.Dir {
		parts = append(parts, ResidentDataAttr(e.Data))
	}
	return AssembleRecord(RecordOpts{Sequence: e.Sequence, Flags: flags}, parts...)
}

func writeBootSector(img []byte) {
	copy(img[format.BootOEMOffset:], format.BootOEMName)
	binary.LittleEndian.PutUint16(img[format.BootBytesPerSectorOff:], imageSectorLen)
	img[format.BootSectorsPerClusterOff] = imageCluster / imageSectorLen
	binary.LittleEndian.PutUint64(img[format.BootTotalSectorsOffset:], uint64(len(img)/imageSectorLen))
	binary.LittleEndian.PutUint64(img[format.BootMFTClusterOffset:], imageMFTLCN)
	img[format.BootClustersPerRecordOff] = 0xF6 // -10: 1 KiB records
	binary.LittleEndian.PutUint16(img[format.BootMagicOffset:], format.BootMagic)
}

func encodeSingleRun(clusters, lcn uint64) []byte {
	// Two-byte count and two-byte LCN cover any fixture this package builds.
	return []byte{0x22, byte(clusters), byte(clusters >> 8), byte(lcn), byte(lcn >> 8), 0x00}
}

// FiveRecordFixture is the canonical bootstrap fixture: root plus two
// directories and two files,
//
//	\dirA\file1.txt
//	\dirB
//	\file2.txt
//
// exercising both nesting and root-level placement.
func FiveRecordFixture() []Entry {
	dirA := Entry{Segment: 16, Sequence: 1, Parent: RootRef, Name: "dirA", Dir: true}
	return []Entry{
		dirA,
		{Segment: 17, Sequence: 1, Parent: RootRef, Name: "dirB", Dir: true},
		{Segment: 18, Sequence: 1, Parent: dirA.Ref(), Name: "file1.txt", Data: []byte("hello")},
		{Segment: 19, Sequence: 1, Parent: RootRef, Name: "file2.txt", Data: []byte("world!")},
	}
}
