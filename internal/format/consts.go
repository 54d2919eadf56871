// Package format houses low-level decoders for NTFS on-disk structures: the
// boot sector, MFT file record segments and their attribute streams, and USN
// change journal records. The goal is to keep the parsing focused,
// allocation-free where possible, and independent from the public API so
// higher-level packages can orchestrate the data in a more ergonomic form.
package format

var (
	// RecordSignature is the four-byte magic at the start of every in-use
	// MFT file record segment.
	// Layout:
	//   0x00  'F' 'I' 'L' 'E'
	RecordSignature = []byte{'F', 'I', 'L', 'E'}

	// BadRecordSignature marks a record segment NTFS has taken out of
	// service after a bad-sector relocation. Treated as free.
	BadRecordSignature = []byte{'B', 'A', 'A', 'D'}

	// BootOEMName is the OEM identifier of an NTFS boot sector.
	BootOEMName = []byte("NTFS    ")
)

// AttrType is an NTFS attribute type code. The type space is closed by the
// NTFS specification, so decoding dispatches over a fixed set rather than
// open-ended handlers.
type AttrType uint32

const (
	AttrTypeStandardInformation AttrType = 0x10
	AttrTypeAttributeList       AttrType = 0x20
	AttrTypeFileName            AttrType = 0x30
	AttrTypeObjectID            AttrType = 0x40
	AttrTypeSecurityDescriptor  AttrType = 0x50
	AttrTypeVolumeName          AttrType = 0x60
	AttrTypeVolumeInformation   AttrType = 0x70
	AttrTypeData                AttrType = 0x80
	AttrTypeIndexRoot           AttrType = 0x90
	AttrTypeIndexAllocation     AttrType = 0xA0
	AttrTypeBitmap              AttrType = 0xB0
	AttrTypeReparsePoint        AttrType = 0xC0
	AttrTypeEnd                 AttrType = 0xFFFFFFFF
)

// File record segment header layout:
//
//	Offset  Size  Field
//	0x00    4     Magic ("FILE")
//	0x04    2     Update sequence array offset
//	0x06    2     Update sequence array count (1 + sectors covered)
//	0x08    8     $LogFile sequence number (ignored)
//	0x10    2     Sequence number
//	0x12    2     Hard link count
//	0x14    2     First attribute offset
//	0x16    2     Flags (0x1 in use, 0x2 directory)
//	0x18    4     Bytes used by this record
//	0x1C    4     Bytes allocated for this record
//	0x20    8     Base record reference (0 for base records)
//	0x28    2     Next attribute ID (ignored)
const (
	RecordUSAOffOffset     = 0x04
	RecordUSACountOffset   = 0x06
	RecordSeqOffset        = 0x10
	RecordLinkCountOffset  = 0x12
	RecordFirstAttrOffset  = 0x14
	RecordFlagsOffset      = 0x16
	RecordBytesUsedOffset  = 0x18
	RecordBytesAllocOffset = 0x1C
	RecordBaseRefOffset    = 0x20

	// RecordHeaderSize is the fixed portion of the record header.
	RecordHeaderSize = 0x2A

	// RecordFlagInUse and RecordFlagDirectory are the two header flag bits
	// the indexer cares about.
	RecordFlagInUse     = 0x0001
	RecordFlagDirectory = 0x0002
)

// Attribute header layout (common portion):
//
//	Offset  Size  Field
//	0x00    4     Type code
//	0x04    4     Record length (8-byte aligned)
//	0x08    1     Non-resident flag
//	0x09    1     Name length (UTF-16 units)
//	0x0A    2     Name offset
//	0x0C    2     Flags (0x0001 compressed, 0x4000 encrypted, 0x8000 sparse)
//	0x0E    2     Attribute ID
//
// Resident continuation:
//
//	0x10    4     Value length
//	0x14    2     Value offset
//	0x16    1     Indexed flag
//
// Non-resident continuation:
//
//	0x10    8     Starting VCN
//	0x18    8     Ending VCN
//	0x20    2     Data runs offset
//	0x22    2     Compression unit size
//	0x28    8     Allocated size
//	0x30    8     Real (logical) size
//	0x38    8     Initialized size
const (
	AttrTypeOffset        = 0x00
	AttrLengthOffset      = 0x04
	AttrNonResidentOffset = 0x08
	AttrNameLenOffset     = 0x09
	AttrNameOffOffset     = 0x0A
	AttrFlagsOffset       = 0x0C
	AttrIDOffset          = 0x0E

	AttrResValueLenOffset = 0x10
	AttrResValueOffOffset = 0x14

	AttrNonResRunsOffOffset = 0x20
	AttrNonResAllocOffset   = 0x28
	AttrNonResRealOffset    = 0x30

	// AttrHeaderMinSize is the smallest decodable attribute header (the
	// common portion plus the resident continuation).
	AttrHeaderMinSize = 0x18

	// AttrNonResHeaderSize is the fixed non-resident header size up to and
	// including the initialized-size field.
	AttrNonResHeaderSize = 0x40
)

// $STANDARD_INFORMATION value layout (fixed prefix):
//
//	Offset  Size  Field
//	0x00    8     Creation time (FILETIME)
//	0x08    8     Last data change time
//	0x10    8     MFT change time (ignored)
//	0x18    8     Last access time
//	0x20    4     DOS file attribute flags
const (
	StdInfoCreatedOffset  = 0x00
	StdInfoModifiedOffset = 0x08
	StdInfoAccessedOffset = 0x18
	StdInfoAttrsOffset    = 0x20

	StdInfoMinSize = 0x24
)

// $FILE_NAME value layout:
//
//	Offset  Size  Field
//	0x00    8     Parent directory reference (48-bit segment + 16-bit sequence)
//	0x08    8     Creation time
//	0x10    8     Last data change time
//	0x18    8     MFT change time
//	0x20    8     Last access time
//	0x28    8     Allocated size
//	0x30    8     Real size
//	0x38    4     Flags
//	0x3C    4     Reparse tag / EA size
//	0x40    1     Name length in UTF-16 units
//	0x41    1     Namespace
//	0x42    n*2   Name (UTF-16LE)
const (
	FileNameParentOffset   = 0x00
	FileNameRealSizeOffset = 0x30
	FileNameFlagsOffset    = 0x38
	FileNameLenOffset      = 0x40
	FileNameSpaceOffset    = 0x41
	FileNameNameOffset     = 0x42

	FileNameMinSize = 0x42
)

// Filename namespaces. DOS-only names are the short 8.3 form generated
// alongside a long name; they lose the tie-break when both are present.
const (
	NamespacePOSIX    = 0
	NamespaceWin32    = 1
	NamespaceDOS      = 2
	NamespaceWin32DOS = 3
)

// $ATTRIBUTE_LIST entry layout:
//
//	Offset  Size  Field
//	0x00    4     Attribute type code
//	0x04    2     Entry length
//	0x06    1     Name length (UTF-16 units)
//	0x07    1     Name offset
//	0x08    8     Starting VCN
//	0x10    8     Base file reference of the record holding the attribute
//	0x18    2     Attribute ID
const (
	AttrListTypeOffset    = 0x00
	AttrListLengthOffset  = 0x04
	AttrListBaseRefOffset = 0x10

	AttrListEntryMinSize = 0x1A
)

// USN_RECORD_V2 layout. V3 records differ only in carrying 128-bit file
// references; the indexer requests V2 and rejects other major versions.
//
//	Offset  Size  Field
//	0x00    4     Record length (8-byte aligned)
//	0x04    2     Major version
//	0x06    2     Minor version
//	0x08    8     File reference number
//	0x10    8     Parent file reference number
//	0x18    8     USN of this record
//	0x20    8     Timestamp (FILETIME)
//	0x28    4     Reason flags
//	0x2C    4     Source info
//	0x30    4     Security ID (ignored)
//	0x34    4     File attribute flags
//	0x38    2     Filename length in bytes
//	0x3A    2     Filename offset
//	0x3C    n     Filename (UTF-16LE)
const (
	USNRecordLenOffset   = 0x00
	USNMajorOffset       = 0x04
	USNFileRefOffset     = 0x08
	USNParentRefOffset   = 0x10
	USNUsnOffset         = 0x18
	USNTimestampOffset   = 0x20
	USNReasonOffset      = 0x28
	USNSourceInfoOffset  = 0x2C
	USNFileAttrsOffset   = 0x34
	USNNameLenOffset     = 0x38
	USNNameOffOffset     = 0x3A

	USNRecordMinSize = 0x3C
)

// USN reason flags.
const (
	USNReasonDataOverwrite   = 0x00000001
	USNReasonDataExtend      = 0x00000002
	USNReasonDataTruncation  = 0x00000004
	USNReasonFileCreate      = 0x00000100
	USNReasonFileDelete      = 0x00000200
	USNReasonEAChange        = 0x00000400
	USNReasonSecurityChange  = 0x00000800
	USNReasonRenameOldName   = 0x00001000
	USNReasonRenameNewName   = 0x00002000
	USNReasonBasicInfoChange = 0x00008000
	USNReasonHardLinkChange  = 0x00010000
	USNReasonClose           = 0x80000000
)

// NTFS boot sector layout (fields the indexer needs):
//
//	Offset  Size  Field
//	0x03    8     OEM name ("NTFS    ")
//	0x0B    2     Bytes per sector
//	0x0D    1     Sectors per cluster
//	0x28    8     Total sectors
//	0x30    8     $MFT start LCN
//	0x40    1     Clusters per file record segment (negative: 2^-n bytes)
//	0x1FE   2     0xAA55
const (
	BootOEMOffset            = 0x03
	BootBytesPerSectorOff    = 0x0B
	BootSectorsPerClusterOff = 0x0D
	BootTotalSectorsOffset   = 0x28
	BootMFTClusterOffset     = 0x30
	BootClustersPerRecordOff = 0x40
	BootMagicOffset          = 0x1FE

	BootSectorSize = 512
	BootMagic      = 0xAA55
)

// Sanity limits applied while decoding. Real volumes sit far below these;
// exceeding one indicates corruption rather than scale.
const (
	MaxNameChars     = 255      // NTFS filename component limit
	MaxRecordSize    = 64 << 10 // largest plausible file record segment
	MaxUSNRecordSize = 1 << 16  // largest plausible journal record
	MaxDataRuns      = 1 << 20  // runs in a single mapping pair array
)

// UTF16ASCIIThreshold is the first code unit that is not plain ASCII; used
// by the fast path in DecodeUTF16.
const UTF16ASCIIThreshold = 0x80
