package format

import (
	"bytes"
	"fmt"
)

// BootSector carries the geometry fields decoded from an NTFS boot sector.
type BootSector struct {
	BytesPerSector  int
	BytesPerCluster int
	BytesPerRecord  int
	MFTStartLCN     int64
	TotalSectors    int64
}

// DecodeBootSector decodes the first sector of an NTFS volume or image.
//
// The clusters-per-record field is signed: non-negative values count
// clusters, while a negative value n means the record size is 2^-n bytes
// regardless of cluster size (the common case, -10 = 1 KiB records, on
// volumes with clusters of 4 KiB and up).
func DecodeBootSector(b []byte) (BootSector, error) {
	if len(b) < BootSectorSize {
		return BootSector{}, fmt.Errorf("boot sector: %w (have %d, need %d)",
			ErrTruncated, len(b), BootSectorSize)
	}
	if ReadU16(b, BootMagicOffset) != BootMagic {
		return BootSector{}, fmt.Errorf("boot sector magic: %w", ErrSignatureMismatch)
	}
	if !bytes.Equal(b[BootOEMOffset:BootOEMOffset+len(BootOEMName)], BootOEMName) {
		return BootSector{}, fmt.Errorf("boot sector OEM name: %w", ErrSignatureMismatch)
	}

	bs := BootSector{
		BytesPerSector: int(ReadU16(b, BootBytesPerSectorOff)),
		MFTStartLCN:    int64(ReadU64(b, BootMFTClusterOffset)),
		TotalSectors:   int64(ReadU64(b, BootTotalSectorsOffset)),
	}
	if bs.BytesPerSector < 256 || bs.BytesPerSector&(bs.BytesPerSector-1) != 0 {
		return BootSector{}, fmt.Errorf("bytes per sector %d: %w", bs.BytesPerSector, ErrSanityLimit)
	}

	spc := int(b[BootSectorsPerClusterOff])
	if spc == 0 || spc&(spc-1) != 0 {
		return BootSector{}, fmt.Errorf("sectors per cluster %d: %w", spc, ErrSanityLimit)
	}
	bs.BytesPerCluster = bs.BytesPerSector * spc

	cpr := int8(b[BootClustersPerRecordOff])
	switch {
	case cpr > 0:
		bs.BytesPerRecord = int(cpr) * bs.BytesPerCluster
	case cpr < 0 && cpr >= -31:
		bs.BytesPerRecord = 1 << uint(-cpr)
	default:
		return BootSector{}, fmt.Errorf("clusters per record %d: %w", cpr, ErrSanityLimit)
	}
	if bs.BytesPerRecord < bs.BytesPerSector || bs.BytesPerRecord > MaxRecordSize {
		return BootSector{}, fmt.Errorf("record size %d: %w", bs.BytesPerRecord, ErrSanityLimit)
	}
	if bs.MFTStartLCN <= 0 {
		return BootSector{}, fmt.Errorf("MFT start LCN %d: %w", bs.MFTStartLCN, ErrSanityLimit)
	}
	return bs, nil
}
