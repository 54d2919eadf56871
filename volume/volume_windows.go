//go:build windows

package volume

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/everidx/everidx/pkg/types"
)

// fsctlGetNTFSVolumeData asks the NTFS driver for the volume constants the
// boot sector would otherwise provide.
const fsctlGetNTFSVolumeData = 0x00090064

// ntfsVolumeData mirrors NTFS_VOLUME_DATA_BUFFER.
type ntfsVolumeData struct {
	VolumeSerialNumber           int64
	NumberSectors                int64
	TotalClusters                int64
	FreeClusters                 int64
	TotalReserved                int64
	BytesPerSector               uint32
	BytesPerCluster              uint32
	BytesPerFileRecordSegment    uint32
	ClustersPerFileRecordSegment uint32
	MftValidDataLength           int64
	MftStartLcn                  int64
	Mft2StartLcn                 int64
	MftZoneStart                 int64
	MftZoneEnd                   int64
}

// Drive is an open raw handle on a mounted NTFS volume.
type Drive struct {
	*Reader
	Letter byte
	f      *os.File
}

// Handle exposes the underlying file for journal FSCTL calls.
func (d *Drive) Handle() windows.Handle { return windows.Handle(d.f.Fd()) }

// Close releases the volume handle.
func (d *Drive) Close() error { return d.f.Close() }

// OpenDrive opens `\\.\X:` read-only and queries its NTFS geometry.
// Requires Administrator rights; the share mode must admit writers since
// the volume stays mounted.
func OpenDrive(letter byte) (*Drive, error) {
	path, err := windows.UTF16PtrFromString(fmt.Sprintf(`\\.\%c:`, letter))
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(path,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindIO,
			Msg: fmt.Sprintf("open volume %c:", letter), Err: err}
	}

	var data ntfsVolumeData
	var returned uint32
	err = windows.DeviceIoControl(h, fsctlGetNTFSVolumeData,
		nil, 0,
		(*byte)(unsafe.Pointer(&data)), uint32(unsafe.Sizeof(data)),
		&returned, nil)
	if err != nil {
		windows.CloseHandle(h)
		return nil, &types.Error{Kind: types.ErrKindIO,
			Msg: fmt.Sprintf("query NTFS volume data for %c:", letter), Err: err}
	}

	f := os.NewFile(uintptr(h), fmt.Sprintf(`\\.\%c:`, letter))
	geo := types.Geometry{
		BytesPerSector:  int(data.BytesPerSector),
		BytesPerCluster: int(data.BytesPerCluster),
		BytesPerRecord:  int(data.BytesPerFileRecordSegment),
		MFTStartLCN:     data.MftStartLcn,
		VolumeSize:      data.NumberSectors * int64(data.BytesPerSector),
	}
	r, err := New(f, geo)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Drive{Reader: r, Letter: letter, f: f}, nil
}

// DriveLetters returns the letters of all mounted logical drives. Callers
// filter for NTFS by attempting OpenDrive.
func DriveLetters() []byte {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil
	}
	var out []byte
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) != 0 {
			out = append(out, byte('A'+i))
		}
	}
	return out
}
