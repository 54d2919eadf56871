//go:build windows

package journal

import (
	"context"
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/everidx/everidx/pkg/types"
	"github.com/everidx/everidx/volume"
)

const (
	fsctlQueryUSNJournal = 0x000900f4
	fsctlReadUSNJournal  = 0x000900bb

	// Win32 errors that mean the cursor or the journal itself is gone.
	errJournalDeleteInProgress = 1178
	errJournalNotActive        = 1179
	errJournalEntryDeleted     = 1181

	readBufferSize = 256 << 10
)

// usnJournalData mirrors USN_JOURNAL_DATA_V0.
type usnJournalData struct {
	JournalID       uint64
	FirstUsn        int64
	NextUsn         int64
	LowestValidUsn  int64
	MaxUsn          int64
	MaximumSize     uint64
	AllocationDelta uint64
}

// readUSNJournalData mirrors READ_USN_JOURNAL_DATA_V0.
type readUSNJournalData struct {
	StartUsn          int64
	ReasonMask        uint32
	ReturnOnlyOnClose uint32
	Timeout           uint64
	BytesToWaitFor    uint64
	JournalID         uint64
}

// VolumeSource reads journal batches from a live volume handle.
type VolumeSource struct {
	drive     *volume.Drive
	journalID uint64
	buf       [readBufferSize]byte
}

// NewVolumeSource queries the volume's active journal. A volume without an
// active journal surfaces as a gap so the caller can decide to create one.
func NewVolumeSource(d *volume.Drive) (*VolumeSource, error) {
	s := &VolumeSource{drive: d}
	data, err := s.query()
	if err != nil {
		return nil, err
	}
	s.journalID = data.JournalID
	return s, nil
}

// TailCursor returns the journal's current end, the right cursor to capture
// before a bootstrap scan.
func (s *VolumeSource) TailCursor() (types.USN, error) {
	data, err := s.query()
	if err != nil {
		return 0, err
	}
	return types.USN(data.NextUsn), nil
}

func (s *VolumeSource) query() (usnJournalData, error) {
	var data usnJournalData
	var returned uint32
	err := windows.DeviceIoControl(s.drive.Handle(), fsctlQueryUSNJournal,
		nil, 0,
		(*byte)(unsafe.Pointer(&data)), uint32(unsafe.Sizeof(data)),
		&returned, nil)
	if err != nil {
		return data, classify("query journal", err)
	}
	return data, nil
}

// ReadBatch implements Source via FSCTL_READ_USN_JOURNAL. The output
// buffer opens with the next cursor, followed by packed records.
func (s *VolumeSource) ReadBatch(ctx context.Context, cursor types.USN) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	in := readUSNJournalData{
		StartUsn:   int64(cursor),
		ReasonMask: 0xFFFFFFFF,
		JournalID:  s.journalID,
	}
	var returned uint32
	err := windows.DeviceIoControl(s.drive.Handle(), fsctlReadUSNJournal,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
		&s.buf[0], readBufferSize,
		&returned, nil)
	if err != nil {
		return Batch{}, classify("read journal", err)
	}
	if returned < 8 {
		return Batch{}, &types.Error{Kind: types.ErrKindIO,
			Msg: "journal read returned a short buffer"}
	}

	next := types.USN(int64(uint64(s.buf[0]) | uint64(s.buf[1])<<8 |
		uint64(s.buf[2])<<16 | uint64(s.buf[3])<<24 |
		uint64(s.buf[4])<<32 | uint64(s.buf[5])<<40 |
		uint64(s.buf[6])<<48 | uint64(s.buf[7])<<56))

	raw := make([]byte, returned-8)
	copy(raw, s.buf[8:returned])
	return Batch{Raw: raw, Next: next, JournalID: s.journalID}, nil
}

// classify maps Win32 journal errors onto the indexer's taxonomy.
func classify(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case errJournalDeleteInProgress, errJournalNotActive, errJournalEntryDeleted:
			return &types.Error{Kind: types.ErrKindGap, Msg: op, Err: err}
		case windows.ERROR_INVALID_HANDLE, windows.ERROR_NOT_READY, windows.ERROR_DEVICE_REMOVED:
			return &types.Error{Kind: types.ErrKindFatal, Msg: op, Err: err}
		}
	}
	return &types.Error{Kind: types.ErrKindIO, Msg: op, Err: err}
}
