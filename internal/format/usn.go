package format

import (
	"fmt"

	"github.com/everidx/everidx/internal/buf"
)

// USNRecord is one decoded change journal record (USN_RECORD_V2).
type USNRecord struct {
	USN       int64
	FileRef   uint64
	ParentRef uint64
	Timestamp uint64 // raw FILETIME; convert lazily, most records are filtered
	Reason    uint32
	FileAttrs uint32
	Name      string
}

// DecodeUSN decodes the journal record at the start of b and returns it
// together with its total length, so callers can walk a packed buffer of
// records as returned by FSCTL_READ_USN_JOURNAL.
func DecodeUSN(b []byte) (USNRecord, int, error) {
	if len(b) < USNRecordMinSize {
		return USNRecord{}, 0, fmt.Errorf("usn record: %w (have %d, need %d)",
			ErrTruncated, len(b), USNRecordMinSize)
	}
	recLen := int(ReadU32(b, USNRecordLenOffset))
	if recLen < USNRecordMinSize || recLen > MaxUSNRecordSize {
		return USNRecord{}, 0, fmt.Errorf("usn record length %d: %w", recLen, ErrSanityLimit)
	}
	if recLen > len(b) {
		return USNRecord{}, 0, fmt.Errorf("usn record length %d beyond buffer %d: %w",
			recLen, len(b), ErrTruncated)
	}
	if major := ReadU16(b, USNMajorOffset); major != 2 {
		return USNRecord{}, 0, fmt.Errorf("usn record version %d: %w", major, ErrUnsupported)
	}

	nameLen := int(ReadU16(b, USNNameLenOffset))
	nameOff := int(ReadU16(b, USNNameOffOffset))
	nameBytes, ok := buf.Slice(b[:recLen], nameOff, nameLen)
	if !ok {
		return USNRecord{}, 0, fmt.Errorf("usn name at %d len %d: %w", nameOff, nameLen, ErrTruncated)
	}

	return USNRecord{
		USN:       ReadI64(b, USNUsnOffset),
		FileRef:   ReadU64(b, USNFileRefOffset),
		ParentRef: ReadU64(b, USNParentRefOffset),
		Timestamp: ReadU64(b, USNTimestampOffset),
		Reason:    ReadU32(b, USNReasonOffset),
		FileAttrs: ReadU32(b, USNFileAttrsOffset),
		Name:      DecodeUTF16(nameBytes),
	}, recLen, nil
}

// WalkUSNBuffer decodes every record in a packed journal read buffer,
// invoking fn per record. Individually corrupt records terminate the walk
// (the remainder of the buffer cannot be re-synchronized) and are reported
// through the returned error; records already decoded have been delivered.
// The returned offset is how far the walk got, so callers can account for
// the bytes abandoned after a corrupt record.
func WalkUSNBuffer(b []byte, fn func(USNRecord) error) (int, error) {
	off := 0
	for off+USNRecordMinSize <= len(b) {
		rec, n, err := DecodeUSN(b[off:])
		if err != nil {
			return off, fmt.Errorf("usn buffer at %d: %w", off, err)
		}
		if err := fn(rec); err != nil {
			return off, err
		}
		off += n
	}
	return off, nil
}
