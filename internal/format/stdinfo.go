package format

import (
	"fmt"
	"time"
)

// StandardInformation carries the timestamps and DOS attribute flags every
// base record holds in its $STANDARD_INFORMATION attribute.
type StandardInformation struct {
	Created  time.Time
	Modified time.Time
	Accessed time.Time
	Attrs    uint32
}

// DecodeStandardInformation decodes the resident value of a
// $STANDARD_INFORMATION attribute. Both the NT 3.x 48-byte and the 2000+
// 72-byte variants share the fixed prefix decoded here.
func DecodeStandardInformation(value []byte) (StandardInformation, error) {
	if len(value) < StdInfoMinSize {
		return StandardInformation{}, fmt.Errorf("standard information: %w (have %d, need %d)",
			ErrTruncated, len(value), StdInfoMinSize)
	}
	return StandardInformation{
		Created:  FiletimeToTime(ReadU64(value, StdInfoCreatedOffset)),
		Modified: FiletimeToTime(ReadU64(value, StdInfoModifiedOffset)),
		Accessed: FiletimeToTime(ReadU64(value, StdInfoAccessedOffset)),
		Attrs:    ReadU32(value, StdInfoAttrsOffset),
	}, nil
}
