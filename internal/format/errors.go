package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrRecordFree indicates a record segment whose in-use flag is clear.
	ErrRecordFree = errors.New("format: record not in use")
	// ErrFixupMismatch indicates an update sequence array check failed,
	// meaning the record was torn mid-write.
	ErrFixupMismatch = errors.New("format: fixup sequence mismatch")
	// ErrSanityLimit indicates a size or count field exceeded the plausible
	// range for the structure.
	ErrSanityLimit = errors.New("format: sanity limit exceeded")
	// ErrUnsupported indicates the structure or feature is not yet supported.
	ErrUnsupported = errors.New("format: unsupported feature")
)
