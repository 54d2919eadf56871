package format

import (
	"fmt"

	"github.com/everidx/everidx/internal/buf"
)

// FileName is one decoded $FILE_NAME attribute value. A record carries one
// per hard link, plus an extra DOS-namespace entry when the long name is not
// itself a valid 8.3 name.
type FileName struct {
	ParentRef uint64 // 48-bit segment + 16-bit sequence of the directory
	RealSize  uint64 // duplicated logical size; stale, informational only
	Flags     uint32
	Namespace uint8
	Name      string
}

// IsDOSOnly reports whether this entry is the generated short 8.3 name of a
// file that also has a long name. Such entries lose name selection.
func (f FileName) IsDOSOnly() bool { return f.Namespace == NamespaceDOS }

// DecodeFileName decodes the resident value of a $FILE_NAME attribute.
func DecodeFileName(value []byte) (FileName, error) {
	if len(value) < FileNameMinSize {
		return FileName{}, fmt.Errorf("file name: %w (have %d, need %d)",
			ErrTruncated, len(value), FileNameMinSize)
	}

	nameChars := int(value[FileNameLenOffset])
	if nameChars > MaxNameChars {
		return FileName{}, fmt.Errorf("file name length %d: %w", nameChars, ErrSanityLimit)
	}
	nameBytes, ok := buf.Slice(value, FileNameNameOffset, nameChars*2)
	if !ok {
		return FileName{}, fmt.Errorf("file name (%d chars): %w", nameChars, ErrTruncated)
	}

	return FileName{
		ParentRef: ReadU64(value, FileNameParentOffset),
		RealSize:  ReadU64(value, FileNameRealSizeOffset),
		Flags:     ReadU32(value, FileNameFlagsOffset),
		Namespace: value[FileNameSpaceOffset],
		Name:      DecodeUTF16(nameBytes),
	}, nil
}

// BestFileName selects the authoritative name from a record's $FILE_NAME
// attributes: any Win32/POSIX/combined-namespace name wins over a DOS-only
// 8.3 entry, which is used only when nothing else exists.
func BestFileName(names []FileName) (FileName, bool) {
	var dos FileName
	var haveDOS bool
	for _, fn := range names {
		if fn.IsDOSOnly() {
			dos, haveDOS = fn, true
			continue
		}
		return fn, true
	}
	return dos, haveDOS
}
