package format

import (
	"fmt"
)

// AttrListEntry is one entry of an $ATTRIBUTE_LIST attribute: a pointer to
// where (which record segment) a given attribute of the file actually lives.
// Records whose attributes outgrow one segment carry these.
type AttrListEntry struct {
	Type    AttrType
	BaseRef uint64 // file reference of the segment holding the attribute
}

// DecodeAttrList decodes the value of an $ATTRIBUTE_LIST attribute into its
// entries. Entries with an implausible length terminate the walk with an
// error; everything decoded up to that point is discarded by callers that
// treat the record as corrupt.
func DecodeAttrList(value []byte) ([]AttrListEntry, error) {
	var out []AttrListEntry
	off := 0
	for off+AttrListEntryMinSize <= len(value) {
		entryLen := int(ReadU16(value, off+AttrListLengthOffset))
		if entryLen < AttrListEntryMinSize || off+entryLen > len(value) {
			return nil, fmt.Errorf("attribute list entry at %d len %d: %w",
				off, entryLen, ErrSanityLimit)
		}
		out = append(out, AttrListEntry{
			Type:    AttrType(ReadU32(value, off+AttrListTypeOffset)),
			BaseRef: ReadU64(value, off+AttrListBaseRefOffset),
		})
		off += entryLen
	}
	return out, nil
}
