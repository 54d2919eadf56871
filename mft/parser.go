// Package mft turns raw MFT record segments into normalized file records
// and drives the full-table scan that bootstraps the index. Parsing is
// strictly per record: a malformed segment is reported, skipped, and never
// aborts a scan.
package mft

import (
	"errors"
	"fmt"

	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/pkg/types"
)

// RecordLoader fetches the raw bytes of an MFT record segment by slot
// number. The scanner's run map implements it; parsing a record whose
// attributes spill into extension records needs it to follow the
// $ATTRIBUTE_LIST references.
type RecordLoader interface {
	LoadRecord(segment uint64) ([]byte, error)
}

// maxAttrListBytes caps how much attribute-list data the parser will pull
// off the volume. Real lists are a few KiB even on badly fragmented files;
// a corrupt size field must not turn into a giant read.
const maxAttrListBytes = 1 << 20

// Parser decodes MFT file record segments into types.FileRecord values.
type Parser struct {
	geo    types.Geometry
	loader RecordLoader // nil disables attribute-list resolution
	vol    Volume       // nil disables non-resident attribute lists
}

// NewParser returns a parser for volumes with the given geometry. loader
// may be nil, in which case records relying on $ATTRIBUTE_LIST extension
// segments parse from their base segment alone.
func NewParser(geo types.Geometry, loader RecordLoader) *Parser {
	return &Parser{geo: geo, loader: loader}
}

// AttachVolume enables resolution of non-resident attribute lists, whose
// contents live in clusters outside the record segment.
func (p *Parser) AttachVolume(vol Volume) { p.vol = vol }

// recordAttrs accumulates the attributes relevant to a file record across
// its base segment and any extension segments.
type recordAttrs struct {
	stdInfo  *format.StandardInformation
	names    []format.FileName
	dataSize int64
	haveData bool
	attrList []format.AttrListEntry
}

// Parse decodes the record segment raw occupying the given slot.
//
// Returns (nil, nil) for free slots and for extension segments, which are
// folded into their base record when that record parses. Corruption in the
// segment is a types.ErrKindCorrupt error. raw is not modified; fixup runs
// on a private copy.
func (p *Parser) Parse(segment uint64, raw []byte) (*types.FileRecord, error) {
	if isZeroed(raw) {
		// Preallocated slot never written; common in the reserved range
		// and at the MFT tail.
		return nil, nil
	}

	b := make([]byte, len(raw))
	copy(b, raw)

	h, err := format.DecodeRecordHeader(b)
	if err != nil {
		if errors.Is(err, format.ErrRecordFree) {
			return nil, nil
		}
		return nil, &types.Error{Kind: types.ErrKindCorrupt,
			Msg: fmt.Sprintf("record %d", segment), Err: err}
	}
	if err := format.ApplyFixup(b, p.geo.BytesPerSector); err != nil {
		return nil, &types.Error{Kind: types.ErrKindCorrupt,
			Msg: fmt.Sprintf("record %d fixup", segment), Err: err}
	}
	if !h.InUse() {
		return nil, nil
	}
	if h.IsExtension() {
		return nil, nil
	}

	var acc recordAttrs
	if err := p.collectAttrs(b, h, &acc); err != nil {
		return nil, &types.Error{Kind: types.ErrKindCorrupt,
			Msg: fmt.Sprintf("record %d attributes", segment), Err: err}
	}
	if err := p.mergeExtensions(segment, &acc); err != nil {
		return nil, err
	}

	name, ok := format.BestFileName(acc.names)
	if !ok {
		return nil, &types.Error{Kind: types.ErrKindCorrupt,
			Msg: fmt.Sprintf("record %d has no file name", segment)}
	}

	rec := &types.FileRecord{
		Ref:    types.NewRef(segment, h.Sequence),
		Parent: normalizeParent(segment, name.ParentRef),
		Name:   name.Name,
		IsDir:  h.IsDirectory(),
	}
	if !rec.IsDir && acc.haveData {
		rec.Size = acc.dataSize
	}
	if acc.stdInfo != nil {
		rec.Created = acc.stdInfo.Created
		rec.Modified = acc.stdInfo.Modified
		rec.Accessed = acc.stdInfo.Accessed
		rec.Attrs = types.FileAttrs(acc.stdInfo.Attrs)
	}
	if rec.IsDir {
		rec.Attrs |= types.AttrDirectory
	}
	return rec, nil
}

// collectAttrs walks one fixed-up segment and accumulates the attribute
// types the index cares about. Unknown types are skipped by length.
func (p *Parser) collectAttrs(b []byte, h format.RecordHeader, acc *recordAttrs) error {
	return format.WalkAttrs(b, h, func(a format.Attr) (bool, error) {
		switch a.Type {
		case format.AttrTypeStandardInformation:
			si, err := format.DecodeStandardInformation(a.Value)
			if err != nil {
				return false, err
			}
			acc.stdInfo = &si
		case format.AttrTypeFileName:
			fn, err := format.DecodeFileName(a.Value)
			if err != nil {
				return false, err
			}
			acc.names = append(acc.names, fn)
		case format.AttrTypeData:
			// Only the unnamed stream contributes the file's size.
			if a.NameLen != 0 || acc.haveData {
				break
			}
			acc.haveData = true
			if a.NonResident {
				acc.dataSize = int64(a.RealSize)
			} else {
				acc.dataSize = int64(len(a.Value))
			}
		case format.AttrTypeAttributeList:
			val := a.Value
			if a.NonResident {
				if p.vol == nil {
					// No volume to resolve runs through; the base
					// segment's attributes still yield a usable record.
					break
				}
				data, err := p.readAttrList(a)
				if err != nil {
					return false, err
				}
				val = data
			}
			entries, err := format.DecodeAttrList(val)
			if err != nil {
				return false, err
			}
			acc.attrList = append(acc.attrList, entries...)
		}
		return true, nil
	})
}

// mergeExtensions loads the extension segments named by the attribute list
// and folds their attributes into acc. An unreachable extension record
// degrades to the base record's view rather than failing the parse; NTFS
// keeps $FILE_NAME and $STANDARD_INFORMATION in the base segment.
func (p *Parser) mergeExtensions(base uint64, acc *recordAttrs) error {
	if len(acc.attrList) == 0 || p.loader == nil {
		return nil
	}
	seen := map[uint64]bool{base: true}
	for _, e := range acc.attrList {
		seg := types.Ref(e.BaseRef).Segment()
		if seen[seg] {
			continue
		}
		seen[seg] = true

		raw, err := p.loader.LoadRecord(seg)
		if err != nil {
			if errors.Is(err, types.ErrFatalIO) {
				return err
			}
			continue
		}
		b := make([]byte, len(raw))
		copy(b, raw)
		h, err := format.DecodeRecordHeader(b)
		if err != nil {
			continue
		}
		if err := format.ApplyFixup(b, p.geo.BytesPerSector); err != nil {
			continue
		}
		if !h.IsExtension() || types.Ref(h.BaseRef).Segment() != base {
			// Slot was reused for an unrelated file; the list entry is stale.
			continue
		}
		if err := p.collectAttrs(b, h, acc); err != nil {
			continue
		}
	}
	return nil
}

// readAttrList fetches a non-resident $ATTRIBUTE_LIST's contents through
// the volume by decoding its own data runs. Files fragmented enough to
// need one typically keep their unnamed $DATA header in an extension
// segment, so skipping the list here would lose the file's size.
func (p *Parser) readAttrList(a format.Attr) ([]byte, error) {
	if a.RealSize > maxAttrListBytes {
		return nil, fmt.Errorf("attribute list size %d: %w", a.RealSize, format.ErrSanityLimit)
	}
	extents, err := format.DecodeRuns(a.RawRuns, p.geo.BytesPerCluster)
	if err != nil {
		return nil, fmt.Errorf("attribute list runs: %w", err)
	}
	out := make([]byte, 0, a.RealSize)
	left := int64(a.RealSize)
	for _, e := range extents {
		if left <= 0 {
			break
		}
		n := e.Length
		if n > left {
			n = left
		}
		b, err := p.vol.ReadAt(e.VolumeStart, int(n))
		if err != nil {
			return nil, fmt.Errorf("attribute list read: %w", err)
		}
		out = append(out, b...)
		left -= n
	}
	if left > 0 {
		return nil, fmt.Errorf("attribute list runs cover %d of %d bytes: %w",
			int64(a.RealSize)-left, a.RealSize, format.ErrTruncated)
	}
	return out, nil
}

// normalizeParent maps the root directory's on-disk self-parent to the zero
// reference, so the root is the unique record with a zero parent.
func normalizeParent(segment uint64, parentRef uint64) types.Ref {
	if segment == types.RootSegment {
		return 0
	}
	return types.Ref(parentRef)
}

// isZeroed reports whether the record slot's signature bytes are all zero.
func isZeroed(b []byte) bool {
	if len(b) < format.SignatureSize {
		return false
	}
	for _, c := range b[:format.SignatureSize] {
		if c != 0 {
			return false
		}
	}
	return true
}
