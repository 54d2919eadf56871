package journal

import (
	"github.com/everidx/everidx/index"
	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/pkg/types"
)

// upsertReasons are the reason bits that (re)establish a file's presence
// and metadata in the index.
const upsertReasons = format.USNReasonFileCreate |
	format.USNReasonRenameNewName |
	format.USNReasonBasicInfoChange |
	format.USNReasonHardLinkChange |
	format.USNReasonDataOverwrite |
	format.USNReasonDataExtend |
	format.USNReasonDataTruncation |
	format.USNReasonEAChange |
	format.USNReasonSecurityChange

// Apply folds one journal record into the index and reports whether it
// mutated anything.
//
// The rules are deliberately few:
//
//   - a delete removes the referenced record (stale references no-op);
//   - a rename-old-name record is dropped, the paired rename-new-name
//     record carries the final name and parent;
//   - everything else upserts, replacing name, parent, and attributes
//     while keeping the size and creation time the journal does not carry.
//
// Applying the same record twice converges to the same index state, which
// is what makes the scan/tail overlap window safe.
func Apply(idx *index.Index, rec format.USNRecord) bool {
	ref := types.Ref(rec.FileRef)

	if rec.Reason&format.USNReasonFileDelete != 0 {
		return idx.Remove(ref)
	}
	if rec.Reason&format.USNReasonRenameOldName != 0 &&
		rec.Reason&format.USNReasonRenameNewName == 0 {
		return false
	}
	if rec.Reason&upsertReasons == 0 {
		// Close-only and other bookkeeping records carry nothing to index.
		return false
	}

	ts := format.FiletimeToTime(rec.Timestamp)
	fr := &types.FileRecord{
		Ref:      ref,
		Parent:   types.Ref(rec.ParentRef),
		Name:     rec.Name,
		IsDir:    types.FileAttrs(rec.FileAttrs)&types.AttrDirectory != 0,
		Modified: ts,
		Created:  ts,
		Accessed: ts,
		Attrs:    types.FileAttrs(rec.FileAttrs),
	}
	if prev, err := idx.Lookup(ref); err == nil {
		// Journal records carry no sizes; keep what the scan or an earlier
		// event established.
		fr.Size = prev.Size
		fr.Created = prev.Created
		fr.Accessed = prev.Accessed
	}
	idx.InsertOrReplace(fr)
	return true
}
