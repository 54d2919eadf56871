// Package index holds the in-memory file index: every live MFT record keyed
// by segment number, plus the child-sets that make directory listing and
// path reconstruction cheap. One writer (scan or journal monitor) mutates
// it while any number of readers query it.
package index

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/everidx/everidx/metrics"
	"github.com/everidx/everidx/pkg/types"
)

// pathCacheSize bounds the memoized directory paths. Hot directories are
// few; this covers them without tracking the whole tree.
const pathCacheSize = 4096

// maxPathDepth bounds the parent-chain walk. A chain longer than this is a
// cycle introduced by out-of-order journal application, not a real tree.
const maxPathDepth = 4096

// Index is the queryable collection of file records.
//
// Records are keyed by their 48-bit segment number; the stored record's
// sequence number is compared against the caller's Ref on every lookup, so
// a reference to a reused slot reads as absent rather than as the slot's
// new occupant. Stored *types.FileRecord values are immutable: updates
// replace the pointer wholesale under the write lock, which is what lets
// readers return records without copying.
type Index struct {
	mu       sync.RWMutex
	records  map[uint64]*types.FileRecord
	children map[uint64]map[uint64]struct{} // parent segment -> child segments
	paths    *lru.Cache                     // dir segment (types.Ref) -> absolute path
}

// New returns an empty index.
func New() *Index {
	paths, _ := lru.New(pathCacheSize) // only errors on size <= 0
	return &Index{
		records:  make(map[uint64]*types.FileRecord),
		children: make(map[uint64]map[uint64]struct{}),
		paths:    paths,
	}
}

// InsertOrReplace adds rec or replaces the current occupant of its segment.
// Inserting an identical record is a no-op, which is what makes journal
// replay after an overlap window safe.
func (x *Index) InsertOrReplace(rec *types.FileRecord) {
	seg := rec.Ref.Segment()

	x.mu.Lock()
	defer x.mu.Unlock()

	old := x.records[seg]
	if old != nil && *old == *rec {
		return
	}
	x.records[seg] = rec

	if old != nil && old.Parent != rec.Parent {
		x.unlinkLocked(old.Parent.Segment(), seg)
	}
	if old == nil || old.Parent != rec.Parent {
		x.linkLocked(rec.Parent.Segment(), seg)
	}

	// Any replacement can rename or move a directory that cached paths
	// pass through.
	if old != nil {
		x.paths.Purge()
	}
	metrics.IndexRecords.Set(float64(len(x.records)))
}

// Remove deletes the record referenced by ref. It reports whether a record
// was removed; a missing segment or a stale sequence removes nothing.
// Children of a removed directory stay indexed as orphans until their own
// journal records arrive.
func (x *Index) Remove(ref types.Ref) bool {
	seg := ref.Segment()

	x.mu.Lock()
	defer x.mu.Unlock()

	rec := x.records[seg]
	if rec == nil || rec.Ref.Sequence() != ref.Sequence() {
		return false
	}
	delete(x.records, seg)
	x.unlinkLocked(rec.Parent.Segment(), seg)
	if rec.IsDir {
		x.paths.Purge()
	}
	metrics.IndexRecords.Set(float64(len(x.records)))
	return true
}

func (x *Index) linkLocked(parentSeg, childSeg uint64) {
	set := x.children[parentSeg]
	if set == nil {
		set = make(map[uint64]struct{})
		x.children[parentSeg] = set
	}
	set[childSeg] = struct{}{}
}

func (x *Index) unlinkLocked(parentSeg, childSeg uint64) {
	if set := x.children[parentSeg]; set != nil {
		delete(set, childSeg)
		if len(set) == 0 {
			delete(x.children, parentSeg)
		}
	}
}

// lookupLocked returns the record for ref iff the slot holds a record with
// a matching sequence number.
func (x *Index) lookupLocked(ref types.Ref) (*types.FileRecord, error) {
	rec := x.records[ref.Segment()]
	if rec == nil {
		return nil, &types.Error{Kind: types.ErrKindNotFound,
			Msg: fmt.Sprintf("record %v", ref)}
	}
	if rec.Ref.Sequence() != ref.Sequence() {
		return nil, &types.Error{Kind: types.ErrKindStale,
			Msg: fmt.Sprintf("record %v reused (now %v)", ref, rec.Ref)}
	}
	return rec, nil
}

// Lookup returns the record referenced by ref. A reused slot surfaces as a
// stale-reference error, distinct from plain absence.
func (x *Index) Lookup(ref types.Ref) (*types.FileRecord, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.lookupLocked(ref)
}

// ChildrenOf returns the records directly contained by the directory ref.
// The order is unspecified.
func (x *Index) ChildrenOf(ref types.Ref) ([]*types.FileRecord, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if _, err := x.lookupLocked(ref); err != nil {
		return nil, err
	}
	set := x.children[ref.Segment()]
	out := make([]*types.FileRecord, 0, len(set))
	for seg := range set {
		if rec := x.records[seg]; rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ResolvePath reconstructs the absolute path of ref by walking parent
// references up to the volume root. The walk fails with an unresolved-path
// error when an ancestor is missing, was reused, or the chain cycles; the
// record itself still exists in that case, it just cannot be placed.
func (x *Index) ResolvePath(ref types.Ref) (string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	rec, err := x.lookupLocked(ref)
	if err != nil {
		return "", err
	}
	if rec.Parent.IsZero() {
		return `\`, nil
	}

	dir, err := x.dirPathLocked(rec.Parent)
	if err != nil {
		return "", err
	}
	if dir == `\` {
		return `\` + rec.Name, nil
	}
	return dir + `\` + rec.Name, nil
}

// dirPathLocked resolves the absolute path of the directory ref, memoizing
// through the path cache.
func (x *Index) dirPathLocked(ref types.Ref) (string, error) {
	if v, ok := x.paths.Get(ref); ok {
		return v.(string), nil
	}

	var names []string
	visited := make(map[uint64]bool)
	cur := ref
	for depth := 0; ; depth++ {
		if depth >= maxPathDepth || visited[cur.Segment()] {
			return "", &types.Error{Kind: types.ErrKindUnresolved,
				Msg: fmt.Sprintf("parent chain of %v cycles", ref)}
		}
		visited[cur.Segment()] = true

		rec, err := x.lookupLocked(cur)
		if err != nil {
			return "", &types.Error{Kind: types.ErrKindUnresolved,
				Msg: fmt.Sprintf("ancestor %v of %v", cur, ref), Err: err}
		}
		if rec.Parent.IsZero() {
			break
		}
		names = append(names, rec.Name)
		cur = rec.Parent
	}

	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteByte('\\')
		b.WriteString(names[i])
	}
	path := b.String()
	if path == "" {
		path = `\`
	}
	x.paths.Add(ref, path)
	return path, nil
}

// Search returns every record matching pred. The result is a snapshot of
// the index at call time; records inserted or removed afterwards are not
// reflected. Order is unspecified.
func (x *Index) Search(pred func(*types.FileRecord) bool) []*types.FileRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []*types.FileRecord
	for _, rec := range x.records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Stats summarizes the index contents.
func (x *Index) Stats() types.IndexStats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var st types.IndexStats
	st.Records = len(x.records)
	for _, rec := range x.records {
		if rec.IsDir {
			st.Directories++
		}
		if !rec.Parent.IsZero() {
			if p := x.records[rec.Parent.Segment()]; p == nil || p.Ref != rec.Parent {
				st.Orphans++
			}
		}
	}
	return st
}
