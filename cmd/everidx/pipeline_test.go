package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/everidx/everidx/index"
	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/internal/ntfstest"
	"github.com/everidx/everidx/journal"
	"github.com/everidx/everidx/pkg/types"
	"github.com/everidx/everidx/search"
	"github.com/everidx/everidx/volume"
)

// scanFixture scans the canonical five-record image into a fresh index.
func scanFixture(t *testing.T) *index.Index {
	t.Helper()
	img, _ := ntfstest.BuildImage(ntfstest.FiveRecordFixture())
	vol, err := volume.OpenImageBytes(img)
	if err != nil {
		t.Fatal(err)
	}
	idx, _, stats, err := buildIndex(context.Background(), vol, 0)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 0 {
		t.Fatalf("fixture scan skipped %d records", stats.Skipped)
	}
	return idx
}

func TestEndToEndScanAndResolve(t *testing.T) {
	idx := scanFixture(t)

	for _, tc := range []struct {
		seg  uint64
		want string
	}{
		{types.RootSegment, `\`},
		{16, `\dirA`},
		{17, `\dirB`},
		{18, `\dirA\file1.txt`},
		{19, `\file2.txt`},
	} {
		got, err := idx.ResolvePath(types.NewRef(tc.seg, sequenceOf(t, idx, tc.seg)))
		if err != nil {
			t.Errorf("segment %d: %v", tc.seg, err)
			continue
		}
		if got != tc.want {
			t.Errorf("segment %d: got %q, want %q", tc.seg, got, tc.want)
		}
	}

	rec, err := idx.Lookup(types.NewRef(18, 1))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Size != 5 {
		t.Errorf("file1.txt size = %d, want 5", rec.Size)
	}
	if !rec.Modified.Equal(ntfstest.FixtureTime) {
		t.Errorf("file1.txt modified = %v", rec.Modified)
	}
}

func sequenceOf(t *testing.T, idx *index.Index, seg uint64) uint16 {
	t.Helper()
	recs := idx.Search(func(r *types.FileRecord) bool { return r.Ref.Segment() == seg })
	if len(recs) != 1 {
		t.Fatalf("segment %d: %d records", seg, len(recs))
	}
	return recs[0].Ref.Sequence()
}

func TestEndToEndSearch(t *testing.T) {
	idx := scanFixture(t)
	e := search.New(idx)

	rs := e.Query("file1", search.ModeSubstring)
	if len(rs) != 1 {
		t.Fatalf("got %d hits", len(rs))
	}
	if rs[0].Path != `\dirA\file1.txt` {
		t.Errorf("path = %q", rs[0].Path)
	}

	if rs := e.Query(`dirA\file`, search.ModeSubstring); len(rs) != 1 {
		t.Errorf("path query: %d hits", len(rs))
	}
}

// stepSource hands out one scripted batch per read, then idles.
type stepSource struct {
	mu      sync.Mutex
	batches []journal.Batch
}

func (s *stepSource) ReadBatch(ctx context.Context, cursor types.USN) (journal.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return journal.Batch{Next: cursor, JournalID: 7}, nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func TestEndToEndJournalTail(t *testing.T) {
	idx := scanFixture(t)
	dirB := types.NewRef(17, 1)
	file2 := types.NewRef(19, 1)
	newRef := types.NewRef(21, 1)

	src := &stepSource{batches: []journal.Batch{
		{
			Raw: ntfstest.USNRecordBytes(8, newRef, dirB,
				format.USNReasonFileCreate|format.USNReasonClose, 0, "notes.md"),
			Next: 100, JournalID: 7,
		},
		{
			Raw: append(
				ntfstest.USNRecordBytes(104, file2, dirB,
					format.USNReasonRenameNewName, 0, "file2-moved.txt"),
				ntfstest.USNRecordBytes(200, types.NewRef(18, 1), types.NewRef(16, 1),
					format.USNReasonFileDelete|format.USNReasonClose, 0, "file1.txt")...),
			Next: 300, JournalID: 7,
		},
	}}

	mon := journal.NewMonitor(src, idx, nil)
	mon.PollInterval = time.Millisecond
	if err := mon.Start(0); err != nil {
		t.Fatal(err)
	}
	defer mon.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := idx.Lookup(types.NewRef(18, 1)); errors.Is(err, types.ErrNotFound) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if got, err := idx.ResolvePath(newRef); err != nil || got != `\dirB\notes.md` {
		t.Errorf("created file path = %q, %v", got, err)
	}
	if got, err := idx.ResolvePath(file2); err != nil || got != `\dirB\file2-moved.txt` {
		t.Errorf("renamed file path = %q, %v", got, err)
	}
	if _, err := idx.Lookup(types.NewRef(18, 1)); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("deleted file still present: %v", err)
	}
	if mon.Cursor() != 300 {
		t.Errorf("cursor = %d", mon.Cursor())
	}
}

func TestOpenVolumeImagePath(t *testing.T) {
	img, _ := ntfstest.BuildImage(ntfstest.FiveRecordFixture())
	path := filepath.Join(t.TempDir(), "fixture.img")
	if err := os.WriteFile(path, img, 0o600); err != nil {
		t.Fatal(err)
	}

	vol, closeVol, err := openVolume(path)
	if err != nil {
		t.Fatal(err)
	}
	defer closeVol()
	if vol.Geometry().BytesPerRecord != 1024 {
		t.Errorf("geometry = %+v", vol.Geometry())
	}
}
