package mft

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/internal/ntfstest"
	"github.com/everidx/everidx/pkg/types"
	"github.com/everidx/everidx/volume"
)

func fixtureVolume(t *testing.T) (*volume.Image, []byte) {
	t.Helper()
	img, _ := ntfstest.BuildImage(ntfstest.FiveRecordFixture())
	v, err := volume.OpenImageBytes(img)
	if err != nil {
		t.Fatal(err)
	}
	return v, img
}

// collectScan runs a full scan and returns the emitted records by segment.
func collectScan(t *testing.T, s *Scanner) (map[uint64]*types.FileRecord, types.ScanStats) {
	t.Helper()
	var mu sync.Mutex
	got := map[uint64]*types.FileRecord{}
	stats, err := s.Scan(context.Background(), func(rec *types.FileRecord) error {
		mu.Lock()
		got[rec.Ref.Segment()] = rec
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return got, stats
}

func TestScanFixtureVolume(t *testing.T) {
	v, _ := fixtureVolume(t)
	s, err := NewScanner(v)
	if err != nil {
		t.Fatal(err)
	}
	if s.RecordCount() != 20 {
		t.Fatalf("record count = %d, want 20", s.RecordCount())
	}

	got, stats := collectScan(t, s)

	// $MFT, root, dirA, dirB, file1.txt, file2.txt.
	if stats.Parsed != 6 {
		t.Errorf("parsed = %d, want 6", stats.Parsed)
	}
	if stats.Skipped != 0 {
		t.Errorf("skipped = %d, want 0", stats.Skipped)
	}
	if stats.Free != 14 {
		t.Errorf("free = %d, want 14", stats.Free)
	}

	f1 := got[18]
	if f1 == nil {
		t.Fatal("file1.txt not emitted")
	}
	if f1.Name != "file1.txt" || f1.Size != 5 || f1.IsDir {
		t.Errorf("file1.txt = %+v", f1)
	}
	if f1.Parent.Segment() != 16 {
		t.Errorf("file1.txt parent segment = %d, want 16", f1.Parent.Segment())
	}
	if root := got[types.RootSegment]; root == nil || !root.Parent.IsZero() || !root.IsDir {
		t.Errorf("root = %+v", root)
	}
}

func TestScanSkipsCorruptRecord(t *testing.T) {
	img, geo := ntfstest.BuildImage(ntfstest.FiveRecordFixture())
	// Stomp dirB's record magic.
	copy(img[geo.MFTOffset()+17*int64(geo.BytesPerRecord):], "XXXX")

	v, err := volume.OpenImageBytes(img)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewScanner(v)
	if err != nil {
		t.Fatal(err)
	}

	got, stats := collectScan(t, s)
	if stats.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", stats.Skipped)
	}
	if stats.Parsed != 5 {
		t.Errorf("parsed = %d, want 5", stats.Parsed)
	}
	if _, ok := got[17]; ok {
		t.Error("corrupt record was emitted")
	}
	if _, ok := got[18]; !ok {
		t.Error("healthy record missing after a corrupt neighbor")
	}
}

func TestScanEmitError(t *testing.T) {
	v, _ := fixtureVolume(t)
	s, err := NewScanner(v)
	if err != nil {
		t.Fatal(err)
	}
	s.Workers = 1

	boom := errors.New("stop")
	_, err = s.Scan(context.Background(), func(*types.FileRecord) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want emit error", err)
	}
}

// rawVolume serves reads straight from an image with explicit geometry,
// for fixtures the boot-sector builder's fixed layout cannot express.
type rawVolume struct {
	geo types.Geometry
	b   []byte
}

func (r *rawVolume) Geometry() types.Geometry { return r.geo }

func (r *rawVolume) ReadAt(off int64, length int) ([]byte, error) {
	if off < 0 || off+int64(length) > int64(len(r.b)) {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: "read beyond image"}
	}
	return r.b[off : off+int64(length)], nil
}

// A fragmented MFT on a 512-byte-cluster volume: run lengths are not record
// multiples, so records straddle run boundaries. Every slot must still be
// located and parsed.
func TestScanFragmentedUnalignedRuns(t *testing.T) {
	geo := types.Geometry{
		BytesPerSector:  512,
		BytesPerCluster: 512,
		BytesPerRecord:  1024,
		MFTStartLCN:     100,
		VolumeSize:      105 * 1024,
	}

	// Four 1 KiB records over runs of 3 and 5 clusters. Record 1 spans the
	// run boundary; records 2 and 3 sit entirely in the second run.
	runs := []byte{0x11, 0x03, 100, 0x11, 0x05, 100, 0x00}
	mft := make([]byte, 4*1024)
	copy(mft, ntfstest.AssembleRecord(
		ntfstest.RecordOpts{Sequence: 1, Flags: format.RecordFlagInUse},
		ntfstest.StdInfoAttr(uint32(types.AttrHidden|types.AttrSystem)),
		ntfstest.FileNameAttr(ntfstest.RootRef, "$MFT", format.NamespaceWin32),
		ntfstest.NonResidentDataAttr(uint64(len(mft)), runs),
	))
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		rec := ntfstest.BuildEntryRecord(ntfstest.Entry{
			Segment:  uint64(i + 1),
			Sequence: 1,
			Parent:   ntfstest.RootRef,
			Name:     name,
			Data:     []byte("payload"),
		})
		copy(mft[(i+1)*1024:], rec)
	}

	img := make([]byte, geo.VolumeSize)
	copy(img[100*512:], mft[:3*512])
	copy(img[200*512:], mft[3*512:])

	s, err := NewScanner(&rawVolume{geo: geo, b: img})
	if err != nil {
		t.Fatal(err)
	}
	if s.RecordCount() != 4 {
		t.Fatalf("record count = %d, want 4", s.RecordCount())
	}

	got, stats := collectScan(t, s)
	if stats.Parsed != 4 || stats.Skipped != 0 || stats.Free != 0 {
		t.Errorf("stats = %+v, want 4 parsed, 0 skipped, 0 free", stats)
	}
	for seg, name := range map[uint64]string{1: "a.txt", 2: "b.txt", 3: "c.txt"} {
		rec := got[seg]
		if rec == nil {
			t.Errorf("record %d not emitted", seg)
			continue
		}
		if rec.Name != name || rec.Size != 7 {
			t.Errorf("record %d = %q size %d, want %q size 7", seg, rec.Name, rec.Size, name)
		}
	}

	// LoadRecord must stitch the straddling record back together too.
	b, err := s.LoadRecord(1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, mft[1024:2048]) {
		t.Error("straddling record bytes differ from the logical stream")
	}
}

// failingVolume serves a bounded number of reads, then fails every request.
type failingVolume struct {
	inner *volume.Image
	mu    sync.Mutex
	left  int
}

func (f *failingVolume) Geometry() types.Geometry { return f.inner.Geometry() }

func (f *failingVolume) ReadAt(off int64, length int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.left <= 0 {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: "device gone"}
	}
	f.left--
	return f.inner.ReadAt(off, length)
}

func TestScanFatalAfterRetries(t *testing.T) {
	v, _ := fixtureVolume(t)
	// One read: enough to bootstrap from record 0, nothing more.
	fv := &failingVolume{inner: v, left: 1}

	s, err := NewScanner(fv)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Scan(context.Background(), func(*types.FileRecord) error { return nil })
	if !errors.Is(err, types.ErrFatalIO) {
		t.Errorf("got %v, want fatal fault", err)
	}
}

func TestLoadRecord(t *testing.T) {
	v, img := fixtureVolume(t)
	s, err := NewScanner(v)
	if err != nil {
		t.Fatal(err)
	}

	b, err := s.LoadRecord(types.RootSegment)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b[:4], []byte("FILE")) {
		t.Errorf("record 5 signature = %q", b[:4])
	}
	want := img[v.Geometry().MFTOffset()+5*1024:][:1024]
	if !bytes.Equal(b, want) {
		t.Error("record 5 bytes differ from the image")
	}

	if _, err := s.LoadRecord(10_000); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("out-of-range load: got %v", err)
	}
}

func TestScanHonorsContext(t *testing.T) {
	v, _ := fixtureVolume(t)
	s, err := NewScanner(v)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scan(ctx, func(*types.FileRecord) error { return nil })
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want nil or context.Canceled", err)
	}
}
