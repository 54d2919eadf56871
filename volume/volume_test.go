package volume

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/everidx/everidx/internal/ntfstest"
	"github.com/everidx/everidx/pkg/types"
)

func testImage(t *testing.T) ([]byte, types.Geometry) {
	t.Helper()
	return ntfstest.BuildImage(ntfstest.FiveRecordFixture())
}

func TestReadAtUnaligned(t *testing.T) {
	img, geo := testImage(t)
	r, err := New(bytes.NewReader(img), geo)
	if err != nil {
		t.Fatal(err)
	}

	// Straddle a sector boundary starting mid-sector.
	got, err := r.ReadAt(500, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, img[500:600]) {
		t.Error("unaligned read returned wrong bytes")
	}
}

func TestReadAtTail(t *testing.T) {
	img, geo := testImage(t)
	r, err := New(bytes.NewReader(img), geo)
	if err != nil {
		t.Fatal(err)
	}

	// The last few bytes of the volume: alignment padding would run past
	// the end and must be clamped.
	got, err := r.ReadAt(int64(len(img))-10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, img[len(img)-10:]) {
		t.Error("tail read returned wrong bytes")
	}
}

func TestReadAtBeyondEnd(t *testing.T) {
	img, geo := testImage(t)
	r, err := New(bytes.NewReader(img), geo)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.ReadAt(int64(len(img))-4, 8); !errors.Is(err, types.ErrIO) {
		t.Errorf("expected IO error, got %v", err)
	}
	if _, err := r.ReadAt(-1, 8); !errors.Is(err, types.ErrIO) {
		t.Errorf("expected IO error for negative offset, got %v", err)
	}
}

func TestReadAtZeroLength(t *testing.T) {
	img, geo := testImage(t)
	r, err := New(bytes.NewReader(img), geo)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := r.ReadAt(0, 0); err != nil || got != nil {
		t.Errorf("zero-length read: got %v, %v", got, err)
	}
}

func TestReadAtShort(t *testing.T) {
	img, geo := testImage(t)
	// Geometry claims more bytes than the backing store holds.
	geo.VolumeSize = int64(len(img)) + 4096
	r, err := New(bytes.NewReader(img), geo)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadAt(int64(len(img)), 512); !errors.Is(err, types.ErrIO) {
		t.Errorf("expected IO error on short read, got %v", err)
	}
}

func TestOpenImageBytes(t *testing.T) {
	img, want := testImage(t)
	v, err := OpenImageBytes(img)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	geo := v.Geometry()
	if geo.BytesPerSector != want.BytesPerSector ||
		geo.BytesPerCluster != want.BytesPerCluster ||
		geo.BytesPerRecord != want.BytesPerRecord ||
		geo.MFTStartLCN != want.MFTStartLCN {
		t.Errorf("geometry mismatch: got %+v want %+v", geo, want)
	}
}

func TestOpenImageBytesNotNTFS(t *testing.T) {
	if _, err := OpenImageBytes(make([]byte, 4096)); !errors.Is(err, types.ErrCorruptRecord) {
		t.Errorf("expected corrupt error, got %v", err)
	}
}

func TestOpenImageFile(t *testing.T) {
	img, _ := testImage(t)
	path := filepath.Join(t.TempDir(), "vol.img")
	if err := os.WriteFile(path, img, 0o600); err != nil {
		t.Fatal(err)
	}

	v, err := OpenImage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	got, err := v.ReadAt(v.Geometry().MFTOffset(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "FILE" {
		t.Errorf("expected FILE signature at MFT start, got %q", got)
	}
}
