package ntfstest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/pkg/types"
)

// Every other package's tests stand on these fixtures, so the fixtures
// themselves get checked against the real decoders once, here.

func TestAssembledRecordDecodes(t *testing.T) {
	parent := types.NewRef(5, 5)
	rec := AssembleRecord(
		RecordOpts{Sequence: 3, Flags: format.RecordFlagInUse},
		StdInfoAttr(uint32(types.AttrHidden)),
		FileNameAttr(parent, "fixture.txt", format.NamespaceWin32),
		ResidentDataAttr([]byte("abc")),
	)

	h, err := format.DecodeRecordHeader(rec)
	require.NoError(t, err)
	require.Equal(t, uint16(3), h.Sequence)
	require.True(t, h.InUse())
	require.NoError(t, format.ApplyFixup(rec, 512))

	var sawName, sawData bool
	err = format.WalkAttrs(rec, h, func(a format.Attr) (bool, error) {
		switch a.Type {
		case format.AttrTypeFileName:
			fn, err := format.DecodeFileName(a.Value)
			require.NoError(t, err)
			require.Equal(t, "fixture.txt", fn.Name)
			require.Equal(t, uint64(parent), fn.ParentRef)
			sawName = true
		case format.AttrTypeData:
			require.Equal(t, []byte("abc"), a.Value)
			sawData = true
		}
		return true, nil
	})
	require.NoError(t, err)
	require.True(t, sawName)
	require.True(t, sawData)
}

func TestImageBootSectorDecodes(t *testing.T) {
	img, geo := BuildImage(FiveRecordFixture())

	bs, err := format.DecodeBootSector(img)
	require.NoError(t, err)
	require.Equal(t, geo.BytesPerSector, bs.BytesPerSector)
	require.Equal(t, geo.BytesPerCluster, bs.BytesPerCluster)
	require.Equal(t, geo.BytesPerRecord, bs.BytesPerRecord)
	require.Equal(t, geo.MFTStartLCN, bs.MFTStartLCN)
}

func TestUSNRecordBytesDecode(t *testing.T) {
	ref := types.NewRef(77, 2)
	parent := types.NewRef(5, 5)
	raw := USNRecordBytes(4096, ref, parent, format.USNReasonFileCreate, 0, "ünïcode.txt")

	rec, n, err := format.DecodeUSN(raw)
	require.NoError(t, err)
	require.Equal(t, len(raw), n)
	require.Equal(t, int64(4096), rec.USN)
	require.Equal(t, uint64(ref), rec.FileRef)
	require.Equal(t, uint64(parent), rec.ParentRef)
	require.Equal(t, "ünïcode.txt", rec.Name)
	require.Equal(t, format.TimeToFiletime(FixtureTime), rec.Timestamp)
}
