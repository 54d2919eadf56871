package volume

import (
	"bytes"
	"fmt"

	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/internal/mmfile"
	"github.com/everidx/everidx/pkg/types"
)

// Image is a Reader backed by a raw NTFS volume image file, with geometry
// decoded from the image's own boot sector. Useful on any platform, and the
// only way to exercise the full pipeline without Administrator rights.
type Image struct {
	*Reader
	close func() error
}

// OpenImage maps the image at path and decodes its boot sector.
func OpenImage(path string) (*Image, error) {
	data, unmap, err := mmfile.Map(path)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: fmt.Sprintf("open image %s", path), Err: err}
	}
	img, err := OpenImageBytes(data)
	if err != nil {
		if unmap != nil {
			_ = unmap()
		}
		return nil, err
	}
	img.close = unmap
	return img, nil
}

// OpenImageBytes builds an image reader over an in-memory volume.
func OpenImageBytes(data []byte) (*Image, error) {
	bs, err := format.DecodeBootSector(data)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "image boot sector", Err: err}
	}
	geo := types.Geometry{
		BytesPerSector:  bs.BytesPerSector,
		BytesPerCluster: bs.BytesPerCluster,
		BytesPerRecord:  bs.BytesPerRecord,
		MFTStartLCN:     bs.MFTStartLCN,
		VolumeSize:      int64(len(data)),
	}
	r, err := New(bytes.NewReader(data), geo)
	if err != nil {
		return nil, err
	}
	return &Image{Reader: r}, nil
}

// Close releases the mapping, if any.
func (i *Image) Close() error {
	if i.close != nil {
		return i.close()
	}
	return nil
}
