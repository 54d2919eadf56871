package main

import (
	"context"
	"fmt"

	"github.com/everidx/everidx/index"
	"github.com/everidx/everidx/mft"
	"github.com/everidx/everidx/pkg/types"
	"github.com/everidx/everidx/volume"
)

// openVolume opens the volume named by spec: a drive like "C:" on Windows,
// or a raw NTFS image file path anywhere.
func openVolume(spec string) (mft.Volume, func() error, error) {
	if len(spec) == 2 && spec[1] == ':' {
		d, err := volume.OpenDrive(spec[0])
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	}
	img, err := volume.OpenImage(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("%s is neither a drive letter nor a readable image: %w", spec, err)
	}
	return img, img.Close, nil
}

// buildIndex runs a full-table scan of vol into a fresh index.
func buildIndex(ctx context.Context, vol mft.Volume, workers int) (*index.Index, *mft.Scanner, types.ScanStats, error) {
	s, err := mft.NewScanner(vol)
	if err != nil {
		return nil, nil, types.ScanStats{}, err
	}
	s.Workers = workers
	idx := index.New()
	stats, err := s.Scan(ctx, func(rec *types.FileRecord) error {
		idx.InsertOrReplace(rec)
		return nil
	})
	if err != nil {
		return nil, nil, stats, err
	}
	return idx, s, stats, nil
}
