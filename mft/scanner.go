package mft

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/metrics"
	"github.com/everidx/everidx/pkg/types"
)

// Volume is the read surface the scanner needs. *volume.Reader satisfies it.
type Volume interface {
	ReadAt(off int64, length int) ([]byte, error)
	Geometry() types.Geometry
}

const (
	// chunkRecords is the largest number of record slots one work item
	// covers. Small enough to balance workers, large enough to amortize
	// the read syscall.
	chunkRecords = 2048

	// readAttempts is how many times a failed volume read is retried
	// before the scan declares the device unusable.
	readAttempts = 3
)

// Scanner walks every MFT record slot of a volume and emits the parsed
// records. It bootstraps from record 0 ($MFT), whose own data runs locate
// the rest of the table.
//
// Scanner also serves as the parser's RecordLoader, translating segment
// numbers to volume offsets through the decoded run map.
type Scanner struct {
	vol     Volume
	geo     types.Geometry
	parser  *Parser
	extents []format.Extent // MFT data runs, logical byte order
	records uint64          // total record slots per $MFT logical size

	// Workers caps scan parallelism. Zero means GOMAXPROCS.
	Workers int
}

// NewScanner reads and decodes record 0 to build the MFT run map.
func NewScanner(vol Volume) (*Scanner, error) {
	geo := vol.Geometry()
	s := &Scanner{vol: vol, geo: geo}
	s.parser = NewParser(geo, s)
	s.parser.AttachVolume(vol)

	raw, err := readRetry(vol, geo.MFTOffset(), geo.BytesPerRecord)
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(raw))
	copy(b, raw)

	h, err := format.DecodeRecordHeader(b)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "$MFT record", Err: err}
	}
	if err := format.ApplyFixup(b, geo.BytesPerSector); err != nil {
		return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "$MFT record fixup", Err: err}
	}

	var realSize uint64
	err = format.WalkAttrs(b, h, func(a format.Attr) (bool, error) {
		if a.Type != format.AttrTypeData || a.NameLen != 0 {
			return true, nil
		}
		if !a.NonResident {
			return false, fmt.Errorf("$MFT data attribute is resident")
		}
		extents, err := format.DecodeRuns(a.RawRuns, geo.BytesPerCluster)
		if err != nil {
			return false, err
		}
		s.extents = extents
		realSize = a.RealSize
		return false, nil
	})
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "$MFT data runs", Err: err}
	}
	if len(s.extents) == 0 {
		return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "$MFT has no data runs"}
	}
	s.records = realSize / uint64(geo.BytesPerRecord)
	return s, nil
}

// RecordCount returns the number of record slots the MFT holds.
func (s *Scanner) RecordCount() uint64 { return s.records }

// LoadRecord reads the raw bytes of one record slot through the run map.
func (s *Scanner) LoadRecord(segment uint64) ([]byte, error) {
	if segment >= s.records {
		return nil, &types.Error{Kind: types.ErrKindNotFound,
			Msg: fmt.Sprintf("record %d beyond MFT end %d", segment, s.records)}
	}
	logical := int64(segment) * int64(s.geo.BytesPerRecord)
	if _, ok := s.volumeOffset(logical); !ok {
		// Sparse hole in the MFT data; slots there hold nothing.
		return nil, &types.Error{Kind: types.ErrKindNotFound,
			Msg: fmt.Sprintf("record %d falls in a sparse MFT run", segment)}
	}
	return s.readLogical(logical, s.geo.BytesPerRecord)
}

// volumeOffset maps a logical byte offset within the MFT data stream to an
// absolute volume offset.
func (s *Scanner) volumeOffset(logical int64) (int64, bool) {
	for _, e := range s.extents {
		if logical >= e.LogicalStart && logical < e.End() {
			return e.VolumeStart + (logical - e.LogicalStart), true
		}
	}
	return 0, false
}

// readLogical reads a byte range of the MFT data stream, stitching the read
// across extents. Run lengths need not align to record boundaries: when
// clusters are smaller than records, or the table is fragmented, a record
// can span two extents. Sparse holes read as zeros, so slots inside them
// parse as free.
func (s *Scanner) readLogical(logical int64, length int) ([]byte, error) {
	out := make([]byte, length)
	end := logical + int64(length)
	for _, e := range s.extents {
		if e.End() <= logical {
			continue
		}
		if e.LogicalStart >= end {
			break
		}
		lo, hi := logical, end
		if e.LogicalStart > lo {
			lo = e.LogicalStart
		}
		if e.End() < hi {
			hi = e.End()
		}
		b, err := readRetry(s.vol, e.VolumeStart+(lo-e.LogicalStart), int(hi-lo))
		if err != nil {
			return nil, err
		}
		copy(out[lo-logical:], b)
	}
	return out, nil
}

// chunk is one bounded range of record slots in logical table order.
type chunk struct {
	firstSegment uint64
	count        int
}

// chunks partitions the record slots into bounded work items. Chunking is
// by slot number over the logical stream, never by extent, so no slot is
// lost to a run boundary.
func (s *Scanner) chunks() []chunk {
	var out []chunk
	for seg := uint64(0); seg < s.records; seg += chunkRecords {
		n := int(s.records - seg)
		if n > chunkRecords {
			n = chunkRecords
		}
		out = append(out, chunk{firstSegment: seg, count: n})
	}
	return out
}

// Scan parses every record slot and calls emit for each live file record.
//
// Chunks of the table are processed in parallel; emit is therefore called
// concurrently and must be safe for that (the index insert path serializes
// internally). Corrupt records are counted and skipped. The scan aborts
// only when a read keeps failing after retries, surfaced as
// types.ErrKindFatal, or when emit returns an error.
func (s *Scanner) Scan(ctx context.Context, emit func(*types.FileRecord) error) (types.ScanStats, error) {
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	work := s.chunks()
	start := time.Now()
	log.WithFields(log.Fields{
		"records": s.records,
		"extents": len(s.extents),
		"workers": workers,
	}).Info("starting MFT scan")

	var parsed, skipped, free atomic.Int64
	ch := make(chan chunk)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		for _, c := range work {
			select {
			case ch <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for c := range ch {
				if err := s.scanChunk(c, emit, &parsed, &skipped, &free); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()

	stats := types.ScanStats{
		Parsed:  int(parsed.Load()),
		Skipped: int(skipped.Load()),
		Free:    int(free.Load()),
	}
	metrics.ScanRecordsTotal.Add(float64(stats.Parsed))
	metrics.ScanSkipsTotal.Add(float64(stats.Skipped))
	log.WithFields(log.Fields{
		"parsed":  stats.Parsed,
		"skipped": stats.Skipped,
		"free":    stats.Free,
		"elapsed": time.Since(start),
	}).Info("MFT scan finished")
	return stats, err
}

func (s *Scanner) scanChunk(c chunk, emit func(*types.FileRecord) error,
	parsed, skipped, free *atomic.Int64) error {

	recSize := s.geo.BytesPerRecord
	buf, err := s.readLogical(int64(c.firstSegment)*int64(recSize), c.count*recSize)
	if err != nil {
		return err
	}
	for i := 0; i < c.count; i++ {
		seg := c.firstSegment + uint64(i)
		rec, err := s.parser.Parse(seg, buf[i*recSize:(i+1)*recSize])
		if err != nil {
			skipped.Add(1)
			log.WithFields(log.Fields{"segment": seg, "err": err}).Debug("skipping record")
			continue
		}
		if rec == nil {
			free.Add(1)
			continue
		}
		parsed.Add(1)
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

// readRetry reads with bounded retries, then converts the failure into the
// fatal fault that aborts the scan.
func readRetry(vol Volume, off int64, length int) ([]byte, error) {
	var err error
	for attempt := 0; attempt < readAttempts; attempt++ {
		var b []byte
		if b, err = vol.ReadAt(off, length); err == nil {
			return b, nil
		}
	}
	return nil, &types.Error{Kind: types.ErrKindFatal,
		Msg: fmt.Sprintf("read %d bytes at %d failed after %d attempts", length, off, readAttempts),
		Err: err}
}
