//go:build windows

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/everidx/everidx/journal"
	"github.com/everidx/everidx/metrics"
	"github.com/everidx/everidx/mft"
	"github.com/everidx/everidx/pkg/types"
	"github.com/everidx/everidx/volume"
)

func runWatch(spec string) error {
	if len(spec) != 2 || spec[1] != ':' {
		return fmt.Errorf("watch needs a drive letter like C:, got %q", spec)
	}
	drive, err := volume.OpenDrive(spec[0])
	if err != nil {
		return err
	}
	defer drive.Close()

	src, err := journal.NewVolumeSource(drive)
	if err != nil {
		return err
	}

	if watchMetricsAddr != "" {
		prometheus.MustRegister(metrics.Collectors()...)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(watchMetricsAddr, nil); err != nil {
				log.WithFields(log.Fields{"addr": watchMetricsAddr, "err": err}).
					Error("metrics server stopped")
			}
		}()
	}

	// Capture the journal tail before scanning: records written during the
	// scan replay afterwards instead of being lost.
	cursor, err := src.TailCursor()
	if err != nil {
		return err
	}
	idx, _, stats, err := buildIndex(context.Background(), drive, 0)
	if err != nil {
		return err
	}
	printInfo("Indexed %d records (%d skipped); tailing journal from USN %d\n",
		stats.Parsed, stats.Skipped, cursor)

	rescan := func(ctx context.Context) (types.USN, error) {
		c, err := src.TailCursor()
		if err != nil {
			return 0, err
		}
		s, err := mft.NewScanner(drive)
		if err != nil {
			return 0, err
		}
		var mu sync.Mutex
		seen := make(map[uint64]bool)
		_, err = s.Scan(ctx, func(rec *types.FileRecord) error {
			idx.InsertOrReplace(rec)
			mu.Lock()
			seen[rec.Ref.Segment()] = true
			mu.Unlock()
			return nil
		})
		if err != nil {
			return 0, err
		}
		// Files deleted while the journal was gapped are only discoverable
		// by their absence from the fresh scan.
		for _, rec := range idx.Search(func(*types.FileRecord) bool { return true }) {
			if !seen[rec.Ref.Segment()] {
				idx.Remove(rec.Ref)
			}
		}
		return c, nil
	}

	mon := journal.NewMonitor(src, idx, rescan)
	mon.PollInterval = watchPoll
	if err := mon.Start(cursor); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
	printInfo("\nStopping (monitor state: %s, cursor %d)\n", mon.State(), mon.Cursor())
	mon.Stop()

	ist := idx.Stats()
	printInfo("Final index: %d records, %d directories, %d orphans\n",
		ist.Records, ist.Directories, ist.Orphans)
	return nil
}
