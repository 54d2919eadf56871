package journal

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/everidx/everidx/index"
	"github.com/everidx/everidx/internal/format"
	"github.com/everidx/everidx/metrics"
	"github.com/everidx/everidx/pkg/types"
)

const (
	defaultPollInterval = 500 * time.Millisecond

	// maxReadAttempts bounds retries of a transiently failing read before
	// the monitor faults.
	maxReadAttempts = 3

	// maxRescanAttempts bounds consecutive gap-recovery failures before
	// the monitor faults.
	maxRescanAttempts = 3
)

// RescanFunc rebuilds the index from a full table scan and returns the
// journal cursor captured before the scan started.
type RescanFunc func(ctx context.Context) (types.USN, error)

// Monitor tails the change journal and applies records to the index.
//
// States: Idle until Start, Tailing while consuming batches, GapRecovery
// while a rescan runs after the cursor was invalidated, and Faulted when
// the journal or device became unusable. Faulted is terminal: the monitor
// stops mutating and the index freezes at its last consistent state.
type Monitor struct {
	src    Source
	idx    *index.Index
	rescan RescanFunc

	// PollInterval is the pause after an empty batch. Zero means the
	// default.
	PollInterval time.Duration

	state     atomic.Int32
	cursor    atomic.Int64
	journalID uint64 // owned by the run loop

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor returns an Idle monitor. rescan may be nil, in which case a
// journal gap faults the monitor instead of recovering.
func NewMonitor(src Source, idx *index.Index, rescan RescanFunc) *Monitor {
	return &Monitor{src: src, idx: idx, rescan: rescan}
}

// State returns the monitor's current state.
func (m *Monitor) State() types.MonitorState {
	return types.MonitorState(m.state.Load())
}

// Cursor returns the next USN the monitor will read from.
func (m *Monitor) Cursor() types.USN {
	return types.USN(m.cursor.Load())
}

func (m *Monitor) setState(s types.MonitorState) {
	old := types.MonitorState(m.state.Swap(int32(s)))
	if old != s {
		log.WithFields(log.Fields{"from": old, "to": s}).Info("journal monitor state change")
	}
	metrics.MonitorStateValue.Set(float64(s))
}

// Start launches the tail loop from the given cursor. The cursor is
// normally captured before the bootstrap scan, so the scan/tail overlap
// re-applies a few records rather than missing any.
func (m *Monitor) Start(cursor types.USN) error {
	if !m.state.CompareAndSwap(int32(types.MonitorIdle), int32(types.MonitorTailing)) {
		return &types.Error{Kind: types.ErrKindState,
			Msg: "monitor already started (state " + m.State().String() + ")"}
	}
	metrics.MonitorStateValue.Set(float64(types.MonitorTailing))
	m.cursor.Store(int64(cursor))

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx)
	return nil
}

// Stop terminates the tail loop and waits for it to exit. A Faulted
// monitor stays Faulted.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.state.CompareAndSwap(int32(types.MonitorTailing), int32(types.MonitorIdle))
	m.state.CompareAndSwap(int32(types.MonitorGapRecovery), int32(types.MonitorIdle))
	metrics.MonitorStateValue.Set(float64(m.State()))
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	poll := m.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := m.src.ReadBatch(ctx, m.Cursor())
		switch {
		case err == nil:
			attempts = 0
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, types.ErrJournalGap):
			if !m.recover(ctx) {
				return
			}
			continue
		case errors.Is(err, types.ErrFatalIO):
			m.fault("journal read", err)
			return
		default:
			attempts++
			if attempts >= maxReadAttempts {
				m.fault("journal read retries exhausted", err)
				return
			}
			log.WithFields(log.Fields{"err": err, "attempt": attempts}).
				Warn("journal read failed, retrying")
			if !sleepCtx(ctx, poll) {
				return
			}
			continue
		}

		if m.journalID == 0 {
			m.journalID = batch.JournalID
		} else if batch.JournalID != m.journalID {
			// The journal was deleted and recreated under us.
			log.WithFields(log.Fields{"old": m.journalID, "new": batch.JournalID}).
				Warn("journal instance changed")
			m.journalID = batch.JournalID
			if !m.recover(ctx) {
				return
			}
			continue
		}

		m.applyBatch(batch.Raw)

		empty := len(batch.Raw) == 0
		m.cursor.Store(int64(batch.Next))
		if empty {
			if !sleepCtx(ctx, poll) {
				return
			}
		}
	}
}

// applyBatch decodes and applies every record in raw. A corrupt record
// poisons the rest of the buffer: the walk cannot re-synchronize, so the
// tail is dropped, counted, and the driver's cursor (which covers the whole
// buffer) still advances.
func (m *Monitor) applyBatch(raw []byte) {
	var n int
	consumed, err := format.WalkUSNBuffer(raw, func(rec format.USNRecord) error {
		if Apply(m.idx, rec) {
			n++
		}
		return nil
	})
	if n > 0 {
		metrics.JournalRecordsTotal.Add(float64(n))
	}
	if err != nil {
		metrics.JournalDropsTotal.Inc()
		log.WithFields(log.Fields{"err": err, "applied": n, "dropped_bytes": len(raw) - consumed}).
			Warn("journal batch ended on a corrupt record")
	}
}

// recover handles an invalidated cursor: full rescan, fresh cursor.
// Reports false when the monitor faulted or the context ended.
func (m *Monitor) recover(ctx context.Context) bool {
	metrics.JournalGapsTotal.Inc()
	if m.rescan == nil {
		m.fault("journal gap with no rescan configured", types.ErrJournalGap)
		return false
	}
	m.setState(types.MonitorGapRecovery)

	for attempt := 1; attempt <= maxRescanAttempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		cursor, err := m.rescan(ctx)
		if err == nil {
			m.cursor.Store(int64(cursor))
			m.setState(types.MonitorTailing)
			log.WithFields(log.Fields{"cursor": cursor}).Info("gap recovery complete")
			return true
		}
		log.WithFields(log.Fields{"err": err, "attempt": attempt}).
			Warn("gap recovery rescan failed")
	}
	m.fault("gap recovery exhausted", types.ErrJournalGap)
	return false
}

func (m *Monitor) fault(msg string, err error) {
	log.WithFields(log.Fields{"err": err}).Error("journal monitor faulted: " + msg)
	m.setState(types.MonitorFaulted)
}

// sleepCtx pauses for d, reporting false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
