// Package journal tails the NTFS change journal and applies its records to
// the index, keeping it current after the bootstrap scan. A single monitor
// goroutine owns the cursor and is the only writer once tailing starts.
package journal

import (
	"context"

	"github.com/everidx/everidx/pkg/types"
)

// Batch is one read from the change journal: a packed buffer of
// USN_RECORD_V2 structures plus the cursor for the following read.
type Batch struct {
	// Raw holds zero or more encoded journal records.
	Raw []byte
	// Next is the cursor to resume from after Raw is consumed.
	Next types.USN
	// JournalID identifies the journal instance. A change means the
	// journal was deleted and recreated, invalidating every saved cursor.
	JournalID uint64
}

// Source reads batches of raw journal records.
//
// ReadBatch blocks until records are available, the context is done, or an
// implementation-defined wait elapses (an empty batch with an advanced-or-
// equal cursor is valid). A cursor that predates retained history fails
// with a types.ErrKindGap error; the monitor reacts by rescanning, not by
// crashing.
type Source interface {
	ReadBatch(ctx context.Context, cursor types.USN) (Batch, error)
}
