// Package metrics collects prometheus metrics for the indexer. Collectors
// are package-level so any package can instrument without plumbing; the
// process entrypoint registers them via Collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ScanRecordsTotal counts file records parsed by full-table scans.
	ScanRecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "everidx_scan_records_total",
		Help: "Number of MFT records parsed and emitted by full-table scans.",
	})
	// ScanSkipsTotal counts malformed records skipped by full-table scans.
	ScanSkipsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "everidx_scan_skips_total",
		Help: "Number of malformed MFT records skipped by full-table scans.",
	})
	// IndexRecords tracks the number of records currently indexed.
	IndexRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "everidx_index_records",
		Help: "Number of file records currently held by the index.",
	})
	// JournalRecordsTotal counts USN journal records applied to the index.
	JournalRecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "everidx_journal_records_total",
		Help: "Number of USN journal records applied to the index.",
	})
	// JournalDropsTotal counts journal read buffers abandoned before their
	// end because a record in them failed to decode.
	JournalDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "everidx_journal_drops_total",
		Help: "Number of journal read buffers whose tail was dropped after an undecodable record.",
	})
	// JournalGapsTotal counts journal gaps that forced a full rescan.
	JournalGapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "everidx_journal_gaps_total",
		Help: "Number of change journal gaps that triggered gap recovery.",
	})
	// MonitorStateValue exports the journal monitor state as its enum value.
	MonitorStateValue = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "everidx_monitor_state",
		Help: "Journal monitor state (0 idle, 1 tailing, 2 gap-recovery, 3 faulted).",
	})
	// QueriesTotal counts search queries served, labelled by match mode.
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "everidx_queries_total",
		Help: "Number of search queries served.",
	}, []string{"mode"})
)

// Collectors returns all package collectors for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ScanRecordsTotal,
		ScanSkipsTotal,
		IndexRecords,
		JournalRecordsTotal,
		JournalDropsTotal,
		JournalGapsTotal,
		MonitorStateValue,
		QueriesTotal,
	}
}
