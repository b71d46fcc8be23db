package handler

import (
	"fmt"
	"net/http"

	"github.com/tallybook/tally/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "tally_transactions_created_total %d\n", snap.TransactionsCreated)
	writeMetric(w, "tally_transactions_deleted_total %d\n", snap.TransactionsDeleted)

	writeMetric(w, "tally_ledger_cache_hits_total %d\n", snap.LedgerCacheHits)
	writeMetric(w, "tally_ledger_cache_misses_total %d\n", snap.LedgerCacheMisses)
	writeMetric(w, "tally_ledger_list_duration_seconds_count %d\n", snap.LedgerListDurationCount)
	writeMetric(w, "tally_ledger_list_duration_seconds_sum %.6f\n", float64(snap.LedgerListDurationTotalNs)/1e9)

	writeMetric(w, "tally_signups_total %d\n", snap.Signups)
	writeMetric(w, "tally_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "tally_logins_total{status=\"failed\"} %d\n", snap.LoginsFailed)
	writeMetric(w, "tally_accounts_deleted_total %d\n", snap.AccountsDeleted)

	writeMetric(w, "tally_events_published_total{status=\"success\"} %d\n", snap.EventsPublished)
	writeMetric(w, "tally_events_published_total{status=\"failed\"} %d\n", snap.EventsFailed)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
