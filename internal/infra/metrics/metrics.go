package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_messages_total", Help: "Feed messages received by channel"}, []string{"channel"})
	ParseErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_parse_errors_total", Help: "Malformed feed messages dropped, by channel"}, []string{"channel"})
	InboxDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_inbox_drops_total", Help: "Events dropped because the engine inbox was full"})
	StaleDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_stale_drops_total", Help: "Events dropped due to stale session generation"})

	WSReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_reconnects_total", Help: "WebSocket reconnect attempts by channel"}, []string{"channel"})

	DiffApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "book_diff_apply_total", Help: "Depth diff application outcomes"}, []string{"outcome"})
	ResyncsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "book_resyncs_total", Help: "Forced resynchronizations (sequence gaps)"})
	LenientReconcilesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "book_lenient_reconciles_total", Help: "Reconciliations that used the no-continuity fallback"})
	PendingBufferLen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "book_pending_buffer_len", Help: "Diffs buffered while awaiting a snapshot"})

	SnapshotFetchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_fetches_total", Help: "Depth snapshot fetch attempts"})
	SnapshotFetchErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_fetch_errors_total", Help: "Failed depth snapshot fetches"})

	SpreadSanityTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projection_spread_sanity_total", Help: "Projections degraded by spread sanity checks"})
	ProjectionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "projection_build_seconds", Help: "Projection build latency",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14)})
	ProjectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projections_total", Help: "Projections emitted"})

	PublishErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projection_publish_errors_total", Help: "Failed projection publishes"})
)

// Init registers all collectors on a fresh registry.
func Init() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		MessagesTotal, ParseErrorsTotal, InboxDropsTotal, StaleDropsTotal,
		WSReconnectsTotal,
		DiffApplyTotal, ResyncsTotal, LenientReconcilesTotal, PendingBufferLen,
		SnapshotFetchesTotal, SnapshotFetchErrorsTotal,
		SpreadSanityTotal, ProjectionLatency, ProjectionsTotal,
		PublishErrorsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		if err := reg.Register(c); err != nil {
			slog.Warn("metrics: duplicate collector", slog.Any("error", err))
		}
	}
	return reg
}

// Handler serves the registry over HTTP.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
