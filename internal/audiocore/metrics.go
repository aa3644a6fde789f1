package audiocore

import (
	"log/slog"
	"sync"

	"github.com/aviarysound/playlistcore/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector exports Playlist and BufferPool runtime counters as
// Prometheus metrics. A disabled collector (built with a nil registerer) is
// always safe to call into: every Record*/Update* method no-ops. A nil
// *MetricsCollector is not; Playlist checks for nil before calling in.
type MetricsCollector struct {
	registerer prometheus.Registerer
	enabled    bool

	decodedFrames  *prometheus.CounterVec
	decodeErrors   *prometheus.CounterVec
	filterRebuilds prometheus.Counter
	sinkCount      prometheus.Gauge
	sinkGroupCount prometheus.Gauge
	queueBytes     *prometheus.GaugeVec
	bufferActive   *prometheus.GaugeVec
	bufferTotal    *prometheus.GaugeVec

	logger *slog.Logger
}

var (
	globalMetrics     *MetricsCollector
	globalMetricsOnce sync.Once
)

// NewMetricsCollector registers audiocore's metrics against reg. Passing a
// nil registerer yields a disabled collector whose methods are no-ops,
// useful for tests that don't want a shared Prometheus registry.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "metrics")

	if reg == nil {
		return &MetricsCollector{enabled: false, logger: logger}
	}

	mc := &MetricsCollector{
		registerer: reg,
		enabled:    true,
		logger:     logger,
		decodedFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playlistcore",
			Subsystem: "audiocore",
			Name:      "decoded_frames_total",
			Help:      "Decoded input frames pushed into the filter graph.",
		}, []string{"playlist"}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playlistcore",
			Subsystem: "audiocore",
			Name:      "decode_errors_total",
			Help:      "Packets or frames discarded due to a decode error.",
		}, []string{"playlist"}),
		filterRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "playlistcore",
			Subsystem: "audiocore",
			Name:      "filter_rebuilds_total",
			Help:      "Filter graph rebuilds triggered by maybe_rebuild.",
		}),
		sinkCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "playlistcore",
			Subsystem: "audiocore",
			Name:      "sinks_attached",
			Help:      "Currently attached sinks across all playlists.",
		}),
		sinkGroupCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "playlistcore",
			Subsystem: "audiocore",
			Name:      "sink_groups",
			Help:      "Distinct sink output-format groups (sink_map_count).",
		}),
		queueBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "playlistcore",
			Subsystem: "audiocore",
			Name:      "sink_queue_bytes",
			Help:      "Current queued byte size for one sink.",
		}, []string{"sink_id"}),
		bufferActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "playlistcore",
			Subsystem: "audiocore",
			Name:      "buffer_pool_active",
			Help:      "Active (not-yet-released) buffers per pool tier.",
		}, []string{"tier"}),
		bufferTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "playlistcore",
			Subsystem: "audiocore",
			Name:      "buffer_pool_total",
			Help:      "Buffers ever allocated per pool tier.",
		}, []string{"tier"}),
	}

	for _, c := range []prometheus.Collector{
		mc.decodedFrames, mc.decodeErrors, mc.filterRebuilds,
		mc.sinkCount, mc.sinkGroupCount, mc.queueBytes,
		mc.bufferActive, mc.bufferTotal,
	} {
		if err := reg.Register(c); err != nil {
			logger.Debug("metric already registered, skipping", "error", err)
		}
	}

	return mc
}

// InitMetrics installs a process-wide default collector for callers that
// don't wire their own registry per Playlist. cmd/playlistcoretest does
// not use it; it calls NewMetricsCollector with its own registry.
func InitMetrics(reg prometheus.Registerer) {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector(reg)
	})
}

// GlobalMetrics returns the process-wide collector, or a disabled one if
// InitMetrics was never called.
func GlobalMetrics() *MetricsCollector {
	if globalMetrics == nil {
		return &MetricsCollector{enabled: false}
	}
	return globalMetrics
}

// RecordDecodedFrame increments the decoded-frame counter for a playlist.
func (mc *MetricsCollector) RecordDecodedFrame(playlistID string) {
	if !mc.enabled {
		return
	}
	mc.decodedFrames.WithLabelValues(playlistID).Inc()
}

// RecordDecodeError increments the decode-error counter for a playlist.
func (mc *MetricsCollector) RecordDecodeError(playlistID string) {
	if !mc.enabled {
		return
	}
	mc.decodeErrors.WithLabelValues(playlistID).Inc()
}

// RecordFilterRebuild increments the filter-rebuild counter.
func (mc *MetricsCollector) RecordFilterRebuild() {
	if !mc.enabled {
		return
	}
	mc.filterRebuilds.Inc()
}

// UpdateSinkCounts sets the current attached-sink and sink-group gauges.
func (mc *MetricsCollector) UpdateSinkCounts(sinks, groups int) {
	if !mc.enabled {
		return
	}
	mc.sinkCount.Set(float64(sinks))
	mc.sinkGroupCount.Set(float64(groups))
}

// UpdateSinkQueueBytes sets the queued-byte gauge for one sink.
func (mc *MetricsCollector) UpdateSinkQueueBytes(sinkID string, bytes int) {
	if !mc.enabled {
		return
	}
	mc.queueBytes.WithLabelValues(sinkID).Set(float64(bytes))
}

// RecordBufferPoolStats mirrors a BufferPool's per-tier stats into the
// active/total gauges. Its signature matches the callback that
// bufferPoolImpl.SetMetricsReporter accepts.
func (mc *MetricsCollector) RecordBufferPoolStats(tier string, stats BufferPoolStats) {
	if !mc.enabled {
		return
	}
	mc.bufferActive.WithLabelValues(tier).Set(float64(stats.ActiveBuffers))
	mc.bufferTotal.WithLabelValues(tier).Set(float64(stats.TotalBuffers))
}
