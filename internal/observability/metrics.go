package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TCPConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_tcp_connections_total",
		Help: "TCP connections accepted",
	})
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "avl_active_sessions",
		Help: "Sessions currently holding an admission permit",
	})
	HandshakeOK = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_handshake_ok_total",
		Help: "IMEI handshakes acknowledged",
	})
	PacketsRecv = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_packets_received_total",
		Help: "Telemetry frames decoded",
	})
	RecordsAck = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_records_ack_total",
		Help: "AVL records acknowledged to devices",
	})
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avl_decode_errors_total",
		Help: "Frames rejected by the classifier or decoder",
	}, []string{"kind"})
	SessionCloses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avl_session_closes_total",
		Help: "Sessions closed, by reason",
	}, []string{"reason"})
	PersistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_persist_errors_total",
		Help: "Failed writes to the telemetry store",
	})
	SpooledSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_spooled_saves_total",
		Help: "Failed saves queued in the local spool",
	})
	ReplayedSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_replayed_saves_total",
		Help: "Spooled saves written to the store on replay",
	})
	RedisSetErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_redis_set_errors_total",
		Help: "Failed device state writes to Redis",
	})
	ForwardDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avl_forward_drops_total",
		Help: "Events dropped because a forwarder queue was full",
	}, []string{"forwarder"})
	ForwardErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avl_forward_errors_total",
		Help: "Forwarder delivery failures",
	}, []string{"forwarder"})
	DecodeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "avl_decode_latency_seconds",
		Help:    "Classify and decode latency per frame",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveDecodeLatency(start time.Time) {
	DecodeLatency.Observe(time.Since(start).Seconds())
}
