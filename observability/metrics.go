package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chatrelay"

// Drop reasons used as label values of FramesDropped.
const (
	ReasonFraming = "framing"
	ReasonWrite   = "write"
	ReasonClosed  = "closed"
)

// Metrics holds the Prometheus collectors shared by the room, sessions and listener.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	RoomMembers     prometheus.Gauge
	FramesReceived  prometheus.Counter
	FramesDelivered prometheus.Counter
	FramesTruncated prometheus.Counter
	FramesDropped   *prometheus.CounterVec
	BytesSent       prometheus.Counter
	AcceptErrors    prometheus.Counter
}

// NewMetrics registers every collector on the given registerer.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions currently running",
		}),
		RoomMembers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_members",
			Help:      "Number of participants in the room",
		}),
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Inbound lines turned into frames",
		}),
		FramesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_delivered_total",
			Help:      "Frames accepted by a participant during fan-out",
		}),
		FramesTruncated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_truncated_total",
			Help:      "Inbound bodies clamped to the maximum frame size",
		}),
		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames dropped before reaching the wire",
		}, []string{"reason"}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Bytes written to client connections",
		}),
		AcceptErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Non fatal errors returned by Accept",
		}),
	}
}
