package relay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	fragmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relayd",
			Subsystem: "relay",
			Name:      "fragments_total",
			Help:      "Total number of text fragments written to clients",
		},
	)

	malformedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relayd",
			Subsystem: "relay",
			Name:      "malformed_lines_total",
			Help:      "Upstream NDJSON lines skipped because they did not decode",
		},
	)

	streamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayd",
			Subsystem: "relay",
			Name:      "streams_total",
			Help:      "Finished streams by outcome",
		},
		[]string{"outcome"},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayd",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Upstream requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relayd",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Time until upstream response headers (or failure)",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(fragmentsTotal, malformedLinesTotal, streamsTotal, upstreamRequestsTotal, upstreamRequestDuration)
}

func observeUpstream(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamRequestsTotal.WithLabelValues(op, outcome).Inc()
	upstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
