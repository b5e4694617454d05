package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Handler outcomes reported by the partyline.
const (
	OutcomeMatch   = "match"
	OutcomeNoMatch = "no_match"
	OutcomeError   = "error"
)

// Resolution sources reported by the interceptor.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
	SourceMiss   = "miss"
	SourceError  = "error"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partyline",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"app", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "partyline",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "path", "status"},
	)
	askAroundCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partyline",
			Subsystem: "bus",
			Name:      "ask_around_total",
			Help:      "Broadcast queries started per topic.",
		},
		[]string{"topic"},
	)
	handlerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partyline",
			Subsystem: "bus",
			Name:      "handler_calls_total",
			Help:      "Topic handler invocations by member and outcome.",
		},
		[]string{"topic", "member", "outcome"},
	)
	invitations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partyline",
			Subsystem: "bus",
			Name:      "invitations_total",
			Help:      "Invitation requests by app and result.",
		},
		[]string{"app", "joined"},
	)
	resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partyline",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "URL resolutions by app and winning source.",
		},
		[]string{"app", "source"},
	)
	resolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "partyline",
			Subsystem: "resolver",
			Name:      "resolution_duration_seconds",
			Help:      "URL resolution duration in seconds, broadcast included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "source"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			askAroundCalls,
			handlerCalls,
			invitations,
			resolutions,
			resolutionDuration,
		)
	})
}

func RecordHTTPRequest(app, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordAskAround(topic string) {
	RegisterMetrics()
	askAroundCalls.WithLabelValues(topic).Inc()
}

func RecordHandlerCall(topic, member, outcome string) {
	RegisterMetrics()
	handlerCalls.WithLabelValues(topic, member, outcome).Inc()
}

func RecordInvitation(app string, joined bool) {
	RegisterMetrics()
	invitations.WithLabelValues(app, strconv.FormatBool(joined)).Inc()
}

func RecordResolution(app, source string, duration time.Duration) {
	RegisterMetrics()
	resolutions.WithLabelValues(app, source).Inc()
	resolutionDuration.WithLabelValues(app, source).Observe(duration.Seconds())
}
