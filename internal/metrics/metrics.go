package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters and gauges. Ingest series are partitioned by source
// (udp, serial, pcap).

var (
	// Ingest
	IngestDatagramsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tesseract",
		Subsystem: "ingest",
		Name:      "datagrams_total",
		Help:      "Total readings accepted into the reading cell",
	}, []string{"source"})

	IngestRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tesseract",
		Subsystem: "ingest",
		Name:      "rejected_total",
		Help:      "Total datagrams discarded as unparseable or out of range",
	}, []string{"source"})

	IngestBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tesseract",
		Subsystem: "ingest",
		Name:      "bytes_total",
		Help:      "Total payload bytes received",
	}, []string{"source"})

	IngestReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tesseract",
		Subsystem: "ingest",
		Name:      "read_errors_total",
		Help:      "Total non-timeout read errors",
	}, []string{"source"})

	// Debounce
	DebounceConfirmationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tesseract",
		Subsystem: "debounce",
		Name:      "confirmations_total",
		Help:      "Total confirmed selection changes",
	})

	// Targets
	TargetSwitchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tesseract",
		Subsystem: "targets",
		Name:      "switches_total",
		Help:      "Total target activations, by origin (sensor, manual)",
	}, []string{"origin"})

	TargetSwitchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tesseract",
		Subsystem: "targets",
		Name:      "switch_errors_total",
		Help:      "Total rejected switch requests, by reason",
	}, []string{"reason"})

	TargetActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tesseract",
		Subsystem: "targets",
		Name:      "active_index",
		Help:      "Index of the active target (0 when none)",
	})

	// Connectivity
	ConnectivityAlive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tesseract",
		Subsystem: "connectivity",
		Name:      "alive",
		Help:      "1 when the sensor stream advanced within the timeout",
	})

	// Presentation
	PresentationState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tesseract",
		Subsystem: "presentation",
		Name:      "state",
		Help:      "1 for the current presentation state, 0 otherwise",
	}, []string{"state"})

	PresentationTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tesseract",
		Subsystem: "presentation",
		Name:      "transitions_total",
		Help:      "Total presentation state changes",
	}, []string{"from", "to"})

	// Router
	RouterTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tesseract",
		Subsystem: "router",
		Name:      "ticks_total",
		Help:      "Total evaluation ticks",
	})

	RouterTickLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tesseract",
		Subsystem: "router",
		Name:      "tick_duration_seconds",
		Help:      "Evaluation tick processing duration",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
)
