// Package metrics defines the Prometheus collectors used by the bot and the
// exporter that serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values for PhrasesInsertedTotal.
const (
	PhraseNew        = "new"
	PhraseDuplicate  = "duplicate"
	PhraseSingleWord = "single_word"
)

// Label values for RepliesTotal.
const (
	ReplySent        = "sent"
	ReplySkipped     = "skipped"
	ReplyRateLimited = "rate_limited"
	ReplyEmptyPool   = "empty_pool"
	ReplyError       = "error"
)

// Metrics holds all Prometheus collectors for the bot.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	MessagesTotal         *prometheus.CounterVec
	PhrasesInsertedTotal  *prometheus.CounterVec
	RepliesTotal          *prometheus.CounterVec
	ProcessLatency        prometheus.Histogram
	CorpusTexts           prometheus.Gauge
	CorpusCommonWords     prometheus.Gauge
	CorpusPhrases         prometheus.Gauge
	HistoryAppendFailures prometheus.Counter
	RetriesTotal          *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by lower-cased method, route and status code.",
			},
			[]string{"method", "path", "code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_messages_total",
				Help: "Chat messages processed by source (http, kafka, bootstrap).",
			},
			[]string{"source"},
		),
		PhrasesInsertedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phrases_inserted_total",
				Help: "Phrases inserted into the index by outcome (new, duplicate, single_word).",
			},
			[]string{"outcome"},
		),
		RepliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replies_total",
				Help: "Reply attempts by outcome (sent, skipped, rate_limited, empty_pool, error).",
			},
			[]string{"outcome"},
		),
		ProcessLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "brain_process_seconds",
				Help:    "Time spent holding the brain lock per message.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
		),
		CorpusTexts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_interned_texts",
				Help: "Distinct phrase and word texts interned.",
			},
		),
		CorpusCommonWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_common_words",
				Help: "Words occurring in at least one multi-word phrase.",
			},
		),
		CorpusPhrases: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_phrases",
				Help: "Distinct multi-word phrases indexed.",
			},
		),
		HistoryAppendFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "history_append_failures_total",
				Help: "Phrases that could not be persisted to the history store.",
			},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retries_total",
				Help: "Failed attempts that were retried, by operation.",
			},
			[]string{"operation"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.MessagesTotal,
		m.PhrasesInsertedTotal,
		m.RepliesTotal,
		m.ProcessLatency,
		m.CorpusTexts,
		m.CorpusCommonWords,
		m.CorpusPhrases,
		m.HistoryAppendFailures,
		m.RetriesTotal,
		m.CircuitBreakerState,
	)

	return m
}
