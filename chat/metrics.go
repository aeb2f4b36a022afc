package chat

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/fabfab/career-agent/chat")

type metrics struct {
	answers         *prometheus.CounterVec
	initializations *prometheus.CounterVec
	duration        prometheus.Histogram
	knowledge       *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "career_agent_answers_total",
				Help: "Answers returned by status and persona",
			},
			[]string{"status", "persona"},
		),
		initializations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "career_agent_initializations_total",
				Help: "Pipeline initializations by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "career_agent_process_duration_seconds",
				Help:    "Time spent answering a query",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
		knowledge: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "career_agent_documents_added_total",
				Help: "Knowledge uploads by status",
			},
			[]string{"status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.answers, m.initializations, m.duration, m.knowledge)
	}
	return m
}

func answerAttrs(requestID string, answer Answer) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("career.request.id", requestID),
		attribute.String("career.answer.persona", answer.PersonaUsed),
		attribute.String("career.answer.status", string(answer.Status)),
		attribute.Bool("career.answer.context_used", answer.ContextUsed),
	}
}

// startSpan opens a span for one pipeline step.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
