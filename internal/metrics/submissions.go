// Package metrics exports checkout outcomes to Prometheus and fans them out
// to any other configured recorder.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is what checkout reports outcomes to.
type Recorder interface {
	RecordSubmission(ctx context.Context, outcome string) error
}

// SubmissionMetrics counts checkout outcomes.
type SubmissionMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewSubmissionMetrics registers the counters on reg. A nil reg yields a
// recorder that drops everything.
func NewSubmissionMetrics(reg prometheus.Registerer) *SubmissionMetrics {
	if reg == nil {
		return &SubmissionMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartflow",
		Name:      "submissions_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(outcomes)
	return &SubmissionMetrics{outcomes: outcomes}
}

func (m *SubmissionMetrics) RecordSubmission(_ context.Context, outcome string) error {
	if m == nil || m.outcomes == nil {
		return nil
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
	return nil
}

// Multi reports to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) RecordSubmission(ctx context.Context, outcome string) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordSubmission(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
