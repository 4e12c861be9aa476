package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistryIsolatesCollectors(t *testing.T) {
	first := NewWithRegistry(prometheus.NewRegistry())
	second := NewWithRegistry(prometheus.NewRegistry())

	first.EntriesPosted.Inc()
	first.EntriesPosted.Inc()
	first.SagasCompensated.Inc()

	if got := testutil.ToFloat64(first.EntriesPosted); got != 2 {
		t.Fatalf("expected 2 posted entries recorded, got %v", got)
	}
	if got := testutil.ToFloat64(first.SagasCompensated); got != 1 {
		t.Fatalf("expected 1 compensated saga recorded, got %v", got)
	}
	if got := testutil.ToFloat64(second.EntriesPosted); got != 0 {
		t.Fatalf("expected isolated registry to stay at 0, got %v", got)
	}
}

func TestPostingErrorsByReason(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.PostingErrors.WithLabelValues("unbalanced").Inc()
	m.PostingErrors.WithLabelValues("unbalanced").Inc()
	m.PostingErrors.WithLabelValues("not_draft").Inc()

	if got := testutil.ToFloat64(m.PostingErrors.WithLabelValues("unbalanced")); got != 2 {
		t.Fatalf("expected 2 unbalanced errors, got %v", got)
	}
	if got := testutil.ToFloat64(m.PostingErrors.WithLabelValues("not_draft")); got != 1 {
		t.Fatalf("expected 1 not_draft error, got %v", got)
	}
}
