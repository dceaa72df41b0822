package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented wraps a ContentStore and records per-operation outcome counts and latency.
type Instrumented struct {
	next    ContentStore
	backend string

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ ContentStore = (*Instrumented)(nil)

// NewInstrumented registers the content store metrics on reg and wraps next.
func NewInstrumented(next ContentStore, backend string, reg prometheus.Registerer) (*Instrumented, error) {
	i := &Instrumented{
		next:    next,
		backend: backend,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_store_operations_total",
				Help: "Content store operations by backend, operation and outcome.",
			},
			[]string{"backend", "operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "content_store_operation_duration_seconds",
				Help:    "Latency of content store operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
	}
	if err := reg.Register(i.operations); err != nil {
		return nil, err
	}
	if err := reg.Register(i.duration); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *Instrumented) Store(ctx context.Context, r io.Reader, size int64) (string, error) {
	start := time.Now()
	addr, err := i.next.Store(ctx, r, size)
	i.observe("store", start, err)
	return addr, err
}

func (i *Instrumented) Fetch(ctx context.Context, addr, displayName string) (*Handle, error) {
	start := time.Now()
	h, err := i.next.Fetch(ctx, addr, displayName)
	i.observe("fetch", start, err)
	return h, err
}

func (i *Instrumented) Unpin(ctx context.Context, addr string) error {
	start := time.Now()
	err := i.next.Unpin(ctx, addr)
	i.observe("unpin", start, err)
	return err
}

func (i *Instrumented) GC(ctx context.Context) ([]string, error) {
	start := time.Now()
	removed, err := i.next.GC(ctx)
	i.observe("gc", start, err)
	return removed, err
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	i.duration.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
	i.operations.WithLabelValues(i.backend, op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
