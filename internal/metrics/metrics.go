// Package metrics provides Prometheus metrics for calculations, history and HTTP traffic
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Simplici0/stackcost/internal/history"
)

// Calculation kinds.
const (
	KindCost  = "cost"
	KindYield = "yield"
)

var (
	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackcost_calculations_total",
			Help: "Total number of cost and yield calculations",
		},
		[]string{"kind"},
	)

	HistoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackcost_history_operations_total",
			Help: "History store operations by collection, operation and status",
		},
		[]string{"collection", "op", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stackcost_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

// RecordCalculation counts one calculation of kind.
func RecordCalculation(kind string) {
	CalculationsTotal.WithLabelValues(kind).Inc()
}

// RecordHTTP observes one served request.
func RecordHTTP(route, method, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
}

func recordHistory(c history.Collection, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	HistoryOperationsTotal.WithLabelValues(string(c), op, status).Inc()
}

type instrumentedStore struct {
	next history.Store
}

// InstrumentStore wraps s so that every operation is counted.
func InstrumentStore(s history.Store) history.Store {
	return instrumentedStore{next: s}
}

func (s instrumentedStore) Load(ctx context.Context, c history.Collection) []history.Entry {
	entries := s.next.Load(ctx, c)
	recordHistory(c, "load", nil)
	return entries
}

func (s instrumentedStore) Get(ctx context.Context, c history.Collection, id string) (history.Entry, bool) {
	e, ok := s.next.Get(ctx, c, id)
	recordHistory(c, "get", nil)
	return e, ok
}

func (s instrumentedStore) Save(ctx context.Context, c history.Collection, label string, snapshot any) (history.Entry, error) {
	e, err := s.next.Save(ctx, c, label, snapshot)
	recordHistory(c, "save", err)
	return e, err
}

func (s instrumentedStore) Delete(ctx context.Context, c history.Collection, id string) error {
	err := s.next.Delete(ctx, c, id)
	recordHistory(c, "delete", err)
	return err
}
