// Package metrics exports loop activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/rxloop/internal/loop"
)

const namespace = "rxloop"

// Termination outcomes, the values of the outcome label.
const (
	OutcomeCompleted    = "completed"
	OutcomeCancelled    = "cancelled"
	OutcomeReducerFault = "reducer_fault"
	OutcomeSourceFailed = "source_failed"
	OutcomeOtherFailure = "failed"
)

// Observer implements loop.Observer on top of a Prometheus registry.
// Loop ids are not used as labels: instances are unbounded, metrics are
// aggregated over every loop built with the same Observer.
//
// Thread-safety: Observer is safe for concurrent use.
type Observer struct {
	started      prometheus.Counter
	terminated   *prometheus.CounterVec
	reduced      prometheus.Counter
	reduceTime   prometheus.Histogram
	committed    prometheus.Counter
	interpFaults prometheus.Counter
	running      prometheus.Gauge
}

var _ loop.Observer = (*Observer)(nil)

// New creates an Observer and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loops_started_total",
			Help:      "Loop instances wired and seeded.",
		}),
		terminated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loops_terminated_total",
			Help:      "Loop instances terminated, by outcome.",
		}, []string{"outcome"}),
		reduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_reduced_total",
			Help:      "Mutations folded into a new state.",
		}),
		reduceTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reduce_duration_seconds",
			Help:      "Time spent in the reducer per mutation.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_committed_total",
			Help:      "States committed to a state channel, seeds included.",
		}),
		interpFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpreter_failures_total",
			Help:      "Interpreter panics isolated by the interpreter chain.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loops_running",
			Help:      "Loop instances currently wired.",
		}),
	}

	collectors := []prometheus.Collector{
		o.started, o.terminated, o.reduced, o.reduceTime, o.committed, o.interpFaults, o.running,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return o, nil
}

func (o *Observer) LoopStarted(string) {
	o.started.Inc()
	o.running.Inc()
}

func (o *Observer) MutationReduced(_ string, took time.Duration) {
	o.reduced.Inc()
	o.reduceTime.Observe(took.Seconds())
}

func (o *Observer) StateCommitted(string, int64) {
	o.committed.Inc()
}

func (o *Observer) InterpreterFailed(string, error) {
	o.interpFaults.Inc()
}

func (o *Observer) LoopTerminated(_ string, err error) {
	o.running.Dec()
	o.terminated.WithLabelValues(Outcome(err)).Inc()
}

// Outcome classifies a termination cause.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case loop.IsReducerFault(err):
		return OutcomeReducerFault
	case loop.IsSourceFailure(err):
		return OutcomeSourceFailed
	default:
		return OutcomeOtherFailure
	}
}
