// Package metrics counts decision-loop activity on a private prometheus registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeExhausted = "exhausted"
	OutcomeFailed    = "failed"
)

// #region recorder
// Recorder holds the loop collectors. A nil *Recorder ignores every call.
type Recorder struct {
	reg     *prometheus.Registry
	actions *prometheus.CounterVec
	reward  prometheus.Histogram
	cycles  *prometheus.CounterVec
	states  prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeloop_actions_total",
			Help: "Actions chosen by the agent.",
		}, []string{"action"}),
		reward: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "codeloop_reward",
			Help:    "Rewards observed per transition.",
			Buckets: prometheus.LinearBuckets(-100, 20, 11),
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeloop_cycles_total",
			Help: "Completed decision-loop runs by outcome.",
		}, []string{"outcome"}),
		states: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codeloop_qtable_states",
			Help: "Materialized states in the value table.",
		}),
	}
	r.reg.MustRegister(r.actions, r.reward, r.cycles, r.states)
	return r
}
// #endregion recorder

// #region observe
func (r *Recorder) Action(action string) {
	if r == nil {
		return
	}
	r.actions.WithLabelValues(action).Inc()
}

func (r *Recorder) Reward(v float64) {
	if r == nil {
		return
	}
	r.reward.Observe(v)
}

func (r *Recorder) Cycle(outcome string) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(outcome).Inc()
}

func (r *Recorder) States(n int) {
	if r == nil {
		return
	}
	r.states.Set(float64(n))
}
// #endregion observe

// Registry exposes the collectors for scraping or tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
