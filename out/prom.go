// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromSink exports step statistics as prometheus metrics
type PromSink struct {
	Reg *prometheus.Registry // registry holding all metrics

	steps        prometheus.Counter
	nonConverged prometheus.Counter
	iterations   prometheus.Histogram
	time         prometheus.Gauge
	dt           prometheus.Gauge
	residual     *prometheus.GaugeVec
}

// NewPromSink returns a new sink with its own registry
func NewPromSink() (o *PromSink) {
	o = &PromSink{Reg: prometheus.NewRegistry()}
	f := promauto.With(o.Reg)
	o.steps = f.NewCounter(prometheus.CounterOpts{
		Name: "gomantle_steps_total",
		Help: "Number of accepted time steps",
	})
	o.nonConverged = f.NewCounter(prometheus.CounterOpts{
		Name: "gomantle_steps_iteration_limited_total",
		Help: "Number of time steps accepted without meeting the nonlinear tolerance",
	})
	o.iterations = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "gomantle_nonlinear_iterations",
		Help:    "Number of nonlinear iterations per time step",
		Buckets: prometheus.LinearBuckets(1, 2, 10),
	})
	o.time = f.NewGauge(prometheus.GaugeOpts{
		Name: "gomantle_time",
		Help: "Simulation time of the last accepted step",
	})
	o.dt = f.NewGauge(prometheus.GaugeOpts{
		Name: "gomantle_dt",
		Help: "Time step of the last accepted step",
	})
	o.residual = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gomantle_final_residual",
		Help: "Final nonlinear residual of the last accepted step",
	}, []string{"system"})
	return
}

// Write updates all metrics
func (o *PromSink) Write(tab *Table, rec *StepRecord) error {
	o.steps.Inc()
	if !rec.Converged {
		o.nonConverged.Inc()
	}
	o.iterations.Observe(float64(rec.Iterations))
	o.time.Set(rec.Time)
	o.dt.Set(rec.Dt)
	for i, name := range rec.Systems {
		if i < len(rec.Final) {
			o.residual.WithLabelValues(name).Set(rec.Final[i])
		}
	}
	return nil
}

// Flush does nothing
func (o *PromSink) Flush() error { return nil }
