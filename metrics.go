// go-ecf
// Copyright (c) 2025 The go-ecf Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ecf.
//
// go-ecf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ecf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ecf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package ecf

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts façade operations
type Metrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the operation metrics on reg. Collectors already
// registered by another printer are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecf_operations_total",
			Help: "Fiscal printer operations dispatched.",
		}, []string{"brand", "model", "operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecf_operation_errors_total",
			Help: "Fiscal printer operations that failed, by error kind.",
		}, []string{"brand", "model", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecf_operation_duration_seconds",
			Help:    "Fiscal printer operation latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"brand", "model", "operation"}),
	}

	var err error
	if m.operations, err = registerCounter(reg, m.operations); err != nil {
		return nil, err
	}
	if m.errors, err = registerCounter(reg, m.errors); err != nil {
		return nil, err
	}
	if err := reg.Register(m.duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		m.duration = existing
	}
	return m, nil
}

func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		return existing, nil
	}
	return c, nil
}

func (m *Metrics) observe(info Info, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(info.Brand, info.Model, op).Inc()
	m.duration.WithLabelValues(info.Brand, info.Model, op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.errors.WithLabelValues(info.Brand, info.Model, KindOf(err).String()).Inc()
	}
}
