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
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PrinterConfig holds the façade's retry and re-entry policy
type PrinterConfig struct {
	// AutoSummarize issues a read X and retries once when opening a
	// coupon fails with PendingReadX
	AutoSummarize bool
	// CancelStaleCoupon cancels a coupon left open on the device and
	// retries once when opening a coupon fails with CouponOpenError
	CancelStaleCoupon bool
}

// DefaultPrinterConfig enables AutoSummarize and leaves stale coupons alone
func DefaultPrinterConfig() PrinterConfig {
	return PrinterConfig{
		AutoSummarize:     true,
		CancelStaleCoupon: false,
	}
}

// Option is a functional option for configuring a FiscalPrinter
type Option func(*FiscalPrinter) error

// WithLogger sets the printer's logger
func WithLogger(l *zap.Logger) Option {
	return func(p *FiscalPrinter) error {
		if l == nil {
			return NewError(KindConfig, "nil logger")
		}
		p.log = l
		return nil
	}
}

// WithMetrics records operation metrics on reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *FiscalPrinter) error {
		m, err := NewMetrics(reg)
		if err != nil {
			return WrapError(KindConfig, "register metrics", err)
		}
		p.metrics = m
		return nil
	}
}

// WithAutoSummarize toggles the automatic read X on PendingReadX
func WithAutoSummarize(enabled bool) Option {
	return func(p *FiscalPrinter) error {
		p.config.AutoSummarize = enabled
		return nil
	}
}

// WithCancelStaleCoupon toggles cancelling a coupon left open on the device
func WithCancelStaleCoupon(enabled bool) Option {
	return func(p *FiscalPrinter) error {
		p.config.CancelStaleCoupon = enabled
		return nil
	}
}

// PortFactory opens a port by device path
type PortFactory func(path string, opts PortOptions) (Port, error)

// Connect opens path with factory, builds the driver registered for brand
// and model and wraps it in a FiscalPrinter
func Connect(brand, model, path string, factory PortFactory, opts ...Option) (*FiscalPrinter, error) {
	if factory == nil {
		return nil, NewError(KindConfig, "no port factory")
	}
	ctor, err := Lookup(brand, model)
	if err != nil {
		return nil, err
	}
	port, err := factory(path, DefaultPortOptions())
	if err != nil {
		return nil, err
	}
	drv, err := ctor(port)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	p, err := New(drv, opts...)
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	return p, nil
}

// Open builds the driver registered for brand and model over an already
// open port
func Open(brand, model string, port Port, opts ...Option) (*FiscalPrinter, error) {
	ctor, err := Lookup(brand, model)
	if err != nil {
		return nil, err
	}
	drv, err := ctor(port)
	if err != nil {
		return nil, err
	}
	return New(drv, opts...)
}
