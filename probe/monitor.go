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

// Package probe polls a fiscal printer's status on behalf of a host
// event loop and reports online and offline transitions.
package probe

import (
	"context"
	"sync"
	"time"

	ecf "github.com/stoqdrivers/go-ecf"
	"go.uber.org/zap"
)

// Target is what a Monitor polls. ecf.Driver and *ecf.FiscalPrinter both
// satisfy it.
type Target interface {
	QueryStatus(ctx context.Context) ([]byte, error)
	StatusReplyComplete(reply []byte) bool
}

// ErrIncompleteReply is recorded when a status reply is cut short
var ErrIncompleteReply = ecf.NewError(ecf.KindComm, "incomplete status reply")

// Config holds monitor timing
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	// FailureThreshold consecutive failures mark the printer offline
	FailureThreshold int
}

// DefaultConfig returns a one second poll with a three failure threshold
func DefaultConfig() *Config {
	return &Config{
		Interval:         time.Second,
		Timeout:          3 * time.Second,
		FailureThreshold: 3,
	}
}

// Monitor polls a Target until its context is cancelled
type Monitor struct {
	target    Target
	config    *Config
	OnOnline  func(reply []byte)
	OnOffline func(err error)
	OnStatus  func(reply []byte)
	state     State
	mu        sync.Mutex
}

// NewMonitor creates a monitor; a nil config uses DefaultConfig
func NewMonitor(target Target, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 1
	}
	return &Monitor{target: target, config: config}
}

// State returns a copy of the current state
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start polls immediately and then every Interval. It blocks until ctx
// is done and returns ctx.Err().
func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()
	for {
		m.probe(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Probe runs a single poll cycle and returns the resulting status
func (m *Monitor) Probe(ctx context.Context) Status {
	m.probe(ctx)
	return m.State().Status
}

func (m *Monitor) probe(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	reply, err := m.target.QueryStatus(pctx)
	cancel()
	if ctx.Err() != nil {
		return
	}
	if err == nil && !m.target.StatusReplyComplete(reply) {
		err = ErrIncompleteReply
	}

	m.mu.Lock()
	var online, offline bool
	if err != nil {
		offline = m.state.RecordFailure(err, m.config.FailureThreshold)
	} else {
		online = m.state.TransitionToOnline(reply)
	}
	m.mu.Unlock()

	if err != nil {
		ecf.Logger().Debug("status probe failed", zap.Error(err))
	}
	switch {
	case online && m.OnOnline != nil:
		m.OnOnline(reply)
	case offline && m.OnOffline != nil:
		m.OnOffline(err)
	}
	if err == nil && m.OnStatus != nil {
		m.OnStatus(reply)
	}
}
