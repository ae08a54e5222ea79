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

package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/pflag"
	"github.com/stoqdrivers/go-ecf/probe"
)

// cmdWatch polls the printer status until the command timeout or an
// interrupt, reporting online and offline transitions
func cmdWatch(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	interval := fs.Duration("interval", time.Second, "poll interval")
	threshold := fs.Int("failures", 3, "consecutive failures before reporting offline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := e.printer()
	if err != nil {
		return err
	}

	cfg := probe.DefaultConfig()
	cfg.Interval = *interval
	cfg.FailureThreshold = *threshold
	m := probe.NewMonitor(p, cfg)
	name := p.Info().String()
	m.OnOnline = func(reply []byte) { e.printf("%s online %q\n", name, reply) }
	m.OnOffline = func(err error) { e.printf("%s offline: %v\n", name, err) }

	err = m.Start(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
