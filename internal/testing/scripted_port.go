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

// Package testing provides a record-and-replay port for driver tests
package testing

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	ecf "github.com/stoqdrivers/go-ecf"
)

// Exchange is one scripted request and the device's reply to it
type Exchange struct {
	Expect []byte
	Reply  []byte
}

// ScriptedPort plays back a recorded session. Every write must match the
// next expected request byte for byte; once a request is complete its
// reply becomes readable.
type ScriptedPort struct {
	err     error
	script  []Exchange
	pending []byte
	partial []byte
	written []byte
	opts    ecf.PortOptions
	pos     int
	mu      sync.Mutex
	closed  bool
}

// NewScriptedPort creates a port that plays back script
func NewScriptedPort(script ...Exchange) *ScriptedPort {
	return &ScriptedPort{script: script, opts: ecf.DefaultPortOptions()}
}

// Append adds exchanges to the end of the script
func (s *ScriptedPort) Append(script ...Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, script...)
}

// Write checks p against the script
func (s *ScriptedPort) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ecf.NewError(ecf.KindComm, "port closed")
	}
	s.written = append(s.written, p...)
	s.partial = append(s.partial, p...)
	for len(s.partial) > 0 {
		if s.pos >= len(s.script) {
			s.fail(fmt.Errorf("unexpected write %X after end of script", s.partial))
			return ecf.WrapError(ecf.KindComm, "scripted port", s.err)
		}
		want := s.script[s.pos].Expect
		n := min(len(s.partial), len(want))
		if !bytes.Equal(s.partial[:n], want[:n]) {
			s.fail(fmt.Errorf("exchange %d: wrote %X, want %X", s.pos, s.partial, want))
			return ecf.WrapError(ecf.KindComm, "scripted port", s.err)
		}
		if len(s.partial) < len(want) {
			return nil
		}
		s.pending = append(s.pending, s.script[s.pos].Reply...)
		s.partial = s.partial[len(want):]
		s.pos++
	}
	return nil
}

func (s *ScriptedPort) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Read returns up to n bytes of the current reply, or an empty read
func (s *ScriptedPort) Read(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.pending) {
		n = len(s.pending)
	}
	out := make([]byte, n)
	copy(out, s.pending[:n])
	s.pending = s.pending[n:]
	return out, nil
}

// ReadUntil returns the reply up to and including delim
func (s *ScriptedPort) ReadUntil(delim []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := bytes.Index(s.pending, delim)
	if i < 0 {
		return nil, ecf.NewError(ecf.KindComm, "timeout waiting for reply")
	}
	n := i + len(delim)
	out := make([]byte, n)
	copy(out, s.pending[:n])
	s.pending = s.pending[n:]
	return out, nil
}

// SetOptions stores opts
func (s *ScriptedPort) SetOptions(opts ecf.PortOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
	return nil
}

// AssertDTR is a no-op
func (*ScriptedPort) AssertDTR() error { return nil }

// WaitForDSR returns immediately
func (*ScriptedPort) WaitForDSR(time.Duration) error { return nil }

// Close marks the port closed
func (s *ScriptedPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Name returns "scripted"
func (*ScriptedPort) Name() string { return "scripted" }

// Err returns the first mismatch between writes and the script
func (s *ScriptedPort) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done reports whether every exchange was played and every reply consumed
func (s *ScriptedPort) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos == len(s.script) && len(s.partial) == 0 && len(s.pending) == 0
}

// Remaining returns the number of exchanges not yet played
func (s *ScriptedPort) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.script) - s.pos
}

// Written returns every byte written so far
func (s *ScriptedPort) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.written))
	copy(out, s.written)
	return out
}
