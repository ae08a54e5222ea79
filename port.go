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
	"sync"
	"time"
)

// Port is a byte-level link to a printer. Ports are single threaded: the
// caller serializes all requests.
type Port interface {
	// Read returns at most n bytes. On read timeout it returns a short,
	// possibly empty, read and no error.
	Read(n int) ([]byte, error)

	// ReadUntil reads until delim has been received and returns everything
	// read including delim. It fails with a CommError on timeout.
	ReadUntil(delim []byte) ([]byte, error)

	// Write sends p. A write timeout fails with a CommError.
	Write(p []byte) error

	// SetOptions reconfigures line settings and timeouts
	SetOptions(opts PortOptions) error

	// AssertDTR raises the DTR line
	AssertDTR() error

	// WaitForDSR blocks until the DSR line is up or timeout elapses
	WaitForDSR(timeout time.Duration) error

	// Close releases the port
	Close() error

	// Name returns the device path or a descriptive name
	Name() string
}

// Parity is the serial parity mode
type Parity string

const (
	ParityNone Parity = "none"
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// StopBits is the number of stop bits
type StopBits int

const (
	OneStopBit  StopBits = 1
	TwoStopBits StopBits = 2
)

// PortOptions holds line settings and timeouts
type PortOptions struct {
	Parity       Parity
	BaudRate     int
	DataBits     int
	StopBits     StopBits
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultPortOptions returns 9600 8N1 with a 3s read and 5s write timeout
func DefaultPortOptions() PortOptions {
	return PortOptions{
		BaudRate:     9600,
		DataBits:     8,
		Parity:       ParityNone,
		StopBits:     OneStopBit,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Validate checks the line settings
func (o PortOptions) Validate() error {
	if o.BaudRate <= 0 {
		return Errorf(KindConfig, "invalid baud rate %d", o.BaudRate)
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return Errorf(KindConfig, "invalid data bits %d", o.DataBits)
	}
	switch o.Parity {
	case ParityNone, ParityOdd, ParityEven:
	default:
		return Errorf(KindConfig, "invalid parity %q", o.Parity)
	}
	if o.StopBits != OneStopBit && o.StopBits != TwoStopBits {
		return Errorf(KindConfig, "invalid stop bits %d", o.StopBits)
	}
	if o.ReadTimeout < 0 || o.WriteTimeout < 0 {
		return NewError(KindConfig, "negative timeout")
	}
	return nil
}

// VirtualPort always reports DSR ready, accepts and records writes and
// returns empty reads. It backs the null driver and tests.
type VirtualPort struct {
	opts    PortOptions
	written []byte
	mu      sync.Mutex
	closed  bool
}

// NewVirtualPort creates a virtual port with default options
func NewVirtualPort() *VirtualPort {
	return &VirtualPort{opts: DefaultPortOptions()}
}

// Read returns an empty read
func (*VirtualPort) Read(int) ([]byte, error) {
	return []byte{}, nil
}

// ReadUntil never sees the delimiter and fails like a timed out port
func (*VirtualPort) ReadUntil([]byte) ([]byte, error) {
	return nil, NewError(KindComm, "timeout waiting for reply on virtual port")
}

// Write records p
func (v *VirtualPort) Write(p []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return NewError(KindComm, "port closed")
	}
	v.written = append(v.written, p...)
	return nil
}

// Written returns a copy of every byte written so far
func (v *VirtualPort) Written() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]byte, len(v.written))
	copy(out, v.written)
	return out
}

// SetOptions validates and stores opts
func (v *VirtualPort) SetOptions(opts PortOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	v.opts = opts
	v.mu.Unlock()
	return nil
}

// Options returns the current options
func (v *VirtualPort) Options() PortOptions {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opts
}

// AssertDTR is a no-op
func (*VirtualPort) AssertDTR() error { return nil }

// WaitForDSR returns immediately
func (*VirtualPort) WaitForDSR(time.Duration) error { return nil }

// Close marks the port closed
func (v *VirtualPort) Close() error {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	return nil
}

// Name returns "virtual"
func (*VirtualPort) Name() string { return "virtual" }
