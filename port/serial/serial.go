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

// Package serial implements ecf.Port over a local serial device.
package serial

import (
	"bytes"
	"errors"
	"sync"
	"time"

	ecf "github.com/stoqdrivers/go-ecf"
	"go.bug.st/serial"
)

const dsrPollInterval = 10 * time.Millisecond

// Port is a serial device holding an exclusive lock on its node. Wire
// tracing is left to the protocol layer.
type Port struct {
	port serial.Port
	lock *deviceLock
	name string
	opts ecf.PortOptions
	mu   sync.Mutex
	// wmu is held by the goroutine doing the device write until it
	// returns, including after the caller gave up on a timeout
	wmu sync.Mutex
}

// Open locks and opens path with opts
func Open(path string, opts ecf.PortOptions) (*Port, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	lock, err := lockDevice(path)
	if err != nil {
		return nil, err
	}
	p, err := serial.Open(path, toMode(opts))
	if err != nil {
		_ = lock.release()
		return nil, ecf.WrapError(ecf.KindConfig, "open "+path, err)
	}
	if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
		_ = p.Close()
		_ = lock.release()
		return nil, ecf.WrapError(ecf.KindConfig, "set read timeout", err)
	}
	return &Port{port: p, lock: lock, name: path, opts: opts}, nil
}

// Factory opens a Port for ecf.Connect
func Factory(path string, opts ecf.PortOptions) (ecf.Port, error) {
	return Open(path, opts)
}

func toMode(opts ecf.PortOptions) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch opts.Parity {
	case ecf.ParityOdd:
		mode.Parity = serial.OddParity
	case ecf.ParityEven:
		mode.Parity = serial.EvenParity
	}
	if opts.StopBits == ecf.TwoStopBits {
		mode.StopBits = serial.TwoStopBits
	}
	return mode
}

// Name returns the device path
func (p *Port) Name() string { return p.name }

// Read returns up to n bytes, stopping early on read timeout
func (p *Port) Read(n int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := p.port.Read(buf[got:])
		if err != nil {
			return buf[:got], ecf.WrapError(ecf.KindComm, "read "+p.name, err)
		}
		if m == 0 {
			break
		}
		got += m
	}
	return buf[:got], nil
}

// ReadUntil reads until delim arrives
func (p *Port) ReadUntil(delim []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []byte
	one := make([]byte, 1)
	for !bytes.HasSuffix(out, delim) {
		m, err := p.port.Read(one)
		if err != nil {
			return out, ecf.WrapError(ecf.KindComm, "read "+p.name, err)
		}
		if m == 0 {
			return out, ecf.Errorf(ecf.KindComm, "timeout waiting for %q on %s", delim, p.name)
		}
		out = append(out, one[0])
	}
	return out, nil
}

// Write sends b, failing if the device does not accept it within the
// write timeout. A write that timed out keeps the port busy until the
// device returns; further writes fail instead of interleaving with it.
func (p *Port) Write(b []byte) error {
	p.mu.Lock()
	timeout := p.opts.WriteTimeout
	p.mu.Unlock()

	if !p.wmu.TryLock() {
		return ecf.Errorf(ecf.KindComm, "previous write on %s has not completed", p.name)
	}
	done := make(chan error, 1)
	go func() {
		_, err := p.port.Write(b)
		if err == nil {
			err = p.port.Drain()
		}
		p.wmu.Unlock()
		done <- err
	}()
	if timeout <= 0 {
		return wrapWrite(p.name, <-done)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return wrapWrite(p.name, err)
	case <-timer.C:
		return ecf.Errorf(ecf.KindComm, "write timeout on %s", p.name)
	}
}

func wrapWrite(name string, err error) error {
	if err == nil {
		return nil
	}
	return ecf.WrapError(ecf.KindComm, "write "+name, err)
}

// SetOptions applies new line settings and timeouts
func (p *Port) SetOptions(opts ecf.PortOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.port.SetMode(toMode(opts)); err != nil {
		return ecf.WrapError(ecf.KindConfig, "set mode", err)
	}
	if err := p.port.SetReadTimeout(opts.ReadTimeout); err != nil {
		return ecf.WrapError(ecf.KindConfig, "set read timeout", err)
	}
	p.opts = opts
	return nil
}

// AssertDTR raises DTR
func (p *Port) AssertDTR() error {
	if err := p.port.SetDTR(true); err != nil {
		return ecf.WrapError(ecf.KindComm, "set DTR", err)
	}
	return nil
}

// WaitForDSR polls the modem lines until DSR is up
func (p *Port) WaitForDSR(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		bits, err := p.port.GetModemStatusBits()
		if err != nil {
			return ecf.WrapError(ecf.KindComm, "modem status", err)
		}
		if bits.DSR {
			return nil
		}
		if time.Now().After(deadline) {
			return ecf.Errorf(ecf.KindComm, "DSR not raised on %s", p.name)
		}
		time.Sleep(dsrPollInterval)
	}
}

// Close releases the device and its lock
func (p *Port) Close() error {
	return errors.Join(p.port.Close(), p.lock.release())
}
