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
	"io"

	"github.com/spf13/viper"
	ecf "github.com/stoqdrivers/go-ecf"
)

type env struct {
	out     io.Writer
	cfg     *viper.Viper
	factory ecf.PortFactory
	p       *ecf.FiscalPrinter
}

// open opens path with the configured baud rate
func (e *env) open(path string) (ecf.Port, error) {
	opts := ecf.DefaultPortOptions()
	opts.BaudRate = e.cfg.GetInt("baud")
	return e.factory(path, opts)
}

// printer connects to the configured printer on first use
func (e *env) printer() (*ecf.FiscalPrinter, error) {
	if e.p != nil {
		return e.p, nil
	}
	withBaud := func(path string, _ ecf.PortOptions) (ecf.Port, error) { return e.open(path) }
	p, err := ecf.Connect(e.cfg.GetString("brand"), e.cfg.GetString("model"), e.cfg.GetString("port"), withBaud)
	if err != nil {
		return nil, err
	}
	e.p = p
	return p, nil
}

func (e *env) close() {
	if e.p != nil {
		_ = e.p.Shutdown()
	}
}
