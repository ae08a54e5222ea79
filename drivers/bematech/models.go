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

package bematech

import (
	"strings"

	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/internal/frame"
	"github.com/stoqdrivers/go-ecf/internal/transport"
)

type model struct {
	name          string
	docWidth      int
	nameWidth     int
	addrWidth     int
	descMax       int
	proto         byte
	extended      bool
	hasCCF        bool
	hasCancelLast bool
	cheque        bool
}

var (
	mp25 = model{
		name:          "MP25",
		proto:         frame.ProtoExtended,
		extended:      true,
		hasCCF:        true,
		hasCancelLast: true,
		docWidth:      28,
		nameWidth:     30,
		addrWidth:     80,
		descMax:       200,
	}
	mp20 = model{
		name:     "MP20",
		proto:    frame.ProtoStandard,
		docWidth: 29,
		descMax:  29,
	}
	mp2100 = func() model {
		m := mp25
		m.name = "MP2100"
		m.cheque = true
		return m
	}()
)

func trimField(s string) string {
	return strings.TrimRight(s, " \x00")
}

func readUntilComplete(p ecf.Port, complete func([]byte) bool) ([]byte, error) {
	return transport.ReadUntilComplete(p, 16, complete, transport.DefaultRetryConfig("bematech status"))
}
