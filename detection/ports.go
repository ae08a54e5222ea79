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

// Package detection lists serial ports that may have a fiscal printer
// attached.
package detection

import (
	"sort"

	ecf "github.com/stoqdrivers/go-ecf"
	"go.bug.st/serial/enumerator"
)

// Options filter the port list
type Options struct {
	Blocklist   []string
	IgnorePaths []string
	// USBOnly drops ports without USB metadata
	USBOnly bool
}

// DefaultOptions uses DefaultBlocklist and keeps native serial ports
func DefaultOptions() Options {
	return Options{Blocklist: DefaultBlocklist()}
}

// PortInfo describes one candidate port
type PortInfo struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
	USB          bool
}

var detailedPorts = enumerator.GetDetailedPortsList

// ListPorts enumerates serial ports, dropping blocked and ignored ones.
// The result is sorted by path.
func ListPorts(opts Options) ([]PortInfo, error) {
	details, err := detailedPorts()
	if err != nil {
		return nil, ecf.WrapError(ecf.KindComm, "enumerate serial ports", err)
	}
	return filter(details, opts), nil
}

func filter(details []*enumerator.PortDetails, opts Options) []PortInfo {
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil || IsPathIgnored(d.Name, opts.IgnorePaths) {
			continue
		}
		info := PortInfo{Path: d.Name, USB: d.IsUSB}
		if d.IsUSB {
			info.VIDPID = ParseVIDPID(d.VID + ":" + d.PID)
			info.Product = d.Product
			info.SerialNumber = d.SerialNumber
		}
		if opts.USBOnly && !info.USB {
			continue
		}
		if IsBlocked(info.VIDPID, opts.Blocklist) {
			ecf.Debugf("skipping blocked device %s (%s)", info.Path, info.VIDPID)
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
