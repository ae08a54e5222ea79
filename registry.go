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
	"sort"
	"strings"
	"sync"
)

// Constructor builds a driver over an open port
type Constructor func(port Port) (Driver, error)

type registryKey struct {
	brand string
	model string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[registryKey]Constructor)
)

func key(brand, model string) registryKey {
	return registryKey{brand: strings.ToLower(brand), model: strings.ToLower(model)}
}

// Register makes a driver constructor available by brand and model. It is
// called from the init function of each driver package and panics on a
// duplicate registration.
func Register(brand, model string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	k := key(brand, model)
	if _, dup := registry[k]; dup {
		panic("ecf: driver registered twice: " + brand + " " + model)
	}
	registry[k] = ctor
}

// Lookup returns the constructor for brand and model, or a CriticalError
func Lookup(brand, model string) (Constructor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[key(brand, model)]
	if !ok {
		return nil, Errorf(KindCritical, "unknown printer %s %s", brand, model)
	}
	return ctor, nil
}

// Models lists every registered brand and model, sorted
func Models() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Info, 0, len(registry))
	for k := range registry {
		out = append(out, Info{Brand: k.brand, Model: k.model})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Brand != out[j].Brand {
			return out[i].Brand < out[j].Brand
		}
		return out[i].Model < out[j].Model
	})
	return out
}
