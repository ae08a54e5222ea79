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

// StatusBit maps one bit of a device status byte to an error kind
type StatusBit struct {
	Msg  string
	Mask uint16
	Kind ErrorKind
}

// StatusBits is a bitmask status table, e.g. the st1 or st2 byte
type StatusBits []StatusBit

// StatusCode maps an integer device code to an error kind
type StatusCode struct {
	Msg  string
	Kind ErrorKind
}

// StatusCodes is an integer-keyed status table, e.g. st3 or a vendor
// error number
type StatusCodes map[int]StatusCode

// WarnFunc receives soft conditions that are logged rather than raised
type WarnFunc func(e *Error)

func (t StatusBits) lookup(mask uint16) (StatusBit, bool) {
	for _, b := range t {
		if b.Mask == mask {
			return b, true
		}
	}
	return StatusBit{}, false
}

// Decode returns the error for the highest set bit of v that has an entry
// in the table. AlmostOutOfPaper entries are passed to warn and skipped.
// Bits without an entry are ignored. A nil return means no error bit is set.
func (t StatusBits) Decode(v uint16, warn WarnFunc) *Error {
	for bit := 15; bit >= 0; bit-- {
		mask := uint16(1) << bit
		if v&mask == 0 {
			continue
		}
		b, ok := t.lookup(mask)
		if !ok {
			continue
		}
		e := NewCodeError(b.Kind, int(mask), b.Msg)
		if b.Kind == KindAlmostOutOfPaper {
			if warn != nil {
				warn(e)
			}
			continue
		}
		return e
	}
	return nil
}

// Lookup returns the error for a device code, or an unhandled-error
// DriverError when the table has no entry
func (t StatusCodes) Lookup(code int) *Error {
	c, ok := t[code]
	if !ok {
		return UnhandledError(code)
	}
	return NewCodeError(c.Kind, code, c.Msg)
}

// Has reports whether code has an entry
func (t StatusCodes) Has(code int) bool {
	_, ok := t[code]
	return ok
}
