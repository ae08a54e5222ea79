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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCapabilityCheckText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		cap     Capability
		wantErr bool
	}{
		{name: "within", cap: TextCapability(1, 5), text: "abc"},
		{name: "too long", cap: TextCapability(1, 5), text: "abcdef", wantErr: true},
		{name: "runes not bytes", cap: TextCapability(1, 5), text: "ããããã"},
		{name: "too short", cap: TextCapability(2, 5), text: "a", wantErr: true},
		{name: "unbounded", cap: TextCapability(0, 0), text: "any length at all"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cap.CheckText("field", tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCapability)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCapabilityCheckValue(t *testing.T) {
	t.Parallel()

	d := decimal.RequireFromString
	tests := []struct {
		name    string
		value   decimal.Decimal
		cap     Capability
		wantErr bool
	}{
		{name: "fits", cap: ValueCapability(4, 2), value: d("1234.56")},
		{name: "too many digits", cap: ValueCapability(4, 2), value: d("12345"), wantErr: true},
		{name: "too many decimals", cap: ValueCapability(4, 2), value: d("1.234"), wantErr: true},
		{name: "trailing zeros ok", cap: ValueCapability(4, 2), value: d("1.2000")},
		{name: "integer only", cap: ValueCapability(3, 0), value: d("1.5"), wantErr: true},
		{name: "below range", cap: ValueCapability(4, 2).WithRange(d("1"), d("10")), value: d("0.5"), wantErr: true},
		{name: "above range", cap: ValueCapability(4, 2).WithRange(d("1"), d("10")), value: d("11"), wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cap.CheckValue("field", tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCapability)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCapabilitiesUndeclaredKeyIsUnconstrained(t *testing.T) {
	t.Parallel()

	caps := Capabilities{CapItemCode: TextCapability(1, 3)}
	assert.NoError(t, caps.CheckText(CapItemDescription, "whatever length"))
	assert.NoError(t, caps.CheckValue(CapItemPrice, decimal.NewFromInt(1e9)))
	assert.Error(t, caps.CheckText(CapItemCode, "1234"))
}
