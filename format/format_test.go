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

package format

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  string
		width int
	}{
		{name: "ten reais", value: "10.00", width: 14, want: "00000000001000"},
		{name: "truncates fractions of a cent", value: "1.239", width: 6, want: "000123"},
		{name: "zero", value: "0", width: 4, want: "0000"},
		{name: "saturates", value: "1000.00", width: 4, want: "9999"},
		{name: "negative clamps to zero", value: "-5", width: 3, want: "000"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Money(decimal.RequireFromString(tt.value), tt.width)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, tt.width)
		})
	}
}

func TestMoneyIsPositional(t *testing.T) {
	t.Parallel()

	for _, width := range []int{1, 4, 9, 14} {
		for _, v := range []int64{0, 1, 99, 12345, 999999999} {
			got := Money(decimal.New(v, -2), width)
			require.Len(t, got, width)
			want := Number(v, width)
			assert.Equal(t, want, got, "v=%d width=%d", v, width)
		}
	}
}

func TestQuantity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0001500", Quantity(decimal.RequireFromString("1.5"), 7, 3))
	assert.Equal(t, "0002", Quantity(decimal.RequireFromString("2"), 4, 0))
}

func TestText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc  ", Text("abc", 5, true))
	assert.Equal(t, "  abc", Text("abc", 5, false))
	assert.Equal(t, "Moni", Text("Monitor", 4, true))
	assert.Equal(t, "ção", Text("ção", 3, true))
}

func TestField(t *testing.T) {
	t.Parallel()

	b, err := Field("Pão", 5, true, codec.CP850)
	require.NoError(t, err)
	assert.Equal(t, []byte{'P', 0xC6, 'o', ' ', ' '}, b)

	b, err = Field("Monitor LG 775N", 7, true, codec.ASCII)
	require.NoError(t, err)
	assert.Equal(t, []byte("Monitor"), b)

	b, err = Field("12", 4, false, codec.ASCII)
	require.NoError(t, err)
	assert.Equal(t, []byte("  12"), b)
}

func TestDateTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2007, time.March, 9, 8, 5, 7, 0, time.Local)
	assert.Equal(t, "20070309", Date(2007, 3, 9))
	assert.Equal(t, "20070309", DateOf(ts))
	assert.Equal(t, "090307", ShortDate(ts))
	assert.Equal(t, "080507", TimeOf(ts))
	assert.Equal(t, "235959", Time(23, 59, 59))

	d, err := ParseDate("20070309")
	require.NoError(t, err)
	assert.Equal(t, 9, d.Day())

	_, err = ParseTime("256000")
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "S", Bool(true))
	assert.Equal(t, "N", Bool(false))

	v, err := ParseBool("S")
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ParseBool("Y")
	assert.Error(t, err)
}

func TestBCDRoundTrip(t *testing.T) {
	t.Parallel()

	for width := 1; width <= 4; width++ {
		limit := uint64(1)
		for i := 0; i < 2*width; i++ {
			limit *= 10
		}
		for _, n := range []uint64{0, 1, 9, 10, 42, limit / 3, limit - 1} {
			if n >= limit {
				continue
			}
			got, err := BCDToInt(IntToBCD(n, width))
			require.NoError(t, err)
			assert.Equal(t, n, got, "n=%d width=%d", n, width)
		}
	}
}

func TestBCDToInt(t *testing.T) {
	t.Parallel()

	v, err := BCDToInt([]byte{0x00, 0x12, 0x34})
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), v)

	_, err = BCDToInt([]byte{0x1A})
	assert.Error(t, err)

	assert.Equal(t, []byte{0x01, 0x23}, IntToBCD(123, 2))
	assert.Panics(t, func() { IntToBCD(100, 1) })
}

func TestParseScaled(t *testing.T) {
	t.Parallel()

	v, err := ParseMoney("00000000001000")
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromInt(10)))

	v, err = ParseScaled("   ", 2)
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = ParseMoney("12a")
	assert.Error(t, err)

	n, err := ParseNumber("000042")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestDigits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, DecimalPlaces(decimal.RequireFromString("1.25")))
	assert.Equal(t, 1, DecimalPlaces(decimal.RequireFromString("1.50")))
	assert.Equal(t, 0, DecimalPlaces(decimal.RequireFromString("100")))
	assert.Equal(t, 3, IntegerDigits(decimal.RequireFromString("123.45")))
	assert.Equal(t, 0, IntegerDigits(decimal.RequireFromString("0.5")))
	assert.Equal(t, strings.Repeat("9", 3), Number(5000, 3))
}
