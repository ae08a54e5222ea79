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

// Package format marshals values into the fixed-width fields used by
// fiscal printer commands and CAT-52 records.
//
// All functions are pure. A formatted field whose length does not match
// the requested width is a programming error and panics.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stoqdrivers/go-ecf/codec"
)

const (
	boolTrue  = "S"
	boolFalse = "N"
)

var ten = decimal.NewFromInt(10)

// maxForWidth returns 10^width - 1
func maxForWidth(width int) decimal.Decimal {
	return ten.Pow(decimal.NewFromInt(int64(width))).Sub(decimal.NewFromInt(1))
}

func mustWidth(s string, width int) string {
	if len(s) != width {
		panic(fmt.Sprintf("format: field %q has length %d, want %d", s, len(s), width))
	}
	return s
}

// Scaled shifts d by 10^decimals, truncates it to an integer and
// right-justifies it zero-padded to width. Negative values format as
// zero; over-range values saturate at 10^width - 1.
func Scaled(d decimal.Decimal, width, decimals int) string {
	v := d.Shift(int32(decimals)).Truncate(0)
	if v.IsNegative() {
		v = decimal.Zero
	}
	if limit := maxForWidth(width); v.GreaterThan(limit) {
		v = limit
	}
	s := v.String()
	return mustWidth(strings.Repeat("0", width-len(s))+s, width)
}

// Money formats a currency value in cents
func Money(d decimal.Decimal, width int) string {
	return Scaled(d, width, 2)
}

// Quantity formats a quantity with the given number of decimal places
func Quantity(d decimal.Decimal, width, decimals int) string {
	return Scaled(d, width, decimals)
}

// Number right-justifies a non-negative integer zero-padded to width,
// saturating at 10^width - 1.
func Number(n int64, width int) string {
	return Scaled(decimal.NewFromInt(n), width, 0)
}

// Text pads or truncates s to exactly width runes. Truncation drops
// runes from the right; padding is with spaces on the side opposite the
// justification.
func Text(s string, width int, leftJustify bool) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		r := []rune(s)
		return string(r[:width])
	}
	pad := strings.Repeat(" ", width-n)
	if leftJustify {
		return s + pad
	}
	return pad + s
}

// Field transcodes s to the charset and then pads or truncates the
// encoded bytes to width.
func Field(s string, width int, leftJustify bool, cs codec.Charset) ([]byte, error) {
	b, err := codec.Encode(s, cs)
	if err != nil {
		return nil, err
	}
	if len(b) > width {
		return b[:width], nil
	}
	out := make([]byte, 0, width)
	pad := []byte(strings.Repeat(" ", width-len(b)))
	if leftJustify {
		out = append(out, b...)
		return append(out, pad...), nil
	}
	out = append(out, pad...)
	return append(out, b...), nil
}

// Date formats a calendar date as YYYYMMDD
func Date(year, month, day int) string {
	return mustWidth(fmt.Sprintf("%04d%02d%02d", year, month, day), 8)
}

// DateOf formats t as YYYYMMDD
func DateOf(t time.Time) string {
	return Date(t.Year(), int(t.Month()), t.Day())
}

// ShortDate formats t as DDMMYY, the layout most printers accept
func ShortDate(t time.Time) string {
	return mustWidth(t.Format("020106"), 6)
}

// Time formats a wall-clock time as HHMMSS
func Time(hour, minute, second int) string {
	return mustWidth(fmt.Sprintf("%02d%02d%02d", hour, minute, second), 6)
}

// TimeOf formats t as HHMMSS
func TimeOf(t time.Time) string {
	return Time(t.Hour(), t.Minute(), t.Second())
}

// Bool formats b as S or N
func Bool(b bool) string {
	if b {
		return boolTrue
	}
	return boolFalse
}

// ParseBool reads an S/N flag
func ParseBool(s string) (bool, error) {
	switch s {
	case boolTrue:
		return true, nil
	case boolFalse:
		return false, nil
	default:
		return false, fmt.Errorf("invalid flag %q", s)
	}
}

// ParseScaled reads a zero-padded scaled integer back into a decimal
func ParseScaled(s string, decimals int) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v.Shift(-int32(decimals)), nil
}

// ParseMoney reads a value formatted by Money
func ParseMoney(s string) (decimal.Decimal, error) {
	return ParseScaled(s, 2)
}

// ParseNumber reads a zero-padded integer
func ParseNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return n, nil
}

// ParseDate reads YYYYMMDD
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseTime reads HHMMSS
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation("150405", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t, nil
}

// DecimalPlaces returns the number of significant fractional digits of d
func DecimalPlaces(d decimal.Decimal) int {
	if exp := d.Exponent(); exp < 0 {
		s := d.String()
		if i := strings.IndexByte(s, '.'); i >= 0 {
			return len(strings.TrimRight(s[i+1:], "0"))
		}
	}
	return 0
}

// IntegerDigits returns the number of digits left of the decimal point
func IntegerDigits(d decimal.Decimal) int {
	s := d.Abs().Truncate(0).String()
	if s == "0" {
		return 0
	}
	return len(s)
}
