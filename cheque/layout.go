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

package cheque

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
)

// Cheque is the data printed on one cheque
type Cheque struct {
	Date       time.Time
	Value      decimal.Decimal
	Thirdparty string
	City       string
}

// Printer is implemented by devices that print cheques, including
// fiscal printers with a cheque station
type Printer interface {
	PrintCheque(ctx context.Context, bank *BankConfiguration, c Cheque) error
}

var months = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MonthName returns the Portuguese month name printed on cheques
func MonthName(m time.Month) string {
	return months[m-1]
}

// FormatValue renders a money value as 1.234,56
func FormatValue(d decimal.Decimal) string {
	s := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "," + frac
}

// Field is a text placed at a position
type Field struct {
	Text string
	Position
}

// splitLegal wraps words over two lines of width runes, filling the
// unused space of each line with asterisks
func splitLegal(words string, width int) (string, string, error) {
	var lines [2][]string
	n := 0
	line := 0
	for _, w := range strings.Fields(words) {
		wl := len([]rune(w))
		sep := 0
		if n > 0 {
			sep = 1
		}
		if n+sep+wl > width {
			line++
			n, sep = 0, 0
			if line > 1 || wl > width {
				return "", "", ecf.Errorf(ecf.KindInvalidValue, "legal amount does not fit in two lines of %d", width)
			}
		}
		lines[line] = append(lines[line], w)
		n += sep + wl
	}
	fill := func(ws []string) string {
		s := strings.Join(ws, " ")
		if pad := width - len([]rune(s)); pad > 0 {
			s += " " + strings.Repeat("*", pad-1)
		}
		return s
	}
	return fill(lines[0]), fill(lines[1]), nil
}

// Layout places every field of c on the bank's form
func (b *BankConfiguration) Layout(c Cheque) ([]Field, error) {
	if !c.Value.IsPositive() {
		return nil, ecf.NewError(ecf.KindInvalidValue, "cheque value must be positive")
	}
	words, err := AmountInWords(c.Value)
	if err != nil {
		return nil, err
	}
	first, second, err := splitLegal(words, b.LegalWidth)
	if err != nil {
		return nil, err
	}
	fields := []Field{
		{Position: b.Value, Text: "#" + FormatValue(c.Value) + "#"},
		{Position: b.LegalAmount, Text: first},
		{Position: b.LegalAmount2, Text: second},
		{Position: b.Thirdparty, Text: c.Thirdparty},
		{Position: b.City, Text: c.City},
		{Position: b.Day, Text: c.Date.Format("02")},
		{Position: b.Month, Text: MonthName(c.Date.Month())},
		{Position: b.Year, Text: c.Date.Format("2006")},
	}
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Line != fields[j].Line {
			return fields[i].Line < fields[j].Line
		}
		return fields[i].Column < fields[j].Column
	})
	return fields, nil
}

// Render turns fields sorted by position into page lines. A field that
// would overlap the previous one on the same line is moved right.
func Render(fields []Field) []string {
	var (
		lines []string
		cur   []rune
		line  = 1
	)
	for _, f := range fields {
		for line < f.Line {
			lines = append(lines, string(cur))
			cur = cur[:0]
			line++
		}
		for len(cur) < f.Column-1 {
			cur = append(cur, ' ')
		}
		if len(cur) > 0 && len(cur) >= f.Column-1 && cur[len(cur)-1] != ' ' {
			cur = append(cur, ' ')
		}
		cur = append(cur, []rune(f.Text)...)
	}
	return append(lines, string(cur))
}
