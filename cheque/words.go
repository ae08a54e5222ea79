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
	"strings"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
)

var (
	units = []string{
		"", "um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove",
		"dez", "onze", "doze", "treze", "quatorze", "quinze", "dezesseis", "dezessete", "dezoito", "dezenove",
	}
	tens     = []string{"", "", "vinte", "trinta", "quarenta", "cinquenta", "sessenta", "setenta", "oitenta", "noventa"}
	hundreds = []string{"", "cento", "duzentos", "trezentos", "quatrocentos", "quinhentos", "seiscentos", "setecentos", "oitocentos", "novecentos"}

	scales = []struct {
		singular string
		plural   string
	}{
		{"", ""},
		{"mil", "mil"},
		{"milhão", "milhões"},
		{"bilhão", "bilhões"},
	}
)

// maxAmount is the largest value AmountInWords spells out
var maxAmount = decimal.New(1, 12)

// hundredsInWords spells 1..999
func hundredsInWords(n int) string {
	if n == 100 {
		return "cem"
	}
	var parts []string
	if h := n / 100; h > 0 {
		parts = append(parts, hundreds[h])
	}
	rest := n % 100
	switch {
	case rest == 0:
	case rest < 20:
		parts = append(parts, units[rest])
	default:
		parts = append(parts, tens[rest/10])
		if rest%10 > 0 {
			parts = append(parts, units[rest%10])
		}
	}
	return strings.Join(parts, " e ")
}

// integerInWords spells a non-negative integer below one trillion
func integerInWords(n int64) string {
	if n == 0 {
		return "zero"
	}
	var groups []int
	for n > 0 {
		groups = append(groups, int(n%1000))
		n /= 1000
	}

	var (
		parts []string
		vals  []int
	)
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			continue
		}
		var s string
		switch {
		case i == 1 && g == 1:
			s = "mil"
		case i == 0:
			s = hundredsInWords(g)
		case g == 1:
			s = "um " + scales[i].singular
		default:
			s = hundredsInWords(g) + " " + scales[i].plural
		}
		parts = append(parts, s)
		vals = append(vals, g)
	}

	// the last group joins with "e" when it is below one hundred or
	// a round hundred
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		g := vals[i]
		if i == len(parts)-1 && (g < 100 || g%100 == 0) {
			out += " e " + parts[i]
		} else {
			out += " " + parts[i]
		}
	}
	return out
}

// AmountInWords spells a money value in Brazilian Portuguese, the way the
// legal amount is written on a cheque
func AmountInWords(value decimal.Decimal) (string, error) {
	if value.IsNegative() {
		return "", ecf.NewError(ecf.KindInvalidValue, "negative amount")
	}
	if value.GreaterThanOrEqual(maxAmount) {
		return "", ecf.Errorf(ecf.KindInvalidValue, "amount %s is too large", value.StringFixed(2))
	}
	value = value.Round(2)
	reais := value.IntPart()
	cents := value.Sub(decimal.NewFromInt(reais)).Shift(2).IntPart()

	var parts []string
	if reais > 0 {
		s := integerInWords(reais)
		switch {
		case reais == 1:
			s += " real"
		case reais%1000000 == 0:
			s += " de reais"
		default:
			s += " reais"
		}
		parts = append(parts, s)
	}
	if cents > 0 {
		s := integerInWords(cents)
		if cents == 1 {
			s += " centavo"
		} else {
			s += " centavos"
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "zero reais", nil
	}
	return strings.Join(parts, " e "), nil
}
