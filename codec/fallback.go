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

package codec

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// specialFallbacks covers letters and symbols that do not decompose to ASCII
var specialFallbacks = map[rune]string{
	'ß':      "ss",
	'Œ':      "OE",
	'œ':      "oe",
	'Æ':      "AE",
	'æ':      "ae",
	'Ø':      "O",
	'ø':      "o",
	'Ð':      "D",
	'ð':      "d",
	'Þ':      "Th",
	'þ':      "th",
	'ª':      "a",
	'º':      "o",
	'°':      "o",
	'¡':      "!",
	'¿':      "?",
	'£':      "L",
	'€':      "E",
	'§':      "S",
	'¦':      "|",
	'±':      "+",
	'¨':      "\"",
	'«':      "<<",
	'»':      ">>",
	'‘':      "'",
	'’':      "'",
	'“':      "\"",
	'”':      "\"",
	'–':      "-",
	'—':      "-",
	'…':      "...",
	'\u00a0': " ",
}

// Fallback returns the nearest ASCII equivalent of r. Accents are stripped
// through canonical decomposition; anything left over maps to "?".
func Fallback(r rune) string {
	if r < utf8.RuneSelf {
		return string(r)
	}
	if s, ok := specialFallbacks[r]; ok {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, string(r))
	if err == nil && stripped != "" {
		ascii := true
		for _, c := range stripped {
			if c >= utf8.RuneSelf {
				ascii = false
				break
			}
		}
		if ascii {
			return stripped
		}
	}
	return string(replacement)
}

// StripAccents applies Fallback to every non-ASCII rune of s
func StripAccents(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, Fallback(r)...)
	}
	return string(out)
}
