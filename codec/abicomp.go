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

// abicompHigh maps bytes 0xA1..0xDF of the ABICOMP set
var abicompHigh = [...]rune{
	'À', 'Á', 'Â', 'Ã', 'Ä', 'Ç', 'È', 'É', 'Ê', 'Ë', 'Ì', 'Í', 'Î', 'Ï', 'Ñ', // A1-AF
	'Ò', 'Ó', 'Ô', 'Õ', 'Ö', 'Œ', 'Ù', 'Ú', 'Û', 'Ü', 'Ÿ', '¨', '£', '¦', '§', '°', // B0-BF
	'¡', 'à', 'á', 'â', 'ã', 'ä', 'ç', 'è', 'é', 'ê', 'ë', 'ì', 'í', 'î', 'ï', 'ñ', // C0-CF
	'ò', 'ó', 'ô', 'õ', 'ö', 'œ', 'ù', 'ú', 'û', 'ü', 'ÿ', 'ß', 'ª', 'º', '¿', '±', // D0-DF
}

const (
	abicompFirst = 0xA1
	abicompNBSP  = 0xA0
)

var abicompReverse = func() map[rune]byte {
	m := make(map[rune]byte, len(abicompHigh)+1)
	for i, r := range abicompHigh {
		m[r] = byte(abicompFirst + i)
	}
	m['\u00a0'] = abicompNBSP
	return m
}()

type abicompTable struct{}

func (abicompTable) encodeRune(r rune) (byte, bool) {
	if r < 0x80 {
		return byte(r), true
	}
	b, ok := abicompReverse[r]
	return b, ok
}

func (abicompTable) decodeByte(b byte) rune {
	switch {
	case b < 0x80:
		return rune(b)
	case b == abicompNBSP:
		return '\u00a0'
	case b >= abicompFirst && int(b-abicompFirst) < len(abicompHigh):
		return abicompHigh[b-abicompFirst]
	default:
		return replacement
	}
}
