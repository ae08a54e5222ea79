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

// Package codec transcodes coupon text to and from the character sets
// spoken by fiscal printers.
//
// Every charset is a pair of lookup tables; Encode never fails on text:
// a code point absent from the target table is replaced by its nearest
// ASCII equivalent (see Fallback).
package codec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Charset names a coupon printer character set
type Charset string

const (
	// ASCII is plain 7-bit ASCII
	ASCII Charset = "ascii"
	// CP850 is the DOS Latin-1 code page
	CP850 Charset = "cp850"
	// ABICOMP is the Brazilian ABICOMP 8-bit set
	ABICOMP Charset = "abicomp"
	// Latscii is latin-1 with lossy accent stripping for anything outside it
	Latscii Charset = "latscii"
	// Latin1 is ISO 8859-1, used by the CAT-52 export file
	Latin1 Charset = "latin-1"
)

// replacement is written for code points that have no ASCII approximation
const replacement = '?'

// table is a bidirectional single-byte mapping
type table interface {
	encodeRune(r rune) (byte, bool)
	decodeByte(b byte) rune
}

type asciiTable struct{}

func (asciiTable) encodeRune(r rune) (byte, bool) {
	if r < utf8.RuneSelf {
		return byte(r), true
	}
	return 0, false
}

func (asciiTable) decodeByte(b byte) rune {
	if b < utf8.RuneSelf {
		return rune(b)
	}
	return replacement
}

type charmapTable struct {
	cm *charmap.Charmap
}

func (t charmapTable) encodeRune(r rune) (byte, bool) {
	return t.cm.EncodeRune(r)
}

func (t charmapTable) decodeByte(b byte) rune {
	return t.cm.DecodeByte(b)
}

var tables = map[Charset]table{
	ASCII:   asciiTable{},
	CP850:   charmapTable{cm: charmap.CodePage850},
	ABICOMP: abicompTable{},
	Latscii: charmapTable{cm: charmap.ISO8859_1},
	Latin1:  charmapTable{cm: charmap.ISO8859_1},
}

// Supported reports whether cs is a known charset
func Supported(cs Charset) bool {
	_, ok := tables[cs]
	return ok
}

// Parse resolves a charset name, accepting a few common aliases
func Parse(name string) (Charset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ascii", "us-ascii":
		return ASCII, nil
	case "cp850", "ibm850", "850":
		return CP850, nil
	case "abicomp":
		return ABICOMP, nil
	case "latscii":
		return Latscii, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return Latin1, nil
	default:
		return "", fmt.Errorf("unknown charset: %q", name)
	}
}

func lookup(cs Charset) (table, error) {
	t, ok := tables[cs]
	if !ok {
		return nil, fmt.Errorf("unknown charset: %q", cs)
	}
	return t, nil
}

// Encode converts s to bytes in the given charset. Characters missing from
// the charset are replaced by their nearest ASCII equivalent.
func Encode(s string, cs Charset) ([]byte, error) {
	t, err := lookup(cs)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := t.encodeRune(r); ok {
			out = append(out, b)
			continue
		}
		for _, fr := range Fallback(r) {
			if b, ok := t.encodeRune(fr); ok {
				out = append(out, b)
			} else {
				out = append(out, replacement)
			}
		}
	}
	return out, nil
}

// Decode converts bytes in the given charset back to a string
func Decode(b []byte, cs Charset) (string, error) {
	t, err := lookup(cs)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(t.decodeByte(c))
	}
	return sb.String(), nil
}

// Representable reports whether every rune of s exists in the charset
func Representable(s string, cs Charset) bool {
	t, err := lookup(cs)
	if err != nil {
		return false
	}
	for _, r := range s {
		if _, ok := t.encodeRune(r); !ok {
			return false
		}
	}
	return true
}
