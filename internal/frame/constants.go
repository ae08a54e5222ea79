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

// Package frame provides control bytes, checksums and packet builders shared
// by the fiscal printer wire protocols.
package frame

// Control bytes used by the vendor protocols
const (
	STX = 0x02 // Start of text
	ETX = 0x03 // End of text
	ACK = 0x06 // Positive acknowledge
	NAK = 0x15 // Negative acknowledge
	ESC = 0x1B // Escape, command prefix
	FS  = 0x1C // File separator
	CR  = 0x0D // Carriage return
	LF  = 0x0A // Line feed
)

// Bematech protocol markers
const (
	// ProtoStandard selects the standard Bematech protocol (st1, st2 reply tail)
	ProtoStandard = ESC
	// ProtoExtended selects the extended Bematech protocol (st1, st2, st3 reply tail)
	ProtoExtended = FS
)

// Frame size limits
const (
	MaxBematechPayload = 0xFFFF - 2 // Length field includes the checksum
	BematechHeaderLen  = 3          // STX + LE16 length
	BematechTrailerLen = 2          // LE16 checksum
)
