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

package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrPayloadTooLarge is returned when a payload does not fit a length-prefixed frame
var ErrPayloadTooLarge = errors.New("payload too large for frame")

// Sum16 returns the sum of all bytes modulo 2^16
func Sum16(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// Sum8 returns the sum of all bytes modulo 2^8
func Sum8(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// XOR returns the exclusive-or of all bytes
func XOR(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}

// BuildBematech assembles STX | len(LE16) | proto | cmd | args | sum16(LE16).
// The length counts the payload plus the two checksum bytes.
func BuildBematech(proto, cmd byte, args []byte) ([]byte, error) {
	payloadLen := 2 + len(args)
	if payloadLen > MaxBematechPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, payloadLen)
	}

	packet := make([]byte, 0, BematechHeaderLen+payloadLen+BematechTrailerLen)
	packet = append(packet, STX)
	packet = binary.LittleEndian.AppendUint16(packet, uint16(payloadLen+BematechTrailerLen))
	start := len(packet)
	packet = append(packet, proto, cmd)
	packet = append(packet, args...)
	packet = binary.LittleEndian.AppendUint16(packet, Sum16(packet[start:]))
	return packet, nil
}

// SplitBematech validates a Bematech frame and returns proto, cmd and args.
// It is the inverse of BuildBematech and is used by tests and simulators.
func SplitBematech(packet []byte) (proto, cmd byte, args []byte, err error) {
	if len(packet) < BematechHeaderLen+2+BematechTrailerLen {
		return 0, 0, nil, fmt.Errorf("frame too short: %d bytes", len(packet))
	}
	if packet[0] != STX {
		return 0, 0, nil, fmt.Errorf("missing STX: %02X", packet[0])
	}
	length := int(binary.LittleEndian.Uint16(packet[1:3]))
	if length != len(packet)-BematechHeaderLen {
		return 0, 0, nil, fmt.Errorf("length mismatch: header %d, frame %d", length, len(packet)-BematechHeaderLen)
	}
	payload := packet[BematechHeaderLen : len(packet)-BematechTrailerLen]
	want := binary.LittleEndian.Uint16(packet[len(packet)-BematechTrailerLen:])
	if got := Sum16(payload); got != want {
		return 0, 0, nil, fmt.Errorf("checksum mismatch: got %04X, want %04X", got, want)
	}
	return payload[0], payload[1], payload[2:], nil
}
