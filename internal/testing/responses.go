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

package testing

import (
	"encoding/binary"
	"fmt"

	"github.com/stoqdrivers/go-ecf/internal/frame"
)

// BuildBematechReply creates an extended protocol reply: ACK, body, st1,
// st2 and st3 little endian
func BuildBematechReply(body []byte, st1, st2 byte, st3 uint16) []byte {
	out := []byte{frame.ACK}
	out = append(out, body...)
	out = append(out, st1, st2)
	return binary.LittleEndian.AppendUint16(out, st3)
}

// BuildBematechStandardReply creates a standard protocol reply without st3
func BuildBematechStandardReply(body []byte, st1, st2 byte) []byte {
	out := []byte{frame.ACK}
	out = append(out, body...)
	return append(out, st1, st2)
}

// BuildBematechNAK creates a NAK reply
func BuildBematechNAK() []byte {
	return []byte{frame.NAK}
}

// BuildDarumaReply wraps payload as ':payload\r'
func BuildDarumaReply(payload string) []byte {
	return []byte(":" + payload + "\r")
}

// BuildDarumaError creates a ':Ennnn\r' error reply
func BuildDarumaError(code int) []byte {
	return BuildDarumaReply(fmt.Sprintf("E%04d", code))
}

// BuildDataregisReply creates STX status body ETX sum8
func BuildDataregisReply(status string, body []byte) []byte {
	payload := append([]byte(status), body...)
	payload = append(payload, frame.ETX)
	out := []byte{frame.STX}
	out = append(out, payload...)
	return append(out, frame.Sum8(payload))
}

// BuildSwedaReply creates '.+body}'
func BuildSwedaReply(body string) []byte {
	return []byte(".+" + body + "}")
}

// BuildSwedaError creates '.-Pnnnn}'
func BuildSwedaError(code int) []byte {
	return []byte(fmt.Sprintf(".-P%04d}", code))
}

// BuildPertoReply creates '{id;retcode;fields}'
func BuildPertoReply(id, retcode int, fields string) []byte {
	if fields == "" {
		return []byte(fmt.Sprintf("{%04d;%d}", id, retcode))
	}
	return []byte(fmt.Sprintf("{%04d;%d;%s}", id, retcode, fields))
}
