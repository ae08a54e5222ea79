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

package daruma

import (
	"bytes"
	"context"
	"strconv"

	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/internal/frame"
)

// Command codes
const (
	cmdOpenCoupon     = "200"
	cmdAddItem        = "201"
	cmdCancelItem     = "204"
	cmdCancelCoupon   = "206"
	cmdReadX          = "207"
	cmdReduceZ        = "208"
	cmdReadMemory     = "209"
	cmdTotalize       = "210"
	cmdAddPayment     = "211"
	cmdCloseCoupon    = "212"
	cmdAddCash        = "219"
	cmdRemoveCash     = "220"
	cmdStatus         = "229"
	cmdReadRegister   = "231"
	cmdReadTaxes      = "232"
	cmdPaymentMethods = "233"
)

// FS2100 extended command codes
const (
	extIdentifyCustomer = "200"
	extAddItem          = "201"
	extReadRegister     = "231"
)

const (
	replyPrefix = ':'
	errorPrefix = 'E'
	extMarker   = 'F'
)

// standardFrame is ESC cmd args CR
func standardFrame(cmd string, args []byte) []byte {
	out := make([]byte, 0, len(cmd)+len(args)+2)
	out = append(out, frame.ESC)
	out = append(out, cmd...)
	out = append(out, args...)
	return append(out, frame.CR)
}

// extendedFrame is ESC FS 'F' cmd args xor CR, the xor covering cmd and args
func extendedFrame(cmd string, args []byte) []byte {
	body := append([]byte(cmd), args...)
	out := make([]byte, 0, len(body)+5)
	out = append(out, frame.ESC, frame.FS, extMarker)
	out = append(out, body...)
	out = append(out, frame.XOR(body))
	return append(out, frame.CR)
}

// parseReply strips the ':' prefix and CR suffix and decodes Ennnn errors
func parseReply(reply []byte) ([]byte, error) {
	if len(reply) < 2 || reply[0] != replyPrefix || reply[len(reply)-1] != frame.CR {
		return nil, ecf.Errorf(ecf.KindComm, "malformed reply %q", reply)
	}
	payload := reply[1 : len(reply)-1]
	if len(payload) == 5 && payload[0] == errorPrefix {
		code, err := strconv.Atoi(string(payload[1:]))
		if err != nil {
			return nil, ecf.Errorf(ecf.KindComm, "malformed error reply %q", reply)
		}
		return nil, errorCodes.Lookup(code)
	}
	return payload, nil
}

// exchange writes pkt and reads one reply line
func (d *Driver) exchange(ctx context.Context, pkt []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ecf.LogTx(d.port.Name(), pkt)
	if err := d.port.Write(pkt); err != nil {
		return nil, err
	}
	reply, err := d.port.ReadUntil([]byte{frame.CR})
	if err != nil {
		return nil, err
	}
	ecf.LogRx(d.port.Name(), reply)
	return parseReply(reply)
}

// execute sends pkt. When the device answers that today's read X is
// missing, a read X is issued and pkt is sent once more.
func (d *Driver) execute(ctx context.Context, pkt []byte) ([]byte, error) {
	payload, err := d.exchange(ctx, pkt)
	if err == nil || ecf.KindOf(err) != ecf.KindPendingReadX {
		return payload, err
	}
	readX := standardFrame(cmdReadX, nil)
	if bytes.Equal(pkt, readX) {
		return nil, err
	}
	ecf.Logger().Info("daruma: read X pending, issuing it before retrying")
	if _, xerr := d.exchange(ctx, readX); xerr != nil {
		return nil, xerr
	}
	return d.exchange(ctx, pkt)
}

func (d *Driver) send(ctx context.Context, cmd string, args []byte) ([]byte, error) {
	return d.execute(ctx, standardFrame(cmd, args))
}

func (d *Driver) sendExtended(ctx context.Context, cmd string, args []byte) ([]byte, error) {
	return d.execute(ctx, extendedFrame(cmd, args))
}
