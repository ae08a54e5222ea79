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

package sweda

import (
	"context"
	"strconv"

	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/internal/frame"
)

// Command codes
const (
	cmdAddItem        = "01"
	cmdCancelItem     = "04"
	cmdCancelCoupon   = "05"
	cmdTotalize       = "03"
	cmdAddPayment     = "10"
	cmdCloseCoupon    = "12"
	cmdReadX          = "13"
	cmdReduceZ        = "14"
	cmdReadMemory     = "15"
	cmdOpenCoupon     = "17"
	cmdAddCash        = "25"
	cmdRemoveCash     = "26"
	cmdReadRegister   = "27"
	cmdStatus         = "28"
	cmdReadTaxes      = "29"
	cmdPaymentMethods = "30"
)

const (
	replyPrefix = '.'
	replyOK     = '+'
	replyError  = '-'
	terminator  = '}'
)

var errorCodes = ecf.StatusCodes{
	1:  {Kind: ecf.KindCommand, Msg: "invalid command"},
	2:  {Kind: ecf.KindCommandParameters, Msg: "invalid parameter"},
	3:  {Kind: ecf.KindCouponOpen, Msg: "fiscal coupon open"},
	4:  {Kind: ecf.KindCouponNotOpen, Msg: "no fiscal coupon open"},
	5:  {Kind: ecf.KindAlreadyTotalized, Msg: "coupon already totalized"},
	6:  {Kind: ecf.KindCouponTotalize, Msg: "coupon not totalized"},
	7:  {Kind: ecf.KindCloseCoupon, Msg: "payments do not cover the coupon total"},
	8:  {Kind: ecf.KindCancelItem, Msg: "item cannot be cancelled"},
	9:  {Kind: ecf.KindPaymentAddition, Msg: "payment method not programmed"},
	10: {Kind: ecf.KindOutOfPaper, Msg: "out of paper"},
	11: {Kind: ecf.KindPrinterOffline, Msg: "printer offline"},
	12: {Kind: ecf.KindHardwareFailure, Msg: "fiscal memory failure"},
	13: {Kind: ecf.KindReduceZ, Msg: "Z reduction already issued today"},
	14: {Kind: ecf.KindPendingReduceZ, Msg: "Z reduction of the previous day is pending"},
	15: {Kind: ecf.KindItemAddition, Msg: "item rejected"},
}

// buildFrame is ESC '.' cmd args '}'
func buildFrame(cmd string, args []byte) []byte {
	out := make([]byte, 0, len(cmd)+len(args)+3)
	out = append(out, frame.ESC, replyPrefix)
	out = append(out, cmd...)
	out = append(out, args...)
	return append(out, terminator)
}

// parseReply decodes '.+body}' or '.-Pnnnn[text]}'
func parseReply(reply []byte) ([]byte, error) {
	if len(reply) < 3 || reply[0] != replyPrefix || reply[len(reply)-1] != terminator {
		return nil, ecf.Errorf(ecf.KindComm, "malformed reply %q", reply)
	}
	body := reply[2 : len(reply)-1]
	switch reply[1] {
	case replyOK:
		return body, nil
	case replyError:
		if len(body) < 5 || body[0] != 'P' {
			return nil, ecf.Errorf(ecf.KindComm, "malformed error reply %q", reply)
		}
		code, err := strconv.Atoi(string(body[1:5]))
		if err != nil {
			return nil, ecf.Errorf(ecf.KindComm, "malformed error reply %q", reply)
		}
		return nil, errorCodes.Lookup(code)
	default:
		return nil, ecf.Errorf(ecf.KindComm, "malformed reply %q", reply)
	}
}

// roundTrip writes one frame and reads the reply up to the first '}'.
// Frames carry no length, so a '}' inside reply text ends the reply
// early; text sent by the driver never contains one.
func (d *Driver) roundTrip(ctx context.Context, cmd string, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pkt := buildFrame(cmd, args)
	ecf.LogTx(d.port.Name(), pkt)
	if err := d.port.Write(pkt); err != nil {
		return nil, err
	}
	reply, err := d.port.ReadUntil([]byte{terminator})
	if err != nil {
		return nil, err
	}
	ecf.LogRx(d.port.Name(), reply)
	return reply, nil
}

func (d *Driver) send(ctx context.Context, cmd string, args []byte) ([]byte, error) {
	reply, err := d.roundTrip(ctx, cmd, args)
	if err != nil {
		return nil, err
	}
	return parseReply(reply)
}
