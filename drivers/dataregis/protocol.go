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

package dataregis

import (
	"context"

	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/internal/frame"
	"github.com/stoqdrivers/go-ecf/internal/transport"
)

// Command codes
const (
	cmdOpenCoupon     = "01"
	cmdAddItem        = "02"
	cmdCancelItem     = "03"
	cmdCancelCoupon   = "04"
	cmdAddPayment     = "05"
	cmdCloseCoupon    = "06"
	cmdReadX          = "07"
	cmdReduceZ        = "08"
	cmdReadMemory     = "09"
	cmdAddCash        = "10"
	cmdRemoveCash     = "11"
	cmdStatus         = "12"
	cmdReadRegister   = "13"
	cmdReadTaxes      = "14"
	cmdPaymentMethods = "15"
)

const statusOK = "00"

var statusCodes = ecf.StatusCodes{
	1:  {Kind: ecf.KindCommand, Msg: "invalid command"},
	2:  {Kind: ecf.KindCommandParameters, Msg: "invalid parameter"},
	10: {Kind: ecf.KindCouponOpen, Msg: "fiscal coupon open"},
	11: {Kind: ecf.KindCouponNotOpen, Msg: "no fiscal coupon open"},
	12: {Kind: ecf.KindCloseCoupon, Msg: "payments do not cover the coupon total"},
	13: {Kind: ecf.KindCancelItem, Msg: "item cannot be cancelled"},
	14: {Kind: ecf.KindPaymentAddition, Msg: "payment method not programmed"},
	15: {Kind: ecf.KindItemAddition, Msg: "item rejected"},
	20: {Kind: ecf.KindOutOfPaper, Msg: "out of paper"},
	21: {Kind: ecf.KindPrinterOffline, Msg: "printer offline"},
	30: {Kind: ecf.KindHardwareFailure, Msg: "fiscal memory failure"},
	40: {Kind: ecf.KindReduceZ, Msg: "Z reduction already issued today"},
	41: {Kind: ecf.KindPendingReduceZ, Msg: "Z reduction of the previous day is pending"},
}

// buildFrame is STX cmd args ETX sum8, the sum covering cmd through ETX
func buildFrame(cmd string, args []byte) []byte {
	payload := make([]byte, 0, len(cmd)+len(args)+1)
	payload = append(payload, cmd...)
	payload = append(payload, args...)
	payload = append(payload, frame.ETX)
	out := make([]byte, 0, len(payload)+2)
	out = append(out, frame.STX)
	out = append(out, payload...)
	return append(out, frame.Sum8(payload))
}

// parseReply validates STX status body ETX sum8 and returns the body
func parseReply(reply []byte) ([]byte, error) {
	if len(reply) < 5 || reply[0] != frame.STX || reply[len(reply)-2] != frame.ETX {
		return nil, ecf.Errorf(ecf.KindComm, "malformed reply %X", reply)
	}
	payload := reply[1 : len(reply)-1]
	if sum := frame.Sum8(payload); sum != reply[len(reply)-1] {
		return nil, ecf.Errorf(ecf.KindComm, "reply checksum 0x%02X, want 0x%02X", reply[len(reply)-1], sum)
	}
	status := string(payload[:2])
	body := payload[2 : len(payload)-1]
	if status == statusOK {
		return body, nil
	}
	if status[0] < '0' || status[0] > '9' || status[1] < '0' || status[1] > '9' {
		return nil, ecf.Errorf(ecf.KindComm, "malformed status %q", status)
	}
	return nil, statusCodes.Lookup(int(status[0]-'0')*10 + int(status[1]-'0'))
}

func (d *Driver) send(ctx context.Context, cmd string, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pkt := buildFrame(cmd, args)
	ecf.LogTx(d.port.Name(), pkt)
	if err := d.port.Write(pkt); err != nil {
		return nil, err
	}
	reply, err := d.readReply()
	if err != nil {
		return nil, err
	}
	return parseReply(reply)
}

func (d *Driver) readReply() ([]byte, error) {
	head, err := d.port.ReadUntil([]byte{frame.ETX})
	if err != nil {
		return nil, err
	}
	ecf.LogRx(d.port.Name(), head)
	sum, err := transport.ReadFull(d.port, 1, transport.DefaultRetryConfig("dataregis checksum"))
	if err != nil {
		return nil, err
	}
	return append(head, sum...), nil
}
