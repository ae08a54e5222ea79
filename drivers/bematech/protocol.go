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

package bematech

import (
	"context"
	"encoding/binary"

	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/internal/frame"
	"github.com/stoqdrivers/go-ecf/internal/transport"
)

// Command bytes
const (
	cmdOpenCoupon       = 0x00
	cmdReduceZ          = 0x05
	cmdReadX            = 0x06
	cmdReadMemory       = 0x08
	cmdCancelCoupon     = 0x0E
	cmdStatus           = 0x13
	cmdCashVoucher      = 0x19
	cmdReadTaxCodes     = 0x1A
	cmdSubtotal         = 0x1D
	cmdCancelItem       = 0x1F
	cmdTotalize         = 0x20
	cmdCloseCoupon      = 0x22
	cmdReadRegister     = 0x23
	cmdAddItem          = 0x3E
	cmdAddPayment       = 0x48
	cmdPaymentMethods   = 0x49
	cmdCancelLastCoupon = 0x69
	cmdPrintCheque      = 0x39
)

const (
	voucherRemove = 'S'
	voucherAdd    = 'U'
	printReport   = 'I'
)

func (d *Driver) tailLen() int {
	if d.model.extended {
		return 4
	}
	return 2
}

// status is the decoded tail of the last reply
type status struct {
	st3 uint16
	st1 byte
	st2 byte
}

func (s status) couponOpen() bool {
	return s.st1&st1CouponOpen != 0
}

// staleCoupon reports a refused command while the device holds an open
// coupon. Without st3 this is the only way to tell the cause.
func (s status) staleCoupon(extended bool) bool {
	if s.st2 != st2NotExecuted || !s.couponOpen() {
		return false
	}
	return !extended || s.st3 == 0
}

// send frames cmd with args, writes it and reads a reply whose body is
// replyLen bytes long
func (d *Driver) send(ctx context.Context, cmd byte, args []byte, replyLen int) ([]byte, error) {
	body, _, err := d.sendStatus(ctx, cmd, args, replyLen)
	return body, err
}

func (d *Driver) sendStatus(ctx context.Context, cmd byte, args []byte, replyLen int) ([]byte, status, error) {
	if err := ctx.Err(); err != nil {
		return nil, status{}, err
	}
	pkt, err := frame.BuildBematech(d.model.proto, cmd, args)
	if err != nil {
		return nil, status{}, ecf.WrapError(ecf.KindCommandParameters, "build frame", err)
	}
	ecf.LogTx(d.port.Name(), pkt)
	if err := d.port.Write(pkt); err != nil {
		return nil, status{}, err
	}

	cfg := transport.DefaultRetryConfig("bematech reply")
	head, err := transport.ReadFull(d.port, 1, cfg)
	if err != nil {
		return nil, status{}, err
	}
	switch head[0] {
	case frame.ACK:
	case frame.NAK:
		return nil, status{}, ecf.NewError(ecf.KindComm, "printer answered NAK")
	default:
		return nil, status{}, ecf.Errorf(ecf.KindComm, "unexpected reply byte 0x%02X", head[0])
	}

	rest, err := transport.ReadFull(d.port, replyLen+d.tailLen(), cfg)
	if err != nil {
		return nil, status{}, err
	}
	st := status{st1: rest[replyLen], st2: rest[replyLen+1]}
	if d.model.extended {
		st.st3 = binary.LittleEndian.Uint16(rest[replyLen+2:])
	}
	if err := decodeStatus(st.st1, st.st2, st.st3, d.model.extended); err != nil {
		return nil, st, err
	}
	return rest[:replyLen], st, nil
}

// statusRequest returns the frame of the status command
func (d *Driver) statusRequest() []byte {
	pkt, _ := frame.BuildBematech(d.model.proto, cmdStatus, nil)
	return pkt
}
