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

import ecf "github.com/stoqdrivers/go-ecf"

// errReadXPending is the code answered when the day's read X is missing
const errReadXPending = 42

var errorCodes = ecf.StatusCodes{
	1:               {Kind: ecf.KindCommand, Msg: "invalid command"},
	2:               {Kind: ecf.KindCommandParameters, Msg: "invalid parameter"},
	3:               {Kind: ecf.KindCommandParameters, Msg: "invalid command format"},
	10:              {Kind: ecf.KindCouponOpen, Msg: "fiscal coupon open"},
	11:              {Kind: ecf.KindCouponNotOpen, Msg: "no fiscal coupon open"},
	12:              {Kind: ecf.KindAlreadyTotalized, Msg: "coupon already totalized"},
	13:              {Kind: ecf.KindCouponTotalize, Msg: "coupon not totalized"},
	14:              {Kind: ecf.KindCloseCoupon, Msg: "payments do not cover the coupon total"},
	15:              {Kind: ecf.KindCancelItem, Msg: "item not found"},
	16:              {Kind: ecf.KindCancelItem, Msg: "item already cancelled"},
	17:              {Kind: ecf.KindPaymentAddition, Msg: "payment method not programmed"},
	18:              {Kind: ecf.KindItemAddition, Msg: "invalid tax token"},
	20:              {Kind: ecf.KindOutOfPaper, Msg: "out of paper"},
	21:              {Kind: ecf.KindPrinterOffline, Msg: "printer offline"},
	30:              {Kind: ecf.KindHardwareFailure, Msg: "fiscal memory full"},
	31:              {Kind: ecf.KindHardwareFailure, Msg: "fiscal memory failure"},
	40:              {Kind: ecf.KindReduceZ, Msg: "Z reduction already issued today"},
	41:              {Kind: ecf.KindPendingReduceZ, Msg: "Z reduction of the previous day is pending"},
	errReadXPending: {Kind: ecf.KindPendingReadX, Msg: "read X not issued today"},
}

// Status word bits. st2 bits describe device state.
const (
	st2CouponOpen     = 0x80
	st2PendingReduceZ = 0x40
	st2PendingReadX   = 0x20
)

var st1Bits = ecf.StatusBits{
	{Mask: 0x80, Kind: ecf.KindOutOfPaper, Msg: "out of paper"},
	{Mask: 0x40, Kind: ecf.KindAlmostOutOfPaper, Msg: "almost out of paper"},
	{Mask: 0x20, Kind: ecf.KindPrinterOffline, Msg: "printer offline"},
	{Mask: 0x10, Kind: ecf.KindHardwareFailure, Msg: "mechanical failure"},
}

// Status is the decoded status word
type Status struct {
	ST1 byte
	ST2 byte
}

// CouponOpen reports whether a coupon is open on the device
func (s Status) CouponOpen() bool { return s.ST2&st2CouponOpen != 0 }

// PendingReduceZ reports whether yesterday's Z reduction is missing
func (s Status) PendingReduceZ() bool { return s.ST2&st2PendingReduceZ != 0 }

// PendingReadX reports whether today's read X is missing
func (s Status) PendingReadX() bool { return s.ST2&st2PendingReadX != 0 }

// Err returns the error flagged in st1, if any
func (s Status) Err() error {
	if e := st1Bits.Decode(uint16(s.ST1), ecf.WarnStatus); e != nil {
		return e
	}
	return nil
}

// openable returns the reason a coupon cannot be opened, if any. A
// missing read X is left to the command retry.
func (s Status) openable() error {
	if err := s.Err(); err != nil {
		return err
	}
	switch {
	case s.CouponOpen():
		return ecf.NewError(ecf.KindCouponOpen, "fiscal coupon open")
	case s.PendingReduceZ():
		return ecf.NewError(ecf.KindPendingReduceZ, "Z reduction of the previous day is pending")
	}
	return nil
}
