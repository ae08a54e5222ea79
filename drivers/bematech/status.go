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

import ecf "github.com/stoqdrivers/go-ecf"

// st1 and st2 status bytes. st1 bit 1 (coupon open) is device state and
// carries no error.
const (
	st1CouponOpen  = 0x02
	st2NotExecuted = 0x01
)

var st1Bits = ecf.StatusBits{
	{Mask: 128, Kind: ecf.KindOutOfPaper, Msg: "out of paper"},
	{Mask: 64, Kind: ecf.KindAlmostOutOfPaper, Msg: "almost out of paper"},
	{Mask: 32, Kind: ecf.KindHardwareFailure, Msg: "clock error"},
	{Mask: 16, Kind: ecf.KindHardwareFailure, Msg: "printer in error state"},
	{Mask: 8, Kind: ecf.KindComm, Msg: "first byte of command was not ESC"},
	{Mask: 4, Kind: ecf.KindCommand, Msg: "unknown command"},
	{Mask: 1, Kind: ecf.KindCommandParameters, Msg: "invalid number of parameters"},
}

var st2Bits = ecf.StatusBits{
	{Mask: 128, Kind: ecf.KindCommandParameters, Msg: "invalid command parameter"},
	{Mask: 64, Kind: ecf.KindHardwareFailure, Msg: "fiscal memory full"},
	{Mask: 32, Kind: ecf.KindHardwareFailure, Msg: "CMOS memory error"},
	{Mask: 16, Kind: ecf.KindCommandParameters, Msg: "tax rate not programmed"},
	{Mask: 8, Kind: ecf.KindCommand, Msg: "programmable tax rate capacity full"},
	{Mask: 4, Kind: ecf.KindCancelItem, Msg: "cancellation not allowed"},
	{Mask: 2, Kind: ecf.KindConfig, Msg: "owner CNPJ/IE not programmed"},
	{Mask: 1, Kind: ecf.KindCommand, Msg: "command not executed"},
}

// st3Codes refines st2 "command not executed" on the extended protocol
var st3Codes = ecf.StatusCodes{
	1:  {Kind: ecf.KindCommand, Msg: "invalid command for this model"},
	2:  {Kind: ecf.KindCommandParameters, Msg: "invalid parameter"},
	5:  {Kind: ecf.KindPendingReduceZ, Msg: "Z reduction of the previous day is pending"},
	6:  {Kind: ecf.KindReduceZ, Msg: "Z reduction already issued today"},
	7:  {Kind: ecf.KindCouponOpen, Msg: "fiscal coupon already open"},
	8:  {Kind: ecf.KindCouponNotOpen, Msg: "no fiscal coupon open"},
	9:  {Kind: ecf.KindAlreadyTotalized, Msg: "coupon totalization already started"},
	10: {Kind: ecf.KindCouponTotalize, Msg: "coupon totalization not started"},
	11: {Kind: ecf.KindPaymentAddition, Msg: "payment method not programmed"},
	12: {Kind: ecf.KindCloseCoupon, Msg: "payments do not cover the coupon total"},
	13: {Kind: ecf.KindCancelItem, Msg: "item out of range"},
	14: {Kind: ecf.KindCancelItem, Msg: "item already cancelled"},
	15: {Kind: ecf.KindItemAddition, Msg: "invalid item"},
	16: {Kind: ecf.KindHardwareFailure, Msg: "fiscal memory full"},
	17: {Kind: ecf.KindCouponTotalize, Msg: "coupon has no items"},
	18: {Kind: ecf.KindInvalidValue, Msg: "invalid discount or surcharge"},
	19: {Kind: ecf.KindCommandParameters, Msg: "tax rate not programmed"},
	20: {Kind: ecf.KindPrinterOffline, Msg: "printer offline"},
	21: {Kind: ecf.KindInvalidState, Msg: "command not allowed in the current state"},
}

// decodeStatus maps the status tail to an error. extended selects the
// st3 refinement.
func decodeStatus(st1, st2 byte, st3 uint16, extended bool) error {
	if e := st1Bits.Decode(uint16(st1), ecf.WarnStatus); e != nil {
		return e
	}
	if st2 == 0 {
		return nil
	}
	if e := st2Bits.Decode(uint16(st2&^st2NotExecuted), nil); e != nil {
		return e
	}
	if st2&st2NotExecuted != 0 && extended && st3 != 0 {
		return st3Codes.Lookup(int(st3))
	}
	return st2Bits.Decode(uint16(st2), nil)
}
