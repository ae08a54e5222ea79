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
	"strings"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stoqdrivers/go-ecf/format"
)

type register struct {
	id   byte
	size int
	bcd  bool
}

// Fiscal memory registers read with cmdReadRegister
var (
	regSerial      = register{id: 0, size: 20}
	regFirmware    = register{id: 1, size: 2, bcd: true}
	regTaxTotals   = register{id: 2, size: 16 * 7, bcd: true}
	regGrandTotal  = register{id: 3, size: 9, bcd: true}
	regDayStartGT  = register{id: 4, size: 9, bcd: true}
	regCOO         = register{id: 26, size: 3, bcd: true}
	regGNF         = register{id: 28, size: 3, bcd: true}
	regDayStartCOO = register{id: 29, size: 3, bcd: true}
	regCRO         = register{id: 30, size: 2, bcd: true}
	regCRZ         = register{id: 31, size: 2, bcd: true}
	regISSFlags    = register{id: 33, size: 2}
	regCCF         = register{id: 55, size: 3, bcd: true}
)

func (d *Driver) readRaw(ctx context.Context, r register) ([]byte, error) {
	return d.send(ctx, cmdReadRegister, []byte{r.id}, r.size)
}

func (d *Driver) readInt(ctx context.Context, r register) (int, error) {
	raw, err := d.readRaw(ctx, r)
	if err != nil {
		return 0, err
	}
	v, err := format.BCDToInt(raw)
	if err != nil {
		return 0, ecf.WrapError(ecf.KindComm, "malformed register", err)
	}
	return int(v), nil
}

func (d *Driver) readMoney(ctx context.Context, r register) (decimal.Decimal, error) {
	raw, err := d.readRaw(ctx, r)
	if err != nil {
		return decimal.Zero, err
	}
	return bcdMoney(raw)
}

func bcdMoney(raw []byte) (decimal.Decimal, error) {
	v, err := format.BCDToInt(raw)
	if err != nil {
		return decimal.Zero, ecf.WrapError(ecf.KindComm, "malformed register", err)
	}
	return decimal.New(int64(v), -2), nil
}

func (d *Driver) readText(ctx context.Context, r register) (string, error) {
	raw, err := d.readRaw(ctx, r)
	if err != nil {
		return "", err
	}
	s, err := codec.Decode(raw, codec.CP850)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, " \x00"), nil
}
