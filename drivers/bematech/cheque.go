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

	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/cheque"
	"github.com/stoqdrivers/go-ecf/format"
)

const (
	chequeThirdpartyWidth = 45
	chequeCityWidth       = 27
)

// PrintCheque prints c on the MP2100 cheque station. The printer keeps
// its own bank form table, so only the bank code is sent.
func (d *Driver) PrintCheque(ctx context.Context, bank *cheque.BankConfiguration, c cheque.Cheque) error {
	if !d.model.cheque {
		return ecf.Errorf(ecf.KindCommand, "%s has no cheque station", d.model.name)
	}
	if !c.Value.IsPositive() {
		return ecf.NewError(ecf.KindInvalidValue, "cheque value must be positive")
	}
	args := make([]byte, 0, 100)
	args = append(args, format.Number(int64(bank.Code), 3)...)
	args = append(args, format.Money(c.Value, moneyWidth)...)
	args = append(args, d.text(c.Thirdparty, chequeThirdpartyWidth)...)
	args = append(args, d.text(c.City, chequeCityWidth)...)
	args = append(args, c.Date.Format("02012006")...)
	_, err := d.send(ctx, cmdPrintCheque, args, 0)
	return err
}
