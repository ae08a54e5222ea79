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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/cheque"
	ecftest "github.com/stoqdrivers/go-ecf/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintCheque(t *testing.T) {
	t.Parallel()

	c := cheque.Cheque{
		Value:      decimal.RequireFromString("1234.56"),
		Thirdparty: "Loja",
		City:       "Sao Carlos",
		Date:       time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
	}
	args := "237" + "00000000123456" +
		"Loja" + strings.Repeat(" ", chequeThirdpartyWidth-4) +
		"Sao Carlos" + strings.Repeat(" ", chequeCityWidth-10) +
		"18102026"
	port := ecftest.NewScriptedPort(ecftest.Exchange{Expect: request(t, mp2100, cmdPrintCheque, args), Reply: ok()})
	drv, err := NewMP2100(port)
	require.NoError(t, err)

	var printer cheque.Printer = drv
	require.NoError(t, printer.PrintCheque(context.Background(), &cheque.BankConfiguration{Code: 237}, c))
	require.NoError(t, port.Err())
	assert.True(t, port.Done())
}

func TestPrintChequeNeedsChequeStation(t *testing.T) {
	t.Parallel()

	port := ecftest.NewScriptedPort()
	drv, err := NewMP25(port)
	require.NoError(t, err)

	err = drv.PrintCheque(context.Background(), &cheque.BankConfiguration{Code: 1}, cheque.Cheque{Value: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ecf.ErrCommand)
	assert.Empty(t, port.Written())
}
