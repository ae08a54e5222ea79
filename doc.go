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

/*
Package ecf drives Brazilian fiscal printers (ECF) from several vendors
behind one coupon workflow.

A FiscalPrinter wraps a model Driver and enforces the coupon session:
open, add items, totalize, add payments, close. Drivers are registered
by brand and model and speak their vendor's wire protocol over a Port.

Features:
  - Bematech MP25, MP20 and MP2100, Daruma FS345 and FS2100, Dataregis
    EP375, Sweda IFS9000I, PertoPay 2023 and an in-memory simulator
  - Capability checks on every argument before anything is sent
  - Typed errors decoded from each vendor's status words
  - Till operations: read X, Z reduction, cash supply and withdrawal,
    fiscal memory reads
  - CAT-52 export (package cat52) and cheque printing (package cheque)

Basic Usage:

	import (
	    ecf "github.com/stoqdrivers/go-ecf"
	    _ "github.com/stoqdrivers/go-ecf/drivers/bematech"
	    "github.com/stoqdrivers/go-ecf/port/serial"
	)

	printer, err := ecf.Connect("bematech", "mp25", "/dev/ttyS0", serial.Factory)
	if err != nil {
	    log.Fatal(err)
	}
	defer printer.Shutdown()

	taxes, err := printer.TaxConstants(ctx)
	if err != nil {
	    log.Fatal(err)
	}
	icms, _ := ecf.FindTax(taxes, ecf.TaxICMS, decimal.NewFromInt(18))

	if err := printer.Open(ctx); err != nil {
	    log.Fatal(err)
	}
	_, err = printer.AddItem(ctx, ecf.Item{
	    Code:     "987654",
	    Desc:     "Monitor",
	    Price:    decimal.NewFromInt(10),
	    Quantity: decimal.NewFromInt(1),
	    Tax:      icms,
	})
	total, err := printer.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
	_, err = printer.AddPayment(ctx, ecf.Payment{Token: "01", Value: total})
	coo, err := printer.Close(ctx, "Obrigado")

Error Handling:

Errors are *Error values identified by kind, not message:

	if errors.Is(err, ecf.ErrPendingReduceZ) {
	    // issue the pending Z reduction first
	}

Thread Safety:

A FiscalPrinter holds session state and is not safe for concurrent use.
*/
package ecf
