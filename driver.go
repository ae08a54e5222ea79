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

package ecf

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stoqdrivers/go-ecf/codec"
)

// Info names a driver's brand and model
type Info struct {
	Brand string
	Model string
}

func (i Info) String() string {
	return i.Brand + " " + i.Model
}

// Driver is implemented by every printer model. Drivers translate device
// replies into *Error values and never retry on their own, except where a
// model documents it.
type Driver interface {
	Info() Info
	Charset() codec.Charset
	Capabilities() Capabilities

	OpenCoupon(ctx context.Context, customer Customer) error
	AddItem(ctx context.Context, item Item) (int, error)
	// CancelItem cancels item id; 0 cancels the most recent item
	CancelItem(ctx context.Context, id int) error
	CancelCoupon(ctx context.Context) error
	Totalize(ctx context.Context, discount, surcharge decimal.Decimal, tax TaxConstant) (decimal.Decimal, error)
	AddPayment(ctx context.Context, p Payment) (decimal.Decimal, error)
	CloseCoupon(ctx context.Context, message string) (int, error)

	Summarize(ctx context.Context) error
	// CloseTill may return a nil record when the model produces none
	CloseTill(ctx context.Context, previousDay bool) (*Sintegra, error)
	TillAddCash(ctx context.Context, value decimal.Decimal) error
	TillRemoveCash(ctx context.Context, value decimal.Decimal) error
	TillReadMemory(ctx context.Context, start, end time.Time) error
	TillReadMemoryByReductions(ctx context.Context, start, end int) error

	TaxConstants(ctx context.Context) ([]TaxConstant, error)
	PaymentConstants(ctx context.Context) ([]PaymentConstant, error)
	Serial(ctx context.Context) (string, error)
	Counters(ctx context.Context) (Counters, error)

	// QueryStatus sends the status request and returns the raw reply
	QueryStatus(ctx context.Context) ([]byte, error)
	// StatusReplyComplete reports whether reply holds a full status answer
	StatusReplyComplete(reply []byte) bool

	Close() error
}

// CustomerIdentifier is implemented by models that print customer data
// in a separate command after the coupon is open
type CustomerIdentifier interface {
	IdentifyCustomer(ctx context.Context, customer Customer) error
}

// TaxDefiner is implemented by models that can program tax rates
type TaxDefiner interface {
	DefineTax(ctx context.Context, rate decimal.Decimal, service bool) error
}

// FirmwareReader is implemented by models that report their firmware version
type FirmwareReader interface {
	Firmware(ctx context.Context) (string, error)
}
