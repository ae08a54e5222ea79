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
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// TaxType is the kind of tax bucket a tax constant belongs to
type TaxType string

const (
	TaxICMS         TaxType = "ICMS"
	TaxSubstitution TaxType = "SUBSTITUTION"
	TaxExemption    TaxType = "EXEMPTION"
	TaxNone         TaxType = "NONE"
	TaxService      TaxType = "SERVICE"
	TaxCustom       TaxType = "CUSTOM"
)

// HasRate reports whether constants of this type carry a percent rate
func (t TaxType) HasRate() bool {
	return t == TaxICMS || t == TaxService || t == TaxCustom
}

// TaxConstant pairs a vendor-opaque token with its type and rate. Tokens
// are compared as bytes.
type TaxConstant struct {
	Rate  decimal.Decimal
	Type  TaxType
	Token string
}

func (t TaxConstant) String() string {
	if t.Type.HasRate() {
		return fmt.Sprintf("%s %s%% (%s)", t.Type, t.Rate.StringFixed(2), strconv.Quote(t.Token))
	}
	return fmt.Sprintf("%s (%s)", t.Type, strconv.Quote(t.Token))
}

// Equal compares type, token bytes and rate
func (t TaxConstant) Equal(o TaxConstant) bool {
	return t.Type == o.Type && t.Token == o.Token && t.Rate.Equal(o.Rate)
}

// FindTax returns the first constant of the given type, matching rate for
// rated types
func FindTax(taxes []TaxConstant, typ TaxType, rate decimal.Decimal) (TaxConstant, bool) {
	for _, t := range taxes {
		if t.Type != typ {
			continue
		}
		if typ.HasRate() && !t.Rate.Equal(rate) {
			continue
		}
		return t, true
	}
	return TaxConstant{}, false
}

// Unit is an item's unit of measure
type Unit string

const (
	UnitWeight Unit = "weight"
	UnitLiters Unit = "liters"
	UnitMeters Unit = "meters"
	UnitEmpty  Unit = "empty"
	// UnitCustom requires a two character unit description
	UnitCustom Unit = "custom"
)

// UnitLabel returns the two character label printed for standard units
func UnitLabel(u Unit, custom string) string {
	switch u {
	case UnitWeight:
		return "Kg"
	case UnitLiters:
		return "Lt"
	case UnitMeters:
		return "m "
	case UnitCustom:
		return custom
	default:
		return "  "
	}
}

// PaymentConstant is one entry of the printer's payment method table
type PaymentConstant struct {
	Token string
	Label string
}

// Customer identifies the buyer on the coupon
type Customer struct {
	Name     string
	Document string
	Address  string
}

// IsZero reports whether no customer data was given
func (c Customer) IsZero() bool {
	return c.Name == "" && c.Document == "" && c.Address == ""
}

// Item is a coupon line
type Item struct {
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Discount  decimal.Decimal
	Surcharge decimal.Decimal
	Tax       TaxConstant
	Code      string
	Desc      string
	Unit      Unit
	UnitDesc  string
	// ID is assigned by the driver
	ID int
}

// Total returns quantity times unit price truncated to cents
func (i Item) Total() decimal.Decimal {
	return i.Quantity.Mul(i.Price).Truncate(2)
}

// Payment is one payment line
type Payment struct {
	Value       decimal.Decimal
	Token       string
	Description string
	// Custom is a vendor specific secondary token, such as a card network
	Custom string
}

// Counters are the device's monotonic counters
type Counters struct {
	COO int
	GNF int
	CRZ int
	CRO int
	CCF int
}

// SintegraTax is one tax bucket of a Z reduction
type SintegraTax struct {
	Value decimal.Decimal
	Code  string
}

// Sintegra is the fiscal summary produced by a Z reduction
type Sintegra struct {
	OpeningDate time.Time
	PeriodTotal decimal.Decimal
	Total       decimal.Decimal
	Serial      string
	Taxes       []SintegraTax
	SerialID    int
	COOStart    int
	COOEnd      int
	CRO         int
	CRZ         int
}
