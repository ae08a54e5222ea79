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
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stoqdrivers/go-ecf/format"
)

// Capability keys consulted by the façade before dispatch
const (
	CapItemCode           = "item_code"
	CapItemDescription    = "item_description"
	CapItemPrice          = "item_price"
	CapItemQuantity       = "item_quantity"
	CapItemDiscount       = "item_discount"
	CapItemSurcharge      = "item_surcharge"
	CapItemUnitDesc       = "item_unit_description"
	CapCustomerName       = "customer_name"
	CapCustomerID         = "customer_id"
	CapCustomerAddress    = "customer_address"
	CapPaymentValue       = "payment_value"
	CapPaymentDescription = "payment_description"
	CapPromotionalMessage = "promotional_message"
	CapTotalizeDiscount   = "totalize_discount"
	CapTotalizeSurcharge  = "totalize_surcharge"
	CapAddCashValue       = "add_cash_value"
	CapRemoveCashValue    = "remove_cash_value"
)

// Capability constrains one argument. Text capabilities set MinLen and
// MaxLen; value capabilities set Digits (integer digits), Decimals and
// an optional [MinSize, MaxSize] range. Zero bounds are not enforced,
// except Decimals which is always enforced when Digits is set.
type Capability struct {
	MinSize  decimal.Decimal
	MaxSize  decimal.Decimal
	MinLen   int
	MaxLen   int
	Digits   int
	Decimals int
}

// TextCapability limits a string to [minLen, maxLen] runes
func TextCapability(minLen, maxLen int) Capability {
	return Capability{MinLen: minLen, MaxLen: maxLen}
}

// ValueCapability limits a number to the given integer digits and
// decimal places
func ValueCapability(digits, decimals int) Capability {
	return Capability{Digits: digits, Decimals: decimals}
}

// WithRange returns a copy of c limited to [minSize, maxSize]
func (c Capability) WithRange(minSize, maxSize decimal.Decimal) Capability {
	c.MinSize = minSize
	c.MaxSize = maxSize
	return c
}

// CheckText validates the length of s
func (c Capability) CheckText(name, s string) error {
	n := utf8.RuneCountInString(s)
	if c.MaxLen > 0 && n > c.MaxLen {
		return Errorf(KindCapability, "%s: length %d exceeds maximum of %d", name, n, c.MaxLen)
	}
	if n < c.MinLen {
		return Errorf(KindCapability, "%s: length %d is below minimum of %d", name, n, c.MinLen)
	}
	return nil
}

// CheckValue validates range, integer digits and decimal places of d
func (c Capability) CheckValue(name string, d decimal.Decimal) error {
	if !c.MinSize.IsZero() && d.LessThan(c.MinSize) {
		return Errorf(KindCapability, "%s: %s is below minimum of %s", name, d, c.MinSize)
	}
	if !c.MaxSize.IsZero() && d.GreaterThan(c.MaxSize) {
		return Errorf(KindCapability, "%s: %s exceeds maximum of %s", name, d, c.MaxSize)
	}
	if c.Digits > 0 {
		if n := format.IntegerDigits(d); n > c.Digits {
			return Errorf(KindCapability, "%s: %s has %d integer digits, maximum is %d", name, d, n, c.Digits)
		}
		if n := format.DecimalPlaces(d); n > c.Decimals {
			return Errorf(KindCapability, "%s: %s has %d decimal places, maximum is %d", name, d, n, c.Decimals)
		}
	}
	return nil
}

// Capabilities maps capability keys to limits
type Capabilities map[string]Capability

// CheckText validates s against the capability named key. Keys the
// driver does not declare are unconstrained.
func (cs Capabilities) CheckText(key, s string) error {
	c, ok := cs[key]
	if !ok {
		return nil
	}
	return c.CheckText(key, s)
}

// CheckValue validates d against the capability named key
func (cs Capabilities) CheckValue(key string, d decimal.Decimal) error {
	c, ok := cs[key]
	if !ok {
		return nil
	}
	return c.CheckValue(key, d)
}
