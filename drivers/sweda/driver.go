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

// Package sweda drives the Sweda IFS9000I fiscal printer
package sweda

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stoqdrivers/go-ecf/format"
)

const (
	brand = "sweda"
	model = "IFS9000I"
)

const (
	moneyWidth       = 12
	priceWidth       = 9
	quantityWidth    = 7
	percentWidth     = 4
	codeWidth        = 13
	descWidth        = 24
	documentWidth    = 20
	paymentNameWidth = 15
	taxEntryWidth    = 7
)

// Register selectors
const (
	regSerial = "00"
	regCOO    = "01"
	regGNF    = "02"
	regCRZ    = "03"
	regCRO    = "04"
	regCCF    = "05"
)

// Driver talks to one IFS9000I
type Driver struct {
	port ecf.Port
}

// NewIFS9000I creates an IFS9000I driver
func NewIFS9000I(port ecf.Port) (*Driver, error) {
	if port == nil {
		return nil, ecf.NewError(ecf.KindConfig, "nil port")
	}
	return &Driver{port: port}, nil
}

func init() {
	ecf.Register(brand, "ifs9000i", func(p ecf.Port) (ecf.Driver, error) { return NewIFS9000I(p) })
}

// Info returns brand and model
func (*Driver) Info() ecf.Info { return ecf.Info{Brand: brand, Model: model} }

// Charset is plain ascii
func (*Driver) Charset() codec.Charset { return codec.ASCII }

// Capabilities returns the IFS9000I argument limits
func (*Driver) Capabilities() ecf.Capabilities {
	return ecf.Capabilities{
		ecf.CapItemCode:           ecf.TextCapability(1, codeWidth),
		ecf.CapItemDescription:    ecf.TextCapability(1, descWidth),
		ecf.CapItemPrice:          ecf.ValueCapability(7, 2),
		ecf.CapItemQuantity:       ecf.ValueCapability(4, 3),
		ecf.CapItemDiscount:       ecf.ValueCapability(2, 2),
		ecf.CapItemSurcharge:      ecf.ValueCapability(2, 2),
		ecf.CapItemUnitDesc:       ecf.TextCapability(0, 2),
		ecf.CapCustomerID:         ecf.TextCapability(0, documentWidth),
		ecf.CapPaymentValue:       ecf.ValueCapability(10, 2),
		ecf.CapPaymentDescription: ecf.TextCapability(0, 40),
		ecf.CapPromotionalMessage: ecf.TextCapability(0, 320),
		ecf.CapTotalizeDiscount:   ecf.ValueCapability(2, 2),
		ecf.CapTotalizeSurcharge:  ecf.ValueCapability(2, 2),
		ecf.CapAddCashValue:       ecf.ValueCapability(10, 2),
		ecf.CapRemoveCashValue:    ecf.ValueCapability(10, 2),
	}
}

// unframe keeps caller text from ending a frame early
var unframe = strings.NewReplacer(string(terminator), ")")

func text(s string, width int) []byte {
	b, err := format.Field(unframe.Replace(s), width, true, codec.ASCII)
	if err != nil {
		panic(err)
	}
	return b
}

func money(body []byte) (decimal.Decimal, error) {
	v, err := format.ParseMoney(string(body))
	if err != nil {
		return decimal.Zero, ecf.WrapError(ecf.KindComm, "malformed value", err)
	}
	return v, nil
}

func number(body []byte) (int, error) {
	n, err := format.ParseNumber(string(body))
	if err != nil {
		return 0, ecf.WrapError(ecf.KindComm, "malformed number", err)
	}
	return int(n), nil
}

func adjustment(discount, surcharge decimal.Decimal) []byte {
	if surcharge.IsPositive() {
		return []byte("A" + format.Money(surcharge, percentWidth))
	}
	return []byte("D" + format.Money(discount, percentWidth))
}

// OpenCoupon opens a coupon, printing the customer document when given
func (d *Driver) OpenCoupon(ctx context.Context, c ecf.Customer) error {
	var args []byte
	if c.Document != "" {
		args = text(c.Document, documentWidth)
	}
	_, err := d.send(ctx, cmdOpenCoupon, args)
	return err
}

// AddItem sells an item; the printer assigns the item number
func (d *Driver) AddItem(ctx context.Context, item ecf.Item) (int, error) {
	args := make([]byte, 0, 80)
	args = append(args, text(item.Code, codeWidth)...)
	args = append(args, format.Quantity(item.Quantity, quantityWidth, 3)...)
	args = append(args, format.Money(item.Price, priceWidth)...)
	args = append(args, text(item.Tax.Token, 3)...)
	args = append(args, adjustment(item.Discount, item.Surcharge)...)
	args = append(args, text(ecf.UnitLabel(item.Unit, item.UnitDesc), 2)...)
	args = append(args, text(item.Desc, descWidth)...)
	body, err := d.send(ctx, cmdAddItem, args)
	if err != nil {
		return 0, err
	}
	return number(body)
}

// CancelItem cancels item id; 0 cancels the last item
func (d *Driver) CancelItem(ctx context.Context, id int) error {
	_, err := d.send(ctx, cmdCancelItem, []byte(format.Number(int64(id), 3)))
	return err
}

// CancelCoupon cancels the open or the last coupon
func (d *Driver) CancelCoupon(ctx context.Context) error {
	_, err := d.send(ctx, cmdCancelCoupon, nil)
	return err
}

// Totalize applies a discount or surcharge and returns the subtotal
func (d *Driver) Totalize(ctx context.Context, discount, surcharge decimal.Decimal, _ ecf.TaxConstant) (decimal.Decimal, error) {
	body, err := d.send(ctx, cmdTotalize, adjustment(discount, surcharge))
	if err != nil {
		return decimal.Zero, err
	}
	return money(body)
}

// AddPayment registers a payment and returns the remainder
func (d *Driver) AddPayment(ctx context.Context, p ecf.Payment) (decimal.Decimal, error) {
	args := text(p.Token, 2)
	args = append(args, format.Money(p.Value, moneyWidth)...)
	if p.Description != "" {
		args = append(args, text(p.Description, 40)...)
	}
	body, err := d.send(ctx, cmdAddPayment, args)
	if err != nil {
		return decimal.Zero, err
	}
	return money(body)
}

// CloseCoupon prints the message and returns the COO
func (d *Driver) CloseCoupon(ctx context.Context, message string) (int, error) {
	msg, err := codec.Encode(unframe.Replace(message), codec.ASCII)
	if err != nil {
		return 0, err
	}
	body, err := d.send(ctx, cmdCloseCoupon, msg)
	if err != nil {
		return 0, err
	}
	return number(body)
}

// Summarize issues a read X
func (d *Driver) Summarize(ctx context.Context) error {
	_, err := d.send(ctx, cmdReadX, nil)
	return err
}

// CloseTill issues a Z reduction. The IFS9000I produces no summary record.
func (d *Driver) CloseTill(ctx context.Context, _ bool) (*ecf.Sintegra, error) {
	_, err := d.send(ctx, cmdReduceZ, nil)
	return nil, err
}

// TillAddCash registers a cash supply
func (d *Driver) TillAddCash(ctx context.Context, value decimal.Decimal) error {
	_, err := d.send(ctx, cmdAddCash, []byte(format.Money(value, moneyWidth)))
	return err
}

// TillRemoveCash registers a cash withdrawal
func (d *Driver) TillRemoveCash(ctx context.Context, value decimal.Decimal) error {
	_, err := d.send(ctx, cmdRemoveCash, []byte(format.Money(value, moneyWidth)))
	return err
}

// TillReadMemory prints the fiscal memory between two dates
func (d *Driver) TillReadMemory(ctx context.Context, start, end time.Time) error {
	_, err := d.send(ctx, cmdReadMemory, []byte("D"+format.ShortDate(start)+format.ShortDate(end)))
	return err
}

// TillReadMemoryByReductions prints the fiscal memory between two Z reductions
func (d *Driver) TillReadMemoryByReductions(ctx context.Context, start, end int) error {
	_, err := d.send(ctx, cmdReadMemory, []byte("R"+format.Number(int64(start), 4)+format.Number(int64(end), 4)))
	return err
}

// TaxConstants reads the tax table. Entries are T or S, a two digit
// slot and a four digit rate; the token is the first three characters.
func (d *Driver) TaxConstants(ctx context.Context) ([]ecf.TaxConstant, error) {
	body, err := d.send(ctx, cmdReadTaxes, nil)
	if err != nil {
		return nil, err
	}
	out := []ecf.TaxConstant{
		{Type: ecf.TaxSubstitution, Token: "F1"},
		{Type: ecf.TaxExemption, Token: "I1"},
		{Type: ecf.TaxNone, Token: "N1"},
	}
	for i := 0; i+taxEntryWidth <= len(body); i += taxEntryWidth {
		entry := string(body[i : i+taxEntryWidth])
		typ := ecf.TaxICMS
		switch entry[0] {
		case 'T':
		case 'S':
			typ = ecf.TaxService
		default:
			return nil, ecf.Errorf(ecf.KindComm, "malformed tax entry %q", entry)
		}
		rate, err := format.ParseMoney(entry[3:])
		if err != nil {
			return nil, ecf.WrapError(ecf.KindComm, "malformed tax entry", err)
		}
		out = append(out, ecf.TaxConstant{Type: typ, Token: entry[:3], Rate: rate})
	}
	return out, nil
}

// PaymentConstants reads the payment method table
func (d *Driver) PaymentConstants(ctx context.Context) ([]ecf.PaymentConstant, error) {
	body, err := d.send(ctx, cmdPaymentMethods, nil)
	if err != nil {
		return nil, err
	}
	var out []ecf.PaymentConstant
	for i := 0; (i+1)*paymentNameWidth <= len(body); i++ {
		name := strings.TrimSpace(string(body[i*paymentNameWidth : (i+1)*paymentNameWidth]))
		if name != "" {
			out = append(out, ecf.PaymentConstant{Token: format.Number(int64(i+1), 2), Label: name})
		}
	}
	return out, nil
}

// Serial returns the device serial number
func (d *Driver) Serial(ctx context.Context) (string, error) {
	body, err := d.send(ctx, cmdReadRegister, []byte(regSerial))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// Counters reads COO, GNF, CRZ, CRO and CCF
func (d *Driver) Counters(ctx context.Context) (ecf.Counters, error) {
	var c ecf.Counters
	for _, r := range []struct {
		dst *int
		sel string
	}{
		{&c.COO, regCOO}, {&c.GNF, regGNF}, {&c.CRZ, regCRZ}, {&c.CRO, regCRO}, {&c.CCF, regCCF},
	} {
		body, err := d.send(ctx, cmdReadRegister, []byte(r.sel))
		if err != nil {
			return c, err
		}
		if *r.dst, err = number(body); err != nil {
			return c, err
		}
	}
	return c, nil
}

// QueryStatus sends the status command and returns the raw reply
func (d *Driver) QueryStatus(ctx context.Context) ([]byte, error) {
	return d.roundTrip(ctx, cmdStatus, nil)
}

// StatusReplyComplete reports whether reply is terminated by '}'
func (*Driver) StatusReplyComplete(reply []byte) bool {
	return len(reply) >= 3 && reply[0] == replyPrefix && reply[len(reply)-1] == terminator
}

// Close closes the port
func (d *Driver) Close() error {
	return d.port.Close()
}
