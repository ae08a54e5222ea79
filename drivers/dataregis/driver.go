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

// Package dataregis drives the Dataregis EP375 fiscal printer.
//
// The EP375 has no totalize command: a pending discount or surcharge is
// kept by the driver and sent with the first payment.
package dataregis

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stoqdrivers/go-ecf/format"
	"github.com/stoqdrivers/go-ecf/internal/frame"
)

const (
	brand = "dataregis"
	model = "EP375"
)

const (
	moneyWidth       = 12
	priceWidth       = 9
	quantityWidth    = 6
	percentWidth     = 4
	codeWidth        = 13
	descWidth        = 24
	documentWidth    = 18
	paymentNameWidth = 16
	taxEntryWidth    = 6
)

// Fixed tax tokens. Product codes with non-digits are accepted only on
// the fixed buckets 90 through 99.
const (
	tokenSubstitution = "90"
	tokenExemption    = "91"
	tokenNone         = "92"
	fixedTokenMin     = 90
	fixedTokenMax     = 99
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

const (
	adjustNone      = 'N'
	adjustDiscount  = 'D'
	adjustSurcharge = 'A'
)

// Driver talks to one EP375
type Driver struct {
	port      ecf.Port
	items     map[int]decimal.Decimal
	adjust    decimal.Decimal
	adjustTyp byte
	lastItem  int
	paid      bool
}

// NewEP375 creates an EP375 driver
func NewEP375(port ecf.Port) (*Driver, error) {
	if port == nil {
		return nil, ecf.NewError(ecf.KindConfig, "nil port")
	}
	d := &Driver{port: port}
	d.reset()
	return d, nil
}

func init() {
	ecf.Register(brand, "ep375", func(p ecf.Port) (ecf.Driver, error) { return NewEP375(p) })
}

func (d *Driver) reset() {
	d.items = make(map[int]decimal.Decimal)
	d.lastItem = 0
	d.adjust = decimal.Zero
	d.adjustTyp = adjustNone
	d.paid = false
}

// Info returns brand and model
func (*Driver) Info() ecf.Info { return ecf.Info{Brand: brand, Model: model} }

// Charset is latscii
func (*Driver) Charset() codec.Charset { return codec.Latscii }

// Capabilities returns the EP375 argument limits
func (*Driver) Capabilities() ecf.Capabilities {
	return ecf.Capabilities{
		ecf.CapItemCode:          ecf.TextCapability(1, codeWidth),
		ecf.CapItemDescription:   ecf.TextCapability(1, descWidth),
		ecf.CapItemPrice:         ecf.ValueCapability(7, 2),
		ecf.CapItemQuantity:      ecf.ValueCapability(3, 3),
		ecf.CapItemDiscount:      ecf.ValueCapability(2, 2),
		ecf.CapItemSurcharge:     ecf.ValueCapability(2, 2),
		ecf.CapItemUnitDesc:      ecf.TextCapability(0, 2),
		ecf.CapCustomerID:        ecf.TextCapability(0, documentWidth),
		ecf.CapPaymentValue:      ecf.ValueCapability(10, 2),
		ecf.CapTotalizeDiscount:  ecf.ValueCapability(2, 2),
		ecf.CapTotalizeSurcharge: ecf.ValueCapability(2, 2),
		ecf.CapAddCashValue:      ecf.ValueCapability(10, 2),
		ecf.CapRemoveCashValue:   ecf.ValueCapability(10, 2),
	}
}

func text(s string, width int) []byte {
	b, err := format.Field(s, width, true, codec.Latscii)
	if err != nil {
		panic(err)
	}
	return b
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func fixedBucket(token string) bool {
	n, err := strconv.Atoi(token)
	return err == nil && n >= fixedTokenMin && n <= fixedTokenMax
}

// OpenCoupon opens a coupon, printing the customer document when given
func (d *Driver) OpenCoupon(ctx context.Context, c ecf.Customer) error {
	var args []byte
	if c.Document != "" {
		args = text(c.Document, documentWidth)
	}
	if _, err := d.send(ctx, cmdOpenCoupon, args); err != nil {
		return err
	}
	d.reset()
	return nil
}

// AddItem sells an item. Codes with non-digits are rejected before
// dispatch unless the tax token is one of the fixed buckets.
func (d *Driver) AddItem(ctx context.Context, item ecf.Item) (int, error) {
	if !isDigits(item.Code) && !fixedBucket(item.Tax.Token) {
		return 0, ecf.Errorf(ecf.KindInvalidValue,
			"product code %q must be numeric for tax token %q", item.Code, item.Tax.Token)
	}
	flag, pct := byte(adjustNone), decimal.Zero
	switch {
	case item.Discount.IsPositive():
		flag, pct = adjustDiscount, item.Discount
	case item.Surcharge.IsPositive():
		flag, pct = adjustSurcharge, item.Surcharge
	}
	args := make([]byte, 0, 80)
	args = append(args, text(item.Code, codeWidth)...)
	args = append(args, text(item.Desc, descWidth)...)
	args = append(args, format.Quantity(item.Quantity, quantityWidth, 3)...)
	args = append(args, format.Money(item.Price, priceWidth)...)
	args = append(args, text(item.Tax.Token, 2)...)
	args = append(args, text(ecf.UnitLabel(item.Unit, item.UnitDesc), 2)...)
	args = append(args, flag)
	args = append(args, format.Money(pct, percentWidth)...)
	if _, err := d.send(ctx, cmdAddItem, args); err != nil {
		return 0, err
	}

	total := item.Total()
	hundred := decimal.NewFromInt(100)
	switch flag {
	case adjustDiscount:
		total = total.Sub(total.Mul(pct).Div(hundred)).Truncate(2)
	case adjustSurcharge:
		total = total.Add(total.Mul(pct).Div(hundred)).Truncate(2)
	}
	d.lastItem++
	d.items[d.lastItem] = total
	return d.lastItem, nil
}

// CancelItem cancels item id
func (d *Driver) CancelItem(ctx context.Context, id int) error {
	if id == 0 {
		id = d.lastItem
	}
	if _, err := d.send(ctx, cmdCancelItem, []byte(format.Number(int64(id), 3))); err != nil {
		return err
	}
	delete(d.items, id)
	return nil
}

// CancelCoupon cancels the open or the last coupon
func (d *Driver) CancelCoupon(ctx context.Context) error {
	if _, err := d.send(ctx, cmdCancelCoupon, nil); err != nil {
		return err
	}
	d.reset()
	return nil
}

func (d *Driver) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range d.items {
		sum = sum.Add(v)
	}
	return sum
}

// Totalize records the discount or surcharge for the first payment and
// returns the adjusted total. Nothing is sent to the printer.
func (d *Driver) Totalize(_ context.Context, discount, surcharge decimal.Decimal, _ ecf.TaxConstant) (decimal.Decimal, error) {
	total := d.subtotal()
	hundred := decimal.NewFromInt(100)
	switch {
	case discount.IsPositive():
		d.adjustTyp, d.adjust = adjustDiscount, discount
		total = total.Sub(total.Mul(discount).Div(hundred))
	case surcharge.IsPositive():
		d.adjustTyp, d.adjust = adjustSurcharge, surcharge
		total = total.Add(total.Mul(surcharge).Div(hundred))
	default:
		d.adjustTyp, d.adjust = adjustNone, decimal.Zero
	}
	return total.Truncate(2), nil
}

// AddPayment registers a payment. The first payment carries the
// pending discount or surcharge.
func (d *Driver) AddPayment(ctx context.Context, p ecf.Payment) (decimal.Decimal, error) {
	flag, pct := byte(adjustNone), decimal.Zero
	if !d.paid {
		flag, pct = d.adjustTyp, d.adjust
	}
	args := text(p.Token, 2)
	args = append(args, format.Money(p.Value, moneyWidth)...)
	args = append(args, flag)
	args = append(args, format.Money(pct, percentWidth)...)
	body, err := d.send(ctx, cmdAddPayment, args)
	if err != nil {
		return decimal.Zero, err
	}
	d.paid = true
	v, err := format.ParseMoney(string(body))
	if err != nil {
		return decimal.Zero, ecf.WrapError(ecf.KindComm, "malformed remainder", err)
	}
	return v, nil
}

// CloseCoupon closes the coupon and returns its COO. The EP375 has no
// room for a promotional message and ignores it.
func (d *Driver) CloseCoupon(ctx context.Context, _ string) (int, error) {
	body, err := d.send(ctx, cmdCloseCoupon, nil)
	if err != nil {
		return 0, err
	}
	d.reset()
	n, err := format.ParseNumber(string(body))
	if err != nil {
		return 0, ecf.WrapError(ecf.KindComm, "malformed COO", err)
	}
	return int(n), nil
}

// Summarize issues a read X
func (d *Driver) Summarize(ctx context.Context) error {
	_, err := d.send(ctx, cmdReadX, nil)
	return err
}

// CloseTill issues a Z reduction. The EP375 produces no summary record.
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

// TaxConstants reads the programmed rates. Entries are a two digit token,
// a type letter (T for ICMS, S for service) and a four digit rate.
func (d *Driver) TaxConstants(ctx context.Context) ([]ecf.TaxConstant, error) {
	body, err := d.send(ctx, cmdReadTaxes, nil)
	if err != nil {
		return nil, err
	}
	out := make([]ecf.TaxConstant, 0, 3+len(body)/taxEntryWidth)
	for i := 0; i+taxEntryWidth <= len(body); i += taxEntryWidth {
		entry := string(body[i : i+taxEntryWidth])
		typ := ecf.TaxICMS
		switch entry[2] {
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
		out = append(out, ecf.TaxConstant{Type: typ, Token: entry[:2], Rate: rate})
	}
	return append(out,
		ecf.TaxConstant{Type: ecf.TaxSubstitution, Token: tokenSubstitution},
		ecf.TaxConstant{Type: ecf.TaxExemption, Token: tokenExemption},
		ecf.TaxConstant{Type: ecf.TaxNone, Token: tokenNone},
	), nil
}

// PaymentConstants reads the programmed payment methods
func (d *Driver) PaymentConstants(ctx context.Context) ([]ecf.PaymentConstant, error) {
	body, err := d.send(ctx, cmdPaymentMethods, nil)
	if err != nil {
		return nil, err
	}
	var out []ecf.PaymentConstant
	for i := 0; (i+1)*paymentNameWidth <= len(body); i++ {
		name, err := codec.Decode(body[i*paymentNameWidth:(i+1)*paymentNameWidth], codec.Latscii)
		if err != nil {
			return nil, err
		}
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, ecf.PaymentConstant{Token: format.Number(int64(i+1), 2), Label: name})
		}
	}
	return out, nil
}

func (d *Driver) registerInt(ctx context.Context, sel string) (int, error) {
	body, err := d.send(ctx, cmdReadRegister, []byte(sel))
	if err != nil {
		return 0, err
	}
	n, err := format.ParseNumber(string(body))
	if err != nil {
		return 0, ecf.WrapError(ecf.KindComm, "malformed register", err)
	}
	return int(n), nil
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
	var err error
	for _, r := range []struct {
		dst *int
		sel string
	}{
		{&c.COO, regCOO}, {&c.GNF, regGNF}, {&c.CRZ, regCRZ}, {&c.CRO, regCRO}, {&c.CCF, regCCF},
	} {
		if *r.dst, err = d.registerInt(ctx, r.sel); err != nil {
			return c, err
		}
	}
	return c, nil
}

// QueryStatus sends the status command and returns the raw reply
func (d *Driver) QueryStatus(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pkt := buildFrame(cmdStatus, nil)
	ecf.LogTx(d.port.Name(), pkt)
	if err := d.port.Write(pkt); err != nil {
		return nil, err
	}
	reply, err := d.readReply()
	if err != nil {
		return nil, err
	}
	ecf.LogRx(d.port.Name(), reply)
	return reply, nil
}

// StatusReplyComplete reports whether reply ends with ETX and its checksum
func (*Driver) StatusReplyComplete(reply []byte) bool {
	return len(reply) >= 5 && reply[0] == frame.STX && reply[len(reply)-2] == frame.ETX
}

// Close closes the port
func (d *Driver) Close() error {
	return d.port.Close()
}
