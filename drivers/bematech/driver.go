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

// Package bematech drives the Bematech MP25, MP20 and MP2100 fiscal
// printers.
//
// Frames are STX, a little endian length, the protocol marker, the
// command byte, arguments and a 16 bit little endian sum. The MP25 and
// MP2100 speak the extended protocol whose replies carry a third status
// word; the MP20 speaks the standard one.
package bematech

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stoqdrivers/go-ecf/format"
	"github.com/stoqdrivers/go-ecf/internal/frame"
)

const brand = "bematech"

const (
	numTaxSlots       = 16
	numPaymentMethods = 20
	paymentNameWidth  = 16
	moneyWidth        = 14
	priceWidth        = 8
	quantityWidth     = 7
	percentWidth      = 4
	codeWidth         = 14
	messageMax        = 384
	subtotalSize      = 7
)

// Driver talks to one Bematech printer
type Driver struct {
	port  ecf.Port
	now   func() time.Time
	model model

	total  decimal.Decimal
	paid   decimal.Decimal
	items  int
	opened bool
}

func newDriver(port ecf.Port, m model) (*Driver, error) {
	if port == nil {
		return nil, ecf.NewError(ecf.KindConfig, "nil port")
	}
	return &Driver{port: port, model: m, now: time.Now}, nil
}

// NewMP25 creates an MP25 driver
func NewMP25(port ecf.Port) (*Driver, error) { return newDriver(port, mp25) }

// NewMP20 creates an MP20 driver
func NewMP20(port ecf.Port) (*Driver, error) { return newDriver(port, mp20) }

// NewMP2100 creates an MP2100 driver
func NewMP2100(port ecf.Port) (*Driver, error) { return newDriver(port, mp2100) }

func init() {
	ecf.Register(brand, "mp25", func(p ecf.Port) (ecf.Driver, error) { return NewMP25(p) })
	ecf.Register(brand, "mp20", func(p ecf.Port) (ecf.Driver, error) { return NewMP20(p) })
	ecf.Register(brand, "mp2100", func(p ecf.Port) (ecf.Driver, error) { return NewMP2100(p) })
}

// Info returns brand and model
func (d *Driver) Info() ecf.Info {
	return ecf.Info{Brand: brand, Model: d.model.name}
}

// Charset is cp850 on every Bematech model
func (*Driver) Charset() codec.Charset { return codec.CP850 }

// Capabilities returns the model's argument limits
func (d *Driver) Capabilities() ecf.Capabilities {
	caps := ecf.Capabilities{
		ecf.CapItemCode:           ecf.TextCapability(1, codeWidth),
		ecf.CapItemDescription:    ecf.TextCapability(1, d.model.descMax),
		ecf.CapItemPrice:          ecf.ValueCapability(6, 2),
		ecf.CapItemQuantity:       ecf.ValueCapability(4, 3),
		ecf.CapItemDiscount:       ecf.ValueCapability(2, 2),
		ecf.CapItemSurcharge:      ecf.ValueCapability(2, 2),
		ecf.CapItemUnitDesc:       ecf.TextCapability(0, 2),
		ecf.CapCustomerID:         ecf.TextCapability(0, d.model.docWidth),
		ecf.CapPaymentValue:       ecf.ValueCapability(12, 2),
		ecf.CapPaymentDescription: ecf.TextCapability(0, 80),
		ecf.CapPromotionalMessage: ecf.TextCapability(0, messageMax),
		ecf.CapTotalizeDiscount:   ecf.ValueCapability(2, 2),
		ecf.CapTotalizeSurcharge:  ecf.ValueCapability(2, 2),
		ecf.CapAddCashValue:       ecf.ValueCapability(12, 2),
		ecf.CapRemoveCashValue:    ecf.ValueCapability(12, 2),
	}
	if d.model.nameWidth > 0 {
		caps[ecf.CapCustomerName] = ecf.TextCapability(0, d.model.nameWidth)
		caps[ecf.CapCustomerAddress] = ecf.TextCapability(0, d.model.addrWidth)
	}
	return caps
}

func (*Driver) text(s string, width int) []byte {
	b, err := format.Field(s, width, true, codec.CP850)
	if err != nil {
		panic(err)
	}
	return b
}

func (*Driver) encode(s string) []byte {
	b, err := codec.Encode(s, codec.CP850)
	if err != nil {
		panic(err)
	}
	return b
}

func (d *Driver) resetCoupon() {
	d.opened = false
	d.items = 0
	d.total = decimal.Zero
	d.paid = decimal.Zero
}

// OpenCoupon opens a fiscal coupon. Customer data is sent only when given.
func (d *Driver) OpenCoupon(ctx context.Context, c ecf.Customer) error {
	var args []byte
	if !c.IsZero() {
		args = append(args, d.text(c.Document, d.model.docWidth)...)
		if d.model.nameWidth > 0 {
			args = append(args, d.text(c.Name, d.model.nameWidth)...)
			args = append(args, d.text(c.Address, d.model.addrWidth)...)
		}
	}
	if _, st, err := d.sendStatus(ctx, cmdOpenCoupon, args, 0); err != nil {
		if st.staleCoupon(d.model.extended) {
			return ecf.NewError(ecf.KindCouponOpen, "fiscal coupon already open")
		}
		return err
	}
	d.resetCoupon()
	d.opened = true
	return nil
}

func adjustment(discount, surcharge decimal.Decimal) (byte, decimal.Decimal) {
	if surcharge.IsPositive() {
		return 'A', surcharge
	}
	return 'D', discount
}

// AddItem sells one item and returns its sequence number in the coupon
func (d *Driver) AddItem(ctx context.Context, item ecf.Item) (int, error) {
	flag, pct := adjustment(item.Discount, item.Surcharge)
	args := make([]byte, 0, 64+len(item.Desc))
	args = append(args, d.text(item.Tax.Token, 2)...)
	args = append(args, format.Quantity(item.Quantity, quantityWidth, 3)...)
	args = append(args, format.Money(item.Price, priceWidth)...)
	args = append(args, flag)
	args = append(args, format.Money(pct, percentWidth)...)
	args = append(args, d.text(ecf.UnitLabel(item.Unit, item.UnitDesc), 2)...)
	args = append(args, d.text(item.Code, codeWidth)...)
	if d.model.extended {
		args = append(args, d.encode(item.Desc)...)
		args = append(args, 0x00)
	} else {
		args = append(args, d.text(item.Desc, d.model.descMax)...)
	}
	if _, err := d.send(ctx, cmdAddItem, args, 0); err != nil {
		return 0, err
	}
	d.items++
	return d.items, nil
}

// CancelItem cancels item id
func (d *Driver) CancelItem(ctx context.Context, id int) error {
	if id == 0 {
		id = d.items
	}
	_, err := d.send(ctx, cmdCancelItem, []byte(format.Number(int64(id), 4)), 0)
	return err
}

// CancelCoupon cancels the open coupon. With no coupon open the MP25
// family cancels the last coupon; the MP20 has no such command and
// issues the plain cancel.
func (d *Driver) CancelCoupon(ctx context.Context) error {
	cmd := byte(cmdCancelCoupon)
	if !d.opened && d.model.hasCancelLast {
		cmd = cmdCancelLastCoupon
	}
	if _, err := d.send(ctx, cmd, nil, 0); err != nil {
		return err
	}
	d.resetCoupon()
	return nil
}

// Totalize starts closing the coupon and returns its subtotal
func (d *Driver) Totalize(ctx context.Context, discount, surcharge decimal.Decimal, _ ecf.TaxConstant) (decimal.Decimal, error) {
	flag, pct := adjustment(discount, surcharge)
	args := append([]byte{flag}, format.Money(pct, percentWidth)...)
	if _, err := d.send(ctx, cmdTotalize, args, 0); err != nil {
		return decimal.Zero, err
	}
	raw, err := d.send(ctx, cmdSubtotal, nil, subtotalSize)
	if err != nil {
		return decimal.Zero, err
	}
	total, err := bcdMoney(raw)
	if err != nil {
		return decimal.Zero, err
	}
	d.total = total
	return total, nil
}

// AddPayment registers a payment and returns what is left to pay
func (d *Driver) AddPayment(ctx context.Context, p ecf.Payment) (decimal.Decimal, error) {
	args := d.text(p.Token, 2)
	args = append(args, format.Money(p.Value, moneyWidth)...)
	if p.Description != "" && d.model.extended {
		args = append(args, d.text(p.Description, 80)...)
	}
	if _, err := d.send(ctx, cmdAddPayment, args, 0); err != nil {
		return decimal.Zero, err
	}
	d.paid = d.paid.Add(p.Value)
	remainder := d.total.Sub(d.paid)
	if remainder.IsNegative() {
		remainder = decimal.Zero
	}
	return remainder, nil
}

// CloseCoupon prints the promotional message, closes the coupon and
// returns its COO
func (d *Driver) CloseCoupon(ctx context.Context, message string) (int, error) {
	if _, err := d.send(ctx, cmdCloseCoupon, d.encode(message), 0); err != nil {
		return 0, err
	}
	d.resetCoupon()
	return d.readInt(ctx, regCOO)
}

// Summarize issues a read X
func (d *Driver) Summarize(ctx context.Context) error {
	_, err := d.send(ctx, cmdReadX, nil, 0)
	return err
}

// CloseTill issues a Z reduction and returns the day's summary, read
// from the registers before the reduction clears them
func (d *Driver) CloseTill(ctx context.Context, _ bool) (*ecf.Sintegra, error) {
	s, err := d.sintegra(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := d.send(ctx, cmdReduceZ, nil, 0); err != nil {
		return nil, err
	}
	s.CRZ++
	return s, nil
}

func (d *Driver) sintegra(ctx context.Context) (*ecf.Sintegra, error) {
	serial, err := d.Serial(ctx)
	if err != nil {
		return nil, err
	}
	counters, err := d.Counters(ctx)
	if err != nil {
		return nil, err
	}
	startCOO, err := d.readInt(ctx, regDayStartCOO)
	if err != nil {
		return nil, err
	}
	gt, err := d.readMoney(ctx, regGrandTotal)
	if err != nil {
		return nil, err
	}
	startGT, err := d.readMoney(ctx, regDayStartGT)
	if err != nil {
		return nil, err
	}
	taxes, err := d.taxTotals(ctx)
	if err != nil {
		return nil, err
	}
	now := d.now()
	return &ecf.Sintegra{
		OpeningDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		Serial:      serial,
		SerialID:    1,
		COOStart:    startCOO,
		COOEnd:      counters.COO,
		CRO:         counters.CRO,
		CRZ:         counters.CRZ,
		PeriodTotal: gt.Sub(startGT),
		Total:       gt,
		Taxes:       taxes,
	}, nil
}

func (d *Driver) taxTotals(ctx context.Context) ([]ecf.SintegraTax, error) {
	raw, err := d.readRaw(ctx, regTaxTotals)
	if err != nil {
		return nil, err
	}
	rates, err := d.TaxConstants(ctx)
	if err != nil {
		return nil, err
	}
	var out []ecf.SintegraTax
	for _, tc := range rates {
		if !tc.Type.HasRate() {
			continue
		}
		var slot int
		if _, err := fmt.Sscanf(tc.Token, "%02d", &slot); err != nil || slot < 1 || slot > numTaxSlots {
			continue
		}
		v, err := bcdMoney(raw[(slot-1)*7 : slot*7])
		if err != nil {
			return nil, err
		}
		out = append(out, ecf.SintegraTax{Code: format.Money(tc.Rate, percentWidth), Value: v})
	}
	return out, nil
}

func (d *Driver) voucher(ctx context.Context, kind byte, value decimal.Decimal) error {
	args := append([]byte{kind}, format.Money(value, moneyWidth)...)
	_, err := d.send(ctx, cmdCashVoucher, args, 0)
	return err
}

// TillAddCash registers a cash supply
func (d *Driver) TillAddCash(ctx context.Context, value decimal.Decimal) error {
	return d.voucher(ctx, voucherAdd, value)
}

// TillRemoveCash registers a cash withdrawal
func (d *Driver) TillRemoveCash(ctx context.Context, value decimal.Decimal) error {
	return d.voucher(ctx, voucherRemove, value)
}

// TillReadMemory prints the fiscal memory between two dates
func (d *Driver) TillReadMemory(ctx context.Context, start, end time.Time) error {
	args := []byte(format.ShortDate(start) + format.ShortDate(end))
	args = append(args, printReport)
	_, err := d.send(ctx, cmdReadMemory, args, 0)
	return err
}

// TillReadMemoryByReductions prints the fiscal memory between two Z reductions
func (d *Driver) TillReadMemoryByReductions(ctx context.Context, start, end int) error {
	args := []byte(format.Number(int64(start), 6) + format.Number(int64(end), 6))
	args = append(args, printReport)
	_, err := d.send(ctx, cmdReadMemory, args, 0)
	return err
}

// TaxConstants reads the programmed rates. Slots flagged in the ISS
// register are service taxes.
func (d *Driver) TaxConstants(ctx context.Context) ([]ecf.TaxConstant, error) {
	raw, err := d.send(ctx, cmdReadTaxCodes, nil, 1+2*numTaxSlots)
	if err != nil {
		return nil, err
	}
	flags, err := d.readRaw(ctx, regISSFlags)
	if err != nil {
		return nil, err
	}
	iss := uint16(flags[0])<<8 | uint16(flags[1])

	out := []ecf.TaxConstant{
		{Type: ecf.TaxSubstitution, Token: "FF"},
		{Type: ecf.TaxExemption, Token: "II"},
		{Type: ecf.TaxNone, Token: "NN"},
	}
	count := int(raw[0])
	if count > numTaxSlots {
		count = numTaxSlots
	}
	for i := 0; i < count; i++ {
		v, err := format.BCDToInt(raw[1+2*i : 3+2*i])
		if err != nil {
			return nil, ecf.WrapError(ecf.KindComm, "malformed tax table", err)
		}
		typ := ecf.TaxICMS
		if iss&(1<<(15-i)) != 0 {
			typ = ecf.TaxService
		}
		out = append(out, ecf.TaxConstant{
			Type:  typ,
			Token: format.Number(int64(i+1), 2),
			Rate:  decimal.New(int64(v), -2),
		})
	}
	return out, nil
}

// PaymentConstants reads the programmed payment methods
func (d *Driver) PaymentConstants(ctx context.Context) ([]ecf.PaymentConstant, error) {
	raw, err := d.send(ctx, cmdPaymentMethods, nil, numPaymentMethods*paymentNameWidth)
	if err != nil {
		return nil, err
	}
	var out []ecf.PaymentConstant
	for i := 0; i < numPaymentMethods; i++ {
		name, err := codec.Decode(raw[i*paymentNameWidth:(i+1)*paymentNameWidth], codec.CP850)
		if err != nil {
			return nil, err
		}
		name = trimField(name)
		if name == "" {
			continue
		}
		out = append(out, ecf.PaymentConstant{Token: format.Number(int64(i+1), 2), Label: name})
	}
	return out, nil
}

// Serial returns the device serial number
func (d *Driver) Serial(ctx context.Context) (string, error) {
	return d.readText(ctx, regSerial)
}

// Firmware returns the firmware version as major.minor
func (d *Driver) Firmware(ctx context.Context) (string, error) {
	v, err := d.readInt(ctx, regFirmware)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d.%02d", v/100, v%100), nil
}

// Counters reads COO, GNF, CRZ, CRO and CCF. The MP20 has no CCF
// register and reports COO in its place.
func (d *Driver) Counters(ctx context.Context) (ecf.Counters, error) {
	var c ecf.Counters
	var err error
	if c.COO, err = d.readInt(ctx, regCOO); err != nil {
		return c, err
	}
	if c.GNF, err = d.readInt(ctx, regGNF); err != nil {
		return c, err
	}
	if c.CRZ, err = d.readInt(ctx, regCRZ); err != nil {
		return c, err
	}
	if c.CRO, err = d.readInt(ctx, regCRO); err != nil {
		return c, err
	}
	if !d.model.hasCCF {
		c.CCF = c.COO
		return c, nil
	}
	c.CCF, err = d.readInt(ctx, regCCF)
	return c, err
}

// QueryStatus sends the status command and returns the raw reply,
// including the ACK and status tail
func (d *Driver) QueryStatus(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pkt := d.statusRequest()
	ecf.LogTx(d.port.Name(), pkt)
	if err := d.port.Write(pkt); err != nil {
		return nil, err
	}
	return readUntilComplete(d.port, d.StatusReplyComplete)
}

// StatusReplyComplete reports whether reply is a NAK or an ACK followed
// by the full status tail
func (d *Driver) StatusReplyComplete(reply []byte) bool {
	if len(reply) == 0 {
		return false
	}
	if reply[0] == frame.NAK {
		return true
	}
	return reply[0] == frame.ACK && len(reply) >= 1+d.tailLen()
}

// Close closes the port
func (d *Driver) Close() error {
	return d.port.Close()
}
