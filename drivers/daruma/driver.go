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

// Package daruma drives the Daruma FS345 and FS2100 fiscal printers.
//
// Commands are ESC, a three digit code, arguments and CR; replies are
// ':' payload CR, with ':Ennnn' reporting a device error. The FS2100
// adds XOR-checked extended commands prefixed with ESC FS 'F'.
package daruma

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stoqdrivers/go-ecf/format"
	"github.com/stoqdrivers/go-ecf/internal/frame"
)

const brand = "daruma"

const (
	moneyWidth       = 12
	priceWidth       = 9
	quantityWidth    = 6
	percentWidth     = 4
	codeWidth        = 13
	descWidth        = 29
	longDescMax      = 200
	documentWidth    = 20
	paymentNameWidth = 16
	taxEntryWidth    = 5
	cooWidth         = 6
)

// Register selectors for cmdReadRegister
const (
	regSerial   = "00"
	regCOO      = "01"
	regGNF      = "02"
	regCRZ      = "03"
	regCRO      = "04"
	regFirmware = "05"
	regCCF      = "06"
)

// Fixed tax tokens
const (
	tokenSubstitution = "Fb"
	tokenExemption    = "Ib"
	tokenNone         = "Nb"
)

// Driver talks to one Daruma FS345
type Driver struct {
	port  ecf.Port
	name  string
	items int
}

// FS2100 is an FS345 with extended commands
type FS2100 struct {
	*Driver
}

// NewFS345 creates an FS345 driver
func NewFS345(port ecf.Port) (*Driver, error) {
	if port == nil {
		return nil, ecf.NewError(ecf.KindConfig, "nil port")
	}
	return &Driver{port: port, name: "FS345"}, nil
}

// NewFS2100 creates an FS2100 driver
func NewFS2100(port ecf.Port) (*FS2100, error) {
	d, err := NewFS345(port)
	if err != nil {
		return nil, err
	}
	d.name = "FS2100"
	return &FS2100{Driver: d}, nil
}

func init() {
	ecf.Register(brand, "fs345", func(p ecf.Port) (ecf.Driver, error) { return NewFS345(p) })
	ecf.Register(brand, "fs2100", func(p ecf.Port) (ecf.Driver, error) { return NewFS2100(p) })
}

// Info returns brand and model
func (d *Driver) Info() ecf.Info { return ecf.Info{Brand: brand, Model: d.name} }

// Charset is abicomp
func (*Driver) Charset() codec.Charset { return codec.ABICOMP }

// Capabilities returns the FS345 argument limits
func (*Driver) Capabilities() ecf.Capabilities {
	return ecf.Capabilities{
		ecf.CapItemCode:           ecf.TextCapability(1, codeWidth),
		ecf.CapItemDescription:    ecf.TextCapability(1, descWidth),
		ecf.CapItemPrice:          ecf.ValueCapability(7, 2),
		ecf.CapItemQuantity:       ecf.ValueCapability(3, 3),
		ecf.CapItemDiscount:       ecf.ValueCapability(2, 2),
		ecf.CapItemSurcharge:      ecf.ValueCapability(2, 2),
		ecf.CapItemUnitDesc:       ecf.TextCapability(0, 2),
		ecf.CapCustomerID:         ecf.TextCapability(0, documentWidth),
		ecf.CapPaymentValue:       ecf.ValueCapability(10, 2),
		ecf.CapPaymentDescription: ecf.TextCapability(0, 48),
		ecf.CapPromotionalMessage: ecf.TextCapability(0, 8*48),
		ecf.CapTotalizeDiscount:   ecf.ValueCapability(2, 2),
		ecf.CapTotalizeSurcharge:  ecf.ValueCapability(2, 2),
		ecf.CapAddCashValue:       ecf.ValueCapability(10, 2),
		ecf.CapRemoveCashValue:    ecf.ValueCapability(10, 2),
	}
}

// Capabilities widens the FS345 limits with long descriptions and full
// customer identification
func (f *FS2100) Capabilities() ecf.Capabilities {
	caps := f.Driver.Capabilities()
	caps[ecf.CapItemDescription] = ecf.TextCapability(1, longDescMax)
	caps[ecf.CapCustomerName] = ecf.TextCapability(0, 40)
	caps[ecf.CapCustomerAddress] = ecf.TextCapability(0, 80)
	return caps
}

func text(s string, width int) []byte {
	b, err := format.Field(s, width, true, codec.ABICOMP)
	if err != nil {
		panic(err)
	}
	return b
}

func encode(s string) []byte {
	b, err := codec.Encode(s, codec.ABICOMP)
	if err != nil {
		panic(err)
	}
	return b
}

func parseMoney(payload []byte) (decimal.Decimal, error) {
	v, err := format.ParseMoney(string(payload))
	if err != nil {
		return decimal.Zero, ecf.WrapError(ecf.KindComm, "malformed value", err)
	}
	return v, nil
}

// OpenCoupon opens a coupon. The FS345 prints only the customer document.
func (d *Driver) OpenCoupon(ctx context.Context, c ecf.Customer) error {
	st, err := d.Status(ctx)
	if err != nil {
		return err
	}
	if err := st.openable(); err != nil {
		return err
	}
	var args []byte
	if c.Document != "" {
		args = text(c.Document, documentWidth)
	}
	if _, err := d.send(ctx, cmdOpenCoupon, args); err != nil {
		return err
	}
	d.items = 0
	return nil
}

// OpenCoupon opens a coupon and identifies the customer through the
// extended command set
func (f *FS2100) OpenCoupon(ctx context.Context, c ecf.Customer) error {
	if err := f.Driver.OpenCoupon(ctx, ecf.Customer{}); err != nil {
		return err
	}
	if c.IsZero() {
		return nil
	}
	return f.IdentifyCustomer(ctx, c)
}

// IdentifyCustomer prints customer data on the open coupon
func (f *FS2100) IdentifyCustomer(ctx context.Context, c ecf.Customer) error {
	args := text(c.Document, documentWidth)
	args = append(args, text(c.Name, 40)...)
	args = append(args, text(c.Address, 80)...)
	_, err := f.sendExtended(ctx, extIdentifyCustomer, args)
	return err
}

func itemArgs(item ecf.Item) []byte {
	flag, pct := byte('D'), item.Discount
	if item.Surcharge.IsPositive() {
		flag, pct = 'A', item.Surcharge
	}
	args := make([]byte, 0, 64)
	args = append(args, text(item.Tax.Token, 2)...)
	args = append(args, format.Quantity(item.Quantity, quantityWidth, 3)...)
	args = append(args, format.Money(item.Price, priceWidth)...)
	args = append(args, flag)
	args = append(args, format.Money(pct, percentWidth)...)
	args = append(args, text(item.Code, codeWidth)...)
	return append(args, text(ecf.UnitLabel(item.Unit, item.UnitDesc), 2)...)
}

// AddItem sells an item with a description of up to 29 characters
func (d *Driver) AddItem(ctx context.Context, item ecf.Item) (int, error) {
	args := append(itemArgs(item), text(item.Desc, descWidth)...)
	if _, err := d.send(ctx, cmdAddItem, args); err != nil {
		return 0, err
	}
	d.items++
	return d.items, nil
}

// AddItem sells an item; descriptions longer than 29 characters use the
// extended command
func (f *FS2100) AddItem(ctx context.Context, item ecf.Item) (int, error) {
	if len([]rune(item.Desc)) <= descWidth {
		return f.Driver.AddItem(ctx, item)
	}
	args := append(itemArgs(item), encode(item.Desc)...)
	if _, err := f.sendExtended(ctx, extAddItem, args); err != nil {
		return 0, err
	}
	f.items++
	return f.items, nil
}

// CancelItem cancels item id
func (d *Driver) CancelItem(ctx context.Context, id int) error {
	if id == 0 {
		id = d.items
	}
	_, err := d.send(ctx, cmdCancelItem, []byte(format.Number(int64(id), 3)))
	return err
}

// CancelCoupon cancels the open or the last coupon
func (d *Driver) CancelCoupon(ctx context.Context) error {
	_, err := d.send(ctx, cmdCancelCoupon, nil)
	return err
}

// Totalize applies a discount or surcharge percentage and returns the subtotal
func (d *Driver) Totalize(ctx context.Context, discount, surcharge decimal.Decimal, _ ecf.TaxConstant) (decimal.Decimal, error) {
	flag, pct := byte('D'), discount
	if surcharge.IsPositive() {
		flag, pct = 'A', surcharge
	}
	payload, err := d.send(ctx, cmdTotalize, append([]byte{flag}, format.Money(pct, percentWidth)...))
	if err != nil {
		return decimal.Zero, err
	}
	return parseMoney(payload)
}

// AddPayment registers a payment and returns the remainder reported by
// the device
func (d *Driver) AddPayment(ctx context.Context, p ecf.Payment) (decimal.Decimal, error) {
	args := text(p.Token, 1)
	args = append(args, format.Money(p.Value, moneyWidth)...)
	if p.Description != "" {
		args = append(args, text(p.Description, 48)...)
	}
	payload, err := d.send(ctx, cmdAddPayment, args)
	if err != nil {
		return decimal.Zero, err
	}
	return parseMoney(payload)
}

// CloseCoupon prints the message and returns the coupon's COO
func (d *Driver) CloseCoupon(ctx context.Context, message string) (int, error) {
	payload, err := d.send(ctx, cmdCloseCoupon, encode(message))
	if err != nil {
		return 0, err
	}
	coo, err := format.ParseNumber(string(payload))
	if err != nil {
		return 0, ecf.WrapError(ecf.KindComm, "malformed COO", err)
	}
	return int(coo), nil
}

// Summarize issues a read X
func (d *Driver) Summarize(ctx context.Context) error {
	_, err := d.send(ctx, cmdReadX, nil)
	return err
}

// CloseTill issues a Z reduction. Daruma printers produce no summary record.
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

// TaxConstants reads the programmed rates. Each entry is a slot letter
// and a four digit rate; lower case letters are service taxes.
func (d *Driver) TaxConstants(ctx context.Context) ([]ecf.TaxConstant, error) {
	payload, err := d.send(ctx, cmdReadTaxes, nil)
	if err != nil {
		return nil, err
	}
	out := []ecf.TaxConstant{
		{Type: ecf.TaxSubstitution, Token: tokenSubstitution},
		{Type: ecf.TaxExemption, Token: tokenExemption},
		{Type: ecf.TaxNone, Token: tokenNone},
	}
	for i := 0; i+taxEntryWidth <= len(payload); i += taxEntryWidth {
		letter := payload[i]
		rate, err := format.ParseMoney(string(payload[i+1 : i+taxEntryWidth]))
		if err != nil {
			return nil, ecf.WrapError(ecf.KindComm, "malformed tax table", err)
		}
		typ := ecf.TaxICMS
		switch {
		case letter >= 'a' && letter <= 'z':
			typ = ecf.TaxService
		case letter >= 'A' && letter <= 'Z':
		default:
			return nil, ecf.Errorf(ecf.KindComm, "malformed tax slot %q", letter)
		}
		out = append(out, ecf.TaxConstant{Type: typ, Token: "T" + string(letter), Rate: rate})
	}
	return out, nil
}

// PaymentConstants reads the programmed payment methods
func (d *Driver) PaymentConstants(ctx context.Context) ([]ecf.PaymentConstant, error) {
	payload, err := d.send(ctx, cmdPaymentMethods, nil)
	if err != nil {
		return nil, err
	}
	var out []ecf.PaymentConstant
	for i := 0; (i+1)*paymentNameWidth <= len(payload); i++ {
		name, err := codec.Decode(payload[i*paymentNameWidth:(i+1)*paymentNameWidth], codec.ABICOMP)
		if err != nil {
			return nil, err
		}
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		out = append(out, ecf.PaymentConstant{Token: string(rune('A' + i)), Label: name})
	}
	return out, nil
}

func (d *Driver) register(ctx context.Context, sel string) ([]byte, error) {
	return d.send(ctx, cmdReadRegister, []byte(sel))
}

func (d *Driver) registerInt(ctx context.Context, sel string) (int, error) {
	payload, err := d.register(ctx, sel)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return 0, ecf.WrapError(ecf.KindComm, "malformed register", err)
	}
	return n, nil
}

// Serial returns the device serial number
func (d *Driver) Serial(ctx context.Context) (string, error) {
	payload, err := d.register(ctx, regSerial)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(payload)), nil
}

// Firmware returns the firmware version
func (d *Driver) Firmware(ctx context.Context) (string, error) {
	payload, err := d.register(ctx, regFirmware)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(payload)), nil
}

func (d *Driver) counters(ctx context.Context) (ecf.Counters, error) {
	var c ecf.Counters
	var err error
	if c.COO, err = d.registerInt(ctx, regCOO); err != nil {
		return c, err
	}
	if c.GNF, err = d.registerInt(ctx, regGNF); err != nil {
		return c, err
	}
	if c.CRZ, err = d.registerInt(ctx, regCRZ); err != nil {
		return c, err
	}
	c.CRO, err = d.registerInt(ctx, regCRO)
	return c, err
}

// Counters reads the device counters. The FS345 has no CCF and reports COO.
func (d *Driver) Counters(ctx context.Context) (ecf.Counters, error) {
	c, err := d.counters(ctx)
	c.CCF = c.COO
	return c, err
}

// Counters reads the device counters including CCF
func (f *FS2100) Counters(ctx context.Context) (ecf.Counters, error) {
	c, err := f.counters(ctx)
	if err != nil {
		return c, err
	}
	payload, err := f.sendExtended(ctx, extReadRegister, []byte(regCCF))
	if err != nil {
		return c, err
	}
	ccf, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return c, ecf.WrapError(ecf.KindComm, "malformed CCF", err)
	}
	c.CCF = ccf
	return c, nil
}

// QueryStatus sends the status command and returns the raw reply line
func (d *Driver) QueryStatus(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pkt := standardFrame(cmdStatus, nil)
	ecf.LogTx(d.port.Name(), pkt)
	if err := d.port.Write(pkt); err != nil {
		return nil, err
	}
	reply, err := d.port.ReadUntil([]byte{frame.CR})
	if err != nil {
		return nil, err
	}
	ecf.LogRx(d.port.Name(), reply)
	return reply, nil
}

// StatusReplyComplete reports whether reply is a full ':' ... CR line
func (*Driver) StatusReplyComplete(reply []byte) bool {
	return len(reply) >= 2 && reply[0] == replyPrefix && reply[len(reply)-1] == frame.CR
}

// Status reads and decodes the status word
func (d *Driver) Status(ctx context.Context) (Status, error) {
	payload, err := d.send(ctx, cmdStatus, nil)
	if err != nil {
		return Status{}, err
	}
	return parseStatus(payload)
}

func parseStatus(payload []byte) (Status, error) {
	if len(payload) != 4 {
		return Status{}, ecf.Errorf(ecf.KindComm, "malformed status word %q", payload)
	}
	raw, err := hex.DecodeString(string(payload))
	if err != nil {
		return Status{}, ecf.WrapError(ecf.KindComm, "malformed status word", err)
	}
	return Status{ST1: raw[0], ST2: raw[1]}, nil
}

// Close closes the port
func (d *Driver) Close() error {
	return d.port.Close()
}
