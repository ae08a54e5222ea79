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

// Package virtual is an in-memory fiscal printer. It keeps the same
// coupon state machine and counters a real device does and prints a
// plain text journal to its port, which is normally an ecf.VirtualPort.
package virtual

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stoqdrivers/go-ecf/format"
)

const (
	brand = "virtual"
	model = "Simulator"

	defaultSerial   = "VIRTUAL00000001"
	defaultFirmware = "01.00.00"
)

type item struct {
	total     decimal.Decimal
	tax       string
	cancelled bool
}

// Driver simulates one fiscal printer. It is safe for concurrent use so
// a status probe can run alongside a coupon.
type Driver struct {
	mu   sync.Mutex
	port ecf.Port
	now  func() time.Time

	serial   string
	taxes    []ecf.TaxConstant
	payments []ecf.PaymentConstant
	counters ecf.Counters

	customer ecf.Customer
	items    []item
	total    decimal.Decimal
	paid     decimal.Decimal
	open     bool
	totaled  bool
	lastCOO  int

	dayOpen     time.Time
	dayCOOStart int
	dayTotal    decimal.Decimal
	dayTaxes    map[string]decimal.Decimal
	grandTotal  decimal.Decimal
	lastZ       time.Time

	pendingReadX     bool
	pendingReduceZ   bool
	outOfPaper       bool
	almostOutOfPaper bool
	offline          bool
}

// New creates a simulator printing to port. A nil port gets an
// ecf.VirtualPort.
func New(port ecf.Port) (*Driver, error) {
	if port == nil {
		port = ecf.NewVirtualPort()
	}
	d := &Driver{
		port:   port,
		now:    time.Now,
		serial: defaultSerial,
		taxes: []ecf.TaxConstant{
			{Type: ecf.TaxSubstitution, Token: "F"},
			{Type: ecf.TaxExemption, Token: "I"},
			{Type: ecf.TaxNone, Token: "N"},
			{Type: ecf.TaxICMS, Token: "T01", Rate: decimal.NewFromInt(18)},
			{Type: ecf.TaxICMS, Token: "T02", Rate: decimal.NewFromInt(12)},
			{Type: ecf.TaxService, Token: "S01", Rate: decimal.NewFromInt(5)},
		},
		payments: []ecf.PaymentConstant{
			{Token: "01", Label: "Dinheiro"},
			{Token: "02", Label: "Cheque"},
			{Token: "03", Label: "Cartao"},
		},
		counters: ecf.Counters{CRO: 1},
		dayTaxes: make(map[string]decimal.Decimal),
	}
	return d, nil
}

func init() {
	ctor := func(p ecf.Port) (ecf.Driver, error) { return New(p) }
	ecf.Register(brand, "simulator", ctor)
	ecf.Register(brand, "virtual", ctor)
}

// SetClock replaces the wall clock used for the fiscal day
func (d *Driver) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// SetPendingReadX makes the next coupon opening fail until a read X
func (d *Driver) SetPendingReadX(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pendingReadX = v
}

// SetPendingReduceZ makes fiscal operations fail until a Z reduction
func (d *Driver) SetPendingReduceZ(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pendingReduceZ = v
}

// SetOutOfPaper makes every printing operation fail
func (d *Driver) SetOutOfPaper(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outOfPaper = v
}

// SetAlmostOutOfPaper raises the paper near-end warning
func (d *Driver) SetAlmostOutOfPaper(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.almostOutOfPaper = v
}

// SetOffline makes the simulator stop answering
func (d *Driver) SetOffline(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offline = v
}

// Info returns brand and model
func (*Driver) Info() ecf.Info { return ecf.Info{Brand: brand, Model: model} }

// Charset is latin-1
func (*Driver) Charset() codec.Charset { return codec.Latin1 }

// Capabilities mirrors a typical extended protocol printer
func (*Driver) Capabilities() ecf.Capabilities {
	return ecf.Capabilities{
		ecf.CapItemCode:           ecf.TextCapability(1, 14),
		ecf.CapItemDescription:    ecf.TextCapability(1, 200),
		ecf.CapItemPrice:          ecf.ValueCapability(6, 2),
		ecf.CapItemQuantity:       ecf.ValueCapability(4, 3),
		ecf.CapItemDiscount:       ecf.ValueCapability(2, 2),
		ecf.CapItemSurcharge:      ecf.ValueCapability(2, 2),
		ecf.CapItemUnitDesc:       ecf.TextCapability(0, 2),
		ecf.CapCustomerName:       ecf.TextCapability(0, 30),
		ecf.CapCustomerID:         ecf.TextCapability(0, 28),
		ecf.CapCustomerAddress:    ecf.TextCapability(0, 80),
		ecf.CapPaymentValue:       ecf.ValueCapability(12, 2),
		ecf.CapPaymentDescription: ecf.TextCapability(0, 80),
		ecf.CapPromotionalMessage: ecf.TextCapability(0, 492),
		ecf.CapTotalizeDiscount:   ecf.ValueCapability(2, 2),
		ecf.CapTotalizeSurcharge:  ecf.ValueCapability(2, 2),
		ecf.CapAddCashValue:       ecf.ValueCapability(12, 2),
		ecf.CapRemoveCashValue:    ecf.ValueCapability(12, 2),
	}
}

func (d *Driver) print(ctx context.Context, f string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.offline {
		return ecf.ErrTimeout
	}
	if d.outOfPaper {
		return ecf.NewError(ecf.KindOutOfPaper, "out of paper")
	}
	if d.almostOutOfPaper {
		ecf.WarnStatus(ecf.NewError(ecf.KindAlmostOutOfPaper, "paper near end"))
	}
	line, err := codec.Encode(fmt.Sprintf(f, args...)+"\n", codec.Latin1)
	if err != nil {
		return err
	}
	return d.port.Write(line)
}

// document starts a new document, checking the fiscal day
func (d *Driver) document() error {
	if d.pendingReduceZ {
		return ecf.NewError(ecf.KindPendingReduceZ, "Z reduction of the previous day is pending")
	}
	if d.dayOpen.IsZero() {
		d.dayOpen = d.now()
		d.dayCOOStart = d.counters.COO + 1
	}
	return nil
}

// OpenCoupon opens a coupon
func (d *Driver) OpenCoupon(ctx context.Context, c ecf.Customer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return ecf.NewError(ecf.KindCouponOpen, "coupon already open")
	}
	if d.pendingReadX {
		return ecf.NewError(ecf.KindPendingReadX, "read X pending")
	}
	if err := d.document(); err != nil {
		return err
	}
	if err := d.print(ctx, "CUPOM FISCAL COO %06d", d.counters.COO+1); err != nil {
		return err
	}
	if !c.IsZero() {
		d.customer = c
		if err := d.print(ctx, "CONSUMIDOR %s %s %s", c.Document, c.Name, c.Address); err != nil {
			return err
		}
	}
	d.counters.COO++
	d.items = nil
	d.total = decimal.Zero
	d.paid = decimal.Zero
	d.open = true
	d.totaled = false
	return nil
}

// IdentifyCustomer prints the customer on the open coupon
func (d *Driver) IdentifyCustomer(ctx context.Context, c ecf.Customer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ecf.NewError(ecf.KindCouponNotOpen, "no coupon open")
	}
	d.customer = c
	return d.print(ctx, "CONSUMIDOR %s %s %s", c.Document, c.Name, c.Address)
}

func (d *Driver) knownTax(token string) bool {
	for _, t := range d.taxes {
		if t.Token == token {
			return true
		}
	}
	return false
}

func applyPercent(v, discount, surcharge decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	v = v.Sub(v.Mul(discount).Div(hundred))
	return v.Add(v.Mul(surcharge).Div(hundred)).Truncate(2)
}

// AddItem registers an item and returns its number
func (d *Driver) AddItem(ctx context.Context, it ecf.Item) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0, ecf.NewError(ecf.KindCouponNotOpen, "no coupon open")
	}
	if d.totaled {
		return 0, ecf.NewError(ecf.KindAlreadyTotalized, "coupon already totalized")
	}
	if !d.knownTax(it.Tax.Token) {
		return 0, ecf.Errorf(ecf.KindItemAddition, "tax %q not programmed", it.Tax.Token)
	}
	total := applyPercent(it.Total(), it.Discount, it.Surcharge)
	id := len(d.items) + 1
	err := d.print(ctx, "%03d %s %s %s x %s %s %s", id, it.Code, it.Desc,
		it.Quantity.StringFixed(3), it.Price.StringFixed(2), it.Tax.Token, total.StringFixed(2))
	if err != nil {
		return 0, err
	}
	d.items = append(d.items, item{total: total, tax: it.Tax.Token})
	return id, nil
}

// CancelItem cancels item id; 0 cancels the last live item
func (d *Driver) CancelItem(ctx context.Context, id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ecf.NewError(ecf.KindCouponNotOpen, "no coupon open")
	}
	if d.totaled {
		return ecf.NewError(ecf.KindAlreadyTotalized, "coupon already totalized")
	}
	if id == 0 {
		for i := len(d.items); i > 0; i-- {
			if !d.items[i-1].cancelled {
				id = i
				break
			}
		}
	}
	if id < 1 || id > len(d.items) || d.items[id-1].cancelled {
		return ecf.Errorf(ecf.KindCancelItem, "item %d cannot be cancelled", id)
	}
	if err := d.print(ctx, "CANCELAMENTO ITEM %03d", id); err != nil {
		return err
	}
	d.items[id-1].cancelled = true
	return nil
}

// CancelCoupon cancels the open coupon, or the last closed one
func (d *Driver) CancelCoupon(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.open:
		if err := d.print(ctx, "CUPOM CANCELADO COO %06d", d.counters.COO); err != nil {
			return err
		}
		d.open = false
	case d.lastCOO > 0:
		if err := d.print(ctx, "CANCELAMENTO COO %06d", d.lastCOO); err != nil {
			return err
		}
		d.counters.COO++
		d.lastCOO = 0
	default:
		return ecf.NewError(ecf.KindCouponNotOpen, "no coupon to cancel")
	}
	return nil
}

func (d *Driver) subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range d.items {
		if !it.cancelled {
			total = total.Add(it.total)
		}
	}
	return total
}

// Totalize applies the coupon discount or surcharge and returns the total
func (d *Driver) Totalize(ctx context.Context, discount, surcharge decimal.Decimal, _ ecf.TaxConstant) (decimal.Decimal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return decimal.Zero, ecf.NewError(ecf.KindCouponNotOpen, "no coupon open")
	}
	if d.totaled {
		return decimal.Zero, ecf.NewError(ecf.KindAlreadyTotalized, "coupon already totalized")
	}
	total := applyPercent(d.subtotal(), discount, surcharge)
	if !total.IsPositive() {
		return decimal.Zero, ecf.NewError(ecf.KindCouponTotalize, "coupon total is zero")
	}
	if err := d.print(ctx, "TOTAL %s", total.StringFixed(2)); err != nil {
		return decimal.Zero, err
	}
	d.total = total
	d.totaled = true
	return total, nil
}

// AddPayment registers a payment and returns the remainder
func (d *Driver) AddPayment(ctx context.Context, p ecf.Payment) (decimal.Decimal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.totaled {
		return decimal.Zero, ecf.NewError(ecf.KindPaymentAddition, "coupon not totalized")
	}
	label := ""
	for _, m := range d.payments {
		if m.Token == p.Token {
			label = m.Label
		}
	}
	if label == "" {
		return decimal.Zero, ecf.Errorf(ecf.KindPaymentAddition, "payment method %q not programmed", p.Token)
	}
	if err := d.print(ctx, "%s %s %s", label, p.Value.StringFixed(2), p.Description); err != nil {
		return decimal.Zero, err
	}
	d.paid = d.paid.Add(p.Value)
	return d.total.Sub(d.paid), nil
}

// CloseCoupon closes the coupon and returns its COO
func (d *Driver) CloseCoupon(ctx context.Context, message string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0, ecf.NewError(ecf.KindCouponNotOpen, "no coupon open")
	}
	if !d.totaled {
		return 0, ecf.NewError(ecf.KindCloseCoupon, "coupon not totalized")
	}
	if d.paid.LessThan(d.total) {
		return 0, ecf.NewError(ecf.KindCloseCoupon, "payments do not cover the coupon total")
	}
	if message != "" {
		if err := d.print(ctx, "%s", message); err != nil {
			return 0, err
		}
	}
	if err := d.print(ctx, "TROCO %s", d.paid.Sub(d.total).StringFixed(2)); err != nil {
		return 0, err
	}
	for _, it := range d.items {
		if !it.cancelled {
			d.dayTaxes[it.tax] = d.dayTaxes[it.tax].Add(it.total)
		}
	}
	d.dayTotal = d.dayTotal.Add(d.total)
	d.grandTotal = d.grandTotal.Add(d.total)
	d.counters.CCF++
	d.open = false
	d.totaled = false
	d.customer = ecf.Customer{}
	d.lastCOO = d.counters.COO
	return d.counters.COO, nil
}

// Summarize issues a read X
func (d *Driver) Summarize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return ecf.NewError(ecf.KindCouponOpen, "coupon open")
	}
	if err := d.document(); err != nil {
		return err
	}
	if err := d.print(ctx, "LEITURA X COO %06d", d.counters.COO+1); err != nil {
		return err
	}
	d.counters.COO++
	d.counters.GNF++
	d.pendingReadX = false
	d.lastCOO = 0
	return nil
}

// CloseTill issues a Z reduction and returns the day summary
func (d *Driver) CloseTill(ctx context.Context, previousDay bool) (*ecf.Sintegra, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil, ecf.NewError(ecf.KindCouponOpen, "coupon open")
	}
	now := d.now()
	if !d.lastZ.IsZero() && sameDay(d.lastZ, now) && !d.pendingReduceZ {
		return nil, ecf.NewError(ecf.KindReduceZ, "Z reduction already issued today")
	}
	if err := d.print(ctx, "REDUCAO Z CRZ %04d", d.counters.CRZ+1); err != nil {
		return nil, err
	}
	d.counters.COO++
	d.counters.CRZ++
	d.counters.GNF++

	opening := d.dayOpen
	if opening.IsZero() {
		opening = now
	}
	if previousDay {
		opening = opening.AddDate(0, 0, -1)
	}
	start := d.dayCOOStart
	if start == 0 {
		start = d.counters.COO
	}
	s := &ecf.Sintegra{
		OpeningDate: opening,
		PeriodTotal: d.dayTotal,
		Total:       d.grandTotal,
		Serial:      d.serial,
		SerialID:    1,
		COOStart:    start,
		COOEnd:      d.counters.COO,
		CRO:         d.counters.CRO,
		CRZ:         d.counters.CRZ,
	}
	codes := make([]string, 0, len(d.dayTaxes))
	for code := range d.dayTaxes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		s.Taxes = append(s.Taxes, ecf.SintegraTax{Code: code, Value: d.dayTaxes[code]})
	}

	d.lastZ = now
	d.pendingReduceZ = false
	d.dayOpen = time.Time{}
	d.dayCOOStart = 0
	d.dayTotal = decimal.Zero
	d.dayTaxes = make(map[string]decimal.Decimal)
	d.lastCOO = 0
	return s, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (d *Driver) cash(ctx context.Context, label string, v decimal.Decimal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return ecf.NewError(ecf.KindCouponOpen, "coupon open")
	}
	if err := d.document(); err != nil {
		return err
	}
	if err := d.print(ctx, "%s %s", label, v.StringFixed(2)); err != nil {
		return err
	}
	d.counters.COO++
	d.counters.GNF++
	d.lastCOO = 0
	return nil
}

// TillAddCash registers a cash supply
func (d *Driver) TillAddCash(ctx context.Context, v decimal.Decimal) error {
	return d.cash(ctx, "SUPRIMENTO", v)
}

// TillRemoveCash registers a cash withdrawal
func (d *Driver) TillRemoveCash(ctx context.Context, v decimal.Decimal) error {
	return d.cash(ctx, "SANGRIA", v)
}

// TillReadMemory prints the fiscal memory between two dates
func (d *Driver) TillReadMemory(ctx context.Context, start, end time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.print(ctx, "LEITURA MF %s %s", format.DateOf(start), format.DateOf(end))
}

// TillReadMemoryByReductions prints the fiscal memory between two Z reductions
func (d *Driver) TillReadMemoryByReductions(ctx context.Context, start, end int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.print(ctx, "LEITURA MF CRZ %04d %04d", start, end)
}

// TaxConstants returns the programmed tax table
func (d *Driver) TaxConstants(context.Context) ([]ecf.TaxConstant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ecf.TaxConstant(nil), d.taxes...), nil
}

// DefineTax programs a new rate
func (d *Driver) DefineTax(_ context.Context, rate decimal.Decimal, service bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	typ, prefix := ecf.TaxICMS, "T"
	if service {
		typ, prefix = ecf.TaxService, "S"
	}
	n := 1
	for _, t := range d.taxes {
		if t.Type == typ {
			if t.Rate.Equal(rate) {
				return ecf.Errorf(ecf.KindCommandParameters, "rate %s already programmed", rate.StringFixed(2))
			}
			n++
		}
	}
	d.taxes = append(d.taxes, ecf.TaxConstant{Type: typ, Rate: rate, Token: fmt.Sprintf("%s%02d", prefix, n)})
	return nil
}

// PaymentConstants returns the payment method table
func (d *Driver) PaymentConstants(context.Context) ([]ecf.PaymentConstant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ecf.PaymentConstant(nil), d.payments...), nil
}

// Serial returns the simulated serial number
func (d *Driver) Serial(context.Context) (string, error) { return d.serial, nil }

// Firmware returns the simulated firmware version
func (*Driver) Firmware(context.Context) (string, error) { return defaultFirmware, nil }

// Counters returns the current counters
func (d *Driver) Counters(context.Context) (ecf.Counters, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counters, nil
}

// QueryStatus returns a one line status report
func (d *Driver) QueryStatus(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.offline {
		return nil, ecf.ErrTimeout
	}
	return []byte(fmt.Sprintf("OK COO=%d OPEN=%s\n", d.counters.COO, format.Bool(d.open))), nil
}

// StatusReplyComplete reports whether reply ends the status line
func (*Driver) StatusReplyComplete(reply []byte) bool {
	return len(reply) > 0 && reply[len(reply)-1] == '\n'
}

// Close closes the port
func (d *Driver) Close() error {
	return d.port.Close()
}
