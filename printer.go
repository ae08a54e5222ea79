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
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stoqdrivers/go-ecf/codec"
	"go.uber.org/zap"
)

// FiscalPrinter enforces the coupon workflow and validates arguments
// against the driver's capabilities before any byte reaches the port.
// It is not safe for concurrent use.
type FiscalPrinter struct {
	drv     Driver
	log     *zap.Logger
	metrics *Metrics

	cancelled      map[int]bool
	customer       Customer
	totalizedValue decimal.Decimal
	paymentsTotal  decimal.Decimal
	items          []int
	paymentCount   int
	config         PrinterConfig
	opened         bool
	totalized      bool
}

// New wraps a driver
func New(drv Driver, opts ...Option) (*FiscalPrinter, error) {
	if drv == nil {
		return nil, NewError(KindConfig, "nil driver")
	}
	p := &FiscalPrinter{
		drv:    drv,
		config: DefaultPrinterConfig(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.resetCoupon()
	return p, nil
}

func (p *FiscalPrinter) logger() *zap.Logger {
	if p.log != nil {
		return p.log
	}
	return Logger()
}

func (p *FiscalPrinter) resetCoupon() {
	p.opened = false
	p.totalized = false
	p.totalizedValue = decimal.Zero
	p.paymentsTotal = decimal.Zero
	p.paymentCount = 0
	p.items = nil
	p.cancelled = make(map[int]bool)
	p.customer = Customer{}
}

// run logs and records one operation
func (p *FiscalPrinter) run(op string, fn func() error) error {
	start := time.Now()
	info := p.drv.Info()
	err := fn()
	p.metrics.observe(info, op, start, err)
	fields := []zap.Field{
		zap.String("brand", info.Brand),
		zap.String("model", info.Model),
		zap.String("operation", op),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		p.logger().Info("operation failed", append(fields, zap.String("kind", KindOf(err).String()), zap.Error(err))...)
		return err
	}
	p.logger().Debug("operation", fields...)
	return nil
}

// Driver returns the underlying driver
func (p *FiscalPrinter) Driver() Driver { return p.drv }

// Info returns brand and model
func (p *FiscalPrinter) Info() Info { return p.drv.Info() }

// Charset returns the coupon printer charset of the driver
func (p *FiscalPrinter) Charset() codec.Charset { return p.drv.Charset() }

// Capabilities returns the driver's argument limits
func (p *FiscalPrinter) Capabilities() Capabilities { return p.drv.Capabilities() }

// IsOpen reports whether a coupon is open
func (p *FiscalPrinter) IsOpen() bool { return p.opened }

// HasBeenTotalized reports whether the open coupon was totalized
func (p *FiscalPrinter) HasBeenTotalized() bool { return p.totalized }

// TotalizedValue returns the value returned by Totalize
func (p *FiscalPrinter) TotalizedValue() decimal.Decimal { return p.totalizedValue }

// PaymentsTotal returns the sum of payments added to the open coupon
func (p *FiscalPrinter) PaymentsTotal() decimal.Decimal { return p.paymentsTotal }

// IdentifyCustomer sets the customer printed on the next coupon. When a
// coupon is already open and the model supports late identification the
// data is sent immediately.
func (p *FiscalPrinter) IdentifyCustomer(ctx context.Context, customer Customer) error {
	return p.run("identify_customer", func() error {
		caps := p.drv.Capabilities()
		if err := caps.CheckText(CapCustomerName, customer.Name); err != nil {
			return err
		}
		if err := caps.CheckText(CapCustomerID, customer.Document); err != nil {
			return err
		}
		if err := caps.CheckText(CapCustomerAddress, customer.Address); err != nil {
			return err
		}
		if p.opened {
			ci, ok := p.drv.(CustomerIdentifier)
			if !ok {
				return NewError(KindInvalidState, "customer must be identified before the coupon is opened")
			}
			if err := ci.IdentifyCustomer(ctx, customer); err != nil {
				return err
			}
		}
		p.customer = customer
		return nil
	})
}

// Open opens a coupon for the identified customer
func (p *FiscalPrinter) Open(ctx context.Context) error {
	return p.run("open", func() error {
		if p.opened {
			return NewError(KindCouponOpen, "coupon already open")
		}
		customer := p.customer
		err := p.drv.OpenCoupon(ctx, customer)
		switch {
		case err == nil:
		case errors.Is(err, ErrPendingReadX) && p.config.AutoSummarize:
			p.logger().Info("read X pending, summarizing before opening coupon")
			if serr := p.drv.Summarize(ctx); serr != nil {
				return serr
			}
			err = p.drv.OpenCoupon(ctx, customer)
		case errors.Is(err, ErrCouponOpen) && p.config.CancelStaleCoupon:
			p.logger().Info("stale coupon open on device, cancelling")
			if cerr := p.drv.CancelCoupon(ctx); cerr != nil {
				return cerr
			}
			err = p.drv.OpenCoupon(ctx, customer)
		}
		if err != nil {
			return err
		}
		p.resetCoupon()
		p.customer = customer
		p.opened = true
		return nil
	})
}

func (p *FiscalPrinter) validateItem(item Item) error {
	if item.Discount.IsNegative() || item.Surcharge.IsNegative() {
		return NewError(KindInvalidValue, "discount and surcharge must not be negative")
	}
	if !item.Discount.IsZero() && !item.Surcharge.IsZero() {
		return NewError(KindInvalidValue, "discount and surcharge are mutually exclusive")
	}
	if item.Unit == "" {
		item.Unit = UnitEmpty
	}
	if item.Unit == UnitCustom {
		if len([]rune(item.UnitDesc)) != 2 {
			return NewError(KindInvalidValue, "custom unit requires a two character description")
		}
	} else if item.UnitDesc != "" {
		return NewError(KindInvalidValue, "unit description is only allowed for custom units")
	}
	if item.Price.IsZero() {
		return NewError(KindInvalidValue, "unit price must not be zero")
	}
	if item.Price.IsNegative() {
		return NewError(KindInvalidValue, "unit price must be positive")
	}
	if !item.Quantity.IsPositive() {
		return NewError(KindInvalidValue, "quantity must be positive")
	}

	caps := p.drv.Capabilities()
	if err := caps.CheckText(CapItemCode, item.Code); err != nil {
		return err
	}
	if err := caps.CheckText(CapItemDescription, item.Desc); err != nil {
		return err
	}
	if err := caps.CheckText(CapItemUnitDesc, item.UnitDesc); err != nil {
		return err
	}
	if err := caps.CheckValue(CapItemPrice, item.Price); err != nil {
		return err
	}
	if err := caps.CheckValue(CapItemQuantity, item.Quantity); err != nil {
		return err
	}
	if err := caps.CheckValue(CapItemDiscount, item.Discount); err != nil {
		return err
	}
	return caps.CheckValue(CapItemSurcharge, item.Surcharge)
}

// AddItem adds a line to the open coupon and returns its id
func (p *FiscalPrinter) AddItem(ctx context.Context, item Item) (int, error) {
	var id int
	err := p.run("add_item", func() error {
		if !p.opened {
			return NewError(KindCouponNotOpen, "no coupon open")
		}
		if p.totalized {
			return NewError(KindAlreadyTotalized, "coupon already totalized")
		}
		if err := p.validateItem(item); err != nil {
			return err
		}
		if item.Unit == "" {
			item.Unit = UnitEmpty
		}
		var err error
		id, err = p.drv.AddItem(ctx, item)
		if err != nil {
			return err
		}
		p.items = append(p.items, id)
		return nil
	})
	return id, err
}

// CancelItem cancels item id, or the most recent live item when id is 0
func (p *FiscalPrinter) CancelItem(ctx context.Context, id int) error {
	return p.run("cancel_item", func() error {
		if !p.opened {
			return NewError(KindCouponNotOpen, "no coupon open")
		}
		if p.totalized {
			return NewError(KindAlreadyTotalized, "items cannot be cancelled after totalizing")
		}
		if id == 0 {
			for i := len(p.items) - 1; i >= 0; i-- {
				if !p.cancelled[p.items[i]] {
					id = p.items[i]
					break
				}
			}
			if id == 0 {
				return NewError(KindCancelItem, "there are no items to cancel")
			}
		}
		known := false
		for _, it := range p.items {
			if it == id {
				known = true
				break
			}
		}
		if !known {
			return Errorf(KindCancelItem, "item %d does not exist", id)
		}
		if p.cancelled[id] {
			return Errorf(KindCancelItem, "item %d already cancelled", id)
		}
		if err := p.drv.CancelItem(ctx, id); err != nil {
			return err
		}
		p.cancelled[id] = true
		return nil
	})
}

// Cancel cancels the open coupon, or the last coupon when none is open
func (p *FiscalPrinter) Cancel(ctx context.Context) error {
	return p.run("cancel", func() error {
		if err := p.drv.CancelCoupon(ctx); err != nil {
			return err
		}
		p.resetCoupon()
		return nil
	})
}

func (p *FiscalPrinter) liveItems() int {
	n := 0
	for _, id := range p.items {
		if !p.cancelled[id] {
			n++
		}
	}
	return n
}

// Totalize closes the item list with an optional discount or surcharge
// percentage and returns the coupon total
func (p *FiscalPrinter) Totalize(ctx context.Context, discount, surcharge decimal.Decimal, tax TaxConstant) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := p.run("totalize", func() error {
		if !p.opened {
			return NewError(KindCouponNotOpen, "no coupon open")
		}
		if p.totalized {
			return NewError(KindAlreadyTotalized, "coupon already totalized")
		}
		if discount.IsNegative() || surcharge.IsNegative() {
			return NewError(KindInvalidValue, "discount and surcharge must not be negative")
		}
		if !discount.IsZero() && !surcharge.IsZero() {
			return NewError(KindInvalidValue, "discount and surcharge are mutually exclusive")
		}
		if p.liveItems() == 0 {
			return NewError(KindCouponTotalize, "coupon has no items")
		}
		caps := p.drv.Capabilities()
		if err := caps.CheckValue(CapTotalizeDiscount, discount); err != nil {
			return err
		}
		if err := caps.CheckValue(CapTotalizeSurcharge, surcharge); err != nil {
			return err
		}
		var err error
		total, err = p.drv.Totalize(ctx, discount, surcharge, tax)
		if err != nil {
			return err
		}
		p.totalized = true
		p.totalizedValue = total
		return nil
	})
	return total, err
}

// AddPayment adds a payment line and returns the remaining value to pay
func (p *FiscalPrinter) AddPayment(ctx context.Context, payment Payment) (decimal.Decimal, error) {
	var remainder decimal.Decimal
	err := p.run("add_payment", func() error {
		if !p.totalized {
			return NewError(KindPaymentAddition, "coupon must be totalized before adding payments")
		}
		if !payment.Value.IsPositive() {
			return NewError(KindInvalidValue, "payment value must be positive")
		}
		caps := p.drv.Capabilities()
		if err := caps.CheckValue(CapPaymentValue, payment.Value); err != nil {
			return err
		}
		if err := caps.CheckText(CapPaymentDescription, payment.Description); err != nil {
			return err
		}
		var err error
		remainder, err = p.drv.AddPayment(ctx, payment)
		if err != nil {
			return err
		}
		p.paymentsTotal = p.paymentsTotal.Add(payment.Value)
		p.paymentCount++
		return nil
	})
	return remainder, err
}

// Close closes the coupon and returns its number
func (p *FiscalPrinter) Close(ctx context.Context, message string) (int, error) {
	var number int
	err := p.run("close", func() error {
		if !p.opened {
			return NewError(KindCouponNotOpen, "no coupon open")
		}
		if !p.totalized {
			return NewError(KindCloseCoupon, "coupon must be totalized before closing")
		}
		if p.liveItems() == 0 || !p.totalizedValue.IsPositive() {
			return NewError(KindCloseCoupon, "coupon has no items to close")
		}
		if p.paymentCount == 0 {
			return NewError(KindCloseCoupon, "at least one payment is required")
		}
		if p.paymentsTotal.LessThan(p.totalizedValue) {
			return Errorf(KindCloseCoupon, "payments total %s is below coupon total %s",
				p.paymentsTotal.StringFixed(2), p.totalizedValue.StringFixed(2))
		}
		if err := p.drv.Capabilities().CheckText(CapPromotionalMessage, message); err != nil {
			return err
		}
		var err error
		number, err = p.drv.CloseCoupon(ctx, message)
		if err != nil {
			return err
		}
		p.resetCoupon()
		return nil
	})
	return number, err
}

// Summarize issues a read X
func (p *FiscalPrinter) Summarize(ctx context.Context) error {
	return p.run("summarize", func() error {
		return p.drv.Summarize(ctx)
	})
}

// CloseTill issues a Z reduction. The returned record is nil for models
// that do not produce one.
func (p *FiscalPrinter) CloseTill(ctx context.Context, previousDay bool) (*Sintegra, error) {
	var s *Sintegra
	err := p.run("close_till", func() error {
		if p.opened {
			return NewError(KindCouponOpen, "a coupon is open")
		}
		var err error
		s, err = p.drv.CloseTill(ctx, previousDay)
		return err
	})
	return s, err
}

func (p *FiscalPrinter) checkCash(key string, value decimal.Decimal) error {
	if !value.IsPositive() {
		return NewError(KindInvalidValue, "value must be positive")
	}
	return p.drv.Capabilities().CheckValue(key, value)
}

// TillAddCash registers a cash supply voucher
func (p *FiscalPrinter) TillAddCash(ctx context.Context, value decimal.Decimal) error {
	return p.run("till_add_cash", func() error {
		if err := p.checkCash(CapAddCashValue, value); err != nil {
			return err
		}
		return p.drv.TillAddCash(ctx, value)
	})
}

// TillRemoveCash registers a cash withdrawal voucher
func (p *FiscalPrinter) TillRemoveCash(ctx context.Context, value decimal.Decimal) error {
	return p.run("till_remove_cash", func() error {
		if err := p.checkCash(CapRemoveCashValue, value); err != nil {
			return err
		}
		return p.drv.TillRemoveCash(ctx, value)
	})
}

// TillReadMemory prints the fiscal memory between two dates
func (p *FiscalPrinter) TillReadMemory(ctx context.Context, start, end time.Time) error {
	return p.run("till_read_memory", func() error {
		if end.Before(start) {
			return NewError(KindInvalidValue, "start date is after end date")
		}
		return p.drv.TillReadMemory(ctx, start, end)
	})
}

// TillReadMemoryByReductions prints the fiscal memory between two Z reductions
func (p *FiscalPrinter) TillReadMemoryByReductions(ctx context.Context, start, end int) error {
	return p.run("till_read_memory_by_reductions", func() error {
		if start < 1 || end < start {
			return Errorf(KindInvalidValue, "invalid reduction range %d-%d", start, end)
		}
		return p.drv.TillReadMemoryByReductions(ctx, start, end)
	})
}

// TaxConstants returns the printer's tax table
func (p *FiscalPrinter) TaxConstants(ctx context.Context) ([]TaxConstant, error) {
	var out []TaxConstant
	err := p.run("tax_constants", func() error {
		var err error
		out, err = p.drv.TaxConstants(ctx)
		return err
	})
	return out, err
}

// PaymentConstants returns the printer's payment method table
func (p *FiscalPrinter) PaymentConstants(ctx context.Context) ([]PaymentConstant, error) {
	var out []PaymentConstant
	err := p.run("payment_constants", func() error {
		var err error
		out, err = p.drv.PaymentConstants(ctx)
		return err
	})
	return out, err
}

// Serial returns the device serial number
func (p *FiscalPrinter) Serial(ctx context.Context) (string, error) {
	var s string
	err := p.run("serial", func() error {
		var err error
		s, err = p.drv.Serial(ctx)
		return err
	})
	return s, err
}

// Counters returns COO, GNF, CRZ, CRO and CCF
func (p *FiscalPrinter) Counters(ctx context.Context) (Counters, error) {
	var c Counters
	err := p.run("counters", func() error {
		var err error
		c, err = p.drv.Counters(ctx)
		return err
	})
	return c, err
}

// COO returns the document order counter
func (p *FiscalPrinter) COO(ctx context.Context) (int, error) {
	c, err := p.Counters(ctx)
	return c.COO, err
}

// GNF returns the non-fiscal document counter
func (p *FiscalPrinter) GNF(ctx context.Context) (int, error) {
	c, err := p.Counters(ctx)
	return c.GNF, err
}

// CRZ returns the Z reduction counter
func (p *FiscalPrinter) CRZ(ctx context.Context) (int, error) {
	c, err := p.Counters(ctx)
	return c.CRZ, err
}

// CRO returns the operator registration counter
func (p *FiscalPrinter) CRO(ctx context.Context) (int, error) {
	c, err := p.Counters(ctx)
	return c.CRO, err
}

// CCF returns the fiscal coupon counter
func (p *FiscalPrinter) CCF(ctx context.Context) (int, error) {
	c, err := p.Counters(ctx)
	return c.CCF, err
}

// DefineTax programs a tax rate on models that support it
func (p *FiscalPrinter) DefineTax(ctx context.Context, rate decimal.Decimal, service bool) error {
	return p.run("define_tax", func() error {
		td, ok := p.drv.(TaxDefiner)
		if !ok {
			return Errorf(KindCommand, "%s cannot program tax rates", p.drv.Info())
		}
		if !rate.IsPositive() || rate.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			return Errorf(KindInvalidValue, "invalid tax rate %s", rate)
		}
		return td.DefineTax(ctx, rate, service)
	})
}

// QueryStatus returns the raw status reply of the device
func (p *FiscalPrinter) QueryStatus(ctx context.Context) ([]byte, error) {
	var out []byte
	err := p.run("query_status", func() error {
		var err error
		out, err = p.drv.QueryStatus(ctx)
		return err
	})
	return out, err
}

// Shutdown closes the driver and its port
func (p *FiscalPrinter) Shutdown() error {
	return p.drv.Close()
}

// StatusReplyComplete reports whether reply holds a full status answer
func (p *FiscalPrinter) StatusReplyComplete(reply []byte) bool {
	return p.drv.StatusReplyComplete(reply)
}
