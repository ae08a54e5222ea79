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

package ecf_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/drivers/virtual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taxNone = ecf.TaxConstant{Type: ecf.TaxNone, Token: "N"}

func newPrinter(t *testing.T, opts ...ecf.Option) (*ecf.FiscalPrinter, *virtual.Driver, *ecf.VirtualPort) {
	t.Helper()
	port := ecf.NewVirtualPort()
	drv, err := virtual.New(port)
	require.NoError(t, err)
	p, err := ecf.New(drv, opts...)
	require.NoError(t, err)
	return p, drv, port
}

func monitor(price string) ecf.Item {
	return ecf.Item{
		Code:     "987654",
		Desc:     "Monitor LG 775N",
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.NewFromInt(1),
		Tax:      taxNone,
	}
}

func TestHappyCoupon(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, _, _ := newPrinter(t)

	before, err := p.COO(ctx)
	require.NoError(t, err)

	require.NoError(t, p.IdentifyCustomer(ctx, ecf.Customer{Name: "Henrique Romano", Address: "Async", Document: "1234567890"}))
	require.NoError(t, p.Open(ctx))
	_, err = p.AddItem(ctx, monitor("10.00"))
	require.NoError(t, err)
	total, err := p.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
	require.NoError(t, err)
	assert.Equal(t, "10.00", total.StringFixed(2))

	methods, err := p.PaymentConstants(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, methods)
	remainder, err := p.AddPayment(ctx, ecf.Payment{Token: methods[0].Token, Value: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Equal(t, "-90.00", remainder.StringFixed(2))
	assert.Equal(t, "100.00", p.PaymentsTotal().StringFixed(2))

	coo, err := p.Close(ctx, "")
	require.NoError(t, err)
	assert.Positive(t, coo)
	after, err := p.COO(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
	assert.False(t, p.IsOpen())
}

func TestCancelItemTwice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, _, _ := newPrinter(t)
	require.NoError(t, p.Open(ctx))
	for i := 0; i < 3; i++ {
		_, err := p.AddItem(ctx, monitor("1.00"))
		require.NoError(t, err)
	}
	require.NoError(t, p.CancelItem(ctx, 3))
	assert.ErrorIs(t, p.CancelItem(ctx, 3), ecf.ErrCancelItem)
	assert.ErrorIs(t, p.CancelItem(ctx, 9), ecf.ErrCancelItem)
	require.NoError(t, p.CancelItem(ctx, 0))
}

func TestCancelItemAfterTotalize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, drv, _ := newPrinter(t)
	require.NoError(t, p.Open(ctx))
	_, err := p.AddItem(ctx, monitor("10.00"))
	require.NoError(t, err)
	_, err = p.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
	require.NoError(t, err)

	err = p.CancelItem(ctx, 1)
	require.ErrorIs(t, err, ecf.ErrAlreadyTotalized)
	err = p.CancelItem(ctx, 0)
	require.ErrorIs(t, err, ecf.ErrAlreadyTotalized)

	methods, err := drv.PaymentConstants(ctx)
	require.NoError(t, err)
	_, err = p.AddPayment(ctx, ecf.Payment{Token: methods[0].Token, Value: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = p.Close(ctx, "")
	require.NoError(t, err)
}

// zeroTotal reports a zero coupon total, as a device rounding a full
// discount would
type zeroTotal struct {
	*virtual.Driver
}

func (zeroTotal) Totalize(context.Context, decimal.Decimal, decimal.Decimal, ecf.TaxConstant) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (zeroTotal) AddPayment(_ context.Context, pay ecf.Payment) (decimal.Decimal, error) {
	return decimal.Zero.Sub(pay.Value), nil
}

func TestCloseRequiresLiveItemsAndTotal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	drv, err := virtual.New(ecf.NewVirtualPort())
	require.NoError(t, err)
	p, err := ecf.New(zeroTotal{drv})
	require.NoError(t, err)

	require.NoError(t, p.Open(ctx))
	_, err = p.AddItem(ctx, monitor("1.00"))
	require.NoError(t, err)
	total, err := p.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
	require.NoError(t, err)
	require.True(t, total.IsZero())
	_, err = p.AddPayment(ctx, ecf.Payment{Token: "01", Value: decimal.NewFromInt(1)})
	require.NoError(t, err)

	number, err := p.Close(ctx, "")
	require.ErrorIs(t, err, ecf.ErrCloseCoupon)
	assert.Zero(t, number)
	assert.True(t, p.IsOpen())
}

func TestCouponWorkflowErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		run  func(p *ecf.FiscalPrinter) error
		want error
		name string
	}{
		{
			name: "close without totalize",
			want: ecf.ErrCloseCoupon,
			run: func(p *ecf.FiscalPrinter) error {
				_, err := p.Close(ctx, "")
				return err
			},
		},
		{
			name: "payment before totalize",
			want: ecf.ErrPaymentAddition,
			run: func(p *ecf.FiscalPrinter) error {
				_, err := p.AddPayment(ctx, ecf.Payment{Token: "01", Value: decimal.NewFromInt(1)})
				return err
			},
		},
		{
			name: "item after totalize",
			want: ecf.ErrAlreadyTotalized,
			run: func(p *ecf.FiscalPrinter) error {
				if _, err := p.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{}); err != nil {
					return err
				}
				_, err := p.AddItem(ctx, monitor("1.00"))
				return err
			},
		},
		{
			name: "close with short payment",
			want: ecf.ErrCloseCoupon,
			run: func(p *ecf.FiscalPrinter) error {
				if _, err := p.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{}); err != nil {
					return err
				}
				if _, err := p.AddPayment(ctx, ecf.Payment{Token: "01", Value: decimal.NewFromInt(1)}); err != nil {
					return err
				}
				_, err := p.Close(ctx, "")
				return err
			},
		},
		{
			name: "totalize with only cancelled items",
			want: ecf.ErrCouponTotalize,
			run: func(p *ecf.FiscalPrinter) error {
				if err := p.CancelItem(ctx, 1); err != nil {
					return err
				}
				_, err := p.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
				return err
			},
		},
		{
			name: "cancel item after totalize",
			want: ecf.ErrAlreadyTotalized,
			run: func(p *ecf.FiscalPrinter) error {
				if _, err := p.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{}); err != nil {
					return err
				}
				return p.CancelItem(ctx, 1)
			},
		},
		{
			name: "open twice",
			want: ecf.ErrCouponOpen,
			run:  func(p *ecf.FiscalPrinter) error { return p.Open(ctx) },
		},
		{
			name: "close till with coupon open",
			want: ecf.ErrCouponOpen,
			run: func(p *ecf.FiscalPrinter) error {
				_, err := p.CloseTill(ctx, false)
				return err
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, _, _ := newPrinter(t)
			require.NoError(t, p.Open(ctx))
			_, err := p.AddItem(ctx, monitor("5.00"))
			require.NoError(t, err)
			assert.ErrorIs(t, tt.run(p), tt.want)
		})
	}
}

func TestItemValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		edit func(*ecf.Item)
		want error
		name string
	}{
		{name: "zero price", want: ecf.ErrInvalidValue, edit: func(i *ecf.Item) { i.Price = decimal.Zero }},
		{name: "negative quantity", want: ecf.ErrInvalidValue, edit: func(i *ecf.Item) { i.Quantity = decimal.NewFromInt(-1) }},
		{name: "discount and surcharge", want: ecf.ErrInvalidValue, edit: func(i *ecf.Item) {
			i.Discount = decimal.NewFromInt(1)
			i.Surcharge = decimal.NewFromInt(1)
		}},
		{name: "custom unit without label", want: ecf.ErrInvalidValue, edit: func(i *ecf.Item) { i.Unit = ecf.UnitCustom }},
		{name: "label without custom unit", want: ecf.ErrInvalidValue, edit: func(i *ecf.Item) { i.UnitDesc = "cx" }},
		{name: "description too long", want: ecf.ErrCapability, edit: func(i *ecf.Item) { i.Desc = strings.Repeat("x", 201) }},
		{name: "price too precise", want: ecf.ErrCapability, edit: func(i *ecf.Item) { i.Price = decimal.RequireFromString("1.001") }},
		{name: "empty code", want: ecf.ErrCapability, edit: func(i *ecf.Item) { i.Code = "" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, _, port := newPrinter(t)
			require.NoError(t, p.Open(ctx))
			written := len(port.Written())

			item := monitor("1.00")
			tt.edit(&item)
			_, err := p.AddItem(ctx, item)
			assert.ErrorIs(t, err, tt.want)
			assert.Len(t, port.Written(), written)
		})
	}
}

func TestCouponNumbersIncrease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, _, _ := newPrinter(t)
	prev := 0
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Open(ctx))
		_, err := p.AddItem(ctx, monitor("3.00"))
		require.NoError(t, err)
		total, err := p.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
		require.NoError(t, err)
		_, err = p.AddPayment(ctx, ecf.Payment{Token: "01", Value: total})
		require.NoError(t, err)
		coo, err := p.Close(ctx, "volte sempre")
		require.NoError(t, err)
		if prev > 0 {
			assert.Equal(t, prev+1, coo)
		}
		prev = coo
	}
}

func TestAutoSummarize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	p, drv, _ := newPrinter(t)
	drv.SetPendingReadX(true)
	require.NoError(t, p.Open(ctx))
	gnf, err := p.GNF(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, gnf)

	p, drv, _ = newPrinter(t, ecf.WithAutoSummarize(false))
	drv.SetPendingReadX(true)
	assert.ErrorIs(t, p.Open(ctx), ecf.ErrPendingReadX)
}

func TestCancelStaleCoupon(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	p, drv, _ := newPrinter(t)
	require.NoError(t, drv.OpenCoupon(ctx, ecf.Customer{}))
	assert.ErrorIs(t, p.Open(ctx), ecf.ErrCouponOpen)

	p, drv, _ = newPrinter(t, ecf.WithCancelStaleCoupon(true))
	require.NoError(t, drv.OpenCoupon(ctx, ecf.Customer{}))
	require.NoError(t, p.Open(ctx))
	assert.True(t, p.IsOpen())
}

func TestIdentifyCustomerOnOpenCoupon(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, _, port := newPrinter(t)
	require.NoError(t, p.Open(ctx))
	require.NoError(t, p.IdentifyCustomer(ctx, ecf.Customer{Document: "12345678909"}))
	assert.Contains(t, string(port.Written()), "12345678909")

	err := p.IdentifyCustomer(ctx, ecf.Customer{Name: strings.Repeat("n", 31)})
	assert.ErrorIs(t, err, ecf.ErrCapability)
}

func TestTillOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, _, _ := newPrinter(t)

	assert.ErrorIs(t, p.TillAddCash(ctx, decimal.Zero), ecf.ErrInvalidValue)
	require.NoError(t, p.TillAddCash(ctx, decimal.NewFromInt(50)))
	require.NoError(t, p.TillRemoveCash(ctx, decimal.NewFromInt(20)))

	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	assert.ErrorIs(t, p.TillReadMemory(ctx, now, now.AddDate(0, 0, -1)), ecf.ErrInvalidValue)
	require.NoError(t, p.TillReadMemory(ctx, now.AddDate(0, 0, -7), now))
	assert.ErrorIs(t, p.TillReadMemoryByReductions(ctx, 0, 3), ecf.ErrInvalidValue)
	require.NoError(t, p.TillReadMemoryByReductions(ctx, 1, 3))

	require.NoError(t, p.DefineTax(ctx, decimal.NewFromInt(7), false))
	assert.ErrorIs(t, p.DefineTax(ctx, decimal.NewFromInt(100), false), ecf.ErrInvalidValue)

	s, err := p.CloseTill(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, s)
	c, err := p.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.CRZ)
	assert.Equal(t, c.COO, s.COOEnd)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p, _, _ := newPrinter(t, ecf.WithMetrics(reg))

	require.NoError(t, p.Open(ctx))
	assert.ErrorIs(t, p.CancelItem(ctx, 1), ecf.ErrCancelItem)

	expected := `
# HELP ecf_operation_errors_total Fiscal printer operations that failed, by error kind.
# TYPE ecf_operation_errors_total counter
ecf_operation_errors_total{brand="virtual",kind="CancelItemError",model="Simulator"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ecf_operation_errors_total"))

	n, err := testutil.GatherAndCount(reg, "ecf_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// a second printer on the same registry reuses the collectors
	_, err = ecf.New(p.Driver(), ecf.WithMetrics(reg))
	require.NoError(t, err)
}

func TestConnectThroughRegistry(t *testing.T) {
	t.Parallel()

	var opened string
	factory := func(path string, opts ecf.PortOptions) (ecf.Port, error) {
		opened = path
		assert.Equal(t, 9600, opts.BaudRate)
		return ecf.NewVirtualPort(), nil
	}
	p, err := ecf.Connect("Virtual", "Simulator", "/dev/ttyS0", factory)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS0", opened)
	assert.Equal(t, "virtual", p.Info().Brand)
	require.NoError(t, p.Shutdown())

	_, err = ecf.Connect("nobody", "nothing", "/dev/ttyS0", factory)
	assert.ErrorIs(t, err, ecf.ErrCritical)
}
