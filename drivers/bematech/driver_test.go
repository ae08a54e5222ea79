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

package bematech

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/format"
	"github.com/stoqdrivers/go-ecf/internal/frame"
	ecftest "github.com/stoqdrivers/go-ecf/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T, m model, cmd byte, args string) []byte {
	t.Helper()
	pkt, err := frame.BuildBematech(m.proto, cmd, []byte(args))
	require.NoError(t, err)
	return pkt
}

func ok() []byte {
	return ecftest.BuildBematechReply(nil, 0, 0, 0)
}

func okBody(body []byte) []byte {
	return ecftest.BuildBematechReply(body, 0, 0, 0)
}

func registerExchange(t *testing.T, m model, r register, value uint64) ecftest.Exchange {
	t.Helper()
	var body []byte
	if r.bcd {
		body = format.IntToBCD(value, r.size)
	}
	reply := ecftest.BuildBematechStandardReply(body, 0, 0)
	if m.extended {
		reply = ecftest.BuildBematechReply(body, 0, 0, 0)
	}
	return ecftest.Exchange{Expect: request(t, m, cmdReadRegister, string([]byte{r.id})), Reply: reply}
}

func TestStatusFrameIsDeterministic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    model
		want []byte
	}{
		{name: "extended", m: mp25, want: []byte{0x02, 0x04, 0x00, 0x1C, 0x13, 0x2F, 0x00}},
		{name: "standard", m: mp20, want: []byte{0x02, 0x04, 0x00, 0x1B, 0x13, 0x2E, 0x00}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := &Driver{model: tt.m}
			assert.Equal(t, tt.want, d.statusRequest())
			assert.Equal(t, d.statusRequest(), d.statusRequest())
		})
	}
}

func TestHappyCoupon(t *testing.T) {
	t.Parallel()

	customer := fmt.Sprintf("%-28s%-30s%-80s", "1234567890", "Henrique Romano", "Async")
	item := "NN" + "0001000" + "00001000" + "D" + "0000" + "  " + fmt.Sprintf("%-14s", "987654") + "Monitor LG 775N\x00"

	port := ecftest.NewScriptedPort(
		registerExchange(t, mp25, regCOO, 123),
		registerExchange(t, mp25, regGNF, 7),
		registerExchange(t, mp25, regCRZ, 10),
		registerExchange(t, mp25, regCRO, 1),
		registerExchange(t, mp25, regCCF, 98),
		ecftest.Exchange{Expect: request(t, mp25, cmdOpenCoupon, customer), Reply: ecftest.BuildBematechReply(nil, st1CouponOpen, 0, 0)},
		ecftest.Exchange{Expect: request(t, mp25, cmdAddItem, item), Reply: ok()},
		ecftest.Exchange{Expect: request(t, mp25, cmdTotalize, "D0000"), Reply: ok()},
		ecftest.Exchange{Expect: request(t, mp25, cmdSubtotal, ""), Reply: okBody(format.IntToBCD(1000, subtotalSize))},
		ecftest.Exchange{Expect: request(t, mp25, cmdAddPayment, "01"+"00000000010000"), Reply: ok()},
		ecftest.Exchange{Expect: request(t, mp25, cmdCloseCoupon, ""), Reply: ok()},
		registerExchange(t, mp25, regCOO, 124),
	)

	drv, err := NewMP25(port)
	require.NoError(t, err)
	printer, err := ecf.New(drv)
	require.NoError(t, err)
	ctx := context.Background()

	before, err := printer.Counters(ctx)
	require.NoError(t, err)

	require.NoError(t, printer.IdentifyCustomer(ctx, ecf.Customer{
		Name: "Henrique Romano", Address: "Async", Document: "1234567890",
	}))
	require.NoError(t, printer.Open(ctx))

	id, err := printer.AddItem(ctx, ecf.Item{
		Code:     "987654",
		Desc:     "Monitor LG 775N",
		Price:    decimal.NewFromInt(10),
		Quantity: decimal.NewFromInt(1),
		Tax:      ecf.TaxConstant{Type: ecf.TaxNone, Token: "NN"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	total, err := printer.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(10)))

	remainder, err := printer.AddPayment(ctx, ecf.Payment{Token: "01", Value: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.True(t, remainder.IsZero())
	assert.True(t, printer.PaymentsTotal().Equal(decimal.NewFromInt(100)))

	coupon, err := printer.Close(ctx, "")
	require.NoError(t, err)
	assert.Positive(t, coupon)
	assert.Equal(t, before.COO+1, coupon)

	require.NoError(t, port.Err())
	assert.True(t, port.Done())
}

func TestDecodeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      string
		st3      uint16
		kind     ecf.ErrorKind
		st1      byte
		st2      byte
		extended bool
		wantNil  bool
	}{
		{name: "clean", wantNil: true},
		{name: "coupon open bit is state", st1: st1CouponOpen, wantNil: true},
		{name: "almost out of paper is soft", st1: 64, wantNil: true},
		{name: "out of paper", st1: 128, kind: ecf.KindOutOfPaper},
		{name: "highest bit wins", st1: 128 | 4, kind: ecf.KindOutOfPaper},
		{name: "st1 before st2", st1: 4, st2: 64, kind: ecf.KindCommand},
		{name: "st2 highest bit", st2: 0x81, extended: true, st3: 7, kind: ecf.KindCommandParameters},
		{name: "st3 refines not executed", st2: 1, st3: 7, extended: true, kind: ecf.KindCouponOpen},
		{name: "standard protocol ignores st3", st2: 1, st3: 7, kind: ecf.KindCommand},
		{name: "unknown st3", st2: 1, st3: 999, extended: true, kind: ecf.KindDriver, msg: "Unhandled error: 999"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := decodeStatus(tt.st1, tt.st2, tt.st3, tt.extended)
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, ecf.KindOf(err))
			if tt.msg != "" {
				assert.EqualError(t, err, tt.msg)
			}
		})
	}
}

func TestNAK(t *testing.T) {
	t.Parallel()

	port := ecftest.NewScriptedPort(ecftest.Exchange{
		Expect: request(t, mp25, cmdReadX, ""),
		Reply:  ecftest.BuildBematechNAK(),
	})
	drv, err := NewMP25(port)
	require.NoError(t, err)

	err = drv.Summarize(context.Background())
	require.ErrorIs(t, err, ecf.ErrComm)
}

func TestIncompleteReplyTimesOut(t *testing.T) {
	t.Parallel()

	port := ecftest.NewScriptedPort(ecftest.Exchange{
		Expect: request(t, mp25, cmdReadX, ""),
		Reply:  []byte{frame.ACK, 0x00},
	})
	drv, err := NewMP25(port)
	require.NoError(t, err)

	err = drv.Summarize(context.Background())
	require.ErrorIs(t, err, ecf.ErrTimeout)
}

func TestDeviceErrorSurfaces(t *testing.T) {
	t.Parallel()

	port := ecftest.NewScriptedPort(ecftest.Exchange{
		Expect: request(t, mp25, cmdOpenCoupon, ""),
		Reply:  ecftest.BuildBematechReply(nil, 0, st2NotExecuted, 5),
	})
	drv, err := NewMP25(port)
	require.NoError(t, err)

	err = drv.OpenCoupon(context.Background(), ecf.Customer{})
	require.ErrorIs(t, err, ecf.ErrPendingReduceZ)
}

func TestStaleCouponStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		st       status
		extended bool
		want     bool
	}{
		{name: "standard refused with open coupon", st: status{st1: st1CouponOpen, st2: st2NotExecuted}, want: true},
		{name: "standard accepted", st: status{st1: st1CouponOpen}},
		{name: "other st2 bits", st: status{st1: st1CouponOpen, st2: st2NotExecuted | 0x10}},
		{name: "extended defers to st3", st: status{st1: st1CouponOpen, st2: st2NotExecuted, st3: 5}, extended: true},
		{name: "extended without st3", st: status{st1: st1CouponOpen, st2: st2NotExecuted}, extended: true, want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.st.staleCoupon(tt.extended))
		})
	}
}

func TestMP20StaleCoupon(t *testing.T) {
	t.Parallel()

	stale := ecftest.BuildBematechStandardReply(nil, st1CouponOpen, st2NotExecuted)

	t.Run("reported as coupon open", func(t *testing.T) {
		t.Parallel()
		port := ecftest.NewScriptedPort(ecftest.Exchange{Expect: request(t, mp20, cmdOpenCoupon, ""), Reply: stale})
		drv, err := NewMP20(port)
		require.NoError(t, err)

		err = drv.OpenCoupon(context.Background(), ecf.Customer{})
		require.ErrorIs(t, err, ecf.ErrCouponOpen)
	})

	t.Run("refused without open coupon stays a command error", func(t *testing.T) {
		t.Parallel()
		port := ecftest.NewScriptedPort(ecftest.Exchange{
			Expect: request(t, mp20, cmdOpenCoupon, ""),
			Reply:  ecftest.BuildBematechStandardReply(nil, 0, st2NotExecuted),
		})
		drv, err := NewMP20(port)
		require.NoError(t, err)

		err = drv.OpenCoupon(context.Background(), ecf.Customer{})
		require.ErrorIs(t, err, ecf.ErrCommand)
	})

	t.Run("cancelled and reopened", func(t *testing.T) {
		t.Parallel()
		port := ecftest.NewScriptedPort(
			ecftest.Exchange{Expect: request(t, mp20, cmdOpenCoupon, ""), Reply: stale},
			ecftest.Exchange{Expect: request(t, mp20, cmdCancelCoupon, ""), Reply: ecftest.BuildBematechStandardReply(nil, 0, 0)},
			ecftest.Exchange{Expect: request(t, mp20, cmdOpenCoupon, ""), Reply: ecftest.BuildBematechStandardReply(nil, st1CouponOpen, 0)},
		)
		drv, err := NewMP20(port)
		require.NoError(t, err)
		printer, err := ecf.New(drv, ecf.WithCancelStaleCoupon(true))
		require.NoError(t, err)

		require.NoError(t, printer.Open(context.Background()))
		assert.True(t, printer.IsOpen())
		require.NoError(t, port.Err())
		assert.True(t, port.Done())
	})
}

func TestMP20CCFIsCOO(t *testing.T) {
	t.Parallel()

	port := ecftest.NewScriptedPort(
		registerExchange(t, mp20, regCOO, 55),
		registerExchange(t, mp20, regGNF, 2),
		registerExchange(t, mp20, regCRZ, 3),
		registerExchange(t, mp20, regCRO, 1),
	)
	drv, err := NewMP20(port)
	require.NoError(t, err)

	c, err := drv.Counters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 55, c.CCF)
	assert.Equal(t, c.COO, c.CCF)
	assert.True(t, port.Done())
}

func TestCancelLastCoupon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    model
		cmd  byte
	}{
		{name: "mp25 cancels last coupon", m: mp25, cmd: cmdCancelLastCoupon},
		{name: "mp20 falls back to coupon cancel", m: mp20, cmd: cmdCancelCoupon},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reply := ecftest.BuildBematechStandardReply(nil, 0, 0)
			if tt.m.extended {
				reply = ok()
			}
			port := ecftest.NewScriptedPort(ecftest.Exchange{Expect: request(t, tt.m, tt.cmd, ""), Reply: reply})
			drv, err := newDriver(port, tt.m)
			require.NoError(t, err)
			require.NoError(t, drv.CancelCoupon(context.Background()))
			assert.True(t, port.Done())
		})
	}
}

func TestTaxConstants(t *testing.T) {
	t.Parallel()

	body := []byte{2, 0x18, 0x00, 0x03, 0x00}
	body = append(body, make([]byte, 2*(numTaxSlots-2))...)
	port := ecftest.NewScriptedPort(
		ecftest.Exchange{Expect: request(t, mp25, cmdReadTaxCodes, ""), Reply: okBody(body)},
		ecftest.Exchange{
			Expect: request(t, mp25, cmdReadRegister, string([]byte{regISSFlags.id})),
			Reply:  okBody([]byte{0x40, 0x00}),
		},
	)
	drv, err := NewMP25(port)
	require.NoError(t, err)

	taxes, err := drv.TaxConstants(context.Background())
	require.NoError(t, err)
	require.Len(t, taxes, 5)
	assert.Equal(t, "NN", taxes[2].Token)
	assert.Equal(t, ecf.TaxICMS, taxes[3].Type)
	assert.Equal(t, "01", taxes[3].Token)
	assert.True(t, taxes[3].Rate.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, ecf.TaxService, taxes[4].Type)
	assert.True(t, taxes[4].Rate.Equal(decimal.NewFromInt(3)))
}

func TestCapabilityGateWritesNothing(t *testing.T) {
	t.Parallel()

	port := ecftest.NewScriptedPort(ecftest.Exchange{
		Expect: request(t, mp20, cmdOpenCoupon, ""),
		Reply:  ecftest.BuildBematechStandardReply(nil, st1CouponOpen, 0),
	})
	drv, err := NewMP20(port)
	require.NoError(t, err)
	printer, err := ecf.New(drv)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, printer.Open(ctx))
	written := len(port.Written())

	_, err = printer.AddItem(ctx, ecf.Item{
		Code:     "1",
		Desc:     "A description that is far too long for the MP20",
		Price:    decimal.NewFromInt(1),
		Quantity: decimal.NewFromInt(1),
		Tax:      ecf.TaxConstant{Type: ecf.TaxNone, Token: "NN"},
	})
	require.ErrorIs(t, err, ecf.ErrCapability)
	assert.Len(t, port.Written(), written)
}

type couponStage int

const (
	stageIdle couponStage = iota
	stageOpen
	stageTotalized
	stagePaid
)

// stagedPrinter drives an MP25 coupon up to stage over a scripted port
func stagedPrinter(t *testing.T, stage couponStage) (*ecf.FiscalPrinter, *ecftest.ScriptedPort) {
	t.Helper()
	item := "NN" + "0001000" + "00001000" + "D" + "0000" + "  " + fmt.Sprintf("%-14s", "1") + "Cable\x00"
	var script []ecftest.Exchange
	if stage >= stageOpen {
		script = append(script,
			ecftest.Exchange{Expect: request(t, mp25, cmdOpenCoupon, ""), Reply: ok()},
			ecftest.Exchange{Expect: request(t, mp25, cmdAddItem, item), Reply: ok()},
		)
	}
	if stage >= stageTotalized {
		script = append(script,
			ecftest.Exchange{Expect: request(t, mp25, cmdTotalize, "D0000"), Reply: ok()},
			ecftest.Exchange{Expect: request(t, mp25, cmdSubtotal, ""), Reply: okBody(format.IntToBCD(1000, subtotalSize))},
		)
	}
	if stage >= stagePaid {
		script = append(script,
			ecftest.Exchange{Expect: request(t, mp25, cmdAddPayment, "01"+"00000000010000"), Reply: ok()},
		)
	}
	port := ecftest.NewScriptedPort(script...)
	drv, err := NewMP25(port)
	require.NoError(t, err)
	printer, err := ecf.New(drv)
	require.NoError(t, err)

	ctx := context.Background()
	if stage >= stageOpen {
		require.NoError(t, printer.Open(ctx))
		_, err = printer.AddItem(ctx, ecf.Item{
			Code:     "1",
			Desc:     "Cable",
			Price:    decimal.NewFromInt(10),
			Quantity: decimal.NewFromInt(1),
			Tax:      ecf.TaxConstant{Type: ecf.TaxNone, Token: "NN"},
		})
		require.NoError(t, err)
	}
	if stage >= stageTotalized {
		_, err = printer.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
		require.NoError(t, err)
	}
	if stage >= stagePaid {
		_, err = printer.AddPayment(ctx, ecf.Payment{Token: "01", Value: decimal.NewFromInt(100)})
		require.NoError(t, err)
	}
	require.NoError(t, port.Err())
	require.True(t, port.Done())
	return printer, port
}

func TestCapabilityGateCoversFacade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	huge := decimal.RequireFromString("1000000000000")
	tests := []struct {
		run   func(p *ecf.FiscalPrinter) error
		name  string
		stage couponStage
	}{
		{
			name: "customer name too long",
			run: func(p *ecf.FiscalPrinter) error {
				return p.IdentifyCustomer(ctx, ecf.Customer{Name: strings.Repeat("n", 31)})
			},
		},
		{
			name: "customer document too long",
			run: func(p *ecf.FiscalPrinter) error {
				return p.IdentifyCustomer(ctx, ecf.Customer{Document: strings.Repeat("1", 29)})
			},
		},
		{
			name: "customer address too long",
			run: func(p *ecf.FiscalPrinter) error {
				return p.IdentifyCustomer(ctx, ecf.Customer{Address: strings.Repeat("a", 81)})
			},
		},
		{
			name:  "totalize discount digits",
			stage: stageOpen,
			run: func(p *ecf.FiscalPrinter) error {
				_, err := p.Totalize(ctx, decimal.NewFromInt(100), decimal.Zero, ecf.TaxConstant{})
				return err
			},
		},
		{
			name:  "totalize surcharge digits",
			stage: stageOpen,
			run: func(p *ecf.FiscalPrinter) error {
				_, err := p.Totalize(ctx, decimal.Zero, decimal.NewFromInt(100), ecf.TaxConstant{})
				return err
			},
		},
		{
			name:  "payment description too long",
			stage: stageTotalized,
			run: func(p *ecf.FiscalPrinter) error {
				_, err := p.AddPayment(ctx, ecf.Payment{Token: "01", Value: decimal.NewFromInt(10), Description: strings.Repeat("d", 81)})
				return err
			},
		},
		{
			name:  "payment value digits",
			stage: stageTotalized,
			run: func(p *ecf.FiscalPrinter) error {
				_, err := p.AddPayment(ctx, ecf.Payment{Token: "01", Value: huge})
				return err
			},
		},
		{
			name:  "promotional message too long",
			stage: stagePaid,
			run: func(p *ecf.FiscalPrinter) error {
				_, err := p.Close(ctx, strings.Repeat("m", messageMax+1))
				return err
			},
		},
		{
			name: "add cash digits",
			run:  func(p *ecf.FiscalPrinter) error { return p.TillAddCash(ctx, huge) },
		},
		{
			name: "remove cash digits",
			run:  func(p *ecf.FiscalPrinter) error { return p.TillRemoveCash(ctx, huge) },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			printer, port := stagedPrinter(t, tt.stage)
			written := len(port.Written())

			require.ErrorIs(t, tt.run(printer), ecf.ErrCapability)
			assert.Len(t, port.Written(), written)
			require.NoError(t, port.Err())
		})
	}
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	for _, model := range []string{"mp25", "MP20", "mp2100"} {
		ctor, err := ecf.Lookup("Bematech", model)
		require.NoError(t, err)
		drv, err := ctor(ecf.NewVirtualPort())
		require.NoError(t, err)
		assert.Equal(t, "bematech", drv.Info().Brand)
	}
}
