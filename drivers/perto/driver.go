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

// Package perto drives the PertoPay 2023 fiscal printer, which speaks a
// named-command key=value protocol.
package perto

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
)

const (
	brand = "perto"
	model = "Pay2023"
)

const (
	taxSlots     = 16
	paymentSlots = 20
	dateLayout   = "02/01/2006"

	nonFiscalSupply     = "Suprimento"
	nonFiscalWithdrawal = "Sangria"
)

// Fixed tax indexes
const (
	taxIndexSubstitution = -2
	taxIndexExemption    = -3
	taxIndexNone         = -4
)

// Driver talks to one Pay2023
type Driver struct {
	port  ecf.Port
	total decimal.Decimal
	paid  decimal.Decimal
	id    int
	items int
}

// NewPay2023 creates a Pay2023 driver
func NewPay2023(port ecf.Port) (*Driver, error) {
	if port == nil {
		return nil, ecf.NewError(ecf.KindConfig, "nil port")
	}
	return &Driver{port: port}, nil
}

func init() {
	ecf.Register(brand, "pay2023", func(p ecf.Port) (ecf.Driver, error) { return NewPay2023(p) })
}

// taxToken maps a tax index to its one byte token, index+128 as a
// signed byte
func taxToken(index int) string {
	return string([]byte{byte(int8(index)) + 128})
}

func taxIndex(token string) (int, error) {
	if len(token) != 1 {
		return 0, ecf.Errorf(ecf.KindInvalidValue, "invalid tax token %q", token)
	}
	return int(int8(token[0] - 128)), nil
}

// Info returns brand and model
func (*Driver) Info() ecf.Info { return ecf.Info{Brand: brand, Model: model} }

// Charset is cp850
func (*Driver) Charset() codec.Charset { return codec.CP850 }

// Capabilities returns the Pay2023 argument limits
func (*Driver) Capabilities() ecf.Capabilities {
	return ecf.Capabilities{
		ecf.CapItemCode:           ecf.TextCapability(1, 48),
		ecf.CapItemDescription:    ecf.TextCapability(1, 200),
		ecf.CapItemPrice:          ecf.ValueCapability(9, 2),
		ecf.CapItemQuantity:       ecf.ValueCapability(7, 3),
		ecf.CapItemDiscount:       ecf.ValueCapability(2, 2),
		ecf.CapItemSurcharge:      ecf.ValueCapability(2, 2),
		ecf.CapItemUnitDesc:       ecf.TextCapability(0, 3),
		ecf.CapCustomerName:       ecf.TextCapability(0, 30),
		ecf.CapCustomerID:         ecf.TextCapability(0, 29),
		ecf.CapCustomerAddress:    ecf.TextCapability(0, 80),
		ecf.CapPaymentValue:       ecf.ValueCapability(11, 2),
		ecf.CapPaymentDescription: ecf.TextCapability(0, 80),
		ecf.CapPromotionalMessage: ecf.TextCapability(0, 492),
		ecf.CapTotalizeDiscount:   ecf.ValueCapability(2, 2),
		ecf.CapTotalizeSurcharge:  ecf.ValueCapability(2, 2),
		ecf.CapAddCashValue:       ecf.ValueCapability(11, 2),
		ecf.CapRemoveCashValue:    ecf.ValueCapability(11, 2),
	}
}

// percent turns a discount/surcharge pair into the signed percentage
// the device expects, negative for discounts
func percent(discount, surcharge decimal.Decimal) decimal.Decimal {
	if surcharge.IsPositive() {
		return surcharge
	}
	return discount.Neg()
}

// OpenCoupon opens a coupon, identifying the customer when given
func (d *Driver) OpenCoupon(ctx context.Context, c ecf.Customer) error {
	var params []param
	if c.Document != "" {
		params = append(params, str("IdConsumidor", c.Document))
	}
	if c.Name != "" {
		params = append(params, str("NomeConsumidor", c.Name))
	}
	if c.Address != "" {
		params = append(params, str("EnderecoConsumidor", c.Address))
	}
	if _, err := d.send(ctx, cmdOpenCoupon, params...); err != nil {
		return err
	}
	d.items = 0
	d.total = decimal.Zero
	d.paid = decimal.Zero
	return nil
}

// AddItem sells an item, then applies its discount or surcharge as a
// separate item adjustment
func (d *Driver) AddItem(ctx context.Context, item ecf.Item) (int, error) {
	index, err := taxIndex(item.Tax.Token)
	if err != nil {
		return 0, err
	}
	_, err = d.send(ctx, cmdAddItem,
		integer("CodAliquota", index),
		str("CodProduto", item.Code),
		str("NomeProduto", item.Desc),
		value("PrecoUnitario", item.Price, 2),
		value("Quantidade", item.Quantity, 3),
		str("Unidade", ecf.UnitLabel(item.Unit, item.UnitDesc)),
	)
	if err != nil {
		return 0, err
	}
	d.items++
	pct := percent(item.Discount, item.Surcharge)
	if !pct.IsZero() {
		_, err = d.send(ctx, cmdAdjustItem,
			integer("NumItem", d.items),
			boolean("Cancelar", false),
			value("ValorPercentual", pct, 2),
		)
		if err != nil {
			return 0, err
		}
	}
	return d.items, nil
}

// CancelItem cancels item id
func (d *Driver) CancelItem(ctx context.Context, id int) error {
	if id == 0 {
		id = d.items
	}
	_, err := d.send(ctx, cmdCancelItem, integer("NumItem", id))
	return err
}

// CancelCoupon cancels the open or the last coupon
func (d *Driver) CancelCoupon(ctx context.Context) error {
	_, err := d.send(ctx, cmdCancelCoupon)
	return err
}

func (d *Driver) readMoney(ctx context.Context, name string) (decimal.Decimal, error) {
	r, err := d.send(ctx, cmdReadMoney, str("NomeDadoMonetario", name))
	if err != nil {
		return decimal.Zero, err
	}
	return r.decimal("ValorMoeda")
}

func (d *Driver) readInt(ctx context.Context, name string) (int, error) {
	r, err := d.send(ctx, cmdReadInteger, str("NomeInteiro", name))
	if err != nil {
		return 0, err
	}
	return r.integer("ValorInteiro")
}

func (d *Driver) readText(ctx context.Context, name string) (string, error) {
	r, err := d.send(ctx, cmdReadText, str("NomeTexto", name))
	if err != nil {
		return "", err
	}
	return r.text("ValorTexto"), nil
}

// Totalize applies a subtotal adjustment and returns the subtotal
func (d *Driver) Totalize(ctx context.Context, discount, surcharge decimal.Decimal, _ ecf.TaxConstant) (decimal.Decimal, error) {
	if pct := percent(discount, surcharge); !pct.IsZero() {
		_, err := d.send(ctx, cmdAdjustSubtotal,
			boolean("Cancelar", false),
			value("ValorPercentual", pct, 2),
		)
		if err != nil {
			return decimal.Zero, err
		}
	}
	total, err := d.readMoney(ctx, "SubTotal")
	if err != nil {
		return decimal.Zero, err
	}
	d.total = total
	d.paid = decimal.Zero
	return total, nil
}

// AddPayment registers a payment and returns the remainder
func (d *Driver) AddPayment(ctx context.Context, p ecf.Payment) (decimal.Decimal, error) {
	code, err := strconv.Atoi(p.Token)
	if err != nil {
		return decimal.Zero, ecf.Errorf(ecf.KindInvalidValue, "invalid payment token %q", p.Token)
	}
	params := []param{integer("CodMeioPagamento", code), value("Valor", p.Value, 2)}
	if p.Description != "" {
		params = append(params, str("TextoAdicional", p.Description))
	}
	if _, err := d.send(ctx, cmdAddPayment, params...); err != nil {
		return decimal.Zero, err
	}
	d.paid = d.paid.Add(p.Value)
	return d.total.Sub(d.paid), nil
}

// CloseCoupon prints the message and returns the COO
func (d *Driver) CloseCoupon(ctx context.Context, message string) (int, error) {
	var params []param
	if message != "" {
		params = append(params, str("TextoPromocional", message))
	}
	if _, err := d.send(ctx, cmdCloseDocument, params...); err != nil {
		return 0, err
	}
	return d.readInt(ctx, "COO")
}

// Summarize issues a read X
func (d *Driver) Summarize(ctx context.Context) error {
	_, err := d.send(ctx, cmdReadX)
	return err
}

// CloseTill issues a Z reduction
func (d *Driver) CloseTill(ctx context.Context, _ bool) (*ecf.Sintegra, error) {
	_, err := d.send(ctx, cmdReduceZ)
	return nil, err
}

func (d *Driver) nonFiscal(ctx context.Context, name string, v decimal.Decimal) error {
	if _, err := d.send(ctx, cmdOpenNonFiscal); err != nil {
		return err
	}
	if _, err := d.send(ctx, cmdNonFiscalItem, str("NomeNaoFiscal", name), value("Valor", v, 2)); err != nil {
		return err
	}
	_, err := d.send(ctx, cmdCloseDocument)
	return err
}

// TillAddCash registers a cash supply
func (d *Driver) TillAddCash(ctx context.Context, v decimal.Decimal) error {
	return d.nonFiscal(ctx, nonFiscalSupply, v)
}

// TillRemoveCash registers a cash withdrawal
func (d *Driver) TillRemoveCash(ctx context.Context, v decimal.Decimal) error {
	return d.nonFiscal(ctx, nonFiscalWithdrawal, v)
}

// TillReadMemory prints the fiscal memory between two dates
func (d *Driver) TillReadMemory(ctx context.Context, start, end time.Time) error {
	_, err := d.send(ctx, cmdReadMemory,
		str("DataInicial", start.Format(dateLayout)),
		str("DataFinal", end.Format(dateLayout)),
	)
	return err
}

// TillReadMemoryByReductions prints the fiscal memory between two Z reductions
func (d *Driver) TillReadMemoryByReductions(ctx context.Context, start, end int) error {
	_, err := d.send(ctx, cmdReadMemory, integer("ReducaoInicial", start), integer("ReducaoFinal", end))
	return err
}

func isSlotNotAvailable(err error) bool {
	var e *ecf.Error
	return errors.As(err, &e) && e.Code == retSlotNotAvailable
}

// programmedTaxes reads programmable slots until the first free one and
// returns the rates read and the free slot index
func (d *Driver) programmedTaxes(ctx context.Context) ([]ecf.TaxConstant, int, error) {
	var out []ecf.TaxConstant
	for i := 0; i < taxSlots; i++ {
		r, err := d.send(ctx, cmdReadTax, integer("CodAliquotaProgramavel", i))
		if isSlotNotAvailable(err) {
			return out, i, nil
		}
		if err != nil {
			return nil, 0, err
		}
		rate, err := r.decimal("PercentualAliquota")
		if err != nil {
			return nil, 0, err
		}
		typ := ecf.TaxService
		if r.text("AliquotaICMS") == "true" {
			typ = ecf.TaxICMS
		}
		out = append(out, ecf.TaxConstant{Type: typ, Rate: rate, Token: taxToken(i)})
	}
	return out, taxSlots, nil
}

// TaxConstants returns the fixed buckets followed by the programmed rates
func (d *Driver) TaxConstants(ctx context.Context) ([]ecf.TaxConstant, error) {
	programmed, _, err := d.programmedTaxes(ctx)
	if err != nil {
		return nil, err
	}
	out := []ecf.TaxConstant{
		{Type: ecf.TaxSubstitution, Token: taxToken(taxIndexSubstitution)},
		{Type: ecf.TaxExemption, Token: taxToken(taxIndexExemption)},
		{Type: ecf.TaxNone, Token: taxToken(taxIndexNone)},
	}
	return append(out, programmed...), nil
}

// DefineTax programs rate into the first free slot
func (d *Driver) DefineTax(ctx context.Context, rate decimal.Decimal, service bool) error {
	_, slot, err := d.programmedTaxes(ctx)
	if err != nil {
		return err
	}
	if slot >= taxSlots {
		return ecf.NewError(ecf.KindCommand, "no free tax slot")
	}
	_, err = d.send(ctx, cmdDefineTax,
		integer("CodAliquotaProgramavel", slot),
		str("DescricaoAliquota", rate.StringFixed(2)+"%"),
		value("PercentualAliquota", rate, 2),
		boolean("AliquotaICMS", !service),
	)
	return err
}

// PaymentConstants reads the payment method names
func (d *Driver) PaymentConstants(ctx context.Context) ([]ecf.PaymentConstant, error) {
	var out []ecf.PaymentConstant
	for i := 0; i < paymentSlots; i++ {
		r, err := d.send(ctx, cmdReadPaymentName, integer("CodMeioPagamento", i))
		if isSlotNotAvailable(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ecf.PaymentConstant{Token: strconv.Itoa(i), Label: r.text("NomeMeioPagamento")})
	}
	return out, nil
}

// Serial returns the device serial number
func (d *Driver) Serial(ctx context.Context) (string, error) {
	return d.readText(ctx, "NumeroSerieECF")
}

// Firmware returns the software version
func (d *Driver) Firmware(ctx context.Context) (string, error) {
	return d.readText(ctx, "VersaoSW")
}

// Counters reads COO, GNF, CRZ, CRO and CCF
func (d *Driver) Counters(ctx context.Context) (ecf.Counters, error) {
	var c ecf.Counters
	for _, r := range []struct {
		dst  *int
		name string
	}{
		{&c.COO, "COO"}, {&c.GNF, "GNF"}, {&c.CRZ, "CRZ"}, {&c.CRO, "CRO"}, {&c.CCF, "CCF"},
	} {
		n, err := d.readInt(ctx, r.name)
		if err != nil {
			return c, err
		}
		*r.dst = n
	}
	return c, nil
}

// QueryStatus reads the fiscal state indicator and returns the raw reply
func (d *Driver) QueryStatus(ctx context.Context) ([]byte, error) {
	raw, _, err := d.roundTrip(ctx, cmdReadIndicator, str("NomeIndicador", "EstadoFiscal"))
	return raw, err
}

// StatusReplyComplete reports whether reply holds a full {...} reply
func (*Driver) StatusReplyComplete(reply []byte) bool {
	return len(reply) > 0 && reply[0] == openBrace && replyComplete(reply)
}

// Close closes the port
func (d *Driver) Close() error {
	return d.port.Close()
}
