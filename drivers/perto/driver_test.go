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

package perto

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	ecftest "github.com/stoqdrivers/go-ecf/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func req(id int, body string) []byte {
	return []byte(fmt.Sprintf("{%04d;%s}", id, body))
}

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	got, err := buildRequest(7, cmdAddItem, []param{
		integer("CodAliquota", 3),
		str("NomeProduto", `Pão "fino"`),
		value("Quantidade", decimal.RequireFromString("1.5"), 3),
		boolean("Cancelar", false),
	})
	require.NoError(t, err)
	want := append([]byte(`{0007;VendeItem;CodAliquota=3;NomeProduto="P`), 0xC6)
	want = append(want, []byte(`o \"fino\"";Quantidade=1,500;Cancelar=false}`)...)
	assert.Equal(t, want, got)
}

func TestParseReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fields  map[string]string
		name    string
		raw     string
		id      int
		retcode int
		wantErr bool
	}{
		{name: "bare", raw: "{0001;0}", id: 1, fields: map[string]string{}},
		{
			name: "fields", raw: `{0012;0;ValorTexto="AB;C}\"D";ValorInteiro=5}`, id: 12,
			fields: map[string]string{"ValorTexto": `AB;C}"D`, "ValorInteiro": "5"},
		},
		{name: "retcode", raw: "{0003;2002}", id: 3, retcode: 2002, fields: map[string]string{}},
		{name: "no braces", raw: "0001;0", wantErr: true},
		{name: "unterminated string", raw: `{0001;0;A="x}`, wantErr: true},
		{name: "bad field", raw: "{0001;0;novalue}", wantErr: true},
		{name: "bad id", raw: "{abcd;0}", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := parseReply([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ecf.KindComm, ecf.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, r.id)
			assert.Equal(t, tt.retcode, r.retcode)
			assert.Equal(t, tt.fields, r.fields)
		})
	}
}

func TestReplyComplete(t *testing.T) {
	t.Parallel()

	assert.False(t, replyComplete([]byte(`{0001;0;A="}`)))
	assert.True(t, replyComplete([]byte(`{0001;0;A="}"}`)))
	assert.False(t, replyComplete([]byte(`{0001;0;A="\"}`)))
}

func TestTaxTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		index int
		token byte
	}{
		{index: 0, token: 0x80},
		{index: 15, token: 0x8f},
		{index: taxIndexSubstitution, token: 0x7e},
		{index: taxIndexExemption, token: 0x7d},
		{index: taxIndexNone, token: 0x7c},
	}
	for _, tt := range tests {
		tok := taxToken(tt.index)
		assert.Equal(t, string([]byte{tt.token}), tok)
		back, err := taxIndex(tok)
		require.NoError(t, err)
		assert.Equal(t, tt.index, back)
	}
}

func TestCoupon(t *testing.T) {
	t.Parallel()

	item := `VendeItem;CodAliquota=0;CodProduto="7891";NomeProduto="Cafe";PrecoUnitario=4,50;Quantidade=2,000;Unidade="Kg"`
	port := ecftest.NewScriptedPort(
		ecftest.Exchange{Expect: req(1, cmdOpenCoupon), Reply: ecftest.BuildPertoReply(1, 0, "")},
		ecftest.Exchange{Expect: req(2, item), Reply: ecftest.BuildPertoReply(2, 0, "")},
		ecftest.Exchange{
			Expect: req(3, "AcresceItemFiscal;NumItem=1;Cancelar=false;ValorPercentual=-10,00"),
			Reply:  ecftest.BuildPertoReply(3, 0, ""),
		},
		ecftest.Exchange{
			Expect: req(4, `LeMoeda;NomeDadoMonetario="SubTotal"`),
			Reply:  ecftest.BuildPertoReply(4, 0, "ValorMoeda=8,10"),
		},
		ecftest.Exchange{
			Expect: req(5, "PagaCupom;CodMeioPagamento=0;Valor=10,00"),
			Reply:  ecftest.BuildPertoReply(5, 0, ""),
		},
		ecftest.Exchange{
			Expect: req(6, `EncerraDocumento;TextoPromocional="Obrigado"`),
			Reply:  ecftest.BuildPertoReply(6, 0, ""),
		},
		ecftest.Exchange{
			Expect: req(7, `LeInteiro;NomeInteiro="COO"`),
			Reply:  ecftest.BuildPertoReply(7, 0, "ValorInteiro=42"),
		},
	)
	drv, err := NewPay2023(port)
	require.NoError(t, err)
	printer, err := ecf.New(drv)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, printer.Open(ctx))
	_, err = printer.AddItem(ctx, ecf.Item{
		Code:     "7891",
		Desc:     "Cafe",
		Price:    decimal.RequireFromString("4.50"),
		Quantity: decimal.NewFromInt(2),
		Discount: decimal.NewFromInt(10),
		Unit:     ecf.UnitWeight,
		Tax:      ecf.TaxConstant{Type: ecf.TaxICMS, Rate: decimal.NewFromInt(18), Token: taxToken(0)},
	})
	require.NoError(t, err)

	total, err := printer.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
	require.NoError(t, err)
	assert.Equal(t, "8.10", total.StringFixed(2))

	remainder, err := printer.AddPayment(ctx, ecf.Payment{Token: "0", Value: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, "-1.90", remainder.StringFixed(2))

	coo, err := printer.Close(ctx, "Obrigado")
	require.NoError(t, err)
	assert.Equal(t, 42, coo)
	require.NoError(t, port.Err())
	assert.True(t, port.Done())
}

func TestReturnCodeSurfaces(t *testing.T) {
	t.Parallel()

	port := ecftest.NewScriptedPort(
		ecftest.Exchange{Expect: req(1, cmdReadX), Reply: ecftest.BuildPertoReply(1, 3001, "")},
	)
	drv, err := NewPay2023(port)
	require.NoError(t, err)

	err = drv.Summarize(context.Background())
	assert.ErrorIs(t, err, ecf.ErrPendingReduceZ)
}

func TestReplyIDMismatch(t *testing.T) {
	t.Parallel()

	port := ecftest.NewScriptedPort(
		ecftest.Exchange{Expect: req(1, cmdReadX), Reply: ecftest.BuildPertoReply(9, 0, "")},
	)
	drv, err := NewPay2023(port)
	require.NoError(t, err)

	err = drv.Summarize(context.Background())
	assert.Equal(t, ecf.KindComm, ecf.KindOf(err))
}

func TestTaxConstantsAndDefineTax(t *testing.T) {
	t.Parallel()

	port := ecftest.NewScriptedPort(
		ecftest.Exchange{
			Expect: req(1, "LeAliquota;CodAliquotaProgramavel=0"),
			Reply:  ecftest.BuildPertoReply(1, 0, "PercentualAliquota=18,00;AliquotaICMS=true"),
		},
		ecftest.Exchange{
			Expect: req(2, "LeAliquota;CodAliquotaProgramavel=1"),
			Reply:  ecftest.BuildPertoReply(2, 0, "PercentualAliquota=5,00;AliquotaICMS=false"),
		},
		ecftest.Exchange{
			Expect: req(3, "LeAliquota;CodAliquotaProgramavel=2"),
			Reply:  ecftest.BuildPertoReply(3, retSlotNotAvailable, ""),
		},
	)
	drv, err := NewPay2023(port)
	require.NoError(t, err)
	ctx := context.Background()

	taxes, err := drv.TaxConstants(ctx)
	require.NoError(t, err)
	require.Len(t, taxes, 5)
	assert.Equal(t, "\x7c", taxes[2].Token)
	assert.Equal(t, ecf.TaxNone, taxes[2].Type)
	assert.Equal(t, ecf.TaxICMS, taxes[3].Type)
	assert.Equal(t, "\x80", taxes[3].Token)
	assert.Equal(t, ecf.TaxService, taxes[4].Type)
	assert.True(t, taxes[4].Rate.Equal(decimal.NewFromInt(5)))

	port.Append(
		ecftest.Exchange{
			Expect: req(4, "LeAliquota;CodAliquotaProgramavel=0"),
			Reply:  ecftest.BuildPertoReply(4, retSlotNotAvailable, ""),
		},
		ecftest.Exchange{
			Expect: req(5, `DefineAliquota;CodAliquotaProgramavel=0;DescricaoAliquota="12.00%";PercentualAliquota=12,00;AliquotaICMS=true`),
			Reply:  ecftest.BuildPertoReply(5, 0, ""),
		},
	)
	var definer ecf.TaxDefiner = drv
	require.NoError(t, definer.DefineTax(ctx, decimal.NewFromInt(12), false))
	require.NoError(t, port.Err())
	assert.True(t, port.Done())
}
