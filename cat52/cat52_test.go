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

package cat52_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/cat52"
	"github.com/stoqdrivers/go-ecf/drivers/virtual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day = time.Date(2026, 10, 18, 0, 0, 0, 0, time.Local)
	at  = time.Date(0, 1, 1, 14, 35, 12, 0, time.Local)
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func record(t *testing.T, tag string, values ...any) *cat52.Record {
	t.Helper()
	r, err := cat52.NewRecord(tag, values...)
	require.NoError(t, err)
	return r
}

func sampleRecords(t *testing.T) []*cat52.Record {
	t.Helper()
	const serial, model = "BE0123456789", "MP-2100 TH FI"
	return []*cat52.Record{
		// out of tag order
		record(t, cat52.TagPayment, serial, "", model, 1, 42, 17, 0, "Dinheiro", money("20.00"), false, 0),
		record(t, cat52.TagItem, serial, "", model, 1, 42, 17, 1, "789100", "Café torrado", money("2.00"), "Kg", money("8.90"), money("17.80"), "01T1800", false, "A", 2, 2),
		record(t, cat52.TagItem, serial, "", model, 1, 42, 17, 2, "789200", "Açúcar", money("1.00"), "UN", money("3.50"), money("3.50"), "FF", true, "A", 0, 2),
		record(t, cat52.TagItem, serial, "", model, 1, 42, 17, 3, "789300", "Pão de queijo", money("0.50"), "Kg", money("2.40"), money("1.20"), "II", false, "T", 3, 2),
		record(t, cat52.TagSoftwareHouse, serial, "", "ECF-IF", "BEMATECH", model, 12345678000190, "ISENTO", "Software House Ltda", "go-ecf", "1.0"),
		record(t, cat52.TagECF, serial, "", "ECF-IF", "BEMATECH", model, "010101", day, at, 1, 98765432000110, "", 10, 12, day, day, "01.00.00", "01.00.00"),
		record(t, cat52.TagUser, serial, "", model, 98765432000110, "110042490114", "Mercado São João", "Rua das Flores, 10", day, at, 1, money("123456.78"), 1),
		record(t, cat52.TagReduction, serial, "", model, 1, 12, 42, 1, day, day, at, money("19.00"), false),
		record(t, cat52.TagTotalizer, serial, "", model, 1, 12, "01T1800", money("17.80")),
		record(t, cat52.TagTotalizer, serial, "", model, 1, 12, "FF", money("1.20")),
		record(t, cat52.TagCoupon, serial, "", model, 1, 17, 42, day, money("22.50"), money("3.50"), 0, money("19.00"), false, "José da Silva", 12345678909),
	}
}

func sameField(t *testing.T, typ cat52.FieldType, want, got any, name string) {
	t.Helper()
	switch typ {
	case cat52.Numeric:
		assert.True(t, want.(decimal.Decimal).Equal(got.(decimal.Decimal)), "%s: %v != %v", name, want, got)
	case cat52.Date:
		assert.Equal(t, want.(time.Time).Format("20060102"), got.(time.Time).Format("20060102"), name)
	case cat52.Time:
		assert.Equal(t, want.(time.Time).Format("150405"), got.(time.Time).Format("150405"), name)
	default:
		assert.Equal(t, want, got, name)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	f := cat52.NewFile()
	f.Add(sampleRecords(t)...)

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.Bytes()

	lines := strings.SplitAfter(string(out), "\r\n")
	require.Equal(t, "", lines[len(lines)-1])
	lines = lines[:len(lines)-1]
	require.Len(t, lines, 12)
	for i, l := range lines {
		assert.True(t, strings.HasSuffix(l, "\r\n"), "line %d", i)
		assert.Equal(t, 1, strings.Count(l, "\n"), "line %d", i)
	}

	trailer := lines[len(lines)-1]
	body := out[:len(out)-len(trailer)]
	sum := md5.Sum(body)
	assert.Equal(t, "EAD"+hex.EncodeToString(sum[:])+"\r\n", trailer)

	tags := make([]string, 0, len(lines))
	for _, l := range lines {
		tags = append(tags, l[:3])
	}
	assert.Equal(t, []string{"E00", "E01", "E02", "E12", "E13", "E13", "E14", "E15", "E15", "E15", "E21", "EAD"}, tags)

	parsed, err := cat52.Parse(bytes.NewReader(out))
	require.NoError(t, err)
	want := f.Records()
	got := parsed.Records()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Tag, got[i].Tag)
		schema, ok := cat52.SchemaFor(want[i].Tag)
		require.True(t, ok)
		for j, field := range schema.Fields {
			sameField(t, field.Type, want[i].Values[j], got[i].Values[j], want[i].Tag+"."+field.Name)
		}
	}
	// items keep insertion order within their tag
	for i, r := range got[7:10] {
		v, _ := r.Get("item")
		assert.True(t, decimal.NewFromInt(int64(i+1)).Equal(v.(decimal.Decimal)))
	}
}

func TestLatin1Output(t *testing.T) {
	t.Parallel()

	f := cat52.NewFile()
	f.Add(record(t, cat52.TagTotalizer, "Nº1", "", "Ação", 1, 1, "01T1800", money("1.00")))
	out, err := f.Bytes()
	require.NoError(t, err)
	assert.Equal(t, byte(0xBA), out[4])
	assert.Contains(t, string(out), "A\xe7\xe3o")
}

func TestNewRecordValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tag    string
		values []any
	}{
		{name: "unknown tag", tag: "E99"},
		{name: "field count", tag: cat52.TagTotalizer, values: []any{"x"}},
		{name: "text in numeric", tag: cat52.TagTotalizer, values: []any{"s", "", "m", "1", 1, "FF", money("1")}},
		{name: "number in text", tag: cat52.TagTotalizer, values: []any{1, "", "m", 1, 1, "FF", money("1")}},
		{name: "negative", tag: cat52.TagTotalizer, values: []any{"s", "", "m", 1, 1, "FF", money("-1")}},
		{name: "string date", tag: cat52.TagDocument, values: []any{"s", "", "m", 1, 1, 1, 1, "RZ", "20261018", at}},
		{name: "string flag", tag: cat52.TagReduction, values: []any{"s", "", "m", 1, 1, 1, 1, day, day, at, money("1"), "N"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := cat52.NewRecord(tt.tag, tt.values...)
			require.Error(t, err)
			assert.Equal(t, ecf.KindInvalidValue, ecf.KindOf(err))
		})
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	f := cat52.NewFile()
	f.Add(record(t, cat52.TagTotalizer, "S1", "", "M", 1, 1, "NN", money("5.00")))
	good, err := f.Bytes()
	require.NoError(t, err)

	tampered := bytes.Replace(good, []byte("NN"), []byte("II"), 1)
	lf := bytes.Replace(good, []byte("\r\n"), []byte("\n"), 1)
	short := append([]byte("E13abc\r\n"), good...)
	trailing := append(append([]byte(nil), good...), "E13\r\n"...)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "checksum", data: tampered},
		{name: "bare LF", data: lf},
		{name: "width", data: short},
		{name: "no trailer", data: good[:bytes.Index(good, []byte("EAD"))]},
		{name: "after trailer", data: trailing},
		{name: "unterminated", data: good[:len(good)-2]},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := cat52.Parse(bytes.NewReader(tt.data))
			require.Error(t, err)
		})
	}

	_, err = cat52.Parse(bytes.NewReader(tampered))
	assert.ErrorIs(t, err, cat52.ErrChecksum)
}

func TestTotalizerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tax  ecf.TaxConstant
		want string
		slot int
	}{
		{tax: ecf.TaxConstant{Type: ecf.TaxICMS, Rate: money("18")}, slot: 1, want: "01T1800"},
		{tax: ecf.TaxConstant{Type: ecf.TaxService, Rate: money("3")}, slot: 1, want: "01S0300"},
		{tax: ecf.TaxConstant{Type: ecf.TaxICMS, Rate: money("7.5")}, slot: 12, want: "12T0750"},
		{tax: ecf.TaxConstant{Type: ecf.TaxSubstitution}, want: "FF"},
		{tax: ecf.TaxConstant{Type: ecf.TaxExemption}, want: "II"},
		{tax: ecf.TaxConstant{Type: ecf.TaxNone}, want: "NN"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cat52.TotalizerToken(tt.tax, tt.slot))
		})
	}
}

func TestFromReadings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	drv, err := virtual.New(nil)
	require.NoError(t, err)
	drv.SetClock(func() time.Time { return day.Add(9 * time.Hour) })
	p, err := ecf.New(drv)
	require.NoError(t, err)

	require.NoError(t, p.Open(ctx))
	_, err = p.AddItem(ctx, ecf.Item{
		Code: "1", Desc: "Item", Price: money("10.00"), Quantity: decimal.NewFromInt(1),
		Tax: ecf.TaxConstant{Type: ecf.TaxICMS, Token: "T01", Rate: money("18")},
	})
	require.NoError(t, err)
	_, err = p.Totalize(ctx, decimal.Zero, decimal.Zero, ecf.TaxConstant{})
	require.NoError(t, err)
	_, err = p.AddPayment(ctx, ecf.Payment{Token: "01", Value: money("10.00")})
	require.NoError(t, err)
	_, err = p.Close(ctx, "")
	require.NoError(t, err)
	z, err := p.CloseTill(ctx, false)
	require.NoError(t, err)

	r, err := cat52.Collect(ctx, p, z)
	require.NoError(t, err)
	assert.NotEmpty(t, r.Serial)

	f, err := cat52.FromReadings(
		cat52.SoftwareHouse{CNPJ: "12.345.678/0001-90", Name: "Software House", Program: "go-ecf", Version: "1.0"},
		cat52.User{CNPJ: "98.765.432/0001-10", Name: "Loja", Number: 1, ECFNumber: 1},
		r,
	)
	require.NoError(t, err)

	out, err := f.Bytes()
	require.NoError(t, err)
	parsed, err := cat52.Parse(bytes.NewReader(out))
	require.NoError(t, err)

	var tags []string
	for _, rec := range parsed.Records() {
		tags = append(tags, rec.Tag)
	}
	assert.Equal(t, []string{"E00", "E01", "E02", "E12", "E13"}, tags)

	e12 := parsed.Records()[3]
	total, _ := e12.Get("period_total")
	assert.True(t, money("10.00").Equal(total.(decimal.Decimal)))
	cnpj, _ := parsed.Records()[0].Get("cnpj")
	assert.True(t, decimal.NewFromInt(12345678000190).Equal(cnpj.(decimal.Decimal)))
}
