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
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stoqdrivers/go-ecf/internal/transport"
)

const (
	openBrace  = '{'
	closeBrace = '}'
	separator  = ';'
	quote      = '"'
	escape     = '\\'

	readChunk = 64
	maxID     = 9999
)

// Commands
const (
	cmdOpenCoupon      = "AbreCupomFiscal"
	cmdAddItem         = "VendeItem"
	cmdAdjustItem      = "AcresceItemFiscal"
	cmdCancelItem      = "CancelaItemFiscal"
	cmdCancelCoupon    = "CancelaCupom"
	cmdAdjustSubtotal  = "AcresceSubtotal"
	cmdAddPayment      = "PagaCupom"
	cmdCloseDocument   = "EncerraDocumento"
	cmdOpenNonFiscal   = "AbreCupomNaoFiscal"
	cmdNonFiscalItem   = "EmiteItemNaoFiscal"
	cmdReadX           = "EmiteLeituraX"
	cmdReduceZ         = "EmiteReducaoZ"
	cmdReadMemory      = "EmiteLeituraMF"
	cmdReadInteger     = "LeInteiro"
	cmdReadText        = "LeTexto"
	cmdReadMoney       = "LeMoeda"
	cmdReadIndicator   = "LeIndicador"
	cmdReadTax         = "LeAliquota"
	cmdDefineTax       = "DefineAliquota"
	cmdReadPaymentName = "LeMeioPagamento"
)

// Return codes
const (
	retOK               = 0
	retSlotNotAvailable = 1003
)

var retCodes = ecf.StatusCodes{
	1001: {Kind: ecf.KindCommand, Msg: "unknown command"},
	1002: {Kind: ecf.KindCommandParameters, Msg: "invalid parameter"},
	1003: {Kind: ecf.KindCommandParameters, Msg: "register not programmed"},
	2001: {Kind: ecf.KindCouponOpen, Msg: "fiscal coupon open"},
	2002: {Kind: ecf.KindCouponNotOpen, Msg: "no fiscal coupon open"},
	2003: {Kind: ecf.KindAlreadyTotalized, Msg: "coupon already totalized"},
	2004: {Kind: ecf.KindCloseCoupon, Msg: "payments do not cover the coupon total"},
	2005: {Kind: ecf.KindCancelItem, Msg: "item cannot be cancelled"},
	2006: {Kind: ecf.KindPaymentAddition, Msg: "payment rejected"},
	2007: {Kind: ecf.KindCouponTotalize, Msg: "coupon has no items"},
	2008: {Kind: ecf.KindItemAddition, Msg: "item rejected"},
	3001: {Kind: ecf.KindPendingReduceZ, Msg: "Z reduction of the previous day is pending"},
	3002: {Kind: ecf.KindReduceZ, Msg: "Z reduction already issued today"},
	3003: {Kind: ecf.KindPendingReadX, Msg: "read X pending"},
	4001: {Kind: ecf.KindOutOfPaper, Msg: "out of paper"},
	4002: {Kind: ecf.KindPrinterOffline, Msg: "printer offline"},
	4003: {Kind: ecf.KindHardwareFailure, Msg: "fiscal memory failure"},
}

// param is one key=value argument
type param struct {
	key   string
	value string
}

func str(key, v string) param { return param{key, quoteString(v)} }

func integer(key string, n int) param { return param{key, strconv.Itoa(n)} }

func boolean(key string, b bool) param { return param{key, strconv.FormatBool(b)} }

func value(key string, d decimal.Decimal, places int32) param {
	return param{key, strings.Replace(d.StringFixed(places), ".", ",", 1)}
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		if r == quote || r == escape {
			b.WriteByte(escape)
		}
		b.WriteRune(r)
	}
	b.WriteByte(quote)
	return b.String()
}

// buildRequest renders {id;Command;key=value;...} in cp850
func buildRequest(id int, cmd string, params []param) ([]byte, error) {
	var b strings.Builder
	b.WriteByte(openBrace)
	b.WriteString(strconv.Itoa(id + 10000)[1:])
	b.WriteByte(separator)
	b.WriteString(cmd)
	for _, p := range params {
		b.WriteByte(separator)
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	b.WriteByte(closeBrace)
	return codec.Encode(b.String(), codec.CP850)
}

// reply is a decoded {id;retcode;key=value;...}
type reply struct {
	fields  map[string]string
	id      int
	retcode int
}

// replyComplete reports whether buf holds a closing brace outside a
// quoted string
func replyComplete(buf []byte) bool {
	inQuote := false
	for i := 0; i < len(buf); i++ {
		switch c := buf[i]; {
		case inQuote && c == escape:
			i++
		case c == quote:
			inQuote = !inQuote
		case !inQuote && c == closeBrace:
			return true
		}
	}
	return false
}

// tokenize splits the body between braces at separators outside quotes
// and unescapes quoted strings
func tokenize(body string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case inQuote && c == escape:
			if i+1 >= len(body) {
				return nil, ecf.NewError(ecf.KindComm, "dangling escape in reply")
			}
			i++
			cur.WriteByte(body[i])
		case c == quote:
			inQuote = !inQuote
		case !inQuote && c == separator:
			tokens = append(tokens, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, ecf.NewError(ecf.KindComm, "unterminated string in reply")
	}
	return append(tokens, cur.String()), nil
}

func parseReply(raw []byte) (*reply, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) < 2 || raw[0] != openBrace || raw[len(raw)-1] != closeBrace {
		return nil, ecf.Errorf(ecf.KindComm, "malformed reply %q", raw)
	}
	body, err := codec.Decode(raw[1:len(raw)-1], codec.CP850)
	if err != nil {
		return nil, err
	}
	tokens, err := tokenize(body)
	if err != nil {
		return nil, err
	}
	if len(tokens) < 2 {
		return nil, ecf.Errorf(ecf.KindComm, "malformed reply %q", raw)
	}
	r := &reply{fields: make(map[string]string, len(tokens)-2)}
	if r.id, err = strconv.Atoi(tokens[0]); err != nil {
		return nil, ecf.Errorf(ecf.KindComm, "malformed reply id %q", tokens[0])
	}
	if r.retcode, err = strconv.Atoi(tokens[1]); err != nil {
		return nil, ecf.Errorf(ecf.KindComm, "malformed return code %q", tokens[1])
	}
	for _, tok := range tokens[2:] {
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, ecf.Errorf(ecf.KindComm, "malformed reply field %q", tok)
		}
		r.fields[k] = v
	}
	return r, nil
}

func (r *reply) text(key string) string { return r.fields[key] }

func (r *reply) integer(key string) (int, error) {
	n, err := strconv.Atoi(r.fields[key])
	if err != nil {
		return 0, ecf.WrapError(ecf.KindComm, "malformed "+key, err)
	}
	return n, nil
}

func (r *reply) decimal(key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.Replace(r.fields[key], ",", ".", 1))
	if err != nil {
		return decimal.Zero, ecf.WrapError(ecf.KindComm, "malformed "+key, err)
	}
	return d, nil
}

func (d *Driver) nextID() int {
	d.id++
	if d.id > maxID {
		d.id = 1
	}
	return d.id
}

func (d *Driver) roundTrip(ctx context.Context, cmd string, params ...param) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	id := d.nextID()
	pkt, err := buildRequest(id, cmd, params)
	if err != nil {
		return nil, 0, err
	}
	ecf.LogTx(d.port.Name(), pkt)
	if err := d.port.Write(pkt); err != nil {
		return nil, 0, err
	}
	raw, err := transport.ReadUntilComplete(d.port, readChunk, replyComplete, transport.DefaultRetryConfig(cmd))
	return raw, id, err
}

func (d *Driver) send(ctx context.Context, cmd string, params ...param) (*reply, error) {
	raw, id, err := d.roundTrip(ctx, cmd, params...)
	if err != nil {
		return nil, err
	}
	r, err := parseReply(raw)
	if err != nil {
		return nil, err
	}
	if r.id != id {
		return nil, ecf.Errorf(ecf.KindComm, "reply id %d does not match request %d", r.id, id)
	}
	if r.retcode != retOK {
		return r, retCodes.Lookup(r.retcode)
	}
	return r, nil
}
