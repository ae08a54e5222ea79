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

package cheque

import (
	"context"
	"strings"

	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stoqdrivers/go-ecf/internal/frame"
)

const (
	formFeed = 0x0C
	initCmd  = '@'
)

// DP20C drives the Bematech DP-20C cheque printer, a line printer that
// takes the form as plain text
type DP20C struct {
	port ecf.Port
}

// NewDP20C creates a DP-20C driver
func NewDP20C(port ecf.Port) (*DP20C, error) {
	if port == nil {
		return nil, ecf.NewError(ecf.KindConfig, "nil port")
	}
	return &DP20C{port: port}, nil
}

// PrintCheque prints c on the bank's form and ejects it
func (p *DP20C) PrintCheque(ctx context.Context, bank *BankConfiguration, c Cheque) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fields, err := bank.Layout(c)
	if err != nil {
		return err
	}
	page, err := codec.Encode(strings.Join(Render(fields), "\r\n"), codec.CP850)
	if err != nil {
		return err
	}
	out := make([]byte, 0, len(page)+3)
	out = append(out, frame.ESC, initCmd)
	out = append(out, page...)
	out = append(out, formFeed)
	ecf.LogTx(p.port.Name(), out)
	return p.port.Write(out)
}

// Close closes the port
func (p *DP20C) Close() error {
	return p.port.Close()
}
