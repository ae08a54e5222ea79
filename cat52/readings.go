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

package cat52

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
)

// Aggregate totalizer tokens
const (
	TokenSubstitution     = "FF"
	TokenExemption        = "II"
	TokenNone             = "NN"
	TokenDiscountICMS     = "DT"
	TokenSurchargeICMS    = "AT"
	TokenCancelledICMS    = "Can-T"
	TokenDiscountService  = "DS"
	TokenSurchargeService = "AS"
	TokenCancelledService = "Can-S"
)

// TotalizerToken names a tax totalizer. Rated totalizers are the slot
// index, T or S and the rate in hundredths, such as 01T1800.
//
// Substitution maps to FF and exemption to II, the codes of the fiscal
// file layout. Listings that pair substitution with II have the two
// swapped and are not followed here.
func TotalizerToken(tax ecf.TaxConstant, slot int) string {
	switch tax.Type {
	case ecf.TaxSubstitution:
		return TokenSubstitution
	case ecf.TaxExemption:
		return TokenExemption
	case ecf.TaxNone:
		return TokenNone
	case ecf.TaxService:
		return fmt.Sprintf("%02dS%04d", slot, tax.Rate.Shift(2).IntPart())
	default:
		return fmt.Sprintf("%02dT%04d", slot, tax.Rate.Shift(2).IntPart())
	}
}

// SoftwareHouse identifies the company that wrote the exporting program
type SoftwareHouse struct {
	CNPJ    string
	IE      string
	Name    string
	Program string
	Version string
}

// User is the taxpayer the printer is registered to
type User struct {
	CNPJ       string
	IE         string
	Name       string
	Address    string
	Registered time.Time
	Number     int
	ECFNumber  int
}

// Readings are the device values needed to build the header records
type Readings struct {
	Info       ecf.Info
	Serial     string
	Firmware   string
	Counters   ecf.Counters
	Reductions []*ecf.Sintegra
	Taken      time.Time
}

// Collect queries a printer for its serial, counters and, when the model
// reports it, firmware version. Reductions are appended by the caller
// from CloseTill results.
func Collect(ctx context.Context, p *ecf.FiscalPrinter, reductions ...*ecf.Sintegra) (Readings, error) {
	r := Readings{Info: p.Info(), Reductions: reductions, Taken: time.Now()}
	var err error
	if r.Serial, err = p.Serial(ctx); err != nil {
		return r, err
	}
	if r.Counters, err = p.Counters(ctx); err != nil {
		return r, err
	}
	if fr, ok := p.Driver().(ecf.FirmwareReader); ok {
		if r.Firmware, err = fr.Firmware(ctx); err != nil {
			return r, err
		}
	}
	return r, nil
}

func digits(s string) decimal.Decimal {
	var n []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n = append(n, s[i])
		}
	}
	if len(n) == 0 {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FromReadings builds the E00, E01, E02, E12 and E13 records. One E12 and
// its E13 totalizers are produced per reduction.
func FromReadings(sh SoftwareHouse, user User, r Readings) (*File, error) {
	f := NewFile()
	add := func(tag string, values ...any) error { return f.AddRecord(tag, values...) }

	if err := add(TagSoftwareHouse,
		r.Serial, "", "ECF-IF", r.Info.Brand, r.Info.Model,
		digits(sh.CNPJ), sh.IE, sh.Name, sh.Program, sh.Version,
	); err != nil {
		return nil, err
	}

	crzStart, crzEnd := r.Counters.CRZ, r.Counters.CRZ
	dateStart, dateEnd := r.Taken, r.Taken
	grand := decimal.Zero
	for i, s := range r.Reductions {
		if i == 0 || s.CRZ < crzStart {
			crzStart = s.CRZ
		}
		if i == 0 || s.CRZ > crzEnd {
			crzEnd = s.CRZ
		}
		if i == 0 || s.OpeningDate.Before(dateStart) {
			dateStart = s.OpeningDate
		}
		if i == 0 || s.OpeningDate.After(dateEnd) {
			dateEnd = s.OpeningDate
		}
		if s.Total.GreaterThan(grand) {
			grand = s.Total
		}
	}

	if err := add(TagECF,
		r.Serial, "", "ECF-IF", r.Info.Brand, r.Info.Model,
		r.Firmware, r.Taken, r.Taken, user.ECFNumber, digits(user.CNPJ),
		"", crzStart, crzEnd, dateStart, dateEnd, "", "",
	); err != nil {
		return nil, err
	}

	registered := user.Registered
	if registered.IsZero() {
		registered = r.Taken
	}
	if err := add(TagUser,
		r.Serial, "", r.Info.Model, digits(user.CNPJ), user.IE, user.Name,
		user.Address, registered, registered, r.Counters.CRO, grand, user.Number,
	); err != nil {
		return nil, err
	}

	for _, s := range r.Reductions {
		if err := add(TagReduction,
			r.Serial, "", r.Info.Model, user.Number, s.CRZ, s.COOEnd, s.CRO,
			s.OpeningDate, s.OpeningDate, s.OpeningDate, s.PeriodTotal, false,
		); err != nil {
			return nil, err
		}
		for _, t := range s.Taxes {
			if err := add(TagTotalizer,
				r.Serial, "", r.Info.Model, user.Number, s.CRZ, t.Code, t.Value,
			); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}
