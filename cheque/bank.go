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

// Package cheque prints cheques on dedicated cheque printers and on fiscal
// printers with a cheque station. Field coordinates come from a per-bank
// INI file.
package cheque

import (
	"bytes"
	_ "embed"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	ecf "github.com/stoqdrivers/go-ecf"
)

//go:embed banks.ini
var defaultBanks []byte

// Position is a line and column on the cheque, both 1-based
type Position struct {
	Line   int
	Column int
}

// BankConfiguration holds where each field is printed on one bank's
// cheque form
type BankConfiguration struct {
	Name         string
	Value        Position
	LegalAmount  Position
	LegalAmount2 Position
	Thirdparty   Position
	City         Position
	Day          Position
	Month        Position
	Year         Position
	// LegalWidth is the width of each legal amount line
	LegalWidth int
	Code       int
}

// Banks maps the bank code to its configuration
type Banks map[int]*BankConfiguration

// Codes returns the configured bank codes, sorted
func (b Banks) Codes() []int {
	out := make([]int, 0, len(b))
	for code := range b {
		out = append(out, code)
	}
	sort.Ints(out)
	return out
}

// Get returns the configuration of a bank
func (b Banks) Get(code int) (*BankConfiguration, error) {
	c, ok := b[code]
	if !ok {
		return nil, ecf.Errorf(ecf.KindConfig, "bank %03d is not configured", code)
	}
	return c, nil
}

// DefaultBanks returns the bundled bank table
func DefaultBanks() (Banks, error) {
	return LoadBanks(bytes.NewReader(defaultBanks))
}

// LoadBanksFile reads a bank table from an INI file
func LoadBanksFile(path string) (Banks, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, ecf.WrapError(ecf.KindConfig, "read bank file", err)
	}
	return parseBanks(v)
}

// LoadBanks reads a bank table in INI format. Each section is a bank
// code; positions are written as "line,column".
func LoadBanks(r io.Reader) (Banks, error) {
	v := viper.New()
	v.SetConfigType("ini")
	if err := v.ReadConfig(r); err != nil {
		return nil, ecf.WrapError(ecf.KindConfig, "read bank table", err)
	}
	return parseBanks(v)
}

func parseBanks(v *viper.Viper) (Banks, error) {
	sections := make(map[string]bool)
	for _, k := range v.AllKeys() {
		section, _, ok := strings.Cut(k, ".")
		if ok {
			sections[section] = true
		}
	}
	banks := make(Banks, len(sections))
	for section := range sections {
		b, err := parseBank(v, section)
		if err != nil {
			return nil, err
		}
		banks[b.Code] = b
	}
	return banks, nil
}

func parseBank(v *viper.Viper, section string) (*BankConfiguration, error) {
	code, err := strconv.Atoi(section)
	if err != nil {
		return nil, ecf.Errorf(ecf.KindConfig, "bank section %q is not a bank code", section)
	}
	b := &BankConfiguration{
		Code:       code,
		Name:       v.GetString(section + ".name"),
		LegalWidth: v.GetInt(section + ".legal_width"),
	}
	if b.LegalWidth <= 0 {
		return nil, ecf.Errorf(ecf.KindConfig, "bank %03d: missing legal_width", code)
	}
	for _, f := range []struct {
		dst *Position
		key string
	}{
		{&b.Value, "value"},
		{&b.LegalAmount, "legal_amount"},
		{&b.LegalAmount2, "legal_amount2"},
		{&b.Thirdparty, "thirdparty"},
		{&b.City, "city"},
		{&b.Day, "day"},
		{&b.Month, "month"},
		{&b.Year, "year"},
	} {
		raw := v.GetString(section + "." + f.key)
		pos, err := parsePosition(raw)
		if err != nil {
			return nil, ecf.WrapError(ecf.KindConfig, "bank "+section+": "+f.key, err)
		}
		*f.dst = pos
	}
	return b, nil
}

func parsePosition(s string) (Position, error) {
	line, col, ok := strings.Cut(s, ",")
	if !ok {
		return Position{}, ecf.Errorf(ecf.KindConfig, "position %q is not line,column", s)
	}
	l, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || l < 1 {
		return Position{}, ecf.Errorf(ecf.KindConfig, "invalid line in %q", s)
	}
	c, err := strconv.Atoi(strings.TrimSpace(col))
	if err != nil || c < 1 {
		return Position{}, ecf.Errorf(ecf.KindConfig, "invalid column in %q", s)
	}
	return Position{Line: l, Column: c}, nil
}
