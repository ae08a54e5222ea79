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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/cat52"
	"github.com/stoqdrivers/go-ecf/cheque"
	"github.com/stoqdrivers/go-ecf/detection"
)

type command struct {
	run   func(ctx context.Context, e *env, args []string) error
	usage string
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"status":      {run: cmdStatus, usage: "print the raw status reply"},
		"serial":      {run: cmdSerial, usage: "print the device serial number"},
		"counters":    {run: cmdCounters, usage: "print COO, GNF, CRZ, CRO and CCF"},
		"taxes":       {run: cmdTaxes, usage: "list programmed tax rates"},
		"payments":    {run: cmdPayments, usage: "list payment methods"},
		"read-x":      {run: cmdReadX, usage: "issue a read X"},
		"reduce-z":    {run: cmdReduceZ, usage: "issue a Z reduction [--previous-day]"},
		"add-cash":    {run: cmdCash(true), usage: "VALUE: supply cash to the till"},
		"remove-cash": {run: cmdCash(false), usage: "VALUE: withdraw cash from the till"},
		"read-memory": {run: cmdReadMemory, usage: "START END: fiscal memory by date (YYYY-MM-DD) or --reductions"},
		"cancel":      {run: cmdCancel, usage: "cancel the open or last coupon"},
		"ports":       {run: cmdPorts, usage: "list serial ports [--usb-only]"},
		"models":      {run: cmdModels, usage: "list supported brands and models"},
		"cheque":      {run: cmdCheque, usage: "BANK VALUE PAYEE CITY: print a cheque [--banks FILE] [--dp20c PORT]"},
		"cat52":       {run: cmdCAT52, usage: "FILE: export device readings as CAT-52"},
		"watch":       {run: cmdWatch, usage: "poll the status and report online/offline changes"},
	}
}

func (e *env) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.out, format, args...)
}

func cmdStatus(ctx context.Context, e *env, _ []string) error {
	p, err := e.printer()
	if err != nil {
		return err
	}
	reply, err := p.QueryStatus(ctx)
	if err != nil {
		return err
	}
	e.printf("%q\n", reply)
	return nil
}

func cmdSerial(ctx context.Context, e *env, _ []string) error {
	p, err := e.printer()
	if err != nil {
		return err
	}
	s, err := p.Serial(ctx)
	if err != nil {
		return err
	}
	e.printf("%s\n", s)
	return nil
}

func cmdCounters(ctx context.Context, e *env, _ []string) error {
	p, err := e.printer()
	if err != nil {
		return err
	}
	c, err := p.Counters(ctx)
	if err != nil {
		return err
	}
	e.printf("COO %d\nGNF %d\nCRZ %d\nCRO %d\nCCF %d\n", c.COO, c.GNF, c.CRZ, c.CRO, c.CCF)
	return nil
}

func cmdTaxes(ctx context.Context, e *env, _ []string) error {
	p, err := e.printer()
	if err != nil {
		return err
	}
	taxes, err := p.TaxConstants(ctx)
	if err != nil {
		return err
	}
	for _, t := range taxes {
		e.printf("%s\n", t)
	}
	return nil
}

func cmdPayments(ctx context.Context, e *env, _ []string) error {
	p, err := e.printer()
	if err != nil {
		return err
	}
	methods, err := p.PaymentConstants(ctx)
	if err != nil {
		return err
	}
	for _, m := range methods {
		e.printf("%q %s\n", m.Token, m.Label)
	}
	return nil
}

func cmdReadX(ctx context.Context, e *env, _ []string) error {
	p, err := e.printer()
	if err != nil {
		return err
	}
	return p.Summarize(ctx)
}

func cmdReduceZ(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("reduce-z", pflag.ContinueOnError)
	previous := fs.Bool("previous-day", false, "close the previous day's pending reduction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := e.printer()
	if err != nil {
		return err
	}
	s, err := p.CloseTill(ctx, *previous)
	if err != nil {
		return err
	}
	if s == nil {
		e.printf("reduction issued\n")
		return nil
	}
	e.printf("CRZ %d COO %d-%d total %s\n", s.CRZ, s.COOStart, s.COOEnd, s.PeriodTotal.StringFixed(2))
	for _, t := range s.Taxes {
		e.printf("  %-7s %s\n", t.Code, t.Value.StringFixed(2))
	}
	return nil
}

func cmdCash(add bool) func(context.Context, *env, []string) error {
	return func(ctx context.Context, e *env, args []string) error {
		if len(args) != 1 {
			return errors.New("expected VALUE")
		}
		value, err := decimal.NewFromString(strings.ReplaceAll(args[0], ",", "."))
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[0], err)
		}
		p, err := e.printer()
		if err != nil {
			return err
		}
		if add {
			return p.TillAddCash(ctx, value)
		}
		return p.TillRemoveCash(ctx, value)
	}
}

func cmdReadMemory(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("read-memory", pflag.ContinueOnError)
	byReductions := fs.Bool("reductions", false, "START and END are reduction numbers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("expected START END")
	}
	p, err := e.printer()
	if err != nil {
		return err
	}
	if *byReductions {
		start, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("invalid start: %w", err)
		}
		end, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid end: %w", err)
		}
		return p.TillReadMemoryByReductions(ctx, start, end)
	}
	start, err := time.ParseInLocation(time.DateOnly, fs.Arg(0), time.Local)
	if err != nil {
		return fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.ParseInLocation(time.DateOnly, fs.Arg(1), time.Local)
	if err != nil {
		return fmt.Errorf("invalid end: %w", err)
	}
	return p.TillReadMemory(ctx, start, end)
}

func cmdCancel(ctx context.Context, e *env, _ []string) error {
	p, err := e.printer()
	if err != nil {
		return err
	}
	return p.Cancel(ctx)
}

func cmdPorts(_ context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("ports", pflag.ContinueOnError)
	usbOnly := fs.Bool("usb-only", false, "only list USB serial adapters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts := detection.DefaultOptions()
	opts.USBOnly = *usbOnly
	ports, err := detection.ListPorts(opts)
	if err != nil {
		return err
	}
	for _, p := range ports {
		if p.USB {
			e.printf("%s\t%s\t%s\t%s\n", p.Path, p.VIDPID, p.Product, p.SerialNumber)
			continue
		}
		e.printf("%s\n", p.Path)
	}
	return nil
}

func cmdModels(_ context.Context, e *env, _ []string) error {
	for _, m := range ecf.Models() {
		e.printf("%s\t%s\n", m.Brand, m.Model)
	}
	return nil
}

func cmdCheque(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("cheque", pflag.ContinueOnError)
	banksFile := fs.String("banks", "", "bank coordinates INI file")
	dp20c := fs.String("dp20c", "", "print on a DP20C at this port instead of the fiscal printer")
	date := fs.String("date", "", "cheque date (YYYY-MM-DD, default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 4 {
		return errors.New("expected BANK VALUE PAYEE CITY")
	}

	banks, err := cheque.DefaultBanks()
	if *banksFile != "" {
		banks, err = cheque.LoadBanksFile(*banksFile)
	}
	if err != nil {
		return err
	}
	code, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid bank %q: %w", fs.Arg(0), err)
	}
	bank, err := banks.Get(code)
	if err != nil {
		return err
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(fs.Arg(1), ",", "."))
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", fs.Arg(1), err)
	}
	c := cheque.Cheque{Date: time.Now(), Value: value, Thirdparty: fs.Arg(2), City: fs.Arg(3)}
	if *date != "" {
		if c.Date, err = time.ParseInLocation(time.DateOnly, *date, time.Local); err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}
	}

	if *dp20c != "" {
		port, err := e.open(*dp20c)
		if err != nil {
			return err
		}
		printer, err := cheque.NewDP20C(port)
		if err != nil {
			_ = port.Close()
			return err
		}
		defer func() { _ = printer.Close() }()
		return printer.PrintCheque(ctx, bank, c)
	}

	p, err := e.printer()
	if err != nil {
		return err
	}
	printer, ok := p.Driver().(cheque.Printer)
	if !ok {
		return ecf.Errorf(ecf.KindCommand, "%s has no cheque station", p.Info())
	}
	return printer.PrintCheque(ctx, bank, c)
}

func cmdCAT52(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("cat52", pflag.ContinueOnError)
	fs.String("sh-cnpj", "", "software house CNPJ")
	fs.String("sh-ie", "", "software house state registration")
	fs.String("sh-name", "", "software house name")
	fs.String("program", "ecftool", "program name")
	fs.String("program-version", "1.0", "program version")
	fs.String("user-cnpj", "", "taxpayer CNPJ")
	fs.String("user-ie", "", "taxpayer state registration")
	fs.String("user-name", "", "taxpayer name")
	fs.String("user-address", "", "taxpayer address")
	fs.Int("user-number", 1, "user order number on the device")
	fs.Int("ecf-number", 1, "ECF number at the establishment")
	fs.Bool("reduce-z", false, "issue a Z reduction and include it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected FILE")
	}
	v := e.cfg
	if err := v.BindPFlags(fs); err != nil {
		return err
	}

	p, err := e.printer()
	if err != nil {
		return err
	}
	var reductions []*ecf.Sintegra
	if v.GetBool("reduce-z") {
		s, err := p.CloseTill(ctx, false)
		if err != nil {
			return err
		}
		if s != nil {
			reductions = append(reductions, s)
		}
	}
	readings, err := cat52.Collect(ctx, p, reductions...)
	if err != nil {
		return err
	}
	file, err := cat52.FromReadings(
		cat52.SoftwareHouse{
			CNPJ:    v.GetString("sh-cnpj"),
			IE:      v.GetString("sh-ie"),
			Name:    v.GetString("sh-name"),
			Program: v.GetString("program"),
			Version: v.GetString("program-version"),
		},
		cat52.User{
			CNPJ:      v.GetString("user-cnpj"),
			IE:        v.GetString("user-ie"),
			Name:      v.GetString("user-name"),
			Address:   v.GetString("user-address"),
			Number:    v.GetInt("user-number"),
			ECFNumber: v.GetInt("ecf-number"),
		},
		readings,
	)
	if err != nil {
		return err
	}
	data, err := file.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(fs.Arg(0), data, 0o644); err != nil {
		return err
	}
	e.printf("wrote %s (%d records)\n", fs.Arg(0), len(file.Records()))
	return nil
}
