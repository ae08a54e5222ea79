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

// Command ecftool drives a fiscal printer from the command line:
//
//	ecftool --brand bematech --model mp25 --port /dev/ttyS0 counters
//
// Flags may also come from ECF_* environment variables or a config file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	ecf "github.com/stoqdrivers/go-ecf"
	_ "github.com/stoqdrivers/go-ecf/drivers/bematech"
	_ "github.com/stoqdrivers/go-ecf/drivers/daruma"
	_ "github.com/stoqdrivers/go-ecf/drivers/dataregis"
	_ "github.com/stoqdrivers/go-ecf/drivers/perto"
	_ "github.com/stoqdrivers/go-ecf/drivers/sweda"
	_ "github.com/stoqdrivers/go-ecf/drivers/virtual"
	"github.com/stoqdrivers/go-ecf/port/serial"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("ecftool", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.String("brand", "", "printer brand (e.g. bematech, daruma, virtual)")
	fs.String("model", "", "printer model (e.g. mp25, fs345)")
	fs.String("port", "", "serial device path (e.g. /dev/ttyS0 or COM3)")
	fs.Int("baud", 9600, "serial baud rate")
	fs.Duration("timeout", 30*time.Second, "timeout for the whole command")
	fs.String("config", "", "optional config file")
	fs.Bool("debug", false, "log wire traffic")
	return fs
}

func loadConfig(args []string) (*viper.Viper, []string, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	v := viper.New()
	v.SetEnvPrefix("ECF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, nil, err
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, fs.Args(), nil
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: ecftool [flags] <command> [args...]")
	_, _ = fmt.Fprintln(w, "\nflags:")
	_, _ = fmt.Fprint(w, newFlagSet().FlagUsages())
	_, _ = fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].usage)
	}
}

// run executes one command. factory opens the printer port.
func run(ctx context.Context, args []string, out io.Writer, factory ecf.PortFactory) error {
	v, rest, err := loadConfig(args)
	if err != nil {
		return err
	}
	if v.GetBool("debug") {
		ecf.SetDebugEnabled(true)
	}
	if len(rest) == 0 {
		usage(out)
		return errors.New("no command given")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}

	ctx, cancel := context.WithTimeout(ctx, v.GetDuration("timeout"))
	defer cancel()

	e := &env{out: out, cfg: v, factory: factory}
	defer e.close()
	return cmd.run(ctx, e, rest[1:])
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, serial.Factory); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ecftool: %v\n", err)
		stop()
		os.Exit(1)
	}
}
