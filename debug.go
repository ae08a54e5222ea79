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

package ecf

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger replaces the package logger. A nil logger disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Logger returns the package logger
func Logger() *zap.Logger {
	return logger.Load()
}

// SetDebugEnabled installs a development logger at debug level, or turns
// logging off
func SetDebugEnabled(enabled bool) {
	if !enabled {
		SetLogger(nil)
		return
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return
	}
	SetLogger(l)
}

// Debugf logs a formatted message at debug level
func Debugf(format string, args ...any) {
	Logger().Debug(fmt.Sprintf(format, args...))
}

// LogTx logs bytes written to a port
func LogTx(port string, b []byte) {
	Logger().Debug("tx", zap.String("port", port), zap.String("hex", hex.EncodeToString(b)))
}

// LogRx logs bytes read from a port
func LogRx(port string, b []byte) {
	Logger().Debug("rx", zap.String("port", port), zap.String("hex", hex.EncodeToString(b)))
}

// WarnStatus logs a soft device condition such as AlmostOutOfPaper. It
// is the WarnFunc drivers hand to the status decoder.
func WarnStatus(e *Error) {
	Logger().Warn("printer status warning", zap.String("kind", e.Kind.String()), zap.String("msg", e.Msg))
}
