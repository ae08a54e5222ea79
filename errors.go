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
	"errors"
	"fmt"
)

// ErrorKind classifies fiscal printer failures. Identity of an error is
// its kind, never its message.
type ErrorKind int

const (
	// KindDriver is a generic driver failure, including unhandled device
	// codes and read timeouts
	KindDriver ErrorKind = iota
	// KindComm covers NAKs, malformed frames and write timeouts
	KindComm
	// KindHardwareFailure covers mechanical, CMOS and fiscal memory faults
	KindHardwareFailure
	KindPendingReadX
	KindPendingReduceZ
	KindCouponOpen
	KindCouponNotOpen
	KindCloseCoupon
	KindAlreadyTotalized
	KindReduceZ
	KindOutOfPaper
	// KindAlmostOutOfPaper is a soft condition, logged but never returned
	// by the status decoder
	KindAlmostOutOfPaper
	KindPrinterOffline
	KindCommand
	KindCommandParameters
	KindInvalidState
	// KindCapability is raised before any byte reaches the port
	KindCapability
	KindInvalidValue
	KindItemAddition
	KindCancelItem
	KindPaymentAddition
	KindCouponTotalize
	// KindConfig is a bad configuration (port, options, bank file)
	KindConfig
	// KindCritical is an unknown brand or model
	KindCritical
)

var kindNames = map[ErrorKind]string{
	KindDriver:            "DriverError",
	KindComm:              "CommError",
	KindHardwareFailure:   "HardwareFailure",
	KindPendingReadX:      "PendingReadX",
	KindPendingReduceZ:    "PendingReduceZ",
	KindCouponOpen:        "CouponOpenError",
	KindCouponNotOpen:     "CouponNotOpenError",
	KindCloseCoupon:       "CloseCouponError",
	KindAlreadyTotalized:  "AlreadyTotalized",
	KindReduceZ:           "ReduceZError",
	KindOutOfPaper:        "OutofPaperError",
	KindAlmostOutOfPaper:  "AlmostOutofPaper",
	KindPrinterOffline:    "PrinterOfflineError",
	KindCommand:           "CommandError",
	KindCommandParameters: "CommandParametersError",
	KindInvalidState:      "InvalidState",
	KindCapability:        "CapabilityError",
	KindInvalidValue:      "InvalidValue",
	KindItemAddition:      "ItemAdditionError",
	KindCancelItem:        "CancelItemError",
	KindPaymentAddition:   "PaymentAdditionError",
	KindCouponTotalize:    "CouponTotalizeError",
	KindConfig:            "ConfigError",
	KindCritical:          "CriticalError",
}

// String returns the kind name
func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the single error type surfaced by drivers and the façade
type Error struct {
	Err  error
	Msg  string
	Kind ErrorKind
	// Code is the device's numeric code, zero when not applicable
	Code int
}

// NewError creates an error of the given kind
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// NewCodeError creates an error carrying the device's numeric code
func NewCodeError(kind ErrorKind, code int, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Errorf creates an error of the given kind with a formatted message
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind to an underlying error
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by kind when target is a bare sentinel of that kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Msg == "" && t.Code == 0 {
		return true
	}
	return t.Msg == e.Msg && t.Code == e.Code
}

// Sentinel errors, compared by kind through errors.Is
var (
	ErrDriver            = &Error{Kind: KindDriver}
	ErrComm              = &Error{Kind: KindComm}
	ErrHardwareFailure   = &Error{Kind: KindHardwareFailure}
	ErrPendingReadX      = &Error{Kind: KindPendingReadX}
	ErrPendingReduceZ    = &Error{Kind: KindPendingReduceZ}
	ErrCouponOpen        = &Error{Kind: KindCouponOpen}
	ErrCouponNotOpen     = &Error{Kind: KindCouponNotOpen}
	ErrCloseCoupon       = &Error{Kind: KindCloseCoupon}
	ErrAlreadyTotalized  = &Error{Kind: KindAlreadyTotalized}
	ErrReduceZ           = &Error{Kind: KindReduceZ}
	ErrOutOfPaper        = &Error{Kind: KindOutOfPaper}
	ErrAlmostOutOfPaper  = &Error{Kind: KindAlmostOutOfPaper}
	ErrPrinterOffline    = &Error{Kind: KindPrinterOffline}
	ErrCommand           = &Error{Kind: KindCommand}
	ErrCommandParameters = &Error{Kind: KindCommandParameters}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrCapability        = &Error{Kind: KindCapability}
	ErrInvalidValue      = &Error{Kind: KindInvalidValue}
	ErrItemAddition      = &Error{Kind: KindItemAddition}
	ErrCancelItem        = &Error{Kind: KindCancelItem}
	ErrPaymentAddition   = &Error{Kind: KindPaymentAddition}
	ErrCouponTotalize    = &Error{Kind: KindCouponTotalize}
	ErrConfig            = &Error{Kind: KindConfig}
	ErrCritical          = &Error{Kind: KindCritical}
)

// ErrTimeout is returned when a reply is still incomplete after all read retries
var ErrTimeout = &Error{Kind: KindDriver, Msg: "Timeout"}

// KindOf returns the kind of the first *Error in err's chain. Errors that
// are not *Error report KindDriver.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDriver
}

// IsRetryable reports whether the caller may reissue the failed command.
// Only transport-level failures and out-of-paper qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindComm, KindOutOfPaper, KindPrinterOffline:
		return true
	case KindDriver:
		return e.Msg == ErrTimeout.Msg
	default:
		return false
	}
}

// UnhandledError is raised for device codes missing from a driver's tables
func UnhandledError(code int) *Error {
	return NewCodeError(KindDriver, code, fmt.Sprintf("Unhandled error: %d", code))
}
