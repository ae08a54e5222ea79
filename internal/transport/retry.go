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

// Package transport provides the read-retry loops shared by drivers
package transport

import (
	"time"

	ecf "github.com/stoqdrivers/go-ecf"
)

// RetriesBeforeTimeout is the default number of empty or short reads
// tolerated before a reply is considered lost
const RetriesBeforeTimeout = 12

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry     func(attempt int)
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
}

// DefaultRetryConfig retries RetriesBeforeTimeout times without delay
func DefaultRetryConfig(description string) RetryConfig {
	return RetryConfig{
		Description: description,
		MaxRetries:  RetriesBeforeTimeout,
	}
}

// WithRetry executes an operation with retry logic. When retries are
// exhausted it fails with ecf.ErrTimeout.
func WithRetry[T any](config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			break
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt + 1)
		}
		if config.RetryDelay > 0 {
			time.Sleep(config.RetryDelay)
		}
	}

	ecf.Debugf("%s: giving up after %d retries", config.Description, config.MaxRetries)
	return zero, ecf.ErrTimeout
}

// Reader is the read side of a port
type Reader interface {
	Read(n int) ([]byte, error)
	Name() string
}

// ReadFull reads exactly n bytes, tolerating up to config.MaxRetries
// short reads
func ReadFull(r Reader, n int, config RetryConfig) ([]byte, error) {
	buf := make([]byte, 0, n)
	out, err := WithRetry(config, func() ([]byte, bool, error) {
		chunk, err := r.Read(n - len(buf))
		if err != nil {
			return nil, false, ecf.WrapError(ecf.KindComm, "read failed", err)
		}
		buf = append(buf, chunk...)
		if len(buf) < n {
			return nil, true, nil
		}
		return buf, false, nil
	})
	if len(buf) > 0 {
		ecf.LogRx(r.Name(), buf)
	}
	return out, err
}

// ReadUntilComplete reads chunks of up to chunk bytes until complete
// accepts the accumulated reply
func ReadUntilComplete(r Reader, chunk int, complete func([]byte) bool, config RetryConfig) ([]byte, error) {
	var buf []byte
	out, err := WithRetry(config, func() ([]byte, bool, error) {
		got, err := r.Read(chunk)
		if err != nil {
			return nil, false, ecf.WrapError(ecf.KindComm, "read failed", err)
		}
		buf = append(buf, got...)
		if !complete(buf) {
			return nil, true, nil
		}
		return buf, false, nil
	})
	if len(buf) > 0 {
		ecf.LogRx(r.Name(), buf)
	}
	return out, err
}
