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

package transport

import (
	"errors"
	"testing"

	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunkReader struct {
	err    error
	chunks [][]byte
	reads  int
}

func (c *chunkReader) Read(int) ([]byte, error) {
	c.reads++
	if c.err != nil {
		return nil, c.err
	}
	if len(c.chunks) == 0 {
		return []byte{}, nil
	}
	out := c.chunks[0]
	c.chunks = c.chunks[1:]
	return out, nil
}

func (*chunkReader) Name() string { return "chunks" }

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr   error
		name      string
		succeedAt int
		retries   int
		wantCalls int
	}{
		{name: "first attempt", succeedAt: 1, retries: 3, wantCalls: 1},
		{name: "after retries", succeedAt: 3, retries: 3, wantCalls: 3},
		{name: "exhausted", succeedAt: 10, retries: 2, wantCalls: 3, wantErr: ecf.ErrTimeout},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			retried := 0
			cfg := RetryConfig{MaxRetries: tt.retries, OnRetry: func(int) { retried++ }}
			got, err := WithRetry(cfg, func() (int, bool, error) {
				calls++
				return calls, calls < tt.succeedAt, nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantCalls-1, retried)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.succeedAt, got)
		})
	}
}

func TestWithRetryPermanentError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	_, err := WithRetry(DefaultRetryConfig("test"), func() (int, bool, error) {
		calls++
		return 0, true, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestReadFull(t *testing.T) {
	t.Parallel()

	r := &chunkReader{chunks: [][]byte{{1}, {}, {2, 3}}}
	got, err := ReadFull(r, 3, DefaultRetryConfig("read"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, 3, r.reads)
}

func TestReadFullTimeout(t *testing.T) {
	t.Parallel()

	r := &chunkReader{chunks: [][]byte{{1}}}
	_, err := ReadFull(r, 4, DefaultRetryConfig("read"))
	require.ErrorIs(t, err, ecf.ErrTimeout)
	assert.Equal(t, RetriesBeforeTimeout+1, r.reads)
	assert.Equal(t, ecf.KindDriver, ecf.KindOf(err))
}

func TestReadFullPortError(t *testing.T) {
	t.Parallel()

	r := &chunkReader{err: errors.New("unplugged")}
	_, err := ReadFull(r, 1, DefaultRetryConfig("read"))
	require.ErrorIs(t, err, ecf.ErrComm)
}

func TestReadUntilComplete(t *testing.T) {
	t.Parallel()

	r := &chunkReader{chunks: [][]byte{[]byte(":00"), []byte("12\r")}}
	got, err := ReadUntilComplete(r, 64, func(b []byte) bool {
		return len(b) > 0 && b[len(b)-1] == '\r'
	}, DefaultRetryConfig("status"))
	require.NoError(t, err)
	assert.Equal(t, []byte(":0012\r"), got)
}
