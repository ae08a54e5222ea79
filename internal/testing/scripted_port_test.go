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

package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedPortPlayback(t *testing.T) {
	t.Parallel()

	p := NewScriptedPort(
		Exchange{Expect: []byte("AB"), Reply: []byte("ok\r")},
		Exchange{Expect: []byte("C"), Reply: []byte{0x06}},
	)

	require.NoError(t, p.Write([]byte("A")))
	got, err := p.Read(8)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, p.Write([]byte("B")))
	line, err := p.ReadUntil([]byte("\r"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok\r"), line)

	require.NoError(t, p.Write([]byte("C")))
	got, err = p.Read(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06}, got)

	assert.True(t, p.Done())
	assert.NoError(t, p.Err())
	assert.Equal(t, []byte("ABC"), p.Written())
}

func TestScriptedPortMismatch(t *testing.T) {
	t.Parallel()

	p := NewScriptedPort(Exchange{Expect: []byte("AB")})
	require.Error(t, p.Write([]byte("AX")))
	require.Error(t, p.Err())
	assert.Equal(t, 1, p.Remaining())
}

func TestScriptedPortPastEnd(t *testing.T) {
	t.Parallel()

	p := NewScriptedPort()
	require.Error(t, p.Write([]byte{1}))
	_, err := p.ReadUntil([]byte("}"))
	require.Error(t, err)
}
