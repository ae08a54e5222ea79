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

//go:build unix

package serial

import (
	"os"
	"path/filepath"
	"testing"

	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceLockIsExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ttyFAKE")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	first, err := lockDevice(path)
	require.NoError(t, err)

	_, err = lockDevice(path)
	require.Error(t, err)
	assert.Equal(t, ecf.KindConfig, ecf.KindOf(err))
	assert.Contains(t, err.Error(), "in use")

	require.NoError(t, first.release())
	again, err := lockDevice(path)
	require.NoError(t, err)
	assert.NoError(t, again.release())
}
