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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	ctor := func(Port) (Driver, error) { return nil, nil }
	Register("TestBrand", "Model-A", ctor)

	got, err := Lookup("testbrand", "MODEL-A")
	require.NoError(t, err)
	assert.NotNil(t, got)

	assert.Panics(t, func() { Register("testbrand", "model-a", ctor) })

	_, err = Lookup("testbrand", "model-b")
	assert.ErrorIs(t, err, ErrCritical)

	assert.Contains(t, Models(), Info{Brand: "testbrand", Model: "model-a"})
}
