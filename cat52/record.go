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

package cat52

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	ecf "github.com/stoqdrivers/go-ecf"
	"github.com/stoqdrivers/go-ecf/codec"
	"github.com/stoqdrivers/go-ecf/format"
)

// Record is one line of the file. Values are stored normalized: string
// for Alpha, decimal.Decimal for Numeric, time.Time for Date and Time,
// bool for Bool.
type Record struct {
	Tag    string
	Values []any
}

// NewRecord builds a record of the given tag, checking the value count
// and each value's type against the schema. Numeric fields also accept
// int, int64 and int32.
func NewRecord(tag string, values ...any) (*Record, error) {
	s, ok := schemas[tag]
	if !ok {
		return nil, ecf.Errorf(ecf.KindInvalidValue, "unknown record type %q", tag)
	}
	if len(values) != len(s.Fields) {
		return nil, ecf.Errorf(ecf.KindInvalidValue, "%s takes %d fields, got %d", tag, len(s.Fields), len(values))
	}
	r := &Record{Tag: tag, Values: make([]any, len(values))}
	for i, f := range s.Fields {
		v, err := normalize(f, values[i])
		if err != nil {
			return nil, ecf.WrapError(ecf.KindInvalidValue, tag+"."+f.Name, err)
		}
		r.Values[i] = v
	}
	return r, nil
}

func normalize(f Field, v any) (any, error) {
	switch f.Type {
	case Alpha:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Numeric:
		var d decimal.Decimal
		switch n := v.(type) {
		case decimal.Decimal:
			d = n
		case int:
			d = decimal.NewFromInt(int64(n))
		case int64:
			d = decimal.NewFromInt(n)
		case int32:
			d = decimal.NewFromInt32(n)
		default:
			return nil, fmt.Errorf("expected a number, got %T", v)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("negative value %s", d)
		}
		return d, nil
	case Date, Time:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unexpected %T", v)
}

// Get returns the value of the named field
func (r *Record) Get(name string) (any, bool) {
	s := schemas[r.Tag]
	for i, f := range s.Fields {
		if f.Name == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Encode renders the record as latin-1 bytes followed by CRLF
func (r *Record) Encode() ([]byte, error) {
	s, ok := schemas[r.Tag]
	if !ok {
		return nil, ecf.Errorf(ecf.KindInvalidValue, "unknown record type %q", r.Tag)
	}
	out := make([]byte, 0, s.Width()+2)
	out = append(out, r.Tag...)
	for i, f := range s.Fields {
		b, err := encodeField(f, r.Values[i])
		if err != nil {
			return nil, ecf.WrapError(ecf.KindInvalidValue, r.Tag+"."+f.Name, err)
		}
		out = append(out, b...)
	}
	return append(out, '\r', '\n'), nil
}

func encodeField(f Field, v any) ([]byte, error) {
	switch f.Type {
	case Alpha:
		return format.Field(v.(string), f.Width, true, codec.Latin1)
	case Numeric:
		return []byte(format.Scaled(v.(decimal.Decimal), f.Width, f.Decimals)), nil
	case Date:
		return []byte(format.DateOf(v.(time.Time))), nil
	case Time:
		return []byte(format.TimeOf(v.(time.Time))), nil
	case Bool:
		return []byte(format.Bool(v.(bool))), nil
	}
	return nil, fmt.Errorf("unknown field type %d", f.Type)
}

// decodeRecord parses one line without its CRLF
func decodeRecord(line []byte) (*Record, error) {
	if len(line) < 3 {
		return nil, ecf.Errorf(ecf.KindInvalidValue, "short record %q", line)
	}
	tag := string(line[:3])
	s, ok := schemas[tag]
	if !ok {
		return nil, ecf.Errorf(ecf.KindInvalidValue, "unknown record type %q", tag)
	}
	if len(line) != s.Width() {
		return nil, ecf.Errorf(ecf.KindInvalidValue, "%s record is %d bytes, expected %d", tag, len(line), s.Width())
	}
	r := &Record{Tag: tag, Values: make([]any, len(s.Fields))}
	pos := 3
	for i, f := range s.Fields {
		raw := line[pos : pos+f.Width]
		pos += f.Width
		v, err := decodeField(f, raw)
		if err != nil {
			return nil, ecf.WrapError(ecf.KindInvalidValue, tag+"."+f.Name, err)
		}
		r.Values[i] = v
	}
	return r, nil
}

func decodeField(f Field, raw []byte) (any, error) {
	switch f.Type {
	case Alpha:
		s, err := codec.Decode(raw, codec.Latin1)
		if err != nil {
			return nil, err
		}
		return strings.TrimRight(s, " "), nil
	case Numeric:
		return format.ParseScaled(string(raw), f.Decimals)
	case Date:
		return format.ParseDate(string(raw))
	case Time:
		return format.ParseTime(string(raw))
	case Bool:
		return format.ParseBool(string(raw))
	}
	return nil, fmt.Errorf("unknown field type %d", f.Type)
}
