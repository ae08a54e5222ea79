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
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"

	ecf "github.com/stoqdrivers/go-ecf"
)

var crlf = []byte{'\r', '\n'}

// File collects records for export
type File struct {
	records []*Record
}

// NewFile returns an empty file
func NewFile() *File {
	return &File{}
}

// Add appends records
func (f *File) Add(records ...*Record) {
	f.records = append(f.records, records...)
}

// AddRecord builds a record and appends it
func (f *File) AddRecord(tag string, values ...any) error {
	r, err := NewRecord(tag, values...)
	if err != nil {
		return err
	}
	f.records = append(f.records, r)
	return nil
}

// Records returns the records sorted by tag, keeping insertion order
// within a tag
func (f *File) Records() []*Record {
	out := append([]*Record(nil), f.records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// WriteTo writes the sorted records followed by the EAD trailer
func (f *File) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, r := range f.Records() {
		line, err := r.Encode()
		if err != nil {
			return 0, err
		}
		buf.Write(line)
	}
	sum := md5.Sum(buf.Bytes())
	buf.WriteString(TagTrailer)
	buf.WriteString(hex.EncodeToString(sum[:]))
	buf.Write(crlf)
	return buf.WriteTo(w)
}

// Bytes renders the file
func (f *File) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ErrChecksum is returned by Parse when the EAD digest does not match
var ErrChecksum = ecf.NewError(ecf.KindInvalidValue, "EAD checksum mismatch")

// Parse reads a file written by WriteTo. Every line must end with CRLF,
// match its schema and the last line must be a valid EAD trailer.
func Parse(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	h := md5.New()
	f := NewFile()
	for n := 1; ; n++ {
		line, err := br.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(line) == 0 {
				return nil, ecf.NewError(ecf.KindInvalidValue, "missing EAD trailer")
			}
			return nil, ecf.Errorf(ecf.KindInvalidValue, "line %d: missing CRLF", n)
		}
		if err != nil {
			return nil, ecf.WrapError(ecf.KindComm, "read", err)
		}
		if !bytes.HasSuffix(line, crlf) {
			return nil, ecf.Errorf(ecf.KindInvalidValue, "line %d: missing CRLF", n)
		}
		body := line[:len(line)-2]
		if bytes.HasPrefix(body, []byte(TagTrailer)) {
			if err := checkTrailer(body, h.Sum(nil)); err != nil {
				return nil, err
			}
			if _, err := br.Peek(1); !errors.Is(err, io.EOF) {
				return nil, ecf.Errorf(ecf.KindInvalidValue, "line %d: data after EAD trailer", n+1)
			}
			return f, nil
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, ecf.WrapError(ecf.KindInvalidValue, fmt.Sprintf("line %d", n), err)
		}
		h.Write(line)
		f.records = append(f.records, rec)
	}
}

func checkTrailer(body, sum []byte) error {
	got := string(body[len(TagTrailer):])
	if got != hex.EncodeToString(sum) {
		return ErrChecksum
	}
	return nil
}
