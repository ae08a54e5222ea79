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

// Package cat52 writes and reads CAT-52 fiscal export files: fixed width
// latin-1 records sorted by type tag, CRLF terminated, closed by an EAD
// trailer holding the MD5 of everything before it.
package cat52

// FieldType is how a field value is formatted
type FieldType int

const (
	// Alpha is left justified, space padded text
	Alpha FieldType = iota
	// Numeric is a right justified, zero padded scaled integer
	Numeric
	// Date is YYYYMMDD
	Date
	// Time is HHMMSS
	Time
	// Bool is S or N
	Bool
)

// Field is one fixed width column of a record
type Field struct {
	Name     string
	Type     FieldType
	Width    int
	Decimals int
}

// Schema is the layout of one record type
type Schema struct {
	Tag    string
	Fields []Field
}

// Width is the line length without CRLF
func (s Schema) Width() int {
	n := len(s.Tag)
	for _, f := range s.Fields {
		n += f.Width
	}
	return n
}

func alpha(name string, width int) Field { return Field{Name: name, Type: Alpha, Width: width} }

func num(name string, width, decimals int) Field {
	return Field{Name: name, Type: Numeric, Width: width, Decimals: decimals}
}

func date(name string) Field { return Field{Name: name, Type: Date, Width: 8} }

func clock(name string) Field { return Field{Name: name, Type: Time, Width: 6} }

func flag(name string) Field { return Field{Name: name, Type: Bool, Width: 1} }

// ecfFields identifies the printer at the start of most records
var ecfFields = []Field{
	alpha("serial", 20),
	alpha("additional_mf", 1),
	alpha("model", 20),
	num("user_number", 2, 0),
}

func withECF(fields ...Field) []Field {
	return append(append([]Field(nil), ecfFields...), fields...)
}

// Record tags
const (
	TagSoftwareHouse = "E00"
	TagECF           = "E01"
	TagUser          = "E02"
	TagReduction     = "E12"
	TagTotalizer     = "E13"
	TagCoupon        = "E14"
	TagItem          = "E15"
	TagDocument      = "E16"
	TagPayment       = "E21"
	TagTrailer       = "EAD"
)

var schemas = map[string]Schema{
	TagSoftwareHouse: {Tag: TagSoftwareHouse, Fields: []Field{
		alpha("serial", 20),
		alpha("additional_mf", 1),
		alpha("ecf_type", 7),
		alpha("brand", 20),
		alpha("model", 20),
		num("cnpj", 14, 0),
		alpha("ie", 14),
		alpha("company_name", 40),
		alpha("software_name", 40),
		alpha("software_version", 10),
	}},
	TagECF: {Tag: TagECF, Fields: []Field{
		alpha("serial", 20),
		alpha("additional_mf", 1),
		alpha("ecf_type", 7),
		alpha("brand", 20),
		alpha("model", 20),
		alpha("firmware", 10),
		date("firmware_date"),
		clock("firmware_time"),
		num("ecf_number", 3, 0),
		num("user_cnpj", 14, 0),
		alpha("command", 3),
		num("crz_start", 6, 0),
		num("crz_end", 6, 0),
		date("date_start"),
		date("date_end"),
		alpha("library_version", 8),
		alpha("cotepe_version", 15),
	}},
	TagUser: {Tag: TagUser, Fields: []Field{
		alpha("serial", 20),
		alpha("additional_mf", 1),
		alpha("model", 20),
		num("user_cnpj", 14, 0),
		alpha("user_ie", 14),
		alpha("user_name", 40),
		alpha("address", 120),
		date("registered_date"),
		clock("registered_time"),
		num("cro", 6, 0),
		num("grand_total", 18, 2),
		num("user_number", 2, 0),
	}},
	TagReduction: {Tag: TagReduction, Fields: withECF(
		num("crz", 6, 0),
		num("coo", 6, 0),
		num("cro", 6, 0),
		date("movement_date"),
		date("issue_date"),
		clock("issue_time"),
		num("period_total", 14, 2),
		flag("issqn_discount"),
	)},
	TagTotalizer: {Tag: TagTotalizer, Fields: withECF(
		num("crz", 6, 0),
		alpha("totalizer", 7),
		num("value", 13, 2),
	)},
	TagCoupon: {Tag: TagCoupon, Fields: withECF(
		num("document_counter", 6, 0),
		num("coo", 6, 0),
		date("issue_date"),
		num("subtotal", 14, 2),
		num("discount", 13, 2),
		num("surcharge", 13, 2),
		num("total", 14, 2),
		flag("cancelled"),
		alpha("client_name", 40),
		num("client_document", 14, 0),
	)},
	TagItem: {Tag: TagItem, Fields: withECF(
		num("coo", 6, 0),
		num("document_counter", 6, 0),
		num("item", 3, 0),
		alpha("code", 14),
		alpha("description", 100),
		num("quantity", 7, 2),
		alpha("unit", 3),
		num("unit_price", 8, 2),
		num("total", 14, 2),
		alpha("totalizer", 7),
		flag("cancelled"),
		alpha("rounding", 1),
		num("quantity_decimals", 1, 0),
		num("price_decimals", 1, 0),
	)},
	TagDocument: {Tag: TagDocument, Fields: withECF(
		num("coo", 6, 0),
		num("gnf", 6, 0),
		num("crz", 6, 0),
		alpha("document_type", 2),
		date("end_date"),
		clock("end_time"),
	)},
	TagPayment: {Tag: TagPayment, Fields: withECF(
		num("coo", 6, 0),
		num("document_counter", 6, 0),
		num("gnf", 6, 0),
		alpha("method", 15),
		num("value", 13, 2),
		flag("returned"),
		num("returned_value", 13, 2),
	)},
}

// SchemaFor returns the schema of a record tag
func SchemaFor(tag string) (Schema, bool) {
	s, ok := schemas[tag]
	return s, ok
}
