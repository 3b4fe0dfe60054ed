// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protopeek

import (
	"errors"
	"io"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

// maxVarintLen is the longest encoding of a 64-bit varint.
const maxVarintLen = 10

var (
	// ErrTruncated indicates that fewer bytes remain than a tag, varint, or
	// field payload requires.
	ErrTruncated = errors.New("truncated input")
	// ErrInvalidEncoding indicates a malformed varint (one that does not
	// terminate within 10 bytes or overflows 64 bits) or a tag carrying
	// an undefined wire type (6 or 7).
	ErrInvalidEncoding = errors.New("invalid encoding")
	// ErrUnsupportedWireType is returned by WireReader.ReadTag, together
	// with the tag, when the tag carries a legacy group marker (wire type
	// 3 or 4).
	ErrUnsupportedWireType = errors.New("unsupported wire type")
)

// WireType is the 3-bit suffix of a field tag that describes how the
// field's value is framed.
type WireType int8

const (
	WireVarint     WireType = WireType(protowire.VarintType)
	WireFixed64    WireType = WireType(protowire.Fixed64Type)
	WireBytes      WireType = WireType(protowire.BytesType)
	WireStartGroup WireType = WireType(protowire.StartGroupType)
	WireEndGroup   WireType = WireType(protowire.EndGroupType)
	WireFixed32    WireType = WireType(protowire.Fixed32Type)
)

// String returns the name used in labels and in exported JSON.
func (w WireType) String() string {
	switch w {
	case WireVarint:
		return "Varint"
	case WireFixed64:
		return "Fixed64"
	case WireBytes:
		return "LengthDelimited"
	case WireStartGroup:
		return "StartGroup"
	case WireEndGroup:
		return "EndGroup"
	case WireFixed32:
		return "Fixed32"
	default:
		return "WireType(" + strconv.Itoa(int(w)) + ")"
	}
}

func (w WireType) isGroupMarker() bool {
	return w == WireStartGroup || w == WireEndGroup
}

// DecodeVarint decodes the base-128 varint that starts at buf[offset]. It
// returns the value and the number of bytes consumed. At most 10 bytes
// are ever examined. Running out of input yields ErrTruncated and a
// varint that does not fit in 64 bits yields ErrInvalidEncoding.
func DecodeVarint(buf []byte, offset int) (uint64, int, error) {
	if offset < 0 || offset >= len(buf) {
		return 0, 0, ErrTruncated
	}
	rest := buf[offset:]
	if len(rest) > maxVarintLen {
		rest = rest[:maxVarintLen]
	}
	value, n := protowire.ConsumeVarint(rest)
	if n < 0 {
		if errors.Is(protowire.ParseError(n), io.ErrUnexpectedEOF) && len(rest) < maxVarintLen {
			return 0, 0, ErrTruncated
		}
		return 0, 0, ErrInvalidEncoding
	}
	return value, n, nil
}

// VarintValue re-derives the unsigned value of a varint from its raw
// bytes, as stored on a Varint field. Bytes after the terminating byte
// are ignored.
func VarintValue(raw []byte) uint64 {
	var result uint64
	var shift uint
	for _, b := range raw {
		if shift >= 64 {
			break
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result
}

// Span is a view of a byte range of the original input. Bytes aliases
// the input buffer; Offset is the absolute position of Bytes[0].
type Span struct {
	Offset int
	Bytes  []byte
}

// WireReader is a cursor over a buffer of protobuf wire-format data. All
// values it returns are sub-slices of that buffer.
type WireReader struct {
	buf  []byte
	pos  int
	base int
}

// NewWireReader returns a reader positioned at the start of buf.
func NewWireReader(buf []byte) *WireReader {
	return &WireReader{buf: buf}
}

// newWireReaderAt is like NewWireReader but reports offsets relative to
// an enclosing buffer in which buf starts at base.
func newWireReaderAt(buf []byte, base int) *WireReader {
	return &WireReader{buf: buf, base: base}
}

// Pos returns the number of bytes consumed so far.
func (r *WireReader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *WireReader) Remaining() int {
	return len(r.buf) - r.pos
}

// Done reports whether the whole buffer has been consumed.
func (r *WireReader) Done() bool {
	return r.pos >= len(r.buf)
}

// ReadTag reads a field tag and splits it into the field number and the
// wire type. For the legacy group markers the tag is still consumed and
// returned, along with ErrUnsupportedWireType, so that callers may record
// the field as an opaque leaf.
func (r *WireReader) ReadTag() (int64, WireType, error) {
	v, n, err := DecodeVarint(r.buf, r.pos)
	if err != nil {
		return 0, 0, err
	}
	number := int64(v >> 3)
	wireType := WireType(v & 7)
	switch wireType {
	case WireVarint, WireFixed64, WireBytes, WireFixed32:
		r.pos += n
		return number, wireType, nil
	case WireStartGroup, WireEndGroup:
		r.pos += n
		return number, wireType, ErrUnsupportedWireType
	default:
		return 0, 0, ErrInvalidEncoding
	}
}

// ReadValue reads the payload of a field with the given wire type. For
// Varint fields the span covers the varint's own bytes, for fixed-width
// fields exactly 4 or 8 bytes, and for length-delimited fields the bytes
// after the length prefix. The cursor does not move on error.
func (r *WireReader) ReadValue(wireType WireType) (Span, error) {
	switch wireType {
	case WireVarint:
		_, n, err := DecodeVarint(r.buf, r.pos)
		if err != nil {
			return Span{}, err
		}
		return r.take(r.pos, n, n), nil
	case WireFixed32:
		return r.fixed(4)
	case WireFixed64:
		return r.fixed(8)
	case WireBytes:
		length, n, err := DecodeVarint(r.buf, r.pos)
		if err != nil {
			return Span{}, err
		}
		start := r.pos + n
		if length > uint64(len(r.buf)-start) {
			return Span{}, ErrTruncated
		}
		return r.take(start, int(length), n+int(length)), nil
	case WireStartGroup, WireEndGroup:
		return Span{Offset: r.base + r.pos, Bytes: r.buf[r.pos:r.pos]}, nil
	default:
		return Span{}, ErrInvalidEncoding
	}
}

func (r *WireReader) fixed(size int) (Span, error) {
	if r.Remaining() < size {
		return Span{}, ErrTruncated
	}
	return r.take(r.pos, size, size), nil
}

// take returns buf[start:start+length] as a span and advances the cursor
// by advance bytes.
func (r *WireReader) take(start, length, advance int) Span {
	span := Span{
		Offset: r.base + start,
		Bytes:  r.buf[start : start+length : start+length],
	}
	r.pos += advance
	return span
}
