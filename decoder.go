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
	"fmt"
	"unicode"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// DefaultMaxDepth is the nesting depth beyond which length-delimited
// payloads are no longer decoded as nested messages.
const DefaultMaxDepth = 64

var (
	// ErrEmptyInput is returned by Decode when given no bytes at all.
	ErrEmptyInput = errors.New("input is empty")
	// ErrUnparsable is returned by Decode when the input is non-empty but
	// not even its first field could be decoded. It wraps the cause.
	ErrUnparsable = errors.New("input is not protobuf wire format")
)

// Field is one field recovered from the wire format.
//
// Raw aliases the buffer that was decoded; the buffer must not be
// modified for as long as the field is in use. When Children is
// non-empty, Raw still covers the whole payload: the children are a
// reinterpretation of those bytes, not a replacement.
type Field struct {
	Number   int64
	WireType WireType
	// Offset is the absolute position of Raw within the decoded buffer.
	Offset   int
	Raw      []byte
	Children []Field
}

// IsNested reports whether the field's payload was decoded as a message.
func (f *Field) IsNested() bool {
	return len(f.Children) > 0
}

// Result is the outcome of decoding a buffer.
type Result struct {
	// Fields are the top-level fields, in wire order.
	Fields []Field
	// Consumed is the number of bytes covered by Fields.
	Consumed int
	// Stopped is non-nil when decoding ended before the end of the
	// buffer. It is ErrTruncated or ErrInvalidEncoding, wrapped with the
	// offset at which decoding stopped.
	Stopped error
}

// Decoder decodes protobuf wire format without a schema. The zero value
// is ready to use. A Decoder holds no state between calls and may be
// used from multiple goroutines.
type Decoder struct {
	// MaxDepth bounds how deeply length-delimited payloads are decoded
	// as nested messages. Zero means DefaultMaxDepth. A negative value
	// disables nested decoding.
	MaxDepth int
}

// Parse decodes buf with a zero-value Decoder and returns its top-level
// fields.
func Parse(buf []byte) ([]Field, error) {
	var d Decoder
	result, err := d.Decode(buf)
	if err != nil {
		return nil, err
	}
	return result.Fields, nil
}

// Decode reads fields from buf until it is exhausted. A field that is cut
// short or malformed ends decoding, and everything decoded before it is
// returned with Result.Stopped describing the problem. The only errors
// returned are ErrEmptyInput and ErrUnparsable.
func (d *Decoder) Decode(buf []byte) (*Result, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyInput
	}
	fields, consumed, err := d.decodeMessage(buf, 0, 0, false)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrUnparsable, err)
	}
	result := &Result{Fields: fields, Consumed: consumed}
	if err != nil {
		result.Stopped = fmt.Errorf("stopped at offset %d: %w", consumed, err)
	}
	return result, nil
}

func (d *Decoder) maxDepth() int {
	if d.MaxDepth == 0 {
		return DefaultMaxDepth
	}
	return d.MaxDepth
}

// decodeMessage reads fields from buf, which starts at base in the
// original input. In strict mode, used for speculative nested decoding,
// any irregularity aborts with an error; otherwise group markers are kept
// as opaque leaves. The returned count is the number of bytes consumed by
// the returned fields.
func (d *Decoder) decodeMessage(buf []byte, base, depth int, strict bool) ([]Field, int, error) {
	reader := newWireReaderAt(buf, base)
	var fields []Field
	for !reader.Done() {
		start := reader.Pos()
		number, wireType, err := reader.ReadTag()
		if err != nil && !(errors.Is(err, ErrUnsupportedWireType) && !strict) {
			return fields, start, err
		}
		if strict && (number < 1 || number > int64(protowire.MaxValidNumber)) {
			return fields, start, fmt.Errorf("%w: field number %d out of range", ErrInvalidEncoding, number)
		}
		span, err := reader.ReadValue(wireType)
		if err != nil {
			return fields, start, err
		}
		field := Field{
			Number:   number,
			WireType: wireType,
			Offset:   span.Offset,
			Raw:      span.Bytes,
		}
		if wireType == WireBytes {
			field.Children = d.decodeNested(span, depth+1)
		}
		fields = append(fields, field)
	}
	return fields, reader.Pos(), nil
}

// decodeNested speculatively decodes a length-delimited payload as an
// embedded message. It is a heuristic: the payload is accepted only if it
// does not read as text, decodes completely without any irregularity,
// and yields at least one field with a valid field number. A string that
// happens to be valid wire format and contains control characters will
// still be shown as a message.
func (d *Decoder) decodeNested(span Span, depth int) []Field {
	if depth > d.maxDepth() || len(span.Bytes) == 0 || looksLikeText(span.Bytes) {
		return nil
	}
	children, _, err := d.decodeMessage(span.Bytes, span.Offset, depth, true)
	if err != nil || len(children) == 0 {
		return nil
	}
	return children
}

// looksLikeText reports whether b is valid UTF-8 free of control
// characters other than tab, newline and carriage return.
func looksLikeText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
		b = b[size:]
	}
	return true
}
