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
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrUnrecognizedInput is returned by DecodeInputText when the text is
// neither hex nor Base64.
var ErrUnrecognizedInput = errors.New("input is neither hex nor Base64")

const (
	// maxFormatHexBytes is the most input FormatHex will render.
	maxFormatHexBytes  = 20 * 1024 * 1024
	formatHexLineBytes = 42
)

//nolint:gochecknoglobals
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Input is a buffer ready for decoding, with a record of how it was
// obtained.
type Input struct {
	Data []byte
	// Encoding is "hex", "base64" or "binary".
	Encoding string
	// Compression is "gzip" or "zstd" if Data was decompressed.
	Compression string
	// DecompressErr is set when Data started with a compression magic
	// number but could not be decompressed. Data is then the original
	// bytes.
	DecompressErr error
}

// DecodeInputText turns user-supplied text into bytes. Whitespace is
// ignored. The text is decoded as hex if possible, otherwise as Base64 in
// either the standard or the URL-safe alphabet, with or without padding.
// The result is then decompressed as with DecodeInputBytes. Blank text
// yields an Input with no data.
func DecodeInputText(text string) (*Input, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		default:
			return r
		}
	}, text)
	if clean == "" {
		return &Input{Encoding: "hex"}, nil
	}
	if data, err := hex.DecodeString(clean); err == nil {
		return decompress(&Input{Data: data, Encoding: "hex"}), nil
	}
	data, err := decodeBase64(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnrecognizedInput, err)
	}
	return decompress(&Input{Data: data, Encoding: "base64"}), nil
}

// DecodeInputBytes prepares raw bytes, such as the contents of a file,
// for decoding: gzip and zstd data is transparently decompressed.
func DecodeInputBytes(data []byte) *Input {
	return decompress(&Input{Data: data, Encoding: "binary"})
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.StdEncoding.DecodeString(s)
}

func decompress(in *Input) *Input {
	var (
		out  []byte
		err  error
		kind string
	)
	switch {
	case len(in.Data) > len(gzipMagic) && bytes.HasPrefix(in.Data, gzipMagic):
		kind = "gzip"
		out, err = gunzip(in.Data)
	case len(in.Data) > len(zstdMagic) && bytes.HasPrefix(in.Data, zstdMagic):
		kind = "zstd"
		out, err = unzstd(in.Data)
	default:
		return in
	}
	if err != nil {
		in.DecompressErr = fmt.Errorf("%s: %w", kind, err)
		return in
	}
	in.Data = out
	in.Compression = kind
	return in
}

func gunzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()
	return io.ReadAll(reader)
}

func unzstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}

// FormatHex renders data as upper-case hex, 42 bytes per line. Only the
// first 20 MiB are rendered; a note at the end says so when data is
// larger.
func FormatHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	display := data
	if len(display) > maxFormatHexBytes {
		display = display[:maxFormatHexBytes]
	}
	var sb strings.Builder
	sb.Grow(len(display)*2 + len(display)/formatHexLineBytes + 1)
	for i := 0; i < len(display); i += formatHexLineBytes {
		if i > 0 {
			sb.WriteByte('\n')
		}
		end := min(i+formatHexLineBytes, len(display))
		sb.WriteString(strings.ToUpper(hex.EncodeToString(display[i:end])))
	}
	if len(display) < len(data) {
		fmt.Fprintf(&sb, "\n\n// ... (truncated: showing first %d KB of %d KB)", maxFormatHexBytes/1024, len(data)/1024)
	}
	return sb.String()
}
