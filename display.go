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
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// DisplayNode is the presentation form of a decoded field. All text is
// computed when the node is built.
//
// A node with a nil Field is synthetic: with children it groups the
// occurrences of a repeated field, without children it is an error
// placeholder.
type DisplayNode struct {
	Label       string
	Summary     string
	RawPreview  string
	Path        string
	FieldNumber int64
	WireType    WireType
	Field       *Field
	Children    []*DisplayNode
	// Highlighted is set only on nodes returned by FilterDisplayTree, for
	// nodes that matched the query themselves.
	Highlighted bool
}

// BuildDisplayTree converts decoded fields into display nodes. Fields
// sharing a field number are collected, in order of first appearance,
// under one array-group node.
func BuildDisplayTree(fields []Field) []*DisplayNode {
	return buildDisplayNodes(fields, "")
}

// NewErrorNode returns the placeholder shown in place of a tree when
// decoding fails.
func NewErrorNode(message string) *DisplayNode {
	return &DisplayNode{
		Label:       message,
		Summary:     message,
		FieldNumber: -1,
	}
}

func buildDisplayNodes(fields []Field, parentPath string) []*DisplayNode {
	if len(fields) == 0 {
		return nil
	}
	var order []int64
	groups := make(map[int64][]*Field)
	for i := range fields {
		field := &fields[i]
		if _, ok := groups[field.Number]; !ok {
			order = append(order, field.Number)
		}
		groups[field.Number] = append(groups[field.Number], field)
	}

	nodes := make([]*DisplayNode, 0, len(order))
	for _, number := range order {
		items := groups[number]
		segment := strconv.FormatInt(number, 10)
		basePath := composePath(parentPath, segment)
		if len(items) == 1 {
			nodes = append(nodes, newFieldNode(items[0], basePath))
			continue
		}
		children := make([]*DisplayNode, len(items))
		totalLength := 0
		for i, item := range items {
			elementPath := composePath(parentPath, fmt.Sprintf("%s[%d]", segment, i+1))
			children[i] = newFieldNode(item, elementPath)
			totalLength += len(item.Raw)
		}
		nodes = append(nodes, &DisplayNode{
			Label:       fmt.Sprintf("#%d array", number),
			Summary:     fmt.Sprintf("array · %d items · length %d", len(children), totalLength),
			Path:        basePath,
			FieldNumber: number,
			WireType:    items[0].WireType,
			Children:    children,
		})
	}
	return nodes
}

func newFieldNode(field *Field, path string) *DisplayNode {
	return &DisplayNode{
		Label:       fieldLabel(field),
		Summary:     fieldSummary(field),
		RawPreview:  rawPreview(field.Raw),
		Path:        path,
		FieldNumber: field.Number,
		WireType:    field.WireType,
		Field:       field,
		Children:    buildDisplayNodes(field.Children, path),
	}
}

func composePath(parentPath, segment string) string {
	if parentPath == "" {
		return segment
	}
	return parentPath + "." + segment
}

// IsArrayGroup reports whether n groups the occurrences of a repeated
// field.
func (n *DisplayNode) IsArrayGroup() bool {
	return n.Field == nil && len(n.Children) > 0
}

// IsError reports whether n is an error placeholder.
func (n *DisplayNode) IsError() bool {
	return n.Field == nil && len(n.Children) == 0
}

// HasChildren reports whether n has child nodes.
func (n *DisplayNode) HasChildren() bool {
	return len(n.Children) > 0
}

// IsRepeated reports whether n is one occurrence of a repeated field.
func (n *DisplayNode) IsRepeated() bool {
	_, ok := occurrenceIndex(lastSegment(n.Path))
	return ok
}

// OccurrenceIndex returns the 1-based index of n among the occurrences
// of its field. It is 1 for fields that are not repeated.
func (n *DisplayNode) OccurrenceIndex() int {
	if index, ok := occurrenceIndex(lastSegment(n.Path)); ok {
		return index
	}
	return 1
}

// FieldDisplay is the short field column text: "[3]" for an array group
// of three, "5[2]" for the second occurrence of field 5, and "5"
// otherwise.
func (n *DisplayNode) FieldDisplay() string {
	if n.IsArrayGroup() {
		return fmt.Sprintf("[%d]", len(n.Children))
	}
	if index, ok := occurrenceIndex(lastSegment(n.Path)); ok {
		return fmt.Sprintf("%d[%d]", n.FieldNumber, index)
	}
	return strconv.FormatInt(n.FieldNumber, 10)
}

// UTF8Preview returns the value of a leaf as text: the decoded string of
// a length-delimited payload that reads as text, or the decimal value of
// a numeric field.
func (n *DisplayNode) UTF8Preview() (string, bool) {
	if n.Field == nil {
		return "", false
	}
	raw := n.Field.Raw
	switch n.WireType {
	case WireBytes:
		if looksLikeText(raw) {
			return string(raw), true
		}
		return "", false
	case WireVarint:
		return strconv.FormatUint(VarintValue(raw), 10), true
	case WireFixed32:
		if len(raw) < 4 {
			return "", false
		}
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(raw)), 10), true
	case WireFixed64:
		if len(raw) < 8 {
			return "", false
		}
		return strconv.FormatUint(binary.LittleEndian.Uint64(raw), 10), true
	default:
		return "", false
	}
}

func fieldLabel(field *Field) string {
	if field.IsNested() {
		return fmt.Sprintf("#%d [%s] ← %d children", field.Number, field.WireType, len(field.Children))
	}
	return fmt.Sprintf("#%d [%s] → %s", field.Number, field.WireType, fieldPayload(field))
}

func fieldPayload(field *Field) string {
	raw := field.Raw
	switch field.WireType {
	case WireVarint:
		return varintText(raw)
	case WireFixed32, WireFixed64:
		return fixedText(raw) + " (LE)"
	case WireBytes:
		return lengthDelimitedText(raw)
	default:
		return fmt.Sprintf("(%d bytes)", len(raw))
	}
}

func fieldSummary(field *Field) string {
	raw := field.Raw
	if field.IsNested() {
		return fmt.Sprintf("nested · %d children · length %d", len(field.Children), len(raw))
	}
	switch field.WireType {
	case WireVarint:
		return fmt.Sprintf("%s · length %d", varintText(raw), len(raw))
	case WireFixed32, WireFixed64:
		return fmt.Sprintf("%s · length %d", fixedText(raw), len(raw))
	case WireBytes:
		return lengthDelimitedSummary(raw)
	default:
		return fmt.Sprintf("%d bytes · length %d", len(raw), len(raw))
	}
}

func varintText(raw []byte) string {
	value := VarintValue(raw)
	return fmt.Sprintf("%d (0x%X)", value, value)
}

// fixedText renders a little-endian fixed-width value in decimal and as
// zero-padded hex.
func fixedText(raw []byte) string {
	switch len(raw) {
	case 4:
		value := binary.LittleEndian.Uint32(raw)
		return fmt.Sprintf("%d (0x%08X)", value, value)
	case 8:
		value := binary.LittleEndian.Uint64(raw)
		return fmt.Sprintf("%d (0x%016X)", value, value)
	default:
		return fmt.Sprintf("(%d bytes)", len(raw))
	}
}

func lengthDelimitedText(raw []byte) string {
	if len(raw) == 0 {
		return "length 0"
	}
	if looksLikeText(raw) {
		return fmt.Sprintf("UTF8 %s (%d bytes) · length %d", quoteText(raw), len(raw), len(raw))
	}
	return fmt.Sprintf("%d bytes [%s] · length %d", len(raw), dashedHex(raw), len(raw))
}

func lengthDelimitedSummary(raw []byte) string {
	switch {
	case len(raw) == 0:
		return "empty"
	case looksLikeText(raw):
		return fmt.Sprintf("UTF8 · %s · length %d", quoteText(raw), len(raw))
	case len(raw) <= 8:
		return fmt.Sprintf("Bytes · %s · length %d", dashedHex(raw), len(raw))
	default:
		return fmt.Sprintf("Bytes · length %d", len(raw))
	}
}

// quoteText wraps text in double quotes as it is, without escaping, so
// that labels read the way the text would be typed into a search.
func quoteText(raw []byte) string {
	return `"` + string(raw) + `"`
}

// dashedHex renders b as upper-case hex pairs joined by dashes.
func dashedHex(b []byte) string {
	return hexJoin(b, '-')
}

// rawPreview renders b as upper-case hex pairs joined by spaces.
func rawPreview(b []byte) string {
	return hexJoin(b, ' ')
}

func hexJoin(b []byte, sep byte) string {
	if len(b) == 0 {
		return ""
	}
	const digits = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(sep)
		}
		sb.WriteByte(digits[c>>4])
		sb.WriteByte(digits[c&0x0f])
	}
	return sb.String()
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// occurrenceIndex extracts n from a path segment of the form "5[n]".
func occurrenceIndex(segment string) (int, bool) {
	start := strings.IndexByte(segment, '[')
	if start < 0 {
		return 0, false
	}
	end := strings.IndexByte(segment[start+1:], ']')
	if end < 0 {
		return 0, false
	}
	index, err := strconv.Atoi(segment[start+1 : start+1+end])
	if err != nil {
		return 0, false
	}
	return index, true
}
