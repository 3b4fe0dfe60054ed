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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nodeText is the displayed text of a node, without its backing field.
type nodeText struct {
	Path, Label, Summary, RawPreview string
	Children                         []nodeText
}

func textOf(nodes []*DisplayNode) []nodeText {
	if len(nodes) == 0 {
		return nil
	}
	texts := make([]nodeText, len(nodes))
	for i, node := range nodes {
		texts[i] = nodeText{
			Path:       node.Path,
			Label:      node.Label,
			Summary:    node.Summary,
			RawPreview: node.RawPreview,
			Children:   textOf(node.Children),
		}
	}
	return texts
}

func mustBuild(t *testing.T, input []byte) []*DisplayNode {
	t.Helper()
	fields, err := Parse(input)
	require.NoError(t, err)
	return BuildDisplayTree(fields)
}

func TestBuildDisplayTree(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		input    []byte
		expected []nodeText
	}{
		{
			name:  "varint and text",
			input: []byte{0x08, 0x96, 0x01, 0x12, 0x02, 0x68, 0x69},
			expected: []nodeText{
				{
					Path:       "1",
					Label:      "#1 [Varint] → 150 (0x96)",
					Summary:    "150 (0x96) · length 2",
					RawPreview: "96 01",
				},
				{
					Path:       "2",
					Label:      `#2 [LengthDelimited] → UTF8 "hi" (2 bytes) · length 2`,
					Summary:    `UTF8 · "hi" · length 2`,
					RawPreview: "68 69",
				},
			},
		},
		{
			name:  "repeated field",
			input: []byte{0x28, 0x01, 0x28, 0x02, 0x28, 0x03},
			expected: []nodeText{
				{
					Path:    "5",
					Label:   "#5 array",
					Summary: "array · 3 items · length 3",
					Children: []nodeText{
						{Path: "5[1]", Label: "#5 [Varint] → 1 (0x1)", Summary: "1 (0x1) · length 1", RawPreview: "01"},
						{Path: "5[2]", Label: "#5 [Varint] → 2 (0x2)", Summary: "2 (0x2) · length 1", RawPreview: "02"},
						{Path: "5[3]", Label: "#5 [Varint] → 3 (0x3)", Summary: "3 (0x3) · length 1", RawPreview: "03"},
					},
				},
			},
		},
		{
			name:  "groups keep first-seen order",
			input: []byte{0x10, 0x07, 0x08, 0x01, 0x10, 0x08},
			expected: []nodeText{
				{
					Path:    "2",
					Label:   "#2 array",
					Summary: "array · 2 items · length 2",
					Children: []nodeText{
						{Path: "2[1]", Label: "#2 [Varint] → 7 (0x7)", Summary: "7 (0x7) · length 1", RawPreview: "07"},
						{Path: "2[2]", Label: "#2 [Varint] → 8 (0x8)", Summary: "8 (0x8) · length 1", RawPreview: "08"},
					},
				},
				{Path: "1", Label: "#1 [Varint] → 1 (0x1)", Summary: "1 (0x1) · length 1", RawPreview: "01"},
			},
		},
		{
			name:  "nested message",
			input: []byte{0x1A, 0x06, 0x08, 0x01, 0x12, 0x02, 0x6F, 0x6B},
			expected: []nodeText{
				{
					Path:       "3",
					Label:      "#3 [LengthDelimited] ← 2 children",
					Summary:    "nested · 2 children · length 6",
					RawPreview: "08 01 12 02 6F 6B",
					Children: []nodeText{
						{Path: "3.1", Label: "#1 [Varint] → 1 (0x1)", Summary: "1 (0x1) · length 1", RawPreview: "01"},
						{Path: "3.2", Label: `#2 [LengthDelimited] → UTF8 "ok" (2 bytes) · length 2`, Summary: `UTF8 · "ok" · length 2`, RawPreview: "6F 6B"},
					},
				},
			},
		},
		{
			name:  "repeated nested message",
			input: []byte{0x0A, 0x02, 0x08, 0x01, 0x0A, 0x02, 0x08, 0x02},
			expected: []nodeText{
				{
					Path:    "1",
					Label:   "#1 array",
					Summary: "array · 2 items · length 4",
					Children: []nodeText{
						{
							Path:       "1[1]",
							Label:      "#1 [LengthDelimited] ← 1 children",
							Summary:    "nested · 1 children · length 2",
							RawPreview: "08 01",
							Children: []nodeText{
								{Path: "1[1].1", Label: "#1 [Varint] → 1 (0x1)", Summary: "1 (0x1) · length 1", RawPreview: "01"},
							},
						},
						{
							Path:       "1[2]",
							Label:      "#1 [LengthDelimited] ← 1 children",
							Summary:    "nested · 1 children · length 2",
							RawPreview: "08 02",
							Children: []nodeText{
								{Path: "1[2].1", Label: "#1 [Varint] → 2 (0x2)", Summary: "2 (0x2) · length 1", RawPreview: "02"},
							},
						},
					},
				},
			},
		},
		{
			name:  "fixed widths",
			input: []byte{0x0D, 0xEF, 0xBE, 0xAD, 0xDE, 0x11, 0x01, 0, 0, 0, 0, 0, 0, 0},
			expected: []nodeText{
				{
					Path:       "1",
					Label:      "#1 [Fixed32] → 3735928559 (0xDEADBEEF) (LE)",
					Summary:    "3735928559 (0xDEADBEEF) · length 4",
					RawPreview: "EF BE AD DE",
				},
				{
					Path:       "2",
					Label:      "#2 [Fixed64] → 1 (0x0000000000000001) (LE)",
					Summary:    "1 (0x0000000000000001) · length 8",
					RawPreview: "01 00 00 00 00 00 00 00",
				},
			},
		},
		{
			name:  "binary payloads",
			input: []byte{0x0A, 0x03, 0xFF, 0x00, 0x01, 0x12, 0x09, 0xFF, 1, 2, 3, 4, 5, 6, 7, 8, 0x1A, 0x00},
			expected: []nodeText{
				{
					Path:       "1",
					Label:      "#1 [LengthDelimited] → 3 bytes [FF-00-01] · length 3",
					Summary:    "Bytes · FF-00-01 · length 3",
					RawPreview: "FF 00 01",
				},
				{
					Path:       "2",
					Label:      "#2 [LengthDelimited] → 9 bytes [FF-01-02-03-04-05-06-07-08] · length 9",
					Summary:    "Bytes · length 9",
					RawPreview: "FF 01 02 03 04 05 06 07 08",
				},
				{
					Path:    "3",
					Label:   "#3 [LengthDelimited] → length 0",
					Summary: "empty",
				},
			},
		},
		{
			name: "text is quoted as is",
			// 2: "a\"b\tc"
			input: []byte{0x12, 0x05, 'a', '"', 'b', '\t', 'c'},
			expected: []nodeText{
				{
					Path:       "2",
					Label:      "#2 [LengthDelimited] → UTF8 \"a\"b\tc\" (5 bytes) · length 5",
					Summary:    "UTF8 · \"a\"b\tc\" · length 5",
					RawPreview: "61 22 62 09 63",
				},
			},
		},
		{
			name:  "group markers",
			input: []byte{0x0B, 0x0C},
			expected: []nodeText{
				{
					Path:    "1",
					Label:   "#1 array",
					Summary: "array · 2 items · length 0",
					Children: []nodeText{
						{Path: "1[1]", Label: "#1 [StartGroup] → (0 bytes)", Summary: "0 bytes · length 0"},
						{Path: "1[2]", Label: "#1 [EndGroup] → (0 bytes)", Summary: "0 bytes · length 0"},
					},
				},
			},
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.expected, textOf(mustBuild(t, testCase.input)))
		})
	}
}

func TestBuildDisplayTree_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, BuildDisplayTree(nil))
}

func TestDisplayNode_Accessors(t *testing.T) {
	t.Parallel()
	// 1: 150, 5: [1, 2, 3]
	nodes := mustBuild(t, []byte{0x08, 0x96, 0x01, 0x28, 0x01, 0x28, 0x02, 0x28, 0x03})
	require.Len(t, nodes, 2)

	single, group := nodes[0], nodes[1]
	assert.False(t, single.IsArrayGroup())
	assert.False(t, single.IsError())
	assert.False(t, single.IsRepeated())
	assert.False(t, single.HasChildren())
	assert.Equal(t, 1, single.OccurrenceIndex())
	assert.Equal(t, "1", single.FieldDisplay())
	assert.Equal(t, int64(1), single.FieldNumber)
	assert.Equal(t, WireVarint, single.WireType)

	assert.True(t, group.IsArrayGroup())
	assert.False(t, group.IsError())
	assert.True(t, group.HasChildren())
	assert.Nil(t, group.Field)
	assert.Equal(t, "[3]", group.FieldDisplay())
	assert.Equal(t, int64(5), group.FieldNumber)
	assert.Equal(t, WireVarint, group.WireType)

	second := group.Children[1]
	assert.True(t, second.IsRepeated())
	assert.Equal(t, 2, second.OccurrenceIndex())
	assert.Equal(t, "5[2]", second.FieldDisplay())
	require.NotNil(t, second.Field)
	assert.Equal(t, []byte{0x02}, second.Field.Raw)
}

func TestNewErrorNode(t *testing.T) {
	t.Parallel()
	node := NewErrorNode("Parse error: boom")
	assert.True(t, node.IsError())
	assert.False(t, node.IsArrayGroup())
	assert.Equal(t, int64(-1), node.FieldNumber)
	assert.Equal(t, "Parse error: boom", node.Label)
	assert.Equal(t, "Parse error: boom", node.Summary)
	assert.Empty(t, node.Path)
	assert.Empty(t, node.Hex())
}

func TestDisplayNode_UTF8Preview(t *testing.T) {
	t.Parallel()
	nodes := mustBuild(t, []byte{
		0x08, 0x96, 0x01, // 1: 150
		0x12, 0x02, 0x68, 0x69, // 2: "hi"
		0x1D, 0xEF, 0xBE, 0xAD, 0xDE, // 3: fixed32
		0x21, 0x02, 0, 0, 0, 0, 0, 0, 0, // 4: fixed64
		0x2A, 0x02, 0xFF, 0xFE, // 5: binary
		0x32, 0x02, 0x08, 0x01, // 6: {1: 1}
	})
	require.Len(t, nodes, 6)
	testCases := []struct {
		expected string
		ok       bool
	}{
		{"150", true},
		{"hi", true},
		{"3735928559", true},
		{"2", true},
		{"", false},
		{"", false},
	}
	for i, testCase := range testCases {
		text, ok := nodes[i].UTF8Preview()
		assert.Equal(t, testCase.ok, ok, nodes[i].Path)
		assert.Equal(t, testCase.expected, text, nodes[i].Path)
	}
	_, ok := NewErrorNode("x").UTF8Preview()
	assert.False(t, ok)
}
