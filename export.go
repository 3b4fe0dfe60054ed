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
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// NodeDTO is the serializable form of a DisplayNode. Its JSON shape is
// the format of exported node files.
type NodeDTO struct {
	Field    int64  `json:"field"`
	WireType string `json:"wireType"`
	Path     string `json:"path"`
	Summary  string `json:"summary"`
	// Value is the raw payload as upper-case hex, or nil when the node
	// has no backing field or an empty payload.
	Value    *string    `json:"value"`
	Children []*NodeDTO `json:"children"`
}

// DTO converts n and its descendants into their serializable form.
func (n *DisplayNode) DTO() *NodeDTO {
	dto := &NodeDTO{
		Field:    n.FieldNumber,
		WireType: n.WireType.String(),
		Path:     n.Path,
		Summary:  n.Summary,
		Children: make([]*NodeDTO, 0, len(n.Children)),
	}
	if value := n.Hex(); value != "" {
		dto.Value = &value
	}
	for _, child := range n.Children {
		dto.Children = append(dto.Children, child.DTO())
	}
	return dto
}

// Hex returns the raw payload of n as upper-case hex without separators.
// It is empty for synthetic nodes and empty payloads.
func (n *DisplayNode) Hex() string {
	if n.Field == nil || len(n.Field.Raw) == 0 {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(n.Field.Raw))
}

// Content returns the text a user most likely wants to copy out of n:
// its UTF-8 preview if it has one, otherwise its hex preview.
func (n *DisplayNode) Content() string {
	if text, ok := n.UTF8Preview(); ok {
		return text
	}
	return n.RawPreview
}

// ExportFormat renders a node into the bytes of an export file.
type ExportFormat interface {
	// Extension is the file name extension, including the dot.
	Extension() string
	Export(*DisplayNode) ([]byte, error)
}

type binaryExportFormat struct{}

// BinaryExportFormat exports the raw payload bytes of a node.
func BinaryExportFormat() ExportFormat {
	return binaryExportFormat{}
}

func (binaryExportFormat) Extension() string {
	return ".bin"
}

func (binaryExportFormat) Export(node *DisplayNode) ([]byte, error) {
	if node.Field == nil {
		return nil, nil
	}
	return node.Field.Raw, nil
}

type jsonExportFormat struct {
	indent string
}

// JSONExportFormat exports a node and its descendants as NodeDTO JSON.
// If indent is non-empty, the output is indented with it.
func JSONExportFormat(indent string) ExportFormat {
	return jsonExportFormat{indent: indent}
}

func (jsonExportFormat) Extension() string {
	return ".json"
}

func (x jsonExportFormat) Export(node *DisplayNode) ([]byte, error) {
	if x.indent != "" {
		return json.MarshalIndent(node.DTO(), "", x.indent)
	}
	return json.Marshal(node.DTO())
}

type hexExportFormat struct{}

// HexExportFormat exports the raw payload of a node as upper-case hex
// text.
func HexExportFormat() ExportFormat {
	return hexExportFormat{}
}

func (hexExportFormat) Extension() string {
	return ".txt"
}

func (hexExportFormat) Export(node *DisplayNode) ([]byte, error) {
	return []byte(node.Hex()), nil
}

// ExportFormatForName picks the format implied by a file name's
// extension: ".json" for JSON, ".txt" for hex text, and raw bytes for
// anything else.
func ExportFormatForName(fileName string) ExportFormat {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".json":
		return JSONExportFormat("")
	case ".txt":
		return HexExportFormat()
	default:
		return BinaryExportFormat()
	}
}

// DefaultExportName is the suggested file name, without extension, for
// exporting a node.
func DefaultExportName(node *DisplayNode) string {
	return fmt.Sprintf("node_%d_%s", node.FieldNumber, node.WireType)
}

// Exporter writes exported nodes to a Store.
type Exporter struct {
	// Store receives the exported bytes. Required.
	Store Store
	// KeyPrefix is prepended to every file name to form the store key.
	KeyPrefix string
	// Format renders nodes. If nil, the format is chosen from the file
	// name with ExportFormatForName.
	Format ExportFormat
}

// Export renders node and saves it under fileName. If fileName is empty,
// DefaultExportName plus the format's extension is used. It returns the
// store key that was written.
func (e *Exporter) Export(ctx context.Context, node *DisplayNode, fileName string) (string, error) {
	if e.Store == nil {
		return "", errors.New("exporter has no store")
	}
	format := e.Format
	if fileName == "" {
		if format == nil {
			format = BinaryExportFormat()
		}
		fileName = DefaultExportName(node) + format.Extension()
	} else if format == nil {
		format = ExportFormatForName(fileName)
	}
	data, err := format.Export(node)
	if err != nil {
		return "", errors.Wrapf(err, "node %q cannot be rendered as %s", node.Path, format.Extension())
	}
	key := e.KeyPrefix + fileName
	if err := e.Store.Save(ctx, key, data); err != nil {
		return "", errors.Wrapf(err, "failed to save export %q", key)
	}
	return key, nil
}
