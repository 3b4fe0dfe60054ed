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

// Package protopeek decodes protobuf wire format without a schema and
// presents it as a searchable tree.
//
// Without the message descriptor, a protobuf payload is still a sequence
// of tagged fields: varints, fixed-width numbers and length-delimited
// blobs. A [Decoder] walks those fields and, for every length-delimited
// blob that does not read as text, speculatively tries to decode it as an
// embedded message. The outcome is a tree of [Field] values whose raw
// payloads alias the input buffer.
//
// [BuildDisplayTree] turns decoded fields into [DisplayNode] values with
// stable paths (such as "1.2[3].4"), one-line labels and summaries.
// Repeated fields are grouped under a single array node.
// [FilterDisplayTree] searches those nodes, matching labels as well as the
// raw bytes of leaves, without modifying the tree it is given.
//
// Input may be given as hex or Base64 text, or as raw bytes, and may be
// gzip or zstd compressed; see [DecodeInputText] and [DecodeInputBytes].
// Nodes can be exported in binary, hex or JSON form through an [Exporter],
// and whole inputs can be kept as snapshots, both backed by a [Store]. The
// store sub-packages provide file, memcached and Redis implementations.
//
// An [Inspector] ties these pieces together into a session that can be
// shared between goroutines. The protopeek command in cmd/protopeek
// exposes the same operations on the command line.
package protopeek
