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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Store is a blob store for exported nodes and input snapshots. See the
// filestore, memcachestore and redisstore packages for implementations.
// A Store can be used from multiple goroutines and thus must be
// thread-safe.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Field numbers of the snapshot message.
const (
	snapshotInputField    protowire.Number = 1
	snapshotCapturedField protowire.Number = 2
)

// SnapshotKey returns the store key, without prefix, for an input
// snapshot: "snapshot_" followed by the hex SHA-256 of the input.
func SnapshotKey(input []byte) string {
	sum := sha256.Sum256(input)
	return "snapshot_" + hex.EncodeToString(sum[:])
}

// EncodeSnapshot encodes an input buffer and the time it was captured as
// a small protobuf message:
//
//	message Snapshot {
//	  bytes input = 1;
//	  google.protobuf.Timestamp captured = 2;
//	}
func EncodeSnapshot(input []byte, captured time.Time) ([]byte, error) {
	ts, err := proto.Marshal(timestamppb.New(captured))
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(input)+len(ts)+16)
	data = protowire.AppendTag(data, snapshotInputField, protowire.BytesType)
	data = protowire.AppendBytes(data, input)
	data = protowire.AppendTag(data, snapshotCapturedField, protowire.BytesType)
	data = protowire.AppendBytes(data, ts)
	return data, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot. Unknown fields are
// skipped.
func DecodeSnapshot(data []byte) ([]byte, time.Time, error) {
	var input []byte
	var captured timestamppb.Timestamp
	for len(data) > 0 {
		number, wireType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, time.Time{}, fmt.Errorf("malformed snapshot: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if wireType != protowire.BytesType || (number != snapshotInputField && number != snapshotCapturedField) {
			n = protowire.ConsumeFieldValue(number, wireType, data)
			if n < 0 {
				return nil, time.Time{}, fmt.Errorf("malformed snapshot: %w", protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}
		value, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, time.Time{}, fmt.Errorf("malformed snapshot: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if number == snapshotInputField {
			input = value
			continue
		}
		if err := proto.Unmarshal(value, &captured); err != nil {
			return nil, time.Time{}, fmt.Errorf("malformed snapshot timestamp: %w", err)
		}
	}
	if input == nil {
		return nil, time.Time{}, fmt.Errorf("malformed snapshot: no input")
	}
	return input, captured.AsTime(), nil
}
