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

package memcachestore

import (
	"context"
	"testing"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemcacheStore_ConfigValidation(t *testing.T) {
	t.Parallel()
	// the client does not connect until used
	client := memcache.New("localhost:11211")
	testCases := []struct {
		name      string
		config    Config
		expectErr string
	}{
		{
			name:   "defaults",
			config: Config{Client: client},
		},
		{
			name:   "30 days",
			config: Config{Client: client, ExpirationSeconds: MaxExpirationSeconds},
		},
		{
			name:      "no client",
			config:    Config{},
			expectErr: "client cannot be nil",
		},
		{
			name:      "negative expiration",
			config:    Config{Client: client, ExpirationSeconds: -1},
			expectErr: "expiration seconds (-1) cannot be negative",
		},
		{
			name:      "expiration over 30 days",
			config:    Config{Client: client, ExpirationSeconds: MaxExpirationSeconds + 1},
			expectErr: "expiration seconds (2592001) cannot exceed 2592000 (30 days)",
		},
		{
			name:      "negative max value bytes",
			config:    Config{Client: client, MaxValueBytes: -1},
			expectErr: "max value bytes (-1) cannot be negative",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(testCase.config)
			if testCase.expectErr != "" {
				require.ErrorContains(t, err, testCase.expectErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMemcacheStore_ValueTooLarge(t *testing.T) {
	t.Parallel()
	// nothing listens here; an oversized value must fail before any
	// request is made
	client := memcache.New("127.0.0.1:1")
	s, err := New(Config{Client: client, KeyPrefix: "p_"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxValueBytes, s.(*store).MaxValueBytes)

	err = s.Save(context.Background(), "snapshot", make([]byte, DefaultMaxValueBytes+1))
	require.ErrorContains(t, err, `value for key "snapshot" is 1047553 bytes, more than the 1047552 allowed by memcached`)

	s, err = New(Config{Client: client, KeyPrefix: "p_", MaxValueBytes: 4})
	require.NoError(t, err)
	err = s.Save(context.Background(), "node.bin", []byte{1, 2, 3, 4, 5})
	require.ErrorContains(t, err, "is 5 bytes, more than the 4 allowed")
}
