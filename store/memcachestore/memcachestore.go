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

// Package memcachestore provides an implementation of protopeek.Store
// that is backed by a memcached instance: https://memcached.org/.
//
// Memcached limits items to 1 MiB by default. Values larger than
// Config.MaxValueBytes are rejected before they are sent, so that an
// oversized snapshot fails with a clear error instead of a server error.
package memcachestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/bufbuild/protopeek"
)

const (
	// MaxExpirationSeconds is the longest relative expiration memcached
	// accepts. Larger values are read by the server as Unix times.
	MaxExpirationSeconds = 30 * 24 * 60 * 60
	// DefaultMaxValueBytes is memcached's default item size limit, less
	// room for the item header and key.
	DefaultMaxValueBytes = 1024*1024 - 1024
)

type Config struct {
	Client    *memcache.Client
	KeyPrefix string
	// Zero means no expiration. Cannot exceed MaxExpirationSeconds.
	ExpirationSeconds int32
	// Defaults to DefaultMaxValueBytes if left zero. Should match the
	// server's -I setting if that was changed.
	MaxValueBytes int
}

func New(config Config) (protopeek.Store, error) {
	// validate config
	if config.Client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if config.ExpirationSeconds < 0 {
		return nil, fmt.Errorf("expiration seconds (%d) cannot be negative", config.ExpirationSeconds)
	}
	if config.ExpirationSeconds > MaxExpirationSeconds {
		return nil, fmt.Errorf("expiration seconds (%d) cannot exceed %d (30 days)", config.ExpirationSeconds, MaxExpirationSeconds)
	}
	if config.MaxValueBytes < 0 {
		return nil, fmt.Errorf("max value bytes (%d) cannot be negative", config.MaxValueBytes)
	}
	if config.MaxValueBytes == 0 {
		config.MaxValueBytes = DefaultMaxValueBytes
	}
	return (*store)(&config), nil
}

type store Config

func (s *store) Load(_ context.Context, key string) ([]byte, error) {
	item, err := s.Client.Get(s.KeyPrefix + key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (s *store) Save(_ context.Context, key string, data []byte) error {
	if len(data) > s.MaxValueBytes {
		return fmt.Errorf("value for key %q is %d bytes, more than the %d allowed by memcached", key, len(data), s.MaxValueBytes)
	}
	item := &memcache.Item{
		Key:        s.KeyPrefix + key,
		Value:      data,
		Expiration: s.ExpirationSeconds,
	}
	return s.Client.Set(item)
}
