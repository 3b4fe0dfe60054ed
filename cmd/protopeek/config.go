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

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/bufbuild/protopeek"
	"github.com/bufbuild/protopeek/store/filestore"
	"github.com/bufbuild/protopeek/store/memcachestore"
	"github.com/bufbuild/protopeek/store/redisstore"
	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog"
)

const (
	backendNone     = "none"
	backendFile     = "file"
	backendMemcache = "memcache"
	backendRedis    = "redis"
)

type config struct {
	MaxDepth int
	LogLevel zerolog.Level
	Store    storeConfig
}

type storeConfig struct {
	Backend    string
	Path       string
	Address    string
	KeyPrefix  string
	Expiration time.Duration
}

func defaultConfig() config {
	return config{
		MaxDepth: protopeek.DefaultMaxDepth,
		LogLevel: zerolog.WarnLevel,
		Store: storeConfig{
			Backend:   backendFile,
			Path:      ".",
			KeyPrefix: "protopeek_",
		},
	}
}

type fileConfig struct {
	MaxDepth int             `toml:"max_depth"`
	LogLevel string          `toml:"log_level"`
	Store    storeFileConfig `toml:"store"`
}

type storeFileConfig struct {
	Backend    string `toml:"backend"`
	Path       string `toml:"path"`
	Address    string `toml:"address"`
	KeyPrefix  string `toml:"key_prefix"`
	Expiration string `toml:"expiration"`
}

// loadConfig reads a TOML config file. Keys missing from the file keep
// their default values.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("max_depth") {
		if raw.MaxDepth < 0 {
			return config{}, fmt.Errorf("max_depth (%d) cannot be negative", raw.MaxDepth)
		}
		cfg.MaxDepth = raw.MaxDepth
	}

	if meta.IsDefined("log_level") {
		level, err := zerolog.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return config{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	if meta.IsDefined("store", "backend") {
		cfg.Store.Backend = strings.ToLower(strings.TrimSpace(raw.Store.Backend))
	}

	if meta.IsDefined("store", "path") {
		cfg.Store.Path = strings.TrimSpace(raw.Store.Path)
	}

	if meta.IsDefined("store", "address") {
		cfg.Store.Address = strings.TrimSpace(raw.Store.Address)
	}

	if meta.IsDefined("store", "key_prefix") {
		cfg.Store.KeyPrefix = raw.Store.KeyPrefix
	}

	if meta.IsDefined("store", "expiration") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Store.Expiration))
		if err != nil {
			return config{}, fmt.Errorf("parse store.expiration: %w", err)
		}
		cfg.Store.Expiration = d
	}

	return cfg, nil
}

// openStore creates the configured store. The returned close function
// is never nil.
func openStore(cfg storeConfig) (protopeek.Store, func() error, error) {
	noClose := func() error { return nil }
	if cfg.Expiration < 0 {
		return nil, noClose, fmt.Errorf("store expiration (%v) cannot be negative", cfg.Expiration)
	}
	switch cfg.Backend {
	case "", backendNone:
		return nil, noClose, nil
	case backendFile:
		path := cfg.Path
		if path == "" {
			path = "."
		}
		store, err := filestore.New(filestore.Config{Path: path})
		return store, noClose, err
	case backendMemcache:
		address := cfg.Address
		if address == "" {
			address = "localhost:11211"
		}
		if cfg.Expiration > memcachestore.MaxExpirationSeconds*time.Second {
			return nil, noClose, fmt.Errorf("store expiration (%v) cannot exceed 30 days for memcache", cfg.Expiration)
		}
		// round up so that a sub-second expiration does not mean "never"
		expirationSeconds := (cfg.Expiration + time.Second - 1) / time.Second
		store, err := memcachestore.New(memcachestore.Config{
			Client:            memcache.New(address),
			ExpirationSeconds: int32(expirationSeconds),
		})
		return store, noClose, err
	case backendRedis:
		address := cfg.Address
		if address == "" {
			address = "localhost:6379"
		}
		pool := &redis.Pool{
			MaxIdle:     1,
			IdleTimeout: time.Minute,
			DialContext: func(ctx context.Context) (redis.Conn, error) {
				return redis.DialContext(ctx, "tcp", address)
			},
		}
		store, err := redisstore.New(redisstore.Config{
			Client:     pool,
			Expiration: cfg.Expiration,
		})
		if err != nil {
			_ = pool.Close()
			return nil, noClose, err
		}
		return store, pool.Close, nil
	default:
		return nil, noClose, fmt.Errorf("unknown store backend %q (want %s, %s, %s or %s)",
			cfg.Backend, backendNone, backendFile, backendMemcache, backendRedis)
	}
}
