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

// Package filestore provides an implementation of protopeek.Store
// that is based on the file system. Exported nodes and snapshots are
// stored in and loaded from files in a single directory, with store keys
// being used as the file names.
//
// This is the natural store for interactive use: an exported node with
// key "dump_node_2_LengthDelimited.json" ends up as a file of that name.
package filestore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bufbuild/protopeek"
)

// Config represents the configuration parameters used to
// create a new file-system-backed store.
type Config struct {
	// Required: the folder in which stored files live.
	Path string
	// The mode to use when creating new files in the store
	// directory. Defaults to 0600 if left zero. If not left
	// as default, the mode must have at least bits 0400 and
	// 0200 (read and write permissions for owner) set.
	FileMode fs.FileMode
}

// New creates a new file-system-backed store with the given
// configuration.
func New(config Config) (protopeek.Store, error) {
	// validate config
	if config.Path == "" {
		return nil, errors.New("path cannot be empty")
	}
	path, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, err
	}
	config.Path = path
	if config.FileMode == 0 {
		config.FileMode = 0600
	} else if (config.FileMode & 0600) != 0600 {
		return nil, fmt.Errorf("mode %#o must include bits 0600", config.FileMode)
	}

	//  make sure we can write files to store directory
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	testFile := filepath.Join(path, ".test")
	file, err := os.OpenFile(testFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("insufficient permission to create file in %s", path)
		}
		return nil, fmt.Errorf("failed to create file in %s: %w", path, err)
	}
	closeErr := file.Close()
	rmErr := os.Remove(testFile)
	if closeErr != nil {
		return nil, closeErr
	} else if rmErr != nil {
		return nil, rmErr
	}

	return (*store)(&config), nil
}

type store Config

func (s *store) Load(_ context.Context, key string) ([]byte, error) {
	fileName, err := fileNameForKey(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.Path, fileName))
}

func (s *store) Save(_ context.Context, key string, data []byte) error {
	fileName, err := fileNameForKey(key)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Path, fileName), data, s.FileMode)
}

func fileNameForKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("key cannot be empty")
	}
	return sanitize(key), nil
}

// sanitize percent-encodes every byte of s that is not safe in a file
// name. A leading dot is encoded too, so that no key names a hidden file
// or a parent directory.
func sanitize(s string) string {
	var builder strings.Builder
	hexWriter := hex.NewEncoder(&builder)
	var buf [1]byte
	for i, length := 0, len(s); i < length; i++ {
		char := s[i]
		switch {
		case char >= 'a' && char <= 'z',
			char >= 'A' && char <= 'Z',
			char >= '0' && char <= '9',
			char == '-' || char == '_',
			char == '.' && i > 0:
			builder.WriteByte(char)
		default:
			builder.WriteByte('%')
			buf[0] = char
			_, _ = hexWriter.Write(buf[:])
		}
	}
	return builder.String()
}
