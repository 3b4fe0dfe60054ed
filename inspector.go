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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNoSession is returned by Inspector methods that need decoded
	// input when nothing has been loaded successfully.
	ErrNoSession = errors.New("no input loaded")
	// ErrNodeNotFound is returned by Inspector.FindNode when no node has
	// the requested path.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNoStore is returned by Inspector methods that need a Store when
	// none was configured.
	ErrNoStore = errors.New("no store configured")
)

// Inspector is an inspection session: it holds one decoded input and its
// display tree, and runs searches and exports against them.
//
// Loading replaces the session as a whole, so an Inspector can be used
// from multiple goroutines. Searches never modify the loaded tree and can
// be repeated as often as needed.
type Inspector struct {
	decoder   Decoder
	store     Store
	keyPrefix string
	logger    zerolog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	source []byte
	result *Result
	roots  []*DisplayNode
	status string
}

// NewInspector creates a new [Inspector] for the given [InspectorConfig].
// A nil config is equivalent to a zero config.
//
// The config is first validated. A non-nil error is returned if the
// configuration is not valid.
func NewInspector(config *InspectorConfig) (*Inspector, error) {
	if config == nil {
		config = &InspectorConfig{}
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Inspector{
		decoder:   Decoder{MaxDepth: config.MaxDepth},
		store:     config.Store,
		keyPrefix: config.KeyPrefix,
		logger:    logger,
		now:       now,
		status:    "ready",
	}, nil
}

// LoadText decodes hex or Base64 text (see DecodeInputText) and loads
// the result.
func (i *Inspector) LoadText(text string) error {
	input, err := DecodeInputText(text)
	if err != nil {
		i.fail(err)
		return err
	}
	return i.Load(input)
}

// LoadBytes loads raw bytes, decompressing them first if needed (see
// DecodeInputBytes). The inspector keeps a reference to the decompressed
// buffer, so data must not be modified afterwards.
func (i *Inspector) LoadBytes(data []byte) error {
	return i.Load(DecodeInputBytes(data))
}

// Load decodes input and replaces the session with the result. On
// failure the session holds a single error node and the error is
// returned.
func (i *Inspector) Load(input *Input) error {
	logEvent := i.logger.Debug().
		Str("encoding", input.Encoding).
		Int("bytes", len(input.Data))
	if input.Compression != "" {
		logEvent = logEvent.Str("compression", input.Compression)
	}
	logEvent.Msg("input decoded")
	if input.DecompressErr != nil {
		i.logger.Debug().Err(input.DecompressErr).Msg("decompression failed, using input as is")
	}

	result, err := i.decoder.Decode(input.Data)
	if err != nil {
		i.fail(err)
		return err
	}
	roots := BuildDisplayTree(result.Fields)
	if result.Stopped != nil {
		i.logger.Warn().
			Err(result.Stopped).
			Int("consumed", result.Consumed).
			Int("bytes", len(input.Data)).
			Msg("input decoded partially")
	}
	status := fmt.Sprintf("parsed %d top-level fields, total size %d bytes", len(result.Fields), len(input.Data))
	i.logger.Info().
		Int("fields", len(result.Fields)).
		Int("bytes", len(input.Data)).
		Msg("input parsed")

	i.mu.Lock()
	defer i.mu.Unlock()
	i.source = input.Data
	i.result = result
	i.roots = roots
	i.status = status
	return nil
}

// fail replaces the session with a single error node.
func (i *Inspector) fail(err error) {
	i.logger.Error().Err(err).Msg("parse failed")
	i.mu.Lock()
	defer i.mu.Unlock()
	i.source = nil
	i.result = nil
	i.roots = []*DisplayNode{NewErrorNode("Parse error: " + err.Error())}
	i.status = "parse failed: " + err.Error()
}

// Status returns a one-line description of the session.
func (i *Inspector) Status() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// Source returns the decoded input buffer, or nil if nothing is loaded.
func (i *Inspector) Source() []byte {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.source
}

// Result returns the outcome of the last successful decode, or nil.
func (i *Inspector) Result() *Result {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.result
}

// Roots returns the full display tree. After a failed load it holds a
// single error node.
func (i *Inspector) Roots() []*DisplayNode {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.roots
}

// Search filters the full display tree; see FilterDisplayTree.
func (i *Inspector) Search(query string) ([]*DisplayNode, int) {
	roots := i.Roots()
	filtered, count := FilterDisplayTree(roots, query)
	i.logger.Debug().Str("query", query).Int("matches", count).Msg("search finished")
	return filtered, count
}

// FindNode returns the node with the given path, such as "1.2[3].4".
func (i *Inspector) FindNode(path string) (*DisplayNode, error) {
	i.mu.RLock()
	roots, loaded := i.roots, i.result != nil
	i.mu.RUnlock()
	if !loaded {
		return nil, ErrNoSession
	}
	if node := findNode(roots, path); node != nil {
		return node, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, path)
}

func findNode(nodes []*DisplayNode, path string) *DisplayNode {
	for _, node := range nodes {
		if node.Path == path {
			return node
		}
		if found := findNode(node.Children, path); found != nil {
			return found
		}
	}
	return nil
}

// Export saves the node at path to the store under fileName, in the
// format implied by its extension. An empty fileName means
// DefaultExportName with a ".bin" extension. It returns the store key.
func (i *Inspector) Export(ctx context.Context, path, fileName string) (string, error) {
	if i.store == nil {
		return "", ErrNoStore
	}
	node, err := i.FindNode(path)
	if err != nil {
		return "", err
	}
	exporter := &Exporter{Store: i.store, KeyPrefix: i.keyPrefix}
	key, err := exporter.Export(ctx, node, fileName)
	if err != nil {
		return "", err
	}
	i.logger.Info().Str("path", path).Str("key", key).Msg("node exported")
	return key, nil
}

// SaveSnapshot stores the loaded input so that it can be reopened later
// with OpenSnapshot, and returns the key it was stored under. The key
// is derived from the input's content.
func (i *Inspector) SaveSnapshot(ctx context.Context) (string, error) {
	if i.store == nil {
		return "", ErrNoStore
	}
	source := i.Source()
	if source == nil {
		return "", ErrNoSession
	}
	data, err := EncodeSnapshot(source, i.now())
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	key := i.keyPrefix + SnapshotKey(source)
	if err := i.store.Save(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}
	i.logger.Info().Str("key", key).Int("bytes", len(source)).Msg("snapshot saved")
	return key, nil
}

// OpenSnapshot loads a snapshot previously stored by SaveSnapshot. The
// key is the one SaveSnapshot returned, including the key prefix. It
// returns the time the snapshot was taken.
func (i *Inspector) OpenSnapshot(ctx context.Context, key string) (time.Time, error) {
	if i.store == nil {
		return time.Time{}, ErrNoStore
	}
	data, err := i.store.Load(ctx, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load snapshot %q: %w", key, err)
	}
	source, captured, err := DecodeSnapshot(data)
	if err != nil {
		return time.Time{}, err
	}
	i.logger.Info().Str("key", key).Time("captured", captured).Msg("snapshot opened")
	return captured, i.Load(&Input{Data: source, Encoding: "snapshot"})
}
