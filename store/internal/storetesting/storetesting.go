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

package storetesting

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/bufbuild/protopeek"
	"github.com/stretchr/testify/require"
)

// RunSimpleStoreTests saves and loads a few entries, including an input
// snapshot, and returns what it stored, by key.
//
//nolint:revive // okay that ctx is second; prefer t to be first
func RunSimpleStoreTests(t *testing.T, ctx context.Context, store protopeek.Store) map[string][]byte {
	t.Helper()

	// In case tests are run concurrently, we want to make sure we aren't reading
	// values stored by another concurrent test. While the caller of this function
	// should arrange for that (using different server/directory/keyspace, etc)
	// we want to catch accidental misuse. So for that, we generate random data so
	// that the values we expect are different from one call to another.

	const (
		keyFoo    = "foo"
		keyExport = "node_2_LengthDelimited.json"
	)

	entries := make(map[string][]byte, 3)
	for _, k := range []string{keyFoo, keyExport} {
		val := make([]byte, 100)
		_, err := rand.Read(val)
		require.NoError(t, err)
		entries[k] = val
	}
	valFoo, valExport := entries[keyFoo], entries[keyExport]

	// load fails since nothing exists
	_, err := store.Load(ctx, keyFoo)
	require.Error(t, err)
	err = store.Save(ctx, keyFoo, valFoo)
	require.NoError(t, err)
	loaded, err := store.Load(ctx, keyFoo)
	require.NoError(t, err)
	require.Equal(t, valFoo, loaded)

	// another key
	_, err = store.Load(ctx, keyExport)
	require.Error(t, err)
	err = store.Save(ctx, keyExport, valExport)
	require.NoError(t, err)
	loaded, err = store.Load(ctx, keyExport)
	require.NoError(t, err)
	require.Equal(t, valExport, loaded)

	// original key unchanged
	loaded, err = store.Load(ctx, keyFoo)
	require.NoError(t, err)
	require.Equal(t, valFoo, loaded)

	// overwrite
	valFoo = append([]byte{0x08, 0x96, 0x01}, valFoo...)
	entries[keyFoo] = valFoo
	err = store.Save(ctx, keyFoo, valFoo)
	require.NoError(t, err)
	loaded, err = store.Load(ctx, keyFoo)
	require.NoError(t, err)
	require.Equal(t, valFoo, loaded)

	// snapshot round trip
	captured := time.Date(2024, time.March, 9, 12, 30, 0, 0, time.UTC)
	snapshot, err := protopeek.EncodeSnapshot(valExport, captured)
	require.NoError(t, err)
	keySnapshot := protopeek.SnapshotKey(valExport)
	entries[keySnapshot] = snapshot
	err = store.Save(ctx, keySnapshot, snapshot)
	require.NoError(t, err)
	loaded, err = store.Load(ctx, keySnapshot)
	require.NoError(t, err)
	input, loadedCaptured, err := protopeek.DecodeSnapshot(loaded)
	require.NoError(t, err)
	require.Equal(t, valExport, input)
	require.True(t, captured.Equal(loadedCaptured))

	return entries
}
