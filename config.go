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
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// InspectorConfig contains the configurable attributes of the [Inspector].
type InspectorConfig struct {
	// MaxDepth bounds how deeply length-delimited payloads are decoded as
	// nested messages. If unset and left zero, DefaultMaxDepth is used.
	// The value cannot be negative; if it is, [NewInspector] will return
	// an error.
	MaxDepth int
	// If Store is non-nil, it receives exported nodes and input
	// snapshots. If nil, [Inspector.Export], [Inspector.SaveSnapshot] and
	// [Inspector.OpenSnapshot] return an error.
	Store Store
	// KeyPrefix is prepended to every key written to Store.
	// If Store is non-nil, this must be non-empty. It is up to the Store
	// to sanitize the key if necessary.
	KeyPrefix string
	// Logger receives debug and progress messages. If nil, nothing is
	// logged.
	Logger *zerolog.Logger
	// Now returns the current time, used to timestamp snapshots. If nil,
	// time.Now is used.
	Now func() time.Time
}

func (c *InspectorConfig) validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth (%d) cannot be negative", c.MaxDepth)
	}
	if c.Store != nil && c.KeyPrefix == "" {
		return fmt.Errorf("key prefix cannot be blank if store is non-nil")
	}
	return nil
}
