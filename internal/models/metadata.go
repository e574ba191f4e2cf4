// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package models

import "fmt"

// Metadata limits.
const (
	MaxMetadataKeys   = 32
	MaxMetadataKeyLen = 64
	MaxMetadataValLen = 1024
)

// Metadata is an opaque extension map attached to channels, messages and
// events. Values are restricted to JSON scalars and flat lists of scalars so
// the map can be stored and forwarded without further inspection.
type Metadata map[string]any

// Validate checks key count, key length and value shapes.
func (m Metadata) Validate() error {
	if len(m) > MaxMetadataKeys {
		return Validation(fmt.Sprintf("metadata may hold at most %d keys", MaxMetadataKeys), nil)
	}
	for k, v := range m {
		if k == "" || len(k) > MaxMetadataKeyLen {
			return Validation(fmt.Sprintf("metadata key %q must be 1-%d characters", k, MaxMetadataKeyLen), nil)
		}
		if err := validateScalar(k, v, true); err != nil {
			return err
		}
	}
	return nil
}

func validateScalar(key string, v any, allowList bool) error {
	switch val := v.(type) {
	case nil, bool, float64, int, int64:
		return nil
	case string:
		if len(val) > MaxMetadataValLen {
			return Validation(fmt.Sprintf("metadata value for %q exceeds %d characters", key, MaxMetadataValLen), nil)
		}
		return nil
	case []any:
		if !allowList {
			return Validation(fmt.Sprintf("metadata value for %q is nested too deeply", key), nil)
		}
		for _, item := range val {
			if err := validateScalar(key, item, false); err != nil {
				return err
			}
		}
		return nil
	default:
		return Validation(fmt.Sprintf("metadata value for %q must be a scalar or list of scalars", key), nil)
	}
}
