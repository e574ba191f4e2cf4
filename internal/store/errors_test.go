// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/switchboard/internal/models"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.ErrorKind
	}{
		{"not found", ErrNotFound, models.KindNotFound},
		{"wrapped not found", fmt.Errorf("get channel: %w", ErrNotFound), models.KindNotFound},
		{"conflict", ErrConflict, models.KindConflict},
		{"pin limit", ErrPinLimit, models.KindPinLimitExceeded},
		{"typed passes through", models.ChannelFrozen("c1"), models.KindChannelFrozen},
		{"anything else", errors.New("connection refused"), models.KindStorageUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err, "channel", "c1")
			if kind := models.KindOf(got); kind != tt.want {
				t.Errorf("Expected %s, got %s (%v)", tt.want, kind, got)
			}
		})
	}

	if Translate(nil, "channel", "c1") != nil {
		t.Error("Expected nil for nil error")
	}
	cause := errors.New("boom")
	if got := Translate(cause, "channel", "c1"); !errors.Is(got, cause) {
		t.Errorf("Expected cause to stay reachable, got %v", got)
	}
}
