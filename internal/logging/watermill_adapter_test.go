// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

func TestWatermillLogger(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermillLogger(NewTestLogger(&buf))

	adapter.With(watermill.LogFields{"topic": "events"}).
		Error("handler failed", errors.New("boom"), watermill.LogFields{"message_uuid": "m1"})

	output := buf.String()
	for _, want := range []string{`"topic":"events"`, `"message_uuid":"m1"`, `"error":"boom"`, "handler failed"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %s, got: %s", want, output)
		}
	}
}
