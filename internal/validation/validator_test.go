// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package validation

import (
	"errors"
	"testing"

	"github.com/tomtom215/switchboard/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

type webhookRequest struct {
	URL     string   `json:"url" validate:"required,http_url"`
	Events  []string `json:"events" validate:"required,min=1,max=20,dive,webhook_event"`
	Retries *int     `json:"retryCount,omitempty" validate:"omitempty,min=0,max=10"`
}

type channelRequest struct {
	Type    string   `json:"type" validate:"required,channel_type"`
	Name    string   `json:"name,omitempty" validate:"max=10"`
	Role    string   `json:"role,omitempty" validate:"omitempty,role"`
	Members []string `json:"members" validate:"max=2"`
}

func intPtr(v int) *int { return &v }

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		wantField string
		wantMsg   string
	}{
		{
			name:  "valid webhook",
			input: &webhookRequest{URL: "https://example.test/hook", Events: []string{"message.new", "*"}, Retries: intPtr(3)},
		},
		{
			name:      "missing url uses json name",
			input:     &webhookRequest{Events: []string{"message.new"}},
			wantField: "url",
			wantMsg:   "url is required",
		},
		{
			name:      "transient event rejected",
			input:     &webhookRequest{URL: "https://example.test", Events: []string{"typing.started"}},
			wantField: "events[0]",
			wantMsg:   "events[0] must be a webhook event type",
		},
		{
			name:      "retry bound",
			input:     &webhookRequest{URL: "https://example.test", Events: []string{"message.new"}, Retries: intPtr(11)},
			wantField: "retryCount",
			wantMsg:   "retryCount must be at most 10",
		},
		{
			name:      "channel type",
			input:     &channelRequest{Type: "secret"},
			wantField: "type",
			wantMsg:   "type must be one of: direct, group, public",
		},
		{
			name:      "string max",
			input:     &channelRequest{Type: "group", Name: "a very long name"},
			wantField: "name",
			wantMsg:   "name must be at most 10 characters",
		},
		{
			name:      "slice max",
			input:     &channelRequest{Type: "group", Members: []string{"a", "b", "c"}},
			wantField: "members",
			wantMsg:   "members must be at most 2 items",
		},
		{
			name:      "role",
			input:     &channelRequest{Type: "group", Role: "king"},
			wantField: "role",
			wantMsg:   "role must be one of: owner, admin, member",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			var me *models.Error
			if !errors.As(err, &me) {
				t.Fatalf("Expected *models.Error, got %T", err)
			}
			if me.Kind != models.KindValidation {
				t.Errorf("Expected kind %s, got %s", models.KindValidation, me.Kind)
			}
			if me.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, me.Message)
			}
			if me.Details["field"] != tt.wantField {
				t.Errorf("Expected field %q, got %v", tt.wantField, me.Details["field"])
			}
		})
	}
}

func TestValidateStruct_MultipleFields(t *testing.T) {
	err := ValidateStruct(&webhookRequest{})
	var me *models.Error
	if !errors.As(err, &me) {
		t.Fatalf("Expected *models.Error, got %v", err)
	}
	fields, ok := me.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Fatalf("Expected 2 field errors, got %v", me.Details)
	}
	if fields[0].Field != "url" || fields[1].Field != "events" {
		t.Errorf("Expected url then events, got %s, %s", fields[0].Field, fields[1].Field)
	}
	if want := "url: url is required; events: events is required"; me.Message != want {
		t.Errorf("Expected %q, got %q", want, me.Message)
	}
}
