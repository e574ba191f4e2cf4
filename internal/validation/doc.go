// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package validation provides request DTO validation using
// go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata, so it is built once. Field names in errors are the JSON names of
// the fields, which is what API clients see.
//
// Custom tags:
//   - webhook_event: a webhook-eligible event type, or "*"
//   - channel_type: direct, group or public
//   - role: owner, admin or member
//
// Failures are returned as *models.Error with kind ValidationError. A single
// failing field is reported directly; several are listed:
//
//	{
//	    "code": "ValidationError",
//	    "message": "url must be a valid URL",
//	    "details": {"field": "url", "tag": "url"}
//	}
//
//	{
//	    "code": "ValidationError",
//	    "message": "url: url must be a valid URL; events: events is required",
//	    "details": {"fields": [{"field": "url", ...}, {"field": "events", ...}]}
//	}
//
// Domain rules (text length, slow-mode bounds, membership) stay in the
// services; DTO validation only rejects malformed input early.
package validation
