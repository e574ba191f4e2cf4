// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/models"
	"github.com/tomtom215/switchboard/internal/validation"
)

// maxBodyBytes bounds request bodies. Message text is capped far below this.
const maxBodyBytes = 1 << 20

// codeRateLimited is the error code for HTTP-level (per IP) throttling. It is
// distinct from SlowModeCooldown, which is per channel and user.
const codeRateLimited = "RateLimited"

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// respondJSON writes v with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, body errorBody) {
	body.RequestID = logging.RequestIDFromContext(r.Context())
	respondJSON(w, status, errorEnvelope{Error: body})
}

// respondError renders err in the error envelope. Taxonomy errors keep
// their kind and details; anything else is logged and reported as an
// internal error without leaking its text.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var me *models.Error
	if !errors.As(err, &me) {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled API error")
		writeEnvelope(w, r, http.StatusInternalServerError, errorBody{
			Code:    string(models.KindInternal),
			Message: "internal error",
		})
		return
	}

	status := models.HTTPStatus(me.Kind)
	body := errorBody{Code: string(me.Kind), Message: me.Message}
	if len(me.Details) > 0 {
		body.Details = make(map[string]any, len(me.Details)+1)
		for k, v := range me.Details {
			body.Details[k] = v
		}
	}

	switch me.Kind {
	case models.KindSlowModeCooldown:
		secs := models.RetryAfterSeconds(me.RetryAfter)
		if body.Details == nil {
			body.Details = make(map[string]any, 1)
		}
		body.Details["retryAfter"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	case models.KindStorageUnavailable:
		logging.Ctx(r.Context()).Warn().Err(me.Err).Str("path", r.URL.Path).Msg("Storage unavailable")
	case models.KindUnauthenticated:
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	writeEnvelope(w, r, status, body)
}

// decodeJSON reads a JSON body into dst and validates it. Unknown fields are
// rejected so that typos surface as ValidationError rather than silently
// being ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return models.Validation("request body is required", nil)
		case errors.As(err, &tooLarge):
			return models.Validation("request body too large", map[string]any{"max": maxBodyBytes})
		default:
			return models.Validation("malformed JSON body", map[string]any{"reason": err.Error()})
		}
	}
	return validation.ValidateStruct(dst)
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.Validation(name+" must be an integer", map[string]any{"field": name})
	}
	return v, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, models.Validation(name+" must be a boolean", map[string]any{"field": name})
	}
	return v, nil
}

// WriteError renders err in the error envelope. It matches auth.ErrorWriter
// so authentication failures share the API's error format.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err)
}
