// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package store

import (
	"errors"

	"github.com/tomtom215/switchboard/internal/models"
)

// Translate maps an adapter error onto the error taxonomy. resource and id
// name the row for NotFound messages.
func Translate(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var typed *models.Error
	switch {
	case errors.As(err, &typed):
		return err
	case errors.Is(err, ErrNotFound):
		return models.NotFound(resource, id)
	case errors.Is(err, ErrConflict):
		return models.Conflict(resource + " conflicts with an existing " + resource)
	case errors.Is(err, ErrPinLimit):
		return models.PinLimitExceeded(id)
	default:
		return models.StorageUnavailable(err)
	}
}
