// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package services

import (
	"context"
	"fmt"
)

// Runner is a component with an explicit Start/Stop lifecycle, such as
// *scheduler.Scheduler.
type Runner interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService supervises a Runner. Serve starts it, blocks until ctx is
// cancelled, then stops it. A failed Start is returned so suture restarts
// the service with backoff.
type SchedulerService struct {
	runner Runner
	name   string
}

// NewSchedulerService wraps runner under name.
func NewSchedulerService(runner Runner, name string) *SchedulerService {
	return &SchedulerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.runner.Start(ctx); err != nil {
		return fmt.Errorf("%s start: %w", s.name, err)
	}
	<-ctx.Done()
	if err := s.runner.Stop(); err != nil {
		return fmt.Errorf("%s stop: %w", s.name, err)
	}
	return ctx.Err()
}

func (s *SchedulerService) String() string {
	return s.name
}
