// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/switchboard/internal/logging"
	"github.com/tomtom215/switchboard/internal/metrics"
)

// Handler executes one task. Returning an error leaves the task leased; it
// runs again once the lease expires.
type Handler func(ctx context.Context, task *Task) error

// Config tunes polling.
type Config struct {
	PollInterval time.Duration
	LeaseTimeout time.Duration
}

type pool struct {
	workers int
	handler Handler
	tasks   chan *Task
}

// Scheduler polls a Queue and dispatches due tasks to per-kind worker pools.
type Scheduler struct {
	queue  Queue
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	pools   map[Kind]*pool
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// wake nudges the poll loop when a task is scheduled for now.
	wake chan struct{}
}

// New creates a scheduler over queue.
func New(queue Queue, cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = time.Minute
	}
	return &Scheduler{
		queue:  queue,
		cfg:    cfg,
		now:    time.Now,
		logger: logging.WithComponent("scheduler"),
		pools:  make(map[Kind]*pool),
		wake:   make(chan struct{}, 1),
	}
}

// Register attaches a handler with a fixed number of workers to a kind.
// It must be called before Start.
func (s *Scheduler) Register(kind Kind, workers int, handler Handler) error {
	if workers <= 0 {
		return fmt.Errorf("workers for %s must be positive", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already started")
	}
	if _, dup := s.pools[kind]; dup {
		return fmt.Errorf("handler for %s already registered", kind)
	}
	s.pools[kind] = &pool{workers: workers, handler: handler, tasks: make(chan *Task, workers)}
	return nil
}

// Schedule enqueues a task. A task whose RunAt has passed runs on the next
// poll, which is triggered immediately.
func (s *Scheduler) Schedule(ctx context.Context, task *Task) error {
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return err
	}
	if !task.RunAt.After(s.now()) {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Cancel removes a pending task. Cancelling an unknown ID is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	return s.queue.Ack(ctx, id)
}

// Start launches the poll loop and worker pools.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for kind, p := range s.pools {
		for i := 0; i < p.workers; i++ {
			s.wg.Add(1)
			go s.work(ctx, kind, p)
		}
	}
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info().Int("kinds", len(s.pools)).Dur("poll_interval", s.cfg.PollInterval).Msg("Scheduler started")
	return nil
}

// Stop cancels the loop and waits for in-flight handlers.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		s.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.wake:
		}
	}
}

// poll leases due tasks and blocks until each is handed to a worker.
func (s *Scheduler) poll(ctx context.Context) {
	if n, err := s.queue.Len(ctx); err == nil {
		metrics.SchedulerQueueDepth.Set(float64(n))
	}

	capacity := 0
	for _, p := range s.pools {
		capacity += p.workers
	}
	if capacity == 0 {
		return
	}

	tasks, err := s.queue.Due(ctx, s.now(), capacity, s.cfg.LeaseTimeout)
	if err != nil {
		if !errors.Is(err, ErrClosed) {
			s.logger.Error().Err(err).Msg("Failed to lease due tasks")
		}
		return
	}

	for _, task := range tasks {
		p, ok := s.pools[task.Kind]
		if !ok {
			s.logger.Warn().Str("task_id", task.ID).Str("kind", string(task.Kind)).Msg("No handler for task kind, dropping")
			if err := s.queue.Ack(ctx, task.ID); err != nil {
				s.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to ack task")
			}
			continue
		}
		select {
		case p.tasks <- task:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) work(ctx context.Context, kind Kind, p *pool) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.tasks:
			s.run(ctx, kind, p.handler, task)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, kind Kind, handler Handler, task *Task) {
	err := handler(ctx, task)
	metrics.RecordSchedulerTask(string(kind), err)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("task_id", task.ID).
			Str("kind", string(kind)).
			Dur("retry_in", s.cfg.LeaseTimeout).
			Msg("Task failed, will retry after lease expires")
		return
	}
	if err := s.queue.Ack(ctx, task.ID); err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to ack task")
	}
}
