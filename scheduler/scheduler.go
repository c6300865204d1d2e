// Package scheduler запускает периодические фоновые задачи сервиса.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type entry struct {
	task    Task
	trigger chan struct{}
}

// Scheduler runs each task once at start, then on its ticker or on Trigger,
// until the context passed to Start is cancelled. Runs of one task never overlap.
type Scheduler struct {
	logger  *slog.Logger
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	started bool
	wg      sync.WaitGroup
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:  logger.With("component", "scheduler"),
		entries: make(map[string]*entry),
	}
}

func (s *Scheduler) Add(task Task) error {
	if task.Name == "" || task.Run == nil {
		return fmt.Errorf("scheduler: task needs a name and a run function")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("scheduler: task %q has non-positive interval %s", task.Name, task.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler: cannot add task %q after start", task.Name)
	}
	if _, exists := s.entries[task.Name]; exists {
		return fmt.Errorf("scheduler: task %q already registered", task.Name)
	}
	s.entries[task.Name] = &entry{task: task, trigger: make(chan struct{}, 1)}
	s.order = append(s.order, task.Name)
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	for _, name := range s.order {
		e := s.entries[name]
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
}

// Wait blocks until every task loop has returned after cancellation.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Trigger requests an extra run of the named task. Requests made while one is
// already pending collapse into a single run.
func (s *Scheduler) Trigger(name string) bool {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case e.trigger <- struct{}{}:
	default:
	}
	return true
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.task.Interval)
	defer ticker.Stop()
	s.logger.Info("task started", slog.String("task", e.task.Name), slog.Duration("interval", e.task.Interval))

	s.runOnce(ctx, e, "startup")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("task stopped", slog.String("task", e.task.Name))
			return
		case <-ticker.C:
			s.runOnce(ctx, e, "tick")
		case <-e.trigger:
			s.runOnce(ctx, e, "trigger")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, e *entry, reason string) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", slog.String("task", e.task.Name), slog.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := e.task.Run(ctx); err != nil {
		s.logger.Error("task run failed",
			slog.String("task", e.task.Name),
			slog.String("reason", reason),
			slog.Any("error", err))
		return
	}
	s.logger.Debug("task run complete",
		slog.String("task", e.task.Name),
		slog.String("reason", reason),
		slog.Duration("took", time.Since(start)))
}
