package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reviewboost/review-api/pkg/logger"
)

// Job is a single tick of work. It must honor ctx cancellation.
type Job func(ctx context.Context)

// Status describes the scheduler state for the job-status endpoint.
type Status struct {
	Running     bool      `json:"running"`
	TickActive  bool      `json:"tick_active"`
	NextRunTime time.Time `json:"next_run_time"`
	Trigger     string    `json:"trigger_description"`
}

// Scheduler fires a job at a fixed interval. Overlapping ticks are not
// allowed: a tick that fires while the previous one is still running is
// dropped, not queued.
type Scheduler struct {
	interval time.Duration
	job      Job
	logger   *logger.Logger

	running atomic.Bool
	ticking atomic.Bool
	skipped func()

	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	done    chan struct{}
	nextRun time.Time
}

func New(interval time.Duration, job Job, log *logger.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		interval: interval,
		job:      job,
		logger:   log,
	}, nil
}

// OnTickSkipped registers a callback invoked when a tick is dropped because
// the previous one is still running. Used to feed a metric.
func (s *Scheduler) OnTickSkipped(fn func()) {
	s.skipped = fn
}

func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)
	s.nextRun = time.Now().Add(s.interval)

	go s.run(ctx)

	s.logger.Info("scheduler started", "interval", s.interval.String())
	return true
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.nextRun = time.Now().Add(s.interval)
			s.mu.Unlock()
			// Ticks run off the loop so a long sweep cannot delay the
			// ticker; the ticking guard drops overlapping runs instead.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.tick(ctx)
			}()
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still in progress, skipping tick")
		if s.skipped != nil {
			s.skipped()
		}
		return
	}
	defer s.ticking.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Errorf("%v", r), "scheduler tick panic recovered")
		}
	}()

	start := time.Now()
	s.job(ctx)
	s.logger.Debug("scheduler tick completed", "duration_ms", time.Since(start).Milliseconds())
}

func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.wg.Wait()
	s.running.Store(false)

	s.logger.Info("scheduler stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	next := s.nextRun
	s.mu.Unlock()

	st := Status{
		Running:    s.running.Load(),
		TickActive: s.ticking.Load(),
		Trigger:    fmt.Sprintf("interval: every %s", s.interval),
	}
	if st.Running {
		st.NextRunTime = next
	}
	return st
}
