package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"autoposter/internal/logging"
	"autoposter/internal/services"
)

// Job is one periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Offset   time.Duration
	Run      func(ctx context.Context) error
}

// Due reports whether the job fires in the minute starting at t. The period is
// measured from midnight UTC, so an interval of 6h with offset 15m fires at
// 00:15, 06:15, 12:15 and 18:15. A non-positive interval disables the job.
func (j Job) Due(t time.Time) bool {
	interval := int(j.Interval / time.Minute)
	if interval <= 0 || j.Run == nil {
		return false
	}
	t = t.UTC()
	minute := t.Hour()*60 + t.Minute()
	offset := int(j.Offset/time.Minute) % interval
	return minute%interval == offset
}

// JobStatus is the last observed result of a job.
type JobStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Offset    time.Duration `json:"offset"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	Runs      int           `json:"runs"`
}

// Scheduler runs jobs on their cadence, sequentially.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	status     map[string]*JobStatus
	lastMinute time.Time
}

// NewScheduler builds a scheduler for jobs in the given order.
func NewScheduler(logger *slog.Logger, jobs ...Job) *Scheduler {
	status := make(map[string]*JobStatus, len(jobs))
	for _, job := range jobs {
		status[job.Name] = &JobStatus{Name: job.Name, Interval: job.Interval, Offset: job.Offset}
	}
	return &Scheduler{
		jobs:   jobs,
		logger: logging.NewComponentLogger(logger, "scheduler"),
		now:    time.Now,
		status: status,
	}
}

// Start launches the scheduling loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	if len(s.jobs) == 0 {
		return errors.New("scheduler has no jobs")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	go s.loop(runCtx)
	return nil
}

// Stop cancels the loop and waits for the current job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	s.logger.Info("scheduler started", logging.Int("jobs", len(s.jobs)))
	for {
		s.Tick(ctx, s.now())

		next := s.now().Truncate(time.Minute).Add(time.Minute)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return
		case <-timer.C:
		}
	}
}

// maxCatchUp bounds how far back Tick looks for slots skipped while a job ran.
const maxCatchUp = 24 * time.Hour

// Tick runs every job due in the minute containing t. A minute is handled at
// most once, so repeated ticks within it are no-ops. Jobs whose slot fell in a
// minute skipped since the previous tick run once as well. It returns the
// names of the jobs it ran.
func (s *Scheduler) Tick(ctx context.Context, t time.Time) []string {
	minute := t.UTC().Truncate(time.Minute)
	s.mu.Lock()
	if !minute.After(s.lastMinute) {
		s.mu.Unlock()
		return nil
	}
	previous := s.lastMinute
	s.lastMinute = minute
	s.mu.Unlock()

	missed := s.missedSlots(previous, minute)

	var ran []string
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return ran
		}
		if !job.Due(minute) {
			slot, ok := missed[job.Name]
			if !ok {
				continue
			}
			s.logger.Warn("running job for a missed slot",
				logging.String("job", job.Name),
				logging.String("slot", slot.Format("15:04")),
				logging.String(logging.FieldImpact, "job runs late"),
			)
		}
		s.runJob(ctx, job, minute)
		ran = append(ran, job.Name)
	}
	return ran
}

// missedSlots returns, per job, the latest slot strictly between previous and
// minute. Gaps longer than maxCatchUp are logged and not replayed.
func (s *Scheduler) missedSlots(previous, minute time.Time) map[string]time.Time {
	if previous.IsZero() || minute.Sub(previous) <= time.Minute {
		return nil
	}
	if minute.Sub(previous) > maxCatchUp {
		s.logger.Warn("scheduler skipped slots beyond catch-up window",
			logging.String("last_tick", previous.Format(time.RFC3339)),
			logging.Duration("gap", minute.Sub(previous)),
			logging.String(logging.FieldImpact, "missed slots are not replayed"),
		)
		return nil
	}
	missed := make(map[string]time.Time)
	for m := previous.Add(time.Minute); m.Before(minute); m = m.Add(time.Minute) {
		for _, job := range s.jobs {
			if job.Due(m) {
				missed[job.Name] = m
			}
		}
	}
	return missed
}

func (s *Scheduler) runJob(ctx context.Context, job Job, minute time.Time) {
	ctx = services.WithStage(ctx, job.Name)
	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(started)

	s.mu.Lock()
	st := s.status[job.Name]
	if st == nil {
		st = &JobStatus{Name: job.Name, Interval: job.Interval, Offset: job.Offset}
		s.status[job.Name] = st
	}
	st.LastRun = minute
	st.Runs++
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("job cancelled", logging.String("job", job.Name))
			return
		}
		logging.ErrorWithContext(logger, "scheduled job failed", "job_failed",
			logging.String("job", job.Name),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run the job by hand with the CLI to reproduce"),
			logging.String(logging.FieldImpact, "job retries at its next slot"),
		)
		return
	}
	logger.Debug("scheduled job finished",
		logging.String("job", job.Name),
		logging.Duration("elapsed", elapsed),
	)
}

// Status returns a copy of every job's status in registration order.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		if st := s.status[job.Name]; st != nil {
			out = append(out, *st)
		}
	}
	return out
}
