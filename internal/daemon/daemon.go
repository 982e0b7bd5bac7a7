package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"autoposter/internal/config"
	"autoposter/internal/logging"
	"autoposter/internal/workflow"
)

// Scheduler is the job loop the daemon drives.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
	Status() []workflow.JobStatus
}

// Daemon enforces single-instance execution of the scheduler.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	scheduler Scheduler

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                 `json:"running"`
	Jobs         []workflow.JobStatus `json:"jobs"`
	DatabasePath string               `json:"database_path"`
	LockFilePath string               `json:"lock_file_path"`
}

// New constructs a daemon around scheduler.
func New(cfg *config.Config, scheduler Scheduler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || scheduler == nil {
		return nil, errors.New("daemon requires config and scheduler")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		scheduler: scheduler,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the lock and launches the scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another autoposter daemon holds %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.scheduler.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("autoposter daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the scheduler and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("autoposter daemon stopped")
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Jobs:         d.scheduler.Status(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}
