package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"autoposter/internal/config"
	"autoposter/internal/daemon"
	"autoposter/internal/logging"
	"autoposter/internal/pipeline"
	"autoposter/internal/services"
	"autoposter/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Version     string
}

// Run starts the autoposter daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", cfg.LogPath()},
		ErrorOutputPaths: []string{"stderr", cfg.LogPath()},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sessionID := uuid.NewString()
	logger = logger.With(logging.String("session_id", sessionID))
	signalCtx = services.WithRequestID(signalCtx, sessionID)

	pidPath := filepath.Join(cfg.Paths.StateDir, "autoposter.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	rt, err := pipeline.Open(cfg, logger, pipeline.WithVersion(opts.Version))
	if err != nil {
		logger.Error("open pipeline runtime", logging.Error(err))
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Close(shutdownCtx); err != nil {
			logger.Warn("runtime shutdown incomplete", logging.Error(err))
		}
	}()

	logReadiness(signalCtx, logger, rt)

	scheduler := workflow.NewScheduler(logger, rt.Jobs()...)
	d, err := daemon.New(cfg, scheduler, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("autoposter daemon shutting down")
	return nil
}

func logReadiness(ctx context.Context, logger *slog.Logger, rt *pipeline.Runtime) {
	settings, err := rt.Modes().Current(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "pipeline mode unavailable", "mode_read_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "agents read the mode again on every run"),
		)
	} else {
		logger.Info("pipeline mode",
			logging.String(logging.FieldEventType, "pipeline_mode"),
			logging.String("pipeline_mode", string(settings.Mode)),
			logging.Bool("kill_switch", settings.KillSwitch),
		)
	}

	var notReady []string
	for _, health := range rt.AgentHealth(ctx) {
		if !health.Ready {
			notReady = append(notReady, health.Name+": "+health.Detail)
		}
	}
	if len(notReady) > 0 {
		logging.WarnWithContext(logger, "agents not ready", "agent_readiness",
			logging.String("agents", strings.Join(notReady, "; ")),
			logging.String(logging.FieldErrorHint, "run 'autoposter doctor'"),
			logging.String(logging.FieldImpact, "affected agents fail or skip until fixed"),
		)
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
