package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultPython is the interpreter used when none is configured.
	DefaultPython = "python"
	// DefaultScratchDir holds generated scripts while they run.
	DefaultScratchDir = "temp"
	// DefaultRunTimeout bounds one subprocess run, model loading included.
	DefaultRunTimeout = 5 * time.Minute
	// DefaultMaxConcurrent is the number of model processes allowed at once.
	// Each one loads a full model into memory.
	DefaultMaxConcurrent = 2

	// waitDelay bounds how long Wait drains pipes after the child is killed.
	waitDelay = 5 * time.Second
)

// RunnerConfig holds configuration for a Runner.
type RunnerConfig struct {
	// Python is the interpreter executable. Defaults to DefaultPython.
	Python string
	// ScratchDir is created on demand. Defaults to DefaultScratchDir.
	ScratchDir string
	// Timeout bounds each run. Zero selects DefaultRunTimeout, negative disables it.
	Timeout time.Duration
	// MaxConcurrent caps simultaneous child processes. Defaults to DefaultMaxConcurrent.
	MaxConcurrent int
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// Runner executes generated translation programs as child processes.
// It is safe for concurrent use: each run stages its own scratch file.
type Runner struct {
	python     string
	scratchDir string
	timeout    time.Duration
	slots      *semaphore.Weighted
	logger     *logrus.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Python == "" {
		cfg.Python = DefaultPython
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = DefaultScratchDir
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRunTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}

	return &Runner{
		python:     cfg.Python,
		scratchDir: cfg.ScratchDir,
		timeout:    cfg.Timeout,
		slots:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger:     cfg.Logger,
	}
}

// Run executes inv and reduces its output to a Result.
//
// The returned error is one of ErrModelNotFound (wrapped), *SpawnError,
// *ProcessError, *ModelError or *AbortedError. The child is killed when ctx is
// done or the run timeout expires.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	log := r.logger.WithFields(logrus.Fields{
		"engine": inv.Engine,
		"method": inv.Method,
	})
	metrics := newEngineMetrics(inv.Engine)

	if info, err := os.Stat(inv.ModelDir); err != nil || !info.IsDir() {
		log.WithField("model_dir", inv.ModelDir).Error("Model directory not found")
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, inv.ModelDir)
	}

	waitStart := time.Now()
	if err := r.slots.Acquire(ctx, 1); err != nil {
		log.WithError(err).Warn("Gave up waiting for a subprocess slot")
		return nil, &AbortedError{Engine: inv.Engine, Err: err}
	}
	defer r.slots.Release(1)
	metrics.admitted(time.Since(waitStart))

	scriptPath, err := r.writeScript(inv)
	if err != nil {
		return nil, err
	}
	defer r.removeScript(scriptPath, metrics, log)

	runCtx, cancel := r.runContext(ctx)
	defer cancel()

	args := append([]string{scriptPath}, inv.Args...)
	cmd := exec.CommandContext(runCtx, r.python, args...)
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		if runCtx.Err() != nil {
			return nil, &AbortedError{Engine: inv.Engine, Err: runCtx.Err()}
		}
		metrics.notStarted()
		log.WithError(err).WithField("python", r.python).Error("Failed to start Python process")
		return nil, &SpawnError{Err: err}
	}
	metrics.started()

	log.WithFields(logrus.Fields{
		"pid":    cmd.Process.Pid,
		"script": scriptPath,
		"args":   len(inv.Args),
	}).Debug("Python process started")

	waitErr := cmd.Wait()
	duration := time.Since(startTime)
	output := strings.TrimSpace(stdout.String())
	errorOutput := strings.TrimSpace(stderr.String())

	fields := logrus.Fields{
		"duration_ms": duration.Milliseconds(),
		"stdout_size": stdout.Len(),
	}

	if waitErr != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			metrics.finished(duration, "aborted", stdout.Len())
			log.WithError(ctxErr).WithFields(fields).Warn("Python process killed")
			return nil, &AbortedError{Engine: inv.Engine, Err: ctxErr}
		}

		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			metrics.finished(duration, "exit_error", stdout.Len())
			log.WithFields(fields).WithFields(logrus.Fields{
				"exit_code": exitErr.ExitCode(),
				"stderr":    errorOutput,
			}).Error("Python process failed")
			return nil, &ProcessError{
				Prefix:   inv.FailurePrefix,
				ExitCode: exitErr.ExitCode(),
				Stderr:   errorOutput,
			}
		}

		metrics.finished(duration, "error", stdout.Len())
		log.WithError(waitErr).WithFields(fields).Error("Python process wait failed")
		return nil, fmt.Errorf("%s: %w", inv.FailurePrefix, waitErr)
	}

	if inv.ErrorPrefix != "" && strings.HasPrefix(output, inv.ErrorPrefix) {
		metrics.finished(duration, "model_error", stdout.Len())
		log.WithFields(fields).WithFields(logrus.Fields{
			"output": output,
			"stderr": errorOutput,
		}).Error("Model reported an error")
		return nil, &ModelError{Output: output}
	}

	metrics.finished(duration, "success", stdout.Len())
	log.WithFields(fields).WithField("stderr", errorOutput).Debug("Python process completed")

	return newResult(output, inv.Method), nil
}

func (r *Runner) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// writeScript stages inv.Script under a name no other run shares.
func (r *Runner) writeScript(inv Invocation) (string, error) {
	if err := os.MkdirAll(r.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}

	name := fmt.Sprintf("translate-%s-%s.py", inv.Engine, uuid.NewString())
	path := filepath.Join(r.scratchDir, name)
	if err := os.WriteFile(path, []byte(inv.Script), 0o600); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	return path, nil
}

func (r *Runner) removeScript(path string, metrics engineMetrics, log *logrus.Entry) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		metrics.cleanupFailed()
		log.WithError(err).WithField("script", path).Warn("Could not delete temp script")
	}
}
