// Package executor runs generated scripts as separate processes.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

const (
	DefaultInterpreter = "python3"
	DefaultTimeout     = 60 * time.Second
	DefaultSuffix      = ".py"

	// TimeoutMessage is the Error of a run stopped by its timeout.
	TimeoutMessage = "execution timed out"

	// killGrace bounds how long Wait keeps reading output after a kill.
	killGrace = 2 * time.Second
)

// Outcome is one of Completed, TimedOut or LaunchFailed.
type Outcome interface {
	isOutcome()
}

// Completed means the process ran and exited with ExitCode.
type Completed struct {
	ExitCode int
}

// TimedOut means the process was killed when its timeout expired.
type TimedOut struct{}

// LaunchFailed means the script never ran to an exit status.
type LaunchFailed struct {
	Reason string
}

func (Completed) isOutcome()    {}
func (TimedOut) isOutcome()     {}
func (LaunchFailed) isOutcome() {}

// Result is the flattened outcome of a run.
type Result struct {
	Success bool    `json:"success"`
	Stdout  string  `json:"stdout"`
	Stderr  string  `json:"stderr"`
	Error   string  `json:"error,omitempty"`
	Outcome Outcome `json:"-"`
}

// Runner executes scripts with an interpreter.
type Runner struct {
	Interpreter string        // Defaults to DefaultInterpreter
	TempDir     string        // Defaults to os.TempDir()
	Suffix      string        // Script file suffix, defaults to DefaultSuffix
	Timeout     time.Duration // Used when Run gets no timeout
	logger      *slog.Logger
}

// NewRunner creates a runner with default settings.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Interpreter: DefaultInterpreter,
		Suffix:      DefaultSuffix,
		Timeout:     DefaultTimeout,
		logger:      logger,
	}
}

// Run writes script to a temporary file and executes it. Success is true
// iff the process exits with status zero. The temporary file is removed
// before Run returns.
func (r *Runner) Run(ctx context.Context, script string, timeout time.Duration) Result {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = r.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	path, err := r.writeScript(script)
	if err != nil {
		logger.Error("Failed to write script", "error", err)
		return launchFailed(err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to delete temp script file", "path", path, "error", err)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interpreter := r.Interpreter
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, interpreter, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killGrace
	configureProcessGroup(cmd)

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	// Stopped by the deadline or the caller; output is discarded.
	if err != nil && runCtx.Err() != nil {
		logger.Error("Execution timed out", "timeout", timeout, "elapsed", elapsed)
		return Result{Error: TimeoutMessage, Outcome: TimedOut{}}
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Info("Script completed", "exit_code", 0, "elapsed", elapsed)
		return Result{
			Success: true,
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
			Outcome: Completed{ExitCode: 0},
		}
	case errors.As(err, &exitErr):
		logger.Info("Script completed", "exit_code", exitErr.ExitCode(), "elapsed", elapsed)
		return Result{
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
			Outcome: Completed{ExitCode: exitErr.ExitCode()},
		}
	default:
		logger.Error("Execution error", "interpreter", interpreter, "error", err)
		return launchFailed(err)
	}
}

func (r *Runner) writeScript(script string) (string, error) {
	suffix := r.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}

	f, err := os.CreateTemp(r.TempDir, "qa-script-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp script: %w", err)
	}
	path := f.Name()

	if _, err := f.WriteString(script); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp script: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp script: %w", err)
	}
	return path, nil
}

func launchFailed(err error) Result {
	return Result{Error: err.Error(), Outcome: LaunchFailed{Reason: err.Error()}}
}
