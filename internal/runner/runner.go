package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/codestorm-dev/codestorm/internal/logger"
)

// Result is the structured outcome of one command execution. A nonzero exit
// code or a timeout is a normal, reportable result, never an error for the
// caller; commands routinely fail as part of expected use.
type Result struct {
	Command  string        `json:"command"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"-"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

// pipeDrainDelay bounds how long Wait may block on the output pipes after
// the shell itself has exited.
const pipeDrainDelay = 500 * time.Millisecond

// Runner executes shell command strings inside workspace directories. The
// command string goes to the shell verbatim; there is no argv parsing here.
// An optional Validator can restrict what reaches the shell.
type Runner struct {
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	maxOutput      int
	validator      *Validator
}

// New creates a Runner. maxOutput <= 0 disables the output cap.
func New(defaultTimeout, maxTimeout time.Duration, maxOutput int, validator *Validator) *Runner {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	if maxTimeout <= 0 {
		maxTimeout = 300 * time.Second
	}
	return &Runner{
		defaultTimeout: defaultTimeout,
		maxTimeout:     maxTimeout,
		maxOutput:      maxOutput,
		validator:      validator,
	}
}

// DefaultTimeout returns the timeout applied when the caller passes zero.
func (r *Runner) DefaultTimeout() time.Duration {
	return r.defaultTimeout
}

// Run executes command with `sh -c` in dir, blocking until the process exits
// or the timeout elapses. timeout == 0 means the default; values above the
// configured maximum are clamped. The returned result always has stdout and
// stderr fully captured; partial output survives a timeout kill.
func (r *Runner) Run(ctx context.Context, command, dir string, timeout time.Duration) *Result {
	result := &Result{Command: command}

	if command == "" {
		result.Stderr = "no command provided"
		result.ExitCode = -1
		return result
	}

	if r.validator != nil {
		if err := r.validator.Validate(command); err != nil {
			result.Stderr = err.Error()
			result.ExitCode = -1
			return result
		}
	}

	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	if timeout > r.maxTimeout {
		timeout = r.maxTimeout
	}

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	configureProcessGroup(cmd)

	var stdout, stderr cappedBuffer
	stdout.limit = r.maxOutput
	stderr.limit = r.maxOutput
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Wait must not block on a backgrounded child that inherited the output
	// pipes and outlives the shell; after this delay the pipes are forced
	// closed and Wait returns ErrWaitDelay.
	cmd.WaitDelay = pipeDrainDelay

	started := time.Now()
	if err := cmd.Start(); err != nil {
		// Spawn failure is reported in the result, not propagated.
		logger.Error("runner: failed to start command: %v", err)
		result.Stderr = fmt.Sprintf("failed to start command: %v", err)
		result.ExitCode = -1
		return result
	}

	pgid := processGroupID(cmd)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	timedOut := false
	canceled := false

loop:
	for {
		select {
		case waitErr = <-done:
			break loop

		case <-ctx.Done():
			logger.Warn("runner: killing process group (pgid=%d) on context cancellation: %v", pgid, ctx.Err())
			killProcessGroup(cmd, pgid)
			waitErr = <-done
			canceled = true
			break loop

		case <-timer.C:
			timedOut = true
			logger.Warn("runner: killing process group (pgid=%d) after timeout %s", pgid, timeout)
			killProcessGroup(cmd, pgid)
			// Keep looping until Wait returns so the pipes drain.
		}
	}

	result.Duration = time.Since(started)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.TimedOut = timedOut

	switch {
	case timedOut:
		result.ExitCode = -1
		if result.Stderr != "" {
			result.Stderr += "\n"
		}
		result.Stderr += fmt.Sprintf("command timed out after %s", timeout)

	case canceled:
		result.ExitCode = -1
		if result.Stderr != "" {
			result.Stderr += "\n"
		}
		result.Stderr += "command canceled"

	case errors.Is(waitErr, exec.ErrWaitDelay):
		// The shell exited cleanly but a child kept the pipes open past the
		// drain delay; report the shell's own exit status.
		result.ExitCode = cmd.ProcessState.ExitCode()
		result.Success = result.ExitCode == 0
		logger.Debug("runner: command exited with code %d, output pipes forced closed", result.ExitCode)

	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			logger.Debug("runner: command exited with code %d", result.ExitCode)
		} else {
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = waitErr.Error()
			}
			logger.Error("runner: command failed: %v", waitErr)
		}

	default:
		result.ExitCode = 0
		result.Success = true
		logger.Debug("runner: command completed (duration=%s, output_bytes=%d)", result.Duration, len(result.Stdout))
	}

	if stdout.truncated || stderr.truncated {
		if result.Stderr != "" {
			result.Stderr += "\n"
		}
		result.Stderr += fmt.Sprintf("output truncated at %d bytes", r.maxOutput)
	}

	return result
}

// cappedBuffer collects writes up to limit bytes and silently discards the
// rest, recording that truncation happened.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit > 0 {
		remaining := b.limit - len(b.buf)
		if remaining <= 0 {
			b.truncated = true
			return len(p), nil
		}
		if len(p) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
			b.truncated = true
			return len(p), nil
		}
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
