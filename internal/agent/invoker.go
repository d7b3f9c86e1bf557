package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// FailureKind classifies an invocation failure. Every failure an invoker
// can produce is exactly one of these three.
type FailureKind int

const (
	// FailureTimeout means the agent process exceeded the wall-clock bound
	// and was killed.
	FailureTimeout FailureKind = iota
	// FailureExit means the agent process exited non-zero, or failed in any
	// otherwise unclassifiable way.
	FailureExit
	// FailureParse means the process succeeded but its output could not be
	// parsed into the expected payload.
	FailureParse
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureExit:
		return "exit"
	case FailureParse:
		return "parse"
	}
	return "unknown"
}

// InvokeError is a classified invocation failure. The controllers surface
// these to the referee for a retry/skip/abort decision.
type InvokeError struct {
	Kind   FailureKind
	Stderr string
	Err    error
}

func (e *InvokeError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%v\nstderr: %s", e.Err, e.Stderr)
	}
	return e.Err.Error()
}

func (e *InvokeError) Unwrap() error { return e.Err }

// Request describes a single invocation of a participant's agent.
type Request struct {
	// Prompt is this turn's new material.
	Prompt string
	// SystemPrompt is the participant's role text, applied only when
	// starting a fresh agent session.
	SystemPrompt string
	// SessionID resumes the participant's prior agent session when set.
	// When empty a new session is started.
	SessionID string
	// Timeout is the hard wall-clock bound for the whole process tree.
	Timeout time.Duration
}

// Invoker produces one agent turn per call. Implementations hold no state
// across calls; continuity lives entirely in the session handle carried by
// Request and Result.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

// CLIInvoker runs the claude CLI as a subprocess, one process per call.
type CLIInvoker struct {
	// Command is the agent binary, "claude" by default.
	Command string
	// DebugDir receives raw output dumps when parsing fails.
	DebugDir string
}

// NewCLIInvoker returns an invoker with default settings.
func NewCLIInvoker() *CLIInvoker {
	return &CLIInvoker{
		Command:  "claude",
		DebugDir: ".discourse-debug",
	}
}

// Invoke spawns one agent process and waits for it to finish or time out.
// On timeout the whole process group is killed; the process is never left
// running. The caller's ctx cancellation is propagated unclassified so the
// controller can distinguish an interrupt from a turn failure.
func (c *CLIInvoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	sessionID := req.SessionID
	newSession := sessionID == ""

	args := []string{"-p", "--output-format", "json"}
	if newSession {
		sessionID = uuid.NewString()
		args = append(args, "--session-id", sessionID)
		if req.SystemPrompt != "" {
			args = append(args, "--append-system-prompt", req.SystemPrompt)
		}
	} else {
		args = append(args, "--resume", sessionID)
	}
	args = append(args, "--permission-mode", "bypassPermissions", req.Prompt)

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Command, args...)
	// The agent may spawn descendants; a new process group lets the
	// watchdog tear down the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	wallClock := time.Since(start)

	if runErr != nil {
		if ctx.Err() != nil {
			// Interrupted by the caller, not a turn failure.
			return nil, ctx.Err()
		}
		if runCtx.Err() != nil {
			return nil, &InvokeError{
				Kind:   FailureTimeout,
				Stderr: stderr.String(),
				Err:    fmt.Errorf("agent: %s timed out after %s", c.Command, req.Timeout),
			}
		}
		return nil, &InvokeError{
			Kind:   FailureExit,
			Stderr: stderr.String(),
			Err:    fmt.Errorf("agent: %s: %w", c.Command, runErr),
		}
	}

	result, err := parseResult(stdout.Bytes(), sessionID)
	if err != nil {
		dump := c.dumpRaw(sessionID, stdout.Bytes())
		return nil, &InvokeError{
			Kind: FailureParse,
			Err:  fmt.Errorf("agent: invalid output from %s (raw saved to %s): %w", c.Command, dump, err),
		}
	}
	result.NewSession = newSession
	result.WallClock = wallClock
	return result, nil
}

// dumpRaw saves unparseable output for postmortem inspection and returns
// the dump path, or a placeholder when even that fails.
func (c *CLIInvoker) dumpRaw(sessionID string, raw []byte) string {
	dir := c.DebugDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "(dump failed)"
	}
	path := filepath.Join(dir, fmt.Sprintf("raw-%s.txt", sessionID))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "(dump failed)"
	}
	return path
}
