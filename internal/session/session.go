// Package session drives a discourse from first turn to finalized artifact.
// Each mode has its own controller; both share the invocation, recovery, and
// session handle bookkeeping in this file.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mwenger/discourse/internal/agent"
	"github.com/mwenger/discourse/internal/artifact"
	"github.com/mwenger/discourse/internal/audit"
	"github.com/mwenger/discourse/internal/config"
	"github.com/mwenger/discourse/internal/output"
	"github.com/mwenger/discourse/internal/referee"
)

// Status describes where a session is in its lifecycle.
type Status string

const (
	StatusRunning         Status = "running"
	StatusCheckingIn      Status = "checking_in"
	StatusAwaitingReferee Status = "awaiting_referee_answer"
	StatusClosing         Status = "closing"
	StatusFinalized       Status = "finalized"
	StatusInterrupted     Status = "interrupted"
	StatusAborted         Status = "aborted"
)

// ErrAborted is returned by a controller when the referee chose to abort
// during failure recovery. The artifact is still finalized before it
// propagates.
var ErrAborted = errors.New("session: aborted by referee")

// Controller drives one session mode to completion.
type Controller interface {
	Run(ctx context.Context) error
	Status() Status
}

const handlesFile = "sessions.json"

type base struct {
	cfg      *config.Config
	invoker  agent.Invoker
	console  *referee.Console
	auditLog *audit.Log
	dir      string
	out      io.Writer

	// handles maps participant key to the agent's session handle so every
	// invocation after the first resumes the same agent-side conversation.
	handles map[string]string
}

func newBase(cfg *config.Config, dir string, inv agent.Invoker, console *referee.Console, auditLog *audit.Log, out io.Writer) base {
	return base{
		cfg:      cfg,
		invoker:  inv,
		console:  console,
		auditLog: auditLog,
		dir:      dir,
		out:      out,
		handles:  make(map[string]string),
	}
}

func (b *base) saveHandles() {
	data, err := json.MarshalIndent(b.handles, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(b.dir, handlesFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "[session] failed to save handles: %v\n", err)
	}
}

// invokeOnce runs a single agent invocation for the participant, resuming its
// prior handle when one exists. Errors come back unclassified for the caller
// to route through recovery.
func (b *base) invokeOnce(ctx context.Context, turn int, key, prompt, systemPrompt string) (*agent.Result, error) {
	handle := b.handles[key]
	sp := ""
	if handle == "" {
		sp = systemPrompt
	}
	res, err := b.invoker.Invoke(ctx, agent.Request{
		Prompt:       prompt,
		SystemPrompt: sp,
		SessionID:    handle,
		Timeout:      b.cfg.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	if res.SessionID != "" {
		b.handles[key] = res.SessionID
		b.saveHandles()
	}
	b.auditLog.Success(turn, key, res, prompt, sp)
	return res, nil
}

// invokeWithRecovery invokes the participant and, on a classified failure,
// puts the retry/skip/abort choice to the referee. A skipped turn returns
// (nil, nil); the turn number is still consumed by the caller.
func (b *base) invokeWithRecovery(ctx context.Context, turn int, key, name, prompt, systemPrompt string) (*agent.Result, error) {
	for {
		res, err := b.invokeOnce(ctx, turn, key, prompt, systemPrompt)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var invErr *agent.InvokeError
		if !errors.As(err, &invErr) {
			return nil, err
		}

		fmt.Fprintf(b.out, "%s\n", output.Error(fmt.Sprintf("Turn %d (%s) failed: %v", turn, name, invErr)))
		decision, derr := b.console.Recover(turn, name, invErr)
		if derr != nil {
			return nil, fmt.Errorf("session: referee recovery: %w", derr)
		}
		b.recordFailure(turn, key, name, invErr, string(decision))

		switch decision {
		case referee.DecisionRetry:
			fmt.Fprintf(b.out, "%s\n", output.Faint("Retrying..."))
		case referee.DecisionSkip:
			b.auditLog.Skip(turn, key, name)
			return nil, nil
		case referee.DecisionAbort:
			return nil, ErrAborted
		}
	}
}

func (b *base) recordFailure(turn int, key, name string, invErr *agent.InvokeError, action string) {
	if invErr.Kind == agent.FailureTimeout {
		b.auditLog.Timeout(turn, key, name, invErr, action)
		return
	}
	b.auditLog.Error(turn, key, name, invErr, action)
}

func artifactStatus(s Status) artifact.Status {
	switch s {
	case StatusInterrupted:
		return artifact.StatusInterrupted
	case StatusAborted:
		return artifact.StatusAborted
	default:
		return artifact.StatusFinalized
	}
}
