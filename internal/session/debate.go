package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mwenger/discourse/internal/agent"
	"github.com/mwenger/discourse/internal/artifact"
	"github.com/mwenger/discourse/internal/audit"
	"github.com/mwenger/discourse/internal/config"
	"github.com/mwenger/discourse/internal/output"
	"github.com/mwenger/discourse/internal/referee"
)

// Debate alternates two participants over a shared conversation artifact.
// Odd turns go to the first configured participant, even turns to the second.
type Debate struct {
	base
	conv   *artifact.Conversation
	status Status
}

func NewDebate(cfg *config.Config, dir string, inv agent.Invoker, console *referee.Console, auditLog *audit.Log, out io.Writer) (*Debate, error) {
	names := make(map[string]string, len(cfg.Participants))
	for key, p := range cfg.Participants {
		names[key] = p.Name
	}
	conv := artifact.NewConversation(dir, cfg.Topic, names)
	if err := conv.Init(); err != nil {
		return nil, fmt.Errorf("session: init conversation: %w", err)
	}
	return &Debate{
		base:   newBase(cfg, dir, inv, console, auditLog, out),
		conv:   conv,
		status: StatusRunning,
	}, nil
}

func (d *Debate) Status() Status { return d.status }

// Artifact returns the path of the conversation transcript.
func (d *Debate) Artifact() string { return d.conv.Path() }

func (d *Debate) Run(ctx context.Context) error {
	names := make(map[string]string, len(d.cfg.Participants))
	for key, p := range d.cfg.Participants {
		names[key] = p.Name
	}
	d.auditLog.SessionStart(d.cfg.Mode, d.cfg.Topic, names, audit.ConfigSummary{
		MaxTurns:        d.cfg.MaxTurns,
		CheckInInterval: d.cfg.CheckInInterval,
		TurnTimeout:     d.cfg.TurnTimeout,
	})
	fmt.Fprintf(d.out, "%s\n", output.Banner(fmt.Sprintf("Discourse: %s", d.cfg.Topic)))

	keys := d.cfg.Keys()
	final := StatusFinalized
	totalTurns := 0
	var runErr error

loop:
	for turn := 1; turn <= d.cfg.MaxTurns; turn++ {
		if ctx.Err() != nil {
			final = StatusInterrupted
			break
		}

		key := keys[0]
		if turn%2 == 0 {
			key = keys[1]
		}
		p := d.cfg.Participants[key]
		d.auditLog.TurnStart(turn, key, p.Name)
		fmt.Fprintf(d.out, "\n%s %s\n", output.TurnLabel(turn, d.cfg.MaxTurns), output.Name(p.Name))

		conversation, err := d.conv.Read()
		if err != nil {
			return d.fail(err)
		}

		res, err := d.invokeWithRecovery(ctx, turn, key, p.Name, turnPrompt(conversation, turn), debateSystemPrompt(p))
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			final = StatusInterrupted
			break loop
		case errors.Is(err, ErrAborted):
			final = StatusAborted
			runErr = ErrAborted
			break loop
		case err != nil:
			return d.fail(err)
		}
		totalTurns = turn
		if res == nil {
			// Skipped turn keeps the number and moves on.
			fmt.Fprintf(d.out, "%s\n", output.Faint(fmt.Sprintf("Turn %d skipped", turn)))
			continue
		}

		text := res.Text
		if cleaned, question, ok := referee.ExtractQuestion(text); ok {
			d.status = StatusAwaitingReferee
			answer, aerr := d.console.Ask(p.Name, question)
			if aerr != nil {
				return d.fail(fmt.Errorf("session: referee answer: %w", aerr))
			}
			d.auditLog.Referee(turn, question, answer)
			if aerr := d.conv.AppendRefereeNote(turn, answer); aerr != nil {
				return d.fail(aerr)
			}
			text = cleaned
			d.status = StatusRunning
		}

		if err := d.conv.AppendTurn(turn, p.Name, text); err != nil {
			return d.fail(err)
		}
		fmt.Fprintf(d.out, "%s\n", output.Frame(text))

		if referee.CheckInDue(turn, d.cfg.CheckInInterval) {
			d.status = StatusCheckingIn
			action, message, cerr := d.console.CheckIn(referee.CheckInOptions{Turn: turn, MaxTurns: d.cfg.MaxTurns})
			if cerr != nil {
				return d.fail(fmt.Errorf("session: check-in: %w", cerr))
			}
			d.auditLog.CheckIn(turn, string(action), message)
			switch action {
			case referee.ActionStop:
				break loop
			case referee.ActionMessage:
				if err := d.conv.AppendRefereeNote(turn, message); err != nil {
					return d.fail(err)
				}
			}
			d.status = StatusRunning
		}
	}

	var closings []artifact.ClosingStatement
	if final == StatusFinalized && ctx.Err() == nil {
		d.status = StatusClosing
		fmt.Fprintf(d.out, "\n%s\n", output.Banner("Closing Statements"))
		closings = d.collectClosings(ctx, totalTurns)
		if ctx.Err() != nil {
			final = StatusInterrupted
			closings = nil
		}
	}

	if err := d.conv.Finalize(artifactStatus(final), closings); err != nil {
		return d.fail(err)
	}
	d.status = final
	d.auditLog.SessionEnd(string(final), totalTurns)
	fmt.Fprintf(d.out, "\n%s\n", output.Success(fmt.Sprintf("Session %s after %d turns: %s", final, totalTurns, d.conv.Path())))
	return runErr
}

// collectClosings asks each participant once. A failed closing statement is
// replaced with a placeholder rather than recovered; by this point the
// discourse itself is already complete.
func (d *Debate) collectClosings(ctx context.Context, totalTurns int) []artifact.ClosingStatement {
	conversation, err := d.conv.Read()
	if err != nil {
		fmt.Fprintf(d.out, "%s\n", output.Error(fmt.Sprintf("reading conversation for closings: %v", err)))
		return nil
	}

	keys := d.cfg.Keys()
	closings := make([]artifact.ClosingStatement, 0, len(keys))
	closingTurn := totalTurns + 1
	for _, key := range keys {
		if ctx.Err() != nil {
			return nil
		}
		p := d.cfg.Participants[key]
		fmt.Fprintf(d.out, "%s\n", output.Faint(fmt.Sprintf("Collecting closing statement from %s...", p.Name)))

		res, err := d.invokeOnce(ctx, closingTurn, key, closingPrompt(conversation), debateSystemPrompt(p))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var invErr *agent.InvokeError
			if errors.As(err, &invErr) {
				d.recordFailure(closingTurn, key, p.Name, invErr, "placeholder")
			}
			fmt.Fprintf(d.out, "%s\n", output.Error(fmt.Sprintf("Closing statement from %s failed: %v", p.Name, err)))
			closings = append(closings, artifact.ClosingStatement{
				Name: p.Name,
				Text: "*(No closing statement; the agent failed to respond.)*",
			})
			continue
		}
		closings = append(closings, artifact.ClosingStatement{Name: p.Name, Text: res.Text})
	}
	return closings
}

func (d *Debate) fail(err error) error {
	d.auditLog.SessionEnd("error", 0)
	return err
}
