package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/mwenger/discourse/internal/agent"
	"github.com/mwenger/discourse/internal/artifact"
	"github.com/mwenger/discourse/internal/audit"
	"github.com/mwenger/discourse/internal/config"
	"github.com/mwenger/discourse/internal/output"
	"github.com/mwenger/discourse/internal/referee"
)

// approvedRe matches the editor's verdict line. The editor is prompted to
// emit "Verdict: APPROVED" but markdown bolding around the label also counts.
var approvedRe = regexp.MustCompile(`(?i)\bVerdict\b[:*\s]+APPROVED\b`)

// Workshop runs the author/editor cycle over a git-versioned document. The
// author drafts on turn 1, then the pair alternates review and revision until
// the editor approves, the turn budget runs out, or the referee stops it.
type Workshop struct {
	base
	doc    *artifact.Document
	log    *artifact.EditorialLog
	status Status
}

func NewWorkshop(cfg *config.Config, dir string, inv agent.Invoker, console *referee.Console, auditLog *audit.Log, out io.Writer) (*Workshop, error) {
	doc, err := artifact.NewDocument(dir, cfg.Topic, cfg.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("session: init document: %w", err)
	}
	log := artifact.NewEditorialLog(dir, cfg.Topic, cfg.Brief)
	if err := log.Init(); err != nil {
		return nil, fmt.Errorf("session: init editorial log: %w", err)
	}
	return &Workshop{
		base:   newBase(cfg, dir, inv, console, auditLog, out),
		doc:    doc,
		log:    log,
		status: StatusRunning,
	}, nil
}

func (w *Workshop) Status() Status { return w.status }

// Document returns the path of the workshop document.
func (w *Workshop) Document() string { return w.doc.Path() }

// EditorialLog returns the path of the editorial log.
func (w *Workshop) EditorialLog() string { return w.log.Path() }

func (w *Workshop) Run(ctx context.Context) error {
	keys := w.cfg.Keys()
	authorKey, editorKey := keys[0], keys[1]
	author := w.cfg.Participants[authorKey]
	editor := w.cfg.Participants[editorKey]

	w.auditLog.SessionStart(w.cfg.Mode, w.cfg.Topic, map[string]string{
		authorKey: author.Name,
		editorKey: editor.Name,
	}, audit.ConfigSummary{
		MaxTurns:        w.cfg.MaxTurns,
		CheckInInterval: w.cfg.CheckInInterval,
		TurnTimeout:     w.cfg.TurnTimeout,
	})
	fmt.Fprintf(w.out, "%s\n", output.Banner(fmt.Sprintf("Workshop: %s", w.cfg.Topic)))

	final := StatusFinalized
	approved := false
	totalTurns := 0
	var runErr error

	// pending holds the author's latest output. It is committed as a
	// revision only after the editor's verdict on it is known, so the commit
	// subject can carry the verdict.
	pending := ""

	turn := 1
	totalTurns = 1
	w.auditLog.TurnStart(turn, authorKey, author.Name)
	fmt.Fprintf(w.out, "\n%s %s drafting\n", output.TurnLabel(turn, w.cfg.MaxTurns), output.Name(author.Name))

	res, err := w.invokeWithRecovery(ctx, turn, authorKey, author.Name, authorInitialPrompt(w.cfg.Brief), authorSystemPrompt(author))
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return w.finalize(StatusInterrupted, totalTurns, nil)
	case errors.Is(err, ErrAborted):
		return w.finalize(StatusAborted, totalTurns, ErrAborted)
	case err != nil:
		return w.fail(err)
	}
	if res != nil {
		text, terr := w.handleQuestion(turn, author.Name, res.Text)
		if terr != nil {
			return w.fail(terr)
		}
		pending = text
		// Persist the draft now; the commit waits for the verdict.
		if err := w.doc.SaveDraft(pending); err != nil {
			return w.fail(err)
		}
	}

loop:
	for turn < w.cfg.MaxTurns && pending != "" {
		if ctx.Err() != nil {
			final = StatusInterrupted
			break
		}

		// Editor review of the pending draft.
		turn++
		totalTurns = turn
		w.auditLog.TurnStart(turn, editorKey, editor.Name)
		fmt.Fprintf(w.out, "\n%s %s reviewing\n", output.TurnLabel(turn, w.cfg.MaxTurns), output.Name(editor.Name))

		res, err := w.invokeWithRecovery(ctx, turn, editorKey, editor.Name, editorReviewPrompt(w.cfg.Brief, pending), editorSystemPrompt(editor))
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			final = StatusInterrupted
			break loop
		case errors.Is(err, ErrAborted):
			final = StatusAborted
			runErr = ErrAborted
			break loop
		case err != nil:
			return w.fail(err)
		}

		feedback := ""
		if res != nil {
			text, terr := w.handleQuestion(turn, editor.Name, res.Text)
			if terr != nil {
				return w.fail(terr)
			}
			feedback = text
			if err := w.log.AppendFeedback(turn, editor.Name, feedback); err != nil {
				return w.fail(err)
			}
			fmt.Fprintf(w.out, "%s\n", output.Frame(feedback))

			verdict := artifact.VerdictRevise
			if approvedRe.MatchString(feedback) {
				verdict = artifact.VerdictApproved
			}
			committed, cerr := w.doc.CommitRevision(pending, verdict)
			if cerr != nil {
				return w.fail(cerr)
			}
			if committed {
				fmt.Fprintf(w.out, "%s\n", output.Faint(fmt.Sprintf("Revision %d committed (verdict: %s)", w.doc.Revisions(), verdict)))
			}
			if verdict == artifact.VerdictApproved {
				approved = true
				break
			}
		}

		stop, err := w.checkIn(turn)
		if err != nil {
			return w.fail(err)
		}
		if stop {
			break
		}
		if turn >= w.cfg.MaxTurns {
			break
		}

		// Author revision against the feedback; a skipped review leaves no
		// feedback to act on, so the author keeps the current text.
		turn++
		totalTurns = turn
		if feedback == "" {
			fmt.Fprintf(w.out, "%s\n", output.Faint(fmt.Sprintf("Turn %d: no feedback to address, draft unchanged", turn)))
		} else {
			w.auditLog.TurnStart(turn, authorKey, author.Name)
			fmt.Fprintf(w.out, "\n%s %s revising\n", output.TurnLabel(turn, w.cfg.MaxTurns), output.Name(author.Name))

			res, err := w.invokeWithRecovery(ctx, turn, authorKey, author.Name, authorRevisionPrompt(pending, feedback), authorSystemPrompt(author))
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				final = StatusInterrupted
				break loop
			case errors.Is(err, ErrAborted):
				final = StatusAborted
				runErr = ErrAborted
				break loop
			case err != nil:
				return w.fail(err)
			}
			if res != nil {
				text, terr := w.handleQuestion(turn, author.Name, res.Text)
				if terr != nil {
					return w.fail(terr)
				}
				pending = text
				if err := w.doc.SaveDraft(pending); err != nil {
					return w.fail(err)
				}
			}
		}

		stop, err = w.checkIn(turn)
		if err != nil {
			return w.fail(err)
		}
		if stop {
			break
		}
	}

	if ctx.Err() != nil && final == StatusFinalized {
		final = StatusInterrupted
	}
	if approved {
		fmt.Fprintf(w.out, "\n%s\n", output.Success("Editor approved the document"))
	}
	return w.finalize(final, totalTurns, runErr)
}

// handleQuestion strips an embedded referee question from agent output,
// relays it to the console, and records the answer in the editorial log.
func (w *Workshop) handleQuestion(turn int, name, text string) (string, error) {
	cleaned, question, ok := referee.ExtractQuestion(text)
	if !ok {
		return text, nil
	}
	w.status = StatusAwaitingReferee
	answer, err := w.console.Ask(name, question)
	if err != nil {
		return "", fmt.Errorf("session: referee answer: %w", err)
	}
	w.auditLog.Referee(turn, question, answer)
	if err := w.log.AppendRefereeNote(turn, answer); err != nil {
		return "", err
	}
	w.status = StatusRunning
	return cleaned, nil
}

// checkIn runs a referee check-in when one is due. The referee can view the
// current document before choosing. Returns true when the referee stopped
// the session.
func (w *Workshop) checkIn(turn int) (bool, error) {
	if !referee.CheckInDue(turn, w.cfg.CheckInInterval) {
		return false, nil
	}
	w.status = StatusCheckingIn
	action, message, err := w.console.CheckIn(referee.CheckInOptions{
		Turn:     turn,
		MaxTurns: w.cfg.MaxTurns,
		View:     w.doc.Read,
	})
	if err != nil {
		return false, fmt.Errorf("session: check-in: %w", err)
	}
	w.auditLog.CheckIn(turn, string(action), message)
	if action == referee.ActionMessage {
		if err := w.log.AppendRefereeNote(turn, message); err != nil {
			return false, err
		}
	}
	w.status = StatusRunning
	return action == referee.ActionStop, nil
}

func (w *Workshop) finalize(final Status, totalTurns int, runErr error) error {
	status := artifactStatus(final)
	if err := w.log.Finalize(status, totalTurns); err != nil {
		return w.fail(err)
	}
	if err := w.doc.FinalCommit(status); err != nil {
		return w.fail(err)
	}
	w.status = final
	w.auditLog.SessionEnd(string(final), totalTurns)
	fmt.Fprintf(w.out, "\n%s\n", output.Success(fmt.Sprintf("Session %s after %d turns, %d revisions: %s", final, totalTurns, w.doc.Revisions(), w.doc.Path())))
	return runErr
}

func (w *Workshop) fail(err error) error {
	w.auditLog.SessionEnd("error", 0)
	return err
}
