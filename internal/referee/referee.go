// Package referee is the human-in-the-loop layer: scheduled check-in
// cadence, on-demand question extraction, and the interactive prompts both
// controllers suspend on. It holds no persistent state.
package referee

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mwenger/discourse/internal/output"
)

// Action is a referee choice at a scheduled check-in.
type Action string

const (
	ActionContinue Action = "continue"
	ActionStop     Action = "stop"
	ActionMessage  Action = "message"
	ActionView     Action = "view"
)

// Decision is a referee choice at an error-recovery prompt.
type Decision string

const (
	DecisionRetry Decision = "retry"
	DecisionSkip  Decision = "skip"
	DecisionAbort Decision = "abort"
)

// CheckInDue reports whether a scheduled check-in fires after this turn.
func CheckInDue(turn, interval int) bool {
	return interval > 0 && turn > 0 && turn%interval == 0
}

var questionRe = regexp.MustCompile(`(?s)<!--\s*REFEREE:\s*(.*?)\s*-->`)

// ExtractQuestion pulls at most one embedded referee question out of agent
// output, returning the output with the marker removed.
func ExtractQuestion(text string) (cleaned, question string, ok bool) {
	loc := questionRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, "", false
	}
	question = strings.TrimSpace(text[loc[2]:loc[3]])
	cleaned = strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return cleaned, question, true
}

// Console runs the referee prompts over an input/output pair, so tests can
// script it. Malformed or empty input is re-prompted, never defaulted.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole wraps the referee's terminal.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("referee: reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// CheckInOptions configures one scheduled check-in prompt.
type CheckInOptions struct {
	Turn     int
	MaxTurns int
	// View, when non-nil, adds the view option and supplies the content
	// to display. Viewing does not change state; the menu is shown again.
	View func() (string, error)
}

// CheckIn blocks for a scheduled check-in choice. The returned message is
// non-empty only for ActionMessage.
func (c *Console) CheckIn(opts CheckInOptions) (Action, string, error) {
	fmt.Fprintf(c.out, "\n%s\n", output.Banner(fmt.Sprintf("CHECK-IN (Turn %d/%d)", opts.Turn, opts.MaxTurns)))

	menu := "[c] Continue  [s] Stop  [m] Add a message"
	if opts.View != nil {
		menu += "  [v] View document"
	}

	for {
		fmt.Fprintf(c.out, "%s\n> ", menu)
		choice, err := c.readLine()
		if err != nil {
			return "", "", err
		}
		switch strings.ToLower(choice) {
		case "c":
			return ActionContinue, "", nil
		case "s":
			return ActionStop, "", nil
		case "m":
			msg, err := c.prompt("Referee message")
			if err != nil {
				return "", "", err
			}
			return ActionMessage, msg, nil
		case "v":
			if opts.View == nil {
				break
			}
			content, err := opts.View()
			if err != nil {
				return "", "", err
			}
			fmt.Fprintf(c.out, "\n%s\n%s\n%s\n\n", output.Faint("--- Document ---"), content, output.Faint("--- End ---"))
		}
	}
}

// Ask surfaces a participant's embedded question and blocks for an answer.
func (c *Console) Ask(name, question string) (string, error) {
	fmt.Fprintf(c.out, "\n%s\n", output.Frame(
		fmt.Sprintf("%s asks the referee:", output.Name(name)),
		question,
	))
	return c.prompt("Referee response")
}

// Recover surfaces a classified invocation failure and blocks for a
// retry/skip/abort decision.
func (c *Console) Recover(turn int, name string, cause error) (Decision, error) {
	fmt.Fprintf(c.out, "\n%s\n", output.Frame(
		output.Error(fmt.Sprintf("ERROR during Turn %d (%s):", turn, name)),
		cause.Error(),
	))

	for {
		fmt.Fprint(c.out, "[r]etry / [s]kip this turn / [a]bort\n> ")
		choice, err := c.readLine()
		if err != nil {
			return "", err
		}
		switch strings.ToLower(choice) {
		case "r":
			return DecisionRetry, nil
		case "s":
			return DecisionSkip, nil
		case "a":
			return DecisionAbort, nil
		}
	}
}

// prompt reads one non-empty line, re-prompting on empty input.
func (c *Console) prompt(label string) (string, error) {
	for {
		fmt.Fprintf(c.out, "%s: ", label)
		line, err := c.readLine()
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
	}
}
