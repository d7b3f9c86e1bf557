// Package audit keeps the authoritative timeline of a session: one JSON
// object per line, appended in order of occurrence and never rewritten.
// Any prefix of the file is interpretable without reading the rest.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mwenger/discourse/internal/agent"
)

// Kind tags an audit event.
type Kind string

const (
	KindSessionStart Kind = "session_start"
	KindTurnStart    Kind = "turn_start"
	KindSuccess      Kind = "success"
	KindTimeout      Kind = "timeout"
	KindError        Kind = "error"
	KindSkip         Kind = "skip"
	KindReferee      Kind = "referee"
	KindCheckIn      Kind = "check_in"
	KindSessionEnd   Kind = "session_end"
)

// ConfigSummary is the slice of session configuration worth replaying.
type ConfigSummary struct {
	MaxTurns        int `json:"max_turns"`
	CheckInInterval int `json:"check_in_interval"`
	TurnTimeout     int `json:"turn_timeout"`
}

// Event is one audit record. Fields are omitted when empty so each line
// carries only what its kind needs.
type Event struct {
	Timestamp       string            `json:"timestamp"`
	Kind            Kind              `json:"kind"`
	Mode            string            `json:"mode,omitempty"`
	Topic           string            `json:"topic,omitempty"`
	Participants    map[string]string `json:"participants,omitempty"`
	Config          *ConfigSummary    `json:"config,omitempty"`
	Turn            int               `json:"turn,omitempty"`
	Participant     string            `json:"participant,omitempty"`
	ParticipantName string            `json:"participant_name,omitempty"`

	SessionID           string  `json:"session_id,omitempty"`
	NewSession          bool    `json:"is_new_session,omitempty"`
	Model               string  `json:"model,omitempty"`
	InputTokens         int     `json:"input_tokens,omitempty"`
	OutputTokens        int     `json:"output_tokens,omitempty"`
	CacheReadTokens     int     `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens int     `json:"cache_creation_tokens,omitempty"`
	DurationMS          int     `json:"duration_ms,omitempty"`
	DurationAPIMS       int     `json:"duration_api_ms,omitempty"`
	WallClockMS         float64 `json:"wall_clock_ms,omitempty"`
	CostUSD             float64 `json:"cost_usd,omitempty"`
	NumTurns            int     `json:"num_turns,omitempty"`
	ResponseLength      int     `json:"response_length,omitempty"`
	Prompt              string  `json:"prompt,omitempty"`
	SystemPrompt        string  `json:"system_prompt,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
	UserAction   string `json:"user_action,omitempty"`
	Question     string `json:"question,omitempty"`
	Answer       string `json:"answer,omitempty"`
	Choice       string `json:"choice,omitempty"`
	Message      string `json:"message,omitempty"`
	Status       string `json:"status,omitempty"`
	TotalTurns   int    `json:"total_turns,omitempty"`
}

// Log appends events to audit.jsonl in the session directory. The file
// handle is held only for the duration of a single write.
type Log struct {
	path string
	now  func() time.Time
}

// New creates an audit log for the session directory.
func New(dir string) *Log {
	return &Log{
		path: filepath.Join(dir, "audit.jsonl"),
		now:  time.Now,
	}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// write appends one event. Audit failures are reported on stderr but never
// kill the session: the artifact, not the audit log, is load-bearing.
func (l *Log) write(e Event) {
	e.Timestamp = l.now().UTC().Format(time.RFC3339Nano)
	line, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[audit] encode error: %v\n", err)
		return
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[audit] write error: %v\n", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "[audit] write error: %v\n", err)
	}
}

// SessionStart records session metadata and effective configuration.
func (l *Log) SessionStart(mode, topic string, participants map[string]string, cfg ConfigSummary) {
	l.write(Event{
		Kind:         KindSessionStart,
		Mode:         mode,
		Topic:        topic,
		Participants: participants,
		Config:       &cfg,
	})
}

// TurnStart records that a turn is about to be produced.
func (l *Log) TurnStart(turn int, key, name string) {
	l.write(Event{Kind: KindTurnStart, Turn: turn, Participant: key, ParticipantName: name})
}

// Success records a completed invocation with its metrics.
func (l *Log) Success(turn int, key string, res *agent.Result, prompt, systemPrompt string) {
	l.write(Event{
		Kind:                KindSuccess,
		Turn:                turn,
		Participant:         key,
		SessionID:           res.SessionID,
		NewSession:          res.NewSession,
		Model:               res.Model,
		InputTokens:         res.InputTokens,
		OutputTokens:        res.OutputTokens,
		CacheReadTokens:     res.CacheReadTokens,
		CacheCreationTokens: res.CacheCreationTokens,
		DurationMS:          res.DurationMS,
		DurationAPIMS:       res.DurationAPIMS,
		WallClockMS:         float64(res.WallClock.Microseconds()) / 1000,
		CostUSD:             res.CostUSD,
		NumTurns:            res.NumTurns,
		ResponseLength:      len(res.Text),
		Prompt:              prompt,
		SystemPrompt:        systemPrompt,
	})
}

// Timeout records an invocation that exceeded the turn timeout, together
// with the referee's decision.
func (l *Log) Timeout(turn int, key, name string, cause error, action string) {
	l.write(Event{
		Kind:            KindTimeout,
		Turn:            turn,
		Participant:     key,
		ParticipantName: name,
		ErrorMessage:    cause.Error(),
		UserAction:      action,
	})
}

// Error records a non-timeout invocation failure and the referee's decision.
func (l *Log) Error(turn int, key, name string, cause error, action string) {
	l.write(Event{
		Kind:            KindError,
		Turn:            turn,
		Participant:     key,
		ParticipantName: name,
		ErrorMessage:    cause.Error(),
		UserAction:      action,
	})
}

// Skip records a turn number consumed without a content entry.
func (l *Log) Skip(turn int, key, name string) {
	l.write(Event{Kind: KindSkip, Turn: turn, Participant: key, ParticipantName: name})
}

// Referee records an on-demand question and its answer.
func (l *Log) Referee(turn int, question, answer string) {
	l.write(Event{Kind: KindReferee, Turn: turn, Question: question, Answer: answer})
}

// CheckIn records a scheduled check-in outcome.
func (l *Log) CheckIn(turn int, choice, message string) {
	l.write(Event{Kind: KindCheckIn, Turn: turn, Choice: choice, Message: message})
}

// SessionEnd records the terminal status.
func (l *Log) SessionEnd(status string, totalTurns int) {
	l.write(Event{Kind: KindSessionEnd, Status: status, TotalTurns: totalTurns})
}
