package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const editorialFile = "editorial-log.md"

// EditorialLog is the chronological feedback record for a workshop
// session: header plus an append-only body of reviews and referee notes.
type EditorialLog struct {
	path  string
	topic string
	brief string
}

// NewEditorialLog prepares the editorial log store in dir.
func NewEditorialLog(dir, topic, brief string) *EditorialLog {
	return &EditorialLog{
		path:  filepath.Join(dir, editorialFile),
		topic: topic,
		brief: brief,
	}
}

// Init writes the log skeleton.
func (l *EditorialLog) Init() error {
	header := Header{
		Topic:     l.topic,
		Brief:     l.brief,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Status:    StatusActive,
	}
	body := fmt.Sprintf("\n# Editorial Log: %s\n", l.topic)
	content, err := RenderFrontmatter(header, []byte(body))
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.path, content, 0o644); err != nil {
		return fmt.Errorf("artifact: writing %s: %w", l.path, err)
	}
	return nil
}

// AppendFeedback records one editor review.
func (l *EditorialLog) AppendFeedback(turn int, editorName, feedback string) error {
	section := fmt.Sprintf("\n\n## Turn %d - %s Review\n\n%s\n", turn, editorName, strings.TrimSpace(feedback))
	if err := appendToFile(l.path, section); err != nil {
		return err
	}
	return updateHeader(l.path, func(h *Header) {
		h.TotalTurns = turn
	})
}

// AppendRefereeNote records a human note in the feedback stream.
func (l *EditorialLog) AppendRefereeNote(turn int, note string) error {
	flat := strings.ReplaceAll(strings.TrimSpace(note), "\n", " ")
	entry := fmt.Sprintf("\n\n> **Referee @ Turn %d:** %s\n", turn, flat)
	return appendToFile(l.path, entry)
}

// Finalize seals the log with its terminal status. Idempotent: once the
// status is terminal further calls change nothing.
func (l *EditorialLog) Finalize(status Status, totalTurns int) error {
	content, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("artifact: reading %s: %w", l.path, err)
	}
	header, _, err := ParseFrontmatter(content)
	if err != nil {
		return err
	}
	if header.Status.Terminal() {
		return nil
	}
	return updateHeader(l.path, func(h *Header) {
		h.Status = status
		h.EndedAt = time.Now().UTC().Format(time.RFC3339)
		h.TotalTurns = totalTurns
	})
}

// Read returns current log contents.
func (l *EditorialLog) Read() (string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "", fmt.Errorf("artifact: reading %s: %w", l.path, err)
	}
	return string(data), nil
}

// Path returns the log location.
func (l *EditorialLog) Path() string { return l.path }
