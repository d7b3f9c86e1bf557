package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const conversationFile = "conversation.md"

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug reduces a topic to a filesystem-friendly name.
func Slug(topic string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(topic), "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.Trim(s[:60], "-")
	}
	return s
}

// NewSessionDir creates a fresh timestamped directory for one session.
func NewSessionDir(base, topic string) (string, error) {
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	dir := filepath.Join(base, fmt.Sprintf("%s-%s", timestamp, Slug(topic)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: creating session dir: %w", err)
	}
	return dir, nil
}

// ClosingStatement is one participant's final contribution.
type ClosingStatement struct {
	Name string
	Text string
}

// Conversation owns the debate artifact: a metadata header followed by an
// append-only body of turns and referee notes. Prior body content is never
// rewritten.
type Conversation struct {
	dir          string
	path         string
	topic        string
	participants map[string]string
}

// NewConversation prepares a conversation store in dir. participants maps
// participant keys to display names.
func NewConversation(dir, topic string, participants map[string]string) *Conversation {
	return &Conversation{
		dir:          dir,
		path:         filepath.Join(dir, conversationFile),
		topic:        topic,
		participants: participants,
	}
}

// Init writes the artifact skeleton: header plus title. The artifact is a
// structurally valid document from this moment on.
func (c *Conversation) Init() error {
	header := Header{
		Topic:        c.topic,
		StartedAt:    time.Now().UTC().Format(time.RFC3339),
		Status:       StatusActive,
		Participants: c.participants,
	}
	body := fmt.Sprintf("\n# Discourse: %s\n", c.topic)
	content, err := RenderFrontmatter(header, []byte(body))
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, content, 0o644); err != nil {
		return fmt.Errorf("artifact: writing %s: %w", c.path, err)
	}
	return nil
}

// AppendTurn appends one completed turn and advances the turn counter in
// the header.
func (c *Conversation) AppendTurn(number int, speaker, content string) error {
	section := fmt.Sprintf("\n\n## Turn %d - %s\n\n%s\n", number, speaker, strings.TrimSpace(content))
	if err := appendToFile(c.path, section); err != nil {
		return err
	}
	return updateHeader(c.path, func(h *Header) {
		h.TotalTurns = number
	})
}

// AppendRefereeNote records a human note after the given turn. Notes become
// visible to both agents from their next turn onward.
func (c *Conversation) AppendRefereeNote(afterTurn int, note string) error {
	flat := strings.ReplaceAll(strings.TrimSpace(note), "\n", " ")
	comment := fmt.Sprintf("\n\n<!-- REFEREE @ Turn %d: %s -->\n", afterTurn, flat)
	return appendToFile(c.path, comment)
}

// Finalize seals the artifact: closing statements (or a marker that none
// were collected) plus the terminal status. Calling it again is a no-op,
// so the artifact stays byte-identical however many times it runs.
func (c *Conversation) Finalize(status Status, closings []ClosingStatement) error {
	content, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("artifact: reading %s: %w", c.path, err)
	}
	header, _, err := ParseFrontmatter(content)
	if err != nil {
		return err
	}
	if header.Status.Terminal() {
		return nil
	}

	var b strings.Builder
	b.WriteString("\n\n---\n\n## Closing Statements\n")
	if len(closings) > 0 {
		for _, cs := range closings {
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", cs.Name, strings.TrimSpace(cs.Text))
		}
	} else {
		b.WriteString("\n*(Closing statements were not collected.)*\n")
	}
	if err := appendToFile(c.path, b.String()); err != nil {
		return err
	}
	return updateHeader(c.path, func(h *Header) {
		h.Status = status
		h.EndedAt = time.Now().UTC().Format(time.RFC3339)
	})
}

// Read returns the current artifact contents, the visible context for the
// next agent turn.
func (c *Conversation) Read() (string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return "", fmt.Errorf("artifact: reading %s: %w", c.path, err)
	}
	return string(data), nil
}

// Path returns the artifact location.
func (c *Conversation) Path() string { return c.path }

// Dir returns the session directory.
func (c *Conversation) Dir() string { return c.dir }
