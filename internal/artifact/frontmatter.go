package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontmatter indicates the document did not start with a YAML fence.
	ErrMissingFrontmatter = errors.New("artifact: missing frontmatter")
	// ErrMalformedFrontmatter indicates the YAML block was not closed or could not be parsed.
	ErrMalformedFrontmatter = errors.New("artifact: malformed frontmatter")
)

// Status is the persisted session state. The artifact alone is enough to
// classify a session: anything still "active" on disk did not finalize.
type Status string

const (
	StatusActive      Status = "active"
	StatusFinalized   Status = "finalized"
	StatusInterrupted Status = "interrupted"
	StatusAborted     Status = "aborted"
)

// Terminal reports whether the status seals the artifact.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusInterrupted || s == StatusAborted
}

// Header is the metadata block that sits outside the append-only body.
// It is the only part of an artifact that is ever rewritten.
type Header struct {
	Topic        string            `yaml:"topic"`
	Brief        string            `yaml:"brief,omitempty"`
	StartedAt    string            `yaml:"started_at"`
	EndedAt      string            `yaml:"ended_at"`
	Status       Status            `yaml:"status"`
	TotalTurns   int               `yaml:"total_turns"`
	Participants map[string]string `yaml:"participants,omitempty"`
}

// ParseFrontmatter splits a document into its header and body. The body is
// returned byte-for-byte as it appears after the closing fence.
func ParseFrontmatter(content []byte) (Header, []byte, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Header{}, nil, ErrMissingFrontmatter
	}
	rest := normalized[4:]
	idx := bytes.Index(rest, []byte("\n---\n"))
	if idx < 0 {
		return Header{}, nil, ErrMalformedFrontmatter
	}
	metaBytes := rest[:idx+1]
	body := rest[idx+5:]

	var header Header
	if err := yaml.Unmarshal(metaBytes, &header); err != nil {
		return Header{}, nil, fmt.Errorf("artifact: parse frontmatter: %w", err)
	}
	return header, body, nil
}

// RenderFrontmatter produces header fences followed by the body unchanged.
func RenderFrontmatter(header Header, body []byte) ([]byte, error) {
	meta, err := yaml.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("artifact: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

// updateHeader rewrites only the metadata block of the file at path,
// leaving the body bytes untouched.
func updateHeader(path string, mutate func(*Header)) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("artifact: reading %s: %w", path, err)
	}
	header, body, err := ParseFrontmatter(content)
	if err != nil {
		return err
	}
	mutate(&header)
	updated, err := RenderFrontmatter(header, body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		return fmt.Errorf("artifact: writing %s: %w", path, err)
	}
	return nil
}

// appendToFile appends text with a handle held only for this one write.
func appendToFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("artifact: opening %s: %w", path, err)
	}
	_, writeErr := f.WriteString(text)
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("artifact: appending to %s: %w", path, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("artifact: closing %s: %w", path, closeErr)
	}
	return nil
}
