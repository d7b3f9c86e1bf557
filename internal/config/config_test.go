package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validDebate = `
topic: Should tests mock the filesystem?
participants:
  a:
    name: Proponent
    role: Argue for heavy mocking.
  b:
    name: Opponent
    role: Argue for real temp dirs.
`

func TestLoad_DebateDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validDebate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != ModeDebate {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeDebate)
	}
	if cfg.MaxTurns != 10 {
		t.Errorf("MaxTurns = %d, want 10", cfg.MaxTurns)
	}
	if cfg.CheckInInterval != 4 {
		t.Errorf("CheckInInterval = %d, want 4", cfg.CheckInInterval)
	}
	if cfg.Timeout() != 300*time.Second {
		t.Errorf("Timeout() = %s, want 5m", cfg.Timeout())
	}
	if cfg.OutputDir != "./conversations" {
		t.Errorf("OutputDir = %q, want ./conversations", cfg.OutputDir)
	}
	if got := cfg.Keys(); got != [2]string{"a", "b"} {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
	if cfg.SourcePath == "" {
		t.Error("SourcePath should be resolved")
	}
}

func TestLoad_WorkshopKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
topic: API style guide
mode: workshop
brief: Write a one-page style guide.
max_turns: 8
participants:
  author:
    name: Drafter
    role: Write the guide.
  editor:
    name: Reviewer
    role: Review the guide.
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Keys(); got != [2]string{"author", "editor"} {
		t.Errorf("Keys() = %v, want [author editor]", got)
	}
	if cfg.MaxTurns != 8 {
		t.Errorf("MaxTurns = %d, want 8", cfg.MaxTurns)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing topic", `
participants:
  a: {name: A, role: r}
  b: {name: B, role: r}
`},
		{"bad mode", `
topic: t
mode: duet
participants:
  a: {name: A, role: r}
  b: {name: B, role: r}
`},
		{"one participant", `
topic: t
participants:
  a: {name: A, role: r}
`},
		{"wrong keys for mode", `
topic: t
participants:
  author: {name: A, role: r}
  editor: {name: B, role: r}
`},
		{"participant missing role", `
topic: t
participants:
  a: {name: A}
  b: {name: B, role: r}
`},
		{"zero max_turns", `
topic: t
max_turns: 0
participants:
  a: {name: A, role: r}
  b: {name: B, role: r}
`},
		{"zero check_in_interval", `
topic: t
check_in_interval: 0
participants:
  a: {name: A, role: r}
  b: {name: B, role: r}
`},
		{"zero turn_timeout", `
topic: t
turn_timeout: 0
participants:
  a: {name: A, role: r}
  b: {name: B, role: r}
`},
		{"workshop without brief", `
topic: t
mode: workshop
participants:
  author: {name: A, role: r}
  editor: {name: B, role: r}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
