package artifact

import (
	"os"
	"strings"
	"testing"
)

func newTestConversation(t *testing.T) *Conversation {
	t.Helper()
	c := NewConversation(t.TempDir(), "Test Topic", map[string]string{"a": "Alice", "b": "Bob"})
	if err := c.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return c
}

func TestSlug(t *testing.T) {
	got := Slug("AI and Machine Learning!")
	want := "ai-and-machine-learning"
	if got != want {
		t.Errorf("Slug() = %q, want %q", got, want)
	}
	long := strings.Repeat("word ", 30)
	if len(Slug(long)) > 60 {
		t.Errorf("Slug() length = %d, want <= 60", len(Slug(long)))
	}
}

func TestParse_SeparatorLineInsideTurnContent(t *testing.T) {
	c := newTestConversation(t)
	if err := c.AppendTurn(1, "Alice", "Before the rule.\n\n---\n\nAfter the rule."); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if err := c.AppendTurn(2, "Bob", "Reply."); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if err := c.Finalize(StatusFinalized, []ClosingStatement{{Name: "Alice", Text: "Done."}}); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	session, err := ParseFile(c.Path())
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(session.Turns) != 2 {
		t.Fatalf("Turns = %d, want 2", len(session.Turns))
	}
	for _, want := range []string{"Before the rule.", "---", "After the rule."} {
		if !strings.Contains(session.Turns[0].Content, want) {
			t.Errorf("turn 1 content lost %q: %q", want, session.Turns[0].Content)
		}
	}
	if len(session.Closings) != 1 || session.Closings[0].Text != "Done." {
		t.Errorf("Closings = %+v", session.Closings)
	}
}

func TestConversation_InitIsValidDocument(t *testing.T) {
	c := newTestConversation(t)
	session, err := ParseFile(c.Path())
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if session.Header.Status != StatusActive {
		t.Errorf("Status = %q, want active", session.Header.Status)
	}
	if session.Header.Topic != "Test Topic" {
		t.Errorf("Topic = %q, want Test Topic", session.Header.Topic)
	}
	if len(session.Turns) != 0 {
		t.Errorf("Turns = %d, want 0", len(session.Turns))
	}
}

func TestConversation_RoundTrip(t *testing.T) {
	c := newTestConversation(t)

	if err := c.AppendTurn(1, "Alice", "Opening argument.\n\nWith two paragraphs."); err != nil {
		t.Fatalf("AppendTurn(1) error = %v", err)
	}
	if err := c.AppendRefereeNote(1, "Stay on topic."); err != nil {
		t.Fatalf("AppendRefereeNote() error = %v", err)
	}
	if err := c.AppendTurn(2, "Bob", "Rebuttal."); err != nil {
		t.Fatalf("AppendTurn(2) error = %v", err)
	}
	if err := c.Finalize(StatusFinalized, []ClosingStatement{
		{Name: "Alice", Text: "Closing A."},
		{Name: "Bob", Text: "Closing B."},
	}); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	session, err := ParseFile(c.Path())
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(session.Turns) != 2 {
		t.Fatalf("Turns = %d, want 2", len(session.Turns))
	}
	if session.Turns[0].Number != 1 || session.Turns[0].Speaker != "Alice" {
		t.Errorf("turn 1 = %+v", session.Turns[0])
	}
	if !strings.Contains(session.Turns[0].Content, "two paragraphs") {
		t.Errorf("turn 1 content = %q", session.Turns[0].Content)
	}
	if session.Turns[1].Number != 2 || session.Turns[1].Speaker != "Bob" {
		t.Errorf("turn 2 = %+v", session.Turns[1])
	}
	if len(session.Notes) != 1 || session.Notes[0].AfterTurn != 1 || session.Notes[0].Text != "Stay on topic." {
		t.Errorf("Notes = %+v", session.Notes)
	}
	if len(session.Closings) != 2 || session.Closings[0].Name != "Alice" || session.Closings[1].Text != "Closing B." {
		t.Errorf("Closings = %+v", session.Closings)
	}
	if session.Header.Status != StatusFinalized {
		t.Errorf("Status = %q, want finalized", session.Header.Status)
	}
	if session.Header.TotalTurns != 2 {
		t.Errorf("TotalTurns = %d, want 2", session.Header.TotalTurns)
	}
}

func TestConversation_FinalizeIdempotent(t *testing.T) {
	c := newTestConversation(t)
	if err := c.AppendTurn(1, "Alice", "Only turn."); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	closings := []ClosingStatement{{Name: "Alice", Text: "Done."}}
	if err := c.Finalize(StatusFinalized, closings); err != nil {
		t.Fatalf("first Finalize() error = %v", err)
	}
	first, err := os.ReadFile(c.Path())
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}

	// Second call simulates the signal-handler path racing normal completion.
	if err := c.Finalize(StatusInterrupted, nil); err != nil {
		t.Fatalf("second Finalize() error = %v", err)
	}
	second, err := os.ReadFile(c.Path())
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(first) != string(second) {
		t.Error("repeated Finalize must leave the artifact byte-identical")
	}
}

func TestConversation_InterruptedHasNoClosings(t *testing.T) {
	c := newTestConversation(t)
	if err := c.AppendTurn(1, "Alice", "t1"); err != nil {
		t.Fatal(err)
	}
	if err := c.AppendTurn(2, "Bob", "t2"); err != nil {
		t.Fatal(err)
	}
	if err := c.Finalize(StatusInterrupted, nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	session, err := ParseFile(c.Path())
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if session.Header.Status != StatusInterrupted {
		t.Errorf("Status = %q, want interrupted", session.Header.Status)
	}
	if len(session.Turns) != 2 {
		t.Errorf("Turns = %d, want 2", len(session.Turns))
	}
	if len(session.Closings) != 0 {
		t.Errorf("Closings = %+v, want none", session.Closings)
	}
}

func TestFrontmatter_HeaderUpdatePreservesBody(t *testing.T) {
	c := newTestConversation(t)
	if err := c.AppendTurn(1, "Alice", "body content stays put"); err != nil {
		t.Fatal(err)
	}

	before, _ := os.ReadFile(c.Path())
	_, bodyBefore, err := ParseFrontmatter(before)
	if err != nil {
		t.Fatalf("ParseFrontmatter() error = %v", err)
	}

	if err := updateHeader(c.Path(), func(h *Header) { h.TotalTurns = 99 }); err != nil {
		t.Fatalf("updateHeader() error = %v", err)
	}

	after, _ := os.ReadFile(c.Path())
	header, bodyAfter, err := ParseFrontmatter(after)
	if err != nil {
		t.Fatalf("ParseFrontmatter() error = %v", err)
	}
	if header.TotalTurns != 99 {
		t.Errorf("TotalTurns = %d, want 99", header.TotalTurns)
	}
	if string(bodyBefore) != string(bodyAfter) {
		t.Error("header update must not touch the body")
	}
}

func TestParseFrontmatter_Malformed(t *testing.T) {
	if _, _, err := ParseFrontmatter([]byte("no fences here")); err == nil {
		t.Error("expected error for missing frontmatter")
	}
	if _, _, err := ParseFrontmatter([]byte("---\ntopic: x\n")); err == nil {
		t.Error("expected error for unclosed frontmatter")
	}
}
