package referee

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCheckInDue(t *testing.T) {
	cases := []struct {
		turn, interval int
		want           bool
	}{
		{1, 4, false},
		{4, 4, true},
		{8, 4, true},
		{6, 4, false},
		{3, 1, true},
		{0, 4, false},
	}
	for _, tc := range cases {
		if got := CheckInDue(tc.turn, tc.interval); got != tc.want {
			t.Errorf("CheckInDue(%d, %d) = %v, want %v", tc.turn, tc.interval, got, tc.want)
		}
	}
}

func TestExtractQuestion(t *testing.T) {
	text := "My argument stands.\n\n<!-- REFEREE: may I cite external sources? -->\n\nMore text."
	cleaned, question, ok := ExtractQuestion(text)
	if !ok {
		t.Fatal("expected a question")
	}
	if question != "may I cite external sources?" {
		t.Errorf("question = %q", question)
	}
	if strings.Contains(cleaned, "REFEREE") {
		t.Errorf("cleaned = %q, marker should be removed", cleaned)
	}
	if !strings.Contains(cleaned, "My argument stands.") || !strings.Contains(cleaned, "More text.") {
		t.Errorf("cleaned = %q, surrounding text should survive", cleaned)
	}
}

func TestExtractQuestion_None(t *testing.T) {
	text := "Plain output, nothing embedded."
	cleaned, _, ok := ExtractQuestion(text)
	if ok {
		t.Error("expected no question")
	}
	if cleaned != text {
		t.Errorf("cleaned = %q, want unchanged", cleaned)
	}
}

func TestConsole_CheckInChoices(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    Action
		wantMsg string
	}{
		{"continue", "c\n", ActionContinue, ""},
		{"stop", "s\n", ActionStop, ""},
		{"message", "m\nplease be brief\n", ActionMessage, "please be brief"},
		{"malformed then stop", "x\n\ns\n", ActionStop, ""},
		{"empty message reprompted", "m\n\nfinal note\n", ActionMessage, "final note"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConsole(strings.NewReader(tc.input), &bytes.Buffer{})
			action, msg, err := c.CheckIn(CheckInOptions{Turn: 4, MaxTurns: 8})
			if err != nil {
				t.Fatalf("CheckIn() error = %v", err)
			}
			if action != tc.want || msg != tc.wantMsg {
				t.Errorf("CheckIn() = %q/%q, want %q/%q", action, msg, tc.want, tc.wantMsg)
			}
		})
	}
}

func TestConsole_ViewRepromptsAfterShowing(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("v\nc\n"), &out)
	action, _, err := c.CheckIn(CheckInOptions{
		Turn:     2,
		MaxTurns: 8,
		View:     func() (string, error) { return "current document body", nil },
	})
	if err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if action != ActionContinue {
		t.Errorf("action = %q, want continue", action)
	}
	if !strings.Contains(out.String(), "current document body") {
		t.Error("view content was not shown")
	}
}

func TestConsole_ViewIgnoredInDebate(t *testing.T) {
	c := NewConsole(strings.NewReader("v\ns\n"), &bytes.Buffer{})
	action, _, err := c.CheckIn(CheckInOptions{Turn: 2, MaxTurns: 8})
	if err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if action != ActionStop {
		t.Errorf("action = %q, want stop (v must re-prompt without a view hook)", action)
	}
}

func TestConsole_Recover(t *testing.T) {
	cases := []struct {
		input string
		want  Decision
	}{
		{"r\n", DecisionRetry},
		{"s\n", DecisionSkip},
		{"a\n", DecisionAbort},
		{"zzz\na\n", DecisionAbort},
	}
	for _, tc := range cases {
		c := NewConsole(strings.NewReader(tc.input), &bytes.Buffer{})
		got, err := c.Recover(2, "Alice", errors.New("agent: timed out"))
		if err != nil {
			t.Fatalf("Recover() error = %v", err)
		}
		if got != tc.want {
			t.Errorf("Recover(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestConsole_RecoverShowsCause(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("r\n"), &out)
	if _, err := c.Recover(3, "Bob", errors.New("exit status 3")); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if !strings.Contains(out.String(), "Turn 3") || !strings.Contains(out.String(), "Bob") || !strings.Contains(out.String(), "exit status 3") {
		t.Errorf("recover prompt missing context: %q", out.String())
	}
}

func TestConsole_EOF(t *testing.T) {
	c := NewConsole(strings.NewReader(""), &bytes.Buffer{})
	if _, _, err := c.CheckIn(CheckInOptions{Turn: 1, MaxTurns: 2}); err == nil {
		t.Error("expected error on EOF")
	}
}
