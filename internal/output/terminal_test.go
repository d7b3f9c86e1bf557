package output

import (
	"strings"
	"testing"
)

func TestTurnLabel(t *testing.T) {
	got := TurnLabel(3, 10)
	if !strings.Contains(got, "Turn 3/10") {
		t.Errorf("TurnLabel() = %q, want it to contain Turn 3/10", got)
	}
}

func TestBanner(t *testing.T) {
	got := Banner("CHECK-IN")
	if !strings.Contains(got, "=== CHECK-IN ===") {
		t.Errorf("Banner() = %q", got)
	}
}

func TestFrameKeepsContent(t *testing.T) {
	got := Frame("line one", "line two")
	if !strings.Contains(got, "line one") || !strings.Contains(got, "line two") {
		t.Errorf("Frame() = %q, want both lines present", got)
	}
}
