package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestPaintRendersHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	b := NewBoard(&buf)

	b.Paint([]Row{
		{TID: 1, Name: "main", Status: "running", Priority: 31, Donated: 0, Nice: 0, RecentCPU: 0},
		{TID: 2, Name: "idle", Status: "ready", Priority: 0, Donated: 0, Nice: 0, RecentCPU: 250},
	})

	out := buf.String()
	if !strings.Contains(out, "TID") || !strings.Contains(out, "RECENT_CPU") {
		t.Fatalf("missing header in output:\n%s", out)
	}
	if !strings.Contains(out, "main") || !strings.Contains(out, "idle") {
		t.Fatalf("missing rows in output:\n%s", out)
	}
	if !strings.Contains(out, "2.50") {
		t.Errorf("expected recent_cpu 250 scaled to 2.50, got:\n%s", out)
	}
}

func TestNonFileOutputIsNeverATerminal(t *testing.T) {
	var buf bytes.Buffer
	b := NewBoard(&buf)
	if b.IsTerminal() {
		t.Error("bytes.Buffer should never report as a terminal")
	}
	if w := b.Width(); w != 80 {
		t.Errorf("Width() = %d, want fallback 80", w)
	}
	if err := b.EnableRawMode(); err != nil {
		t.Errorf("EnableRawMode on non-terminal should be a no-op, got %v", err)
	}
	if err := b.Restore(); err != nil {
		t.Errorf("Restore on non-terminal should be a no-op, got %v", err)
	}
}
