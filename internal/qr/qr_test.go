package qr

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	out, err := Render("http://localhost:5173/profile/42", "  ")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("rendered %d lines, want a full code", len(lines))
	}
	width := len([]rune(lines[0]))
	for i, line := range lines {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %d not indented: %q", i, line)
		}
		if n := len([]rune(line)); n != width {
			t.Errorf("line %d width = %d, want %d", i, n, width)
		}
	}
	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("no dark modules drawn")
	}
}

func TestRenderTooLong(t *testing.T) {
	if _, err := Render(strings.Repeat("x", 8000), ""); err == nil {
		t.Error("oversized content accepted")
	}
}
