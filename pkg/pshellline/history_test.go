package pshellline_test

import (
	"testing"

	. "github.com/pshell-go/pshell/pkg/pshellline"
)

func TestHistoryDedupAndCursor(t *testing.T) {
	h := NewHistory()
	h.Add("ls")
	h.Add("ls") // duplicate of previous, dropped
	h.Add("pwd")

	if got := h.All(); len(got) != 2 {
		t.Fatalf("All() = %v, want 2 entries", got)
	}

	line, ok := h.Up()
	if !ok || line != "pwd" {
		t.Fatalf("Up() = %q, %v, want pwd, true", line, ok)
	}
	line, ok = h.Up()
	if !ok || line != "ls" {
		t.Fatalf("Up() = %q, %v, want ls, true", line, ok)
	}
	if _, ok := h.Up(); ok {
		t.Fatalf("Up() past oldest should fail")
	}

	line, ok = h.Down()
	if !ok || line != "pwd" {
		t.Fatalf("Down() = %q, %v, want pwd, true", line, ok)
	}
	line, ok = h.Down()
	if !ok || line != "" {
		t.Fatalf("Down() past newest should clear line, got %q, %v", line, ok)
	}
}

func TestHistoryAddResetsCursor(t *testing.T) {
	h := NewHistory()
	h.Add("a")
	h.Add("b")
	h.Up()
	h.Up()
	h.Add("c")

	if _, ok := h.Down(); ok {
		t.Fatalf("Down() right after Add should be past the end")
	}
}
