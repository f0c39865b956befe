package pshellline_test

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/pshell-go/pshell/pkg/pshellline"
)

func readLine(t *testing.T, e *Editor, input string) (string, string) {
	t.Helper()
	var out bytes.Buffer
	sess := &Session{R: strings.NewReader(input), W: &out}
	line, idle, err := e.ReadLine(sess, "pshell> ")
	if err != nil {
		t.Fatalf("ReadLine error: %v", err)
	}
	if idle {
		t.Fatalf("ReadLine reported idle unexpectedly")
	}
	return line, out.String()
}

func TestEditorBasicInsertAndCommit(t *testing.T) {
	e := NewEditor()
	line, _ := readLine(t, e, "hello\r")
	if line != "hello" {
		t.Fatalf("line = %q, want hello", line)
	}
}

func TestEditorBackspace(t *testing.T) {
	e := NewEditor()
	line, _ := readLine(t, e, "helloo\x7f\r") // extra 'o' then backspace
	if line != "hello" {
		t.Fatalf("line = %q, want hello", line)
	}
}

func TestEditorCtrlUKillLine(t *testing.T) {
	e := NewEditor()
	line, _ := readLine(t, e, "garbage\x15hello\r")
	if line != "hello" {
		t.Fatalf("line = %q, want hello", line)
	}
}

func TestEditorCtrlKKillToEnd(t *testing.T) {
	e := NewEditor()
	// type "hello world", move left 6 (past "world"), Ctrl-K kills " world"
	line, _ := readLine(t, e, "hello world\x1b[D\x1b[D\x1b[D\x1b[D\x1b[D\x1b[D\x0b\r")
	if line != "hello" {
		t.Fatalf("line = %q, want hello", line)
	}
}

func TestEditorHistoryRecall(t *testing.T) {
	e := NewEditor()
	readLine(t, e, "first\r")
	line, _ := readLine(t, e, "\x1b[A\r") // up-arrow recalls "first"
	if line != "first" {
		t.Fatalf("line = %q, want first", line)
	}
}

func TestEditorTabCompletionAmbiguousFillsCommonPrefix(t *testing.T) {
	e := NewEditor()
	e.Keywords = func() []string { return []string{"quit", "help", "hello"} }
	line, _ := readLine(t, e, "he\tllo\r")
	// "he" + TAB is ambiguous between "help"/"hello"; FAST policy fills the
	// longest common prefix ("hel") and lists both, so typing "llo" after
	// yields "helllo", not "hello".
	if line != "helllo" {
		t.Fatalf("line = %q, want helllo", line)
	}
}

func TestEditorTabCompletionUniqueInsertsTrailingSpace(t *testing.T) {
	e := NewEditor()
	e.Keywords = func() []string { return []string{"quit", "help"} }
	line, _ := readLine(t, e, "qu\t\r")
	if line != "quit " {
		t.Fatalf("line = %q, want %q", line, "quit ")
	}
}

func TestEditorCtrlCOnSocketIsOrdinaryInput(t *testing.T) {
	e := NewEditor()
	var out bytes.Buffer
	sess := &Session{R: strings.NewReader("ab\x03cd\r"), W: &out, IsTTY: false}
	line, _, err := e.ReadLine(sess, "> ")
	if err != nil {
		t.Fatalf("ReadLine error: %v", err)
	}
	if line != "ab\x03cd" {
		t.Fatalf("line = %q, want ab\\x03cd", line)
	}
}

func TestEditorCtrlCOnTTYInvokesInterrupt(t *testing.T) {
	e := NewEditor()
	var out bytes.Buffer
	called := false
	sess := &Session{
		R:         strings.NewReader("ab\x03cd\r"),
		W:         &out,
		IsTTY:     true,
		Interrupt: func() { called = true },
	}
	line, _, err := e.ReadLine(sess, "> ")
	if err != nil {
		t.Fatalf("ReadLine error: %v", err)
	}
	if !called {
		t.Fatalf("Interrupt callback was not invoked")
	}
	if line != "abcd" {
		t.Fatalf("line = %q, want abcd (Ctrl-C consumed, not inserted)", line)
	}
}
