package pshelllog_test

import (
	"testing"

	. "github.com/pshell-go/pshell/pkg/pshelllog"
)

func TestLogFunctionOverride(t *testing.T) {
	defer SetLogFunction(nil)
	defer SetLevel(Warning)

	var got []string
	SetLogFunction(func(l Level, msg string) {
		got = append(got, l.String()+": "+msg)
	})
	SetLevel(Info)

	Infof("hello %d", 1)
	Warningf("uh oh")
	Errorf("bad")

	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3: %v", len(got), got)
	}
}

func TestLevelGate(t *testing.T) {
	defer SetLogFunction(nil)
	defer SetLevel(Warning)

	var got []string
	SetLogFunction(func(l Level, msg string) {
		got = append(got, msg)
	})
	SetLevel(Error)

	Infof("should be dropped")
	Warningf("should be dropped too")
	Errorf("should appear")

	if len(got) != 1 {
		t.Fatalf("got %d messages at Error gate, want 1: %v", len(got), got)
	}
}
