package pshellcli_test

import (
	"testing"

	. "github.com/pshell-go/pshell/pkg/pshellcli"
)

func noop(*Sink, []string) {}

func mustAdd(t *testing.T, r *Registry, c Command) {
	t.Helper()
	if err := r.Add(c); err != nil {
		t.Fatalf("Add(%+v): %v", c, err)
	}
}

func TestLookupExactBeatsPrefix(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, Command{Name: "hello", Description: "d", Callback: noop})
	mustAdd(t, r, Command{Name: "help", Description: "d", Callback: noop})
	mustAdd(t, r, Command{Name: "helpme", Description: "d", Callback: noop})

	c, err := r.Lookup("help")
	if err != nil {
		t.Fatalf("Lookup(help): %v", err)
	}
	if c.Name != "help" {
		t.Fatalf("Lookup(help) = %q, want exact match", c.Name)
	}
}

func TestLookupAmbiguous(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, Command{Name: "hello", Description: "d", Callback: noop})
	mustAdd(t, r, Command{Name: "help", Description: "d", Callback: noop})

	_, err := r.Lookup("hel")
	le, ok := err.(*LookupError)
	if !ok || !le.Ambiguous {
		t.Fatalf("Lookup(hel) err = %v, want ambiguous LookupError", err)
	}
}

func TestLookupNotFound(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, Command{Name: "hello", Description: "d", Callback: noop})

	_, err := r.Lookup("zzz")
	le, ok := err.(*LookupError)
	if !ok || le.Ambiguous {
		t.Fatalf("Lookup(zzz) err = %v, want not-found LookupError", err)
	}
}

func TestLookupSingleUnambiguousPrefix(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, Command{Name: "quit", Description: "d", Callback: noop})

	c, err := r.Lookup("qu")
	if err != nil {
		t.Fatalf("Lookup(qu): %v", err)
	}
	if c.Name != "quit" {
		t.Fatalf("Lookup(qu) = %q", c.Name)
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	cases := []Command{
		{Name: "", Description: "d", Callback: noop},
		{Name: "x", Description: "", Callback: noop},
		{Name: "x", Description: "d", Callback: nil},
		{Name: "x", Description: "d", MinArgs: 2, MaxArgs: 1, Callback: noop},
		{Name: "x", Description: "d", MinArgs: 1, Usage: "", Callback: noop},
		{Name: "has space", Description: "d", Callback: noop},
	}

	for i, c := range cases {
		r := NewRegistry()
		if err := r.Add(c); err == nil {
			t.Errorf("case %d: Add(%+v) should have failed", i, c)
		}
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, Command{Name: "hello", Description: "d", Callback: noop})
	if err := r.Add(Command{Name: "hello", Description: "d2", Callback: noop}); err == nil {
		t.Fatalf("duplicate Add should have failed")
	}
}

func TestRegistrationOrderPreserved(t *testing.T) {
	r := NewRegistry()
	names := []string{"zebra", "apple", "mango"}
	for _, n := range names {
		mustAdd(t, r, Command{Name: n, Description: "d", Callback: noop})
	}

	for i, c := range r.All() {
		if c.Name != names[i] {
			t.Fatalf("All()[%d] = %q, want %q", i, c.Name, names[i])
		}
	}
}
