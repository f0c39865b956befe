package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pshell-go/pshell/internal/config"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestApplyServerConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pshell-server.conf", ""+
		"# comment\n"+
		"demo.title=Demo Shell\n"+
		"demo.port=9001\n"+
		"demo.timeout=none\n"+
		"other.port=1\n")

	t.Setenv("PSHELL_CONFIG_DIR", dir)

	entries, err := config.LoadServerConfig()
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}

	out := config.ApplyServerConfig(entries, "demo", config.ServerParams{Port: 1234, Prompt: "pshell> "})
	if out.Title != "Demo Shell" {
		t.Fatalf("Title = %q", out.Title)
	}
	if out.Port != 9001 {
		t.Fatalf("Port = %d, want 9001", out.Port)
	}
	if !out.TimeoutNone {
		t.Fatalf("TimeoutNone = false, want true")
	}
	if out.Prompt != "pshell> " {
		t.Fatalf("Prompt = %q, untouched field should survive", out.Prompt)
	}
}

func TestApplyControlConfigUnixImpliesPort(t *testing.T) {
	entries := config.Entries{"ctrl": {"unix": "demo"}}
	out := config.ApplyControlConfig(entries, "ctrl", config.ControlParams{Port: 9001})
	if out.UnixServer != "demo" {
		t.Fatalf("UnixServer = %q", out.UnixServer)
	}
	if out.Port != -1 {
		t.Fatalf("Port = %d, want -1 sentinel for unix", out.Port)
	}
}

func TestLoadLinesSkipsCommentsAndBlank(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "demo.startup", "hello a b\n\n# a comment\nquit\n")

	lines, err := config.LoadLines(p)
	if err != nil {
		t.Fatalf("LoadLines: %v", err)
	}
	want := []string{"hello a b", "quit"}
	if len(lines) != len(want) || lines[0] != want[0] || lines[1] != want[1] {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
}

func TestFindBatchTriesExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "setup.psh", "quit\n")

	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(dir)

	p, ok := config.FindBatch("setup", "")
	if !ok {
		t.Fatalf("FindBatch did not find setup.psh")
	}
	if filepath.Base(p) != "setup.psh" {
		t.Fatalf("p = %q", p)
	}
}
