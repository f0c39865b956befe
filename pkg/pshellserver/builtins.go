package pshellserver

import (
	"strings"

	"github.com/pshell-go/pshell/internal/config"
	"github.com/pshell-go/pshell/pkg/pshellcli"
)

// BatchDir is the compile-time default batch-file directory consulted by
// the `batch` builtin after the current directory and $PSHELL_BATCH_DIR
// (spec §4.E).
var BatchDir = "/etc/pshell/batch"

// registerBuiltins adds the interactive-only commands (spec §4.E:
// "registered automatically for LOCAL/TCP only"): help, its "?" alias,
// quit, history, and batch. Safe to call more than once (e.g. across TCP
// reconnects); only the first call registers.
func (s *Server) registerBuiltins() {
	s.mu.Lock()
	already := s.builtinsAdded
	s.builtinsAdded = true
	s.mu.Unlock()
	if already {
		return
	}

	listCommands := func(sink *pshellcli.Sink, args []string) {
		sink.Printf(true, "%s", s.commandsListing())
	}

	s.AddCommand(pshellcli.Command{
		Name:        "help",
		Description: "show a list of available commands",
		ShowUsage:   false,
		Callback:    listCommands,
	})

	// "?" alone is also a request for the command listing (spec §4.E;
	// PshellServer-full.py:1612 special-cases a bare "?" the same way).
	s.AddCommand(pshellcli.Command{
		Name:        "?",
		Description: "show a list of available commands",
		ShowUsage:   false,
		Callback:    listCommands,
	})

	s.AddCommand(pshellcli.Command{
		Name:        "quit",
		Description: "exit the interactive session",
		ShowUsage:   false,
		Callback: func(sink *pshellcli.Sink, args []string) {
			s.requestQuit()
		},
	})

	s.AddCommand(pshellcli.Command{
		Name:        "history",
		Description: "show session command history",
		ShowUsage:   false,
		Callback: func(sink *pshellcli.Sink, args []string) {
			for i, line := range s.Editor.History.All() {
				sink.Printf(true, "%4d  %s", i+1, line)
			}
		},
	})

	s.AddCommand(pshellcli.Command{
		Name:        "batch",
		Description: "run a file of commands",
		Usage:       "batch <file> [-show] | -list",
		MinArgs:     1,
		MaxArgs:     2,
		ShowUsage:   true,
		Callback:    s.batchCallback,
	})
}

func (s *Server) batchCallback(sink *pshellcli.Sink, args []string) {
	if args[0] == "-list" {
		// No directory listing here: config.FindBatch only resolves one
		// name at a time against ./, $PSHELL_BATCH_DIR, and BatchDir, so
		// there's no catalog to enumerate without a filesystem scan the
		// spec doesn't otherwise call for.
		sink.Printf(true, "(no batch file catalog; pass a file name directly)")
		return
	}

	// args[0] is always resolved as a file name; a numeric index is not
	// accepted.
	path, ok := config.FindBatch(args[0], BatchDir)
	if !ok {
		sink.Printf(true, "Batch file not found: '%s'", args[0])
		return
	}

	show := len(args) > 1 && args[1] == "-show"

	lines, err := config.LoadLines(path)
	if err != nil {
		sink.Printf(true, "Error reading batch file '%s': %v", path, err)
		return
	}

	for _, line := range lines {
		if show {
			sink.Printf(true, "%s", line)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		pshellcli.Dispatch(s.Registry, line, s.FirstArgPos, sink)
	}
}
