// Package pshellcli implements the PSHELL command registry (component C)
// and output sink (component D): an ordered, substring-prefix-matched
// table of commands plus the buffer that accumulates a callback's
// printf/march/wheel emissions for whichever transport invoked it.
//
// Grounded on pkg/minicli's split between registration-time validation
// (Handler.parsePatterns) and lookup-time matching (patternTrie.compile),
// simplified here to flat substring-prefix matching since PSHELL commands
// are plain tokens rather than pattern grammars.
package pshellcli

import (
	"fmt"
	"strings"
)

// HelpTokens are recognized in the help position (spec §4.C / §4.E
// firstArgPos) as a request to show usage instead of dispatching.
var HelpTokens = map[string]bool{
	"?":      true,
	"-h":     true,
	"--h":    true,
	"-help":  true,
	"--help": true,
}

// CLIFunc is the callback invoked when a command's argument count and help
// position pass validation. It writes its output into sink.
type CLIFunc func(sink *Sink, args []string)

// Command is immutable once registered. MaxArgs of 0 means "same as
// MinArgs" (spec §3).
type Command struct {
	Name        string
	Description string
	Usage       string
	MinArgs     int
	MaxArgs     int
	ShowUsage   bool
	Callback    CLIFunc
}

func (c *Command) effectiveMaxArgs() int {
	if c.MaxArgs == 0 {
		return c.MinArgs
	}
	return c.MaxArgs
}

func (c *Command) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("pshellcli: command name must not be empty")
	}
	if strings.ContainsAny(c.Name, " \t\n") {
		return fmt.Errorf("pshellcli: command name %q must not contain whitespace", c.Name)
	}
	if strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("pshellcli: command %q: description must not be empty", c.Name)
	}
	if c.Callback == nil {
		return fmt.Errorf("pshellcli: command %q: callback must not be nil", c.Name)
	}

	max := c.effectiveMaxArgs()
	if c.MaxArgs > 0 && c.MinArgs > max {
		return fmt.Errorf("pshellcli: command %q: minArgs (%d) > maxArgs (%d)", c.Name, c.MinArgs, max)
	}
	if max > 0 && strings.TrimSpace(c.Usage) == "" {
		return fmt.Errorf("pshellcli: command %q: usage required when args are accepted", c.Name)
	}

	return nil
}

// UsageLine renders the one-line usage shown by Dispatch on a help token or
// a bad argument count: "<name> <usage>" when a usage is registered,
// otherwise "<name> - <description>".
func (c *Command) UsageLine() string {
	if c.Usage == "" {
		return fmt.Sprintf("%-20s - %s", c.Name, c.Description)
	}
	return fmt.Sprintf("%-20s %s", c.Name, c.Usage)
}
