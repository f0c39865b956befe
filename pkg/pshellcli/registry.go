package pshellcli

import (
	"fmt"
)

// LookupError distinguishes "not found" from "ambiguous" so callers can set
// the correct reply MsgType (commandNotFound either way, per spec §4.C) and
// still render the right message.
type LookupError struct {
	Token     string
	Ambiguous bool
}

func (e *LookupError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("Ambiguous command abbreviation: '%s'", e.Token)
	}
	return fmt.Sprintf("Command not found: '%s'", e.Token)
}

// Registry is an ordered, append-only (pre-start) table of commands.
// Iteration order equals registration order, which governs the help
// listing (spec §3). Safe for concurrent reads once registration is done;
// the caller is responsible for not mutating it after the server starts
// (spec §5: "the command registry is written only before startServer and
// read-only thereafter").
type Registry struct {
	commands []*Command
	byName   map[string]*Command
}

// NewRegistry returns an empty command registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Add registers cmd. It is rejected with an error -- and not added -- if it
// fails validation or duplicates an existing name (spec §3); the caller
// (pkg/pshellserver) is responsible for logging the rejection at ERROR
// level and continuing, per spec §7.
func (r *Registry) Add(cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	if _, exists := r.byName[cmd.Name]; exists {
		return fmt.Errorf("pshellcli: duplicate command name %q", cmd.Name)
	}

	c := cmd
	r.commands = append(r.commands, &c)
	r.byName[c.Name] = &c
	return nil
}

// All returns the registered commands in registration order.
func (r *Registry) All() []*Command {
	return r.commands
}

// Lookup resolves token against the registry using case-sensitive
// substring-prefix matching (spec §4.C): token must be a prefix of a
// command name. An exact match wins even when other prefix matches exist;
// otherwise exactly one prefix match must exist or the lookup is
// ambiguous/not-found.
func (r *Registry) Lookup(token string) (*Command, error) {
	if exact, ok := r.byName[token]; ok {
		return exact, nil
	}

	var matches []*Command
	for _, c := range r.commands {
		if len(token) <= len(c.Name) && c.Name[:len(token)] == token {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &LookupError{Token: token}
	case 1:
		return matches[0], nil
	default:
		return nil, &LookupError{Token: token, Ambiguous: true}
	}
}

// Names returns the registered command names in registration order, used
// to seed TAB completion (spec §4.E queryCommands2) and the line editor.
func (r *Registry) Names() []string {
	names := make([]string, len(r.commands))
	for i, c := range r.commands {
		names[i] = c.Name
	}
	return names
}
