package pshellcli

import "strings"

// Status reports the outcome of a pre-dispatch check (spec §4.C/§4.E),
// driving which reply MsgType the server sets.
type Status int

const (
	// StatusSuccess means the callback ran (found via Dispatch) or the
	// command is a help request whose usage was already emitted.
	StatusSuccess Status = iota
	// StatusNotFound means the command doesn't exist, or does but the
	// lookup was ambiguous. Err carries the distinguishing detail.
	StatusNotFound
	// StatusInvalidArgCount means the command was found but argc fell
	// outside [MinArgs, effective MaxArgs].
	StatusInvalidArgCount
)

// Dispatch tokenizes payload, looks the command up in r, applies the
// help/arg-count policy (spec §4.C), and -- on success -- invokes the
// callback with sink. firstArgPos selects the server's firstArgPos mode
// (spec §4.E): 1 (default) means tokens[0] is the command name, args is
// tokens[1:], and help is looked for at args[0]; 0 means the full line
// (including the command name) is passed to the callback as args, and
// help is looked for at args[1] instead (aggregator mode still needs the
// command name to have been resolved via tokens[0] for lookup purposes).
func Dispatch(r *Registry, payload string, firstArgPos int, sink *Sink) Status {
	tokens := strings.Fields(payload)
	if len(tokens) == 0 {
		return StatusNotFound
	}

	cmd, err := r.Lookup(tokens[0])
	if err != nil {
		sink.Printf(true, "%s", err.Error())
		return StatusNotFound
	}

	var args []string
	if firstArgPos == 1 {
		args = tokens[1:]
	} else {
		args = tokens
	}

	// In firstArgPos=1 (default) mode, args has already dropped the
	// command token, so the help token is looked for at args[0]. In
	// firstArgPos=0 mode, args still starts with the command token, so
	// the help token is one position further out, at args[1] (spec
	// §4.E; matches PshellServer-full.py's _gHelpPos=1 in this mode).
	// Either way it must be the final token: "cmd -h" is a help request,
	// "cmd -h foo" is not.
	helpPos := 0
	if firstArgPos == 0 {
		helpPos = 1
	}
	if len(args) == helpPos+1 && HelpTokens[args[helpPos]] {
		if cmd.ShowUsage {
			sink.Printf(true, "%s", cmd.UsageLine())
			return StatusSuccess
		}
		cmd.Callback(sink, args)
		return StatusSuccess
	}

	argc := len(args)
	if argc < cmd.MinArgs || argc > cmd.effectiveMaxArgs() {
		sink.Printf(true, "%s", cmd.UsageLine())
		return StatusInvalidArgCount
	}

	cmd.Callback(sink, args)
	return StatusSuccess
}
