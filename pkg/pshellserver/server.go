// Package pshellserver implements the PSHELL server (component E): it
// owns a command registry (pshellcli), an output sink, and one of the
// four receive loops (UDP, UNIX datagram, TCP, or LOCAL stdin/stdout),
// dispatching incoming requests and replying per the wire protocol in
// pshellmsg.
//
// Grounded on cmd/minimega/main.go's server lifecycle (register commands,
// run a transport loop, clean up on exit) and internal/ron/server.go's
// accept-loop-per-connection shape for the TCP transport; the teacher's
// own "one command list, one prompt, one sink" module-level globals are
// deliberately NOT reproduced -- spec §9 calls that out as a single-
// server assumption, so every piece of that state is a Server field here,
// letting one process host many servers.
package pshellserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/pshell-go/pshell/internal/pshelldir"
	"github.com/pshell-go/pshell/pkg/pshellcli"
	"github.com/pshell-go/pshell/pkg/pshelllog"
	"github.com/pshell-go/pshell/pkg/pshellline"
	"github.com/pshell-go/pshell/pkg/pshellmsg"
)

// Version is the value reported to QueryVersion requests.
const Version = "1.0"

// Transport selects which of the four receive loops a Server runs.
type Transport int

const (
	UDP Transport = iota
	TCP
	Unix
	Local
)

func (t Transport) String() string {
	switch t {
	case UDP:
		return "udp"
	case TCP:
		return "tcp"
	case Unix:
		return "unix"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

// Mode selects whether StartServer blocks the caller's goroutine or
// spawns a worker.
type Mode int

const (
	Blocking Mode = iota
	NonBlocking
)

// Host sentinels recognized by startServer's host parameter (spec §4.E).
const (
	AnyHost   = "anyhost"
	LocalHost = "localhost"
	AnyBcast  = "anybcast"
)

// maxPortAttempts / maxUnixSuffix bound the fallback search on a bind
// collision (spec §4.E / §7: "up to ≈1000").
const maxPortAttempts = 1000
const maxUnixSuffix = 1000

// Server is one PSHELL server endpoint: a command registry, an output
// sink policy, and a transport loop. The zero value is not usable; build
// one with NewServer.
type Server struct {
	// Name is the server's requested name; for UNIX transport this may
	// differ from the effective bound name on collision (EffectiveName).
	Name string

	Title, Banner, Prompt string
	MaxPayloadSize        int
	// FirstArgPos is 0 or 1 (spec §4.E): 1 (default) drops the leading
	// command token from argv passed to help-token detection; 0 passes
	// the full line, used by the aggregator re-use case.
	FirstArgPos int
	IdleTimeout time.Duration
	Policy      pshellline.Policy
	CoordDir    string

	Registry *pshellcli.Registry
	Editor   *pshellline.Editor

	// EffectiveName is filled in by StartServer for the UNIX transport
	// once the actual (possibly suffixed) bound name is known.
	EffectiveName string
	// BoundPort is filled in by StartServer for UDP/TCP once the actual
	// (possibly fallback-walked) port is known; useful when port 0 was
	// requested to let the OS choose.
	BoundPort int

	mu              sync.Mutex
	lock            *pshelldir.Lock
	builtinsAdded   bool
	quitCh          chan struct{}
	closeListener   func() error
	transport       Transport
}

// NewServer returns a Server with the spec's documented defaults: FAST
// completion policy, firstArgPos=1, 64 KiB max payload, no idle timeout.
func NewServer(name string) *Server {
	s := &Server{
		Name:           name,
		Prompt:         name + "> ",
		MaxPayloadSize: pshellmsg.DefaultMaxPayload,
		FirstArgPos:    1,
		Policy:         pshellline.PolicyFast,
		CoordDir:       pshelldir.DefaultDir,
		Registry:       pshellcli.NewRegistry(),
		quitCh:         make(chan struct{}, 1),
	}
	s.Editor = pshellline.NewEditor()
	s.Editor.Keywords = func() []string { return s.Registry.Names() }
	return s
}

// AddCommand registers a command (spec §4.E: "pre-start only, duplicate
// or invalid entries rejected with an error log and ignored"). The error
// is also returned for callers that want to treat registration failures
// as fatal during setup, but the framework itself never crashes on it.
func (s *Server) AddCommand(cmd pshellcli.Command) error {
	if err := s.Registry.Add(cmd); err != nil {
		pshelllog.Errorf("pshellserver: command %q rejected: %v", cmd.Name, err)
		return err
	}
	return nil
}

// requestQuit signals the running interactive session loop to end after
// the current dispatch returns.
func (s *Server) requestQuit() {
	select {
	case s.quitCh <- struct{}{}:
	default:
	}
}

// quitRequested drains and reports whether a quit was requested since the
// last call.
func (s *Server) quitRequested() bool {
	select {
	case <-s.quitCh:
		return true
	default:
		return false
	}
}

// commandsListing renders the "name  -  description" listing used by
// both the `help`/`?` builtin and the queryCommands1 introspection reply.
func (s *Server) commandsListing() string {
	var out string
	for _, c := range s.Registry.All() {
		out += fmt.Sprintf("%-16s  -  %s\n", c.Name, c.Description)
	}
	return out
}

// StartServer binds and runs the given transport. In Blocking mode it
// does not return until the server stops (TCP/LOCAL) or is interrupted;
// UDP/Unix datagram servers run until CleanupResources is called from
// another goroutine. In NonBlocking mode it starts a worker goroutine and
// returns immediately.
func (s *Server) StartServer(transport Transport, mode Mode, host string, port int) error {
	s.transport = transport

	if transport == TCP || transport == Local {
		s.registerBuiltins()
	}

	run := func() error {
		switch transport {
		case UDP:
			return s.runUDP(host, port)
		case Unix:
			return s.runUnix()
		case TCP:
			return s.runTCP(host, port)
		case Local:
			return s.runLocal()
		default:
			return fmt.Errorf("pshellserver: unknown transport %v", transport)
		}
	}

	if mode == NonBlocking {
		errCh := make(chan error, 1)
		go func() { errCh <- run() }()
		// Give the transport a moment to bind so StartServer's error
		// return is meaningful for the common "port already in use after
		// fallback exhaustion" case, without blocking for the server's
		// full lifetime.
		select {
		case err := <-errCh:
			return err
		case <-time.After(50 * time.Millisecond):
			return nil
		}
	}
	return run()
}

// CleanupResources releases the endpoint lock and closes any listening
// socket (spec §4.E lifecycle's terminal step).
func (s *Server) CleanupResources() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeListener != nil {
		s.closeListener()
		s.closeListener = nil
	}
	if s.lock != nil {
		s.lock.Release()
		s.lock = nil
	}
}

// RunCommand dispatches a single command line through the server's
// registry as if it had arrived over a transport, without needing a live
// connection (spec §4.E: "optional runCommand() from parent", used for
// startup-file execution).
func (s *Server) RunCommand(line string) string {
	sink := pshellcli.NewSink(nil)
	pshellcli.Dispatch(s.Registry, line, s.FirstArgPos, sink)
	return sink.String()
}
