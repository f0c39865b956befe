package pshellserver

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pshell-go/pshell/internal/pshelldir"
	"github.com/pshell-go/pshell/pkg/pshellcli"
	"github.com/pshell-go/pshell/pkg/pshelllog"
	"github.com/pshell-go/pshell/pkg/pshellline"
)

// bindTCPPort listens on host, walking forward through up to
// maxPortAttempts ports on conflict (spec §4.E / §7).
func bindTCPPort(host string, port int) (net.Listener, int, error) {
	for i := 0; i <= maxPortAttempts; i++ {
		candidate := port + i
		addr := net.JoinHostPort(host, strconv.Itoa(candidate))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			if i > 0 {
				pshelllog.Warningf("pshellserver: tcp port %d in use, bound %d instead", port, candidate)
			}
			bound := candidate
			if a, ok := ln.Addr().(*net.TCPAddr); ok {
				bound = a.Port
			}
			return ln, bound, nil
		}
	}
	return nil, 0, fmt.Errorf("pshellserver: exhausted %d tcp ports starting at %d", maxPortAttempts, port)
}

// runTCP accepts one connection at a time (spec §4.E: "while serving,
// shut down the listening socket; after disconnect, rebind and accept
// again").
func (s *Server) runTCP(host string, port int) error {
	bindHost, _ := resolveBindHost(host)
	boundPort := port
	first := true

	for {
		ln, actualPort, err := bindTCPPort(bindHost, boundPort)
		if err != nil {
			return err
		}
		boundPort = actualPort

		s.mu.Lock()
		s.closeListener = ln.Close
		s.BoundPort = boundPort
		s.mu.Unlock()

		if first {
			lock, lerr := pshelldir.AcquireInet(s.CoordDir, s.Name, "tcp", bindHost, boundPort)
			if lerr != nil {
				pshelllog.Warningf("pshellserver: could not acquire tcp endpoint lock: %v", lerr)
			} else {
				s.mu.Lock()
				s.lock = lock
				s.mu.Unlock()
			}
			first = false
			pshelllog.Infof("pshellserver: %s listening tcp %s:%d", s.Name, bindHost, boundPort)
		}

		conn, err := ln.Accept()
		ln.Close()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.serveTCPSession(conn)
		conn.Close()
	}
}

// serveTCPSession negotiates telnet options, greets, and drives the line
// editor over a single accepted connection until the client disconnects,
// goes idle, or issues `quit` (spec §4.E, §4.B).
func (s *Server) serveTCPSession(conn net.Conn) {
	if err := pshellline.NegotiateTelnet(conn, conn); err != nil {
		return
	}

	if s.Title != "" {
		pshellline.WriteLine(conn, s.Title+"\n", true)
	}
	if s.Banner != "" {
		pshellline.WriteLine(conn, s.Banner+"\n", true)
	}

	sess := &pshellline.Session{R: conn, W: conn, IsTTY: false, CRLF: true}

	editor := *s.Editor
	editor.IdleTimeout = s.IdleTimeout
	editor.Policy = s.Policy
	editor.History = pshellline.NewHistory()
	// The history builtin reads s.Editor.History; point it at this session's.
	s.Editor.History = editor.History

	for {
		line, idle, err := editor.ReadLine(sess, s.Prompt)
		if err != nil || idle {
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		sink := pshellcli.NewSink(func(partial string) {
			pshellline.WriteLine(conn, partial, true)
		})
		pshellcli.Dispatch(s.Registry, line, s.FirstArgPos, sink)
		pshellline.WriteLine(conn, sink.String(), true)

		if s.quitRequested() {
			return
		}
	}
}
