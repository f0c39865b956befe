package pshellserver

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/pshell-go/pshell/pkg/pshellcli"
	"github.com/pshell-go/pshell/pkg/pshellline"
)

// runLocal drives the line editor directly on the calling process's
// stdin/stdout (spec §4.E: "no socket; the calling process itself drives
// the editor").
func (s *Server) runLocal() error {
	fd := int(os.Stdin.Fd())
	var restore func()
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err == nil {
			restore = func() { term.Restore(fd, old) }
		}
	}
	if restore != nil {
		defer restore()
	}
	// Raw mode turns off the terminal's own \n -> \r\n output translation.
	crlf := restore != nil

	if s.Title != "" {
		fmt.Fprintf(os.Stdout, "%s\r\n", s.Title)
	}
	if s.Banner != "" {
		fmt.Fprintf(os.Stdout, "%s\r\n", s.Banner)
	}

	sess := &pshellline.Session{
		R:     os.Stdin,
		W:     os.Stdout,
		IsTTY: true,
		CRLF:  crlf,
		Interrupt: func() {
			if p, err := os.FindProcess(os.Getpid()); err == nil {
				p.Signal(os.Interrupt)
			}
		},
	}

	s.Editor.IdleTimeout = s.IdleTimeout
	s.Editor.Policy = s.Policy

	for {
		line, idle, err := s.Editor.ReadLine(sess, s.Prompt)
		if err != nil || idle {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		sink := pshellcli.NewSink(func(partial string) {
			pshellline.WriteLine(os.Stdout, partial, crlf)
		})
		pshellcli.Dispatch(s.Registry, line, s.FirstArgPos, sink)
		pshellline.WriteLine(os.Stdout, sink.String(), crlf)

		if s.quitRequested() {
			return nil
		}
	}
}
