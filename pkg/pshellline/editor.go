// Package pshellline implements the PSHELL line editor (component B): a
// single-threaded cooperative state machine over a byte stream providing
// raw-mode editing, history recall, two TAB-completion policies, an idle
// session timeout, and the telnet option negotiation used by socket
// transports.
//
// There is no direct teacher analogue for this state machine -- the
// teacher's own `goreadline` package delegates everything to a cgo binding
// of GNU libreadline, which can't express the spec's exact key table in
// portable Go. The shape of a cooperative, one-line-at-a-time editor loop
// is instead grounded on cmd/minimega/main.go's cliLocal loop (readline,
// dispatch, repeat). This package does not switch a terminal into raw
// mode itself; callers that read a real terminal do so with
// golang.org/x/term (pkg/pshellserver's LOCAL transport and cmd/pshell).
package pshellline

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// ErrIdleTimeout is the error value for an idle session timeout. ReadLine
// does not return it: an elapsed idle timeout is reported through ReadLine's
// idle result, with a nil error.
var ErrIdleTimeout = errors.New("pshellline: idle session timeout")

const defaultMaxLineLength = 1024

// KeywordsFunc returns the current first-token completion keyword set. It
// is called fresh on every TAB press so that a server's live command
// registry (which may grow after the editor is constructed) is always
// reflected.
type KeywordsFunc func() []string

// Editor drives one interactive line-editing session. It holds no
// per-connection I/O state itself -- ReadLine takes the reader/writer for
// the session -- so a single Editor (and its Policy/IdleTimeout/Keywords
// configuration) may be reused across many TCP sessions on the same
// server, matching spec §9's note that the editor should be configured
// per server, not global.
type Editor struct {
	Policy        Policy
	IdleTimeout   time.Duration
	MaxLineLength int
	Keywords      KeywordsFunc

	History *History
}

// NewEditor returns an Editor with the FAST completion policy and no idle
// timeout, matching the spec's stated defaults.
func NewEditor() *Editor {
	return &Editor{
		Policy:        PolicyFast,
		MaxLineLength: defaultMaxLineLength,
		History:       NewHistory(),
	}
}

type deadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// Session is one ReadLine invocation's mutable state: the in-progress
// line, cursor position, and I/O endpoints. IsTTY controls Ctrl-C
// semantics (spec §4.B): true raises SIGINT, false treats ^C as ordinary
// input (socket transports have no controlling TTY for the process).
type Session struct {
	R     io.Reader
	W     io.Writer
	IsTTY bool
	CRLF  bool // translate outgoing \n to \r\n (socket transports)

	// Interrupt, if set, is called when Ctrl-C arrives on a TTY session
	// (spec: "raise the process interrupt signal"). Left nil is a no-op --
	// callers running as a genuine foreground TTY process should set this
	// to something like `func() { p, _ := os.FindProcess(os.Getpid());
	// p.Signal(os.Interrupt) }`.
	Interrupt func()
}

// ReadLine prompts and reads one edited line from sess. It returns the
// committed line (without a trailing newline), or idle=true if the
// configured idle timeout elapsed first.
func (e *Editor) ReadLine(sess *Session, prompt string) (line string, idle bool, err error) {
	buf := []rune{}
	cursor := 0
	tabPresses := 0
	var lastPartial string

	e.redraw(sess, prompt, buf, cursor)

	for {
		b, rerr := e.readByte(sess.R)
		if rerr != nil {
			var ne net.Error
			if errors.As(rerr, &ne) && ne.Timeout() {
				WriteLine(sess.W, "\r\nIdle session timeout\r\n", false)
				return "", true, nil
			}
			return "", false, rerr
		}

		if b != 0x09 {
			tabPresses = 0
		}

		switch {
		case b == 0x0D: // CR: commit
			WriteLine(sess.W, "\r\n", false)
			s := string(buf)
			e.History.Add(s)
			return s, false, nil

		case b == 0x7F || b == 0x08: // Backspace
			if cursor > 0 {
				buf = append(buf[:cursor-1], buf[cursor:]...)
				cursor--
				e.redraw(sess, prompt, buf, cursor)
			}

		case b == 0x01: // Ctrl-A: home
			cursor = 0
			e.redraw(sess, prompt, buf, cursor)

		case b == 0x05: // Ctrl-E: end
			cursor = len(buf)
			e.redraw(sess, prompt, buf, cursor)

		case b == 0x0B: // Ctrl-K: kill to end of line
			buf = buf[:cursor]
			e.redraw(sess, prompt, buf, cursor)

		case b == 0x15: // Ctrl-U: kill whole line
			buf = nil
			cursor = 0
			e.redraw(sess, prompt, buf, cursor)

		case b == 0x03: // Ctrl-C
			if sess.IsTTY {
				if sess.Interrupt != nil {
					sess.Interrupt()
				}
			} else {
				buf = insertRune(buf, cursor, rune(b))
				cursor++
				e.redraw(sess, prompt, buf, cursor)
			}

		case b == 0x09: // TAB
			tabPresses++
			buf, cursor, lastPartial = e.handleTab(sess, prompt, buf, cursor, tabPresses, lastPartial)

		case b == 0x1B: // ESC: start of an escape sequence
			seq, serr := e.readEscapeSeq(sess.R)
			if serr != nil {
				return "", false, serr
			}
			switch seq {
			case escHome:
				cursor = 0
			case escEnd:
				cursor = len(buf)
			case escLeft:
				if cursor > 0 {
					cursor--
				}
			case escRight:
				if cursor < len(buf) {
					cursor++
				}
			case escDelete:
				if cursor < len(buf) {
					buf = append(buf[:cursor], buf[cursor+1:]...)
				}
			case escUp:
				if h, ok := e.History.Up(); ok {
					buf = []rune(h)
					cursor = len(buf)
				}
			case escDown:
				if h, ok := e.History.Down(); ok {
					buf = []rune(h)
					cursor = len(buf)
				}
			}
			e.redraw(sess, prompt, buf, cursor)

		case b >= 0x20 && b <= 0x7E: // printable
			if e.maxLen() > 0 && len(buf) >= e.maxLen() {
				continue
			}
			buf = insertRune(buf, cursor, rune(b))
			cursor++
			e.redraw(sess, prompt, buf, cursor)
		}
	}
}

func (e *Editor) maxLen() int {
	if e.MaxLineLength > 0 {
		return e.MaxLineLength
	}
	return defaultMaxLineLength
}

func insertRune(buf []rune, pos int, r rune) []rune {
	buf = append(buf, 0)
	copy(buf[pos+1:], buf[pos:])
	buf[pos] = r
	return buf
}

// handleTab applies the configured completion Policy to the first
// whitespace-delimited token of buf (spec §4.B: completion only ever
// considers the first token).
func (e *Editor) handleTab(sess *Session, prompt string, buf []rune, cursor, tabPresses int, lastPartial string) ([]rune, int, string) {
	// Completion only applies while editing the first token.
	firstSpace := -1
	for i, r := range buf {
		if r == ' ' {
			firstSpace = i
			break
		}
	}
	if firstSpace != -1 && cursor > firstSpace {
		return buf, cursor, lastPartial
	}

	partial := string(buf[:cursor])
	if partial != lastPartial {
		tabPresses = 1
	}

	var keywords []string
	if e.Keywords != nil {
		keywords = e.Keywords()
	}

	res := complete(e.Policy, keywords, partial, tabPresses)

	if res.insert != "" {
		for _, r := range res.insert {
			buf = insertRune(buf, cursor, r)
			cursor++
		}
	}
	if res.trailingSpace {
		buf = insertRune(buf, cursor, ' ')
		cursor++
	}

	e.redraw(sess, prompt, buf, cursor)
	if len(res.list) > 0 {
		WriteLine(sess.W, "\r\n"+joinColumns(res.list)+"\r\n", false)
		e.redraw(sess, prompt, buf, cursor)
	}

	return buf, cursor, partial
}

func joinColumns(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += "  "
		}
		out += w
	}
	return out
}

// redraw rewrites the full prompt+line and repositions the cursor. This
// favors simplicity and correctness (a full redraw is always consistent)
// over the minimal-diff redraw a production readline would use.
func (e *Editor) redraw(sess *Session, prompt string, buf []rune, cursor int) {
	out := "\r\x1b[K" + prompt + string(buf)
	if back := len(buf) - cursor; back > 0 {
		out += fmt.Sprintf("\x1b[%dD", back)
	}
	WriteLine(sess.W, out, sess.CRLF)
}

func (e *Editor) readByte(r io.Reader) (byte, error) {
	if e.IdleTimeout > 0 {
		if dr, ok := r.(deadlineReader); ok {
			dr.SetReadDeadline(time.Now().Add(e.IdleTimeout))
		}
	}

	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

type escSeq int

const (
	escNone escSeq = iota
	escUp
	escDown
	escLeft
	escRight
	escHome
	escEnd
	escDelete
)

// readEscapeSeq consumes the bytes following an ESC and classifies the
// sequence (spec §4.B: ESC[A/B/C/D, ESC[1~/4~/3~, ESC O H/F).
func (e *Editor) readEscapeSeq(r io.Reader) (escSeq, error) {
	b1, err := e.readByte(r)
	if err != nil {
		return escNone, err
	}

	switch b1 {
	case 'O':
		b2, err := e.readByte(r)
		if err != nil {
			return escNone, err
		}
		switch b2 {
		case 'H':
			return escHome, nil
		case 'F':
			return escEnd, nil
		}
		return escNone, nil

	case '[':
		b2, err := e.readByte(r)
		if err != nil {
			return escNone, err
		}
		switch b2 {
		case 'A':
			return escUp, nil
		case 'B':
			return escDown, nil
		case 'C':
			return escRight, nil
		case 'D':
			return escLeft, nil
		case '1', '4', '3':
			b3, err := e.readByte(r)
			if err != nil {
				return escNone, err
			}
			if b3 != '~' {
				return escNone, nil
			}
			switch b2 {
			case '1':
				return escHome, nil
			case '4':
				return escEnd, nil
			case '3':
				return escDelete, nil
			}
		}
	}

	return escNone, nil
}
