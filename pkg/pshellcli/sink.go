package pshellcli

import (
	"fmt"
	"strings"
)

// wheelChars are the four characters rotated through by Wheel.
const wheelChars = "|/-\\"

// Sink is the output sink a callback writes to (component D). Its
// emissions accumulate in an internal buffer; for datagram transports the
// server ships the buffer back as the reply payload, flushing and
// resetting it early when Flush (or March/Wheel, which call Flush) is
// used to keep a waiting control client's socket timeout alive.
//
// A Sink is owned by whichever goroutine is currently dispatching a
// command and must not escape the callback (spec §5) -- callers should
// construct one per dispatch, not share or pool them.
type Sink struct {
	buf       strings.Builder
	wheelPos  int
	onFlush   func(partial string)
}

// NewSink returns a Sink. onFlush, if non-nil, is called by Flush with the
// buffered text so far (and the buffer is then cleared); datagram
// transports wire this up to send an intermediate reply. Stream transports
// (TCP/LOCAL) may instead ignore Flush and read the final buffer with
// String after the callback returns, since they write through directly as
// emissions happen -- see pkg/pshellserver for the wiring of each
// transport.
func NewSink(onFlush func(partial string)) *Sink {
	return &Sink{onFlush: onFlush}
}

// Printf appends a formatted message to the sink, optionally followed by a
// newline.
func (s *Sink) Printf(newline bool, format string, args ...interface{}) {
	fmt.Fprintf(&s.buf, format, args...)
	if newline {
		s.buf.WriteByte('\n')
	}
}

// Flush forces an intermediate reply for datagram transports; the sink's
// buffer is cleared afterward so later emissions form the next reply.
func (s *Sink) Flush() {
	if s.onFlush == nil {
		return
	}
	partial := s.buf.String()
	s.buf.Reset()
	s.onFlush(partial)
}

// March emits s, then flushes. Long-running callbacks use this to keep a
// waiting control client's socket timeout alive via early, partial
// replies (spec §4.D).
func (s *Sink) March(text string) {
	s.buf.WriteString(text)
	s.Flush()
}

// Wheel emits "\r{prefix}{next spinner character}", then flushes.
func (s *Sink) Wheel(prefix string) {
	s.buf.WriteByte('\r')
	s.buf.WriteString(prefix)
	s.buf.WriteByte(wheelChars[s.wheelPos%len(wheelChars)])
	s.wheelPos++
	s.Flush()
}

// String returns the sink's current buffered output without clearing it.
func (s *Sink) String() string {
	return s.buf.String()
}
