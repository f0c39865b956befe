package pshellline

import (
	"io"
	"strings"
)

// WriteLine writes s to w, translating every "\n" to "\r\n" when crlf is
// true (spec §4.B: "every newline written to a socket transport must be
// translated to CR+LF"). The LOCAL transport passes crlf=true only when it
// has put the terminal into raw mode, where the terminal driver no longer
// translates newlines itself.
func WriteLine(w io.Writer, s string, crlf bool) (int, error) {
	if !crlf || !strings.Contains(s, "\n") {
		return io.WriteString(w, s)
	}
	return io.WriteString(w, strings.ReplaceAll(s, "\n", "\r\n"))
}
