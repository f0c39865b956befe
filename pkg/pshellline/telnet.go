package pshellline

import "io"

// Telnet command/option bytes (RFC 854 / RFC 857-858), named directly
// rather than imported from a client-side telnet library: the pack's
// retrieval of github.com/ziutek/telnet kept only its go.mod, not its
// sources, so its exported API can't be grounded -- see DESIGN.md.
const (
	telnetIAC  = 0xFF
	telnetWILL = 0xFB
	telnetWONT = 0xFC
	telnetDO   = 0xFD
	telnetDONT = 0xFE

	telnetOptEcho   = 0x01
	telnetOptSuppGA = 0x03
)

// negotiationHandshake is the exact 12-byte sequence sent on connect for
// socket transports (spec §4.B): WILL SUPPRESS-GO-AHEAD, WILL ECHO,
// DO SUPPRESS-GO-AHEAD, DO ECHO.
var negotiationHandshake = []byte{
	telnetIAC, telnetWILL, telnetOptSuppGA,
	telnetIAC, telnetWILL, telnetOptEcho,
	telnetIAC, telnetDO, telnetOptSuppGA,
	telnetIAC, telnetDO, telnetOptEcho,
}

// NegotiateTelnet writes the handshake to w and discards a same-length
// reply read from r, putting a telnet client into character-at-a-time
// mode.
func NegotiateTelnet(r io.Reader, w io.Writer) error {
	if _, err := w.Write(negotiationHandshake); err != nil {
		return err
	}

	discard := make([]byte, len(negotiationHandshake))
	_, err := io.ReadFull(r, discard)
	return err
}
