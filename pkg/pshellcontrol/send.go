package pshellcontrol

import (
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/pshell-go/pshell/pkg/pshelllog"
	"github.com/pshell-go/pshell/pkg/pshellmsg"
)

// ResultCode is the flat return-code enum shared by all send variants
// (spec §4.F).
type ResultCode int

const (
	CommandSuccess ResultCode = iota
	CommandNotFound
	CommandInvalidArgCount
	SocketSendFailure
	SocketSelectFailure
	SocketReceiveFailure
	SocketTimeout
	SocketNotConnected
)

func (r ResultCode) String() string {
	switch r {
	case CommandSuccess:
		return "pshellCommandSuccess"
	case CommandNotFound:
		return "pshellCommandNotFound"
	case CommandInvalidArgCount:
		return "pshellCommandInvalidArgCount"
	case SocketSendFailure:
		return "pshellSocketSendFailure"
	case SocketSelectFailure:
		return "pshellSocketSelectFailure"
	case SocketReceiveFailure:
		return "pshellSocketReceiveFailure"
	case SocketTimeout:
		return "pshellSocketTimeout"
	case SocketNotConnected:
		return "pshellSocketNotConnected"
	default:
		return "pshellUnknown"
	}
}

func enableBroadcast(conn *net.UDPConn) {
	sc, err := conn.SyscallConn()
	if err != nil {
		return
	}
	sc.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
}

func removeSocketFile(path string) {
	if path != "" {
		os.Remove(path)
	}
}

// sendCommand is the shared implementation behind all four send
// variants (spec §4.F). timeout <= 0 means fire-and-forget: respNeeded
// is false and no reply is awaited. Broadcast destinations always
// coerce to fire-and-forget regardless of the requested timeout (spec
// §8 "Broadcast coercion").
func (d *destination) sendCommand(command string, timeout time.Duration, dataNeeded bool) (ResultCode, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isBroadcast {
		timeout = NoWait
	}

	sendSeq := d.seqNum + 1
	respNeeded := timeout > 0

	msg := pshellmsg.Message{
		MsgType:    pshellmsg.ControlCommand,
		RespNeeded: respNeeded,
		DataNeeded: dataNeeded,
		SeqNum:     sendSeq,
		Payload:    command,
	}

	if _, err := d.conn.Write(pshellmsg.Pack(msg)); err != nil {
		return SocketSendFailure, ""
	}

	if !respNeeded {
		return CommandSuccess, ""
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, defaultMaxPayload)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return SocketTimeout, ""
		}
		d.conn.SetReadDeadline(deadline)

		n, err := d.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return SocketTimeout, ""
			}
			return SocketReceiveFailure, ""
		}

		reply, uerr := pshellmsg.Unpack(buf[:n])
		if uerr != nil {
			continue
		}

		if reply.SeqNum < sendSeq {
			pshelllog.Warningf("pshellcontrol: received seqNum %d does not match sent seqNum %d", reply.SeqNum, sendSeq)
			continue
		}

		// Accept. Reset to the sent value, not the received one, so the
		// counter stays aligned even across discards (spec §9).
		d.seqNum = sendSeq

		switch reply.MsgType {
		case pshellmsg.CommandNotFound:
			return CommandNotFound, reply.Payload
		case pshellmsg.InvalidArgCount:
			return CommandInvalidArgCount, reply.Payload
		default:
			return CommandSuccess, reply.Payload
		}
	}
}

// SendCommand sends command with sid's default timeout and discards any
// reply payload.
func (c *Client) SendCommand(sid SID, command string) ResultCode {
	d, ok := c.lookup(sid)
	if !ok {
		return SocketNotConnected
	}
	rc, _ := d.sendCommand(command, d.defaultTimeout, false)
	return rc
}

// SendCommandTimeout is SendCommand with a per-call timeout override, in
// milliseconds.
func (c *Client) SendCommandTimeout(sid SID, timeoutMS int, command string) ResultCode {
	d, ok := c.lookup(sid)
	if !ok {
		return SocketNotConnected
	}
	rc, _ := d.sendCommand(command, time.Duration(timeoutMS)*time.Millisecond, false)
	return rc
}

// SendCommandExtract sends command with sid's default timeout and
// returns the reply payload.
func (c *Client) SendCommandExtract(sid SID, command string) (ResultCode, string) {
	d, ok := c.lookup(sid)
	if !ok {
		return SocketNotConnected, ""
	}
	return d.sendCommand(command, d.defaultTimeout, true)
}

// SendCommandExtractTimeout is SendCommandExtract with a per-call timeout
// override, in milliseconds.
func (c *Client) SendCommandExtractTimeout(sid SID, timeoutMS int, command string) (ResultCode, string) {
	d, ok := c.lookup(sid)
	if !ok {
		return SocketNotConnected, ""
	}
	return d.sendCommand(command, time.Duration(timeoutMS)*time.Millisecond, true)
}

// extract issues an introspection query with a 5-second default timeout,
// optionally overridden by timeoutMS (spec §4.F, supplemented per
// SPEC_FULL.md with a per-call override).
func (c *Client) extract(sid SID, msgType pshellmsg.MsgType, timeoutMS ...int) (ResultCode, string) {
	d, ok := c.lookup(sid)
	if !ok {
		return SocketNotConnected, ""
	}
	timeout := introspectionTimeout
	if len(timeoutMS) > 0 {
		timeout = time.Duration(timeoutMS[0]) * time.Millisecond
	}
	return d.sendQuery(msgType, timeout)
}

// sendQuery is like sendCommand but for the bare introspection query
// message types, which carry no command payload.
func (d *destination) sendQuery(msgType pshellmsg.MsgType, timeout time.Duration) (ResultCode, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sendSeq := d.seqNum + 1
	msg := pshellmsg.Message{MsgType: msgType, RespNeeded: true, DataNeeded: true, SeqNum: sendSeq}

	if _, err := d.conn.Write(pshellmsg.Pack(msg)); err != nil {
		return SocketSendFailure, ""
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, defaultMaxPayload)
	for {
		if time.Until(deadline) <= 0 {
			return SocketTimeout, ""
		}
		d.conn.SetReadDeadline(deadline)
		n, err := d.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return SocketTimeout, ""
			}
			return SocketReceiveFailure, ""
		}
		reply, uerr := pshellmsg.Unpack(buf[:n])
		if uerr != nil {
			continue
		}
		if reply.SeqNum < sendSeq {
			continue
		}
		d.seqNum = sendSeq
		return CommandSuccess, reply.Payload
	}
}

// ExtractCommands, ExtractName, ExtractTitle, ExtractBanner, and
// ExtractPrompt issue the corresponding introspection query (spec
// §4.F), each accepting an optional timeout override in milliseconds.

func (c *Client) ExtractCommands(sid SID, timeoutMS ...int) (ResultCode, string) {
	return c.extract(sid, pshellmsg.QueryCommands1, timeoutMS...)
}

func (c *Client) ExtractName(sid SID, timeoutMS ...int) (ResultCode, string) {
	return c.extract(sid, pshellmsg.QueryName, timeoutMS...)
}

func (c *Client) ExtractTitle(sid SID, timeoutMS ...int) (ResultCode, string) {
	return c.extract(sid, pshellmsg.QueryTitle, timeoutMS...)
}

func (c *Client) ExtractBanner(sid SID, timeoutMS ...int) (ResultCode, string) {
	return c.extract(sid, pshellmsg.QueryBanner, timeoutMS...)
}

func (c *Client) ExtractPrompt(sid SID, timeoutMS ...int) (ResultCode, string) {
	return c.extract(sid, pshellmsg.QueryPrompt, timeoutMS...)
}
