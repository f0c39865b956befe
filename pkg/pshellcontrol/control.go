// Package pshellcontrol implements the PSHELL control client (component
// F): per-destination sessions, request/response over the wire protocol
// in pkg/pshellmsg with late-reply discarding, multicast groups, and
// broadcast fire-and-forget.
//
// Grounded on pkg/miniclient/client.go's per-connection mutex-guarded
// request/response shape and internal/meshage/client.go's per-
// destination dial-and-retry, but the exact sequence-number discipline
// (sendSeqNum = last seqNum + 1, reset-not-bump on accept, discard
// received < sent) follows the existing Go pshell port's
// PshellControl.go sendCommand almost line for line -- that file is the
// most directly authoritative source for this one piece of wire
// behavior, since no teacher package implements late-reply discarding at
// all.
package pshellcontrol

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pshell-go/pshell/internal/pshelldir"
	"github.com/pshell-go/pshell/pkg/pshelllog"
)

// SID identifies a connected control destination.
type SID int

// InvalidSID is returned by ConnectServer on failure.
const InvalidSID SID = -1

// NoWait is the fire-and-forget timeout value (spec §4.F).
const NoWait = 0

// UnixPort is passed as the port argument to ConnectServer to select the
// UNIX-domain transport instead of UDP (mirrors the existing Go port's
// "unix" port string, spelled as a sentinel int here since Go callers
// don't share Python's dynamic typing).
const UnixPort = -1

const defaultMaxPayload = 64 * 1024
const introspectionTimeout = 5 * time.Second

// destination is one connected control session (spec §3 "Control
// destination").
type destination struct {
	mu sync.Mutex

	controlName string
	conn        net.Conn
	isUnix      bool
	sourcePath  string
	lock        *pshelldir.Lock

	defaultTimeout time.Duration
	seqNum         uint32
	isBroadcast    bool
}

// Client owns a set of named control destinations plus the multicast
// group table (spec §3/§4.F).
type Client struct {
	mu        sync.Mutex
	byName    map[string]SID
	sessions  map[SID]*destination
	nextSID   SID
	multicast map[string]map[SID]bool
	CoordDir  string
}

// NewClient returns an empty control client.
func NewClient() *Client {
	return &Client{
		byName:    map[string]SID{},
		sessions:  map[SID]*destination{},
		multicast: map[string]map[SID]bool{},
		CoordDir:  pshelldir.DefaultDir,
	}
}

// isBroadcastHost reports whether host's last dotted-quad octet is 255
// (spec §4.F: "If the destination IP's last octet is 255...").
func isBroadcastHost(host string) bool {
	return strings.HasSuffix(host, ".255")
}

// ConnectServer connects to a server by UDP host:port (port >= 0) or by
// UNIX server name (port == UnixPort, remoteServer is the server's
// effective name). defaultTimeout is in milliseconds; NoWait (0) means
// every send on this session fire-and-forgets unless overridden.
func (c *Client) ConnectServer(controlName, remoteServer string, port int, defaultTimeoutMS int) SID {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[controlName]; exists {
		pshelllog.Errorf("pshellcontrol: controlName %q already connected", controlName)
		return InvalidSID
	}

	dest := &destination{
		controlName:    controlName,
		defaultTimeout: time.Duration(defaultTimeoutMS) * time.Millisecond,
	}

	if port == UnixPort {
		conn, sourcePath, lock, err := dialUnix(c.CoordDir, remoteServer)
		if err != nil {
			pshelllog.Errorf("pshellcontrol: connect %q (unix %s): %v", controlName, remoteServer, err)
			return InvalidSID
		}
		dest.conn = conn
		dest.isUnix = true
		dest.sourcePath = sourcePath
		dest.lock = lock
	} else {
		addr := net.JoinHostPort(remoteServer, fmt.Sprintf("%d", port))
		conn, err := net.Dial("udp", addr)
		if err != nil {
			pshelllog.Errorf("pshellcontrol: connect %q (udp %s): %v", controlName, addr, err)
			return InvalidSID
		}
		dest.conn = conn
		if isBroadcastHost(remoteServer) {
			dest.isBroadcast = true
			dest.defaultTimeout = 0
			if uc, ok := conn.(*net.UDPConn); ok {
				enableBroadcast(uc)
			}
		}
	}

	sid := c.nextSID
	c.nextSID++
	c.byName[controlName] = sid
	c.sessions[sid] = dest
	return sid
}

// dialUnix dials a UNIX datagram server, binding a uniquely-named source
// socket under dir (spec §4.F: "<serverName>-control<rand>", retrying
// with a new random suffix on collision").
func dialUnix(dir, serverName string) (net.Conn, string, *pshelldir.Lock, error) {
	if err := pshelldir.Ensure(dir); err != nil {
		return nil, "", nil, err
	}
	raddr := &net.UnixAddr{Name: filepath.Join(dir, serverName), Net: "unixgram"}

	for attempt := 0; attempt < 100; attempt++ {
		name := fmt.Sprintf("%s-control%s", serverName, pshelldir.RandomSuffix())
		sourcePath := filepath.Join(dir, name)
		laddr := &net.UnixAddr{Name: sourcePath, Net: "unixgram"}

		conn, err := net.DialUnix("unixgram", laddr, raddr)
		if err != nil {
			if strings.Contains(err.Error(), "address already in use") {
				continue
			}
			return nil, "", nil, err
		}

		lock, lerr := pshelldir.Acquire(dir, name+".lock")
		if lerr != nil {
			pshelllog.Warningf("pshellcontrol: could not lock source socket %s: %v", sourcePath, lerr)
		}
		return conn, sourcePath, lock, nil
	}
	return nil, "", nil, fmt.Errorf("pshellcontrol: exhausted source-socket name attempts for %s", serverName)
}

// DisconnectServer tears down one session (spec §3 Control destination
// lifecycle): for UNIX destinations this also removes the bound source
// socket file and its lockfile.
func (c *Client) DisconnectServer(sid SID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectLocked(sid)
}

func (c *Client) disconnectLocked(sid SID) {
	dest, ok := c.sessions[sid]
	if !ok {
		return
	}
	dest.conn.Close()
	if dest.isUnix {
		if dest.lock != nil {
			dest.lock.Release()
		}
		removeSocketFile(dest.sourcePath)
	}
	delete(c.sessions, sid)
	delete(c.byName, dest.controlName)
	for _, group := range c.multicast {
		delete(group, sid)
	}
}

// DisconnectAllServers tears down every connected session.
func (c *Client) DisconnectAllServers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sid := range c.sessions {
		c.disconnectLocked(sid)
	}
}

// SetDefaultTimeout updates sid's default timeout (milliseconds) for
// future sends that don't specify an override.
func (c *Client) SetDefaultTimeout(sid SID, defaultTimeoutMS int) {
	c.mu.Lock()
	dest, ok := c.sessions[sid]
	c.mu.Unlock()
	if !ok {
		return
	}
	dest.mu.Lock()
	dest.defaultTimeout = time.Duration(defaultTimeoutMS) * time.Millisecond
	dest.mu.Unlock()
}

func (c *Client) lookup(sid SID) (*destination, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.sessions[sid]
	return d, ok
}
