package pshellserver

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/pshell-go/pshell/internal/pshelldir"
	"github.com/pshell-go/pshell/pkg/pshelllog"
	"github.com/pshell-go/pshell/pkg/pshellmsg"
	"golang.org/x/sys/unix"
)

// bindUDPPort binds a UDP PacketConn, walking forward through up to
// maxPortAttempts ports on an address-in-use conflict (spec §4.E / §7).
func bindUDPPort(host string, port int) (net.PacketConn, int, error) {
	for i := 0; i <= maxPortAttempts; i++ {
		candidate := port + i
		addr := net.JoinHostPort(host, strconv.Itoa(candidate))
		conn, err := net.ListenPacket("udp", addr)
		if err == nil {
			if i > 0 {
				pshelllog.Warningf("pshellserver: udp port %d in use, bound %d instead", port, candidate)
			}
			bound := candidate
			if a, ok := conn.LocalAddr().(*net.UDPAddr); ok {
				bound = a.Port
			}
			return conn, bound, nil
		}
	}
	return nil, 0, fmt.Errorf("pshellserver: exhausted %d udp ports starting at %d", maxPortAttempts, port)
}

// enableBroadcast sets SO_BROADCAST on the underlying socket so the
// server can receive (and reply via) broadcast destinations.
func enableBroadcast(conn net.PacketConn) {
	uc, ok := conn.(*net.UDPConn)
	if !ok {
		return
	}
	sc, err := uc.SyscallConn()
	if err != nil {
		return
	}
	sc.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
}

// runUDP is the UDP receive loop (spec §4.E): bind, recv datagram,
// dispatch, reply.
func (s *Server) runUDP(host string, port int) error {
	bindHost, bcast := resolveBindHost(host)

	conn, boundPort, err := bindUDPPort(bindHost, port)
	if err != nil {
		return err
	}
	if bcast {
		enableBroadcast(conn)
	}

	s.mu.Lock()
	s.closeListener = conn.Close
	s.BoundPort = boundPort
	s.mu.Unlock()

	lock, err := pshelldir.AcquireInet(s.CoordDir, s.Name, "udp", bindHost, boundPort)
	if err != nil {
		pshelllog.Warningf("pshellserver: could not acquire udp endpoint lock: %v", err)
	} else {
		s.mu.Lock()
		s.lock = lock
		s.mu.Unlock()
	}

	pshelllog.Infof("pshellserver: %s listening udp %s:%d", s.Name, bindHost, boundPort)

	buf := make([]byte, s.MaxPayloadSize+pshellmsg.HeaderSize)
	for {
		// updatePayloadSize (spec §4.E) can raise s.MaxPayloadSize between
		// reads; grow the buffer to match so a larger follow-up datagram
		// isn't silently truncated.
		s.mu.Lock()
		want := s.MaxPayloadSize + pshellmsg.HeaderSize
		s.mu.Unlock()
		if want > len(buf) {
			buf = make([]byte, want)
		}

		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		msg, err := pshellmsg.Unpack(buf[:n])
		if err != nil {
			pshelllog.Warningf("pshellserver: malformed datagram from %s: %v", addr, err)
			continue
		}

		reply := s.HandleRequest(msg, func(partial string) {
			if !msg.RespNeeded {
				return
			}
			pm := pshellmsg.Message{MsgType: pshellmsg.CommandComplete, SeqNum: msg.SeqNum, Payload: partial}
			conn.WriteTo(pshellmsg.Pack(pm), addr)
		})

		if msg.RespNeeded {
			conn.WriteTo(pshellmsg.Pack(reply), addr)
		}
	}
}
