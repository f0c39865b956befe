package pshellserver

import (
	"errors"
	"net"
	"os"
	"path/filepath"

	"github.com/pshell-go/pshell/internal/pshelldir"
	"github.com/pshell-go/pshell/pkg/pshelllog"
	"github.com/pshell-go/pshell/pkg/pshellmsg"
)

// runUnix is the UNIX-datagram receive loop (spec §4.E / §4.G): pick a
// unique socket name under the coordination directory (walking
// <name>1, <name>2, ... on collision, after reclaiming any stale
// sibling), bind, recv datagram, dispatch, reply.
func (s *Server) runUnix() error {
	name, err := pshelldir.UniqueUnixName(s.CoordDir, s.Name, maxUnixSuffix)
	if err != nil {
		return err
	}
	if name != s.Name {
		pshelllog.Warningf("pshellserver: unix name %q in use, bound %q instead", s.Name, name)
	}
	s.mu.Lock()
	s.EffectiveName = name
	s.mu.Unlock()

	if err := pshelldir.Ensure(s.CoordDir); err != nil {
		return err
	}
	path := filepath.Join(s.CoordDir, name)

	conn, err := net.ListenPacket("unixgram", path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.closeListener = func() error {
		conn.Close()
		return os.Remove(path)
	}
	s.mu.Unlock()

	lock, err := pshelldir.AcquireUnix(s.CoordDir, name)
	if err != nil {
		pshelllog.Warningf("pshellserver: could not acquire unix endpoint lock: %v", err)
	} else {
		s.mu.Lock()
		s.lock = lock
		s.mu.Unlock()
	}

	pshelllog.Infof("pshellserver: %s listening unix %s", name, path)

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
			pshelllog.Warningf("pshellserver: malformed datagram from %v: %v", addr, err)
			continue
		}

		reply := s.HandleRequest(msg, func(partial string) {
			if !msg.RespNeeded || addr == nil {
				return
			}
			pm := pshellmsg.Message{MsgType: pshellmsg.CommandComplete, SeqNum: msg.SeqNum, Payload: partial}
			conn.WriteTo(pshellmsg.Pack(pm), addr)
		})

		if msg.RespNeeded && addr != nil {
			conn.WriteTo(pshellmsg.Pack(reply), addr)
		}
	}
}
