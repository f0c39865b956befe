package pshellserver_test

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/pshell-go/pshell/pkg/pshellcli"
	"github.com/pshell-go/pshell/pkg/pshellmsg"
	"github.com/pshell-go/pshell/pkg/pshellserver"
)

// TestUDPEndToEnd exercises the real UDP transport loop: bind on an
// ephemeral port, send a controlCommand datagram, read the reply.
func TestUDPEndToEnd(t *testing.T) {
	s := pshellserver.NewServer("demo")
	s.CoordDir = t.TempDir()
	s.AddCommand(helloCommand())

	if err := s.StartServer(pshellserver.UDP, pshellserver.NonBlocking, "localhost", 0); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	defer s.CleanupResources()

	if s.BoundPort == 0 {
		t.Fatalf("BoundPort was not set")
	}

	conn, err := net.Dial("udp", net.JoinHostPort("127.0.0.1", strconv.Itoa(s.BoundPort)))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	req := pshellmsg.Message{MsgType: pshellmsg.ControlCommand, RespNeeded: true, DataNeeded: true, SeqNum: 1, Payload: "hello a b"}
	if _, err := conn.Write(pshellmsg.Pack(req)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	reply, err := pshellmsg.Unpack(buf[:n])
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if reply.MsgType != pshellmsg.CommandComplete {
		t.Fatalf("MsgType = %v, want CommandComplete", reply.MsgType)
	}
	if reply.SeqNum != 1 {
		t.Fatalf("SeqNum = %d, want 1", reply.SeqNum)
	}
}

// TestUnixNameCollision mirrors spec §8 scenario 5: two unix servers
// requesting the same name "demo" end up bound as "demo" and "demo1".
func TestUnixNameCollision(t *testing.T) {
	dir := t.TempDir()

	s1 := pshellserver.NewServer("demo")
	s1.CoordDir = dir
	if err := s1.StartServer(pshellserver.Unix, pshellserver.NonBlocking, "", 0); err != nil {
		t.Fatalf("s1 StartServer: %v", err)
	}
	defer s1.CleanupResources()

	s2 := pshellserver.NewServer("demo")
	s2.CoordDir = dir
	if err := s2.StartServer(pshellserver.Unix, pshellserver.NonBlocking, "", 0); err != nil {
		t.Fatalf("s2 StartServer: %v", err)
	}
	defer s2.CleanupResources()

	if s1.EffectiveName != "demo" {
		t.Fatalf("s1.EffectiveName = %q, want demo", s1.EffectiveName)
	}
	if s2.EffectiveName != "demo1" {
		t.Fatalf("s2.EffectiveName = %q, want demo1", s2.EffectiveName)
	}
}

func TestRunCommandHelpersDispatchWithoutTransport(t *testing.T) {
	s := pshellserver.NewServer("demo")
	s.AddCommand(pshellcli.Command{
		Name: "ping", Description: "ping",
		Callback: func(sink *pshellcli.Sink, args []string) { sink.Printf(false, "pong") },
	})

	out := s.RunCommand("ping")
	if out != "pong" {
		t.Fatalf("RunCommand = %q, want pong", out)
	}
}
