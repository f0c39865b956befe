package pshellserver_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pshell-go/pshell/pkg/pshellcli"
	"github.com/pshell-go/pshell/pkg/pshellmsg"
	"github.com/pshell-go/pshell/pkg/pshellserver"
)

func helloCommand() pshellcli.Command {
	return pshellcli.Command{
		Name:        "hello",
		Description: "say hello",
		Usage:       "hello <arg1> [arg2...]",
		MinArgs:     1,
		MaxArgs:     20,
		ShowUsage:   true,
		Callback: func(sink *pshellcli.Sink, args []string) {
			sink.Printf(true, "hello command dispatched:")
			for i, a := range args {
				sink.Printf(true, "  argv[%d]: '%s'", i, a)
			}
		},
	}
}

// Scenario 1 (spec §8): hello dispatched with two args replies
// commandComplete with the expected payload prefix.
func TestScenarioHelloDispatch(t *testing.T) {
	s := pshellserver.NewServer("demo")
	if err := s.AddCommand(helloCommand()); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}

	req := pshellmsg.Message{MsgType: pshellmsg.ControlCommand, RespNeeded: true, DataNeeded: true, SeqNum: 1, Payload: "hello a b"}
	reply := s.HandleRequest(req, nil)

	if reply.MsgType != pshellmsg.CommandComplete {
		t.Fatalf("MsgType = %v, want CommandComplete", reply.MsgType)
	}
	if reply.SeqNum != 1 {
		t.Fatalf("SeqNum = %d, want 1", reply.SeqNum)
	}
	want := "hello command dispatched:\n  argv[0]: 'a'\n  argv[1]: 'b'\n"
	if !strings.HasPrefix(reply.Payload, want) {
		t.Fatalf("Payload = %q, want prefix %q", reply.Payload, want)
	}
}

// Scenario 2 (spec §8): below minArgs replies invalidArgCount with usage.
func TestScenarioHelloInvalidArgCount(t *testing.T) {
	s := pshellserver.NewServer("demo")
	if err := s.AddCommand(helloCommand()); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}

	req := pshellmsg.Message{MsgType: pshellmsg.ControlCommand, RespNeeded: true, SeqNum: 2, Payload: "hello"}
	reply := s.HandleRequest(req, nil)

	if reply.MsgType != pshellmsg.InvalidArgCount {
		t.Fatalf("MsgType = %v, want InvalidArgCount", reply.MsgType)
	}
	if !strings.Contains(reply.Payload, "hello") {
		t.Fatalf("Payload = %q, want usage mentioning 'hello'", reply.Payload)
	}
}

// Scenario 3 (spec §8): ambiguous abbreviation between hello/help replies
// commandNotFound with an ambiguity message.
func TestScenarioAmbiguousAbbreviation(t *testing.T) {
	s := pshellserver.NewServer("demo")
	s.AddCommand(helloCommand())
	s.AddCommand(pshellcli.Command{
		Name: "help", Description: "help",
		Callback: func(sink *pshellcli.Sink, args []string) {},
	})

	req := pshellmsg.Message{MsgType: pshellmsg.ControlCommand, RespNeeded: true, SeqNum: 3, Payload: "hel"}
	reply := s.HandleRequest(req, nil)

	if reply.MsgType != pshellmsg.CommandNotFound {
		t.Fatalf("MsgType = %v, want CommandNotFound", reply.MsgType)
	}
	if !strings.Contains(reply.Payload, "Ambiguous command abbreviation: 'hel'") {
		t.Fatalf("Payload = %q", reply.Payload)
	}
}

func TestIntrospectionQueries(t *testing.T) {
	s := pshellserver.NewServer("demo")
	s.Title = "Demo Title"
	s.Banner = "Demo Banner"
	s.Prompt = "demo> "
	s.AddCommand(helloCommand())

	cases := []struct {
		msgType pshellmsg.MsgType
		want    string
	}{
		{pshellmsg.QueryName, "demo"},
		{pshellmsg.QueryTitle, "Demo Title"},
		{pshellmsg.QueryBanner, "Demo Banner"},
		{pshellmsg.QueryPrompt, "demo> "},
		{pshellmsg.QueryPayloadSize, fmt.Sprintf("%d", pshellmsg.DefaultMaxPayload)},
	}
	for _, c := range cases {
		reply := s.HandleRequest(pshellmsg.Message{MsgType: c.msgType}, nil)
		if reply.MsgType != pshellmsg.CommandComplete {
			t.Fatalf("query %v: MsgType = %v", c.msgType, reply.MsgType)
		}
		if reply.Payload != c.want {
			t.Fatalf("query %v: Payload = %q, want %q", c.msgType, reply.Payload, c.want)
		}
	}
}

func TestQueryCommands2SlashSeparated(t *testing.T) {
	s := pshellserver.NewServer("demo")
	s.AddCommand(helloCommand())
	s.AddCommand(pshellcli.Command{Name: "quit", Description: "quit", Callback: func(*pshellcli.Sink, []string) {}})

	reply := s.HandleRequest(pshellmsg.Message{MsgType: pshellmsg.QueryCommands2}, nil)
	if reply.Payload != "hello/quit" {
		t.Fatalf("Payload = %q, want hello/quit", reply.Payload)
	}
}
