package pshellserver

import (
	"strconv"
	"strings"

	"github.com/pshell-go/pshell/pkg/pshellcli"
	"github.com/pshell-go/pshell/pkg/pshellmsg"
)

// HandleRequest is the per-message dispatch path (spec §4.E "Dispatch
// path"). It answers introspection queries directly, or tokenizes and
// dispatches a user/control command through the registry, returning the
// reply message with the same seqNum.
//
// onPartial, if non-nil, is called for every flush() the callback
// performs mid-dispatch (wheel/march/explicit flush), letting the
// transport loop ship an early, partial reply so a waiting control
// client's timeout doesn't expire on long-running commands (spec §4.D).
func (s *Server) HandleRequest(msg pshellmsg.Message, onPartial func(payload string)) pshellmsg.Message {
	sink := pshellcli.NewSink(onPartial)
	reply := pshellmsg.Message{SeqNum: msg.SeqNum}

	switch msg.MsgType {
	case pshellmsg.QueryVersion:
		sink.Printf(false, "%s", Version)
		reply.MsgType = pshellmsg.CommandComplete

	case pshellmsg.QueryPayloadSize:
		s.mu.Lock()
		size := s.MaxPayloadSize
		s.mu.Unlock()
		sink.Printf(false, "%d", size)
		reply.MsgType = pshellmsg.CommandComplete

	case pshellmsg.UpdatePayloadSize:
		s.mu.Lock()
		if n, err := strconv.Atoi(strings.TrimSpace(msg.Payload)); err == nil && n > 0 {
			s.MaxPayloadSize = n
		}
		size := s.MaxPayloadSize
		s.mu.Unlock()
		sink.Printf(false, "%d", size)
		reply.MsgType = pshellmsg.CommandComplete

	case pshellmsg.QueryName:
		s.mu.Lock()
		name := s.Name
		if s.EffectiveName != "" {
			name = s.EffectiveName
		}
		s.mu.Unlock()
		sink.Printf(false, "%s", name)
		reply.MsgType = pshellmsg.CommandComplete

	case pshellmsg.QueryTitle:
		sink.Printf(false, "%s", s.Title)
		reply.MsgType = pshellmsg.CommandComplete

	case pshellmsg.QueryBanner:
		sink.Printf(false, "%s", s.Banner)
		reply.MsgType = pshellmsg.CommandComplete

	case pshellmsg.QueryPrompt:
		sink.Printf(false, "%s", s.Prompt)
		reply.MsgType = pshellmsg.CommandComplete

	case pshellmsg.QueryCommands1:
		sink.Printf(false, "%s", s.commandsListing())
		reply.MsgType = pshellmsg.CommandComplete

	case pshellmsg.QueryCommands2:
		sink.Printf(false, "%s", strings.Join(s.Registry.Names(), "/"))
		reply.MsgType = pshellmsg.CommandComplete

	default: // UserCommand, ControlCommand
		status := pshellcli.Dispatch(s.Registry, msg.Payload, s.FirstArgPos, sink)
		reply.MsgType = statusMsgType(status)
	}

	reply.Payload = sink.String()
	return reply
}

func statusMsgType(st pshellcli.Status) pshellmsg.MsgType {
	switch st {
	case pshellcli.StatusNotFound:
		return pshellmsg.CommandNotFound
	case pshellcli.StatusInvalidArgCount:
		return pshellmsg.InvalidArgCount
	default:
		return pshellmsg.CommandComplete
	}
}
