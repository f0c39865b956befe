// Copyright (c) 2009, Ron Iovine, All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
//     * Redistributions of source code must retain the above copyright
//       notice, this list of conditions and the following disclaimer.
//     * Redistributions in binary form must reproduce the above copyright
//       notice, this list of conditions and the following disclaimer in the
//       documentation and/or other materials provided with the distribution.
//
// THIS SOFTWARE IS PROVIDED BY Ron Iovine ''AS IS'' AND ANY EXPRESS OR
// IMPLIED WARRANTIES ARE DISCLAIMED.

// Package pshellmsg implements the PSHELL wire protocol: a fixed 8-byte
// header followed by a variable-length UTF-8 payload. The same Message type
// and pack/unpack functions are shared by the server and the control
// client (pkg/pshellserver and pkg/pshellcontrol).
package pshellmsg

import (
	"encoding/binary"
	"fmt"
)

// MsgType enumerates the wire message types. The numeric codes are fixed
// by the historical protocol and must not be renumbered: some codes are
// overloaded, naming a query on request and a status on reply.
type MsgType byte

const (
	// CommandSuccess is also the request code for... nothing; on reply it
	// means the dispatched command's callback ran without a pre-dispatch
	// failure. Request-side, code 0 is unused.
	CommandSuccess MsgType = iota
	// QueryVersion requests the server's protocol version; on reply this
	// code instead means "command not found".
	QueryVersion
	// QueryPayloadSize requests the server's current max payload size; on
	// reply this code instead means "invalid argument count".
	QueryPayloadSize
	QueryName
	QueryCommands1
	QueryCommands2
	UpdatePayloadSize
	UserCommand
	CommandComplete
	QueryBanner
	QueryTitle
	QueryPrompt
	ControlCommand
)

// Reply-side aliases for the overloaded codes, so calling code can read
// intent at the call site instead of a bare numeric alias.
const (
	CommandNotFound     = QueryVersion
	InvalidArgCount     = QueryPayloadSize
)

func (t MsgType) String() string {
	switch t {
	case CommandSuccess:
		return "commandSuccess"
	case QueryVersion:
		return "queryVersion"
	case QueryPayloadSize:
		return "queryPayloadSize"
	case QueryName:
		return "queryName"
	case QueryCommands1:
		return "queryCommands1"
	case QueryCommands2:
		return "queryCommands2"
	case UpdatePayloadSize:
		return "updatePayloadSize"
	case UserCommand:
		return "userCommand"
	case CommandComplete:
		return "commandComplete"
	case QueryBanner:
		return "queryBanner"
	case QueryTitle:
		return "queryTitle"
	case QueryPrompt:
		return "queryPrompt"
	case ControlCommand:
		return "controlCommand"
	}

	return fmt.Sprintf("MsgType(%d)", byte(t))
}

// HeaderSize is the fixed size, in bytes, of every message header.
const HeaderSize = 8

// DefaultMaxPayload is the default cap on a message's payload, in bytes.
// Historical deployments used 4KiB; this implementation answers the
// queryPayloadSize query with the server's actual configured value rather
// than a compile-time constant (see DESIGN.md, Open Question decisions).
const DefaultMaxPayload = 64 * 1024

// Message is the PSHELL wire message: header fields plus a UTF-8 payload.
// The on-wire size always equals HeaderSize + len(Payload).
type Message struct {
	MsgType    MsgType
	RespNeeded bool
	DataNeeded bool
	SeqNum     uint32
	Payload    string
}

// Pack serializes msg into its on-wire byte representation.
func Pack(msg Message) []byte {
	buf := make([]byte, HeaderSize+len(msg.Payload))

	buf[0] = byte(msg.MsgType)
	buf[1] = boolByte(msg.RespNeeded)
	buf[2] = boolByte(msg.DataNeeded)
	buf[3] = 0 // pad, reserved

	binary.BigEndian.PutUint32(buf[4:8], msg.SeqNum)
	copy(buf[HeaderSize:], msg.Payload)

	return buf
}

// Unpack parses a wire byte slice into a Message. It returns an error if
// buf is shorter than HeaderSize.
func Unpack(buf []byte) (Message, error) {
	if len(buf) < HeaderSize {
		return Message{}, fmt.Errorf("pshellmsg: short message: %d bytes, need at least %d", len(buf), HeaderSize)
	}

	return Message{
		MsgType:    MsgType(buf[0]),
		RespNeeded: buf[1] != 0,
		DataNeeded: buf[2] != 0,
		SeqNum:     binary.BigEndian.Uint32(buf[4:8]),
		Payload:    string(buf[HeaderSize:]),
	}, nil
}

// Size returns the on-wire size, in bytes, of msg.
func Size(msg Message) int {
	return HeaderSize + len(msg.Payload)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
