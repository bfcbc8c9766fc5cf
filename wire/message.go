/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package wire implements the packet envelope and message codec of §3/§4.1:
// a zero-copy view over a caller-provided byte buffer, plus a small
// registry of length-prefixed message types.
//
// Varint fields use the standard library's encoding/binary Uvarint/
// PutUvarint, which already implement exactly the base-128,
// little-endian-significance, MSB-continuation (LEB128-style unsigned)
// encoding §6 specifies; no third-party varint package in the retrieved
// corpus does anything encoding/binary does not already do correctly here,
// so reaching past the standard library would only add an import for no
// behavioral gain (see DESIGN.md).
package wire

import (
	"encoding/binary"

	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/ids"
)

// MessageType identifies the shape of a message body (§3 message registry).
type MessageType uint8

const (
	MessageChannelNew         MessageType = 10
	MessageChannelAcknowledge MessageType = 11
	MessageChannelFinalize    MessageType = 12
	MessageChannelCookie      MessageType = 13
	MessageData               MessageType = 20
)

// fixedBodySize gives the body length of every message type whose body is
// not length-prefixed on the wire. MessageData is variable-length and is
// absent from this map.
var fixedBodySize = map[MessageType]int{
	MessageChannelNew:         6,  // initiator_half(2) ‖ cookie1(4)
	MessageChannelAcknowledge: 12, // channel_id(4) ‖ cookie1(4) ‖ cookie2(4)
	MessageChannelFinalize:    10, // channel_id(4) ‖ cookie2(4) ‖ capabilities(2)
	MessageChannelCookie:      6,  // cookie(4) ‖ capabilities(2)
}

// Capabilities is the 16-bit bitset negotiated by the responder at FINALIZE.
type Capabilities uint16

const (
	CapabilityResend      Capabilities = 1 << 0
	CapabilityOrdered     Capabilities = 1 << 1
	CapabilityCloseOnLoss Capabilities = 1 << 2
)

// Has reports whether every bit in want is set.
func (c Capabilities) Has(want Capabilities) bool { return c&want == want }

// Message is anything that can be framed as type-varint ‖ [length-varint] ‖
// body and appended to a packet payload.
type Message interface {
	Type() MessageType
	// EncodedLen returns the number of bytes Encode will write, including
	// the leading type (and, for variable types, length) varint.
	EncodedLen() int
	// Encode writes the framed message to dst, which must be at least
	// EncodedLen() bytes, and returns the number of bytes written.
	Encode(dst []byte) (int, error)
}

func putType(dst []byte, t MessageType) int {
	return binary.PutUvarint(dst, uint64(t))
}

func uvarintLen(v uint64) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutUvarint(buf[:], v)
}

// --- CHANNEL_NEW ---

type ChannelNew struct {
	InitiatorHalf uint16
	Cookie1       uint32
}

func (m ChannelNew) Type() MessageType { return MessageChannelNew }
func (m ChannelNew) EncodedLen() int   { return uvarintLen(uint64(MessageChannelNew)) + 6 }

func (m ChannelNew) Encode(dst []byte) (int, error) {
	if len(dst) < m.EncodedLen() {
		return 0, errcode.New(errcode.ENCODE, "ChannelNew: buffer too small")
	}
	n := putType(dst, m.Type())
	binary.BigEndian.PutUint16(dst[n:], m.InitiatorHalf)
	binary.BigEndian.PutUint32(dst[n+2:], m.Cookie1)
	return n + 6, nil
}

// --- CHANNEL_ACKNOWLEDGE ---

type ChannelAcknowledge struct {
	ChannelID ids.ChannelID
	Cookie1   uint32
	Cookie2   uint32
}

func (m ChannelAcknowledge) Type() MessageType { return MessageChannelAcknowledge }
func (m ChannelAcknowledge) EncodedLen() int {
	return uvarintLen(uint64(MessageChannelAcknowledge)) + 12
}

func (m ChannelAcknowledge) Encode(dst []byte) (int, error) {
	if len(dst) < m.EncodedLen() {
		return 0, errcode.New(errcode.ENCODE, "ChannelAcknowledge: buffer too small")
	}
	n := putType(dst, m.Type())
	binary.BigEndian.PutUint32(dst[n:], uint32(m.ChannelID))
	binary.BigEndian.PutUint32(dst[n+4:], m.Cookie1)
	binary.BigEndian.PutUint32(dst[n+8:], m.Cookie2)
	return n + 12, nil
}

// --- CHANNEL_FINALIZE ---

type ChannelFinalize struct {
	ChannelID    ids.ChannelID
	Cookie2      uint32
	Capabilities Capabilities
}

func (m ChannelFinalize) Type() MessageType { return MessageChannelFinalize }
func (m ChannelFinalize) EncodedLen() int {
	return uvarintLen(uint64(MessageChannelFinalize)) + 10
}

func (m ChannelFinalize) Encode(dst []byte) (int, error) {
	if len(dst) < m.EncodedLen() {
		return 0, errcode.New(errcode.ENCODE, "ChannelFinalize: buffer too small")
	}
	n := putType(dst, m.Type())
	binary.BigEndian.PutUint32(dst[n:], uint32(m.ChannelID))
	binary.BigEndian.PutUint32(dst[n+4:], m.Cookie2)
	binary.BigEndian.PutUint16(dst[n+8:], uint16(m.Capabilities))
	return n + 10, nil
}

// --- CHANNEL_COOKIE ---

type ChannelCookie struct {
	Cookie       uint32
	Capabilities Capabilities
}

func (m ChannelCookie) Type() MessageType { return MessageChannelCookie }
func (m ChannelCookie) EncodedLen() int   { return uvarintLen(uint64(MessageChannelCookie)) + 6 }

func (m ChannelCookie) Encode(dst []byte) (int, error) {
	if len(dst) < m.EncodedLen() {
		return 0, errcode.New(errcode.ENCODE, "ChannelCookie: buffer too small")
	}
	n := putType(dst, m.Type())
	binary.BigEndian.PutUint32(dst[n:], m.Cookie)
	binary.BigEndian.PutUint16(dst[n+4:], uint16(m.Capabilities))
	return n + 6, nil
}

// --- DATA ---

// Data carries an opaque, length-prefixed application payload. It is the
// only variable-sized message type.
type Data struct {
	Payload []byte
}

func (m Data) Type() MessageType { return MessageData }
func (m Data) EncodedLen() int {
	return uvarintLen(uint64(MessageData)) + uvarintLen(uint64(len(m.Payload))) + len(m.Payload)
}

func (m Data) Encode(dst []byte) (int, error) {
	if len(dst) < m.EncodedLen() {
		return 0, errcode.New(errcode.ENCODE, "Data: buffer too small")
	}
	n := putType(dst, m.Type())
	n += binary.PutUvarint(dst[n:], uint64(len(m.Payload)))
	n += copy(dst[n:], m.Payload)
	return n, nil
}

// ParseMessage is the message parsing factory of §4.1: given buf truncated
// to max usable bytes, it reads the type varint, looks up the fixed or
// variable body size, and returns a typed Message plus the number of input
// bytes consumed. Unknown types fail with INVALID_MESSAGE_TYPE.
func ParseMessage(buf []byte, max int) (Message, int, error) {
	if max > len(buf) {
		max = len(buf)
	}
	region := buf[:max]

	rawType, n := binary.Uvarint(region)
	if n <= 0 {
		return nil, 0, errcode.New(errcode.DECODE, "message: truncated type varint")
	}
	mt := MessageType(rawType)

	if size, ok := fixedBodySize[mt]; ok {
		if n+size > max {
			return nil, 0, errcode.New(errcode.DECODE, "message: truncated fixed body")
		}
		body := region[n : n+size]
		msg, err := decodeFixed(mt, body)
		if err != nil {
			return nil, 0, err
		}
		return msg, n + size, nil
	}

	if mt == MessageData {
		length, ln := binary.Uvarint(region[n:])
		if ln <= 0 {
			return nil, 0, errcode.New(errcode.DECODE, "message: truncated length varint")
		}
		start := n + ln
		end := start + int(length)
		if end > max {
			return nil, 0, errcode.New(errcode.DECODE, "message: truncated DATA body")
		}
		payload := make([]byte, length)
		copy(payload, region[start:end])
		return Data{Payload: payload}, end, nil
	}

	return nil, 0, errcode.New(errcode.INVALID_MESSAGE_TYPE, "message: unknown type %d", rawType)
}

func decodeFixed(mt MessageType, body []byte) (Message, error) {
	switch mt {
	case MessageChannelNew:
		return ChannelNew{
			InitiatorHalf: binary.BigEndian.Uint16(body[0:2]),
			Cookie1:       binary.BigEndian.Uint32(body[2:6]),
		}, nil
	case MessageChannelAcknowledge:
		return ChannelAcknowledge{
			ChannelID: ids.ChannelID(binary.BigEndian.Uint32(body[0:4])),
			Cookie1:   binary.BigEndian.Uint32(body[4:8]),
			Cookie2:   binary.BigEndian.Uint32(body[8:12]),
		}, nil
	case MessageChannelFinalize:
		return ChannelFinalize{
			ChannelID:    ids.ChannelID(binary.BigEndian.Uint32(body[0:4])),
			Cookie2:      binary.BigEndian.Uint32(body[4:8]),
			Capabilities: Capabilities(binary.BigEndian.Uint16(body[8:10])),
		}, nil
	case MessageChannelCookie:
		return ChannelCookie{
			Cookie:       binary.BigEndian.Uint32(body[0:4]),
			Capabilities: Capabilities(binary.BigEndian.Uint16(body[4:6])),
		}, nil
	default:
		return nil, errcode.New(errcode.INVALID_MESSAGE_TYPE, "message: unhandled fixed type %d", mt)
	}
}
