/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package wire

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/ids"
)

// Byte offsets within a packet, per §3 and §6.
const (
	offProtocolID  = 0
	offSender      = 4
	offRecipient   = 20
	offChannelID   = 36
	offFlags       = 40
	offPacketSize  = 42
	offSeq         = 44
	offPayloadSize = 46
	offPayload     = 48

	PublicHeaderSize  = 44
	PrivateHeaderSize = 4
	FooterSize        = 4
	// EnvelopeSize is the combined size of every fixed wire field: public
	// header + private header + footer (§6: 44+4+4 = 52).
	EnvelopeSize = PublicHeaderSize + PrivateHeaderSize + FooterSize
)

// Flags is the 16-bit flags bitset carried in the public header.
type Flags uint16

const (
	FlagEncrypted Flags = 1 << 0
	FlagSpinBit   Flags = 1 << 1
)

func (f Flags) Encrypted() bool { return f&FlagEncrypted != 0 }
func (f Flags) SpinBit() bool   { return f&FlagSpinBit != 0 }

// EncryptorHook is the encryption hook point §1 calls out as "defined but
// not yet implemented": an implementation may transform the private header
// and payload region in place before the footer checksum is computed, and
// reverse that transform on ingress. The core codec never calls this
// itself — callers wire it into the egress/ingress pipelines explicitly —
// so the mandatory core has no hard dependency on any particular cipher.
type EncryptorHook interface {
	// Seal encrypts buf[PublicHeaderSize:packetSize-FooterSize] in place.
	Seal(buf []byte, packetSize int) error
	// Open reverses Seal.
	Open(buf []byte, packetSize int) error
}

// Packet is a zero-copy view over a caller-provided byte buffer, per §4.1.
// All accessors and mutators read and write directly through to buf; no
// internal copy is held beyond what Copy() explicitly creates.
type Packet struct {
	buf []byte
}

// Parse constructs a Packet view over buf. It fails with DECODE if the
// buffer is shorter than the envelope size, the protocol id mismatches, or
// the stated packet_size exceeds len(buf) (§4.1).
func Parse(buf []byte) (*Packet, error) {
	if len(buf) < EnvelopeSize {
		return nil, errcode.New(errcode.DECODE, "packet: buffer shorter than envelope (%d < %d)", len(buf), EnvelopeSize)
	}
	proto := binary.BigEndian.Uint32(buf[offProtocolID:])
	if proto != ids.ProtocolID {
		return nil, errcode.New(errcode.DECODE, "packet: protocol id mismatch (got %#x)", proto)
	}
	packetSize := binary.BigEndian.Uint16(buf[offPacketSize:])
	if int(packetSize) > len(buf) {
		return nil, errcode.New(errcode.DECODE, "packet: packet_size %d exceeds buffer length %d", packetSize, len(buf))
	}
	return &Packet{buf: buf}, nil
}

// NewEmpty initializes a fresh packet view in buf: writes the protocol id
// and zeroes the rest of the header fields the caller has not set yet. Used
// by the egress bundler when constructing an outbound packet from scratch.
func NewEmpty(buf []byte) *Packet {
	binary.BigEndian.PutUint32(buf[offProtocolID:], ids.ProtocolID)
	for i := offSender; i < offPayload; i++ {
		buf[i] = 0
	}
	return &Packet{buf: buf}
}

func (p *Packet) ProtocolID() uint32 { return binary.BigEndian.Uint32(p.buf[offProtocolID:]) }

func (p *Packet) Sender() ids.PeerID {
	var id ids.PeerID
	copy(id[:], p.buf[offSender:offSender+ids.PeerIDSize])
	return id
}

func (p *Packet) SetSender(id ids.PeerID) error {
	if offSender+ids.PeerIDSize > len(p.buf) {
		return errcode.New(errcode.ENCODE, "packet: buffer too small for sender")
	}
	copy(p.buf[offSender:], id[:])
	return nil
}

func (p *Packet) Recipient() ids.PeerID {
	var id ids.PeerID
	copy(id[:], p.buf[offRecipient:offRecipient+ids.PeerIDSize])
	return id
}

func (p *Packet) SetRecipient(id ids.PeerID) error {
	if offRecipient+ids.PeerIDSize > len(p.buf) {
		return errcode.New(errcode.ENCODE, "packet: buffer too small for recipient")
	}
	copy(p.buf[offRecipient:], id[:])
	return nil
}

func (p *Packet) ChannelID() ids.ChannelID {
	return ids.ChannelID(binary.BigEndian.Uint32(p.buf[offChannelID:]))
}

func (p *Packet) SetChannelID(id ids.ChannelID) error {
	if offChannelID+4 > len(p.buf) {
		return errcode.New(errcode.ENCODE, "packet: buffer too small for channel id")
	}
	binary.BigEndian.PutUint32(p.buf[offChannelID:], uint32(id))
	return nil
}

func (p *Packet) Flags() Flags { return Flags(binary.BigEndian.Uint16(p.buf[offFlags:])) }

func (p *Packet) SetFlags(f Flags) error {
	if offFlags+2 > len(p.buf) {
		return errcode.New(errcode.ENCODE, "packet: buffer too small for flags")
	}
	binary.BigEndian.PutUint16(p.buf[offFlags:], uint16(f))
	return nil
}

func (p *Packet) PacketSize() uint16 { return binary.BigEndian.Uint16(p.buf[offPacketSize:]) }

func (p *Packet) SetPacketSize(size uint16) error {
	if int(size) > len(p.buf) {
		return errcode.New(errcode.ENCODE, "packet: packet_size %d exceeds buffer length %d", size, len(p.buf))
	}
	binary.BigEndian.PutUint16(p.buf[offPacketSize:], size)
	return nil
}

func (p *Packet) SequenceNumber() uint16 { return binary.BigEndian.Uint16(p.buf[offSeq:]) }

func (p *Packet) SetSequenceNumber(seq uint16) error {
	if offSeq+2 > len(p.buf) {
		return errcode.New(errcode.ENCODE, "packet: buffer too small for sequence number")
	}
	binary.BigEndian.PutUint16(p.buf[offSeq:], seq)
	return nil
}

func (p *Packet) PayloadSize() uint16 { return binary.BigEndian.Uint16(p.buf[offPayloadSize:]) }

// SetPayloadSize writes payload_size, enforcing the invariant
// payload_size <= packet_size - EnvelopeSize (§3).
func (p *Packet) SetPayloadSize(size uint16) error {
	maxPayload := int(p.PacketSize()) - EnvelopeSize
	if maxPayload < 0 || int(size) > maxPayload {
		return errcode.New(errcode.ENCODE, "packet: payload_size %d exceeds max %d", size, maxPayload)
	}
	binary.BigEndian.PutUint16(p.buf[offPayloadSize:], size)
	return nil
}

// Payload returns the non-padding payload region.
func (p *Packet) Payload() []byte {
	n := int(p.PayloadSize())
	return p.buf[offPayload : offPayload+n]
}

// PaddingRegion returns the padding bytes between the payload and the
// footer, for writers and for the property test in §8.
func (p *Packet) PaddingRegion() []byte {
	packetSize := int(p.PacketSize())
	payloadEnd := offPayload + int(p.PayloadSize())
	return p.buf[payloadEnd : packetSize-FooterSize]
}

// WritePadding fills PaddingRegion() with the PKCS#7-style byte value
// (packet_size - EnvelopeSize - payload_size) mod 256, per §3/§4.5.
func (p *Packet) WritePadding() {
	pad := p.PaddingRegion()
	value := byte(len(pad) % 256)
	for i := range pad {
		pad[i] = value
	}
}

// checksumRegion is every byte the CRC-32 footer covers: everything before
// the footer itself.
func (p *Packet) checksumRegion() []byte {
	packetSize := int(p.PacketSize())
	return p.buf[:packetSize-FooterSize]
}

// ComputeChecksum recomputes the CRC-32 over the packet's checksum region
// without writing it anywhere.
func (p *Packet) ComputeChecksum() uint32 {
	return crc32.ChecksumIEEE(p.checksumRegion())
}

// Checksum returns the stored footer value.
func (p *Packet) Checksum() uint32 {
	packetSize := int(p.PacketSize())
	return binary.BigEndian.Uint32(p.buf[packetSize-FooterSize : packetSize])
}

// WriteChecksum computes and writes the CRC-32 footer.
func (p *Packet) WriteChecksum() error {
	packetSize := int(p.PacketSize())
	if packetSize < EnvelopeSize || packetSize > len(p.buf) {
		return errcode.New(errcode.ENCODE, "packet: invalid packet_size %d for checksum", packetSize)
	}
	sum := p.ComputeChecksum()
	binary.BigEndian.PutUint32(p.buf[packetSize-FooterSize:packetSize], sum)
	return nil
}

// HasValidChecksum recomputes the CRC-32 over the stated packet bytes minus
// the trailing 4 and compares it to the stored footer (§4.1, §8 property 3).
func (p *Packet) HasValidChecksum() bool {
	packetSize := int(p.PacketSize())
	if packetSize < EnvelopeSize || packetSize > len(p.buf) {
		return false
	}
	return p.ComputeChecksum() == p.Checksum()
}

// Buffer returns the full backing buffer (its capacity may exceed
// packet_size; callers that want exactly the logical packet bytes should
// use Copy or slice to PacketSize()).
func (p *Packet) Buffer() []byte { return p.buf }

// Copy returns an owned duplicate sized to packet_size, not the full
// backing buffer (§4.1).
func (p *Packet) Copy() *Packet {
	packetSize := int(p.PacketSize())
	dup := make([]byte, packetSize)
	copy(dup, p.buf[:packetSize])
	return &Packet{buf: dup}
}

// Messages returns a fresh MessageIterator over the payload region. Getting
// a new iterator is always restartable and idempotent (§4.1, §8 property
// 7): calling Messages() twice and draining both yields identical
// sequences, because each iterator only ever reads p.buf, never mutates it.
func (p *Packet) Messages() *MessageIterator {
	return &MessageIterator{
		buf: p.buf[offPayload : offPayload+int(p.PayloadSize())],
	}
}

// MessageIterator lazily decodes the varint-framed messages in a packet's
// payload. It stops, without error, once the payload is exhausted or a
// decode error is encountered — per §4.1 "the remainder is discarded" and
// §9's note that the padding tail is never validated as message framing.
type MessageIterator struct {
	buf    []byte
	offset int
	done   bool
}

// Next returns the next message, or ok=false once iteration has stopped
// (end of payload or an undecodable remainder). It never decodes past the
// payload region handed to it by Messages().
func (it *MessageIterator) Next() (Message, bool) {
	if it.done || it.offset >= len(it.buf) {
		it.done = true
		return nil, false
	}
	msg, n, err := ParseMessage(it.buf[it.offset:], len(it.buf)-it.offset)
	if err != nil {
		it.done = true
		return nil, false
	}
	it.offset += n
	return msg, true
}

// All drains the iterator into a slice, for callers that do not need
// incremental iteration.
func (it *MessageIterator) All() []Message {
	var out []Message
	for {
		m, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}
