/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package egress implements the five-stage egress pipeline of §4.5:
// enqueue-message, message-bundling, add-checksum, out-buffer, and
// callback.
package egress

import (
	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/fsm"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/pool"
	"github.com/go-channeler/channeler/wire"
)

// Pipeline bundles queued messages into packets and pushes them onto each
// channel's egress buffer.
type Pipeline struct {
	Self ids.PeerID
	Pool *pool.Pool

	// MaxPayloadSize bounds how many bytes of messages DrainEgressMessages
	// takes per packet; it must leave room for the envelope within the
	// pool's slot size.
	MaxPayloadSize int

	// OnPacketEnqueued is the callback stage (§4.5 stage 5): invoked once
	// per bundled packet after it has been pushed onto channel's egress
	// buffer, so the owner can wake whatever notifies the transport that a
	// packet is ready to send (§4.9's PacketToSend).
	OnPacketEnqueued func(channel ids.ChannelID)

	// EncryptionHook, if set, seals the private-header-plus-payload region
	// in place right before the footer checksum is computed (§1's hook
	// point), so the CRC-32 protects the ciphertext actually put on the
	// wire.
	EncryptionHook wire.EncryptorHook
}

// New builds a Pipeline drawing packet buffers from p, sized to leave
// maxPayload bytes of usable message space per packet.
func New(self ids.PeerID, p *pool.Pool, maxPayload int) *Pipeline {
	return &Pipeline{Self: self, Pool: p, MaxPayloadSize: maxPayload}
}

// EnqueueMessage is stage 1: append msg to peer's channel record's egress
// message queue, then immediately try to bundle it into a packet.
func (e *Pipeline) EnqueueMessage(peer ids.PeerID, record *channelset.Record, channel ids.ChannelID, msg wire.Message) (*errcode.Error, bool) {
	if record == nil {
		return errcode.New(errcode.INVALID_CHANNELID, "egress: enqueue-message on unknown channel %08x", uint32(channel)), false
	}
	record.PushEgressMessage(msg)
	return e.Bundle(peer, record, channel)
}

// Bundle drains as many queued messages as fit into one packet (stage 2),
// writes the CRC-32 footer (stage 3), pushes the slot onto record's egress
// packet buffer (stage 4), and invokes the callback (stage 5). It reports
// ok=false if no messages were queued, which is not an error.
func (e *Pipeline) Bundle(peer ids.PeerID, record *channelset.Record, channel ids.ChannelID) (*errcode.Error, bool) {
	if !record.HasEgressMessages() {
		return nil, false
	}

	slot := e.Pool.Allocate()
	buf := slot.Data()
	pkt := wire.NewEmpty(buf)

	if err := pkt.SetSender(e.Self); err != nil {
		slot.Release()
		return asErrcode(err), false
	}
	if err := pkt.SetRecipient(peer); err != nil {
		slot.Release()
		return asErrcode(err), false
	}
	if err := pkt.SetChannelID(channel); err != nil {
		slot.Release()
		return asErrcode(err), false
	}
	if err := pkt.SetPacketSize(uint16(slot.Size())); err != nil {
		slot.Release()
		return asErrcode(err), false
	}

	maxPayload := e.maxPayload(slot.Size())
	messages := record.DrainEgressMessages(maxPayload)
	if len(messages) == 0 {
		slot.Release()
		return nil, false
	}

	payload := buf[wire.PublicHeaderSize+wire.PrivateHeaderSize:]
	offset := 0
	for _, m := range messages {
		n, err := m.Encode(payload[offset:])
		if err != nil {
			slot.Release()
			return asErrcode(err), false
		}
		offset += n
	}

	if err := pkt.SetPayloadSize(uint16(offset)); err != nil {
		slot.Release()
		return asErrcode(err), false
	}
	pkt.WritePadding()

	if e.EncryptionHook != nil {
		if err := e.EncryptionHook.Seal(buf, int(pkt.PacketSize())); err != nil {
			slot.Release()
			return asErrcode(err), false
		}
	}

	if err := pkt.WriteChecksum(); err != nil {
		slot.Release()
		return asErrcode(err), false
	}

	record.PushEgressPacket(slot)
	if e.OnPacketEnqueued != nil {
		e.OnPacketEnqueued(channel)
	}
	return nil, true
}

func (e *Pipeline) maxPayload(slotSize int) int {
	fits := slotSize - wire.EnvelopeSize
	if e.MaxPayloadSize > 0 && e.MaxPayloadSize < fits {
		return e.MaxPayloadSize
	}
	return fits
}

func asErrcode(err error) *errcode.Error {
	if e, ok := err.(*errcode.Error); ok {
		return e
	}
	return errcode.Wrap(errcode.UNEXPECTED, err, "egress: unexpected error")
}

// HandleFSMEvent is a convenience the Connection façade uses to forward an
// EventMessageOut produced by the fsm registry straight into this pipeline,
// so callers don't have to unpack the event shape themselves at every call
// site.
func (e *Pipeline) HandleFSMEvent(peer ids.PeerID, record *channelset.Record, ev fsm.Event) (*errcode.Error, bool) {
	if ev.Kind != fsm.EventMessageOut {
		return nil, false
	}
	return e.EnqueueMessage(peer, record, ev.Channel, ev.Message)
}
