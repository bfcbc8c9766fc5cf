/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package fsm implements the polymorphic process(event)->(actions, events)
// dispatch of §4.6: a small fixed set of finite-state machines (initiator,
// responder, data) broadcast over by a Registry.
//
// Per design note §9, the event hierarchy is modeled as a single tagged
// union with a Kind discriminator rather than an interface-per-event-type
// inheritance tree: every stage that produces or consumes an Event
// documents which Kind(s) it cares about and which fields of Event it
// reads, and unused fields are simply left zero.
package fsm

import (
	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/pool"
	"github.com/go-channeler/channeler/timeout"
	"github.com/go-channeler/channeler/wire"
)

// Kind discriminates the Event union.
type Kind uint8

const (
	// EventNewChannel is a user request to establish a channel to Peer
	// (§4.6.1). Fields read: Self, Peer.
	EventNewChannel Kind = iota
	// EventMessage carries one parsed message from the ingress pipeline's
	// message-parse stage (§4.4 stage 5). Fields read: Src, Dst, Channel,
	// Record (nil if the channel is pending or unknown), Message, Slot.
	EventMessage
	// EventTimeout is a re-injected expiry from the timeout service
	// (§4.8). Fields read: Tag.
	EventTimeout
	// EventUserDataWritten is a user write to an established or pending
	// channel (§4.6.3). Fields read: Channel, Record, Data.
	EventUserDataWritten

	// EventMessageOut is produced by an FSM asking the egress pipeline to
	// bundle and send Message on Channel (§4.5 stage 1). Fields read:
	// Channel, Message.
	EventMessageOut
	// EventUserDataToRead notifies the connection façade that Slot holds a
	// DATA message ready for a user Read on Channel, without copying the
	// payload (§4.6.3). Fields read: Channel, Slot, Message.
	EventUserDataToRead
	// EventUserDataToSend wakes the egress path for Channel because new
	// outgoing bytes were buffered on an already-established channel
	// (§4.6.3).
	EventUserDataToSend
)

// Event is the tagged union every FSM's Process method consumes and may
// produce. Only the fields relevant to Kind are populated; see the Kind
// constants above for which.
type Event struct {
	Kind Kind

	Self ids.PeerID
	Peer ids.PeerID

	Src ids.PeerID
	Dst ids.PeerID

	Channel ids.ChannelID
	Record  *channelset.Record

	Message wire.Message
	Slot    *pool.Slot

	Data []byte

	Tag timeout.Tag
}
