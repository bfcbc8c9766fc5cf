/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package ingress implements the six-stage ingress pipeline of §4.4:
// de-envelope, route, validate, channel-assign, message-parse, and
// state-handling. Each stage consumes one event, returns actions that
// percolate backward, and passes zero or more events forward to the next
// stage — the same event/action tagged-union shape the fsm package uses,
// reused here rather than invented fresh (§9 design note).
package ingress

import (
	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/failpolicy"
	"github.com/go-channeler/channeler/fsm"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/pool"
	"github.com/go-channeler/channeler/wire"
)

// Pipeline wires the five packet-shaped stages and the FSM registry behind
// a single Handle entry point. Its fields are the pipeline owner's policy
// knobs: ban lists for the route stage, failure policies for validate, the
// channel set for channel-assign, and the registry for state-handling.
type Pipeline struct {
	Self ids.PeerID

	TransportBans *failpolicy.BanList
	PeerBans      *failpolicy.BanList

	ChecksumFailures  failpolicy.Policy
	TransportFailures failpolicy.Policy

	// EncryptionHook, if set, decrypts the private-header-plus-payload
	// region once the checksum stage has confirmed the wire bytes are
	// intact (§1's hook point).
	EncryptionHook wire.EncryptorHook

	Channels *channelset.Set
	Registry *fsm.Registry

	// OnForward receives every MESSAGE_OUT, USER_DATA_TO_READ, and
	// USER_DATA_TO_SEND event an FSM produces while processing an inbound
	// message, so the pipeline owner (the Connection façade) can feed
	// MESSAGE_OUT into the egress pipeline and the other two into its own
	// user-notification channel (§4.4 stage 6, §4.9).
	OnForward func(fsm.Event)
}

// New builds a Pipeline with NeverBan checksum-failure policy and empty ban
// lists; callers override fields directly before the first Handle call.
func New(self ids.PeerID, channels *channelset.Set, registry *fsm.Registry) *Pipeline {
	return &Pipeline{
		Self:              self,
		TransportBans:     failpolicy.NewBanList(),
		PeerBans:          failpolicy.NewBanList(),
		ChecksumFailures:  failpolicy.NeverBan{},
		TransportFailures: failpolicy.NeverBan{},
		Channels:          channels,
		Registry:          registry,
	}
}

// Inbound is one raw, undecoded datagram plus the transport address it
// arrived from, the de-envelope stage's input (§4.4 stage 1).
type Inbound struct {
	Transport string
	Slot      *pool.Slot
}

// Handle drives in through every stage in order and returns the merged
// actions the caller (typically a Connection) must act on: bans to apply
// persistently, channel-established notifications, and errors to surface.
// In.Slot must be pre-filled with exactly the received bytes; Handle never
// releases the caller's reference to it. Any stage that needs the slot to
// outlive this call (channel-assign pushing it into a channel's ingress
// buffer) takes its own Retain()'d reference, per §5's rule that a holder
// outliving the event that handed it a slot owns a reference of its own.
func (p *Pipeline) Handle(in Inbound) []fsm.Action {
	var actions []fsm.Action

	if in.Slot == nil {
		return append(actions, fsm.Action{
			Kind: fsm.ActionError,
			Err:  errcode.New(errcode.INVALID_REFERENCE, "ingress: de-envelope received a nil slot"),
		})
	}

	pkt, err := p.deEnvelope(in.Slot)
	if err != nil {
		return append(actions, fsm.Action{Kind: fsm.ActionError, Err: err})
	}

	if banned, a := p.route(in.Transport, pkt); banned {
		return append(actions, a...)
	}

	if ok, a := p.validate(in.Transport, pkt); !ok {
		return append(actions, a...)
	}

	record, dropped, a := p.channelAssign(pkt, in.Slot)
	actions = append(actions, a...)
	if dropped {
		return actions
	}

	for _, msg := range pkt.Messages().All() {
		a := p.stateHandle(pkt, record, in.Slot, msg)
		actions = append(actions, a...)
	}
	return actions
}

func (p *Pipeline) deEnvelope(slot *pool.Slot) (*wire.Packet, *errcode.Error) {
	pkt, err := wire.Parse(slot.Data())
	if err != nil {
		if e, ok := err.(*errcode.Error); ok {
			return nil, e
		}
		return nil, errcode.Wrap(errcode.DECODE, err, "ingress: de-envelope failed")
	}
	return pkt, nil
}

// route applies the sender/recipient ban-lists accumulated from earlier
// FILTER_TRANSPORT / FILTER_PEER actions (§4.4 stage 2). A banned packet is
// dropped with no further action.
func (p *Pipeline) route(transport string, pkt *wire.Packet) (banned bool, actions []fsm.Action) {
	if transport != "" && p.TransportBans.IsBanned(transport) {
		return true, nil
	}
	if p.PeerBans.IsBanned(pkt.Sender().String()) {
		return true, nil
	}
	return false, nil
}

// validate checks the CRC-32 footer and consults both the peer-keyed and
// transport-keyed failure policies on mismatch (§4.4 stage 3): a flood of
// corrupted packets bans either the sending peer, the transport address, or
// both, depending on which policy's threshold trips first. A requested ban
// is returned as a FILTER_PEER/FILTER_TRANSPORT action (for the caller to
// persist) and is applied immediately to this pipeline's own ban lists, so
// the very next packet sharing that key is dropped at the route stage
// without waiting for the caller to round-trip the action back in.
//
// Once the checksum confirms the wire bytes are intact, a configured
// EncryptionHook decrypts the private-header-plus-payload region in place.
// This has to happen after the checksum check, not before: the footer
// covers whatever was actually sent over the wire, ciphertext included, and
// decrypting first would leave nothing for the stored checksum to match.
func (p *Pipeline) validate(transport string, pkt *wire.Packet) (ok bool, actions []fsm.Action) {
	if !pkt.HasValidChecksum() {
		peerKey := pkt.Sender().String()
		if p.ChecksumFailures.RecordFailure(peerKey) {
			p.PeerBans.Ban(peerKey)
			actions = append(actions, fsm.Action{Kind: fsm.ActionFilterPeer, Key: peerKey})
		}
		if transport != "" && p.TransportFailures.RecordFailure(transport) {
			p.TransportBans.Ban(transport)
			actions = append(actions, fsm.Action{Kind: fsm.ActionFilterTransport, Key: transport})
		}
		return false, actions
	}

	p.ChecksumFailures.RecordSuccess(pkt.Sender().String())
	if transport != "" {
		p.TransportFailures.RecordSuccess(transport)
	}

	if p.EncryptionHook != nil {
		if err := p.EncryptionHook.Open(pkt.Buffer(), int(pkt.PacketSize())); err != nil {
			return false, []fsm.Action{{Kind: fsm.ActionError, Err: asErrcode(err)}}
		}
	}
	return true, nil
}

// channelAssign resolves the packet's destination record (§4.4 stage 4).
// The default handshake channel auto-creates; an unknown non-default
// channel is dropped with a classifier action; a pending channel (the
// initiator receiving early responder traffic) forwards with a nil record.
func (p *Pipeline) channelAssign(pkt *wire.Packet, slot *pool.Slot) (record *channelset.Record, dropped bool, actions []fsm.Action) {
	id := pkt.ChannelID()

	if id.IsEmpty() {
		r, err := p.Channels.Add(id)
		if err != nil {
			return nil, true, []fsm.Action{{Kind: fsm.ActionError, Err: asErrcode(err)}}
		}
		return r, false, nil
	}

	if r, ok := p.Channels.Get(id); ok {
		r.PushIngress(slot.Retain())
		return r, false, nil
	}

	if p.Channels.HasPendingChannel(id.Initiator()) {
		return nil, false, nil
	}

	return nil, true, []fsm.Action{{
		Kind: fsm.ActionError,
		Err:  errcode.New(errcode.INVALID_CHANNELID, "ingress: channel-assign found no record for %08x", uint32(id)),
	}}
}

// stateHandle delivers one parsed message to the FSM registry and hands
// every MESSAGE_OUT / USER_DATA_TO_* event the FSMs produce to OnForward.
// There is no separate event-route map: the single caller-supplied
// OnForward callback (the Connection façade, which owns both pipelines)
// decides where each event goes (§4.9).
func (p *Pipeline) stateHandle(pkt *wire.Packet, record *channelset.Record, slot *pool.Slot, msg wire.Message) []fsm.Action {
	ev := fsm.Event{
		Kind:    fsm.EventMessage,
		Src:     pkt.Sender(),
		Dst:     pkt.Recipient(),
		Channel: pkt.ChannelID(),
		Record:  record,
		Message: msg,
		Slot:    slot,
	}

	actions, events, handled := p.Registry.Dispatch(ev)
	if !handled {
		return append(actions, fsm.Action{
			Kind: fsm.ActionError,
			Err:  errcode.New(errcode.INVALID_PIPE_EVENT, "ingress: no FSM handled message type %d", msg.Type()),
		})
	}

	for _, out := range events {
		switch out.Kind {
		case fsm.EventMessageOut, fsm.EventUserDataToSend, fsm.EventUserDataToRead:
			// The slot backing a USER_DATA_TO_READ event was already pushed
			// into record's ingress buffer by channelAssign; this just
			// forwards the notification, it does not retain again.
			if p.OnForward != nil {
				p.OnForward(out)
			}
		}
	}
	return actions
}

func asErrcode(err error) *errcode.Error {
	if e, ok := err.(*errcode.Error); ok {
		return e
	}
	return errcode.Wrap(errcode.UNEXPECTED, err, "ingress: unexpected error")
}
