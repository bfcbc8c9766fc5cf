/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package fsm

import (
	"time"

	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/cookie"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/timeout"
	"github.com/go-channeler/channeler/wire"
)

// Default handshake timers (§4.6.1).
const (
	DefaultNewTimeout     = 200 * time.Millisecond
	DefaultChannelTimeout = 60 * time.Second
)

// InitiatorFSM drives the initiator side of a handshake: IDLE -> SENT_NEW ->
// ESTABLISHED, tracked implicitly through presence in Channels' pending and
// established sets rather than a private state map (§4.6.1).
type InitiatorFSM struct {
	Self     ids.PeerID
	Channels *channelset.Set
	Cookies  *cookie.Generator
	Timeouts *timeout.Service

	NewTimeout     time.Duration
	ChannelTimeout time.Duration
	// Capabilities is the capability set this side sends in
	// CHANNEL_FINALIZE. ResponderFSM does not act on the received value.
	Capabilities wire.Capabilities
}

func (f *InitiatorFSM) newTimeout() time.Duration {
	if f.NewTimeout > 0 {
		return f.NewTimeout
	}
	return DefaultNewTimeout
}

func (f *InitiatorFSM) channelTimeout() time.Duration {
	if f.ChannelTimeout > 0 {
		return f.ChannelTimeout
	}
	return DefaultChannelTimeout
}

func (f *InitiatorFSM) Process(ev Event) (bool, []Action, []Event) {
	switch ev.Kind {
	case EventNewChannel:
		return f.processNewChannel(ev)
	case EventMessage:
		if ack, ok := ev.Message.(wire.ChannelAcknowledge); ok {
			return f.processAcknowledge(ev, ack)
		}
		return false, nil, nil
	case EventTimeout:
		return f.processTimeout(ev)
	default:
		return false, nil, nil
	}
}

func (f *InitiatorFSM) processNewChannel(ev Event) (bool, []Action, []Event) {
	channel, err := f.Channels.NewPendingChannel()
	if err != nil {
		return true, []Action{{Kind: ActionError, Err: asErrcode(err)}}, nil
	}

	cookie1 := f.Cookies.InitiatorCookie(ev.Self, ev.Peer, channel.Initiator())
	f.Timeouts.Add(timeout.Tag{Scope: uint32(channel.Initiator()), Kind: timeout.KindNewChannel}, f.newTimeout())

	out := Event{
		Kind:    EventMessageOut,
		Channel: ids.DefaultChannelID,
		Message: wire.ChannelNew{InitiatorHalf: channel.Initiator(), Cookie1: cookie1},
	}
	return true, nil, []Event{out}
}

func (f *InitiatorFSM) processAcknowledge(ev Event, ack wire.ChannelAcknowledge) (bool, []Action, []Event) {
	if !f.Channels.HasPendingChannel(ack.ChannelID.Initiator()) {
		return true, nil, nil // not ours, or already resolved; ignore.
	}

	// ev.Src is the responder's peer id, ev.Dst is ours: the cookie was
	// created as InitiatorCookie(self=initiator, peer=responder, ...).
	if !f.Cookies.ValidateInitiatorCookie(ev.Dst, ev.Src, ack.ChannelID.Initiator(), ack.Cookie1) {
		f.Channels.DropPendingChannel(ack.ChannelID.Initiator())
		f.Timeouts.Remove(timeout.Tag{Scope: uint32(ack.ChannelID.Initiator()), Kind: timeout.KindNewChannel})
		return true, nil, nil
	}

	if _, err := f.Channels.MakeFull(ack.ChannelID); err != nil {
		return true, []Action{{Kind: ActionError, Err: asErrcode(err)}}, nil
	}

	f.Timeouts.Remove(timeout.Tag{Scope: uint32(ack.ChannelID.Initiator()), Kind: timeout.KindNewChannel})
	f.Timeouts.Add(timeout.Tag{Scope: uint32(ack.ChannelID), Kind: timeout.KindChannelEstablished}, f.channelTimeout())

	out := Event{
		Kind:    EventMessageOut,
		Channel: ids.DefaultChannelID,
		Message: wire.ChannelFinalize{
			ChannelID:    ack.ChannelID,
			Cookie2:      ack.Cookie2,
			Capabilities: f.Capabilities,
		},
	}
	return true, []Action{{Kind: ActionNotifyChannelEstablished, Channel: ack.ChannelID}}, []Event{out}
}

func (f *InitiatorFSM) processTimeout(ev Event) (bool, []Action, []Event) {
	switch ev.Tag.Kind {
	case timeout.KindNewChannel:
		if f.Channels.HasPendingChannel(uint16(ev.Tag.Scope)) {
			f.Channels.DropPendingChannel(uint16(ev.Tag.Scope))
		}
		return true, nil, nil
	case timeout.KindChannelEstablished:
		f.Channels.Remove(ids.ChannelID(ev.Tag.Scope))
		return true, nil, nil
	default:
		return false, nil, nil
	}
}
