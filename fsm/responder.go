/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package fsm

import (
	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/cookie"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/wire"
)

// ResponderFSM handles the responder side of a handshake. It is
// deliberately stateless with respect to in-flight handshakes — the cookie
// IS the state — to avoid the resource exhaustion a per-handshake table
// would invite (§4.6.2).
type ResponderFSM struct {
	Channels *channelset.Set
	Cookies  *cookie.Generator
	// Capabilities is this responder's configured capability set. The
	// handshake does not read it: processFinalize neither applies it nor
	// compares it with the capabilities an incoming CHANNEL_FINALIZE carries.
	Capabilities wire.Capabilities
}

func (f *ResponderFSM) Process(ev Event) (bool, []Action, []Event) {
	if ev.Kind != EventMessage {
		return false, nil, nil
	}
	switch msg := ev.Message.(type) {
	case wire.ChannelNew:
		return f.processNew(ev, msg)
	case wire.ChannelFinalize:
		return f.processFinalize(ev, msg)
	case wire.ChannelCookie:
		// Reserved; current behaviour is to do nothing (§4.6.2).
		return true, nil, nil
	default:
		return false, nil, nil
	}
}

func (f *ResponderFSM) processNew(ev Event, msg wire.ChannelNew) (bool, []Action, []Event) {
	if f.Channels.HasPendingChannel(msg.InitiatorHalf) {
		// We crossed wires: we are also trying to initiate with this half.
		f.Channels.DropPendingChannel(msg.InitiatorHalf)
		return true, nil, nil
	}

	partial := ids.NewChannelID(msg.InitiatorHalf, 0)
	full, ok := f.Channels.GetEstablishedID(partial)
	if !ok {
		var err error
		full, err = f.Channels.CompleteChannelID(partial)
		if err != nil {
			return true, []Action{{Kind: ActionError, Err: asErrcode(err)}}, nil
		}
	}

	cookie2 := f.Cookies.ResponderCookie(ev.Src, ev.Dst, full)

	out := Event{
		Kind:    EventMessageOut,
		Channel: ev.Channel,
		Message: wire.ChannelAcknowledge{
			ChannelID: full,
			Cookie1:   msg.Cookie1,
			Cookie2:   cookie2,
		},
	}
	return true, nil, []Event{out}
}

func (f *ResponderFSM) processFinalize(ev Event, msg wire.ChannelFinalize) (bool, []Action, []Event) {
	if f.Channels.HasPendingChannel(msg.ChannelID.Initiator()) {
		f.Channels.DropPendingChannel(msg.ChannelID.Initiator())
		return true, nil, nil
	}
	if f.Channels.HasEstablishedChannel(msg.ChannelID) {
		return true, nil, nil // already established; ignore.
	}
	if !f.Cookies.ValidateResponderCookie(ev.Src, ev.Dst, msg.ChannelID, msg.Cookie2) {
		return true, nil, nil // silent drop (§4.3, §7).
	}

	if _, err := f.Channels.Add(msg.ChannelID); err != nil {
		return true, []Action{{Kind: ActionError, Err: asErrcode(err)}}, nil
	}

	return true, []Action{{Kind: ActionNotifyChannelEstablished, Channel: msg.ChannelID}}, nil
}
