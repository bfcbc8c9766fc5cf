/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package fsm

import (
	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/wire"
)

// DataFSM carries opaque application payloads over an already-established
// channel (§4.6.3). Messages larger than MaxPayloadSize are dropped with an
// error; fragmenting them across multiple packets is a future extension
// this package does not implement.
type DataFSM struct {
	Channels       *channelset.Set
	MaxPayloadSize int
}

func (f *DataFSM) Process(ev Event) (bool, []Action, []Event) {
	switch ev.Kind {
	case EventMessage:
		if _, ok := ev.Message.(wire.Data); !ok {
			return false, nil, nil
		}
		if ev.Record == nil {
			// Not on an established channel: the ingress channel-assign
			// stage only forwards DATA messages with a resolved record
			// for established channels (§4.4 stage 4), so this is a
			// message that slipped in on a pending or unknown channel.
			return true, nil, nil
		}
		out := Event{
			Kind:    EventUserDataToRead,
			Channel: ev.Channel,
			Slot:    ev.Slot,
			Message: ev.Message,
		}
		return true, nil, []Event{out}

	case EventUserDataWritten:
		if ev.Record == nil {
			return true, []Action{{
				Kind: ActionError,
				Err:  errcode.New(errcode.INVALID_CHANNELID, "data: write to unknown channel %08x", uint32(ev.Channel)),
			}}, nil
		}
		if f.MaxPayloadSize > 0 && len(ev.Data) > f.MaxPayloadSize {
			return true, []Action{{
				Kind: ActionError,
				Err:  errcode.New(errcode.WRITE, "data: payload of %d bytes exceeds max_payload_size %d", len(ev.Data), f.MaxPayloadSize),
			}}, nil
		}

		ev.Record.PushEgressMessage(wire.Data{Payload: ev.Data})

		if f.Channels.HasEstablishedChannel(ev.Channel) {
			return true, nil, []Event{{Kind: EventUserDataToSend, Channel: ev.Channel}}
		}
		return true, nil, nil

	default:
		return false, nil, nil
	}
}
