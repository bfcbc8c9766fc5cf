/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package ingress

import (
	"testing"

	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/cookie"
	"github.com/go-channeler/channeler/failpolicy"
	"github.com/go-channeler/channeler/fsm"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/pool"
	"github.com/go-channeler/channeler/wire"
)

func buildSlot(t *testing.T, p *pool.Pool, from, to ids.PeerID, channel ids.ChannelID, msgs []wire.Message, corruptChecksum bool) *pool.Slot {
	t.Helper()
	slot := p.Allocate()
	buf := slot.Data()
	pkt := wire.NewEmpty(buf)
	if err := pkt.SetSender(from); err != nil {
		t.Fatal(err)
	}
	if err := pkt.SetRecipient(to); err != nil {
		t.Fatal(err)
	}
	if err := pkt.SetChannelID(channel); err != nil {
		t.Fatal(err)
	}
	if err := pkt.SetPacketSize(uint16(slot.Size())); err != nil {
		t.Fatal(err)
	}

	payload := buf[wire.PublicHeaderSize+wire.PrivateHeaderSize:]
	off := 0
	for _, m := range msgs {
		n, err := m.Encode(payload[off:])
		if err != nil {
			t.Fatal(err)
		}
		off += n
	}
	if err := pkt.SetPayloadSize(uint16(off)); err != nil {
		t.Fatal(err)
	}
	pkt.WritePadding()
	if err := pkt.WriteChecksum(); err != nil {
		t.Fatal(err)
	}
	if corruptChecksum {
		buf[wire.PublicHeaderSize] ^= 0xff // flip a private-header byte, covered by the checksum region; the sender id stays intact
	}
	return slot
}

func newTestPipeline(self ids.PeerID) (*Pipeline, *channelset.Set, *fsm.Registry) {
	channels := channelset.New()
	secret := func() []byte { return []byte("shared") }
	resp := &fsm.ResponderFSM{Channels: channels, Cookies: cookie.New(secret)}
	data := &fsm.DataFSM{Channels: channels}
	reg := fsm.NewRegistry(resp, data)
	return New(self, channels, reg), channels, reg
}

// E1-adjacent: a valid CHANNEL_NEW reaches the responder FSM and produces a
// MESSAGE_OUT(CHANNEL_ACKNOWLEDGE) forwarded via OnForward.
func TestHandleRoutesChannelNewToResponderFSM(t *testing.T) {
	self := ids.PeerID{0x02}
	peer := ids.PeerID{0x01}
	p := pool.New(2, 256, pool.NewMutexLocker())
	pipe, channels, _ := newTestPipeline(self)
	_, _ = channels, p

	var forwarded []fsm.Event
	pipe.OnForward = func(ev fsm.Event) { forwarded = append(forwarded, ev) }

	slot := buildSlot(t, p, peer, self, ids.DefaultChannelID,
		[]wire.Message{wire.ChannelNew{InitiatorHalf: 0x1234, Cookie1: 0xAAAA}}, false)

	actions := pipe.Handle(Inbound{Transport: "udp:peer", Slot: slot})
	for _, a := range actions {
		if a.Kind == fsm.ActionError {
			t.Fatalf("unexpected error action: %v", a.Err)
		}
	}
	if len(forwarded) != 1 || forwarded[0].Kind != fsm.EventMessageOut {
		t.Fatalf("expected exactly one forwarded MESSAGE_OUT event, got %+v", forwarded)
	}
	if _, ok := forwarded[0].Message.(wire.ChannelAcknowledge); !ok {
		t.Fatalf("expected a CHANNEL_ACKNOWLEDGE, got %T", forwarded[0].Message)
	}
}

// E6 — an invalid checksum is dropped at validate and never reaches the FSM
// layer; repeated failures eventually ban the sender via the configured
// policy.
func TestHandleDropsInvalidChecksum(t *testing.T) {
	self := ids.PeerID{0x02}
	peer := ids.PeerID{0x01}
	p := pool.New(1, 256, pool.NewMutexLocker())
	pipe, _, _ := newTestPipeline(self)
	pipe.ChecksumFailures = failpolicy.AlwaysBan{}

	var forwarded int
	pipe.OnForward = func(fsm.Event) { forwarded++ }

	slot := buildSlot(t, p, peer, self, ids.DefaultChannelID,
		[]wire.Message{wire.ChannelCookie{Cookie: 1}}, true)

	actions := pipe.Handle(Inbound{Transport: "udp:peer", Slot: slot})
	if forwarded != 0 {
		t.Fatalf("expected no forwarded events for an invalid checksum, got %d", forwarded)
	}
	var gotFilterPeer bool
	for _, a := range actions {
		if a.Kind == fsm.ActionFilterPeer && a.Key == peer.String() {
			gotFilterPeer = true
		}
	}
	if !gotFilterPeer {
		t.Fatalf("expected a FILTER_PEER action for %s, got %v", peer, actions)
	}
	if !pipe.PeerBans.IsBanned(peer.String()) {
		t.Fatal("expected the sender to be banned after AlwaysBan policy fired")
	}

	// A second packet from the same now-banned sender is dropped at route,
	// before validate even runs.
	slot2 := buildSlot(t, p, peer, self, ids.DefaultChannelID,
		[]wire.Message{wire.ChannelCookie{Cookie: 1}}, false)
	actions2 := pipe.Handle(Inbound{Transport: "udp:peer", Slot: slot2})
	if len(actions2) != 0 {
		t.Fatalf("expected no actions for a packet from a banned sender, got %v", actions2)
	}
}

// E6 — a transport address already present in the ban list is dropped at
// route regardless of checksum validity.
func TestHandleDropsBannedTransport(t *testing.T) {
	self := ids.PeerID{0x02}
	peer := ids.PeerID{0x01}
	p := pool.New(1, 256, pool.NewMutexLocker())
	pipe, _, _ := newTestPipeline(self)
	pipe.TransportBans.Ban("udp:peer")

	slot := buildSlot(t, p, peer, self, ids.DefaultChannelID,
		[]wire.Message{wire.ChannelCookie{Cookie: 1}}, false)

	actions := pipe.Handle(Inbound{Transport: "udp:peer", Slot: slot})
	if len(actions) != 0 {
		t.Fatalf("expected no actions for a banned transport, got %v", actions)
	}
}

// E6-adjacent: rotating sender ids on a fixed transport accumulate failures
// against the transport-level policy independently of the peer-level one,
// and eventually ban the transport outright.
func TestHandleBansTransportAfterRepeatedFailures(t *testing.T) {
	self := ids.PeerID{0x02}
	p := pool.New(2, 256, pool.NewMutexLocker())
	pipe, _, _ := newTestPipeline(self)
	pipe.TransportFailures = failpolicy.AlwaysBan{}

	peer1 := ids.PeerID{0x01}
	slot := buildSlot(t, p, peer1, self, ids.DefaultChannelID,
		[]wire.Message{wire.ChannelCookie{Cookie: 1}}, true)

	actions := pipe.Handle(Inbound{Transport: "udp:rotating", Slot: slot})
	var gotFilterTransport bool
	for _, a := range actions {
		if a.Kind == fsm.ActionFilterTransport && a.Key == "udp:rotating" {
			gotFilterTransport = true
		}
	}
	if !gotFilterTransport {
		t.Fatalf("expected a FILTER_TRANSPORT action, got %v", actions)
	}
	if !pipe.TransportBans.IsBanned("udp:rotating") {
		t.Fatal("expected the transport to be banned after AlwaysBan policy fired")
	}

	// A different sender id on the now-banned transport is dropped at route.
	peer2 := ids.PeerID{0x03}
	slot2 := buildSlot(t, p, peer2, self, ids.DefaultChannelID,
		[]wire.Message{wire.ChannelCookie{Cookie: 1}}, false)
	actions2 := pipe.Handle(Inbound{Transport: "udp:rotating", Slot: slot2})
	if len(actions2) != 0 {
		t.Fatalf("expected no actions for a packet from a banned transport, got %v", actions2)
	}
}

func TestHandleRejectsNilSlot(t *testing.T) {
	pipe, _, _ := newTestPipeline(ids.PeerID{0x01})
	actions := pipe.Handle(Inbound{Transport: "udp:x", Slot: nil})
	if len(actions) != 1 || actions[0].Kind != fsm.ActionError {
		t.Fatalf("expected a single ERROR action for a nil slot, got %v", actions)
	}
}

// channel-assign drops packets addressed to a channel id that is neither
// the default channel, established, nor pending.
func TestHandleDropsUnknownChannel(t *testing.T) {
	self := ids.PeerID{0x02}
	peer := ids.PeerID{0x01}
	p := pool.New(1, 256, pool.NewMutexLocker())
	pipe, _, _ := newTestPipeline(self)

	unknown := ids.NewChannelID(0x9999, 0x8888)
	slot := buildSlot(t, p, peer, self, unknown, []wire.Message{wire.Data{Payload: []byte("x")}}, false)

	actions := pipe.Handle(Inbound{Transport: "udp:peer", Slot: slot})
	var gotErr bool
	for _, a := range actions {
		if a.Kind == fsm.ActionError {
			gotErr = true
		}
	}
	if !gotErr {
		t.Fatalf("expected an ERROR action for an unknown channel, got %v", actions)
	}
}
