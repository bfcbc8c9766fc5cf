/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package fsm

import (
	"testing"
	"time"

	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/cookie"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/timeout"
	"github.com/go-channeler/channeler/wire"
)

func sharedSecret(s string) cookie.SecretGenerator {
	return func() []byte { return []byte(s) }
}

func messageOut(t *testing.T, events []Event) (wire.Message, bool) {
	t.Helper()
	for _, e := range events {
		if e.Kind == EventMessageOut {
			return e.Message, true
		}
	}
	return nil, false
}

// E1 — clean handshake, run entirely through the FSM layer with events
// threaded by hand between an initiator-side and a responder-side registry,
// the way the ingress pipeline's state-handling stage would.
func TestCleanHandshake(t *testing.T) {
	peerA := ids.PeerID{0x01, 0x01}
	peerB := ids.PeerID{0x02, 0x02}
	secret := sharedSecret("s")

	channelsA := channelset.New()
	channelsB := channelset.New()
	timeoutsA := timeout.New()

	initA := &InitiatorFSM{Self: peerA, Channels: channelsA, Cookies: cookie.New(secret), Timeouts: timeoutsA}
	respB := &ResponderFSM{Channels: channelsB, Cookies: cookie.New(secret)}
	regA := NewRegistry(initA)
	regB := NewRegistry(respB)

	// A initiates.
	_, events, ok := regA.Dispatch(Event{Kind: EventNewChannel, Self: peerA, Peer: peerB})
	if !ok {
		t.Fatal("initiator did not handle EventNewChannel")
	}
	newMsg, ok := messageOut(t, events)
	if !ok {
		t.Fatal("expected a MESSAGE_OUT(CHANNEL_NEW)")
	}
	chanNew := newMsg.(wire.ChannelNew)

	// B receives CHANNEL_NEW.
	_, events, ok = regB.Dispatch(Event{
		Kind: EventMessage, Src: peerA, Dst: peerB,
		Channel: ids.DefaultChannelID, Message: chanNew,
	})
	if !ok {
		t.Fatal("responder did not handle CHANNEL_NEW")
	}
	ackMsg, ok := messageOut(t, events)
	if !ok {
		t.Fatal("expected a MESSAGE_OUT(CHANNEL_ACKNOWLEDGE)")
	}
	ack := ackMsg.(wire.ChannelAcknowledge)
	if ack.ChannelID.Initiator() != chanNew.InitiatorHalf {
		t.Fatalf("ack initiator half = %04x, want %04x", ack.ChannelID.Initiator(), chanNew.InitiatorHalf)
	}

	// A receives CHANNEL_ACKNOWLEDGE.
	_, events, ok = regA.Dispatch(Event{
		Kind: EventMessage, Src: peerB, Dst: peerA,
		Channel: ids.DefaultChannelID, Message: ack,
	})
	if !ok {
		t.Fatal("initiator did not handle CHANNEL_ACKNOWLEDGE")
	}
	finalizeMsg, ok := messageOut(t, events)
	if !ok {
		t.Fatal("expected a MESSAGE_OUT(CHANNEL_FINALIZE)")
	}
	finalize := finalizeMsg.(wire.ChannelFinalize)
	if !channelsA.HasEstablishedChannel(ack.ChannelID) {
		t.Fatal("initiator should have established the channel after ACK")
	}

	// B receives CHANNEL_FINALIZE.
	actions, _, ok := regB.Dispatch(Event{
		Kind: EventMessage, Src: peerA, Dst: peerB,
		Channel: ids.DefaultChannelID, Message: finalize,
	})
	if !ok {
		t.Fatal("responder did not handle CHANNEL_FINALIZE")
	}
	if !channelsB.HasEstablishedChannel(finalize.ChannelID) {
		t.Fatal("responder should have established the channel after FINALIZE")
	}
	var notified bool
	for _, a := range actions {
		if a.Kind == ActionNotifyChannelEstablished && a.Channel == finalize.ChannelID {
			notified = true
		}
	}
	if !notified {
		t.Fatal("expected NOTIFY_CHANNEL_ESTABLISHED action from responder")
	}
}

// E2 — a lost ACK triggers the NEW_TIMEOUT, removing the pending channel.
func TestLostAckTimesOut(t *testing.T) {
	peerA := ids.PeerID{0x01}
	peerB := ids.PeerID{0x02}
	channelsA := channelset.New()
	timeoutsA := timeout.New()
	initA := &InitiatorFSM{Self: peerA, Channels: channelsA, Cookies: cookie.New(sharedSecret("s")), Timeouts: timeoutsA, NewTimeout: 200 * time.Millisecond}
	regA := NewRegistry(initA)

	_, _, ok := regA.Dispatch(Event{Kind: EventNewChannel, Self: peerA, Peer: peerB})
	if !ok {
		t.Fatal("initiator did not handle EventNewChannel")
	}

	expired := timeoutsA.Wait(func(d time.Duration) time.Duration { return d }, 200*time.Millisecond)
	if len(expired) != 1 {
		t.Fatalf("expected exactly 1 expired timeout, got %d", len(expired))
	}

	_, _, ok = regA.Dispatch(Event{Kind: EventTimeout, Tag: expired[0]})
	if !ok {
		t.Fatal("initiator did not handle EventTimeout")
	}

	if channelsA.HasPendingChannel(uint16(expired[0].Scope)) {
		t.Fatal("pending channel should have been removed after NEW_TIMEOUT")
	}
}

// E3 — a CHANNEL_FINALIZE with a mismatched cookie is silently dropped.
func TestCookieMismatchDropsFinalize(t *testing.T) {
	peerA := ids.PeerID{0x01}
	peerB := ids.PeerID{0x02}
	channelsB := channelset.New()
	respB := &ResponderFSM{Channels: channelsB, Cookies: cookie.New(sharedSecret("s"))}
	regB := NewRegistry(respB)

	full := ids.NewChannelID(0xA1A1, 0xB2B2)
	badFinalize := wire.ChannelFinalize{ChannelID: full, Cookie2: 0xDEADBEEF}

	actions, events, ok := regB.Dispatch(Event{
		Kind: EventMessage, Src: peerA, Dst: peerB,
		Channel: ids.DefaultChannelID, Message: badFinalize,
	})
	if !ok {
		t.Fatal("responder should still report handling a recognised message type")
	}
	if len(actions) != 0 || len(events) != 0 {
		t.Fatalf("expected no actions/events for a cookie mismatch, got actions=%v events=%v", actions, events)
	}
	if channelsB.HasEstablishedChannel(full) {
		t.Fatal("channel should not be established after a cookie mismatch")
	}
}
