/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package egress

import (
	"testing"

	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/pool"
	"github.com/go-channeler/channeler/wire"
)

func TestBundleProducesVerifiablePacket(t *testing.T) {
	p := pool.New(2, 128, pool.NewMutexLocker())
	self := ids.PeerID{0x01}
	peer := ids.PeerID{0x02}

	set := channelset.New()
	record, err := set.Add(ids.NewChannelID(0xA1A1, 0xB2B2))
	if err != nil {
		t.Fatal(err)
	}

	var notified ids.ChannelID
	pipe := New(self, p, 0)
	pipe.OnPacketEnqueued = func(ch ids.ChannelID) { notified = ch }

	err2, ok := pipe.EnqueueMessage(peer, record, record.ID, wire.Data{Payload: []byte("hello")})
	if err2 != nil {
		t.Fatal(err2)
	}
	if !ok {
		t.Fatal("expected Bundle to report a packet was produced")
	}
	if notified != record.ID {
		t.Fatalf("OnPacketEnqueued channel = %08x, want %08x", notified, record.ID)
	}

	slot, ok := record.PopEgressPacket()
	if !ok {
		t.Fatal("expected a queued egress packet")
	}
	pkt, err := wire.Parse(slot.Data())
	if err != nil {
		t.Fatal(err)
	}
	if !pkt.HasValidChecksum() {
		t.Fatal("bundled packet has an invalid checksum")
	}
	if pkt.Sender() != self || pkt.Recipient() != peer {
		t.Fatal("bundled packet header does not match sender/recipient")
	}
	msgs := pkt.Messages().All()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	data, ok := msgs[0].(wire.Data)
	if !ok || string(data.Payload) != "hello" {
		t.Fatalf("roundtrip mismatch: got %+v", msgs[0])
	}
}

func TestBundleWithNoQueuedMessagesIsANoop(t *testing.T) {
	p := pool.New(1, 128, pool.NewMutexLocker())
	set := channelset.New()
	record, _ := set.Add(ids.NewChannelID(0xA1A1, 0xB2B2))

	pipe := New(ids.PeerID{0x01}, p, 0)
	err, produced := pipe.Bundle(ids.PeerID{0x02}, record, record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if produced {
		t.Fatal("expected no packet to be produced for an empty queue")
	}
	if p.Size() != 0 {
		t.Fatalf("pool usage = %d, want 0 (no slot should have been kept)", p.Size())
	}
}

func TestEnqueueMessageOnUnknownChannelFails(t *testing.T) {
	pipe := New(ids.PeerID{0x01}, pool.New(1, 128, pool.NewMutexLocker()), 0)
	err, ok := pipe.EnqueueMessage(ids.PeerID{0x02}, nil, ids.NewChannelID(1, 2), wire.Data{Payload: []byte("x")})
	if err == nil || ok {
		t.Fatal("expected an error for enqueue on a nil record")
	}
}
