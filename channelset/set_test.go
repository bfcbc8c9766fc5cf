/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package channelset

import (
	"testing"

	"github.com/go-channeler/channeler/ids"
)

// Property 5: NewPendingChannel's returned id is absent from both sets
// beforehand and present in pending afterward.
func TestNewPendingChannelInsertsOnce(t *testing.T) {
	s := New()
	id, err := s.NewPendingChannel()
	if err != nil {
		t.Fatal(err)
	}
	if !id.IsPartialInitiator() {
		t.Fatalf("NewPendingChannel returned non-partial-initiator id %08x", uint32(id))
	}
	if !s.HasPendingChannel(id.Initiator()) {
		t.Fatal("expected initiator half to be present in pending after NewPendingChannel")
	}
	if s.HasEstablishedChannel(id) {
		t.Fatal("freshly pending id should not be established")
	}
}

// Property 4: pending and established stay disjoint, and Get(id).ok iff
// established contains id, across a representative operation sequence.
func TestPendingEstablishedDisjoint(t *testing.T) {
	s := New()
	partial, err := s.NewPendingChannel()
	if err != nil {
		t.Fatal(err)
	}
	full, err := s.CompleteChannelID(partial)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.MakeFull(full); err != nil {
		t.Fatal(err)
	}

	if s.HasPendingChannel(partial.Initiator()) {
		t.Fatal("MakeFull should have removed the matching pending entry")
	}
	if !s.HasEstablishedChannel(full) {
		t.Fatal("MakeFull should have created an established record")
	}
	if _, ok := s.Get(full); !ok {
		t.Fatal("Get should find the established record")
	}
	if _, ok := s.Get(partial); ok {
		t.Fatal("Get should not find a record for the partial id")
	}

	s.Remove(full)
	if _, ok := s.Get(full); ok {
		t.Fatal("Get should not find a removed record")
	}
}

func TestAddRejectsPartialResponder(t *testing.T) {
	s := New()
	_, err := s.Add(ids.NewChannelID(0, 0xBEEF))
	if err == nil {
		t.Fatal("expected INVALID_CHANNELID for a partial-responder id")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	s := New()
	full := ids.NewChannelID(1, 2)
	r1, err := s.Add(full)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := s.Add(full)
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Fatal("Add on an existing complete id should return the same record")
	}
}

func TestCompleteChannelIDAvoidsCollision(t *testing.T) {
	s := New()
	partial := ids.NewChannelID(0x1234, 0)
	full, err := s.CompleteChannelID(partial)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.MakeFull(full); err != nil {
		t.Fatal(err)
	}
	full2, err := s.CompleteChannelID(partial)
	if err != nil {
		t.Fatal(err)
	}
	if full2 == full {
		t.Fatal("CompleteChannelID should avoid colliding with an already-established id")
	}
}
