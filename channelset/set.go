/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package channelset

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/ids"
)

// maxHalfAttempts bounds the retry loop for random half generation (§4.2:
// "Must retry on collision"), so an exhausted id space fails loudly instead
// of spinning forever.
const maxHalfAttempts = 1 << 16

// Set is the per-connection channel registry: the pending-id set and the
// established id→record map of §3 "Channel set". Its invariants (§3, §8
// property 4) are: no id appears in both, and a full id in established has
// no matching partial in pending.
type Set struct {
	mu          sync.RWMutex
	pending     map[uint16]struct{}
	established map[ids.ChannelID]*Record
}

// New returns an empty channel set.
func New() *Set {
	return &Set{
		pending:     make(map[uint16]struct{}),
		established: make(map[ids.ChannelID]*Record),
	}
}

func randomHalf() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(b[:])
	if v == 0 {
		v = 1 // half 0 is reserved for "unfilled" and must never be generated.
	}
	return v, nil
}

// Add inserts id per §4.2: a complete id creates (or returns, idempotently)
// its established record; a partial-initiator id is inserted into the
// pending set (idempotently); the default/handshake id (§4.4 stage 4,
// "for DEFAULT_CHANNELID, auto-creates the record") is treated as an
// always-established record so handshake traffic has somewhere to land;
// anything else fails INVALID_CHANNELID.
func (s *Set) Add(id ids.ChannelID) (*Record, error) {
	switch {
	case id.IsEmpty():
		s.mu.Lock()
		defer s.mu.Unlock()
		if r, ok := s.established[id]; ok {
			return r, nil
		}
		r := newRecord(id)
		s.established[id] = r
		return r, nil
	case id.IsComplete():
		s.mu.Lock()
		defer s.mu.Unlock()
		if r, ok := s.established[id]; ok {
			return r, nil
		}
		r := newRecord(id)
		s.established[id] = r
		return r, nil
	case id.IsPartialInitiator():
		s.mu.Lock()
		defer s.mu.Unlock()
		s.pending[id.Initiator()] = struct{}{}
		return nil, nil
	default:
		return nil, errcode.New(errcode.INVALID_CHANNELID, "channelset: cannot add id %08x", uint32(id))
	}
}

// MakeFull removes the matching partial-initiator entry, if any, and
// creates (or returns, idempotently) the established record for full
// (§4.2).
func (s *Set) MakeFull(full ids.ChannelID) (*Record, error) {
	if !full.IsComplete() {
		return nil, errcode.New(errcode.INVALID_CHANNELID, "channelset: MakeFull requires a complete id, got %08x", uint32(full))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, full.Initiator())
	if r, ok := s.established[full]; ok {
		return r, nil
	}
	r := newRecord(full)
	s.established[full] = r
	return r, nil
}

// NewPendingChannel generates a partial-initiator id whose initiator half is
// absent from both pending and established, inserts it into pending, and
// returns it (§4.2).
func (s *Set) NewPendingChannel() (ids.ChannelID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxHalfAttempts; attempt++ {
		half, err := randomHalf()
		if err != nil {
			return 0, err
		}
		if s.initiatorHalfInUseLocked(half) {
			continue
		}
		id := ids.NewChannelID(half, 0)
		s.pending[half] = struct{}{}
		return id, nil
	}
	return 0, errcode.New(errcode.INVALID_CHANNELID, "channelset: exhausted initiator half space")
}

// CompleteChannelID fills an unused responder half into a partial-initiator
// id such that the resulting full id is not already established (§4.2).
// The pending set is not checked, so partial may itself be pending.
func (s *Set) CompleteChannelID(partial ids.ChannelID) (ids.ChannelID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxHalfAttempts; attempt++ {
		half, err := randomHalf()
		if err != nil {
			return 0, err
		}
		full := partial.WithResponder(half)
		if _, ok := s.established[full]; ok {
			continue
		}
		return full, nil
	}
	return 0, errcode.New(errcode.INVALID_CHANNELID, "channelset: exhausted responder half space")
}

func (s *Set) initiatorHalfInUseLocked(half uint16) bool {
	if _, ok := s.pending[half]; ok {
		return true
	}
	for id := range s.established {
		if id.Initiator() == half {
			return true
		}
	}
	return false
}

// HasChannel reports whether id names a pending or established channel.
func (s *Set) HasChannel(id ids.ChannelID) bool {
	return s.HasPendingChannel(id.Initiator()) || s.HasEstablishedChannel(id)
}

// HasPendingChannel reports whether initiatorHalf names a pending channel.
func (s *Set) HasPendingChannel(initiatorHalf uint16) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[initiatorHalf]
	return ok
}

// HasEstablishedChannel reports whether id names an established channel.
func (s *Set) HasEstablishedChannel(id ids.ChannelID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.established[id]
	return ok
}

// Get returns the established record for id, if any (§8 property 4:
// get(id).is_some() iff established.contains(id)).
func (s *Set) Get(id ids.ChannelID) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.established[id]
	return r, ok
}

// GetEstablishedID returns the full established channel id whose initiator
// half matches partial's, if one exists. The responder FSM uses this to
// reuse an existing full id when a duplicate CHANNEL_NEW arrives (§4.6.2).
func (s *Set) GetEstablishedID(partial ids.ChannelID) (ids.ChannelID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.established {
		if id.Initiator() == partial.Initiator() {
			return id, true
		}
	}
	return 0, false
}

// Remove deletes id from the established map, if present.
func (s *Set) Remove(id ids.ChannelID) {
	s.mu.Lock()
	delete(s.established, id)
	s.mu.Unlock()
}

// DropPendingChannel deletes initiatorHalf from the pending set, if
// present.
func (s *Set) DropPendingChannel(initiatorHalf uint16) {
	s.mu.Lock()
	delete(s.pending, initiatorHalf)
	s.mu.Unlock()
}

// PendingCount and EstablishedCount report the current size of each set,
// for metrics observation (channeler/metrics.ObserveChannels).
func (s *Set) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

func (s *Set) EstablishedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.established)
}
