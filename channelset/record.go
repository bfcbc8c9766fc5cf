/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package channelset implements the per-connection channel registry of
// §3/§4.2: the pending-id set, the established id→record map, and the
// three FIFO buffers hanging off each established channel's record
// (pending ids have no record).
package channelset

import (
	"sync"

	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/pool"
	"github.com/go-channeler/channeler/wire"
)

// Record is the per-channel state shared by the pipelines, the FSMs, and
// user reads/writes (§3 "Channel record"). Its lifetime is the longest of
// its holders, which is why callers that retain a Record past the event
// that handed it to them must also Retain() any pool.Slot they keep inside
// it (§5).
type Record struct {
	ID ids.ChannelID

	mu             sync.Mutex
	ingress        []*pool.Slot
	egressPackets  []*pool.Slot
	egressMessages []wire.Message
}

func newRecord(id ids.ChannelID) *Record {
	return &Record{ID: id}
}

// PushIngress appends a slot to the ingress buffer: a message arrived on an
// established channel and is waiting for a user Read (§4.4 stage 4).
func (r *Record) PushIngress(s *pool.Slot) {
	r.mu.Lock()
	r.ingress = append(r.ingress, s)
	r.mu.Unlock()
}

// PopIngress removes and returns the oldest buffered ingress slot.
func (r *Record) PopIngress() (*pool.Slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ingress) == 0 {
		return nil, false
	}
	s := r.ingress[0]
	r.ingress = r.ingress[1:]
	return s, true
}

// PushEgressPacket appends a ready-to-send slot to the egress packet buffer
// (§4.5 stage 4).
func (r *Record) PushEgressPacket(s *pool.Slot) {
	r.mu.Lock()
	r.egressPackets = append(r.egressPackets, s)
	r.mu.Unlock()
}

// PopEgressPacket removes and returns the oldest ready-to-send slot, for
// Connection.PacketToSend (§4.9).
func (r *Record) PopEgressPacket() (*pool.Slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.egressPackets) == 0 {
		return nil, false
	}
	s := r.egressPackets[0]
	r.egressPackets = r.egressPackets[1:]
	return s, true
}

// PushEgressMessage enqueues a message awaiting bundling into a packet
// (§4.5 stage 1).
func (r *Record) PushEgressMessage(m wire.Message) {
	r.mu.Lock()
	r.egressMessages = append(r.egressMessages, m)
	r.mu.Unlock()
}

// DrainEgressMessages removes and returns as many queued messages as fit
// within maxBytes total encoded length, in FIFO order, for the message
// bundler (§4.5 stage 2).
func (r *Record) DrainEgressMessages(maxBytes int) []wire.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var taken []wire.Message
	used := 0
	i := 0
	for ; i < len(r.egressMessages); i++ {
		n := r.egressMessages[i].EncodedLen()
		if used+n > maxBytes {
			break
		}
		taken = append(taken, r.egressMessages[i])
		used += n
	}
	r.egressMessages = r.egressMessages[i:]
	return taken
}

// HasEgressMessages reports whether any message is queued for bundling.
func (r *Record) HasEgressMessages() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.egressMessages) > 0
}
