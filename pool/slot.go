/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package pool

import "sync/atomic"

// Slot is a reference-counted handle to a fixed-size byte buffer owned by a
// Pool (§3 "Pool & slot"). Slots are shared between ingress events in
// transit and the channel buffers that retain them; the backing storage
// returns to the pool's free list when the last reference drops.
//
// Per §5, Slot.Data and Slot.Size are invalid once the last reference has
// been released: dereferencing a released slot is a programming error, not
// a recoverable runtime condition, so both methods panic rather than
// returning a zero value.
type Slot struct {
	pool       *Pool
	blockIndex int
	slotIndex  int32
	refs       atomic.Int32
}

func newSlot(p *Pool, blockIndex int, slotIndex int32) *Slot {
	s := &Slot{pool: p, blockIndex: blockIndex, slotIndex: slotIndex}
	s.refs.Store(1)
	return s
}

// Retain adds a reference to the slot. Any holder intending to keep a slot
// alive past the end of the event that handed it over must call Retain
// first (§5: "Buffers that retain slots past their event's lifetime MUST
// hold their own shared reference").
func (s *Slot) Retain() *Slot {
	if s.refs.Add(1) <= 1 {
		panic("pool: Retain called on a slot with no remaining references")
	}
	return s
}

// Release drops a reference. When the last reference is dropped, the
// backing storage returns to the pool's free list.
func (s *Slot) Release() {
	n := s.refs.Add(-1)
	if n < 0 {
		panic("pool: Release called more times than Retain")
	}
	if n == 0 {
		s.pool.release(s.blockIndex, s.slotIndex)
	}
}

// Data returns the slot's backing buffer. Panics if the slot has already
// been released.
func (s *Slot) Data() []byte {
	if s.refs.Load() <= 0 {
		panic("pool: Data called on a released slot")
	}
	return s.pool.data(s.blockIndex, s.slotIndex)
}

// Size returns the fixed capacity of the slot's backing buffer.
func (s *Slot) Size() int {
	if s.refs.Load() <= 0 {
		panic("pool: Size called on a released slot")
	}
	return s.pool.slotSize
}

// RefCount reports the current reference count, mainly for tests.
func (s *Slot) RefCount() int32 {
	return s.refs.Load()
}
