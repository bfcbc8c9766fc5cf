/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package failpolicy

import "sync"

// BanList is the set of keys the route stage consults before admitting a
// packet (§4.4 stage 2). It is populated from FILTER_PEER / FILTER_TRANSPORT
// actions flowing backward from later pipeline stages.
type BanList struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

// NewBanList returns an empty ban list.
func NewBanList() *BanList {
	return &BanList{set: make(map[string]struct{})}
}

// Ban adds key to the ban list.
func (b *BanList) Ban(key string) {
	b.mu.Lock()
	b.set[key] = struct{}{}
	b.mu.Unlock()
}

// IsBanned reports whether key has been banned.
func (b *BanList) IsBanned(key string) bool {
	b.mu.RLock()
	_, ok := b.set[key]
	b.mu.RUnlock()
	return ok
}

// Unban removes key from the ban list, for administrative recovery.
func (b *BanList) Unban(key string) {
	b.mu.Lock()
	delete(b.set, key)
	b.mu.Unlock()
}
