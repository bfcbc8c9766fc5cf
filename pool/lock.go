/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package pool

import "sync"

// Locker is the pluggable lock strategy a Pool is constructed with (§4.7,
// §5: "pool operations are guarded by a pluggable lock strategy"). It is
// satisfied by sync.Mutex directly, which is why NewMutexLocker simply
// returns a fresh one.
type Locker interface {
	Lock()
	Unlock()
}

// noopLocker is used when the pool is known never to be shared across
// goroutines. Per §4.7, choosing it is the caller's promise that the pool
// stays single-threaded; the pool itself does not enforce this.
type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// NewNoopLocker returns a Locker that does nothing. Use only when the Pool
// is confined to a single goroutine.
func NewNoopLocker() Locker { return noopLocker{} }

// NewMutexLocker returns a Locker backed by a sync.Mutex, safe for
// concurrent use from multiple goroutines.
func NewMutexLocker() Locker { return &sync.Mutex{} }
