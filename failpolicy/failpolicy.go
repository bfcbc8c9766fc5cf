/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package failpolicy implements the peer-failure and transport-failure
// policies §4.4's validate stage consults before dropping a packet that
// failed its checksum: "each policy may request a ban action."
//
// The per-key token-bucket-with-garbage-collection shape mirrors a
// rate-limiter keyed by a mutex-guarded entry map, refilled over time with a
// background goroutine trimming stale entries. channeler generalizes the
// key type to a plain string so the same implementation backs both the
// sender-peer-id ban-list and the transport-address ban-list the route
// stage consults (§4.4 stage 2).
package failpolicy

import (
	"sync"
	"time"
)

// Policy decides, from a stream of RecordFailure calls keyed by some
// identity (a peer id's string form, a transport address's string form),
// whether that identity should now be filtered.
type Policy interface {
	// RecordFailure reports a validation failure attributed to key and
	// returns whether the caller should now ban key (§4.4, §7).
	RecordFailure(key string) (ban bool)
	// RecordSuccess clears accumulated failure credit for key, the way a
	// token bucket refills. Callers are not required to call this.
	RecordSuccess(key string)
}

// entry is the per-key failure count and the time of the key's last
// recorded event.
type entry struct {
	mu        sync.Mutex
	failures  int
	lastEvent time.Time
}

// ThresholdPolicy bans a key once it has accumulated Threshold failures
// without an intervening Window of good behavior: a map of key to entry, a
// background goroutine trimming idle entries, and a failure count that is
// reset to zero (not decayed gradually) once Window has passed since the
// key's last recorded event.
type ThresholdPolicy struct {
	// Threshold is the number of failures that triggers a ban.
	Threshold int
	// Window is how long an idle entry is kept before being forgotten and,
	// separately, the gap after which a key's failure count starts over.
	Window time.Duration

	timeNow func() time.Time

	mu        sync.RWMutex
	table     map[string]*entry
	stopReset chan struct{}
}

// NewThresholdPolicy constructs a policy banning a key after threshold
// consecutive failures inside window. Call Close when the policy is no
// longer needed to stop its background cleanup goroutine.
func NewThresholdPolicy(threshold int, window time.Duration) *ThresholdPolicy {
	if threshold <= 0 {
		threshold = 1
	}
	p := &ThresholdPolicy{
		Threshold: threshold,
		Window:    window,
		timeNow:   time.Now,
		table:     make(map[string]*entry),
		stopReset: make(chan struct{}),
	}
	go p.collectGarbage()
	return p
}

func (p *ThresholdPolicy) collectGarbage() {
	ticker := time.NewTicker(p.Window)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopReset:
			return
		case <-ticker.C:
			p.mu.Lock()
			for key, e := range p.table {
				e.mu.Lock()
				stale := p.timeNow().Sub(e.lastEvent) > p.Window
				e.mu.Unlock()
				if stale {
					delete(p.table, key)
				}
			}
			p.mu.Unlock()
		}
	}
}

// Close stops the background cleanup goroutine.
func (p *ThresholdPolicy) Close() {
	close(p.stopReset)
}

func (p *ThresholdPolicy) lookupOrCreate(key string) *entry {
	p.mu.RLock()
	e, ok := p.table[key]
	p.mu.RUnlock()
	if ok {
		return e
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.table[key]; ok {
		return e
	}
	e = &entry{lastEvent: p.timeNow()}
	p.table[key] = e
	return e
}

func (p *ThresholdPolicy) RecordFailure(key string) bool {
	e := p.lookupOrCreate(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := p.timeNow()
	if now.Sub(e.lastEvent) > p.Window {
		e.failures = 0
	}
	e.failures++
	e.lastEvent = now
	return e.failures >= p.Threshold
}

func (p *ThresholdPolicy) RecordSuccess(key string) {
	e := p.lookupOrCreate(key)
	e.mu.Lock()
	e.failures = 0
	e.lastEvent = p.timeNow()
	e.mu.Unlock()
}

// AlwaysBan is a trivial Policy that bans on the very first failure, used
// in tests (§8 E6) and by callers that want zero tolerance.
type AlwaysBan struct{}

func (AlwaysBan) RecordFailure(string) bool { return true }
func (AlwaysBan) RecordSuccess(string)      {}

// NeverBan never requests a ban, the default when no policy is configured.
type NeverBan struct{}

func (NeverBan) RecordFailure(string) bool { return false }
func (NeverBan) RecordSuccess(string)      {}
