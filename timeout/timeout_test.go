/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package timeout

import (
	"testing"
	"time"
)

func fakeSleep(actual time.Duration) Sleeper {
	return func(d time.Duration) time.Duration {
		if actual < d {
			return actual
		}
		return d
	}
}

func TestAddIgnoresDuplicates(t *testing.T) {
	s := New()
	tag := Tag{Scope: 1, Kind: KindNewChannel}
	s.Add(tag, 200*time.Millisecond)
	s.Add(tag, 5*time.Second) // should be ignored

	expired := s.Wait(fakeSleep(200*time.Millisecond), 200*time.Millisecond)
	if len(expired) != 1 || expired[0] != tag {
		t.Fatalf("expected tag to expire at the original duration, got %v", expired)
	}
}

func TestWaitDecrementsAndExpires(t *testing.T) {
	s := New()
	short := Tag{Scope: 1, Kind: KindNewChannel}
	long := Tag{Scope: 1, Kind: KindChannelEstablished}
	s.Add(short, 100*time.Millisecond)
	s.Add(long, 300*time.Millisecond)

	expired := s.Wait(fakeSleep(100*time.Millisecond), 100*time.Millisecond)
	if len(expired) != 1 || expired[0] != short {
		t.Fatalf("round 1: expected only %v to expire, got %v", short, expired)
	}
	if !s.Has(long) {
		t.Fatal("long tag should still be armed")
	}

	expired = s.Wait(fakeSleep(200*time.Millisecond), 200*time.Millisecond)
	if len(expired) != 1 || expired[0] != long {
		t.Fatalf("round 2: expected %v to expire, got %v", long, expired)
	}
}

func TestRemoveCancels(t *testing.T) {
	s := New()
	tag := Tag{Scope: 1, Kind: KindNewChannel}
	s.Add(tag, time.Second)
	s.Remove(tag)
	if s.Has(tag) {
		t.Fatal("tag should have been removed")
	}
}
