/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package cookie

import (
	"testing"

	"github.com/go-channeler/channeler/ids"
)

func fixedSecret(s string) SecretGenerator {
	return func() []byte { return []byte(s) }
}

// Property 6: validate(create(...)) is true, and any single-bit flip in any
// input makes it false.
func TestInitiatorCookieBitSensitivity(t *testing.T) {
	g := New(fixedSecret("s"))
	a := ids.PeerID{0x01}
	b := ids.PeerID{0x02}
	half := uint16(0xA1A1)

	cookie1 := g.InitiatorCookie(a, b, half)
	if !g.ValidateInitiatorCookie(a, b, half, cookie1) {
		t.Fatal("freshly created cookie failed to validate")
	}

	flippedA := a
	flippedA[0] ^= 0x01
	if g.ValidateInitiatorCookie(flippedA, b, half, cookie1) {
		t.Fatal("cookie validated despite flipped initiator pid bit")
	}

	if g.ValidateInitiatorCookie(a, b, half^1, cookie1) {
		t.Fatal("cookie validated despite flipped initiator half bit")
	}

	other := New(fixedSecret("t"))
	if other.ValidateInitiatorCookie(a, b, half, cookie1) {
		t.Fatal("cookie validated under a different secret")
	}
}

func TestResponderCookieRoundTrip(t *testing.T) {
	g := New(fixedSecret("s"))
	a := ids.PeerID{0x01}
	b := ids.PeerID{0x02}
	ch := ids.NewChannelID(0xA1A1, 0xB2B2)

	cookie2 := g.ResponderCookie(a, b, ch)
	if !g.ValidateResponderCookie(a, b, ch, cookie2) {
		t.Fatal("freshly created responder cookie failed to validate")
	}
	if g.ValidateResponderCookie(a, b, ch^1, cookie2) {
		t.Fatal("responder cookie validated despite flipped channel id bit")
	}
}

func TestSecretRotationInvalidatesInFlightCookie(t *testing.T) {
	secret := []byte("s1")
	g := &Generator{Secret: func() []byte { return secret }, PRF: CRC32{}}
	a := ids.PeerID{0x01}
	b := ids.PeerID{0x02}

	cookie1 := g.InitiatorCookie(a, b, 0xAAAA)
	secret = []byte("s2")
	if g.ValidateInitiatorCookie(a, b, 0xAAAA, cookie1) {
		t.Fatal("cookie should silently fail validation after secret rotation")
	}
}
