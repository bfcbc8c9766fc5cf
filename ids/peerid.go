/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package ids holds the two identifier types channeler moves around by
// value everywhere else: PeerID (§3 "Peer id") and ChannelID (§3 "Channel
// id"). Keeping them in their own leaf package lets the wire codec, the
// cookie generator, and the channel registry all depend on the identifier
// shapes without depending on each other.
package ids

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/rs/xid"
)

// PeerIDSize is the fixed wire size of a peer id (§3).
const PeerIDSize = 16

// PeerID is an opaque 16-byte peer identifier, generated randomly at node
// creation and never interpreted beyond equality comparison.
type PeerID [PeerIDSize]byte

// NewPeerID generates a random peer id using a CSPRNG, as required by §3.
func NewPeerID() (PeerID, error) {
	var id PeerID
	if _, err := rand.Read(id[:]); err != nil {
		return PeerID{}, err
	}
	return id, nil
}

// NewPeerIDFromXID mints a peer id from a globally unique, roughly
// time-sortable xid instead of raw randomness. The wire representation is
// unaffected: a PeerID is always 16 opaque bytes, and xid.ID is exactly 12
// bytes, so the remaining 4 bytes are zero-padded. Hosts that want to eyeball
// handshake order in logs, or shard storage by creation time, can prefer
// this constructor over NewPeerID; the protocol does not care which is used.
func NewPeerIDFromXID() PeerID {
	var id PeerID
	copy(id[:], xid.New().Bytes())
	return id
}

// String renders the peer id as lowercase hex, matching §3's
// "hex-displayable" requirement.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// IsZero reports whether p is the all-zero peer id, which is never a valid
// identity for an actual peer but is used as a zero-value sentinel.
func (p PeerID) IsZero() bool {
	return p == PeerID{}
}
