/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package channeler is the root package: a peer-to-peer transport-layer
// protocol library that multiplexes logical channels over an unreliable
// datagram substrate. It wires together the ids, wire, cookie, channelset,
// fsm, ingress, egress, pool, and timeout packages behind a small
// Node/Connection façade (§4.9): a shared Node context plus one Connection
// per peer.
package channeler

import (
	"github.com/go-channeler/channeler/cookie"
	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/pool"
)

// Node is the node context §4.9 describes: node peer id, shared packet
// pool, and cookie generator, all referenced (not copied) by every
// Connection hanging off it.
type Node struct {
	Self   ids.PeerID
	Pool   *pool.Pool
	Cookie *cookie.Generator
	Config Config
}

// NewNode constructs a Node from cfg, filling in defaults for any zero
// fields (§4.9). self is this node's own peer id; callers mint one with
// ids.NewPeerID or ids.NewPeerIDFromXID.
func NewNode(self ids.PeerID, cfg Config) (*Node, error) {
	if cfg.Secret == nil {
		return nil, errcode.New(errcode.UNEXPECTED, "channeler: Config.Secret is required")
	}
	full := cfg.withDefaults()

	gen := &cookie.Generator{Secret: full.Secret, PRF: full.CookiePRF}

	return &Node{
		Self:   self,
		Pool:   pool.New(full.BlockCapacity, full.PacketSize, full.PoolLocker),
		Cookie: gen,
		Config: full,
	}, nil
}

// Allocate exposes pool allocation so the host transport can fill slots in
// place before handing them to ReceivedPacket (§4.9: "allocate() -> slot").
func (n *Node) Allocate() *pool.Slot {
	return n.Pool.Allocate()
}
