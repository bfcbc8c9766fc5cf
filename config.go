/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package channeler

import (
	"time"

	"github.com/go-channeler/channeler/cookie"
	"github.com/go-channeler/channeler/fsm"
	"github.com/go-channeler/channeler/metrics"
	"github.com/go-channeler/channeler/pool"
	"github.com/go-channeler/channeler/wire"
)

// Defaults mirror §4.6.1 and §4.6.3's stated defaults.
const (
	DefaultPacketSize     = 1280
	DefaultBlockCapacity  = 64
	DefaultMaxPayloadSize = DefaultPacketSize - wire.EnvelopeSize
)

// Config is the construction-time configuration for a Node, a typed
// struct-literal builder with direct field assignment (there is no
// file-based config format in scope). Every field has a usable zero value;
// NewNode fills in defaults for anything left unset.
type Config struct {
	// PacketSize is the fixed slot size every pool.Slot carries, including
	// the 52-byte envelope (§6).
	PacketSize int
	// BlockCapacity is how many slots each pool block holds.
	BlockCapacity int
	// PoolLocker selects the pool's concurrency strategy; defaults to a
	// mutex-backed locker when nil (§4.7, §5).
	PoolLocker pool.Locker

	// Secret feeds the cookie generator (§4.3). Required; NewNode returns
	// an error if it is nil.
	Secret cookie.SecretGenerator
	// CookiePRF overrides the default CRC-32 cookie PRF, e.g. with
	// cookie.Blake2sKeyed for forgery-resistant deployments (§4.3 open
	// question).
	CookiePRF cookie.PRF

	NewChannelTimeout     time.Duration
	ChannelTimeout        time.Duration
	Capabilities          wire.Capabilities
	MaxPayloadSize        int
	ChecksumFailurePolicy ChecksumFailurePolicyConfig

	// EncryptionHook, if set, is applied by the egress/ingress pipelines
	// around the private-header-plus-payload region (§1's "defined but not
	// yet implemented" hook point): Seal runs right before the egress
	// footer checksum is written, Open runs right after the ingress
	// checksum is confirmed valid. Leave nil for the mandatory unencrypted
	// core.
	EncryptionHook wire.EncryptorHook

	// Metrics, if set, receives pool/channel/pipeline observations.
	Metrics *metrics.Metrics

	Log *Logger
}

// ChecksumFailurePolicyConfig selects the validate stage's ban policy
// (§4.4 stage 3).
type ChecksumFailurePolicyConfig struct {
	// Threshold is the number of checksum failures from one sender before
	// it is banned. Zero disables banning (NeverBan).
	Threshold int
	Window    time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.PacketSize <= 0 {
		out.PacketSize = DefaultPacketSize
	}
	if out.BlockCapacity <= 0 {
		out.BlockCapacity = DefaultBlockCapacity
	}
	if out.PoolLocker == nil {
		out.PoolLocker = pool.NewMutexLocker()
	}
	if out.NewChannelTimeout <= 0 {
		out.NewChannelTimeout = fsm.DefaultNewTimeout
	}
	if out.ChannelTimeout <= 0 {
		out.ChannelTimeout = fsm.DefaultChannelTimeout
	}
	if out.MaxPayloadSize <= 0 || out.MaxPayloadSize > out.PacketSize-wire.EnvelopeSize {
		out.MaxPayloadSize = out.PacketSize - wire.EnvelopeSize
	}
	if out.Log == nil {
		out.Log = NewLogger("channeler")
	}
	return out
}
