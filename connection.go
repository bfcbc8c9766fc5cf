/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package channeler

import (
	"time"

	"github.com/go-channeler/channeler/channelset"
	"github.com/go-channeler/channeler/egress"
	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/failpolicy"
	"github.com/go-channeler/channeler/fsm"
	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/ingress"
	"github.com/go-channeler/channeler/pool"
	"github.com/go-channeler/channeler/timeout"
	"github.com/go-channeler/channeler/wire"
)

// Callbacks are the host-supplied entry points §6 calls for: a sleep
// primitive driving the timeout service, plus the three notification
// callbacks a Connection invokes as pipeline events occur.
type Callbacks struct {
	// Sleep blocks (or cooperatively yields) for up to d and reports how
	// much time actually elapsed; required for any caller that wants Tick
	// to expire handshake timers.
	Sleep timeout.Sleeper
	// OnChannelEstablished reports handshake completion, successful
	// (err == nil) or not.
	OnChannelEstablished func(channel ids.ChannelID, err *errcode.Error)
	// OnPacketReady reports that a packet is available to hand to the
	// transport via PacketToSend(channel).
	OnPacketReady func(channel ids.ChannelID)
	// OnDataAvailable reports that an established channel has a new
	// ingress payload of size bytes ready for ChannelRead.
	OnDataAvailable func(channel ids.ChannelID, size int)
}

// Connection is the façade of §4.9: a reference to the shared Node context
// plus a per-connection context (channel set, timeouts, remote peer id).
// One Connection corresponds to one remote peer; a host talking to many
// peers constructs one Connection per peer, all sharing the same Node (and
// therefore the same packet pool and cookie generator).
type Connection struct {
	node *Node
	peer ids.PeerID

	channels *channelset.Set
	timeouts *timeout.Service

	initiator *fsm.InitiatorFSM
	registry  *fsm.Registry

	ingressPipe *ingress.Pipeline
	egressPipe  *egress.Pipeline

	callbacks Callbacks

	// policyClosers holds every failpolicy.ThresholdPolicy this connection
	// started a garbage-collection goroutine for; Close stops them.
	policyClosers []closer
}

type closer interface{ Close() }

// NewConnection builds a Connection to peer, wiring the three mandatory
// FSMs behind a shared registry and the ingress/egress pipelines behind
// that, exactly as §4.6/§4.4/§4.5 describe.
func NewConnection(node *Node, peer ids.PeerID, cb Callbacks) *Connection {
	channels := channelset.New()
	timeouts := timeout.New()

	initiator := &fsm.InitiatorFSM{
		Self:           node.Self,
		Channels:       channels,
		Cookies:        node.Cookie,
		Timeouts:       timeouts,
		NewTimeout:     node.Config.NewChannelTimeout,
		ChannelTimeout: node.Config.ChannelTimeout,
		Capabilities:   node.Config.Capabilities,
	}
	responder := &fsm.ResponderFSM{
		Channels:     channels,
		Cookies:      node.Cookie,
		Capabilities: node.Config.Capabilities,
	}
	data := &fsm.DataFSM{
		Channels:       channels,
		MaxPayloadSize: node.Config.MaxPayloadSize,
	}
	registry := fsm.NewRegistry(initiator, responder, data)

	c := &Connection{
		node:      node,
		peer:      peer,
		channels:  channels,
		timeouts:  timeouts,
		initiator: initiator,
		registry:  registry,
		callbacks: cb,
	}

	egressPipe := egress.New(node.Self, node.Pool, node.Config.MaxPayloadSize)
	egressPipe.OnPacketEnqueued = func(channel ids.ChannelID) {
		if c.callbacks.OnPacketReady != nil {
			c.callbacks.OnPacketReady(channel)
		}
	}
	egressPipe.EncryptionHook = node.Config.EncryptionHook
	c.egressPipe = egressPipe

	in := ingress.New(node.Self, channels, registry)
	in.EncryptionHook = node.Config.EncryptionHook
	if node.Config.ChecksumFailurePolicy.Threshold > 0 {
		window := node.Config.ChecksumFailurePolicy.Window
		if window <= 0 {
			window = 30 * time.Second
		}
		checksumPolicy := failpolicy.NewThresholdPolicy(node.Config.ChecksumFailurePolicy.Threshold, window)
		transportPolicy := failpolicy.NewThresholdPolicy(node.Config.ChecksumFailurePolicy.Threshold, window)
		in.ChecksumFailures = checksumPolicy
		in.TransportFailures = transportPolicy
		c.policyClosers = append(c.policyClosers, checksumPolicy, transportPolicy)
	}
	in.OnForward = c.handleForwardedEvent
	c.ingressPipe = in

	// The default channel must exist before any MESSAGE_OUT to it can be
	// bundled, mirroring channelAssign's auto-create for inbound traffic.
	_, _ = channels.Add(ids.DefaultChannelID)

	return c
}

// handleForwardedEvent is the sink both the ingress pipeline's OnForward and
// this façade's own FSM calls feed into: MESSAGE_OUT reaches egress,
// USER_DATA_TO_READ/TO_SEND reach the user-facing callbacks and the egress
// bundler respectively (§4.4 stage 6, §4.9).
func (c *Connection) handleForwardedEvent(ev fsm.Event) {
	switch ev.Kind {
	case fsm.EventMessageOut:
		record, ok := c.channels.Get(ev.Channel)
		if !ok {
			return
		}
		if _, sent := c.egressPipe.HandleFSMEvent(c.peer, record, ev); !sent {
			return
		}
	case fsm.EventUserDataToRead:
		if c.callbacks.OnDataAvailable == nil {
			return
		}
		size := 0
		if d, ok := ev.Message.(wire.Data); ok {
			size = len(d.Payload)
		}
		c.callbacks.OnDataAvailable(ev.Channel, size)
	case fsm.EventUserDataToSend:
		record, ok := c.channels.Get(ev.Channel)
		if !ok {
			return
		}
		if err, _ := c.egressPipe.Bundle(c.peer, record, ev.Channel); err != nil {
			c.node.Config.Log.Errorf("channeler: failed to bundle buffered data on channel %08x: %v", uint32(ev.Channel), err)
		}
	}
}

// EstablishChannel injects NEW_CHANNEL (§4.6.1, §4.9): the resulting
// MESSAGE_OUT(CHANNEL_NEW) is bundled into egress immediately. Completion is
// reported asynchronously via Callbacks.OnChannelEstablished when the
// matching CHANNEL_ACKNOWLEDGE arrives.
func (c *Connection) EstablishChannel() error {
	actions, events, ok := c.registry.Dispatch(fsm.Event{
		Kind: fsm.EventNewChannel, Self: c.node.Self, Peer: c.peer,
	})
	if !ok {
		return errcode.New(errcode.UNEXPECTED, "channeler: no FSM handled NEW_CHANNEL")
	}
	c.applyActions(actions)
	for _, ev := range events {
		c.handleForwardedEvent(ev)
	}
	return nil
}

// ChannelWrite injects USER_DATA_WRITTEN (§4.6.3, §4.9). It rejects the
// default channel and incomplete ids synchronously, since neither can ever
// resolve to a record the data FSM would accept.
func (c *Connection) ChannelWrite(id ids.ChannelID, data []byte) (int, error) {
	if id.IsEmpty() {
		return 0, errcode.New(errcode.INVALID_CHANNELID, "channeler: cannot write to the default channel")
	}
	if !id.IsComplete() {
		return 0, errcode.New(errcode.INVALID_CHANNELID, "channeler: cannot write to incomplete channel id %08x", uint32(id))
	}

	record, _ := c.channels.Get(id)
	actions, events, _ := c.registry.Dispatch(fsm.Event{
		Kind: fsm.EventUserDataWritten, Channel: id, Record: record, Data: data,
	})
	for _, a := range actions {
		if a.Kind == fsm.ActionError {
			return 0, a.Err
		}
	}
	for _, ev := range events {
		c.handleForwardedEvent(ev)
	}
	return len(data), nil
}

// ChannelRead pops the next ingress packet and copies every DATA message's
// payload it carries into buf, concatenated in wire order (§4.9). It reports
// INSUFFICIENT_BUFFER_SIZE and leaves the slot queued for a subsequent call
// with a larger buffer when buf is too small.
func (c *Connection) ChannelRead(id ids.ChannelID, buf []byte) (int, error) {
	record, ok := c.channels.Get(id)
	if !ok {
		return 0, errcode.New(errcode.INVALID_CHANNELID, "channeler: unknown channel %08x", uint32(id))
	}
	slot, ok := record.PopIngress()
	if !ok {
		return 0, nil
	}

	pkt, err := wire.Parse(slot.Data())
	if err != nil {
		slot.Release()
		return 0, errcode.Wrap(errcode.DECODE, err, "channeler: ChannelRead failed to parse buffered packet")
	}

	var payloads [][]byte
	total := 0
	for _, m := range pkt.Messages().All() {
		if d, ok := m.(wire.Data); ok {
			payloads = append(payloads, d.Payload)
			total += len(d.Payload)
		}
	}
	if total == 0 {
		slot.Release()
		return 0, nil
	}
	if total > len(buf) {
		record.PushIngress(slot) // put it back; caller must retry with a bigger buffer.
		return 0, errcode.New(errcode.INSUFFICIENT_BUFFER_SIZE, "channeler: read buffer of %d bytes too small for %d byte payload", len(buf), total)
	}
	n := 0
	for _, payload := range payloads {
		n += copy(buf[n:], payload)
	}
	slot.Release()
	return n, nil
}

// ReceivedPacket drives the ingress pipeline (§4.9). slot must already
// hold the received bytes; ReceivedPacket never releases the caller's
// reference to it (ingress.Pipeline.Handle's own rule, §5).
func (c *Connection) ReceivedPacket(transport string, slot *pool.Slot) error {
	actions := c.ingressPipe.Handle(ingress.Inbound{Transport: transport, Slot: slot})
	c.applyActions(actions)
	return nil
}

// PacketToSend pops the next ready-to-send slot from channel's egress
// buffer (§4.9). The caller owns the returned slot and must Release it once
// sent.
func (c *Connection) PacketToSend(channel ids.ChannelID) (*pool.Slot, bool) {
	record, ok := c.channels.Get(channel)
	if !ok {
		return nil, false
	}
	return record.PopEgressPacket()
}

// Allocate exposes pool allocation through the connection for symmetry with
// Node.Allocate.
func (c *Connection) Allocate() *pool.Slot {
	return c.node.Allocate()
}

// HasEstablishedChannel reports whether id is established on this
// connection's channel set (§4.2's has_established_channel, exposed through
// the façade for hosts that want to poll handshake completion rather than
// rely solely on Callbacks.OnChannelEstablished).
func (c *Connection) HasEstablishedChannel(id ids.ChannelID) bool {
	return c.channels.HasEstablishedChannel(id)
}

// Tick drives the timeout service once (§4.8): every tag that has expired
// is re-injected as a TIMEOUT event and its resulting actions applied. The
// host is expected to call Tick from its own event loop at whatever cadence
// it drives Callbacks.Sleep with.
func (c *Connection) Tick() {
	if c.callbacks.Sleep == nil {
		return
	}
	expired := c.timeouts.Wait(c.callbacks.Sleep, c.node.Config.NewChannelTimeout)
	for _, tag := range expired {
		_, actions, _ := c.initiator.Process(fsm.Event{Kind: fsm.EventTimeout, Tag: tag})
		c.applyActions(actions)
	}
}

// Close stops any background goroutines this connection started — currently
// the garbage collectors behind a configured ChecksumFailurePolicy — and
// should be called once the connection is no longer needed.
func (c *Connection) Close() {
	for _, p := range c.policyClosers {
		p.Close()
	}
}

func (c *Connection) applyActions(actions []fsm.Action) {
	for _, a := range actions {
		switch a.Kind {
		case fsm.ActionNotifyChannelEstablished:
			if c.callbacks.OnChannelEstablished != nil {
				c.callbacks.OnChannelEstablished(a.Channel, nil)
			}
		case fsm.ActionError:
			c.node.Config.Log.Errorf("channeler: %v", a.Err)
			c.node.Config.Metrics.DropIngress("pipeline")
		case fsm.ActionFilterPeer:
			c.node.Config.Log.Verbosef("channeler: banned peer %s after repeated checksum failures", a.Key)
		case fsm.ActionFilterTransport:
			c.node.Config.Log.Verbosef("channeler: banned transport %s after repeated failures", a.Key)
		}
	}
	c.observe()
}

// observe refreshes this connection's Prometheus gauges, if Config.Metrics
// is set. It is a no-op on a nil *Metrics.
func (c *Connection) observe() {
	m := c.node.Config.Metrics
	if m == nil {
		return
	}
	m.ObservePool(c.node.Pool.Capacity(), c.node.Pool.Size(), c.node.Pool.BlockCount())
	m.ObserveChannels(c.channels.PendingCount(), c.channels.EstablishedCount())
}
