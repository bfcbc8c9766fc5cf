/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package metrics exposes optional Prometheus collectors for pool
// occupancy, channel counts, and pipeline drop reasons. It is entirely
// ambient: the connection façade works identically with a nil *Metrics, and
// no mandatory component imports this package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector channeler registers. Construct one with
// New and pass it to a node's options; a nil *Metrics disables all
// instrumentation call sites, which treat it as a no-op receiver.
type Metrics struct {
	PoolCapacity    prometheus.Gauge
	PoolInUse       prometheus.Gauge
	PoolBlockCount  prometheus.Gauge
	ChannelsPending prometheus.Gauge
	ChannelsActive  prometheus.Gauge
	IngressDropped  *prometheus.CounterVec
	EgressQueued    prometheus.Gauge
}

// New registers every collector against reg and returns the bundle. Passing
// prometheus.NewRegistry() isolates channeler's metrics from the default
// global registry; passing prometheus.DefaultRegisterer matches the common
// single-binary case.
func New(reg prometheus.Registerer) *Metrics {
	namespace := "channeler"
	return &Metrics{
		PoolCapacity: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pool", Name: "capacity_slots",
			Help: "Total slots across all blocks currently backing the packet pool.",
		}),
		PoolInUse: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pool", Name: "in_use_slots",
			Help: "Slots currently allocated out of the packet pool.",
		}),
		PoolBlockCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pool", Name: "block_count",
			Help: "Number of blocks currently backing the packet pool.",
		}),
		ChannelsPending: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "channels", Name: "pending",
			Help: "Channels awaiting handshake completion.",
		}),
		ChannelsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "channels", Name: "established",
			Help: "Channels that have completed their handshake.",
		}),
		IngressDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingress", Name: "dropped_total",
			Help: "Inbound packets dropped by the ingress pipeline, by stage.",
		}, []string{"stage"}),
		EgressQueued: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "egress", Name: "queued_packets",
			Help: "Packets currently sitting in per-channel egress buffers awaiting PacketToSend.",
		}),
	}
}

// ObservePool copies a pool snapshot into the gauges. Callers poll this
// periodically or after each Allocate/Prune rather than wiring a callback
// into the pool package itself, keeping pool free of any metrics dependency.
func (m *Metrics) ObservePool(capacity, inUse, blocks int) {
	if m == nil {
		return
	}
	m.PoolCapacity.Set(float64(capacity))
	m.PoolInUse.Set(float64(inUse))
	m.PoolBlockCount.Set(float64(blocks))
}

// ObserveChannels copies a channel-set snapshot into the gauges.
func (m *Metrics) ObserveChannels(pending, active int) {
	if m == nil {
		return
	}
	m.ChannelsPending.Set(float64(pending))
	m.ChannelsActive.Set(float64(active))
}

// DropIngress increments the drop counter for the named pipeline stage
// (e.g. "route", "validate", "channel-assign").
func (m *Metrics) DropIngress(stage string) {
	if m == nil {
		return
	}
	m.IngressDropped.WithLabelValues(stage).Inc()
}

// SetEgressQueued records the current total queued-packet count across all
// channels.
func (m *Metrics) SetEgressQueued(n int) {
	if m == nil {
		return
	}
	m.EgressQueued.Set(float64(n))
}
