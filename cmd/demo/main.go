/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Command demo wires two in-process channeler nodes together over a loopback
// "transport" (a plain function call copying slot bytes from one node's pool
// into the other's) and exercises a full handshake without a real network.
// It runs the clean-handshake scenario (§8 E1) followed by one application
// data exchange.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/go-channeler/channeler"
	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/ids"
)

func main() {
	secretA := []byte("node-a-secret")
	secretB := []byte("node-b-secret")

	peerA, err := ids.NewPeerID()
	if err != nil {
		log.Fatalf("demo: mint peer A id: %v", err)
	}
	peerB, err := ids.NewPeerID()
	if err != nil {
		log.Fatalf("demo: mint peer B id: %v", err)
	}

	nodeA, err := channeler.NewNode(peerA, channeler.Config{
		Secret: func() []byte { return secretA },
	})
	if err != nil {
		log.Fatalf("demo: new node A: %v", err)
	}
	nodeB, err := channeler.NewNode(peerB, channeler.Config{
		Secret: func() []byte { return secretB },
	})
	if err != nil {
		log.Fatalf("demo: new node B: %v", err)
	}

	established := make(chan ids.ChannelID, 1)
	dataReady := make(chan int, 1)

	var connA, connB *channeler.Connection
	connA = channeler.NewConnection(nodeA, peerB, channeler.Callbacks{
		OnPacketReady: func(channel ids.ChannelID) { deliver(connA, connB, channel) },
	})
	connB = channeler.NewConnection(nodeB, peerA, channeler.Callbacks{
		OnPacketReady: func(channel ids.ChannelID) { deliver(connB, connA, channel) },
		OnChannelEstablished: func(channel ids.ChannelID, err *errcode.Error) {
			if err != nil {
				log.Fatalf("demo: B handshake failed: %v", err)
			}
			established <- channel
		},
		OnDataAvailable: func(channel ids.ChannelID, size int) {
			dataReady <- size
		},
	})
	defer connA.Close()
	defer connB.Close()

	if err := connA.EstablishChannel(); err != nil {
		log.Fatalf("demo: establish channel: %v", err)
	}

	var channel ids.ChannelID
	select {
	case channel = <-established:
		fmt.Printf("handshake established: channel=%08x\n", uint32(channel))
	case <-time.After(time.Second):
		log.Fatal("demo: handshake did not complete")
	}

	payload := []byte("hello over channeler")
	if _, err := connA.ChannelWrite(channel, payload); err != nil {
		log.Fatalf("demo: channel write: %v", err)
	}

	select {
	case size := <-dataReady:
		buf := make([]byte, size)
		n, err := connB.ChannelRead(channel, buf)
		if err != nil {
			log.Fatalf("demo: channel read: %v", err)
		}
		fmt.Printf("received %d bytes: %q\n", n, buf[:n])
	case <-time.After(time.Second):
		log.Fatal("demo: data never arrived")
	}
}

// deliver pops the next ready packet off from's egress buffer for channel,
// copies its bytes into a freshly allocated slot on to's node, and feeds it
// through to's ingress pipeline — the loopback stand-in for a real datagram
// transport (§1: "the actual network I/O is out of scope").
func deliver(from, to *channeler.Connection, channel ids.ChannelID) {
	slot, ok := from.PacketToSend(channel)
	if !ok {
		return
	}
	defer slot.Release()

	dst := to.Allocate()
	copy(dst.Data(), slot.Data())

	if err := to.ReceivedPacket("loopback", dst); err != nil {
		log.Printf("demo: delivery failed: %v", err)
	}
}
