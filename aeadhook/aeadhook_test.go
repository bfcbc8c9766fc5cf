/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package aeadhook

import (
	"testing"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/go-channeler/channeler/ids"
	"github.com/go-channeler/channeler/wire"
)

func buildPlainPacket(t *testing.T, slotSize int, extra int) []byte {
	t.Helper()
	buf := make([]byte, slotSize)
	p := wire.NewEmpty(buf)
	if err := p.SetSender(ids.PeerID{0x01}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetRecipient(ids.PeerID{0x02}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetChannelID(ids.NewChannelID(1, 2)); err != nil {
		t.Fatal(err)
	}
	if err := p.SetPacketSize(uint16(slotSize)); err != nil {
		t.Fatal(err)
	}
	msg := wire.Data{Payload: []byte("top secret payload")}
	n, err := msg.Encode(buf[wire.PublicHeaderSize+wire.PrivateHeaderSize:])
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetPayloadSize(uint16(n + extra)); err != nil {
		t.Fatal(err)
	}
	p.WritePadding()
	return buf
}

func TestSealOpenRoundTrip(t *testing.T) {
	var key [chacha20poly1305.KeySize]byte
	for i := range key {
		key[i] = byte(i)
	}
	hook, err := New(key)
	if err != nil {
		t.Fatal(err)
	}

	slotSize := 256
	reserve := hook.aead.NonceSize() + hook.aead.Overhead()
	buf := buildPlainPacket(t, slotSize, reserve)
	original := append([]byte(nil), buf...)

	if err := hook.Seal(buf, slotSize); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	region := buf[wire.PublicHeaderSize : slotSize-wire.FooterSize]
	origRegion := original[wire.PublicHeaderSize : slotSize-wire.FooterSize]
	if string(region) == string(origRegion) {
		t.Fatal("Seal did not appear to transform the region")
	}

	if err := hook.Open(buf, slotSize); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	gotRegion := buf[wire.PublicHeaderSize+hook.aead.NonceSize() : slotSize-wire.FooterSize-hook.aead.Overhead()]
	wantRegion := origRegion[:len(gotRegion)]
	if string(gotRegion) != string(wantRegion) {
		t.Fatalf("round-trip mismatch:\n got  %x\n want %x", gotRegion, wantRegion)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	var key [chacha20poly1305.KeySize]byte
	hook, err := New(key)
	if err != nil {
		t.Fatal(err)
	}

	slotSize := 256
	reserve := hook.aead.NonceSize() + hook.aead.Overhead()
	buf := buildPlainPacket(t, slotSize, reserve)
	if err := hook.Seal(buf, slotSize); err != nil {
		t.Fatal(err)
	}

	buf[wire.PublicHeaderSize+hook.aead.NonceSize()] ^= 0xff
	if err := hook.Open(buf, slotSize); err == nil {
		t.Fatal("expected Open to reject tampered ciphertext")
	}
}
