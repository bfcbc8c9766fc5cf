/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package aeadhook implements wire.EncryptorHook with XChaCha20-Poly1305,
// an optional concrete encryption layer the mandatory packet codec leaves
// undefined. It reuses the same AEAD construction WireGuard-style transports
// use for their ciphertext, generalized here to seal the
// private-header-plus-payload region of a channeler packet.
package aeadhook

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/wire"
)

// Hook implements wire.EncryptorHook by sealing buf[wire.PublicHeaderSize :
// packetSize-wire.FooterSize] in place with XChaCha20-Poly1305 under a
// caller-supplied static key. It is not wired into any default pipeline; a
// caller opts in via the egress/ingress pipeline's packet-level encryption
// point.
type Hook struct {
	aead cipherAEAD
}

// cipherAEAD narrows the crypto/cipher.AEAD interface to the methods this
// package calls, so tests can substitute a fake without importing the
// real cipher package.
type cipherAEAD interface {
	NonceSize() int
	Overhead() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// New builds a Hook from a 32-byte key, as derived by whatever out-of-band
// key agreement the embedding application performs — channeler itself
// performs none (§1 Non-goals: "encryption key exchange").
func New(key [chacha20poly1305.KeySize]byte) (*Hook, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, errcode.Wrap(errcode.UNEXPECTED, err, "aeadhook: failed to construct XChaCha20-Poly1305")
	}
	return &Hook{aead: aead}, nil
}

// Seal encrypts buf[wire.PublicHeaderSize : packetSize-wire.FooterSize] in
// place, prefixing a fresh random nonce immediately after the public header
// and shrinking the available plaintext region by NonceSize()+Overhead().
// Callers must size their packets to leave room for this overhead before
// calling Seal; Seal itself does not resize buf.
func (h *Hook) Seal(buf []byte, packetSize int) error {
	region := buf[wire.PublicHeaderSize : packetSize-wire.FooterSize]
	nonceSize := h.aead.NonceSize()
	overhead := h.aead.Overhead()
	if len(region) < nonceSize+overhead {
		return errcode.New(errcode.ENCODE, "aeadhook: region too small for nonce and tag")
	}

	plaintext := append([]byte(nil), region[:len(region)-nonceSize-overhead]...)

	nonce := region[:nonceSize]
	if _, err := rand.Read(nonce); err != nil {
		return errcode.Wrap(errcode.UNEXPECTED, err, "aeadhook: failed to generate nonce")
	}

	sealed := h.aead.Seal(region[nonceSize:nonceSize], nonce, plaintext, buf[:wire.PublicHeaderSize])
	copy(region[nonceSize:], sealed)
	return nil
}

// Open reverses Seal, decrypting region in place and reporting a DECODE
// error on authentication failure.
func (h *Hook) Open(buf []byte, packetSize int) error {
	region := buf[wire.PublicHeaderSize : packetSize-wire.FooterSize]
	nonceSize := h.aead.NonceSize()
	if len(region) < nonceSize {
		return errcode.New(errcode.DECODE, "aeadhook: region too small for nonce")
	}

	nonce := region[:nonceSize]
	ciphertext := region[nonceSize:]
	// dst and ciphertext overlap exactly at offset 0, which
	// crypto/cipher.AEAD.Open documents as safe for in-place decryption.
	if _, err := h.aead.Open(ciphertext[:0], nonce, ciphertext, buf[:wire.PublicHeaderSize]); err != nil {
		return errcode.Wrap(errcode.DECODE, err, "aeadhook: authentication failed")
	}
	return nil
}

var _ wire.EncryptorHook = (*Hook)(nil)
