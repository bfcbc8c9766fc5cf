/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package cookie

import "golang.org/x/crypto/blake2s"

// Blake2sKeyed is a true keyed-MAC PRF implementation, for deployments that
// want cookie forgery resistance ahead of a protocol revision that widens
// the wire cookie field beyond 32 bits, mirroring blake2s-based MAC key
// derivation used elsewhere for handshake authentication. Plugging this
// into Generator.PRF changes no call site; the wire cookie fields stay 4
// bytes wide via Fold until a future revision says otherwise (§4.3).
type Blake2sKeyed struct{}

func (Blake2sKeyed) Sum(secret, data []byte) []byte {
	key := secret
	if len(key) > blake2s.Size {
		key = key[:blake2s.Size]
	}
	h, err := blake2s.New256(key)
	if err != nil {
		// Only possible if key is too long, which we already guard above.
		panic(err)
	}
	h.Write(data)
	return h.Sum(nil)
}
