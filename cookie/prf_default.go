/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

//go:build !channeler_strongcookie

package cookie

// defaultPRF is CRC32, the wire-mandated default (§3, §4.3). Build with the
// channeler_strongcookie tag to flip this to Blake2sKeyed instead.
var defaultPRF PRF = CRC32{}
