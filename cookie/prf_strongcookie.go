/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

//go:build channeler_strongcookie

package cookie

// defaultPRF is Blake2sKeyed under the channeler_strongcookie build tag, for
// deployments that want cookie forgery resistance over wire compatibility
// with the default CRC-32 (§4.3's open question).
var defaultPRF PRF = Blake2sKeyed{}
