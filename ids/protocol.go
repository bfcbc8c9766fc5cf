/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package ids

// ProtocolID is the 32-bit constant stamped into every packet's public
// header (§3). A peer rejects any packet whose protocol id does not match.
const ProtocolID uint32 = 0x0c229d94
