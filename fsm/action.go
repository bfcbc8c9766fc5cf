/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package fsm

import (
	"github.com/go-channeler/channeler/errcode"
	"github.com/go-channeler/channeler/ids"
)

// ActionKind discriminates the Action union. Actions flow backward through
// the pipeline, opposite to events (§4.4 design notes).
type ActionKind uint8

const (
	ActionUnknown ActionKind = iota
	// ActionFilterTransport asks the route stage to ban a transport
	// address; Key holds that address's string form.
	ActionFilterTransport
	// ActionFilterPeer asks the route stage to ban a sender/recipient
	// peer id; Key holds its string form.
	ActionFilterPeer
	// ActionNotifyChannelEstablished reports that Channel just became
	// established (§4.6.2, §4.9).
	ActionNotifyChannelEstablished
	// ActionError surfaces a synchronous failure, e.g. a write to an
	// unknown channel (§4.6.3).
	ActionError
)

// Action is the tagged union every FSM and pipeline stage may return
// alongside its forwarded events.
type Action struct {
	Kind    ActionKind
	Key     string
	Channel ids.ChannelID
	Err     *errcode.Error
}
