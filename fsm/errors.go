/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package fsm

import "github.com/go-channeler/channeler/errcode"

// asErrcode normalizes an arbitrary error into *errcode.Error for
// ActionError, since the channel-set operations this package calls already
// return *errcode.Error in practice but the FSM interface should not panic
// on an unexpected error type.
func asErrcode(err error) *errcode.Error {
	if e, ok := err.(*errcode.Error); ok {
		return e
	}
	return errcode.Wrap(errcode.UNEXPECTED, err, "fsm: unexpected error")
}
