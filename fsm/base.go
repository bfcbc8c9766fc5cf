/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package fsm

// FSM is implemented by each of the three mandatory state machines (§4.6).
// Process reports whether it recognised and handled ev; when it did, it may
// also return actions to propagate backward and events to forward onward.
// An FSM that does not recognise ev returns handled=false and nil slices.
type FSM interface {
	Process(ev Event) (handled bool, actions []Action, events []Event)
}

// Registry owns a fixed set of FSMs and broadcasts every event to all of
// them (§4.6): "at least one must handle it or the registry returns false."
// Dispatch goes through the FSM interface over a membership fixed at
// construction; there is no runtime registration.
type Registry struct {
	fsms []FSM
}

// NewRegistry builds a registry broadcasting to the given FSMs, in order.
func NewRegistry(fsms ...FSM) *Registry {
	return &Registry{fsms: fsms}
}

// Dispatch broadcasts ev to every member FSM, merging their actions and
// forwarded events. It reports ok=false if no FSM recognised ev.
func (r *Registry) Dispatch(ev Event) (actions []Action, events []Event, ok bool) {
	for _, f := range r.fsms {
		handled, a, e := f.Process(ev)
		if !handled {
			continue
		}
		ok = true
		actions = append(actions, a...)
		events = append(events, e...)
	}
	return actions, events, ok
}
