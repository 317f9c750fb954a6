// Package dispatch executes coordinator commands.
//
// A command goes through four stages, and stops at the first one that
// fails:
//
//  1. Schema validation (package command). Every violation is reported.
//  2. Target resolution. targetTvId, audioZoneId and bluetoothDeviceId are
//     resolved against the inventory in that order. LIST_TARGETS skips this.
//  3. Required fields for the action.
//  4. The action handler: session store mutation and any device call.
//
// Nothing is mutated before stage 4, so a rejected command never changes
// state.
//
// # Delivery
//
// In DeliveryBestEffort mode local state is decided first and the device
// call is only attempted. PLAY creates its session before contacting the
// TV and keeps it whatever happens; a transport failure is still reported
// as ErrDownstream. A device that answers with a non-2xx status is logged
// and otherwise ignored.
//
// DeliveryConfirmed makes device acknowledgement part of the commit. PLAY
// reserves a session id, calls the TV and publishes the session only if
// the TV accepted it. MOVE_AUDIO checks the session before contacting the
// zone and updates it only after the zone accepted the attach.
//
// # Concurrency
//
// Commands that touch a session hold that session's lock for the whole
// handler, device call included, so two commands on one session never
// interleave. Commands on different sessions run in parallel.
//
// STOP, PAUSE, RESUME and SEEK only change coordinator state. The TV is
// not told, so its own playback state can drift from the session record.
package dispatch
