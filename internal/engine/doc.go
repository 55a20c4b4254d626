// Package engine implements the event-scheduling core of the simulator.
//
// The engine decides when molecules are created, removed and counted. It
// does not move or react molecules itself; that is the job of the Kernel
// driven by DiffuseReactEvent.
//
// ARCHITECTURE:
//
// Single-Threaded Cooperative Loop:
// Run pops one event at a time and calls its Step to completion. Events
// never yield mid-step, so the molecule table and wall grids are only ever
// mutated by the event currently executing.
//
// Event Ordering:
// Events are ordered by (event_time, type priority, secondary value,
// insertion seq). Within one iteration clamps fire before releases,
// releases before counts and counts before diffusion. Releases expose
// their sub-iteration "actual" release time as the secondary value so
// several trains landing in the same iteration fire in time order.
// The insertion seq comes from Clock and makes the order total.
//
// Rescheduling:
// After Step the engine calls Reschedule. Events that report no further
// occurrence are dropped; there is no other cancellation path.
//
// Barriers:
// Count events are barriers. A diffusion step never advances past the
// next scheduled barrier.
//
// Checkpoints:
// RequestCheckpoint may be called from any goroutine (typically a signal
// handler). The request is polled between events and never touches
// simulation state asynchronously.
package engine
