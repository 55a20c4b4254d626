// Package sim wires a compiled model into a runnable simulation.
//
// Build converts model units (µm and seconds) into internal units (length
// units and iterations), registers species and reactions, builds box
// geometry with its regions, and initializes and schedules every release
// site, clamp and count together with the per-iteration diffusion event.
//
// Runner adds persistence: it records the run in the store, streams count
// rows into it and writes checkpoints there.
package sim
